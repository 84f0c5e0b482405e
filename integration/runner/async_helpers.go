package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/internal/handlers"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
)

const (
	// PollInterval is how often to check a campaign for updates
	PollInterval = 100 * time.Millisecond
	// DefaultSaveTimeout is max time to wait for the worker to persist a queued request
	DefaultSaveTimeout = 30 * time.Second
)

// narrativeResponse is the body of GET /v1/campaign/{id}/narrative
type narrativeResponse struct {
	CampaignID uuid.UUID         `json:"campaign_id"`
	Entries    []narrative.Entry `json:"entries"`
}

// PostAsync posts body to path and returns the accepted request
func PostAsync(ctx context.Context, client *http.Client, baseURL, path string, body interface{}) (*handlers.AcceptedResponse, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("POST %s returned %d (expected 202): %s", path, resp.StatusCode, string(data))
	}

	var accepted handlers.AcceptedResponse
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return nil, fmt.Errorf("failed to parse accepted response: %w", err)
	}
	return &accepted, nil
}

// GetCampaign retrieves the current campaign view. Returns nil, nil on 404.
func GetCampaign(ctx context.Context, client *http.Client, baseURL string, campaignID uuid.UUID) (*handlers.CampaignView, error) {
	url := fmt.Sprintf("%s/v1/campaign/%s", baseURL, campaignID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get campaign returned %d: %s", resp.StatusCode, string(body))
	}

	var view handlers.CampaignView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("failed to decode campaign: %w", err)
	}
	return &view, nil
}

// DrainNarrative pops the entries queued for the campaign
func DrainNarrative(ctx context.Context, client *http.Client, baseURL string, campaignID uuid.UUID) ([]narrative.Entry, error) {
	url := fmt.Sprintf("%s/v1/campaign/%s/narrative", baseURL, campaignID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create narrative request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get narrative: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get narrative returned %d: %s", resp.StatusCode, string(body))
	}

	var out narrativeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode narrative: %w", err)
	}
	return out.Entries, nil
}

// PollForCampaign waits until a newly created campaign has been saved.
func PollForCampaign(ctx context.Context, client *http.Client, baseURL string, campaignID uuid.UUID, timeout time.Duration) (*handlers.CampaignView, error) {
	return poll(ctx, timeout, func() (*handlers.CampaignView, error) {
		return GetCampaign(ctx, client, baseURL, campaignID)
	}, func(v *handlers.CampaignView) bool { return v != nil })
}

// PollForSave waits until the campaign's saved_at moves past prev
func PollForSave(ctx context.Context, client *http.Client, baseURL string, campaignID uuid.UUID, prev time.Time, timeout time.Duration) (*handlers.CampaignView, error) {
	return poll(ctx, timeout, func() (*handlers.CampaignView, error) {
		return GetCampaign(ctx, client, baseURL, campaignID)
	}, func(v *handlers.CampaignView) bool { return v != nil && !v.SavedAt.Equal(prev) })
}

func poll(ctx context.Context, timeout time.Duration, get func() (*handlers.CampaignView, error), done func(*handlers.CampaignView) bool) (*handlers.CampaignView, error) {
	if timeout <= 0 {
		timeout = DefaultSaveTimeout
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		view, err := get()
		if err != nil {
			return nil, err
		}
		if done(view) {
			return view, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timeout waiting for campaign update after %v", timeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
