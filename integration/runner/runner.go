package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/campaign-engine/internal/handlers"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
	"github.com/jwebster45206/campaign-engine/pkg/objective"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes campaign scripts against a running campaign-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	LevelOverride     int // If set, overrides the starting level for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           DefaultSaveTimeout,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite starts a campaign and executes every step of the suite against it
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	level := suite.Level
	if r.LevelOverride > 0 {
		level = r.LevelOverride
	}
	if level == 0 {
		level = 1
	}

	view, err := r.startCampaign(ctx, level)
	if err != nil {
		result.Error = fmt.Errorf("failed to start campaign: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.CampaignID = view.ID
	prevSavedAt := view.SavedAt

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult, savedAt := r.runStep(ctx, view.ID, step, prevSavedAt)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		prevSavedAt = savedAt
		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// startCampaign creates a campaign and waits for the worker to save its first snapshot
func (r *Runner) startCampaign(ctx context.Context, level int) (*handlers.CampaignView, error) {
	accepted, err := PostAsync(ctx, r.Client, r.BaseURL, "/v1/campaign", handlers.CreateCampaignRequest{Level: level})
	if err != nil {
		return nil, err
	}
	view, err := PollForCampaign(ctx, r.Client, r.BaseURL, accepted.CampaignID, r.Timeout)
	if err != nil {
		return nil, err
	}
	// The opening narrative is not part of any step
	if _, err := DrainNarrative(ctx, r.Client, r.BaseURL, view.ID); err != nil {
		return nil, err
	}
	return view, nil
}

// runStep posts the step's action, waits for the worker to save and checks expectations.
// Returns the saved_at of the campaign after the step.
func (r *Runner) runStep(ctx context.Context, campaignID uuid.UUID, step TestStep, prevSavedAt time.Time) (TestResult, time.Time) {
	start := time.Now()
	result := TestResult{
		StepName: step.Name,
		IsReset:  step.Action == ActionReset,
	}
	fail := func(err error) (TestResult, time.Time) {
		result.Error = err
		result.Duration = time.Since(start)
		return result, prevSavedAt
	}

	path, body, err := stepRequest(campaignID, step)
	if err != nil {
		return fail(err)
	}

	accepted, err := PostAsync(ctx, r.Client, r.BaseURL, path, body)
	if err != nil {
		return fail(fmt.Errorf("failed to post %s: %w", step.Action, err))
	}
	result.RequestID = accepted.RequestID

	view, err := PollForSave(ctx, r.Client, r.BaseURL, campaignID, prevSavedAt, r.Timeout)
	if err != nil {
		return fail(fmt.Errorf("failed to poll for %s: %w", step.Action, err))
	}

	entries, err := DrainNarrative(ctx, r.Client, r.BaseURL, campaignID)
	if err != nil {
		return fail(err)
	}
	result.Narrative = entries

	if err := r.checkExpectations(step.Expectations, view, entries); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result, view.SavedAt
}

// stepRequest maps a step onto its API path and body
func stepRequest(campaignID uuid.UUID, step TestStep) (string, interface{}, error) {
	base := "/v1/campaign/" + campaignID.String()
	switch step.Action {
	case ActionAdvance:
		return base + "/advance", handlers.AdvanceRequest{Hours: step.Hours, Millis: step.Millis}, nil
	case ActionWait:
		return base + "/advance", handlers.AdvanceRequest{Millis: step.Millis}, nil
	case ActionEvent:
		if step.Event == nil {
			return "", nil, fmt.Errorf("event step %q has no event", step.Name)
		}
		return base + "/events", handlers.EventRequest{Event: step.Event}, nil
	case ActionComplete:
		if step.NarrativeID == "" {
			return "", nil, fmt.Errorf("complete step %q has no narrative_id", step.Name)
		}
		kind := step.NarrativeKind
		if kind == "" {
			kind = narrative.KindVideo
		}
		return base + "/narrative/" + step.NarrativeID + "/complete", handlers.NarrativeCompleteRequest{Kind: kind}, nil
	case ActionReset:
		return base + "/reset", nil, nil
	default:
		return "", nil, fmt.Errorf("unknown step action %q", step.Action)
	}
}

// checkExpectations validates the campaign and the step's narrative against expectations
func (r *Runner) checkExpectations(exp Expectations, view *handlers.CampaignView, entries []narrative.Entry) error {
	var errors []string

	if exp.Level != nil && view.Level != *exp.Level {
		errors = append(errors, fmt.Sprintf("level: expected %d, got %d", *exp.Level, view.Level))
	}
	if exp.GameHour != nil && view.GameHour != *exp.GameHour {
		errors = append(errors, fmt.Sprintf("game_hour: expected %d, got %d", *exp.GameHour, view.GameHour))
	}
	if exp.Ended != nil && view.Ended != *exp.Ended {
		errors = append(errors, fmt.Sprintf("ended: expected %t, got %t", *exp.Ended, view.Ended))
	}

	visible := make(map[string]objective.State, len(view.Objectives))
	for _, o := range view.Objectives {
		visible[o.ID] = o.State
	}
	for id, want := range exp.Objectives {
		got, ok := visible[id]
		switch {
		case want == HiddenObjective && ok:
			errors = append(errors, fmt.Sprintf("objective %s: expected hidden, got %s", id, got))
		case want == HiddenObjective:
		case !ok:
			errors = append(errors, fmt.Sprintf("objective %s: expected %s, not on the objective list", id, want))
		case string(got) != want:
			errors = append(errors, fmt.Sprintf("objective %s: expected %s, got %s", id, want, got))
		}
	}

	produced := make(map[string]bool, len(entries))
	for _, e := range entries {
		produced[entryKey(e)] = true
	}
	for _, want := range exp.NarrativeContains {
		if !produced[want] {
			errors = append(errors, fmt.Sprintf("narrative: expected %q, got %v", want, keys(entries)))
		}
	}
	for _, unwanted := range exp.NarrativeNotContains {
		if produced[unwanted] {
			errors = append(errors, fmt.Sprintf("narrative: did not expect %q", unwanted))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}
	return nil
}

func entryKey(e narrative.Entry) string {
	return string(e.Kind) + ":" + e.ID
}

func keys(entries []narrative.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = entryKey(e)
	}
	return out
}
