package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/state"
)

// ErrNotFound is returned by helpers that prefer an error over a nil snapshot
var ErrNotFound = errors.New("campaign not found")

// Storage defines a unified interface for campaign snapshot persistence.
// LoadCampaign returns (nil, nil) when the campaign does not exist.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Campaign snapshot operations
	SaveCampaign(ctx context.Context, id uuid.UUID, s *state.Snapshot) error
	LoadCampaign(ctx context.Context, id uuid.UUID) (*state.Snapshot, error)
	DeleteCampaign(ctx context.Context, id uuid.UUID) error
	ListCampaigns(ctx context.Context) ([]uuid.UUID, error)
}

// MustLoad loads a campaign and returns ErrNotFound when it does not exist
func MustLoad(ctx context.Context, s Storage, id uuid.UUID) (*state.Snapshot, error) {
	snap, err := s.LoadCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrNotFound
	}
	return snap, nil
}
