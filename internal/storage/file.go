package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/state"
	"github.com/klauspost/compress/zstd"
)

const snapshotExt = ".json.zst"

// FileStorage keeps one zstd-compressed snapshot document per campaign in a directory
type FileStorage struct {
	dir    string
	logger *slog.Logger
}

// Ensure FileStorage implements Storage interface
var _ Storage = (*FileStorage)(nil)

// NewFileStorage creates the campaigns directory under dataDir if needed
func NewFileStorage(dataDir string, logger *slog.Logger) (*FileStorage, error) {
	if dataDir == "" {
		dataDir = "./data"
	}
	dir := filepath.Join(dataDir, "campaigns")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create campaign dir: %w", err)
	}
	return &FileStorage{dir: dir, logger: logger}, nil
}

func (f *FileStorage) path(id uuid.UUID) string {
	return filepath.Join(f.dir, id.String()+snapshotExt)
}

func (f *FileStorage) Ping(ctx context.Context) error {
	info, err := os.Stat(f.dir)
	if err != nil {
		return fmt.Errorf("campaign dir unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("campaign dir %s is not a directory", f.dir)
	}
	return nil
}

func (f *FileStorage) Close() error {
	return nil
}

func (f *FileStorage) SaveCampaign(ctx context.Context, id uuid.UUID, s *state.Snapshot) error {
	if s == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, id.String()+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to create encoder: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		tmp.Close()
		return fmt.Errorf("failed to write campaign: %w", err)
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush campaign: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close campaign file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(id)); err != nil {
		f.logger.Error("Failed to save campaign", "campaign_id", id, "error", err)
		return fmt.Errorf("failed to save campaign: %w", err)
	}
	return nil
}

func (f *FileStorage) LoadCampaign(ctx context.Context, id uuid.UUID) (*state.Snapshot, error) {
	file, err := os.Open(f.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("Campaign not found", "campaign_id", id)
			return nil, nil // Return nil for not found
		}
		return nil, fmt.Errorf("failed to open campaign: %w", err)
	}
	defer file.Close()

	dec, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	defer dec.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, dec); err != nil {
		return nil, fmt.Errorf("failed to decompress campaign: %w", err)
	}

	s, err := state.Parse(buf.Bytes())
	if err != nil {
		f.logger.Error("Failed to parse campaign", "campaign_id", id, "error", err)
		return nil, fmt.Errorf("failed to parse campaign: %w", err)
	}
	return s, nil
}

func (f *FileStorage) DeleteCampaign(ctx context.Context, id uuid.UUID) error {
	if err := os.Remove(f.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	return nil
}

func (f *FileStorage) ListCampaigns(ctx context.Context) ([]uuid.UUID, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	var ids []uuid.UUID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(name, snapshotExt))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}
