package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/internal/config"
	"github.com/jwebster45206/campaign-engine/pkg/campaign"
	"github.com/jwebster45206/campaign-engine/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStorage) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStorage(mr.Addr(), testLogger())
	t.Cleanup(func() { _ = s.Close() })
	return mr, s
}

// playedSnapshot returns a snapshot of a campaign a few hours into level 1
func playedSnapshot(t *testing.T) *state.Snapshot {
	t.Helper()
	c := campaign.New(uuid.New(), campaign.Options{Logger: testLogger()})
	require.NoError(t, c.Start(1))
	c.Advance(5)
	return c.Save()
}

// backends runs fn against every Storage implementation
func backends(t *testing.T, fn func(t *testing.T, s Storage)) {
	t.Run("redis", func(t *testing.T) {
		_, s := setupTestRedis(t)
		fn(t, s)
	})
	t.Run("file", func(t *testing.T) {
		s, err := NewFileStorage(t.TempDir(), testLogger())
		require.NoError(t, err)
		fn(t, s)
	})
}

func TestStorage_SaveLoadDelete(t *testing.T) {
	backends(t, func(t *testing.T, s Storage) {
		ctx := context.Background()
		require.NoError(t, s.Ping(ctx))

		snap := playedSnapshot(t)
		require.NoError(t, s.SaveCampaign(ctx, snap.ID, snap))

		loaded, err := s.LoadCampaign(ctx, snap.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, snap.ID, loaded.ID)
		assert.Equal(t, snap.GameHour, loaded.GameHour)
		assert.Equal(t, snap.Objectives, loaded.Objectives)
		assert.Equal(t, snap.Timers, loaded.Timers)

		ids, err := s.ListCampaigns(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{snap.ID}, ids)

		require.NoError(t, s.DeleteCampaign(ctx, snap.ID))
		loaded, err = s.LoadCampaign(ctx, snap.ID)
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})
}

func TestStorage_LoadMissingReturnsNil(t *testing.T) {
	backends(t, func(t *testing.T, s Storage) {
		loaded, err := s.LoadCampaign(context.Background(), uuid.New())
		if err != nil {
			t.Fatalf("Expected no error for missing campaign, got: %v", err)
		}
		if loaded != nil {
			t.Error("Expected nil for missing campaign")
		}
	})
}

func TestStorage_SaveNilSnapshot(t *testing.T) {
	backends(t, func(t *testing.T, s Storage) {
		if err := s.SaveCampaign(context.Background(), uuid.New(), nil); err == nil {
			t.Fatal("expected error for nil snapshot")
		}
	})
}

func TestRedisStorage_TTLAndCorruptDocument(t *testing.T) {
	mr, s := setupTestRedis(t)
	ctx := context.Background()

	snap := playedSnapshot(t)
	require.NoError(t, s.SaveCampaign(ctx, snap.ID, snap))
	assert.Equal(t, campaignTTL, mr.TTL(campaignKey(snap.ID)))

	require.NoError(t, mr.Set(campaignKey(snap.ID), `{"version":1}`))
	_, err := s.LoadCampaign(ctx, snap.ID)
	assert.ErrorContains(t, err, "failed to parse campaign")

	require.NoError(t, mr.Set(campaignKeyPrefix+"not-a-uuid", "x"))
	ids, err := s.ListCampaigns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{snap.ID}, ids)
}

func TestRedisStorage_PingFailsWhenServerDown(t *testing.T) {
	mr, s := setupTestRedis(t)
	mr.Close()
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error after server shutdown")
	}
}

func TestFileStorage_CompressedOnDiskAndValidated(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(dir, testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	snap := playedSnapshot(t)
	require.NoError(t, s.SaveCampaign(ctx, snap.ID, snap))

	path := filepath.Join(dir, "campaigns", snap.ID.String()+snapshotExt)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// zstd frame magic number
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, raw[:4])

	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))
	_, err = s.LoadCampaign(ctx, snap.ID)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "campaigns", "notes.txt"), []byte("x"), 0o644))
	ids, err := s.ListCampaigns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{snap.ID}, ids)

	require.NoError(t, s.DeleteCampaign(ctx, uuid.New()), "deleting a missing campaign is not an error")
}

func TestNew_SelectsBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := New(&config.Config{SnapshotBackend: config.BackendRedis, RedisURL: mr.Addr()}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &RedisStorage{}, s)

	s, err = New(&config.Config{SnapshotBackend: config.BackendRedis, RedisURL: "redis://" + mr.Addr() + "/0"}, testLogger())
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))

	_, err = New(&config.Config{SnapshotBackend: config.BackendRedis, RedisURL: "redis://localhost:notaport"}, testLogger())
	assert.Error(t, err)

	s, err = New(&config.Config{SnapshotBackend: config.BackendFile, DataDir: t.TempDir()}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &FileStorage{}, s)

	_, err = New(&config.Config{SnapshotBackend: "s3"}, testLogger())
	assert.Error(t, err)
}
