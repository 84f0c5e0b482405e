package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/objective"
	_ "modernc.org/sqlite"
)

// Entry is one journaled objective transition.
type Entry struct {
	Seq        int64           `json:"seq"`
	CampaignID uuid.UUID       `json:"campaign_id"`
	Objective  string          `json:"objective"`
	From       objective.State `json:"from"`
	To         objective.State `json:"to"`
	Visible    bool            `json:"visible"`
	GameHour   int             `json:"game_hour"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Journal is an append-only SQLite log of objective transitions per campaign.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal database at path.
// The special path ":memory:" opens a private in-memory database.
func Open(path string) (*Journal, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initSchema(db, path != ":memory:"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB, wal bool) error {
	stmts := []string{
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS objective_changes (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			campaign_id TEXT NOT NULL,
			objective TEXT NOT NULL,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL,
			visible INTEGER NOT NULL,
			game_hour INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS objective_changes_campaign ON objective_changes(campaign_id, seq);",
	}
	if wal {
		stmts = append([]string{"PRAGMA journal_mode=WAL;", "PRAGMA synchronous=NORMAL;"}, stmts...)
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("failed to init journal schema: %w", err)
		}
	}
	return nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Ping checks the database connection
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Record appends a transition for a campaign
func (j *Journal) Record(ctx context.Context, campaignID uuid.UUID, ch objective.Change) error {
	visible := 0
	if ch.Visible {
		visible = 1
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO objective_changes (campaign_id, objective, from_state, to_state, visible, game_hour, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		campaignID.String(), ch.ID, string(ch.From), string(ch.To), visible, ch.GameHour,
		j.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record objective change: %w", err)
	}
	return nil
}

// List returns a campaign's transitions in recording order, newest last.
// A limit of zero or less returns every entry.
func (j *Journal) List(ctx context.Context, campaignID uuid.UUID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT seq, objective, from_state, to_state, visible, game_hour, recorded_at
		 FROM objective_changes WHERE campaign_id = ? ORDER BY seq LIMIT ?`,
		campaignID.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list objective changes: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e               Entry
			from, to, stamp string
			visible         int
		)
		if err := rows.Scan(&e.Seq, &e.Objective, &from, &to, &visible, &e.GameHour, &stamp); err != nil {
			return nil, fmt.Errorf("failed to scan objective change: %w", err)
		}
		if e.From, err = objective.ParseState(from); err != nil {
			return nil, err
		}
		if e.To, err = objective.ParseState(to); err != nil {
			return nil, err
		}
		if e.RecordedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
			return nil, fmt.Errorf("failed to parse recorded_at: %w", err)
		}
		e.CampaignID = campaignID
		e.Visible = visible == 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list objective changes: %w", err)
	}
	return entries, nil
}

// Delete removes every entry of a campaign
func (j *Journal) Delete(ctx context.Context, campaignID uuid.UUID) error {
	if _, err := j.db.ExecContext(ctx, "DELETE FROM objective_changes WHERE campaign_id = ?", campaignID.String()); err != nil {
		return fmt.Errorf("failed to delete objective changes: %w", err)
	}
	return nil
}
