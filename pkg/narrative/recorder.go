package narrative

import (
	"log/slog"
	"sort"

	"github.com/jwebster45206/campaign-engine/pkg/clock"
)

// Recorder is an in-memory Narrative that queues entries for a transport layer.
// Completion callbacks are kept in-process only; they are not part of any save.
type Recorder struct {
	clock    clock.Clock
	logger   *slog.Logger
	seq      int
	entries  []Entry
	pending  map[string]func()
	gameOver bool
	won      bool
}

// Ensure Recorder implements Narrative interface
var _ Narrative = (*Recorder)(nil)

// NewRecorder creates a recorder stamping entries with the clock's game hour
func NewRecorder(clk clock.Clock, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		clock:   clk,
		logger:  logger,
		pending: make(map[string]func()),
	}
}

func (r *Recorder) record(kind Kind, id string, awaits bool) {
	r.seq++
	hour := 0
	if r.clock != nil {
		hour = r.clock.GameHour()
	}
	r.entries = append(r.entries, Entry{Seq: r.seq, Kind: kind, ID: id, GameHour: hour, AwaitsCompletion: awaits})
	r.logger.Debug("Narrative entry recorded", "kind", kind, "id", id, "game_hour", hour)
}

func (r *Recorder) IncomingMessage(id string) { r.record(KindMessage, id, false) }
func (r *Recorder) Achievement(id string)     { r.record(KindAchievement, id, false) }

func (r *Recorder) PlayVideo(id string, onComplete func()) {
	r.await(KindVideo, id, onComplete)
}

func (r *Recorder) ForceMessage(id string, onComplete func()) {
	r.await(KindForced, id, onComplete)
}

func (r *Recorder) await(kind Kind, id string, onComplete func()) {
	if onComplete != nil {
		r.pending[id] = onComplete
	}
	r.record(kind, id, onComplete != nil)
}

// GameOver ends the run. Repeated calls are ignored.
func (r *Recorder) GameOver() {
	if r.gameOver {
		return
	}
	r.gameOver = true
	r.record(KindGameOver, "", false)
}

// WinGame ends the run in victory. Repeated calls are ignored.
func (r *Recorder) WinGame() {
	if r.won {
		return
	}
	r.won = true
	r.record(KindWin, "", false)
}

// Complete runs the pending callback for id. It reports false when nothing was waiting.
func (r *Recorder) Complete(id string) bool {
	fn, ok := r.pending[id]
	if !ok {
		return false
	}
	delete(r.pending, id)
	fn()
	return true
}

// Pending returns the ids awaiting completion, sorted
func (r *Recorder) Pending() []string {
	out := make([]string, 0, len(r.pending))
	for id := range r.pending {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Entries returns every entry not yet drained
func (r *Recorder) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Drain returns and clears the queued entries
func (r *Recorder) Drain() []Entry {
	out := r.entries
	r.entries = nil
	return out
}

// IsGameOver reports whether the campaign run was lost
func (r *Recorder) IsGameOver() bool { return r.gameOver }

// IsWon reports whether the campaign was won
func (r *Recorder) IsWon() bool { return r.won }

// Ended reports whether the run reached either terminal outcome
func (r *Recorder) Ended() bool { return r.gameOver || r.won }

// Outcome is the persisted terminal state of a run.
type Outcome struct {
	GameOver bool `json:"game_over,omitempty"`
	Won      bool `json:"won,omitempty"`
}

// Outcome returns the terminal flags for persistence
func (r *Recorder) Outcome() Outcome {
	return Outcome{GameOver: r.gameOver, Won: r.won}
}

// RestoreOutcome reapplies persisted terminal flags. Pending callbacks are not restored.
func (r *Recorder) RestoreOutcome(o Outcome) {
	r.gameOver = o.GameOver
	r.won = o.Won
}

// Reset clears the outcome, pending callbacks and undrained entries for a new attempt.
// The sequence keeps counting.
func (r *Recorder) Reset() {
	r.pending = make(map[string]func())
	r.entries = nil
	r.gameOver = false
	r.won = false
}
