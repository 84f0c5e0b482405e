package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/pkg/campaign"
	"github.com/jwebster45206/campaign-engine/pkg/catalog"
	"github.com/jwebster45206/campaign-engine/pkg/clock"
	"github.com/jwebster45206/campaign-engine/pkg/narrative"
	"github.com/jwebster45206/campaign-engine/pkg/objective"
	"github.com/jwebster45206/campaign-engine/pkg/queue"
	"github.com/jwebster45206/campaign-engine/pkg/state"
	"github.com/jwebster45206/campaign-engine/pkg/storage"
)

// sessionIdleTTL is how long an untouched campaign stays resident
const sessionIdleTTL = 30 * time.Minute

// ErrCampaignExists is returned when a start request targets a stored campaign
var ErrCampaignExists = errors.New("campaign already exists")

// ErrCampaignEnded is returned for any request other than a reset on an ended campaign
var ErrCampaignEnded = errors.New("campaign has ended")

// NarrativeSink receives the narrative entries produced by a request
type NarrativeSink interface {
	Push(ctx context.Context, campaignID uuid.UUID, entries ...narrative.Entry) error
}

// Journal records objective transitions
type Journal interface {
	Record(ctx context.Context, campaignID uuid.UUID, ch objective.Change) error
}

// Publisher fans campaign changes out to live subscribers
type Publisher interface {
	PublishCampaignUpdated(ctx context.Context, campaignID uuid.UUID, level, gameHour int, ended bool) error
	PublishObjectiveChanged(ctx context.Context, campaignID uuid.UUID, ch objective.Change) error
	PublishNarrativeEntry(ctx context.Context, campaignID uuid.UUID, entry narrative.Entry) error
}

// millisAdvancer is implemented by clocks whose wall clock the host drives
type millisAdvancer interface {
	AdvanceMillis(n int64)
}

// Result summarises the effect of one request on a campaign
type Result struct {
	CampaignID uuid.UUID          `json:"campaign_id"`
	Level      int                `json:"level"`
	GameHour   int                `json:"game_hour"`
	Ended      bool               `json:"ended"`
	Narrative  []narrative.Entry  `json:"narrative"`
	Changes    []objective.Change `json:"changes"`
}

// session is a resident campaign. Narrative callbacks only survive while it stays loaded.
type session struct {
	campaign *campaign.Campaign
	changes  []objective.Change
	savedAt  time.Time
	lastUsed time.Time
}

// ProcessorOptions configures a Processor. Nil collaborators are skipped.
type ProcessorOptions struct {
	Storage   storage.Storage
	Catalog   *catalog.Catalog
	Narrative NarrativeSink
	Journal   Journal
	Publisher Publisher
	Logger    *slog.Logger
	Now       func() time.Time
	// NewClock builds the clock of a campaign; defaults to a wall-clock backed clock at hour 0.
	NewClock func() campaign.Clock
}

// Processor applies queued requests to campaigns.
// All campaign work is serialized by an internal mutex.
type Processor struct {
	storage   storage.Storage
	catalog   *catalog.Catalog
	narrative NarrativeSink
	journal   Journal
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
	newClock  func() campaign.Clock

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
}

// NewProcessor creates a new processor
func NewProcessor(opts ProcessorOptions) *Processor {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewClock == nil {
		now := opts.Now
		opts.NewClock = func() campaign.Clock { return clock.NewRealtime(0, now) }
	}
	return &Processor{
		storage:   opts.Storage,
		catalog:   opts.Catalog,
		narrative: opts.Narrative,
		journal:   opts.Journal,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		now:       opts.Now,
		newClock:  opts.NewClock,
		sessions:  make(map[uuid.UUID]*session),
	}
}

// Process applies a request to its campaign and persists the result
func (p *Processor) Process(ctx context.Context, req *queue.Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return p.run(ctx, req.CampaignID, req.Type == queue.RequestTypeStart, func(c *campaign.Campaign) error {
		return apply(c, req)
	})
}

func apply(c *campaign.Campaign, req *queue.Request) error {
	if c.Ended() && req.Type != queue.RequestTypeReset {
		return fmt.Errorf("%w: %s", ErrCampaignEnded, req.CampaignID)
	}
	switch req.Type {
	case queue.RequestTypeStart:
		return c.Start(req.Level)
	case queue.RequestTypeAdvance:
		c.Advance(req.Hours)
		if req.Millis > 0 {
			if adv, ok := c.Clock().(millisAdvancer); ok {
				adv.AdvanceMillis(req.Millis)
			}
			c.Pulse()
		}
		return nil
	case queue.RequestTypeEvent:
		return c.Deliver(*req.Event)
	case queue.RequestTypeNarrativeComplete:
		return c.CompleteNarrative(req.NarrativeID, req.NarrativeKind)
	case queue.RequestTypeReset:
		c.Reset()
		return nil
	default:
		return fmt.Errorf("unknown request type: %s", req.Type)
	}
}

// Pulse delivers a time event to a resident campaign with due wall-clock timeouts.
// Returns nil, nil when nothing was due.
func (p *Processor) Pulse(ctx context.Context, id uuid.UUID) (*Result, error) {
	p.mu.Lock()
	s, ok := p.sessions[id]
	due := ok && !s.campaign.Ended() && s.campaign.HasDueTimeouts()
	p.mu.Unlock()
	if !due {
		return nil, nil
	}
	return p.run(ctx, id, false, func(c *campaign.Campaign) error {
		c.Pulse()
		return nil
	})
}

// Resume makes a stored campaign resident so its wall-clock timeouts pulse again
func (p *Processor) Resume(ctx context.Context, id uuid.UUID) (*Result, error) {
	return p.run(ctx, id, false, func(*campaign.Campaign) error { return nil })
}

// Due returns the resident campaigns with due wall-clock timeouts
func (p *Processor) Due() []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []uuid.UUID
	for id, s := range p.sessions {
		if !s.campaign.Ended() && s.campaign.HasDueTimeouts() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Resident reports whether a campaign is loaded in this process
func (p *Processor) Resident(id uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.sessions[id]
	return ok
}

// Evict drops a resident campaign
func (p *Processor) Evict(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, id)
}

// EvictIdle drops campaigns not touched within the idle TTL and returns how many went
func (p *Processor) EvictIdle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	cutoff := p.now().Add(-sessionIdleTTL)
	n := 0
	for id, s := range p.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(p.sessions, id)
			n++
		}
	}
	return n
}

func (p *Processor) run(ctx context.Context, id uuid.UUID, create bool, fn func(*campaign.Campaign) error) (res *Result, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, err := p.session(ctx, id, create)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			// Mission state may be half-applied; the stored snapshot stays authoritative.
			delete(p.sessions, id)
			p.logger.Error("Campaign panicked while processing", "campaign_id", id, "panic", r)
			res, err = nil, fmt.Errorf("campaign %s panicked: %v", id, r)
		}
	}()

	s.changes = s.changes[:0]
	if err := fn(s.campaign); err != nil {
		// The next request reloads the last saved snapshot
		delete(p.sessions, id)
		return nil, err
	}

	c := s.campaign
	snap := c.Save()
	if err := p.storage.SaveCampaign(ctx, id, snap); err != nil {
		delete(p.sessions, id)
		return nil, fmt.Errorf("failed to save campaign: %w", err)
	}
	s.savedAt = snap.SavedAt
	s.lastUsed = p.now()

	res = &Result{
		CampaignID: id,
		Level:      c.Level(),
		GameHour:   c.Clock().GameHour(),
		Ended:      c.Ended(),
		Narrative:  c.Narrative().Drain(),
		Changes:    append([]objective.Change(nil), s.changes...),
	}
	p.publish(ctx, res)
	return res, nil
}

// session returns the resident campaign, reloading it when the stored snapshot is newer
func (p *Processor) session(ctx context.Context, id uuid.UUID, create bool) (*session, error) {
	snap, err := p.storage.LoadCampaign(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}

	if create {
		if snap != nil {
			return nil, fmt.Errorf("%w: %s", ErrCampaignExists, id)
		}
		s := p.newSession(id)
		p.sessions[id] = s
		return s, nil
	}

	if snap == nil {
		delete(p.sessions, id)
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if s, ok := p.sessions[id]; ok && s.savedAt.Equal(snap.SavedAt) {
		return s, nil
	}

	s := p.newSession(id)
	if err := p.restore(s, snap); err != nil {
		return nil, err
	}
	p.sessions[id] = s
	p.logger.Debug("Campaign loaded from storage", "campaign_id", id, "game_hour", snap.GameHour)
	return s, nil
}

func (p *Processor) newSession(id uuid.UUID) *session {
	c := campaign.New(id, campaign.Options{
		Catalog: p.catalog,
		Clock:   p.newClock(),
		Logger:  p.logger,
		Now:     p.now,
	})
	s := &session{campaign: c, lastUsed: p.now()}
	c.Objectives().Observe(func(ch objective.Change) {
		s.changes = append(s.changes, ch)
	})
	return s
}

func (p *Processor) restore(s *session, snap *state.Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to restore campaign %s: %v", snap.ID, r)
		}
	}()
	if err := s.campaign.Restore(snap); err != nil {
		return fmt.Errorf("failed to restore campaign: %w", err)
	}
	s.savedAt = snap.SavedAt
	return nil
}

// publish forwards a result to the narrative queue, journal and subscribers.
// Failures are logged; the snapshot is already saved.
func (p *Processor) publish(ctx context.Context, res *Result) {
	id := res.CampaignID
	if p.narrative != nil && len(res.Narrative) > 0 {
		if err := p.narrative.Push(ctx, id, res.Narrative...); err != nil {
			p.logger.Error("Failed to queue narrative entries", "error", err, "campaign_id", id)
		}
	}
	for _, ch := range res.Changes {
		if p.journal != nil {
			if err := p.journal.Record(ctx, id, ch); err != nil {
				p.logger.Error("Failed to journal objective change", "error", err, "campaign_id", id, "objective", ch.ID)
			}
		}
		if p.publisher != nil {
			if err := p.publisher.PublishObjectiveChanged(ctx, id, ch); err != nil {
				p.logger.Error("Failed to publish objective change", "error", err, "campaign_id", id)
			}
		}
	}
	if p.publisher == nil {
		return
	}
	for _, e := range res.Narrative {
		if err := p.publisher.PublishNarrativeEntry(ctx, id, e); err != nil {
			p.logger.Error("Failed to publish narrative entry", "error", err, "campaign_id", id)
		}
	}
	if err := p.publisher.PublishCampaignUpdated(ctx, id, res.Level, res.GameHour, res.Ended); err != nil {
		p.logger.Error("Failed to publish campaign update", "error", err, "campaign_id", id)
	}
}
