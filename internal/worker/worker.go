package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/internal/logger"
	"github.com/jwebster45206/campaign-engine/internal/services/events"
	"github.com/jwebster45206/campaign-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/campaign-engine/pkg/queue"
	"github.com/redis/go-redis/v9"
)

const (
	workerTimeout = 5 * time.Second
	lockTTL       = 30 * time.Second
	evictEvery    = time.Minute
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Worker processes requests from the campaign request queue
type Worker struct {
	id            string
	queue         *queue.RequestQueue
	processor     *Processor
	broadcaster   *events.Broadcaster
	redisClient   *redis.Client
	pulseInterval time.Duration
	log           *slog.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// New creates a new worker instance
func New(requests *queue.RequestQueue, processor *Processor, redisClient *redis.Client, log *slog.Logger, workerID string, pulseInterval time.Duration) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if pulseInterval <= 0 {
		pulseInterval = 250 * time.Millisecond
	}

	return &Worker{
		id:            workerID,
		queue:         requests,
		processor:     processor,
		broadcaster:   events.NewBroadcaster(redisClient, log),
		redisClient:   redisClient,
		pulseInterval: pulseInterval,
		log:           log,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// ID returns the worker id used as lock owner
func (w *Worker) ID() string { return w.id }

// Start begins processing requests from the queue. It blocks until Stop.
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id, "pulse_interval", w.pulseInterval)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pulseLoop()
	}()
	defer w.wg.Wait()

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err, "worker_id", w.id)
				// Continue processing even on error
				select {
				case <-w.ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// pulseLoop lets wall-clock timeouts of resident campaigns fire between requests
func (w *Worker) pulseLoop() {
	ticker := time.NewTicker(w.pulseInterval)
	defer ticker.Stop()
	lastEvict := time.Now()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.pulse()
			if time.Since(lastEvict) >= evictEvery {
				if n := w.processor.EvictIdle(); n > 0 {
					w.log.Debug("Evicted idle campaigns", "worker_id", w.id, "count", n)
				}
				lastEvict = time.Now()
			}
		}
	}
}

// pulse delivers a time event to every resident campaign with due timeouts
func (w *Worker) pulse() {
	for _, id := range w.processor.Due() {
		locked, err := w.acquireCampaignLock(id)
		if err != nil {
			w.log.Error("Failed to acquire campaign lock for pulse", "error", err, "campaign_id", id.String())
			continue
		}
		if !locked {
			continue
		}
		if _, err := w.processor.Pulse(w.ctx, id); err != nil {
			logger.WithCampaign(w.log, id).Error("Failed to pulse campaign", "error", err)
		}
		w.releaseCampaignLock(id)
	}
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	// Block waiting for next request (timeout after 5 seconds to check for shutdown)
	ctx, cancel := context.WithTimeout(w.ctx, workerTimeout+time.Second)
	defer cancel()

	req, err := w.queue.BlockingDequeue(ctx, workerTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue request: %w", err)
	}

	if req == nil {
		// Queue is empty or timeout occurred - this is normal
		return nil
	}

	w.log.Info("Received request from queue",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"type", req.Type,
		"campaign_id", req.CampaignID.String(),
	)

	// Try to acquire campaign lock
	locked, err := w.acquireCampaignLock(req.CampaignID)
	if err != nil {
		return fmt.Errorf("failed to acquire campaign lock: %w", err)
	}
	if !locked {
		// Another worker is processing this campaign
		// Re-queue at the end and try next request
		w.log.Info("Campaign already locked, re-queueing request",
			"worker_id", w.id,
			"request_id", req.RequestID,
			"campaign_id", req.CampaignID.String(),
		)
		if err := w.queue.Enqueue(w.ctx, req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		return nil
	}

	// Process the request, blocking the worker until done
	defer w.releaseCampaignLock(req.CampaignID)
	return w.processRequest(req)
}

func lockKey(campaignID uuid.UUID) string {
	return fmt.Sprintf("campaign-lock:%s", campaignID.String())
}

// acquireCampaignLock attempts to acquire a lock for a campaign
// Returns true if lock was acquired, false if already locked
func (w *Worker) acquireCampaignLock(campaignID uuid.UUID) (bool, error) {
	return w.redisClient.SetNX(w.ctx, lockKey(campaignID), w.id, lockTTL).Result()
}

// releaseCampaignLock releases the lock for a campaign if this worker owns it
func (w *Worker) releaseCampaignLock(campaignID uuid.UUID) {
	if err := releaseScript.Run(context.Background(), w.redisClient, []string{lockKey(campaignID)}, w.id).Err(); err != nil {
		w.log.Error("Failed to release campaign lock", "error", err, "campaign_id", campaignID.String())
	}
}

// processRequest processes a single request using the Processor
func (w *Worker) processRequest(req *queuePkg.Request) error {
	log := logger.WithRequest(w.log, req).With("worker_id", w.id)
	log.Info("Processing request")
	start := time.Now()

	if err := w.broadcaster.PublishRequestProcessing(w.ctx, req.CampaignID, req.RequestID, string(req.Type)); err != nil {
		log.Error("Failed to publish processing event", "error", err)
		// Don't fail the request just because event publishing failed
	}

	res, err := w.processor.Process(w.ctx, req)
	if err != nil {
		log.Error("Failed to process request", "error", err)
		if pubErr := w.broadcaster.PublishRequestFailed(w.ctx, req.CampaignID, req.RequestID, err.Error()); pubErr != nil {
			log.Error("Failed to publish failure event", "error", pubErr)
		}
		return fmt.Errorf("failed to process %s request: %w", req.Type, err)
	}

	log.Info("Request processed successfully",
		"level", res.Level,
		"game_hour", res.GameHour,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	result := map[string]interface{}{
		"level":       res.Level,
		"game_hour":   res.GameHour,
		"ended":       res.Ended,
		"narrative":   len(res.Narrative),
		"changes":     len(res.Changes),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err := w.broadcaster.PublishRequestCompleted(w.ctx, req.CampaignID, req.RequestID, result); err != nil {
		log.Error("Failed to publish completion event", "error", err)
	}
	return nil
}
