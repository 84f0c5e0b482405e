package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/internal/services/queue"
	"github.com/jwebster45206/campaign-engine/pkg/mission"
	queuePkg "github.com/jwebster45206/campaign-engine/pkg/queue"
)

func main() {
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		addr = "localhost:6379"
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client, err := queue.NewClient(addr, logger)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer client.Close()

	fmt.Println("Connected to Redis successfully!")

	ctx := context.Background()
	requests := queue.NewRequestQueue(client)
	campaignID := uuid.MustParse("00000000-0000-0000-0000-000000000001")

	// start, a day of game time, then the fleet reaching Achilles
	batch := []*queuePkg.Request{
		{Type: queuePkg.RequestTypeStart, Level: 1},
		{Type: queuePkg.RequestTypeAdvance, Hours: 24},
		{Type: queuePkg.RequestTypeEvent, Event: &mission.Event{Kind: mission.KindFleetAtPlanet, Fleet: 1, Planet: "Achilles"}},
	}
	for _, req := range batch {
		req.RequestID = uuid.New().String()
		req.CampaignID = campaignID
		req.EnqueuedAt = time.Now()
		if err := req.Validate(); err != nil {
			log.Fatalf("Invalid %s request: %v", req.Type, err)
		}
		if err := requests.Enqueue(ctx, req); err != nil {
			log.Fatal("Failed to enqueue request:", err)
		}
		fmt.Printf("Enqueued %s request: %s\n", req.Type, req.RequestID)
	}

	depth, err := requests.Depth(ctx)
	if err != nil {
		log.Fatal("Failed to get queue depth:", err)
	}

	fmt.Printf("\nQueue depth: %d requests\n", depth)
	fmt.Println("\nNow start the worker to see it process these requests!")
	fmt.Println("   Run: go run cmd/worker/main.go")
}
