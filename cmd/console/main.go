package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/jwebster45206/campaign-engine/internal/logger"
	"github.com/jwebster45206/campaign-engine/internal/storage"
	"github.com/jwebster45206/campaign-engine/internal/worker"
	"github.com/jwebster45206/campaign-engine/pkg/catalog"
)

type ConsoleConfig struct {
	DataDir     string
	CatalogPath string
	CampaignID  string
}

func main() {
	cfg := &ConsoleConfig{
		DataDir:     getEnv("DATA_DIR", "data"),
		CatalogPath: os.Getenv("CATALOG_PATH"),
		CampaignID:  os.Getenv("CAMPAIGN_ID"),
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load catalog: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create data dir: %v\n", err)
		os.Exit(1)
	}
	// The TUI owns the terminal, so logs go to a file
	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "console.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	log := logger.SetupWriter(logFile, "development", slog.LevelInfo)

	store, err := storage.NewFileStorage(cfg.DataDir, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open campaign storage: %v\n", err)
		os.Exit(1)
	}

	processor := worker.NewProcessor(worker.ProcessorOptions{
		Storage: store,
		Catalog: cat,
		Logger:  log,
	})

	ui := NewConsoleUI(cfg, processor, store, cat)
	if cfg.CampaignID != "" {
		id, err := uuid.Parse(cfg.CampaignID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid CAMPAIGN_ID: %v\n", err)
			os.Exit(1)
		}
		res, err := processor.Resume(context.Background(), id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to resume campaign: %v\n", err)
			os.Exit(1)
		}
		ui = ui.resumed(id, res)
	}

	p := tea.NewProgram(ui,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
