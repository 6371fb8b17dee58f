package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/rslist/pkg/logger"
)

const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run seeds the server, fires the traffic plan and verifies the result. The
// returned error covers setup and transport failures; consistency problems
// are listed in the report.
func Run(ctx context.Context, config *Config) (*Report, error) {
	cfg := config.withDefaults()
	log := logger.Get()
	report := &Report{Stats: Stats{StartTime: time.Now()}}

	log.Info(ctx, "starting rslist load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("events", cfg.Events),
		logger.Int("votes", cfg.Votes),
		logger.Int("bids", cfg.Bids),
		logger.Int("ranks", cfg.Ranks),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed))

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.expect(ctx, http.StatusOK, http.MethodGet, "/healthz", nil, nil); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	users, events, err := seed(ctx, c, cfg)
	if err != nil {
		return nil, fmt.Errorf("seeding failed: %w", err)
	}
	report.Stats.UsersRegistered = len(users)
	report.Stats.EventsAdded = len(events)
	log.Info(ctx, "seeded", logger.Int("users", len(users)), logger.Int("events", len(events)))

	t := newTally()
	if err := fire(ctx, c, cfg, plan(cfg, users, events), t); err != nil {
		return nil, fmt.Errorf("traffic interrupted: %w", err)
	}
	report.Stats.VotesAccepted = int(t.votesAccepted.Load())
	report.Stats.VotesRejected = int(t.votesRejected.Load())
	report.Stats.BidsAccepted = int(t.bidsAccepted.Load())
	report.Stats.BidsRejected = int(t.bidsRejected.Load())
	report.Stats.Failed = int(t.failed.Load())

	if err := verify(ctx, c, cfg, events, t, report); err != nil {
		return nil, fmt.Errorf("verification failed: %w", err)
	}

	report.Stats.EndTime = time.Now()
	report.Stats.Duration = report.Stats.EndTime.Sub(report.Stats.StartTime)
	logReport(ctx, report)

	if cfg.Report != "" {
		if err := saveReport(cfg.Report, report); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}
	return report, nil
}

func logReport(ctx context.Context, r *Report) {
	log := logger.Get()
	s := r.Stats
	log.Info(ctx, "final statistics",
		logger.Int("votesAccepted", s.VotesAccepted),
		logger.Int("votesRejected", s.VotesRejected),
		logger.Int("bidsAccepted", s.BidsAccepted),
		logger.Int("bidsRejected", s.BidsRejected),
		logger.Int("failed", s.Failed),
		logger.Int("eventsEvicted", s.EventsEvicted),
		logger.Int("pinsChecked", s.PinsChecked),
		logger.String("slotResolution", r.Resolution),
		logger.String("duration", s.Duration.String()))
	for _, p := range r.Problems {
		log.Error(ctx, "consistency problem", logger.String("problem", p))
	}
}

func saveReport(path string, r *Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
