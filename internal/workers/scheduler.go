package workers

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler triggers periodic extraction runs through the coordinator.
type Scheduler struct {
	coordinator *Coordinator
	ownerID     string
	schedule    string
	logger      *slog.Logger
	cron        *cron.Cron
}

// NewScheduler creates a scheduler for one mailbox owner. schedule is a
// standard cron expression; an empty string falls back to every 15 minutes.
func NewScheduler(coordinator *Coordinator, ownerID, schedule string, logger *slog.Logger) *Scheduler {
	if schedule == "" {
		schedule = "*/15 * * * *"
	}
	return &Scheduler{
		coordinator: coordinator,
		ownerID:     ownerID,
		schedule:    schedule,
		logger:      logger,
		cron:        cron.New(),
	}
}

// Start registers the cron entry and begins running. Scheduled runs always
// fetch only messages newer than the last stored one.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		summary, err := s.coordinator.RunExtraction(s.ownerID, true)
		if err != nil {
			s.logger.Error("Scheduled extraction failed", "owner_id", s.ownerID, "error", err)
			return
		}
		if summary.Busy {
			s.logger.Info("Scheduled extraction skipped, run in progress", "owner_id", s.ownerID)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Extraction scheduler started", "owner_id", s.ownerID, "schedule", s.schedule)
	return nil
}

// Stop halts the cron loop. Running jobs finish on their own.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Extraction scheduler stopped")
}
