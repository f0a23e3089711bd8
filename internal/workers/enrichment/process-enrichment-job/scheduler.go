// internal/workers/enrichment/process-enrichment-job/scheduler.go
package processenrichmentjob

import (
	"context"
	"fmt"
	"time"

	"catalog-enrichment/internal/common/logger"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler runs the retention purge on the configured cron schedule.
type Scheduler struct {
	handler  *Handler
	schedule string
	cron     *cron.Cron
	logger   logger.Logger
}

func NewScheduler(handler *Handler, schedule string, log logger.Logger) *Scheduler {
	return &Scheduler{
		handler:  handler,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cronParser)),
		logger:   log.WithFields(map[string]interface{}{"component": "job-retention"}),
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.purge); err != nil {
		return fmt.Errorf("register retention job %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.Info("retention scheduler started", map[string]interface{}{"schedule": s.schedule})
	return nil
}

// Stop waits for a running purge to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("retention scheduler stopped", nil)
}

func (s *Scheduler) purge() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("retention purge panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
		}
	}()

	if _, err := s.handler.PurgeExpired(context.Background(), time.Now()); err != nil {
		s.logger.Error("retention purge failed", map[string]interface{}{"error": err.Error()})
	}
}
