// Package scheduler runs the daily operator report.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler triggers the report function once a day at 21:00 UTC.
type Scheduler struct {
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	reportFunc func(ctx context.Context) error
	log        zerolog.Logger
}

func New(log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		ctx:    ctx,
		cancel: cancel,
		log:    log.With().Str("component", "scheduler").Logger(),
	}
}

// SetReportFunc sets the function invoked on schedule.
func (s *Scheduler) SetReportFunc(f func(ctx context.Context) error) {
	s.reportFunc = f
}

func (s *Scheduler) Start() error {
	if s.reportFunc == nil {
		s.log.Warn().Msg("report function not set, scheduler will not generate reports")
		return nil
	}

	_, err := s.cron.AddFunc("0 21 * * *", func() {
		s.log.Info().Msg("triggered daily report generation")
		if err := s.reportFunc(s.ctx); err != nil {
			s.log.Error().Err(err).Msg("daily report generation failed")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Msg("scheduler started, daily reports at 21:00 UTC")
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.log.Info().Msg("scheduler stopped")
}
