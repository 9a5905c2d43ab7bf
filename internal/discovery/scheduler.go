package discovery

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs periodic registry jobs.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

func NewScheduler(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:  log,
	}
}

// Every registers fn under spec (standard cron or @every). Each run gets a
// context bounded by timeout.
func (s *Scheduler) Every(spec, name string, timeout time.Duration, fn func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.log.Warn().Err(err).Str("job", name).Msg("scheduled job failed")
		}
	})
	return err
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// ScheduleRefresh adds the registry refresh job for client.
func ScheduleRefresh(s *Scheduler, cfg *Config, client Client) error {
	return s.Every(cfg.RefreshSpec, "discovery_refresh", 10*time.Second, client.Refresh)
}
