package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"cellscope/internal/config"
)

// Scheduler enqueues the nightly maintenance pass: the worker purges
// upload records past the retention window.
type Scheduler struct {
	cron  *cron.Cron
	queue *redis.Client
	cfg   *config.AppConfig
	log   zerolog.Logger
}

func NewScheduler(queue *redis.Client, cfg *config.AppConfig, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:  c,
		queue: queue,
		cfg:   cfg,
		log:   log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	if _, err := s.cron.AddFunc("0 0 0 * * *", s.enqueuePurge); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits up to five seconds for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Scheduler) enqueuePurge() {
	err := s.queue.XAdd(context.Background(), &redis.XAddArgs{
		Stream: s.cfg.Redis.Stream,
		Values: map[string]any{
			"type": "purge",
		},
	}).Err()
	if err != nil {
		s.log.Error().Err(err).Msg("enqueue purge failed")
	}
}
