package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const prefetchTimeout = 30 * time.Second

// Scheduler runs the periodic housekeeping job: drop unused cache entries and expired
// pending uploads, then warm the current month and the materials list when the API
// client has a service identity of its own.
type Scheduler struct {
	deps *Dependencies
	cron *cron.Cron
}

func NewScheduler(deps *Dependencies, spec string, loc *time.Location) (*Scheduler, error) {
	s := &Scheduler{deps: deps}
	if spec == "" {
		log.Info("Prefetch schedule is empty, scheduler disabled")
		return s, nil
	}

	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), prefetchTimeout)
		defer cancel()
		s.RunOnce(ctx)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	if s.cron != nil {
		s.cron.Start()
	}
}

// Stop stops the scheduler and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Warn("Scheduler job did not finish before shutdown")
	}
}

// RunOnce performs one housekeeping pass.
func (s *Scheduler) RunOnce(ctx context.Context) {
	swept := s.deps.Cache.Sweep()
	expired := s.deps.PendingUploads.Sweep()
	log.Debugf("Scheduler swept %d cache entries and %d pending uploads", swept, expired)

	if !s.deps.API.HasServiceIdentity() {
		return
	}
	today := s.deps.LectureService.Today()
	if _, err := s.deps.LectureService.Month(ctx, today.Year, today.Month); err != nil {
		log.Warnf("Failed to prefetch lectures of %04d-%02d: %v", today.Year, today.Month, err)
	}
	if _, err := s.deps.MaterialService.List(ctx); err != nil {
		log.Warnf("Failed to prefetch materials: %v", err)
	}
}
