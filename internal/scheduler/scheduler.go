package scheduler

import (
	"context"
	"time"

	"github.com/Abdurahmanit/GroupProject/rental-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/rental-service/internal/service"
	"github.com/robfig/cron/v3"
)

const sweepTimeout = 5 * time.Minute

// Scheduler drives the periodic reconciliation sweep.
type Scheduler struct {
	cron       *cron.Cron
	reconciler *service.Reconciler
	log        logger.Logger
}

func New(reconciler *service.Reconciler, schedule string, log logger.Logger) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
	)

	s := &Scheduler{
		cron:       c,
		reconciler: reconciler,
		log:        log,
	}

	if _, err := c.AddFunc(schedule, s.runSweep); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if err := s.reconciler.RunOnce(ctx); err != nil {
		s.log.Errorf("Scheduled reconciliation sweep failed: %v", err)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Reconciliation scheduler started")
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Reconciliation scheduler stopped")
}
