package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/packtrack/internal/config"
	"github.com/mamadbah2/packtrack/internal/service/audit"
)

const sweepTimeout = 5 * time.Minute

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	auditSvc *audit.Service
	cfg      config.Config
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance running in the configured
// audit timezone.
func NewScheduler(cfg config.Config, auditSvc *audit.Service, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Audit.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading scheduler timezone %q: %w", cfg.Audit.Timezone, err)
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		auditSvc: auditSvc,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler",
		zap.String("audit_sweep_cron", s.cfg.Audit.SweepCron),
		zap.Int("audit_retention_days", s.cfg.Audit.RetentionDays))

	if _, err := s.cron.AddFunc(s.cfg.Audit.SweepCron, s.sweepAuditLog); err != nil {
		s.logger.Error("failed to schedule audit retention sweep", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) sweepAuditLog() {
	s.logger.Info("running audit retention sweep")
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.Audit.RetentionDays)
	deleted, err := s.auditSvc.Sweep(ctx, cutoff)
	if err != nil {
		s.logger.Error("audit retention sweep failed", zap.Int("deleted", deleted), zap.Error(err))
		return
	}

	s.logger.Info("audit retention sweep finished", zap.Int("deleted", deleted))
}
