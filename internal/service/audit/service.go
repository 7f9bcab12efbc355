// Package audit records who did what to which packaging record. Writes are
// best effort: a failed append is logged and counted, never surfaced to the
// operation that produced it.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/mamadbah2/packtrack/internal/domain/models"
	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	primarySinkName = "rowstore"
)

var (
	appendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packtrack_audit_appends_total",
		Help: "Audit entry appends by sink and outcome.",
	}, []string{"sink", "outcome"})

	sweepDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packtrack_audit_sweep_deleted_total",
		Help: "Audit entries removed by the retention sweep.",
	})
)

// Sink receives a copy of every recorded entry. Implementations mirror the
// log somewhere secondary, such as a spreadsheet.
type Sink interface {
	Name() string
	Append(ctx context.Context, entry models.AuditLogEntry) error
}

// Service persists audit entries in the row store and fans each entry out to
// any configured mirror sinks.
type Service struct {
	store   rowstore.Store
	mirrors []Sink
	logger  *zap.Logger
	now     func() time.Time
}

// NewService builds the audit service. Mirrors are optional.
func NewService(store rowstore.Store, logger *zap.Logger, mirrors ...Sink) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		mirrors: mirrors,
		logger:  logger,
		now:     time.Now,
	}
}

// Record stores the entry and mirrors it. Missing ID and Timestamp fields are
// filled in. Failures are swallowed; an audit problem must never fail the
// operation being audited.
func (s *Service) Record(ctx context.Context, entry models.AuditLogEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now().UTC()
	}

	if _, err := s.store.CreateRow(ctx, rowstore.TableAuditLogs, entry.Row()); err != nil {
		appendsTotal.WithLabelValues(primarySinkName, "failure").Inc()
		s.logger.Warn("audit write failed",
			zap.String("action_type", entry.ActionType),
			zap.String("resource_id", entry.ResourceID),
			zap.Error(err))
	} else {
		appendsTotal.WithLabelValues(primarySinkName, "success").Inc()
	}

	for _, mirror := range s.mirrors {
		if err := mirror.Append(ctx, entry); err != nil {
			appendsTotal.WithLabelValues(mirror.Name(), "failure").Inc()
			s.logger.Warn("audit mirror failed",
				zap.String("sink", mirror.Name()),
				zap.String("action_type", entry.ActionType),
				zap.Error(err))
			continue
		}
		appendsTotal.WithLabelValues(mirror.Name(), "success").Inc()
	}
}

// ListEntries pages the audit log, newest first.
func (s *Service) ListEntries(ctx context.Context, limit, offset int) (*models.AuditLogListResult, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.store.ListRows(ctx, rowstore.TableAuditLogs, rowstore.Query{
		OrderBy:    "timestamp",
		Descending: true,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}

	entries := make([]models.AuditLogEntry, 0, len(res.Rows))
	for _, row := range res.Rows {
		entries = append(entries, models.AuditLogEntryFromRow(row))
	}
	return &models.AuditLogListResult{
		Success: true,
		Entries: entries,
		Total:   res.Total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}
