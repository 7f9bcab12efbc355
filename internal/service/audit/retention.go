package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/mamadbah2/packtrack/internal/domain/models"
	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
	"github.com/mamadbah2/packtrack/pkg/batch"
)

const (
	sweepPageSize  = 200
	sweepBatchSize = 20
)

// Sweep deletes audit entries older than cutoff and reports how many were
// removed. The store has no range predicate, so entries are paged oldest
// first and filtered here; the first entry at or past the cutoff ends the
// sweep.
func (s *Service) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	deleted := 0
	for {
		res, err := s.store.ListRows(ctx, rowstore.TableAuditLogs, rowstore.Query{
			OrderBy: "timestamp",
			Limit:   sweepPageSize,
		})
		if err != nil {
			return deleted, fmt.Errorf("listing audit entries for sweep: %w", err)
		}

		expired := make([]string, 0, len(res.Rows))
		for _, row := range res.Rows {
			entry := models.AuditLogEntryFromRow(row)
			if !entry.Timestamp.Before(cutoff) {
				break
			}
			expired = append(expired, entry.ID)
		}
		if len(expired) == 0 {
			return deleted, nil
		}

		results := batch.Run(ctx, expired, sweepBatchSize, func(ctx context.Context, id string) (struct{}, error) {
			return struct{}{}, s.store.DeleteRow(ctx, rowstore.TableAuditLogs, id)
		})
		var firstErr error
		removed := 0
		for _, r := range results {
			if !r.Ok() {
				if firstErr == nil {
					firstErr = r.Err
				}
				continue
			}
			removed++
		}
		deleted += removed
		sweepDeletedTotal.Add(float64(removed))

		// A page of undeletable rows would be re-listed forever; bail instead.
		if firstErr != nil {
			return deleted, fmt.Errorf("deleting expired audit entries: %w", firstErr)
		}
		if len(expired) < len(res.Rows) || len(res.Rows) < sweepPageSize {
			return deleted, nil
		}
	}
}
