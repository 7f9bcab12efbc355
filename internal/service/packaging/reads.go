package packaging

import (
	"context"
	"fmt"
	"sort"

	"github.com/mamadbah2/packtrack/internal/domain/models"
	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// clampPage normalizes caller-supplied paging values.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ListRecords pages packaging records, newest packaging date first.
func (s *Service) ListRecords(ctx context.Context, limit, offset int) (*models.RecordListResult, error) {
	limit, offset = clampPage(limit, offset)

	res, err := s.store.ListRows(ctx, rowstore.TablePackagingRecords, rowstore.Query{
		OrderBy:    "packaging_date",
		Descending: true,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing packaging records: %w", err)
	}

	records := make([]models.PackagingRecord, 0, len(res.Rows))
	for _, row := range res.Rows {
		records = append(records, models.PackagingRecordFromRow(row))
	}
	return &models.RecordListResult{
		Success: true,
		Records: records,
		Total:   res.Total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}

// GetRecord returns one record with its items, oldest scan first. A missing
// record surfaces as rowstore.ErrNotFound.
func (s *Service) GetRecord(ctx context.Context, recordID string) (*models.RecordDetailResult, error) {
	row, err := s.store.GetRow(ctx, rowstore.TablePackagingRecords, recordID)
	if err != nil {
		return nil, fmt.Errorf("fetching packaging record %s: %w", recordID, err)
	}

	items, err := s.listItemsForRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].ScannedAt.Equal(items[j].ScannedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].ScannedAt.Before(items[j].ScannedAt)
	})
	return &models.RecordDetailResult{
		Success: true,
		Record:  models.PackagingRecordFromRow(row),
		Items:   items,
	}, nil
}
