package packaging

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/packtrack/internal/domain/models"
	"github.com/mamadbah2/packtrack/internal/repository/rowstore"
	"github.com/mamadbah2/packtrack/pkg/batch"
)

// applyStockDeltas writes the aggregated quantity deltas to the catalog.
// sign is -1 for Create's deductions and +1 for Delete's restores. Quantities
// are re-read by id first so the arithmetic starts from fresh stock, then
// clamped at zero; stock never goes negative even when that under-applies a
// deduction. Only the initial product fetch fails the call; per-product write
// failures land in the outcome with the product name, barcode and waybill.
func (s *Service) applyStockDeltas(ctx context.Context, trace *TraceContext, deltas map[string]models.StockDelta, sign int) (*models.StockOutcome, error) {
	outcome := &models.StockOutcome{}
	if len(deltas) == 0 {
		return outcome, nil
	}

	ids := sortedKeys(deltas)
	current, err := s.fetchProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching products for stock update: %w", err)
	}

	results := batch.Run(ctx, ids, writeBatchSize, func(ctx context.Context, id string) (models.StockMutation, error) {
		delta := deltas[id]
		product, ok := current[id]
		if !ok {
			return models.StockMutation{}, fmt.Errorf("Stock update failed for %s on waybill %s: product not found", deltaLabel(delta, id), trace.Waybill)
		}

		quantity := product.StockQuantity + sign*delta.Quantity
		if quantity < 0 {
			quantity = 0
			stockClampedTotal.Inc()
		}

		if _, err := s.store.UpdateRow(ctx, rowstore.TableProducts, id, rowstore.Row{"stock_quantity": quantity}); err != nil {
			return models.StockMutation{}, fmt.Errorf("Stock update failed for %s on waybill %s: %v", product.Label(), trace.Waybill, err)
		}
		return models.StockMutation{
			ProductID: id,
			Barcode:   product.Barcode,
			Name:      product.Name,
			Before:    product.StockQuantity,
			After:     quantity,
		}, nil
	})

	for _, r := range results {
		if !r.Ok() {
			outcome.Errors = append(outcome.Errors, r.Err.Error())
			stockWritesTotal.WithLabelValues(outcomeFailure).Inc()
			continue
		}
		outcome.Updated++
		outcome.Mutations = append(outcome.Mutations, r.Value)
		stockWritesTotal.WithLabelValues(outcomeSuccess).Inc()
	}

	s.logger.Debug("stock deltas applied",
		zap.Int("sign", sign),
		zap.Int("products", len(ids)),
		zap.Int("updated", outcome.Updated),
		zap.Int("failed", len(outcome.Errors)))
	return outcome, nil
}

// deltaLabel names a product for an error message, falling back to the
// resolver's snapshot and then to the bare id when the re-fetch missed it.
func deltaLabel(delta models.StockDelta, id string) string {
	if delta.Product != nil {
		return delta.Product.Label()
	}
	return fmt.Sprintf("product %s", id)
}
