package service

import (
	"context"
	"errors"
	"time"

	"stockroom/internal/domain"
	"stockroom/internal/inventory"
	"stockroom/internal/metrics"
	"stockroom/internal/notification"
	"stockroom/internal/repository"

	"go.uber.org/zap"
)

// ReorderService moves stock from received batches into product variants
type ReorderService interface {
	// ReorderFromBatch applies the transfer atomically across the batch and the
	// product, then records a stock_updated notification attributed to actor.
	// A low_stock alert follows when the size is still at or under its threshold.
	ReorderFromBatch(ctx context.Context, req inventory.TransferRequest, actor domain.Actor) (inventory.TransferResult, error)
}

type reorderService struct {
	transfers  repository.TransferStore
	notifier   Notifier
	refreshers []Refresher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewReorderService creates a new instance of ReorderService. refreshers are
// told to republish their live queries after every committed transfer.
func NewReorderService(
	transfers repository.TransferStore,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
	refreshers ...Refresher,
) ReorderService {
	return &reorderService{
		transfers:  transfers,
		notifier:   notifier,
		refreshers: refreshers,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *reorderService) ReorderFromBatch(ctx context.Context, req inventory.TransferRequest, actor domain.Actor) (inventory.TransferResult, error) {
	var result inventory.TransferResult

	err := s.transfers.ApplyTransfer(ctx, req.BatchID, req.Variant.ProductID, func(batch *domain.Batch, product *domain.Product) error {
		r, err := inventory.Transfer(batch, product, req, s.now().UTC())
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	fields := []zap.Field{
		zap.String("batch_id", req.BatchID),
		zap.String("product_id", req.Variant.ProductID),
		zap.String("variant_id", req.Variant.VariantID),
		zap.String("color", req.Variant.Color),
		zap.String("variant_type", req.Variant.VariantType),
		zap.String("size", req.Size),
		zap.Int("quantity", req.Quantity),
		zap.String("actor_id", actor.UserID()),
	}

	if err != nil {
		outcome := transferOutcome(err)
		s.observe(outcome, 0)
		if outcome == metrics.OutcomeError {
			s.logger.Error("Stock transfer failed", append(fields, zap.Error(err))...)
		} else {
			s.logger.Warn("Stock transfer rejected", append(fields, zap.Error(err))...)
		}
		return inventory.TransferResult{}, err
	}

	s.observe(metrics.OutcomeSuccess, result.Quantity)
	s.logger.Info("Stock transferred", append(fields,
		zap.Int("batch_remaining", result.BatchRemaining),
		zap.Int("product_on_hand", result.ProductOnHand),
		zap.String("batch_status", string(result.BatchStatus)),
	)...)

	// The transfer is committed at this point; notification failures are
	// reported but do not undo it.
	ev := notification.StockUpdated(result.ProductName, result.Color, result.VariantType, result.Size, result.Quantity)
	if _, err := s.notifier.Add(ctx, ev, actor); err != nil {
		s.logger.Error("Failed to record stock notification", append(fields, zap.Error(err))...)
	}
	if result.SizeStatus != inventory.InStock {
		label := stockLabel(result.ProductName, result.Color, result.VariantType, result.Size)
		if _, err := s.notifier.Add(ctx, notification.LowStock(label, result.ProductOnHand), actor); err != nil {
			s.logger.Error("Failed to record low stock alert", append(fields, zap.Error(err))...)
		}
	}

	for _, r := range s.refreshers {
		r.Refresh(ctx)
	}

	return result, nil
}

func (s *reorderService) observe(outcome string, units int) {
	if s.metrics != nil {
		s.metrics.ObserveTransfer(outcome, units)
	}
}

func transferOutcome(err error) string {
	var notFound *inventory.NotFoundError
	var invalid *inventory.ValidationError
	var insufficient *inventory.InsufficientStockError
	switch {
	case errors.As(err, &notFound):
		return metrics.OutcomeNotFound
	case errors.As(err, &invalid):
		return metrics.OutcomeInvalid
	case errors.As(err, &insufficient):
		return metrics.OutcomeInsufficient
	}
	return metrics.OutcomeError
}
