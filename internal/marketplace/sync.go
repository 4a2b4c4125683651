package marketplace

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fornalha-pos/api/internal/service"
)

const fetchBatchSize = 20

// Fetcher pulls pending orders from the marketplace. Satisfied by *Client.
type Fetcher interface {
	FetchOrders(ctx context.Context, limit int) ([]InboundOrder, error)
}

// OrderCreator runs the checkout flow for imported orders.
// Satisfied by *service.OrderService.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// Importer polls the marketplace and creates local orders for anything new.
// The external reference makes the import idempotent: an order already seen
// is skipped, so overlapping polls and restarts are safe.
type Importer struct {
	fetcher  Fetcher
	creator  OrderCreator
	interval time.Duration
	log      *zap.Logger

	// OnImported, when set, receives each newly created order.
	OnImported func(result *service.CreateOrderResult)
}

// NewImporter creates an Importer. interval <= 0 defaults to 30s.
func NewImporter(fetcher Fetcher, creator OrderCreator, interval time.Duration, log *zap.Logger) *Importer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Importer{fetcher: fetcher, creator: creator, interval: interval, log: log}
}

// Run polls until ctx is cancelled. The first sync happens immediately.
func (i *Importer) Run(ctx context.Context) {
	if err := i.SyncOnce(ctx); err != nil {
		i.log.Warn("marketplace sync failed", zap.Error(err))
	}

	ticker := time.NewTicker(i.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := i.SyncOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				i.log.Warn("marketplace sync failed", zap.Error(err))
			}
		}
	}
}

// SyncOnce fetches one batch and imports what is new. A failure on one order
// does not stop the rest of the batch.
func (i *Importer) SyncOnce(ctx context.Context) error {
	orders, err := i.fetcher.FetchOrders(ctx, fetchBatchSize)
	if err != nil {
		return err
	}

	for _, inbound := range orders {
		result, err := i.importOrder(ctx, inbound)
		if err != nil {
			if errors.Is(err, service.ErrDuplicateReference) {
				continue
			}
			i.log.Warn("marketplace order rejected",
				zap.String("reference", inbound.Reference),
				zap.Error(err))
			continue
		}
		i.log.Info("marketplace order imported",
			zap.String("reference", inbound.Reference),
			zap.String("order_number", result.Order.OrderNumber))
		if i.OnImported != nil {
			i.OnImported(result)
		}
	}
	return nil
}

func (i *Importer) importOrder(ctx context.Context, inbound InboundOrder) (*service.CreateOrderResult, error) {
	items := make([]service.CreateOrderItemRequest, len(inbound.Items))
	for n, it := range inbound.Items {
		items[n] = service.CreateOrderItemRequest{
			ComboID:      it.ComboID,
			Quantity:     it.Quantity,
			Flavors:      it.Flavors,
			Observations: it.Observations,
		}
	}
	return i.creator.CreateOrder(ctx, service.CreateOrderRequest{
		OrderType:         inbound.OrderType,
		PaymentMethod:     inbound.PaymentMethod,
		CustomerName:      inbound.CustomerName,
		CustomerPhone:     inbound.CustomerPhone,
		DeliveryAddress:   inbound.DeliveryAddress,
		Notes:             inbound.Notes,
		ExternalReference: inbound.Reference,
		Items:             items,
	})
}
