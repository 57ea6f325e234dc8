// Package events delivers POS sale notifications: to NATS for other services
// and to an in-process feed the dashboard can long-poll.
package events

import (
	"context"
	"errors"

	"github.com/melibackend/retail-dashboard/internal/models"
)

// Publisher announces completed sales
type Publisher interface {
	PublishSale(ctx context.Context, event models.SaleCompletedEvent) error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) PublishSale(context.Context, models.SaleCompletedEvent) error { return nil }

// Multi publishes to every publisher and joins their errors
type Multi []Publisher

func (m Multi) PublishSale(ctx context.Context, event models.SaleCompletedEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishSale(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
