package resolver

import (
	"context"

	"github.com/Adda-Baaj/dcu-client/pkg/dcuniverse"
	"github.com/Adda-Baaj/dcu-client/pkg/publishers"
)

// ProductSource resolves a product id into playable product info.
type ProductSource interface {
	ProductInfo(ctx context.Context, productID string) (dcuniverse.ProductInfo, error)
}

// EventPublisher publishes resolved products downstream and reports how many sinks accepted them.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper remembers which products were already published.
type Deduper interface {
	Published(productID string) (bool, error)
	MarkPublished(productID string) error
}
