package publishers

import (
	"time"

	"github.com/Adda-Baaj/dcu-client/pkg/dcuniverse"
)

// EventTypeProductResolved tags events emitted after a product was resolved.
const EventTypeProductResolved = "product.resolved"

// Event represents the payload published downstream.
type Event struct {
	Type       string                 `json:"type"`
	ProductID  string                 `json:"product_id"`
	Product    dcuniverse.ProductInfo `json:"product"`
	ResolvedAt time.Time              `json:"resolved_at"`
}

// NewEvent constructs a product.resolved Event for the given product.
func NewEvent(productID string, info dcuniverse.ProductInfo) Event {
	return Event{
		Type:       EventTypeProductResolved,
		ProductID:  productID,
		Product:    info,
		ResolvedAt: time.Now().UTC(),
	}
}
