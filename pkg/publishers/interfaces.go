package publishers

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher delivers resolved-product events to one downstream sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// sink holds the identity and logging shared by every Publisher implementation.
type sink struct {
	id  string
	typ string
	log Logger
}

func newSink(cfg PublisherConfig, typ string, log Logger) sink {
	return sink{id: cfg.ID, typ: typ, log: ensureLogger(log)}
}

func (s sink) ID() string   { return s.id }
func (s sink) Type() string { return s.typ }

func (s sink) failed(evt Event, err error) {
	s.log.ErrorObj(s.typ+" publisher send failed", "publisher_error", map[string]any{
		"publisher_id": s.id,
		"product_id":   evt.ProductID,
		"error":        err.Error(),
	})
}

func (s sink) delivered(evt Event, ref string) {
	s.log.DebugObj(s.typ+" publisher delivered event", "publisher_delivery", map[string]any{
		"publisher_id": s.id,
		"product_id":   evt.ProductID,
		"ref":          ref,
	})
}

// encodeEvent renders the JSON body and the routing attributes sinks attach to it.
func encodeEvent(evt Event) ([]byte, map[string]string, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal event: %w", err)
	}
	attrs := map[string]string{
		"event_type": evt.Type,
		"product_id": evt.ProductID,
	}
	if evt.Product.Name != "" {
		attrs["series"] = evt.Product.Name
	}
	if season := evt.Product.Season.String(); season != "" {
		attrs["season"] = season
	}
	return payload, attrs, nil
}
