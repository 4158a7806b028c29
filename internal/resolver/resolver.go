package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Adda-Baaj/dcu-client/internal/logger"
	"github.com/Adda-Baaj/dcu-client/pkg/dcuniverse"
	"github.com/Adda-Baaj/dcu-client/pkg/publishers"
)

// Result pairs a product id with its resolved info.
type Result struct {
	ProductID string                 `json:"product_id"`
	Info      dcuniverse.ProductInfo `json:"info"`
}

// Service resolves products one after another and hands fresh ones to publishers.
type Service struct {
	source    ProductSource
	publisher EventPublisher
	deduper   Deduper
	log       logger.Logger
}

// NewService wires a resolver. publisher and deduper may be nil.
func NewService(source ProductSource, publisher EventPublisher, log logger.Logger, deduper Deduper) *Service {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Service{
		source:    source,
		publisher: publisher,
		deduper:   deduper,
		log:       log,
	}
}

// Resolve looks up every product id in order. Products that resolved are
// returned even when others failed; all failures are joined into the error.
func (s *Service) Resolve(ctx context.Context, productIDs []string) ([]Result, error) {
	if s == nil || s.source == nil {
		return nil, fmt.Errorf("resolver service is not initialized")
	}
	if len(productIDs) == 0 {
		return nil, fmt.Errorf("no product ids to resolve")
	}

	results := make([]Result, 0, len(productIDs))
	var errs []error

	for _, raw := range productIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}

		info, err := s.source.ProductInfo(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve product %s: %w", id, err))
			s.log.ErrorObj("product resolution failed", "product_error", map[string]any{
				"product_id": id,
				"error":      err.Error(),
			})
			continue
		}
		results = append(results, Result{ProductID: id, Info: info})
		s.log.InfoObj("product resolved", "product_result", map[string]any{
			"product_id": id,
			"name":       info.Name,
			"season":     info.Season,
			"episode":    info.Episode,
		})

		if err := s.publish(ctx, id, info); err != nil {
			errs = append(errs, err)
		}
	}

	return results, errors.Join(errs...)
}

// publish sends the product downstream unless it was already published.
func (s *Service) publish(ctx context.Context, id string, info dcuniverse.ProductInfo) error {
	if s.publisher == nil {
		return nil
	}
	if s.alreadyPublished(id) {
		s.log.DebugObj("product already published; skipping", "product_id", id)
		return nil
	}

	delivered, err := s.publisher.Publish(ctx, publishers.NewEvent(id, info))
	if err != nil {
		s.log.WarnObj("product publish incomplete", "publish_error", map[string]any{
			"product_id": id,
			"delivered":  delivered,
			"error":      err.Error(),
		})
	}
	if delivered > 0 && s.deduper != nil {
		if markErr := s.deduper.MarkPublished(id); markErr != nil {
			s.log.WarnObj("mark product published failed", "dedupe_error", map[string]any{
				"product_id": id,
				"error":      markErr.Error(),
			})
		}
	}
	if err != nil {
		return fmt.Errorf("publish product %s: %w", id, err)
	}
	return nil
}

// alreadyPublished counts lookup failures as unpublished.
func (s *Service) alreadyPublished(id string) bool {
	if s.deduper == nil {
		return false
	}
	seen, err := s.deduper.Published(id)
	if err != nil {
		s.log.WarnObj("dedupe lookup failed", "dedupe_error", map[string]any{
			"product_id": id,
			"error":      err.Error(),
		})
		return false
	}
	return seen
}
