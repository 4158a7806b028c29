package publishers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Builders maps publisher types to the builder that constructs them.
type Builders map[string]Builder

// DefaultBuilders covers every publisher type this package ships.
func DefaultBuilders() Builders {
	return Builders{
		TypeHTTP:      newHTTPPublisher,
		TypeSQS:       newSQSPublisher,
		TypeSNS:       newSNSPublisher,
		TypeGCPPubSub: newGCPPubSubPublisher,
	}
}

// Types lists the registered publisher types in sorted order.
func (b Builders) Types() []string {
	out := make([]string, 0, len(b))
	for typ := range b {
		out = append(out, typ)
	}
	slices.Sort(out)
	return out
}

// Build constructs the publisher declared by cfg.
func (b Builders) Build(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	typ := strings.ToLower(strings.TrimSpace(cfg.Type))
	if typ == "" {
		return nil, fmt.Errorf("publisher %q has no type configured", cfg.ID)
	}
	build, ok := b[typ]
	if !ok || build == nil {
		return nil, fmt.Errorf("publisher %q: unknown type %q (known: %s)", cfg.ID, cfg.Type, strings.Join(b.Types(), ", "))
	}
	return build(ctx, cfg, ensureLogger(log))
}

// BuildAll constructs a publisher per config. On failure every publisher
// built so far is closed and nothing is returned.
func (b Builders) BuildAll(ctx context.Context, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	pubs := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		pub, err := b.Build(ctx, cfg, log)
		if err == nil {
			pubs = append(pubs, pub)
			continue
		}
		errs := []error{fmt.Errorf("build publisher %q: %w", cfg.ID, err)}
		for _, p := range pubs {
			if cerr := p.Close(); cerr != nil {
				errs = append(errs, cerr)
			}
		}
		return nil, errors.Join(errs...)
	}
	return pubs, nil
}
