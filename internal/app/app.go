package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adda-Baaj/dcu-client/internal/config"
	"github.com/Adda-Baaj/dcu-client/internal/logger"
	"github.com/Adda-Baaj/dcu-client/internal/resolver"
	"github.com/Adda-Baaj/dcu-client/internal/storage"
	"github.com/Adda-Baaj/dcu-client/pkg/dcuniverse"
	"github.com/Adda-Baaj/dcu-client/pkg/httpclient"
	"github.com/Adda-Baaj/dcu-client/pkg/publishers"
)

// App is the client runtime. It owns the API client, the optional publisher
// fanout and the published-product store.
type App struct {
	cfg      *config.Config
	client   *dcuniverse.Client
	resolver *resolver.Service
	fanout   *publishers.Fanout
	store    storage.Store
	log      logger.Logger
}

// New builds the runtime from config. Publishing and its store are only set up
// when a publishers file is configured.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	httpOpts := httpclient.Options{
		Timeout:  cfg.HTTPTimeout,
		ProxyURL: cfg.ProxyURL,
	}
	if zl, ok := log.(*logger.ZapLogger); ok {
		httpOpts.Logger = zl.Sugar()
	}
	transport, err := httpclient.NewRestyClientWithOptions(httpOpts)
	if err != nil {
		return nil, fmt.Errorf("init http client: %w", err)
	}

	client := dcuniverse.NewClient(dcuniverse.Credentials{
		Email:     cfg.Email,
		Password:  cfg.Password,
		DeviceKey: cfg.DeviceKey,
	}, dcuniverse.Options{
		BaseURL:    cfg.BaseURL,
		HTTPClient: transport,
		Logger:     log,
	})
	log.InfoObj("api client initialized", "client_config", map[string]any{
		"client":          client.String(),
		"base_url":        cfg.BaseURL,
		"proxy":           cfg.ProxyURL != "",
		"timeout_seconds": int(cfg.HTTPTimeout.Seconds()),
	})

	a := &App{cfg: cfg, client: client, log: log}
	if err := a.initPublishing(ctx); err != nil {
		return nil, err
	}

	var (
		pub     resolver.EventPublisher
		deduper resolver.Deduper
	)
	if a.fanout != nil {
		pub = a.fanout
	}
	if a.store != nil {
		deduper = a.store
	}
	a.resolver = resolver.NewService(client, pub, log, deduper)
	return a, nil
}

func (a *App) initPublishing(ctx context.Context) error {
	if a.cfg.PublishersFile == "" {
		a.log.DebugObj("no publishers file configured; publishing disabled", "publishers_file", "")
		return nil
	}

	pubCfgs, err := publishers.LoadConfigs(a.cfg.PublishersFile)
	if err != nil {
		return fmt.Errorf("load publishers file: %w", err)
	}
	enabled := publishers.Enabled(pubCfgs)
	if len(enabled) == 0 {
		a.log.WarnObj("publishers file has no enabled publishers", "publishers_file", a.cfg.PublishersFile)
		return nil
	}

	pubClients, err := publishers.DefaultBuilders().BuildAll(ctx, enabled, a.log)
	if err != nil {
		return fmt.Errorf("build publishers: %w", err)
	}
	a.fanout = publishers.NewFanout(pubClients)

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	a.log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      a.fanout.Size(),
		"publishers": summaries,
	})

	store, err := storage.NewStore(storage.Config{
		Type:            a.cfg.StorageType,
		Path:            a.cfg.BBoltPath,
		ProductTTL:      a.cfg.StorageTTL,
		CleanupInterval: a.cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = a.fanout.Close()
		return fmt.Errorf("init storage: %w", err)
	}
	a.store = store
	a.log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     a.cfg.StorageType,
		"path":                     a.cfg.BBoltPath,
		"product_ttl_seconds":      int(a.cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(a.cfg.StorageCleanupInterval.Seconds()),
	})
	return nil
}

// Info logs in and resolves every product id.
func (a *App) Info(ctx context.Context, productIDs []string) ([]resolver.Result, error) {
	if err := a.login(ctx); err != nil {
		return nil, err
	}
	return a.resolver.Resolve(ctx, productIDs)
}

// License logs in and exchanges a base64 license request for a base64 license.
func (a *App) License(ctx context.Context, requestB64 string) (string, error) {
	if err := a.login(ctx); err != nil {
		return "", err
	}
	return a.client.AcquireLicense(ctx, requestB64)
}

func (a *App) login(ctx context.Context) error {
	if a.client.Authenticated() {
		return nil
	}
	if _, err := a.client.Login(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// Close releases publishers and the store.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var errs []error
	if a.fanout != nil {
		if err := a.fanout.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
