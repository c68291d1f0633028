package duelbuilder

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/Cheese-Duel/internal/adapter/duelpresenter"
	"github.com/park285/Cheese-Duel/internal/config"
	"github.com/park285/Cheese-Duel/internal/duel"
	"github.com/park285/Cheese-Duel/internal/msgcat"
	"github.com/park285/Cheese-Duel/internal/render"
	"github.com/park285/Cheese-Duel/internal/session"
)

type Deps struct {
	Manager   *duel.Manager
	Formatter *duelpresenter.Formatter
	Renderer  *render.Renderer
	Catalog   *msgcat.Catalog
	Store     duel.Store
	// Archive is nil when DATABASE_URL is not set.
	Archive *duel.PostgresArchive
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	return build(cfg, session.TickerScheduler{}, logger)
}

func build(cfg *config.AppConfig, scheduler session.Scheduler, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Store (Redis optional)
	var store duel.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rs, err := duel.NewRedisStore(cfg.RedisURL, cfg.TableTTL())
		if err != nil {
			return nil, fmt.Errorf("init redis store: %w", err)
		}
		store = rs
		logger.Info("duel_store", zap.String("kind", "redis"))
	} else {
		store = duel.NewMemoryStore(cfg.TableTTL())
		logger.Info("duel_store", zap.String("kind", "memory"))
	}

	// Archive (DB optional)
	var (
		archive *duel.PostgresArchive
		arch    duel.Archive
	)
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		a, err := duel.NewPostgresArchive(cfg.DatabaseURL)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		archive, arch = a, a
	}

	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		_ = store.Close()
		_ = archive.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}

	manager := duel.NewManager(store, arch, duel.Config{
		ClockLength: cfg.CheckClockUnits,
		ClockUnit:   cfg.ClockUnit,
		Scheduler:   scheduler,
	}, logger)

	formatter := duelpresenter.NewFormatter(catalog, prefixProvider{prefix: cfg.BotPrefix}, cfg.CheckClockUnits, logger)

	return &Deps{
		Manager:   manager,
		Formatter: formatter,
		Renderer:  render.New(),
		Catalog:   catalog,
		Store:     store,
		Archive:   archive,
	}, nil
}

// Close stops the clocks before releasing storage.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.Manager != nil {
		d.Manager.Close()
	}
	if d.Store != nil {
		_ = d.Store.Close()
	}
	_ = d.Archive.Close()
}

type prefixProvider struct{ prefix string }

func (p prefixProvider) Prefix() string { return p.prefix }
