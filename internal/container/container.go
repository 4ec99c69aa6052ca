package container

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"stockyard/browser/internal/browse"
	"stockyard/browser/internal/config"
	"stockyard/browser/internal/domain"
	"stockyard/browser/internal/fetch"
	"stockyard/browser/internal/gate"
	"stockyard/browser/internal/session"
	"stockyard/browser/internal/tui"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config    *config.Config
	Client    fetch.Client
	Store     session.Store
	Engine    *browse.Engine
	SyncGuard *gate.Guard

	schema  domain.Schema
	redis   *redis.Client
	logFile *os.File
}

// New creates a new container with all dependencies initialized. interactive
// means the TUI will own the terminal, so logs go to the configured file
// instead of stderr.
func New(cfg *config.Config, interactive bool) (*Container, error) {
	container := &Container{
		Config: cfg,
		schema: domain.DefaultSchema(),
	}

	if err := container.setupLogging(interactive); err != nil {
		return nil, err
	}

	if err := container.schema.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate schema: %w", err)
	}

	// Initialize session store
	store, err := container.openStore()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	container.Store = store

	// Initialize EndpointSupplier
	supplier, err := fetch.NewEndpointSupplier(context.Background(), cfg.Service.Endpoints, cfg.Service.ProbePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize endpoint supplier: %w", err)
	}

	container.Client = fetch.NewClient(cfg.Service, container.schema, supplier)

	container.Engine = browse.NewEngine(container.Client, store, container.schema, browse.Options{
		ExclusiveLevels: cfg.ExclusiveLevels(),
		RestoreOnStart:  cfg.Browser.RestoreOnStart,
	})

	container.SyncGuard = gate.NewGuard("sync", cfg.Browser.SyncMinInterval)

	return container, nil
}

func (c *Container) setupLogging(interactive bool) error {
	level, err := log.ParseLevel(c.Config.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if !interactive {
		log.SetOutput(os.Stderr)
		return nil
	}

	file, err := os.OpenFile(c.Config.Log.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %q: %w", c.Config.Log.File, err)
	}
	c.logFile = file
	log.SetOutput(file)
	return nil
}

func (c *Container) openStore() (session.Store, error) {
	cfg := c.Config.Session

	switch cfg.Backend {
	case "badger":
		store, err := session.NewBadgerStore(session.BadgerConfig{
			Path:       cfg.Badger.Path,
			SyncWrites: cfg.Badger.SyncWrites,
			TTL:        cfg.TTL,
		})
		if err != nil {
			return nil, err
		}
		log.Infof("✅ Opened badger session store at %s", cfg.Badger.Path)
		return store, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})

		// Test connection
		_, err := rdb.Ping(context.Background()).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		log.Info("✅ Connected to Redis successfully")

		c.redis = rdb
		return session.NewRedisStore(rdb, cfg.Namespace, cfg.TTL), nil

	case "memory":
		return session.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

// Run boots the browser from the saved session and hands the terminal to the
// tree view until the user quits or ctx is cancelled.
func (c *Container) Run(ctx context.Context) error {
	if err := c.Engine.Boot(ctx); err != nil {
		return fmt.Errorf("failed to boot browser: %w", err)
	}

	model := tui.New(ctx, c.Engine, c.Client, c.schema, tui.Options{
		Guard:    c.SyncGuard,
		Endpoint: c.endpointLabel(),
		Backend:  c.Config.Session.Backend,
	})

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run browser: %w", err)
	}
	return nil
}

func (c *Container) endpointLabel() string {
	endpoints := c.Config.Service.Endpoints
	switch len(endpoints) {
	case 0:
		return ""
	case 1:
		return endpoints[0]
	default:
		return fmt.Sprintf("%s (+%d mirrors)", endpoints[0], len(endpoints)-1)
	}
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			log.Warnf("⚠️ Failed to close session store: %v", err)
		}
	}
	if c.redis != nil {
		c.redis.Close()
	}

	log.Info("Container shut down successfully")

	if c.logFile != nil {
		c.logFile.Close()
	}
	return nil
}
