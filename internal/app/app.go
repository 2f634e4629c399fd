// Package app wires the model, classifier, game session, round history and
// HTTP server together.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/ayusman/suit/internal/capture"
	"github.com/ayusman/suit/internal/classifier"
	"github.com/ayusman/suit/internal/config"
	"github.com/ayusman/suit/internal/game"
	"github.com/ayusman/suit/internal/metric"
	"github.com/ayusman/suit/internal/model"
	"github.com/ayusman/suit/internal/server"
	"github.com/ayusman/suit/internal/store"
)

// ServiceName tags every metric.
const ServiceName = "suit"

// Config holds configuration options for the application.
type Config struct {
	ModelPath  string
	LabelsPath string
	ORTLibrary string

	// DBPath is the round history database. Empty disables history.
	DBPath string

	Threshold  float64
	Thumbnails bool
	// CacheSize is the number of results kept by the result cache. Zero disables it.
	CacheSize int
	// Seed seeds the heuristic's random fallback. Zero seeds from the runtime.
	Seed uint64

	// StatsdAddr is the DogStatsD address. Empty disables metrics.
	StatsdAddr string

	// Strategies replaces the ONNX loader strategies.
	Strategies []model.Strategy

	Clock  quartz.Clock
	Logger zerolog.Logger
}

// FromConfig maps environment settings to an application Config.
func FromConfig(c config.Config, logger zerolog.Logger) Config {
	return Config{
		ModelPath:  c.ModelPath,
		LabelsPath: c.LabelsPath,
		ORTLibrary: c.ORTLibrary,
		DBPath:     c.DBPath(),
		Threshold:  c.Threshold,
		Thumbnails: c.Thumbnails,
		CacheSize:  c.CacheSize,
		Seed:       c.Seed,
		StatsdAddr: c.StatsdAddr,
		Logger:     logger,
	}
}

// App is the composition root of the game.
type App struct {
	config     Config
	logger     zerolog.Logger
	metrics    metric.Client
	handle     *model.Handle
	classifier *classifier.Classifier
	cached     *classifier.Cached
	session    *game.Session
	store      *store.Store
	hub        *server.Hub
}

// New builds the application. The model is loaded lazily on first use; call
// Preload to load it up front.
func New(cfg Config) (*App, error) {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	logger := cfg.Logger

	metrics, err := metric.New(cfg.StatsdAddr, ServiceName)
	if err != nil {
		return nil, fmt.Errorf("create metrics client: %w", err)
	}

	a := &App{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		hub:     server.NewHub(logger.With().Str("component", "events").Logger()),
	}

	strategies := cfg.Strategies
	if strategies == nil {
		strategies = model.DefaultStrategies(&model.ONNXBackend{LibraryPath: cfg.ORTLibrary})
	}
	a.handle = model.NewHandle(model.HandleConfig{
		ModelPath:  cfg.ModelPath,
		LabelsPath: cfg.LabelsPath,
		Loader:     model.NewLoader(logger.With().Str("component", "loader").Logger(), strategies...),
		Logger:     logger,
	})

	a.classifier = classifier.NewDefault(a.handle, classifier.NewHeuristic(cfg.Seed),
		classifier.WithLogger(logger.With().Str("component", "classifier").Logger()),
		classifier.WithMetrics(metrics),
	)

	var classify classifier.Classify = a.classifier
	if cfg.CacheSize > 0 {
		a.cached, err = classifier.NewCached(a.classifier, int64(cfg.CacheSize), metrics)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create result cache: %w", err)
		}
		classify = a.cached
	}

	if cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			a.Close()
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		a.store, err = store.New(cfg.DBPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	sessionCfg := game.DefaultConfig()
	if cfg.Threshold > 0 {
		sessionCfg.Threshold = cfg.Threshold
	}
	sessionCfg.Thumbnails = cfg.Thumbnails && a.store != nil
	sessionCfg.Clock = cfg.Clock
	sessionCfg.Logger = logger.With().Str("component", "game").Logger()
	sessionCfg.Metrics = metrics

	a.session = game.NewSession(classify, sessionCfg)
	if a.store != nil {
		a.session.Subscribe(a.saveRound)
	}
	a.session.Subscribe(a.hub.Publish)

	return a, nil
}

// Preload loads the model now instead of on the first photo. A model that
// cannot be loaded is not an error: classification falls back to the heuristic.
func (a *App) Preload() model.Info {
	if _, err := a.handle.Ensure(); err != nil {
		a.logger.Warn().Err(err).Msg("model unavailable, using heuristic classifier")
	}
	return a.handle.Info()
}

// Classifier returns the classifier used by the session, including the cache.
func (a *App) Classifier() classifier.Classify {
	if a.cached != nil {
		return a.cached
	}
	return a.classifier
}

// Handle returns the model handle.
func (a *App) Handle() *model.Handle {
	return a.handle
}

// Session returns the game session.
func (a *App) Session() *game.Session {
	return a.session
}

// Store returns the round history, or nil when disabled.
func (a *App) Store() *store.Store {
	return a.store
}

// Hub returns the websocket event hub.
func (a *App) Hub() *server.Hub {
	return a.hub
}

// Server builds the HTTP server. camera may be nil.
func (a *App) Server(staticDir string, camera capture.Camera) *server.Server {
	return server.New(server.Config{
		StaticDir:  staticDir,
		Store:      a.store,
		Session:    a.session,
		Classifier: a.Classifier(),
		Model:      a.handle,
		Hub:        a.hub,
		Camera:     camera,
		Clock:      a.config.Clock,
		Logger:     a.logger.With().Str("component", "http").Logger(),
		Metrics:    a.metrics,
	})
}

// saveRound persists a resolved round. It is a game.Observer.
func (a *App) saveRound(rd game.Round) {
	err := a.store.Sessions().Ensure(&store.Session{
		ID:        rd.SessionID,
		StartedAt: a.session.Snapshot().StartedAt,
	})
	if err == nil {
		err = a.store.Rounds().Create(toStoreRound(rd))
	}
	if err != nil {
		a.logger.Error().Err(err).Str("round", rd.ID).Msg("failed to save round")
	}
}

func toStoreRound(rd game.Round) *store.Round {
	return &store.Round{
		ID:        rd.ID,
		SessionID: rd.SessionID,
		Number:    rd.Number,
		Player1: store.Move{
			Label:      rd.Player1.Label,
			Confidence: rd.Player1.Confidence,
			Source:     rd.Player1.Source,
		},
		Player2: store.Move{
			Label:      rd.Player2.Label,
			Confidence: rd.Player2.Confidence,
			Source:     rd.Player2.Source,
		},
		Outcome:      rd.Verdict.Outcome,
		Reason:       rd.Verdict.Reason,
		CreatedAt:    rd.PlayedAt,
		Player1Thumb: rd.Player1Thumb,
		Player2Thumb: rd.Player2Thumb,
	}
}

// Close releases the model, cache, store and metrics client.
func (a *App) Close() error {
	var errs []error
	if a.hub != nil {
		a.hub.Close()
	}
	if a.handle != nil {
		errs = append(errs, a.handle.Close())
	}
	if a.cached != nil {
		a.cached.Close()
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.metrics != nil {
		errs = append(errs, a.metrics.Close())
	}
	return errors.Join(errs...)
}
