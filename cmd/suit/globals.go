package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ayusman/suit/internal/app"
	"github.com/ayusman/suit/internal/logging"
)

// Globals are the flags shared by every command.
type Globals struct {
	ModelPath  string  `name:"model" default:"${model_path}" help:"ONNX model file"`
	LabelsPath string  `name:"labels" default:"${labels_path}" help:"Label file, one gesture per line"`
	ORTLibrary string  `name:"ort-library" default:"${ort_library}" help:"Path to the onnxruntime shared library"`
	DataDir    string  `default:"${data_dir}" help:"Directory holding the round history"`
	Threshold  float64 `default:"${threshold}" help:"Confidence at or below which a photo is not recognized"`
	Seed       uint64  `default:"${seed}" help:"Seed for the heuristic's random fallback (0 = random)"`
	CacheSize  int     `default:"${cache_size}" help:"Classification results to cache (0 = off)"`
	StatsdAddr string  `name:"statsd" default:"${statsd_addr}" help:"DogStatsD address (empty = off)"`
	LogLevel   string  `default:"${log_level}" help:"Log level"`
	LogJSON    bool    `name:"log-json" default:"${log_json}" help:"Log as JSON"`
	NoHistory  bool    `help:"Do not record rounds"`

	Thumbnails bool      `kong:"-"`
	Stdout     io.Writer `kong:"-"`
	Stdin      io.Reader `kong:"-"`
}

func (g *Globals) logger() (zerolog.Logger, error) {
	return logging.New(logging.Options{Level: g.LogLevel, JSON: g.LogJSON})
}

func (g *Globals) appConfig(logger zerolog.Logger) app.Config {
	cfg := app.Config{
		ModelPath:  g.ModelPath,
		LabelsPath: g.LabelsPath,
		ORTLibrary: g.ORTLibrary,
		Threshold:  g.Threshold,
		Thumbnails: g.Thumbnails,
		CacheSize:  g.CacheSize,
		Seed:       g.Seed,
		StatsdAddr: g.StatsdAddr,
		Logger:     logger,
	}
	if !g.NoHistory && g.DataDir != "" {
		cfg.DBPath = filepath.Join(g.DataDir, "suit.db")
	}
	return cfg
}

// newApp builds the application from the global flags.
func (g *Globals) newApp() (*app.App, zerolog.Logger, error) {
	logger, err := g.logger()
	if err != nil {
		return nil, logger, err
	}
	a, err := app.New(g.appConfig(logger))
	return a, logger, err
}

// signalContext is cancelled on interrupt or SIGTERM. The returned stop
// function releases the signal handler and cancels the context.
func signalContext(logger zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go watchSignals(ctx, cancel, sigChan, logger)

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// watchSignals cancels on the first signal. It returns quietly when ctx ends first.
func watchSignals(ctx context.Context, cancel context.CancelFunc, sigs <-chan os.Signal, logger zerolog.Logger) {
	select {
	case sig := <-sigs:
		logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down gracefully")
		cancel()
	case <-ctx.Done():
	}
}
