// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every variable name.
const Prefix = "SUIT_"

// Config holds settings shared by every command. CLI flags override it.
type Config struct {
	ModelPath  string  `env:"MODEL_PATH" envDefault:"model.onnx"`
	LabelsPath string  `env:"LABELS_PATH" envDefault:"labels.txt"`
	ORTLibrary string  `env:"ORT_LIBRARY"`
	DataDir    string  `env:"DATA_DIR" envDefault:"~/.suit"`
	Addr       string  `env:"ADDR" envDefault:":8080"`
	StaticDir  string  `env:"STATIC_DIR"`
	Threshold  float64 `env:"THRESHOLD" envDefault:"0.3"`
	LogLevel   string  `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON    bool    `env:"LOG_JSON" envDefault:"false"`
	StatsdAddr string  `env:"STATSD_ADDR"`
	CacheSize  int     `env:"CACHE_SIZE" envDefault:"256"`
	CameraID   int     `env:"CAMERA_ID" envDefault:"0"`
	Seed       uint64  `env:"SEED" envDefault:"0"`
	Thumbnails bool    `env:"THUMBNAILS" envDefault:"true"`
}

// Load reads envFile if it exists, then parses the environment. An empty
// envFile means ".env" in the working directory.
func Load(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	return Parse()
}

// Parse reads Config from the process environment only.
func Parse() (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: Prefix})
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	return cfg, nil
}

// Validate checks value ranges env cannot express.
func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%sTHRESHOLD must be within [0, 1], got %v", Prefix, c.Threshold)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%sCACHE_SIZE must not be negative, got %d", Prefix, c.CacheSize)
	}
	return nil
}

// DBPath is the round history database inside DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "suit.db")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
