package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/ayusman/suit/internal/config"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Globals

	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Serve    ServeCmd         `cmd:"" help:"Run the game server"`
	Play     PlayCmd          `cmd:"" help:"Play one round from photos, the camera or manual choices"`
	Classify ClassifyCmd      `cmd:"" help:"Classify hand gesture photos"`
	Resolve  ResolveCmd       `cmd:"" help:"Decide a round between two gestures"`
	Rounds   RoundsCmd        `cmd:"" help:"Show the round history"`
	Model    ModelCmd         `cmd:"" help:"Load the model and report its signature"`
}

func main() {
	cfg, err := config.Load(os.Getenv(config.Prefix + "ENV_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "suit: %v\n", err)
		os.Exit(1)
	}

	cli := CLI{Globals: Globals{Stdout: os.Stdout, Stdin: os.Stdin, Thumbnails: cfg.Thumbnails}}
	ctx := kong.Parse(&cli,
		kong.Name("suit"),
		kong.Description("Two-player rock-paper-scissors played with hand gesture photos"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		vars(cfg),
	)
	err = ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// vars exposes environment settings as flag defaults.
func vars(cfg config.Config) kong.Vars {
	return kong.Vars{
		"version":     version,
		"model_path":  cfg.ModelPath,
		"labels_path": cfg.LabelsPath,
		"ort_library": cfg.ORTLibrary,
		"data_dir":    cfg.DataDir,
		"addr":        cfg.Addr,
		"static_dir":  cfg.StaticDir,
		"threshold":   strconv.FormatFloat(cfg.Threshold, 'f', -1, 64),
		"log_level":   cfg.LogLevel,
		"log_json":    strconv.FormatBool(cfg.LogJSON),
		"statsd_addr": cfg.StatsdAddr,
		"cache_size":  strconv.Itoa(cfg.CacheSize),
		"camera_id":   strconv.Itoa(cfg.CameraID),
		"seed":        strconv.FormatUint(cfg.Seed, 10),
	}
}
