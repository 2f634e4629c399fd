package main

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/suit/internal/capture"
)

// ServeCmd runs the HTTP API and websocket feed.
type ServeCmd struct {
	Addr      string `default:"${addr}" help:"Server address"`
	StaticDir string `default:"${static_dir}" help:"Directory of static files to serve at /" type:"path"`
	Camera    bool   `help:"Enable /api/stream and /api/session/capture using a local camera"`
	CameraID  int    `default:"${camera_id}" help:"Camera device index"`
	Lazy      bool   `help:"Load the model on the first photo instead of at startup"`
}

func (c *ServeCmd) Run(g *Globals) error {
	a, logger, err := g.newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var cam capture.Camera
	if c.Camera {
		cfg := capture.DefaultCameraConfig()
		cfg.DeviceID = c.CameraID
		cam = capture.NewCamera(cfg)
		defer cam.Close()
	}

	srv := a.Server(c.StaticDir, cam)

	ctx, stop := signalContext(logger)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.Run(ctx, c.Addr)
	})
	if !c.Lazy {
		group.Go(func() error {
			info := a.Preload()
			logger.Info().
				Str("state", info.State).
				Str("strategy", info.Strategy).
				Strs("labels", info.Labels).
				Msg("classifier ready")
			return nil
		})
	}

	if err := group.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
