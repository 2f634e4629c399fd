package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/coder/quartz"

	"github.com/ayusman/suit/internal/vision"
)

// StillOptions controls Still.
type StillOptions struct {
	// SettleFrames is how many consecutive frames without motion, after the
	// baseline frame, make a still.
	SettleFrames int
	// MaxFrames bounds how many frames are read before giving up on
	// settling and returning the latest frame. Zero means no bound.
	MaxFrames int
	// Timeout bounds the wait, measured on Clock. Zero means no timeout.
	Timeout time.Duration
	// Interval is the pause between reads. Zero reads as fast as the camera allows.
	Interval time.Duration
	Clock    quartz.Clock
}

// DefaultStillOptions returns StillOptions with sensible default values.
func DefaultStillOptions() StillOptions {
	return StillOptions{
		SettleFrames: 5,
		MaxFrames:    150,
		Timeout:      15 * time.Second,
		Interval:     time.Second / DefaultFPS,
		Clock:        quartz.NewReal(),
	}
}

// Still reads frames until the hand stops moving and returns the last one.
// The camera is opened if needed and left open. When frames run out, the
// frame budget is spent or the timeout passes before motion settles, the
// latest frame is returned anyway. The caller closes the returned image.
func Still(ctx context.Context, cam Camera, md *MotionDetector, opts StillOptions) (vision.Image, error) {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.SettleFrames <= 0 {
		opts.SettleFrames = 1
	}
	if !cam.IsOpen() {
		if err := cam.Open(); err != nil {
			return vision.Image{}, fmt.Errorf("open camera: %w", err)
		}
	}
	md.Reset()

	var deadline time.Time
	if opts.Timeout > 0 {
		deadline = opts.Clock.Now().Add(opts.Timeout)
	}

	var ticker *quartz.Ticker
	if opts.Interval > 0 {
		ticker = opts.Clock.NewTicker(opts.Interval, "capture", "still")
		defer ticker.Stop()
	}

	var latest vision.Image
	still, read := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			latest.Close()
			return vision.Image{}, err
		}

		frame, err := cam.ReadFrame()
		if err != nil {
			if !latest.Empty() {
				return latest, nil
			}
			return vision.Image{}, fmt.Errorf("read frame: %w", err)
		}
		read++

		moving, _ := md.Detect(frame)
		latest.Close()
		latest = frame

		// the first frame only sets the motion baseline
		if read > 1 && !moving {
			still++
		} else {
			still = 0
		}

		if still >= opts.SettleFrames {
			return latest, nil
		}
		if opts.MaxFrames > 0 && read >= opts.MaxFrames {
			return latest, nil
		}
		if !deadline.IsZero() && !opts.Clock.Now().Before(deadline) {
			return latest, nil
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				latest.Close()
				return vision.Image{}, ctx.Err()
			case <-ticker.C:
			}
		}
	}
}
