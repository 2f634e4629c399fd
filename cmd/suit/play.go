package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ayusman/suit/internal/capture"
	"github.com/ayusman/suit/internal/game"
	"github.com/ayusman/suit/internal/gesture"
	"github.com/ayusman/suit/internal/vision"
)

// PlayCmd plays one round in the terminal.
type PlayCmd struct {
	Photos   []string      `arg:"" optional:"" type:"existingfile" help:"Photo for player 1, then player 2"`
	Camera   bool          `help:"Take each player's photo with the camera once their hand holds still"`
	CameraID int           `default:"${camera_id}" help:"Camera device index"`
	Timeout  time.Duration `default:"15s" help:"How long to wait for a still hand"`
	Choose1  string        `name:"choose1" help:"Gesture for player 1 when no photo is recognized"`
	Choose2  string        `name:"choose2" help:"Gesture for player 2 when no photo is recognized"`
}

var errNoGesture = errors.New("no gesture chosen")

func (c *PlayCmd) Run(g *Globals) error {
	if len(c.Photos) > 2 {
		return fmt.Errorf("at most two photos, got %d", len(c.Photos))
	}

	a, logger, err := g.newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(logger)
	defer stop()

	var cam capture.Camera
	var md *capture.MotionDetector
	if c.Camera {
		cfg := capture.DefaultCameraConfig()
		cfg.DeviceID = c.CameraID
		cam = capture.NewCamera(cfg)
		defer cam.Close()
		md = capture.NewMotionDetector(capture.DefaultMotionThreshold)
		defer md.Close()
	}

	session := a.Session()
	if err := session.Start(); err != nil {
		return err
	}

	in := bufio.NewReader(g.Stdin)
	for player := 1; player <= 2; player++ {
		if err := c.move(ctx, g, in, session, player, cam, md); err != nil {
			return err
		}
	}

	snap := session.Snapshot()
	if snap.LastRound == nil {
		return errors.New("round was not resolved")
	}
	rd := snap.LastRound
	fmt.Fprintln(g.Stdout)
	printVerdict(g, rd.Player1.Label, rd.Player2.Label, rd.Verdict)
	fmt.Fprintf(g.Stdout, "Session %s\n", snap.SessionID)
	return nil
}

// move plays one player's turn: a photo when there is one, then a manual
// choice if the photo was not recognized.
func (c *PlayCmd) move(ctx context.Context, g *Globals, in *bufio.Reader, session *game.Session, player int, cam capture.Camera, md *capture.MotionDetector) error {
	img, ok, err := c.photo(ctx, g, player, cam, md)
	if err != nil {
		return err
	}
	if ok {
		turn, err := session.Submit(img)
		img.Close()
		if err != nil {
			return err
		}
		r := turn.Result
		fmt.Fprintf(g.Stdout, "Player %d: %s %s %.2f [%s]\n", player, r.Label.Emoji(), r.Label.Local(), r.Confidence, r.Source)
		if turn.Detected {
			return nil
		}
		fmt.Fprintf(g.Stdout, "Player %d: gesture not recognized\n", player)
	}

	choice := c.Choose1
	if player == 2 {
		choice = c.Choose2
	}
	if choice == "" {
		choice, err = prompt(g.Stdout, in, player)
		if err != nil {
			return err
		}
	}

	label, valid := gesture.ParseLabel(choice)
	if !valid {
		return fmt.Errorf("player %d: %w: %q", player, game.ErrInvalidGesture, choice)
	}
	_, err = session.Choose(label)
	return err
}

// photo returns the player's photo from the arguments or the camera.
// ok is false when the player has no photo.
func (c *PlayCmd) photo(ctx context.Context, g *Globals, player int, cam capture.Camera, md *capture.MotionDetector) (vision.Image, bool, error) {
	if player <= len(c.Photos) {
		img, err := readImage(c.Photos[player-1])
		return img, err == nil, err
	}
	if cam == nil {
		return vision.Image{}, false, nil
	}

	fmt.Fprintf(g.Stdout, "Player %d: show your hand to the camera and hold still\n", player)
	opts := capture.DefaultStillOptions()
	opts.Timeout = c.Timeout
	img, err := capture.Still(ctx, cam, md, opts)
	if err != nil {
		return vision.Image{}, false, fmt.Errorf("player %d capture: %w", player, err)
	}
	return img, true, nil
}

func prompt(out io.Writer, in *bufio.Reader, player int) (string, error) {
	fmt.Fprintf(out, "Player %d, choose batu, gunting or kertas: ", player)
	line, err := in.ReadString('\n')
	if strings.TrimSpace(line) == "" {
		if err == nil || errors.Is(err, io.EOF) {
			return "", fmt.Errorf("player %d: %w", player, errNoGesture)
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
