// Package testdata synthesizes hand photos for tests.
package testdata

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"gocv.io/x/gocv"
)

// Pose selects the shape drawn by HandImage.
type Pose int

const (
	// Fist is a single blob.
	Fist Pose = iota
	// OpenHand is a palm with five fingers.
	OpenHand
	// TwoFingers is a palm with two fingers.
	TwoFingers
)

var (
	background = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	skin       = color.RGBA{R: 220, G: 180, B: 150, A: 255}
)

// HandImage draws a skin-colored hand on a dark background.
func HandImage(width, height int, pose Pose) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)

	palm := image.Rect(width*3/10, height/2, width*7/10, height*9/10)
	fill(img, palm)

	fingers := 0
	switch pose {
	case OpenHand:
		fingers = 5
	case TwoFingers:
		fingers = 2
	}
	fw := palm.Dx() / 9
	for i := 0; i < fingers; i++ {
		x := palm.Min.X + fw/2 + i*2*fw
		fill(img, image.Rect(x, height/8, x+fw, palm.Min.Y))
	}
	return img
}

func fill(img *image.RGBA, r image.Rectangle) {
	draw.Draw(img, r, &image.Uniform{C: skin}, image.Point{}, draw.Src)
}

// HandPNG encodes HandImage as PNG.
func HandPNG(width, height int, pose Pose) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, HandImage(width, height, pose)); err != nil {
		return nil, fmt.Errorf("encode hand: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadFrame returns HandImage as a BGR Mat. The caller closes it.
func LoadFrame(width, height int, pose Pose) (*gocv.Mat, error) {
	data, err := HandPNG(width, height, pose)
	if err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode hand: %w", err)
	}
	return &mat, nil
}

// LoadSequence returns frames of a hand moving into view and then holding
// still for the given number of frames.
func LoadSequence(width, height, still int, pose Pose) ([]*gocv.Mat, error) {
	var frames []*gocv.Mat
	closeAll := func() {
		for _, f := range frames {
			f.Close()
		}
	}

	empty := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	empty.SetTo(gocv.NewScalar(float64(background.B), float64(background.G), float64(background.R), 0))
	frames = append(frames, &empty)

	for i := 0; i < still+1; i++ {
		frame, err := LoadFrame(width, height, pose)
		if err != nil {
			closeAll()
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}
