package capture

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/suit/internal/vision"
)

func solidFrame(t *testing.T, rows, cols int, value float64) vision.Image {
	t.Helper()
	mat := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	mat.SetTo(gocv.NewScalar(value, value, value, 0))
	img := vision.NewImage(&mat, vision.BGR)
	t.Cleanup(func() { img.Close() })
	return img
}

func TestNewMotionDetector(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{"default threshold", 1.0, 1.0},
		{"high threshold", 5.0, 5.0},
		{"zero uses default", 0, DefaultMotionThreshold},
		{"negative uses default", -3, DefaultMotionThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			defer md.Close()

			if md.Threshold() != tt.want {
				t.Errorf("threshold = %f, want %f", md.Threshold(), tt.want)
			}

			if md.initialized {
				t.Error("motion detector should not be initialized initially")
			}
		})
	}
}

func TestMotionDetector_NoMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	frame1 := solidFrame(t, 480, 640, 0)
	frame2 := solidFrame(t, 480, 640, 0)

	detected, changePercent := md.Detect(frame1)
	if detected || changePercent != 0 {
		t.Errorf("first frame should only set the baseline, got %v %f", detected, changePercent)
	}

	detected, changePercent = md.Detect(frame2)
	if detected {
		t.Errorf("identical frames should not detect motion, changePercent = %f", changePercent)
	}
}

func TestMotionDetector_WithMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	md.Detect(solidFrame(t, 480, 640, 0))

	detected, changePercent := md.Detect(solidFrame(t, 480, 640, 255))
	if !detected {
		t.Errorf("black to white should detect motion, changePercent = %f", changePercent)
	}
	if changePercent < 50.0 {
		t.Errorf("changePercent = %f, expected > 50%% for black to white transition", changePercent)
	}
}

func TestMotionDetector_HandEntering(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	md.Detect(solidFrame(t, 240, 320, 20))

	hand := solidFrame(t, 240, 320, 20)
	gocv.Rectangle(hand.Mat, image.Rect(100, 60, 220, 200), color.RGBA{R: 220, G: 180, B: 150}, -1)

	detected, changePercent := md.Detect(hand)
	if !detected {
		t.Errorf("a hand entering the frame should be motion, changePercent = %f", changePercent)
	}

	// the same pose again is still
	detected, _ = md.Detect(hand)
	if detected {
		t.Error("a motionless hand should not be motion")
	}
}

func TestMotionDetector_ResolutionChangeResetsBaseline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	md.Detect(solidFrame(t, 480, 640, 0))
	detected, changePercent := md.Detect(solidFrame(t, 240, 320, 255))
	if detected || changePercent != 0 {
		t.Errorf("a new resolution should set a new baseline, got %v %f", detected, changePercent)
	}
}

func TestMotionDetector_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	md.Detect(solidFrame(t, 480, 640, 0))

	if !md.initialized {
		t.Error("detector should be initialized after first Detect")
	}

	md.Reset()

	if md.initialized {
		t.Error("detector should not be initialized after Reset")
	}
	if !md.prevGray.Empty() {
		t.Error("prevGray should be empty after Reset")
	}
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	md.SetThreshold(5.0)
	if md.Threshold() != 5.0 {
		t.Errorf("threshold = %f, want 5.0 after SetThreshold", md.Threshold())
	}

	// Setting negative threshold should be ignored
	md.SetThreshold(-1.0)
	if md.Threshold() != 5.0 {
		t.Errorf("negative threshold should be ignored, got %f, want 5.0", md.Threshold())
	}
}

func TestMotionDetector_EmptyFrame(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	detected, changePercent := md.Detect(vision.Image{})
	if detected || changePercent != 0 {
		t.Errorf("empty frame should never be motion, got %v %f", detected, changePercent)
	}
}

func TestMotionDetector_Close_Multiple(t *testing.T) {
	md := NewMotionDetector(1.0)

	// Close multiple times should not panic
	md.Close()
	md.Close()
}
