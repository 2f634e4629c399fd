package classifier

import (
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/suit/internal/gesture"
	"github.com/ayusman/suit/internal/vision"
	"github.com/ayusman/suit/testdata"
)

func uniformImage(t *testing.T, rows, cols int, mt gocv.MatType, v float64) vision.Image {
	t.Helper()
	mat := gocv.NewMatWithSize(rows, cols, mt)
	mat.SetTo(gocv.NewScalar(v, v, v, v))
	img := vision.NewImage(&mat, vision.BGR)
	t.Cleanup(func() { img.Close() })
	return img
}

func TestHeuristic_KnownFeatures(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	tests := []struct {
		name    string
		value   float64
		wantSum int64
		wantLbl gesture.Label
	}{
		// 0 intensity + 0 contours + floor(1.0*100) = 100, 100 mod 3 = 1
		{"black", 0, 100, gesture.Scissors},
		// 224*224*1 + 100 = 50276, 50276 mod 3 = 2
		{"near black", 1, 50276, gesture.Paper},
	}

	h := NewHeuristic(1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := uniformImage(t, 120, 90, gocv.MatTypeCV8UC3, tt.value)

			f, err := h.Extract(img)
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if f.Contours != 0 {
				t.Errorf("expected no contours on a flat image, got %d", f.Contours)
			}
			if f.Aspect != 1.0 {
				t.Errorf("expected aspect 1.0, got %f", f.Aspect)
			}
			if f.Sum() != tt.wantSum {
				t.Errorf("expected feature sum %d, got %d", tt.wantSum, f.Sum())
			}

			r := h.Classify(img)
			if r.Label != tt.wantLbl {
				t.Errorf("expected %s, got %s", tt.wantLbl, r.Label)
			}
			if r.Confidence != 0.5 {
				t.Errorf("expected confidence 0.5, got %f", r.Confidence)
			}
			if r.Source != SourceHeuristic {
				t.Errorf("expected source %s, got %s", SourceHeuristic, r.Source)
			}
		})
	}
}

func TestHeuristic_Deterministic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	mat := gocv.NewMatWithSize(300, 200, gocv.MatTypeCV8UC3)
	defer mat.Close()
	mat.SetTo(gocv.NewScalar(0, 0, 0, 0))
	gocv.Circle(&mat, image.Pt(100, 150), 60, color.RGBA{R: 240, G: 200, B: 170}, -1)
	gocv.Rectangle(&mat, image.Rect(80, 20, 100, 100), color.RGBA{R: 240, G: 200, B: 170}, -1)
	img := vision.NewImage(&mat, vision.BGR)

	a := NewHeuristic(1).Classify(img)
	b := NewHeuristic(99).Classify(img)
	if a != b {
		t.Errorf("expected identical results for the same image, got %+v and %+v", a, b)
	}

	f, err := NewHeuristic(1).Extract(img)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if f.Contours == 0 {
		t.Error("expected at least one contour")
	}
	want := 0.5 + float64(f.Contours)/100
	if want > 0.8 {
		want = 0.8
	}
	if a.Confidence != want {
		t.Errorf("expected confidence %f, got %f", want, a.Confidence)
	}
	if a.Label != gesture.DefaultLabels()[f.Sum()%3] {
		t.Errorf("label %s does not match feature sum %d", a.Label, f.Sum())
	}
}

func TestHeuristic_ConfidenceCap(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	// a checkerboard of small squares yields far more than 30 external contours
	mat := gocv.NewMatWithSize(224, 224, gocv.MatTypeCV8UC3)
	defer mat.Close()
	mat.SetTo(gocv.NewScalar(0, 0, 0, 0))
	for y := 0; y < 224; y += 16 {
		for x := 0; x < 224; x += 16 {
			gocv.Rectangle(&mat, image.Rect(x+4, y+4, x+10, y+10), color.RGBA{R: 255, G: 255, B: 255}, -1)
		}
	}
	r := NewHeuristic(1).Classify(vision.NewImage(&mat, vision.BGR))
	if r.Confidence != 0.8 {
		t.Errorf("expected confidence capped at 0.8, got %f", r.Confidence)
	}
}

func TestHeuristic_OddInputs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	inputs := []struct {
		name string
		img  vision.Image
	}{
		{"1x1", uniformImage(t, 1, 1, gocv.MatTypeCV8UC3, 200)},
		{"single channel", uniformImage(t, 64, 48, gocv.MatTypeCV8UC1, 128)},
		{"with alpha", uniformImage(t, 64, 48, gocv.MatTypeCV8UC4, 128)},
	}

	h := NewHeuristic(1)
	for _, in := range inputs {
		t.Run(in.name, func(t *testing.T) {
			r := h.Classify(in.img)
			if r.Source != SourceHeuristic {
				t.Errorf("expected source %s, got %s", SourceHeuristic, r.Source)
			}
			if !r.Label.Valid() {
				t.Errorf("expected a valid label, got %s", r.Label)
			}
			if r.Confidence < 0.5 || r.Confidence > 0.8 {
				t.Errorf("confidence %f outside [0.5, 0.8]", r.Confidence)
			}
		})
	}
}

func TestHeuristic_RandomFallback(t *testing.T) {
	a := NewHeuristic(42)
	b := NewHeuristic(42)

	seen := make(map[gesture.Label]bool)
	for i := 0; i < 50; i++ {
		ra := a.Classify(vision.Image{})
		rb := b.Classify(vision.Image{})

		if ra != rb {
			t.Fatalf("same seed diverged at %d: %+v vs %+v", i, ra, rb)
		}
		if ra.Source != SourceRandom {
			t.Errorf("expected source %s, got %s", SourceRandom, ra.Source)
		}
		if ra.Confidence != 0.6 {
			t.Errorf("expected confidence 0.6, got %f", ra.Confidence)
		}
		seen[ra.Label] = true
	}

	if len(seen) != 3 {
		t.Errorf("expected all three labels over 50 draws, saw %v", seen)
	}
}

func TestHeuristic_OpenCVFailureFallsBack(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	// Canny only accepts 8-bit input
	inputs := []struct {
		name string
		mt   gocv.MatType
	}{
		{"16-bit gray", gocv.MatTypeCV16UC1},
		{"16-bit color", gocv.MatTypeCV16UC3},
		{"float color", gocv.MatTypeCV32FC3},
	}

	for _, in := range inputs {
		t.Run(in.name, func(t *testing.T) {
			img := uniformImage(t, 64, 48, in.mt, 1000)
			h := NewHeuristic(7)

			if _, err := h.Extract(img); err == nil {
				t.Fatal("expected Extract to report the OpenCV failure")
			}

			r := h.Classify(img)
			if r.Source != SourceRandom {
				t.Errorf("expected source %s, got %s", SourceRandom, r.Source)
			}
			if r.Confidence != 0.6 {
				t.Errorf("expected confidence 0.6, got %f", r.Confidence)
			}
			if !r.Label.Valid() {
				t.Errorf("expected a valid label, got %s", r.Label)
			}
		})
	}
}

func TestHeuristic_GoImageMatchesDecodedPhoto(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	data, err := testdata.HandPNG(160, 120, testdata.TwoFingers)
	if err != nil {
		t.Fatalf("failed to encode hand: %v", err)
	}
	decoded, err := vision.Decode(data)
	if err != nil {
		t.Fatalf("failed to decode hand: %v", err)
	}
	defer decoded.Close()

	converted, err := vision.FromImage(testdata.HandImage(160, 120, testdata.TwoFingers))
	if err != nil {
		t.Fatalf("failed to convert hand: %v", err)
	}
	defer converted.Close()

	h := NewHeuristic(1)
	want, err := h.Extract(decoded)
	if err != nil {
		t.Fatalf("Extract failed on decoded photo: %v", err)
	}
	got, err := h.Extract(converted)
	if err != nil {
		t.Fatalf("Extract failed on converted image: %v", err)
	}
	if got != want {
		t.Errorf("converted image features %+v differ from decoded photo %+v", got, want)
	}
}
