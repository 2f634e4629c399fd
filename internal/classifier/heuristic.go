package classifier

import (
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand/v2"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/suit/internal/gesture"
	"github.com/ayusman/suit/internal/vision"
)

// Heuristic parameters.
const (
	cannyLow  = 50
	cannyHigh = 150

	contourWeight = 10
	aspectWeight  = 100

	baseConfidence   = 0.5
	maxConfidence    = 0.8
	randomConfidence = 0.6
)

// Features are the image statistics the heuristic label is derived from.
type Features struct {
	IntensitySum int64
	Contours     int
	Aspect       float64
}

// Sum combines the features into the value whose residue mod 3 picks the label.
func (f Features) Sum() int64 {
	return f.IntensitySum + int64(f.Contours)*contourWeight + int64(math.Floor(f.Aspect*aspectWeight))
}

// Heuristic classifies from simple edge statistics. It works on any decodable
// image and never fails; when feature extraction fails it picks a random label.
type Heuristic struct {
	labels gesture.LabelTable
	size   int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristic creates a Heuristic. A zero seed draws one from the global source.
func NewHeuristic(seed uint64) *Heuristic {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Heuristic{
		labels: gesture.DefaultLabels(),
		size:   vision.InputSize,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (h *Heuristic) Name() string { return SourceHeuristic }

// Predict implements Predictor. The error is always nil.
func (h *Heuristic) Predict(img vision.Image) (Result, error) {
	return h.Classify(img), nil
}

// Classify returns the heuristic label for img. An extraction error or a
// panic falls back to a random label.
func (h *Heuristic) Classify(img vision.Image) (r Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r = h.random()
		}
	}()

	f, err := h.Extract(img)
	if err != nil {
		return h.random()
	}

	contours := float64(f.Contours)
	return Result{
		Label:      h.labels[int(f.Sum()%int64(len(h.labels)))],
		Confidence: math.Min(maxConfidence, baseConfidence+contours/100),
		Source:     SourceHeuristic,
	}
}

func (h *Heuristic) random() Result {
	h.mu.Lock()
	i := h.rng.IntN(len(h.labels))
	h.mu.Unlock()
	return Result{Label: h.labels[i], Confidence: randomConfidence, Source: SourceRandom}
}

// Extract computes the heuristic features: resize to a square, convert to
// intensity, run Canny edge detection and count the external contours.
// Any OpenCV failure is returned; Classify turns it into a random pick.
func (h *Heuristic) Extract(img vision.Image) (Features, error) {
	if img.Empty() {
		return Features{}, vision.ErrEmptyImage
	}

	resized := gocv.NewMat()
	defer resized.Close()
	if err := gocv.Resize(*img.Mat, &resized, image.Point{X: h.size, Y: h.size}, 0, 0, gocv.InterpolationLinear); err != nil {
		return Features{}, fmt.Errorf("resize: %w", err)
	}
	if resized.Empty() {
		return Features{}, errors.New("resize produced an empty image")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if err := toGray(resized, &gray, img.Channels(), img.Order); err != nil {
		return Features{}, err
	}

	edges := gocv.NewMat()
	defer edges.Close()
	if err := gocv.Canny(gray, &edges, cannyLow, cannyHigh); err != nil {
		return Features{}, fmt.Errorf("canny: %w", err)
	}

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	if contours.IsNil() {
		return Features{}, errors.New("find contours failed")
	}
	defer contours.Close()

	return Features{
		IntensitySum: int64(gray.Sum().Val1),
		Contours:     contours.Size(),
		Aspect:       float64(gray.Cols()) / float64(gray.Rows()),
	}, nil
}

func toGray(src gocv.Mat, dst *gocv.Mat, channels int, order vision.ChannelOrder) error {
	var err error
	switch channels {
	case 1:
		err = src.CopyTo(dst)
	case 3:
		code := gocv.ColorBGRToGray
		if order == vision.RGB {
			code = gocv.ColorRGBToGray
		}
		err = gocv.CvtColor(src, dst, code)
	case 4:
		code := gocv.ColorBGRAToGray
		if order == vision.RGB {
			code = gocv.ColorRGBAToGray
		}
		err = gocv.CvtColor(src, dst, code)
	default:
		return fmt.Errorf("unsupported channel count %d", channels)
	}
	if err != nil {
		return fmt.Errorf("grayscale: %w", err)
	}
	if dst.Empty() {
		return errors.New("grayscale conversion produced an empty image")
	}
	return nil
}
