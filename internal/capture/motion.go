package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/suit/internal/vision"
)

// Motion detection constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
	// DefaultMotionThreshold is the percentage of changed pixels that counts as motion.
	DefaultMotionThreshold = 1.0
)

// MotionDetector compares consecutive frames to tell whether the hand in
// front of the camera is still moving.
type MotionDetector struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewMotionDetector creates a MotionDetector. threshold is the percentage of
// pixels that must change between frames to count as motion.
func NewMotionDetector(threshold float64) *MotionDetector {
	if threshold <= 0 {
		threshold = DefaultMotionThreshold
	}
	return &MotionDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect reports whether frame differs from the previous frame by more than
// the threshold, and the percentage of changed pixels. The first frame only
// sets the baseline.
//
// Frames are converted to intensity, blurred 21x21, differenced against the
// previous frame and thresholded at 25.
func (m *MotionDetector) Detect(frame vision.Image) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if !intensity(frame, &gray) {
		return false, 0
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	if err := gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault); err != nil {
		return false, 0
	}

	// a resolution change restarts the baseline
	if !m.initialized || m.prevGray.Rows() != blurred.Rows() || m.prevGray.Cols() != blurred.Cols() {
		if err := blurred.CopyTo(&m.prevGray); err != nil {
			return false, 0
		}
		m.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	if err := gocv.AbsDiff(blurred, m.prevGray, &diff); err != nil {
		return false, 0
	}

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	nonZero := gocv.CountNonZero(thresh)
	totalPixels := thresh.Rows() * thresh.Cols()
	changePercent := float64(nonZero) / float64(totalPixels) * 100.0

	if err := blurred.CopyTo(&m.prevGray); err != nil {
		m.initialized = false
	}

	return changePercent > m.threshold, changePercent
}

func intensity(frame vision.Image, dst *gocv.Mat) bool {
	rgb := frame.Order == vision.RGB
	var err error
	switch frame.Channels() {
	case 1:
		err = frame.Mat.CopyTo(dst)
	case 3:
		code := gocv.ColorBGRToGray
		if rgb {
			code = gocv.ColorRGBToGray
		}
		err = gocv.CvtColor(*frame.Mat, dst, code)
	case 4:
		code := gocv.ColorBGRAToGray
		if rgb {
			code = gocv.ColorRGBAToGray
		}
		err = gocv.CvtColor(*frame.Mat, dst, code)
	default:
		return false
	}
	return err == nil && !dst.Empty()
}

// Reset drops the baseline so the next frame starts a new comparison.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

func (m *MotionDetector) reset() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}

// Close releases resources used by the motion detector.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

// SetThreshold sets the motion threshold in percent of changed pixels.
// Values less than or equal to 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.threshold = threshold
}

// Threshold returns the motion threshold.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}
