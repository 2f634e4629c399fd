package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// InputSize is the square input resolution of the gesture model.
const InputSize = 224

// Tensor is a dense float32 tensor in NHWC layout.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Len returns the number of elements implied by the shape.
func (t Tensor) Len() int {
	if len(t.Shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return int(n)
}

// At returns the value at (y, x, c) of the first batch entry.
func (t Tensor) At(y, x, c int) float32 {
	w := int(t.Shape[2])
	ch := int(t.Shape[3])
	return t.Data[(y*w+x)*ch+c]
}

// Preprocessor turns photos into model input tensors.
type Preprocessor struct {
	// Size is the square output resolution.
	Size int
	// Order is the channel order the model was trained with.
	Order ChannelOrder
}

// NewPreprocessor returns a Preprocessor for the 224x224 BGR gesture model.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		Size:  InputSize,
		Order: BGR,
	}
}

// Preprocess converts an image into a [1, Size, Size, 3] tensor scaled to [0, 1].
//
// Steps:
// 1. Drop the alpha channel of 4-channel images
// 2. Resize to Size x Size (bilinear)
// 3. Swap channels if the image order differs from the model order
// 4. Divide by 255
// 5. Add the batch dimension
func (p *Preprocessor) Preprocess(img Image) (Tensor, error) {
	if img.Empty() {
		return Tensor{}, &PreprocessError{Op: "preprocess", Err: ErrEmptyImage}
	}
	if d := Depth(img.Mat); d != gocv.MatTypeCV8U {
		return Tensor{}, &PreprocessError{Op: "preprocess", Err: fmt.Errorf("%w: type %d", ErrDepth, d)}
	}

	src := img.Mat
	switch img.Channels() {
	case 3:
	case 4:
		color := gocv.NewMat()
		defer color.Close()
		if err := gocv.CvtColor(*img.Mat, &color, gocv.ColorBGRAToBGR); err != nil {
			return Tensor{}, &PreprocessError{Op: "drop alpha", Err: err}
		}
		src = &color
	default:
		return Tensor{}, &PreprocessError{
			Op:  "preprocess",
			Err: fmt.Errorf("unsupported channel count %d", img.Channels()),
		}
	}

	resized := gocv.NewMat()
	defer resized.Close()
	if err := gocv.Resize(*src, &resized, image.Point{X: p.Size, Y: p.Size}, 0, 0, gocv.InterpolationLinear); err != nil {
		return Tensor{}, &PreprocessError{Op: "resize", Err: err}
	}
	if resized.Empty() {
		return Tensor{}, &PreprocessError{Op: "resize", Err: ErrEmptyImage}
	}

	ordered := &resized
	if img.Order != p.Order {
		swapped := gocv.NewMat()
		defer swapped.Close()
		if err := gocv.CvtColor(resized, &swapped, gocv.ColorBGRToRGB); err != nil {
			return Tensor{}, &PreprocessError{Op: "swap channels", Err: err}
		}
		ordered = &swapped
	}

	scaled := gocv.NewMat()
	defer scaled.Close()
	if err := ordered.ConvertToWithParams(&scaled, gocv.MatTypeCV32FC3, 1.0/255.0, 0); err != nil {
		return Tensor{}, &PreprocessError{Op: "normalize", Err: err}
	}

	data, err := scaled.DataPtrFloat32()
	if err != nil {
		return Tensor{}, &PreprocessError{Op: "normalize", Err: err}
	}

	// scaled is closed on return; the tensor keeps its own copy
	out := make([]float32, len(data))
	copy(out, data)

	return Tensor{
		Shape: []int64{1, int64(p.Size), int64(p.Size), 3},
		Data:  out,
	}, nil
}
