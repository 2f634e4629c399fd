// Package vision converts photos into the inputs the gesture classifiers consume.
package vision

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ChannelOrder is the order of the color channels in an Image.
type ChannelOrder int

const (
	// BGR is OpenCV's native order, used by decoded files and camera frames.
	BGR ChannelOrder = iota
	// RGB is red first, the order some exported models are trained with.
	RGB
)

func (o ChannelOrder) String() string {
	if o == RGB {
		return "RGB"
	}
	return "BGR"
}

var (
	// ErrEmptyImage is returned for images without pixels.
	ErrEmptyImage = errors.New("image is empty")

	// ErrDepth is returned for images that are not 8 bits per channel.
	ErrDepth = errors.New("unsupported bit depth")
)

const depthMask gocv.MatType = 7

// Depth returns the per-channel element type of m (gocv.MatTypeCV8U, ...).
func Depth(m *gocv.Mat) gocv.MatType {
	return m.Type() & depthMask
}

// PreprocessError reports an image that cannot be turned into classifier input.
type PreprocessError struct {
	Op  string
	Err error
}

func (e *PreprocessError) Error() string {
	return fmt.Sprintf("preprocess %s: %v", e.Op, e.Err)
}

func (e *PreprocessError) Unwrap() error {
	return e.Err
}

// Image is a photo held as an OpenCV matrix with its channel order.
// The owner must call Close.
type Image struct {
	Mat   *gocv.Mat
	Order ChannelOrder
}

// NewImage wraps an existing Mat. Ownership of the Mat moves to the Image.
func NewImage(mat *gocv.Mat, order ChannelOrder) Image {
	return Image{Mat: mat, Order: order}
}

// Decode decodes an encoded photo (JPEG, PNG, ...) keeping any alpha channel.
// 16-bit images are scaled down to 8 bits per channel; other depths are rejected.
func Decode(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, &PreprocessError{Op: "decode", Err: ErrEmptyImage}
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		return Image{}, &PreprocessError{Op: "decode", Err: err}
	}
	if mat.Empty() {
		mat.Close()
		return Image{}, &PreprocessError{Op: "decode", Err: errors.New("unsupported image format")}
	}

	switch Depth(&mat) {
	case gocv.MatTypeCV8U:
	case gocv.MatTypeCV16U:
		// convertTo keeps the channel count and takes only the depth from the type
		narrow := gocv.NewMat()
		err := mat.ConvertToWithParams(&narrow, gocv.MatTypeCV8U, 255.0/65535.0, 0)
		mat.Close()
		if err != nil {
			narrow.Close()
			return Image{}, &PreprocessError{Op: "decode", Err: err}
		}
		mat = narrow
	default:
		d := Depth(&mat)
		mat.Close()
		return Image{}, &PreprocessError{Op: "decode", Err: fmt.Errorf("%w: type %d", ErrDepth, d)}
	}

	return Image{Mat: &mat, Order: BGR}, nil
}

// FromImage converts a Go image into a BGR Image. gocv's conversion writes
// OpenCV channel order even though it is named for RGB.
func FromImage(img image.Image) (Image, error) {
	if img == nil || img.Bounds().Empty() {
		return Image{}, &PreprocessError{Op: "convert", Err: ErrEmptyImage}
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return Image{}, &PreprocessError{Op: "convert", Err: err}
	}
	return Image{Mat: &mat, Order: BGR}, nil
}

// Empty reports whether the image has no pixels.
func (i Image) Empty() bool {
	return i.Mat == nil || i.Mat.Empty()
}

// Width returns the image width in pixels.
func (i Image) Width() int {
	if i.Mat == nil {
		return 0
	}
	return i.Mat.Cols()
}

// Height returns the image height in pixels.
func (i Image) Height() int {
	if i.Mat == nil {
		return 0
	}
	return i.Mat.Rows()
}

// Channels returns the number of channels.
func (i Image) Channels() int {
	if i.Mat == nil {
		return 0
	}
	return i.Mat.Channels()
}

// Close releases the underlying Mat.
func (i Image) Close() error {
	if i.Mat == nil {
		return nil
	}
	return i.Mat.Close()
}
