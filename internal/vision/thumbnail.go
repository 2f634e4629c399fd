package vision

import (
	"bytes"
	"image/jpeg"

	"github.com/nfnt/resize"
	"gocv.io/x/gocv"
)

// DefaultThumbnailSize bounds the longer side of stored round thumbnails.
const DefaultThumbnailSize = 160

// Thumbnail encodes a JPEG copy of img whose longer side is at most maxSize.
func Thumbnail(img Image, maxSize uint) ([]byte, error) {
	if img.Empty() {
		return nil, &PreprocessError{Op: "thumbnail", Err: ErrEmptyImage}
	}

	// ToImage assumes OpenCV channel order
	src := img.Mat
	if img.Order == RGB && img.Channels() == 3 {
		bgr := gocv.NewMat()
		defer bgr.Close()
		if err := gocv.CvtColor(*img.Mat, &bgr, gocv.ColorRGBToBGR); err != nil {
			return nil, &PreprocessError{Op: "thumbnail", Err: err}
		}
		src = &bgr
	}

	goImg, err := src.ToImage()
	if err != nil {
		return nil, &PreprocessError{Op: "thumbnail", Err: err}
	}

	thumb := resize.Thumbnail(maxSize, maxSize, goImg, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, &PreprocessError{Op: "thumbnail", Err: err}
	}
	return buf.Bytes(), nil
}
