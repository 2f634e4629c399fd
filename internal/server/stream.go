package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/coder/quartz"
	"gocv.io/x/gocv"

	"github.com/ayusman/suit/internal/capture"
	"github.com/ayusman/suit/internal/vision"
)

// streamInterval paces the MJPEG stream at roughly 15 FPS.
const streamInterval = 66 * time.Millisecond

// StreamHandler serves MJPEG frames from the camera so players can line up
// their hand before a capture.
type StreamHandler struct {
	camera capture.Camera
	clock  quartz.Clock
}

// NewStreamHandler creates a new StreamHandler with the given camera.
func NewStreamHandler(camera capture.Camera, clock quartz.Clock) *StreamHandler {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &StreamHandler{camera: camera, clock: clock}
}

// ServeHTTP streams MJPEG frames until the client goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.camera.IsOpen() {
		if err := h.camera.Open(); err != nil {
			http.Error(w, "Camera unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := h.clock.NewTicker(streamInterval, "stream")
	defer ticker.Stop()

	for {
		frame, err := h.camera.ReadFrame()
		if err == nil {
			err = writeFrame(w, frame)
			frame.Close()
			if err != nil {
				return
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writeFrame(w http.ResponseWriter, frame vision.Image) error {
	src := frame.Mat
	if frame.Order == vision.RGB && frame.Channels() == 3 {
		bgr := gocv.NewMat()
		defer bgr.Close()
		if err := gocv.CvtColor(*frame.Mat, &bgr, gocv.ColorRGBToBGR); err != nil {
			return nil
		}
		src = &bgr
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *src)
	if err != nil {
		// skip frames that fail to encode
		return nil
	}
	defer buf.Close()

	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", buf.Len()); err != nil {
		return err
	}
	if _, err := w.Write(buf.GetBytes()); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
