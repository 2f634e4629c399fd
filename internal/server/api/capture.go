package api

import (
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ayusman/suit/internal/capture"
	"github.com/ayusman/suit/internal/game"
)

// CaptureHandler takes the current player's photo from the server's camera.
type CaptureHandler struct {
	camera  capture.Camera
	session *game.Session
	opts    capture.StillOptions
	logger  zerolog.Logger

	// mu serializes captures; they share the camera and the motion baseline.
	mu     sync.Mutex
	motion *capture.MotionDetector
}

// NewCaptureHandler creates a CaptureHandler using the default still options.
func NewCaptureHandler(camera capture.Camera, session *game.Session, logger zerolog.Logger) *CaptureHandler {
	return &CaptureHandler{
		camera:  camera,
		session: session,
		opts:    capture.DefaultStillOptions(),
		logger:  logger,
		motion:  capture.NewMotionDetector(capture.DefaultMotionThreshold),
	}
}

// WithStillOptions replaces the options used to wait for a still frame.
func (h *CaptureHandler) WithStillOptions(opts capture.StillOptions) *CaptureHandler {
	h.opts = opts
	return h
}

// Routes registers the handler on r.
func (h *CaptureHandler) Routes(r chi.Router) {
	r.Post("/session/capture", h.captureTurn)
}

// captureTurn handles POST /api/session/capture: it waits for the hand to
// hold still, then submits that frame as the current turn.
func (h *CaptureHandler) captureTurn(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	img, err := capture.Still(r.Context(), h.camera, h.motion, h.opts)
	h.mu.Unlock()
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			return
		}
		h.logger.Warn().Err(err).Msg("camera capture failed")
		writeError(w, http.StatusServiceUnavailable, "Camera capture failed")
		return
	}
	defer img.Close()

	t, err := h.session.Submit(img)
	if err != nil {
		if errors.Is(err, game.ErrWrongPhase) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Session action failed")
		return
	}
	writeJSON(w, http.StatusOK, toTurnResponse(t))
}
