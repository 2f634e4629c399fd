package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ayusman/suit/internal/classifier"
	"github.com/ayusman/suit/internal/game"
	"github.com/ayusman/suit/internal/gesture"
	"github.com/ayusman/suit/internal/model"
)

// ModelInfo reports the state of the loaded model.
type ModelInfo interface {
	Info() model.Info
}

// GameHandler serves classification, resolution and the live session.
type GameHandler struct {
	session  *game.Session
	classify classifier.Classify
	model    ModelInfo
	logger   zerolog.Logger
}

// NewGameHandler creates a GameHandler. model may be nil when no model is configured.
func NewGameHandler(session *game.Session, c classifier.Classify, m ModelInfo, logger zerolog.Logger) *GameHandler {
	return &GameHandler{
		session:  session,
		classify: c,
		model:    m,
		logger:   logger,
	}
}

// Routes registers the handler on r.
func (h *GameHandler) Routes(r chi.Router) {
	r.Get("/model", h.modelInfo)
	r.Post("/classify", h.classifyImage)
	r.Post("/resolve", h.resolve)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.snapshot)
		r.Post("/start", h.start)
		r.Post("/turn", h.turn)
		r.Post("/manual", h.manual)
		r.Post("/next", h.next)
		r.Post("/reset", h.reset)
	})
}

type resultResponse struct {
	Label      gesture.Label `json:"label"`
	Local      string        `json:"local"`
	Emoji      string        `json:"emoji"`
	Confidence float64       `json:"confidence"`
	Source     string        `json:"source"`
}

func toResultResponse(r classifier.Result) resultResponse {
	return resultResponse{
		Label:      r.Label,
		Local:      r.Label.Local(),
		Emoji:      r.Label.Emoji(),
		Confidence: r.Confidence,
		Source:     r.Source,
	}
}

type resolveRequest struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
}

type verdictResponse struct {
	gesture.Verdict
	Narration string `json:"narration"`
}

type turnResponse struct {
	Player   int            `json:"player"`
	Result   resultResponse `json:"result"`
	Detected bool           `json:"detected"`
	Phase    game.Phase     `json:"phase"`
}

type manualRequest struct {
	Gesture string `json:"gesture"`
}

// modelInfo handles GET /api/model.
func (h *GameHandler) modelInfo(w http.ResponseWriter, r *http.Request) {
	if h.model == nil {
		writeJSON(w, http.StatusOK, model.Info{
			State:  model.Unloaded.String(),
			Labels: gesture.DefaultLabels().Strings(),
		})
		return
	}
	writeJSON(w, http.StatusOK, h.model.Info())
}

// classifyImage handles POST /api/classify with a multipart "image" field.
func (h *GameHandler) classifyImage(w http.ResponseWriter, r *http.Request) {
	img, err := readImage(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer img.Close()

	writeJSON(w, http.StatusOK, toResultResponse(h.classify.Predict(img)))
}

// resolve handles POST /api/resolve. Names outside the playable set resolve
// to an undetermined tie.
func (h *GameHandler) resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	a, _ := gesture.ParseLabel(req.Player1)
	b, _ := gesture.ParseLabel(req.Player2)
	v := gesture.Resolve(a, b)
	writeJSON(w, http.StatusOK, verdictResponse{Verdict: v, Narration: v.LocalReason()})
}

// snapshot handles GET /api/session.
func (h *GameHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// start handles POST /api/session/start.
func (h *GameHandler) start(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Start(); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// turn handles POST /api/session/turn with a multipart "image" field.
func (h *GameHandler) turn(w http.ResponseWriter, r *http.Request) {
	img, err := readImage(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer img.Close()

	t, err := h.session.Submit(img)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTurnResponse(t))
}

// manual handles POST /api/session/manual.
func (h *GameHandler) manual(w http.ResponseWriter, r *http.Request) {
	var req manualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	label, _ := gesture.ParseLabel(req.Gesture)
	t, err := h.session.Choose(label)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTurnResponse(t))
}

// next handles POST /api/session/next.
func (h *GameHandler) next(w http.ResponseWriter, r *http.Request) {
	if err := h.session.NextRound(); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// reset handles POST /api/session/reset.
func (h *GameHandler) reset(w http.ResponseWriter, r *http.Request) {
	h.session.Reset()
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

func toTurnResponse(t game.Turn) turnResponse {
	return turnResponse{
		Player:   t.Player,
		Result:   toResultResponse(t.Result),
		Detected: t.Detected,
		Phase:    t.Phase,
	}
}

func (h *GameHandler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrWrongPhase):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInvalidGesture):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("session action failed")
		writeError(w, http.StatusInternalServerError, "Session action failed")
	}
}
