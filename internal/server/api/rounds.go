package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/suit/internal/store"
)

// DefaultListLimit caps GET /api/rounds when no limit is given.
const DefaultListLimit = 50

// RoundsHandler serves the round history.
type RoundsHandler struct {
	store *store.Store
}

// NewRoundsHandler creates a new RoundsHandler with the given store.
func NewRoundsHandler(s *store.Store) *RoundsHandler {
	return &RoundsHandler{store: s}
}

// Routes registers the handler on r.
func (h *RoundsHandler) Routes(r chi.Router) {
	r.Route("/rounds", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/tally", h.tally)
		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.delete)
		r.Get("/{id}/thumbnail/{player}", h.thumbnail)
	})
}

type roundResponse struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	Number    int        `json:"number"`
	Player1   store.Move `json:"player1"`
	Player2   store.Move `json:"player2"`
	Outcome   string     `json:"outcome"`
	Reason    string     `json:"reason"`
	CreatedAt string     `json:"created_at"`
	Thumbs    []int      `json:"thumbnails,omitempty"`
}

type listRoundsResponse struct {
	Rounds []roundResponse `json:"rounds"`
}

// toResponse converts a store.Round to a roundResponse.
func toResponse(rd *store.Round) roundResponse {
	resp := roundResponse{
		ID:        rd.ID,
		SessionID: rd.SessionID,
		Number:    rd.Number,
		Player1:   rd.Player1,
		Player2:   rd.Player2,
		Outcome:   string(rd.Outcome),
		Reason:    rd.Reason,
		CreatedAt: rd.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if len(rd.Player1Thumb) > 0 {
		resp.Thumbs = append(resp.Thumbs, 1)
	}
	if len(rd.Player2Thumb) > 0 {
		resp.Thumbs = append(resp.Thumbs, 2)
	}
	return resp
}

// list handles GET /api/rounds?session=&limit= and returns newest rounds first.
func (h *RoundsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	rounds, err := h.store.Rounds().List(r.URL.Query().Get("session"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rounds")
		return
	}

	response := listRoundsResponse{Rounds: make([]roundResponse, 0, len(rounds))}
	for _, rd := range rounds {
		response.Rounds = append(response.Rounds, toResponse(rd))
	}
	writeJSON(w, http.StatusOK, response)
}

// tally handles GET /api/rounds/tally?session=.
func (h *RoundsHandler) tally(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "Session is required")
		return
	}

	t, err := h.store.Rounds().Tally(sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to tally rounds")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// get handles GET /api/rounds/{id}.
func (h *RoundsHandler) get(w http.ResponseWriter, r *http.Request) {
	rd, err := h.store.Rounds().Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Round not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get round")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(rd))
}

// delete handles DELETE /api/rounds/{id}.
func (h *RoundsHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.store.Rounds().Delete(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Round not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete round")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// thumbnail handles GET /api/rounds/{id}/thumbnail/{player}.
func (h *RoundsHandler) thumbnail(w http.ResponseWriter, r *http.Request) {
	player, err := strconv.Atoi(chi.URLParam(r, "player"))
	if err != nil || (player != 1 && player != 2) {
		writeError(w, http.StatusBadRequest, "Player must be 1 or 2")
		return
	}

	thumb, err := h.store.Rounds().Thumbnail(chi.URLParam(r, "id"), player)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Thumbnail not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get thumbnail")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(thumb)))
	w.Write(thumb)
}
