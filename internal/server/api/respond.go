// Package api provides the HTTP handlers for the game, classification and
// round history endpoints.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ayusman/suit/internal/vision"
)

// MaxUploadSize bounds multipart photo uploads.
const MaxUploadSize = 10 << 20

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

var errNoImage = errors.New("no image file provided, use 'image' as the form field name")

// readImage decodes the "image" field of a multipart upload. The caller
// closes the returned image.
func readImage(w http.ResponseWriter, r *http.Request) (vision.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		return vision.Image{}, fmt.Errorf("parse form: %w", err)
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		return vision.Image{}, errNoImage
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return vision.Image{}, fmt.Errorf("read image: %w", err)
	}
	return vision.Decode(data)
}
