package e2e

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/suit/internal/app"
	"github.com/ayusman/suit/internal/model"
	"github.com/ayusman/suit/internal/server"
	"github.com/ayusman/suit/testdata"
)

func uploadPhoto(t *testing.T, client *http.Client, url string, photo []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "hand.png")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	part.Write(photo)
	mw.Close()

	resp, err := client.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return resp
}

func postJSON(t *testing.T, client *http.Client, url, body string) *http.Response {
	t.Helper()
	resp, err := client.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return resp
}

func TestE2E_CompleteRound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()

	// the stub model answers scissors for every photo
	m := model.NewMockModel(0.05, 0.9, 0.05)
	application, err := app.New(app.Config{
		ModelPath:  filepath.Join(tmpDir, "model.onnx"),
		LabelsPath: filepath.Join(tmpDir, "labels.txt"),
		DBPath:     filepath.Join(tmpDir, "data.db"),
		Thumbnails: true,
		CacheSize:  32,
		Seed:       1,
		Strategies: []model.Strategy{model.StaticStrategy("stub", m)},
		Logger:     zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Close()

	ts := httptest.NewServer(application.Server("", nil))
	defer ts.Close()

	client := ts.Client()
	photo, err := testdata.HandPNG(320, 240, testdata.TwoFingers)
	if err != nil {
		t.Fatalf("HandPNG() error = %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/events", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	t.Run("Classify", func(t *testing.T) {
		resp := uploadPhoto(t, client, ts.URL+"/api/classify", photo)
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		var result struct {
			Label  string `json:"label"`
			Local  string `json:"local"`
			Source string `json:"source"`
		}
		json.NewDecoder(resp.Body).Decode(&result)
		if result.Label != "scissors" || result.Local != "gunting" || result.Source != "model" {
			t.Errorf("result = %+v, want scissors from model", result)
		}
	})

	t.Run("ModelInfo", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/model")
		if err != nil {
			t.Fatalf("GET /api/model error = %v", err)
		}
		defer resp.Body.Close()

		var info model.Info
		json.NewDecoder(resp.Body).Decode(&info)
		if !info.Loaded || info.Strategy != "stub" {
			t.Errorf("info = %+v, want loaded by stub", info)
		}
	})

	var roundID string
	t.Run("PlayRound", func(t *testing.T) {
		postJSON(t, client, ts.URL+"/api/session/start", "").Body.Close()

		resp := uploadPhoto(t, client, ts.URL+"/api/session/turn", photo)
		var turn struct {
			Detected bool   `json:"detected"`
			Phase    string `json:"phase"`
		}
		json.NewDecoder(resp.Body).Decode(&turn)
		resp.Body.Close()
		if !turn.Detected || turn.Phase != "player2" {
			t.Fatalf("turn = %+v, want detected and player2's turn", turn)
		}

		resp = postJSON(t, client, ts.URL+"/api/session/manual", `{"gesture": "kertas"}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("manual status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var event server.Event
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if event.Round == nil {
			t.Fatalf("event = %+v, want a round", event)
		}
		if event.Round.Verdict.Reason != "scissors beats paper" {
			t.Errorf("reason = %q, want %q", event.Round.Verdict.Reason, "scissors beats paper")
		}
		roundID = event.Round.ID
	})

	t.Run("History", func(t *testing.T) {
		if roundID == "" {
			t.Skip("no round played")
		}

		resp, err := client.Get(ts.URL + "/api/rounds/" + roundID)
		if err != nil {
			t.Fatalf("GET round error = %v", err)
		}
		var round struct {
			Outcome string `json:"outcome"`
			Thumbs  []int  `json:"thumbnails"`
		}
		json.NewDecoder(resp.Body).Decode(&round)
		resp.Body.Close()

		if round.Outcome != "winner_a" {
			t.Errorf("outcome = %s, want winner_a", round.Outcome)
		}
		if len(round.Thumbs) != 1 || round.Thumbs[0] != 1 {
			t.Errorf("thumbnails = %v, want only player 1", round.Thumbs)
		}

		resp, err = client.Get(ts.URL + "/api/rounds/" + roundID + "/thumbnail/1")
		if err != nil {
			t.Fatalf("GET thumbnail error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/jpeg" {
			t.Errorf("thumbnail status = %d, type = %s", resp.StatusCode, resp.Header.Get("Content-Type"))
		}
	})

	t.Run("CacheSkipsRepeatInference", func(t *testing.T) {
		// the classify call and the turn sent the same photo
		if m.Calls() != 1 {
			t.Errorf("model calls = %d, want 1", m.Calls())
		}
	})
}
