// Package game runs a two-player rock-paper-scissors session.
//
// A session moves welcome -> player1 -> player2 -> results and back to
// player1 for the next round. Each player turn is a photo classified by the
// gesture classifier, or a manual choice when the photo was not recognized.
package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayusman/suit/internal/classifier"
	"github.com/ayusman/suit/internal/gesture"
	"github.com/ayusman/suit/internal/metric"
	"github.com/ayusman/suit/internal/vision"
)

// Phase is a step of the game.
type Phase string

const (
	Welcome Phase = "welcome"
	Player1 Phase = "player1"
	Player2 Phase = "player2"
	Results Phase = "results"
)

// DefaultThreshold is the confidence at or below which a photo counts as not recognized.
const DefaultThreshold = 0.3

var (
	// ErrWrongPhase is returned when an action is not allowed in the current phase.
	ErrWrongPhase = errors.New("action not allowed in current phase")

	// ErrInvalidGesture is returned for a manual choice outside rock, scissors and paper.
	ErrInvalidGesture = errors.New("invalid gesture")
)

// Turn is the outcome of one player's move.
type Turn struct {
	Player   int               `json:"player"`
	Result   classifier.Result `json:"result"`
	Detected bool              `json:"detected"`
	Phase    Phase             `json:"phase"`
}

// Score is the running tally of a session.
type Score struct {
	Player1 int `json:"player1"`
	Player2 int `json:"player2"`
	Ties    int `json:"ties"`
	Rounds  int `json:"rounds"`
}

// Round is a resolved round.
type Round struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	Number    int               `json:"number"`
	Player1   classifier.Result `json:"player1"`
	Player2   classifier.Result `json:"player2"`
	Verdict   gesture.Verdict   `json:"verdict"`
	Score     Score             `json:"score"`
	PlayedAt  time.Time         `json:"played_at"`

	// JPEG thumbnails of the submitted photos, nil for manual choices.
	Player1Thumb []byte `json:"-"`
	Player2Thumb []byte `json:"-"`
}

// Observer is notified after each round is resolved.
type Observer func(Round)

// Config holds session options.
type Config struct {
	// Threshold is the confidence at or below which a turn is not detected.
	Threshold float64

	// Thumbnails stores a small JPEG of each submitted photo in the Round.
	Thumbnails bool

	Clock   quartz.Clock
	Logger  zerolog.Logger
	Metrics metric.Client
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Threshold:  DefaultThreshold,
		Thumbnails: true,
		Clock:      quartz.NewReal(),
		Logger:     zerolog.Nop(),
		Metrics:    metric.Nop(),
	}
}

// Snapshot is the observable state of a session.
type Snapshot struct {
	SessionID string             `json:"session_id"`
	Phase     Phase              `json:"phase"`
	Score     Score              `json:"score"`
	Player1   *classifier.Result `json:"player1,omitempty"`
	Player2   *classifier.Result `json:"player2,omitempty"`
	LastRound *Round             `json:"last_round,omitempty"`
	StartedAt time.Time          `json:"started_at"`
}

// Session is a game between two players sharing one classifier.
// It is safe for concurrent use.
type Session struct {
	id       string
	cfg      Config
	classify classifier.Classify

	mu        sync.Mutex
	phase     Phase
	choices   [2]*classifier.Result
	thumbs    [2][]byte
	score     Score
	last      *Round
	observers []Observer
	startedAt time.Time
}

// NewSession creates a session in the welcome phase.
func NewSession(c classifier.Classify, cfg Config) *Session {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metric.Nop()
	}
	return &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		classify:  c,
		phase:     Welcome,
		startedAt: cfg.Clock.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Subscribe registers o to be called after every resolved round.
func (s *Session) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Score returns the current tally.
func (s *Session) Score() Score {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// Start moves from welcome to player 1's turn.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Welcome {
		return fmt.Errorf("%w: start in %s", ErrWrongPhase, s.phase)
	}
	s.enterTurn(Player1)
	return nil
}

// Submit classifies a photo for the player whose turn it is. When the result
// is not detected the phase does not change and the player may retry or
// choose manually.
func (s *Session) Submit(img vision.Image) (Turn, error) {
	s.mu.Lock()

	idx, err := s.turnIndex("submit")
	if err != nil {
		s.mu.Unlock()
		return Turn{}, err
	}

	r := s.classify.Predict(img)
	if s.cfg.Thumbnails {
		thumb, err := vision.Thumbnail(img, vision.DefaultThumbnailSize)
		if err != nil {
			s.cfg.Logger.Debug().Err(err).Msg("thumbnail skipped")
		}
		s.thumbs[idx] = thumb
	}

	if !r.Label.Valid() || r.Confidence <= s.cfg.Threshold {
		turn := Turn{Player: idx + 1, Result: r, Detected: false, Phase: s.phase}
		s.mu.Unlock()
		s.cfg.Logger.Info().
			Int("player", idx+1).
			Str("label", string(r.Label)).
			Float64("confidence", r.Confidence).
			Msg("gesture not detected")
		return turn, nil
	}

	return s.record(idx, r)
}

// Choose records a manually selected gesture for the player whose turn it is.
func (s *Session) Choose(label gesture.Label) (Turn, error) {
	if !label.Valid() {
		return Turn{}, fmt.Errorf("%w: %q", ErrInvalidGesture, label)
	}

	s.mu.Lock()
	idx, err := s.turnIndex("choose")
	if err != nil {
		s.mu.Unlock()
		return Turn{}, err
	}
	return s.record(idx, classifier.Manual(label))
}

// NextRound starts another round, keeping the score.
func (s *Session) NextRound() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != Results {
		return fmt.Errorf("%w: next round in %s", ErrWrongPhase, s.phase)
	}
	s.enterTurn(Player1)
	return nil
}

// Reset returns to the welcome phase. Pending choices are discarded; the
// score is kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = Welcome
	s.choices = [2]*classifier.Result{}
	s.thumbs = [2][]byte{}
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID: s.id,
		Phase:     s.phase,
		Score:     s.score,
		StartedAt: s.startedAt,
	}
	if s.choices[0] != nil {
		r := *s.choices[0]
		snap.Player1 = &r
	}
	if s.choices[1] != nil {
		r := *s.choices[1]
		snap.Player2 = &r
	}
	if s.last != nil {
		last := *s.last
		snap.LastRound = &last
	}
	return snap
}

// turnIndex returns 0 or 1 for the player whose turn it is. Must hold mu.
func (s *Session) turnIndex(action string) (int, error) {
	switch s.phase {
	case Player1:
		return 0, nil
	case Player2:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %s in %s", ErrWrongPhase, action, s.phase)
	}
}

// enterTurn clears pending state and moves to p. Must hold mu.
func (s *Session) enterTurn(p Phase) {
	s.phase = p
	if p == Player1 {
		s.choices = [2]*classifier.Result{}
		s.thumbs = [2][]byte{}
	}
}

// record stores the move of player idx and advances. Called with mu held;
// it releases mu before notifying observers.
func (s *Session) record(idx int, r classifier.Result) (Turn, error) {
	s.choices[idx] = &r
	if r.Source == classifier.SourceManual {
		s.thumbs[idx] = nil
	}

	if idx == 0 {
		s.phase = Player2
		turn := Turn{Player: 1, Result: r, Detected: true, Phase: s.phase}
		s.mu.Unlock()
		return turn, nil
	}

	round := s.resolve()
	s.phase = Results
	turn := Turn{Player: 2, Result: r, Detected: true, Phase: s.phase}
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	s.cfg.Logger.Info().
		Str("session", round.SessionID).
		Int("round", round.Number).
		Str("player1", string(round.Player1.Label)).
		Str("player2", string(round.Player2.Label)).
		Str("outcome", string(round.Verdict.Outcome)).
		Msg("round resolved")
	_ = s.cfg.Metrics.Incr(metric.RoundsResolved, metric.BuildTag(
		metric.NewTag(metric.TagOutcome, string(round.Verdict.Outcome)),
	), 1)

	for _, o := range observers {
		o(round)
	}
	return turn, nil
}

// resolve decides the round and updates the score. Must hold mu.
func (s *Session) resolve() Round {
	p1, p2 := *s.choices[0], *s.choices[1]
	v := gesture.Resolve(p1.Label, p2.Label)

	switch v.Outcome {
	case gesture.WinnerA:
		s.score.Player1++
	case gesture.WinnerB:
		s.score.Player2++
	default:
		s.score.Ties++
	}
	s.score.Rounds++

	round := Round{
		ID:           uuid.NewString(),
		SessionID:    s.id,
		Number:       s.score.Rounds,
		Player1:      p1,
		Player2:      p2,
		Verdict:      v,
		Score:        s.score,
		PlayedAt:     s.cfg.Clock.Now(),
		Player1Thumb: s.thumbs[0],
		Player2Thumb: s.thumbs[1],
	}
	s.last = &round
	return round
}
