// Package classifier assigns a gesture label to a photo of a hand.
//
// A Classifier runs an ordered list of Predictors and returns the first
// result produced. The Heuristic is always the last stage and never fails,
// so Predict always returns a Result.
package classifier

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/suit/internal/gesture"
	"github.com/ayusman/suit/internal/metric"
	"github.com/ayusman/suit/internal/model"
	"github.com/ayusman/suit/internal/vision"
)

// Result sources.
const (
	SourceModel     = "model"
	SourceHeuristic = "heuristic"
	SourceRandom    = "random"
	SourceManual    = "manual"
)

// Result is the outcome of classifying one photo.
type Result struct {
	Label      gesture.Label `json:"label"`
	Confidence float64       `json:"confidence"`
	Source     string        `json:"source"`
}

// Manual returns the Result for a gesture chosen by hand.
func Manual(label gesture.Label) Result {
	return Result{Label: label, Confidence: 1.0, Source: SourceManual}
}

// Predictor is one stage of the classification cascade.
type Predictor interface {
	Name() string
	Predict(img vision.Image) (Result, error)
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger used for stage failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Classifier) { c.logger = logger }
}

// WithMetrics sets the statsd client used for stage outcomes.
func WithMetrics(client metric.Client) Option {
	return func(c *Classifier) { c.metrics = client }
}

// Classifier runs predictors in order and stops at the first success.
type Classifier struct {
	stages   []Predictor
	terminal *Heuristic
	logger   zerolog.Logger
	metrics  metric.Client
}

// New creates a Classifier over stages, ending in terminal. A nil terminal
// gets a time-seeded Heuristic.
func New(stages []Predictor, terminal *Heuristic, opts ...Option) *Classifier {
	if terminal == nil {
		terminal = NewHeuristic(0)
	}
	c := &Classifier{
		stages:   stages,
		terminal: terminal,
		logger:   zerolog.Nop(),
		metrics:  metric.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewDefault creates the standard cascade: the model behind handle, then the heuristic.
func NewDefault(handle *model.Handle, heuristic *Heuristic, opts ...Option) *Classifier {
	return New([]Predictor{NewModelPredictor(handle, vision.NewPreprocessor())}, heuristic, opts...)
}

// Stages returns the stage names in order, including the terminal heuristic.
func (c *Classifier) Stages() []string {
	names := make([]string, 0, len(c.stages)+1)
	for _, s := range c.stages {
		names = append(names, s.Name())
	}
	return append(names, c.terminal.Name())
}

// Predict classifies img. It always returns a Result.
func (c *Classifier) Predict(img vision.Image) Result {
	start := time.Now()
	defer func() {
		_ = c.metrics.Timing(metric.ClassifierPredict, time.Since(start), nil, 1)
	}()

	for _, stage := range c.stages {
		r, err := c.run(stage, img)
		if err == nil {
			c.count(stage.Name(), metric.TagValueSuccess)
			return r
		}
		c.count(stage.Name(), metric.TagValueFailure)

		ev := c.logger.Warn()
		if errors.Is(err, ErrModelUnavailable) {
			ev = c.logger.Debug()
		}
		ev.Err(err).Str("stage", stage.Name()).Msg("classifier stage failed, falling back")
	}

	r := c.terminal.Classify(img)
	c.count(r.Source, metric.TagValueSuccess)
	return r
}

// run calls a stage, converting a panic into an error.
func (c *Classifier) run(stage Predictor, img vision.Image) (r Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r = Result{}
			err = fmt.Errorf("%s panicked: %v", stage.Name(), rec)
		}
	}()
	return stage.Predict(img)
}

func (c *Classifier) count(stage, outcome string) {
	_ = c.metrics.Incr(metric.ClassifierStage, metric.BuildTag(
		metric.NewTag(metric.TagStage, stage),
		metric.NewTag(metric.TagOutcome, outcome),
	), 1)
}
