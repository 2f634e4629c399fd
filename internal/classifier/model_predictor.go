package classifier

import (
	"errors"
	"fmt"

	"github.com/ayusman/suit/internal/model"
	"github.com/ayusman/suit/internal/vision"
)

// ErrModelUnavailable is returned by ModelPredictor when the model could not be loaded.
var ErrModelUnavailable = errors.New("model unavailable")

// ModelPredictor classifies with the pretrained model.
type ModelPredictor struct {
	handle *model.Handle
	prep   *vision.Preprocessor
}

// NewModelPredictor creates a ModelPredictor. The handle is loaded on first use.
func NewModelPredictor(handle *model.Handle, prep *vision.Preprocessor) *ModelPredictor {
	if prep == nil {
		prep = vision.NewPreprocessor()
	}
	return &ModelPredictor{handle: handle, prep: prep}
}

func (p *ModelPredictor) Name() string { return SourceModel }

// Predict preprocesses img, runs the model and maps the highest score to a label.
// Confidence is the raw score of that class. An index past the label table
// yields gesture.Unknown.
func (p *ModelPredictor) Predict(img vision.Image) (Result, error) {
	if p.handle.State() == model.Failed {
		return Result{}, ErrModelUnavailable
	}

	m, err := p.handle.Ensure()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	tensor, err := p.prep.Preprocess(img)
	if err != nil {
		return Result{}, err
	}

	scores, err := m.Predict(tensor)
	if err != nil {
		return Result{}, err
	}
	if len(scores) == 0 {
		return Result{}, fmt.Errorf("%w: empty model output", model.ErrInference)
	}

	idx := argmax(scores)
	return Result{
		Label:      p.handle.Labels().At(idx),
		Confidence: float64(scores[idx]),
		Source:     SourceModel,
	}, nil
}

// argmax returns the index of the largest score, the first on ties.
func argmax(scores []float32) int {
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return best
}
