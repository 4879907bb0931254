package inference

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spacesedan/tweet-sentiment/internal/models"
)

const POSITIVE_THRESHOLD = 0.5

// Predict runs one text through the vectorizer and the model. Blank text
// returns ErrEmptyInput before anything is tokenized. Failures are terminal
// for the request; nothing is retried.
func Predict(text string, tok Tokenizer, model Model) (models.PredictionResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.PredictionResult{}, ErrEmptyInput
	}

	tokens := tok.Vectorize(text)

	if err := checkInput(model.Input(), len(tokens)); err != nil {
		return models.PredictionResult{}, err
	}

	score, err := model.Run(tokens)
	if err != nil {
		return models.PredictionResult{}, fmt.Errorf("%w: %v", ErrInference, err)
	}

	return Decode(score)
}

// Decode turns the raw P(positive) into a label and the probability of that
// label.
func Decode(score float32) (models.PredictionResult, error) {
	s := float64(score)
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return models.PredictionResult{}, fmt.Errorf("%w: non-finite score %v", ErrInference, s)
	}
	s = clamp(s)

	if s > POSITIVE_THRESHOLD {
		return models.PredictionResult{
			Label:      models.LabelPositive,
			Confidence: shortest32(s),
			Score:      shortest32(s),
		}, nil
	}

	return models.PredictionResult{
		Label:      models.LabelNegative,
		Confidence: shortest32(1 - s),
		Score:      shortest32(s),
	}, nil
}

// shortest32 drops the digits a float32 score gains when widened, so 0.9
// reports as 0.9 and not 0.8999999761581421.
func shortest32(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', -1, 32), 64)
	if err != nil {
		return v
	}
	return r
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
