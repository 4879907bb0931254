package inference_test

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/tweet-sentiment/internal/inference"
	"github.com/spacesedan/tweet-sentiment/internal/inference/inferencetest"
	"github.com/spacesedan/tweet-sentiment/internal/models"
	"github.com/spacesedan/tweet-sentiment/internal/vectorizer"
)

const seqLen = 12

var vocab = []string{
	"", "[UNK]", "this", "is", "a", "great", "tweet", "and", "the", "model",
	"what", "an", "awful", "post", "im", "not", "happy", "with",
}

func newVectorizer(t *testing.T) *vectorizer.TextVectorizer {
	t.Helper()
	std := vectorizer.STANDARDIZE_LOWER_AND_STRIP
	split := vectorizer.SPLIT_WHITESPACE
	v, err := vectorizer.New(&vectorizer.Config{
		Name:                 "text_vectorization",
		OutputSequenceLength: seqLen,
		Standardize:          &std,
		Split:                &split,
		Vocabulary:           vocab,
	})
	require.NoError(t, err)
	return v
}

// lexiconModel scores 0.8 when "great" appears and 0.2 when "awful" does.
func lexiconModel() *inferencetest.FakeModel {
	m := inferencetest.NewFakeModel(seqLen, 0.5)
	m.ScoreFn = func(tokens []int64) (float32, error) {
		switch {
		case slices.Contains(tokens, 5):
			return 0.8, nil
		case slices.Contains(tokens, 12):
			return 0.2, nil
		}
		return 0.5, nil
	}
	return m
}

func TestPredict(t *testing.T) {
	v := newVectorizer(t)

	t.Run("positive example", func(t *testing.T) {
		res, err := inference.Predict(models.EXAMPLE_POSITIVE, v, lexiconModel())
		require.NoError(t, err)
		assert.Equal(t, models.LabelPositive, res.Label)
		assert.Greater(t, res.Confidence, 0.5)
		assert.InDelta(t, 0.8, res.Confidence, 1e-6)
	})

	t.Run("negative example reports complement", func(t *testing.T) {
		res, err := inference.Predict(models.EXAMPLE_NEGATIVE, v, lexiconModel())
		require.NoError(t, err)
		assert.Equal(t, models.LabelNegative, res.Label)
		assert.InDelta(t, 0.2, res.Score, 1e-6)
		assert.InDelta(t, 1-res.Score, res.Confidence, 1e-9)
	})

	t.Run("blank input skips tokenization and model", func(t *testing.T) {
		tok := &inferencetest.CountingTokenizer{Tokenizer: v}
		model := lexiconModel()

		for _, text := range []string{"", "   ", "\t\n"} {
			_, err := inference.Predict(text, tok, model)
			assert.ErrorIs(t, err, inference.ErrEmptyInput)
		}
		assert.Zero(t, tok.Calls())
		assert.Zero(t, model.Calls())
	})

	t.Run("long input is truncated before the model", func(t *testing.T) {
		model := lexiconModel()
		_, err := inference.Predict(strings.Repeat("great tweet ", 100), v, model)
		require.NoError(t, err)
		assert.Len(t, model.LastTokens(), seqLen)
		assert.EqualValues(t, 1, model.Calls())
	})

	t.Run("idempotent", func(t *testing.T) {
		model := lexiconModel()
		first, err := inference.Predict("what a great model", v, model)
		require.NoError(t, err)
		second, err := inference.Predict("what a great model", v, model)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("shape mismatch", func(t *testing.T) {
		model := inferencetest.NewFakeModel(seqLen+1, 0.9)
		_, err := inference.Predict("great", v, model)
		assert.ErrorIs(t, err, inference.ErrShapeMismatch)
		assert.Zero(t, model.Calls())
	})

	t.Run("dtype mismatch", func(t *testing.T) {
		model := inferencetest.NewFakeModel(seqLen, 0.9)
		model.InputSpec.DType = inference.DTypeFloat32
		_, err := inference.Predict("great", v, model)
		assert.ErrorIs(t, err, inference.ErrShapeMismatch)
	})

	t.Run("dynamic batch dimension binds", func(t *testing.T) {
		model := inferencetest.NewFakeModel(seqLen, 0.9)
		model.InputSpec.Shape = []int64{-1, seqLen}
		res, err := inference.Predict("great", v, model)
		require.NoError(t, err)
		assert.Equal(t, models.LabelPositive, res.Label)
	})

	t.Run("model failure surfaces as inference error", func(t *testing.T) {
		model := inferencetest.NewFakeModel(seqLen, 0)
		model.ScoreFn = func([]int64) (float32, error) {
			return 0, errors.New("kernel exploded")
		}
		_, err := inference.Predict("great", v, model)
		assert.ErrorIs(t, err, inference.ErrInference)
		assert.ErrorContains(t, err, "kernel exploded")
		assert.EqualValues(t, 1, model.Calls())
	})
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name       string
		score      float32
		label      models.Label
		confidence float64
	}{
		{"clear positive", 0.8, models.LabelPositive, 0.8},
		{"clear negative", 0.2, models.LabelNegative, 0.8},
		{"threshold is negative", 0.5, models.LabelNegative, 0.5},
		{"certain positive", 1, models.LabelPositive, 1},
		{"certain negative", 0, models.LabelNegative, 1},
		{"above range clamps", 1.3, models.LabelPositive, 1},
		{"below range clamps", -0.2, models.LabelNegative, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := inference.Decode(tt.score)
			require.NoError(t, err)
			assert.Equal(t, tt.label, res.Label)
			assert.InDelta(t, tt.confidence, res.Confidence, 1e-6)
			assert.GreaterOrEqual(t, res.Confidence, 0.0)
			assert.LessOrEqual(t, res.Confidence, 1.0)
		})
	}

	t.Run("reports the float32 value without widening digits", func(t *testing.T) {
		res, err := inference.Decode(0.9)
		require.NoError(t, err)
		assert.Equal(t, 0.9, res.Confidence)
		assert.Equal(t, 0.9, res.Score)

		res, err = inference.Decode(0.3)
		require.NoError(t, err)
		assert.Equal(t, 0.7, res.Confidence)
		assert.Equal(t, 0.3, res.Score)

		body, err := json.Marshal(res)
		require.NoError(t, err)
		assert.JSONEq(t, `{"label":"Negative","confidence":0.7,"score":0.3}`, string(body))
	})

	t.Run("non-finite score", func(t *testing.T) {
		_, err := inference.Decode(float32(math.NaN()))
		assert.ErrorIs(t, err, inference.ErrInference)
		_, err = inference.Decode(float32(math.Inf(1)))
		assert.ErrorIs(t, err, inference.ErrInference)
	})
}

func TestCheckOutput(t *testing.T) {
	assert.NoError(t, inference.CheckOutput(inference.TensorSpec{Shape: []int64{1, 1}, DType: inference.DTypeFloat32}))
	assert.NoError(t, inference.CheckOutput(inference.TensorSpec{Shape: []int64{-1, 1}, DType: inference.DTypeFloat32}))
	assert.Error(t, inference.CheckOutput(inference.TensorSpec{Shape: []int64{1, 2}, DType: inference.DTypeFloat32}))
	assert.Error(t, inference.CheckOutput(inference.TensorSpec{Shape: []int64{1, 1}, DType: inference.DTypeInt64}))
}
