package analyzer

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/tweet-sentiment/internal/artifacts"
	"github.com/spacesedan/tweet-sentiment/internal/inference"
	"github.com/spacesedan/tweet-sentiment/internal/inference/inferencetest"
	"github.com/spacesedan/tweet-sentiment/internal/metrics"
	"github.com/spacesedan/tweet-sentiment/internal/models"
	"github.com/spacesedan/tweet-sentiment/internal/vectorizer"
)

const seqLen = 10

type mapCache struct {
	mu      sync.Mutex
	entries map[string]models.PredictionResult
	gets    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]models.PredictionResult{}}
}

func (c *mapCache) Get(_ context.Context, fingerprint, text string) (models.PredictionResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	r, ok := c.entries[fingerprint+"/"+text]
	return r, ok
}

func (c *mapCache) Set(_ context.Context, fingerprint, text string, r models.PredictionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint+"/"+text] = r
}

type fixture struct {
	model       *inferencetest.FakeModel
	tok         *inferencetest.CountingTokenizer
	fingerprint string
	loads       int
	store       *artifacts.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	v, err := vectorizer.New(&vectorizer.Config{
		Name:                 "text_vectorization",
		OutputSequenceLength: seqLen,
		Vocabulary:           []string{"", "[UNK]", "great", "awful"},
	})
	require.NoError(t, err)

	f := &fixture{model: inferencetest.NewFakeModel(seqLen, 0.5), fingerprint: "a1b2c3d4e5f60718"}
	f.model.ScoreFn = func(tokens []int64) (float32, error) {
		if slices.Contains(tokens, 2) {
			return 0.9, nil
		}
		return 0.1, nil
	}
	f.tok = &inferencetest.CountingTokenizer{Tokenizer: v}
	f.store = artifacts.NewStore(func() (*artifacts.Artifacts, error) {
		f.loads++
		return &artifacts.Artifacts{Vectorizer: f.tok, Model: f.model, Fingerprint: f.fingerprint}, nil
	})
	return f
}

func TestService_Analyze(t *testing.T) {
	ctx := context.Background()

	t.Run("classifies text", func(t *testing.T) {
		f := newFixture(t)
		svc := NewService(f.store)

		res, err := svc.Analyze(ctx, "  great stuff ")
		require.NoError(t, err)
		assert.Equal(t, models.LabelPositive, res.Label)
		assert.InDelta(t, 0.9, res.Confidence, 1e-6)

		res, err = svc.Analyze(ctx, "awful stuff")
		require.NoError(t, err)
		assert.Equal(t, models.LabelNegative, res.Label)
		assert.InDelta(t, 0.9, res.Confidence, 1e-6)
		assert.Nil(t, res.Baseline)
	})

	t.Run("loads artifacts once across requests", func(t *testing.T) {
		f := newFixture(t)
		svc := NewService(f.store)

		for i := 0; i < 10; i++ {
			_, err := svc.Analyze(ctx, "great")
			require.NoError(t, err)
		}
		assert.Equal(t, 1, f.loads)
		assert.True(t, svc.Ready())
		assert.False(t, svc.Unavailable())
	})

	t.Run("empty input never reaches the model", func(t *testing.T) {
		f := newFixture(t)
		svc := NewService(f.store)

		_, err := svc.Analyze(ctx, "   ")
		assert.ErrorIs(t, err, inference.ErrEmptyInput)
		assert.Zero(t, f.tok.Calls())
		assert.Zero(t, f.model.Calls())
	})

	t.Run("unavailable when artifacts are missing", func(t *testing.T) {
		dir := t.TempDir()
		loader := &artifacts.Loader{
			BundlePath:      filepath.Join(dir, "vectorizer.json"),
			ModelPath:       filepath.Join(dir, "model.onnx"),
			VectorizerLayer: "text_vectorization",
		}
		loads := 0
		store := artifacts.NewStore(func() (*artifacts.Artifacts, error) {
			loads++
			return loader.Load()
		})
		svc := NewService(store)

		err := svc.Warmup()
		assert.ErrorIs(t, err, artifacts.ErrLoad)

		for i := 0; i < 3; i++ {
			_, err := svc.Analyze(ctx, models.EXAMPLE_POSITIVE)
			assert.ErrorIs(t, err, inference.ErrUnavailable)
			assert.False(t, errors.Is(err, inference.ErrInference))
		}
		assert.Equal(t, 1, loads)
		assert.False(t, svc.Ready())
		assert.True(t, svc.Unavailable())
	})

	t.Run("unavailable skips tokenization", func(t *testing.T) {
		f := newFixture(t)
		store := artifacts.NewStore(func() (*artifacts.Artifacts, error) {
			return nil, &artifacts.LoadError{Artifact: artifacts.ARTIFACT_MODEL, Err: errors.New("gone")}
		})
		svc := NewService(store)

		_, err := svc.Analyze(ctx, "great")
		assert.ErrorIs(t, err, inference.ErrUnavailable)
		assert.Zero(t, f.tok.Calls())
		assert.Zero(t, f.model.Calls())
	})

	t.Run("panicking load reports unavailable", func(t *testing.T) {
		store := artifacts.NewStore(func() (*artifacts.Artifacts, error) {
			panic("runtime library missing symbol")
		})
		svc := NewService(store)

		assert.ErrorIs(t, svc.Warmup(), artifacts.ErrLoad)
		_, err := svc.Analyze(ctx, "great")
		assert.ErrorIs(t, err, inference.ErrUnavailable)
		assert.True(t, svc.Unavailable())
		assert.False(t, svc.Ready())
	})

	t.Run("inference failure is not retried", func(t *testing.T) {
		f := newFixture(t)
		f.model.ScoreFn = func([]int64) (float32, error) { return 0, errors.New("oom") }
		svc := NewService(f.store)

		_, err := svc.Analyze(ctx, "great")
		assert.ErrorIs(t, err, inference.ErrInference)
		assert.EqualValues(t, 1, f.model.Calls())
	})

	t.Run("cache serves repeated text", func(t *testing.T) {
		f := newFixture(t)
		cache := newMapCache()
		healthy := &atomic.Bool{}
		healthy.Store(true)
		svc := NewService(f.store, WithCache(cache, healthy))

		first, err := svc.Analyze(ctx, "great")
		require.NoError(t, err)
		second, err := svc.Analyze(ctx, " great ")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.EqualValues(t, 1, f.model.Calls())

		_, err = svc.Analyze(ctx, "awful")
		require.NoError(t, err)
		assert.EqualValues(t, 2, f.model.Calls())
	})

	t.Run("cache entries from other artifacts are ignored", func(t *testing.T) {
		cache := newMapCache()
		healthy := &atomic.Bool{}
		healthy.Store(true)

		old := newFixture(t)
		old.model.ScoreFn = func([]int64) (float32, error) { return 0.9, nil }
		res, err := NewService(old.store, WithCache(cache, healthy)).Analyze(ctx, "great")
		require.NoError(t, err)
		assert.Equal(t, models.LabelPositive, res.Label)

		retrained := newFixture(t)
		retrained.fingerprint = "ffffeeeeddddcccc"
		retrained.model.ScoreFn = func([]int64) (float32, error) { return 0.1, nil }
		res, err = NewService(retrained.store, WithCache(cache, healthy)).Analyze(ctx, "great")
		require.NoError(t, err)
		assert.Equal(t, models.LabelNegative, res.Label)
		assert.EqualValues(t, 1, retrained.model.Calls())
	})

	t.Run("unhealthy cache is bypassed", func(t *testing.T) {
		f := newFixture(t)
		cache := newMapCache()
		healthy := &atomic.Bool{}
		svc := NewService(f.store, WithCache(cache, healthy))

		for i := 0; i < 2; i++ {
			_, err := svc.Analyze(ctx, "great")
			require.NoError(t, err)
		}
		assert.Zero(t, cache.gets)
		assert.EqualValues(t, 2, f.model.Calls())
	})

	t.Run("baseline is attached", func(t *testing.T) {
		f := newFixture(t)
		svc := NewService(f.store, WithBaseline(func(text string, label models.Label) *models.BaselineScore {
			return &models.BaselineScore{Compound: 0.7, Label: "positive", Agrees: label == models.LabelPositive}
		}))

		res, err := svc.Analyze(ctx, "great")
		require.NoError(t, err)
		require.NotNil(t, res.Baseline)
		assert.True(t, res.Baseline.Agrees)
	})

	t.Run("records metrics", func(t *testing.T) {
		f := newFixture(t)
		m := metrics.New(prometheus.NewRegistry())
		svc := NewService(f.store, WithMetrics(m))

		_, _ = svc.Analyze(ctx, "great")
		_, _ = svc.Analyze(ctx, "")

		assert.Equal(t, 1.0, testutil.ToFloat64(m.Predictions.WithLabelValues("Positive")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("empty_input")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ArtifactsLoaded))
	})
}

func TestFailureKind(t *testing.T) {
	assert.Equal(t, "unavailable", FailureKind(inference.ErrUnavailable))
	assert.Equal(t, "empty_input", FailureKind(inference.ErrEmptyInput))
	assert.Equal(t, "shape_mismatch", FailureKind(inference.ErrShapeMismatch))
	assert.Equal(t, "inference", FailureKind(inference.ErrInference))
	assert.Equal(t, "unknown", FailureKind(errors.New("boom")))
}
