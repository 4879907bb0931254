package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spacesedan/tweet-sentiment/internal/artifacts"
	"github.com/spacesedan/tweet-sentiment/internal/inference"
	"github.com/spacesedan/tweet-sentiment/internal/metrics"
	"github.com/spacesedan/tweet-sentiment/internal/models"
)

// Cache stores finished predictions keyed by the artifact fingerprint and
// the trimmed text.
type Cache interface {
	Get(ctx context.Context, fingerprint, text string) (models.PredictionResult, bool)
	Set(ctx context.Context, fingerprint, text string, result models.PredictionResult)
}

// BaselineFunc scores text independently of the model.
type BaselineFunc func(text string, label models.Label) *models.BaselineScore

// Service is the single entry point every request boundary calls.
type Service struct {
	store    *artifacts.Store
	cache    Cache
	health   []*atomic.Bool
	baseline BaselineFunc
	metrics  *metrics.Metrics
}

type Option func(*Service)

// WithCache enables the prediction cache. It is bypassed while any of the
// given health flags is false.
func WithCache(cache Cache, health ...*atomic.Bool) Option {
	return func(s *Service) {
		s.cache = cache
		s.health = append(s.health, health...)
	}
}

func WithBaseline(fn BaselineFunc) Option {
	return func(s *Service) { s.baseline = fn }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store *artifacts.Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Warmup triggers the artifact load. The error is also what every later
// Analyze call reports as ErrUnavailable.
func (s *Service) Warmup() error {
	_, err := s.store.Get()
	s.metrics.SetArtifactsLoaded(err == nil)
	return err
}

func (s *Service) Ready() bool {
	return s.store.Ready()
}

// Unavailable reports whether the load was attempted and failed.
func (s *Service) Unavailable() bool {
	return s.store.Loaded() && !s.store.Ready()
}

// Analyze classifies text. The error, when not nil, matches exactly one of
// inference.ErrUnavailable, ErrEmptyInput, ErrShapeMismatch or ErrInference.
func (s *Service) Analyze(ctx context.Context, text string) (models.PredictionResult, error) {
	a, err := s.store.Get()
	if err != nil {
		s.metrics.SetArtifactsLoaded(false)
		s.metrics.Failure(FailureKind(inference.ErrUnavailable))
		return models.PredictionResult{}, fmt.Errorf("%w: %v", inference.ErrUnavailable, err)
	}
	s.metrics.SetArtifactsLoaded(true)

	text = strings.TrimSpace(text)
	if text == "" {
		s.metrics.Failure(FailureKind(inference.ErrEmptyInput))
		return models.PredictionResult{}, inference.ErrEmptyInput
	}

	result, hit := s.lookup(ctx, a.Fingerprint, text)
	if !hit {
		start := time.Now()
		result, err = inference.Predict(text, a.Vectorizer, a.Model)
		s.metrics.ObserveInference(start)
		if err != nil {
			slog.Error("[Analyzer] Prediction failed",
				slog.String("error", err.Error()),
				slog.Int("text_length", len(text)))
			s.metrics.Failure(FailureKind(err))
			return models.PredictionResult{}, err
		}
		s.remember(ctx, a.Fingerprint, text, result)
	}

	if s.baseline != nil {
		result.Baseline = s.baseline(text, result.Label)
	}

	s.metrics.Prediction(string(result.Label))
	slog.Debug("[Analyzer] Prediction complete",
		slog.String("label", string(result.Label)),
		slog.Float64("confidence", result.Confidence),
		slog.Bool("cached", hit))

	return result, nil
}

func (s *Service) cacheUsable() bool {
	if s.cache == nil {
		return false
	}
	for _, h := range s.health {
		if !h.Load() {
			return false
		}
	}
	return true
}

func (s *Service) lookup(ctx context.Context, fingerprint, text string) (models.PredictionResult, bool) {
	if !s.cacheUsable() {
		return models.PredictionResult{}, false
	}
	result, ok := s.cache.Get(ctx, fingerprint, text)
	s.metrics.CacheLookup(ok)
	return result, ok
}

func (s *Service) remember(ctx context.Context, fingerprint, text string, result models.PredictionResult) {
	if !s.cacheUsable() {
		return
	}
	s.cache.Set(ctx, fingerprint, text, result)
}

// FailureKind names the error class for metrics and logs.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, inference.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, inference.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, inference.ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, inference.ErrInference):
		return "inference"
	default:
		return "unknown"
	}
}
