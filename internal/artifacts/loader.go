package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spacesedan/tweet-sentiment/config"
	"github.com/spacesedan/tweet-sentiment/internal/inference"
	"github.com/spacesedan/tweet-sentiment/internal/vectorizer"
)

const (
	ARTIFACT_VECTORIZER = "vectorizer"
	ARTIFACT_MODEL      = "model"
	ARTIFACT_ALL        = "artifacts"

	FINGERPRINT_LENGTH = 16
)

var ErrLoad = errors.New("artifact load failed")

// LoadError names the artifact that could not be loaded and why.
type LoadError struct {
	Artifact string
	Path     string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s from %q: %v", e.Artifact, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// Artifacts are the two read-only resources every prediction needs.
// Fingerprint identifies the exact vectorizer and model that were loaded;
// results produced by other artifacts must not be reused.
type Artifacts struct {
	Vectorizer  inference.Tokenizer
	Model       inference.Model
	Fingerprint string
}

// Close releases the model's runtime resources when it holds any.
func (a *Artifacts) Close() error {
	if c, ok := a.Model.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ModelOpener opens the compiled model at path.
type ModelOpener func(path string) (inference.Model, error)

// ONNXOpener opens models with ONNX Runtime loaded from libPath.
func ONNXOpener(libPath string) ModelOpener {
	return func(path string) (inference.Model, error) {
		return inference.OpenONNXModel(path, libPath)
	}
}

type Loader struct {
	BundlePath      string
	ModelPath       string
	VectorizerLayer string
	OpenModel       ModelOpener
}

func NewLoader(cfg config.ArtifactConfig) *Loader {
	return &Loader{
		BundlePath:      cfg.BundlePath,
		ModelPath:       cfg.ModelPath,
		VectorizerLayer: cfg.VectorizerLayer,
		OpenModel:       ONNXOpener(cfg.RuntimeLibPath),
	}
}

// Load produces both artifacts or a *LoadError; it never returns one without
// the other.
func (l *Loader) Load() (*Artifacts, error) {
	start := time.Now()
	slog.Info("[ArtifactLoader] Loading artifacts",
		slog.String("bundle", l.BundlePath),
		slog.String("model", l.ModelPath),
		slog.String("layer", l.VectorizerLayer))

	vec, err := vectorizer.Load(l.BundlePath, l.VectorizerLayer)
	if err != nil {
		return nil, l.fail(ARTIFACT_VECTORIZER, l.BundlePath, err)
	}
	slog.Info("[ArtifactLoader] Vectorization layer loaded",
		slog.String("layer", vec.Name()),
		slog.Int("vocabulary_size", vec.VocabularySize()),
		slog.Int("sequence_length", vec.SequenceLength()))

	if _, err := os.Stat(l.ModelPath); err != nil {
		return nil, l.fail(ARTIFACT_MODEL, l.ModelPath, err)
	}

	model, err := l.OpenModel(l.ModelPath)
	if err != nil {
		return nil, l.fail(ARTIFACT_MODEL, l.ModelPath, err)
	}

	if err := inference.CheckOutput(model.Output()); err != nil {
		closeModel(model)
		return nil, l.fail(ARTIFACT_MODEL, l.ModelPath, err)
	}

	in := model.Input()
	if len(in.Shape) == 2 && in.Shape[1] != int64(vec.SequenceLength()) {
		// kept loaded; every request will report the mismatch
		slog.Warn("[ArtifactLoader] Model input does not match the vectorizer sequence length",
			slog.String("input", in.String()),
			slog.Int("sequence_length", vec.SequenceLength()))
	}

	fp, err := fingerprint(vec.Digest(), l.ModelPath)
	if err != nil {
		closeModel(model)
		return nil, l.fail(ARTIFACT_MODEL, l.ModelPath, err)
	}

	slog.Info("[ArtifactLoader] Artifacts ready",
		slog.String("fingerprint", fp),
		slog.Duration("elapsed", time.Since(start)))

	return &Artifacts{Vectorizer: vec, Model: model, Fingerprint: fp}, nil
}

// fingerprint hashes the vectorizer digest together with the model bytes.
func fingerprint(vectorizerDigest, modelPath string) (string, error) {
	f, err := os.Open(modelPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	h.Write([]byte(vectorizerDigest))
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash model: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil))[:FINGERPRINT_LENGTH], nil
}

func (l *Loader) fail(artifact, path string, err error) error {
	loadErr := &LoadError{Artifact: artifact, Path: path, Err: err}
	slog.Error("[ArtifactLoader] Failed to load artifacts",
		slog.String("artifact", artifact),
		slog.String("path", path),
		slog.String("error", err.Error()))
	return loadErr
}

func closeModel(model inference.Model) {
	if c, ok := model.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("[ArtifactLoader] Failed to release model",
				slog.String("error", err.Error()))
		}
	}
}
