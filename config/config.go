package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DEFAULT_BUNDLE_PATH      = "artifacts/vectorizer.json"
	DEFAULT_MODEL_PATH       = "artifacts/model.onnx"
	DEFAULT_VECTORIZER_LAYER = "text_vectorization"
	DEFAULT_HTTP_ADDR        = ":8080"
	DEFAULT_CACHE_TTL        = 24 * time.Hour
)

type Config struct {
	Env       string
	HTTPAddr  string
	GinMode   string
	LogLevel  string
	LazyLoad  bool
	Baseline  bool
	Artifacts ArtifactConfig
	Valkey    ValkeyConfig
}

// ArtifactConfig points at the two files the classifier is built from.
type ArtifactConfig struct {
	BundlePath      string
	ModelPath       string
	VectorizerLayer string
	RuntimeLibPath  string
}

type ValkeyConfig struct {
	Address  string
	Password string
	UseTLS   bool
	TTL      time.Duration
}

// Enabled reports whether a cache address was configured.
func (v ValkeyConfig) Enabled() bool {
	return v.Address != ""
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// Load reads the configuration from the process environment. Call LoadEnv
// first so values from the env file are visible.
func Load() (*Config, error) {
	lazy, err := getBoolEnv("SENTIMENT_LAZY_LOAD", false)
	if err != nil {
		return nil, err
	}
	baseline, err := getBoolEnv("SENTIMENT_BASELINE", false)
	if err != nil {
		return nil, err
	}
	useTLS, err := getBoolEnv("VALKEY_TLS", false)
	if err != nil {
		return nil, err
	}

	ttl := DEFAULT_CACHE_TTL
	if raw := getEnv("PREDICTION_CACHE_TTL", ""); raw != "" {
		ttl, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PREDICTION_CACHE_TTL: %w", err)
		}
		if ttl < time.Second {
			return nil, fmt.Errorf("invalid PREDICTION_CACHE_TTL: %s is shorter than one second", ttl)
		}
	}

	return &Config{
		Env:      getEnv("APP_ENV", "dev"),
		HTTPAddr: getEnv("HTTP_ADDR", DEFAULT_HTTP_ADDR),
		GinMode:  getEnv("GIN_MODE", "release"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LazyLoad: lazy,
		Baseline: baseline,
		Artifacts: ArtifactConfig{
			BundlePath:      getEnv("SENTIMENT_BUNDLE_PATH", DEFAULT_BUNDLE_PATH),
			ModelPath:       getEnv("SENTIMENT_MODEL_PATH", DEFAULT_MODEL_PATH),
			VectorizerLayer: getEnv("SENTIMENT_VECTORIZER_LAYER", DEFAULT_VECTORIZER_LAYER),
			RuntimeLibPath:  getEnv("ONNXRUNTIME_LIB_PATH", ""),
		},
		Valkey: ValkeyConfig{
			Address:  getEnv("VALKEY_INIT_ADDRESS", ""),
			Password: getEnv("VALKEY_PASSWORD", ""),
			UseTLS:   useTLS,
			TTL:      ttl,
		},
	}, nil
}
