package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spacesedan/tweet-sentiment/config"
	"github.com/spacesedan/tweet-sentiment/internal/inference"
	"github.com/spacesedan/tweet-sentiment/internal/logging"
)

const (
	exitError       = 1
	exitUnavailable = 2
)

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitError)
	}
	logging.InitLogger(cfg.LogLevel)

	if err := newRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, inference.ErrUnavailable) {
			os.Exit(exitUnavailable)
		}
		os.Exit(exitError)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "sentiment",
		Short:         "Classify the sentiment of English text as Positive or Negative",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfg.Artifacts.BundlePath, "bundle", cfg.Artifacts.BundlePath,
		"path to the serialized vectorizer bundle")
	root.PersistentFlags().StringVar(&cfg.Artifacts.ModelPath, "model", cfg.Artifacts.ModelPath,
		"path to the compiled ONNX model")
	root.PersistentFlags().StringVar(&cfg.Artifacts.VectorizerLayer, "layer", cfg.Artifacts.VectorizerLayer,
		"name of the text vectorization component inside the bundle")
	root.PersistentFlags().StringVar(&cfg.Artifacts.RuntimeLibPath, "onnxruntime", cfg.Artifacts.RuntimeLibPath,
		"path to the onnxruntime shared library")
	root.PersistentFlags().BoolVar(&cfg.Baseline, "baseline", cfg.Baseline,
		"attach a lexicon (VADER) baseline score to every prediction")

	root.AddCommand(newServeCmd(cfg), newPredictCmd(cfg))
	return root
}
