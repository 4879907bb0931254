package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spacesedan/tweet-sentiment/config"
	"github.com/spacesedan/tweet-sentiment/internal/analyzer"
	"github.com/spacesedan/tweet-sentiment/internal/artifacts"
	"github.com/spacesedan/tweet-sentiment/internal/inference"
	"github.com/spacesedan/tweet-sentiment/internal/models"
	"github.com/spacesedan/tweet-sentiment/internal/sentiment"
)

func newPredictCmd(cfg *config.Config) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "predict [text...]",
		Short: "Classify one text given as arguments or on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if len(args) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}

			store := artifacts.NewStore(artifacts.NewLoader(cfg.Artifacts).Load)
			defer func() {
				if err := store.Close(); err != nil {
					slog.Warn("[Predict] Failed to release artifacts", slog.String("error", err.Error()))
				}
				_ = inference.DestroyRuntime()
			}()

			var opts []analyzer.Option
			if cfg.Baseline {
				opts = append(opts, analyzer.WithBaseline(sentiment.Baseline))
			}
			svc := analyzer.NewService(store, opts...)

			result, err := svc.Analyze(cmd.Context(), text)
			if errors.Is(err, inference.ErrEmptyInput) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Please enter some text to analyze.")
				return nil
			}
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the prediction as JSON")
	return cmd
}

func printResult(w io.Writer, result models.PredictionResult) {
	fmt.Fprintf(w, "Sentiment: %s (%.2f%%)\n", result.Label, result.Confidence*100)
	if b := result.Baseline; b != nil {
		fmt.Fprintf(w, "Lexicon baseline: %s (%.3f)\n", b.Label, b.Compound)
	}
}
