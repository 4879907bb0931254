package vectorizer

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	STANDARDIZE_LOWER_AND_STRIP = "lower_and_strip_punctuation"
	STANDARDIZE_LOWER           = "lower"
	STANDARDIZE_STRIP           = "strip_punctuation"
	STANDARDIZE_NONE            = "none"

	SPLIT_WHITESPACE = "whitespace"
	SPLIT_CHARACTER  = "character"
	SPLIT_NONE       = "none"

	PAD_TOKEN = ""
	OOV_TOKEN = "[UNK]"
)

var (
	ErrInvalidBundle     = errors.New("invalid vectorizer bundle")
	ErrComponentNotFound = errors.New("vectorizer component not found")
)

// Config mirrors the training-time settings of a Keras TextVectorization
// layer. Vocabulary is indexed by token id.
type Config struct {
	Name                 string   `json:"name"`
	MaxTokens            int      `json:"max_tokens"`
	OutputSequenceLength int      `json:"output_sequence_length"`
	OutputMode           string   `json:"output_mode"`
	Standardize          *string  `json:"standardize"`
	Split                *string  `json:"split"`
	Ngrams               *int     `json:"ngrams"`
	PadTokenID           *int64   `json:"pad_token_id"`
	OOVTokenID           *int64   `json:"oov_token_id"`
	Vocabulary           []string `json:"-"`
}

// ParseBundle extracts the component called name from a serialized bundle.
// Both a flat {"layers": [...]} export and a Keras model config with the
// layers under "config" are accepted; a layer matches on either its
// top-level name or config.name.
func ParseBundle(data []byte, name string, baseDir string) (*Config, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidBundle)
	}

	root := gjson.ParseBytes(data)
	layers := root.Get("layers")
	if !layers.Exists() {
		layers = root.Get("config.layers")
	}
	if !layers.IsArray() {
		return nil, fmt.Errorf("%w: no layers array", ErrInvalidBundle)
	}

	var layer gjson.Result
	layers.ForEach(func(_, l gjson.Result) bool {
		if l.Get("name").String() == name || l.Get("config.name").String() == name {
			layer = l
			return false
		}
		return true
	})
	if !layer.Exists() {
		return nil, fmt.Errorf("%w: %q", ErrComponentNotFound, name)
	}

	node := layer.Get("config")
	if !node.Exists() {
		node = layer
	}

	var cfg Config
	if err := json.Unmarshal([]byte(node.Raw), &cfg); err != nil {
		return nil, fmt.Errorf("%w: component %q: %v", ErrInvalidBundle, name, err)
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	// absent keys take the layer defaults, an explicit null disables the step
	if !node.Get("standardize").Exists() {
		s := STANDARDIZE_LOWER_AND_STRIP
		cfg.Standardize = &s
	}
	if !node.Get("split").Exists() {
		s := SPLIT_WHITESPACE
		cfg.Split = &s
	}

	vocab, err := readVocabulary(node.Get("vocabulary"), baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: component %q: %v", ErrInvalidBundle, name, err)
	}
	cfg.Vocabulary = vocab

	return &cfg, nil
}

// readVocabulary accepts either an inline list or a path to a file with one
// token per line, relative to the bundle.
func readVocabulary(v gjson.Result, baseDir string) ([]string, error) {
	switch {
	case v.IsArray():
		vocab := make([]string, 0, len(v.Array()))
		for _, tok := range v.Array() {
			vocab = append(vocab, tok.String())
		}
		return vocab, nil
	case v.Type == gjson.String && v.String() != "":
		path := v.String()
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		return readVocabularyFile(path)
	default:
		return nil, errors.New("missing vocabulary")
	}
}

func readVocabularyFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()

	var vocab []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		vocab = append(vocab, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return vocab, nil
}

func (c *Config) standardize() string {
	if c.Standardize == nil {
		return STANDARDIZE_NONE
	}
	return *c.Standardize
}

func (c *Config) split() string {
	if c.Split == nil {
		return SPLIT_NONE
	}
	return *c.Split
}

func (c *Config) validate() error {
	if c.OutputMode != "" && c.OutputMode != "int" {
		return fmt.Errorf("unsupported output_mode %q", c.OutputMode)
	}
	if c.OutputSequenceLength <= 0 {
		return errors.New("output_sequence_length must be positive")
	}
	if c.Ngrams != nil && *c.Ngrams != 1 {
		return fmt.Errorf("unsupported ngrams %d", *c.Ngrams)
	}
	switch c.standardize() {
	case STANDARDIZE_LOWER_AND_STRIP, STANDARDIZE_LOWER, STANDARDIZE_STRIP, STANDARDIZE_NONE:
	default:
		return fmt.Errorf("unsupported standardize %q", c.standardize())
	}
	switch c.split() {
	case SPLIT_WHITESPACE, SPLIT_CHARACTER, SPLIT_NONE:
	default:
		return fmt.Errorf("unsupported split %q", c.split())
	}
	if len(c.Vocabulary) == 0 {
		return errors.New("empty vocabulary")
	}
	return nil
}
