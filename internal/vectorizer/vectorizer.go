package vectorizer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// TextVectorizer maps raw text to a fixed-length sequence of token ids.
// It is immutable after construction and safe for concurrent use.
type TextVectorizer struct {
	name        string
	standardize string
	split       string
	seqLen      int
	padID       int64
	oovID       int64
	vocab       map[string]int64
	vocabSize   int
	digest      string
}

// New builds a vectorizer from a parsed layer config. When the vocabulary
// does not start with the reserved pad and OOV entries they are prepended,
// which is the layout get_vocabulary() produces.
func New(cfg *Config) (*TextVectorizer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: component %q: %v", ErrInvalidBundle, cfg.Name, err)
	}

	vocab := cfg.Vocabulary
	if len(vocab) < 2 || vocab[0] != PAD_TOKEN || vocab[1] != OOV_TOKEN {
		vocab = append([]string{PAD_TOKEN, OOV_TOKEN}, vocab...)
	}
	if cfg.MaxTokens > 0 && len(vocab) > cfg.MaxTokens {
		vocab = vocab[:cfg.MaxTokens]
	}

	v := &TextVectorizer{
		name:        cfg.Name,
		standardize: cfg.standardize(),
		split:       cfg.split(),
		seqLen:      cfg.OutputSequenceLength,
		padID:       0,
		oovID:       1,
		vocab:       make(map[string]int64, len(vocab)),
		vocabSize:   len(vocab),
	}
	if cfg.PadTokenID != nil {
		v.padID = *cfg.PadTokenID
	}
	if cfg.OOVTokenID != nil {
		v.oovID = *cfg.OOVTokenID
	}

	for id, tok := range vocab {
		if tok == PAD_TOKEN || tok == OOV_TOKEN {
			continue
		}
		// first occurrence wins, as in the lookup table built at training time
		if _, dup := v.vocab[tok]; !dup {
			v.vocab[tok] = int64(id)
		}
	}

	v.digest = digest(v, vocab)
	return v, nil
}

// digest covers everything that changes the ids produced for a text.
func digest(v *TextVectorizer, vocab []string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%d\x00%d\x00", v.standardize, v.split, v.seqLen, v.padID, v.oovID)
	for _, tok := range vocab {
		h.Write([]byte(tok))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Load reads the bundle at path and builds the vectorizer from the component
// called name.
func Load(path, name string) (*TextVectorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg, err := ParseBundle(data, name, filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	return New(cfg)
}

func (v *TextVectorizer) Name() string { return v.name }

func (v *TextVectorizer) SequenceLength() int { return v.seqLen }

func (v *TextVectorizer) VocabularySize() int { return v.vocabSize }

func (v *TextVectorizer) PadID() int64 { return v.padID }

func (v *TextVectorizer) OOVID() int64 { return v.oovID }

// Digest is a hex sha256 of the vectorizer's behaviour: modes, sequence
// length, reserved ids and the vocabulary in id order.
func (v *TextVectorizer) Digest() string { return v.digest }

// Tokens returns the standardized, split tokens before id lookup.
func (v *TextVectorizer) Tokens(text string) []string {
	return splitText(standardizeText(text, v.standardize), v.split)
}

// Vectorize returns exactly SequenceLength ids: longer inputs are truncated,
// shorter ones right-padded, unknown tokens mapped to the OOV id.
func (v *TextVectorizer) Vectorize(text string) []int64 {
	tokens := v.Tokens(text)

	ids := make([]int64, v.seqLen)
	for i := range ids {
		if i >= len(tokens) {
			ids[i] = v.padID
			continue
		}
		id, ok := v.vocab[tokens[i]]
		if !ok {
			id = v.oovID
		}
		ids[i] = id
	}

	return ids
}
