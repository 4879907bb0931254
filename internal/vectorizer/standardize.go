package vectorizer

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// stripSet is the ASCII punctuation removed by lower_and_strip_punctuation.
const stripSet = "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~'"

func standardizeText(text, mode string) string {
	switch mode {
	case STANDARDIZE_LOWER_AND_STRIP:
		return stripPunctuation(lower(text))
	case STANDARDIZE_LOWER:
		return lower(text)
	case STANDARDIZE_STRIP:
		return stripPunctuation(text)
	default:
		return text
	}
}

// cases.Caser is stateful, so one is built per call.
func lower(text string) string {
	return cases.Lower(language.Und).String(text)
}

func stripPunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(stripSet, r) {
			return -1
		}
		return r
	}, text)
}

func splitText(text, mode string) []string {
	switch mode {
	case SPLIT_WHITESPACE:
		return strings.Fields(text)
	case SPLIT_CHARACTER:
		runes := []rune(text)
		tokens := make([]string, 0, len(runes))
		for _, r := range runes {
			tokens = append(tokens, string(r))
		}
		return tokens
	default:
		if text == "" {
			return nil
		}
		return []string{text}
	}
}
