package sentiment

import (
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"

	"github.com/spacesedan/tweet-sentiment/internal/models"
)

const (
	VADER_POSITIVE_CUTOFF = 0.20
	VADER_NEGATIVE_CUTOFF = -0.20
)

var (
	analyzer = govader.NewSentimentIntensityAnalyzer()

	linkPattern    = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern     = regexp.MustCompile(`https?://\S+|www\.\S+`)
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	mentionPattern = regexp.MustCompile(`(^|\s)@\w+`)
)

func RemoveLinks(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1") // keep only the text
	return urlPattern.ReplaceAllString(input, "")
}

// ConvertMarkdownToText renders markdown and drops the markup, links and
// @mentions, leaving the words VADER scores.
func ConvertMarkdownToText(input string) string {
	input = RemoveLinks(input)
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	plain := tagPattern.ReplaceAllString(string(output), " ")
	plain = mentionPattern.ReplaceAllString(plain, "$1")

	return strings.Join(strings.Fields(plain), " ")
}

func AnalyzeWithVADER(text string) (float64, string) {
	plainText := ConvertMarkdownToText(text)

	sentiment := analyzer.PolarityScores(plainText)
	score := sentiment.Compound

	var label string
	if score >= VADER_POSITIVE_CUTOFF {
		label = "positive"
	} else if score <= VADER_NEGATIVE_CUTOFF {
		label = "negative"
	} else {
		label = "neutral"
	}

	return score, label
}

// Baseline scores text with VADER and records whether the lexicon agrees
// with the model's label. A neutral lexicon score never agrees.
func Baseline(text string, label models.Label) *models.BaselineScore {
	score, vaderLabel := AnalyzeWithVADER(text)

	agrees := (label == models.LabelPositive && vaderLabel == "positive") ||
		(label == models.LabelNegative && vaderLabel == "negative")

	return &models.BaselineScore{
		Compound: score,
		Label:    vaderLabel,
		Agrees:   agrees,
	}
}
