package models

type Label string

const (
	LabelPositive Label = "Positive"
	LabelNegative Label = "Negative"
)

// PredictionResult is derived per request and never stored by the pipeline.
// Confidence is the probability of Label; Score is the raw P(positive).
type PredictionResult struct {
	Label      Label          `json:"label"`
	Confidence float64        `json:"confidence"`
	Score      float64        `json:"score"`
	Baseline   *BaselineScore `json:"baseline,omitempty"`
}

// BaselineScore is the lexicon (VADER) opinion on the same text.
type BaselineScore struct {
	Compound float64 `json:"compound"`
	Label    string  `json:"label"`
	Agrees   bool    `json:"agrees"`
}
