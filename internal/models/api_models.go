package models

type PredictRequest struct {
	Text string `json:"text"`
}

type Example struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

const (
	EXAMPLE_POSITIVE = "this is a great tweet and the model is going to work perfectly"
	EXAMPLE_NEGATIVE = "what an awful post, I'm not happy with this at all"
)

var Examples = []Example{
	{Name: "positive", Text: EXAMPLE_POSITIVE},
	{Name: "negative", Text: EXAMPLE_NEGATIVE},
}

// ExampleText returns the example sentence registered under name.
func ExampleText(name string) (string, bool) {
	for _, e := range Examples {
		if e.Name == name {
			return e.Text, true
		}
	}
	return "", false
}
