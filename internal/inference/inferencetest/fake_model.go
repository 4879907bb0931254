// Package inferencetest provides an in-memory model for tests that cannot
// load ONNX Runtime.
package inferencetest

import (
	"sync"
	"sync/atomic"

	"github.com/spacesedan/tweet-sentiment/internal/inference"
)

// FakeModel scores a token sequence with ScoreFn and counts invocations.
type FakeModel struct {
	InputSpec  inference.TensorSpec
	OutputSpec inference.TensorSpec
	ScoreFn    func(tokens []int64) (float32, error)

	calls  atomic.Int64
	mu     sync.Mutex
	last   []int64
	closed atomic.Bool
}

// NewFakeModel returns a model declaring an int64 [1, seqLen] input that
// always scores score.
func NewFakeModel(seqLen int, score float32) *FakeModel {
	return &FakeModel{
		InputSpec: inference.TensorSpec{
			Name:  "input",
			Shape: []int64{1, int64(seqLen)},
			DType: inference.DTypeInt64,
		},
		OutputSpec: inference.TensorSpec{
			Name:  "output",
			Shape: []int64{1, 1},
			DType: inference.DTypeFloat32,
		},
		ScoreFn: func([]int64) (float32, error) { return score, nil },
	}
}

func (f *FakeModel) Input() inference.TensorSpec { return f.InputSpec }

func (f *FakeModel) Output() inference.TensorSpec { return f.OutputSpec }

func (f *FakeModel) Run(tokens []int64) (float32, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = append([]int64(nil), tokens...)
	f.mu.Unlock()
	return f.ScoreFn(tokens)
}

func (f *FakeModel) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *FakeModel) Calls() int64 { return f.calls.Load() }

func (f *FakeModel) Closed() bool { return f.closed.Load() }

// LastTokens returns a copy of the sequence passed to the latest Run.
func (f *FakeModel) LastTokens() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.last...)
}

// CountingTokenizer wraps a tokenizer and counts Vectorize calls.
type CountingTokenizer struct {
	inference.Tokenizer
	calls atomic.Int64
}

func (c *CountingTokenizer) Vectorize(text string) []int64 {
	c.calls.Add(1)
	return c.Tokenizer.Vectorize(text)
}

func (c *CountingTokenizer) Calls() int64 { return c.calls.Load() }
