package inference

import (
	"fmt"
	"strings"
)

type DType string

const (
	DTypeInt32   DType = "int32"
	DTypeInt64   DType = "int64"
	DTypeFloat32 DType = "float32"
	DTypeUnknown DType = "unknown"
)

func (d DType) IsInteger() bool {
	return d == DTypeInt32 || d == DTypeInt64
}

// TensorSpec describes a declared model input or output. A dimension of -1
// is dynamic.
type TensorSpec struct {
	Name  string
	Shape []int64
	DType DType
}

func (s TensorSpec) String() string {
	dims := make([]string, len(s.Shape))
	for i, d := range s.Shape {
		dims[i] = fmt.Sprintf("%d", d)
	}
	return fmt.Sprintf("%s[%s]%s", s.Name, strings.Join(dims, ","), s.DType)
}

// Model is a compiled network with one integer input of shape
// [1, sequence_length] and one float output of shape [1, 1].
type Model interface {
	Input() TensorSpec
	Output() TensorSpec
	// Run executes one forward pass over tokens and returns the raw
	// probability of the positive class.
	Run(tokens []int64) (float32, error)
}

// Tokenizer turns text into the fixed-length id sequence the model expects.
type Tokenizer interface {
	Vectorize(text string) []int64
	SequenceLength() int
}

// checkInput verifies that a sequence of n ids can be bound to spec.
func checkInput(spec TensorSpec, n int) error {
	if !spec.DType.IsInteger() {
		return fmt.Errorf("%w: model input %s is not an integer tensor", ErrShapeMismatch, spec)
	}
	if len(spec.Shape) != 2 {
		return fmt.Errorf("%w: model input %s is not rank 2", ErrShapeMismatch, spec)
	}
	if batch := spec.Shape[0]; batch != 1 && batch != -1 {
		return fmt.Errorf("%w: model input %s has batch size %d", ErrShapeMismatch, spec, batch)
	}
	if seq := spec.Shape[1]; seq != int64(n) {
		return fmt.Errorf("%w: model input %s expects %d tokens, got %d", ErrShapeMismatch, spec, seq, n)
	}
	return nil
}

// CheckOutput verifies that spec holds a single float score.
func CheckOutput(spec TensorSpec) error {
	if spec.DType != DTypeFloat32 {
		return fmt.Errorf("model output %s is not float32", spec)
	}
	size := int64(1)
	for _, d := range spec.Shape {
		if d == -1 {
			continue
		}
		size *= d
	}
	if size != 1 {
		return fmt.Errorf("model output %s is not a single score", spec)
	}
	return nil
}
