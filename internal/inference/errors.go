package inference

import "errors"

var (
	// ErrUnavailable means the artifacts failed to load; no request can be served.
	ErrUnavailable = errors.New("sentiment service unavailable")
	// ErrEmptyInput is not a failure: the text was blank so nothing was computed.
	ErrEmptyInput = errors.New("empty input")
	// ErrShapeMismatch means the token sequence does not fit the model's declared input.
	ErrShapeMismatch = errors.New("input shape mismatch")
	// ErrInference means the forward pass itself failed.
	ErrInference = errors.New("inference failure")
)
