package server

import (
	"errors"
	"net/http"

	"github.com/spacesedan/tweet-sentiment/internal/inference"
)

const (
	CODE_EMPTY_INPUT     = "EMPTY_INPUT"
	CODE_UNAVAILABLE     = "UNAVAILABLE"
	CODE_ANALYSIS_FAILED = "ANALYSIS_FAILED"
	CODE_INVALID_REQUEST = "INVALID_REQUEST"

	MSG_EMPTY_INPUT     = "Please enter some text to analyze."
	MSG_UNAVAILABLE     = "The sentiment model is unavailable right now."
	MSG_ANALYSIS_FAILED = "The text could not be analyzed."
)

type ErrorResponse struct {
	StatusCode int
	Code       string
	Message    string
}

// MapAnalysisError gives each failure kind its own status and user-facing
// message. Internal details never reach the caller.
func MapAnalysisError(err error) ErrorResponse {
	switch {
	case errors.Is(err, inference.ErrEmptyInput):
		return ErrorResponse{
			StatusCode: http.StatusUnprocessableEntity,
			Code:       CODE_EMPTY_INPUT,
			Message:    MSG_EMPTY_INPUT,
		}
	case errors.Is(err, inference.ErrUnavailable):
		return ErrorResponse{
			StatusCode: http.StatusServiceUnavailable,
			Code:       CODE_UNAVAILABLE,
			Message:    MSG_UNAVAILABLE,
		}
	default:
		return ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Code:       CODE_ANALYSIS_FAILED,
			Message:    MSG_ANALYSIS_FAILED,
		}
	}
}
