package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spacesedan/tweet-sentiment/internal/analyzer"
	"github.com/spacesedan/tweet-sentiment/internal/models"
)

const MAX_BODY_BYTES = 64 << 10

// Analyzer is what the handlers need from analyzer.Service.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (models.PredictionResult, error)
	Ready() bool
	Unavailable() bool
}

type APIHandler struct {
	analyzer Analyzer
}

func NewAPIHandler(a Analyzer) *APIHandler {
	return &APIHandler{analyzer: a}
}

// Predict handles POST /api/v1/predict
func (h *APIHandler) Predict(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MAX_BODY_BYTES)

	var req models.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CODE_INVALID_REQUEST, "request body must be JSON with a text field")
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), req.Text)
	if err != nil {
		errResp := MapAnalysisError(err)
		slog.Warn("[APIHandler] Prediction not served",
			slog.String("code", errResp.Code),
			slog.String("kind", analyzer.FailureKind(err)),
			slog.String("request_id", c.GetString(REQUEST_ID_KEY)))
		respondError(c, errResp.StatusCode, errResp.Code, errResp.Message)
		return
	}

	respondSuccess(c, http.StatusOK, result)
}

// Examples handles GET /api/v1/examples
func (h *APIHandler) Examples(c *gin.Context) {
	respondSuccess(c, http.StatusOK, models.Examples)
}
