package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response wraps every /api/v1 payload. A prediction travels in Data; a
// failed analysis carries only the public code and message in Error, never
// the underlying cause.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *MetaInfo  `json:"meta"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo echoes the X-Request-ID so API clients can quote it when a
// prediction looks wrong.
type MetaInfo struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
}

func respondSuccess(c *gin.Context, status int, data any) {
	respond(c, status, Response{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, code, message string) {
	respond(c, status, Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func respond(c *gin.Context, status int, resp Response) {
	id := c.GetString(REQUEST_ID_KEY)
	if id == "" {
		// Recovery can run before RequestID on a misordered chain
		id = uuid.NewString()
	}
	resp.Meta = &MetaInfo{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: id,
	}
	c.JSON(status, resp)
}
