package server

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/russross/blackfriday/v2"

	"github.com/spacesedan/tweet-sentiment/config"
	"github.com/spacesedan/tweet-sentiment/internal/inference"
	"github.com/spacesedan/tweet-sentiment/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	PAGE_TEMPLATE = "index.html"

	introMarkdown = "This app uses a deep learning model (LSTM) to classify the sentiment of " +
		"an **English** text as *Positive* or *Negative*."
	noticeMarkdown = "Remember: the model was trained on a specific dataset (tweets), so its " +
		"accuracy may vary on text from other contexts."
)

func LoadTemplates() (*template.Template, error) {
	return template.New(PAGE_TEMPLATE).
		Funcs(template.FuncMap{"percent": percent}).
		ParseFS(templateFS, "templates/"+PAGE_TEMPLATE)
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func markdown(src string) template.HTML {
	return template.HTML(blackfriday.Run([]byte(src)))
}

type PageHandler struct {
	analyzer Analyzer
	files    config.ArtifactConfig
}

func NewPageHandler(a Analyzer, files config.ArtifactConfig) *PageHandler {
	return &PageHandler{analyzer: a, files: files}
}

type PageData struct {
	Text     string
	Examples []models.Example
	Intro    template.HTML
	Notice   template.HTML
	Result   *models.PredictionResult
	Positive bool
	Warning  string
	Error    string
	// Startup lists the expected artifact files when loading failed.
	Startup []string
}

func (h *PageHandler) page(text string) PageData {
	data := PageData{
		Text:     text,
		Examples: models.Examples,
		Intro:    markdown(introMarkdown),
		Notice:   markdown(noticeMarkdown),
	}
	if h.analyzer.Unavailable() {
		data.Startup = []string{h.files.BundlePath, h.files.ModelPath}
	}
	return data
}

// Show handles GET /. The example query parameter fills the text box.
func (h *PageHandler) Show(c *gin.Context) {
	text, _ := models.ExampleText(c.Query("example"))
	c.HTML(http.StatusOK, PAGE_TEMPLATE, h.page(text))
}

// Analyze handles POST / form submissions.
func (h *PageHandler) Analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MAX_BODY_BYTES)
	text := c.PostForm("text")
	data := h.page(text)

	result, err := h.analyzer.Analyze(c.Request.Context(), text)
	switch {
	case err == nil:
		data.Result = &result
		data.Positive = result.Label == models.LabelPositive
	case errors.Is(err, inference.ErrEmptyInput):
		data.Warning = MSG_EMPTY_INPUT
	default:
		errResp := MapAnalysisError(err)
		data.Error = errResp.Message
		c.HTML(errResp.StatusCode, PAGE_TEMPLATE, data)
		return
	}

	c.HTML(http.StatusOK, PAGE_TEMPLATE, data)
}
