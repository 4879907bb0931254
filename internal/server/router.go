package server

import (
	"fmt"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spacesedan/tweet-sentiment/config"
)

type Dependencies struct {
	Analyzer    Analyzer
	Artifacts   config.ArtifactConfig
	CacheHealth *atomic.Bool
	Gatherer    prometheus.Gatherer
}

// Setup creates and configures the Gin router
func Setup(deps Dependencies) (*gin.Engine, error) {
	router := gin.New()

	router.Use(RequestID())
	router.Use(Logger())
	router.Use(Recovery())

	tmpl, err := LoadTemplates()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	healthHandler := NewHealthHandler(deps.Analyzer, deps.CacheHealth)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	pageHandler := NewPageHandler(deps.Analyzer, deps.Artifacts)
	router.GET("/", pageHandler.Show)
	router.POST("/", pageHandler.Analyze)

	apiHandler := NewAPIHandler(deps.Analyzer)
	v1 := router.Group("/api/v1")
	{
		v1.POST("/predict", apiHandler.Predict)
		v1.GET("/examples", apiHandler.Examples)
	}

	return router, nil
}
