// Package api implements the admin HTTP API: crawl run triggers, run
// history, processing task inspection, and enrichment queue operations.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/golibrary/internal/config"
	"github.com/jonesrussell/golibrary/internal/crawl"
	"github.com/jonesrussell/golibrary/internal/domain"
	"github.com/jonesrussell/golibrary/internal/enrich"
	"github.com/jonesrussell/golibrary/internal/logger"
	"github.com/jonesrussell/golibrary/internal/status"
)

// CrawlRunner triggers crawl runs. The crawl package provides the real
// implementation.
type CrawlRunner interface {
	Run(ctx context.Context, crawlerID string, byCron bool, userID *string) (*crawl.RunResult, error)
}

// EnrichmentQueue manages the enrichment task queue for a list field.
type EnrichmentQueue interface {
	CreateTasks(ctx context.Context, req *enrich.CreateTasksRequest) (*enrich.CreateTasksResult, error)
}

// AdminStore is the slice of the database layer the handlers read from.
type AdminStore interface {
	ListRuns(ctx context.Context, crawlerID string, limit int) ([]*domain.CrawlerRun, error)
	ListByStatus(ctx context.Context, s status.ProcessingStatus, limit int) ([]*domain.ContentProcessingTask, error)
	CountByStatus(ctx context.Context, s status.ProcessingStatus) (int, error)
	ListTasks(ctx context.Context, listID string, limit int) ([]*domain.EnrichmentTask, error)
	StatusCounts(ctx context.Context, listID string) (map[string]int, error)
	DeletePendingTasks(ctx context.Context, scope enrich.TaskScope) (int64, error)
	ClearListEnrichments(ctx context.Context, scope enrich.TaskScope) (deletedTasks, clearedCaches int64, err error)
}

// SetupRouter creates and configures the Gin router with all routes.
func SetupRouter(
	log logger.Interface,
	runner CrawlRunner,
	queue EnrichmentQueue,
	store AdminStore,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	crawls := NewCrawlHandler(runner, store)
	enrichment := NewEnrichmentHandler(queue, store)

	v1 := router.Group("/api/v1")
	v1.POST("/crawlers/:id/run", crawls.TriggerRun)
	v1.GET("/crawlers/:id/runs", crawls.ListRuns)
	v1.GET("/tasks", crawls.ListProcessingTasks)
	v1.GET("/tasks/counts", crawls.ProcessingTaskCounts)

	lists := v1.Group("/lists/:listID")
	lists.POST("/fields/:fieldID/enrichment-tasks", enrichment.CreateTasks)
	lists.DELETE("/fields/:fieldID/enrichment-tasks/pending", enrichment.StopPending)
	lists.POST("/clear-enrichments", enrichment.ClearList)
	lists.GET("/enrichment-tasks", enrichment.ListTasks)
	lists.GET("/enrichment-tasks/counts", enrichment.TaskCounts)

	return router
}

// NewServer wraps the router in an http.Server with the configured
// address and timeouts.
func NewServer(cfg *config.ServerConfig, router *gin.Engine) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// loggingMiddleware logs each HTTP request with method, path, status and
// latency.
func loggingMiddleware(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
