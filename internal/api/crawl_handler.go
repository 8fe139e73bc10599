package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/golibrary/internal/crawl"
	"github.com/jonesrussell/golibrary/internal/database"
	"github.com/jonesrussell/golibrary/internal/status"
)

const defaultLimit = 50

// CrawlHandler handles crawl run and processing task requests.
type CrawlHandler struct {
	runner CrawlRunner
	store  AdminStore
}

// NewCrawlHandler creates a new crawl handler.
func NewCrawlHandler(runner CrawlRunner, store AdminStore) *CrawlHandler {
	return &CrawlHandler{runner: runner, store: store}
}

type triggerRunRequest struct {
	UserID string `json:"user_id"`
}

// TriggerRun handles POST /api/v1/crawlers/:id/run.
func (h *CrawlHandler) TriggerRun(c *gin.Context) {
	crawlerID := c.Param("id")

	var req triggerRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	var userID *string
	if req.UserID != "" {
		userID = &req.UserID
	}

	result, err := h.runner.Run(c.Request.Context(), crawlerID, false, userID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "crawler not found"})
		case errors.Is(err, crawl.ErrUnknownKind):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":        result.RunID,
		"files_crawled": result.FilesCrawled,
		"files_omitted": result.FilesOmitted,
		"files_errored": result.FilesErrored,
	})
}

// ListRuns handles GET /api/v1/crawlers/:id/runs.
func (h *CrawlHandler) ListRuns(c *gin.Context) {
	runs, err := h.store.ListRuns(c.Request.Context(), c.Param("id"), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// ListProcessingTasks handles GET /api/v1/tasks.
func (h *CrawlHandler) ListProcessingTasks(c *gin.Context) {
	s := status.ProcessingStatus(c.DefaultQuery("status", string(status.ProcessingPending)))

	tasks, err := h.store.ListByStatus(c.Request.Context(), s, queryLimit(c))
	if err != nil {
		if errors.Is(err, status.ErrUnknownStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// ProcessingTaskCounts handles GET /api/v1/tasks/counts. Statuses whose
// count query fails report an error per status rather than failing the
// whole response.
func (h *CrawlHandler) ProcessingTaskCounts(c *gin.Context) {
	counts := make(map[string]int, len(status.ProcessingStatuses))
	for _, s := range status.ProcessingStatuses {
		if s == status.ProcessingNone {
			continue
		}
		n, err := h.store.CountByStatus(c.Request.Context(), s)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		counts[string(s)] = n
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

// queryLimit parses the limit query parameter, falling back to the
// default on absent or invalid values.
func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	return limit
}
