package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/golibrary/internal/enrich"
)

// EnrichmentHandler handles enrichment queue requests.
type EnrichmentHandler struct {
	queue EnrichmentQueue
	store AdminStore
}

// NewEnrichmentHandler creates a new enrichment handler.
func NewEnrichmentHandler(queue EnrichmentQueue, store AdminStore) *EnrichmentHandler {
	return &EnrichmentHandler{queue: queue, store: store}
}

type createTasksRequest struct {
	FileID string `json:"file_id"`
	UserID string `json:"user_id"`
	// OnlyMissingValues defaults to true when absent from the request.
	OnlyMissingValues *bool `json:"only_missing_values"`
	Priority          int   `json:"priority"`
}

// CreateTasks handles POST /api/v1/lists/:listID/fields/:fieldID/enrichment-tasks.
func (h *EnrichmentHandler) CreateTasks(c *gin.Context) {
	var req createTasksRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	onlyMissing := true
	if req.OnlyMissingValues != nil {
		onlyMissing = *req.OnlyMissingValues
	}

	result, err := h.queue.CreateTasks(c.Request.Context(), &enrich.CreateTasksRequest{
		ListID:            c.Param("listID"),
		FieldID:           c.Param("fieldID"),
		FileID:            req.FileID,
		UserID:            req.UserID,
		OnlyMissingValues: onlyMissing,
		Priority:          req.Priority,
	})
	if err != nil {
		switch {
		case errors.Is(err, enrich.ErrNotAuthorized):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, enrich.ErrInvalidField), errors.Is(err, enrich.ErrFieldNotEnrichable):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

// StopPending handles DELETE /api/v1/lists/:listID/fields/:fieldID/enrichment-tasks/pending.
// An optional file_id query parameter narrows the deletion to one file.
func (h *EnrichmentHandler) StopPending(c *gin.Context) {
	scope := enrich.TaskScope{
		ListID:  c.Param("listID"),
		FieldID: c.Param("fieldID"),
		FileID:  c.Query("file_id"),
	}
	deleted, err := h.store.DeletePendingTasks(c.Request.Context(), scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted_tasks_count": deleted})
}

// ClearList handles POST /api/v1/lists/:listID/clear-enrichments. Optional
// field_id and file_id query parameters narrow the scope.
func (h *EnrichmentHandler) ClearList(c *gin.Context) {
	scope := enrich.TaskScope{
		ListID:  c.Param("listID"),
		FieldID: c.Query("field_id"),
		FileID:  c.Query("file_id"),
	}
	deleted, cleared, err := h.store.ClearListEnrichments(c.Request.Context(), scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deleted_tasks_count":  deleted,
		"cleared_caches_count": cleared,
	})
}

// ListTasks handles GET /api/v1/lists/:listID/enrichment-tasks.
func (h *EnrichmentHandler) ListTasks(c *gin.Context) {
	tasks, err := h.store.ListTasks(c.Request.Context(), c.Param("listID"), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// TaskCounts handles GET /api/v1/lists/:listID/enrichment-tasks/counts.
func (h *EnrichmentHandler) TaskCounts(c *gin.Context) {
	counts, err := h.store.StatusCounts(c.Request.Context(), c.Param("listID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}
