package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/golibrary/internal/domain"
	"github.com/jonesrussell/golibrary/internal/logger"
)

// ErrNotAuthorized is returned when the requesting user does not own the
// target list.
var ErrNotAuthorized = errors.New("not authorized for list")

// Candidate is one enrichable file joined with the library attributes the
// metadata builder needs.
type Candidate struct {
	File        *domain.LibraryFile
	LibraryName string
	CrawlerURI  *string

	EmbeddingModel         *string
	EmbeddingModelProvider *string
}

// Store is the persistence surface the queue manager drives. The database
// package implements it.
type Store interface {
	// FieldWithContext loads a list field with its context entries and
	// referenced fields resolved.
	FieldWithContext(ctx context.Context, fieldID string) (*domain.ListField, error)

	// GetList loads a list by ID.
	GetList(ctx context.Context, listID string) (*domain.List, error)

	// Candidates returns the non-archived files of the list's libraries.
	Candidates(ctx context.Context, listID string) ([]*Candidate, error)

	// CachedValues returns the list item cache rows for the given fields
	// and files.
	CachedValues(ctx context.Context, fieldIDs, fileIDs []string) ([]*domain.ListItemCache, error)

	// ReplaceTasks deletes all existing enrichment tasks for the
	// (listID, fieldID) pair and creates the given tasks, atomically.
	// It returns the number of deleted tasks.
	ReplaceTasks(ctx context.Context, listID, fieldID string, tasks []*domain.EnrichmentTask) (int64, error)

	// DeletePendingTasks removes tasks still in pending status within the
	// scope and returns how many were deleted.
	DeletePendingTasks(ctx context.Context, scope TaskScope) (int64, error)

	// ClearListEnrichments deletes the scope's cached values and its
	// non-terminal tasks, atomically. It returns the number of deleted
	// tasks and cache rows.
	ClearListEnrichments(ctx context.Context, scope TaskScope) (deletedTasks, clearedCaches int64, err error)
}

// TaskScope selects enrichment rows. ListID is required; FieldID and FileID
// narrow the scope when set.
type TaskScope struct {
	ListID  string
	FieldID string
	FileID  string
}

// Manager queues, prunes, and clears enrichment tasks for list fields.
type Manager struct {
	store  Store
	logger logger.Interface
	now    func() time.Time
}

// NewManager creates an enrichment queue manager.
func NewManager(store Store, log logger.Interface) *Manager {
	return &Manager{
		store:  store,
		logger: log.WithComponent("enrich"),
		now:    time.Now,
	}
}

// CreateTasksRequest describes one queue operation.
type CreateTasksRequest struct {
	ListID  string
	FieldID string
	// FileID narrows the operation to a single file when set.
	FileID string
	// UserID is the requesting user; empty skips the ownership check
	// (internal callers such as the scheduler).
	UserID string
	// OnlyMissingValues restricts queuing to files whose cached value for
	// the field is absent or a placeholder.
	OnlyMissingValues bool
	Priority          int
}

// CreateTasksResult reports what a queue operation did.
type CreateTasksResult struct {
	CreatedTasksCount   int   `json:"created_tasks_count"`
	CleanedUpTasksCount int64 `json:"cleaned_up_tasks_count"`
}

// CreateTasks validates the field, resolves candidate files, and replaces
// the field's task queue with fresh pending tasks carrying per-file input
// metadata. Having no candidates is a success with zero created tasks, not
// an error.
func (m *Manager) CreateTasks(ctx context.Context, req *CreateTasksRequest) (*CreateTasksResult, error) {
	field, err := m.store.FieldWithContext(ctx, req.FieldID)
	if err != nil {
		return nil, fmt.Errorf("failed to load field %s: %w", req.FieldID, err)
	}
	if field.ListID != req.ListID {
		return nil, fmt.Errorf("%w: field %s does not belong to list %s", ErrInvalidField, req.FieldID, req.ListID)
	}

	if err := m.authorize(ctx, req.ListID, req.UserID); err != nil {
		return nil, err
	}

	validated, err := ValidateField(field)
	if err != nil {
		return nil, err
	}

	candidates, err := m.store.Candidates(ctx, req.ListID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate files: %w", err)
	}
	if req.FileID != "" {
		candidates = filterFile(candidates, req.FileID)
	}

	caches, err := m.loadCaches(ctx, validated, candidates, req.OnlyMissingValues)
	if err != nil {
		return nil, err
	}

	if req.OnlyMissingValues {
		candidates = filterMissing(validated, candidates, caches)
	}

	// No candidates is a success with zero created tasks; the existing
	// queue is left untouched.
	if len(candidates) == 0 {
		m.logger.Info("no candidate files to enrich",
			"list_id", req.ListID, "field_id", req.FieldID)
		return &CreateTasksResult{}, nil
	}

	tasks := make([]*domain.EnrichmentTask, 0, len(candidates))
	for _, cand := range candidates {
		task, err := m.buildTask(validated, cand, caches[cand.File.ID], req.Priority)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	deleted, err := m.store.ReplaceTasks(ctx, req.ListID, req.FieldID, tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to replace enrichment tasks: %w", err)
	}

	m.logger.Info("queued enrichment tasks",
		"list_id", req.ListID,
		"field_id", req.FieldID,
		"created", len(tasks),
		"cleaned_up", deleted)

	return &CreateTasksResult{
		CreatedTasksCount:   len(tasks),
		CleanedUpTasksCount: deleted,
	}, nil
}

// DeletePendingTasks removes the scope's still-pending tasks. Tasks already
// picked up by a worker are left alone.
func (m *Manager) DeletePendingTasks(ctx context.Context, scope TaskScope, userID string) (int64, error) {
	if err := m.authorize(ctx, scope.ListID, userID); err != nil {
		return 0, err
	}
	deleted, err := m.store.DeletePendingTasks(ctx, scope)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending tasks: %w", err)
	}
	m.logger.Info("deleted pending enrichment tasks",
		"list_id", scope.ListID, "field_id", scope.FieldID, "deleted", deleted)
	return deleted, nil
}

// ClearListEnrichments wipes the scope's cached values and its non-terminal
// tasks in a single transaction, leaving a clean slate for a re-run.
func (m *Manager) ClearListEnrichments(ctx context.Context, scope TaskScope, userID string) (deletedTasks, clearedCaches int64, err error) {
	if err := m.authorize(ctx, scope.ListID, userID); err != nil {
		return 0, 0, err
	}
	deletedTasks, clearedCaches, err = m.store.ClearListEnrichments(ctx, scope)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to clear list enrichments: %w", err)
	}
	m.logger.Info("cleared list enrichments",
		"list_id", scope.ListID, "deleted_tasks", deletedTasks, "cleared_values", clearedCaches)
	return deletedTasks, clearedCaches, nil
}

func (m *Manager) authorize(ctx context.Context, listID, userID string) error {
	if userID == "" {
		return nil
	}
	list, err := m.store.GetList(ctx, listID)
	if err != nil {
		return fmt.Errorf("failed to load list %s: %w", listID, err)
	}
	if list.OwnerID != userID {
		return fmt.Errorf("%w: user %s does not own list %s", ErrNotAuthorized, userID, listID)
	}
	return nil
}

// loadCaches fetches cached values for the referenced context fields, plus
// the target field itself when only-missing filtering is requested. The
// result maps file ID to field ID to cache row.
func (m *Manager) loadCaches(
	ctx context.Context,
	field *ValidatedField,
	candidates []*Candidate,
	includeTarget bool,
) (map[string]map[string]*domain.ListItemCache, error) {
	fieldIDs := make([]string, 0, len(field.Context)+1)
	for i := range field.Context {
		fctx := &field.Context[i]
		if fctx.ContextType == domain.ContextTypeFieldReference &&
			fctx.ContextField.SourceType == domain.FieldSourceLLMComputed {
			fieldIDs = append(fieldIDs, fctx.ContextField.ID)
		}
	}
	if includeTarget {
		fieldIDs = append(fieldIDs, field.ID)
	}

	out := make(map[string]map[string]*domain.ListItemCache, len(candidates))
	if len(fieldIDs) == 0 || len(candidates) == 0 {
		return out, nil
	}

	fileIDs := make([]string, len(candidates))
	for i, cand := range candidates {
		fileIDs[i] = cand.File.ID
	}

	rows, err := m.store.CachedValues(ctx, fieldIDs, fileIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached values: %w", err)
	}
	for _, row := range rows {
		byField, ok := out[row.FileID]
		if !ok {
			byField = make(map[string]*domain.ListItemCache)
			out[row.FileID] = byField
		}
		byField[row.FieldID] = row
	}
	return out, nil
}

func filterFile(candidates []*Candidate, fileID string) []*Candidate {
	for _, cand := range candidates {
		if cand.File.ID == fileID {
			return []*Candidate{cand}
		}
	}
	return nil
}

// filterMissing keeps files with no cached value, a placeholder value, or a
// prior enrichment error.
func filterMissing(
	field *ValidatedField,
	candidates []*Candidate,
	caches map[string]map[string]*domain.ListItemCache,
) []*Candidate {
	kept := candidates[:0]
	for _, cand := range candidates {
		cache := caches[cand.File.ID][field.ID]
		if cache == nil || cache.EnrichmentErrorMessage != nil ||
			IsMissingValue(cachedValueString(field.Type, cache)) {
			kept = append(kept, cand)
		}
	}
	return kept
}

func (m *Manager) buildTask(
	field *ValidatedField,
	cand *Candidate,
	cached map[string]*domain.ListItemCache,
	priority int,
) (*domain.EnrichmentTask, error) {
	input := BuildInputMetadata(field, &FileContext{
		File:                   cand.File,
		LibraryName:            cand.LibraryName,
		CrawlerURI:             cand.CrawlerURI,
		EmbeddingModel:         cand.EmbeddingModel,
		EmbeddingModelProvider: cand.EmbeddingModelProvider,
		CachedValues:           cached,
	})
	raw, err := EncodeMetadata(&Metadata{Input: input})
	if err != nil {
		return nil, err
	}
	return &domain.EnrichmentTask{
		ID:          uuid.NewString(),
		ListID:      field.ListID,
		FieldID:     field.ID,
		FileID:      cand.File.ID,
		Status:      domain.EnrichmentStatusPending,
		Priority:    priority,
		RequestedAt: m.now(),
		Metadata:    raw,
	}, nil
}
