package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/golibrary/internal/api"
	"github.com/jonesrussell/golibrary/internal/crawl"
	"github.com/jonesrussell/golibrary/internal/database"
	"github.com/jonesrussell/golibrary/internal/domain"
	"github.com/jonesrussell/golibrary/internal/enrich"
	"github.com/jonesrussell/golibrary/internal/logger"
	"github.com/jonesrussell/golibrary/internal/status"
)

type fakeRunner struct {
	result *crawl.RunResult
	err    error

	gotCrawlerID string
	gotByCron    bool
	gotUserID    *string
}

func (f *fakeRunner) Run(_ context.Context, crawlerID string, byCron bool, userID *string) (*crawl.RunResult, error) {
	f.gotCrawlerID = crawlerID
	f.gotByCron = byCron
	f.gotUserID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeQueue struct {
	result *enrich.CreateTasksResult
	err    error

	gotReq *enrich.CreateTasksRequest
}

func (f *fakeQueue) CreateTasks(_ context.Context, req *enrich.CreateTasksRequest) (*enrich.CreateTasksResult, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeStore struct {
	runs         []*domain.CrawlerRun
	tasks        []*domain.ContentProcessingTask
	counts       map[status.ProcessingStatus]int
	enrichTasks  []*domain.EnrichmentTask
	statusCounts map[string]int
	deleted      int64
	deletedTasks int64
	cleared      int64

	gotListID string
	gotScope  enrich.TaskScope
}

func (f *fakeStore) ListRuns(_ context.Context, _ string, _ int) ([]*domain.CrawlerRun, error) {
	return f.runs, nil
}

func (f *fakeStore) ListByStatus(_ context.Context, s status.ProcessingStatus, _ int) ([]*domain.ContentProcessingTask, error) {
	if _, err := status.WhereClause(s); err != nil {
		return nil, err
	}
	return f.tasks, nil
}

func (f *fakeStore) CountByStatus(_ context.Context, s status.ProcessingStatus) (int, error) {
	return f.counts[s], nil
}

func (f *fakeStore) ListTasks(_ context.Context, listID string, _ int) ([]*domain.EnrichmentTask, error) {
	f.gotListID = listID
	return f.enrichTasks, nil
}

func (f *fakeStore) StatusCounts(_ context.Context, listID string) (map[string]int, error) {
	f.gotListID = listID
	return f.statusCounts, nil
}

func (f *fakeStore) DeletePendingTasks(_ context.Context, scope enrich.TaskScope) (int64, error) {
	f.gotScope = scope
	return f.deleted, nil
}

func (f *fakeStore) ClearListEnrichments(_ context.Context, scope enrich.TaskScope) (int64, int64, error) {
	f.gotScope = scope
	return f.deletedTasks, f.cleared, nil
}

func newTestRouter(t *testing.T, runner *fakeRunner, queue *fakeQueue, store *fakeStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New(&logger.Config{Level: "error", Encoding: "console"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return api.SetupRouter(log, runner, queue, store)
}

func doRequest(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &fakeRunner{}, &fakeQueue{}, &fakeStore{})

	w := doRequest(t, router, http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestTriggerRun(t *testing.T) {
	runner := &fakeRunner{result: &crawl.RunResult{RunID: "run-1", FilesCrawled: 3}}
	router := newTestRouter(t, runner, &fakeQueue{}, &fakeStore{})

	w := doRequest(t, router, http.MethodPost, "/api/v1/crawlers/crawler-1/run", `{"user_id":"user-1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if runner.gotCrawlerID != "crawler-1" {
		t.Errorf("expected crawler-1, got %s", runner.gotCrawlerID)
	}
	if runner.gotByCron {
		t.Error("manual trigger must not be marked as cron")
	}
	if runner.gotUserID == nil || *runner.gotUserID != "user-1" {
		t.Errorf("expected user-1, got %v", runner.gotUserID)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["run_id"] != "run-1" {
		t.Errorf("expected run_id run-1, got %v", resp["run_id"])
	}
}

func TestTriggerRun_CrawlerNotFound(t *testing.T) {
	runner := &fakeRunner{err: database.ErrNotFound}
	router := newTestRouter(t, runner, &fakeQueue{}, &fakeStore{})

	w := doRequest(t, router, http.MethodPost, "/api/v1/crawlers/missing/run", "")

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestTriggerRun_UnknownKind(t *testing.T) {
	runner := &fakeRunner{err: crawl.ErrUnknownKind}
	router := newTestRouter(t, runner, &fakeQueue{}, &fakeStore{})

	w := doRequest(t, router, http.MethodPost, "/api/v1/crawlers/crawler-1/run", "")

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", w.Code)
	}
}

func TestListProcessingTasks_UnknownStatus(t *testing.T) {
	router := newTestRouter(t, &fakeRunner{}, &fakeQueue{}, &fakeStore{})

	w := doRequest(t, router, http.MethodGet, "/api/v1/tasks?status=bogus", "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestProcessingTaskCounts(t *testing.T) {
	store := &fakeStore{counts: map[status.ProcessingStatus]int{
		status.ProcessingPending:   7,
		status.ProcessingCompleted: 2,
	}}
	router := newTestRouter(t, &fakeRunner{}, &fakeQueue{}, store)

	w := doRequest(t, router, http.MethodGet, "/api/v1/tasks/counts", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp struct {
		Counts map[string]int `json:"counts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Counts["pending"] != 7 {
		t.Errorf("expected 7 pending, got %d", resp.Counts["pending"])
	}
	if _, ok := resp.Counts["none"]; ok {
		t.Error("none status must not be counted")
	}
}

func TestCreateEnrichmentTasks(t *testing.T) {
	queue := &fakeQueue{result: &enrich.CreateTasksResult{CreatedTasksCount: 4, CleanedUpTasksCount: 1}}
	router := newTestRouter(t, &fakeRunner{}, queue, &fakeStore{})

	body := `{"file_id":"file-1","user_id":"user-1","only_missing_values":true,"priority":5}`
	w := doRequest(t, router, http.MethodPost, "/api/v1/lists/list-1/fields/field-1/enrichment-tasks", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if queue.gotReq.ListID != "list-1" || queue.gotReq.FieldID != "field-1" {
		t.Errorf("unexpected ids: %s/%s", queue.gotReq.ListID, queue.gotReq.FieldID)
	}
	if !queue.gotReq.OnlyMissingValues {
		t.Error("expected only_missing_values to be set")
	}
	if queue.gotReq.Priority != 5 {
		t.Errorf("expected priority 5, got %d", queue.gotReq.Priority)
	}
}

func TestCreateEnrichmentTasks_OnlyMissingDefaultsTrue(t *testing.T) {
	queue := &fakeQueue{result: &enrich.CreateTasksResult{}}
	router := newTestRouter(t, &fakeRunner{}, queue, &fakeStore{})

	body := `{"user_id":"user-1"}`
	w := doRequest(t, router, http.MethodPost, "/api/v1/lists/list-1/fields/field-1/enrichment-tasks", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if !queue.gotReq.OnlyMissingValues {
		t.Error("expected only_missing_values to default to true")
	}
}

func TestCreateEnrichmentTasks_OnlyMissingExplicitFalse(t *testing.T) {
	queue := &fakeQueue{result: &enrich.CreateTasksResult{}}
	router := newTestRouter(t, &fakeRunner{}, queue, &fakeStore{})

	body := `{"user_id":"user-1","only_missing_values":false}`
	w := doRequest(t, router, http.MethodPost, "/api/v1/lists/list-1/fields/field-1/enrichment-tasks", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if queue.gotReq.OnlyMissingValues {
		t.Error("expected only_missing_values false to be honored")
	}
}

func TestCreateEnrichmentTasks_NotAuthorized(t *testing.T) {
	queue := &fakeQueue{err: enrich.ErrNotAuthorized}
	router := newTestRouter(t, &fakeRunner{}, queue, &fakeStore{})

	w := doRequest(t, router, http.MethodPost, "/api/v1/lists/list-1/fields/field-1/enrichment-tasks", "")

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", w.Code)
	}
}

func TestCreateEnrichmentTasks_InvalidField(t *testing.T) {
	queue := &fakeQueue{err: enrich.ErrFieldNotEnrichable}
	router := newTestRouter(t, &fakeRunner{}, queue, &fakeStore{})

	w := doRequest(t, router, http.MethodPost, "/api/v1/lists/list-1/fields/field-1/enrichment-tasks", "")

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected status 422, got %d", w.Code)
	}
}

func TestStopPending(t *testing.T) {
	store := &fakeStore{deleted: 6}
	router := newTestRouter(t, &fakeRunner{}, &fakeQueue{}, store)

	w := doRequest(t, router, http.MethodDelete, "/api/v1/lists/list-1/fields/field-1/enrichment-tasks/pending?file_id=file-9", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	want := enrich.TaskScope{ListID: "list-1", FieldID: "field-1", FileID: "file-9"}
	if store.gotScope != want {
		t.Errorf("unexpected scope: %+v", store.gotScope)
	}

	var resp map[string]float64
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["deleted_tasks_count"] != 6 {
		t.Errorf("expected 6 deleted, got %v", resp["deleted_tasks_count"])
	}
}

func TestClearList(t *testing.T) {
	store := &fakeStore{deletedTasks: 2, cleared: 9}
	router := newTestRouter(t, &fakeRunner{}, &fakeQueue{}, store)

	w := doRequest(t, router, http.MethodPost, "/api/v1/lists/list-1/clear-enrichments?field_id=field-1", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if store.gotScope.FieldID != "field-1" {
		t.Errorf("expected field scope, got %+v", store.gotScope)
	}

	var resp map[string]float64
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["deleted_tasks_count"] != 2 || resp["cleared_caches_count"] != 9 {
		t.Errorf("unexpected counts: %v", resp)
	}
}
