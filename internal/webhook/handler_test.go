package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"leadflow_backend/internal/tasks/repository"
	"leadflow_backend/internal/tasks/service"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// stubTaskRepo satisfies the scheduler's Repository; the callback tests below
// reject their input before any task is touched.
type stubTaskRepo struct{}

func (stubTaskRepo) Create(context.Context, repository.CreateTaskParams) (repository.AutomatedTask, error) {
	return repository.AutomatedTask{}, repository.ErrNotFound
}

func (stubTaskRepo) GetByID(context.Context, uuid.UUID) (repository.AutomatedTask, error) {
	return repository.AutomatedTask{}, repository.ErrNotFound
}

func (stubTaskRepo) GetByWorkflowID(context.Context, string) (repository.AutomatedTask, error) {
	return repository.AutomatedTask{}, repository.ErrNotFound
}

func (stubTaskRepo) List(context.Context) ([]repository.AutomatedTask, error) {
	return nil, nil
}

func (stubTaskRepo) ListFailedDue(context.Context, time.Time) ([]repository.AutomatedTask, error) {
	return nil, nil
}

func (stubTaskRepo) ListScheduledDue(context.Context, time.Time) ([]repository.AutomatedTask, error) {
	return nil, nil
}

func (stubTaskRepo) ListInProgress(context.Context) ([]repository.AutomatedTask, error) {
	return nil, nil
}

func (stubTaskRepo) UpdateCAS(context.Context, repository.AutomatedTask) (repository.AutomatedTask, error) {
	return repository.AutomatedTask{}, repository.ErrNotFound
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	tasks := service.New(stubTaskRepo{}, nil, nil, nil, service.Policy{})
	h := NewHandler(tasks, validator.New(), logger.New("test"))
	engine := gin.New()
	engine.POST("/webhooks/workflow", h.HandleWorkflowCallback)
	return engine
}

func postCallback(t *testing.T, engine *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/workflow", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestCallbackRejectsMalformedTaskID(t *testing.T) {
	engine := newTestRouter()

	rec := postCallback(t, engine, `{"taskId": "not-a-uuid", "status": "completed"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if !strings.Contains(rec.Body.String(), "invalid task id") {
		t.Errorf("body = %s, want invalid task id message", rec.Body.String())
	}
}

func TestCallbackRequiresTaskOrWorkflowID(t *testing.T) {
	engine := newTestRouter()

	rec := postCallback(t, engine, `{"status": "failed"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCallbackUnknownWorkflowIsNotFound(t *testing.T) {
	engine := newTestRouter()

	rec := postCallback(t, engine, `{"workflowId": "wf_unknown", "status": "completed"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
