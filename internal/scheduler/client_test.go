package scheduler

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type stubSchedulerConfig struct {
	redisURL string
	queue    string
}

func (c stubSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c stubSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c stubSchedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c stubSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(stubSchedulerConfig{}); err == nil {
		t.Fatal("expected error for missing redis url")
	}
}

func TestDispatchTaskEnqueues(t *testing.T) {
	srv := miniredis.RunT(t)

	cfg := stubSchedulerConfig{redisURL: "redis://" + srv.Addr(), queue: "leadflow"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	taskID := uuid.New()
	if err := client.DispatchTask(context.Background(), taskID); err != nil {
		t.Fatalf("DispatchTask: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: srv.Addr()})
	defer inspector.Close()

	pending, err := inspector.ListPendingTasks("leadflow")
	if err != nil {
		t.Fatalf("ListPendingTasks: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	if pending[0].Type != TaskDispatch {
		t.Errorf("task type = %q, want %q", pending[0].Type, TaskDispatch)
	}
	if !strings.Contains(string(pending[0].Payload), taskID.String()) {
		t.Errorf("payload %s does not reference task %s", pending[0].Payload, taskID)
	}
}

func TestParseTaskDispatchPayloadRoundTrip(t *testing.T) {
	taskID := uuid.New()
	msg, err := NewTaskDispatchTask(TaskDispatchPayload{TaskID: taskID.String()})
	if err != nil {
		t.Fatalf("NewTaskDispatchTask: %v", err)
	}

	payload, err := ParseTaskDispatchPayload(msg)
	if err != nil {
		t.Fatalf("ParseTaskDispatchPayload: %v", err)
	}
	if payload.TaskID != taskID.String() {
		t.Errorf("taskId = %q, want %q", payload.TaskID, taskID)
	}
}
