package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskDispatch = "tasks.dispatch"

type TaskDispatchPayload struct {
	TaskID string `json:"taskId"`
}

func NewTaskDispatchTask(payload TaskDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDispatch, data), nil
}

func ParseTaskDispatchPayload(task *asynq.Task) (TaskDispatchPayload, error) {
	var payload TaskDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return TaskDispatchPayload{}, err
	}
	return payload, nil
}
