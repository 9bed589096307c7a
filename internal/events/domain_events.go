package events

import "github.com/google/uuid"

// Event names, used for bus subscriptions.
const (
	EventLeadCreated      = "lead.created"
	EventLeadUpdated      = "lead.updated"
	EventLeadStageChanged = "lead.stage_changed"
	EventTaskCreated      = "task.created"
	EventTaskUpdated      = "task.updated"
	EventTaskCompleted    = "task.completed"
	EventTaskOverdue      = "task.overdue"
)

// LeadCreated is published when a new lead enters the pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID uuid.UUID
}

func (LeadCreated) EventName() string { return EventLeadCreated }

// LeadUpdated is published when lead fields change outside of a stage transition.
type LeadUpdated struct {
	BaseEvent
	LeadID uuid.UUID
}

func (LeadUpdated) EventName() string { return EventLeadUpdated }

// LeadStageChanged is published when a lead moves through the pipeline graph.
type LeadStageChanged struct {
	BaseEvent
	LeadID     uuid.UUID
	From       string
	To         string
	Correction bool
}

func (LeadStageChanged) EventName() string { return EventLeadStageChanged }

// TaskCreated is published when an automated task is scheduled.
type TaskCreated struct {
	BaseEvent
	TaskID uuid.UUID
	LeadID *uuid.UUID
}

func (TaskCreated) EventName() string { return EventTaskCreated }

// TaskUpdated is published on every task status transition so read-side
// consumers (the change feed) can refresh.
type TaskUpdated struct {
	BaseEvent
	TaskID uuid.UUID
	From   string
	To     string
}

func (TaskUpdated) EventName() string { return EventTaskUpdated }

// TaskCompleted is published when a task reaches the completed state. It is a
// qualifying event for the automation rule engine.
type TaskCompleted struct {
	BaseEvent
	TaskID uuid.UUID
	LeadID *uuid.UUID
}

func (TaskCompleted) EventName() string { return EventTaskCompleted }

// TaskOverdue is an advisory alert raised by the reconciliation tick for
// in-progress tasks that exceed their estimated duration. It never mutates
// task state.
type TaskOverdue struct {
	BaseEvent
	TaskID           uuid.UUID
	ElapsedMinutes   int
	EstimatedMinutes int
}

func (TaskOverdue) EventName() string { return EventTaskOverdue }
