// Package domain holds the automated-task state machine: statuses,
// priorities, the legal transition table and retry backoff.
package domain

// Task statuses.
const (
	StatusScheduled  = "scheduled"
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusPaused     = "paused"
)

// Task priorities.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Well-known task types. The set is open: rules and API callers may submit
// types outside this list and they are stored as-is.
const (
	TypeLeadFollowup       = "lead_followup"
	TypeDocumentGeneration = "document_generation"
	TypeComplianceCheck    = "compliance_check"
	TypeSocialMedia        = "social_media"
	TypeEmailCampaign      = "email_campaign"
	TypeWhatsAppSequence   = "whatsapp_sequence"
	TypeMarketReport       = "market_report"
)

var knownStatuses = map[string]struct{}{
	StatusScheduled:  {},
	StatusPending:    {},
	StatusInProgress: {},
	StatusCompleted:  {},
	StatusFailed:     {},
	StatusPaused:     {},
}

var knownPriorities = map[string]struct{}{
	PriorityLow:      {},
	PriorityMedium:   {},
	PriorityHigh:     {},
	PriorityCritical: {},
}

// IsKnownStatus reports whether the status is part of the task state machine.
func IsKnownStatus(status string) bool {
	_, ok := knownStatuses[status]
	return ok
}

// IsKnownPriority reports whether the priority level is recognized.
func IsKnownPriority(priority string) bool {
	_, ok := knownPriorities[priority]
	return ok
}

// IsTerminal reports whether the status ends the task lifecycle. A failed
// task is only terminal once its retry budget is exhausted; that distinction
// lives in the scheduler, not the raw status.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
