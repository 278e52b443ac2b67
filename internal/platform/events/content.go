package events

import "time"

// DiagnosticCompleted is emitted when an authenticated user stores a stress assessment.
type DiagnosticCompleted struct {
	ResultID    string    `json:"result_id"`
	UserID      string    `json:"user_id"`
	Score       int       `json:"score"`
	Level       string    `json:"level"`
	EventCount  int       `json:"event_count"`
	CompletedAt time.Time `json:"completed_at"`
}

// ContentChanged is emitted when an editorial entity is created, updated or deleted.
type ContentChanged struct {
	Entity     string    `json:"entity"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Content actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Entities named by ContentChanged.
const (
	EntityCategory           = "category"
	EntityResource           = "resource"
	EntityInfoResource       = "info_resource"
	EntityDiagnosticCategory = "diagnostic_category"
	EntityDiagnosticQuestion = "diagnostic_question"
	EntityBreathingExercise  = "breathing_exercise"
)
