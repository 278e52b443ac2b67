// Package events defines the payloads CesiZen publishes through the outbox.
package events

import "time"

// Event type names used as outbox keys and Kafka headers.
const (
	TypeReportCreated       = "report.created"
	TypeReportStatusChanged = "report.status_changed"
	TypeDiagnosticCompleted = "diagnostic.completed"
	TypeContentChanged      = "content.changed"
)

// ReportCreated is emitted when a user flags a piece of content.
type ReportCreated struct {
	ReportID   string    `json:"report_id"`
	ReporterID string    `json:"reporter_id"`
	TargetType string    `json:"target_type"`
	TargetID   string    `json:"target_id"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReportStatusChanged tracks moderation decisions.
type ReportStatusChanged struct {
	ReportID   string    `json:"report_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	ChangedBy  string    `json:"changed_by,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Kafka topics the outbox routes events to.
const (
	TopicReports     = "cesizen_reports"
	TopicContent     = "cesizen_content"
	TopicDiagnostics = "cesizen_diagnostics"
)
