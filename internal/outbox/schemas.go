package outbox

import "example.com/cesizen/internal/platform/events"

// SchemaCatalogEntry maps an event type to its JSON schema.
type SchemaCatalogEntry struct {
	Schema string
}

var schemaCatalog = map[string]SchemaCatalogEntry{
	events.TypeReportCreated:       {Schema: reportCreatedSchema},
	events.TypeReportStatusChanged: {Schema: reportStatusChangedSchema},
	events.TypeDiagnosticCompleted: {Schema: diagnosticCompletedSchema},
	events.TypeContentChanged:      {Schema: contentChangedSchema},
}

// KnownEventType reports whether the dispatcher can deliver eventType.
func KnownEventType(eventType string) bool {
	_, ok := schemaCatalog[eventType]
	return ok
}

const reportCreatedSchema = `{
  "type": "object",
  "title": "ReportCreated",
  "properties": {
    "report_id": {"type": "string"},
    "reporter_id": {"type": "string"},
    "target_type": {"type": "string", "enum": ["resource", "info_resource", "comment"]},
    "target_id": {"type": "string"},
    "reason": {"type": "string"},
    "created_at": {"type": "string", "format": "date-time"}
  },
  "required": ["report_id", "reporter_id", "target_type", "target_id", "reason", "created_at"],
  "additionalProperties": false
}`

const reportStatusChangedSchema = `{
  "type": "object",
  "title": "ReportStatusChanged",
  "properties": {
    "report_id": {"type": "string"},
    "from": {"type": "string"},
    "to": {"type": "string"},
    "changed_by": {"type": "string"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["report_id", "from", "to", "occurred_at"],
  "additionalProperties": false
}`

const diagnosticCompletedSchema = `{
  "type": "object",
  "title": "DiagnosticCompleted",
  "properties": {
    "result_id": {"type": "string"},
    "user_id": {"type": "string"},
    "score": {"type": "integer"},
    "level": {"type": "string", "enum": ["low", "moderate", "high"]},
    "event_count": {"type": "integer"},
    "completed_at": {"type": "string", "format": "date-time"}
  },
  "required": ["result_id", "user_id", "score", "level", "event_count", "completed_at"],
  "additionalProperties": false
}`

const contentChangedSchema = `{
  "type": "object",
  "title": "ContentChanged",
  "properties": {
    "entity": {"type": "string"},
    "entity_id": {"type": "string"},
    "action": {"type": "string", "enum": ["created", "updated", "deleted"]},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["entity", "entity_id", "action", "occurred_at"],
  "additionalProperties": false
}`
