package domain

import (
	"time"
)

// Enrichment task statuses.
const (
	EnrichmentStatusPending    = "pending"
	EnrichmentStatusProcessing = "processing"
	EnrichmentStatusCompleted  = "completed"
	EnrichmentStatusError      = "error"
	EnrichmentStatusFailed     = "failed"
	EnrichmentStatusCanceled   = "canceled"
)

// EnrichmentStatuses lists all valid enrichment task statuses.
var EnrichmentStatuses = []string{
	EnrichmentStatusPending,
	EnrichmentStatusProcessing,
	EnrichmentStatusCompleted,
	EnrichmentStatusError,
	EnrichmentStatusFailed,
	EnrichmentStatusCanceled,
}

// EnrichmentTask is one unit of work computing an LLM-derived value for one
// file/field pair. Metadata holds the JSON-serialized enrichment metadata
// document built at creation time and appended to by the worker.
type EnrichmentTask struct {
	ID      string `db:"id"       json:"id"`
	ListID  string `db:"list_id"  json:"list_id"`
	FieldID string `db:"field_id" json:"field_id"`
	FileID  string `db:"file_id"  json:"file_id"`

	Status   string `db:"status"   json:"status"`
	Priority int    `db:"priority" json:"priority"`

	RequestedAt time.Time  `db:"requested_at" json:"requested_at"`
	StartedAt   *time.Time `db:"started_at"   json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`

	ErrorMessage *string `db:"error_message" json:"error_message,omitempty"`
	Metadata     string  `db:"metadata"      json:"metadata"`
}

// ListItemCache is the persisted materialized value per (file, field): the
// enrichment's durable output.
type ListItemCache struct {
	ID      string `db:"id"       json:"id"`
	FileID  string `db:"file_id"  json:"file_id"`
	FieldID string `db:"field_id" json:"field_id"`

	ValueString   *string    `db:"value_string"   json:"value_string,omitempty"`
	ValueNumber   *float64   `db:"value_number"   json:"value_number,omitempty"`
	ValueBoolean  *bool      `db:"value_boolean"  json:"value_boolean,omitempty"`
	ValueDate     *time.Time `db:"value_date"     json:"value_date,omitempty"`
	ValueDatetime *time.Time `db:"value_datetime" json:"value_datetime,omitempty"`

	EnrichmentErrorMessage *string `db:"enrichment_error_message" json:"enrichment_error_message,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
