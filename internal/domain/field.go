package domain

import (
	"time"
)

// List field source types.
const (
	FieldSourceLLMComputed  = "llm_computed"
	FieldSourceFileProperty = "file_property"
)

// List field value types.
const (
	FieldTypeString   = "string"
	FieldTypeText     = "text"
	FieldTypeMarkdown = "markdown"
	FieldTypeNumber   = "number"
	FieldTypeBoolean  = "boolean"
	FieldTypeDate     = "date"
	FieldTypeDatetime = "datetime"
)

// Context entry types feeding an enrichment prompt.
const (
	ContextTypeFieldReference = "fieldReference"
	ContextTypeVectorSearch   = "vectorSearch"
	ContextTypeWebFetch       = "webFetch"
)

// ListField defines a computed or file-property column in a list. For
// llm_computed fields the prompt, language model, and context entries drive
// the enrichment pipeline.
type ListField struct {
	ID     string `db:"id"      json:"id"`
	ListID string `db:"list_id" json:"list_id"`
	Name   string `db:"name"    json:"name"`

	SourceType   string  `db:"source_type"   json:"source_type"`
	Type         string  `db:"type"          json:"type"`
	FileProperty *string `db:"file_property" json:"file_property,omitempty"`

	// LLM enrichment definition (llm_computed only)
	Prompt            *string `db:"prompt"              json:"prompt,omitempty"`
	LanguageModelID   *string `db:"language_model_id"   json:"language_model_id,omitempty"`
	LanguageModelName *string `db:"language_model_name" json:"language_model_name,omitempty"`
	LanguageProvider  *string `db:"language_provider"   json:"language_provider,omitempty"`
	FailureTerms      *string `db:"failure_terms"       json:"failure_terms,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Context is the ordered list of context entries, loaded with the field.
	Context []FieldContext `db:"-" json:"context,omitempty"`
}

// FieldContext is one context entry of a list field: a reference to another
// field, a vector search, or a web fetch.
type FieldContext struct {
	ID          string `db:"id"           json:"id"`
	FieldID     string `db:"field_id"     json:"field_id"`
	ContextType string `db:"context_type" json:"context_type"`
	Position    int    `db:"position"     json:"position"`

	// Query template for vectorSearch/webFetch entries
	QueryTemplate    *string  `db:"query_template"     json:"query_template,omitempty"`
	MaxChunks        *int     `db:"max_chunks"         json:"max_chunks,omitempty"`
	MaxDistance      *float64 `db:"max_distance"       json:"max_distance,omitempty"`
	MaxContentTokens *int     `db:"max_content_tokens" json:"max_content_tokens,omitempty"`

	// Referenced field for fieldReference entries
	ContextFieldID *string    `db:"context_field_id" json:"context_field_id,omitempty"`
	ContextField   *ListField `db:"-"                json:"context_field,omitempty"`
}

// List is a user-defined table of computed fields over one or more library
// sources.
type List struct {
	ID        string    `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	OwnerID   string    `db:"owner_id"   json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// LibraryIDs are the library sources attached to the list.
	LibraryIDs []string `db:"-" json:"library_ids,omitempty"`
}
