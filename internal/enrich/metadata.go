package enrich

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/golibrary/internal/domain"
)

// File properties resolvable for fieldReference context entries.
const (
	FilePropertyName       = "name"
	FilePropertyOriginURI  = "originUri"
	FilePropertySource     = "source"
	FilePropertyCrawlerURI = "crawlerUri"
)

// Metadata is the JSON document stored on each enrichment task. Input is
// written at task creation, Output is appended by the worker.
type Metadata struct {
	Input  *InputMetadata  `json:"input,omitempty"`
	Output *OutputMetadata `json:"output,omitempty"`
}

// InputMetadata snapshots everything the worker needs to run one enrichment:
// the file, the field definition, the model, and the resolved context.
type InputMetadata struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`

	FieldID      string  `json:"fieldId"`
	FieldName    string  `json:"fieldName"`
	DataType     string  `json:"dataType"`
	FailureTerms *string `json:"failureTerms,omitempty"`

	LibraryID   string `json:"libraryId"`
	LibraryName string `json:"libraryName"`

	AIModelID          string  `json:"aiModelId"`
	AIModelName        string  `json:"aiModelName"`
	AIModelProvider    *string `json:"aiModelProvider,omitempty"`
	AIGenerationPrompt string  `json:"aiGenerationPrompt"`

	ContextFields         []ContextFieldValue   `json:"contextFields,omitempty"`
	ContextVectorSearches []VectorSearchContext `json:"contextVectorSearches,omitempty"`
	ContextWebFetches     []WebFetchContext     `json:"contextWebFetches,omitempty"`

	LibraryEmbeddingModel         *string `json:"libraryEmbeddingModel,omitempty"`
	LibraryEmbeddingModelProvider *string `json:"libraryEmbeddingModelProvider,omitempty"`
}

// ContextFieldValue is the resolved value of one referenced field at task
// creation time. Value is nil when the referenced field has no value yet.
type ContextFieldValue struct {
	FieldID      string  `json:"fieldId"`
	FieldName    string  `json:"fieldName"`
	Value        *string `json:"value"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
}

// VectorSearchContext carries an unresolved vector search template. The
// worker substitutes placeholders and runs the search at processing time.
type VectorSearchContext struct {
	QueryTemplate    string   `json:"queryTemplate"`
	MaxChunks        *int     `json:"maxChunks,omitempty"`
	MaxDistance      *float64 `json:"maxDistance,omitempty"`
	MaxContentTokens *int     `json:"maxContentTokens,omitempty"`
}

// WebFetchContext carries an unresolved web fetch URL template.
type WebFetchContext struct {
	URLTemplate      string `json:"urlTemplate"`
	MaxContentTokens *int   `json:"maxContentTokens,omitempty"`
}

// OutputMetadata records what the worker produced.
type OutputMetadata struct {
	EnrichedValue *string   `json:"enrichedValue,omitempty"`
	Messages      []Message `json:"messages,omitempty"`
	Issues        []string  `json:"issues,omitempty"`
}

// Message is one chat message exchanged with the language model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FileContext bundles per-file inputs to the metadata builder: the file, its
// library, the crawler it came from, and the cached values of the fields the
// enriched field references.
type FileContext struct {
	File        *domain.LibraryFile
	LibraryName string
	CrawlerURI  *string

	EmbeddingModel         *string
	EmbeddingModelProvider *string

	// CachedValues maps field ID to the cached list item value, for
	// llm_computed fields referenced as context.
	CachedValues map[string]*domain.ListItemCache
}

// BuildInputMetadata assembles the input metadata document for one file and
// one validated field. Context field values are resolved eagerly so the
// worker sees the values as of task creation.
func BuildInputMetadata(field *ValidatedField, fc *FileContext) *InputMetadata {
	meta := &InputMetadata{
		FileID:   fc.File.ID,
		FileName: fc.File.Name,

		FieldID:      field.ID,
		FieldName:    field.Name,
		DataType:     field.Type,
		FailureTerms: field.FailureTerms,

		LibraryID:   fc.File.LibraryID,
		LibraryName: fc.LibraryName,

		AIModelID:          field.LanguageModelID,
		AIModelName:        field.LanguageModelName,
		AIModelProvider:    field.LanguageProvider,
		AIGenerationPrompt: field.Prompt,

		LibraryEmbeddingModel:         fc.EmbeddingModel,
		LibraryEmbeddingModelProvider: fc.EmbeddingModelProvider,
	}

	for i := range field.Context {
		ctx := &field.Context[i]
		switch ctx.ContextType {
		case domain.ContextTypeFieldReference:
			meta.ContextFields = append(meta.ContextFields, resolveContextField(ctx.ContextField, fc))
		case domain.ContextTypeVectorSearch:
			meta.ContextVectorSearches = append(meta.ContextVectorSearches, VectorSearchContext{
				QueryTemplate:    *ctx.QueryTemplate,
				MaxChunks:        ctx.MaxChunks,
				MaxDistance:      ctx.MaxDistance,
				MaxContentTokens: ctx.MaxContentTokens,
			})
		case domain.ContextTypeWebFetch:
			meta.ContextWebFetches = append(meta.ContextWebFetches, WebFetchContext{
				URLTemplate:      *ctx.QueryTemplate,
				MaxContentTokens: ctx.MaxContentTokens,
			})
		}
	}

	return meta
}

func resolveContextField(ref *domain.ListField, fc *FileContext) ContextFieldValue {
	out := ContextFieldValue{FieldID: ref.ID, FieldName: ref.Name}

	if ref.SourceType == domain.FieldSourceFileProperty {
		out.Value = resolveFileProperty(ref, fc)
		return out
	}

	cache, ok := fc.CachedValues[ref.ID]
	if !ok || cache == nil {
		return out
	}
	out.Value = cachedValueString(ref.Type, cache)
	out.ErrorMessage = cache.EnrichmentErrorMessage
	return out
}

func resolveFileProperty(ref *domain.ListField, fc *FileContext) *string {
	if ref.FileProperty == nil {
		return nil
	}
	switch *ref.FileProperty {
	case FilePropertyName:
		return strPtr(fc.File.Name)
	case FilePropertyOriginURI:
		return strPtr(fc.File.OriginURI)
	case FilePropertySource:
		return strPtr(fc.LibraryName)
	case FilePropertyCrawlerURI:
		return fc.CrawlerURI
	default:
		return nil
	}
}

// cachedValueString renders a typed cached value as the string handed to the
// language model.
func cachedValueString(fieldType string, cache *domain.ListItemCache) *string {
	switch fieldType {
	case domain.FieldTypeNumber:
		if cache.ValueNumber == nil {
			return nil
		}
		return strPtr(strconv.FormatFloat(*cache.ValueNumber, 'f', -1, 64))
	case domain.FieldTypeBoolean:
		if cache.ValueBoolean == nil {
			return nil
		}
		if *cache.ValueBoolean {
			return strPtr("Yes")
		}
		return strPtr("No")
	case domain.FieldTypeDate:
		if cache.ValueDate == nil {
			return nil
		}
		return strPtr(cache.ValueDate.Format("2006-01-02"))
	case domain.FieldTypeDatetime:
		if cache.ValueDatetime == nil {
			return nil
		}
		return strPtr(cache.ValueDatetime.Format(time.RFC3339))
	default:
		return cache.ValueString
	}
}

// ParseMetadata decodes a stored metadata document. Workers treat a decode
// failure as fatal for the task rather than retrying.
func ParseMetadata(raw string) (*Metadata, error) {
	var meta Metadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse task metadata: %w", err)
	}
	if meta.Input == nil {
		return nil, fmt.Errorf("task metadata has no input section")
	}
	return &meta, nil
}

// EncodeMetadata serializes a metadata document for storage.
func EncodeMetadata(meta *Metadata) (string, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode task metadata: %w", err)
	}
	return string(raw), nil
}

// missingValues are cached value strings treated as absent when queuing with
// only-missing-values semantics.
var missingValues = map[string]struct{}{
	"":        {},
	"unknown": {},
	"n/a":     {},
	"na":      {},
	"none":    {},
	"null":    {},
}

// IsMissingValue reports whether a cached value counts as missing.
func IsMissingValue(value *string) bool {
	if value == nil {
		return true
	}
	_, ok := missingValues[strings.ToLower(strings.TrimSpace(*value))]
	return ok
}

func strPtr(s string) *string { return &s }
