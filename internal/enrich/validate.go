package enrich

import (
	"errors"
	"fmt"

	"github.com/jonesrussell/golibrary/internal/domain"
)

// Validation errors. An invalid field definition aborts the whole queue
// operation; it is never handled per file.
var (
	ErrFieldNotEnrichable = errors.New("field is not enrichable")
	ErrInvalidField       = errors.New("invalid field definition")
)

// ValidatedField is a list field that passed enrichment validation. It is
// the only field shape the metadata builder accepts.
type ValidatedField struct {
	ID                string
	ListID            string
	Name              string
	Type              string
	Prompt            string
	LanguageModelID   string
	LanguageModelName string
	LanguageProvider  *string
	FailureTerms      *string
	Context           []domain.FieldContext
}

// ValidateField checks a list field definition against the strict enrichment
// schema: llm_computed source type, non-empty prompt, a language model, and
// well-formed context entries.
func ValidateField(field *domain.ListField) (*ValidatedField, error) {
	if field == nil {
		return nil, fmt.Errorf("%w: field is nil", ErrInvalidField)
	}
	if field.SourceType != domain.FieldSourceLLMComputed {
		return nil, fmt.Errorf("%w: source type %q", ErrFieldNotEnrichable, field.SourceType)
	}
	if field.Prompt == nil || *field.Prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidField)
	}
	if field.LanguageModelID == nil || *field.LanguageModelID == "" {
		return nil, fmt.Errorf("%w: language model is required", ErrInvalidField)
	}
	if field.FileProperty != nil {
		return nil, fmt.Errorf("%w: llm_computed field must not carry a file property", ErrInvalidField)
	}

	modelName := ""
	if field.LanguageModelName != nil {
		modelName = *field.LanguageModelName
	}

	for i := range field.Context {
		if err := validateContextEntry(&field.Context[i]); err != nil {
			return nil, err
		}
	}

	return &ValidatedField{
		ID:                field.ID,
		ListID:            field.ListID,
		Name:              field.Name,
		Type:              field.Type,
		Prompt:            *field.Prompt,
		LanguageModelID:   *field.LanguageModelID,
		LanguageModelName: modelName,
		LanguageProvider:  field.LanguageProvider,
		FailureTerms:      field.FailureTerms,
		Context:           field.Context,
	}, nil
}

func validateContextEntry(ctx *domain.FieldContext) error {
	switch ctx.ContextType {
	case domain.ContextTypeFieldReference:
		if ctx.ContextField == nil {
			return fmt.Errorf("%w: fieldReference context %s has no referenced field", ErrInvalidField, ctx.ID)
		}
	case domain.ContextTypeVectorSearch, domain.ContextTypeWebFetch:
		if ctx.QueryTemplate == nil || *ctx.QueryTemplate == "" {
			return fmt.Errorf("%w: %s context %s has no template", ErrInvalidField, ctx.ContextType, ctx.ID)
		}
	default:
		return fmt.Errorf("%w: unknown context type %q", ErrInvalidField, ctx.ContextType)
	}
	return nil
}
