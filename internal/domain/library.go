package domain

import (
	"time"
)

// Library is a collection of crawled files sharing one embedding model
// configuration.
type Library struct {
	ID      string `db:"id"       json:"id"`
	Name    string `db:"name"     json:"name"`
	OwnerID string `db:"owner_id" json:"owner_id"`

	// Embedding model used when chunking this library's content. Carried
	// into enrichment task metadata for vector-search context resolution.
	EmbeddingModelName     *string `db:"embedding_model_name"     json:"embedding_model_name,omitempty"`
	EmbeddingModelProvider *string `db:"embedding_model_provider" json:"embedding_model_provider,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
