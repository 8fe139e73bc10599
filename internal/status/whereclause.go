package status

import (
	"errors"
	"fmt"
)

// ErrUnknownStatus is returned when a where clause is requested for a status
// the deriver does not know. Callers treat this as a fatal configuration
// error.
var ErrUnknownStatus = errors.New("unknown processing status")

// WhereClause returns the SQL predicate selecting content processing task
// rows whose derived status equals the given status. The predicates mirror
// the cascade in Derive; the two must be updated together.
func WhereClause(s ProcessingStatus) (string, error) {
	switch s {
	case ProcessingPending:
		return "processing_started_at IS NULL", nil

	case ProcessingValidating:
		return "processing_started_at IS NOT NULL" +
			" AND processing_finished_at IS NULL" +
			" AND processing_failed_at IS NULL" +
			" AND extraction_started_at IS NULL" +
			" AND embedding_started_at IS NULL", nil

	case ProcessingValidationFailed:
		return "processing_failed_at IS NOT NULL" +
			" AND extraction_started_at IS NULL" +
			" AND embedding_started_at IS NULL", nil

	case ProcessingExtracting:
		return "extraction_started_at IS NOT NULL" +
			" AND extraction_finished_at IS NULL" +
			" AND extraction_failed_at IS NULL", nil

	case ProcessingExtractionFailed:
		return "extraction_started_at IS NOT NULL" +
			" AND extraction_failed_at IS NOT NULL", nil

	case ProcessingExtractionFinished:
		return "extraction_finished_at IS NOT NULL", nil

	case ProcessingEmbedding:
		return "embedding_started_at IS NOT NULL" +
			" AND embedding_finished_at IS NULL" +
			" AND embedding_failed_at IS NULL", nil

	case ProcessingEmbeddingFailed:
		return "embedding_failed_at IS NOT NULL", nil

	case ProcessingEmbeddingFinished:
		return "embedding_finished_at IS NOT NULL", nil

	case ProcessingCancelled:
		return "processing_cancelled = TRUE", nil

	case ProcessingTimedOut:
		return "processing_timeout = TRUE", nil

	case ProcessingCompleted:
		return "processing_finished_at IS NOT NULL", nil

	case ProcessingFailed:
		return "processing_failed_at IS NOT NULL", nil

	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownStatus, s)
	}
}
