// Package status derives the state of a content processing task from its
// timestamp set. Tasks carry no stored status column: the forward derivations
// here and the inverse query predicates in whereclause.go are the single
// source of truth, and the two must stay structurally consistent. Any new
// status value requires updating both sides.
package status

import (
	"github.com/jonesrussell/golibrary/internal/domain"
)

// ProcessingStatus is the coarse-grained derived status of a task.
type ProcessingStatus string

// Processing statuses, ordered roughly by pipeline progress.
const (
	ProcessingNone               ProcessingStatus = "none"
	ProcessingPending            ProcessingStatus = "pending"
	ProcessingValidating         ProcessingStatus = "validating"
	ProcessingValidationFailed   ProcessingStatus = "validationFailed"
	ProcessingExtracting         ProcessingStatus = "extracting"
	ProcessingExtractionFailed   ProcessingStatus = "extractionFailed"
	ProcessingExtractionFinished ProcessingStatus = "extractionFinished"
	ProcessingEmbedding          ProcessingStatus = "embedding"
	ProcessingEmbeddingFailed    ProcessingStatus = "embeddingFailed"
	ProcessingEmbeddingFinished  ProcessingStatus = "embeddingFinished"
	ProcessingCompleted          ProcessingStatus = "completed"
	ProcessingTimedOut           ProcessingStatus = "timedOut"
	ProcessingCancelled          ProcessingStatus = "cancelled"
	ProcessingFailed             ProcessingStatus = "failed"
)

// ProcessingStatuses lists every derivable processing status.
var ProcessingStatuses = []ProcessingStatus{
	ProcessingNone,
	ProcessingPending,
	ProcessingValidating,
	ProcessingValidationFailed,
	ProcessingExtracting,
	ProcessingExtractionFailed,
	ProcessingExtractionFinished,
	ProcessingEmbedding,
	ProcessingEmbeddingFailed,
	ProcessingEmbeddingFinished,
	ProcessingCompleted,
	ProcessingTimedOut,
	ProcessingCancelled,
	ProcessingFailed,
}

// PhaseStatus is the derived status of a single phase (extraction or
// embedding).
type PhaseStatus string

// Phase statuses shared by extraction and embedding.
const (
	PhaseNone      PhaseStatus = "none"
	PhasePending   PhaseStatus = "pending"
	PhaseRunning   PhaseStatus = "running"
	PhaseCompleted PhaseStatus = "completed"
	PhaseFailed    PhaseStatus = "failed"
	PhaseSkipped   PhaseStatus = "skipped"
)

// ExtractionStatus derives the extraction phase status. The cascade checks
// the latest evidence first; a terminal processing timestamp or a started
// embedding means extraction was bypassed.
func ExtractionStatus(task *domain.ContentProcessingTask) PhaseStatus {
	if task == nil {
		return PhaseNone
	}
	if task.ExtractionFailedAt != nil {
		return PhaseFailed
	}
	if task.ExtractionFinishedAt != nil {
		return PhaseCompleted
	}
	if task.ProcessingFailedAt != nil || task.ProcessingFinishedAt != nil {
		return PhaseSkipped
	}
	if task.EmbeddingStartedAt != nil {
		return PhaseSkipped
	}
	if task.ExtractionStartedAt != nil {
		return PhaseRunning
	}
	return PhasePending
}

// EmbeddingStatus derives the embedding phase status.
func EmbeddingStatus(task *domain.ContentProcessingTask) PhaseStatus {
	if task == nil {
		return PhaseNone
	}
	if task.EmbeddingFailedAt != nil {
		return PhaseFailed
	}
	if task.EmbeddingFinishedAt != nil {
		return PhaseCompleted
	}
	if task.ProcessingFailedAt != nil || task.ProcessingFinishedAt != nil {
		return PhaseSkipped
	}
	if task.EmbeddingStartedAt != nil {
		return PhaseRunning
	}
	return PhasePending
}

// Derive computes the coarse-grained processing status. The cancelled and
// timeout flags take priority over every timestamp, then terminal processing
// timestamps, then the most advanced started phase.
func Derive(task *domain.ContentProcessingTask) ProcessingStatus {
	if task == nil {
		return ProcessingNone
	}
	if task.ProcessingCancelled {
		return ProcessingCancelled
	}
	if task.ProcessingTimeout {
		return ProcessingTimedOut
	}
	if task.ProcessingFailedAt != nil {
		return ProcessingFailed
	}
	if task.ProcessingFinishedAt != nil {
		return ProcessingCompleted
	}
	if task.EmbeddingStartedAt != nil {
		if task.EmbeddingFailedAt != nil {
			return ProcessingEmbeddingFailed
		}
		if task.EmbeddingFinishedAt != nil {
			return ProcessingEmbeddingFinished
		}
		return ProcessingEmbedding
	}
	if task.ExtractionStartedAt != nil {
		if task.ExtractionFailedAt != nil {
			return ProcessingExtractionFailed
		}
		if task.ExtractionFinishedAt != nil {
			return ProcessingExtractionFinished
		}
		return ProcessingExtracting
	}
	if task.ProcessingStartedAt != nil {
		if task.ProcessingFailedAt != nil {
			return ProcessingValidationFailed
		}
		return ProcessingValidating
	}
	return ProcessingPending
}
