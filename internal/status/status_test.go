package status_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/golibrary/internal/domain"
	"github.com/jonesrussell/golibrary/internal/status"
)

func ts() *time.Time {
	t := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &t
}

func TestDerive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		task *domain.ContentProcessingTask
		want status.ProcessingStatus
	}{
		{"nil task", nil, status.ProcessingNone},
		{"empty task", &domain.ContentProcessingTask{}, status.ProcessingPending},
		{
			"cancelled wins over everything",
			&domain.ContentProcessingTask{
				ProcessingCancelled:  true,
				ProcessingTimeout:    true,
				ProcessingFinishedAt: ts(),
			},
			status.ProcessingCancelled,
		},
		{
			"timeout wins over failure",
			&domain.ContentProcessingTask{
				ProcessingTimeout:  true,
				ProcessingFailedAt: ts(),
			},
			status.ProcessingTimedOut,
		},
		{
			"processing failed",
			&domain.ContentProcessingTask{
				ProcessingStartedAt: ts(),
				ProcessingFailedAt:  ts(),
			},
			status.ProcessingFailed,
		},
		{
			"processing finished",
			&domain.ContentProcessingTask{
				ProcessingStartedAt:  ts(),
				ProcessingFinishedAt: ts(),
			},
			status.ProcessingCompleted,
		},
		{
			"embedding running",
			&domain.ContentProcessingTask{
				ProcessingStartedAt: ts(),
				ExtractionStartedAt: ts(),
				EmbeddingStartedAt:  ts(),
			},
			status.ProcessingEmbedding,
		},
		{
			"embedding failed",
			&domain.ContentProcessingTask{
				EmbeddingStartedAt: ts(),
				EmbeddingFailedAt:  ts(),
			},
			status.ProcessingEmbeddingFailed,
		},
		{
			"embedding finished",
			&domain.ContentProcessingTask{
				EmbeddingStartedAt:  ts(),
				EmbeddingFinishedAt: ts(),
			},
			status.ProcessingEmbeddingFinished,
		},
		{
			"extracting",
			&domain.ContentProcessingTask{
				ProcessingStartedAt: ts(),
				ExtractionStartedAt: ts(),
			},
			status.ProcessingExtracting,
		},
		{
			"extraction failed",
			&domain.ContentProcessingTask{
				ExtractionStartedAt: ts(),
				ExtractionFailedAt:  ts(),
			},
			status.ProcessingExtractionFailed,
		},
		{
			"extraction finished",
			&domain.ContentProcessingTask{
				ExtractionStartedAt:  ts(),
				ExtractionFinishedAt: ts(),
			},
			status.ProcessingExtractionFinished,
		},
		{
			"validating",
			&domain.ContentProcessingTask{ProcessingStartedAt: ts()},
			status.ProcessingValidating,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, status.Derive(tt.task))
		})
	}
}

func TestExtractionStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		task *domain.ContentProcessingTask
		want status.PhaseStatus
	}{
		{"nil task", nil, status.PhaseNone},
		{"empty task", &domain.ContentProcessingTask{}, status.PhasePending},
		{
			"failed",
			&domain.ContentProcessingTask{ExtractionStartedAt: ts(), ExtractionFailedAt: ts()},
			status.PhaseFailed,
		},
		{
			"completed",
			&domain.ContentProcessingTask{ExtractionStartedAt: ts(), ExtractionFinishedAt: ts()},
			status.PhaseCompleted,
		},
		{
			"skipped when processing finished without extraction",
			&domain.ContentProcessingTask{ProcessingFinishedAt: ts()},
			status.PhaseSkipped,
		},
		{
			"skipped when embedding started without extraction",
			&domain.ContentProcessingTask{EmbeddingStartedAt: ts()},
			status.PhaseSkipped,
		},
		{
			"running",
			&domain.ContentProcessingTask{ExtractionStartedAt: ts()},
			status.PhaseRunning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, status.ExtractionStatus(tt.task))
		})
	}
}

func TestEmbeddingStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		task *domain.ContentProcessingTask
		want status.PhaseStatus
	}{
		{"nil task", nil, status.PhaseNone},
		{"empty task", &domain.ContentProcessingTask{}, status.PhasePending},
		{
			"failed",
			&domain.ContentProcessingTask{EmbeddingStartedAt: ts(), EmbeddingFailedAt: ts()},
			status.PhaseFailed,
		},
		{
			"completed",
			&domain.ContentProcessingTask{EmbeddingStartedAt: ts(), EmbeddingFinishedAt: ts()},
			status.PhaseCompleted,
		},
		{
			"skipped when processing failed",
			&domain.ContentProcessingTask{ProcessingFailedAt: ts()},
			status.PhaseSkipped,
		},
		{
			"running",
			&domain.ContentProcessingTask{EmbeddingStartedAt: ts()},
			status.PhaseRunning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, status.EmbeddingStatus(tt.task))
		})
	}
}

func TestWhereClause_UnknownStatus(t *testing.T) {
	t.Parallel()

	_, err := status.WhereClause(status.ProcessingStatus("bogus"))
	require.ErrorIs(t, err, status.ErrUnknownStatus)

	// "none" means the task is absent; no row predicate can select it.
	_, err = status.WhereClause(status.ProcessingNone)
	require.ErrorIs(t, err, status.ErrUnknownStatus)
}

// predicateHolds interprets the restricted SQL grammar emitted by
// WhereClause ("col IS NULL", "col IS NOT NULL", "col = TRUE" joined by
// AND) against an in-memory task, so the forward and inverse derivations can
// be checked against each other without a database.
func predicateHolds(t *testing.T, clause string, task *domain.ContentProcessingTask) bool {
	t.Helper()

	columns := map[string]any{
		"processing_started_at":  task.ProcessingStartedAt,
		"processing_finished_at": task.ProcessingFinishedAt,
		"processing_failed_at":   task.ProcessingFailedAt,
		"extraction_started_at":  task.ExtractionStartedAt,
		"extraction_finished_at": task.ExtractionFinishedAt,
		"extraction_failed_at":   task.ExtractionFailedAt,
		"embedding_started_at":   task.EmbeddingStartedAt,
		"embedding_finished_at":  task.EmbeddingFinishedAt,
		"embedding_failed_at":    task.EmbeddingFailedAt,
		"processing_timeout":     task.ProcessingTimeout,
		"processing_cancelled":   task.ProcessingCancelled,
	}

	isNull := func(v any) bool {
		tsv, ok := v.(*time.Time)
		require.True(t, ok, "IS NULL applied to non-timestamp column")
		return tsv == nil
	}

	for cond := range strings.SplitSeq(clause, " AND ") {
		switch {
		case strings.HasSuffix(cond, " IS NOT NULL"):
			col := strings.TrimSuffix(cond, " IS NOT NULL")
			if isNull(columns[col]) {
				return false
			}
		case strings.HasSuffix(cond, " IS NULL"):
			col := strings.TrimSuffix(cond, " IS NULL")
			if !isNull(columns[col]) {
				return false
			}
		case strings.HasSuffix(cond, " = TRUE"):
			col := strings.TrimSuffix(cond, " = TRUE")
			flag, ok := columns[col].(bool)
			require.True(t, ok, "= TRUE applied to non-boolean column")
			if !flag {
				return false
			}
		default:
			t.Fatalf("unrecognized condition %q", cond)
		}
	}
	return true
}

// TestForwardInverseConsistency enumerates every timestamp/flag combination
// over the significant fields and checks that for each derived status the
// inverse predicate re-selects the record.
func TestForwardInverseConsistency(t *testing.T) {
	t.Parallel()

	const fieldCount = 11

	for mask := range 1 << fieldCount {
		pick := func(bit int) *time.Time {
			if mask&(1<<bit) != 0 {
				return ts()
			}
			return nil
		}
		task := &domain.ContentProcessingTask{
			ProcessingStartedAt:  pick(0),
			ProcessingFinishedAt: pick(1),
			ProcessingFailedAt:   pick(2),
			ExtractionStartedAt:  pick(3),
			ExtractionFinishedAt: pick(4),
			ExtractionFailedAt:   pick(5),
			EmbeddingStartedAt:   pick(6),
			EmbeddingFinishedAt:  pick(7),
			EmbeddingFailedAt:    pick(8),
			ProcessingTimeout:    mask&(1<<9) != 0,
			ProcessingCancelled:  mask&(1<<10) != 0,
		}

		derived := status.Derive(task)
		require.NotEqual(t, status.ProcessingNone, derived)

		clause, err := status.WhereClause(derived)
		require.NoError(t, err, "derived status %s must have an inverse", derived)
		assert.True(t, predicateHolds(t, clause, task),
			"where clause for %s does not re-select its own record (mask=%b)", derived, mask)
	}
}
