package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/parsers"
)

func TestImportService_Import(t *testing.T) {
	h := newHarness(t)
	svc := NewImportService(h.claims, logger.Nop())

	raws := []parsers.RawClaim{
		{Title: sampleTitles[0], Category: "health", LineNum: 2},
		{Title: sampleTitles[1], Category: "economy", Priority: "high", LineNum: 3},
		{Title: sampleTitles[0], Category: "health", LineNum: 4},
	}

	result, err := svc.Import(context.Background(), raws, ImportOptions{SubmitterID: submitterID})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 1, result.Merged)
	assert.Empty(t, result.Errors)
	require.Len(t, result.ClaimIDs, 3)
	assert.Len(t, h.queue.Jobs(), 3, "every imported claim is queued for AI verification")

	first, err := h.db.FindClaimByID(context.Background(), result.ClaimIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 2, first.SubmissionCount)
}

func TestImportService_RowErrors(t *testing.T) {
	h := newHarness(t)
	svc := NewImportService(h.claims, logger.Nop())

	raws := []parsers.RawClaim{
		{Title: "short", LineNum: 2},
		{Title: sampleTitles[2], Priority: "urgent", LineNum: 3},
		{Title: sampleTitles[3], SubmitterID: "ghost", LineNum: 4},
		{Title: sampleTitles[4], MediaURL: "ftp://files", LineNum: 5},
		{Title: sampleTitles[5]},
	}

	result, err := svc.Import(context.Background(), raws, ImportOptions{SubmitterID: submitterID})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Errors, 4)
	assert.Equal(t, ImportError{Line: 2, Field: "title", Message: result.Errors[0].Message}, result.Errors[0])
	assert.Equal(t, "priority", result.Errors[1].Field)
	assert.Equal(t, "user", result.Errors[2].Field)
	assert.Equal(t, 4, result.Errors[2].Line)
	assert.Equal(t, "media_url", result.Errors[3].Field)
	assert.Contains(t, result.Errors[3].Error(), "line 5:")
}

func TestImportService_MissingSubmitter(t *testing.T) {
	h := newHarness(t)
	svc := NewImportService(h.claims, logger.Nop())

	result, err := svc.Import(context.Background(), []parsers.RawClaim{{Title: sampleTitles[0]}}, ImportOptions{})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "submitter_id", result.Errors[0].Field)
	assert.Equal(t, 1, result.Errors[0].Line)
}

func TestImportService_DryRun(t *testing.T) {
	h := newHarness(t)
	svc := NewImportService(h.claims, logger.Nop())

	raws := []parsers.RawClaim{{Title: sampleTitles[0]}, {Title: sampleTitles[1]}}
	result, err := svc.Import(context.Background(), raws, ImportOptions{DryRun: true, SubmitterID: submitterID})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Empty(t, result.ClaimIDs)
	assert.Empty(t, h.queue.Jobs())
	assert.Empty(t, h.db.Claims)
}

func TestImportService_SkipDuplicates(t *testing.T) {
	h := newHarness(t)
	existing := h.putClaim(t, "c1", "pending")
	svc := NewImportService(h.claims, logger.Nop())

	raws := []parsers.RawClaim{{Title: existing.Title}, {Title: sampleTitles[5]}}
	result, err := svc.Import(context.Background(), raws, ImportOptions{SubmitterID: submitterID, SkipDuplicates: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Merged)
}
