package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/parsers"
)

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun bool // Validate without saving
	// SubmitterID is used for rows that carry no submitter of their own.
	SubmitterID string
	// SkipDuplicates drops rows that match an open claim instead of merging them.
	SkipDuplicates bool
}

// ImportError represents an error for a specific row during import.
type ImportError struct {
	Line    int    // Line number (1-indexed, 0 if unknown)
	Field   string // Which field has the error
	Message string // Human-readable error message
}

func (e ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Imported int
	// Merged counts imported rows that duplicated at least one open claim.
	Merged   int
	Skipped  int
	Errors   []ImportError
	ClaimIDs []string
}

// ImportService submits claims read from files. Every row goes through the
// same intake path as an interactive submission.
type ImportService struct {
	claims *ClaimService
	log    *logger.Logger
}

// NewImportService creates a new import service.
func NewImportService(claims *ClaimService, log *logger.Logger) *ImportService {
	return &ImportService{claims: claims, log: log}
}

// Import validates and submits raw claims. Row-level problems are collected
// in the result; only infrastructure failures abort the import.
func (s *ImportService) Import(ctx context.Context, raws []parsers.RawClaim, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{}

	for i := range raws {
		raw := raws[i]
		line := raw.LineNum
		if line == 0 {
			line = i + 1
		}

		in := SubmitInput{
			SubmitterID: strings.TrimSpace(raw.SubmitterID),
			Title:       raw.Title,
			Description: raw.Description,
			Category:    raw.Category,
			MediaURL:    raw.MediaURL,
			Priority:    raw.Priority,
		}
		if in.SubmitterID == "" {
			in.SubmitterID = opts.SubmitterID
		}

		claim, err := s.claims.build(ctx, in)
		if err != nil {
			if rowErr, ok := asImportError(err, line); ok {
				result.Errors = append(result.Errors, rowErr)
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if opts.SkipDuplicates {
			match, err := s.claims.similarity.FindMatches(ctx, claim)
			if err != nil {
				return nil, fmt.Errorf("line %d: searching duplicates: %w", line, err)
			}
			if len(match.Matches) > 0 {
				result.Skipped++
				continue
			}
		}

		if opts.DryRun {
			result.Imported++
			continue
		}

		submitted, err := s.claims.Submit(ctx, in)
		if err != nil {
			if rowErr, ok := asImportError(err, line); ok {
				result.Errors = append(result.Errors, rowErr)
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		result.Imported++
		if len(submitted.MergedWith) > 0 {
			result.Merged++
		}
		result.ClaimIDs = append(result.ClaimIDs, submitted.Claim.ID)
	}

	s.log.Info("claims imported",
		"imported", result.Imported,
		"merged", result.Merged,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"dry_run", opts.DryRun,
	)
	return result, nil
}

// asImportError turns input problems into row errors.
func asImportError(err error, line int) (ImportError, bool) {
	var verr *entities.ValidationError
	if errors.As(err, &verr) {
		return ImportError{Line: line, Field: verr.Field, Message: verr.Error()}, true
	}
	var nerr *entities.NotFoundError
	if errors.As(err, &nerr) {
		return ImportError{Line: line, Field: nerr.Entity, Message: nerr.Error()}, true
	}
	return ImportError{}, false
}
