package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/ersonp/calcore/internal/domain/entities"
	apperrors "github.com/ersonp/calcore/internal/domain/errors"
	"github.com/ersonp/calcore/internal/infrastructure/parsers"
)

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format string // "json", "csv", or "auto"
}

// ImportError is a rejected record of an import.
type ImportError struct {
	LineNum int    `json:"line"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Created []entities.Event `json:"created"`
	Errors  []ImportError    `json:"errors,omitempty"`
}

// ImportEvents bulk-creates the events read from a JSON or CSV file.
// Rejected records are reported by their line in the file.
func (h *EventHandler) ImportEvents(ctx context.Context, principal entities.Principal, filePath string, opts ImportOptions) (*ImportResult, error) {
	var parser parsers.Parser
	if opts.Format == "" || opts.Format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(opts.Format)
	}

	if parser == nil {
		return nil, apperrors.Validation("format", fmt.Sprintf("unsupported format for file: %s", filePath))
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	raws, err := parser.Parse(file)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, fmt.Sprintf("parsing %s: %v", filePath, err), err)
	}

	inputs := make([]EventInput, len(raws))
	for i, raw := range raws {
		inputs[i] = EventInput{
			Title:             raw.Title,
			Description:       raw.Description,
			StartTime:         raw.StartTime,
			EndTime:           raw.EndTime,
			Location:          raw.Location,
			IsRecurring:       raw.IsRecurring,
			RecurrencePattern: raw.RecurrencePattern,
		}
	}

	bulk, err := h.BulkCreateEvents(ctx, principal, inputs)
	if bulk == nil {
		return nil, err
	}

	result := &ImportResult{Created: bulk.Created}
	for _, be := range bulk.Errors {
		result.Errors = append(result.Errors, ImportError{
			LineNum: raws[be.Index].LineNum,
			Field:   be.Field,
			Message: be.Message,
		})
	}
	return result, err
}
