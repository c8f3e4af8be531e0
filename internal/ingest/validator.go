package ingest

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/lumisearch/lumi/pkg/errors"
)

const maxTextLength = 1 << 20

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return apperrors.ErrInvalidInput }

// Validate checks an event before it reaches the indexer.
func Validate(ev *DocumentEvent) error {
	errs := make(map[string]string)
	if ev.DocID < 0 {
		errs["doc_id"] = "must not be negative"
	}
	if strings.TrimSpace(ev.Text) == "" {
		errs["text"] = "is required"
	} else if len(ev.Text) > maxTextLength {
		errs["text"] = fmt.Sprintf("must be at most %d bytes", maxTextLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
