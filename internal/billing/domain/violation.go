package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ViolationKind classifies a failed invariant.
type ViolationKind string

const (
	ViolationValidation        ViolationKind = "validation_error"
	ViolationLockedDocument    ViolationKind = "locked_document"
	ViolationReferenceNotFound ViolationKind = "reference_not_found"
	ViolationEmptyDocument     ViolationKind = "empty_document"
)

// Sentinels matched by errors.Is against any Violation of the same kind.
var (
	ErrValidation        = errors.New("validation_error")
	ErrLockedDocument    = errors.New("locked_document")
	ErrReferenceNotFound = errors.New("reference_not_found")
	ErrEmptyDocument     = errors.New("empty_document")
)

// Violation is a structured, user-presentable rule failure. LineIndex is nil
// for document-level violations.
type Violation struct {
	Kind      ViolationKind `json:"kind"`
	Code      string        `json:"code"`
	Field     string        `json:"field,omitempty"`
	LineIndex *int          `json:"line_index,omitempty"`
	Message   string        `json:"message"`
}

func (v Violation) Error() string {
	if v.LineIndex != nil {
		return fmt.Sprintf("line %d: %s", *v.LineIndex, v.Message)
	}
	return v.Message
}

func (v Violation) Unwrap() error {
	switch v.Kind {
	case ViolationLockedDocument:
		return ErrLockedDocument
	case ViolationReferenceNotFound:
		return ErrReferenceNotFound
	case ViolationEmptyDocument:
		return ErrEmptyDocument
	default:
		return ErrValidation
	}
}

// AtLine returns a copy of v attributed to the line at index.
func (v Violation) AtLine(index int) Violation {
	v.LineIndex = &index
	return v
}

// Violations is a list of violations usable as a single error.
type Violations []Violation

func (vs Violations) Error() string {
	if len(vs) == 0 {
		return "no violations"
	}
	msgs := make([]string, 0, len(vs))
	for _, v := range vs {
		msgs = append(msgs, v.Error())
	}
	return strings.Join(msgs, "; ")
}

func (vs Violations) Unwrap() []error {
	errs := make([]error, 0, len(vs))
	for _, v := range vs {
		errs = append(errs, v)
	}
	return errs
}

// ValidationError reports a missing or invalid field or field combination.
func ValidationError(field, code, message string) Violation {
	return Violation{Kind: ViolationValidation, Field: field, Code: code, Message: message}
}

// LockedDocumentError reports a structural edit on a commitment-bound document.
func LockedDocumentError(code, message string) Violation {
	return Violation{Kind: ViolationLockedDocument, Code: code, Message: message}
}

// ReferenceNotFoundError reports an id missing from the supplied catalogs.
func ReferenceNotFoundError(field string, id snowflake.ID) Violation {
	return Violation{
		Kind:    ViolationReferenceNotFound,
		Field:   field,
		Code:    "unknown_" + field,
		Message: fmt.Sprintf("%s %s not found", field, id.String()),
	}
}

// EmptyDocumentError reports a document without lines.
func EmptyDocumentError() Violation {
	return Violation{Kind: ViolationEmptyDocument, Code: "empty_document", Message: "document has no line items"}
}

// OverBillingThreshold is the percent complete above which a line is over-billed.
var OverBillingThreshold = decimal.NewFromInt(100)

// OverBillingSource tells whether the percentage came from billing history or
// was entered on the current document.
type OverBillingSource string

const (
	OverBillingSourceSeed    OverBillingSource = "seed"
	OverBillingSourceEntered OverBillingSource = "entered"
)

// OverBillingSignal is a non-fatal warning; it never blocks submission and the
// percentage it carries is never clamped.
type OverBillingSignal struct {
	LineIndex        int               `json:"line_index"`
	LineID           snowflake.ID      `json:"line_id,omitempty"`
	CommitmentLineID snowflake.ID      `json:"commitment_line_id"`
	PercentComplete  decimal.Decimal   `json:"percent_complete"`
	Source           OverBillingSource `json:"source"`
}

// ValidationResult is the outcome of the validation gate.
type ValidationResult struct {
	Violations Violations          `json:"violations"`
	Signals    []OverBillingSignal `json:"signals"`
}

// Valid reports whether the document may be persisted.
func (r ValidationResult) Valid() bool {
	return len(r.Violations) == 0
}

// Err returns the violations as an error, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return r.Violations
}
