package domain

import "errors"

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidProject       = errors.New("invalid_project")
	ErrInvalidDocumentKind  = errors.New("invalid_document_kind")
	ErrDocumentNotFound     = errors.New("document_not_found")
	ErrLineNotFound         = errors.New("line_not_found")
	ErrDocumentNotDraft     = errors.New("document_not_draft")
	ErrInvalidTransition    = errors.New("invalid_status_transition")
	ErrSubmitInProgress     = errors.New("submit_in_progress")
	ErrDocumentNotSubmitted = errors.New("document_not_submitted")
)
