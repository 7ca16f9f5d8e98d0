package domain

import "errors"

var (
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidProject = errors.New("invalid_project")
	ErrInvalidCode    = errors.New("invalid_code")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidAmount  = errors.New("invalid_amount")
	ErrDuplicateCode  = errors.New("duplicate_code")
	ErrNotFound       = errors.New("not_found")
)
