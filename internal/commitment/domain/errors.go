package domain

import "errors"

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidProject      = errors.New("invalid_project")
	ErrInvalidKind         = errors.New("invalid_kind")
	ErrInvalidNumber       = errors.New("invalid_number")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidRetainage    = errors.New("invalid_retainage")
	ErrInvalidCostCode     = errors.New("invalid_cost_code")
	ErrInvalidCostType     = errors.New("invalid_cost_type")
	ErrNotFound            = errors.New("not_found")
	ErrChangeOrderNotFound = errors.New("change_order_not_found")
	ErrChangeOrderNotDraft = errors.New("change_order_not_draft")
	ErrEmptyChangeOrder    = errors.New("empty_change_order")
)
