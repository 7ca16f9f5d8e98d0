package server

import (
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
)

func parseOptionalSnowflakeID(value string) (*snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed == 0 {
		return nil, errors.New("invalid_snowflake_id")
	}
	return &parsed, nil
}

// parseDocumentKind reads the kind query parameter. An empty value means invoice.
func parseDocumentKind(value string) (billingdomain.DocumentKind, error) {
	kind := billingdomain.DocumentKind(strings.ToLower(strings.TrimSpace(value)))
	if kind == "" {
		return billingdomain.DocumentKindInvoice, nil
	}
	if !kind.Valid() {
		return "", billingdomain.ErrInvalidDocumentKind
	}
	return kind, nil
}
