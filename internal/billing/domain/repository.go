package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// BilledToDateQuery selects approved billing for a set of commitment lines.
type BilledToDateQuery struct {
	ProjectID         snowflake.ID
	Kind              DocumentKind
	CommitmentLineIDs []snowflake.ID
}

// BillingHistory answers the billed-to-date aggregate over approved documents.
// Lines without any approved billing are absent from the result.
type BillingHistory interface {
	BilledToDate(ctx context.Context, q BilledToDateQuery) (map[snowflake.ID]BilledToDate, error)
}

// PersistResult carries the identifiers assigned by the persistence layer.
type PersistResult struct {
	DocumentID snowflake.ID   `json:"document_id"`
	LineIDs    []snowflake.ID `json:"line_ids"`
}

type Repository interface {
	BillingHistory

	CreateDocument(ctx context.Context, doc *Document) error
	FindDocument(ctx context.Context, id snowflake.ID) (*Document, error)
	// SaveDocument writes the header and replaces the line set atomically.
	SaveDocument(ctx context.Context, doc *Document) (PersistResult, error)
	DeleteDocument(ctx context.Context, id snowflake.ID) error
}
