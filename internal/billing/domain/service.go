package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	commitmentdomain "github.com/smallbiznis/costline/internal/commitment/domain"
	costcodedomain "github.com/smallbiznis/costline/internal/costcode/domain"
)

// CommitmentCatalog is the read side of the commitment line catalog.
type CommitmentCatalog interface {
	FindCommitment(ctx context.Context, id snowflake.ID) (*commitmentdomain.Commitment, error)
	FindLine(ctx context.Context, id snowflake.ID) (*commitmentdomain.CommitmentLine, error)
	ResolvedLines(ctx context.Context, commitmentID snowflake.ID) ([]commitmentdomain.CommitmentLine, error)
}

// CostCatalog supplies the cost codes and cost types a project may bill against.
type CostCatalog interface {
	Catalog(ctx context.Context, projectID snowflake.ID) (costcodedomain.Catalog, error)
}

// Catalogs is the reference data the validation gate checks ids against.
type Catalogs struct {
	Commitments     map[snowflake.ID]struct{}
	CommitmentLines map[snowflake.ID]struct{}
	// ResolvedCommitmentLines is the commitment's current line set in order.
	// A commitment-bound document must mirror it one line per entry.
	ResolvedCommitmentLines []snowflake.ID
	CostCodes               map[snowflake.ID]struct{}
	CostTypes               map[snowflake.ID]struct{}
}

type CreateDocumentRequest struct {
	ProjectID    string         `json:"project_id"`
	Kind         DocumentKind   `json:"kind"`
	CommitmentID *string        `json:"commitment_id,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// DocumentView is a document with its derived figures.
type DocumentView struct {
	Document     Document                      `json:"document"`
	Totals       Totals                        `json:"totals"`
	BilledToDate map[string]LineBillingSummary `json:"billed_to_date,omitempty"`
	Signals      []OverBillingSignal           `json:"signals"`
}

type SubmitResult struct {
	PersistResult
	Totals  Totals              `json:"totals"`
	Signals []OverBillingSignal `json:"signals"`
}

type Service interface {
	CreateDocument(ctx context.Context, req CreateDocumentRequest) (*DocumentView, error)
	GetDocument(ctx context.Context, id string) (*DocumentView, error)
	DeleteDraft(ctx context.Context, id string) error

	AddManualLine(ctx context.Context, documentID string, edits []LineEdit) (*DocumentView, error)
	EditLine(ctx context.Context, documentID, lineID string, edits []LineEdit) (*DocumentView, error)
	RemoveLine(ctx context.Context, documentID, lineID string) (*DocumentView, error)
	ResolveFromCommitment(ctx context.Context, documentID, commitmentID string) (*DocumentView, error)

	ComputeTotals(ctx context.Context, documentID string) (Totals, error)
	Validate(ctx context.Context, documentID string) (ValidationResult, error)
	Submit(ctx context.Context, documentID string) (*SubmitResult, error)
	Transition(ctx context.Context, documentID string, to DocumentStatus) (*DocumentView, error)

	BilledToDate(ctx context.Context, projectID string, kind DocumentKind, commitmentLineID string) (*LineBillingSummary, error)
}
