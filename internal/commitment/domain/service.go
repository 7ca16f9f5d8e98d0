package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type LineRequest struct {
	Description                string           `json:"description"`
	TotalAmount                decimal.Decimal  `json:"total_amount"`
	CostCodeID                 string           `json:"cost_code_id"`
	CostTypeID                 string           `json:"cost_type_id"`
	DefaultRetainagePercentage *decimal.Decimal `json:"default_retainage_percentage,omitempty"`
}

type CreateRequest struct {
	ProjectID    string         `json:"project_id"`
	Kind         CommitmentKind `json:"kind"`
	Number       string         `json:"number"`
	Title        string         `json:"title"`
	Counterparty string         `json:"counterparty"`
	Lines        []LineRequest  `json:"lines"`
}

type CreateChangeOrderRequest struct {
	CommitmentID string        `json:"commitment_id"`
	Number       string        `json:"number"`
	Lines        []LineRequest `json:"lines"`
}

type Response struct {
	Commitment Commitment       `json:"commitment"`
	Lines      []CommitmentLine `json:"lines"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	CreateChangeOrder(ctx context.Context, req CreateChangeOrderRequest) (*ChangeOrder, error)
	ApproveChangeOrder(ctx context.Context, id string) (*ChangeOrder, error)
	VoidChangeOrder(ctx context.Context, id string) (*ChangeOrder, error)

	FindCommitment(ctx context.Context, id snowflake.ID) (*Commitment, error)
	FindLine(ctx context.Context, id snowflake.ID) (*CommitmentLine, error)
	ResolvedLines(ctx context.Context, commitmentID snowflake.ID) ([]CommitmentLine, error)
}
