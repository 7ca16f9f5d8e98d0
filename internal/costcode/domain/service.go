package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type CreateBudgetLineRequest struct {
	ProjectID  string          `json:"project_id"`
	CostCodeID string          `json:"cost_code_id"`
	Amount     decimal.Decimal `json:"amount"`
}

type Service interface {
	CreateCostCode(ctx context.Context, req CreateRequest) (*CostCode, error)
	CreateCostType(ctx context.Context, req CreateRequest) (*CostType, error)
	CreateBudgetLine(ctx context.Context, req CreateBudgetLineRequest) (*BudgetLine, error)

	ListCostTypes(ctx context.Context) ([]CostType, error)
	// Catalog lists the cost codes and types usable on a project.
	Catalog(ctx context.Context, projectID snowflake.ID) (Catalog, error)
}
