package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	CreateCostCode(ctx context.Context, code *CostCode) error
	CreateCostType(ctx context.Context, costType *CostType) error
	CreateBudgetLine(ctx context.Context, line *BudgetLine) error
	FindCostCode(ctx context.Context, id snowflake.ID) (*CostCode, error)

	ListCostCodes(ctx context.Context) ([]CostCode, error)
	ListCostTypes(ctx context.Context) ([]CostType, error)
	// ListBudgetCostCodes returns the distinct cost codes on a project's budget.
	ListBudgetCostCodes(ctx context.Context, projectID snowflake.ID) ([]CostCode, error)
}
