package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	costcodedomain "github.com/smallbiznis/costline/internal/costcode/domain"
	"github.com/smallbiznis/costline/pkg/db"
	"github.com/smallbiznis/costline/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db        *gorm.DB
	codes     repository.Repository[costcodedomain.CostCode]
	costTypes repository.Repository[costcodedomain.CostType]
	budget    repository.Repository[costcodedomain.BudgetLine]
}

func NewRepository(conn *gorm.DB) costcodedomain.Repository {
	return &repo{
		db:        conn,
		codes:     repository.ProvideStore[costcodedomain.CostCode](conn),
		costTypes: repository.ProvideStore[costcodedomain.CostType](conn),
		budget:    repository.ProvideStore[costcodedomain.BudgetLine](conn),
	}
}

func (r *repo) CreateCostCode(ctx context.Context, code *costcodedomain.CostCode) error {
	if err := r.codes.Create(ctx, code); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return costcodedomain.ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (r *repo) CreateCostType(ctx context.Context, costType *costcodedomain.CostType) error {
	if err := r.costTypes.Create(ctx, costType); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return costcodedomain.ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (r *repo) CreateBudgetLine(ctx context.Context, line *costcodedomain.BudgetLine) error {
	return r.budget.Create(ctx, line)
}

func (r *repo) FindCostCode(ctx context.Context, id snowflake.ID) (*costcodedomain.CostCode, error) {
	return r.codes.FindOne(ctx, &costcodedomain.CostCode{ID: id})
}

func (r *repo) ListCostCodes(ctx context.Context) ([]costcodedomain.CostCode, error) {
	items, err := r.codes.Find(ctx, &costcodedomain.CostCode{}, "code ASC")
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (r *repo) ListCostTypes(ctx context.Context) ([]costcodedomain.CostType, error) {
	items, err := r.costTypes.Find(ctx, &costcodedomain.CostType{}, "code ASC")
	if err != nil {
		return nil, err
	}
	return deref(items), nil
}

func (r *repo) ListBudgetCostCodes(ctx context.Context, projectID snowflake.ID) ([]costcodedomain.CostCode, error) {
	var items []costcodedomain.CostCode
	err := r.db.WithContext(ctx).Raw(
		`SELECT DISTINCT c.id, c.code, c.name, c.created_at
		 FROM cost_codes c
		 JOIN budget_lines b ON b.cost_code_id = c.id
		 WHERE b.project_id = ?
		 ORDER BY c.code ASC`,
		projectID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func deref[T any](items []*T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out
}
