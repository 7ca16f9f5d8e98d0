package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	costcodedomain "github.com/smallbiznis/costline/internal/costcode/domain"
	"github.com/smallbiznis/costline/pkg/repository"
	"gorm.io/gorm"
)

type costTypeSeed struct {
	code string
	name string
}

var defaultCostTypes = []costTypeSeed{
	{code: "LAB", name: "Labor"},
	{code: "MAT", name: "Material"},
	{code: "EQP", name: "Equipment"},
	{code: "SUB", name: "Subcontract"},
	{code: "OTH", name: "Other"},
}

// EnsureDefaultCostTypes inserts the standard cost types that are missing.
// Existing rows are left untouched, so it is safe on every startup.
func EnsureDefaultCostTypes(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}

	ctx := context.Background()
	store := repository.ProvideStore[costcodedomain.CostType](db)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, seed := range defaultCostTypes {
			if err := ensureCostType(ctx, store.WithTrx(tx), node, seed); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureCostType(ctx context.Context, store repository.Repository[costcodedomain.CostType], node *snowflake.Node, seed costTypeSeed) error {
	count, err := store.Count(ctx, &costcodedomain.CostType{Code: seed.code})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return store.Create(ctx, &costcodedomain.CostType{
		ID:        node.Generate(),
		Code:      seed.code,
		Name:      seed.name,
		CreatedAt: time.Now().UTC(),
	})
}
