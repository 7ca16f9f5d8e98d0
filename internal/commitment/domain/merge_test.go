package domain

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMergeLines_BaseThenApprovedChangeOrders(t *testing.T) {
	early := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	late := early.Add(48 * time.Hour)

	coLate := snowflake.ID(900)
	coEarly := snowflake.ID(901)
	coDraft := snowflake.ID(902)
	coVoid := snowflake.ID(903)

	orders := []ChangeOrder{
		{ID: coLate, Status: ChangeOrderStatusApproved, ApprovedAt: &late},
		{ID: coEarly, Status: ChangeOrderStatusApproved, ApprovedAt: &early},
		{ID: coDraft, Status: ChangeOrderStatusDraft},
		{ID: coVoid, Status: ChangeOrderStatusVoid},
	}

	lines := []CommitmentLine{
		{ID: 1, Position: 2, TotalAmount: decimal.NewFromInt(200)},
		{ID: 2, Position: 1, TotalAmount: decimal.NewFromInt(100)},
		{ID: 3, Position: 1, ChangeOrderID: &coLate},
		{ID: 4, Position: 2, ChangeOrderID: &coEarly},
		{ID: 5, Position: 1, ChangeOrderID: &coEarly},
		{ID: 6, Position: 1, ChangeOrderID: &coDraft},
		{ID: 7, Position: 1, ChangeOrderID: &coVoid},
	}

	merged := MergeLines(lines, orders)

	ids := make([]snowflake.ID, 0, len(merged))
	for _, line := range merged {
		ids = append(ids, line.ID)
	}
	assert.Equal(t, []snowflake.ID{2, 1, 5, 4, 3}, ids)
}

func TestMergeLines_NoChangeOrders(t *testing.T) {
	merged := MergeLines([]CommitmentLine{{ID: 1, Position: 1}}, nil)
	assert.Len(t, merged, 1)
	assert.Empty(t, MergeLines(nil, nil))
}
