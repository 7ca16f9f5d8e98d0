package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/costline/internal/clock"
	commitmentdomain "github.com/smallbiznis/costline/internal/commitment/domain"
	"github.com/smallbiznis/costline/internal/commitment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (commitmentdomain.Service, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&commitmentdomain.Commitment{},
		&commitmentdomain.ChangeOrder{},
		&commitmentdomain.CommitmentLine{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC))
	svc := NewService(serviceParams{
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.NewRepository(db),
	})
	return svc, fake
}

func TestCreateAndResolve_WithChangeOrders(t *testing.T) {
	ctx := context.Background()
	svc, fake := newTestService(t)

	ten := decimal.NewFromInt(10)
	created, err := svc.Create(ctx, commitmentdomain.CreateRequest{
		ProjectID: "42",
		Kind:      commitmentdomain.CommitmentKindSubcontract,
		Number:    "SC-001",
		Lines: []commitmentdomain.LineRequest{
			{Description: "Framing", TotalAmount: decimal.NewFromInt(10000), CostCodeID: "11", CostTypeID: "21", DefaultRetainagePercentage: &ten},
			{Description: "Drywall", TotalAmount: decimal.NewFromInt(5000), CostCodeID: "12", CostTypeID: "21"},
		},
	})
	require.NoError(t, err)
	require.Len(t, created.Lines, 2)

	commitmentID := created.Commitment.ID.String()

	second, err := svc.CreateChangeOrder(ctx, commitmentdomain.CreateChangeOrderRequest{
		CommitmentID: commitmentID,
		Number:       "CO-2",
		Lines:        []commitmentdomain.LineRequest{{Description: "Extra doors", TotalAmount: decimal.NewFromInt(750), CostCodeID: "13", CostTypeID: "21"}},
	})
	require.NoError(t, err)

	first, err := svc.CreateChangeOrder(ctx, commitmentdomain.CreateChangeOrderRequest{
		CommitmentID: commitmentID,
		Number:       "CO-1",
		Lines:        []commitmentdomain.LineRequest{{Description: "Blocking", TotalAmount: decimal.NewFromInt(250), CostCodeID: "11", CostTypeID: "21"}},
	})
	require.NoError(t, err)

	resolved, err := svc.Get(ctx, commitmentID)
	require.NoError(t, err)
	assert.Len(t, resolved.Lines, 2, "draft change order lines are excluded")

	_, err = svc.ApproveChangeOrder(ctx, first.ID.String())
	require.NoError(t, err)
	fake.Advance(time.Hour)
	_, err = svc.ApproveChangeOrder(ctx, second.ID.String())
	require.NoError(t, err)

	resolved, err = svc.Get(ctx, commitmentID)
	require.NoError(t, err)
	require.Len(t, resolved.Lines, 4)

	descriptions := []string{}
	for _, line := range resolved.Lines {
		descriptions = append(descriptions, line.Description)
	}
	assert.Equal(t, []string{"Framing", "Drywall", "Blocking", "Extra doors"}, descriptions)
	assert.True(t, resolved.Lines[0].DefaultRetainagePercentage.Valid)
	assert.True(t, resolved.Lines[0].DefaultRetainagePercentage.Decimal.Equal(ten))
	assert.False(t, resolved.Lines[1].DefaultRetainagePercentage.Valid)
	assert.True(t, resolved.Lines[3].TotalAmount.Equal(decimal.NewFromInt(750)))
}

func TestFindLine_HidesUnapprovedChangeOrderLines(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.Create(ctx, commitmentdomain.CreateRequest{
		ProjectID: "42",
		Kind:      commitmentdomain.CommitmentKindPurchaseOrder,
		Number:    "PO-7",
		Lines:     []commitmentdomain.LineRequest{{TotalAmount: decimal.NewFromInt(100), CostCodeID: "1", CostTypeID: "2"}},
	})
	require.NoError(t, err)

	order, err := svc.CreateChangeOrder(ctx, commitmentdomain.CreateChangeOrderRequest{
		CommitmentID: created.Commitment.ID.String(),
		Number:       "CO-1",
		Lines:        []commitmentdomain.LineRequest{{TotalAmount: decimal.NewFromInt(40), CostCodeID: "1", CostTypeID: "2"}},
	})
	require.NoError(t, err)

	lines, err := svc.ResolvedLines(ctx, created.Commitment.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	base, err := svc.FindLine(ctx, lines[0].ID)
	require.NoError(t, err)
	require.NotNil(t, base)

	_, err = svc.VoidChangeOrder(ctx, order.ID.String())
	require.NoError(t, err)

	_, err = svc.ApproveChangeOrder(ctx, order.ID.String())
	assert.ErrorIs(t, err, commitmentdomain.ErrChangeOrderNotDraft)

	missing, err := svc.FindLine(ctx, snowflake.ID(123456))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Create(ctx, commitmentdomain.CreateRequest{ProjectID: "x", Kind: commitmentdomain.CommitmentKindSubcontract, Number: "A"})
	assert.ErrorIs(t, err, commitmentdomain.ErrInvalidProject)

	_, err = svc.Create(ctx, commitmentdomain.CreateRequest{ProjectID: "1", Kind: "lease", Number: "A"})
	assert.ErrorIs(t, err, commitmentdomain.ErrInvalidKind)

	over := decimal.NewFromInt(101)
	_, err = svc.Create(ctx, commitmentdomain.CreateRequest{
		ProjectID: "1",
		Kind:      commitmentdomain.CommitmentKindSubcontract,
		Number:    "A",
		Lines:     []commitmentdomain.LineRequest{{TotalAmount: decimal.NewFromInt(1), CostCodeID: "1", CostTypeID: "1", DefaultRetainagePercentage: &over}},
	})
	assert.ErrorIs(t, err, commitmentdomain.ErrInvalidRetainage)
}
