package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) (billingdomain.Repository, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&billingdomain.Document{}, &billingdomain.LineItem{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewRepository(db, node), node
}

func ref(v int64) *snowflake.ID {
	id := snowflake.ID(v)
	return &id
}

func newDoc(node *snowflake.Node, project int64, kind billingdomain.DocumentKind, status billingdomain.DocumentStatus, lines ...billingdomain.LineItem) *billingdomain.Document {
	now := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	return &billingdomain.Document{
		ID:                     node.Generate(),
		ProjectID:              snowflake.ID(project),
		Kind:                   kind,
		Status:                 status,
		Subtotal:               decimal.Zero,
		RetentionHeldTotal:     decimal.Zero,
		RetentionReleasedTotal: decimal.Zero,
		TotalAmount:            decimal.Zero,
		CreatedAt:              now,
		UpdatedAt:              now,
		Lines:                  lines,
	}
}

func linked(commitmentLineID int64, total, held int64) billingdomain.LineItem {
	return billingdomain.LineItem{
		TotalAmount:         decimal.NewFromInt(total),
		PercentComplete:     decimal.Zero,
		RetainagePercentage: decimal.NewFromInt(10),
		RetentionHeld:       decimal.NewFromInt(held),
		RetentionReleased:   decimal.Zero,
		CommitmentLineID:    ref(commitmentLineID),
		Locked:              true,
	}
}

func TestCreateFindAndSaveDocument(t *testing.T) {
	ctx := context.Background()
	repo, node := newTestRepo(t)

	doc := newDoc(node, 42, billingdomain.DocumentKindInvoice, billingdomain.DocumentStatusDraft,
		linked(10, 100, 10), linked(20, 200, 20))
	require.NoError(t, repo.CreateDocument(ctx, doc))
	require.NotZero(t, doc.Lines[0].ID)
	assert.Equal(t, 2, doc.Lines[1].Position)

	found, err := repo.FindDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, found.Lines, 2)
	assert.Equal(t, doc.Lines[0].ID, found.Lines[0].ID)
	assert.Equal(t, snowflake.ID(20), *found.Lines[1].CommitmentLineID)
	assert.True(t, found.Lines[1].TotalAmount.Equal(decimal.NewFromInt(200)))

	keep := found.Lines[1]
	found.Lines = []billingdomain.LineItem{keep, {TotalAmount: decimal.NewFromInt(5), PercentComplete: decimal.Zero,
		RetainagePercentage: decimal.Zero, RetentionHeld: decimal.Zero, RetentionReleased: decimal.Zero}}
	result, err := repo.SaveDocument(ctx, found)
	require.NoError(t, err)
	require.Len(t, result.LineIDs, 2)
	assert.Equal(t, keep.ID, result.LineIDs[0])

	reloaded, err := repo.FindDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Lines, 2)
	assert.Equal(t, keep.ID, reloaded.Lines[0].ID)
	assert.Equal(t, 1, reloaded.Lines[0].Position)
	assert.Nil(t, reloaded.Lines[1].CommitmentLineID)

	missing, err := repo.FindDocument(ctx, node.Generate())
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.DeleteDocument(ctx, doc.ID))
	gone, err := repo.FindDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestBilledToDateCountsApprovedPaidAndClosedOfSameProjectAndKind(t *testing.T) {
	ctx := context.Background()
	repo, node := newTestRepo(t)

	docs := []*billingdomain.Document{
		newDoc(node, 42, billingdomain.DocumentKindInvoice, billingdomain.DocumentStatusApproved, linked(10, 100, 10), linked(20, 50, 5)),
		newDoc(node, 42, billingdomain.DocumentKindInvoice, billingdomain.DocumentStatusApproved, linked(10, 150, 15)),
		newDoc(node, 42, billingdomain.DocumentKindInvoice, billingdomain.DocumentStatusPaid, linked(10, 300, 30)),
		newDoc(node, 42, billingdomain.DocumentKindInvoice, billingdomain.DocumentStatusClosed, linked(10, 50, 5)),
		newDoc(node, 42, billingdomain.DocumentKindInvoice, billingdomain.DocumentStatusDraft, linked(10, 1000, 100)),
		newDoc(node, 42, billingdomain.DocumentKindInvoice, billingdomain.DocumentStatusCancelled, linked(10, 1000, 100)),
		newDoc(node, 43, billingdomain.DocumentKindInvoice, billingdomain.DocumentStatusApproved, linked(10, 1000, 100)),
		newDoc(node, 42, billingdomain.DocumentKindProgressBilling, billingdomain.DocumentStatusApproved, linked(10, 1000, 100)),
	}
	for _, doc := range docs {
		require.NoError(t, repo.CreateDocument(ctx, doc))
	}

	got, err := repo.BilledToDate(ctx, billingdomain.BilledToDateQuery{
		ProjectID:         42,
		Kind:              billingdomain.DocumentKindInvoice,
		CommitmentLineIDs: []snowflake.ID{10, 30},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[10].BilledToDate.Equal(decimal.NewFromInt(600)))
	assert.True(t, got[10].RetainedToDate.Equal(decimal.NewFromInt(60)))

	empty, err := repo.BilledToDate(ctx, billingdomain.BilledToDateQuery{ProjectID: 42, Kind: billingdomain.DocumentKindInvoice})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
