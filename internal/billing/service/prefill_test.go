package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
	"github.com/smallbiznis/costline/internal/billing/lineeditor"
	commitmentdomain "github.com/smallbiznis/costline/internal/commitment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitmentLine(id int64, total string, retainage *string) commitmentdomain.CommitmentLine {
	line := commitmentdomain.CommitmentLine{
		ID:          snowflake.ID(id),
		Description: "line",
		TotalAmount: d(total),
		CostCodeID:  snowflake.ID(id + 1000),
		CostTypeID:  snowflake.ID(id + 2000),
	}
	if retainage != nil {
		line.DefaultRetainagePercentage = decimal.NewNullDecimal(d(*retainage))
	}
	return line
}

func strPtr(s string) *string { return &s }

func TestResolve_SeedsFromApprovedHistory(t *testing.T) {
	project := snowflake.ID(1)
	history := SnapshotHistory{
		{ProjectID: project, Kind: billingdomain.DocumentKindInvoice, Status: billingdomain.DocumentStatusApproved,
			Lines: []billingdomain.LineItem{billedLine(10, "1000", "100")}},
	}
	resolver := NewResolver(NewAggregator(history))

	res, err := resolver.Resolve(context.Background(), project, billingdomain.DocumentKindInvoice,
		[]commitmentdomain.CommitmentLine{commitmentLine(10, "5000", strPtr("10"))}, d("10"))
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)

	line := res.Lines[0]
	assert.True(t, line.PercentComplete.Equal(d("20.00")))
	assert.True(t, line.TotalAmount.IsZero())
	assert.True(t, line.RetentionHeld.IsZero())
	assert.True(t, line.Locked)
	assert.Equal(t, snowflake.ID(10), *line.CommitmentLineID)
	assert.Equal(t, snowflake.ID(1010), *line.CostCodeID)
	assert.Equal(t, snowflake.ID(2010), *line.CostTypeID)
	assert.Empty(t, res.Signals)

	edited, err := lineeditor.SetPercentComplete(line, d("50"), decimal.NewNullDecimal(d("5000")))
	require.NoError(t, err)
	assert.True(t, edited.TotalAmount.Equal(d("2500.00")))
	assert.True(t, edited.RetentionHeld.Equal(d("250.00")))
}

func TestResolve_OneLockedLinePerCommitmentLineInOrder(t *testing.T) {
	resolver := NewResolver(NewAggregator(SnapshotHistory{}))

	lines := []commitmentdomain.CommitmentLine{
		commitmentLine(30, "300", nil),
		commitmentLine(10, "100", strPtr("5")),
		commitmentLine(20, "200", strPtr("0")),
	}
	res, err := resolver.Resolve(context.Background(), 1, billingdomain.DocumentKindInvoice, lines, d("7.5"))
	require.NoError(t, err)
	require.Len(t, res.Lines, 3)

	for i, line := range res.Lines {
		assert.Equal(t, lines[i].ID, *line.CommitmentLineID)
		assert.Equal(t, i+1, line.Position)
		assert.True(t, line.Locked)
		assert.Zero(t, line.ID, "ids are assigned on persist")
	}
	assert.True(t, res.Lines[0].RetainagePercentage.Equal(d("7.5")), "fallback when the commitment line has no default")
	assert.True(t, res.Lines[1].RetainagePercentage.Equal(d("5")))
	assert.True(t, res.Lines[2].RetainagePercentage.IsZero())
}

func TestResolve_IsIdempotent(t *testing.T) {
	project := snowflake.ID(1)
	history := SnapshotHistory{
		{ProjectID: project, Kind: billingdomain.DocumentKindInvoice, Status: billingdomain.DocumentStatusApproved,
			Lines: []billingdomain.LineItem{billedLine(10, "333", "33.3"), billedLine(20, "50", "5")}},
	}
	resolver := NewResolver(NewAggregator(history))
	lines := []commitmentdomain.CommitmentLine{
		commitmentLine(10, "1000", nil),
		commitmentLine(20, "40", strPtr("10")),
	}

	first, err := resolver.Resolve(context.Background(), project, billingdomain.DocumentKindInvoice, lines, d("10"))
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), project, billingdomain.DocumentKindInvoice, lines, d("10"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolve_OverBilledSeedIsSignalledNotClamped(t *testing.T) {
	project := snowflake.ID(1)
	history := SnapshotHistory{
		{ProjectID: project, Kind: billingdomain.DocumentKindInvoice, Status: billingdomain.DocumentStatusApproved,
			Lines: []billingdomain.LineItem{billedLine(10, "1100", "110")}},
	}
	resolver := NewResolver(NewAggregator(history))

	res, err := resolver.Resolve(context.Background(), project, billingdomain.DocumentKindInvoice,
		[]commitmentdomain.CommitmentLine{commitmentLine(10, "1000", nil)}, d("10"))
	require.NoError(t, err)

	assert.True(t, res.Lines[0].PercentComplete.Equal(d("110")))
	require.Len(t, res.Signals, 1)
	assert.Equal(t, billingdomain.OverBillingSourceSeed, res.Signals[0].Source)
	assert.Equal(t, 0, res.Signals[0].LineIndex)
}

func TestResolve_EmptyCommitment(t *testing.T) {
	resolver := NewResolver(NewAggregator(SnapshotHistory{}))
	res, err := resolver.Resolve(context.Background(), 1, billingdomain.DocumentKindInvoice, nil, d("10"))
	require.NoError(t, err)
	assert.Empty(t, res.Lines)

	result := Validate(billingdomain.Document{Lines: res.Lines}, billingdomain.Catalogs{})
	require.Len(t, result.Violations, 1)
	assert.ErrorIs(t, result.Err(), billingdomain.ErrEmptyDocument)
}
