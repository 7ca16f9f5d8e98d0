package service

import (
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalogs() billingdomain.Catalogs {
	return billingdomain.Catalogs{
		Commitments:             map[snowflake.ID]struct{}{500: {}},
		CommitmentLines:         map[snowflake.ID]struct{}{10: {}},
		ResolvedCommitmentLines: []snowflake.ID{10},
		CostCodes:               map[snowflake.ID]struct{}{11: {}},
		CostTypes:               map[snowflake.ID]struct{}{21: {}},
	}
}

func manualLine(total string) billingdomain.LineItem {
	return billingdomain.LineItem{
		TotalAmount:         d(total),
		RetainagePercentage: d("10"),
		CostCodeID:          idPtr(11),
		CostTypeID:          idPtr(21),
	}
}

func TestValidate_EmptyDocumentHasExactlyOneViolation(t *testing.T) {
	result := Validate(billingdomain.Document{CommitmentID: idPtr(999)}, testCatalogs())
	require.Len(t, result.Violations, 1)
	assert.Equal(t, billingdomain.ViolationEmptyDocument, result.Violations[0].Kind)
	assert.False(t, result.Valid())
}

func TestValidate_ManualLineRequiresCodesAndAmount(t *testing.T) {
	doc := billingdomain.Document{Lines: []billingdomain.LineItem{
		manualLine("450"),
		{TotalAmount: decimal.Zero},
	}}

	result := Validate(doc, testCatalogs())
	require.Len(t, result.Violations, 3)
	for _, v := range result.Violations {
		require.NotNil(t, v.LineIndex)
		assert.Equal(t, 1, *v.LineIndex)
		assert.Equal(t, billingdomain.ViolationValidation, v.Kind)
	}
	assert.Equal(t, "cost_code_id", result.Violations[0].Field)
	assert.Equal(t, "cost_type_id", result.Violations[1].Field)
	assert.Equal(t, "amount_required", result.Violations[2].Code)
	assert.ErrorIs(t, result.Err(), billingdomain.ErrValidation)
}

func TestValidate_QuantityAndUnitPriceSatisfyAmount(t *testing.T) {
	line := manualLine("0")
	line.Quantity = decimal.NewNullDecimal(d("2"))
	line.UnitPrice = decimal.NewNullDecimal(d("5"))

	result := Validate(billingdomain.Document{Lines: []billingdomain.LineItem{line}}, testCatalogs())
	assert.True(t, result.Valid())

	line.UnitPrice = decimal.NullDecimal{}
	result = Validate(billingdomain.Document{Lines: []billingdomain.LineItem{line}}, testCatalogs())
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "amount_required", result.Violations[0].Code)
}

func TestValidate_UnknownReferences(t *testing.T) {
	line := manualLine("10")
	line.CostCodeID = idPtr(77)
	linked := billingdomain.LineItem{CommitmentLineID: idPtr(88), Locked: true}

	doc := billingdomain.Document{
		CommitmentID: idPtr(501),
		Lines:        []billingdomain.LineItem{line, linked},
	}
	result := Validate(doc, testCatalogs())
	require.Len(t, result.Violations, 3)

	assert.Equal(t, "commitment_id", result.Violations[0].Field)
	assert.Nil(t, result.Violations[0].LineIndex)
	assert.Equal(t, "unknown_cost_code_id", result.Violations[1].Code)
	assert.Equal(t, "commitment_line_id", result.Violations[2].Field)
	for _, v := range result.Violations {
		assert.True(t, errors.Is(v, billingdomain.ErrReferenceNotFound))
	}
}

func TestValidate_LinkedLineAtZeroIsValid(t *testing.T) {
	linked := billingdomain.LineItem{CommitmentLineID: idPtr(10), Locked: true, TotalAmount: decimal.Zero}
	doc := billingdomain.Document{CommitmentID: idPtr(500), Lines: []billingdomain.LineItem{linked}}
	assert.True(t, Validate(doc, testCatalogs()).Valid())
}

func TestValidate_CommitmentLineSetMustMatchResolvedLines(t *testing.T) {
	catalogs := testCatalogs()
	catalogs.CommitmentLines[20] = struct{}{}
	catalogs.CommitmentLines[30] = struct{}{}
	catalogs.ResolvedCommitmentLines = []snowflake.ID{10, 20, 30}

	line := func(id int64) billingdomain.LineItem {
		return billingdomain.LineItem{CommitmentLineID: idPtr(id), Locked: true}
	}

	complete := billingdomain.Document{CommitmentID: idPtr(500), Lines: []billingdomain.LineItem{line(10), line(20), line(30)}}
	assert.True(t, Validate(complete, catalogs).Valid())

	stale := billingdomain.Document{CommitmentID: idPtr(500), Lines: []billingdomain.LineItem{line(10), line(20)}}
	result := Validate(stale, catalogs)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "line_set_mismatch", result.Violations[0].Code)
	assert.Equal(t, "commitment_line_id", result.Violations[0].Field)
	assert.Nil(t, result.Violations[0].LineIndex)
	assert.ErrorIs(t, result.Err(), billingdomain.ErrValidation)

	duplicated := billingdomain.Document{CommitmentID: idPtr(500), Lines: []billingdomain.LineItem{line(10), line(20), line(20), line(30)}}
	result = Validate(duplicated, catalogs)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "line_set_mismatch", result.Violations[0].Code)
	require.NotNil(t, result.Violations[0].LineIndex)
	assert.Equal(t, 2, *result.Violations[0].LineIndex)

	extra := billingdomain.Document{CommitmentID: idPtr(500), Lines: []billingdomain.LineItem{line(10), line(20), line(30), manualLine("10")}}
	result = Validate(extra, catalogs)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "line_set_mismatch", result.Violations[0].Code)
	require.NotNil(t, result.Violations[0].LineIndex)
	assert.Equal(t, 3, *result.Violations[0].LineIndex)
}

func TestDetectOverBilling(t *testing.T) {
	lines := []billingdomain.LineItem{
		{CommitmentLineID: idPtr(10), PercentComplete: d("120"), TotalAmount: decimal.Zero},
		{CommitmentLineID: idPtr(11), PercentComplete: d("100"), TotalAmount: d("100")},
		{CommitmentLineID: idPtr(12), PercentComplete: d("100.01"), TotalAmount: d("5001")},
		{PercentComplete: d("500"), TotalAmount: d("10")},
	}

	signals := DetectOverBilling(lines)
	require.Len(t, signals, 2)
	assert.Equal(t, 0, signals[0].LineIndex)
	assert.Equal(t, billingdomain.OverBillingSourceSeed, signals[0].Source)
	assert.True(t, signals[0].PercentComplete.Equal(d("120")))
	assert.Equal(t, 2, signals[1].LineIndex)
	assert.Equal(t, billingdomain.OverBillingSourceEntered, signals[1].Source)
}

func TestOverBillingNeverBlocksValidation(t *testing.T) {
	linked := billingdomain.LineItem{CommitmentLineID: idPtr(10), Locked: true, PercentComplete: d("150"), TotalAmount: d("7500")}
	result := Validate(billingdomain.Document{CommitmentID: idPtr(500), Lines: []billingdomain.LineItem{linked}}, testCatalogs())
	assert.True(t, result.Valid())
	assert.Len(t, result.Signals, 1)
}

func TestCheckStructuralEdit(t *testing.T) {
	assert.NoError(t, CheckStructuralEdit(billingdomain.Document{}))
	err := CheckStructuralEdit(billingdomain.Document{CommitmentID: idPtr(500)})
	assert.ErrorIs(t, err, billingdomain.ErrLockedDocument)
}
