// Package lineeditor derives a line item's money fields from one another.
//
// Every setter is pure: it takes a LineItem value and returns the edited copy.
// total_amount is the single input to retention math, and every setter that
// changes it recomputes retention_held from the line's retainage percentage.
package lineeditor

import (
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
)

var hundred = decimal.NewFromInt(100)

// RetentionFor returns round(total * pct / 100, 2).
func RetentionFor(total, pct decimal.Decimal) decimal.Decimal {
	return total.Mul(pct).Div(hundred).Round(2)
}

// NewLine returns a blank manual line.
func NewLine(retainage decimal.Decimal) billingdomain.LineItem {
	return billingdomain.LineItem{
		TotalAmount:         decimal.Zero,
		PercentComplete:     decimal.Zero,
		RetainagePercentage: retainage,
		RetentionHeld:       decimal.Zero,
		RetentionReleased:   decimal.Zero,
	}
}

// SetQuantity stores q and, when unit price is also present, recomputes the
// total. A blank q leaves the total untouched.
func SetQuantity(line billingdomain.LineItem, q decimal.NullDecimal) (billingdomain.LineItem, error) {
	if q.Valid && q.Decimal.IsNegative() {
		return line, negative(billingdomain.FieldQuantity)
	}
	line.Quantity = q
	return recomputeFromPair(line), nil
}

// SetUnitPrice mirrors SetQuantity.
func SetUnitPrice(line billingdomain.LineItem, p decimal.NullDecimal) (billingdomain.LineItem, error) {
	if p.Valid && p.Decimal.IsNegative() {
		return line, negative(billingdomain.FieldUnitPrice)
	}
	line.UnitPrice = p
	return recomputeFromPair(line), nil
}

// SetTotalAmount collapses quantity and unit price to 1 x amount.
func SetTotalAmount(line billingdomain.LineItem, amount decimal.Decimal) (billingdomain.LineItem, error) {
	if amount.IsNegative() {
		return line, negative(billingdomain.FieldTotalAmount)
	}
	line.Quantity = decimal.NewNullDecimal(decimal.NewFromInt(1))
	line.UnitPrice = decimal.NewNullDecimal(amount)
	return withTotal(line, amount), nil
}

// SetPercentComplete bills pct of the linked commitment line. Values above 100
// are stored as entered.
func SetPercentComplete(line billingdomain.LineItem, pct decimal.Decimal, commitmentTotal decimal.NullDecimal) (billingdomain.LineItem, error) {
	if !line.CommitmentLinked() {
		return line, billingdomain.ValidationError(
			string(billingdomain.FieldPercentComplete),
			"not_commitment_linked",
			"percent complete can only drive commitment-linked lines",
		)
	}
	if !commitmentTotal.Valid {
		return line, billingdomain.ValidationError(
			string(billingdomain.FieldPercentComplete),
			"commitment_total_unknown",
			"commitment line total is unknown",
		)
	}
	if pct.IsNegative() {
		return line, negative(billingdomain.FieldPercentComplete)
	}
	line.PercentComplete = pct
	return withTotal(line, commitmentTotal.Decimal.Mul(pct).Div(hundred).Round(2)), nil
}

// SetRetainagePercentage stores pct and recomputes retention held.
func SetRetainagePercentage(line billingdomain.LineItem, pct decimal.Decimal) (billingdomain.LineItem, error) {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return line, billingdomain.ValidationError(
			string(billingdomain.FieldRetainagePercentage),
			"out_of_range",
			"retainage percentage must be between 0 and 100",
		)
	}
	line.RetainagePercentage = pct
	line.RetentionHeld = RetentionFor(line.TotalAmount, pct)
	return line, nil
}

// SetRetentionReleased stores amount without deriving anything from it.
func SetRetentionReleased(line billingdomain.LineItem, amount decimal.Decimal) (billingdomain.LineItem, error) {
	if amount.IsNegative() {
		return line, negative(billingdomain.FieldRetentionReleased)
	}
	line.RetentionReleased = amount
	return line, nil
}

func recomputeFromPair(line billingdomain.LineItem) billingdomain.LineItem {
	if !line.Quantity.Valid || !line.UnitPrice.Valid {
		return line
	}
	return withTotal(line, line.Quantity.Decimal.Mul(line.UnitPrice.Decimal))
}

func withTotal(line billingdomain.LineItem, total decimal.Decimal) billingdomain.LineItem {
	line.TotalAmount = total
	line.RetentionHeld = RetentionFor(total, line.RetainagePercentage)
	return line
}

func negative(field billingdomain.LineField) billingdomain.Violation {
	return billingdomain.ValidationError(string(field), "negative", string(field)+" must not be negative")
}
