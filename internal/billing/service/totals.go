package service

import (
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
	"github.com/smallbiznis/costline/internal/billing/lineeditor"
)

// ComputeTotals rolls a line set up from scratch. Retention is recomputed per
// line rather than read from stored values.
func ComputeTotals(lines []billingdomain.LineItem) billingdomain.Totals {
	subtotal := decimal.Zero
	held := decimal.Zero
	released := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.TotalAmount)
		held = held.Add(lineeditor.RetentionFor(line.TotalAmount, line.RetainagePercentage))
		released = released.Add(line.RetentionReleased)
	}
	return billingdomain.Totals{
		Subtotal:               subtotal,
		RetentionHeldTotal:     held,
		RetentionReleasedTotal: released,
		TotalAmount:            subtotal.Sub(held).Add(released),
	}
}

func applyTotals(doc *billingdomain.Document, totals billingdomain.Totals) {
	doc.Subtotal = totals.Subtotal
	doc.RetentionHeldTotal = totals.RetentionHeldTotal
	doc.RetentionReleasedTotal = totals.RetentionReleasedTotal
	doc.TotalAmount = totals.TotalAmount
}
