package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
)

var hundred = decimal.NewFromInt(100)

// Aggregator answers billed-to-date questions over approved billing history.
// It only reads history.
type Aggregator struct {
	history billingdomain.BillingHistory
}

func NewAggregator(history billingdomain.BillingHistory) *Aggregator {
	return &Aggregator{history: history}
}

// Summaries returns one summary per requested commitment line. Lines that have
// never been billed get zero figures. totals maps commitment line id to its
// committed value.
func (a *Aggregator) Summaries(
	ctx context.Context,
	projectID snowflake.ID,
	kind billingdomain.DocumentKind,
	totals map[snowflake.ID]decimal.Decimal,
) (map[snowflake.ID]billingdomain.LineBillingSummary, error) {
	out := make(map[snowflake.ID]billingdomain.LineBillingSummary, len(totals))
	if len(totals) == 0 {
		return out, nil
	}

	ids := make([]snowflake.ID, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}

	billed, err := a.history.BilledToDate(ctx, billingdomain.BilledToDateQuery{
		ProjectID:         projectID,
		Kind:              kind,
		CommitmentLineIDs: ids,
	})
	if err != nil {
		return nil, err
	}

	for id, total := range totals {
		b, ok := billed[id]
		if !ok {
			b = billingdomain.BilledToDate{
				CommitmentLineID: id,
				BilledToDate:     decimal.Zero,
				RetainedToDate:   decimal.Zero,
			}
		}
		out[id] = Summarize(b, total)
	}
	return out, nil
}

// Summarize derives the percent-complete seed for a commitment line.
func Summarize(b billingdomain.BilledToDate, commitmentTotal decimal.Decimal) billingdomain.LineBillingSummary {
	seed := PercentCompleteSeed(b.BilledToDate, commitmentTotal)
	return billingdomain.LineBillingSummary{
		BilledToDate:        b,
		CommitmentTotal:     commitmentTotal,
		PercentCompleteSeed: seed,
		OverBilled:          seed.GreaterThan(billingdomain.OverBillingThreshold),
	}
}

// PercentCompleteSeed is billed / committed * 100 rounded to two places, or 0
// when nothing is committed. It is not capped at 100.
func PercentCompleteSeed(billed, commitmentTotal decimal.Decimal) decimal.Decimal {
	if !commitmentTotal.IsPositive() {
		return decimal.Zero
	}
	return billed.Mul(hundred).Div(commitmentTotal).Round(2)
}

// SnapshotHistory aggregates over an in-memory set of documents with lines
// loaded, for callers that already hold the history.
type SnapshotHistory []billingdomain.Document

func (h SnapshotHistory) BilledToDate(_ context.Context, q billingdomain.BilledToDateQuery) (map[snowflake.ID]billingdomain.BilledToDate, error) {
	wanted := make(map[snowflake.ID]struct{}, len(q.CommitmentLineIDs))
	for _, id := range q.CommitmentLineIDs {
		wanted[id] = struct{}{}
	}

	out := make(map[snowflake.ID]billingdomain.BilledToDate)
	for _, doc := range h {
		if !doc.Status.CountsAsBilled() || doc.ProjectID != q.ProjectID {
			continue
		}
		if q.Kind != "" && doc.Kind != q.Kind {
			continue
		}
		for _, line := range doc.Lines {
			if line.CommitmentLineID == nil {
				continue
			}
			id := *line.CommitmentLineID
			if _, ok := wanted[id]; !ok {
				continue
			}
			acc, ok := out[id]
			if !ok {
				acc = billingdomain.BilledToDate{CommitmentLineID: id, BilledToDate: decimal.Zero, RetainedToDate: decimal.Zero}
			}
			acc.BilledToDate = acc.BilledToDate.Add(line.TotalAmount)
			acc.RetainedToDate = acc.RetainedToDate.Add(line.RetentionHeld)
			out[id] = acc
		}
	}
	return out, nil
}
