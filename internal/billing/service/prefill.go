package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
	commitmentdomain "github.com/smallbiznis/costline/internal/commitment/domain"
)

// Resolver builds a document's line set from a commitment's resolved lines.
type Resolver struct {
	aggregator *Aggregator
}

func NewResolver(aggregator *Aggregator) *Resolver {
	return &Resolver{aggregator: aggregator}
}

// Resolution is the line set produced for a commitment plus any seeds that
// already exceed 100 percent.
type Resolution struct {
	Lines   []billingdomain.LineItem
	Signals []billingdomain.OverBillingSignal
}

// Resolve returns exactly one locked line per commitment line, in order. Lines
// start at a zero total and carry the billed-to-date percentage as their seed.
// The result replaces the document's line set; ids are left for persistence
// to assign, so resolving twice against unchanged data gives equal output.
func (r *Resolver) Resolve(
	ctx context.Context,
	projectID snowflake.ID,
	kind billingdomain.DocumentKind,
	commitmentLines []commitmentdomain.CommitmentLine,
	fallbackRetainage decimal.Decimal,
) (Resolution, error) {
	if len(commitmentLines) == 0 {
		return Resolution{Lines: []billingdomain.LineItem{}}, nil
	}

	totals := make(map[snowflake.ID]decimal.Decimal, len(commitmentLines))
	for _, cl := range commitmentLines {
		totals[cl.ID] = cl.TotalAmount
	}
	summaries, err := r.aggregator.Summaries(ctx, projectID, kind, totals)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{Lines: make([]billingdomain.LineItem, 0, len(commitmentLines))}
	for i, cl := range commitmentLines {
		summary := summaries[cl.ID]

		retainage := fallbackRetainage
		if cl.DefaultRetainagePercentage.Valid {
			retainage = cl.DefaultRetainagePercentage.Decimal
		}

		lineID := cl.ID
		costCodeID := cl.CostCodeID
		costTypeID := cl.CostTypeID
		res.Lines = append(res.Lines, billingdomain.LineItem{
			Position:            i + 1,
			Description:         cl.Description,
			TotalAmount:         decimal.Zero,
			PercentComplete:     summary.PercentCompleteSeed,
			RetainagePercentage: retainage,
			RetentionHeld:       decimal.Zero,
			RetentionReleased:   decimal.Zero,
			CostCodeID:          &costCodeID,
			CostTypeID:          &costTypeID,
			CommitmentLineID:    &lineID,
			Locked:              true,
		})

		if summary.OverBilled {
			res.Signals = append(res.Signals, billingdomain.OverBillingSignal{
				LineIndex:        i,
				CommitmentLineID: cl.ID,
				PercentComplete:  summary.PercentCompleteSeed,
				Source:           billingdomain.OverBillingSourceSeed,
			})
		}
	}
	return res, nil
}
