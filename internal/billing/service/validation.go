package service

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
)

// Validate is the gate a document must pass before it is persisted as
// submitted or approved. An empty document yields only the empty violation.
func Validate(doc billingdomain.Document, catalogs billingdomain.Catalogs) billingdomain.ValidationResult {
	result := billingdomain.ValidationResult{
		Violations: billingdomain.Violations{},
		Signals:    DetectOverBilling(doc.Lines),
	}

	if len(doc.Lines) == 0 {
		result.Violations = append(result.Violations, billingdomain.EmptyDocumentError())
		return result
	}

	if doc.CommitmentID != nil && !has(catalogs.Commitments, *doc.CommitmentID) {
		result.Violations = append(result.Violations, billingdomain.ReferenceNotFoundError("commitment_id", *doc.CommitmentID))
	}

	for i, line := range doc.Lines {
		for _, v := range validateLine(line, catalogs) {
			result.Violations = append(result.Violations, v.AtLine(i))
		}
	}

	if doc.CommitmentID != nil && has(catalogs.Commitments, *doc.CommitmentID) {
		result.Violations = append(result.Violations, checkLineSet(doc.Lines, catalogs.ResolvedCommitmentLines)...)
	}
	return result
}

// checkLineSet reports lines of a commitment-bound document that do not map
// one-to-one onto the commitment's resolved lines. Unknown commitment line ids
// are left to the reference check.
func checkLineSet(lines []billingdomain.LineItem, resolved []snowflake.ID) []billingdomain.Violation {
	var out []billingdomain.Violation
	const field = "commitment_line_id"

	seen := make(map[snowflake.ID]struct{}, len(lines))
	for i, line := range lines {
		if !line.CommitmentLinked() {
			out = append(out, billingdomain.ValidationError(field, "line_set_mismatch",
				"line is not part of the commitment").AtLine(i))
			continue
		}
		id := *line.CommitmentLineID
		if has(seen, id) {
			out = append(out, billingdomain.ValidationError(field, "line_set_mismatch",
				fmt.Sprintf("commitment line %s appears more than once", id)).AtLine(i))
			continue
		}
		seen[id] = struct{}{}
	}

	for _, id := range resolved {
		if !has(seen, id) {
			out = append(out, billingdomain.ValidationError(field, "line_set_mismatch",
				fmt.Sprintf("commitment line %s has no document line; resolve the document from the commitment again", id)))
		}
	}
	return out
}

func validateLine(line billingdomain.LineItem, catalogs billingdomain.Catalogs) []billingdomain.Violation {
	var out []billingdomain.Violation

	if line.CommitmentLinked() {
		if !has(catalogs.CommitmentLines, *line.CommitmentLineID) {
			out = append(out, billingdomain.ReferenceNotFoundError("commitment_line_id", *line.CommitmentLineID))
		}
		return out
	}

	if line.CostCodeID == nil {
		out = append(out, billingdomain.ValidationError(string(billingdomain.FieldCostCode), "required", "cost code is required"))
	} else if !has(catalogs.CostCodes, *line.CostCodeID) {
		out = append(out, billingdomain.ReferenceNotFoundError(string(billingdomain.FieldCostCode), *line.CostCodeID))
	}

	if line.CostTypeID == nil {
		out = append(out, billingdomain.ValidationError(string(billingdomain.FieldCostType), "required", "cost type is required"))
	} else if !has(catalogs.CostTypes, *line.CostTypeID) {
		out = append(out, billingdomain.ReferenceNotFoundError(string(billingdomain.FieldCostType), *line.CostTypeID))
	}

	pairPriced := line.Quantity.Valid && line.Quantity.Decimal.IsPositive() &&
		line.UnitPrice.Valid && line.UnitPrice.Decimal.IsPositive()
	if !line.TotalAmount.IsPositive() && !pairPriced {
		out = append(out, billingdomain.ValidationError(
			string(billingdomain.FieldTotalAmount),
			"amount_required",
			"enter a total amount or a quantity and unit price",
		))
	}
	return out
}

// DetectOverBilling flags commitment-linked lines above 100 percent complete.
// A line still at a zero total carries its history seed; anything else was
// entered on this document.
func DetectOverBilling(lines []billingdomain.LineItem) []billingdomain.OverBillingSignal {
	signals := []billingdomain.OverBillingSignal{}
	for i, line := range lines {
		if !line.CommitmentLinked() || !line.PercentComplete.GreaterThan(billingdomain.OverBillingThreshold) {
			continue
		}
		source := billingdomain.OverBillingSourceEntered
		if line.TotalAmount.IsZero() {
			source = billingdomain.OverBillingSourceSeed
		}
		signals = append(signals, billingdomain.OverBillingSignal{
			LineIndex:        i,
			LineID:           line.ID,
			CommitmentLineID: *line.CommitmentLineID,
			PercentComplete:  line.PercentComplete,
			Source:           source,
		})
	}
	return signals
}

// CheckEditable rejects mutation of documents that have left draft.
func CheckEditable(doc billingdomain.Document) error {
	if !doc.Status.Editable() {
		return billingdomain.ErrDocumentNotDraft
	}
	return nil
}

// CheckStructuralEdit rejects adding or removing lines on a commitment-bound document.
func CheckStructuralEdit(doc billingdomain.Document) error {
	if doc.Locked() {
		return billingdomain.LockedDocumentError(
			"locked_document",
			"lines of a commitment-bound document mirror the commitment and cannot be added or removed",
		)
	}
	return nil
}

func has(set map[snowflake.ID]struct{}, id snowflake.ID) bool {
	_, ok := set[id]
	return ok
}
