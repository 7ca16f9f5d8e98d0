package lineeditor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
)

// CommitmentTotalFunc looks up the committed value of a line's commitment line.
type CommitmentTotalFunc func(line billingdomain.LineItem) decimal.NullDecimal

// ApplyEdit parses edit.Value and runs the matching setter.
func ApplyEdit(line billingdomain.LineItem, edit billingdomain.LineEdit, commitmentTotal decimal.NullDecimal) (billingdomain.LineItem, error) {
	raw := strings.TrimSpace(edit.Value)

	switch edit.Field {
	case billingdomain.FieldQuantity:
		v, err := parseOptional(edit.Field, raw)
		if err != nil {
			return line, err
		}
		return SetQuantity(line, v)
	case billingdomain.FieldUnitPrice:
		v, err := parseOptional(edit.Field, raw)
		if err != nil {
			return line, err
		}
		return SetUnitPrice(line, v)
	case billingdomain.FieldTotalAmount:
		v, err := parseRequired(edit.Field, raw)
		if err != nil {
			return line, err
		}
		return SetTotalAmount(line, v)
	case billingdomain.FieldPercentComplete:
		v, err := parseRequired(edit.Field, raw)
		if err != nil {
			return line, err
		}
		return SetPercentComplete(line, v, commitmentTotal)
	case billingdomain.FieldRetainagePercentage:
		v, err := parseRequired(edit.Field, raw)
		if err != nil {
			return line, err
		}
		return SetRetainagePercentage(line, v)
	case billingdomain.FieldRetentionReleased:
		v, err := parseRequired(edit.Field, raw)
		if err != nil {
			return line, err
		}
		return SetRetentionReleased(line, v)
	case billingdomain.FieldDescription:
		return SetDescription(line, raw)
	case billingdomain.FieldCostCode:
		id, err := parseRef(edit.Field, raw)
		if err != nil {
			return line, err
		}
		return SetCostCode(line, id)
	case billingdomain.FieldCostType:
		id, err := parseRef(edit.Field, raw)
		if err != nil {
			return line, err
		}
		return SetCostType(line, id)
	default:
		return line, billingdomain.ValidationError(string(edit.Field), "unknown_field", fmt.Sprintf("unknown field %q", edit.Field))
	}
}

// Apply edits the line at index and returns a new slice. index == len(lines)
// addresses a pending new line created with NewLine(retainage), so manual
// entry and editing share one code path.
func Apply(
	lines []billingdomain.LineItem,
	index int,
	edits []billingdomain.LineEdit,
	commitmentTotal CommitmentTotalFunc,
	retainage decimal.Decimal,
) ([]billingdomain.LineItem, error) {
	if index < 0 || index > len(lines) {
		return nil, billingdomain.ErrLineNotFound
	}

	out := make([]billingdomain.LineItem, len(lines), len(lines)+1)
	copy(out, lines)

	var line billingdomain.LineItem
	if index == len(lines) {
		line = NewLine(retainage)
	} else {
		line = out[index]
	}

	var total decimal.NullDecimal
	if commitmentTotal != nil && line.CommitmentLinked() {
		total = commitmentTotal(line)
	}

	for _, edit := range edits {
		next, err := ApplyEdit(line, edit, total)
		if err != nil {
			var v billingdomain.Violation
			if errors.As(err, &v) {
				return nil, v.AtLine(index)
			}
			return nil, err
		}
		line = next
	}

	if index == len(lines) {
		return append(out, line), nil
	}
	out[index] = line
	return out, nil
}

func parseOptional(field billingdomain.LineField, raw string) (decimal.NullDecimal, error) {
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	v, err := parseRequired(field, raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(v), nil
}

func parseRequired(field billingdomain.LineField, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, billingdomain.ValidationError(string(field), "required", string(field)+" is required")
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, billingdomain.ValidationError(string(field), "invalid_decimal", fmt.Sprintf("%s %q is not a number", field, raw))
	}
	return v, nil
}

func parseRef(field billingdomain.LineField, raw string) (*snowflake.ID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return nil, billingdomain.ValidationError(string(field), "invalid_id", fmt.Sprintf("%s %q is not a valid id", field, raw))
	}
	return &id, nil
}
