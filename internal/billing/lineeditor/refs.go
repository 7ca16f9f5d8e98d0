package lineeditor

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
)

func SetDescription(line billingdomain.LineItem, description string) (billingdomain.LineItem, error) {
	if line.Locked {
		return line, lockedField(billingdomain.FieldDescription)
	}
	line.Description = strings.TrimSpace(description)
	return line, nil
}

func SetCostCode(line billingdomain.LineItem, id *snowflake.ID) (billingdomain.LineItem, error) {
	if line.Locked {
		return line, lockedField(billingdomain.FieldCostCode)
	}
	line.CostCodeID = id
	return line, nil
}

func SetCostType(line billingdomain.LineItem, id *snowflake.ID) (billingdomain.LineItem, error) {
	if line.Locked {
		return line, lockedField(billingdomain.FieldCostType)
	}
	line.CostTypeID = id
	return line, nil
}

func lockedField(field billingdomain.LineField) billingdomain.Violation {
	v := billingdomain.LockedDocumentError("locked_line_field", string(field)+" is copied from the commitment line and cannot change")
	v.Field = string(field)
	return v
}
