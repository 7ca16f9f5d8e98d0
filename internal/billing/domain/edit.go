package domain

// LineField names an editable line field.
type LineField string

const (
	FieldQuantity            LineField = "quantity"
	FieldUnitPrice           LineField = "unit_price"
	FieldTotalAmount         LineField = "total_amount"
	FieldPercentComplete     LineField = "percent_complete"
	FieldRetainagePercentage LineField = "retainage_percentage"
	FieldRetentionReleased   LineField = "retention_released"
	FieldDescription         LineField = "description"
	FieldCostCode            LineField = "cost_code_id"
	FieldCostType            LineField = "cost_type_id"
)

// LineEdit sets one field from its raw form value. An empty Value blanks
// optional fields.
type LineEdit struct {
	Field LineField `json:"field"`
	Value string    `json:"value"`
}
