// Package domain contains persistence models and contracts for billing documents.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DefaultRetainagePercentage applies when neither the commitment line nor the
// engine configuration supplies a retainage rate.
const DefaultRetainagePercentage = 10

// DocumentKind distinguishes AP invoices from contract progress billings.
type DocumentKind string

const (
	DocumentKindInvoice         DocumentKind = "invoice"
	DocumentKindProgressBilling DocumentKind = "progress_billing"
)

// Valid reports whether the kind is known.
func (k DocumentKind) Valid() bool {
	switch k {
	case DocumentKindInvoice, DocumentKindProgressBilling:
		return true
	default:
		return false
	}
}

// Document is an invoice or progress billing. Lines are loaded separately.
type Document struct {
	ID                     snowflake.ID      `gorm:"primaryKey" json:"id"`
	ProjectID              snowflake.ID      `gorm:"not null;index" json:"project_id"`
	Kind                   DocumentKind      `gorm:"type:text;not null" json:"kind"`
	CommitmentID           *snowflake.ID     `gorm:"index" json:"commitment_id,omitempty"`
	Status                 DocumentStatus    `gorm:"type:text;not null;default:'draft'" json:"status"`
	Subtotal               decimal.Decimal   `gorm:"type:numeric(20,6);not null" json:"subtotal"`
	RetentionHeldTotal     decimal.Decimal   `gorm:"type:numeric(20,6);not null" json:"retention_held_total"`
	RetentionReleasedTotal decimal.Decimal   `gorm:"type:numeric(20,6);not null" json:"retention_released_total"`
	TotalAmount            decimal.Decimal   `gorm:"type:numeric(20,6);not null" json:"total_amount"`
	Metadata               datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	SubmittedAt            *time.Time        `json:"submitted_at,omitempty"`
	ApprovedAt             *time.Time        `json:"approved_at,omitempty"`
	PaidAt                 *time.Time        `json:"paid_at,omitempty"`
	ClosedAt               *time.Time        `json:"closed_at,omitempty"`
	CancelledAt            *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt              time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time         `gorm:"not null" json:"updated_at"`

	Lines []LineItem `gorm:"-" json:"lines"`
}

// TableName sets the database table name.
func (Document) TableName() string { return "billing_documents" }

// Locked reports whether the document is bound to a commitment, in which case
// its line set mirrors the commitment and cannot be edited structurally.
func (d Document) Locked() bool {
	return d.CommitmentID != nil
}

// LineItem is a single billing line. Quantity and UnitPrice are optional: an
// invalid NullDecimal is a blank field.
type LineItem struct {
	ID                  snowflake.ID        `gorm:"primaryKey" json:"id"`
	DocumentID          snowflake.ID        `gorm:"not null;index" json:"document_id"`
	Position            int                 `gorm:"not null" json:"position"`
	Description         string              `gorm:"type:text" json:"description"`
	Quantity            decimal.NullDecimal `gorm:"type:numeric(20,6)" json:"quantity"`
	UnitPrice           decimal.NullDecimal `gorm:"type:numeric(20,6)" json:"unit_price"`
	TotalAmount         decimal.Decimal     `gorm:"type:numeric(20,6);not null" json:"total_amount"`
	PercentComplete     decimal.Decimal     `gorm:"type:numeric(12,4);not null" json:"percent_complete"`
	RetainagePercentage decimal.Decimal     `gorm:"type:numeric(7,4);not null" json:"retainage_percentage"`
	RetentionHeld       decimal.Decimal     `gorm:"type:numeric(20,6);not null" json:"retention_held"`
	RetentionReleased   decimal.Decimal     `gorm:"type:numeric(20,6);not null" json:"retention_released"`
	CostCodeID          *snowflake.ID       `gorm:"index" json:"cost_code_id,omitempty"`
	CostTypeID          *snowflake.ID       `gorm:"index" json:"cost_type_id,omitempty"`
	CommitmentLineID    *snowflake.ID       `gorm:"index" json:"commitment_line_id,omitempty"`
	Locked              bool                `gorm:"not null;default:false" json:"locked"`
	CreatedAt           time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time           `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "billing_line_items" }

// CommitmentLinked reports whether the line mirrors a commitment line.
func (l LineItem) CommitmentLinked() bool {
	return l.CommitmentLineID != nil
}

// Totals are the document-level rollups of a line set.
type Totals struct {
	Subtotal               decimal.Decimal `json:"subtotal"`
	RetentionHeldTotal     decimal.Decimal `json:"retention_held_total"`
	RetentionReleasedTotal decimal.Decimal `json:"retention_released_total"`
	TotalAmount            decimal.Decimal `json:"total_amount"`
}

// BilledToDate is the cumulative billing recorded against one commitment line
// by approved documents.
type BilledToDate struct {
	CommitmentLineID snowflake.ID    `json:"commitment_line_id"`
	BilledToDate     decimal.Decimal `json:"billed_to_date"`
	RetainedToDate   decimal.Decimal `json:"retained_to_date"`
}

// LineBillingSummary pairs billed-to-date figures with the commitment line
// value they are measured against.
type LineBillingSummary struct {
	BilledToDate
	CommitmentTotal     decimal.Decimal `json:"commitment_total"`
	PercentCompleteSeed decimal.Decimal `json:"percent_complete_seed"`
	OverBilled          bool            `json:"over_billed"`
}
