// Package domain contains persistence models for commitments and change orders.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// CommitmentKind distinguishes vendor commitments from the prime contract.
type CommitmentKind string

const (
	CommitmentKindSubcontract   CommitmentKind = "subcontract"
	CommitmentKindPurchaseOrder CommitmentKind = "purchase_order"
	CommitmentKindPrimeContract CommitmentKind = "prime_contract"
)

func (k CommitmentKind) Valid() bool {
	switch k {
	case CommitmentKindSubcontract, CommitmentKindPurchaseOrder, CommitmentKindPrimeContract:
		return true
	default:
		return false
	}
}

// Commitment is a vendor purchase agreement or a prime contract.
type Commitment struct {
	ID           snowflake.ID   `gorm:"primaryKey" json:"id"`
	ProjectID    snowflake.ID   `gorm:"not null;index" json:"project_id"`
	Kind         CommitmentKind `gorm:"type:text;not null" json:"kind"`
	Number       string         `gorm:"type:text;not null" json:"number"`
	Title        string         `gorm:"type:text" json:"title"`
	Counterparty string         `gorm:"type:text" json:"counterparty"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Commitment) TableName() string { return "commitments" }

// ChangeOrderStatus represents change order lifecycle states.
type ChangeOrderStatus string

const (
	ChangeOrderStatusDraft    ChangeOrderStatus = "draft"
	ChangeOrderStatusApproved ChangeOrderStatus = "approved"
	ChangeOrderStatusVoid     ChangeOrderStatus = "void"
)

// ChangeOrder adds lines to a commitment once approved.
type ChangeOrder struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	CommitmentID snowflake.ID      `gorm:"not null;index" json:"commitment_id"`
	Number       string            `gorm:"type:text;not null" json:"number"`
	Status       ChangeOrderStatus `gorm:"type:text;not null;default:'draft'" json:"status"`
	ApprovedAt   *time.Time        `json:"approved_at,omitempty"`
	VoidedAt     *time.Time        `json:"voided_at,omitempty"`
	CreatedAt    time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (ChangeOrder) TableName() string { return "change_orders" }

// CommitmentLine is a committed scope item. Lines added by a change order carry
// its id and only count once the change order is approved.
type CommitmentLine struct {
	ID                         snowflake.ID        `gorm:"primaryKey" json:"id"`
	CommitmentID               snowflake.ID        `gorm:"not null;index" json:"commitment_id"`
	ChangeOrderID              *snowflake.ID       `gorm:"index" json:"change_order_id,omitempty"`
	Position                   int                 `gorm:"not null" json:"position"`
	Description                string              `gorm:"type:text" json:"description"`
	TotalAmount                decimal.Decimal     `gorm:"type:numeric(20,6);not null" json:"total_amount"`
	CostCodeID                 snowflake.ID        `gorm:"not null" json:"cost_code_id"`
	CostTypeID                 snowflake.ID        `gorm:"not null" json:"cost_type_id"`
	DefaultRetainagePercentage decimal.NullDecimal `gorm:"type:numeric(7,4)" json:"default_retainage_percentage"`
	CreatedAt                  time.Time           `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (CommitmentLine) TableName() string { return "commitment_lines" }
