package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// CostCode is a work-breakdown code such as "03-300 Cast-in-place concrete".
type CostCode struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Code      string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (CostCode) TableName() string { return "cost_codes" }

// CostType classifies spend, for example labor or material.
type CostType struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Code      string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (CostType) TableName() string { return "cost_types" }

// BudgetLine scopes a cost code to a project budget.
type BudgetLine struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	ProjectID  snowflake.ID    `gorm:"not null;index" json:"project_id"`
	CostCodeID snowflake.ID    `gorm:"not null" json:"cost_code_id"`
	Amount     decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"amount"`
	CreatedAt  time.Time       `gorm:"not null" json:"created_at"`
}

func (BudgetLine) TableName() string { return "budget_lines" }

// Catalog is the set of references a project's billing lines may use.
type Catalog struct {
	CostCodes []CostCode `json:"cost_codes"`
	CostTypes []CostType `json:"cost_types"`
}

func (c Catalog) HasCostCode(id snowflake.ID) bool {
	for _, code := range c.CostCodes {
		if code.ID == id {
			return true
		}
	}
	return false
}

func (c Catalog) HasCostType(id snowflake.ID) bool {
	for _, ct := range c.CostTypes {
		if ct.ID == id {
			return true
		}
	}
	return false
}
