package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	commitmentdomain "github.com/smallbiznis/costline/internal/commitment/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) commitmentdomain.Repository {
	return &repository{db: db}
}

func (r *repository) CreateCommitment(ctx context.Context, commitment *commitmentdomain.Commitment, lines []commitmentdomain.CommitmentLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO commitments (
				id, project_id, kind, number, title, counterparty, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			commitment.ID,
			commitment.ProjectID,
			commitment.Kind,
			commitment.Number,
			commitment.Title,
			commitment.Counterparty,
			commitment.CreatedAt,
			commitment.UpdatedAt,
		).Error; err != nil {
			return err
		}
		return insertLines(tx, lines)
	})
}

func (r *repository) FindCommitment(ctx context.Context, id snowflake.ID) (*commitmentdomain.Commitment, error) {
	var item commitmentdomain.Commitment
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, project_id, kind, number, title, counterparty, created_at, updated_at
		 FROM commitments
		 WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repository) ListLines(ctx context.Context, commitmentID snowflake.ID) ([]commitmentdomain.CommitmentLine, error) {
	var items []commitmentdomain.CommitmentLine
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, commitment_id, change_order_id, position, description, total_amount,
		        cost_code_id, cost_type_id, default_retainage_percentage, created_at
		 FROM commitment_lines
		 WHERE commitment_id = ?
		 ORDER BY position ASC, id ASC`,
		commitmentID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindLine(ctx context.Context, id snowflake.ID) (*commitmentdomain.CommitmentLine, error) {
	var item commitmentdomain.CommitmentLine
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, commitment_id, change_order_id, position, description, total_amount,
		        cost_code_id, cost_type_id, default_retainage_percentage, created_at
		 FROM commitment_lines
		 WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repository) CreateChangeOrder(ctx context.Context, order *commitmentdomain.ChangeOrder, lines []commitmentdomain.CommitmentLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO change_orders (
				id, commitment_id, number, status, approved_at, voided_at, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			order.ID,
			order.CommitmentID,
			order.Number,
			order.Status,
			order.ApprovedAt,
			order.VoidedAt,
			order.CreatedAt,
			order.UpdatedAt,
		).Error; err != nil {
			return err
		}
		return insertLines(tx, lines)
	})
}

func (r *repository) FindChangeOrder(ctx context.Context, id snowflake.ID) (*commitmentdomain.ChangeOrder, error) {
	var item commitmentdomain.ChangeOrder
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, commitment_id, number, status, approved_at, voided_at, created_at, updated_at
		 FROM change_orders
		 WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repository) ListChangeOrders(ctx context.Context, commitmentID snowflake.ID) ([]commitmentdomain.ChangeOrder, error) {
	var items []commitmentdomain.ChangeOrder
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, commitment_id, number, status, approved_at, voided_at, created_at, updated_at
		 FROM change_orders
		 WHERE commitment_id = ?
		 ORDER BY id ASC`,
		commitmentID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateChangeOrder(ctx context.Context, order *commitmentdomain.ChangeOrder) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE change_orders
		 SET status = ?, approved_at = ?, voided_at = ?, updated_at = ?
		 WHERE id = ?`,
		order.Status,
		order.ApprovedAt,
		order.VoidedAt,
		order.UpdatedAt,
		order.ID,
	).Error
}

func insertLines(tx *gorm.DB, lines []commitmentdomain.CommitmentLine) error {
	for _, line := range lines {
		if err := tx.Exec(
			`INSERT INTO commitment_lines (
				id, commitment_id, change_order_id, position, description, total_amount,
				cost_code_id, cost_type_id, default_retainage_percentage, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID,
			line.CommitmentID,
			line.ChangeOrderID,
			line.Position,
			line.Description,
			line.TotalAmount,
			line.CostCodeID,
			line.CostTypeID,
			line.DefaultRetainagePercentage,
			line.CreatedAt,
		).Error; err != nil {
			return err
		}
	}
	return nil
}
