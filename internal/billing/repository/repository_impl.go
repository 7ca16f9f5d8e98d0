package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
	"gorm.io/gorm"
)

type repository struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewRepository(db *gorm.DB, genID *snowflake.Node) billingdomain.Repository {
	return &repository{db: db, genID: genID}
}

func (r *repository) CreateDocument(ctx context.Context, doc *billingdomain.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO billing_documents (
				id, project_id, kind, commitment_id, status, subtotal, retention_held_total,
				retention_released_total, total_amount, metadata, submitted_at, approved_at,
				paid_at, closed_at, cancelled_at, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.ID,
			doc.ProjectID,
			doc.Kind,
			doc.CommitmentID,
			doc.Status,
			doc.Subtotal,
			doc.RetentionHeldTotal,
			doc.RetentionReleasedTotal,
			doc.TotalAmount,
			doc.Metadata,
			doc.SubmittedAt,
			doc.ApprovedAt,
			doc.PaidAt,
			doc.ClosedAt,
			doc.CancelledAt,
			doc.CreatedAt,
			doc.UpdatedAt,
		).Error; err != nil {
			return err
		}
		_, err := r.insertLines(tx, doc)
		return err
	})
}

func (r *repository) FindDocument(ctx context.Context, id snowflake.ID) (*billingdomain.Document, error) {
	var doc billingdomain.Document
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, project_id, kind, commitment_id, status, subtotal, retention_held_total,
		        retention_released_total, total_amount, metadata, submitted_at, approved_at,
		        paid_at, closed_at, cancelled_at, created_at, updated_at
		 FROM billing_documents
		 WHERE id = ?`,
		id,
	).Scan(&doc).Error
	if err != nil {
		return nil, err
	}
	if doc.ID == 0 {
		return nil, nil
	}

	var lines []billingdomain.LineItem
	err = r.db.WithContext(ctx).Raw(
		`SELECT id, document_id, position, description, quantity, unit_price, total_amount,
		        percent_complete, retainage_percentage, retention_held, retention_released,
		        cost_code_id, cost_type_id, commitment_line_id, locked, created_at, updated_at
		 FROM billing_line_items
		 WHERE document_id = ?
		 ORDER BY position ASC`,
		id,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []billingdomain.LineItem{}
	}
	doc.Lines = lines
	return &doc, nil
}

func (r *repository) SaveDocument(ctx context.Context, doc *billingdomain.Document) (billingdomain.PersistResult, error) {
	var result billingdomain.PersistResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`UPDATE billing_documents
			 SET commitment_id = ?, status = ?, subtotal = ?, retention_held_total = ?,
			     retention_released_total = ?, total_amount = ?, metadata = ?, submitted_at = ?,
			     approved_at = ?, paid_at = ?, closed_at = ?, cancelled_at = ?, updated_at = ?
			 WHERE id = ?`,
			doc.CommitmentID,
			doc.Status,
			doc.Subtotal,
			doc.RetentionHeldTotal,
			doc.RetentionReleasedTotal,
			doc.TotalAmount,
			doc.Metadata,
			doc.SubmittedAt,
			doc.ApprovedAt,
			doc.PaidAt,
			doc.ClosedAt,
			doc.CancelledAt,
			doc.UpdatedAt,
			doc.ID,
		).Error; err != nil {
			return err
		}

		if err := tx.Exec(`DELETE FROM billing_line_items WHERE document_id = ?`, doc.ID).Error; err != nil {
			return err
		}

		ids, err := r.insertLines(tx, doc)
		if err != nil {
			return err
		}
		result = billingdomain.PersistResult{DocumentID: doc.ID, LineIDs: ids}
		return nil
	})
	if err != nil {
		return billingdomain.PersistResult{}, err
	}
	return result, nil
}

func (r *repository) DeleteDocument(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM billing_line_items WHERE document_id = ?`, id).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM billing_documents WHERE id = ?`, id).Error
	})
}

type billedRow struct {
	CommitmentLineID snowflake.ID
	BilledToDate     decimal.Decimal
	RetainedToDate   decimal.Decimal
}

// BilledToDate sums total_amount and retention_held per commitment line over
// approved, paid or closed documents of the same project and kind.
func (r *repository) BilledToDate(ctx context.Context, q billingdomain.BilledToDateQuery) (map[snowflake.ID]billingdomain.BilledToDate, error) {
	out := make(map[snowflake.ID]billingdomain.BilledToDate, len(q.CommitmentLineIDs))
	if len(q.CommitmentLineIDs) == 0 {
		return out, nil
	}

	var rows []billedRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT l.commitment_line_id AS commitment_line_id,
		        COALESCE(SUM(l.total_amount), 0) AS billed_to_date,
		        COALESCE(SUM(l.retention_held), 0) AS retained_to_date
		 FROM billing_line_items l
		 JOIN billing_documents d ON d.id = l.document_id
		 WHERE d.status IN ?
		   AND d.project_id = ?
		   AND d.kind = ?
		   AND l.commitment_line_id IN ?
		 GROUP BY l.commitment_line_id`,
		billingdomain.BilledStatuses,
		q.ProjectID,
		q.Kind,
		q.CommitmentLineIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.CommitmentLineID] = billingdomain.BilledToDate{
			CommitmentLineID: row.CommitmentLineID,
			BilledToDate:     row.BilledToDate,
			RetainedToDate:   row.RetainedToDate,
		}
	}
	return out, nil
}

func (r *repository) insertLines(tx *gorm.DB, doc *billingdomain.Document) ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(doc.Lines))
	for i := range doc.Lines {
		line := &doc.Lines[i]
		if line.ID == 0 {
			line.ID = r.genID.Generate()
		}
		if line.CreatedAt.IsZero() {
			line.CreatedAt = doc.UpdatedAt
		}
		line.DocumentID = doc.ID
		line.Position = i + 1
		line.UpdatedAt = doc.UpdatedAt

		if err := tx.Exec(
			`INSERT INTO billing_line_items (
				id, document_id, position, description, quantity, unit_price, total_amount,
				percent_complete, retainage_percentage, retention_held, retention_released,
				cost_code_id, cost_type_id, commitment_line_id, locked, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			line.ID,
			line.DocumentID,
			line.Position,
			line.Description,
			line.Quantity,
			line.UnitPrice,
			line.TotalAmount,
			line.PercentComplete,
			line.RetainagePercentage,
			line.RetentionHeld,
			line.RetentionReleased,
			line.CostCodeID,
			line.CostTypeID,
			line.CommitmentLineID,
			line.Locked,
			line.CreatedAt,
			line.UpdatedAt,
		).Error; err != nil {
			return nil, err
		}
		ids = append(ids, line.ID)
	}
	return ids, nil
}
