package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/costline/internal/clock"
	commitmentdomain "github.com/smallbiznis/costline/internal/commitment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serviceParams struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  commitmentdomain.Repository
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  commitmentdomain.Repository
}

func NewService(p serviceParams) commitmentdomain.Service {
	return &Service{
		log:   p.Log.Named("commitment.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req commitmentdomain.CreateRequest) (*commitmentdomain.Response, error) {
	projectID, err := snowflake.ParseString(strings.TrimSpace(req.ProjectID))
	if err != nil || projectID == 0 {
		return nil, commitmentdomain.ErrInvalidProject
	}
	if !req.Kind.Valid() {
		return nil, commitmentdomain.ErrInvalidKind
	}
	number := strings.TrimSpace(req.Number)
	if number == "" {
		return nil, commitmentdomain.ErrInvalidNumber
	}

	now := s.clock.Now()
	record := &commitmentdomain.Commitment{
		ID:           s.genID.Generate(),
		ProjectID:    projectID,
		Kind:         req.Kind,
		Number:       number,
		Title:        strings.TrimSpace(req.Title),
		Counterparty: strings.TrimSpace(req.Counterparty),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	lines, err := s.buildLines(record.ID, nil, req.Lines)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateCommitment(ctx, record, lines); err != nil {
		return nil, err
	}

	s.log.Info("commitment created",
		zap.String("commitment_id", record.ID.String()),
		zap.String("kind", string(record.Kind)),
		zap.Int("lines", len(lines)),
	)

	return &commitmentdomain.Response{Commitment: *record, Lines: lines}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*commitmentdomain.Response, error) {
	commitmentID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, commitmentdomain.ErrInvalidID
	}

	record, err := s.FindCommitment(ctx, commitmentID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, commitmentdomain.ErrNotFound
	}

	lines, err := s.ResolvedLines(ctx, commitmentID)
	if err != nil {
		return nil, err
	}
	return &commitmentdomain.Response{Commitment: *record, Lines: lines}, nil
}

func (s *Service) CreateChangeOrder(ctx context.Context, req commitmentdomain.CreateChangeOrderRequest) (*commitmentdomain.ChangeOrder, error) {
	commitmentID, err := snowflake.ParseString(strings.TrimSpace(req.CommitmentID))
	if err != nil {
		return nil, commitmentdomain.ErrInvalidID
	}
	number := strings.TrimSpace(req.Number)
	if number == "" {
		return nil, commitmentdomain.ErrInvalidNumber
	}
	if len(req.Lines) == 0 {
		return nil, commitmentdomain.ErrEmptyChangeOrder
	}

	parent, err := s.repo.FindCommitment(ctx, commitmentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, commitmentdomain.ErrNotFound
	}

	now := s.clock.Now()
	order := &commitmentdomain.ChangeOrder{
		ID:           s.genID.Generate(),
		CommitmentID: commitmentID,
		Number:       number,
		Status:       commitmentdomain.ChangeOrderStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	lines, err := s.buildLines(commitmentID, &order.ID, req.Lines)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateChangeOrder(ctx, order, lines); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) ApproveChangeOrder(ctx context.Context, id string) (*commitmentdomain.ChangeOrder, error) {
	order, err := s.loadDraftChangeOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	order.Status = commitmentdomain.ChangeOrderStatusApproved
	order.ApprovedAt = &now
	order.UpdatedAt = now
	if err := s.repo.UpdateChangeOrder(ctx, order); err != nil {
		return nil, err
	}

	s.log.Info("change order approved",
		zap.String("change_order_id", order.ID.String()),
		zap.String("commitment_id", order.CommitmentID.String()),
	)
	return order, nil
}

func (s *Service) VoidChangeOrder(ctx context.Context, id string) (*commitmentdomain.ChangeOrder, error) {
	order, err := s.loadDraftChangeOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	order.Status = commitmentdomain.ChangeOrderStatusVoid
	order.VoidedAt = &now
	order.UpdatedAt = now
	if err := s.repo.UpdateChangeOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) FindCommitment(ctx context.Context, id snowflake.ID) (*commitmentdomain.Commitment, error) {
	return s.repo.FindCommitment(ctx, id)
}

// FindLine returns nil for lines introduced by change orders that are not approved.
func (s *Service) FindLine(ctx context.Context, id snowflake.ID) (*commitmentdomain.CommitmentLine, error) {
	line, err := s.repo.FindLine(ctx, id)
	if err != nil || line == nil {
		return nil, err
	}
	if line.ChangeOrderID == nil {
		return line, nil
	}

	order, err := s.repo.FindChangeOrder(ctx, *line.ChangeOrderID)
	if err != nil {
		return nil, err
	}
	if order == nil || order.Status != commitmentdomain.ChangeOrderStatusApproved {
		return nil, nil
	}
	return line, nil
}

func (s *Service) ResolvedLines(ctx context.Context, commitmentID snowflake.ID) ([]commitmentdomain.CommitmentLine, error) {
	lines, err := s.repo.ListLines(ctx, commitmentID)
	if err != nil {
		return nil, err
	}
	orders, err := s.repo.ListChangeOrders(ctx, commitmentID)
	if err != nil {
		return nil, err
	}
	return commitmentdomain.MergeLines(lines, orders), nil
}

func (s *Service) loadDraftChangeOrder(ctx context.Context, id string) (*commitmentdomain.ChangeOrder, error) {
	orderID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, commitmentdomain.ErrInvalidID
	}
	order, err := s.repo.FindChangeOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, commitmentdomain.ErrChangeOrderNotFound
	}
	if order.Status != commitmentdomain.ChangeOrderStatusDraft {
		return nil, commitmentdomain.ErrChangeOrderNotDraft
	}
	return order, nil
}

func (s *Service) buildLines(commitmentID snowflake.ID, changeOrderID *snowflake.ID, reqs []commitmentdomain.LineRequest) ([]commitmentdomain.CommitmentLine, error) {
	now := s.clock.Now()
	hundred := decimal.NewFromInt(100)
	lines := make([]commitmentdomain.CommitmentLine, 0, len(reqs))
	for i, req := range reqs {
		if req.TotalAmount.IsNegative() {
			return nil, commitmentdomain.ErrInvalidAmount
		}
		costCodeID, err := snowflake.ParseString(strings.TrimSpace(req.CostCodeID))
		if err != nil || costCodeID == 0 {
			return nil, commitmentdomain.ErrInvalidCostCode
		}
		costTypeID, err := snowflake.ParseString(strings.TrimSpace(req.CostTypeID))
		if err != nil || costTypeID == 0 {
			return nil, commitmentdomain.ErrInvalidCostType
		}

		var retainage decimal.NullDecimal
		if req.DefaultRetainagePercentage != nil {
			pct := *req.DefaultRetainagePercentage
			if pct.IsNegative() || pct.GreaterThan(hundred) {
				return nil, commitmentdomain.ErrInvalidRetainage
			}
			retainage = decimal.NewNullDecimal(pct)
		}

		lines = append(lines, commitmentdomain.CommitmentLine{
			ID:                         s.genID.Generate(),
			CommitmentID:               commitmentID,
			ChangeOrderID:              changeOrderID,
			Position:                   i + 1,
			Description:                strings.TrimSpace(req.Description),
			TotalAmount:                req.TotalAmount,
			CostCodeID:                 costCodeID,
			CostTypeID:                 costTypeID,
			DefaultRetainagePercentage: retainage,
			CreatedAt:                  now,
		})
	}
	return lines, nil
}
