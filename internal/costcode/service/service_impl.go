package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/costline/internal/clock"
	"github.com/smallbiznis/costline/internal/config"
	costcodedomain "github.com/smallbiznis/costline/internal/costcode/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serviceParams struct {
	fx.In

	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   costcodedomain.Repository
	Engine *config.EngineConfigHolder
}

type Service struct {
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   costcodedomain.Repository
	engine *config.EngineConfigHolder
}

func NewService(p serviceParams) costcodedomain.Service {
	return &Service{
		log:    p.Log.Named("costcode.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		engine: p.Engine,
	}
}

func (s *Service) CreateCostCode(ctx context.Context, req costcodedomain.CreateRequest) (*costcodedomain.CostCode, error) {
	code, name, err := normalize(req)
	if err != nil {
		return nil, err
	}
	record := &costcodedomain.CostCode{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateCostCode(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) CreateCostType(ctx context.Context, req costcodedomain.CreateRequest) (*costcodedomain.CostType, error) {
	code, name, err := normalize(req)
	if err != nil {
		return nil, err
	}
	record := &costcodedomain.CostType{
		ID:        s.genID.Generate(),
		Code:      code,
		Name:      name,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateCostType(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) CreateBudgetLine(ctx context.Context, req costcodedomain.CreateBudgetLineRequest) (*costcodedomain.BudgetLine, error) {
	projectID, err := snowflake.ParseString(strings.TrimSpace(req.ProjectID))
	if err != nil || projectID == 0 {
		return nil, costcodedomain.ErrInvalidProject
	}
	costCodeID, err := snowflake.ParseString(strings.TrimSpace(req.CostCodeID))
	if err != nil {
		return nil, costcodedomain.ErrInvalidID
	}
	if req.Amount.IsNegative() {
		return nil, costcodedomain.ErrInvalidAmount
	}

	code, err := s.repo.FindCostCode(ctx, costCodeID)
	if err != nil {
		return nil, err
	}
	if code == nil {
		return nil, costcodedomain.ErrNotFound
	}

	record := &costcodedomain.BudgetLine{
		ID:         s.genID.Generate(),
		ProjectID:  projectID,
		CostCodeID: costCodeID,
		Amount:     req.Amount,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.CreateBudgetLine(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) ListCostTypes(ctx context.Context) ([]costcodedomain.CostType, error) {
	return s.repo.ListCostTypes(ctx)
}

// Catalog narrows cost codes to the project budget when the engine config asks
// for it. Projects without a budget see every cost code.
func (s *Service) Catalog(ctx context.Context, projectID snowflake.ID) (costcodedomain.Catalog, error) {
	costTypes, err := s.repo.ListCostTypes(ctx)
	if err != nil {
		return costcodedomain.Catalog{}, err
	}

	var codes []costcodedomain.CostCode
	if s.engine.Get().RestrictCostCodesToBudget {
		codes, err = s.repo.ListBudgetCostCodes(ctx, projectID)
		if err != nil {
			return costcodedomain.Catalog{}, err
		}
	}
	if len(codes) == 0 {
		codes, err = s.repo.ListCostCodes(ctx)
		if err != nil {
			return costcodedomain.Catalog{}, err
		}
	}

	return costcodedomain.Catalog{CostCodes: codes, CostTypes: costTypes}, nil
}

func normalize(req costcodedomain.CreateRequest) (string, string, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return "", "", costcodedomain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", "", costcodedomain.ErrInvalidName
	}
	return code, name, nil
}
