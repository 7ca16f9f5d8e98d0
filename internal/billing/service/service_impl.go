package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
	"github.com/smallbiznis/costline/internal/billing/lineeditor"
	"github.com/smallbiznis/costline/internal/clock"
	commitmentdomain "github.com/smallbiznis/costline/internal/commitment/domain"
	"github.com/smallbiznis/costline/internal/config"
	"github.com/smallbiznis/costline/internal/observability/metrics"
	"github.com/smallbiznis/costline/internal/submitlock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type ServiceParam struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        billingdomain.Repository
	Commitments billingdomain.CommitmentCatalog
	CostCatalog billingdomain.CostCatalog
	Aggregator  *Aggregator
	Resolver    *Resolver
	Engine      *config.EngineConfigHolder
	Guard       *submitlock.Guard `optional:"true"`
	Metrics     *metrics.Metrics  `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	tracer      trace.Tracer
	genID       *snowflake.Node
	clock       clock.Clock
	repo        billingdomain.Repository
	commitments billingdomain.CommitmentCatalog
	costs       billingdomain.CostCatalog
	aggregator  *Aggregator
	resolver    *Resolver
	engine      *config.EngineConfigHolder
	guard       *submitlock.Guard
	metrics     *metrics.Metrics
}

func NewService(p ServiceParam) billingdomain.Service {
	return &Service{
		log:         p.Log.Named("billing.service"),
		tracer:      otel.Tracer("costline/billing"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		commitments: p.Commitments,
		costs:       p.CostCatalog,
		aggregator:  p.Aggregator,
		resolver:    p.Resolver,
		engine:      p.Engine,
		guard:       p.Guard,
		metrics:     p.Metrics,
	}
}

func (s *Service) CreateDocument(ctx context.Context, req billingdomain.CreateDocumentRequest) (*billingdomain.DocumentView, error) {
	ctx, span := s.tracer.Start(ctx, "billing.CreateDocument")
	defer span.End()

	projectID, err := snowflake.ParseString(strings.TrimSpace(req.ProjectID))
	if err != nil || projectID == 0 {
		return nil, billingdomain.ErrInvalidProject
	}
	kind := req.Kind
	if kind == "" {
		kind = billingdomain.DocumentKindInvoice
	}
	if !kind.Valid() {
		return nil, billingdomain.ErrInvalidDocumentKind
	}

	now := s.clock.Now()
	doc := &billingdomain.Document{
		ID:                     s.genID.Generate(),
		ProjectID:              projectID,
		Kind:                   kind,
		Status:                 billingdomain.DocumentStatusDraft,
		Subtotal:               decimal.Zero,
		RetentionHeldTotal:     decimal.Zero,
		RetentionReleasedTotal: decimal.Zero,
		TotalAmount:            decimal.Zero,
		Metadata:               datatypes.JSONMap(req.Metadata),
		CreatedAt:              now,
		UpdatedAt:              now,
		Lines:                  []billingdomain.LineItem{},
	}

	if req.CommitmentID != nil && strings.TrimSpace(*req.CommitmentID) != "" {
		commitmentID, err := snowflake.ParseString(strings.TrimSpace(*req.CommitmentID))
		if err != nil {
			return nil, billingdomain.ErrInvalidID
		}
		res, err := s.resolveLines(ctx, doc, commitmentID)
		if err != nil {
			return nil, err
		}
		doc.CommitmentID = &commitmentID
		doc.Lines = res.Lines
		applyTotals(doc, ComputeTotals(doc.Lines))
	}

	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	s.log.Info("billing document created",
		zap.String("document_id", doc.ID.String()),
		zap.String("kind", string(doc.Kind)),
		zap.Int("lines", len(doc.Lines)),
	)
	return s.view(ctx, doc)
}

func (s *Service) GetDocument(ctx context.Context, id string) (*billingdomain.DocumentView, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, doc)
}

func (s *Service) DeleteDraft(ctx context.Context, id string) error {
	doc, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := CheckEditable(*doc); err != nil {
		return err
	}
	return s.repo.DeleteDocument(ctx, doc.ID)
}

func (s *Service) AddManualLine(ctx context.Context, documentID string, edits []billingdomain.LineEdit) (*billingdomain.DocumentView, error) {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := CheckEditable(*doc); err != nil {
		return nil, err
	}
	if err := CheckStructuralEdit(*doc); err != nil {
		return nil, err
	}

	lines, err := lineeditor.Apply(doc.Lines, len(doc.Lines), edits, nil, s.fallbackRetainage())
	if err != nil {
		return nil, err
	}
	return s.saveLines(ctx, doc, lines)
}

func (s *Service) EditLine(ctx context.Context, documentID, lineID string, edits []billingdomain.LineEdit) (*billingdomain.DocumentView, error) {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := CheckEditable(*doc); err != nil {
		return nil, err
	}
	index, err := lineIndex(doc, lineID)
	if err != nil {
		return nil, err
	}

	totals, err := s.commitmentTotals(ctx, doc)
	if err != nil {
		return nil, err
	}
	lookup := func(line billingdomain.LineItem) decimal.NullDecimal {
		if total, ok := totals[*line.CommitmentLineID]; ok {
			return decimal.NewNullDecimal(total)
		}
		return decimal.NullDecimal{}
	}

	lines, err := lineeditor.Apply(doc.Lines, index, edits, lookup, s.fallbackRetainage())
	if err != nil {
		return nil, err
	}
	return s.saveLines(ctx, doc, lines)
}

func (s *Service) RemoveLine(ctx context.Context, documentID, lineID string) (*billingdomain.DocumentView, error) {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := CheckEditable(*doc); err != nil {
		return nil, err
	}
	if err := CheckStructuralEdit(*doc); err != nil {
		return nil, err
	}
	index, err := lineIndex(doc, lineID)
	if err != nil {
		return nil, err
	}

	lines := make([]billingdomain.LineItem, 0, len(doc.Lines)-1)
	lines = append(lines, doc.Lines[:index]...)
	lines = append(lines, doc.Lines[index+1:]...)
	return s.saveLines(ctx, doc, lines)
}

// ResolveFromCommitment binds the document to a commitment and replaces its
// whole line set, discarding unsaved edits on the previous lines.
func (s *Service) ResolveFromCommitment(ctx context.Context, documentID, commitmentID string) (*billingdomain.DocumentView, error) {
	ctx, span := s.tracer.Start(ctx, "billing.ResolveFromCommitment")
	defer span.End()

	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := CheckEditable(*doc); err != nil {
		return nil, err
	}
	cid, err := snowflake.ParseString(strings.TrimSpace(commitmentID))
	if err != nil {
		return nil, billingdomain.ErrInvalidID
	}

	res, err := s.resolveLines(ctx, doc, cid)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("lines", len(res.Lines)))

	doc.CommitmentID = &cid
	return s.saveLines(ctx, doc, res.Lines)
}

func (s *Service) ComputeTotals(ctx context.Context, documentID string) (billingdomain.Totals, error) {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return billingdomain.Totals{}, err
	}
	return ComputeTotals(doc.Lines), nil
}

func (s *Service) Validate(ctx context.Context, documentID string) (billingdomain.ValidationResult, error) {
	ctx, span := s.tracer.Start(ctx, "billing.Validate")
	defer span.End()

	doc, err := s.load(ctx, documentID)
	if err != nil {
		return billingdomain.ValidationResult{}, err
	}
	return s.validate(ctx, doc)
}

// Submit validates the document and hands it to persistence as one unit. A
// failed write is returned as is; nothing is retried.
func (s *Service) Submit(ctx context.Context, documentID string) (*billingdomain.SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "billing.Submit")
	defer span.End()

	id, err := snowflake.ParseString(strings.TrimSpace(documentID))
	if err != nil {
		return nil, billingdomain.ErrInvalidID
	}

	if s.guard != nil {
		release, ok, err := s.guard.Acquire(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.metrics.RecordSubmitContention(ctx)
			return nil, billingdomain.ErrSubmitInProgress
		}
		defer release(context.WithoutCancel(ctx))
	}

	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckEditable(*doc); err != nil {
		return nil, err
	}

	result, err := s.validate(ctx, doc)
	if err != nil {
		return nil, err
	}
	if !result.Valid() {
		return nil, result.Violations
	}

	totals := ComputeTotals(doc.Lines)
	applyTotals(doc, totals)
	now := s.clock.Now()
	doc.SubmittedAt = &now
	doc.UpdatedAt = now

	persisted, err := s.repo.SaveDocument(ctx, doc)
	if err != nil {
		s.log.Error("billing document submit failed", zap.String("document_id", doc.ID.String()), zap.Error(err))
		return nil, err
	}

	s.metrics.RecordDocumentSubmitted(ctx, string(doc.Kind))
	s.log.Info("billing document submitted",
		zap.String("document_id", doc.ID.String()),
		zap.String("total_amount", totals.TotalAmount.StringFixed(2)),
		zap.Int("overbilling_signals", len(result.Signals)),
	)

	return &billingdomain.SubmitResult{
		PersistResult: persisted,
		Totals:        totals,
		Signals:       result.Signals,
	}, nil
}

func (s *Service) Transition(ctx context.Context, documentID string, to billingdomain.DocumentStatus) (*billingdomain.DocumentView, error) {
	ctx, span := s.tracer.Start(ctx, "billing.Transition", trace.WithAttributes(attribute.String("to_status", string(to))))
	defer span.End()

	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	from := doc.Status
	if !from.CanTransitionTo(to) {
		return nil, billingdomain.ErrInvalidTransition
	}

	if to == billingdomain.DocumentStatusApproved {
		if doc.SubmittedAt == nil {
			return nil, billingdomain.ErrDocumentNotSubmitted
		}
		result, err := s.validate(ctx, doc)
		if err != nil {
			return nil, err
		}
		if !result.Valid() {
			return nil, result.Violations
		}
		applyTotals(doc, ComputeTotals(doc.Lines))
	}

	now := s.clock.Now()
	doc.Status = to
	doc.UpdatedAt = now
	switch to {
	case billingdomain.DocumentStatusApproved:
		doc.ApprovedAt = &now
	case billingdomain.DocumentStatusPaid:
		doc.PaidAt = &now
	case billingdomain.DocumentStatusClosed:
		doc.ClosedAt = &now
	case billingdomain.DocumentStatusCancelled:
		doc.CancelledAt = &now
	}

	if _, err := s.repo.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}

	s.metrics.RecordTransition(ctx, string(from), string(to))
	s.log.Info("billing document transitioned",
		zap.String("document_id", doc.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return s.view(ctx, doc)
}

func (s *Service) BilledToDate(ctx context.Context, projectID string, kind billingdomain.DocumentKind, commitmentLineID string) (*billingdomain.LineBillingSummary, error) {
	pid, err := snowflake.ParseString(strings.TrimSpace(projectID))
	if err != nil || pid == 0 {
		return nil, billingdomain.ErrInvalidProject
	}
	if kind == "" {
		kind = billingdomain.DocumentKindInvoice
	}
	if !kind.Valid() {
		return nil, billingdomain.ErrInvalidDocumentKind
	}
	lineID, err := snowflake.ParseString(strings.TrimSpace(commitmentLineID))
	if err != nil {
		return nil, billingdomain.ErrInvalidID
	}

	line, err := s.commitments.FindLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, billingdomain.ReferenceNotFoundError("commitment_line_id", lineID)
	}

	summaries, err := s.aggregator.Summaries(ctx, pid, kind, map[snowflake.ID]decimal.Decimal{lineID: line.TotalAmount})
	if err != nil {
		return nil, err
	}
	summary := summaries[lineID]
	return &summary, nil
}

func (s *Service) resolveLines(ctx context.Context, doc *billingdomain.Document, commitmentID snowflake.ID) (Resolution, error) {
	commitment, err := s.commitments.FindCommitment(ctx, commitmentID)
	if err != nil {
		return Resolution{}, err
	}
	if commitment == nil {
		return Resolution{}, billingdomain.ReferenceNotFoundError("commitment_id", commitmentID)
	}
	if commitment.ProjectID != doc.ProjectID {
		return Resolution{}, billingdomain.ValidationError("commitment_id", "project_mismatch", "commitment belongs to another project")
	}
	if !kindMatches(doc.Kind, commitment.Kind) {
		return Resolution{}, billingdomain.ValidationError("commitment_id", "kind_mismatch", "commitment kind does not match the document kind")
	}

	lines, err := s.commitments.ResolvedLines(ctx, commitmentID)
	if err != nil {
		return Resolution{}, err
	}

	res, err := s.resolver.Resolve(ctx, doc.ProjectID, doc.Kind, lines, s.fallbackRetainage())
	if err != nil {
		return Resolution{}, err
	}
	if len(res.Lines) == 0 {
		return Resolution{}, billingdomain.Violations{billingdomain.EmptyDocumentError()}
	}
	s.metrics.RecordOverBilling(ctx, string(billingdomain.OverBillingSourceSeed), len(res.Signals))
	return res, nil
}

func (s *Service) saveLines(ctx context.Context, doc *billingdomain.Document, lines []billingdomain.LineItem) (*billingdomain.DocumentView, error) {
	doc.Lines = lines
	applyTotals(doc, ComputeTotals(lines))
	doc.UpdatedAt = s.clock.Now()
	if _, err := s.repo.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}
	return s.view(ctx, doc)
}

func (s *Service) validate(ctx context.Context, doc *billingdomain.Document) (billingdomain.ValidationResult, error) {
	catalogs, err := s.catalogs(ctx, doc)
	if err != nil {
		return billingdomain.ValidationResult{}, err
	}
	result := Validate(*doc, catalogs)
	for _, v := range result.Violations {
		s.metrics.RecordViolation(ctx, string(v.Kind))
	}
	return result, nil
}

func (s *Service) catalogs(ctx context.Context, doc *billingdomain.Document) (billingdomain.Catalogs, error) {
	out := billingdomain.Catalogs{
		Commitments:     map[snowflake.ID]struct{}{},
		CommitmentLines: map[snowflake.ID]struct{}{},
		CostCodes:       map[snowflake.ID]struct{}{},
		CostTypes:       map[snowflake.ID]struct{}{},
	}

	if doc.CommitmentID != nil {
		commitment, err := s.commitments.FindCommitment(ctx, *doc.CommitmentID)
		if err != nil {
			return out, err
		}
		if commitment != nil {
			out.Commitments[commitment.ID] = struct{}{}
			lines, err := s.commitments.ResolvedLines(ctx, commitment.ID)
			if err != nil {
				return out, err
			}
			for _, line := range lines {
				out.CommitmentLines[line.ID] = struct{}{}
				out.ResolvedCommitmentLines = append(out.ResolvedCommitmentLines, line.ID)
			}
		}
	}

	catalog, err := s.costs.Catalog(ctx, doc.ProjectID)
	if err != nil {
		return out, err
	}
	for _, code := range catalog.CostCodes {
		out.CostCodes[code.ID] = struct{}{}
	}
	for _, ct := range catalog.CostTypes {
		out.CostTypes[ct.ID] = struct{}{}
	}
	return out, nil
}

// commitmentTotals maps each of the document's commitment lines to its committed value.
func (s *Service) commitmentTotals(ctx context.Context, doc *billingdomain.Document) (map[snowflake.ID]decimal.Decimal, error) {
	out := map[snowflake.ID]decimal.Decimal{}
	if doc.CommitmentID == nil {
		return out, nil
	}
	lines, err := s.commitments.ResolvedLines(ctx, *doc.CommitmentID)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		out[line.ID] = line.TotalAmount
	}
	return out, nil
}

func (s *Service) view(ctx context.Context, doc *billingdomain.Document) (*billingdomain.DocumentView, error) {
	view := &billingdomain.DocumentView{
		Document: *doc,
		Totals:   ComputeTotals(doc.Lines),
		Signals:  DetectOverBilling(doc.Lines),
	}

	totals, err := s.commitmentTotals(ctx, doc)
	if err != nil {
		return nil, err
	}
	if len(totals) == 0 {
		return view, nil
	}
	summaries, err := s.aggregator.Summaries(ctx, doc.ProjectID, doc.Kind, totals)
	if err != nil {
		return nil, err
	}
	view.BilledToDate = make(map[string]billingdomain.LineBillingSummary, len(summaries))
	for id, summary := range summaries {
		view.BilledToDate[id.String()] = summary
	}
	return view, nil
}

func (s *Service) load(ctx context.Context, id string) (*billingdomain.Document, error) {
	docID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, billingdomain.ErrInvalidID
	}
	return s.find(ctx, docID)
}

func (s *Service) find(ctx context.Context, id snowflake.ID) (*billingdomain.Document, error) {
	doc, err := s.repo.FindDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, billingdomain.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *Service) fallbackRetainage() decimal.Decimal {
	return s.engine.Get().FallbackRetainagePercentage
}

func lineIndex(doc *billingdomain.Document, lineID string) (int, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(lineID))
	if err != nil {
		return 0, billingdomain.ErrInvalidID
	}
	for i, line := range doc.Lines {
		if line.ID == id {
			return i, nil
		}
	}
	return 0, billingdomain.ErrLineNotFound
}

func kindMatches(kind billingdomain.DocumentKind, commitmentKind commitmentdomain.CommitmentKind) bool {
	switch kind {
	case billingdomain.DocumentKindProgressBilling:
		return commitmentKind == commitmentdomain.CommitmentKindPrimeContract
	default:
		return commitmentKind == commitmentdomain.CommitmentKindSubcontract ||
			commitmentKind == commitmentdomain.CommitmentKindPurchaseOrder
	}
}
