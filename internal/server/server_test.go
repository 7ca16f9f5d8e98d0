package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
	commitmentdomain "github.com/smallbiznis/costline/internal/commitment/domain"
	"github.com/smallbiznis/costline/internal/observability"
	obsmetrics "github.com/smallbiznis/costline/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBillingService struct {
	err       error
	lastEdits []billingdomain.LineEdit
	lastKind  billingdomain.DocumentKind
	lastTo    billingdomain.DocumentStatus
	result    billingdomain.ValidationResult
}

func (f *fakeBillingService) view(id string) *billingdomain.DocumentView {
	return &billingdomain.DocumentView{Document: billingdomain.Document{Status: billingdomain.DocumentStatusDraft}}
}

func (f *fakeBillingService) CreateDocument(_ context.Context, req billingdomain.CreateDocumentRequest) (*billingdomain.DocumentView, error) {
	f.lastKind = req.Kind
	if f.err != nil {
		return nil, f.err
	}
	return f.view(""), nil
}

func (f *fakeBillingService) GetDocument(_ context.Context, id string) (*billingdomain.DocumentView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.view(id), nil
}

func (f *fakeBillingService) DeleteDraft(context.Context, string) error {
	return f.err
}

func (f *fakeBillingService) AddManualLine(_ context.Context, id string, edits []billingdomain.LineEdit) (*billingdomain.DocumentView, error) {
	f.lastEdits = edits
	if f.err != nil {
		return nil, f.err
	}
	return f.view(id), nil
}

func (f *fakeBillingService) EditLine(_ context.Context, id, _ string, edits []billingdomain.LineEdit) (*billingdomain.DocumentView, error) {
	f.lastEdits = edits
	if f.err != nil {
		return nil, f.err
	}
	return f.view(id), nil
}

func (f *fakeBillingService) RemoveLine(_ context.Context, id, _ string) (*billingdomain.DocumentView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.view(id), nil
}

func (f *fakeBillingService) ResolveFromCommitment(_ context.Context, id, _ string) (*billingdomain.DocumentView, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.view(id), nil
}

func (f *fakeBillingService) ComputeTotals(context.Context, string) (billingdomain.Totals, error) {
	return billingdomain.Totals{}, f.err
}

func (f *fakeBillingService) Validate(context.Context, string) (billingdomain.ValidationResult, error) {
	return f.result, f.err
}

func (f *fakeBillingService) Submit(context.Context, string) (*billingdomain.SubmitResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &billingdomain.SubmitResult{}, nil
}

func (f *fakeBillingService) Transition(_ context.Context, id string, to billingdomain.DocumentStatus) (*billingdomain.DocumentView, error) {
	f.lastTo = to
	if f.err != nil {
		return nil, f.err
	}
	return f.view(id), nil
}

func (f *fakeBillingService) BilledToDate(_ context.Context, _ string, kind billingdomain.DocumentKind, _ string) (*billingdomain.LineBillingSummary, error) {
	f.lastKind = kind
	if f.err != nil {
		return nil, f.err
	}
	return &billingdomain.LineBillingSummary{}, nil
}

func newTestRouter(billing *fakeBillingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	srv := &Server{engine: gin.New(), billingSvc: billing}
	srv.engine.Use(ErrorHandlingMiddleware())
	srv.registerAPIRoutes()
	return srv.engine
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, errorResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var payload errorResponse
	if resp.Code >= http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	}
	return resp, payload
}

func TestAddLineOnLockedDocumentReturnsConflict(t *testing.T) {
	billing := &fakeBillingService{err: billingdomain.LockedDocumentError("locked_document", "locked")}
	router := newTestRouter(billing)

	resp, payload := doJSON(t, router, http.MethodPost, "/api/documents/100/lines",
		`{"edits":[{"field":"total_amount","value":"10"}]}`)

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "locked_document", payload.Error.Type)
	require.Len(t, payload.Error.Errors, 1)
	assert.Equal(t, "locked_document", payload.Error.Errors[0].Code)
}

func TestEditLineForwardsEditsInOrder(t *testing.T) {
	billing := &fakeBillingService{}
	router := newTestRouter(billing)

	resp, _ := doJSON(t, router, http.MethodPatch, "/api/documents/100/lines/200",
		`{"edits":[{"field":" quantity ","value":"3"},{"field":"unit_price","value":"150"},{"field":"total_amount","value":"500"}]}`)

	assert.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, billing.lastEdits, 3)
	assert.Equal(t, billingdomain.FieldQuantity, billing.lastEdits[0].Field)
	assert.Equal(t, billingdomain.FieldTotalAmount, billing.lastEdits[2].Field)
}

func TestEditLineRequiresEdits(t *testing.T) {
	router := newTestRouter(&fakeBillingService{})

	resp, payload := doJSON(t, router, http.MethodPatch, "/api/documents/100/lines/200", `{"edits":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "edits", payload.Error.Errors[0].Field)

	resp, payload = doJSON(t, router, http.MethodPatch, "/api/documents/100/lines/200", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_request", payload.Error.Errors[0].Code)
}

func TestSubmitEmptyDocumentIsUnprocessable(t *testing.T) {
	billing := &fakeBillingService{err: billingdomain.Violations{billingdomain.EmptyDocumentError()}}
	router := newTestRouter(billing)

	resp, payload := doJSON(t, router, http.MethodPost, "/api/documents/100/submit", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "empty_document", payload.Error.Type)
}

func TestValidationEndpointReportsViolationsWithOK(t *testing.T) {
	billing := &fakeBillingService{result: billingdomain.ValidationResult{
		Violations: billingdomain.Violations{billingdomain.EmptyDocumentError()},
		Signals: []billingdomain.OverBillingSignal{{
			LineIndex:        0,
			CommitmentLineID: 10,
			PercentComplete:  decimal.NewFromInt(120),
			Source:           billingdomain.OverBillingSourceSeed,
		}},
	}}
	router := newTestRouter(billing)

	resp, _ := doJSON(t, router, http.MethodGet, "/api/documents/100/validation", "")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data struct {
			Valid      bool                              `json:"valid"`
			Violations []billingdomain.Violation         `json:"violations"`
			Signals    []billingdomain.OverBillingSignal `json:"signals"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.False(t, body.Data.Valid)
	assert.Len(t, body.Data.Violations, 1)
	require.Len(t, body.Data.Signals, 1)
	assert.Equal(t, billingdomain.OverBillingSourceSeed, body.Data.Signals[0].Source)
}

func TestTransitionRoutes(t *testing.T) {
	billing := &fakeBillingService{}
	router := newTestRouter(billing)

	for path, want := range map[string]billingdomain.DocumentStatus{
		"approve": billingdomain.DocumentStatusApproved,
		"pay":     billingdomain.DocumentStatusPaid,
		"close":   billingdomain.DocumentStatusClosed,
		"cancel":  billingdomain.DocumentStatusCancelled,
	} {
		resp, _ := doJSON(t, router, http.MethodPost, "/api/documents/100/"+path, "")
		assert.Equal(t, http.StatusOK, resp.Code, path)
		assert.Equal(t, want, billing.lastTo, path)
	}

	billing.err = billingdomain.ErrInvalidTransition
	resp, payload := doJSON(t, router, http.MethodPost, "/api/documents/100/pay", "")
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "status transition not allowed", payload.Error.Message)
}

func TestBilledToDateKindParameter(t *testing.T) {
	billing := &fakeBillingService{}
	router := newTestRouter(billing)

	resp, _ := doJSON(t, router, http.MethodGet, "/api/projects/42/commitment-lines/10/billed-to-date?kind=progress_billing", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, billingdomain.DocumentKindProgressBilling, billing.lastKind)

	resp, _ = doJSON(t, router, http.MethodGet, "/api/projects/42/commitment-lines/10/billed-to-date", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, billingdomain.DocumentKindInvoice, billing.lastKind)

	resp, payload := doJSON(t, router, http.MethodGet, "/api/projects/42/commitment-lines/10/billed-to-date?kind=quote", "")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_document_kind", payload.Error.Errors[0].Code)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"empty", billingdomain.Violations{billingdomain.EmptyDocumentError()}, http.StatusUnprocessableEntity, "empty_document"},
		{"locked", billingdomain.LockedDocumentError("locked_line_field", "locked").AtLine(0), http.StatusConflict, "locked_document"},
		{"missing reference", billingdomain.ReferenceNotFoundError("commitment_id", 5), http.StatusNotFound, "reference_not_found"},
		{"mixed violations", billingdomain.Violations{
			billingdomain.ValidationError("cost_code_id", "required", "cost code is required").AtLine(0),
			billingdomain.ReferenceNotFoundError("cost_type_id", 9).AtLine(0),
		}, http.StatusBadRequest, "validation_error"},
		{"not draft", billingdomain.ErrDocumentNotDraft, http.StatusConflict, "conflict"},
		{"submit in progress", billingdomain.ErrSubmitInProgress, http.StatusConflict, "conflict"},
		{"document not found", billingdomain.ErrDocumentNotFound, http.StatusNotFound, "not_found"},
		{"commitment not found", commitmentdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"invalid project", billingdomain.ErrInvalidProject, http.StatusBadRequest, "validation_error"},
		{"invalid commitment kind", commitmentdomain.ErrInvalidKind, http.StatusBadRequest, "validation_error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.typ, payload.Type)
		})
	}
}

func TestMapErrorCarriesLineIndex(t *testing.T) {
	_, payload := mapError(billingdomain.Violations{
		billingdomain.ValidationError("total_amount", "amount_required", "enter an amount").AtLine(2),
	})
	require.Len(t, payload.Errors, 1)
	require.NotNil(t, payload.Errors[0].LineIndex)
	assert.Equal(t, 2, *payload.Errors[0].LineIndex)
	assert.Equal(t, "project", validationErrorField("invalid_project"))
}

func TestEngineHealthAndMetrics(t *testing.T) {
	router := NewEngine(observability.Config{Environment: "test"}, obsmetrics.NewHTTPMetrics(obsmetrics.Config{ServiceName: "costline"}))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "costline_http_requests_total")
}
