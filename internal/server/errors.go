package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
	commitmentdomain "github.com/smallbiznis/costline/internal/commitment/domain"
	costcodedomain "github.com/smallbiznis/costline/internal/costcode/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field     string `json:"field"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	LineIndex *int   `json:"line_index,omitempty"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog returns the payload type and code recorded on request logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if violations := asViolations(err); len(violations) > 0 {
		return mapViolations(violations)
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func asViolations(err error) billingdomain.Violations {
	var list billingdomain.Violations
	if errors.As(err, &list) {
		return list
	}
	var single billingdomain.Violation
	if errors.As(err, &single) {
		return billingdomain.Violations{single}
	}
	return nil
}

// mapViolations picks the status from the violation kinds. A lone locked or
// missing-reference violation keeps its own status; mixed lists are a 400.
func mapViolations(violations billingdomain.Violations) (int, errorPayload) {
	items := make([]ValidationError, 0, len(violations))
	for _, v := range violations {
		items = append(items, ValidationError{
			Field:     v.Field,
			Code:      v.Code,
			Message:   v.Message,
			LineIndex: v.LineIndex,
		})
	}

	kind := violations[0].Kind
	for _, v := range violations[1:] {
		if v.Kind != kind {
			kind = billingdomain.ViolationValidation
			break
		}
	}

	status := http.StatusBadRequest
	message := "validation error"
	switch kind {
	case billingdomain.ViolationLockedDocument:
		status = http.StatusConflict
		message = "document is locked to its commitment"
	case billingdomain.ViolationReferenceNotFound:
		if len(violations) == 1 {
			status = http.StatusNotFound
		}
		message = "referenced record not found"
	case billingdomain.ViolationEmptyDocument:
		status = http.StatusUnprocessableEntity
		message = "document has no line items"
	}
	return status, errorPayload{Type: string(kind), Message: message, Errors: items}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, billingdomain.ErrInvalidID),
		errors.Is(err, billingdomain.ErrInvalidProject),
		errors.Is(err, billingdomain.ErrInvalidDocumentKind):
		return true
	case isCommitmentValidationError(err),
		isCostCodeValidationError(err):
		return true
	default:
		return false
	}
}

func isCommitmentValidationError(err error) bool {
	switch {
	case errors.Is(err, commitmentdomain.ErrInvalidID),
		errors.Is(err, commitmentdomain.ErrInvalidProject),
		errors.Is(err, commitmentdomain.ErrInvalidKind),
		errors.Is(err, commitmentdomain.ErrInvalidNumber),
		errors.Is(err, commitmentdomain.ErrInvalidAmount),
		errors.Is(err, commitmentdomain.ErrInvalidRetainage),
		errors.Is(err, commitmentdomain.ErrInvalidCostCode),
		errors.Is(err, commitmentdomain.ErrInvalidCostType),
		errors.Is(err, commitmentdomain.ErrEmptyChangeOrder):
		return true
	default:
		return false
	}
}

func isCostCodeValidationError(err error) bool {
	switch {
	case errors.Is(err, costcodedomain.ErrInvalidID),
		errors.Is(err, costcodedomain.ErrInvalidProject),
		errors.Is(err, costcodedomain.ErrInvalidCode),
		errors.Is(err, costcodedomain.ErrInvalidName),
		errors.Is(err, costcodedomain.ErrInvalidAmount):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, billingdomain.ErrDocumentNotDraft),
		errors.Is(err, billingdomain.ErrInvalidTransition),
		errors.Is(err, billingdomain.ErrDocumentNotSubmitted),
		errors.Is(err, billingdomain.ErrSubmitInProgress),
		errors.Is(err, commitmentdomain.ErrChangeOrderNotDraft),
		errors.Is(err, costcodedomain.ErrDuplicateCode):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, billingdomain.ErrDocumentNotDraft):
		return "document is no longer a draft"
	case errors.Is(err, billingdomain.ErrInvalidTransition):
		return "status transition not allowed"
	case errors.Is(err, billingdomain.ErrDocumentNotSubmitted):
		return "document must be submitted before approval"
	case errors.Is(err, billingdomain.ErrSubmitInProgress):
		return "document is being submitted"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, billingdomain.ErrDocumentNotFound),
		errors.Is(err, billingdomain.ErrLineNotFound),
		errors.Is(err, commitmentdomain.ErrNotFound),
		errors.Is(err, commitmentdomain.ErrChangeOrderNotFound),
		errors.Is(err, costcodedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
