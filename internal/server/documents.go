package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/costline/internal/billing/domain"
)

type createDocumentRequest struct {
	ProjectID    string         `json:"project_id"`
	Kind         string         `json:"kind"`
	CommitmentID *string        `json:"commitment_id"`
	Metadata     map[string]any `json:"metadata"`
}

// lineEditsRequest carries field edits in the order they are applied.
type lineEditsRequest struct {
	Edits []billingdomain.LineEdit `json:"edits"`
}

type resolveCommitmentRequest struct {
	CommitmentID string `json:"commitment_id"`
}

func (s *Server) CreateDocument(c *gin.Context) {
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.billingSvc.CreateDocument(c.Request.Context(), billingdomain.CreateDocumentRequest{
		ProjectID:    strings.TrimSpace(req.ProjectID),
		Kind:         billingdomain.DocumentKind(strings.ToLower(strings.TrimSpace(req.Kind))),
		CommitmentID: req.CommitmentID,
		Metadata:     req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDocument(c *gin.Context) {
	resp, err := s.billingSvc.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteDocument(c *gin.Context) {
	if err := s.billingSvc.DeleteDraft(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) AddLine(c *gin.Context) {
	edits, ok := bindEdits(c)
	if !ok {
		return
	}

	resp, err := s.billingSvc.AddManualLine(c.Request.Context(), c.Param("id"), edits)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) EditLine(c *gin.Context) {
	edits, ok := bindEdits(c)
	if !ok {
		return
	}

	resp, err := s.billingSvc.EditLine(c.Request.Context(), c.Param("id"), c.Param("line_id"), edits)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveLine(c *gin.Context) {
	resp, err := s.billingSvc.RemoveLine(c.Request.Context(), c.Param("id"), c.Param("line_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ResolveCommitment(c *gin.Context) {
	var req resolveCommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.CommitmentID) == "" {
		AbortWithError(c, newValidationError("commitment_id", "required", "commitment_id is required"))
		return
	}

	resp, err := s.billingSvc.ResolveFromCommitment(c.Request.Context(), c.Param("id"), req.CommitmentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTotals(c *gin.Context) {
	resp, err := s.billingSvc.ComputeTotals(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ValidateDocument reports violations in the body with 200; only lookup
// failures are errors here.
func (s *Server) ValidateDocument(c *gin.Context) {
	resp, err := s.billingSvc.Validate(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"valid":      resp.Valid(),
		"violations": resp.Violations,
		"signals":    resp.Signals,
	}})
}

func (s *Server) SubmitDocument(c *gin.Context) {
	resp, err := s.billingSvc.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TransitionDocument(to billingdomain.DocumentStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := s.billingSvc.Transition(c.Request.Context(), c.Param("id"), to)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": resp})
	}
}

func (s *Server) GetBilledToDate(c *gin.Context) {
	kind, err := parseDocumentKind(c.Query("kind"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.billingSvc.BilledToDate(c.Request.Context(), c.Param("project_id"), kind, c.Param("line_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func bindEdits(c *gin.Context) ([]billingdomain.LineEdit, bool) {
	var req lineEditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return nil, false
	}
	if len(req.Edits) == 0 {
		AbortWithError(c, newValidationError("edits", "required", "at least one edit is required"))
		return nil, false
	}
	for i := range req.Edits {
		req.Edits[i].Field = billingdomain.LineField(strings.TrimSpace(string(req.Edits[i].Field)))
	}
	return req.Edits, true
}
