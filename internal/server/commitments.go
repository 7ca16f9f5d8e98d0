package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	commitmentdomain "github.com/smallbiznis/costline/internal/commitment/domain"
)

type createChangeOrderRequest struct {
	Number string                         `json:"number"`
	Lines  []commitmentdomain.LineRequest `json:"lines"`
}

func (s *Server) CreateCommitment(c *gin.Context) {
	var req commitmentdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Kind = commitmentdomain.CommitmentKind(strings.ToLower(strings.TrimSpace(string(req.Kind))))

	resp, err := s.commitmentSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCommitment(c *gin.Context) {
	resp, err := s.commitmentSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListCommitmentLines returns base lines followed by approved change order lines.
func (s *Server) ListCommitmentLines(c *gin.Context) {
	resp, err := s.commitmentSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Lines})
}

func (s *Server) CreateChangeOrder(c *gin.Context) {
	var req createChangeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.commitmentSvc.CreateChangeOrder(c.Request.Context(), commitmentdomain.CreateChangeOrderRequest{
		CommitmentID: c.Param("id"),
		Number:       strings.TrimSpace(req.Number),
		Lines:        req.Lines,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApproveChangeOrder(c *gin.Context) {
	resp, err := s.commitmentSvc.ApproveChangeOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) VoidChangeOrder(c *gin.Context) {
	resp, err := s.commitmentSvc.VoidChangeOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
