package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	costcodedomain "github.com/smallbiznis/costline/internal/costcode/domain"
)

type createCatalogEntryRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (s *Server) CreateCostCode(c *gin.Context) {
	var req createCatalogEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.costCodeSvc.CreateCostCode(c.Request.Context(), costcodedomain.CreateRequest{
		Code: strings.TrimSpace(req.Code),
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateCostType(c *gin.Context) {
	var req createCatalogEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.costCodeSvc.CreateCostType(c.Request.Context(), costcodedomain.CreateRequest{
		Code: strings.TrimSpace(req.Code),
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateBudgetLine(c *gin.Context) {
	var req costcodedomain.CreateBudgetLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.costCodeSvc.CreateBudgetLine(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCostTypes(c *gin.Context) {
	resp, err := s.costCodeSvc.ListCostTypes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ListProjectCostCodes lists the codes a project may bill against.
func (s *Server) ListProjectCostCodes(c *gin.Context) {
	projectID, err := parseOptionalSnowflakeID(c.Param("project_id"))
	if err != nil || projectID == nil {
		AbortWithError(c, costcodedomain.ErrInvalidProject)
		return
	}

	resp, err := s.costCodeSvc.Catalog(c.Request.Context(), *projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.CostCodes})
}
