package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	riskdomain "github.com/taxlens/taxlens/internal/risk/domain"
)

func (s *Server) listVendorRisk(c *gin.Context) {
	vendors, err := s.riskSvc.ScoreAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if level := c.Query("risk_level"); level != "" {
		filtered := make([]riskdomain.VendorRisk, 0, len(vendors))
		for _, v := range vendors {
			if string(v.RiskLevel) == level {
				filtered = append(filtered, v)
			}
		}
		vendors = filtered
	}

	page, pageSize := pagination(c)
	start := (page - 1) * pageSize
	if start > len(vendors) {
		start = len(vendors)
	}
	end := start + pageSize
	if end > len(vendors) {
		end = len(vendors)
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     len(vendors),
		"page":      page,
		"page_size": pageSize,
		"vendors":   vendors[start:end],
	})
}

func (s *Server) getVendorRisk(c *gin.Context) {
	vendor, err := s.riskSvc.ScoreOne(c.Request.Context(), c.Param("tin"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, vendor)
}
