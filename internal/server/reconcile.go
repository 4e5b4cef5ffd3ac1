package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/taxlens/taxlens/internal/invoice/domain"
	reconciledomain "github.com/taxlens/taxlens/internal/reconcile/domain"
)

type reconcileRequest struct {
	Period string `json:"period"`
	Force  bool   `json:"force"`
}

func (s *Server) runReconciliation(c *gin.Context) {
	var req reconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, newValidationError("body", "invalid_json", "malformed request body"))
			return
		}
	}
	if req.Period == "" {
		req.Period = c.Query("period")
	}
	if !req.Force {
		req.Force = c.Query("force") == "true"
	}
	if !invoicedomain.ValidPeriod(req.Period) {
		AbortWithError(c, newValidationError("period", "invalid_period", "period must be MMYYYY"))
		return
	}

	if !req.Force {
		if res, ok := s.reconcileSvc.CachedResult(req.Period); ok {
			c.JSON(http.StatusOK, reconcileSummary("cached", res))
			return
		}
	}

	res, err := s.reconcileSvc.Reconcile(c.Request.Context(), req.Period)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, reconcileSummary("completed", res))
}

func (s *Server) reconciliationStatus(c *gin.Context) {
	period := c.Query("period")
	if !invoicedomain.ValidPeriod(period) {
		AbortWithError(c, newValidationError("period", "invalid_period", "period must be MMYYYY"))
		return
	}

	res, ok := s.reconcileSvc.CachedResult(period)
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"status": "no_data",
			"period": period,
		})
		return
	}
	c.JSON(http.StatusOK, reconcileSummary("cached", res))
}

func (s *Server) listMismatches(c *gin.Context) {
	period := c.Query("period")
	if !invoicedomain.ValidPeriod(period) {
		AbortWithError(c, newValidationError("period", "invalid_period", "period must be MMYYYY"))
		return
	}

	res, ok := s.reconcileSvc.CachedResult(period)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}

	filtered := filterMismatches(res.Mismatches, mismatchFilter{
		Type:       c.Query("mismatch_type"),
		Severity:   c.Query("severity"),
		SupplierID: c.Query("supplier_id"),
		BuyerID:    c.Query("buyer_id"),
	})

	page, pageSize := pagination(c)
	start := (page - 1) * pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}

	c.JSON(http.StatusOK, gin.H{
		"period":     period,
		"total":      len(filtered),
		"page":       page,
		"page_size":  pageSize,
		"mismatches": filtered[start:end],
	})
}

func (s *Server) getMismatch(c *gin.Context) {
	m, ok := s.results.FindMismatch(c.Param("id"))
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, m)
}

func reconcileSummary(status string, res *reconciledomain.Result) gin.H {
	return gin.H{
		"status":           status,
		"period":           res.Period,
		"total_mismatches": res.Total,
		"breakdown":        res.Breakdown,
		"computed_at":      res.ComputedAt,
	}
}

type mismatchFilter struct {
	Type       string
	Severity   string
	SupplierID string
	BuyerID    string
}

func filterMismatches(in []reconciledomain.Mismatch, f mismatchFilter) []reconciledomain.Mismatch {
	out := make([]reconciledomain.Mismatch, 0, len(in))
	for _, m := range in {
		if f.Type != "" && string(m.Type) != f.Type {
			continue
		}
		if f.Severity != "" && string(m.Severity) != f.Severity {
			continue
		}
		if f.SupplierID != "" && m.SupplierID != f.SupplierID {
			continue
		}
		if f.BuyerID != "" && m.BuyerID != f.BuyerID {
			continue
		}
		out = append(out, m)
	}
	return out
}

func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 500 {
		pageSize = 500
	}
	return page, pageSize
}
