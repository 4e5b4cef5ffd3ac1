package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	taxpayerdomain "github.com/taxlens/taxlens/internal/taxpayer/domain"
)

func (s *Server) dashboardStats(c *gin.Context) {
	ctx := c.Request.Context()

	taxpayerCount, err := s.taxpayers.Count(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	invoiceCount, err := s.invoices.Count(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	totalValue, err := s.invoices.SumTotalValue(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	returns := gin.H{}
	for _, kind := range []taxpayerdomain.ReturnKind{
		taxpayerdomain.ReturnOutward,
		taxpayerdomain.ReturnInward,
		taxpayerdomain.ReturnSummary,
	} {
		count, err := s.taxpayers.CountReturnsByKind(ctx, kind)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		returns[string(kind)] = count
	}

	totalMismatches := 0
	periods := make([]string, 0)
	for period, res := range s.results.Snapshot() {
		periods = append(periods, period)
		totalMismatches += res.Total
	}

	c.JSON(http.StatusOK, gin.H{
		"total_taxpayers":    taxpayerCount,
		"total_invoices":     invoiceCount,
		"total_trade_value":  totalValue,
		"returns":            returns,
		"reconciled_periods": len(periods),
		"total_mismatches":   totalMismatches,
	})
}
