package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/taxlens/taxlens/internal/invoice/domain"
)

type ingestInvoicesRequest struct {
	Period   string                        `json:"period"`
	Source   invoicedomain.Source          `json:"source"`
	Invoices []invoicedomain.InvoiceRecord `json:"invoices"`
}

func (s *Server) ingestInvoices(c *gin.Context) {
	var req ingestInvoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "malformed request body"))
		return
	}
	if req.Period == "" {
		req.Period = c.Query("period")
	}
	if req.Source == "" {
		req.Source = invoicedomain.Source(c.Query("source"))
	}

	ingested, err := s.ingestSvc.IngestInvoices(c.Request.Context(), req.Period, req.Source, req.Invoices)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ingested": ingested,
		"period":   req.Period,
		"source":   req.Source,
	})
}

type ingestTaxpayersRequest struct {
	Taxpayers []invoicedomain.TaxpayerRecord `json:"taxpayers"`
}

func (s *Server) ingestTaxpayers(c *gin.Context) {
	var req ingestTaxpayersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "malformed request body"))
		return
	}

	ingested, err := s.ingestSvc.IngestTaxpayers(c.Request.Context(), req.Taxpayers)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ingested": ingested})
}

type ingestSummariesRequest struct {
	Period    string                        `json:"period"`
	Summaries []invoicedomain.SummaryRecord `json:"summaries"`
}

func (s *Server) ingestSummaries(c *gin.Context) {
	var req ingestSummariesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("body", "invalid_json", "malformed request body"))
		return
	}
	if req.Period == "" {
		req.Period = c.Query("period")
	}

	ingested, err := s.ingestSvc.IngestSummaries(c.Request.Context(), req.Period, req.Summaries)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ingested": ingested,
		"period":   req.Period,
	})
}
