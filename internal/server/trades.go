package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listCircularTrades(c *gin.Context) {
	cycles, err := s.tradeSvc.FindCircularTrades(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"circular_trades": cycles,
		"total":           len(cycles),
	})
}
