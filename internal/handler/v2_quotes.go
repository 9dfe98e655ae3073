package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"signalfeed/internal/marketdata"
)

type V2QuoteHandler struct {
	Source marketdata.Source
}

func (h *V2QuoteHandler) Register(r *gin.Engine) {
	r.GET("/api/v2/quotes/:symbol", h.getQuote)
}

// @Summary Last price for a symbol
// @Description Served by the configured market data source through its cache.
// @Tags quotes
// @Param symbol path string true "provider symbol, e.g. EURUSD=X or BTCUSDT"
// @Success 200 {object} apiResponse
// @Failure 503 {object} apiResponse
// @Router /api/v2/quotes/{symbol} [get]
func (h *V2QuoteHandler) getQuote(c *gin.Context) {
	if h.Source == nil {
		Error(c, http.StatusInternalServerError, "market data unavailable", nil)
		return
	}
	symbol := strings.TrimSpace(c.Param("symbol"))
	if symbol == "" {
		Error(c, http.StatusBadRequest, "symbol is required", nil)
		return
	}
	quote, err := h.Source.Quote(c.Request.Context(), symbol)
	if err != nil {
		AppError(c, err)
		return
	}
	Ok(c, quote, map[string]any{"source": h.Source.Name()})
}
