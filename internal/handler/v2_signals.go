package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"signalfeed/internal/models"
	"signalfeed/internal/repository"
	"signalfeed/internal/service"
)

// ConfirmClearHeader must be set to "yes" on clear requests.
const ConfirmClearHeader = "X-Confirm-Clear"

// Generator runs one analyzer pass for a symbol.
type Generator interface {
	Generate(ctx context.Context, symbol string) (*models.Signal, bool, error)
}

type V2SignalHandler struct {
	Signals   *service.SignalService
	Generator Generator
	Settings  *service.SystemSettingsService
}

// AuditedRoutes are the write routes whose service call records its own audit
// event on success.
var AuditedRoutes = []string{
	"POST /api/v2/signals",
	"POST /api/v2/signals/clear",
	"POST /api/v2/signals/:id/cancel",
}

func (h *V2SignalHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v2/signals")
	group.GET("", h.listSignals)
	group.POST("", h.createSignal)
	group.POST("/generate", h.generate)
	group.POST("/clear", h.clear)
	group.GET("/:id", h.getSignal)
	group.POST("/:id/cancel", h.cancel)
}

// @Summary List signals
// @Tags signals
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Param status query string false "ACTIVE|EXPIRED|CANCELLED"
// @Param source query string false "BOT_GENERATED|ADMIN_GENERATED"
// @Param symbol query string false "symbol"
// @Param direction query string false "BUY|SELL"
// @Param since query string false "RFC3339 lower bound on created_at"
// @Success 200 {object} apiResponse
// @Router /api/v2/signals [get]
func (h *V2SignalHandler) listSignals(c *gin.Context) {
	if h.Signals == nil {
		Error(c, http.StatusInternalServerError, "signal service unavailable", nil)
		return
	}
	limit := repository.NormalizeLimit(intQuery(c, "limit", 50), 50)
	offset := repository.NormalizeOffset(intQuery(c, "offset", 0))
	params := repository.QuerySignalsParams{Limit: limit, Offset: offset}

	if v := strings.TrimSpace(c.Query("status")); v != "" {
		st, ok := models.ParseStatus(v)
		if !ok {
			Error(c, http.StatusBadRequest, "invalid status", nil)
			return
		}
		params.Status = &st
	}
	if v := strings.TrimSpace(c.Query("source")); v != "" {
		src, ok := models.ParseSource(v)
		if !ok {
			Error(c, http.StatusBadRequest, "invalid source", nil)
			return
		}
		params.Source = &src
	}
	if v := strings.TrimSpace(c.Query("direction")); v != "" {
		dir, ok := models.ParseDirection(v)
		if !ok {
			Error(c, http.StatusBadRequest, "invalid direction", nil)
			return
		}
		params.Direction = &dir
	}
	if v := strings.TrimSpace(c.Query("symbol")); v != "" {
		params.Symbol = &v
	}
	since, ok := timeQuery(c, "since")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid since", nil)
		return
	}
	params.Since = since

	items, total, err := h.Signals.List(c.Request.Context(), params)
	if err != nil {
		AppError(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Get signal
// @Tags signals
// @Param id path string true "signal id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v2/signals/{id} [get]
func (h *V2SignalHandler) getSignal(c *gin.Context) {
	if h.Signals == nil {
		Error(c, http.StatusInternalServerError, "signal service unavailable", nil)
		return
	}
	sig, err := h.Signals.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AppError(c, err)
		return
	}
	Ok(c, sig, nil)
}

type createSignalRequest struct {
	Symbol     string           `json:"symbol" binding:"required"`
	Direction  string           `json:"direction" binding:"required"`
	EntryPrice *decimal.Decimal `json:"entry_price" binding:"required"`
	StopLoss   *decimal.Decimal `json:"stop_loss"`
	TakeProfit *decimal.Decimal `json:"take_profit"`
	Confidence float64          `json:"confidence"`
	Note       string           `json:"note"`
	Actor      string           `json:"actor"`
}

// @Summary Create or refresh an admin signal
// @Tags signals
// @Accept json
// @Param body body createSignalRequest true "signal"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/v2/signals [post]
func (h *V2SignalHandler) createSignal(c *gin.Context) {
	if h.Signals == nil {
		Error(c, http.StatusInternalServerError, "signal service unavailable", nil)
		return
	}
	var req createSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	sig, inserted, err := h.Signals.CreateAdmin(c.Request.Context(), service.AdminSignalInput{
		Symbol:     req.Symbol,
		Direction:  req.Direction,
		EntryPrice: *req.EntryPrice,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Confidence: req.Confidence,
		Note:       req.Note,
		Actor:      actorFrom(c, req.Actor),
	})
	if err != nil {
		AppError(c, err)
		return
	}
	Ok(c, sig, map[string]any{"inserted": inserted})
}

type generateRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

// @Summary Generate a signal for one symbol
// @Description Runs one analyzer pass. data.signal is null when nothing actionable was found.
// @Tags signals
// @Accept json
// @Param body body generateRequest true "symbol"
// @Success 200 {object} apiResponse
// @Failure 503 {object} apiResponse
// @Router /api/v2/signals/generate [post]
func (h *V2SignalHandler) generate(c *gin.Context) {
	if h.Generator == nil {
		Error(c, http.StatusInternalServerError, "generator unavailable", nil)
		return
	}
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	sig, inserted, err := h.Generator.Generate(c.Request.Context(), req.Symbol)
	if err != nil {
		AppError(c, err)
		return
	}
	Ok(c, gin.H{"signal": sig, "inserted": inserted}, nil)
}

type cancelRequest struct {
	Actor string `json:"actor"`
}

// @Summary Cancel an active signal
// @Tags signals
// @Param id path string true "signal id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/v2/signals/{id}/cancel [post]
func (h *V2SignalHandler) cancel(c *gin.Context) {
	if h.Signals == nil {
		Error(c, http.StatusInternalServerError, "signal service unavailable", nil)
		return
	}
	var req cancelRequest
	_ = c.ShouldBindJSON(&req)
	sig, err := h.Signals.Cancel(c.Request.Context(), c.Param("id"), actorFrom(c, req.Actor))
	if err != nil {
		AppError(c, err)
		return
	}
	Ok(c, sig, nil)
}

type clearRequest struct {
	Source  string `json:"source"`
	Confirm bool   `json:"confirm"`
	Actor   string `json:"actor"`
}

// @Summary Permanently remove signals
// @Description Requires confirm=true in the body and the X-Confirm-Clear: yes header.
// @Tags signals
// @Accept json
// @Param X-Confirm-Clear header string true "must be yes"
// @Param body body clearRequest true "scope"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 403 {object} apiResponse
// @Router /api/v2/signals/clear [post]
func (h *V2SignalHandler) clear(c *gin.Context) {
	if h.Signals == nil {
		Error(c, http.StatusInternalServerError, "signal service unavailable", nil)
		return
	}
	if !h.Settings.IsEnabled(c.Request.Context(), service.FeatureSignalsClear, true) {
		Error(c, http.StatusForbidden, "signal clearing is disabled", nil)
		return
	}
	var req clearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if !req.Confirm || !strings.EqualFold(strings.TrimSpace(c.GetHeader(ConfirmClearHeader)), "yes") {
		Error(c, http.StatusBadRequest, "clear requires confirm=true and "+ConfirmClearHeader+": yes", nil)
		return
	}
	var source *models.Source
	if v := strings.TrimSpace(req.Source); v != "" {
		src, ok := models.ParseSource(v)
		if !ok {
			Error(c, http.StatusBadRequest, "invalid source", nil)
			return
		}
		source = &src
	}
	n, err := h.Signals.Clear(c.Request.Context(), source, actorFrom(c, req.Actor))
	if err != nil {
		AppError(c, err)
		return
	}
	scope := "all"
	if source != nil {
		scope = string(*source)
	}
	Ok(c, gin.H{"removed": n, "source": scope}, nil)
}

// actorFrom prefers the X-Actor header over the body field.
func actorFrom(c *gin.Context, body string) string {
	if v := strings.TrimSpace(c.GetHeader("X-Actor")); v != "" {
		return v
	}
	return strings.TrimSpace(body)
}
