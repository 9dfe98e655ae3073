package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"signalfeed/internal/ingest"
	"signalfeed/internal/models"
)

type CycleRunner interface {
	RunCycle(ctx context.Context, trigger string) (ingest.CycleReport, error)
	Symbols() []string
}

type RunLister interface {
	ListIngestionRuns(ctx context.Context, limit int) ([]models.IngestionRun, error)
}

type V2IngestionHandler struct {
	Runner CycleRunner
	Runs   RunLister
}

func (h *V2IngestionHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v2/ingestion")
	g.POST("/run", h.run)
	g.GET("/runs", h.listRuns)
	g.GET("/symbols", h.symbols)
}

// @Summary Run one ingestion cycle now
// @Tags ingestion
// @Success 200 {object} apiResponse
// @Router /api/v2/ingestion/run [post]
func (h *V2IngestionHandler) run(c *gin.Context) {
	if h.Runner == nil {
		Error(c, http.StatusInternalServerError, "ingestion unavailable", nil)
		return
	}
	report, err := h.Runner.RunCycle(c.Request.Context(), ingest.TriggerManual)
	if err != nil {
		Error(c, http.StatusServiceUnavailable, "ingestion cycle cancelled", map[string]any{"report": report})
		return
	}
	Ok(c, report, map[string]any{
		"inserted":    report.Count(ingest.OutcomeInserted),
		"updated":     report.Count(ingest.OutcomeUpdated),
		"unavailable": report.Count(ingest.OutcomeUnavailable),
		"failed":      report.Count(ingest.OutcomeFailed),
	})
}

// @Summary Recent ingestion runs
// @Tags ingestion
// @Param limit query int false "limit"
// @Success 200 {object} apiResponse
// @Router /api/v2/ingestion/runs [get]
func (h *V2IngestionHandler) listRuns(c *gin.Context) {
	if h.Runs == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Runs.ListIngestionRuns(c.Request.Context(), intQuery(c, "limit", 20))
	if err != nil {
		AppError(c, err)
		return
	}
	Ok(c, items, nil)
}

// @Summary Configured ingestion symbols
// @Tags ingestion
// @Success 200 {object} apiResponse
// @Router /api/v2/ingestion/symbols [get]
func (h *V2IngestionHandler) symbols(c *gin.Context) {
	if h.Runner == nil {
		Error(c, http.StatusInternalServerError, "ingestion unavailable", nil)
		return
	}
	Ok(c, h.Runner.Symbols(), nil)
}
