package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"signalfeed/internal/service"
)

type V2SystemSettingsHandler struct {
	Settings *service.SystemSettingsService
}

func (h *V2SystemSettingsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v2/settings")
	g.GET("/switches", h.listSwitches)
	g.GET("/switches/:key", h.getSwitch)
	g.PUT("/switches/:key", h.putSwitch)
}

// switchKey accepts both "ingestion" and "feature.ingestion".
func switchKey(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "feature.") {
		return name
	}
	return "feature." + name
}

// @Summary List feature switches
// @Tags settings
// @Success 200 {object} apiResponse
// @Router /api/v2/settings/switches [get]
func (h *V2SystemSettingsHandler) listSwitches(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	items, err := h.Settings.ListSwitches(c.Request.Context())
	if err != nil {
		AppError(c, err)
		return
	}
	Ok(c, items, nil)
}

// @Summary Get a feature switch
// @Tags settings
// @Param key path string true "switch name"
// @Success 200 {object} apiResponse
// @Router /api/v2/settings/switches/{key} [get]
func (h *V2SystemSettingsHandler) getSwitch(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	key := switchKey(c.Param("key"))
	def, known := service.DefaultFeatureSwitches()[key]
	if !known {
		Error(c, http.StatusNotFound, "unknown switch", nil)
		return
	}
	Ok(c, map[string]any{
		"key":     key,
		"enabled": h.Settings.IsEnabled(c.Request.Context(), key, def),
	}, nil)
}

type putSwitchRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// @Summary Flip a feature switch
// @Tags settings
// @Accept json
// @Param key path string true "switch name"
// @Param body body putSwitchRequest true "state"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v2/settings/switches/{key} [put]
func (h *V2SystemSettingsHandler) putSwitch(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	key := switchKey(c.Param("key"))
	if key == "" {
		Error(c, http.StatusBadRequest, "invalid switch name", nil)
		return
	}
	var req putSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.Settings.SetEnabled(c.Request.Context(), key, *req.Enabled); err != nil {
		AppError(c, err)
		return
	}
	Ok(c, map[string]any{
		"key":     key,
		"enabled": *req.Enabled,
	}, nil)
}
