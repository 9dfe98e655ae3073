package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"signalfeed/internal/feed"
	"signalfeed/internal/metrics"
	"signalfeed/internal/models"
	"signalfeed/internal/repository"
	"signalfeed/internal/service"
	"signalfeed/internal/signal"
)

const (
	streamBuffer       = 64
	streamWriteTimeout = 5 * time.Second
	streamPingInterval = 30 * time.Second
)

type V2FeedHandler struct {
	Composer *feed.Composer
	Hub      *signal.Hub
	Settings *service.SystemSettingsService
	Logger   *zap.Logger
}

func (h *V2FeedHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v2/feed")
	group.GET("", h.list)
	group.GET("/stream", h.stream)
}

func (h *V2FeedHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func parseFeedFilters(c *gin.Context) (feed.Filters, string) {
	f := feed.Filters{
		AdminOnly:       boolQueryDefault(c, "admin_only", false),
		RecommendedOnly: boolQueryDefault(c, "recommended_only", false),
		Symbol:          strings.TrimSpace(c.Query("symbol")),
		Limit:           repository.NormalizeLimit(intQuery(c, "limit", 50), 50),
		Offset:          repository.NormalizeOffset(intQuery(c, "offset", 0)),
	}
	if v := strings.TrimSpace(c.Query("source")); v != "" {
		src, ok := models.ParseSource(v)
		if !ok {
			return f, "invalid source"
		}
		if f.AdminOnly && src != models.SourceAdmin {
			return f, "source conflicts with admin_only"
		}
		f.Source = &src
	}
	if v := strings.TrimSpace(c.Query("direction")); v != "" {
		dir, ok := models.ParseDirection(v)
		if !ok {
			return f, "invalid direction"
		}
		f.Direction = &dir
	}
	since, ok := timeQuery(c, "since")
	if !ok {
		return f, "invalid since"
	}
	f.Since = since
	minConf, ok := floatQuery(c, "min_confidence", 0)
	if !ok || minConf < 0 || minConf > 100 {
		return f, "invalid min_confidence"
	}
	f.MinConfidence = minConf
	return f, ""
}

// @Summary Signal feed
// @Description ACTIVE signals, recommended first, then by confidence and recency.
// @Tags feed
// @Param admin_only query bool false "only ADMIN_GENERATED"
// @Param source query string false "BOT_GENERATED|ADMIN_GENERATED"
// @Param recommended_only query bool false "only recommended"
// @Param symbol query string false "symbol"
// @Param direction query string false "BUY|SELL"
// @Param since query string false "RFC3339 lower bound on created_at"
// @Param min_confidence query number false "0-100"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v2/feed [get]
func (h *V2FeedHandler) list(c *gin.Context) {
	if h.Composer == nil {
		Error(c, http.StatusInternalServerError, "feed unavailable", nil)
		return
	}
	filters, bad := parseFeedFilters(c)
	if bad != "" {
		Error(c, http.StatusBadRequest, bad, nil)
		return
	}
	items, err := h.Composer.Compose(c.Request.Context(), filters)
	if err != nil {
		AppError(c, err)
		return
	}
	Ok(c, items, map[string]any{
		"threshold": h.Composer.Threshold(),
		"count":     len(items),
		"limit":     filters.Limit,
		"offset":    filters.Offset,
	})
}

type streamMessage struct {
	Type   string      `json:"type"`
	Items  []feed.Item `json:"items,omitempty"`
	Signal *feed.Item  `json:"signal,omitempty"`
	Count  int64       `json:"count,omitempty"`
	At     time.Time   `json:"at"`
}

// @Summary Live feed
// @Description Websocket. Sends a feed.snapshot message, then one message per signal event.
// @Tags feed
// @Router /api/v2/feed/stream [get]
func (h *V2FeedHandler) stream(c *gin.Context) {
	if h.Composer == nil || h.Hub == nil {
		Error(c, http.StatusInternalServerError, "feed unavailable", nil)
		return
	}
	if !h.Settings.IsEnabled(c.Request.Context(), service.FeatureFeedStream, true) {
		Error(c, http.StatusForbidden, "feed stream is disabled", nil)
		return
	}
	filters, bad := parseFeedFilters(c)
	if bad != "" {
		Error(c, http.StatusBadRequest, bad, nil)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.logger().Debug("feed stream accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	metrics.FeedSubscribers.Inc()
	defer metrics.FeedSubscribers.Dec()

	events, unsubscribe := h.Hub.Subscribe(streamBuffer)
	defer unsubscribe()

	ctx := conn.CloseRead(c.Request.Context())

	snapshot, err := h.Composer.Compose(ctx, filters)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "feed unavailable")
		return
	}
	if err := writeJSON(ctx, conn, streamMessage{Type: "feed.snapshot", Items: snapshot, At: time.Now().UTC()}); err != nil {
		return
	}

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "shutdown")
				return
			}
			msg, send := h.toMessage(ev, filters)
			if !send {
				continue
			}
			if err := writeJSON(ctx, conn, msg); err != nil {
				if !errors.Is(err, context.Canceled) {
					h.logger().Debug("feed stream write failed", zap.Error(err))
				}
				return
			}
		}
	}
}

// toMessage applies the subscriber's filters to per-signal events. Bulk
// events always pass.
func (h *V2FeedHandler) toMessage(ev signal.Event, f feed.Filters) (streamMessage, bool) {
	msg := streamMessage{Type: string(ev.Type), Count: ev.Count, At: ev.At}
	if ev.Signal == nil {
		return msg, true
	}
	sig := *ev.Signal
	if !f.Matches(sig) {
		return msg, false
	}
	rec := sig.Recommended(h.Composer.Threshold())
	if sig.Status == models.StatusActive && (sig.Confidence < f.MinConfidence || (f.RecommendedOnly && !rec)) {
		return msg, false
	}
	msg.Signal = &feed.Item{Signal: sig, IsRecommended: rec}
	return msg, true
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, payload)
}
