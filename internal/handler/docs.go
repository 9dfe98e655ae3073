package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterDocs serves a short operator guide at /docs.
func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# Signal Feed Service

Bot analyzers and admins publish BUY/SELL signals; consumers read the ranked feed.

## Feed

- GET /api/v2/feed (admin_only, recommended_only, symbol, direction, since, min_confidence, limit, offset)
- GET /api/v2/feed/stream (websocket: feed.snapshot, then signal.* and signals.* events)

Signals with confidence at or above the configured threshold are recommended
and always rank ahead of the rest.

## Signals

- GET /api/v2/signals
- GET /api/v2/signals/{id}
- POST /api/v2/signals (admin create or same-day refresh)
- POST /api/v2/signals/{id}/cancel
- POST /api/v2/signals/generate {"symbol": "EURUSD=X"}
- POST /api/v2/signals/clear {"source": "BOT_GENERATED", "confirm": true}
  with header X-Confirm-Clear: yes. Clearing is permanent.

## Ingestion

- POST /api/v2/ingestion/run
- GET /api/v2/ingestion/runs
- GET /api/v2/ingestion/symbols

## Quotes

- GET /api/v2/quotes/{symbol}

## Operations

- GET /healthz
- GET /readyz
- GET /metrics
- GET /swagger/index.html
- GET/PUT /api/v2/settings/switches/{key}
`)
	})
}
