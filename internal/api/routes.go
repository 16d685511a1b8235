package api

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/beal-search/internal/coordinator"
	"github.com/rawblock/beal-search/pkg/models"
)

// APIHandler wires the coordinator's shard queue to the get_work/finish_work
// RPC surface (spec §6) and the dashboard status/stream endpoints.
type APIHandler struct {
	coord *coordinator.Coordinator
	wsHub *Hub
}

// SetupRouter builds the gin engine serving a coordinator process: the
// worker-facing RPC pair, a public health/status surface, and a websocket
// feed for the live dashboard.
func SetupRouter(coord *coordinator.Coordinator, wsHub *Hub) *gin.Engine {
	r := gin.Default()

	// Enable CORS — configurable via ALLOWED_ORIGINS env var.
	// Production: ALLOWED_ORIGINS=https://beal.rawblock.net
	// Development: leave empty for *.
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{coord: coord, wsHub: wsHub}

	// ── Public endpoints (no auth) ─────────────────────────────
	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/status", NewRateLimiter(60, 10).Middleware(), handler.handleStatus)
		pub.GET("/stream", NewRateLimiter(60, 10).Middleware(), wsHub.Subscribe)
	}

	// ── Worker RPC (require bearer token if COORDINATOR_AUTH_TOKEN set) ──
	rpc := r.Group("/api/v1")
	rpc.Use(AuthMiddleware())
	{
		rpc.POST("/get_work", handler.handleGetWork)
		rpc.POST("/finish_work", handler.handleFinishWork)
	}

	// Serve the static dashboard, if present.
	r.Static("/dashboard", "./public")

	return r
}

// handleGetWork dispenses the next shard, or {"done": true} once the
// a-axis is exhausted (spec §6).
func (h *APIHandler) handleGetWork(c *gin.Context) {
	ws, ok := h.coord.GetWork()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"done": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"done": false, "work": ws})
}

// handleFinishWork records the candidates a worker found for its shard.
// Duplicate-delivery is a no-op (spec §6, §8) — the response still
// reports 200 so a worker that already reported this shard on a prior,
// unacknowledged attempt does not treat the retry as an error.
//
// A result-log write failure is unrecoverable (spec §7 kind 3) and is
// handled by Coordinator.FinishWork aborting the whole process rather
// than surfacing an HTTP error here — there is no well-defined response
// to give a worker when the authoritative log itself can't be trusted.
func (h *APIHandler) handleFinishWork(c *gin.Context) {
	var req models.FinishWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	duplicate := h.coord.FinishWork(c.Request.Context(), req.Shard, req.Candidates)

	if !duplicate && h.wsHub != nil {
		broadcastShardComplete(h.wsHub, req.Shard, len(req.Candidates), h.coord.Status())
	}

	c.JSON(http.StatusOK, gin.H{"duplicate": duplicate})
}

// handleHealth reports process liveness for service discovery.
func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "operational",
		"engine": "beal-search coordinator",
		"runId":  h.coord.RunID(),
	})
}

// handleStatus returns a point-in-time progress snapshot for the dashboard.
func (h *APIHandler) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.coord.Status())
}

// broadcastShardComplete pushes a progress event to every connected
// dashboard client, mirroring the donor's BroadcastCoinJoinAlert pattern.
func broadcastShardComplete(wsHub *Hub, shard models.Shard, candidateCount int, status coordinator.Status) {
	payload, err := json.Marshal(gin.H{
		"type":           "shard_complete",
		"a":              shard.A,
		"candidateCount": candidateCount,
		"status":         status,
	})
	if err != nil {
		log.Printf("[API] failed to marshal shard_complete event: %v", err)
		return
	}
	wsHub.Broadcast(payload)
}
