package handlers

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/SscSPs/library_circulation_app/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// RealtimeServer takes ownership of an upgraded console connection.
type RealtimeServer interface {
	Serve(conn *websocket.Conn, staffID string)
}

type wsHandler struct {
	hub      RealtimeServer
	upgrader websocket.Upgrader
}

func registerRealtimeRoutes(rg *gin.RouterGroup, hub RealtimeServer, allowedOrigins []string) {
	h := &wsHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
	rg.GET("/ws", h.serve)
}

// serve godoc
// @Summary Subscribe to circulation events
// @Description Upgrades to a websocket that receives one JSON frame per committed circulation event
// @Tags realtime
// @Param   token query string false "JWT, for clients that cannot set headers"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /ws [get]
func (h *wsHandler) serve(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actorID, ok := staffID(c, logger)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logger.Warn("Websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	h.hub.Serve(conn, actorID)
}
