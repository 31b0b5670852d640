// README: Presence websocket: one connection is one driver online session.
package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"rideline/internal/http/middleware"
	"rideline/internal/modules/presence"
	"rideline/internal/types"
)

const presenceIdleTimeout = 2 * time.Minute

type PresenceStream struct {
	tracker  *presence.Tracker
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewPresenceStream(tracker *presence.Tracker, log *slog.Logger) *PresenceStream {
	return &PresenceStream{tracker: tracker, log: log}
}

type presenceMsg struct {
	PermissionGranted *bool    `json:"permissionGranted"`
	Lat               *float64 `json:"lat"`
	Lng               *float64 `json:"lng"`
}

// Serve expects {permissionGranted} first, then {lat, lng} positions. A
// message with permissionGranted=false, a closed socket or an idle timeout
// ends the session.
func (h *PresenceStream) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("presence websocket upgrade", "error", err)
		return
	}
	defer conn.Close()
	ctx := c.Request.Context()

	send := func(v any) {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		_ = conn.WriteJSON(v)
	}

	var hello presenceMsg
	_ = conn.SetReadDeadline(time.Now().Add(wsHandshakeTimeout))
	if err := conn.ReadJSON(&hello); err != nil || hello.PermissionGranted == nil {
		send(errorResponse{Success: false, Error: "permissionGranted is required"})
		return
	}
	session, err := h.tracker.Start(ctx, middleware.CallerUID(c), *hello.PermissionGranted)
	if err != nil {
		send(errorResponse{Success: false, Error: sessionError(err)})
		return
	}
	defer session.Stop(ctx)
	send(gin.H{"success": true, "driverId": session.DriverID()})

	for {
		_ = conn.SetReadDeadline(time.Now().Add(presenceIdleTimeout))
		var msg presenceMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.PermissionGranted != nil && !*msg.PermissionGranted {
			return
		}
		if msg.Lat == nil || msg.Lng == nil {
			send(errorResponse{Success: false, Error: "lat and lng are required"})
			continue
		}
		if err := session.Update(ctx, types.Point{Lat: *msg.Lat, Lng: *msg.Lng}); err != nil {
			h.log.Warn("presence update", "driver_id", session.DriverID(), "error", err)
			send(errorResponse{Success: false, Error: sessionError(err)})
		}
	}
}

func sessionError(err error) string {
	switch {
	case errors.Is(err, presence.ErrPermissionDenied),
		errors.Is(err, presence.ErrDriverNotFound),
		errors.Is(err, presence.ErrBadRequest):
		return err.Error()
	default:
		return "internal error"
	}
}
