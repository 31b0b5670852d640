// README: Live ETA websocket: streams re-computed quotes until the client leaves.
package handlers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"rideline/internal/modules/quote"
)

const (
	wsHandshakeTimeout = 30 * time.Second
	wsWriteTimeout     = 10 * time.Second
)

type ETAStream struct {
	engine          *quote.Engine
	defaultInterval time.Duration
	minInterval     time.Duration
	upgrader        websocket.Upgrader
	log             *slog.Logger
}

func NewETAStream(engine *quote.Engine, defaultInterval, minInterval time.Duration, log *slog.Logger) *ETAStream {
	return &ETAStream{
		engine:          engine,
		defaultInterval: defaultInterval,
		minInterval:     minInterval,
		log:             log,
	}
}

type etaReq struct {
	Origin          *quote.Location `json:"origin"`
	Destination     *quote.Location `json:"destination"`
	IntervalSeconds int             `json:"intervalSeconds"`
}

func (r etaReq) valid() bool {
	return r.Origin != nil && r.Destination != nil &&
		r.Origin.Validate() == nil && r.Destination.Validate() == nil
}

// Serve expects {origin, destination, intervalSeconds} first. Later messages
// of the same shape replace the route and trigger an immediate re-quote.
func (h *ETAStream) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("eta websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(v)
	}

	var first etaReq
	_ = conn.SetReadDeadline(time.Now().Add(wsHandshakeTimeout))
	if err := conn.ReadJSON(&first); err != nil || !first.valid() {
		_ = send(errorResponse{Success: false, Error: "origin and destination are required"})
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	interval := h.defaultInterval
	if first.IntervalSeconds > 0 {
		interval = time.Duration(first.IntervalSeconds) * time.Second
	}
	if interval < h.minInterval {
		interval = h.minInterval
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	var routeMu sync.Mutex
	origin, destination := *first.Origin, *first.Destination
	route := func() (quote.Location, quote.Location) {
		routeMu.Lock()
		defer routeMu.Unlock()
		return origin, destination
	}

	w := quote.NewWatcher(ctx, h.engine, func(q quote.Quote, err error) {
		_, body := quoteBody(q, err)
		if send(body) != nil {
			cancel()
		}
	})
	defer w.Stop()

	go func() {
		defer cancel()
		for {
			var next etaReq
			if err := conn.ReadJSON(&next); err != nil {
				return
			}
			if !next.valid() {
				_ = send(errorResponse{Success: false, Error: "origin and destination are required"})
				continue
			}
			routeMu.Lock()
			origin, destination = *next.Origin, *next.Destination
			routeMu.Unlock()
			w.Request(route())
		}
	}()

	w.Run(ctx, interval, route)
}
