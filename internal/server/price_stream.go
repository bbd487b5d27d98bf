package server

import (
	"net/http"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/papertrade/internal/events"
)

// PriceStreamHandler streams price update events over a websocket.
// Each connection gets its own bus subscription; a client that stops
// reading is disconnected rather than allowed to block the bus.
type PriceStreamHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewPriceStreamHandler creates a price stream handler
func NewPriceStreamHandler(bus *events.Bus, log zerolog.Logger) *PriceStreamHandler {
	return &PriceStreamHandler{
		bus: bus,
		log: log.With().Str("handler", "price_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/stream/prices
func (h *PriceStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ch, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	h.log.Debug().Msg("Price stream client connected")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if event.Type != events.PriceUpdated {
				continue
			}
			if err := wsjson.Write(ctx, conn, event); err != nil {
				h.log.Debug().Err(err).Msg("Price stream client disconnected")
				return
			}
		}
	}
}
