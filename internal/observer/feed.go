// Package observer bridges the broadcast topic to dashboard websocket
// connections. The feed is display-only: observers never mutate hub state,
// and a client that connects after a publish does not receive it.
package observer

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aaronmeis/mock-agent-supplychain/internal/bus"
	"github.com/aaronmeis/mock-agent-supplychain/internal/metrics"
)

const writeTimeout = 5 * time.Second

// Feed upgrades observer connections and forwards flow events to them.
type Feed struct {
	bus      bus.Bus
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewFeed creates an observer feed over the given bus.
func NewFeed(channelBus bus.Bus, logger zerolog.Logger) *Feed {
	return &Feed{
		bus:    channelBus,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dashboards connect from anywhere, same as the HTTP API.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and streams broadcast events until the
// client goes away.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn().Err(err).Msg("observer upgrade failed")
		return
	}
	defer conn.Close()

	sub, err := f.bus.Subscribe(r.Context(), bus.BroadcastTopic)
	if err != nil {
		f.logger.Error().Err(err).Msg("observer subscribe failed")
		return
	}
	defer sub.Unsubscribe()

	metrics.ObserverConnections.Inc()
	defer metrics.ObserverConnections.Dec()

	f.logger.Info().Str("subscription", sub.ID()).Str("remote_addr", r.RemoteAddr).Msg("observer connected")

	// Drain reads so close frames are processed; observers never send data.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			f.logger.Info().Str("subscription", sub.ID()).Msg("observer disconnected")
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, event); err != nil {
				f.logger.Warn().Err(err).Str("subscription", sub.ID()).Msg("observer write failed")
				return
			}
		}
	}
}
