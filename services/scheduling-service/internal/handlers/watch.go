package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"salonbook/services/scheduling-service/internal/realtime"
)

// WatchHandler pushes schedule invalidation events for one date over a
// websocket so open booking views can re-fetch instead of polling.
type WatchHandler struct {
	feed   realtime.Feed
	logger *slog.Logger
	upg    websocket.Upgrader
}

func NewWatchHandler(feed realtime.Feed, logger *slog.Logger) *WatchHandler {
	return &WatchHandler{
		feed:   feed,
		logger: logger,
		upg: websocket.Upgrader{
			// The mobile client is not a browser; origin checks add nothing.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WatchHandler) Watch(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		http.Error(w, "date required", http.StatusBadRequest)
		return
	}

	conn, err := h.upg.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	msgs := make(chan []byte, 8)
	stop, err := h.feed.Subscribe(r.Context(), realtime.ScheduleChannel(date), func(payload []byte) {
		// Drop rather than block: a missed message only delays a
		// re-fetch until the next change.
		select {
		case msgs <- payload:
		default:
		}
	})
	if err != nil {
		h.logger.Error("schedule feed subscribe failed", "date", date, "err", err)
		return
	}
	defer stop()

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
			return
		case <-r.Context().Done():
			return
		case payload := <-msgs:
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
