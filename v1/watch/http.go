package watch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// subscribe resolves the watched subject from the request: "key" selects a
// single slot, "prefix" a whole lock family.
func subscribe(ctx context.Context, bus Bus, r *http.Request) (string, chan []byte, error) {
	if key := r.URL.Query().Get("key"); key != "" {
		ch, err := bus.Watch(ctx, key)
		return key, ch, err
	}
	if prefix := r.URL.Query().Get("prefix"); prefix != "" {
		ch, err := bus.WatchPrefix(ctx, prefix)
		return prefix, ch, err
	}
	return "", nil, fmt.Errorf("missing key or prefix")
}

// SSEHandler streams record changes over Server-Sent Events. The subject is
// taken from the "key" or "prefix" query parameter.
func SSEHandler(bus Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithCancel(r.Context())
		subject, ch, err := subscribe(ctx, bus, r)
		if err != nil {
			cancel()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer func() {
			cancel()
			_ = bus.Unwatch(context.Background(), subject, ch)
		}()
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "stream unsupported", http.StatusInternalServerError)
			return
		}
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
					return
				}
				flusher.Flush()
			case <-ctx.Done():
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{}

// WebSocketHandler streams record changes over WebSocket. The subject is
// taken from the "key" or "prefix" query parameter.
func WebSocketHandler(bus Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithCancel(r.Context())
		subject, ch, err := subscribe(ctx, bus, r)
		if err != nil {
			cancel()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer func() {
			cancel()
			_ = bus.Unwatch(context.Background(), subject, ch)
		}()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}
