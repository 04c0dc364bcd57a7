package httpapi

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"jobmarket-engine/internal/board"
	"jobmarket-engine/internal/events"
)

const keepAliveEvery = 25 * time.Second

// EventsHandler streams hub events as SSE. ?board= narrows the stream to one
// board and ?mine=1 to the caller's session; broadcasts always pass.
type EventsHandler struct {
	Hub    *events.Hub
	Boards *board.Service

	// KeepAlive overrides keepAliveEvery; tests shorten it.
	KeepAlive time.Duration
}

func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "Streaming unsupported")
		return
	}

	var f events.Filter
	q := r.URL.Query()
	if name := q.Get("board"); name != "" {
		if h.Boards != nil {
			if _, err := h.Boards.Board(name); err != nil {
				writeServiceError(w, r, err)
				return
			}
		}
		f.Board = name
	}
	if q.Get("mine") == "1" {
		sess := SessionFrom(r.Context())
		if sess == nil {
			WriteError(w, r, http.StatusBadRequest, "no_session", "mine=1 needs a session")
			return
		}
		f.Session = sess.ID
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := h.Hub.Subscribe(f)
	defer h.Hub.Unsubscribe(sub)

	if !writeEvent(w, events.HelloEvent(RequestIDFrom(r.Context()), f)) {
		return
	}
	flusher.Flush()

	every := h.KeepAlive
	if every <= 0 {
		every = keepAliveEvery
	}
	tick := time.NewTicker(every)
	defer tick.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			if !writeEvent(w, e) {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent reports whether the client is still there. Unencodable payloads
// are logged and skipped.
func writeEvent(w http.ResponseWriter, e events.Event) bool {
	data, err := e.Encode()
	if err != nil {
		log.Printf("[events] encode %s: %v", e.Type, err)
		return true
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
	return err == nil
}
