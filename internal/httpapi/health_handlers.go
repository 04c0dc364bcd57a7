package httpapi

import (
	"net/http"

	"jobmarket-engine/internal/events"
	"jobmarket-engine/internal/session"
)

type HealthHandler struct {
	Sessions *session.Manager
	Hub      *events.Hub
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{"ok": true}
	if h.Sessions != nil {
		out["sessions"] = h.Sessions.Len()
	}
	if h.Hub != nil {
		out["subscribers"] = h.Hub.Subscribers()
	}
	writeJSON(w, out)
}
