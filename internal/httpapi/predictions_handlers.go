package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"

	"jobmarket-engine/internal/store"
)

type PredictionsHandler struct {
	DB *sql.DB
}

// List serves prediction history. mine=1 restricts it to the caller's session.
func (h PredictionsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.DB == nil {
		WriteError(w, r, http.StatusServiceUnavailable, "history_disabled", "prediction history is not enabled")
		return
	}
	v := r.URL.Query()
	opts := store.ListPredictionsOpts{Board: v.Get("board"), Window: v.Get("window")}
	switch opts.Window {
	case "", "all", "24h", "7d":
	default:
		WriteError(w, r, http.StatusBadRequest, "invalid_query", "window must be 24h, 7d or all")
		return
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			WriteError(w, r, http.StatusBadRequest, "invalid_query", "limit must be an integer")
			return
		}
		opts.Limit = n
	}
	if v.Get("mine") == "1" {
		if s := SessionFrom(r.Context()); s != nil {
			opts.Session = s.ID
		}
	}

	items, err := store.ListPredictions(r.Context(), h.DB, opts)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []store.Prediction{}
	}
	writeJSON(w, map[string]any{"predictions": items})
}
