package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"jobmarket-engine/internal/board"
)

type BoardsHandler struct {
	Boards *board.Service
}

type predictReq struct {
	Inputs map[string]float64 `json:"inputs"`
}

func (h BoardsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"boards": h.Boards.List()})
}

// query parses the request's selection over the configured defaults.
func (h BoardsHandler) query(w http.ResponseWriter, r *http.Request) (board.Query, bool) {
	q, err := parseQuery(r.URL.Query(), h.Boards.DefaultQuery())
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_query", err.Error())
		return q, false
	}
	return q, true
}

func (h BoardsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	ov, err := h.Boards.Overview(r.Context(), SessionFrom(r.Context()), r.PathValue("name"), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, ov)
}

func (h BoardsHandler) Rows(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			WriteError(w, r, http.StatusBadRequest, "invalid_query", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	t, err := h.Boards.Rows(r.Context(), SessionFrom(r.Context()), r.PathValue("name"), q, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, t)
}

func (h BoardsHandler) Values(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	vals, err := h.Boards.Values(r.Context(), SessionFrom(r.Context()), r.PathValue("name"), q, r.PathValue("dim"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"dimension": r.PathValue("dim"), "values": vals})
}

func (h BoardsHandler) Predict(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	var req predictReq
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON: "+err.Error())
		return
	}
	res, err := h.Boards.Predict(r.Context(), SessionFrom(r.Context()), r.PathValue("name"), q, req.Inputs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}
