package httpapi

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"jobmarket-engine/internal/board"
	"jobmarket-engine/internal/frame"
)

func writeJSON(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusOK, v)
}

func methodMux(m map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := m[r.Method]; ok {
			h(w, r)
			return
		}
		WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

// parseQuery reads n, seed, f.<dim> and r.<measure> over def.
//
// f.<dim> may repeat; its values are OR-ed. A lone empty f.<dim>= keeps
// the dimension with no allowed values, which selects nothing.
// r.<measure>=lo:hi is inclusive and either bound may be left open.
func parseQuery(v url.Values, def board.Query) (board.Query, error) {
	q := def
	if s := v.Get("n"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, fmt.Errorf("n: %q is not an integer", s)
		}
		q.Rows = n
	}
	if s := v.Get("seed"); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return q, fmt.Errorf("seed: %q is not an integer", s)
		}
		q.Seed = seed
	}

	for key, vals := range v {
		switch {
		case strings.HasPrefix(key, "f."):
			dim := strings.TrimPrefix(key, "f.")
			if q.Filters.Dimensions == nil {
				q.Filters.Dimensions = map[string][]string{}
			}
			allowed := []string{}
			for _, val := range vals {
				if val = strings.TrimSpace(val); val != "" {
					allowed = append(allowed, val)
				}
			}
			q.Filters.Dimensions[dim] = allowed
		case strings.HasPrefix(key, "r."):
			m := strings.TrimPrefix(key, "r.")
			rg, err := parseRange(vals[len(vals)-1])
			if err != nil {
				return q, fmt.Errorf("%s: %w", key, err)
			}
			if q.Filters.Ranges == nil {
				q.Filters.Ranges = map[string]frame.Range{}
			}
			q.Filters.Ranges[m] = rg
		}
	}
	return q, nil
}

func parseRange(s string) (frame.Range, error) {
	lo, hi, ok := strings.Cut(s, ":")
	if !ok {
		return frame.Range{}, fmt.Errorf("%q is not lo:hi", s)
	}
	rg := frame.Range{Min: math.Inf(-1), Max: math.Inf(1)}
	var err error
	if lo = strings.TrimSpace(lo); lo != "" {
		if rg.Min, err = strconv.ParseFloat(lo, 64); err != nil {
			return frame.Range{}, fmt.Errorf("%q is not a number", lo)
		}
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		if rg.Max, err = strconv.ParseFloat(hi, 64); err != nil {
			return frame.Range{}, fmt.Errorf("%q is not a number", hi)
		}
	}
	if math.IsNaN(rg.Min) || math.IsNaN(rg.Max) || math.IsInf(rg.Min, 1) || math.IsInf(rg.Max, -1) {
		return frame.Range{}, fmt.Errorf("%q: bounds must be finite; leave a side empty for no limit", s)
	}
	if rg.Min > rg.Max {
		return frame.Range{}, fmt.Errorf("%q: lower bound above upper", s)
	}
	return rg, nil
}
