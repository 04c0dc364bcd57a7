package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"jobmarket-engine/internal/board"
	"jobmarket-engine/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"title": func(s string) string { return strings.ReplaceAll(s, "_", " ") },
}).ParseFS(templateFS, "templates/dashboard.html"))

type DashboardHandler struct {
	Boards *board.Service
}

type checkValue struct {
	Value   string
	Checked bool
}

type dimFilter struct {
	Name   string
	Values []checkValue
}

type rangeFilter struct {
	Name   string
	Lo, Hi string
}

type predictField struct {
	Name  string
	Label string
	Value string
	Min   string
	Max   string
}

type param struct {
	Name, Value string
}

type dashboardPage struct {
	Boards     []board.Info
	Current    board.Info
	Generated  bool
	Overview   board.Overview
	Dimensions []dimFilter
	Ranges     []rangeFilter
	Predict    []predictField
	Carry      []param
	Result     *board.PredictResult
	Error      string
	ChartsJSON template.JS
}

// Page renders one board as HTML. Filters arrive as f.<dim> and r.<measure>
// query params; x.<feature> params request a prediction.
func (h DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, r, http.StatusNotFound, "not_found", "not found")
		return
	}
	boards := h.Boards.List()
	if len(boards) == 0 {
		WriteError(w, r, http.StatusNotFound, "unknown_board", "no boards configured")
		return
	}
	v := r.URL.Query()
	name := v.Get("board")
	if name == "" {
		name = boards[0].Name
	}

	page := dashboardPage{Boards: boards}
	status := http.StatusOK
	info, err := h.Boards.Board(name)
	if err != nil {
		status, _ = errorStatus(err)
		page.Error = err.Error()
		h.render(w, status, page)
		return
	}
	page.Current = info
	page.Generated = info.Source == config.SourceGenerator

	q, err := parseQuery(v, h.Boards.DefaultQuery())
	if err != nil {
		page.Error = err.Error()
		h.render(w, http.StatusBadRequest, page)
		return
	}
	ctx, sess := r.Context(), SessionFrom(r.Context())
	ov, err := h.Boards.Overview(ctx, sess, name, q)
	if err != nil {
		status, _ = errorStatus(err)
		page.Error = err.Error()
		h.render(w, status, page)
		return
	}
	page.Overview = ov
	page.Dimensions = dimFilters(info, ov, q)
	page.Ranges = rangeFilters(info, v)
	page.Predict = predictFields(ov, v)
	page.Carry = carried(v)
	if b, err := json.Marshal(ov.Charts); err == nil {
		page.ChartsJSON = template.JS(b)
	}

	if in, ok, err := predictInputs(v); err != nil {
		page.Error = err.Error()
		status = http.StatusBadRequest
	} else if ok {
		res, err := h.Boards.Predict(ctx, sess, name, q, in)
		if err != nil {
			status, _ = errorStatus(err)
			page.Error = err.Error()
		} else {
			page.Result = &res
		}
	}
	h.render(w, status, page)
}

func (h DashboardHandler) render(w http.ResponseWriter, status int, page dashboardPage) {
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, page); err != nil {
		log.Printf("level=error msg=\"render dashboard\" err=%v", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// dimFilters lists every value of each dimension, checked when the query
// leaves the dimension unrestricted or names the value.
func dimFilters(info board.Info, ov board.Overview, q board.Query) []dimFilter {
	out := make([]dimFilter, 0, len(info.Dimensions))
	for _, d := range info.Dimensions {
		allowed, restricted := q.Filters.Dimensions[d]
		df := dimFilter{Name: d}
		for _, val := range ov.Unique[d] {
			checked := !restricted
			for _, a := range allowed {
				if a == val {
					checked = true
				}
			}
			df.Values = append(df.Values, checkValue{Value: val, Checked: checked})
		}
		out = append(out, df)
	}
	return out
}

func rangeFilters(info board.Info, v url.Values) []rangeFilter {
	out := make([]rangeFilter, 0, len(info.Measures))
	for _, m := range info.Measures {
		lo, hi, _ := strings.Cut(v.Get("r."+m), ":")
		out = append(out, rangeFilter{Name: m, Lo: lo, Hi: hi})
	}
	return out
}

func predictFields(ov board.Overview, v url.Values) []predictField {
	out := make([]predictField, 0, len(ov.Inputs))
	for _, in := range ov.Inputs {
		val := v.Get("x." + in.Name)
		if val == "" {
			val = in.Default.Format(1)
		}
		out = append(out, predictField{Name: in.Name, Label: in.Label, Value: val, Min: in.Min.Format(2), Max: in.Max.Format(2)})
	}
	return out
}

// carried returns the selection params the prediction form resubmits.
func carried(v url.Values) []param {
	var out []param
	for key, vals := range v {
		if key == "board" || strings.HasPrefix(key, "x.") {
			continue
		}
		for _, val := range vals {
			out = append(out, param{Name: key, Value: val})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// predictInputs collects x.<feature> params. ok is false when none are set.
func predictInputs(v url.Values) (map[string]float64, bool, error) {
	in := map[string]float64{}
	for key, vals := range v {
		feature, found := strings.CutPrefix(key, "x.")
		if !found {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(vals[len(vals)-1]), 64)
		if err != nil {
			return nil, false, fmt.Errorf("%s: %q is not a number", feature, vals[len(vals)-1])
		}
		in[feature] = f
	}
	return in, len(in) > 0, nil
}
