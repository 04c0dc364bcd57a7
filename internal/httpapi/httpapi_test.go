package httpapi

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmarket-engine/internal/board"
	"jobmarket-engine/internal/config"
	"jobmarket-engine/internal/events"
	"jobmarket-engine/internal/model"
	"jobmarket-engine/internal/session"
	"jobmarket-engine/internal/store"
)

type testServer struct {
	h       http.Handler
	hub     *events.Hub
	cfgVal  *atomic.Value
	cfgPath string
	cookie  *http.Cookie

	reloaded []config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Dataset.DefaultRows = 200
	cfgPath := filepath.Join(dir, "config.yml")
	require.NoError(t, config.SaveAtomic(cfgPath, cfg))

	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	db, err := store.Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	hub := events.NewHub()
	sessions := session.NewManager(4)
	boards := board.NewService(board.Deps{
		Config: func() config.Config { return cfgVal.Load().(config.Config) },
		DB:     db.Pool,
		Hub:    hub,
	})
	ts := &testServer{hub: hub, cfgVal: &cfgVal, cfgPath: cfgPath}
	ts.h = Handler(Deps{
		DB:             db.Pool,
		Hub:            hub,
		Boards:         boards,
		Sessions:       sessions,
		CfgVal:         &cfgVal,
		UserCfgPath:    cfgPath,
		LoadCfg:        func() (config.Config, error) { return config.Load(cfgPath) },
		OnConfigReload: func(c config.Config) { ts.reloaded = append(ts.reloaded, c) },
	})
	return ts
}

// do sends a request, replaying the session cookie from earlier responses.
func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			s.cookie = c
		}
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestParseQuery(t *testing.T) {
	def := board.Query{Rows: 100, Seed: 7}

	q, err := parseQuery(url.Values{}, def)
	require.NoError(t, err)
	assert.Equal(t, def, q)

	q, err = parseQuery(url.Values{
		"n":         {"50"},
		"seed":      {"3"},
		"f.role":    {"", "Data Scientist", "ML Engineer"},
		"f.country": {""},
		"r.salary":  {"100:"},
		"r.exp":     {":4.5"},
		"unrelated": {"x"},
	}, def)
	require.NoError(t, err)
	assert.Equal(t, 50, q.Rows)
	assert.Equal(t, int64(3), q.Seed)
	assert.Equal(t, []string{"Data Scientist", "ML Engineer"}, q.Filters.Dimensions["role"])
	assert.Empty(t, q.Filters.Dimensions["country"])
	assert.Contains(t, q.Filters.Dimensions, "country")
	assert.Equal(t, 100.0, q.Filters.Ranges["salary"].Min)
	assert.True(t, math.IsInf(q.Filters.Ranges["salary"].Max, 1))
	assert.True(t, math.IsInf(q.Filters.Ranges["exp"].Min, -1))
	assert.Equal(t, 4.5, q.Filters.Ranges["exp"].Max)

	for _, bad := range []url.Values{
		{"n": {"ten"}},
		{"seed": {"1.5"}},
		{"r.salary": {"100"}},
		{"r.salary": {"a:b"}},
		{"r.salary": {"9:1"}},
		{"r.salary": {"NaN:"}},
		{"r.salary": {":nan"}},
		{"r.salary": {"inf:"}},
		{"r.salary": {":-Inf"}},
	} {
		_, err := parseQuery(bad, def)
		assert.Error(t, err, bad.Encode())
	}
}

func TestWriteJSON_EncodingFailureIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, map[string]float64{"x": math.NaN()})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decode[APIError](t, rec).Error.Code)
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("train jobs: %w", model.ErrSingular), http.StatusUnprocessableEntity, "singular_training"},
		{fmt.Errorf("train jobs: %w", model.ErrEmptyTraining), http.StatusUnprocessableEntity, "empty_training"},
		{fmt.Errorf("%w: %q", board.ErrUnknownBoard, "x"), http.StatusNotFound, "unknown_board"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, code := errorStatus(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestBoardsListAndOverview(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/boards", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Boards []board.Info `json:"boards"`
	}](t, rec)
	require.Len(t, list.Boards, 4)
	assert.Equal(t, "jobs", list.Boards[0].Name)
	require.NotNil(t, s.cookie, "first request issues a session cookie")
	assert.True(t, s.cookie.HttpOnly)

	rec = s.do(t, http.MethodGet, "/boards/jobs?n=120&seed=9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ov := decode[board.Overview](t, rec)
	assert.Equal(t, 120, ov.Total)
	assert.Equal(t, 120, ov.Selected)
	assert.Equal(t, int64(9), ov.Seed)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(t, http.MethodGet, "/boards/jobs?r.experience=:-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ov = decode[board.Overview](t, rec)
	assert.Equal(t, 0, ov.Selected)
	assert.True(t, math.IsInf(ov.Filters.Ranges["experience"].Min, -1))

	rec = s.do(t, http.MethodGet, "/boards/jobs?f.role=", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ov = decode[board.Overview](t, rec)
	assert.Equal(t, 0, ov.Selected)
	for _, tile := range ov.Tiles[1:] {
		assert.False(t, tile.Defined)
		assert.Equal(t, "no data", tile.Value)
	}
}

func TestBoardErrors(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		target string
		status int
		code   string
	}{
		{"/boards/nope", http.StatusNotFound, "unknown_board"},
		{"/boards/jobs?f.planet=mars", http.StatusBadRequest, "unknown_column"},
		{"/boards/jobs?n=0", http.StatusBadRequest, "invalid_size"},
		{"/boards/jobs?n=abc", http.StatusBadRequest, "invalid_query"},
		{"/boards/jobs?r.salary=NaN:", http.StatusBadRequest, "invalid_query"},
		{"/boards/jobs/values/planet", http.StatusBadRequest, "unknown_column"},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tc.target, nil)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			e := decode[APIError](t, rec)
			assert.Equal(t, tc.code, e.Error.Code)
			assert.NotEmpty(t, e.Error.RequestID)
		})
	}

	rec := s.do(t, http.MethodDelete, "/boards/jobs", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRowsAndValues(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/boards/jobs/rows?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tbl struct {
		Columns []string   `json:"columns"`
		Rows    [][]string `json:"rows"`
		Total   int        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tbl))
	assert.Len(t, tbl.Rows, 5)
	assert.Equal(t, 200, tbl.Total)
	assert.Contains(t, tbl.Columns, "salary")

	rec = s.do(t, http.MethodGet, "/boards/jobs/rows?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/boards/jobs/values/work_mode", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	vals := decode[struct {
		Values []string `json:"values"`
	}](t, rec)
	assert.NotEmpty(t, vals.Values)
	assert.IsIncreasing(t, vals.Values)
}

func TestPredictAndHistory(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"inputs": map[string]float64{"experience": 5, "skill_score": 70}}

	rec := s.do(t, http.MethodPost, "/boards/jobs/predict", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decode[board.PredictResult](t, rec)
	assert.True(t, first.Trained)
	assert.NotEmpty(t, first.Text)
	assert.NotZero(t, first.HistoryID)

	rec = s.do(t, http.MethodPost, "/boards/jobs/predict?f.country=", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[board.PredictResult](t, rec)
	assert.False(t, second.Trained, "filters do not retrain a board trained on all rows")
	assert.Equal(t, first.Text, second.Text)

	rec = s.do(t, http.MethodPost, "/boards/jobs/predict", map[string]any{"inputs": map[string]float64{"experience": 5}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", decode[APIError](t, rec).Error.Code)

	rec = s.do(t, http.MethodPost, "/boards/jobs/predict", map[string]any{"bogus": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/predictions?board=jobs&mine=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decode[struct {
		Predictions []store.Prediction `json:"predictions"`
	}](t, rec)
	require.Len(t, hist.Predictions, 2)
	assert.Equal(t, second.HistoryID, hist.Predictions[0].ID)

	rec = s.do(t, http.MethodGet, "/predictions?window=month", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfigPut(t *testing.T) {
	s := newTestServer(t)

	cfg := s.cfgVal.Load().(config.Config)
	cfg.Dataset.DefaultRows = 150
	rec := s.do(t, http.MethodPut, "/config", cfg)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 150, s.cfgVal.Load().(config.Config).Dataset.DefaultRows)
	require.Len(t, s.reloaded, 1)
	assert.Equal(t, 150, s.reloaded[0].Dataset.DefaultRows)

	rec = s.do(t, http.MethodGet, "/boards/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 150, decode[board.Overview](t, rec).Total)

	cfg.App.Port = 0
	rec = s.do(t, http.MethodPut, "/config", cfg)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	vr := decode[config.Validation](t, rec)
	assert.Contains(t, vr.Errors, "app.port must be 1..65535")
	assert.Equal(t, 150, s.cfgVal.Load().(config.Config).Dataset.DefaultRows)

	cfg.App.Port = 38471
	cfg.Boards[0].Model.Kind = "forest_classifier"
	rec = s.do(t, http.MethodPut, "/config", cfg)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	vr = decode[config.Validation](t, rec)
	assert.Contains(t, strings.Join(vr.Errors, "\n"), `target "salary" must be a dimension`)

	rec = s.do(t, http.MethodPut, "/config", map[string]any{"nonsense": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, s.reloaded, 1, "rejected configs are not pushed to components")
}

func TestSecretsRequireTokenAccount(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/secrets/sources/iris", map[string]string{"token": "t"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/secrets/sources/unknown", map[string]string{"token": "t"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Job Market Salaries")

	rec = s.do(t, http.MethodGet, "/?board=jobs&f.role=", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "0 of 200 rows selected")
	assert.Contains(t, rec.Body.String(), "no data")

	rec = s.do(t, http.MethodGet, "/?board=jobs&x.experience=5&x.skill_score=70", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="result"`)

	rec = s.do(t, http.MethodGet, "/?board=jobs&x.experience=lots", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "is not a number"))

	rec = s.do(t, http.MethodGet, "/?board=missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	h := decode[map[string]any](t, rec)
	assert.Equal(t, true, h["ok"])
	assert.Equal(t, float64(1), h["sessions"])

	rec = s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# TYPE")
}

// readEvent returns the next SSE event, skipping keepalive comments.
func readEvent(t *testing.T, br *bufio.Reader) (typ string, data map[string]any) {
	t.Helper()
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			typ = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &data))
		case line == "" && typ != "":
			return typ, data
		}
	}
}

func openStream(t *testing.T, srv *httptest.Server, path string, cookie *http.Cookie) *bufio.Reader {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return bufio.NewReader(resp.Body)
}

func TestEvents_FilteredStream(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil).Code)
	require.NotNil(t, s.cookie)

	srv := httptest.NewServer(s.h)
	t.Cleanup(srv.Close) // after the stream body is closed
	br := openStream(t, srv, "/events?board=jobs&mine=1", s.cookie)

	typ, data := readEvent(t, br)
	require.Equal(t, events.TypeHello, typ)
	assert.Equal(t, "jobs", data["board"])
	hello := data["data"].(map[string]any)
	assert.Equal(t, true, hello["mine"])

	// Neither of these reaches the stream.
	s.hub.Emit(events.Scope{Board: "iris"}, events.TypeModelTrained, nil)
	s.hub.Emit(events.Scope{Board: "jobs", Session: "someone-else"}, events.TypeModelTrained, nil)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/boards/jobs", nil).Code)
	typ, data = readEvent(t, br)
	assert.Equal(t, events.TypeDatasetGenerated, typ)
	assert.Equal(t, "jobs", data["board"])
	assert.NotContains(t, data, "session")

	s.hub.Emit(events.Scope{}, events.TypeHistoryCleaned, map[string]any{"deleted": 2})
	typ, _ = readEvent(t, br)
	assert.Equal(t, events.TypeHistoryCleaned, typ, "broadcasts pass every filter")
}

func TestEvents_BadParams(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/events?board=nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, s.hub.Subscribers())
}

func TestEvents_KeepAlive(t *testing.T) {
	hub := events.NewHub()
	h := EventsHandler{Hub: hub, KeepAlive: 10 * time.Millisecond}
	srv := httptest.NewServer(http.HandlerFunc(h.ServeSSE))
	t.Cleanup(srv.Close)

	br := openStream(t, srv, "/events", nil)
	typ, data := readEvent(t, br)
	require.Equal(t, events.TypeHello, typ)
	assert.NotContains(t, data, "board")

	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		if line == ": keepalive\n" {
			break
		}
	}
	assert.Equal(t, 1, hub.Subscribers())
}
