package httpapi

import (
	"net/http"

	"jobmarket-engine/internal/metrics"
)

// NewMux returns the raw mux; main() wraps it in the middleware chain.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Boards
	bh := BoardsHandler{Boards: d.Boards}
	mux.HandleFunc("/boards", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: bh.List,
	}))
	mux.HandleFunc("/boards/{name}", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: bh.Overview,
	}))
	mux.HandleFunc("/boards/{name}/rows", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: bh.Rows,
	}))
	mux.HandleFunc("/boards/{name}/values/{dim}", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: bh.Values,
	}))
	mux.HandleFunc("/boards/{name}/predict", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: bh.Predict,
	}))

	// Prediction history
	ph := PredictionsHandler{DB: d.DB}
	mux.HandleFunc("/predictions", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ph.List,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
		Hub:         d.Hub,
		OnReload:    d.OnConfigReload,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Secrets (use cfgVal, NOT a snapshot cfg)
	sh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/sources/{name}", methodMux(map[string]http.HandlerFunc{
		http.MethodPost:   sh.SetSourceToken,
		http.MethodDelete: sh.DeleteSourceToken,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub, Boards: d.Boards}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	hh := HealthHandler{Sessions: d.Sessions, Hub: d.Hub}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))
	mux.HandleFunc("/metrics", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: metrics.Handler(),
	}))

	// Dashboard
	dh := DashboardHandler{Boards: d.Boards}
	mux.HandleFunc("/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: dh.Page,
	}))

	return mux
}

// Handler wraps NewMux in the standard middleware chain.
func Handler(d Deps) http.Handler {
	return Chain(NewMux(d), RequestID, Recover, AccessLog, Cors, Sessions(d.Sessions))
}
