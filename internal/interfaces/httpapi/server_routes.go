package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPipelineRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/tournaments", handler.ListTournaments)
	mux.HandleFunc("GET /v1/metrics", handler.ListMetrics)
	mux.HandleFunc("GET /v1/series", handler.ListSeries)
	mux.HandleFunc("POST /v1/metrics/recompute", handler.RecomputeMetrics)
}
