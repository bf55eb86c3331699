package main

import (
	"net/http"
)

func setupRouter(a *app) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/", a.proxy)
	mux.HandleFunc("GET /lb/stats", a.admin.Stats)
	mux.HandleFunc("POST /lb/algorithm", a.admin.SetAlgorithm)
	mux.Handle("GET /metrics", a.collector.Handler())
	if a.hub != nil {
		mux.Handle("GET /lb/ws", a.hub)
	}

	return mux
}
