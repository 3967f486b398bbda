package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)
	r.Post("/api/analyze", app.AnalyzeHandler)
	r.Get("/api/runs", app.RunListHandler)
	r.Get("/api/runs/{id}", app.RunHandler)

	return r
}
