package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/floroz/lelang/pkg/httpx"
)

func NewRouter(handler *NotificationHandler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(httpx.RequestID(logger))
	r.Use(httpx.Logging)
	r.Use(httpx.Recoverer)
	r.Use(httpx.CORS())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/notifications", handler.ListNotifications)

	return r
}
