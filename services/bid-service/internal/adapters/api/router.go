package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/floroz/lelang/pkg/httpx"
)

// NewRouter wires the bid-service HTTP surface. metrics may be nil.
func NewRouter(bidHandler *BidHandler, watchHandler *WatchHandler, metrics http.Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(httpx.RequestID(logger))
	r.Use(httpx.Logging)
	r.Use(httpx.Recoverer)
	r.Use(httpx.CORS())

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Bidding Service is Running"))
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Get("/ws", watchHandler.Watch)

	r.Route("/bid", func(r chi.Router) {
		r.Post("/", bidHandler.SubmitBid)
		r.Get("/", bidHandler.ListBids)
		r.Get("/item/{item_id}", bidHandler.ListBidsForItem)
		r.Put("/{id}", bidHandler.CorrectBid)
		r.Delete("/{id}", bidHandler.RemoveBid)
	})

	return r
}
