package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/floroz/lelang/pkg/auth"
	"github.com/floroz/lelang/pkg/httpx"
)

// NewRouter wires the user-service HTTP surface. Account changes require a
// bearer token verified by signer.
func NewRouter(userHandler *UserHandler, signer *auth.Signer, publicKeyPEM []byte, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httpx.RequestID(logger))
	r.Use(httpx.Logging)
	r.Use(httpx.Recoverer)
	r.Use(httpx.CORS())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Other services verify access tokens with this key.
	r.Get("/.well-known/public-key", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write(publicKeyPEM)
	})

	r.Post("/register", userHandler.Register)
	r.Post("/login", userHandler.Login)
	r.Post("/refresh", userHandler.Refresh)
	r.Post("/logout", userHandler.Logout)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", userHandler.ListUsers)
		r.Get("/{id}", userHandler.GetUser)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireBearer(signer))
			r.Put("/{id}", userHandler.UpdateUser)
			r.Delete("/{id}", userHandler.DeleteUser)
		})
	})

	return r
}
