package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/floroz/lelang/pkg/auth"
	"github.com/floroz/lelang/pkg/httpx"
	"github.com/floroz/lelang/services/user-service/internal/domain/users"
)

type userResponse struct {
	Message string      `json:"message"`
	User    *users.User `json:"user"`
}

type loginResponse struct {
	Message      string      `json:"message"`
	UserID       int64       `json:"user_id"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refresh_token"`
	User         *users.User `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

type fieldErrorResponse struct {
	Error  string            `json:"error"`
	Fields httpx.FieldErrors `json:"fields"`
}

// UserHandler serves the account and session endpoints.
type UserHandler struct {
	service *users.Service
}

func NewUserHandler(service *users.Service) *UserHandler {
	return &UserHandler{service: service}
}

// Register handles POST /register.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var cmd users.RegisterCommand
	if !decodeAndValidate(w, r, &cmd) {
		return
	}

	user, err := h.service.Register(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err, "failed to register user")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, userResponse{Message: "User registered", User: user})
}

// Login handles POST /login.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var cmd users.LoginCommand
	if !decodeAndValidate(w, r, &cmd) {
		return
	}
	cmd.UserAgent = r.UserAgent()
	cmd.IPAddress = r.RemoteAddr

	session, err := h.service.Login(r.Context(), cmd)
	if err != nil {
		h.writeError(w, r, err, "failed to log in")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Message:      "Login successful",
		UserID:       session.User.ID,
		Token:        session.Tokens.AccessToken,
		RefreshToken: session.Tokens.RefreshToken,
		User:         session.User,
	})
}

// Refresh handles POST /refresh.
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken, r.UserAgent(), r.RemoteAddr)
	if err != nil {
		h.writeError(w, r, err, "failed to refresh token")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse{Token: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// Logout handles POST /logout.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		h.writeError(w, r, err, "failed to log out")
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "Logged out")
}

// ListUsers handles GET /users.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, r, err, "failed to list users")
		return
	}
	if list == nil {
		list = []*users.User{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// GetUser handles GET /users/{id}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(r)
	if !ok {
		httpx.WriteMessage(w, http.StatusNotFound, users.ErrUserNotFound.Error())
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "failed to get user")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

// UpdateUser handles PUT /users/{id}. Requires a bearer token for that user.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := auth.GetUserID(r.Context())
	if !ok {
		httpx.WriteMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := userID(r)
	if !ok {
		httpx.WriteMessage(w, http.StatusNotFound, users.ErrUserNotFound.Error())
		return
	}

	var cmd users.UpdateCommand
	if !decodeAndValidate(w, r, &cmd) {
		return
	}

	user, err := h.service.UpdateUser(r.Context(), actorID, id, cmd)
	if err != nil {
		h.writeError(w, r, err, "failed to update user")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userResponse{Message: "User updated", User: user})
}

// DeleteUser handles DELETE /users/{id}. Requires a bearer token for that user.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := auth.GetUserID(r.Context())
	if !ok {
		httpx.WriteMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := userID(r)
	if !ok {
		httpx.WriteMessage(w, http.StatusNotFound, users.ErrUserNotFound.Error())
		return
	}

	if err := h.service.DeleteUser(r.Context(), actorID, id); err != nil {
		h.writeError(w, r, err, "failed to delete user")
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "User deleted")
}

func (h *UserHandler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		httpx.WriteMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, users.ErrUserAlreadyExists):
		httpx.WriteMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, users.ErrInvalidCredentials), errors.Is(err, users.ErrInvalidToken):
		httpx.WriteMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, users.ErrForbidden):
		httpx.WriteMessage(w, http.StatusForbidden, err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(fallback)
		httpx.WriteError(w, http.StatusInternalServerError, fallback)
	}
}

// decodeAndValidate writes the 400 response itself and reports whether the
// handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := httpx.DecodeJSON(r, dest); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := httpx.Validate(dest); err != nil {
		var fields httpx.FieldErrors
		if errors.As(err, &fields) {
			httpx.WriteJSON(w, http.StatusBadRequest, fieldErrorResponse{Error: "validation failed", Fields: fields})
		} else {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
		}
		return false
	}
	return true
}

func userID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}
