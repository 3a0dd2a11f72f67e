package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/floroz/lelang/pkg/httpx"
	"github.com/floroz/lelang/services/notification-service/internal/domain/notifications"
)

type historyResponse struct {
	Status string `json:"status"`
	Data   []any  `json:"data"`
}

// NotificationHandler serves the notification history.
type NotificationHandler struct {
	service *notifications.Service
}

func NewNotificationHandler(service *notifications.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// ListNotifications handles GET /notifications. JSON payloads are embedded
// as JSON; anything else is returned as a string.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Recent(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to read notifications")
		httpx.WriteError(w, http.StatusInternalServerError, "failed to read notifications")
		return
	}

	data := make([]any, 0, len(list))
	for _, payload := range list {
		if json.Valid([]byte(payload)) {
			data = append(data, json.RawMessage(payload))
		} else {
			data = append(data, payload)
		}
	}
	httpx.WriteJSON(w, http.StatusOK, historyResponse{Status: "success", Data: data})
}
