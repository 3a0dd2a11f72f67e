package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/floroz/lelang/pkg/httpx"
	"github.com/floroz/lelang/services/bid-service/internal/domain/bids"
)

const maxBidBodyBytes = 64 << 10

type bidResponse struct {
	Message string    `json:"message"`
	Data    *bids.Bid `json:"data"`
}

type validationErrorResponse struct {
	Error  string            `json:"error"`
	Reason bids.Reason       `json:"reason"`
	Fields map[string]string `json:"fields"`
}

// BidHandler serves the bid REST endpoints.
type BidHandler struct {
	service *bids.Service
}

func NewBidHandler(service *bids.Service) *BidHandler {
	return &BidHandler{service: service}
}

// SubmitBid handles POST /bid. An empty body is validated like an empty
// object.
func (h *BidHandler) SubmitBid(w http.ResponseWriter, r *http.Request) {
	var sub bids.Submission
	err := json.NewDecoder(io.LimitReader(r.Body, maxBidBodyBytes)).Decode(&sub)
	if err != nil && !errors.Is(err, io.EOF) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bid, err := h.service.SubmitBid(r.Context(), sub)
	if err != nil {
		h.writeError(w, r, err, "failed to place bid")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, bidResponse{Message: "Bid placed", Data: bid})
}

// ListBids handles GET /bid.
func (h *BidHandler) ListBids(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListBids(r.Context())
	if err != nil {
		h.writeError(w, r, err, "failed to list bids")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, nonNil(list))
}

// ListBidsForItem handles GET /bid/item/{item_id}.
func (h *BidHandler) ListBidsForItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "item_id"), 10, 64)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "item_id must be an integer")
		return
	}

	list, err := h.service.ListBidsForItem(r.Context(), bids.ItemID(itemID))
	if err != nil {
		h.writeError(w, r, err, "failed to list bids")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, nonNil(list))
}

// CorrectBid handles PUT /bid/{id}.
func (h *BidHandler) CorrectBid(w http.ResponseWriter, r *http.Request) {
	id, ok := bidID(r)
	if !ok {
		httpx.WriteMessage(w, http.StatusNotFound, bids.ErrBidNotFound.Error())
		return
	}

	var sub bids.PatchSubmission
	if err := httpx.DecodeJSON(r, &sub); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	patch, err := bids.ValidatePatch(sub)
	if err != nil {
		h.writeError(w, r, err, "failed to update bid")
		return
	}

	bid, err := h.service.CorrectBid(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, err, "failed to update bid")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, bidResponse{Message: "Bid updated", Data: bid})
}

// RemoveBid handles DELETE /bid/{id}.
func (h *BidHandler) RemoveBid(w http.ResponseWriter, r *http.Request) {
	id, ok := bidID(r)
	if !ok {
		httpx.WriteMessage(w, http.StatusNotFound, bids.ErrBidNotFound.Error())
		return
	}

	if err := h.service.RemoveBid(r.Context(), id); err != nil {
		h.writeError(w, r, err, "failed to delete bid")
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "Bid deleted")
}

func (h *BidHandler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *bids.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteJSON(w, http.StatusBadRequest, validationErrorResponse{
			Error:  "invalid bid",
			Reason: verr.Reason,
			Fields: verr.Fields,
		})
	case errors.Is(err, bids.ErrBidNotFound):
		httpx.WriteMessage(w, http.StatusNotFound, bids.ErrBidNotFound.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(fallback)
		httpx.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// bidID parses {id}. A malformed id cannot name an existing bid.
func bidID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

func nonNil(list []*bids.Bid) []*bids.Bid {
	if list == nil {
		return []*bids.Bid{}
	}
	return list
}
