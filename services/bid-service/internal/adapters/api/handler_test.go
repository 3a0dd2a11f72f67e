package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/floroz/lelang/services/bid-service/internal/adapters/api"
	"github.com/floroz/lelang/services/bid-service/internal/adapters/events"
	"github.com/floroz/lelang/services/bid-service/internal/domain/bids"
)

// MockStore is a mock implementation of bids.BidStore for testing
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, draft bids.Draft) (*bids.Bid, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bids.Bid), args.Error(1)
}

func (m *MockStore) ListAll(ctx context.Context) ([]*bids.Bid, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bids.Bid), args.Error(1)
}

func (m *MockStore) ListByItem(ctx context.Context, itemID bids.ItemID) ([]*bids.Bid, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bids.Bid), args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, id uuid.UUID, patch bids.Patch) (*bids.Bid, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bids.Bid), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type testApp struct {
	store  *MockStore
	hub    *events.Hub
	router http.Handler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store := new(MockStore)
	hub := events.NewHub(8)
	t.Cleanup(hub.Close)

	svc := bids.NewService(store, []bids.Broadcaster{hub}, nil, zerolog.Nop())
	router := api.NewRouter(api.NewBidHandler(svc), api.NewWatchHandler(hub, time.Second), nil, zerolog.Nop())
	return &testApp{store: store, hub: hub, router: router}
}

func (a *testApp) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func storedBid(item int64, amount string) *bids.Bid {
	return &bids.Bid{
		ID:       uuid.New(),
		ItemID:   bids.ItemID(item),
		UserID:   7,
		Amount:   decimal.RequireFromString(amount),
		PlacedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestSubmitBid(t *testing.T) {
	t.Run("201 with the stored bid", func(t *testing.T) {
		app := newTestApp(t)
		bid := storedBid(1, "150")
		app.store.On("Create", mock.Anything, mock.AnythingOfType("bids.Draft")).Return(bid, nil)

		rec := app.do(http.MethodPost, "/bid", `{"item_id":1,"user_id":7,"amount":150}`)

		require.Equal(t, http.StatusCreated, rec.Code)
		var body struct {
			Message string         `json:"message"`
			Data    map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body.Message)
		assert.Equal(t, bid.ID.String(), body.Data["id"])
		assert.EqualValues(t, 1, body.Data["item_id"])
		assert.EqualValues(t, 7, body.Data["user_id"])
		assert.EqualValues(t, 150, body.Data["amount"])
		assert.Equal(t, "2024-05-01T10:00:00Z", body.Data["placed_at"])
	})

	t.Run("400 with field reasons when fields are missing", func(t *testing.T) {
		app := newTestApp(t)

		rec := app.do(http.MethodPost, "/bid", `{"user_id":7}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var body struct {
			Error  string            `json:"error"`
			Reason string            `json:"reason"`
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body.Error)
		assert.Equal(t, "MissingField", body.Reason)
		assert.Contains(t, body.Fields, "item_id")
		assert.Contains(t, body.Fields, "amount")
		app.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("400 when amount is not a number", func(t *testing.T) {
		app := newTestApp(t)

		rec := app.do(http.MethodPost, "/bid", `{"item_id":1,"user_id":7,"amount":"150"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "InvalidAmount")
	})

	t.Run("400 on malformed JSON", func(t *testing.T) {
		app := newTestApp(t)
		rec := app.do(http.MethodPost, "/bid", `{"item_id":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error"`)
	})

	t.Run("500 when storage fails", func(t *testing.T) {
		app := newTestApp(t)
		app.store.On("Create", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: dial tcp: connection refused", bids.ErrStorageUnavailable))

		rec := app.do(http.MethodPost, "/bid", `{"item_id":1,"user_id":7,"amount":150}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"bid storage unavailable: dial tcp: connection refused"}`, rec.Body.String())
	})

	t.Run("400 with every field missing on an empty body", func(t *testing.T) {
		app := newTestApp(t)

		rec := app.do(http.MethodPost, "/bid", "")

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var body struct {
			Reason string            `json:"reason"`
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "MissingField", body.Reason)
		assert.Len(t, body.Fields, 3)
		app.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("400 naming placed_at when it is not a timestamp", func(t *testing.T) {
		app := newTestApp(t)

		rec := app.do(http.MethodPost, "/bid", `{"item_id":1,"user_id":7,"amount":150,"placed_at":12}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var body struct {
			Reason string            `json:"reason"`
			Fields map[string]string `json:"fields"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "InvalidTimestamp", body.Reason)
		assert.Contains(t, body.Fields, "placed_at")
		app.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestListBids(t *testing.T) {
	t.Run("empty list is an array", func(t *testing.T) {
		app := newTestApp(t)
		app.store.On("ListAll", mock.Anything).Return([]*bids.Bid(nil), nil)

		rec := app.do(http.MethodGet, "/bid", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("500 on storage failure", func(t *testing.T) {
		app := newTestApp(t)
		app.store.On("ListAll", mock.Anything).Return(nil, bids.ErrStorageUnavailable)

		rec := app.do(http.MethodGet, "/bid", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"bid storage unavailable"}`, rec.Body.String())
	})
}

func TestListBidsForItem(t *testing.T) {
	t.Run("returns the ranking", func(t *testing.T) {
		app := newTestApp(t)
		ranked := []*bids.Bid{storedBid(1, "150"), storedBid(1, "120"), storedBid(1, "100")}
		app.store.On("ListByItem", mock.Anything, bids.ItemID(1)).Return(ranked, nil)

		rec := app.do(http.MethodGet, "/bid/item/1", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var got []bids.Bid
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 3)
		assert.Equal(t, "150", got[0].Amount.String())
		assert.Equal(t, "100", got[2].Amount.String())
	})

	t.Run("400 on a non-integer item id", func(t *testing.T) {
		app := newTestApp(t)
		rec := app.do(http.MethodGet, "/bid/item/abc", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCorrectBid(t *testing.T) {
	id := uuid.New()

	t.Run("200 with the updated bid", func(t *testing.T) {
		app := newTestApp(t)
		amount := decimal.RequireFromString("175")
		updated := storedBid(1, "175")
		updated.ID = id
		app.store.On("Update", mock.Anything, id, bids.Patch{Amount: &amount}).Return(updated, nil)

		rec := app.do(http.MethodPut, "/bid/"+id.String(), `{"amount":175}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"amount":175`)
		assert.Contains(t, rec.Body.String(), `"message"`)
	})

	t.Run("404 for an unknown id", func(t *testing.T) {
		app := newTestApp(t)
		app.store.On("Update", mock.Anything, id, mock.Anything).Return(nil, bids.ErrBidNotFound)

		rec := app.do(http.MethodPut, "/bid/"+id.String(), `{"amount":1}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"message":"bid not found"}`, rec.Body.String())
	})

	t.Run("404 for a malformed id", func(t *testing.T) {
		app := newTestApp(t)
		rec := app.do(http.MethodPut, "/bid/not-a-uuid", `{"amount":1}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("400 when the patch names the id", func(t *testing.T) {
		app := newTestApp(t)
		rec := app.do(http.MethodPut, "/bid/"+id.String(), `{"id":"`+uuid.NewString()+`"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		app.store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("400 when the amount is not a number", func(t *testing.T) {
		app := newTestApp(t)
		rec := app.do(http.MethodPut, "/bid/"+id.String(), `{"amount":"lots"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("accepts the legacy amount field", func(t *testing.T) {
		app := newTestApp(t)
		amount := decimal.RequireFromString("210")
		updated := storedBid(1, "210")
		updated.ID = id
		app.store.On("Update", mock.Anything, id, bids.Patch{Amount: &amount}).Return(updated, nil)

		rec := app.do(http.MethodPut, "/bid/"+id.String(), `{"tawaran_harga":210}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"amount":210`)
	})
}

func TestRemoveBid(t *testing.T) {
	id := uuid.New()
	app := newTestApp(t)
	app.store.On("Delete", mock.Anything, id).Return(nil).Once()
	app.store.On("Delete", mock.Anything, id).Return(bids.ErrBidNotFound).Once()

	first := app.do(http.MethodDelete, "/bid/"+id.String(), "")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), `"message"`)

	second := app.do(http.MethodDelete, "/bid/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, second.Code)
	assert.JSONEq(t, `{"message":"bid not found"}`, second.Body.String())
}

func TestBannerAndHealth(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, "Bidding Service is Running", app.do(http.MethodGet, "/", "").Body.String())
	assert.Equal(t, "OK", app.do(http.MethodGet, "/health", "").Body.String())
}

func dialWatcher(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()
	u, err := url.Parse(serverURL)
	require.NoError(t, err)
	u.Scheme = "ws"
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWatch_PushesNewBids(t *testing.T) {
	app := newTestApp(t)
	server := httptest.NewServer(app.router)
	t.Cleanup(server.Close)

	bid := storedBid(1, "150")
	app.store.On("Create", mock.Anything, mock.Anything).Return(bid, nil)

	early := dialWatcher(t, server.URL)
	require.Eventually(t, func() bool { return app.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(server.URL+"/bid", "application/json",
		bytes.NewBufferString(`{"item_id":1,"user_id":7,"amount":150}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, early.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame events.Envelope
	require.NoError(t, early.ReadJSON(&frame))
	assert.Equal(t, "newBid", frame.Event)
	assert.Equal(t, bid.ID, frame.Data.ID)

	late := dialWatcher(t, server.URL)
	require.Eventually(t, func() bool { return app.hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, late.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err = late.ReadMessage()
	var netErr interface{ Timeout() bool }
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "late watcher must not receive earlier bids, got %v", err)
}

func TestWatch_DisconnectUnsubscribes(t *testing.T) {
	app := newTestApp(t)
	server := httptest.NewServer(app.router)
	t.Cleanup(server.Close)

	conn := dialWatcher(t, server.URL)
	require.Eventually(t, func() bool { return app.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return app.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
