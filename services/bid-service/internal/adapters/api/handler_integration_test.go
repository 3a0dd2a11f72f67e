//go:build integration

package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floroz/lelang/pkg/testhelpers"
	"github.com/floroz/lelang/services/bid-service/internal/adapters/api"
	infradb "github.com/floroz/lelang/services/bid-service/internal/adapters/database"
	"github.com/floroz/lelang/services/bid-service/internal/adapters/events"
	"github.com/floroz/lelang/services/bid-service/internal/domain/bids"
	"github.com/floroz/lelang/services/bid-service/migrations"
)

type bidEnvelope struct {
	Message string   `json:"message"`
	Data    bids.Bid `json:"data"`
}

func setupBidApp(t *testing.T) (*httptest.Server, *events.Hub, *testhelpers.TestDatabase) {
	t.Helper()
	testDB := testhelpers.NewTestDatabase(t, migrations.FS)

	hub := events.NewHub(8)
	t.Cleanup(hub.Close)

	svc := bids.NewService(infradb.NewPostgresBidRepository(testDB.Pool), []bids.Broadcaster{hub}, nil, zerolog.Nop())
	router := api.NewRouter(api.NewBidHandler(svc), api.NewWatchHandler(hub, time.Second), nil, zerolog.Nop())

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, hub, testDB
}

func postBid(t *testing.T, baseURL, body string) (*http.Response, bidEnvelope) {
	t.Helper()
	resp, err := http.Post(baseURL+"/bid", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var env bidEnvelope
	if resp.StatusCode == http.StatusCreated {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func getBids(t *testing.T, url string) []bids.Bid {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []bids.Bid
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	return list
}

func send(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestBidLifecycle_Integration(t *testing.T) {
	server, hub, testDB := setupBidApp(t)

	t.Run("submit then list", func(t *testing.T) {
		testDB.Truncate(t, "bids")

		resp, created := postBid(t, server.URL, `{"item_id":1,"user_id":7,"amount":150}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		all := getBids(t, server.URL+"/bid")
		require.Len(t, all, 1)
		assert.Equal(t, created.Data.ID, all[0].ID)
		assert.Equal(t, bids.ItemID(1), all[0].ItemID)
		assert.Equal(t, bids.UserID(7), all[0].UserID)
		assert.Equal(t, "150", all[0].Amount.String())
		assert.WithinDuration(t, time.Now(), all[0].PlacedAt, time.Minute)
	})

	t.Run("rejected submission stores nothing", func(t *testing.T) {
		testDB.Truncate(t, "bids")

		for _, body := range []string{
			`{"user_id":7,"amount":150}`,
			`{"item_id":1,"amount":150}`,
			`{"item_id":1,"user_id":7}`,
		} {
			resp, _ := postBid(t, server.URL, body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		}

		assert.Empty(t, getBids(t, server.URL+"/bid"))
	})

	t.Run("item ranking", func(t *testing.T) {
		testDB.Truncate(t, "bids")

		for _, amount := range []string{"100", "150", "120"} {
			resp, _ := postBid(t, server.URL, `{"item_id":1,"user_id":7,"amount":`+amount+`}`)
			require.Equal(t, http.StatusCreated, resp.StatusCode)
		}
		resp, _ := postBid(t, server.URL, `{"item_id":2,"user_id":7,"amount":500}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		ranked := getBids(t, server.URL+"/bid/item/1")
		require.Len(t, ranked, 3)
		assert.Equal(t, "150", ranked[0].Amount.String())
		assert.Equal(t, "120", ranked[1].Amount.String())
		assert.Equal(t, "100", ranked[2].Amount.String())
	})

	t.Run("correct and remove", func(t *testing.T) {
		testDB.Truncate(t, "bids")

		_, created := postBid(t, server.URL, `{"item_id":1,"user_id":7,"amount":150}`)
		id := created.Data.ID.String()

		resp := send(t, http.MethodPut, server.URL+"/bid/"+id, `{"amount":175}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated bidEnvelope
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
		assert.Equal(t, "175", updated.Data.Amount.String())
		assert.Equal(t, created.Data.ItemID, updated.Data.ItemID)
		assert.Equal(t, created.Data.UserID, updated.Data.UserID)
		assert.True(t, created.Data.PlacedAt.Equal(updated.Data.PlacedAt))

		resp = send(t, http.MethodDelete, server.URL+"/bid/"+id, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		assert.Empty(t, getBids(t, server.URL+"/bid"))
		assert.Empty(t, getBids(t, server.URL+"/bid/item/1"))

		resp = send(t, http.MethodDelete, server.URL+"/bid/"+id, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp = send(t, http.MethodPut, server.URL+"/bid/"+id, `{"amount":1}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("watchers see only bids accepted after they connect", func(t *testing.T) {
		testDB.Truncate(t, "bids")

		early := dialWatcher(t, server.URL)
		require.Eventually(t, func() bool { return hub.Count() >= 1 }, 2*time.Second, 10*time.Millisecond)
		before := hub.Count()

		_, created := postBid(t, server.URL, `{"item_id":9,"user_id":1,"amount":42}`)

		require.NoError(t, early.SetReadDeadline(time.Now().Add(2*time.Second)))
		var frame events.Envelope
		require.NoError(t, early.ReadJSON(&frame))
		assert.Equal(t, events.EventNewBid, frame.Event)
		assert.Equal(t, created.Data.ID, frame.Data.ID)

		late := dialWatcher(t, server.URL)
		require.Eventually(t, func() bool { return hub.Count() == before+1 }, 2*time.Second, 10*time.Millisecond)
		require.NoError(t, late.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
		_, _, err := late.ReadMessage()
		assert.Error(t, err)
	})
}
