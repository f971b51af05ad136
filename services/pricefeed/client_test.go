package pricefeed_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tokencast/models"
	"tokencast/services/pricefeed"
)

func TestSpotPriceCachesBetweenRevalidations(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]float64{"price": 142.5})
	}))
	defer server.Close()

	client := pricefeed.NewClient(server.URL, time.Minute)

	for i := 0; i < 5; i++ {
		price, err := client.SpotPrice(context.Background())
		require.NoError(t, err)
		require.Equal(t, 142.5, price)
	}
	require.Equal(t, int64(1), calls.Load(), "cached reads must not hit upstream")
}

func TestSpotPriceServesStaleOnFailure(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "feed down", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]float64{"price": 99.0})
	}))
	defer server.Close()

	client := pricefeed.NewClient(server.URL, time.Millisecond)

	price, err := client.SpotPrice(context.Background())
	require.NoError(t, err)
	require.Equal(t, 99.0, price)

	fail.Store(true)
	time.Sleep(5 * time.Millisecond)

	stale, err := client.SpotPrice(context.Background())
	require.NoError(t, err, "a stale observation beats an error")
	require.Equal(t, 99.0, stale)
}

func TestSpotPriceFailsWithNothingCached(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "feed down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := pricefeed.NewClient(server.URL, time.Minute)
	_, err := client.SpotPrice(context.Background())
	require.ErrorIs(t, err, models.ErrUpstream)
}
