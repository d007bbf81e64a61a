package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feek13/mini-social-sub003/internal/chains"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIDs(t *testing.T) {
	assert.Equal(t, []string{"bitcoin", "ethereum"}, NormalizeIDs([]string{" Ethereum,bitcoin", "ethereum", ""}))
	assert.Empty(t, NormalizeIDs(nil))
}

func TestSimplePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("ids"), "ethereum")
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "demo", r.Header.Get("x-cg-demo-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ethereum":{"usd":2000.5,"usd_24h_change":-1.25},"bitcoin":{"usd":60000,"usd_24h_change":2}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "demo")
	prices, err := c.SimplePrice(context.Background(), []string{"ethereum", "bitcoin"}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 2000.5, prices["ethereum"]["usd"], 0.0001)

	native, err := c.NativePrice(context.Background(), chains.Default())
	require.NoError(t, err)
	assert.Equal(t, "ETH", native.Symbol)
	assert.InDelta(t, -1.25, native.Change24h, 0.0001)
}

func TestSimplePriceRequiresIDs(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1", "").SimplePrice(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoIDs)
}
