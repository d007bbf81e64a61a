package defillama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/protocols", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"1","name":"Aave","slug":"aave","category":"Lending","chains":["Ethereum","Polygon"],"tvl":100},
			{"id":"2","name":"Uniswap","slug":"uniswap","category":"Dexes","chains":["Ethereum"],"tvl":200,"change_1d":null}
		]`))
	})
	mux.HandleFunc("/protocol/aave", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","name":"Aave","category":"Lending","chains":["Ethereum"],
			"tvl":[{"date":1700000000,"totalLiquidityUSD":90}],
			"currentChainTvls":{"Ethereum":80,"Polygon":20,"Ethereum-borrowed":50,"borrowed":50}}`))
	})
	mux.HandleFunc("/v2/chains", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"Ethereum","tokenSymbol":"ETH","chainId":1,"gecko_id":"ethereum","tvl":5}]`))
	})
	mux.HandleFunc("/pools", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","data":[{"pool":"p1","chain":"Ethereum","project":"aave-v3","symbol":"USDC","tvlUsd":10,"apy":3.5,"stablecoin":true,"ilRisk":"no"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(srv.URL, srv.URL)
	ctx := context.Background()

	protocols, err := c.Protocols(ctx)
	require.NoError(t, err)
	require.Len(t, protocols, 2)
	assert.Equal(t, "aave", protocols[0].Slug)
	assert.Nil(t, protocols[1].Change1d)

	detail, err := c.Protocol(ctx, "Aave")
	require.NoError(t, err)
	assert.Equal(t, "Aave", detail.Name)
	assert.InDelta(t, 100, detail.CurrentTVL(), 0.001)
	require.Len(t, detail.TVL, 1)

	_, err = c.Protocol(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	chains, err := c.Chains(ctx)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, int64(1), *chains[0].ChainID)

	pools, err := c.Pools(ctx)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.True(t, pools[0].Stablecoin)
	assert.InDelta(t, 3.5, *pools[0].APY, 0.001)
}

func TestClientUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.URL).Protocols(context.Background())
	assert.Error(t, err)
}

func testPools() []Pool {
	return []Pool{
		{Pool: "a", Chain: "Ethereum", Project: "aave-v3", Symbol: "USDC", TVLUsd: 500, APY: f(4), APYBase: f(1), Stablecoin: true, ILRisk: "no"},
		{Pool: "b", Chain: "Ethereum", Project: "uniswap-v3", Symbol: "WETH-USDC", TVLUsd: 900, APY: f(12), APYBase: f(9), ILRisk: "yes"},
		{Pool: "c", Chain: "Arbitrum", Project: "aave-v3", Symbol: "USDT", TVLUsd: 300, APY: f(6), APYBase: f(6), Stablecoin: true, ILRisk: "no"},
		{Pool: "d", Chain: "Polygon", Project: "curve", Symbol: "DAI", TVLUsd: 50, APY: nil, Stablecoin: true, ILRisk: "no"},
	}
}

func ids(pools []Pool) []string {
	out := make([]string, len(pools))
	for i, p := range pools {
		out[i] = p.Pool
	}
	return out
}

func TestParseSortKey(t *testing.T) {
	for raw, want := range map[string]string{
		"":         SortByTVL,
		"TVL":      SortByTVL,
		" apy ":    SortByAPY,
		"APY":      SortByAPY,
		"apyBase":  SortByAPYBase,
		"apy_base": SortByAPYBase,
		"APYBASE":  SortByAPYBase,
	} {
		got, ok := ParseSortKey(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"foo", "volume", "tvl desc"} {
		_, ok := ParseSortKey(raw)
		assert.False(t, ok, raw)
	}
}

func TestPoolFilter(t *testing.T) {
	pools := testPools()

	tests := []struct {
		name   string
		filter *PoolFilter
		want   []string
	}{
		{"default sorts by tvl", NewPoolFilter(), []string{"b", "a", "c", "d"}},
		{"chain", NewPoolFilter().Chain("ethereum"), []string{"b", "a"}},
		{"project", NewPoolFilter().Project("AAVE-V3"), []string{"a", "c"}},
		{"min tvl", NewPoolFilter().MinTVL(400), []string{"b", "a"}},
		{"min apy drops nil apy", NewPoolFilter().MinAPY(5), []string{"b", "c"}},
		{"stablecoin", NewPoolFilter().StablecoinOnly(true), []string{"a", "c", "d"}},
		{"no il sorted by apy", NewPoolFilter().NoIL(true).SortBy(SortByAPY), []string{"c", "a", "d"}},
		{"symbol", NewPoolFilter().Symbol("usdc"), []string{"b", "a"}},
		{"apy base with limit", NewPoolFilter().SortBy(SortByAPYBase).Limit(2), []string{"b", "c"}},
		{"unknown sort ignored", NewPoolFilter().SortBy("nope").Limit(1), []string{"b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.filter.Apply(pools)))
		})
	}

	assert.Equal(t, "a", pools[0].Pool, "input must not be reordered")
}

func TestTopProtocols(t *testing.T) {
	protocols := []Protocol{
		{Slug: "aave", Category: "Lending", Chains: []string{"Ethereum", "Polygon"}, TVL: 100},
		{Slug: "uniswap", Category: "Dexes", Chains: []string{"Ethereum"}, TVL: 200},
		{Slug: "compound", Category: "Lending", Chains: []string{"Ethereum"}, TVL: 50},
	}

	top := TopProtocols(protocols, "", "", 2)
	require.Len(t, top, 2)
	assert.Equal(t, "uniswap", top[0].Slug)

	lending := TopProtocols(protocols, "lending", "", 0)
	require.Len(t, lending, 2)
	assert.Equal(t, "aave", lending[0].Slug)

	polygon := TopProtocols(protocols, "", "polygon", 10)
	require.Len(t, polygon, 1)
	assert.Equal(t, "aave", polygon[0].Slug)
}
