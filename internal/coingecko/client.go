// Package coingecko fetches spot prices from the CoinGecko simple price API.
package coingecko

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/feek13/mini-social-sub003/internal/chains"
	"github.com/feek13/mini-social-sub003/internal/httpclient"
	"github.com/go-resty/resty/v2"
)

const (
	serviceName = "coingecko"
	maxIDs      = 50
)

var ErrNoIDs = errors.New("coingecko: no coin ids given")

// Prices maps coin id -> field -> value, e.g. prices["ethereum"]["usd"] and
// prices["ethereum"]["usd_24h_change"].
type Prices map[string]map[string]float64

// NativePrice is the USD price of a chain's native token.
type NativePrice struct {
	Chain     string  `json:"chain"`
	Symbol    string  `json:"symbol"`
	CoinID    string  `json:"coin_id"`
	USD       float64 `json:"usd"`
	Change24h float64 `json:"usd_24h_change"`
}

type Client struct {
	http *resty.Client
}

// NewClient builds a client. A non-empty apiKey is sent as the demo API key
// header.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}
	opts := httpclient.Options{Name: serviceName, BaseURL: baseURL}
	if apiKey != "" {
		opts.Headers = map[string]string{"x-cg-demo-api-key": apiKey}
	}
	return &Client{http: httpclient.New(opts)}
}

// NormalizeIDs lower-cases, trims, de-duplicates and sorts ids, keeping at
// most 50. The sorted form doubles as a stable cache key component.
func NormalizeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		for _, part := range strings.Split(id, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" || seen[part] {
				continue
			}
			seen[part] = true
			out = append(out, part)
		}
	}
	sort.Strings(out)
	if len(out) > maxIDs {
		out = out[:maxIDs]
	}
	return out
}

// SimplePrice returns prices of ids in each of vsCurrencies (default usd),
// with 24h change.
func (c *Client) SimplePrice(ctx context.Context, ids, vsCurrencies []string) (Prices, error) {
	ids = NormalizeIDs(ids)
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}
	vs := NormalizeIDs(vsCurrencies)
	if len(vs) == 0 {
		vs = []string{"usd"}
	}

	prices := Prices{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("ids", strings.Join(ids, ",")).
		SetQueryParam("vs_currencies", strings.Join(vs, ",")).
		SetQueryParam("include_24hr_change", "true").
		SetResult(&prices).
		Get("/simple/price")
	if err := httpclient.Check(serviceName, resp, err); err != nil {
		return nil, err
	}
	return prices, nil
}

// NativePrice returns the USD price of chain's native token.
func (c *Client) NativePrice(ctx context.Context, chain chains.Chain) (*NativePrice, error) {
	prices, err := c.SimplePrice(ctx, []string{chain.CoinGeckoID}, []string{"usd"})
	if err != nil {
		return nil, err
	}
	p := prices[chain.CoinGeckoID]
	return &NativePrice{
		Chain:     chain.Key,
		Symbol:    chain.Symbol,
		CoinID:    chain.CoinGeckoID,
		USD:       p["usd"],
		Change24h: p["usd_24h_change"],
	}, nil
}
