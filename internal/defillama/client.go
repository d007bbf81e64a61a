// Package defillama reads protocol TVL, chain TVL and yield pools from the
// public DeFiLlama APIs.
package defillama

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/feek13/mini-social-sub003/internal/httpclient"
	"github.com/go-resty/resty/v2"
)

const serviceName = "defillama"

var ErrNotFound = errors.New("defillama: not found")

// Protocol is one entry of /protocols, or the head of /protocol/{slug}.
type Protocol struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Slug        string             `json:"slug"`
	Symbol      string             `json:"symbol,omitempty"`
	Category    string             `json:"category"`
	Chains      []string           `json:"chains"`
	Logo        string             `json:"logo,omitempty"`
	URL         string             `json:"url,omitempty"`
	Description string             `json:"description,omitempty"`
	TVL         float64            `json:"tvl"`
	Change1h    *float64           `json:"change_1h,omitempty"`
	Change1d    *float64           `json:"change_1d,omitempty"`
	Change7d    *float64           `json:"change_7d,omitempty"`
	ChainTVLs   map[string]float64 `json:"chainTvls,omitempty"`
	MCap        *float64           `json:"mcap,omitempty"`
}

// ProtocolDetail is /protocol/{slug}. Its tvl field is a history rather than
// a number; CurrentTVL sums the current per-chain values.
type ProtocolDetail struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Symbol           string             `json:"symbol,omitempty"`
	Category         string             `json:"category"`
	Chains           []string           `json:"chains"`
	Logo             string             `json:"logo,omitempty"`
	URL              string             `json:"url,omitempty"`
	Description      string             `json:"description,omitempty"`
	Twitter          string             `json:"twitter,omitempty"`
	TVL              []TVLPoint         `json:"tvl"`
	CurrentChainTVLs map[string]float64 `json:"currentChainTvls"`
}

// CurrentTVL sums the per-chain TVL, skipping the borrowed/staking/pool2
// breakdown keys DeFiLlama mixes in ("Ethereum-borrowed", "staking", ...).
func (p *ProtocolDetail) CurrentTVL() float64 {
	var total float64
	for chain, tvl := range p.CurrentChainTVLs {
		if strings.Contains(chain, "-") || isBreakdownKey(chain) {
			continue
		}
		total += tvl
	}
	return total
}

func isBreakdownKey(key string) bool {
	switch strings.ToLower(key) {
	case "borrowed", "staking", "pool2", "vesting", "offers", "treasury":
		return true
	}
	return false
}

type TVLPoint struct {
	Date              int64   `json:"date"`
	TotalLiquidityUSD float64 `json:"totalLiquidityUSD"`
}

// ChainTVL is one entry of /v2/chains.
type ChainTVL struct {
	Name        string  `json:"name"`
	TokenSymbol string  `json:"tokenSymbol"`
	ChainID     *int64  `json:"chainId"`
	GeckoID     string  `json:"gecko_id"`
	TVL         float64 `json:"tvl"`
}

// Pool is one yield pool of yields.llama.fi/pools.
type Pool struct {
	Pool        string   `json:"pool"`
	Chain       string   `json:"chain"`
	Project     string   `json:"project"`
	Symbol      string   `json:"symbol"`
	TVLUsd      float64  `json:"tvlUsd"`
	APY         *float64 `json:"apy"`
	APYBase     *float64 `json:"apyBase"`
	APYReward   *float64 `json:"apyReward"`
	Stablecoin  bool     `json:"stablecoin"`
	ILRisk      string   `json:"ilRisk"`
	Exposure    string   `json:"exposure"`
	PoolMeta    *string  `json:"poolMeta"`
	RewardToken []string `json:"rewardTokens"`
}

type poolsResponse struct {
	Status string `json:"status"`
	Data   []Pool `json:"data"`
}

// Client talks to api.llama.fi and yields.llama.fi.
type Client struct {
	api    *resty.Client
	yields *resty.Client
}

// NewClient builds a client. Empty URLs fall back to the public endpoints.
func NewClient(baseURL, yieldsURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.llama.fi"
	}
	if yieldsURL == "" {
		yieldsURL = "https://yields.llama.fi"
	}
	return &Client{
		api:    httpclient.New(httpclient.Options{Name: serviceName, BaseURL: baseURL}),
		yields: httpclient.New(httpclient.Options{Name: serviceName, BaseURL: yieldsURL}),
	}
}

// Protocols lists every tracked protocol.
func (c *Client) Protocols(ctx context.Context) ([]Protocol, error) {
	var out []Protocol
	resp, err := c.api.R().SetContext(ctx).SetResult(&out).Get("/protocols")
	if err := httpclient.Check(serviceName, resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// Protocol fetches one protocol by slug.
func (c *Client) Protocol(ctx context.Context, slug string) (*ProtocolDetail, error) {
	var out ProtocolDetail
	resp, err := c.api.R().
		SetContext(ctx).
		SetPathParam("slug", strings.ToLower(slug)).
		SetResult(&out).
		Get("/protocol/{slug}")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if err := httpclient.Check(serviceName, resp, err); err != nil {
		return nil, err
	}
	if out.Name == "" {
		return nil, ErrNotFound
	}
	return &out, nil
}

// Chains lists current TVL per chain.
func (c *Client) Chains(ctx context.Context) ([]ChainTVL, error) {
	var out []ChainTVL
	resp, err := c.api.R().SetContext(ctx).SetResult(&out).Get("/v2/chains")
	if err := httpclient.Check(serviceName, resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// Pools lists every yield pool. The list is large; callers filter it with
// a PoolFilter and cache the result.
func (c *Client) Pools(ctx context.Context) ([]Pool, error) {
	var out poolsResponse
	resp, err := c.yields.R().SetContext(ctx).SetResult(&out).Get("/pools")
	if err := httpclient.Check(serviceName, resp, err); err != nil {
		return nil, err
	}
	return out.Data, nil
}
