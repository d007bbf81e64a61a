// Package alchemy reads NFT holdings and ERC-20 balances through Alchemy's
// NFT v3 REST API and its JSON-RPC token extensions.
package alchemy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/feek13/mini-social-sub003/internal/chains"
	"github.com/feek13/mini-social-sub003/internal/httpclient"
	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
)

const (
	serviceName = "alchemy"

	// DefaultURLPattern is expanded with the chain's alchemy network slug.
	DefaultURLPattern = "https://%s.g.alchemy.com"

	maxPageSize = 100
)

var (
	ErrNoAPIKey           = errors.New("alchemy: api key not configured")
	ErrUnsupportedNetwork = errors.New("alchemy: chain not supported")
)

type NFTContract struct {
	Address   string `json:"address"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	TokenType string `json:"tokenType"`
}

type NFTImage struct {
	CachedURL    string `json:"cachedUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	OriginalURL  string `json:"originalUrl"`
}

type NFT struct {
	Contract    NFTContract `json:"contract"`
	TokenID     string      `json:"tokenId"`
	TokenType   string      `json:"tokenType"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       NFTImage    `json:"image"`
	Balance     string      `json:"balance"`
}

// NFTPage is one page of getNFTsForOwner. PageKey is empty on the last page.
type NFTPage struct {
	OwnedNFTs  []NFT  `json:"ownedNfts"`
	TotalCount int    `json:"totalCount"`
	PageKey    string `json:"pageKey,omitempty"`
}

// TokenBalance is a non-zero ERC-20 balance. Raw is the hex amount Alchemy
// returned.
type TokenBalance struct {
	ContractAddress string `json:"contractAddress"`
	Raw             string `json:"tokenBalance"`
}

type TokenMetadata struct {
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Decimals *int    `json:"decimals"`
	Logo     *string `json:"logo"`
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result jsoniter.RawMessage `json:"result"`
	Error  *rpcError           `json:"error"`
}

type Client struct {
	http       *resty.Client
	apiKey     string
	urlPattern string
	nextID     atomic.Int64
}

// NewClient builds a client. urlPattern must contain one %s for the network
// slug; empty means DefaultURLPattern.
func NewClient(apiKey, urlPattern string) *Client {
	if urlPattern == "" {
		urlPattern = DefaultURLPattern
	}
	return &Client{
		http:       httpclient.New(httpclient.Options{Name: serviceName}),
		apiKey:     apiKey,
		urlPattern: urlPattern,
	}
}

func (c *Client) baseURL(chain chains.Chain) (string, error) {
	if c.apiKey == "" {
		return "", ErrNoAPIKey
	}
	if chain.AlchemyNetwork == "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedNetwork, chain.Key)
	}
	return fmt.Sprintf(c.urlPattern, chain.AlchemyNetwork), nil
}

// NFTsForOwner returns one page of NFTs held by owner.
func (c *Client) NFTsForOwner(ctx context.Context, chain chains.Chain, owner, pageKey string, pageSize int) (*NFTPage, error) {
	base, err := c.baseURL(chain)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("owner", owner).
		SetQueryParam("withMetadata", "true").
		SetQueryParam("pageSize", strconv.Itoa(pageSize))
	if pageKey != "" {
		req.SetQueryParam("pageKey", pageKey)
	}

	var page NFTPage
	resp, err := req.SetResult(&page).Get(fmt.Sprintf("%s/nft/v3/%s/getNFTsForOwner", base, c.apiKey))
	if err := httpclient.Check(serviceName, resp, err); err != nil {
		return nil, err
	}
	if page.OwnedNFTs == nil {
		page.OwnedNFTs = []NFT{}
	}
	return &page, nil
}

// TokenBalances lists the ERC-20 balances of owner, dropping zero balances.
func (c *Client) TokenBalances(ctx context.Context, chain chains.Chain, owner string) ([]TokenBalance, error) {
	var result struct {
		Address       string         `json:"address"`
		TokenBalances []TokenBalance `json:"tokenBalances"`
	}
	if err := c.rpc(ctx, chain, "alchemy_getTokenBalances", []any{owner, "erc20"}, &result); err != nil {
		return nil, err
	}

	balances := make([]TokenBalance, 0, len(result.TokenBalances))
	for _, b := range result.TokenBalances {
		amount, err := chains.ParseAmount(b.Raw)
		if err != nil || amount.Sign() == 0 {
			continue
		}
		balances = append(balances, b)
	}
	return balances, nil
}

// TokenMetadata returns name, symbol and decimals of an ERC-20 contract.
func (c *Client) TokenMetadata(ctx context.Context, chain chains.Chain, contract string) (*TokenMetadata, error) {
	var meta TokenMetadata
	if err := c.rpc(ctx, chain, "alchemy_getTokenMetadata", []any{contract}, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (c *Client) rpc(ctx context.Context, chain chains.Chain, method string, params []any, out any) error {
	base, err := c.baseURL(chain)
	if err != nil {
		return err
	}

	var envelope rpcResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params}).
		SetResult(&envelope).
		Post(fmt.Sprintf("%s/v2/%s", base, c.apiKey))
	if err := httpclient.Check(serviceName, resp, err); err != nil {
		return err
	}
	if envelope.Error != nil {
		return fmt.Errorf("alchemy %s: %s (code %d)", method, envelope.Error.Message, envelope.Error.Code)
	}
	if err := jsoniter.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("failed to decode alchemy %s result: %w", method, err)
	}
	return nil
}
