// Package etherscan wraps the Etherscan v2 multichain API. One API key covers
// every supported chain; the chain is chosen per call with chainid.
package etherscan

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/feek13/mini-social-sub003/internal/chains"
	"github.com/feek13/mini-social-sub003/internal/httpclient"
	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
)

const serviceName = "etherscan"

var (
	ErrRateLimited = errors.New("etherscan: rate limit reached")
	ErrNoAPIKey    = errors.New("etherscan: api key not configured")
)

// Transaction is a normal transaction from account/txlist. Etherscan encodes
// every field as a string.
type Transaction struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	Nonce           string `json:"nonce"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	Gas             string `json:"gas"`
	GasPrice        string `json:"gasPrice"`
	GasUsed         string `json:"gasUsed"`
	IsError         string `json:"isError"`
	ContractAddress string `json:"contractAddress"`
	MethodID        string `json:"methodId"`
	FunctionName    string `json:"functionName"`
	Confirmations   string `json:"confirmations"`
}

// TokenTransfer is an ERC-20 transfer from account/tokentx.
type TokenTransfer struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	ContractAddress string `json:"contractAddress"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
}

// Balance is a native balance in wei plus its display form.
type Balance struct {
	Chain   string `json:"chain"`
	Address string `json:"address"`
	Wei     string `json:"wei"`
	Amount  string `json:"amount"`
	Symbol  string `json:"symbol"`
}

// GasOracle holds gas prices in gwei.
type GasOracle struct {
	LastBlock       string `json:"LastBlock"`
	SafeGasPrice    string `json:"SafeGasPrice"`
	ProposeGasPrice string `json:"ProposeGasPrice"`
	FastGasPrice    string `json:"FastGasPrice"`
	SuggestBaseFee  string `json:"suggestBaseFee"`
	GasUsedRatio    string `json:"gasUsedRatio"`
}

// ListOptions pages txlist and tokentx. Page starts at 1; Offset is the page
// size (Etherscan's naming).
type ListOptions struct {
	Page   int
	Offset int
	Sort   string
}

func (o ListOptions) params() map[string]string {
	page, offset, sort := o.Page, o.Offset, strings.ToLower(o.Sort)
	if page < 1 {
		page = 1
	}
	if offset < 1 || offset > 100 {
		offset = 20
	}
	if sort != "asc" {
		sort = "desc"
	}
	return map[string]string{
		"page":       strconv.Itoa(page),
		"offset":     strconv.Itoa(offset),
		"sort":       sort,
		"startblock": "0",
		"endblock":   "99999999",
	}
}

type envelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Result  jsoniter.RawMessage `json:"result"`
}

type Client struct {
	http   *resty.Client
	apiKey string
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.etherscan.io/v2/api"
	}
	return &Client{
		http:   httpclient.New(httpclient.Options{Name: serviceName, BaseURL: baseURL}),
		apiKey: apiKey,
	}
}

// call issues one module/action query and decodes result into out.
func (c *Client) call(ctx context.Context, chain chains.Chain, params map[string]string, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	var env envelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("chainid", strconv.FormatInt(chain.ChainID, 10)).
		SetQueryParam("apikey", c.apiKey).
		SetQueryParams(params).
		SetResult(&env).
		ForceContentType("application/json").
		Get("")
	if err := httpclient.Check(serviceName, resp, err); err != nil {
		return err
	}

	if env.Status != "1" {
		detail := resultText(env.Result)
		switch {
		case isNoRecords(env.Message) || isNoRecords(detail):
			return jsoniter.Unmarshal([]byte("[]"), out)
		case isRateLimit(env.Message) || isRateLimit(detail):
			return ErrRateLimited
		default:
			return fmt.Errorf("etherscan %s/%s: %s: %s", params["module"], params["action"], env.Message, detail)
		}
	}

	if err := jsoniter.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to decode etherscan result: %w", err)
	}
	return nil
}

func resultText(raw jsoniter.RawMessage) string {
	var s string
	if jsoniter.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

func isNoRecords(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "no transactions found") || strings.Contains(s, "no records found")
}

func isRateLimit(s string) bool {
	return strings.Contains(strings.ToLower(s), "rate limit")
}

// Transactions lists normal transactions for address.
func (c *Client) Transactions(ctx context.Context, chain chains.Chain, address string, opts ListOptions) ([]Transaction, error) {
	params := opts.params()
	params["module"] = "account"
	params["action"] = "txlist"
	params["address"] = address

	txs := []Transaction{}
	if err := c.call(ctx, chain, params, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// TokenTransfers lists ERC-20 transfers to or from address.
func (c *Client) TokenTransfers(ctx context.Context, chain chains.Chain, address string, opts ListOptions) ([]TokenTransfer, error) {
	params := opts.params()
	params["module"] = "account"
	params["action"] = "tokentx"
	params["address"] = address

	transfers := []TokenTransfer{}
	if err := c.call(ctx, chain, params, &transfers); err != nil {
		return nil, err
	}
	return transfers, nil
}

// Balance returns the native balance of address.
func (c *Client) Balance(ctx context.Context, chain chains.Chain, address string) (*Balance, error) {
	var wei string
	err := c.call(ctx, chain, map[string]string{
		"module":  "account",
		"action":  "balance",
		"address": address,
		"tag":     "latest",
	}, &wei)
	if err != nil {
		return nil, err
	}

	amount, ok := new(big.Int).SetString(wei, 10)
	if !ok {
		return nil, fmt.Errorf("etherscan returned invalid balance %q", wei)
	}
	return &Balance{
		Chain:   chain.Key,
		Address: address,
		Wei:     wei,
		Amount:  chains.FormatUnits(amount, chain.Decimals),
		Symbol:  chain.Symbol,
	}, nil
}

// GasOracle returns the current safe/propose/fast gas prices.
func (c *Client) GasOracle(ctx context.Context, chain chains.Chain) (*GasOracle, error) {
	var gas GasOracle
	err := c.call(ctx, chain, map[string]string{
		"module": "gastracker",
		"action": "gasoracle",
	}, &gas)
	if err != nil {
		return nil, err
	}
	return &gas, nil
}
