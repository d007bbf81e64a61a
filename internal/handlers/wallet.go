package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/feek13/mini-social-sub003/internal/alchemy"
	"github.com/feek13/mini-social-sub003/internal/cache"
	"github.com/feek13/mini-social-sub003/internal/chains"
	"github.com/feek13/mini-social-sub003/internal/etherscan"
	"github.com/feek13/mini-social-sub003/internal/logger"
	"github.com/feek13/mini-social-sub003/internal/models"
	"github.com/feek13/mini-social-sub003/internal/util"
	"github.com/feek13/mini-social-sub003/internal/validation"
	"github.com/gin-gonic/gin"
)

type walletView struct {
	Address string `json:"address"`
	Chain   string `json:"chain"`
}

func newWalletView(address string, chain chains.Chain) walletView {
	checksummed, err := validation.ChecksumAddress(address)
	if err != nil {
		checksummed = address
	}
	return walletView{Address: checksummed, Chain: chain.Key}
}

// GetWalletTokens lists non-zero ERC-20 balances
// GET /api/wallet/:address/tokens?chain=
func (h *Handlers) GetWalletTokens(c *gin.Context) {
	address, ok := addressParam(c)
	if !ok {
		return
	}
	chain, ok := chainParam(c)
	if !ok {
		return
	}

	key := cache.GenerateKey("wallet:tokens", map[string]any{"address": strings.ToLower(address), "chain": chain.Key})
	balances, cached, err := cache.GetOrSet(c.Request.Context(), h.cache, key, cache.TTLWallet,
		func(ctx context.Context) ([]alchemy.TokenBalance, error) {
			return h.alchemy.TokenBalances(ctx, chain, address)
		})
	if err != nil {
		respondUpstream(c, "alchemy", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet": newWalletView(address, chain),
		"data":   balances,
		"cached": cached,
	})
}

// GetWalletNFTs lists one page of NFTs
// GET /api/wallet/:address/nfts?chain=&page_key=&page_size=
func (h *Handlers) GetWalletNFTs(c *gin.Context) {
	address, ok := addressParam(c)
	if !ok {
		return
	}
	chain, ok := chainParam(c)
	if !ok {
		return
	}
	pageKey := c.Query("page_key")
	pageSize := util.ParseInt(c.Query("page_size"), 50)

	key := cache.GenerateKey("wallet:nfts", map[string]any{
		"address":   strings.ToLower(address),
		"chain":     chain.Key,
		"page_key":  pageKey,
		"page_size": pageSize,
	})
	page, cached, err := cache.GetOrSet(c.Request.Context(), h.cache, key, cache.TTLWallet,
		func(ctx context.Context) (*alchemy.NFTPage, error) {
			return h.alchemy.NFTsForOwner(ctx, chain, address, pageKey, pageSize)
		})
	if err != nil {
		respondUpstream(c, "alchemy", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet": newWalletView(address, chain),
		"data":   page,
		"cached": cached,
	})
}

// GetWalletTransactions lists normal transactions, or ERC-20 transfers with
// type=token
// GET /api/wallet/:address/transactions?chain=&page=&offset=&sort=&type=
func (h *Handlers) GetWalletTransactions(c *gin.Context) {
	address, ok := addressParam(c)
	if !ok {
		return
	}
	chain, ok := chainParam(c)
	if !ok {
		return
	}

	opts := etherscan.ListOptions{
		Page:   util.ParseInt(c.Query("page"), 1),
		Offset: util.ParseInt(c.Query("offset"), 20),
		Sort:   c.Query("sort"),
	}
	kind := strings.ToLower(c.DefaultQuery("type", "normal"))
	if kind != "normal" && kind != "token" {
		util.RespondValidationError(c, "type", "type must be normal or token")
		return
	}

	key := cache.GenerateKey("wallet:txs", map[string]any{
		"address": strings.ToLower(address),
		"chain":   chain.Key,
		"page":    opts.Page,
		"offset":  opts.Offset,
		"sort":    opts.Sort,
		"type":    kind,
	})
	ctx := c.Request.Context()

	var (
		data   any
		cached bool
		err    error
	)
	if kind == "token" {
		data, cached, err = cache.GetOrSet(ctx, h.cache, key, cache.TTLWallet,
			func(ctx context.Context) ([]etherscan.TokenTransfer, error) {
				return h.etherscan.TokenTransfers(ctx, chain, address, opts)
			})
	} else {
		data, cached, err = cache.GetOrSet(ctx, h.cache, key, cache.TTLWallet,
			func(ctx context.Context) ([]etherscan.Transaction, error) {
				return h.etherscan.Transactions(ctx, chain, address, opts)
			})
	}
	if err != nil {
		respondUpstream(c, "etherscan", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet": newWalletView(address, chain),
		"data":   data,
		"cached": cached,
	})
}

type walletBalance struct {
	*etherscan.Balance
	USDPrice float64 `json:"usd_price,omitempty"`
}

// GetWalletBalance returns the native balance and, when available, its USD
// price
// GET /api/wallet/:address/balance?chain=
func (h *Handlers) GetWalletBalance(c *gin.Context) {
	address, ok := addressParam(c)
	if !ok {
		return
	}
	chain, ok := chainParam(c)
	if !ok {
		return
	}

	key := cache.GenerateKey("wallet:balance", map[string]any{"address": strings.ToLower(address), "chain": chain.Key})
	balance, cached, err := cache.GetOrSet(c.Request.Context(), h.cache, key, cache.TTLWallet,
		func(ctx context.Context) (*walletBalance, error) {
			b, err := h.etherscan.Balance(ctx, chain, address)
			if err != nil {
				return nil, err
			}
			out := &walletBalance{Balance: b}
			if chain.CoinGeckoID != "" {
				price, err := h.coingecko.NativePrice(ctx, chain)
				if err != nil {
					logger.WarnWithFields("Native price lookup failed", err, logger.WithUpstream("coingecko"))
				} else {
					out.USDPrice = price.USD
				}
			}
			return out, nil
		})
	if err != nil {
		respondUpstream(c, "etherscan", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wallet": newWalletView(address, chain),
		"data":   balance,
		"cached": cached,
	})
}

// GetWalletTrackers lists the caller's tracked wallets
// GET /api/wallet/trackers
func (h *Handlers) GetWalletTrackers(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	trackers, err := h.wallets.ListTrackers(c.Request.Context(), userID)
	if err != nil {
		util.RespondInternalError(c, "failed to get wallet trackers", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trackers": trackers})
}

type addTrackerRequest struct {
	Address string `json:"address" binding:"required"`
	Chain   string `json:"chain"`
	Label   string `json:"label"`
}

// AddWalletTracker starts tracking an address
// POST /api/wallet/trackers
func (h *Handlers) AddWalletTracker(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req addTrackerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondValidationError(c, "address", "address is required")
		return
	}
	if !validation.IsValidAddress(req.Address) {
		util.RespondValidationError(c, "address", "invalid address format")
		return
	}
	chain := chains.Default()
	if req.Chain != "" {
		var err error
		if chain, err = chains.Lookup(req.Chain); err != nil {
			util.RespondValidationError(c, "chain", err.Error())
			return
		}
	}
	label := strings.TrimSpace(req.Label)
	if len([]rune(label)) > 50 {
		util.RespondValidationError(c, "label", "label must be at most 50 characters")
		return
	}

	tracker := models.WalletTracker{UserID: userID, Address: req.Address, Chain: chain.Key, Label: label}
	if err := h.wallets.AddTracker(c.Request.Context(), &tracker); err != nil {
		respondRepoError(c, err, "wallet tracker")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tracker": tracker})
}

// DeleteWalletTracker stops tracking an address
// DELETE /api/wallet/trackers/:id
func (h *Handlers) DeleteWalletTracker(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	deleted, err := h.wallets.DeleteTracker(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondInternalError(c, "failed to delete wallet tracker", err)
		return
	}
	if !deleted {
		util.RespondNotFound(c, "wallet tracker")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
