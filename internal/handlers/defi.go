package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/feek13/mini-social-sub003/internal/cache"
	"github.com/feek13/mini-social-sub003/internal/coingecko"
	"github.com/feek13/mini-social-sub003/internal/defillama"
	"github.com/feek13/mini-social-sub003/internal/etherscan"
	"github.com/feek13/mini-social-sub003/internal/util"
	"github.com/gin-gonic/gin"
)

const (
	defaultProtocolLimit = 50
	defaultPoolLimit     = 50
	maxUpstreamLimit     = 500
)

func upstreamLimit(c *gin.Context, def int) int {
	limit := util.ParseInt(c.Query("limit"), def)
	if limit <= 0 {
		return def
	}
	if limit > maxUpstreamLimit {
		return maxUpstreamLimit
	}
	return limit
}

// GetProtocols lists DeFi protocols by TVL
// GET /api/defi/protocols?category=&chain=&limit=
func (h *Handlers) GetProtocols(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	chain := strings.TrimSpace(c.Query("chain"))
	limit := upstreamLimit(c, defaultProtocolLimit)

	key := cache.GenerateKey("defi:protocols", map[string]any{
		"category": strings.ToLower(category),
		"chain":    strings.ToLower(chain),
		"limit":    limit,
	})
	protocols, cached, err := cache.GetOrSet(c.Request.Context(), h.cache, key, cache.TTLProtocols,
		func(ctx context.Context) ([]defillama.Protocol, error) {
			all, err := h.defillama.Protocols(ctx)
			if err != nil {
				return nil, err
			}
			return defillama.TopProtocols(all, category, chain, limit), nil
		})
	if err != nil {
		respondUpstream(c, "defillama", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": protocols, "cached": cached})
}

// GetProtocol returns one protocol with its TVL history
// GET /api/defi/protocols/:slug
func (h *Handlers) GetProtocol(c *gin.Context) {
	slug := strings.ToLower(strings.TrimSpace(c.Param("slug")))
	if slug == "" {
		util.RespondValidationError(c, "slug", "protocol slug is required")
		return
	}

	key := cache.GenerateKey("defi:protocol", map[string]any{"slug": slug})
	protocol, cached, err := cache.GetOrSet(c.Request.Context(), h.cache, key, cache.TTLProtocols,
		func(ctx context.Context) (*defillama.ProtocolDetail, error) {
			return h.defillama.Protocol(ctx, slug)
		})
	if err != nil {
		respondUpstream(c, "defillama", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": protocol, "cached": cached})
}

// GetDefiChains lists chains by TVL
// GET /api/defi/chains
func (h *Handlers) GetDefiChains(c *gin.Context) {
	list, cached, err := cache.GetOrSet(c.Request.Context(), h.cache, "defi:chains", cache.TTLChains,
		func(ctx context.Context) ([]defillama.ChainTVL, error) {
			return h.defillama.Chains(ctx)
		})
	if err != nil {
		respondUpstream(c, "defillama", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "cached": cached})
}

// GetPools lists yield pools
// GET /api/defi/pools?chain=&project=&symbol=&min_tvl=&min_apy=&stablecoin=&no_il=&sort=&limit=
func (h *Handlers) GetPools(c *gin.Context) {
	var (
		chain      = strings.ToLower(strings.TrimSpace(c.Query("chain")))
		project    = strings.ToLower(strings.TrimSpace(c.Query("project")))
		symbol     = strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
		minTVL     = util.ParseFloat(c.Query("min_tvl"), 0)
		minAPY     = util.ParseFloat(c.Query("min_apy"), 0)
		stablecoin = boolQuery(c, "stablecoin")
		noIL       = boolQuery(c, "no_il")
		limit      = upstreamLimit(c, defaultPoolLimit)
	)
	sortBy, ok := defillama.ParseSortKey(c.Query("sort"))
	if !ok {
		util.RespondValidationError(c, "sort", "sort must be tvl, apy or apyBase")
		return
	}
	filter := defillama.NewPoolFilter().
		Chain(chain).
		Project(project).
		Symbol(symbol).
		MinTVL(minTVL).
		MinAPY(minAPY).
		StablecoinOnly(stablecoin).
		NoIL(noIL).
		SortBy(sortBy).
		Limit(limit)

	params := map[string]any{
		"chain":      chain,
		"project":    project,
		"symbol":     symbol,
		"min_tvl":    minTVL,
		"min_apy":    minAPY,
		"stablecoin": stablecoin,
		"no_il":      noIL,
		"sort":       sortBy,
		"limit":      limit,
	}
	key := cache.GenerateKey("defi:pools", params)
	pools, cached, err := cache.GetOrSet(c.Request.Context(), h.cache, key, cache.TTLPools,
		func(ctx context.Context) ([]defillama.Pool, error) {
			all, err := h.defillama.Pools(ctx)
			if err != nil {
				return nil, err
			}
			return filter.Apply(all), nil
		})
	if err != nil {
		respondUpstream(c, "defillama", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": pools, "cached": cached})
}

// GetGas returns the gas oracle for a chain
// GET /api/defi/gas?chain=
func (h *Handlers) GetGas(c *gin.Context) {
	chain, ok := chainParam(c)
	if !ok {
		return
	}

	key := cache.GenerateKey("defi:gas", map[string]any{"chain": chain.Key})
	gas, cached, err := cache.GetOrSet(c.Request.Context(), h.cache, key, cache.TTLGas,
		func(ctx context.Context) (*etherscan.GasOracle, error) {
			return h.etherscan.GasOracle(ctx, chain)
		})
	if err != nil {
		respondUpstream(c, "etherscan", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chain": chain.Key, "data": gas, "cached": cached})
}

// GetPrices returns spot prices
// GET /api/defi/prices?ids=ethereum,bitcoin&vs=usd,eur
func (h *Handlers) GetPrices(c *gin.Context) {
	ids := coingecko.NormalizeIDs(strings.Split(c.Query("ids"), ","))
	if len(ids) == 0 {
		util.RespondValidationError(c, "ids", "at least one coin id is required")
		return
	}
	vs := coingecko.NormalizeIDs(strings.Split(c.DefaultQuery("vs", "usd"), ","))
	if len(vs) == 0 {
		vs = []string{"usd"}
	}

	key := cache.GenerateKey("defi:prices", map[string]any{
		"ids": strings.Join(ids, ","),
		"vs":  strings.Join(vs, ","),
	})
	prices, cached, err := cache.GetOrSet(c.Request.Context(), h.cache, key, cache.TTLPrices,
		func(ctx context.Context) (coingecko.Prices, error) {
			return h.coingecko.SimplePrice(ctx, ids, vs)
		})
	if err != nil {
		respondUpstream(c, "coingecko", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": prices, "cached": cached})
}
