package defillama

import (
	"sort"
	"strings"
)

// Sort keys accepted by PoolFilter.SortBy.
const (
	SortByTVL     = "tvl"
	SortByAPY     = "apy"
	SortByAPYBase = "apyBase"
)

// ParseSortKey maps a user-supplied sort name to its canonical key, ignoring
// case and underscores. "" means the default, SortByTVL.
func ParseSortKey(raw string) (string, bool) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "_", "")) {
	case "", "tvl":
		return SortByTVL, true
	case "apy":
		return SortByAPY, true
	case "apybase":
		return SortByAPYBase, true
	}
	return "", false
}

// PoolFilter narrows a pool list. Build it with the chained setters, then
// call Apply: filter, sort descending, truncate.
type PoolFilter struct {
	chain          string
	project        string
	symbol         string
	minTVL         float64
	minAPY         float64
	stablecoinOnly bool
	noIL           bool
	sortBy         string
	limit          int
}

func NewPoolFilter() *PoolFilter {
	return &PoolFilter{sortBy: SortByTVL}
}

func (f *PoolFilter) Chain(chain string) *PoolFilter {
	f.chain = strings.ToLower(strings.TrimSpace(chain))
	return f
}

func (f *PoolFilter) Project(project string) *PoolFilter {
	f.project = strings.ToLower(strings.TrimSpace(project))
	return f
}

// Symbol matches pools whose symbol contains s, case-insensitively.
func (f *PoolFilter) Symbol(s string) *PoolFilter {
	f.symbol = strings.ToUpper(strings.TrimSpace(s))
	return f
}

func (f *PoolFilter) MinTVL(v float64) *PoolFilter {
	f.minTVL = v
	return f
}

func (f *PoolFilter) MinAPY(v float64) *PoolFilter {
	f.minAPY = v
	return f
}

func (f *PoolFilter) StablecoinOnly(on bool) *PoolFilter {
	f.stablecoinOnly = on
	return f
}

// NoIL keeps only pools without impermanent-loss exposure.
func (f *PoolFilter) NoIL(on bool) *PoolFilter {
	f.noIL = on
	return f
}

// SortBy sets the descending sort key. Unknown keys keep the current one.
func (f *PoolFilter) SortBy(key string) *PoolFilter {
	switch key {
	case SortByTVL, SortByAPY, SortByAPYBase:
		f.sortBy = key
	}
	return f
}

// Limit caps the result; zero or negative means no cap.
func (f *PoolFilter) Limit(n int) *PoolFilter {
	f.limit = n
	return f
}

func (f *PoolFilter) match(p Pool) bool {
	if f.chain != "" && strings.ToLower(p.Chain) != f.chain {
		return false
	}
	if f.project != "" && strings.ToLower(p.Project) != f.project {
		return false
	}
	if f.symbol != "" && !strings.Contains(strings.ToUpper(p.Symbol), f.symbol) {
		return false
	}
	if p.TVLUsd < f.minTVL {
		return false
	}
	if f.minAPY > 0 && deref(p.APY) < f.minAPY {
		return false
	}
	if f.stablecoinOnly && !p.Stablecoin {
		return false
	}
	if f.noIL && p.ILRisk != "no" {
		return false
	}
	return true
}

func (f *PoolFilter) sortValue(p Pool) float64 {
	switch f.sortBy {
	case SortByAPY:
		return deref(p.APY)
	case SortByAPYBase:
		return deref(p.APYBase)
	default:
		return p.TVLUsd
	}
}

// Apply returns a new slice; pools is not modified.
func (f *PoolFilter) Apply(pools []Pool) []Pool {
	out := make([]Pool, 0, len(pools))
	for _, p := range pools {
		if f.match(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return f.sortValue(out[i]) > f.sortValue(out[j])
	})
	if f.limit > 0 && len(out) > f.limit {
		out = out[:f.limit]
	}
	return out
}

// TopProtocols filters by category and chain (both optional, case-insensitive),
// sorts by TVL descending and keeps the first limit entries.
func TopProtocols(protocols []Protocol, category, chain string, limit int) []Protocol {
	out := make([]Protocol, 0, len(protocols))
	for _, p := range protocols {
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if chain != "" && !hasChain(p.Chains, chain) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TVL > out[j].TVL })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func hasChain(chains []string, chain string) bool {
	for _, c := range chains {
		if strings.EqualFold(c, chain) {
			return true
		}
	}
	return false
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
