// Package chains is the registry of EVM networks the wallet and gas views
// can switch between.
package chains

import (
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed chains.yaml
var registryYAML []byte

// Chain describes one EVM network.
type Chain struct {
	Key            string `yaml:"key" json:"key"`
	ChainID        int64  `yaml:"chain_id" json:"chain_id"`
	Name           string `yaml:"name" json:"name"`
	Symbol         string `yaml:"symbol" json:"symbol"`
	Decimals       int    `yaml:"decimals" json:"decimals"`
	CoinGeckoID    string `yaml:"coingecko_id" json:"coingecko_id"`
	AlchemyNetwork string `yaml:"alchemy_network" json:"alchemy_network"`
	Explorer       string `yaml:"explorer" json:"explorer"`
}

type registryFile struct {
	Default string  `yaml:"default"`
	Chains  []Chain `yaml:"chains"`
}

// Registry indexes chains by key and by chain id.
type Registry struct {
	byKey      map[string]Chain
	byID       map[int64]Chain
	defaultKey string
}

// ErrUnknownChain is returned for a key or id that is not registered.
type ErrUnknownChain struct {
	Chain string
}

func (e *ErrUnknownChain) Error() string {
	return fmt.Sprintf("unsupported chain %q", e.Chain)
}

// Parse builds a registry from a YAML document.
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse chain registry: %w", err)
	}

	r := &Registry{
		byKey:      make(map[string]Chain, len(file.Chains)),
		byID:       make(map[int64]Chain, len(file.Chains)),
		defaultKey: file.Default,
	}
	for _, c := range file.Chains {
		if c.Key == "" || c.ChainID == 0 {
			return nil, fmt.Errorf("chain entry missing key or chain_id: %+v", c)
		}
		if _, dup := r.byKey[c.Key]; dup {
			return nil, fmt.Errorf("duplicate chain key %q", c.Key)
		}
		r.byKey[c.Key] = c
		r.byID[c.ChainID] = c
	}
	if _, ok := r.byKey[r.defaultKey]; !ok {
		return nil, fmt.Errorf("default chain %q is not registered", r.defaultKey)
	}
	return r, nil
}

var defaultRegistry = mustParse(registryYAML)

func mustParse(data []byte) *Registry {
	r, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return r
}

// Get looks a chain up by key, case-insensitively. An empty key yields the
// default chain.
func (r *Registry) Get(key string) (Chain, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return r.Default(), nil
	}
	c, ok := r.byKey[key]
	if !ok {
		return Chain{}, &ErrUnknownChain{Chain: key}
	}
	return c, nil
}

func (r *Registry) ByID(id int64) (Chain, error) {
	c, ok := r.byID[id]
	if !ok {
		return Chain{}, &ErrUnknownChain{Chain: fmt.Sprint(id)}
	}
	return c, nil
}

// Lookup resolves a chain key, or a chain id written in decimal ("137") or
// as a wallet-style hex string ("0x89").
func (r *Registry) Lookup(s string) (Chain, error) {
	s = strings.TrimSpace(s)
	if id, ok := parseChainID(s); ok {
		return r.ByID(id)
	}
	return r.Get(s)
}

func parseChainID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if hex, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		id, err := strconv.ParseInt(hex, 16, 64)
		return id, err == nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil
}

func (r *Registry) Default() Chain {
	return r.byKey[r.defaultKey]
}

// All returns every chain ordered by chain id.
func (r *Registry) All() []Chain {
	out := make([]Chain, 0, len(r.byKey))
	for _, c := range r.byKey {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

func Get(key string) (Chain, error) { return defaultRegistry.Get(key) }
func ByID(id int64) (Chain, error)  { return defaultRegistry.ByID(id) }
func Lookup(s string) (Chain, error) { return defaultRegistry.Lookup(s) }
func Default() Chain                { return defaultRegistry.Default() }
func All() []Chain                  { return defaultRegistry.All() }
