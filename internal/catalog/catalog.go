// Package catalog loads the monitored token set from a JSON file.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/mr-tron/base58"

	"solana-arb-monitor/internal/domain"
)

// entry is the per-token catalog record.
type entry struct {
	Address string `json:"address"`
	Decimal int    `json:"decimal"`
}

// Load reads a token catalog. Two shapes are accepted and yield identical
// results: a flat symbol->entry map, or the same map nested under a
// top-level "tokens" key. Any malformed entry is a fatal startup error.
func Load(path string) ([]domain.TokenSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var nested struct {
		Tokens map[string]entry `json:"tokens"`
	}
	entries := map[string]entry{}
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested.Tokens) > 0 {
		entries = nested.Tokens
	} else if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog %s contains no tokens", path)
	}

	specs := make([]domain.TokenSpec, 0, len(entries))
	for symbol, e := range entries {
		if symbol == "" {
			return nil, fmt.Errorf("catalog %s: empty token symbol", path)
		}
		if e.Decimal < 0 {
			return nil, fmt.Errorf("catalog %s: token %s has negative decimals", path, symbol)
		}
		if err := validateAddress(e.Address); err != nil {
			return nil, fmt.Errorf("catalog %s: token %s: %w", path, symbol, err)
		}
		specs = append(specs, domain.TokenSpec{
			Symbol:   symbol,
			Address:  e.Address,
			Decimals: e.Decimal,
		})
	}

	// Deterministic iteration order for the monitoring loop.
	sort.Slice(specs, func(i, j int) bool { return specs[i].Symbol < specs[j].Symbol })
	return specs, nil
}

// validateAddress checks that the address is base58 for exactly 32 bytes.
func validateAddress(addr string) error {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("invalid base58 address %q: %w", addr, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("address %q decodes to %d bytes, want 32", addr, len(decoded))
	}
	return nil
}
