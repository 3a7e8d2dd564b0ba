// Package tokens fetches the Jupiter token list and answers tradability checks.
package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/malyshevid/volume-bot/internal/metrics"
)

// Entry is one token list record. Trades is a pointer because an absent
// field and an explicit zero mean different things: only a literal zero
// marks the token as inactive.
type Entry struct {
	Address    string     `json:"address"`
	Trades     *int64     `json:"trades"`
	Extensions Extensions `json:"extensions"`
}

// Extensions carries the optional per-token metadata map; only the
// coingecko identifier matters for the tradability check.
type Extensions struct {
	CoingeckoID string `json:"coingeckoId"`
}

// Registry holds the set of addresses considered tradable.
type Registry struct {
	tradable map[string]struct{}
}

func (e Entry) tradable() bool {
	if e.Trades != nil && *e.Trades == 0 && e.Extensions.CoingeckoID == "" {
		return false
	}
	return true
}

// NewRegistry builds the tradable set from raw token list entries.
func NewRegistry(entries []Entry) *Registry {
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.tradable() {
			set[e.Address] = struct{}{}
		}
	}
	return &Registry{tradable: set}
}

// Tradable reports whether the mint appeared in the list with trade
// activity or a coingecko listing.
func (r *Registry) Tradable(mint string) bool {
	_, ok := r.tradable[mint]
	return ok
}

// Len returns the number of tradable addresses, for logging.
func (r *Registry) Len() int { return len(r.tradable) }

// Fetch downloads the token list. Any failure here (transport error,
// non-2xx status, undecodable body) is returned to the caller, which is
// expected to skip the tradability gate rather than abort.
func Fetch(ctx context.Context, client *http.Client, url, userAgent string) (*Registry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	metrics.HTTPRequestsTotal.WithLabelValues("token_list", strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode token list: %w", err)
	}
	return NewRegistry(entries), nil
}
