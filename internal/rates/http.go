package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// HTTPProvider fetches rates from a remote JSON API and caches the table
// for a short TTL so list endpoints don't hammer the upstream.
type HTTPProvider struct {
	baseURL string
	base    string
	client  *http.Client

	mu        sync.Mutex
	table     map[string]float64
	fetchedAt time.Time
	ttl       time.Duration
}

// NewHTTPProvider creates a provider reading from baseURL, which must serve
// {"base": "USD", "rates": {"EUR": 0.92, ...}}.
func NewHTTPProvider(baseURL, base string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		baseURL: baseURL,
		base:    strings.ToUpper(base),
		client:  &http.Client{Timeout: timeout},
		ttl:     5 * time.Minute,
	}
}

func (p *HTTPProvider) Rate(ctx context.Context, from, to string) (float64, error) {
	table, err := p.fetch(ctx)
	if err != nil {
		return 0, err
	}
	fromRate, ok := table[from]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, from)
	}
	toRate, ok := table[to]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, to)
	}
	return toRate / fromRate, nil
}

func (p *HTTPProvider) fetch(ctx context.Context) (map[string]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.table != nil && time.Since(p.fetchedAt) < p.ttl {
		return p.table, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build rates request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		// Serve the stale table rather than failing display conversion.
		if p.table != nil {
			return p.table, nil
		}
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if p.table != nil {
			return p.table, nil
		}
		return nil, fmt.Errorf("fetch rates: status %d", resp.StatusCode)
	}

	var out struct {
		Base  string             `json:"base"`
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}

	table := make(map[string]float64, len(out.Rates)+1)
	for code, rate := range out.Rates {
		table[strings.ToUpper(code)] = rate
	}
	base := p.base
	if out.Base != "" {
		base = strings.ToUpper(out.Base)
	}
	table[base] = 1

	p.table = table
	p.fetchedAt = time.Now()
	return table, nil
}
