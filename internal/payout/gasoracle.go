package payout

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/mcb-protocol/mining-engine/internal/decimalx"
)

const gasOracleTimeout = 5 * time.Second

var weiPerGwei = big.NewInt(1_000_000_000)

// GasOracle fetches a gas-speed-labelled price from an external HTTP
// endpoint and converts it to wei, keeping the last known good value on any
// failure so a flaky oracle never blocks a payout cycle.
type GasOracle struct {
	url    string
	level  string
	client *http.Client

	mu    sync.Mutex
	price *big.Int
}

// NewGasOracle seeds the cache with a conservative 10 gwei default, mirroring
// the reference payer's own startup default before its first successful fetch.
func NewGasOracle(url, level string) *GasOracle {
	return &GasOracle{
		url:    url,
		level:  level,
		client: &http.Client{Timeout: gasOracleTimeout},
		price:  new(big.Int).Mul(big.NewInt(10), weiPerGwei),
	}
}

// Refresh fetches the current gas price. Any non-2xx response or parse
// failure leaves the cached price unchanged; the call never returns an
// error for that reason, since the payer must keep going with a stale
// price rather than abort the cycle.
func (g *GasOracle) Refresh(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, gasOracleTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, g.url, nil)
	if err != nil {
		log.Printf("[GasOracle] build request: %v", err)
		return
	}
	resp, err := g.client.Do(req)
	if err != nil {
		log.Printf("[GasOracle] fetch: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		log.Printf("[GasOracle] non-2xx response: %d", resp.StatusCode)
		return
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[GasOracle] read body: %v", err)
		return
	}

	var levels map[string]decimalx.Decimal
	if err := json.Unmarshal(body, &levels); err != nil {
		log.Printf("[GasOracle] parse response: %v", err)
		return
	}
	selected, ok := levels[g.level]
	if !ok {
		log.Printf("[GasOracle] response has no %q level", g.level)
		return
	}

	gwei := selected.Div(decimalx.NewFromInt(10))
	wei := gwei.Mul(decimalx.NewFromInt(1_000_000_000)).Truncate(0)
	priceWei := wei.BigInt()

	g.mu.Lock()
	g.price = priceWei
	g.mu.Unlock()
	log.Printf("[GasOracle] new gas price: %s wei", priceWei)
}

// Price returns the most recently cached gas price in wei.
func (g *GasOracle) Price() *big.Int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return new(big.Int).Set(g.price)
}
