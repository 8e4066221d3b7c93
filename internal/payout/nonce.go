package payout

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mcb-protocol/mining-engine/internal/chain"
	"github.com/mcb-protocol/mining-engine/internal/store"
)

// NonceSource owns the payer's nonce invariant — strictly monotonic, never
// reused — as its own type rather than a bare mutable field, so the
// invariant has exactly one place it can be checked or violated.
type NonceSource struct {
	mu   sync.Mutex
	next uint64
}

// LoadNonceSource bootstraps the cache from the highest transaction_nonce
// ever recorded; if no PaymentTransaction exists yet it falls back to the
// chain's own transaction count for the payer address.
func LoadNonceSource(ctx context.Context, gw store.Gateway, client *chain.Client, payer common.Address) (*NonceSource, error) {
	latest, found, err := gw.LatestPaymentTransaction(ctx)
	if err != nil {
		return nil, err
	}
	if found {
		return &NonceSource{next: latest.Nonce + 1}, nil
	}
	count, err := client.TransactionCount(ctx, payer)
	if err != nil {
		return nil, err
	}
	return &NonceSource{next: count + 1}, nil
}

// Next returns the next nonce to use and advances the cache, so the value
// returned is never handed out twice even under concurrent calls (though
// the payer's own single-worker scheduling model never actually overlaps
// calls to this method).
func (n *NonceSource) Next() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	v := n.next
	n.next++
	return v
}

// Peek returns the next nonce without advancing the cache.
func (n *NonceSource) Peek() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.next
}
