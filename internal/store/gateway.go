// Package store is the Data Access Gateway: every read or write the reward
// engine and payer perform against persistent state goes through a named,
// typed Gateway operation rather than ad hoc SQL scattered across the
// packages that need it. A Gateway is only ever obtained from inside
// Store.WithinTx, which decides commit-or-rollback for everything done
// within one call rather than leaving each operation to manage its own
// transaction.
package store

import (
	"context"

	"github.com/mcb-protocol/mining-engine/internal/decimalx"
	"github.com/mcb-protocol/mining-engine/internal/model"
)

// Gateway is the full set of named operations the reward engine, the
// maturity projection, and the payer perform against persistent state.
// Every method takes the ctx of the surrounding cycle; none opens its own
// transaction — that is Store.WithinTx's job.
type Gateway interface {
	// TotalTokenBalance sums every holder's balance of token, as currently
	// watched (no block parameter: the watcher keeps exactly one live view
	// of balances, not a historical one).
	TotalTokenBalance(ctx context.Context, token string) (decimalx.Decimal, error)

	// ListTokenHolders returns every holder with a nonzero balance of
	// token.
	ListTokenHolders(ctx context.Context, token string) ([]model.HolderBalance, error)

	// ListPositionHolders returns every holder with a nonzero position
	// balance on perp, including the AMM proxy's own row if it has one.
	ListPositionHolders(ctx context.Context, perp string) ([]model.HolderBalance, error)

	// LookupShareMap resolves a share-token address to its perpetual/AMM
	// addresses. Returns found=false if share has no mapping.
	LookupShareMap(ctx context.Context, share string) (mapping model.PerpShareAmmMap, found bool, err error)

	// LatestChainLinkPrice returns the most recent price for feed at or
	// before block. Returns errs.ErrPriceNotSynced if no such row exists.
	LatestChainLinkPrice(ctx context.Context, feed string, block uint64) (decimalx.Decimal, error)

	// ListTheoryRewards returns every TheoryMiningReward row for round.
	ListTheoryRewards(ctx context.Context, round string) ([]model.TheoryMiningReward, error)

	// UpsertTheoryReward overwrites the last-writer-wins theoretical reward
	// snapshot for (round, poolType, holder).
	UpsertTheoryReward(ctx context.Context, r model.TheoryMiningReward) error

	// ImmatureSyncedAt reports whether any ImmatureMiningReward row already
	// exists for (round, block), letting Sync treat the whole block as a
	// no-op rather than checking idempotency per holder.
	ImmatureSyncedAt(ctx context.Context, round string, block uint64) (bool, error)

	// InsertImmatureReward appends one immature reward row.
	InsertImmatureReward(ctx context.Context, r model.ImmatureMiningReward) error

	// UpsertImmatureSummary adds delta to the running summary row for
	// (round, pool, holder), creating it if absent.
	UpsertImmatureSummary(ctx context.Context, round, pool, holder string, delta decimalx.Decimal) error

	// AggregateImmatureAbove sums ImmatureMiningReward rows with
	// BlockNumber > block for round, grouped by (pool, holder) — the
	// amounts Rollback subtracts from the summary before deleting the rows.
	AggregateImmatureAbove(ctx context.Context, round string, block uint64) ([]model.PoolHolderAmount, error)

	// DecrementImmatureSummary subtracts amount from the summary row for
	// (round, pool, holder). found is false (and the row untouched) when no
	// such summary row exists, so Rollback can log the inconsistency
	// instead of fabricating a negative-balance row.
	DecrementImmatureSummary(ctx context.Context, round, pool, holder string, amount decimalx.Decimal) (found bool, err error)

	// DeleteImmatureAbove deletes every ImmatureMiningReward row with
	// BlockNumber > block for round.
	DeleteImmatureAbove(ctx context.Context, round string, block uint64) error

	// MatureRewards aggregates, per holder, the summary total for round
	// minus whatever of it is still immature (rows younger than
	// maturityBlocks behind currentBlock) — an on-read projection, not a
	// materialized table.
	MatureRewards(ctx context.Context, round string, currentBlock, maturityBlocks uint64) ([]model.HolderBalance, error)

	// LatestPaymentTransaction returns the PaymentTransaction with the
	// highest nonce, if any.
	LatestPaymentTransaction(ctx context.Context) (tx model.PaymentTransaction, found bool, err error)

	// InsertPaymentTransaction appends a new PaymentTransaction.
	InsertPaymentTransaction(ctx context.Context, tx model.PaymentTransaction) error

	// UpdatePaymentTransactionStatus transitions a PaymentTransaction's
	// status, optionally recording its on-chain hash.
	UpdatePaymentTransactionStatus(ctx context.Context, id string, status model.PaymentStatus, txHash string) error

	// ListPendingPaymentTransactions returns every PaymentTransaction in
	// INIT or PENDING status, oldest first.
	ListPendingPaymentTransactions(ctx context.Context) ([]model.PaymentTransaction, error)

	// UnpaidRewards returns, for round, each holder's mature balance minus
	// everything already recorded via RoundPayment, restricted to entries
	// strictly greater than zero.
	UnpaidRewards(ctx context.Context, round string, currentBlock, maturityBlocks uint64) ([]model.HolderBalance, error)

	// InsertPayments writes one Payment and one RoundPayment row per
	// (holder, amount) pair for a transaction that reached SUCCESS.
	InsertPayments(ctx context.Context, transactionID string, round string, holders []string, amounts []decimalx.Decimal) error
}
