package payout

import (
	"context"

	"github.com/mcb-protocol/mining-engine/internal/decimalx"
	"github.com/mcb-protocol/mining-engine/internal/model"
	"github.com/mcb-protocol/mining-engine/internal/store"
)

var _ store.Gateway = (*fakeGateway)(nil)

// fakeGateway is an in-memory store.Gateway used to exercise the payer
// without a database. Only the methods the payer actually calls carry real
// behavior; the rest are unused stubs that satisfy the interface.
type fakeGateway struct {
	pending     []model.PaymentTransaction
	unpaid      []model.HolderBalance
	payments    []model.Payment
	roundPays   []model.RoundPayment
	transaction map[string]model.PaymentTransaction
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{transaction: map[string]model.PaymentTransaction{}}
}

func (f *fakeGateway) TotalTokenBalance(ctx context.Context, token string) (decimalx.Decimal, error) {
	return decimalx.Zero, nil
}
func (f *fakeGateway) ListTokenHolders(ctx context.Context, token string) ([]model.HolderBalance, error) {
	return nil, nil
}
func (f *fakeGateway) ListPositionHolders(ctx context.Context, perp string) ([]model.HolderBalance, error) {
	return nil, nil
}
func (f *fakeGateway) LookupShareMap(ctx context.Context, share string) (model.PerpShareAmmMap, bool, error) {
	return model.PerpShareAmmMap{}, false, nil
}
func (f *fakeGateway) LatestChainLinkPrice(ctx context.Context, feed string, block uint64) (decimalx.Decimal, error) {
	return decimalx.Zero, nil
}
func (f *fakeGateway) ListTheoryRewards(ctx context.Context, round string) ([]model.TheoryMiningReward, error) {
	return nil, nil
}
func (f *fakeGateway) UpsertTheoryReward(ctx context.Context, r model.TheoryMiningReward) error {
	return nil
}
func (f *fakeGateway) ImmatureSyncedAt(ctx context.Context, round string, block uint64) (bool, error) {
	return false, nil
}
func (f *fakeGateway) InsertImmatureReward(ctx context.Context, r model.ImmatureMiningReward) error {
	return nil
}
func (f *fakeGateway) UpsertImmatureSummary(ctx context.Context, round, pool, holder string, delta decimalx.Decimal) error {
	return nil
}
func (f *fakeGateway) AggregateImmatureAbove(ctx context.Context, round string, block uint64) ([]model.PoolHolderAmount, error) {
	return nil, nil
}
func (f *fakeGateway) DecrementImmatureSummary(ctx context.Context, round, pool, holder string, amount decimalx.Decimal) (bool, error) {
	return false, nil
}
func (f *fakeGateway) DeleteImmatureAbove(ctx context.Context, round string, block uint64) error {
	return nil
}
func (f *fakeGateway) MatureRewards(ctx context.Context, round string, currentBlock, maturityBlocks uint64) ([]model.HolderBalance, error) {
	return nil, nil
}

func (f *fakeGateway) LatestPaymentTransaction(ctx context.Context) (model.PaymentTransaction, bool, error) {
	var latest model.PaymentTransaction
	found := false
	for _, tx := range f.transaction {
		if !found || tx.Nonce > latest.Nonce {
			latest = tx
			found = true
		}
	}
	return latest, found, nil
}

func (f *fakeGateway) InsertPaymentTransaction(ctx context.Context, tx model.PaymentTransaction) error {
	f.transaction[tx.ID] = tx
	return nil
}

func (f *fakeGateway) UpdatePaymentTransactionStatus(ctx context.Context, id string, status model.PaymentStatus, txHash string) error {
	tx := f.transaction[id]
	tx.Status = status
	tx.TxHash = txHash
	f.transaction[id] = tx
	return nil
}

func (f *fakeGateway) ListPendingPaymentTransactions(ctx context.Context) ([]model.PaymentTransaction, error) {
	return f.pending, nil
}

func (f *fakeGateway) UnpaidRewards(ctx context.Context, round string, currentBlock, maturityBlocks uint64) ([]model.HolderBalance, error) {
	return f.unpaid, nil
}

func (f *fakeGateway) InsertPayments(ctx context.Context, transactionID string, round string, holders []string, amounts []decimalx.Decimal) error {
	for i, h := range holders {
		f.payments = append(f.payments, model.Payment{Holder: h, Amount: amounts[i], TransactionID: transactionID})
		f.roundPays = append(f.roundPays, model.RoundPayment{Round: round, Holder: h, Amount: amounts[i]})
	}
	return nil
}

// fakeRunner adapts a *fakeGateway to sessionRunner.
type fakeRunner struct{ gw *fakeGateway }

func (r fakeRunner) WithinTx(ctx context.Context, fn func(store.Gateway) error) error {
	return fn(r.gw)
}
