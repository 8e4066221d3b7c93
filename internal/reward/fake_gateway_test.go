package reward

import (
	"context"
	"sort"

	"github.com/mcb-protocol/mining-engine/internal/decimalx"
	"github.com/mcb-protocol/mining-engine/internal/errs"
	"github.com/mcb-protocol/mining-engine/internal/model"
	"github.com/mcb-protocol/mining-engine/internal/store"
)

var _ store.Gateway = (*fakeGateway)(nil)

// fakeGateway is an in-memory store.Gateway used to exercise the engine
// without a database; it implements the full interface so it type-checks
// against store.Gateway, but only the methods the reward engine actually
// calls carry real behavior.
type fakeGateway struct {
	tokenBalances    map[string]map[string]decimalx.Decimal
	positionBalances map[string]map[string]decimalx.Decimal
	shareMap         map[string]model.PerpShareAmmMap
	prices           map[string][]priceAt
	summary          map[string]decimalx.Decimal
	immature         []model.ImmatureMiningReward
	theory           map[string]model.TheoryMiningReward
}

type priceAt struct {
	block uint64
	price decimalx.Decimal
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		tokenBalances:    map[string]map[string]decimalx.Decimal{},
		positionBalances: map[string]map[string]decimalx.Decimal{},
		shareMap:         map[string]model.PerpShareAmmMap{},
		prices:           map[string][]priceAt{},
		summary:          map[string]decimalx.Decimal{},
		theory:           map[string]model.TheoryMiningReward{},
	}
}

func (f *fakeGateway) setTokenBalance(token, holder string, amount decimalx.Decimal) {
	if f.tokenBalances[token] == nil {
		f.tokenBalances[token] = map[string]decimalx.Decimal{}
	}
	f.tokenBalances[token][holder] = amount
}

func (f *fakeGateway) setPositionBalance(perp, holder string, amount decimalx.Decimal) {
	if f.positionBalances[perp] == nil {
		f.positionBalances[perp] = map[string]decimalx.Decimal{}
	}
	f.positionBalances[perp][holder] = amount
}

func (f *fakeGateway) TotalTokenBalance(ctx context.Context, token string) (decimalx.Decimal, error) {
	total := decimalx.Zero
	for _, v := range f.tokenBalances[token] {
		total = total.Add(v)
	}
	return total, nil
}

func (f *fakeGateway) ListTokenHolders(ctx context.Context, token string) ([]model.HolderBalance, error) {
	var out []model.HolderBalance
	for h, v := range f.tokenBalances[token] {
		if !v.IsZero() {
			out = append(out, model.HolderBalance{Holder: h, Balance: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Holder < out[j].Holder })
	return out, nil
}

func (f *fakeGateway) ListPositionHolders(ctx context.Context, perp string) ([]model.HolderBalance, error) {
	var out []model.HolderBalance
	for h, v := range f.positionBalances[perp] {
		if !v.IsZero() {
			out = append(out, model.HolderBalance{Holder: h, Balance: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Holder < out[j].Holder })
	return out, nil
}

func (f *fakeGateway) LookupShareMap(ctx context.Context, share string) (model.PerpShareAmmMap, bool, error) {
	m, ok := f.shareMap[share]
	return m, ok, nil
}

func (f *fakeGateway) LatestChainLinkPrice(ctx context.Context, feed string, block uint64) (decimalx.Decimal, error) {
	var best *priceAt
	for i := range f.prices[feed] {
		p := f.prices[feed][i]
		if p.block <= block && (best == nil || p.block > best.block) {
			best = &p
		}
	}
	if best == nil {
		return decimalx.Zero, errs.ErrPriceNotSynced
	}
	return best.price, nil
}

func (f *fakeGateway) ListTheoryRewards(ctx context.Context, round string) ([]model.TheoryMiningReward, error) {
	var out []model.TheoryMiningReward
	for _, t := range f.theory {
		if t.Round == round {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeGateway) UpsertTheoryReward(ctx context.Context, r model.TheoryMiningReward) error {
	f.theory[r.Round+"|"+r.PoolType+"|"+r.Holder] = r
	return nil
}

func (f *fakeGateway) ImmatureSyncedAt(ctx context.Context, round string, block uint64) (bool, error) {
	for _, r := range f.immature {
		if r.Round == round && r.BlockNumber == block {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGateway) InsertImmatureReward(ctx context.Context, r model.ImmatureMiningReward) error {
	f.immature = append(f.immature, r)
	return nil
}

func (f *fakeGateway) UpsertImmatureSummary(ctx context.Context, round, pool, holder string, delta decimalx.Decimal) error {
	k := round + "|" + pool + "|" + holder
	f.summary[k] = f.summary[k].Add(delta)
	return nil
}

func (f *fakeGateway) AggregateImmatureAbove(ctx context.Context, round string, block uint64) ([]model.PoolHolderAmount, error) {
	totals := map[string]decimalx.Decimal{}
	for _, r := range f.immature {
		if r.Round == round && r.BlockNumber > block {
			totals[r.Pool+"|"+r.Holder] = totals[r.Pool+"|"+r.Holder].Add(r.Amount)
		}
	}
	var out []model.PoolHolderAmount
	for k, v := range totals {
		pool, holder := splitKey2(k)
		out = append(out, model.PoolHolderAmount{Pool: pool, Holder: holder, Amount: v})
	}
	return out, nil
}

func (f *fakeGateway) DeleteImmatureAbove(ctx context.Context, round string, block uint64) error {
	var kept []model.ImmatureMiningReward
	for _, r := range f.immature {
		if r.Round == round && r.BlockNumber > block {
			continue
		}
		kept = append(kept, r)
	}
	f.immature = kept
	return nil
}

func (f *fakeGateway) DecrementImmatureSummary(ctx context.Context, round, pool, holder string, amount decimalx.Decimal) (bool, error) {
	k := round + "|" + pool + "|" + holder
	if _, ok := f.summary[k]; !ok {
		return false, nil
	}
	f.summary[k] = f.summary[k].Sub(amount)
	return true, nil
}

func (f *fakeGateway) MatureRewards(ctx context.Context, round string, currentBlock, maturityBlocks uint64) ([]model.HolderBalance, error) {
	return nil, nil
}

func (f *fakeGateway) LatestPaymentTransaction(ctx context.Context) (model.PaymentTransaction, bool, error) {
	return model.PaymentTransaction{}, false, nil
}

func (f *fakeGateway) InsertPaymentTransaction(ctx context.Context, tx model.PaymentTransaction) error {
	return nil
}

func (f *fakeGateway) UpdatePaymentTransactionStatus(ctx context.Context, id string, status model.PaymentStatus, txHash string) error {
	return nil
}

func (f *fakeGateway) ListPendingPaymentTransactions(ctx context.Context) ([]model.PaymentTransaction, error) {
	return nil, nil
}

func (f *fakeGateway) UnpaidRewards(ctx context.Context, round string, currentBlock, maturityBlocks uint64) ([]model.HolderBalance, error) {
	return nil, nil
}

func (f *fakeGateway) InsertPayments(ctx context.Context, transactionID string, round string, holders []string, amounts []decimalx.Decimal) error {
	return nil
}

// fakeRunner adapts a *fakeGateway to sessionRunner: no real transaction
// boundary, fn just runs directly against the shared fake.
type fakeRunner struct{ gw *fakeGateway }

func (r fakeRunner) WithinTx(ctx context.Context, fn func(store.Gateway) error) error {
	return fn(r.gw)
}

func shareMapFixture(share, perp, ammProxy string) model.PerpShareAmmMap {
	return model.PerpShareAmmMap{ShareAddr: share, PerpAddr: perp, AmmAddr: ammProxy, AmmProxyAddr: ammProxy}
}

func splitKey2(k string) (string, string) {
	for i := 0; i < len(k); i++ {
		if k[i] == '|' {
			return k[:i], k[i+1:]
		}
	}
	return k, ""
}
