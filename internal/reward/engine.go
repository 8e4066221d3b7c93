package reward

import (
	"context"
	"log"

	"github.com/mcb-protocol/mining-engine/internal/decimalx"
	"github.com/mcb-protocol/mining-engine/internal/model"
	"github.com/mcb-protocol/mining-engine/internal/store"
)

// sessionRunner is the one method Engine needs from store.Store — isolating
// it lets tests supply an in-memory Gateway without a real database.
type sessionRunner interface {
	WithinTx(ctx context.Context, fn func(store.Gateway) error) error
}

// Engine computes and persists immature rewards for one configured round.
// A deployment runs exactly one Engine, pinned to one Round and one
// [BeginBlock, EndBlock] window; a new era means a new deployment, not a
// runtime round switch.
type Engine struct {
	store sessionRunner
	round Round
	t     Thresholds
	addrs Addresses
}

// NewEngine builds an Engine bound to s for the given round.
func NewEngine(s sessionRunner, round Round, t Thresholds, addrs Addresses) *Engine {
	return &Engine{store: s, round: round, t: t, addrs: addrs}
}

// Sync idempotently appends reward rows for block. Outside
// [BeginBlock, EndBlock] or if block has already been synced, it is a
// no-op.
func (e *Engine) Sync(ctx context.Context, block uint64) error {
	if !e.t.InWindow(block) {
		log.Printf("[reward] round %s: block %d outside mining window, skipping", e.round, block)
		return nil
	}
	return e.store.WithinTx(ctx, func(gw store.Gateway) error {
		synced, err := gw.ImmatureSyncedAt(ctx, string(e.round), block)
		if err != nil {
			return err
		}
		if synced {
			log.Printf("[reward] round %s: block %d already synced, skipping", e.round, block)
			return nil
		}
		rewardPerBlock := RewardPerBlock(e.round, block, e.t)
		ammGroup, uniswapGroup := ActivePools(e.round, block, e.t, e.addrs)
		for _, group := range []PoolGroup{ammGroup, uniswapGroup} {
			if len(group.Pools) == 0 {
				continue
			}
			if err := e.syncGroup(ctx, gw, block, group, rewardPerBlock); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Engine) syncGroup(ctx context.Context, gw store.Gateway, block uint64, group PoolGroup, rewardPerBlock decimalx.Decimal) error {
	values, err := buildGroupValues(ctx, gw, block, e.round, e.t, e.addrs, group, rewardPerBlock)
	if err != nil {
		return err
	}

	perPool, totals, totalAll := holderPoolRewards(values)

	var pooled map[string]decimalx.Decimal
	var perPoolW map[string]map[string]decimalx.Decimal

	if len(totals) > 0 {
		mcbBalances, err := holderMcbBalances(ctx, gw, e.addrs)
		if err != nil {
			return err
		}
		for holder, total := range totals {
			if err := gw.UpsertTheoryReward(ctx, model.TheoryMiningReward{
				Round: string(e.round), PoolType: "AMM", Holder: holder, Amount: total,
			}); err != nil {
				return err
			}
		}
		switch {
		case block >= e.t.QinBeginBlock:
			perPoolW = perPoolWeights(e.round, e.t, perPool, totals, values, mcbBalances)
		case block >= e.t.ZhouBeginBlock:
			pooled = pooledWeights(e.round, e.t, totals, totalAll, mcbBalances)
		}
	}

	for poolName, pv := range values {
		if pv.TotalShareAmount.IsZero() {
			log.Printf("[reward] pool %s: share token total is zero, skipping", poolName)
			continue
		}
		weight := weightLookup(perPoolW[poolName], pooled)

		for _, hs := range pv.Holders {
			if hs.Balance.IsZero() {
				continue
			}
			reward, ok := holderReward(pv, hs, weight)
			if !ok || reward.IsZero() {
				continue
			}
			if err := gw.InsertImmatureReward(ctx, model.ImmatureMiningReward{
				BlockNumber: block, Round: string(e.round), Pool: poolName, Holder: hs.Holder, Amount: reward,
			}); err != nil {
				return err
			}
			if err := gw.UpsertImmatureSummary(ctx, string(e.round), poolName, hs.Holder, reward); err != nil {
				return err
			}
		}
	}
	return nil
}

// weightLookup returns the holder-weight function for a pool: the QIN
// per-pool dict if present, else the ZHOU pooled dict, else the implicit
// weight of 1 applied to every pre-ZHOU pool.
func weightLookup(perPool, pooled map[string]decimalx.Decimal) func(string) decimalx.Decimal {
	one := decimalx.NewFromInt(1)
	switch {
	case perPool != nil:
		return func(h string) decimalx.Decimal {
			if w, ok := perPool[h]; ok {
				return w
			}
			return one
		}
	case pooled != nil:
		return func(h string) decimalx.Decimal {
			if w, ok := pooled[h]; ok {
				return w
			}
			return one
		}
	default:
		return func(string) decimalx.Decimal { return one }
	}
}

func holderReward(pv *poolValue, hs holderShare, weight func(string) decimalx.Decimal) (decimalx.Decimal, bool) {
	if pv.UsesEffectiveShare {
		if pv.TotalEffectiveShare.IsZero() {
			return decimalx.Zero, false
		}
		es, ok := pv.EffectiveShare[hs.Holder]
		if !ok {
			return decimalx.Zero, false
		}
		return weight(hs.Holder).Mul(pv.PoolReward).Mul(es).Div(pv.TotalEffectiveShare), true
	}
	return pv.PoolReward.Mul(hs.Balance).Div(pv.TotalShareAmount), true
}

// Rollback removes every immature reward row above block for the engine's
// round and decrements the running summary by their aggregate amount.
func (e *Engine) Rollback(ctx context.Context, block uint64) error {
	return e.store.WithinTx(ctx, func(gw store.Gateway) error {
		groups, err := gw.AggregateImmatureAbove(ctx, string(e.round), block)
		if err != nil {
			return err
		}
		for _, g := range groups {
			found, err := gw.DecrementImmatureSummary(ctx, string(e.round), g.Pool, g.Holder, g.Amount)
			if err != nil {
				return err
			}
			if !found {
				log.Printf("[reward] rollback: no summary row for round=%s pool=%s holder=%s, inconsistency logged and continuing",
					e.round, g.Pool, g.Holder)
			}
		}
		return gw.DeleteImmatureAbove(ctx, string(e.round), block)
	})
}
