package reward

import (
	"context"
	"fmt"
	"log"

	"github.com/mcb-protocol/mining-engine/internal/decimalx"
	"github.com/mcb-protocol/mining-engine/internal/errs"
	"github.com/mcb-protocol/mining-engine/internal/store"
)

// poolValue is the per-pool intermediate state computed once per sync call
// and shared by the factor-weight calculation and the final persistence
// pass, mirroring the single pool_value_info map the reference computation
// built and read twice rather than re-querying.
type poolValue struct {
	Spec                PoolSpec
	TotalShareAmount     decimalx.Decimal
	Holders              []holderShare
	UsesEffectiveShare   bool
	EffectiveShare       map[string]decimalx.Decimal
	TotalEffectiveShare  decimalx.Decimal
	PoolReward           decimalx.Decimal
}

type holderShare struct {
	Holder  string
	Balance decimalx.Decimal
}

// holderMcbBalances returns every address's MCB balance enriched with its
// pro-rata share of the UNISWAP MCB/ETH pool's MCB reserve — used both by
// the reward-factor calculation (keyed by holder) and by uniswapPoolProportion
// (keyed by a pool's own share-token address, which shows up in this same
// map as the reserve-holding contract).
func holderMcbBalances(ctx context.Context, gw store.Gateway, a Addresses) (map[string]decimalx.Decimal, error) {
	holders, err := gw.ListTokenHolders(ctx, a.McbToken)
	if err != nil {
		return nil, err
	}
	balances := make(map[string]decimalx.Decimal, len(holders))
	for _, h := range holders {
		balances[h.Holder] = h.Balance
	}

	totalMcbInPool := balances[a.UniswapMcbEthShare]
	lpHolders, err := gw.ListTokenHolders(ctx, a.UniswapMcbEthShare)
	if err != nil {
		return nil, err
	}
	totalLpSupply, err := gw.TotalTokenBalance(ctx, a.UniswapMcbEthShare)
	if err != nil {
		return nil, err
	}
	if !totalLpSupply.IsZero() {
		for _, lp := range lpHolders {
			share := totalMcbInPool.Mul(lp.Balance).Div(totalLpSupply)
			balances[lp.Holder] = balances[lp.Holder].Add(share)
		}
	}
	return balances, nil
}

// uniswapPoolProportion splits a group of UNISWAP pools' reward budget by
// each pool's share of the total MCB reserves held across all of them; if
// none of them hold any MCB, every pool in the group defaults to 1 (the
// reward split then falls through to the per-pool proportional-balance
// distribution with no group-level discount).
func uniswapPoolProportion(mcbBalances map[string]decimalx.Decimal, pools []PoolSpec) map[string]decimalx.Decimal {
	total := decimalx.Zero
	for _, p := range pools {
		total = total.Add(mcbBalances[p.ShareAddr])
	}
	out := make(map[string]decimalx.Decimal, len(pools))
	for _, p := range pools {
		if total.IsZero() {
			out[p.ShareAddr] = decimalx.NewFromInt(1)
			continue
		}
		out[p.ShareAddr] = mcbBalances[p.ShareAddr].Div(total)
	}
	return out
}

// buildGroupValues computes poolValue for every pool in group, in the same
// two-pass shape as the reference calculation: a first pass that either
// resolves a plain-proportion reward (UNISWAP pools, and AMM pools before
// the effective-share fork) or accumulates effective-usd-value for the
// pre-QIN AMM proportional split, then a second pass that finalizes the
// AMM pools' pool_reward once the group total is known.
func buildGroupValues(
	ctx context.Context, gw store.Gateway, block uint64, round Round, t Thresholds, a Addresses,
	group PoolGroup, rewardPerBlock decimalx.Decimal,
) (map[string]*poolValue, error) {
	if len(group.Pools) == 0 {
		return nil, nil
	}

	mcbBalances, err := holderMcbBalances(ctx, gw, a)
	if err != nil {
		return nil, err
	}
	var uniswapPools []PoolSpec
	for _, p := range group.Pools {
		if p.Type == PoolUniswap {
			uniswapPools = append(uniswapPools, p)
		}
	}
	proportions := uniswapPoolProportion(mcbBalances, uniswapPools)

	values := make(map[string]*poolValue, len(group.Pools))
	groupTotalEffectiveValue := decimalx.Zero

	for _, spec := range group.Pools {
		total, err := gw.TotalTokenBalance(ctx, spec.ShareAddr)
		if err != nil {
			return nil, err
		}
		holders, err := gw.ListTokenHolders(ctx, spec.ShareAddr)
		if err != nil {
			return nil, err
		}
		hs := make([]holderShare, 0, len(holders))
		for _, h := range holders {
			hs = append(hs, holderShare{Holder: h.Holder, Balance: h.Balance})
		}
		pv := &poolValue{Spec: spec, TotalShareAmount: total, Holders: hs}

		usesEffective := spec.Type == PoolAMM && t.InWindow(block) && block >= t.XiaRebalanceHardForkBlock
		if usesEffective {
			effShare, totalEff, err := effectiveShareInfo(ctx, gw, round, block, t, spec, hs, total)
			if err != nil {
				return nil, err
			}
			pv.UsesEffectiveShare = true
			pv.EffectiveShare = effShare
			pv.TotalEffectiveShare = totalEff

			usdValue, err := poolUsdValue(ctx, gw, a, block, spec)
			if err != nil {
				return nil, err
			}
			effectiveUsdValue := decimalx.Zero
			if !total.IsZero() {
				effectiveUsdValue = usdValue.Mul(totalEff).Div(total)
			} else {
				log.Printf("[reward] pool %s: share token total is zero, skipping usd value", spec.Name)
			}
			groupTotalEffectiveValue = groupTotalEffectiveValue.Add(effectiveUsdValue)
			pv.PoolReward = effectiveUsdValue // finalized in the second pass below
		} else {
			proportion, ok := proportions[spec.ShareAddr]
			if !ok {
				proportion = decimalx.NewFromInt(1)
			}
			pv.PoolReward = group.Percent.Mul(rewardPerBlock).Mul(proportion)
		}
		values[spec.Name] = pv
	}

	for _, pv := range values {
		if !pv.UsesEffectiveShare {
			continue
		}
		if block >= t.QinBeginBlock {
			proportion := pv.Spec.StaticProportion
			if proportion.IsZero() {
				proportion = decimalx.NewFromInt(1)
			}
			pv.PoolReward = group.Percent.Mul(rewardPerBlock).Mul(proportion)
			continue
		}
		if groupTotalEffectiveValue.IsZero() {
			pv.PoolReward = decimalx.Zero
			continue
		}
		pv.PoolReward = group.Percent.Mul(rewardPerBlock).Mul(pv.PoolReward).Div(groupTotalEffectiveValue)
	}

	return values, nil
}

// poolUsdValue is the AMM proxy's position value in USD: the raw position
// magnitude for an inverse contract, or the position times the latest
// ChainLink price for a vanilla (non-inverse) one. BTC_PERP is the only
// configured non-inverse pool, so it is the only one that ever resolves a
// feed address here.
func poolUsdValue(ctx context.Context, gw store.Gateway, a Addresses, block uint64, spec PoolSpec) (decimalx.Decimal, error) {
	mapping, found, err := gw.LookupShareMap(ctx, spec.ShareAddr)
	if err != nil {
		return decimalx.Zero, err
	}
	if !found {
		log.Printf("[reward] pool %s: no share map, treating position as zero", spec.Name)
		return decimalx.Zero, nil
	}
	positions, err := gw.ListPositionHolders(ctx, mapping.PerpAddr)
	if err != nil {
		return decimalx.Zero, err
	}
	position := decimalx.Zero
	for _, p := range positions {
		if p.Holder == mapping.AmmProxyAddr {
			position = p.Balance
			break
		}
	}
	if spec.Inverse {
		return decimalx.Abs(position), nil
	}
	if spec.Name != "BTC" {
		return decimalx.Zero, errs.DataInconsistency("poolUsdValue", fmt.Errorf("no price feed configured for non-inverse pool %s", spec.Name))
	}
	price, err := gw.LatestChainLinkPrice(ctx, a.ChainlinkBtcUsdFeed, block)
	if err != nil {
		return decimalx.Zero, err
	}
	return decimalx.Abs(position.Mul(price)), nil
}
