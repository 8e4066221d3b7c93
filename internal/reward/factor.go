package reward

import "github.com/mcb-protocol/mining-engine/internal/decimalx"

// rewardFactor is the MCB-holdings boost applied to a holder's AMM share
// from ZHOU onward (§4.3 "Reward factor"). mcbWeight is capped at 1 before
// scaling by M, per the source's `if mcb_weight < 1` branch (a holder who
// already clears the N*reward threshold gets the full 1+M factor rather
// than one that keeps growing with their MCB balance).
func rewardFactor(round Round, t Thresholds, totalReward, mcbBalance decimalx.Decimal) decimalx.Decimal {
	m, n := t.FactorConstants(round)
	if totalReward.IsZero() {
		return decimalx.NewFromInt(1)
	}
	mcbWeight := mcbBalance.Div(totalReward.Mul(n))
	if mcbWeight.Cmp(decimalx.NewFromInt(1)) >= 0 {
		mcbWeight = decimalx.NewFromInt(1)
	}
	return decimalx.NewFromInt(1).Add(mcbWeight.Mul(m))
}

// holderPoolRewards is the raw, pre-factor, per-holder-per-pool AMM reward
// derived from each pool's effective share — used both to seed the
// theoretical-reward snapshot and as the base the factor weight scales.
func holderPoolRewards(values map[string]*poolValue) (perPool map[string]map[string]decimalx.Decimal, totals map[string]decimalx.Decimal, totalAll decimalx.Decimal) {
	perPool = make(map[string]map[string]decimalx.Decimal)
	totals = make(map[string]decimalx.Decimal)
	totalAll = decimalx.Zero

	for poolName, pv := range values {
		if !pv.UsesEffectiveShare || pv.TotalShareAmount.IsZero() || pv.TotalEffectiveShare.IsZero() {
			continue
		}
		holderRewards := make(map[string]decimalx.Decimal)
		for _, hs := range pv.Holders {
			if hs.Balance.IsZero() {
				continue
			}
			es, ok := pv.EffectiveShare[hs.Holder]
			if !ok {
				continue
			}
			reward := pv.PoolReward.Mul(es).Div(pv.TotalEffectiveShare)
			holderRewards[hs.Holder] = reward
			totals[hs.Holder] = totals[hs.Holder].Add(reward)
			totalAll = totalAll.Add(reward)
		}
		perPool[poolName] = holderRewards
	}
	return perPool, totals, totalAll
}

// pooledWeights is ZHOU's cross-pool weighting: every holder gets one
// global weight derived from their total AMM reward share and reward
// factor, applied uniformly across whichever pools they participate in.
func pooledWeights(round Round, t Thresholds, totals map[string]decimalx.Decimal, totalAll decimalx.Decimal, mcbBalances map[string]decimalx.Decimal) map[string]decimalx.Decimal {
	weights := make(map[string]decimalx.Decimal, len(totals))
	if totalAll.IsZero() {
		return weights
	}
	factors := make(map[string]decimalx.Decimal, len(totals))
	weightedSum := decimalx.Zero
	for holder, reward := range totals {
		factor := rewardFactor(round, t, reward, mcbBalances[holder])
		factors[holder] = factor
		percent := reward.Div(totalAll)
		weightedSum = weightedSum.Add(percent.Mul(factor))
	}
	if weightedSum.IsZero() {
		return weights
	}
	for holder, factor := range factors {
		weights[holder] = factor.Div(weightedSum)
	}
	return weights
}

// perPoolWeights is QIN's per-pool weighting: each pool normalizes its own
// holders' weights independently, but every holder's factor still uses
// their reward summed across ALL AMM pools, not just the pool being
// normalized — a literal carry-over from the reference engine's factor
// calculation, not a bug this module fixes (see DESIGN.md).
func perPoolWeights(round Round, t Thresholds, perPool map[string]map[string]decimalx.Decimal, totals map[string]decimalx.Decimal, values map[string]*poolValue, mcbBalances map[string]decimalx.Decimal) map[string]map[string]decimalx.Decimal {
	out := make(map[string]map[string]decimalx.Decimal, len(perPool))
	for poolName, holderRewards := range perPool {
		pv := values[poolName]
		weights := make(map[string]decimalx.Decimal, len(holderRewards))
		if pv.PoolReward.IsZero() {
			out[poolName] = weights
			continue
		}
		factors := make(map[string]decimalx.Decimal, len(holderRewards))
		denom := decimalx.Zero
		for holder, r := range holderRewards {
			totalReward := totals[holder]
			factor := rewardFactor(round, t, totalReward, mcbBalances[holder])
			factors[holder] = factor
			percent := r.Div(pv.PoolReward)
			denom = denom.Add(percent.Mul(factor))
		}
		if !denom.IsZero() {
			for holder, factor := range factors {
				weights[holder] = factor.Div(denom)
			}
		}
		out[poolName] = weights
	}
	return out
}
