package reward

import "github.com/mcb-protocol/mining-engine/internal/decimalx"

// PoolType distinguishes an AMM pool (backed by a perpetual position) from
// an external UNISWAP pool (backed by a plain LP share token).
type PoolType int

const (
	PoolAMM PoolType = iota
	PoolUniswap
)

// PoolSpec is one pool's static composition for a given round: its
// share-token address, type, whether its underlying contract is an inverse
// contract (BTC is the one non-inverse perpetual this module prices), and —
// from QIN onward — a static proportion of its group's budget rather than
// one derived from usd value each block.
type PoolSpec struct {
	Name             string
	Type             PoolType
	ShareAddr        string
	Inverse          bool
	StaticProportion decimalx.Decimal // zero value means "derive from usd value"
}

// PoolGroup is one reward sub-budget (AMM or UNISWAP) for a sync call: the
// pools that share it and the percent of reward_per_block the group as a
// whole receives.
type PoolGroup struct {
	Pools   []PoolSpec
	Percent decimalx.Decimal
}

var (
	pct100  = decimalx.NewFromFloatString("1")
	pct75   = decimalx.NewFromFloatString("0.75")
	pct25   = decimalx.NewFromFloatString("0.25")
	pct50   = decimalx.NewFromFloatString("0.5")
	propET8 = decimalx.NewFromFloatString("0.8")
)

// ActivePools returns the AMM and UNISWAP pool groups active for round at
// block, per the per-round composition table (§4.3 "Pool-reward
// allocation"). A group with no pools has a zero Percent and is skipped by
// the engine.
func ActivePools(round Round, block uint64, t Thresholds, a Addresses) (amm, uniswap PoolGroup) {
	switch round {
	case XIA:
		amm = PoolGroup{
			Pools:   []PoolSpec{{Name: "ETH", Type: PoolAMM, ShareAddr: a.EthPerpShare, Inverse: true}},
			Percent: pct100,
		}
		return amm, PoolGroup{}

	case SHANG:
		pools := []PoolSpec{{Name: "ETH", Type: PoolAMM, ShareAddr: a.EthPerpShare, Inverse: true}}
		if block >= t.ShangRewardLinkPoolBlock {
			pools = append(pools, PoolSpec{Name: "LINK", Type: PoolAMM, ShareAddr: a.LinkPerpShare, Inverse: true})
		}
		amm = PoolGroup{Pools: pools, Percent: pct75}
		uniswap = PoolGroup{
			Pools:   []PoolSpec{{Name: "MCB_ETH", Type: PoolUniswap, ShareAddr: a.UniswapMcbEthShare}},
			Percent: pct25,
		}
		return amm, uniswap

	case ZHOU:
		pools := []PoolSpec{
			{Name: "ETH", Type: PoolAMM, ShareAddr: a.EthPerpShare, Inverse: true},
			{Name: "LINK", Type: PoolAMM, ShareAddr: a.LinkPerpShare, Inverse: true},
		}
		if block >= t.ZhouRewardCompPoolBlock {
			pools = append(pools, PoolSpec{Name: "COMP", Type: PoolAMM, ShareAddr: a.CompPerpShare, Inverse: true})
		}
		if block >= t.ZhouRewardLendPoolBlock {
			pools = append(pools, PoolSpec{Name: "LEND", Type: PoolAMM, ShareAddr: a.LendPerpShare, Inverse: true})
		}
		if block >= t.ZhouRewardSnxPoolBlock {
			pools = append(pools, PoolSpec{Name: "SNX", Type: PoolAMM, ShareAddr: a.SnxPerpShare, Inverse: true})
		}
		amm = PoolGroup{Pools: pools, Percent: pct75}
		uniswap = PoolGroup{
			Pools:   []PoolSpec{{Name: "MCB_ETH", Type: PoolUniswap, ShareAddr: a.UniswapMcbEthShare}},
			Percent: pct25,
		}
		return amm, uniswap

	case QIN:
		// The remaining 0.2 of the AMM budget (after ETH's static 0.8) is
		// split equally among LINK/COMP/LEND/SNX, and BTC once its own
		// fork block arrives — denominator 4 or 5 accordingly.
		rest := []string{"LINK", "COMP", "LEND", "SNX"}
		restAddrs := []string{a.LinkPerpShare, a.CompPerpShare, a.LendPerpShare, a.SnxPerpShare}
		n := int64(len(rest))
		withBTC := block >= t.QinRewardBtcPoolBlock
		if withBTC {
			n++
		}
		restShare := decimalx.Ratio(2, 10).Div(decimalx.NewFromInt(n))

		pools := []PoolSpec{{Name: "ETH", Type: PoolAMM, ShareAddr: a.EthPerpShare, Inverse: true, StaticProportion: propET8}}
		for i, name := range rest {
			pools = append(pools, PoolSpec{Name: name, Type: PoolAMM, ShareAddr: restAddrs[i], Inverse: true, StaticProportion: restShare})
		}
		if withBTC {
			pools = append(pools, PoolSpec{Name: "BTC", Type: PoolAMM, ShareAddr: a.BtcPerpShare, Inverse: false, StaticProportion: restShare})
		}
		amm = PoolGroup{Pools: pools, Percent: pct50}
		uniswap = PoolGroup{
			Pools:   []PoolSpec{{Name: "MCB_ETH", Type: PoolUniswap, ShareAddr: a.UniswapMcbEthShare}},
			Percent: pct50,
		}
		return amm, uniswap

	case HAN:
		pools := []PoolSpec{
			{Name: "MCB_ETH", Type: PoolUniswap, ShareAddr: a.UniswapMcbEthShare},
			{Name: "MCB_USDC", Type: PoolUniswap, ShareAddr: a.UniswapMcbUsdcShare},
		}
		return PoolGroup{}, PoolGroup{Pools: pools, Percent: pct100}

	default:
		return PoolGroup{}, PoolGroup{}
	}
}

// RewardPerBlock returns the global per-block reward budget for round at
// block, before any per-pool split (§4.3 "Per-block reward budget").
//
// The global-vote window [11_601_000, 11_685_000) is checked first and
// overrides the budget for every round, QIN included; outside it, QIN uses
// 2 before QinReduceRewardBlock and 0.2 from it on, and every other round
// uses BaseRewardPerBlock.
func RewardPerBlock(round Round, block uint64, t Thresholds) decimalx.Decimal {
	switch {
	case block >= 11_601_000 && block < 11_685_000:
		return decimalx.NewFromFloatString("0.1875")
	case round == QIN && block < t.QinReduceRewardBlock:
		return decimalx.NewFromInt(2)
	case round == QIN && block >= t.QinReduceRewardBlock:
		return decimalx.NewFromFloatString("0.2")
	default:
		return t.BaseRewardPerBlock
	}
}
