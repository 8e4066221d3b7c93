// Package reward implements the multi-era, multi-pool weighted reward
// allocation: given a block and a mining round, it computes each liquidity
// provider's contribution for that block and persists it as an immature
// reward row. The hard-fork thresholds and round-specific formula branches
// below are carried over literally from the reference mining-reward syncer
// this module replaces — the comments call out which source section each
// branch corresponds to because the era logic has no other documentation.
package reward

import "github.com/mcb-protocol/mining-engine/internal/decimalx"

// Round names a mining era. Each has its own pool composition, reward
// split, and factor policy — see Thresholds and ActivePools.
type Round string

const (
	XIA   Round = "XIA"
	SHANG Round = "SHANG"
	ZHOU  Round = "ZHOU"
	QIN   Round = "QIN"
	HAN   Round = "HAN"
)

// Valid reports whether r is one of the five known rounds.
func (r Round) Valid() bool {
	switch r {
	case XIA, SHANG, ZHOU, QIN, HAN:
		return true
	default:
		return false
	}
}

// Thresholds carries every hard-fork block number and factor constant that
// governs era-dependent behavior; internal/config loads all of it from the
// environment. The fork blocks and factor constants use the variables
// enumerated in the spec (§6); MaturityBlocks, BeginBlock, EndBlock and
// BaseRewardPerBlock use variables outside that list (see DESIGN.md).
type Thresholds struct {
	XiaRebalanceHardForkBlock uint64
	ShangRewardLinkPoolBlock  uint64
	ShangRewardBtcPoolBlock   uint64
	ZhouBeginBlock            uint64
	ZhouRewardCompPoolBlock   uint64
	ZhouRewardLendPoolBlock   uint64
	ZhouRewardSnxPoolBlock    uint64
	QinBeginBlock             uint64
	QinReduceRewardBlock      uint64
	QinRewardBtcPoolBlock     uint64

	ZhouM, ZhouN int64
	QinM, QinN   int64

	// MaturityBlocks is the configured offset (§4.4's "a configured
	// integer offset") behind the current block below which immature
	// rewards are considered mature.
	MaturityBlocks uint64

	// BeginBlock, EndBlock bound the window Sync is willing to append rows
	// for; a deployment is pinned to one round, so these are configured
	// directly rather than derived from the round's fork thresholds.
	BeginBlock, EndBlock uint64

	// BaseRewardPerBlock is the configured per-block reward budget before
	// any of the QIN or global-vote overrides in RewardPerBlock apply.
	BaseRewardPerBlock decimalx.Decimal
}

// InWindow reports whether block falls within [BeginBlock, EndBlock].
func (t Thresholds) InWindow(block uint64) bool {
	return block >= t.BeginBlock && block <= t.EndBlock
}

// defaultFactorM, defaultFactorN are the fallback factor constants used for any round
// outside ZHOU/QIN. The source's two independent `if` statements
// (`if round == ZHOU: ...` then, unconditionally, `if round == QIN: ... else:
// default`) make this default silently override the ZHOU assignment, since
// the second `if`'s `else` fires for every non-QIN round including ZHOU.
// §4.3 states the intended mapping directly — ZHOU gets its own M/N — so
// this module implements that mapping rather than the source's fall-through;
// see DESIGN.md's Open Questions entry for the reasoning.
const (
	defaultFactorM = 2
	defaultFactorN = 102500
)

// FactorConstants returns the (M, N) pair the reward-factor calculation
// (§4.3 "Reward factor") uses for round: ZHOU_M/N for ZHOU, QIN_M/N for
// QIN, default (2, 102500) for every other round.
func (t Thresholds) FactorConstants(round Round) (m, n decimalx.Decimal) {
	switch round {
	case ZHOU:
		return decimalx.NewFromInt(t.ZhouM), decimalx.NewFromInt(t.ZhouN)
	case QIN:
		return decimalx.NewFromInt(t.QinM), decimalx.NewFromInt(t.QinN)
	default:
		return decimalx.NewFromInt(defaultFactorM), decimalx.NewFromInt(defaultFactorN)
	}
}

// Addresses carries every share-token / feed address this module's pools
// are keyed by, loaded from the per-pool environment variables in §6.
type Addresses struct {
	EthPerpShare         string
	LinkPerpShare        string
	CompPerpShare        string
	LendPerpShare        string
	SnxPerpShare         string
	BtcPerpShare         string
	UniswapMcbEthShare   string
	UniswapMcbUsdcShare  string
	McbToken             string
	ChainlinkBtcUsdFeed  string
}
