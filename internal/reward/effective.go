package reward

import (
	"context"
	"log"

	"github.com/mcb-protocol/mining-engine/internal/decimalx"
	"github.com/mcb-protocol/mining-engine/internal/store"
)

// imbalance-curve coefficients, built with decimalx.Ratio from integer
// numerator and denominator rather than through a float division.
var (
	xiaIntercept   = decimalx.Ratio(89, 80)
	xiaSlope       = decimalx.Ratio(9, 8)
	shangIntercept = decimalx.Ratio(44, 35)
	shangSlope     = decimalx.Ratio(9, 7)

	pointOne  = decimalx.NewFromFloatString("0.1")
	pointTwo  = decimalx.NewFromFloatString("0.2")
	pointNine = decimalx.NewFromFloatString("0.9")
)

// effectiveShareInfo computes each holder's effective share of an AMM pool
// for rounds where that still differs from their raw balance (XIA/SHANG
// from the rebalance fork onward). buildGroupValues calls it for every AMM
// pool in the mining window at or after the rebalance fork block; at or
// after ZhouBeginBlock it returns the raw share balances and their total
// unchanged (effective share is identity).
func effectiveShareInfo(
	ctx context.Context, gw store.Gateway, round Round, block uint64, t Thresholds,
	spec PoolSpec, shareHolders []holderShare, totalShare decimalx.Decimal,
) (map[string]decimalx.Decimal, decimalx.Decimal, error) {
	shareByHolder := make(map[string]decimalx.Decimal, len(shareHolders))
	for _, h := range shareHolders {
		shareByHolder[h.Holder] = h.Balance
	}

	if block >= t.ZhouBeginBlock {
		return shareByHolder, totalShare, nil
	}

	mapping, found, err := gw.LookupShareMap(ctx, spec.ShareAddr)
	if !found || err != nil {
		log.Printf("[reward] pool %s: no share map, effective share degrades to zero", spec.Name)
		return map[string]decimalx.Decimal{}, decimalx.Zero, err
	}

	positions, err := gw.ListPositionHolders(ctx, mapping.PerpAddr)
	if err != nil {
		return nil, decimalx.Zero, err
	}
	ammPosition := decimalx.Zero
	positionByHolder := make(map[string]decimalx.Decimal, len(positions))
	for _, p := range positions {
		positionByHolder[p.Holder] = p.Balance
		if p.Holder == mapping.AmmProxyAddr {
			ammPosition = p.Balance
		}
	}

	effective := make(map[string]decimalx.Decimal)
	total := decimalx.Zero
	for holder, marginPosition := range positionByHolder {
		shareAmount, ok := shareByHolder[holder]
		if !ok || shareAmount.IsZero() {
			continue
		}
		holderPositionInAmm := ammPosition.Mul(shareAmount).Div(totalShare)
		if holderPositionInAmm.IsZero() {
			continue
		}
		portfolio := holderPositionInAmm.Add(marginPosition)
		imbalance := decimalx.Abs(portfolio.Div(holderPositionInAmm))

		es := shareAmount.Mul(imbalanceCurve(round, imbalance))
		effective[holder] = es
		total = total.Add(es)
	}
	return effective, total, nil
}

// imbalanceCurve is the round's piecewise-linear f(imbalance) (§4.3
// "Effective share").
func imbalanceCurve(round Round, imbalance decimalx.Decimal) decimalx.Decimal {
	switch round {
	case XIA:
		switch {
		case imbalance.Cmp(pointOne) <= 0:
			return decimalx.NewFromInt(1)
		case imbalance.Cmp(pointNine) >= 0:
			return pointOne
		default:
			return xiaIntercept.Sub(imbalance.Mul(xiaSlope))
		}
	case SHANG:
		switch {
		case imbalance.Cmp(pointTwo) <= 0:
			return decimalx.NewFromInt(1)
		case imbalance.Cmp(pointNine) >= 0:
			return pointOne
		default:
			return shangIntercept.Sub(imbalance.Mul(shangSlope))
		}
	default:
		return decimalx.NewFromInt(1)
	}
}
