package store

import (
	"testing"

	"github.com/mcb-protocol/mining-engine/internal/decimalx"
	"github.com/mcb-protocol/mining-engine/internal/model"
)

// aggregateMature must emit exactly one row for a holder whose summary and
// still-immature totals were already summed across pools, with the
// still-immature portion subtracted once.
func TestAggregateMatureOneRowPerHolder(t *testing.T) {
	summary := []model.HolderBalance{
		{Holder: "H1", Balance: decimalx.NewFromInt(30)},
	}
	recent := []model.HolderBalance{
		{Holder: "H1", Balance: decimalx.NewFromInt(5)},
	}

	out := aggregateMature(summary, recent)
	if len(out) != 1 {
		t.Fatalf("expected exactly one row for H1, got %d: %+v", len(out), out)
	}
	if !out[0].Balance.Equal(decimalx.NewFromInt(25)) {
		t.Errorf("H1 mature balance = %s, want 25", out[0].Balance)
	}
}

func TestAggregateMatureHolderWithNoRecentImmature(t *testing.T) {
	summary := []model.HolderBalance{{Holder: "H2", Balance: decimalx.NewFromInt(12)}}

	out := aggregateMature(summary, nil)
	if len(out) != 1 || !out[0].Balance.Equal(decimalx.NewFromInt(12)) {
		t.Errorf("expected H2 mature balance 12 with no recent immature rows, got %+v", out)
	}
}

func TestAggregateMatureMultipleHoldersIndependent(t *testing.T) {
	summary := []model.HolderBalance{
		{Holder: "H1", Balance: decimalx.NewFromInt(30)},
		{Holder: "H2", Balance: decimalx.NewFromInt(10)},
	}
	recent := []model.HolderBalance{
		{Holder: "H1", Balance: decimalx.NewFromInt(5)},
	}

	out := aggregateMature(summary, recent)
	byHolder := make(map[string]decimalx.Decimal, len(out))
	for _, hb := range out {
		byHolder[hb.Holder] = hb.Balance
	}
	if !byHolder["H1"].Equal(decimalx.NewFromInt(25)) {
		t.Errorf("H1 = %s, want 25", byHolder["H1"])
	}
	if !byHolder["H2"].Equal(decimalx.NewFromInt(10)) {
		t.Errorf("H2 = %s, want 10 (untouched by H1's recent immature rows)", byHolder["H2"])
	}
}
