package payout

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeChain is a chainReader test double: a fixed head height and a
// pre-scripted receipt per transaction hash.
type fakeChain struct {
	head     uint64
	receipts map[common.Hash]*types.Receipt
}

func (f *fakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeChain) WaitForReceipt(ctx context.Context, tx common.Hash, timeout time.Duration) (*types.Receipt, error) {
	return f.receipts[tx], nil
}

// fakeDisperser is a disperseSender test double: it records the call and
// returns a deterministic hash derived from the nonce, so a test can script
// fakeChain.receipts against it ahead of time.
type fakeDisperser struct {
	calls []disperseCall
}

type disperseCall struct {
	token      common.Address
	recipients []common.Address
	amounts    []*big.Int
	nonce      uint64
	gasPrice   *big.Int
}

func (f *fakeDisperser) DisperseToken(ctx context.Context, token common.Address, recipients []common.Address, amounts []*big.Int, nonce uint64, gasPrice *big.Int) (common.Hash, error) {
	f.calls = append(f.calls, disperseCall{token, recipients, amounts, nonce, gasPrice})
	return nonceHash(nonce), nil
}

func nonceHash(nonce uint64) common.Hash {
	var h common.Hash
	h[31] = byte(nonce)
	return h
}
