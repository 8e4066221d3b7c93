package payout

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mcb-protocol/mining-engine/internal/decimalx"
	"github.com/mcb-protocol/mining-engine/internal/model"
	"github.com/mcb-protocol/mining-engine/internal/reward"
)

func newTestPayer(gw *fakeGateway, fc *fakeChain, fd *fakeDisperser, startNonce uint64) *Payer {
	return &Payer{
		store:       fakeRunner{gw},
		client:      fc,
		disperser:   fd,
		gasOracle:   NewGasOracle("http://127.0.0.1:0/unreachable", "fast"),
		nonce:       &NonceSource{next: startNonce},
		round:       reward.XIA,
		maturity:    1000,
		waitTimeout: time.Second,
		mcbToken:    common.HexToAddress("0xMCB"),
	}
}

// Scenario 6 (§8), success branch: a pending transaction whose receipt
// comes back SUCCESS produces Payment rows and the holder is gone from the
// caller's next read of unpaid rewards (simulated here by the fake gateway
// not re-adding them).
func TestReconcileSuccessWritesPayments(t *testing.T) {
	gw := newFakeGateway()
	hash := nonceHash(5)
	gw.transaction["tx1"] = model.PaymentTransaction{
		ID: "tx1", Nonce: 5, TxHash: hash.Hex(), Status: model.PaymentPending,
		TxData: model.TxPayload{Holders: []string{"H1"}, Amounts: []decimalx.Decimal{decimalx.NewFromInt(10)}},
	}
	gw.pending = []model.PaymentTransaction{gw.transaction["tx1"]}

	fc := &fakeChain{head: 100, receipts: map[common.Hash]*types.Receipt{
		hash: {Status: types.ReceiptStatusSuccessful},
	}}
	fd := &fakeDisperser{}
	p := newTestPayer(gw, fc, fd, 6)

	if err := p.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(gw.payments) != 1 || gw.payments[0].Holder != "H1" {
		t.Fatalf("expected one payment for H1, got %+v", gw.payments)
	}
	if gw.transaction["tx1"].Status != model.PaymentSuccess {
		t.Errorf("transaction status = %s, want SUCCESS", gw.transaction["tx1"].Status)
	}
}

// Scenario 6 (§8), failure branch: a FAILED receipt writes no Payment rows
// and leaves the transaction's terminal status recorded.
func TestReconcileFailureWritesNoPayments(t *testing.T) {
	gw := newFakeGateway()
	hash := nonceHash(7)
	gw.transaction["tx2"] = model.PaymentTransaction{
		ID: "tx2", Nonce: 7, TxHash: hash.Hex(), Status: model.PaymentPending,
		TxData: model.TxPayload{Holders: []string{"H2"}, Amounts: []decimalx.Decimal{decimalx.NewFromInt(10)}},
	}
	gw.pending = []model.PaymentTransaction{gw.transaction["tx2"]}

	fc := &fakeChain{head: 100, receipts: map[common.Hash]*types.Receipt{
		hash: {Status: types.ReceiptStatusFailed},
	}}
	fd := &fakeDisperser{}
	p := newTestPayer(gw, fc, fd, 8)

	if err := p.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(gw.payments) != 0 {
		t.Fatalf("expected no payments, got %+v", gw.payments)
	}
	if gw.transaction["tx2"].Status != model.PaymentFailed {
		t.Errorf("transaction status = %s, want FAILED", gw.transaction["tx2"].Status)
	}
}

// Pay submits exactly one disperse call covering every unpaid holder, bumps
// the nonce by one, and records a PaymentTransaction in its final state
// once the (immediately-available, in this fake) receipt confirms.
func TestPaySubmitsBatchedDisperse(t *testing.T) {
	gw := newFakeGateway()
	gw.unpaid = []model.HolderBalance{
		{Holder: "0x1111111111111111111111111111111111111111", Balance: decimalx.NewFromInt(5)},
		{Holder: "0x2222222222222222222222222222222222222222", Balance: decimalx.NewFromInt(7)},
	}
	hash := nonceHash(10)
	fc := &fakeChain{head: 100, receipts: map[common.Hash]*types.Receipt{
		hash: {Status: types.ReceiptStatusSuccessful},
	}}
	fd := &fakeDisperser{}
	p := newTestPayer(gw, fc, fd, 10)

	if err := p.Pay(context.Background()); err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if len(fd.calls) != 1 {
		t.Fatalf("expected exactly one disperse call, got %d", len(fd.calls))
	}
	if fd.calls[0].nonce != 10 {
		t.Errorf("nonce used = %d, want 10", fd.calls[0].nonce)
	}
	if p.nonce.Peek() != 11 {
		t.Errorf("nonce after Pay = %d, want 11", p.nonce.Peek())
	}
	if len(gw.payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(gw.payments))
	}
}

// Pay is a no-op when there is nothing unpaid: no disperse call, no nonce
// consumed.
func TestPayNoopWhenNothingUnpaid(t *testing.T) {
	gw := newFakeGateway()
	fc := &fakeChain{head: 100}
	fd := &fakeDisperser{}
	p := newTestPayer(gw, fc, fd, 3)

	if err := p.Pay(context.Background()); err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if len(fd.calls) != 0 {
		t.Errorf("expected no disperse calls, got %d", len(fd.calls))
	}
	if p.nonce.Peek() != 3 {
		t.Errorf("nonce should be untouched, got %d", p.nonce.Peek())
	}
}
