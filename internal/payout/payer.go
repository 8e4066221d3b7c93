// Package payout implements the Payer: the transactional state machine
// that reconciles pending on-chain disperse transactions and submits a new
// batched payout once per cycle. It never writes a Payment row before a
// SUCCESS receipt is observed, and never rolls back a submitted
// PaymentTransaction — a later reconcile cycle always observes its final
// state instead.
package payout

import (
	"context"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/mcb-protocol/mining-engine/internal/chain"
	"github.com/mcb-protocol/mining-engine/internal/decimalx"
	"github.com/mcb-protocol/mining-engine/internal/model"
	"github.com/mcb-protocol/mining-engine/internal/reward"
	"github.com/mcb-protocol/mining-engine/internal/store"
)

// sessionRunner mirrors reward.sessionRunner: the one method Payer needs
// from store.Store, so tests can supply an in-memory Gateway.
type sessionRunner interface {
	WithinTx(ctx context.Context, fn func(store.Gateway) error) error
}

// chainReader is the subset of *chain.Client the Payer drives: head height
// for maturity comparisons, and blocking receipt waits.
type chainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	WaitForReceipt(ctx context.Context, tx common.Hash, timeout time.Duration) (*types.Receipt, error)
}

// disperseSender is the subset of *chain.Disperser the Payer drives —
// isolated so tests can submit fake transactions without a live signer.
type disperseSender interface {
	DisperseToken(ctx context.Context, token common.Address, recipients []common.Address, amounts []*big.Int, nonce uint64, gasPrice *big.Int) (common.Hash, error)
}

// Payer runs one reconcile-then-pay cycle per Run call for a single
// configured round.
type Payer struct {
	store       sessionRunner
	client      chainReader
	disperser   disperseSender
	gasOracle   *GasOracle
	nonce       *NonceSource
	round       reward.Round
	maturity    uint64
	waitTimeout time.Duration
	mcbToken    common.Address
}

// NewPayer wires together the already-constructed chain client, disperser,
// gas oracle, and nonce source for round.
func NewPayer(s sessionRunner, client *chain.Client, disperser *chain.Disperser, gasOracle *GasOracle, nonce *NonceSource, round reward.Round, maturityBlocks uint64, waitTimeout time.Duration, mcbToken common.Address) *Payer {
	return &Payer{
		store:       s,
		client:      client,
		disperser:   disperser,
		gasOracle:   gasOracle,
		nonce:       nonce,
		round:       round,
		maturity:    maturityBlocks,
		waitTimeout: waitTimeout,
		mcbToken:    mcbToken,
	}
}

// Run performs one full cycle: reconcile pending transactions, then pay
// whatever remains unpaid.
func (p *Payer) Run(ctx context.Context) error {
	if err := p.Reconcile(ctx); err != nil {
		log.Printf("[Payer] reconcile failed, skipping pay phase: %v", err)
		return nil
	}
	if err := p.Pay(ctx); err != nil {
		log.Printf("[Payer] pay phase failed: %v", err)
		return nil
	}
	return nil
}

// Reconcile loads every INIT/PENDING transaction, blocks on its receipt up
// to waitTimeout, and applies the receipt outcome. If any receipt wait
// errors out, it aborts the whole cycle immediately so the caller does not
// proceed to Pay with a stale nonce view.
func (p *Payer) Reconcile(ctx context.Context) error {
	var pending []model.PaymentTransaction
	err := p.store.WithinTx(ctx, func(gw store.Gateway) error {
		var err error
		pending, err = gw.ListPendingPaymentTransactions(ctx)
		return err
	})
	if err != nil {
		return err
	}

	for _, tx := range pending {
		hash := common.HexToHash(tx.TxHash)
		receipt, err := p.client.WaitForReceipt(ctx, hash, p.waitTimeout)
		if err != nil {
			log.Printf("[Payer] waiting for receipt of tx_hash=%s failed: %v", tx.TxHash, err)
			return err
		}
		if err := p.applyReceipt(ctx, tx, receipt); err != nil {
			return err
		}
	}
	return nil
}

// Pay reads the current unpaid set, refreshes the gas price, bumps the
// nonce, and submits one batched disperse call for every unpaid holder.
func (p *Payer) Pay(ctx context.Context) error {
	currentBlock, err := p.client.BlockNumber(ctx)
	if err != nil {
		return err
	}

	var unpaid []model.HolderBalance
	err = p.store.WithinTx(ctx, func(gw store.Gateway) error {
		var err error
		unpaid, err = gw.UnpaidRewards(ctx, string(p.round), currentBlock, p.maturity)
		return err
	})
	if err != nil {
		return err
	}
	if len(unpaid) == 0 {
		log.Printf("[Payer] no holder needs to be paid this cycle")
		return nil
	}

	p.gasOracle.Refresh(ctx)
	gasPrice := p.gasOracle.Price()
	nonce := p.nonce.Next()

	holders := make([]common.Address, len(unpaid))
	amounts := make([]*big.Int, len(unpaid))
	payload := model.TxPayload{Holders: make([]string, len(unpaid)), Amounts: make([]decimalx.Decimal, len(unpaid))}
	for i, hb := range unpaid {
		holders[i] = common.HexToAddress(hb.Holder)
		amounts[i] = decimalx.ToWireInt(hb.Balance)
		payload.Holders[i] = hb.Holder
		payload.Amounts[i] = hb.Balance
	}

	txHash, err := p.disperser.DisperseToken(ctx, p.mcbToken, holders, amounts, nonce, gasPrice)
	if err != nil {
		log.Printf("[Payer] disperse transaction failed: %v", err)
		return err
	}

	record := model.PaymentTransaction{
		ID:        uuid.NewString(),
		Nonce:     nonce,
		TxHash:    txHash.Hex(),
		TxData:    payload,
		Status:    model.PaymentInit,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.store.WithinTx(ctx, func(gw store.Gateway) error {
		return gw.InsertPaymentTransaction(ctx, record)
	}); err != nil {
		log.Printf("[Payer] persist submitted transaction: %v", err)
		return err
	}

	receipt, err := p.client.WaitForReceipt(ctx, txHash, p.waitTimeout)
	if err != nil {
		log.Printf("[Payer] waiting for receipt of tx_hash=%s failed: %v", txHash.Hex(), err)
		return err
	}
	return p.applyReceipt(ctx, record, receipt)
}

// applyReceipt updates a PaymentTransaction's status from its receipt and,
// on SUCCESS, writes Payment/RoundPayment rows from the stored payload.
func (p *Payer) applyReceipt(ctx context.Context, tx model.PaymentTransaction, receipt *types.Receipt) error {
	status := model.PaymentFailed
	if receipt.Status == types.ReceiptStatusSuccessful {
		status = model.PaymentSuccess
	}

	return p.store.WithinTx(ctx, func(gw store.Gateway) error {
		if err := gw.UpdatePaymentTransactionStatus(ctx, tx.ID, status, tx.TxHash); err != nil {
			return err
		}
		if status != model.PaymentSuccess {
			log.Printf("[Payer] transaction tx_hash=%s did not succeed, status=%s", tx.TxHash, status)
			return nil
		}
		return gw.InsertPayments(ctx, tx.ID, string(p.round), tx.TxData.Holders, tx.TxData.Amounts)
	})
}
