// Package model holds the persisted entities from the data model: token and
// position balances fed by the external chain watcher, the share-token to
// perpetual map, ChainLink price events, the immature/mature/theory reward
// rows the engine produces, and the payment-transaction lifecycle the payer
// drives. None of these types carry behavior — they are pure data, read and
// written exclusively through internal/store.Gateway.
package model

import (
	"time"

	"github.com/mcb-protocol/mining-engine/internal/decimalx"
)

// TokenBalance is a holder's balance of a fungible token at the watcher's
// current view of the chain (share tokens, MCB, etc. all live in this
// table, distinguished by Token).
type TokenBalance struct {
	Token   string              `json:"token"`
	Holder  string              `json:"holder"`
	Balance decimalx.Decimal `json:"balance"`
}

// PositionBalance is a holder's signed position balance on a perpetual
// (the AMM proxy's own position balance is a row in this same table, keyed
// by its own address as Holder).
type PositionBalance struct {
	Perpetual string              `json:"perpetual"`
	Holder    string              `json:"holder"`
	Balance   decimalx.Decimal `json:"balance"`
}

// PerpShareAmmMap resolves a share-token address to the perpetual and AMM
// addresses it represents ownership of.
type PerpShareAmmMap struct {
	ShareAddr     string `json:"shareAddr"`
	PerpAddr      string `json:"perpAddr"`
	AmmAddr       string `json:"ammAddr"`
	AmmProxyAddr  string `json:"ammProxyAddr"`
}

// ChainLinkPriceEvent is a price observation for a feed at a given block.
type ChainLinkPriceEvent struct {
	Feed        string              `json:"feed"`
	BlockNumber uint64              `json:"blockNumber"`
	Price       decimalx.Decimal `json:"price"`
}

// ImmatureMiningReward is one per-block, per-pool, per-holder reward row.
// Rows are append-only until a Rollback deletes the tail above some block.
type ImmatureMiningReward struct {
	BlockNumber uint64              `json:"blockNumber"`
	Round       string              `json:"round"`
	Pool        string              `json:"pool"`
	Holder      string              `json:"holder"`
	Amount      decimalx.Decimal `json:"amount"`
}

// ImmatureMiningRewardSummary is the running total of ImmatureMiningReward
// grouped by (round, pool, holder); it is maintained transactionally
// alongside the rows it summarizes, not refreshed out-of-band.
type ImmatureMiningRewardSummary struct {
	Round  string              `json:"round"`
	Pool   string              `json:"pool"`
	Holder string              `json:"holder"`
	Amount decimalx.Decimal `json:"amount"`
}

// TheoryMiningReward is a last-writer-wins audit snapshot of a holder's
// pre-factor ("theoretical") reward for a round and pool type, overwritten
// on every sync.
type TheoryMiningReward struct {
	Round    string              `json:"round"`
	PoolType string              `json:"poolType"`
	Holder   string              `json:"holder"`
	Amount   decimalx.Decimal `json:"amount"`
}

// PaymentStatus is the lifecycle state of a PaymentTransaction.
type PaymentStatus string

const (
	PaymentInit    PaymentStatus = "INIT"
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// PaymentTransaction is one submitted on-chain disperse call. TxData is the
// serialized (holders, amounts) payload needed to write Payment/RoundPayment
// rows once the receipt confirms success, so the payer never has to recompute
// "who was this transaction for" days later.
type PaymentTransaction struct {
	ID        string        `json:"id"`
	Nonce     uint64        `json:"nonce"`
	TxHash    string        `json:"txHash"`
	TxData    TxPayload     `json:"txData"`
	Status    PaymentStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

// TxPayload is the (holder, amount) list a disperse transaction carries,
// serialized into PaymentTransaction.TxData so a later reconcile cycle can
// replay it against the receipt without re-deriving unpaid rewards.
type TxPayload struct {
	Holders []string            `json:"holders"`
	Amounts []decimalx.Decimal `json:"amounts"`
}

// Payment is one (transaction, holder) settlement, written only once its
// PaymentTransaction reaches SUCCESS.
type Payment struct {
	ID            string              `json:"id"`
	Holder        string              `json:"holder"`
	Amount        decimalx.Decimal `json:"amount"`
	PayTime       time.Time           `json:"payTime"`
	TransactionID string              `json:"transactionId"`
}

// RoundPayment attributes a Payment to a mining round, one row per Payment
// per round.
type RoundPayment struct {
	ID        string              `json:"id"`
	Round     string              `json:"round"`
	Holder    string              `json:"holder"`
	Amount    decimalx.Decimal `json:"amount"`
	PaymentID string              `json:"paymentId"`
}

// HolderBalance is a generic (holder, amount) pair returned by several
// Gateway read operations (share-token holders, position holders, unpaid
// rewards).
type HolderBalance struct {
	Holder  string
	Balance decimalx.Decimal
}

// PoolHolderAmount is returned by AggregateImmatureAbove: the summed amount
// of ImmatureMiningReward rows above a block, grouped by pool and holder.
type PoolHolderAmount struct {
	Pool   string
	Holder string
	Amount decimalx.Decimal
}
