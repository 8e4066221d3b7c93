package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcb-protocol/mining-engine/internal/decimalx"
	"github.com/mcb-protocol/mining-engine/internal/errs"
	"github.com/mcb-protocol/mining-engine/internal/model"
)

// Store owns the pgx connection pool and hands out a transaction-scoped
// Gateway to every caller via WithinTx.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens the pool and verifies connectivity with a single ping.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, errs.Config("store.Connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, errs.Config("store.Connect.ping", err)
	}
	log.Println("[store] connected to PostgreSQL")
	return &Store{pool: pool}, nil
}

// Close releases every pooled connection.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// WithinTx begins a transaction, hands fn a Gateway bound to it, and commits
// on nil error or rolls back otherwise. This is the only commit/rollback
// decision point: a reward-engine Sync or Rollback runs as one WithinTx
// call, the payer uses a separate call for each step of its cycle, and
// individual Gateway methods never commit on their own.
func (s *Store) WithinTx(ctx context.Context, fn func(Gateway) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errs.Database("store.WithinTx.begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgGateway{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.Database("store.WithinTx.commit", err)
	}
	return nil
}

// InitSchema creates every table this module persists to, if absent. Real
// deployments would run this via a migration tool; a single idempotent DDL
// block is enough for a reward engine that owns a small, stable schema.
func (s *Store) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	if err != nil {
		return errs.Config("store.InitSchema", err)
	}
	log.Println("[store] schema initialized")
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS token_balance (
	token   TEXT NOT NULL,
	holder  TEXT NOT NULL,
	balance NUMERIC NOT NULL,
	PRIMARY KEY (token, holder)
);

CREATE TABLE IF NOT EXISTS position_balance (
	perpetual TEXT NOT NULL,
	holder    TEXT NOT NULL,
	balance   NUMERIC NOT NULL,
	PRIMARY KEY (perpetual, holder)
);

CREATE TABLE IF NOT EXISTS perp_share_amm_map (
	share_addr     TEXT PRIMARY KEY,
	perp_addr      TEXT NOT NULL,
	amm_addr       TEXT NOT NULL,
	amm_proxy_addr TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chainlink_price_event (
	feed         TEXT NOT NULL,
	block_number BIGINT NOT NULL,
	price        NUMERIC NOT NULL,
	PRIMARY KEY (feed, block_number)
);

CREATE TABLE IF NOT EXISTS theory_mining_reward (
	round     TEXT NOT NULL,
	pool_type TEXT NOT NULL,
	holder    TEXT NOT NULL,
	amount    NUMERIC NOT NULL,
	PRIMARY KEY (round, pool_type, holder)
);

CREATE TABLE IF NOT EXISTS immature_mining_reward (
	block_number BIGINT NOT NULL,
	round        TEXT NOT NULL,
	pool         TEXT NOT NULL,
	holder       TEXT NOT NULL,
	amount       NUMERIC NOT NULL
);
CREATE INDEX IF NOT EXISTS immature_mining_reward_round_block_idx
	ON immature_mining_reward (round, block_number);

CREATE TABLE IF NOT EXISTS immature_mining_reward_summary (
	round  TEXT NOT NULL,
	pool   TEXT NOT NULL,
	holder TEXT NOT NULL,
	amount NUMERIC NOT NULL,
	PRIMARY KEY (round, pool, holder)
);

CREATE TABLE IF NOT EXISTS payment_transaction (
	id         TEXT PRIMARY KEY,
	nonce      BIGINT NOT NULL,
	tx_hash    TEXT NOT NULL DEFAULT '',
	tx_data    JSONB NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS payment (
	id             TEXT PRIMARY KEY,
	holder         TEXT NOT NULL,
	amount         NUMERIC NOT NULL,
	pay_time       TIMESTAMPTZ NOT NULL,
	transaction_id TEXT NOT NULL REFERENCES payment_transaction (id)
);

CREATE TABLE IF NOT EXISTS round_payment (
	id         TEXT PRIMARY KEY,
	round      TEXT NOT NULL,
	holder     TEXT NOT NULL,
	amount     NUMERIC NOT NULL,
	payment_id TEXT NOT NULL REFERENCES payment (id),
	UNIQUE (round, holder, payment_id)
);
`

// pgGateway implements Gateway against one pgx.Tx. It is only ever
// constructed by Store.WithinTx.
type pgGateway struct {
	tx pgx.Tx
}

func (g *pgGateway) TotalTokenBalance(ctx context.Context, token string) (decimalx.Decimal, error) {
	var v decimalNull
	err := g.tx.QueryRow(ctx, `SELECT COALESCE(SUM(balance), 0) FROM token_balance WHERE token = $1`, token).Scan(&v)
	if err != nil {
		return decimalx.Zero, errs.Database("TotalTokenBalance", err)
	}
	return v.d, nil
}

func (g *pgGateway) ListTokenHolders(ctx context.Context, token string) ([]model.HolderBalance, error) {
	rows, err := g.tx.Query(ctx, `SELECT holder, balance FROM token_balance WHERE token = $1 AND balance <> 0`, token)
	if err != nil {
		return nil, errs.Database("ListTokenHolders", err)
	}
	defer rows.Close()
	return scanHolderBalances(rows)
}

func (g *pgGateway) ListPositionHolders(ctx context.Context, perp string) ([]model.HolderBalance, error) {
	rows, err := g.tx.Query(ctx, `SELECT holder, balance FROM position_balance WHERE perpetual = $1 AND balance <> 0`, perp)
	if err != nil {
		return nil, errs.Database("ListPositionHolders", err)
	}
	defer rows.Close()
	return scanHolderBalances(rows)
}

func (g *pgGateway) LookupShareMap(ctx context.Context, share string) (model.PerpShareAmmMap, bool, error) {
	var m model.PerpShareAmmMap
	err := g.tx.QueryRow(ctx,
		`SELECT share_addr, perp_addr, amm_addr, amm_proxy_addr FROM perp_share_amm_map WHERE share_addr = $1`, share,
	).Scan(&m.ShareAddr, &m.PerpAddr, &m.AmmAddr, &m.AmmProxyAddr)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PerpShareAmmMap{}, false, nil
	}
	if err != nil {
		return model.PerpShareAmmMap{}, false, errs.Database("LookupShareMap", err)
	}
	return m, true, nil
}

func (g *pgGateway) LatestChainLinkPrice(ctx context.Context, feed string, block uint64) (decimalx.Decimal, error) {
	var v decimalNull
	err := g.tx.QueryRow(ctx,
		`SELECT price FROM chainlink_price_event WHERE feed = $1 AND block_number <= $2 ORDER BY block_number DESC LIMIT 1`,
		feed, int64(block),
	).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimalx.Zero, errs.ErrPriceNotSynced
	}
	if err != nil {
		return decimalx.Zero, errs.Database("LatestChainLinkPrice", err)
	}
	return v.d, nil
}

func (g *pgGateway) ListTheoryRewards(ctx context.Context, round string) ([]model.TheoryMiningReward, error) {
	rows, err := g.tx.Query(ctx, `SELECT round, pool_type, holder, amount FROM theory_mining_reward WHERE round = $1`, round)
	if err != nil {
		return nil, errs.Database("ListTheoryRewards", err)
	}
	defer rows.Close()
	var out []model.TheoryMiningReward
	for rows.Next() {
		var r model.TheoryMiningReward
		var v decimalNull
		if err := rows.Scan(&r.Round, &r.PoolType, &r.Holder, &v); err != nil {
			return nil, errs.Database("ListTheoryRewards.scan", err)
		}
		r.Amount = v.d
		out = append(out, r)
	}
	return out, nil
}

func (g *pgGateway) UpsertTheoryReward(ctx context.Context, r model.TheoryMiningReward) error {
	_, err := g.tx.Exec(ctx, `
		INSERT INTO theory_mining_reward (round, pool_type, holder, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (round, pool_type, holder) DO UPDATE SET amount = EXCLUDED.amount
	`, r.Round, r.PoolType, r.Holder, r.Amount.String())
	if err != nil {
		return errs.Database("UpsertTheoryReward", err)
	}
	return nil
}

func (g *pgGateway) ImmatureSyncedAt(ctx context.Context, round string, block uint64) (bool, error) {
	var exists bool
	err := g.tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM immature_mining_reward WHERE round = $1 AND block_number = $2)`,
		round, int64(block),
	).Scan(&exists)
	if err != nil {
		return false, errs.Database("ImmatureSyncedAt", err)
	}
	return exists, nil
}

func (g *pgGateway) InsertImmatureReward(ctx context.Context, r model.ImmatureMiningReward) error {
	_, err := g.tx.Exec(ctx, `
		INSERT INTO immature_mining_reward (block_number, round, pool, holder, amount)
		VALUES ($1, $2, $3, $4, $5)
	`, int64(r.BlockNumber), r.Round, r.Pool, r.Holder, r.Amount.String())
	if err != nil {
		return errs.Database("InsertImmatureReward", err)
	}
	return nil
}

func (g *pgGateway) UpsertImmatureSummary(ctx context.Context, round, pool, holder string, delta decimalx.Decimal) error {
	_, err := g.tx.Exec(ctx, `
		INSERT INTO immature_mining_reward_summary (round, pool, holder, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (round, pool, holder) DO UPDATE
		SET amount = immature_mining_reward_summary.amount + EXCLUDED.amount
	`, round, pool, holder, delta.String())
	if err != nil {
		return errs.Database("UpsertImmatureSummary", err)
	}
	return nil
}

func (g *pgGateway) AggregateImmatureAbove(ctx context.Context, round string, block uint64) ([]model.PoolHolderAmount, error) {
	rows, err := g.tx.Query(ctx, `
		SELECT pool, holder, SUM(amount) FROM immature_mining_reward
		WHERE round = $1 AND block_number > $2
		GROUP BY pool, holder
	`, round, int64(block))
	if err != nil {
		return nil, errs.Database("AggregateImmatureAbove", err)
	}
	defer rows.Close()
	var out []model.PoolHolderAmount
	for rows.Next() {
		var p model.PoolHolderAmount
		var v decimalNull
		if err := rows.Scan(&p.Pool, &p.Holder, &v); err != nil {
			return nil, errs.Database("AggregateImmatureAbove.scan", err)
		}
		p.Amount = v.d
		out = append(out, p)
	}
	return out, nil
}

func (g *pgGateway) DecrementImmatureSummary(ctx context.Context, round, pool, holder string, amount decimalx.Decimal) (bool, error) {
	tag, err := g.tx.Exec(ctx, `
		UPDATE immature_mining_reward_summary SET amount = amount - $4
		WHERE round = $1 AND pool = $2 AND holder = $3
	`, round, pool, holder, amount.String())
	if err != nil {
		return false, errs.Database("DecrementImmatureSummary", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (g *pgGateway) DeleteImmatureAbove(ctx context.Context, round string, block uint64) error {
	_, err := g.tx.Exec(ctx, `DELETE FROM immature_mining_reward WHERE round = $1 AND block_number > $2`, round, int64(block))
	if err != nil {
		return errs.Database("DeleteImmatureAbove", err)
	}
	return nil
}

// MatureRewards sums the per-pool summary rows for each holder, then
// subtracts whatever of that total is still immature (synced at a block
// younger than maturityBlocks behind currentBlock). Each of the two queries
// collapses its rows to one per holder with GROUP BY holder; the
// subtraction is done by aggregateMature, a plain Go function exercised
// directly by tests.
func (g *pgGateway) MatureRewards(ctx context.Context, round string, currentBlock, maturityBlocks uint64) ([]model.HolderBalance, error) {
	cutoff := int64(0)
	if currentBlock > maturityBlocks {
		cutoff = int64(currentBlock - maturityBlocks)
	}

	summaryRows, err := g.tx.Query(ctx, `
		SELECT holder, SUM(amount) FROM immature_mining_reward_summary
		WHERE round = $1 GROUP BY holder
	`, round)
	if err != nil {
		return nil, errs.Database("MatureRewards.summary", err)
	}
	summary, err := scanHolderBalances(summaryRows)
	summaryRows.Close()
	if err != nil {
		return nil, errs.Database("MatureRewards.summary.scan", err)
	}

	recentRows, err := g.tx.Query(ctx, `
		SELECT holder, SUM(amount) FROM immature_mining_reward
		WHERE round = $1 AND block_number > $2 GROUP BY holder
	`, round, cutoff)
	if err != nil {
		return nil, errs.Database("MatureRewards.recent", err)
	}
	recent, err := scanHolderBalances(recentRows)
	recentRows.Close()
	if err != nil {
		return nil, errs.Database("MatureRewards.recent.scan", err)
	}

	return aggregateMature(summary, recent), nil
}

// aggregateMature collapses per-holder summary totals and per-holder
// still-immature totals (both already summed across pools by the caller)
// into one mature balance per holder: summary minus recent, for every
// holder that appears in summary. A holder absent from recent owes nothing
// back.
func aggregateMature(summary, recent []model.HolderBalance) []model.HolderBalance {
	recentByHolder := make(map[string]decimalx.Decimal, len(recent))
	for _, r := range recent {
		recentByHolder[r.Holder] = r.Balance
	}
	out := make([]model.HolderBalance, 0, len(summary))
	for _, s := range summary {
		mature := s.Balance
		if r, ok := recentByHolder[s.Holder]; ok {
			mature = mature.Sub(r)
		}
		out = append(out, model.HolderBalance{Holder: s.Holder, Balance: mature})
	}
	return out
}

func (g *pgGateway) LatestPaymentTransaction(ctx context.Context) (model.PaymentTransaction, bool, error) {
	tx, err := scanPaymentTransaction(g.tx.QueryRow(ctx, `
		SELECT id, nonce, tx_hash, tx_data, status, created_at
		FROM payment_transaction ORDER BY nonce DESC LIMIT 1
	`))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PaymentTransaction{}, false, nil
	}
	if err != nil {
		return model.PaymentTransaction{}, false, errs.Database("LatestPaymentTransaction", err)
	}
	return tx, true, nil
}

func (g *pgGateway) InsertPaymentTransaction(ctx context.Context, tx model.PaymentTransaction) error {
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	payload, err := marshalTxPayload(tx.TxData)
	if err != nil {
		return errs.Database("InsertPaymentTransaction.marshal", err)
	}
	_, err = g.tx.Exec(ctx, `
		INSERT INTO payment_transaction (id, nonce, tx_hash, tx_data, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, tx.ID, int64(tx.Nonce), tx.TxHash, payload, string(tx.Status), tx.CreatedAt)
	if err != nil {
		return errs.Database("InsertPaymentTransaction", err)
	}
	return nil
}

func (g *pgGateway) UpdatePaymentTransactionStatus(ctx context.Context, id string, status model.PaymentStatus, txHash string) error {
	_, err := g.tx.Exec(ctx, `
		UPDATE payment_transaction SET status = $2, tx_hash = CASE WHEN $3 <> '' THEN $3 ELSE tx_hash END
		WHERE id = $1
	`, id, string(status), txHash)
	if err != nil {
		return errs.Database("UpdatePaymentTransactionStatus", err)
	}
	return nil
}

func (g *pgGateway) ListPendingPaymentTransactions(ctx context.Context) ([]model.PaymentTransaction, error) {
	rows, err := g.tx.Query(ctx, `
		SELECT id, nonce, tx_hash, tx_data, status, created_at
		FROM payment_transaction WHERE status IN ('INIT', 'PENDING')
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, errs.Database("ListPendingPaymentTransactions", err)
	}
	defer rows.Close()
	var out []model.PaymentTransaction
	for rows.Next() {
		tx, err := scanPaymentTransactionRows(rows)
		if err != nil {
			return nil, errs.Database("ListPendingPaymentTransactions.scan", err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func (g *pgGateway) UnpaidRewards(ctx context.Context, round string, currentBlock, maturityBlocks uint64) ([]model.HolderBalance, error) {
	mature, err := g.MatureRewards(ctx, round, currentBlock, maturityBlocks)
	if err != nil {
		return nil, err
	}
	paid := make(map[string]decimalx.Decimal)
	rows, err := g.tx.Query(ctx, `SELECT holder, COALESCE(SUM(amount), 0) FROM round_payment WHERE round = $1 GROUP BY holder`, round)
	if err != nil {
		return nil, errs.Database("UnpaidRewards", err)
	}
	for rows.Next() {
		var holder string
		var v decimalNull
		if err := rows.Scan(&holder, &v); err != nil {
			rows.Close()
			return nil, errs.Database("UnpaidRewards.scan", err)
		}
		paid[holder] = v.d
	}
	rows.Close()

	var out []model.HolderBalance
	for _, hb := range mature {
		already, ok := paid[hb.Holder]
		if !ok {
			already = decimalx.Zero
		}
		remaining := hb.Balance.Sub(already)
		if decimalx.IsPositive(remaining) {
			out = append(out, model.HolderBalance{Holder: hb.Holder, Balance: remaining})
		}
	}
	return out, nil
}

func (g *pgGateway) InsertPayments(ctx context.Context, transactionID string, round string, holders []string, amounts []decimalx.Decimal) error {
	if len(holders) != len(amounts) {
		return errs.DataInconsistency("InsertPayments", fmt.Errorf("holders/amounts length mismatch: %d vs %d", len(holders), len(amounts)))
	}
	now := time.Now().UTC()
	for i, holder := range holders {
		paymentID := uuid.New().String()
		if _, err := g.tx.Exec(ctx, `
			INSERT INTO payment (id, holder, amount, pay_time, transaction_id)
			VALUES ($1, $2, $3, $4, $5)
		`, paymentID, holder, amounts[i].String(), now, transactionID); err != nil {
			return errs.Database("InsertPayments.payment", err)
		}
		if _, err := g.tx.Exec(ctx, `
			INSERT INTO round_payment (id, round, holder, amount, payment_id)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New().String(), round, holder, amounts[i].String(), paymentID); err != nil {
			return errs.Database("InsertPayments.roundPayment", err)
		}
	}
	return nil
}
