package store

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mcb-protocol/mining-engine/internal/decimalx"
	"github.com/mcb-protocol/mining-engine/internal/model"
)

// decimalNull scans a NUMERIC column into a decimalx.Decimal without ever
// routing the value through float64 — pgx hands NUMERIC columns back as
// their textual representation when the destination isn't one of its
// built-in numeric Go types, which is exactly the string NewFromString
// parses exactly.
type decimalNull struct{ d decimalx.Decimal }

func (n *decimalNull) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		n.d = decimalx.Zero
		return nil
	case string:
		d, err := decimalx.NewFromString(v)
		if err != nil {
			return err
		}
		n.d = d
		return nil
	case []byte:
		d, err := decimalx.NewFromString(string(v))
		if err != nil {
			return err
		}
		n.d = d
		return nil
	default:
		return fmt.Errorf("decimalNull: unsupported scan source %T", src)
	}
}

func scanHolderBalances(rows pgx.Rows) ([]model.HolderBalance, error) {
	var out []model.HolderBalance
	for rows.Next() {
		var hb model.HolderBalance
		var v decimalNull
		if err := rows.Scan(&hb.Holder, &v); err != nil {
			return nil, err
		}
		hb.Balance = v.d
		out = append(out, hb)
	}
	return out, rows.Err()
}

// txRowScanner is satisfied by both pgx.Row (QueryRow) and pgx.Rows (Query),
// so scanPaymentTransaction can share its column layout between both call
// shapes.
type txRowScanner interface {
	Scan(dest ...any) error
}

func scanPaymentTransaction(row txRowScanner) (model.PaymentTransaction, error) {
	var tx model.PaymentTransaction
	var status string
	var payload []byte
	var nonce int64
	if err := row.Scan(&tx.ID, &nonce, &tx.TxHash, &payload, &status, &tx.CreatedAt); err != nil {
		return model.PaymentTransaction{}, err
	}
	tx.Nonce = uint64(nonce)
	tx.Status = model.PaymentStatus(status)
	data, err := unmarshalTxPayload(payload)
	if err != nil {
		return model.PaymentTransaction{}, err
	}
	tx.TxData = data
	return tx, nil
}

func scanPaymentTransactionRows(rows pgx.Rows) (model.PaymentTransaction, error) {
	return scanPaymentTransaction(rows)
}

// txPayloadWire is the JSON-on-the-wire shape of model.TxPayload; amounts
// are stored as decimal strings so precision survives JSONB round trips.
type txPayloadWire struct {
	Holders []string `json:"holders"`
	Amounts []string `json:"amounts"`
}

func marshalTxPayload(p model.TxPayload) ([]byte, error) {
	wire := txPayloadWire{Holders: p.Holders}
	for _, a := range p.Amounts {
		wire.Amounts = append(wire.Amounts, a.String())
	}
	return json.Marshal(wire)
}

func unmarshalTxPayload(raw []byte) (model.TxPayload, error) {
	var wire txPayloadWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return model.TxPayload{}, err
	}
	out := model.TxPayload{Holders: wire.Holders}
	for _, s := range wire.Amounts {
		d, err := decimalx.NewFromString(s)
		if err != nil {
			return model.TxPayload{}, err
		}
		out.Amounts = append(out.Amounts, d)
	}
	return out, nil
}
