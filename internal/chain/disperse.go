package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mcb-protocol/mining-engine/internal/errs"
)

// disperseABIJSON carries only the two entry points this module calls;
// their selectors match the real deployed Disperse contract byte-for-byte.
const disperseABIJSON = `[
	{"constant":false,"inputs":[{"name":"recipients","type":"address[]"},{"name":"values","type":"uint256[]"}],"name":"disperseEther","outputs":[],"payable":true,"stateMutability":"payable","type":"function"},
	{"constant":false,"inputs":[{"name":"token","type":"address"},{"name":"recipients","type":"address[]"},{"name":"values","type":"uint256[]"}],"name":"disperseToken","outputs":[],"payable":false,"stateMutability":"nonpayable","type":"function"}
]`

// Disperser submits batched-payout transactions against the on-chain
// Disperse contract. It holds the signer built from the payer's private
// key, so every submission it makes is already signed for the chain it was
// constructed with.
type Disperser struct {
	client  *Client
	address common.Address
	abi     abi.ABI
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
}

// NewDisperser parses the Disperse ABI and the payer's hex-encoded private
// key (without the "0x" prefix) once at startup.
func NewDisperser(client *Client, address common.Address, privateKeyHex string, chainID *big.Int) (*Disperser, error) {
	parsed, err := abi.JSON(strings.NewReader(disperseABIJSON))
	if err != nil {
		return nil, errs.Config("NewDisperser: parse abi", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, errs.Config("NewDisperser: parse payer key", err)
	}
	pub, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errs.Config("NewDisperser: derive payer address", nil)
	}
	return &Disperser{
		client:  client,
		address: address,
		abi:     parsed,
		key:     key,
		from:    crypto.PubkeyToAddress(*pub),
		chainID: chainID,
	}, nil
}

// From is the payer address this disperser signs transactions with.
func (d *Disperser) From() common.Address {
	return d.from
}

func (d *Disperser) transactor() (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(d.key, d.chainID)
	if err != nil {
		return nil, errs.ChainRPC("transactor", err)
	}
	return opts, nil
}

func (d *Disperser) bound() *bind.BoundContract {
	return bind.NewBoundContract(d.address, d.abi, d.client.eth, d.client.eth, d.client.eth)
}

// DisperseToken calls disperseToken(token, recipients, values) with the
// given nonce and legacy gas price, returning the submitted transaction's
// hash. amounts must already be in wire units (value x 10^18).
func (d *Disperser) DisperseToken(ctx context.Context, token common.Address, recipients []common.Address, amounts []*big.Int, nonce uint64, gasPrice *big.Int) (common.Hash, error) {
	opts, err := d.transactor()
	if err != nil {
		return common.Hash{}, err
	}
	opts.Context = ctx
	opts.Nonce = new(big.Int).SetUint64(nonce)
	opts.GasPrice = gasPrice
	opts.NoSend = false

	tx, err := d.bound().Transact(opts, "disperseToken", token, recipients, amounts)
	if err != nil {
		return common.Hash{}, errs.ChainRPC("disperseToken", err)
	}
	return tx.Hash(), nil
}

// DisperseEther calls disperseEther(recipients, values), forwarding the sum
// of amounts as the transaction value.
func (d *Disperser) DisperseEther(ctx context.Context, recipients []common.Address, amounts []*big.Int, nonce uint64, gasPrice *big.Int) (common.Hash, error) {
	opts, err := d.transactor()
	if err != nil {
		return common.Hash{}, err
	}
	opts.Context = ctx
	opts.Nonce = new(big.Int).SetUint64(nonce)
	opts.GasPrice = gasPrice

	total := new(big.Int)
	for _, a := range amounts {
		total.Add(total, a)
	}
	opts.Value = total

	tx, err := d.bound().Transact(opts, "disperseEther", recipients, amounts)
	if err != nil {
		return common.Hash{}, errs.ChainRPC("disperseEther", err)
	}
	return tx.Hash(), nil
}
