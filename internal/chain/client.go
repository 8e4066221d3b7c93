// Package chain wraps the Ethereum-family JSON-RPC client the payer needs:
// transaction count for nonce bootstrap, and blocking receipt waits with a
// deadline. It never reads prices or events live — those are pre-indexed
// and read through store.Gateway, matching the reference engine's rule that
// RPC clients stay thin typed wrappers with one method per call.
package chain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/mcb-protocol/mining-engine/internal/errs"
)

// Client is a typed wrapper around ethclient.Client, following the same
// "struct holding the vendor client plus its own config" shape the
// reference engine uses for its Bitcoin RPC wrapper.
type Client struct {
	eth        *ethclient.Client
	rpcTimeout time.Duration
}

// Dial connects to url and verifies it by fetching the current block
// number, bounded by rpcTimeout.
func Dial(ctx context.Context, url string, rpcTimeout time.Duration) (*Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	eth, err := ethclient.DialContext(dialCtx, url)
	if err != nil {
		return nil, errs.ChainRPC("Dial", err)
	}
	c := &Client{eth: eth, rpcTimeout: rpcTimeout}

	checkCtx, cancel2 := context.WithTimeout(ctx, rpcTimeout)
	defer cancel2()
	if _, err := eth.BlockNumber(checkCtx); err != nil {
		eth.Close()
		return nil, errs.ChainRPC("Dial", err)
	}
	return c, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

// Raw exposes the underlying ethclient.Client for components (the disperse
// signer) that need the full surface rather than this wrapper's subset.
func (c *Client) Raw() *ethclient.Client {
	return c.eth
}

// BlockNumber returns the chain's current head height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.rpcTimeout)
	defer cancel()
	n, err := c.eth.BlockNumber(callCtx)
	if err != nil {
		return 0, errs.ChainRPC("BlockNumber", err)
	}
	return n, nil
}

// TransactionCount returns the next nonce the chain expects from addr,
// i.e. the number of transactions addr has already sent.
func (c *Client) TransactionCount(ctx context.Context, addr common.Address) (uint64, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.rpcTimeout)
	defer cancel()
	n, err := c.eth.PendingNonceAt(callCtx, addr)
	if err != nil {
		return 0, errs.ChainRPC("TransactionCount", err)
	}
	return n, nil
}

// SuggestGasPrice returns the node's suggested gas price in wei. The payer
// does not call it; its gas price comes from payout.GasOracle.
func (c *Client) SuggestGasPrice(ctx context.Context) (uint64, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.rpcTimeout)
	defer cancel()
	price, err := c.eth.SuggestGasPrice(callCtx)
	if err != nil {
		return 0, errs.ChainRPC("SuggestGasPrice", err)
	}
	return price.Uint64(), nil
}

const receiptPollInterval = 2 * time.Second

// WaitForReceipt polls for tx's receipt until it appears or timeout
// elapses. It never blocks longer than timeout regardless of ctx's own
// deadline, matching the suspension-point discipline that every external
// call carries an explicit bound.
func (c *Client) WaitForReceipt(ctx context.Context, tx common.Hash, timeout time.Duration) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(waitCtx, tx)
		if err == nil {
			return receipt, nil
		}
		select {
		case <-waitCtx.Done():
			return nil, errs.ReceiptTimeout("WaitForReceipt", waitCtx.Err())
		case <-ticker.C:
		}
	}
}
