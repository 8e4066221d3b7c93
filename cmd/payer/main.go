// Command payer runs one payout cycle: reconcile pending on-chain
// transactions, then submit a fresh batched disperse call for whatever
// remains unpaid. It is meant to be wrapped by an external scheduler (cron,
// a Kubernetes CronJob) and run to completion once per invocation.
package main

import (
	"context"
	"log"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mcb-protocol/mining-engine/internal/chain"
	"github.com/mcb-protocol/mining-engine/internal/config"
	"github.com/mcb-protocol/mining-engine/internal/payout"
	"github.com/mcb-protocol/mining-engine/internal/store"
)

func main() {
	log.Println("Starting mining-engine payer...")

	cfg := config.Load()
	ctx := context.Background()

	st, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: connect to database: %v", err)
	}
	defer st.Close()

	if err := st.InitSchema(ctx); err != nil {
		log.Fatalf("FATAL: init schema: %v", err)
	}

	client, err := chain.Dial(ctx, cfg.RPCURL, cfg.RPCTimeout)
	if err != nil {
		log.Fatalf("FATAL: dial chain RPC: %v", err)
	}
	defer client.Close()

	chainID, err := client.Raw().ChainID(ctx)
	if err != nil {
		log.Fatalf("FATAL: fetch chain id: %v", err)
	}

	disperser, err := chain.NewDisperser(client, common.HexToAddress(cfg.DisperseAddress), cfg.PayerKey, chainID)
	if err != nil {
		log.Fatalf("FATAL: build disperser: %v", err)
	}

	payerAddr := common.HexToAddress(cfg.PayerAddress)
	var nonceSource *payout.NonceSource
	if err := st.WithinTx(ctx, func(gw store.Gateway) error {
		var err error
		nonceSource, err = payout.LoadNonceSource(ctx, gw, client, payerAddr)
		return err
	}); err != nil {
		log.Fatalf("FATAL: bootstrap nonce: %v", err)
	}

	gasOracle := payout.NewGasOracle(cfg.EthGasURL, cfg.GasLevel)

	payer := payout.NewPayer(
		st,
		client,
		disperser,
		gasOracle,
		nonceSource,
		cfg.Round,
		cfg.Thresholds.MaturityBlocks,
		cfg.WaitTimeout,
		common.HexToAddress(cfg.McbTokenAddress),
	)

	if err := payer.Run(ctx); err != nil {
		log.Printf("[payer] cycle failed: %v", err)
	}

	log.Println("[payer] cycle complete")
}
