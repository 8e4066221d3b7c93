// Command syncer runs the reward engine for one block. It is intended to
// be invoked per observed block by an external watcher process — or in a
// loop over a block range for ops/recovery backfills — exposing Sync and
// Rollback as its two operations.
//
// Usage:
//
//	syncer sync <block>
//	syncer rollback <block>
package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/mcb-protocol/mining-engine/internal/config"
	"github.com/mcb-protocol/mining-engine/internal/reward"
	"github.com/mcb-protocol/mining-engine/internal/store"
)

func main() {
	log.Println("Starting mining-engine syncer...")

	if len(os.Args) != 3 {
		log.Fatalf("FATAL: usage: syncer <sync|rollback> <block>")
	}
	action := os.Args[1]
	block, err := strconv.ParseUint(os.Args[2], 10, 64)
	if err != nil {
		log.Fatalf("FATAL: block number %q is not a valid integer: %v", os.Args[2], err)
	}

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

	engine := reward.NewEngine(st, cfg.Round, cfg.Thresholds, cfg.Addresses)

	switch action {
	case "sync":
		if err := engine.Sync(ctx, block); err != nil {
			log.Printf("[syncer] sync block=%d round=%s failed: %v", block, cfg.Round, err)
			os.Exit(1)
		}
	case "rollback":
		if err := engine.Rollback(ctx, block); err != nil {
			log.Printf("[syncer] rollback block=%d round=%s failed: %v", block, cfg.Round, err)
			os.Exit(1)
		}
	default:
		log.Fatalf("FATAL: unknown action %q, want sync or rollback", action)
	}

	log.Printf("[syncer] %s block=%d round=%s complete", action, block, cfg.Round)
}
