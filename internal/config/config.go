// Package config loads every environment-variable-sourced setting the
// syncer and payer binaries need, failing fast with log.Fatalf on any
// missing or malformed required value — the same requireEnv convention the
// reference engine uses for its own startup configuration.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/mcb-protocol/mining-engine/internal/decimalx"
	"github.com/mcb-protocol/mining-engine/internal/reward"
)

// Config is every setting a deployment of this module needs, loaded once at
// process start. A single process is pinned to one Round and one
// [BeginBlock, EndBlock] window; a new era is a new deployment.
type Config struct {
	DatabaseURL string

	RPCURL      string
	RPCTimeout  time.Duration
	WaitTimeout time.Duration

	EthGasURL string
	GasLevel  string

	DisperseAddress string
	McbTokenAddress string
	PayerAddress    string
	PayerKey        string

	Round      reward.Round
	Thresholds reward.Thresholds
	Addresses  reward.Addresses
}

// Load reads every variable Config needs from the process environment.
func Load() Config {
	round := reward.Round(requireEnv("MINING_ROUND"))
	if !round.Valid() {
		log.Fatalf("FATAL: MINING_ROUND %q is not one of XIA, SHANG, ZHOU, QIN, HAN", round)
	}

	return Config{
		DatabaseURL: requireEnv("DATABASE_URL"),

		RPCURL:      requireEnv("RPC_URL"),
		RPCTimeout:  requireSeconds("RPC_TIMEOUT"),
		WaitTimeout: requireSeconds("WAIT_TIMEOUT"),

		EthGasURL: requireEnv("ETH_GAS_URL"),
		GasLevel:  getEnvOrDefault("GAS_LEVEL", "fast"),

		DisperseAddress: requireEnv("DISPERSE_ADDRESS"),
		McbTokenAddress: requireEnv("MCB_TOKEN_ADDRESS"),
		PayerAddress:    requireEnv("PAYER_ADDRESS"),
		PayerKey:        requireEnv("PAYER_KEY"),

		Round:      round,
		Thresholds: loadThresholds(),
		Addresses:  loadAddresses(),
	}
}

func loadThresholds() reward.Thresholds {
	return reward.Thresholds{
		XiaRebalanceHardForkBlock: requireUint("XIA_REBALANCE_HARD_FORK_BLOCK_NUMBER"),
		ShangRewardLinkPoolBlock:  requireUint("SHANG_REWARD_LINK_POOL_BLOCK_NUMBER"),
		ShangRewardBtcPoolBlock:   requireUint("SHANG_REWARD_BTC_POOL_BLOCK_NUMBER"),

		ZhouBeginBlock:           requireUint("ZHOU_BEGIN_BLOCK_NUMBER"),
		ZhouRewardCompPoolBlock:  requireUint("ZHOU_REWARD_COMP_POOL_BLOCK_NUMBER"),
		ZhouRewardLendPoolBlock:  requireUint("ZHOU_REWARD_LEND_POOL_BLOCK_NUMBER"),
		ZhouRewardSnxPoolBlock:   requireUint("ZHOU_REWARD_SNX_POOL_BLOCK_NUMBER"),

		QinBeginBlock:         requireUint("QIN_BEGIN_BLOCK_NUMBER"),
		QinReduceRewardBlock:  requireUint("QIN_REDUCE_REWARD_BLOCK_NUMBER"),
		QinRewardBtcPoolBlock: requireUint("QIN_REWARD_BTC_POOL_BLOCK_NUMBER"),

		ZhouM: requireInt("ZHOU_M"),
		ZhouN: requireInt("ZHOU_N"),
		QinM:  requireInt("QIN_M"),
		QinN:  requireInt("QIN_N"),

		// BeginBlock/EndBlock bound the deployment's mining window (§4.3);
		// BaseRewardPerBlock and MaturityBlocks are deployment-level
		// constants not named in the enumerated configuration list but
		// required by the source's ShareMining(begin_block, end_block,
		// reward_per_block, mining_round) constructor — see DESIGN.md.
		BeginBlock:         requireUint("BEGIN_BLOCK_NUMBER"),
		EndBlock:           requireUint("END_BLOCK_NUMBER"),
		BaseRewardPerBlock: requireDecimal("REWARD_PER_BLOCK"),
		MaturityBlocks:     requireUint("MATURITY_BLOCKS"),
	}
}

func loadAddresses() reward.Addresses {
	return reward.Addresses{
		EthPerpShare:       requireEnv("ETH_PERP_SHARE_TOKEN_ADDRESS"),
		LinkPerpShare:      getEnvOrDefault("LINK_PERP_SHARE_TOKEN_ADDRESS", ""),
		CompPerpShare:      getEnvOrDefault("COMP_PERP_SHARE_TOKEN_ADDRESS", ""),
		LendPerpShare:      getEnvOrDefault("LEND_PERP_SHARE_TOKEN_ADDRESS", ""),
		SnxPerpShare:       getEnvOrDefault("SNX_PERP_SHARE_TOKEN_ADDRESS", ""),
		BtcPerpShare:       getEnvOrDefault("BTC_PERP_SHARE_TOKEN_ADDRESS", ""),
		UniswapMcbEthShare: getEnvOrDefault("UNISWAP_MCB_ETH_SHARE_TOKEN_ADDRESS", ""),
		UniswapMcbUsdcShare: getEnvOrDefault("UNISWAP_MCB_USDC_SHARE_TOKEN_ADDRESS", ""),
		McbToken:           requireEnv("MCB_TOKEN_ADDRESS"),
		ChainlinkBtcUsdFeed: getEnvOrDefault("CHAINLINK_BTC_USD_ADDRESS", ""),
	}
}

// requireEnv reads a required environment variable and exits if it is not set.
func requireEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		log.Fatalf("FATAL: required environment variable %s is not set", key)
	}
	return val
}

// getEnvOrDefault returns the env var value or a safe default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func requireUint(key string) uint64 {
	v, err := strconv.ParseUint(requireEnv(key), 10, 64)
	if err != nil {
		log.Fatalf("FATAL: environment variable %s must be a non-negative integer: %v", key, err)
	}
	return v
}

func requireInt(key string) int64 {
	v, err := strconv.ParseInt(requireEnv(key), 10, 64)
	if err != nil {
		log.Fatalf("FATAL: environment variable %s must be an integer: %v", key, err)
	}
	return v
}

func requireSeconds(key string) time.Duration {
	v, err := strconv.Atoi(requireEnv(key))
	if err != nil {
		log.Fatalf("FATAL: environment variable %s must be an integer number of seconds: %v", key, err)
	}
	return time.Duration(v) * time.Second
}

func requireDecimal(key string) decimalx.Decimal {
	d, err := decimalx.NewFromString(requireEnv(key))
	if err != nil {
		log.Fatalf("FATAL: environment variable %s must be a decimal number: %v", key, err)
	}
	return d
}
