package common

import (
	"math/big"
	"time"
)

// DefaultMaxIterations bounds the number of dry-run calls spent on one fee search.
const DefaultMaxIterations = 10

// DefaultCacheTTL is how long a converged bridge fee estimate is served from cache.
const DefaultCacheTTL = 2 * time.Minute

// DefaultFeeCap is the upper bound of the fee search, in wei, when a chain does
// not configure one. With DefaultMaxIterations the search resolves the fee to
// roughly FeeCap/2^9 at best.
var DefaultFeeCap = new(big.Int).Mul(big.NewInt(5), big.NewInt(1e16)) // 0.05 ether

// MaxFeeBufferBps caps the headroom added on top of a probed minimal fee.
const MaxFeeBufferBps = 10_000

// Chains with deployed revnet suckers.
var KnownChainNames = map[uint64]string{
	1:        "ethereum",
	10:       "optimism",
	8453:     "base",
	42161:    "arbitrum",
	11155111: "sepolia",
	11155420: "optimism-sepolia",
	84532:    "base-sepolia",
	421614:   "arbitrum-sepolia",
}
