package sdk

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/celer-network/goutils/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	revnetCommon "github.com/revnet-network/revnet-sdk/common"
)

var ErrChainIdMismatch = errors.New("rpc chain id mismatch")

// ChainCaller is the part of ethclient.Client the estimator needs.
type ChainCaller interface {
	ethereum.ContractCaller
	ChainID(ctx context.Context) (*big.Int, error)
}

type EstimatorConfig struct {
	// Chain the RPC is expected to serve.
	ChainId uint64
	// Upper bound of the fee search in wei. Defaults to common.DefaultFeeCap.
	FeeCap *big.Int
	// Dry-run budget per estimate. Defaults to common.DefaultMaxIterations.
	MaxIterations int
	// Headroom added on top of the minimal fee for the recommended value, in
	// basis points.
	FeeBufferBps uint64
	// How long a converged estimate is served from cache. Defaults to
	// common.DefaultCacheTTL.
	CacheTTL time.Duration
}

func (c *EstimatorConfig) setDefaults() error {
	if c.FeeCap == nil {
		c.FeeCap = new(big.Int).Set(revnetCommon.DefaultFeeCap)
	}
	if c.FeeCap.Sign() <= 0 {
		return fmt.Errorf("fee cap must be positive, got %s", c.FeeCap)
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = revnetCommon.DefaultMaxIterations
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("invalid max iterations %d", c.MaxIterations)
	}
	if c.FeeBufferBps > revnetCommon.MaxFeeBufferBps {
		return fmt.Errorf("fee buffer %d bps exceeds %d", c.FeeBufferBps, revnetCommon.MaxFeeBufferBps)
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = revnetCommon.DefaultCacheTTL
	}
	return nil
}

type BridgeFeeQuery struct {
	Sucker common.Address
	Token  common.Address
	// Account the bridge call is simulated from.
	From common.Address
	// Native value moved alongside the fee, nil if the bridged token is not the
	// native token.
	Amount *big.Int
}

type BridgeFeeEstimate struct {
	ChainId uint64         `json:"chain_id"`
	Sucker  common.Address `json:"sucker"`
	Token   common.Address `json:"token"`
	// Nil when no fee up to the cap was accepted.
	MinimalFee *big.Int `json:"minimal_fee"`
	// MinimalFee plus the configured buffer, rounded up.
	Recommended *big.Int    `json:"recommended"`
	Converged   bool        `json:"converged"`
	Probes      int         `json:"probes"`
	Cached      bool        `json:"cached"`
	EstimatedAt time.Time   `json:"estimated_at"`
	Steps       []ProbeStep `json:"-"`
}

type BridgeFeeEstimator struct {
	caller ChainCaller
	cfg    EstimatorConfig
	cache  *FeeCache

	now    func() time.Time
	closer func()
}

// Dial connects to rpcUrl and returns an estimator for cfg.ChainId. cache may be
// nil to disable caching.
func Dial(ctx context.Context, rpcUrl string, cfg EstimatorConfig, cache *FeeCache) (*BridgeFeeEstimator, error) {
	ec, err := ethclient.DialContext(ctx, rpcUrl)
	if err != nil {
		return nil, fmt.Errorf("dialing rpc url %s err: %w", rpcUrl, err)
	}
	est, err := NewBridgeFeeEstimator(ctx, ec, cfg, cache)
	if err != nil {
		ec.Close()
		return nil, err
	}
	est.closer = ec.Close
	return est, nil
}

func NewBridgeFeeEstimator(ctx context.Context, caller ChainCaller, cfg EstimatorConfig, cache *FeeCache) (*BridgeFeeEstimator, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	chainId, err := caller.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("ChainID err: %w", err)
	}
	if chainId.Uint64() != cfg.ChainId {
		return nil, fmt.Errorf("%w: expected %d, rpc serves %s", ErrChainIdMismatch, cfg.ChainId, chainId)
	}
	return &BridgeFeeEstimator{
		caller: caller,
		cfg:    cfg,
		cache:  cache,
		now:    time.Now,
	}, nil
}

func (e *BridgeFeeEstimator) ChainId() uint64 {
	return e.cfg.ChainId
}

// Close releases the rpc connection if the estimator was created by Dial. The
// shared cache is owned by the caller and left open.
func (e *BridgeFeeEstimator) Close() {
	if e.closer != nil {
		e.closer()
	}
}

// EstimateBridgeFee finds the smallest value sucker.toRemote(token) accepts by
// dry-running it against the chain.
func (e *BridgeFeeEstimator) EstimateBridgeFee(ctx context.Context, q BridgeFeeQuery) (*BridgeFeeEstimate, error) {
	key, err := CacheKey(e.cfg.ChainId, e.cfg.FeeCap, e.cfg.MaxIterations, q)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		cached, found, err := e.cache.Get(key, e.cfg.CacheTTL, e.now())
		if err != nil {
			log.Warnf("fee cache read failed, key %s: %s", key, err.Error())
		} else if found {
			// the buffer is not part of the key, so entries may come from an
			// estimator configured with a different one
			cached.Recommended = applyBuffer(cached.MinimalFee, e.cfg.FeeBufferBps)
			cached.Cached = true
			return cached, nil
		}
	}

	sim, err := NewSuckerSimulator(e.caller, q.From, q.Sucker, q.Token)
	if err != nil {
		return nil, err
	}
	sim.BaseValue = q.Amount

	start := e.now()
	res, err := FindMinimalFee(ctx, ProbeRequest{
		UpperBound:    e.cfg.FeeCap,
		MaxIterations: e.cfg.MaxIterations,
		Simulate:      sim.Simulate,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate bridge fee, chain %d sucker %s err: %w", e.cfg.ChainId, q.Sucker.Hex(), err)
	}

	est := &BridgeFeeEstimate{
		ChainId:     e.cfg.ChainId,
		Sucker:      q.Sucker,
		Token:       q.Token,
		MinimalFee:  res.MinimalFee,
		Recommended: applyBuffer(res.MinimalFee, e.cfg.FeeBufferBps),
		Converged:   res.Converged,
		Probes:      len(res.Steps),
		EstimatedAt: start,
		Steps:       res.Steps,
	}
	log.Debugf("chain %d sucker %s token %s: minimal fee %v converged %t after %d probes",
		e.cfg.ChainId, q.Sucker.Hex(), q.Token.Hex(), est.MinimalFee, est.Converged, est.Probes)

	if e.cache != nil && est.Converged && est.MinimalFee != nil {
		if err := e.cache.Put(key, est); err != nil {
			log.Warnf("fee cache write failed, key %s: %s", key, err.Error())
		}
	}
	return est, nil
}

func applyBuffer(fee *big.Int, bps uint64) *big.Int {
	if fee == nil {
		return nil
	}
	denom := big.NewInt(10_000)
	out := new(big.Int).Mul(fee, new(big.Int).SetUint64(10_000+bps))
	out.Add(out, new(big.Int).Sub(denom, big.NewInt(1)))
	return out.Div(out, denom)
}
