package sdk

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/celer-network/goutils/log"
	"github.com/revnet-network/revnet-sdk/common"
)

var (
	ErrInvalidProbeRequest = errors.New("invalid probe request")
	ErrTransport           = errors.New("simulation transport fault")
)

// SimulateFunc dry-runs an operation carrying the candidate fee. ok=false with a
// nil error means the fee is insufficient and only steers the search. A non-nil
// error means the probing mechanism itself failed and aborts the search.
type SimulateFunc func(ctx context.Context, candidate *big.Int) (ok bool, err error)

type ProbeRequest struct {
	// Smallest fee considered. Defaults to 0 if nil.
	LowerBound *big.Int
	// Largest fee considered, inclusive. Required.
	UpperBound *big.Int
	// Maximum number of Simulate calls. Defaults to common.DefaultMaxIterations if 0.
	MaxIterations int
	Simulate      SimulateFunc
}

type ProbeStep struct {
	Iteration int
	Candidate *big.Int
	Succeeded bool
}

type ProbeResult struct {
	// The smallest candidate Simulate accepted, nil if none did.
	MinimalFee *big.Int
	// False when the iteration budget ran out before the search interval
	// collapsed. MinimalFee is then only the best value seen, not necessarily the
	// minimum.
	Converged bool
	Steps     []ProbeStep
}

// Found reports whether any probed candidate succeeded.
func (r *ProbeResult) Found() bool {
	return r.MinimalFee != nil
}

func (req ProbeRequest) normalize() (lower, upper *big.Int, maxIter int, err error) {
	if req.Simulate == nil {
		return nil, nil, 0, fmt.Errorf("%w: nil simulate func", ErrInvalidProbeRequest)
	}
	if req.UpperBound == nil {
		return nil, nil, 0, fmt.Errorf("%w: upper bound is required", ErrInvalidProbeRequest)
	}
	lower = new(big.Int)
	if req.LowerBound != nil {
		lower.Set(req.LowerBound)
	}
	if lower.Sign() < 0 {
		return nil, nil, 0, fmt.Errorf("%w: negative lower bound %s", ErrInvalidProbeRequest, lower)
	}
	if req.UpperBound.Cmp(lower) < 0 {
		return nil, nil, 0, fmt.Errorf("%w: upper bound %s below lower bound %s", ErrInvalidProbeRequest, req.UpperBound, lower)
	}
	maxIter = req.MaxIterations
	if maxIter < 0 {
		return nil, nil, 0, fmt.Errorf("%w: negative max iterations %d", ErrInvalidProbeRequest, maxIter)
	}
	if maxIter == 0 {
		maxIter = common.DefaultMaxIterations
	}
	return lower, new(big.Int).Set(req.UpperBound), maxIter, nil
}

// FindMinimalFee binary searches [LowerBound, UpperBound] for the smallest fee
// Simulate accepts. The lower bound is always probed first. Probes are issued
// sequentially since each one narrows the interval for the next.
func FindMinimalFee(ctx context.Context, req ProbeRequest) (*ProbeResult, error) {
	lower, upper, maxIter, err := req.normalize()
	if err != nil {
		return nil, err
	}

	left := new(big.Int).Set(lower)
	right := upper
	res := &ProbeResult{}
	one := big.NewInt(1)

	for i := 0; i < maxIter && left.Cmp(right) <= 0; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("probe aborted at iteration %d: %w", i, err)
		}

		var candidate *big.Int
		if i == 0 {
			candidate = new(big.Int).Set(lower)
		} else {
			candidate = new(big.Int).Add(left, right)
			candidate.Rsh(candidate, 1)
		}

		ok, err := req.Simulate(ctx, new(big.Int).Set(candidate))
		if err != nil {
			return nil, fmt.Errorf("simulate candidate %s err: %w", candidate, err)
		}
		log.Debugf("fee probe iteration %d candidate %s ok %t", i, candidate, ok)
		res.Steps = append(res.Steps, ProbeStep{Iteration: i, Candidate: candidate, Succeeded: ok})

		if !ok {
			left = new(big.Int).Add(candidate, one)
			continue
		}
		res.MinimalFee = candidate
		if candidate.Cmp(lower) == 0 {
			res.Converged = true
			return res, nil
		}
		right = new(big.Int).Sub(candidate, one)
	}

	res.Converged = left.Cmp(right) > 0
	return res, nil
}
