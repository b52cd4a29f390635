package sdk

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gowebpki/jcs"
	"github.com/philippgille/gokv"
)

// FeeCache keeps converged bridge fee estimates in a gokv store so repeated
// requests for the same sucker do not re-run the dry-call search.
type FeeCache struct {
	store gokv.Store
}

func NewFeeCache(store gokv.Store) *FeeCache {
	return &FeeCache{store: store}
}

type cacheKeyFields struct {
	ChainId       uint64 `json:"chain_id"`
	Sucker        string `json:"sucker"`
	Token         string `json:"token"`
	From          string `json:"from"`
	Amount        string `json:"amount"`
	FeeCap        string `json:"fee_cap"`
	MaxIterations int    `json:"max_iterations"`
}

// CacheKey derives the store key of a query as the keccak256 hash of its
// canonical (RFC 8785) JSON form.
func CacheKey(chainId uint64, feeCap *big.Int, maxIterations int, q BridgeFeeQuery) (string, error) {
	amount := "0"
	if q.Amount != nil {
		amount = q.Amount.String()
	}
	raw, err := json.Marshal(cacheKeyFields{
		ChainId:       chainId,
		Sucker:        strings.ToLower(q.Sucker.Hex()),
		Token:         strings.ToLower(q.Token.Hex()),
		From:          strings.ToLower(q.From.Hex()),
		Amount:        amount,
		FeeCap:        feeCap.String(),
		MaxIterations: maxIterations,
	})
	if err != nil {
		return "", fmt.Errorf("json.Marshal err: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("jcs.Transform err: %w", err)
	}
	return crypto.Keccak256Hash(canonical).Hex(), nil
}

// Get returns the estimate stored under key if it is younger than ttl. Older
// entries are evicted.
func (c *FeeCache) Get(key string, ttl time.Duration, now time.Time) (*BridgeFeeEstimate, bool, error) {
	var est BridgeFeeEstimate
	found, err := c.store.Get(key, &est)
	if err != nil {
		return nil, false, fmt.Errorf("store.Get err: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	if now.Sub(est.EstimatedAt) > ttl {
		return nil, false, c.Delete(key)
	}
	return &est, true, nil
}

func (c *FeeCache) Put(key string, est *BridgeFeeEstimate) error {
	if err := c.store.Set(key, *est); err != nil {
		return fmt.Errorf("store.Set err: %w", err)
	}
	return nil
}

func (c *FeeCache) Delete(key string) error {
	if err := c.store.Delete(key); err != nil {
		return fmt.Errorf("store.Delete err: %w", err)
	}
	return nil
}

func (c *FeeCache) Close() error {
	return c.store.Close()
}
