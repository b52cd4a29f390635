package sdk

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/celer-network/goutils/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// JSON-RPC error code geth and most clients use for a reverted eth_call.
const revertErrorCode = 3

const suckerABIJSON = `[{"type":"function","name":"toRemote","stateMutability":"payable","inputs":[{"name":"token","type":"address"}],"outputs":[]}]`

var suckerABI = mustParseABI(suckerABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("invalid abi: %s", err.Error()))
	}
	return parsed
}

// CallSimulator dry-runs a contract call with eth_call, attaching the candidate
// fee as msg.value on top of BaseValue. A revert means the fee was rejected.
type CallSimulator struct {
	caller ethereum.ContractCaller

	From common.Address
	To   common.Address
	Data []byte
	// Value sent regardless of the fee, e.g. the amount being bridged when the
	// native token itself is moved. Nil means 0.
	BaseValue *big.Int
	// Block to simulate against, nil for latest.
	BlockNumber *big.Int
}

func NewCallSimulator(caller ethereum.ContractCaller, from, to common.Address, data []byte) *CallSimulator {
	return &CallSimulator{
		caller: caller,
		From:   from,
		To:     to,
		Data:   data,
	}
}

// NewSuckerSimulator builds a simulator for sucker.toRemote(token), the call
// that pays the bridge fee when moving a revnet's tokens to its remote chain.
func NewSuckerSimulator(caller ethereum.ContractCaller, from, sucker, token common.Address) (*CallSimulator, error) {
	data, err := PackToRemote(token)
	if err != nil {
		return nil, err
	}
	return NewCallSimulator(caller, from, sucker, data), nil
}

// PackToRemote returns the calldata of toRemote(token).
func PackToRemote(token common.Address) ([]byte, error) {
	data, err := suckerABI.Pack("toRemote", token)
	if err != nil {
		return nil, fmt.Errorf("pack toRemote err: %w", err)
	}
	return data, nil
}

// Simulate implements SimulateFunc.
func (s *CallSimulator) Simulate(ctx context.Context, fee *big.Int) (bool, error) {
	value := new(big.Int).Set(fee)
	if s.BaseValue != nil {
		value.Add(value, s.BaseValue)
	}
	to := s.To
	msg := ethereum.CallMsg{
		From:  s.From,
		To:    &to,
		Value: value,
		Data:  s.Data,
	}
	_, err := s.caller.CallContract(ctx, msg, s.BlockNumber)
	if err == nil {
		return true, nil
	}
	if reverted, reason := isRevert(err); reverted {
		log.Debugf("simulation reverted, to %s value %s reason %q", s.To.Hex(), value, reason)
		return false, nil
	}
	return false, fmt.Errorf("%w: eth_call to %s: %w", ErrTransport, s.To.Hex(), err)
}

func isRevert(err error) (bool, string) {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true, revertReason(dataErr.ErrorData())
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertErrorCode {
		return true, ""
	}
	if strings.Contains(err.Error(), "execution reverted") {
		return true, ""
	}
	return false, ""
}

func revertReason(data interface{}) string {
	s, ok := data.(string)
	if !ok {
		return ""
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return ""
	}
	reason, err := abi.UnpackRevert(b)
	if err != nil {
		// custom error selectors are reported raw
		return s
	}
	return reason
}
