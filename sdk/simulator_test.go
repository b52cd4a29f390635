package sdk

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

var (
	testSucker = common.HexToAddress("0x164Ef8f77e1C88Fb2C724D3755488bE4a3ba4342")
	testToken  = common.HexToAddress("0x000000000000000000000000000000000000EEEe")
	testFrom   = common.HexToAddress("0x1345c8a6b99536531F1fa3cfe37D8A5B7Fc859aA")
)

// jsonRPCErr mimics the error ethclient returns for a failed eth_call.
type jsonRPCErr struct {
	code int
	msg  string
	data interface{}
}

func (e *jsonRPCErr) Error() string          { return e.msg }
func (e *jsonRPCErr) ErrorCode() int         { return e.code }
func (e *jsonRPCErr) ErrorData() interface{} { return e.data }

// fakeBridge reverts every call whose value is below minValue.
type fakeBridge struct {
	chainId  uint64
	minValue *big.Int
	calls    []ethereum.CallMsg
	fault    error
}

func (f *fakeBridge) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls = append(f.calls, msg)
	if f.fault != nil {
		return nil, f.fault
	}
	if msg.Value.Cmp(f.minValue) < 0 {
		return nil, &jsonRPCErr{code: revertErrorCode, msg: "execution reverted: fee too low", data: encodeRevert("fee too low")}
	}
	return nil, nil
}

func (f *fakeBridge) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).SetUint64(f.chainId), nil
}

func encodeRevert(reason string) string {
	ty, _ := abi.NewType("string", "", nil)
	packed, err := abi.Arguments{{Type: ty}}.Pack(reason)
	if err != nil {
		panic(err)
	}
	return hexutil.Encode(append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...))
}

func TestSuckerSimulatorCalldata(t *testing.T) {
	bridge := &fakeBridge{minValue: big.NewInt(0)}
	sim, err := NewSuckerSimulator(bridge, testFrom, testSucker, testToken)
	require.NoError(t, err)

	ok, err := sim.Simulate(context.Background(), big.NewInt(7))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, bridge.calls, 1)

	msg := bridge.calls[0]
	require.Equal(t, testFrom, msg.From)
	require.Equal(t, testSucker, *msg.To)
	require.Equal(t, int64(7), msg.Value.Int64())
	require.Equal(t, suckerABI.Methods["toRemote"].ID, msg.Data[:4])

	args, err := suckerABI.Methods["toRemote"].Inputs.Unpack(msg.Data[4:])
	require.NoError(t, err)
	require.Equal(t, testToken, args[0].(common.Address))
}

func TestCallSimulatorRevertIsFailure(t *testing.T) {
	bridge := &fakeBridge{minValue: big.NewInt(1000)}
	sim, err := NewSuckerSimulator(bridge, testFrom, testSucker, testToken)
	require.NoError(t, err)

	ok, err := sim.Simulate(context.Background(), big.NewInt(999))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = sim.Simulate(context.Background(), big.NewInt(1000))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCallSimulatorBaseValue(t *testing.T) {
	bridge := &fakeBridge{minValue: big.NewInt(1000)}
	sim, err := NewSuckerSimulator(bridge, testFrom, testSucker, testToken)
	require.NoError(t, err)
	sim.BaseValue = big.NewInt(600)

	ok, err := sim.Simulate(context.Background(), big.NewInt(400))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1000), bridge.calls[0].Value.Int64())
}

func TestCallSimulatorTransportFault(t *testing.T) {
	bridge := &fakeBridge{minValue: big.NewInt(0), fault: errors.New("connection refused")}
	sim := NewCallSimulator(bridge, testFrom, testSucker, nil)

	ok, err := sim.Simulate(context.Background(), big.NewInt(1))
	require.False(t, ok)
	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, bridge.fault)

	// non revert rpc errors are faults too
	bridge.fault = &jsonRPCErr{code: -32000, msg: "insufficient funds for transfer"}
	_, err = sim.Simulate(context.Background(), big.NewInt(1))
	require.ErrorIs(t, err, ErrTransport)
}

func TestIsRevert(t *testing.T) {
	reverted, reason := isRevert(&jsonRPCErr{code: revertErrorCode, msg: "execution reverted", data: encodeRevert("nope")})
	require.True(t, reverted)
	require.Equal(t, "nope", reason)

	// custom error selector, not decodable as Error(string)
	reverted, reason = isRevert(&jsonRPCErr{code: revertErrorCode, msg: "execution reverted", data: "0xdeadbeef"})
	require.True(t, reverted)
	require.Equal(t, "0xdeadbeef", reason)

	reverted, _ = isRevert(&jsonRPCErr{code: -32000, msg: "execution reverted"})
	require.True(t, reverted)

	reverted, _ = isRevert(errors.New("i/o timeout"))
	require.False(t, reverted)
}

func TestSimulatorDrivesProbe(t *testing.T) {
	bridge := &fakeBridge{minValue: big.NewInt(300_000)}
	sim, err := NewSuckerSimulator(bridge, testFrom, testSucker, testToken)
	require.NoError(t, err)

	res, err := FindMinimalFee(context.Background(), ProbeRequest{
		UpperBound:    big.NewInt(1 << 20),
		MaxIterations: 25,
		Simulate:      sim.Simulate,
	})
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.Equal(t, int64(300_000), res.MinimalFee.Int64())
	require.Len(t, bridge.calls, len(res.Steps))
}
