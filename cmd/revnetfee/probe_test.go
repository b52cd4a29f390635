package main

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/revnet-network/revnet-sdk/sdk"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestPrintEstimate(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printEstimate(cmd, &sdk.BridgeFeeEstimate{
		ChainId:     8453,
		Sucker:      common.HexToAddress("0x164Ef8f77e1C88Fb2C724D3755488bE4a3ba4342"),
		Token:       nativeToken,
		MinimalFee:  big.NewInt(1_500_000_000_000_000),
		Recommended: big.NewInt(1_650_000_000_000_000),
		Converged:   true,
		Probes:      2,
		Steps: []sdk.ProbeStep{
			{Iteration: 0, Candidate: big.NewInt(0), Succeeded: false},
			{Iteration: 1, Candidate: big.NewInt(1_500_000_000_000_000), Succeeded: true},
		},
	})
	out := buf.String()
	require.Contains(t, out, "chain base (8453)")
	require.Contains(t, out, "token ETH")
	require.Contains(t, out, "minimal fee 0.0015 ETH (recommended 0.00165 ETH)")

	buf.Reset()
	printEstimate(cmd, &sdk.BridgeFeeEstimate{ChainId: 5, Token: common.HexToAddress("0x01"), Converged: true, Probes: 10})
	require.Contains(t, buf.String(), "chain 5 ")
	require.Contains(t, buf.String(), "no fee up to the cap was accepted after 10 probes")
}

func TestParseProbeQuery(t *testing.T) {
	probeFlags.sucker = "0x164Ef8f77e1C88Fb2C724D3755488bE4a3ba4342"
	probeFlags.token = "0x000000000000000000000000000000000000EEEe"
	probeFlags.amount = "1ether"
	defer func() { probeFlags.sucker, probeFlags.token, probeFlags.amount = "", "", "" }()

	q, err := parseProbeQuery()
	require.NoError(t, err)
	require.Equal(t, nativeToken, q.Token)
	require.Equal(t, common.Address{}, q.From)
	require.Equal(t, "1000000000000000000", q.Amount.String())

	probeFlags.token = "eth"
	_, err = parseProbeQuery()
	require.ErrorContains(t, err, "--token")
}
