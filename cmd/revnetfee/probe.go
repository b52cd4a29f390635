package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	revnetCommon "github.com/revnet-network/revnet-sdk/common"
	"github.com/revnet-network/revnet-sdk/common/utils"
	"github.com/revnet-network/revnet-sdk/sdk"
	"github.com/spf13/cobra"
)

var probeFlags struct {
	rpc           string
	chainId       uint64
	sucker        string
	token         string
	from          string
	feeCap        string
	amount        string
	maxIterations int
	bufferBps     uint64
	timeout       time.Duration
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Search the minimal bridge fee of one sucker",
	Long: `Dry-runs sucker.toRemote(token) with candidate fees and prints the smallest
fee the sucker accepted together with every probe made.

Example:
  revnetfee probe --rpc https://mainnet.base.org --chain-id 8453 \
    --sucker 0x... --token 0x000000000000000000000000000000000000EEEe --cap 0.01ether`,
	RunE: runProbe,
}

func init() {
	f := probeCmd.Flags()
	f.StringVar(&probeFlags.rpc, "rpc", "", "RPC url of the chain the sucker lives on, env vars are expanded")
	f.Uint64Var(&probeFlags.chainId, "chain-id", 0, "chain id the RPC must serve")
	f.StringVar(&probeFlags.sucker, "sucker", "", "sucker contract address")
	f.StringVar(&probeFlags.token, "token", "", "token being bridged")
	f.StringVar(&probeFlags.from, "from", "", "account the call is simulated from, it must hold --amount plus the fee (default zero address, funded on mainnets)")
	f.StringVar(&probeFlags.feeCap, "cap", "", "upper bound of the search, e.g. 0.05ether (default 0.05ether)")
	f.StringVar(&probeFlags.amount, "amount", "", "native amount bridged on top of the fee, e.g. 1ether")
	f.IntVar(&probeFlags.maxIterations, "max-iterations", 0, "dry-run budget (default 10)")
	f.Uint64Var(&probeFlags.bufferBps, "buffer-bps", 0, "headroom added to the recommended fee in basis points")
	f.DurationVar(&probeFlags.timeout, "timeout", time.Minute, "deadline for the whole search")
	for _, name := range []string{"rpc", "chain-id", "sucker", "token"} {
		if err := probeCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
}

func parseProbeQuery() (sdk.BridgeFeeQuery, error) {
	var q sdk.BridgeFeeQuery
	var err error
	if q.Sucker, err = utils.ParseAddress(probeFlags.sucker); err != nil {
		return q, fmt.Errorf("--sucker: %w", err)
	}
	if q.Token, err = utils.ParseAddress(probeFlags.token); err != nil {
		return q, fmt.Errorf("--token: %w", err)
	}
	if probeFlags.from != "" {
		if q.From, err = utils.ParseAddress(probeFlags.from); err != nil {
			return q, fmt.Errorf("--from: %w", err)
		}
	}
	if probeFlags.amount != "" {
		if q.Amount, err = utils.ParseWei(probeFlags.amount); err != nil {
			return q, fmt.Errorf("--amount: %w", err)
		}
	}
	return q, nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	q, err := parseProbeQuery()
	if err != nil {
		return err
	}
	cfg := sdk.EstimatorConfig{
		ChainId:       probeFlags.chainId,
		MaxIterations: probeFlags.maxIterations,
		FeeBufferBps:  probeFlags.bufferBps,
	}
	if probeFlags.feeCap != "" {
		if cfg.FeeCap, err = utils.ParseWei(probeFlags.feeCap); err != nil {
			return fmt.Errorf("--cap: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, probeFlags.timeout)
	defer cancel()

	est, err := sdk.Dial(ctx, os.ExpandEnv(probeFlags.rpc), cfg, nil)
	if err != nil {
		return err
	}
	defer est.Close()

	res, err := est.EstimateBridgeFee(ctx, q)
	if err != nil {
		return err
	}
	printEstimate(cmd, res)
	return nil
}

func printEstimate(cmd *cobra.Command, res *sdk.BridgeFeeEstimate) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "chain %s sucker %s token %s\n", chainName(res.ChainId), res.Sucker.Hex(), tokenName(res.Token))
	res.Show(out)
	switch {
	case res.MinimalFee == nil:
		fmt.Fprintf(out, "no fee up to the cap was accepted after %d probes\n", res.Probes)
	case !res.Converged:
		fmt.Fprintf(out, "budget ran out: smallest accepted fee so far %s ETH (recommended %s ETH)\n",
			utils.FormatEther(res.MinimalFee), utils.FormatEther(res.Recommended))
	default:
		fmt.Fprintf(out, "minimal fee %s ETH (recommended %s ETH)\n",
			utils.FormatEther(res.MinimalFee), utils.FormatEther(res.Recommended))
	}
}

func chainName(chainId uint64) string {
	if name, ok := revnetCommon.KnownChainNames[chainId]; ok {
		return fmt.Sprintf("%s (%d)", name, chainId)
	}
	return fmt.Sprint(chainId)
}

var nativeToken = common.HexToAddress("0x000000000000000000000000000000000000EEEe")

func tokenName(token common.Address) string {
	if token == nativeToken {
		return "ETH"
	}
	return token.Hex()
}
