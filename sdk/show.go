package sdk

import (
	"io"
	"math/big"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Show pretty prints the probe steps of an estimate to w. Useful for debugging
// a fee search against a live chain.
func (e *BridgeFeeEstimate) Show(w io.Writer) {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "candidate (wei)", "accepted"})
	for _, s := range e.Steps {
		t.AppendRow(table.Row{s.Iteration, s.Candidate.String(), s.Succeeded})
	}
	t.AppendFooter(table.Row{"", "minimal fee", formatFee(e.MinimalFee)})
	t.Render()
}

func formatFee(fee *big.Int) string {
	if fee == nil {
		return "none"
	}
	return fee.String()
}
