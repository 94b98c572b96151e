package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Vault History Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if len(r.Epochs) > 0 {
		sb.WriteString(fmt.Sprintf("Epochs covered: %d–%d\n\n", r.FromEpoch, r.ToEpoch))
	}

	// Yield Summary
	sb.WriteString("## Yield Summary\n\n")
	if r.Yield == nil {
		sb.WriteString("No rebases in the covered range.\n\n")
	} else {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Rebases | %d |\n", r.Yield.Rebases))
		sb.WriteString(fmt.Sprintf("| Total Profit | %s |\n", r.Yield.TotalProfit))
		sb.WriteString(fmt.Sprintf("| Growth | %.6f |\n", r.Yield.Growth))
		sb.WriteString(fmt.Sprintf("| Mean Epoch Rate | %.6f |\n", r.Yield.MeanRate))
		sb.WriteString(fmt.Sprintf("| Max Epoch Rate | %.6f |\n", r.Yield.MaxRate))
		sb.WriteString(fmt.Sprintf("| Min Epoch Rate | %.6f |\n", r.Yield.MinRate))
		sb.WriteString(fmt.Sprintf("| APY | %.4f |\n", r.Yield.APY))
		sb.WriteString("\n")
	}

	// Ledger Health
	sb.WriteString("## Ledger Health\n\n")
	if !r.Health.Checked {
		sb.WriteString("No ledger snapshot available.\n\n")
	} else {
		status := "FAIL"
		if r.Health.WithinTolerance {
			status = "PASS"
		}
		sb.WriteString(fmt.Sprintf("Holders: %d | Conservation drift: %s wei | %s\n\n",
			r.Health.Holders, r.Health.Drift, status))
	}

	// Epoch Table
	sb.WriteString("## Epochs\n\n")
	if len(r.Epochs) == 0 {
		sb.WriteString("No epoch snapshots recorded.\n")
		return sb.String()
	}
	sb.WriteString("| Epoch | Index | Supply | Pending Withdrawal | Pool Cycle |\n")
	sb.WriteString("|-------|-------|--------|--------------------|------------|\n")
	for _, row := range r.Epochs {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %d |\n",
			row.Epoch, row.Index, row.TotalSupply, row.PendingWithdrawal, row.PoolCycleIndex))
	}
	sb.WriteString("\n")

	return sb.String()
}
