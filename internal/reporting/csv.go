package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderCSV renders the per-epoch rows as CSV, one line per epoch snapshot.
func RenderCSV(r *Report) string {
	var sb strings.Builder
	sb.WriteString("epoch,taken_at,index,total_supply,total_credits,pending_withdrawal,pool_cycle\n")
	for _, row := range r.Epochs {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%s,%s,%d\n",
			row.Epoch,
			row.TakenAt.Format(time.RFC3339),
			row.Index,
			row.TotalSupply,
			row.TotalCredits,
			row.PendingWithdrawal,
			row.PoolCycleIndex))
	}
	return sb.String()
}
