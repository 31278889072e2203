package sale

import (
	"fmt"
	"strings"
)

// Report renders the end-of-run sale summary.
func (c *Coordinator) Report() string {
	stats := c.Stats()

	soldPrice := "—"
	buyerName := "—"
	timeSold := "—"

	if stats.Sold {
		soldPrice = fmt.Sprintf("₹%d", stats.SoldPrice)
		buyerName = stats.BuyerName
		timeSold = stats.TimeSold.Format("02 Jan 2006 15:04:05")
	}

	var sb strings.Builder

	sb.WriteString("═════════════════════════════════════════════\n")
	sb.WriteString("          SALE REPORT\n")
	sb.WriteString("═════════════════════════════════════════════\n")
	fmt.Fprintf(&sb, "  Date:              %s\n", c.clock.Now().Format("02 Jan 2006"))
	fmt.Fprintf(&sb, "  Sold:              %s\n", yesNo(stats.Sold))
	fmt.Fprintf(&sb, "  Sold Price:        %s\n", soldPrice)
	fmt.Fprintf(&sb, "  Buyer Name:        %s\n", buyerName)
	fmt.Fprintf(&sb, "  Time Sold:         %s\n", timeSold)
	fmt.Fprintf(&sb, "  Messages Received: %d\n", stats.MessagesReceived)
	fmt.Fprintf(&sb, "  Negotiations:      %d\n", stats.Negotiations)
	sb.WriteString("═════════════════════════════════════════════\n")

	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}

	return "No"
}
