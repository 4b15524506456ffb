package rag

import (
	"fmt"
	"strings"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/application/aggregate"
)

// renderFallback produces the deterministic answer used when the reasoning
// loop cannot deliver: one line per company from the aggregated hit set,
// highest-trust sources first, each line tagged with its source tier.  The
// same hit set always renders the same text.
func renderFallback(ag *aggregate.Aggregator, ans *aggregate.AggregatedAnswer) string {
	rows := ag.Table(ans)
	if len(rows) == 0 {
		return "No matching records were found in the indexed sources."
	}

	var b strings.Builder
	b.WriteString("Results compiled directly from the indexed sources:\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "- %s [%s]", row.Company, row.Tier)
		if row.Drugs != "" {
			b.WriteString(": " + row.Drugs)
		}
		if row.Targets != "" {
			b.WriteString(" — targets " + row.Targets)
		}
		if row.Phases != "" {
			b.WriteString(" (" + row.Phases + ")")
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "\n%d compan", len(rows))
	if len(rows) == 1 {
		b.WriteString("y listed")
	} else {
		b.WriteString("ies listed")
	}
	b.WriteString("; this answer was assembled without model reasoning.")
	return b.String()
}
