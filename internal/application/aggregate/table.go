package aggregate

import (
	"strings"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

// TableRow is one line of the tabular projection: a canonical company with
// everything observed for it, comma-joined, tagged with the tier that won
// its display slot.
type TableRow struct {
	Company    string
	Tier       biopharma.SourceTier
	Drugs      string
	Targets    string
	Mechanisms string
	Phases     string
}

// Table projects the answer into one row per canonical company.  Companies
// from the highest tier come first, then the rest; within each group rows
// follow first-appearance order.  Every indexed company yields exactly one
// row — the projection never drops a company.
func (ag *Aggregator) Table(ans *AggregatedAnswer) []TableRow {
	inHighest := make(map[string]bool, len(ans.FromHighestTier.Companies))
	for _, ref := range ans.FromHighestTier.Companies {
		inHighest[ref.Canonical] = true
	}

	var highest, other []TableRow
	for _, key := range ans.CompanyOrder {
		ca := ans.CompanyIndex[key]
		row := rowFor(ca)
		if inHighest[key] {
			row.Tier = ag.highestTier()
			highest = append(highest, row)
		} else {
			other = append(other, row)
		}
	}
	return append(highest, other...)
}

func rowFor(ca *CompanyAggregate) TableRow {
	var drugs, targets, mechanisms, phases []string
	targetSeen := make(map[string]bool)
	for _, d := range ca.Drugs {
		drugs = append(drugs, d.Display)
		for _, t := range d.Targets {
			if !targetSeen[t] {
				targetSeen[t] = true
				targets = append(targets, t)
			}
		}
		if d.Mechanism != "" {
			mechanisms = append(mechanisms, d.Mechanism)
		}
		if d.Phase != "" {
			phases = append(phases, d.Phase)
		}
	}
	return TableRow{
		Company:    ca.Display,
		Tier:       ca.FirstTier,
		Drugs:      strings.Join(drugs, ", "),
		Targets:    strings.Join(targets, ", "),
		Mechanisms: strings.Join(mechanisms, ", "),
		Phases:     strings.Join(phases, ", "),
	}
}
