package entity

import "strings"

// SynonymTable maps molecular-target surface forms onto canonical names.
// The table is data driven: groups are declared as plain string slices, the
// first member of each group being the canonical spelling.  Lookup keys are
// folded (upper-cased, separators removed) so "PD-1", "PD1" and "PD 1" all
// resolve to the same group.
type SynonymTable struct {
	// canonical maps a folded surface form to the group's canonical name.
	canonical map[string]string
	// groups maps a canonical name to every declared member spelling,
	// canonical first, declaration order preserved.
	groups map[string][]string
}

// defaultSynonymGroups covers the targets that dominate biopartnering
// questions.  Extend by constructing a table with NewSynonymTable; nothing
// outside this file hard-codes a target name.
var defaultSynonymGroups = [][]string{
	{"PD-1", "PD1", "PD 1", "CD279", "PDCD1"},
	{"PD-L1", "PDL1", "PD L1", "CD274", "B7-H1"},
	{"CTLA-4", "CTLA4", "CD152"},
	{"HER2", "HER-2", "ERBB2", "NEU"},
	{"EGFR", "HER1", "ERBB1"},
	{"VEGF", "VEGF-A", "VEGFA"},
	{"VEGFR2", "VEGFR-2", "KDR", "FLK1"},
	{"TNF", "TNF-ALPHA", "TNFA", "TNF-A"},
	{"CD20", "MS4A1"},
	{"CD19"},
	{"CD38"},
	{"CD47", "IAP"},
	{"BCMA", "TNFRSF17", "CD269"},
	{"TIGIT"},
	{"LAG-3", "LAG3", "CD223"},
	{"TIM-3", "TIM3", "HAVCR2"},
	{"OX40", "CD134", "TNFRSF4"},
	{"4-1BB", "41BB", "CD137", "TNFRSF9"},
	{"IL-6", "IL6"},
	{"IL-17A", "IL17A", "IL-17"},
	{"IL-23", "IL23"},
	{"JAK1"},
	{"JAK2"},
	{"BTK"},
	{"KRAS", "K-RAS"},
	{"ALK"},
	{"BRAF", "B-RAF"},
	{"MET", "C-MET", "HGFR"},
	{"TROP2", "TROP-2", "TACSTD2"},
	{"CLDN18.2", "CLAUDIN18.2", "CLDN18-2"},
	{"GLP-1", "GLP1", "GLP 1"},
	{"GIP"},
	{"SGLT2", "SGLT-2"},
	{"PCSK9"},
	{"CGRP"},
	{"FGFR2", "FGFR-2"},
	{"ROR1"},
	{"NECTIN-4", "NECTIN4"},
	{"DLL3"},
	{"GPRC5D"},
	{"FCRL5", "FCRH5"},
	{"TL1A", "TNFSF15"},
	{"A-SYN", "ALPHA-SYNUCLEIN", "SNCA"},
	{"TAU", "MAPT"},
	{"AMYLOID-BETA", "ABETA", "A-BETA"},
}

// foldTargetKey produces the lookup key for a target surface form: upper case
// with every space, underscore and hyphen removed.
func foldTargetKey(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		switch r {
		case ' ', '\t', '_', '-':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NewSynonymTable builds a table from synonym groups.  The first member of
// each group is its canonical name.  Empty groups and blank members are
// ignored; when two groups claim the same folded key, the first declaration
// wins.
func NewSynonymTable(groups [][]string) *SynonymTable {
	t := &SynonymTable{
		canonical: make(map[string]string, len(groups)*3),
		groups:    make(map[string][]string, len(groups)),
	}
	for _, group := range groups {
		members := make([]string, 0, len(group))
		for _, m := range group {
			if strings.TrimSpace(m) != "" {
				members = append(members, m)
			}
		}
		if len(members) == 0 {
			continue
		}
		canon := members[0]
		if _, taken := t.groups[canon]; taken {
			continue
		}
		t.groups[canon] = members
		for _, m := range members {
			key := foldTargetKey(m)
			if _, taken := t.canonical[key]; !taken {
				t.canonical[key] = canon
			}
		}
	}
	return t
}

// DefaultSynonymTable returns the built-in target synonym table.
func DefaultSynonymTable() *SynonymTable {
	return NewSynonymTable(defaultSynonymGroups)
}

// Canonical resolves a surface form to its canonical name.  The second
// return value reports whether the form belongs to a known group.
func (t *SynonymTable) Canonical(raw string) (string, bool) {
	canon, ok := t.canonical[foldTargetKey(raw)]
	return canon, ok
}

// Group returns every declared member spelling of the group that raw belongs
// to, canonical first.  It returns nil when raw is unknown.
func (t *SynonymTable) Group(raw string) []string {
	canon, ok := t.Canonical(raw)
	if !ok {
		return nil
	}
	members := t.groups[canon]
	out := make([]string, len(members))
	copy(out, members)
	return out
}

// Len returns the number of synonym groups in the table.
func (t *SynonymTable) Len() int { return len(t.groups) }
