// Package entity canonicalizes biopharmaceutical entity names.  The same
// real-world company, drug or molecular target appears across sources under
// many surface spellings; the functions here fold those spellings onto
// deterministic canonical keys so downstream deduplication can compare
// entities by string equality.
//
// Every function is pure and idempotent: normalize(normalize(x)) equals
// normalize(x) for all inputs, and identical inputs always yield identical
// outputs.  No function here performs I/O or holds mutable state.
package entity

import "strings"

// Normalizer folds entity surface forms onto canonical keys.  Target
// resolution is backed by a synonym table; company and drug folding are
// rule-based only.
type Normalizer struct {
	table *SynonymTable
}

// NewNormalizer constructs a Normalizer over the given synonym table.
// A nil table selects the built-in default.
func NewNormalizer(table *SynonymTable) *Normalizer {
	if table == nil {
		table = DefaultSynonymTable()
	}
	return &Normalizer{table: table}
}

// ─────────────────────────────────────────────────────────────────────────────
// Targets
// ─────────────────────────────────────────────────────────────────────────────

// NormalizeTarget canonicalizes a molecular-target name: upper case, spaces
// and underscores become hyphens, hyphen runs collapse, then the synonym
// table maps known groups onto their canonical spelling ("PD1" → "PD-1").
// Unknown tokens pass through normalized but unmapped.  Pure-punctuation
// input yields the empty string.
func (n *Normalizer) NormalizeTarget(raw string) string {
	norm := normalizeTargetSurface(raw)
	if norm == "" {
		return ""
	}
	if canon, ok := n.table.Canonical(norm); ok {
		return canon
	}
	return norm
}

// ExpandTarget returns the canonical form plus every member spelling of the
// synonym group raw belongs to, canonical first, in declaration order.  An
// unknown-but-non-empty token expands to a single-element set of its
// normalized form; blank or punctuation-only input expands to nil.
func (n *Normalizer) ExpandTarget(raw string) []string {
	norm := normalizeTargetSurface(raw)
	if norm == "" {
		return nil
	}
	if group := n.table.Group(norm); group != nil {
		return group
	}
	return []string{norm}
}

// normalizeTargetSurface applies the rule-based part of target folding,
// without synonym resolution.
func normalizeTargetSurface(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '_', '-':
			if b.Len() > 0 && !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		default:
			b.WriteRune(r)
			lastHyphen = false
		}
	}
	return strings.Trim(b.String(), "-")
}

// ─────────────────────────────────────────────────────────────────────────────
// Companies
// ─────────────────────────────────────────────────────────────────────────────

// companySuffixes are trailing legal/sector designators stripped from company
// names.  Stripping repeats so "Acme Pharmaceuticals Inc" folds to "acme".
var companySuffixes = map[string]bool{
	"inc":             true,
	"llc":             true,
	"ltd":             true,
	"limited":         true,
	"corp":            true,
	"corporation":     true,
	"co":              true,
	"plc":             true,
	"ag":              true,
	"sa":              true,
	"pharmaceutical":  true,
	"pharmaceuticals": true,
	"pharma":          true,
	"biosciences":     true,
	"therapeutics":    false, // part of many distinct names ("X Therapeutics" vs "X")
}

// NormalizeCompany folds a company name onto its deduplication key: lower
// case, "&" → "and", "/" → space, commas and trailing periods removed, legal
// suffixes stripped, whitespace collapsed.  The result is a key only —
// display always uses the first-seen raw spelling.
func NormalizeCompany(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "/", " ")
	s = strings.ReplaceAll(s, ",", " ")

	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.Trim(w, ".")
	}

	// Strip trailing legal suffixes, repeatedly.
	for len(words) > 1 {
		last := words[len(words)-1]
		if companySuffixes[last] {
			words = words[:len(words)-1]
			continue
		}
		break
	}

	// Drop emptied tokens left by the period trim.
	out := words[:0]
	for _, w := range words {
		if w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}

// ─────────────────────────────────────────────────────────────────────────────
// Drugs
// ─────────────────────────────────────────────────────────────────────────────

// NormalizeDrug folds a drug name onto its deduplication key: lower case with
// whitespace/underscore/hyphen runs collapsed to a single hyphen, so
// "Beta Amyloid mAb", "beta-amyloid mab" and "BETA_AMYLOID_MAB" compare
// equal.  The result is a key only; display uses the first-seen raw spelling.
func NormalizeDrug(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '_', '-':
			if b.Len() > 0 && !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		default:
			b.WriteRune(r)
			lastHyphen = false
		}
	}
	return strings.Trim(b.String(), "-.")
}
