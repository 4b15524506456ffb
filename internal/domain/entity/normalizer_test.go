package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTargetFoldsSynonyms(t *testing.T) {
	n := NewNormalizer(nil)

	for _, raw := range []string{"PD-1", "PD1", "pd1", "PD 1", "pd_1", "CD279"} {
		assert.Equal(t, "PD-1", n.NormalizeTarget(raw), "raw=%q", raw)
	}
	assert.Equal(t, "HER2", n.NormalizeTarget("erbb2"))
	assert.Equal(t, "CTLA-4", n.NormalizeTarget("cd152"))
}

func TestNormalizeTargetUnknownPassesThrough(t *testing.T) {
	n := NewNormalizer(nil)

	assert.Equal(t, "XYZ99", n.NormalizeTarget("xyz 99"))
	assert.Equal(t, "FOO-BAR", n.NormalizeTarget("foo__bar"))
}

func TestNormalizeTargetPunctuationOnly(t *testing.T) {
	n := NewNormalizer(nil)

	assert.Equal(t, "", n.NormalizeTarget(""))
	assert.Equal(t, "", n.NormalizeTarget("  - _ "))
}

func TestExpandTargetSymmetry(t *testing.T) {
	n := NewNormalizer(nil)

	a := n.ExpandTarget("PD1")
	b := n.ExpandTarget("PD-1")
	c := n.ExpandTarget("cd279")
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
	require.NotEmpty(t, a)
	assert.Equal(t, "PD-1", a[0], "canonical form comes first")
	assert.Contains(t, a, "CD279")
}

func TestExpandTargetUnknownAndEmpty(t *testing.T) {
	n := NewNormalizer(nil)

	assert.Equal(t, []string{"XYZ99"}, n.ExpandTarget("xyz99"))
	assert.Nil(t, n.ExpandTarget(""))
	assert.Nil(t, n.ExpandTarget(" _- "))
}

func TestNormalizeCompany(t *testing.T) {
	cases := map[string]string{
		"Roche/Genentech":             "roche genentech",
		"roche genentech inc.":        "roche genentech",
		"Pfizer Inc.":                 "pfizer",
		"Acme Pharmaceuticals Inc":    "acme",
		"Johnson & Johnson":           "johnson and johnson",
		"Merck, Sharp & Dohme Corp":   "merck sharp and dohme",
		"BeiGene Ltd.":                "beigene",
		"Vertex  Pharmaceuticals":     "vertex",
		"Argenx Therapeutics":         "argenx therapeutics",
		"":                            "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeCompany(raw), "raw=%q", raw)
	}
}

func TestNormalizeDrug(t *testing.T) {
	cases := map[string]string{
		"Keytruda":            "keytruda",
		"beta amyloid mab":    "beta-amyloid-mab",
		"Beta-Amyloid  mAb":   "beta-amyloid-mab",
		"BETA_AMYLOID_MAB":    "beta-amyloid-mab",
		"  trastuzumab  ":     "trastuzumab",
		"":                    "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeDrug(raw), "raw=%q", raw)
	}
}

func TestNormalizationIdempotence(t *testing.T) {
	n := NewNormalizer(nil)
	inputs := []string{
		"PD 1", "pd-l1", "Roche/Genentech", "Johnson & Johnson",
		"Acme Pharmaceuticals Inc", "beta amyloid mab", "HER-2", "xyz_99", "",
	}
	for _, s := range inputs {
		assert.Equal(t, n.NormalizeTarget(s), n.NormalizeTarget(n.NormalizeTarget(s)), "target %q", s)
		assert.Equal(t, NormalizeCompany(s), NormalizeCompany(NormalizeCompany(s)), "company %q", s)
		assert.Equal(t, NormalizeDrug(s), NormalizeDrug(NormalizeDrug(s)), "drug %q", s)
	}
}

func TestCustomSynonymTable(t *testing.T) {
	table := NewSynonymTable([][]string{
		{"FOO-1", "FOO1", "FOO 1"},
		{"", "  "}, // ignored
	})
	n := NewNormalizer(table)

	assert.Equal(t, 1, table.Len())
	assert.Equal(t, "FOO-1", n.NormalizeTarget("foo1"))
	assert.Equal(t, []string{"FOO-1", "FOO1", "FOO 1"}, n.ExpandTarget("foo 1"))
	// Targets from the default table are unknown here and pass through.
	assert.Equal(t, "PD1", n.NormalizeTarget("pd1"))
}
