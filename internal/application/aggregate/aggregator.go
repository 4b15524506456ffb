// Package aggregate reconciles scored hits from multiple source tiers into a
// single deduplicated answer structure: canonical entities bucketed by tier
// precedence, a per-company index, and an optional tabular projection.
package aggregate

import (
	"strings"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/domain/entity"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

// ============================================================================
// Output structures
// ============================================================================

// EntityRef is one canonical entity with its display spelling (the first raw
// spelling seen) and the tier it was first observed at.
type EntityRef struct {
	Canonical string
	Display   string
	Tier      biopharma.SourceTier
}

// Bucket holds the entities assigned to one side of the tier split, in order
// of first appearance in the hit list.
type Bucket struct {
	Companies []EntityRef
	Drugs     []EntityRef
	Targets   []EntityRef
}

// DrugInfo is one drug observed under a company, with attributes merged
// across tiers.  Merging never overwrites: a later observation only fills
// attributes that are still empty.
type DrugInfo struct {
	Canonical string
	Display   string
	Targets   []string
	Mechanism string
	DrugClass string
	Phase     string
	Status    string
}

// CompanyAggregate collects everything observed for one canonical company
// across all tiers.  FirstTier records where the company was first seen.
type CompanyAggregate struct {
	Canonical string
	Display   string
	FirstTier biopharma.SourceTier
	Drugs     []*DrugInfo

	drugByKey map[string]*DrugInfo
}

// AggregatedAnswer is the reconciled result of one query.  Invariant: a
// canonical entity appears in exactly one of the two buckets, and every
// canonical entity from the input hit set appears somewhere — enumeration
// over the answer is complete, with no elision.
type AggregatedAnswer struct {
	FromHighestTier Bucket
	FromOtherTiers  Bucket

	// CompanyIndex maps canonical company keys to their aggregates;
	// CompanyOrder preserves first-appearance order for deterministic output.
	CompanyIndex map[string]*CompanyAggregate
	CompanyOrder []string

	// Hits retains the input, already score-ordered, for citation rendering.
	Hits []biopharma.ScoredHit
}

// Empty reports whether the answer carries no entities at all.
func (a *AggregatedAnswer) Empty() bool {
	return len(a.FromHighestTier.Companies)+len(a.FromOtherTiers.Companies)+
		len(a.FromHighestTier.Drugs)+len(a.FromOtherTiers.Drugs)+
		len(a.FromHighestTier.Targets)+len(a.FromOtherTiers.Targets) == 0
}

// Companies returns both buckets' company refs, highest tier first.
func (a *AggregatedAnswer) Companies() []EntityRef {
	out := make([]EntityRef, 0, len(a.FromHighestTier.Companies)+len(a.FromOtherTiers.Companies))
	out = append(out, a.FromHighestTier.Companies...)
	out = append(out, a.FromOtherTiers.Companies...)
	return out
}

// Drugs returns both buckets' drug refs, highest tier first.
func (a *AggregatedAnswer) Drugs() []EntityRef {
	out := make([]EntityRef, 0, len(a.FromHighestTier.Drugs)+len(a.FromOtherTiers.Drugs))
	out = append(out, a.FromHighestTier.Drugs...)
	out = append(out, a.FromOtherTiers.Drugs...)
	return out
}

// Targets returns both buckets' target refs, highest tier first.
func (a *AggregatedAnswer) Targets() []EntityRef {
	out := make([]EntityRef, 0, len(a.FromHighestTier.Targets)+len(a.FromOtherTiers.Targets))
	out = append(out, a.FromHighestTier.Targets...)
	out = append(out, a.FromOtherTiers.Targets...)
	return out
}

// Citations renders one citation per distinct record in the hit set, in hit
// order.
func (a *AggregatedAnswer) Citations() []biopharma.Citation {
	seen := make(map[string]bool, len(a.Hits))
	out := make([]biopharma.Citation, 0, len(a.Hits))
	for _, h := range a.Hits {
		if h.Record.ID == "" || seen[h.Record.ID] {
			continue
		}
		seen[h.Record.ID] = true
		out = append(out, biopharma.Citation{
			RecordID: h.Record.ID,
			Tier:     h.Record.Tier,
			Company:  h.Record.Company,
			Drug:     h.Record.GenericName,
		})
	}
	return out
}

// ============================================================================
// Aggregator
// ============================================================================

// Aggregator reconciles hits according to a configurable tier order.  The
// split is two-level: the first tier of the order is "highest", everything
// else is "other".
type Aggregator struct {
	normalizer *entity.Normalizer
	tierOrder  []biopharma.SourceTier
	logger     logging.Logger
}

// NewAggregator wires an Aggregator.  A nil normalizer selects the default
// synonym table; an empty tier order selects the default precedence.
func NewAggregator(normalizer *entity.Normalizer, tierOrder []biopharma.SourceTier, logger logging.Logger) *Aggregator {
	if normalizer == nil {
		normalizer = entity.NewNormalizer(nil)
	}
	if len(tierOrder) == 0 {
		tierOrder = biopharma.DefaultTierOrder
	}
	return &Aggregator{normalizer: normalizer, tierOrder: tierOrder, logger: logger}
}

// highestTier returns the most-trusted tier of the configured order.
func (ag *Aggregator) highestTier() biopharma.SourceTier { return ag.tierOrder[0] }

// observation is one entity mention collected during extraction.
type observation struct {
	canonical string
	display   string
	tier      biopharma.SourceTier
}

// Aggregate reconciles a hit set.  Malformed hits (no usable entity fields)
// are skipped with a debug note; an empty hit set aggregates to an empty
// answer, not an error.
func (ag *Aggregator) Aggregate(hits []biopharma.ScoredHit) *AggregatedAnswer {
	ans := &AggregatedAnswer{
		CompanyIndex: make(map[string]*CompanyAggregate),
		Hits:         hits,
	}

	var companies, drugs, targets []observation
	for _, h := range hits {
		r := h.Record

		companyKey := entity.NormalizeCompany(r.Company)
		drugRaw := firstNonEmpty(r.GenericName, r.BrandName)
		drugKey := entity.NormalizeDrug(drugRaw)

		if companyKey == "" && drugKey == "" && strings.TrimSpace(r.Target) == "" {
			ag.logger.Debug("skipping malformed record during aggregation",
				logging.String("record_id", r.ID))
			continue
		}

		if companyKey != "" {
			companies = append(companies, observation{companyKey, r.Company, r.Tier})
		}
		if drugKey != "" {
			drugs = append(drugs, observation{drugKey, drugRaw, r.Tier})
		}
		for _, rawTarget := range splitTargets(r.Target) {
			canon := ag.normalizer.NormalizeTarget(rawTarget)
			if canon != "" {
				targets = append(targets, observation{canon, rawTarget, r.Tier})
			}
		}

		ag.indexCompany(ans, companyKey, r, drugRaw, drugKey)
	}

	ans.FromHighestTier.Companies, ans.FromOtherTiers.Companies = ag.bucket(companies)
	ans.FromHighestTier.Drugs, ans.FromOtherTiers.Drugs = ag.bucket(drugs)
	ans.FromHighestTier.Targets, ans.FromOtherTiers.Targets = ag.bucket(targets)
	return ans
}

// bucket performs the tier-priority dedup: an entity seen at the highest
// tier lands only in the first slice, everything else in the second.  Each
// slice preserves first-appearance order; display is the first raw spelling
// seen anywhere, and the recorded tier is the tier of first observation.
func (ag *Aggregator) bucket(obs []observation) (highest, other []EntityRef) {
	type entry struct {
		ref       EntityRef
		inHighest bool
	}
	byKey := make(map[string]*entry)
	var order []string

	top := ag.highestTier()
	for _, o := range obs {
		e, seen := byKey[o.canonical]
		if !seen {
			byKey[o.canonical] = &entry{
				ref:       EntityRef{Canonical: o.canonical, Display: o.display, Tier: o.tier},
				inHighest: o.tier == top,
			}
			order = append(order, o.canonical)
			continue
		}
		// Higher-trust sighting promotes the entity; display stays first-seen.
		if o.tier == top {
			e.inHighest = true
		}
	}

	for _, key := range order {
		e := byKey[key]
		if e.inHighest {
			highest = append(highest, e.ref)
		} else {
			other = append(other, e.ref)
		}
	}
	return highest, other
}

// indexCompany folds one hit into the company index.  Attributes merge and
// never overwrite: a later tier only back-fills missing values.
func (ag *Aggregator) indexCompany(ans *AggregatedAnswer, companyKey string,
	r biopharma.SourceRecord, drugRaw, drugKey string) {

	if companyKey == "" {
		return
	}

	ca, ok := ans.CompanyIndex[companyKey]
	if !ok {
		ca = &CompanyAggregate{
			Canonical: companyKey,
			Display:   r.Company,
			FirstTier: r.Tier,
			drugByKey: make(map[string]*DrugInfo),
		}
		ans.CompanyIndex[companyKey] = ca
		ans.CompanyOrder = append(ans.CompanyOrder, companyKey)
	}
	if drugKey == "" {
		return
	}
	di, ok := ca.drugByKey[drugKey]
	if !ok {
		di = &DrugInfo{Canonical: drugKey, Display: drugRaw}
		ca.drugByKey[drugKey] = di
		ca.Drugs = append(ca.Drugs, di)
	}

	for _, rawTarget := range splitTargets(r.Target) {
		canon := ag.normalizer.NormalizeTarget(rawTarget)
		if canon != "" && !containsString(di.Targets, canon) {
			di.Targets = append(di.Targets, canon)
		}
	}
	if di.Mechanism == "" {
		di.Mechanism = r.Mechanism
	}
	if di.DrugClass == "" {
		di.DrugClass = r.DrugClass
	}
	if di.Phase == "" {
		di.Phase = r.Phase
	}
	if di.Status == "" {
		di.Status = r.Status
	}
}

// splitTargets splits a comma-joined target field into trimmed tokens.
func splitTargets(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
