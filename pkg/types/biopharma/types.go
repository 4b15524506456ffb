// Package biopharma defines the shared wire types of the Biopartnering
// Insights engine: source records as they come out of the collection pipeline,
// scored retrieval hits, and the answer envelope returned to callers.
package biopharma

import (
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Source tiers
// ─────────────────────────────────────────────────────────────────────────────

// SourceTier identifies the provenance class of a record.  Tiers are ordered
// by trustworthiness; reconciliation prefers records from higher tiers.
type SourceTier string

const (
	// TierCurated is the manually curated ground-truth dataset.
	TierCurated SourceTier = "curated"
	// TierInternalStore is the engine's own accumulated database.
	TierInternalStore SourceTier = "internal_store"
	// TierTrialRegistry covers clinical-trial registry records.
	TierTrialRegistry SourceTier = "trial_registry"
	// TierRegulatoryDoc covers regulatory filings and labels.
	TierRegulatoryDoc SourceTier = "regulatory_doc"
	// TierExternalProfile covers scraped company/pipeline profiles.
	TierExternalProfile SourceTier = "external_profile"
)

// DefaultTierOrder is the default precedence, most trusted first.  The order
// is configurable; components take a []SourceTier and fall back to this slice
// when given none.
var DefaultTierOrder = []SourceTier{
	TierCurated,
	TierInternalStore,
	TierTrialRegistry,
	TierRegulatoryDoc,
	TierExternalProfile,
}

// TierRank returns the position of tier in order (lower is more trusted).
// Tiers absent from order rank below every listed tier.
func TierRank(tier SourceTier, order []SourceTier) int {
	for i, t := range order {
		if t == tier {
			return i
		}
	}
	return len(order)
}

// ValidTier reports whether tier is one of the known provenance classes.
func ValidTier(tier SourceTier) bool {
	switch tier {
	case TierCurated, TierInternalStore, TierTrialRegistry, TierRegulatoryDoc, TierExternalProfile:
		return true
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Records and hits
// ─────────────────────────────────────────────────────────────────────────────

// SourceRecord is one drug-program record as produced by the collection
// pipeline.  Field names follow the upstream metadata schema.
type SourceRecord struct {
	ID          string     `json:"id"`
	Tier        SourceTier `json:"source"`
	GenericName string     `json:"generic_name"`
	BrandName   string     `json:"brand_name,omitempty"`
	Company     string     `json:"company"`
	Target      string     `json:"target,omitempty"`
	Mechanism   string     `json:"mechanism,omitempty"`
	DrugClass   string     `json:"drug_class,omitempty"`
	Indication  string     `json:"indication,omitempty"`
	Phase       string     `json:"phase,omitempty"`
	Status      string     `json:"status,omitempty"`
	NCTID       string     `json:"nct_id,omitempty"`
}

// ChunkText flattens the record into the pipe-joined text that gets embedded
// and indexed, e.g. "Drug: pembrolizumab | Brand: Keytruda | Company: Merck".
// Empty fields are skipped so the chunk carries no blank segments.
func (r SourceRecord) ChunkText() string {
	parts := make([]string, 0, 9)
	appendPart := func(label, val string) {
		if strings.TrimSpace(val) != "" {
			parts = append(parts, label+": "+val)
		}
	}
	appendPart("Drug", r.GenericName)
	appendPart("Brand", r.BrandName)
	appendPart("Company", r.Company)
	appendPart("Target", r.Target)
	appendPart("Mechanism", r.Mechanism)
	appendPart("Class", r.DrugClass)
	appendPart("Indication", r.Indication)
	appendPart("Phase", r.Phase)
	appendPart("Status", r.Status)
	return strings.Join(parts, " | ")
}

// Validate reports nil when the record carries the minimum fields the index
// requires.  Records failing validation are rejected at the ingestion
// boundary, never silently indexed.
func (r SourceRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrMissingID
	}
	if !ValidTier(r.Tier) {
		return ErrUnknownTier
	}
	if strings.TrimSpace(r.GenericName) == "" && strings.TrimSpace(r.Company) == "" {
		return ErrEmptyRecord
	}
	return nil
}

// Validation sentinels; the ingestion layer wraps these with ErrCodeMalformedRecord.
var (
	ErrMissingID   = validationError("record id is empty")
	ErrUnknownTier = validationError("record tier is not a known source tier")
	ErrEmptyRecord = validationError("record has neither generic name nor company")
)

type validationError string

func (e validationError) Error() string { return string(e) }

// IndexMatch is one raw nearest-neighbour result from the similarity index:
// record metadata plus the index's native distance (lower is closer).
type IndexMatch struct {
	Record   SourceRecord
	Distance float64
}

// ScoredHit is one retrieval result: the record plus its similarity score.
// Score is normalised to (0, 1] via 1/(1+distance), higher is more similar.
type ScoredHit struct {
	Record SourceRecord `json:"record"`
	Score  float64      `json:"score"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Answers
// ─────────────────────────────────────────────────────────────────────────────

// AnswerSource tags how an answer was produced.
type AnswerSource string

const (
	// SourceAgent marks answers synthesised by the reasoning loop.
	SourceAgent AnswerSource = "agent"
	// SourceFallbackSearch marks deterministic answers rendered from direct
	// search results after the reasoning loop gave up.
	SourceFallbackSearch AnswerSource = "fallback_search"
	// SourceError marks terminal failures; the answer text explains the error.
	SourceError AnswerSource = "error"
)

// Citation points at one record that supported an answer.
type Citation struct {
	RecordID string     `json:"record_id"`
	Tier     SourceTier `json:"tier"`
	Company  string     `json:"company,omitempty"`
	Drug     string     `json:"drug,omitempty"`
}

// AnswerResult is the envelope returned for every question, regardless of
// whether the engine succeeded.  Success is false only for SourceError.
type AnswerResult struct {
	Question  string       `json:"question"`
	Answer    string       `json:"answer"`
	Source    AnswerSource `json:"source"`
	Citations []Citation   `json:"citations,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Success   bool         `json:"success"`
}
