package rag

import (
	"fmt"
	"strings"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/intelligence/llm"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/types/biopharma"
)

const (
	toolSingleSearch = "single_search"
	toolMultiSearch  = "multi_search"
)

// systemPrompt frames the model as a biopartnering analyst restricted to the
// retrieved evidence and the two search tools.
const systemPrompt = `You are a biopharmaceutical partnering analyst. You answer questions about drugs, their targets, mechanisms, development phases, and the companies developing them.

Rules:
- Ground every statement in the retrieved records shown to you. Do not use outside knowledge.
- When you need evidence, call single_search for one focused query, or multi_search with up to 4 queries for broad enumeration questions.
- When listing companies or drugs, enumerate every single one found in the records. Never compress a list with phrases like "and others" or "among more".
- Prefer records from the curated source when sources disagree.
- If the retrieved records contain nothing relevant to the question, say plainly that no data was found.`

// toolset is the closed set of tools offered on every model call.
var toolset = []llm.Tool{
	{
		Name:        toolSingleSearch,
		Description: "Run one similarity search over the indexed drug records.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The search query.",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of records to retrieve.",
				},
			},
			"required": []string{"query"},
		},
	},
	{
		Name:        toolMultiSearch,
		Description: "Run up to 4 similarity searches and merge the results. Use for broad enumeration questions.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"queries": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Between 1 and 4 search queries.",
				},
			},
			"required": []string{"queries"},
		},
	},
}

// buildUserPrompt assembles the question with the evidence retrieved so far.
func buildUserPrompt(question string, hits []biopharma.ScoredHit, comparison []string) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\n")

	if len(comparison) == 2 {
		fmt.Fprintf(&b, "This is a comparison question. Contrast %s and %s on target, mechanism, phase, status, and developing company.\n\n",
			comparison[0], comparison[1])
	}

	if len(hits) == 0 {
		b.WriteString("Retrieved records: none yet. Use a search tool before answering.")
		return b.String()
	}

	b.WriteString("Retrieved records:\n")
	for _, h := range hits {
		b.WriteString(formatHit(h))
		b.WriteByte('\n')
	}
	b.WriteString("\nAnswer the question from these records only.")
	return b.String()
}

// formatHit renders one record as a compact evidence line.
func formatHit(h biopharma.ScoredHit) string {
	r := h.Record
	parts := []string{fmt.Sprintf("- [%s] %s", r.Tier, orUnknown(r.Company))}
	if drug := firstOf(r.GenericName, r.BrandName); drug != "" {
		parts = append(parts, drug)
	}
	if r.Target != "" {
		parts = append(parts, "targets: "+r.Target)
	}
	if r.Mechanism != "" {
		parts = append(parts, "mechanism: "+r.Mechanism)
	}
	if r.Phase != "" {
		parts = append(parts, "phase: "+r.Phase)
	}
	if r.Status != "" {
		parts = append(parts, "status: "+r.Status)
	}
	if r.NCTID != "" {
		parts = append(parts, "trial: "+r.NCTID)
	}
	return strings.Join(parts, " | ")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(unknown company)"
	}
	return s
}

func firstOf(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}
