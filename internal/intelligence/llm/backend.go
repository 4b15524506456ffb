// Package llm defines the language-model boundary and its HTTP
// implementation.  The reasoning loop talks only to the Backend interface;
// temperature is pinned to zero so repeated runs over an unchanged index are
// deterministic.
package llm

import "context"

// Tool describes one callable tool advertised to the model.  The closed set
// of tools lives in the reasoning loop; this type only carries the wire
// description.
type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object describing the tool arguments.
	Parameters map[string]interface{}
}

// ToolCall is the model's request to invoke a tool.
type ToolCall struct {
	Name string
	// Arguments is the raw JSON argument object as produced by the model.
	Arguments string
}

// Completion is the model's reply: prose text, tool-call requests, or both.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
}

// Backend is the language-model boundary.  Implementations must honour ctx
// cancellation and classify failures as ErrCodeModelTimeout or
// ErrCodeModelBackend so the reasoning loop can route both into its fallback.
type Backend interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, tools []Tool) (*Completion, error)
}
