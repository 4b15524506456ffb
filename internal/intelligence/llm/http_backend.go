package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
)

// HTTPConfig holds chat-completions endpoint parameters.
type HTTPConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// Timeout bounds one Complete call end to end.
	Timeout time.Duration
}

// HTTPBackend talks to an OpenAI-compatible chat-completions endpoint.
type HTTPBackend struct {
	cfg    HTTPConfig
	http   *http.Client
	logger logging.Logger
}

// NewHTTPBackend constructs an HTTPBackend.  BaseURL and Model are required.
func NewHTTPBackend(cfg HTTPConfig, logger logging.Logger) (*HTTPBackend, error) {
	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil, errors.New(errors.ErrCodeValidation, "model base_url and model name are required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	return &HTTPBackend{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string                 `json:"name"`
		Description string                 `json:"description,omitempty"`
		Parameters  map[string]interface{} `json:"parameters,omitempty"`
	} `json:"function"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Tools       []chatTool    `json:"tools,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends one chat exchange with temperature 0.  Deadline overruns map
// to ErrCodeModelTimeout, everything else to ErrCodeModelBackend.
func (b *HTTPBackend) Complete(ctx context.Context, systemPrompt, userPrompt string, tools []Tool) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	reqBody := chatRequest{
		Model:       b.cfg.Model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	for _, t := range tools {
		ct := chatTool{Type: "function"}
		ct.Function.Name = t.Name
		ct.Function.Description = t.Description
		ct.Function.Parameters = t.Parameters
		reqBody.Tools = append(reqBody.Tools, ct)
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode chat request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build chat request")
	}
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	}

	started := time.Now()
	resp, err := b.http.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Wrap(err, errors.ErrCodeModelTimeout, "model backend timed out").
				WithDetail(fmt.Sprintf("after %s", time.Since(started).Round(time.Millisecond)))
		}
		return nil, errors.Wrap(err, errors.ErrCodeModelBackend, "model backend request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelBackend, "failed to read model response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.ErrCodeModelBackend,
			fmt.Sprintf("model backend returned %d", resp.StatusCode)).
			WithDetail(string(raw))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode model response")
	}
	if parsed.Error != nil {
		return nil, errors.New(errors.ErrCodeModelBackend, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New(errors.ErrCodeModelBackend, "model returned no choices")
	}

	msg := parsed.Choices[0].Message
	out := &Completion{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	b.logger.Debug("model call completed",
		logging.Duration("elapsed", time.Since(started)),
		logging.Int("tool_calls", len(out.ToolCalls)),
	)
	return out, nil
}
