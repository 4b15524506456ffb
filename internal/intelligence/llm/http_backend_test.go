package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
	apperrors "github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/pkg/errors"
)

func newTestBackend(t *testing.T, timeout time.Duration, handler http.HandlerFunc) *HTTPBackend {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	b, err := NewHTTPBackend(HTTPConfig{
		BaseURL: srv.URL,
		Model:   "test-model",
		Timeout: timeout,
	}, logging.NewNopLogger())
	require.NoError(t, err)
	return b
}

func TestCompleteReturnsTextWithTemperatureZero(t *testing.T) {
	b := newTestBackend(t, time.Second, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.0, req.Temperature)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": "Merck develops pembrolizumab."}},
			},
		})
	})

	got, err := b.Complete(context.Background(), "sys", "who makes keytruda", nil)
	require.NoError(t, err)
	assert.Equal(t, "Merck develops pembrolizumab.", got.Text)
	assert.Empty(t, got.ToolCalls)
}

func TestCompleteParsesToolCalls(t *testing.T) {
	b := newTestBackend(t, time.Second, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "search_drugs", req.Tools[0].Function.Name)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{
					"content": "",
					"tool_calls": []map[string]interface{}{
						{"function": map[string]interface{}{
							"name":      "search_drugs",
							"arguments": `{"query":"PD-1 companies"}`,
						}},
					},
				}},
			},
		})
	})

	tools := []Tool{{Name: "search_drugs", Description: "search indexed records"}}
	got, err := b.Complete(context.Background(), "sys", "question", tools)
	require.NoError(t, err)
	require.Len(t, got.ToolCalls, 1)
	assert.Equal(t, "search_drugs", got.ToolCalls[0].Name)
	assert.JSONEq(t, `{"query":"PD-1 companies"}`, got.ToolCalls[0].Arguments)
}

func TestCompleteTimeoutIsClassified(t *testing.T) {
	b := newTestBackend(t, 50*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background connection read;
		// otherwise it never observes the client disconnect and the request
		// context is never cancelled, deadlocking srv.Close.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})

	_, err := b.Complete(context.Background(), "sys", "question", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeModelTimeout))
}

func TestCompleteServerErrorIsClassified(t *testing.T) {
	b := newTestBackend(t, time.Second, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := b.Complete(context.Background(), "sys", "question", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeModelBackend))
}

func TestCompleteNoChoices(t *testing.T) {
	b := newTestBackend(t, time.Second, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	})

	_, err := b.Complete(context.Background(), "sys", "question", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeModelBackend))
}
