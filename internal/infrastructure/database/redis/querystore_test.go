package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/application/querycache"
	"github.com/Karenlovesds/Agentic-RAG-Pipeline-for-Biopartnering-Insights-sub000/internal/infrastructure/monitoring/logging"
)

func TestQueryStoreKeyLayout(t *testing.T) {
	s := NewQueryStore(nil, "biopartner", logging.NewNopLogger())
	assert.Equal(t, "biopartner:qc:abc123", s.key("abc123"))
	assert.Equal(t, "biopartner:qc:*", s.pattern())

	s = NewQueryStore(nil, "", logging.NewNopLogger())
	assert.Equal(t, "biopartner:qc:x", s.key("x"), "empty prefix falls back to the default")
}

func TestDecodeEntryOverlaysMutableFields(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := &querycache.Entry{
		QueryHash:      querycache.HashQuery("who makes keytruda"),
		QueryText:      "who makes keytruda",
		Answer:         "Merck markets Keytruda.",
		Source:         "agent",
		RecordIDs:      []string{"cur-1"},
		CreatedAt:      created,
		ExpiresAt:      created.Add(24 * time.Hour),
		LastAccessedAt: created,
		AccessCount:    0,
	}
	body, err := json.Marshal(e)
	require.NoError(t, err)

	touched := created.Add(3 * time.Hour)
	fields := map[string]string{
		fieldBody:       string(body),
		fieldAccess:     "7",
		fieldLastAccess: touched.Format(time.RFC3339Nano),
		fieldExpiresAt:  e.ExpiresAt.Format(time.RFC3339Nano),
	}

	got, err := decodeEntry(fields)
	require.NoError(t, err)
	assert.Equal(t, e.Answer, got.Answer)
	assert.Equal(t, int64(7), got.AccessCount, "counter read from the hash field, not the body")
	assert.True(t, got.LastAccessedAt.Equal(touched))
	assert.True(t, got.ExpiresAt.Equal(e.ExpiresAt))
}

func TestDecodeEntryMissingBody(t *testing.T) {
	_, err := decodeEntry(map[string]string{fieldAccess: "1"})
	assert.Error(t, err)
}

func TestDecodeEntryBadBody(t *testing.T) {
	_, err := decodeEntry(map[string]string{fieldBody: "{not json"})
	assert.Error(t, err)
}
