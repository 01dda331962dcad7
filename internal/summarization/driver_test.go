package summarization

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetforge/internal/httpx"
	"meetforge/internal/models"
)

func newTestSummarizationDriver(t *testing.T, handler http.HandlerFunc) *Driver {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	caller := httpx.New(httpx.Options{MaxAttempts: 3, RetryBackoff: time.Millisecond, RequestTimeout: 5 * time.Second})
	return NewDriver(Config{Caller: caller, BaseURL: server.URL, APIKey: "test-key", Model: "gpt-4o-mini", MaxTokens: 2048})
}

func chatEnvelope(content string) []byte {
	payload, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return payload
}

func TestSummarize_HappyPath(t *testing.T) {
	content := `{"summary_sections": [{"summary": "recap", "start_ms": 0, "end_ms": 60000}], "action_items": []}`
	driver := newTestSummarizationDriver(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(chatEnvelope(content))
	})

	segments := testSegments()
	parsed, quality, err := driver.Summarize(context.Background(), segments, PromptOptions{
		JobID: "job-1", SectionMin: 3, SectionMax: 12, MinutesPerSection: 8,
	})

	require.NoError(t, err)
	require.Len(t, parsed.Sections, 1)
	assert.Equal(t, "recap", parsed.Sections[0].SummaryText)
	require.NotNil(t, quality)
}

func TestSummarize_MalformedJSONFails(t *testing.T) {
	driver := newTestSummarizationDriver(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(chatEnvelope("not valid json at all"))
	})

	_, _, err := driver.Summarize(context.Background(), testSegments(), PromptOptions{SectionMin: 3, SectionMax: 12, MinutesPerSection: 8})
	require.Error(t, err)
	var pErr *models.PipelineError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, models.KindMalformedResponse, pErr.Kind)
}

func TestSummarize_RetriesOn500ThenSucceeds(t *testing.T) {
	attempts := 0
	driver := newTestSummarizationDriver(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(chatEnvelope(`{"summary_sections": [], "action_items": []}`))
	})

	_, _, err := driver.Summarize(context.Background(), testSegments(), PromptOptions{SectionMin: 3, SectionMax: 12, MinutesPerSection: 8})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestSummarize_NoChoicesFailsAsMalformedSummary(t *testing.T) {
	driver := newTestSummarizationDriver(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	_, _, err := driver.Summarize(context.Background(), testSegments(), PromptOptions{SectionMin: 3, SectionMax: 12, MinutesPerSection: 8})
	require.Error(t, err)
}
