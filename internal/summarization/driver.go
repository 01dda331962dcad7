// Package summarization implements C6: build a chat-completion prompt
// from the assembled transcript, call the configured model via
// internal/httpx, and parse its response into summary sections, action
// items, and computed quality metrics. Grounded on internal/llm/openai.go's
// ChatRequest/ChatResponse shapes in the teacher repo.
package summarization

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"meetforge/internal/httpx"
	"meetforge/internal/models"
	"meetforge/pkg/logger"
)

// Driver calls a chat-completion endpoint to summarize a transcript.
type Driver struct {
	caller      *httpx.Caller
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	userAgent   string
	httpClient  *http.Client
}

type Config struct {
	Caller      *httpx.Caller
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	UserAgent   string
}

func NewDriver(cfg Config) *Driver {
	return &Driver{
		caller:      cfg.Caller,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		userAgent:   cfg.UserAgent,
		httpClient:  &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// summarizationSystemPrompt instructs the model to reply with valid
// JSON matching the §4.6 schema, per spec §6's two-message contract.
const summarizationSystemPrompt = "You are a helpful AI that summarizes meeting transcripts." +
	" Always respond with valid JSON matching the requested schema."

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Summarize builds the prompt from segments, calls the model, and
// returns the parsed and quality-scored summary.
func (d *Driver) Summarize(ctx context.Context, segments []models.TranscriptSegment, promptOpts PromptOptions) (*ParsedSummary, *models.SummaryQualityMetrics, error) {
	minStart, maxEnd := transcriptSpan(segments)
	prompt := BuildPrompt(segments, promptOpts)

	reqBody := chatRequest{
		Model: d.model,
		Messages: []chatMessage{
			{Role: "system", Content: summarizationSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    d.temperature,
		ResponseFormat: responseFormat{Type: "json_object"},
		MaxTokens:      d.maxTokens,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, nil, models.NewSummarizationError(models.KindOrchestration, "failed to marshal chat request", 0, err)
	}

	raw, err := d.caller.Do(ctx, "summarization:"+promptOpts.JobID, func(callCtx context.Context) (any, httpx.Attempt, error) {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, d.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, httpx.Attempt{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
		if d.userAgent != "" {
			req.Header.Set("User-Agent", d.userAgent)
		}

		resp, err := d.httpClient.Do(req)
		if err != nil {
			return nil, httpx.Attempt{Err: err}, err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		attempt := httpx.Attempt{StatusCode: resp.StatusCode, RetryAfter: resp.Header.Get("Retry-After")}
		if resp.StatusCode != http.StatusOK {
			return nil, attempt, fmt.Errorf("summarization API error (status %d): %s", resp.StatusCode, truncateBody(string(body), 500))
		}
		return body, attempt, nil
	})
	if err != nil {
		logger.Error("summarization attempt exhausted", "job_id", promptOpts.JobID, "error", err.Error())
		return nil, nil, models.NewSummarizationError(models.KindTransientHTTP, err.Error(), 0, err)
	}

	body, _ := raw.([]byte)
	var envelope chatResponse
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Choices) == 0 {
		return nil, nil, models.ErrMalformedSummary(err)
	}

	parsed, err := ParseResponse(promptOpts.JobID, []byte(envelope.Choices[0].Message.Content), minStart, maxEnd)
	if err != nil {
		return nil, nil, err
	}

	quality := ComputeQualityMetrics(segments, parsed, minStart, maxEnd)
	return parsed, &quality, nil
}

func truncateBody(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
