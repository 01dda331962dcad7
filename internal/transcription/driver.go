// Package transcription implements C4: upload each audio-chunk asset to
// a Whisper-compatible transcription endpoint and normalize the raw
// response into a ChunkTranscriptionResult. Grounded on
// internal/transcription/adapters/openai_adapter.go's multipart upload
// in the teacher repo, generalized over internal/httpx for retries and
// golang.org/x/sync/errgroup for bounded fan-out across chunks.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"meetforge/internal/httpx"
	"meetforge/internal/models"
	"meetforge/pkg/logger"
)

// extensionMIMETypes is the fixed mapping from chunk extension to
// content type, per spec §4.4.
var extensionMIMETypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".webm": "audio/webm",
}

// Hints are the caller-supplied language/prompt guidance applied to
// every chunk in a job.
type Hints struct {
	Language string
	Prompt   string
}

// Driver uploads chunks to a Whisper-compatible transcription endpoint.
type Driver struct {
	caller      *httpx.Caller
	baseURL     string
	apiKey      string
	model       string
	userAgent   string
	concurrency int
	httpClient  *http.Client
}

// Config configures a Driver.
type Config struct {
	Caller      *httpx.Caller
	BaseURL     string
	APIKey      string
	Model       string
	UserAgent   string
	Concurrency int // max in-flight chunk uploads, per spec §5
}

func NewDriver(cfg Config) *Driver {
	return &Driver{
		caller:      cfg.Caller,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		userAgent:   cfg.UserAgent,
		concurrency: cfg.Concurrency,
		httpClient:  &http.Client{},
	}
}

// TranscribeChunks transcribes the given chunk assets (already in
// ascending chunk order) and returns one result per asset, in the same
// order, fanning out up to Concurrency requests at a time.
func (d *Driver) TranscribeChunks(ctx context.Context, chunks []models.MediaAsset, hints Hints) ([]models.ChunkTranscriptionResult, error) {
	results := make([]models.ChunkTranscriptionResult, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	if d.concurrency > 0 {
		g.SetLimit(d.concurrency)
	}

	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			result, err := d.transcribeOne(gctx, chunk, hints)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *Driver) transcribeOne(ctx context.Context, chunk models.MediaAsset, hints Hints) (models.ChunkTranscriptionResult, error) {
	if _, err := os.Stat(chunk.Path); err != nil {
		return models.ChunkTranscriptionResult{}, models.NewTranscriptionError(
			chunk.AssetID, models.KindInvalidInput, "chunk file missing", 0, models.ErrChunkFileMissing(chunk.AssetID, chunk.Path))
	}

	contentType, err := mimeTypeFor(chunk.Path)
	if err != nil {
		return models.ChunkTranscriptionResult{}, models.NewTranscriptionError(
			chunk.AssetID, models.KindInvalidInput, "unsupported audio extension", 0, err)
	}

	responseFormat := "verbose_json"
	diarize := false
	if strings.HasSuffix(d.model, "-diarize") {
		responseFormat = "diarized_json"
		diarize = true
	}

	raw, err := d.caller.Do(ctx, "transcription:"+chunk.AssetID, func(callCtx context.Context) (any, httpx.Attempt, error) {
		body, writer, err := buildMultipartBody(chunk.Path, contentType, d.model, responseFormat, diarize, hints)
		if err != nil {
			return nil, httpx.Attempt{}, err
		}

		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, d.baseURL+"/audio/transcriptions", body)
		if err != nil {
			return nil, httpx.Attempt{}, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
		if d.userAgent != "" {
			req.Header.Set("User-Agent", d.userAgent)
		}

		resp, err := d.httpClient.Do(req)
		if err != nil {
			return nil, httpx.Attempt{Err: err}, err
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		attempt := httpx.Attempt{StatusCode: resp.StatusCode, RetryAfter: resp.Header.Get("Retry-After")}

		if resp.StatusCode != http.StatusOK {
			return nil, attempt, fmt.Errorf("transcription API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 500))
		}
		return respBody, attempt, nil
	})

	if err != nil {
		status := 0
		if pErr, ok := asPipelineError(err); ok {
			status = pErr.StatusCode
		}
		logger.Error("transcription attempt exhausted", "asset_id", chunk.AssetID, "status", status, "error", err.Error())
		return models.ChunkTranscriptionResult{}, models.NewTranscriptionError(chunk.AssetID, models.KindTransientHTTP, err.Error(), status, err)
	}

	rawBody, _ := raw.([]byte)
	result, err := normalizeResponse(chunk.AssetID, rawBody, hints.Language)
	if err != nil {
		return models.ChunkTranscriptionResult{}, err
	}
	result.StartMs = chunk.StartMs
	result.EndMs = chunk.EndMs
	return result, nil
}

func buildMultipartBody(chunkPath, contentType, model, responseFormat string, diarize bool, hints Hints) (*bytes.Buffer, *multipart.Writer, error) {
	file, err := os.Open(chunkPath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(chunkPath)))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, nil, err
	}

	_ = writer.WriteField("model", model)
	_ = writer.WriteField("response_format", responseFormat)
	if diarize {
		_ = writer.WriteField("chunking_strategy", "vad")
	}
	if hints.Language != "" {
		_ = writer.WriteField("language", hints.Language)
	}
	if hints.Prompt != "" {
		_ = writer.WriteField("prompt", hints.Prompt)
	}

	if err := writer.Close(); err != nil {
		return nil, nil, err
	}
	return body, writer, nil
}

// flexibleSeconds tolerates a bare JSON number or a numeric string for
// a segment timestamp in seconds, per spec §4.5's "numeric start/end,
// parseable from strings." Mirrors internal/summarization/response.go's
// flexibleNumber.
type flexibleSeconds struct {
	seconds float64
	valid   bool
}

func (f *flexibleSeconds) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		f.seconds = num
		f.valid = true
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return nil // leave invalid; caller treats as missing
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
		f.seconds = v
		f.valid = true
	}
	return nil
}

// rawTranscriptionResponse tolerates both the `verbose_json` and
// `diarized_json` shapes: a top-level text, an optional segments array,
// and language reported either at the top level or under metadata.
type rawTranscriptionResponse struct {
	Text     *string `json:"text"`
	Language *string `json:"language"`
	Metadata *struct {
		Language *string `json:"language"`
	} `json:"metadata"`
	Segments []struct {
		Text    string          `json:"text"`
		Start   flexibleSeconds `json:"start"`
		End     flexibleSeconds `json:"end"`
		Speaker *string         `json:"speaker"`
		Label   *string         `json:"speaker_label"`
	} `json:"segments"`
}

func normalizeResponse(assetID string, body []byte, languageHint string) (models.ChunkTranscriptionResult, error) {
	var raw rawTranscriptionResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.ChunkTranscriptionResult{}, models.NewTranscriptionError(
			assetID, models.KindMalformedResponse, "transcription response is not valid JSON", 0, err)
	}

	text := ""
	if raw.Text != nil {
		text = *raw.Text
	} else {
		texts := make([]string, 0, len(raw.Segments))
		for _, seg := range raw.Segments {
			texts = append(texts, seg.Text)
		}
		text = strings.Join(texts, " ")
	}
	if strings.TrimSpace(text) == "" {
		return models.ChunkTranscriptionResult{}, models.NewTranscriptionError(
			assetID, models.KindMalformedResponse, "empty transcription text", 0, nil)
	}

	language := languageHint
	if raw.Language != nil && *raw.Language != "" {
		language = *raw.Language
	} else if raw.Metadata != nil && raw.Metadata.Language != nil && *raw.Metadata.Language != "" {
		language = *raw.Metadata.Language
	}

	segments := make([]models.RawSegment, 0, len(raw.Segments))
	for _, seg := range raw.Segments {
		speaker := ""
		if seg.Label != nil {
			speaker = *seg.Label
		} else if seg.Speaker != nil {
			speaker = *seg.Speaker
		}
		segments = append(segments, models.RawSegment{
			Text:         seg.Text,
			StartSeconds: seg.Start.seconds,
			EndSeconds:   seg.End.seconds,
			Speaker:      speaker,
			HasStart:     seg.Start.valid,
			HasEnd:       seg.End.valid,
		})
	}

	return models.ChunkTranscriptionResult{
		AssetID:  assetID,
		Text:     text,
		Language: language,
		Segments: segments,
	}, nil
}

func mimeTypeFor(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := extensionMIMETypes[ext]
	if !ok {
		return "", models.ErrUnsupportedAudioFormat(ext)
	}
	return mime, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func asPipelineError(err error) (*models.PipelineError, bool) {
	type unwrapper interface{ Unwrap() error }
	for e := err; e != nil; {
		if pErr, ok := e.(*models.PipelineError); ok {
			return pErr, true
		}
		u, ok := e.(unwrapper)
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return nil, false
}

