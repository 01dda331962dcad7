package models

import "fmt"

// Kind categorizes a pipeline error so the orchestrator can map it to
// the stage-appropriate failure key without string-matching messages.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindExternalToolFailure Kind = "external_tool_failure"
	KindTransientHTTP       Kind = "transient_http_failure"
	KindPermanentHTTP       Kind = "permanent_http_failure"
	KindMalformedResponse   Kind = "malformed_response"
	KindOrchestration       Kind = "orchestration_failure"
)

// PipelineError wraps an underlying error with a taxonomy Kind and an
// optional HTTP status code, per spec §7.
type PipelineError struct {
	Kind       Kind
	Message    string
	StatusCode int // 0 when not HTTP-related
	Err        error
}

func (e *PipelineError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Kind, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func NewError(kind Kind, message string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Err: cause}
}

func NewHTTPError(kind Kind, message string, status int, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, StatusCode: status, Err: cause}
}

// Named error constructors matching the specific conditions spec.md
// names in §4.2/§4.4/§4.5/§4.6 (TranscodeFailed, ProbeFailed, etc).
// These are thin sugar over PipelineError so callers can still do
// errors.As(err, &models.PipelineError{}) uniformly.

func ErrTranscoderMissing(cause error) *PipelineError {
	return NewError(KindExternalToolFailure, "transcoder binary not found", cause)
}

func ErrTranscodeFailed(cause error) *PipelineError {
	return NewError(KindExternalToolFailure, "transcode subprocess failed", cause)
}

func ErrProbeFailed(cause error) *PipelineError {
	return NewError(KindExternalToolFailure, "probe did not report a positive duration", cause)
}

func ErrEmptyAudio() *PipelineError {
	return NewError(KindInvalidInput, "source media has zero duration", nil)
}

func ErrInvalidConfig(message string, cause error) *PipelineError {
	return NewError(KindInvalidInput, message, cause)
}

func ErrUnsupportedAudioFormat(ext string) *PipelineError {
	return NewError(KindInvalidInput, fmt.Sprintf("unsupported audio extension %q", ext), nil)
}

func ErrChunkFileMissing(assetID, path string) *PipelineError {
	return NewError(KindInvalidInput, fmt.Sprintf("chunk file missing for asset %s: %s", assetID, path), nil)
}

// TranscriptionError carries the offending asset_id alongside the
// taxonomy error, per spec §4.4.
type TranscriptionError struct {
	*PipelineError
	AssetID string
}

func NewTranscriptionError(assetID string, kind Kind, message string, status int, cause error) *TranscriptionError {
	return &TranscriptionError{
		PipelineError: NewHTTPError(kind, message, status, cause),
		AssetID:       assetID,
	}
}

// SummarizationError mirrors TranscriptionError for the chat-completion
// call.
type SummarizationError struct {
	*PipelineError
}

func NewSummarizationError(kind Kind, message string, status int, cause error) *SummarizationError {
	return &SummarizationError{PipelineError: NewHTTPError(kind, message, status, cause)}
}

func ErrMalformedArtifact(path string, cause error) *PipelineError {
	return NewError(KindMalformedResponse, fmt.Sprintf("artifact at %s is not valid JSON for its expected shape", path), cause)
}

func ErrMalformedTranscription(assetID string, startMs, endMs int64) *PipelineError {
	return NewError(KindMalformedResponse,
		fmt.Sprintf("chunk %s window [%d,%d) produced no valid segments", assetID, startMs, endMs), nil)
}

func ErrMalformedSummary(cause error) *PipelineError {
	return NewError(KindMalformedResponse, "summary response is not valid JSON matching the expected schema", cause)
}

func ErrNoChunks() *PipelineError {
	return NewError(KindOrchestration, "media asset manifest has no audio chunks", nil)
}
