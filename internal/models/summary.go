package models

// SummaryItem is one topical summary section over a clamped transcript
// range.
type SummaryItem struct {
	SummaryID      string   `json:"summary_id"`
	JobID          string   `json:"job_id"`
	Order          int      `json:"order"`
	SegmentStartMs int64    `json:"segment_start_ms"`
	SegmentEndMs   int64    `json:"segment_end_ms"`
	SummaryText    string   `json:"summary_text"`
	Heading        string   `json:"heading,omitempty"`
	Priority       string   `json:"priority,omitempty"`
	Highlights     []string `json:"highlights,omitempty"`
}

// ActionItem is one extracted follow-up task.
type ActionItem struct {
	ActionID       string  `json:"action_id"`
	JobID          string  `json:"job_id"`
	Order          int     `json:"order"`
	Description    string  `json:"description"`
	Owner          string  `json:"owner,omitempty"`
	DueDate        string  `json:"due_date,omitempty"`
	SegmentStartMs *int64  `json:"segment_start_ms,omitempty"`
	SegmentEndMs   *int64  `json:"segment_end_ms,omitempty"`
	Priority       string  `json:"priority,omitempty"`
}

// SummaryQualityMetrics are computed from the accepted summary/action
// items, never taken from the model's own self-assessment except for
// the optional LLMConfidence passthrough.
type SummaryQualityMetrics struct {
	CoverageRatio           float64  `json:"coverage_ratio"`
	ReferencedSegmentsRatio float64  `json:"referenced_segments_ratio"`
	AverageSummaryWordCount float64  `json:"average_summary_word_count"`
	ActionItemCount         int      `json:"action_item_count"`
	LLMConfidence           *float64 `json:"llm_confidence,omitempty"`
	ModelMetadata           any      `json:"model_metadata,omitempty"`
}
