package summarization

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"meetforge/internal/models"
	"meetforge/pkg/logger"
)

// flexibleNumber tolerates a bare JSON number or a numeric string with
// an "ms"/"s" unit suffix, per spec §4.6.
type flexibleNumber struct {
	ms    float64
	valid bool
}

func (f *flexibleNumber) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		f.ms = num
		f.valid = true
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return nil // leave invalid; caller treats as missing
	}
	str = strings.TrimSpace(str)
	switch {
	case strings.HasSuffix(str, "ms"):
		if v, err := strconv.ParseFloat(strings.TrimSuffix(str, "ms"), 64); err == nil {
			f.ms = v
			f.valid = true
		}
	case strings.HasSuffix(str, "s"):
		if v, err := strconv.ParseFloat(strings.TrimSuffix(str, "s"), 64); err == nil {
			f.ms = v * 1000
			f.valid = true
		}
	default:
		if v, err := strconv.ParseFloat(str, 64); err == nil {
			f.ms = v
			f.valid = true
		}
	}
	return nil
}

type rawSummarySection struct {
	Summary    *string        `json:"summary"`
	Text       *string        `json:"text"`
	Title      *string        `json:"title"`
	Priority   *string        `json:"priority"`
	Highlights []any          `json:"highlights"`
	StartMs    flexibleNumber `json:"start_ms"`
	StartAlt   flexibleNumber `json:"start"`
	EndMs      flexibleNumber `json:"end_ms"`
	EndAlt     flexibleNumber `json:"end"`
}

func (r rawSummarySection) text() string {
	if r.Summary != nil && strings.TrimSpace(*r.Summary) != "" {
		return strings.TrimSpace(*r.Summary)
	}
	if r.Text != nil {
		return strings.TrimSpace(*r.Text)
	}
	return ""
}

func (r rawSummarySection) start() (float64, bool) {
	if r.StartMs.valid {
		return r.StartMs.ms, true
	}
	if r.StartAlt.valid {
		return r.StartAlt.ms, true
	}
	return 0, false
}

func (r rawSummarySection) end() (float64, bool) {
	if r.EndMs.valid {
		return r.EndMs.ms, true
	}
	if r.EndAlt.valid {
		return r.EndAlt.ms, true
	}
	return 0, false
}

type rawActionItem struct {
	Description *string        `json:"description"`
	Owner       *string        `json:"owner"`
	DueDate     *string        `json:"due_date"`
	Priority    *string        `json:"priority"`
	StartMs     flexibleNumber `json:"start_ms"`
	StartAlt    flexibleNumber `json:"start"`
	EndMs       flexibleNumber `json:"end_ms"`
	EndAlt      flexibleNumber `json:"end"`
}

func (r rawActionItem) start() (float64, bool) {
	if r.StartMs.valid {
		return r.StartMs.ms, true
	}
	if r.StartAlt.valid {
		return r.StartAlt.ms, true
	}
	return 0, false
}

func (r rawActionItem) end() (float64, bool) {
	if r.EndMs.valid {
		return r.EndMs.ms, true
	}
	if r.EndAlt.valid {
		return r.EndAlt.ms, true
	}
	return 0, false
}

type rawModelResponse struct {
	SummarySections []rawSummarySection `json:"summary_sections"`
	ActionItems     []rawActionItem     `json:"action_items"`
	Confidence      *float64            `json:"confidence"`
	Quality         *struct {
		Confidence *float64 `json:"confidence"`
	} `json:"quality"`
	ID    *string `json:"id"`
	Model *string `json:"model"`
	Usage any     `json:"usage"`
}

// ParsedSummary is the accepted, clamped output of response parsing,
// ready for quality-metric computation and persistence.
type ParsedSummary struct {
	Sections      []models.SummaryItem
	ActionItems   []models.ActionItem
	LLMConfidence *float64
	ModelMetadata any
}

// ParseResponse validates and clamps the model's raw JSON body against
// the transcript's [minStart, maxEnd] window, per spec §4.6.
func ParseResponse(jobID string, body []byte, minStart, maxEnd int64) (*ParsedSummary, error) {
	var raw rawModelResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, models.ErrMalformedSummary(err)
	}

	sections := make([]models.SummaryItem, 0, len(raw.SummarySections))
	for i, rs := range raw.SummarySections {
		text := rs.text()
		if text == "" {
			continue
		}
		start, hasStart := rs.start()
		end, hasEnd := rs.end()
		if !hasStart || !hasEnd {
			continue
		}

		clampedStart, clampedEnd, outOfRange := clampRange(int64(start), int64(end), minStart, maxEnd)
		if outOfRange {
			logger.Debug("summary section clamped into transcript range", "job_id", jobID, "index", i)
		}
		if clampedEnd <= clampedStart {
			continue
		}

		heading := ""
		if rs.Title != nil {
			heading = strings.TrimSpace(*rs.Title)
		}
		priority := ""
		if rs.Priority != nil {
			priority = strings.TrimSpace(*rs.Priority)
		}

		sections = append(sections, models.SummaryItem{
			SummaryID:      uuid.NewString(),
			JobID:          jobID,
			Order:          len(sections),
			SegmentStartMs: clampedStart,
			SegmentEndMs:   clampedEnd,
			SummaryText:    text,
			Heading:        heading,
			Priority:       priority,
			Highlights:     coerceStrings(rs.Highlights),
		})
	}

	actionItems := make([]models.ActionItem, 0, len(raw.ActionItems))
	for _, ra := range raw.ActionItems {
		description := ""
		if ra.Description != nil {
			description = strings.TrimSpace(*ra.Description)
		}
		if description == "" {
			continue
		}

		var startPtr, endPtr *int64
		start, hasStart := ra.start()
		end, hasEnd := ra.end()
		if hasStart && hasEnd {
			clampedStart, clampedEnd, _ := clampRange(int64(start), int64(end), minStart, maxEnd)
			if clampedEnd <= clampedStart {
				continue
			}
			startPtr, endPtr = &clampedStart, &clampedEnd
		} else if hasStart {
			clampedStart := clampOne(int64(start), minStart, maxEnd)
			startPtr = &clampedStart
		} else if hasEnd {
			clampedEnd := clampOne(int64(end), minStart, maxEnd)
			endPtr = &clampedEnd
		}

		owner := ""
		if ra.Owner != nil {
			owner = strings.TrimSpace(*ra.Owner)
		}
		dueDate := ""
		if ra.DueDate != nil {
			dueDate = strings.TrimSpace(*ra.DueDate)
		}
		priority := ""
		if ra.Priority != nil {
			priority = strings.TrimSpace(*ra.Priority)
		}

		actionItems = append(actionItems, models.ActionItem{
			ActionID:       uuid.NewString(),
			JobID:          jobID,
			Order:          len(actionItems),
			Description:    description,
			Owner:          owner,
			DueDate:        dueDate,
			SegmentStartMs: startPtr,
			SegmentEndMs:   endPtr,
			Priority:       priority,
		})
	}

	var confidence *float64
	if raw.Quality != nil && raw.Quality.Confidence != nil {
		confidence = raw.Quality.Confidence
	} else if raw.Confidence != nil {
		confidence = raw.Confidence
	}

	metadata := map[string]any{}
	if raw.ID != nil {
		metadata["id"] = *raw.ID
	}
	if raw.Model != nil {
		metadata["model"] = *raw.Model
	}
	if raw.Usage != nil {
		metadata["usage"] = raw.Usage
	}

	return &ParsedSummary{
		Sections:      sections,
		ActionItems:   actionItems,
		LLMConfidence: confidence,
		ModelMetadata: metadata,
	}, nil
}

func clampRange(start, end, minStart, maxEnd int64) (clampedStart, clampedEnd int64, outOfRange bool) {
	clampedStart = clampOne(start, minStart, maxEnd)
	clampedEnd = clampOne(end, minStart, maxEnd)
	outOfRange = clampedStart != start || clampedEnd != end
	return
}

func clampOne(v, minStart, maxEnd int64) int64 {
	if v < minStart {
		return minStart
	}
	if v > maxEnd {
		return maxEnd
	}
	return v
}

func coerceStrings(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ComputeQualityMetrics derives the never-model-reported metrics from
// the accepted sections/action items against the full segment set, per
// spec §4.6.
func ComputeQualityMetrics(segments []models.TranscriptSegment, parsed *ParsedSummary, minStart, maxEnd int64) models.SummaryQualityMetrics {
	totalSpan := maxEnd - minStart
	var coverage float64
	if totalSpan > 0 {
		coverage = unionLengthMs(parsed.Sections) / float64(totalSpan)
	}
	coverage = clampFloat(coverage, 0, 1)

	referencedRatio := 0.0
	if len(segments) > 0 {
		overlapping := 0
		for _, s := range segments {
			if overlapsAnySection(s, parsed.Sections) {
				overlapping++
			}
		}
		referencedRatio = float64(overlapping) / float64(len(segments))
	}

	var wordCounts []int
	for _, s := range parsed.Sections {
		if strings.TrimSpace(s.SummaryText) == "" {
			continue
		}
		wordCounts = append(wordCounts, len(strings.Fields(s.SummaryText)))
	}
	avgWordCount := 0.0
	if len(wordCounts) > 0 {
		sum := 0
		for _, c := range wordCounts {
			sum += c
		}
		avgWordCount = float64(sum) / float64(len(wordCounts))
	}

	return models.SummaryQualityMetrics{
		CoverageRatio:           coverage,
		ReferencedSegmentsRatio: referencedRatio,
		AverageSummaryWordCount: avgWordCount,
		ActionItemCount:         len(parsed.ActionItems),
		LLMConfidence:           parsed.LLMConfidence,
		ModelMetadata:           parsed.ModelMetadata,
	}
}

func unionLengthMs(sections []models.SummaryItem) float64 {
	if len(sections) == 0 {
		return 0
	}
	type interval struct{ start, end int64 }
	intervals := make([]interval, len(sections))
	for i, s := range sections {
		intervals[i] = interval{s.SegmentStartMs, s.SegmentEndMs}
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].start < intervals[j].start })

	var total int64
	cur := intervals[0]
	for _, iv := range intervals[1:] {
		if iv.start > cur.end {
			total += cur.end - cur.start
			cur = iv
			continue
		}
		if iv.end > cur.end {
			cur.end = iv.end
		}
	}
	total += cur.end - cur.start
	return float64(total)
}

func overlapsAnySection(s models.TranscriptSegment, sections []models.SummaryItem) bool {
	for _, sec := range sections {
		if s.StartMs < sec.SegmentEndMs && s.EndMs > sec.SegmentStartMs {
			return true
		}
	}
	return false
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
