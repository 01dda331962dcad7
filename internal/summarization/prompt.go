package summarization

import (
	"fmt"
	"math"
	"strings"

	"meetforge/internal/models"
)

const (
	snippetMaxChars = 280
	charBudget      = 12000
)

// PromptOptions carries the target-section sizing knobs (§6 Open
// Question #3) and the optional language hint.
type PromptOptions struct {
	JobID             string
	Language          string
	SectionMin        int
	SectionMax        int
	MinutesPerSection float64
}

// BuildPrompt renders the single chat-completion prompt string for a
// transcript, per spec §4.6.
func BuildPrompt(segments []models.TranscriptSegment, opts PromptOptions) string {
	var included []models.TranscriptSegment
	var budgetUsed int

	for _, s := range segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		snippet := truncateWithEllipsis(text, snippetMaxChars)
		line := fmt.Sprintf("[%d-%d] %s", s.StartMs, s.EndMs, snippet)
		if budgetUsed+len(line) > charBudget && len(included) >= 1 {
			break
		}
		included = append(included, s)
		budgetUsed += len(line)
	}

	minStart, maxEnd := transcriptSpan(segments)
	durationMinutes := float64(maxEnd-minStart) / 60000.0

	targetSections := clampInt(int(math.Round(durationMinutes/opts.MinutesPerSection)), opts.SectionMin, opts.SectionMax)
	maxSpanMs := int64(0)
	if targetSections > 0 {
		maxSpanMs = (maxEnd - minStart) / int64(targetSections)
	}

	languageDirective := "match the transcript language"
	if opts.Language != "" {
		languageDirective = fmt.Sprintf("respond in %s", opts.Language)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Job ID: %s\n", opts.JobID)
	fmt.Fprintf(&b, "Meeting duration: %d-%d ms (%.1f minutes)\n", minStart, maxEnd, durationMinutes)
	fmt.Fprintf(&b, "Target number of summary sections: %d\n", targetSections)
	fmt.Fprintf(&b, "Maximum span per section: %d ms\n", maxSpanMs)
	fmt.Fprintf(&b, "Language: %s\n", languageDirective)
	b.WriteString("Transcript:\n")
	for _, s := range included {
		snippet := truncateWithEllipsis(strings.TrimSpace(s.Text), snippetMaxChars)
		fmt.Fprintf(&b, "[%d-%d] %s\n", s.StartMs, s.EndMs, snippet)
	}
	b.WriteString("\nRespond with a JSON object containing \"summary_sections\" and \"action_items\" arrays.")
	return b.String()
}

func transcriptSpan(segments []models.TranscriptSegment) (minStart, maxEnd int64) {
	if len(segments) == 0 {
		return 0, 0
	}
	minStart = segments[0].StartMs
	maxEnd = segments[0].EndMs
	for _, s := range segments[1:] {
		if s.StartMs < minStart {
			minStart = s.StartMs
		}
		if s.EndMs > maxEnd {
			maxEnd = s.EndMs
		}
	}
	return minStart, maxEnd
}

func truncateWithEllipsis(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
