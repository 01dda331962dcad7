package orchestrator

import (
	"context"
	"sort"

	"meetforge/internal/artifacts"
	"meetforge/internal/media"
	"meetforge/internal/models"
	"meetforge/internal/summarization"
	"meetforge/internal/transcript"
	"meetforge/internal/transcription"
	"meetforge/pkg/logger"
)

// Orchestrator wires the component drivers (C2/C4/C5/C6) to the
// artifact store (C1) and queue (this package) to implement the three
// stage task entry points of spec §4.7.
type Orchestrator struct {
	Queue              Queue
	MediaPipeline      *media.Pipeline
	TranscriptionModel *transcription.Driver
	SummarizationModel *summarization.Driver
	ChunkDuration      media.Options
	PromptDefaults     summarization.PromptOptions
}

// Ingest transcodes the source recording, chunks it, persists the
// manifest, and enqueues Transcribe.
func (o *Orchestrator) Ingest(ctx context.Context, jobID, jobDir, sourcePath string) error {
	if err := artifacts.ClearJobFailure(jobDir); err != nil {
		return err
	}

	assets, err := o.MediaPipeline.Run(ctx, jobID, jobDir, sourcePath, o.ChunkDuration)
	if err != nil {
		return o.fail(jobDir, models.StageUpload, err)
	}
	if err := artifacts.DumpMediaAssets(jobDir, assets); err != nil {
		return o.fail(jobDir, models.StageUpload, err)
	}

	if err := o.Queue.Enqueue(ctx, Message{Task: TaskTranscribe, JobID: jobID, JobDir: jobDir}); err != nil {
		return o.fail(jobDir, models.StageChunking, err)
	}

	logger.StageCompleted(jobID, "ingest", 0)
	return nil
}

// Transcribe runs C4 across every audio chunk, merges via C5, persists
// the transcript, and enqueues Summarize.
func (o *Orchestrator) Transcribe(ctx context.Context, jobID, jobDir string, hints transcription.Hints) error {
	if err := artifacts.ClearJobFailure(jobDir); err != nil {
		return err
	}

	assets, err := artifacts.LoadMediaAssets(jobDir)
	if err != nil {
		return o.fail(jobDir, models.StageTranscription, err)
	}

	chunks := make([]models.MediaAsset, 0, len(assets))
	for _, a := range assets {
		if a.Kind == models.AssetKindAudioChunk {
			chunks = append(chunks, a)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Order < chunks[j].Order })

	if len(chunks) == 0 {
		return o.fail(jobDir, models.StageTranscription, models.ErrNoChunks())
	}

	chunkResults, err := o.TranscriptionModel.TranscribeChunks(ctx, chunks, hints)
	if err != nil {
		return o.fail(jobDir, models.StageTranscription, err)
	}

	segments, err := transcript.Assemble(jobID, chunkResults)
	if err != nil {
		return o.fail(jobDir, models.StageTranscription, err)
	}

	if err := artifacts.DumpTranscriptSegments(jobDir, segments); err != nil {
		return o.fail(jobDir, models.StageTranscription, err)
	}

	if err := o.Queue.Enqueue(ctx, Message{Task: TaskSummarize, JobID: jobID, JobDir: jobDir}); err != nil {
		return o.fail(jobDir, models.StageTranscription, err)
	}

	logger.StageCompleted(jobID, "transcribe", 0)
	return nil
}

// Summarize builds the prompt from the persisted transcript, calls C6,
// and persists the three summary artifacts.
func (o *Orchestrator) Summarize(ctx context.Context, jobID, jobDir string) error {
	if err := artifacts.ClearJobFailure(jobDir); err != nil {
		return err
	}

	segments, err := artifacts.LoadTranscriptSegments(jobDir)
	if err != nil {
		return o.fail(jobDir, models.StageSummary, err)
	}
	if len(segments) == 0 {
		return o.fail(jobDir, models.StageSummary, models.NewError(models.KindOrchestration, "transcript is empty", nil))
	}

	language := ""
	for _, s := range segments {
		if s.Language != "" {
			language = s.Language
			break
		}
	}

	promptOpts := o.PromptDefaults
	promptOpts.JobID = jobID
	promptOpts.Language = language

	parsed, quality, err := o.SummarizationModel.Summarize(ctx, segments, promptOpts)
	if err != nil {
		return o.fail(jobDir, models.StageSummary, err)
	}

	if err := artifacts.DumpSummaryItems(jobDir, parsed.Sections); err != nil {
		return o.fail(jobDir, models.StageSummary, err)
	}
	if err := artifacts.DumpActionItems(jobDir, parsed.ActionItems); err != nil {
		return o.fail(jobDir, models.StageSummary, err)
	}
	if err := artifacts.DumpSummaryQuality(jobDir, *quality); err != nil {
		return o.fail(jobDir, models.StageSummary, err)
	}

	logger.StageCompleted(jobID, "summarize", 0)
	return nil
}

// fail marks the job failed with stage/err and returns err unchanged,
// so callers can `return o.fail(...)`. It overwrites any existing
// marker; ClearJobFailure at each stage's start is what keeps a stale
// marker from a previous run from lingering.
func (o *Orchestrator) fail(jobDir string, stage models.Stage, cause error) error {
	details := map[string]any{}
	if pErr, ok := cause.(*models.PipelineError); ok {
		details["kind"] = string(pErr.Kind)
		if pErr.StatusCode != 0 {
			details["status_code"] = pErr.StatusCode
		}
	}
	if err := artifacts.MarkJobFailed(jobDir, stage, cause.Error(), details); err != nil {
		return err
	}
	return cause
}
