package models

// AssetKind distinguishes the single audio master from its chunks.
type AssetKind string

const (
	AssetKindAudioMaster AssetKind = "audio_master"
	AssetKindAudioChunk  AssetKind = "audio_chunk"
)

// MediaAsset is a stored media artifact: either the single audio master
// produced by transcoding the source, or one of its contiguous chunks.
type MediaAsset struct {
	AssetID       string         `json:"asset_id"`
	JobID         string         `json:"job_id"`
	Kind          AssetKind      `json:"kind"`
	Path          string         `json:"path"`
	Order         int            `json:"order"` // -1 for master, 0-based for chunks
	DurationMs    int64          `json:"duration_ms"`
	StartMs       int64          `json:"start_ms"`
	EndMs         int64          `json:"end_ms"`
	SampleRate    *int           `json:"sample_rate,omitempty"`
	Channels      *int           `json:"channels,omitempty"`
	BitDepth      *int           `json:"bit_depth,omitempty"`
	ParentAssetID *string        `json:"parent_asset_id,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// IsMaster reports whether this asset is the audio master (kind audio_master).
func (m MediaAsset) IsMaster() bool { return m.Kind == AssetKindAudioMaster }
