package transcription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetforge/internal/httpx"
	"meetforge/internal/models"
)

func writeChunkFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("fake audio bytes"), 0o644))
	return path
}

func newTestDriver(t *testing.T, handler http.HandlerFunc, model string) *Driver {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	caller := httpx.New(httpx.Options{
		MaxAttempts:    3,
		RetryBackoff:   time.Millisecond,
		RequestTimeout: 5 * time.Second,
	})
	return NewDriver(Config{
		Caller:      caller,
		BaseURL:     server.URL,
		APIKey:      "test-key",
		Model:       model,
		Concurrency: 2,
	})
}

func TestTranscribeChunks_VerboseJSONHappyPath(t *testing.T) {
	dir := t.TempDir()
	chunkPath := writeChunkFile(t, dir, "chunk_0000.wav")

	driver := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"text": "hello world",
			"language": "en",
			"segments": [{"text": "hello", "start": 0.0, "end": 1.0}, {"text": "world", "start": 1.0, "end": 2.0}]
		}`))
	}, "whisper-1")

	chunks := []models.MediaAsset{{AssetID: "a1", Path: chunkPath, StartMs: 0, EndMs: 2000}}
	results, err := driver.TranscribeChunks(context.Background(), chunks, Hints{Language: "en"})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a1", results[0].AssetID)
	assert.Equal(t, "hello world", results[0].Text)
	assert.Equal(t, "en", results[0].Language)
	require.Len(t, results[0].Segments, 2)
	assert.Equal(t, int64(0), results[0].StartMs)
	assert.Equal(t, int64(2000), results[0].EndMs)
}

func TestTranscribeChunks_TextJoinedFromSegmentsWhenTextMissing(t *testing.T) {
	dir := t.TempDir()
	chunkPath := writeChunkFile(t, dir, "chunk_0000.wav")

	driver := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"segments": [{"text": "one", "start": 0, "end": 1}, {"text": "two", "start": 1, "end": 2}]}`))
	}, "whisper-1")

	chunks := []models.MediaAsset{{AssetID: "a1", Path: chunkPath}}
	results, err := driver.TranscribeChunks(context.Background(), chunks, Hints{})

	require.NoError(t, err)
	assert.Equal(t, "one two", results[0].Text)
}

func TestTranscribeChunks_DiarizeModelRequestsDiarizedJSON(t *testing.T) {
	dir := t.TempDir()
	chunkPath := writeChunkFile(t, dir, "chunk_0000.wav")

	var seenFormat string
	driver := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10<<20))
		seenFormat = r.FormValue("response_format")
		_, _ = w.Write([]byte(`{"text": "hi", "segments": [{"text": "hi", "start": 0, "end": 1, "speaker_label": "Speaker 1"}]}`))
	}, "gpt-4o-diarize")

	chunks := []models.MediaAsset{{AssetID: "a1", Path: chunkPath}}
	results, err := driver.TranscribeChunks(context.Background(), chunks, Hints{})

	require.NoError(t, err)
	assert.Equal(t, "diarized_json", seenFormat)
	require.Len(t, results[0].Segments, 1)
	assert.Equal(t, "Speaker 1", results[0].Segments[0].Speaker)
}

func TestTranscribeChunks_MissingChunkFileFailsFastWithoutRetry(t *testing.T) {
	calls := 0
	driver := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}, "whisper-1")

	chunks := []models.MediaAsset{{AssetID: "a1", Path: "/no/such/file.wav"}}
	_, err := driver.TranscribeChunks(context.Background(), chunks, Hints{})

	require.Error(t, err)
	var tErr *models.TranscriptionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, "a1", tErr.AssetID)
	assert.Equal(t, 0, calls)
}

func TestTranscribeChunks_UnsupportedExtensionFailsFast(t *testing.T) {
	dir := t.TempDir()
	chunkPath := writeChunkFile(t, dir, "chunk_0000.xyz")

	driver := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach the server for an unsupported extension")
	}, "whisper-1")

	chunks := []models.MediaAsset{{AssetID: "a1", Path: chunkPath}}
	_, err := driver.TranscribeChunks(context.Background(), chunks, Hints{})

	require.Error(t, err)
	var tErr *models.TranscriptionError
	require.ErrorAs(t, err, &tErr)
}

func TestTranscribeChunks_EmptyTextFails(t *testing.T) {
	dir := t.TempDir()
	chunkPath := writeChunkFile(t, dir, "chunk_0000.wav")

	driver := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text": "", "segments": []}`))
	}, "whisper-1")

	chunks := []models.MediaAsset{{AssetID: "a1", Path: chunkPath}}
	_, err := driver.TranscribeChunks(context.Background(), chunks, Hints{})
	require.Error(t, err)
}

func TestTranscribeChunks_RetriesOn429ThenSucceeds(t *testing.T) {
	dir := t.TempDir()
	chunkPath := writeChunkFile(t, dir, "chunk_0000.wav")

	attempts := 0
	driver := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"text": "ok", "language": "en"}`))
	}, "whisper-1")

	chunks := []models.MediaAsset{{AssetID: "a1", Path: chunkPath}}
	results, err := driver.TranscribeChunks(context.Background(), chunks, Hints{})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, "ok", results[0].Text)
}

func TestTranscribeChunks_PreservesInputOrder(t *testing.T) {
	dir := t.TempDir()
	chunk0 := writeChunkFile(t, dir, "chunk_0000.wav")
	chunk1 := writeChunkFile(t, dir, "chunk_0001.wav")

	driver := newTestDriver(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10 << 20))
		_, _ = w.Write([]byte(`{"text": "segment text"}`))
	}, "whisper-1")

	chunks := []models.MediaAsset{
		{AssetID: "a0", Path: chunk0, Order: 0},
		{AssetID: "a1", Path: chunk1, Order: 1},
	}
	results, err := driver.TranscribeChunks(context.Background(), chunks, Hints{})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a0", results[0].AssetID)
	assert.Equal(t, "a1", results[1].AssetID)
}

func TestMimeTypeFor(t *testing.T) {
	mime, err := mimeTypeFor("chunk.mp3")
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", mime)

	_, err = mimeTypeFor("chunk.xyz")
	require.Error(t, err)
}
