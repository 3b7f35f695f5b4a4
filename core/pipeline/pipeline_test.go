package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iyedlimem/Flenci-server-side/core/audio"
	"github.com/iyedlimem/Flenci-server-side/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine satisfies audio.Engine without shelling out. It writes canned
// bytes to the requested output path and resolves the invocation channel
// immediately, unless told to block or fail.
type fakeEngine struct {
	mu         sync.Mutex
	probeInfo  audio.ProbeInfo
	probeErr   error
	output     []byte
	failWith   error
	block      bool
	cancelled  bool
	transcodes int
	graphRuns  int
	lastGraph  *audio.Graph
	lastInputs []string
}

func (e *fakeEngine) Probe(ctx context.Context, path string) (*audio.ProbeInfo, error) {
	if e.probeErr != nil {
		return nil, e.probeErr
	}
	info := e.probeInfo
	return &info, nil
}

func (e *fakeEngine) Transcode(ctx context.Context, inputPath, outputPath, format, bitrate string) *audio.Invocation {
	e.mu.Lock()
	e.transcodes++
	e.mu.Unlock()
	return e.run(outputPath)
}

func (e *fakeEngine) RunGraph(ctx context.Context, graph *audio.Graph, inputPaths []string, outputPath, format string) *audio.Invocation {
	e.mu.Lock()
	e.graphRuns++
	e.lastGraph = graph
	e.lastInputs = append([]string(nil), inputPaths...)
	e.mu.Unlock()
	return e.run(outputPath)
}

func (e *fakeEngine) run(outputPath string) *audio.Invocation {
	errCh := make(chan error, 1)
	inv := &audio.Invocation{
		Err:        errCh,
		OutputPath: outputPath,
		Cancel: func() {
			e.mu.Lock()
			e.cancelled = true
			e.mu.Unlock()
		},
	}
	// A partial output exists even for aborted runs.
	_ = os.WriteFile(outputPath, e.output, 0644)
	if e.block {
		return inv
	}
	errCh <- e.failWith
	return inv
}

// fakeStore is an in-memory AssetStore.
type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	coverErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) PutFile(ctx context.Context, objectName, filePath, contentType string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[objectName] = data
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) PutBytes(ctx context.Context, objectName string, data []byte, contentType string) error {
	if s.coverErr != nil && strings.HasPrefix(objectName, "covers/") {
		return s.coverErr
	}
	s.mu.Lock()
	s.objects[objectName] = append([]byte(nil), data...)
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) FetchToFile(ctx context.Context, objectName, destPath string) error {
	s.mu.Lock()
	data, ok := s.objects[objectName]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("fetch %s: %w", objectName, storage.ErrNotFound)
	}
	return os.WriteFile(destPath, data, 0644)
}

func (s *fakeStore) PublicURL(objectName string) string {
	return "http://localhost:8080/static/" + objectName
}

func (s *fakeStore) audioObjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name := range s.objects {
		if strings.HasPrefix(name, "audio/") {
			names = append(names, name)
		}
	}
	return names
}

// Tag construction helpers, mirroring the on-disk ID3v2 layout.

func synchsafe(n int) []byte {
	return []byte{
		byte(n >> 21 & 0x7F),
		byte(n >> 14 & 0x7F),
		byte(n >> 7 & 0x7F),
		byte(n & 0x7F),
	}
}

func textFrame(id, value string) []byte {
	payload := append([]byte{0x03}, []byte(value)...)
	frame := make([]byte, 0, 10+len(payload))
	frame = append(frame, []byte(id)...)
	size := make([]byte, 4)
	binary.BigEndian.PutUint32(size, uint32(len(payload)))
	frame = append(frame, size...)
	frame = append(frame, 0x00, 0x00)
	return append(frame, payload...)
}

func taggedAudio(frames ...[]byte) []byte {
	body := bytes.Join(frames, nil)
	buf := make([]byte, 0, 10+len(body)+32)
	buf = append(buf, 'I', 'D', '3', 0x03, 0x00, 0x00)
	buf = append(buf, synchsafe(len(body))...)
	buf = append(buf, body...)
	return append(buf, bytes.Repeat([]byte{0xFF}, 32)...)
}

const pngMagic = "\x89PNG\r\n\x1a\n"

func apicFrame(image []byte) []byte {
	payload := []byte{0x00}
	payload = append(payload, []byte("image/png")...)
	payload = append(payload, 0x00, 0x03, 0x00)
	payload = append(payload, image...)
	frame := make([]byte, 0, 10+len(payload))
	frame = append(frame, []byte("APIC")...)
	size := make([]byte, 4)
	binary.BigEndian.PutUint32(size, uint32(len(payload)))
	frame = append(frame, size...)
	frame = append(frame, 0x00, 0x00)
	return append(frame, payload...)
}

func newTestOrchestrator(t *testing.T, engine *fakeEngine, store *fakeStore) *Orchestrator {
	t.Helper()
	return NewOrchestrator(engine, store, Config{
		StagingDir:      t.TempDir(),
		CanonicalFormat: "mp3",
		AudioBitrate:    "192k",
		EngineTimeout:   5 * time.Second,
	})
}

func assertStagingEmpty(t *testing.T, o *Orchestrator) {
	t.Helper()
	entries, err := os.ReadDir(o.cfg.StagingDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directory should hold no files after a terminal state")
}

func TestProcessUploadCanonicalPassthrough(t *testing.T) {
	engine := &fakeEngine{}
	store := newFakeStore()
	o := newTestOrchestrator(t, engine, store)

	upload := taggedAudio(
		textFrame("TPE1", "Ada"),
		textFrame("TIT2", "Loop"),
		textFrame("TALB", "Tapes"),
		textFrame("TCON", "Electronic"),
		textFrame("TLEN", "183000"),
	)

	res, err := o.ProcessUpload(context.Background(), bytes.NewReader(upload), "loop.mp3")
	require.NoError(t, err)

	assert.Equal(t, 0, engine.transcodes, "canonical input must not be transcoded")
	assert.Equal(t, "Ada", res.Meta.Artist)
	assert.Equal(t, "Loop", res.Meta.Title)
	assert.Equal(t, "Tapes", res.Meta.Album)
	assert.Equal(t, "Electronic", res.Meta.Genre)
	assert.InDelta(t, 183.0, res.Meta.Duration, 0.001)

	require.NotEmpty(t, res.File)
	assert.True(t, strings.HasPrefix(res.File, "audio/"))
	assert.NotContains(t, res.File, os.TempDir(), "asset reference must not leak a filesystem path")
	assert.Equal(t, "http://localhost:8080/static/"+res.File, res.MP3URL)

	stored := store.audioObjects()
	require.Len(t, stored, 1)
	assert.Equal(t, upload, store.objects[stored[0]], "passthrough must persist the bytes unchanged")

	assertStagingEmpty(t, o)
}

func TestProcessUploadTranscodesNonCanonical(t *testing.T) {
	engine := &fakeEngine{output: taggedAudio(textFrame("TIT2", "Converted"))}
	store := newFakeStore()
	o := newTestOrchestrator(t, engine, store)

	res, err := o.ProcessUpload(context.Background(), bytes.NewReader([]byte("webm-bytes")), "clip.webm")
	require.NoError(t, err)

	assert.Equal(t, 1, engine.transcodes)
	assert.Equal(t, "Converted", res.Meta.Title)
	assertStagingEmpty(t, o)
}

func TestProcessUploadEmitsCover(t *testing.T) {
	image := append([]byte(pngMagic), bytes.Repeat([]byte{0xAB}, 16)...)
	engine := &fakeEngine{}
	store := newFakeStore()
	o := newTestOrchestrator(t, engine, store)

	res, err := o.ProcessUpload(context.Background(),
		bytes.NewReader(taggedAudio(textFrame("TIT2", "Art"), apicFrame(image))), "art.mp3")
	require.NoError(t, err)

	require.NotEmpty(t, res.CoverURL)
	assert.Contains(t, res.CoverURL, "/static/covers/")
	assert.True(t, strings.HasSuffix(res.CoverURL, ".png"))
	assert.NoError(t, res.CoverErr)
}

func TestProcessUploadCoverFailureIsNonFatal(t *testing.T) {
	image := append([]byte(pngMagic), bytes.Repeat([]byte{0xAB}, 16)...)
	engine := &fakeEngine{}
	store := newFakeStore()
	store.coverErr = errors.New("bucket unavailable")
	o := newTestOrchestrator(t, engine, store)

	res, err := o.ProcessUpload(context.Background(),
		bytes.NewReader(taggedAudio(textFrame("TIT2", "Art"), apicFrame(image))), "art.mp3")
	require.NoError(t, err, "a cover write failure must not fail the pipeline")

	assert.Empty(t, res.CoverURL)
	require.Error(t, res.CoverErr)
	assert.Equal(t, KindAssetWrite, KindOf(res.CoverErr))
	assert.NotEmpty(t, res.File, "the audio asset must still be stored")
}

func TestProcessUploadTranscodeFailureCleansUp(t *testing.T) {
	engine := &fakeEngine{failWith: errors.New("encoder exploded")}
	store := newFakeStore()
	o := newTestOrchestrator(t, engine, store)

	_, err := o.ProcessUpload(context.Background(), bytes.NewReader([]byte("webm-bytes")), "clip.webm")
	require.Error(t, err)
	assert.Equal(t, KindTranscode, KindOf(err))
	assert.Empty(t, store.audioObjects(), "no asset may be stored for a failed job")
	assertStagingEmpty(t, o)
}

func TestProcessUploadTimeout(t *testing.T) {
	engine := &fakeEngine{block: true}
	store := newFakeStore()
	o := newTestOrchestrator(t, engine, store)
	o.cfg.EngineTimeout = 20 * time.Millisecond

	_, err := o.ProcessUpload(context.Background(), bytes.NewReader([]byte("webm-bytes")), "clip.webm")
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.True(t, engine.cancelled, "a timed-out invocation must be cancelled")
	assertStagingEmpty(t, o)
}

func TestMixRunsFixedChainOverAllSources(t *testing.T) {
	engine := &fakeEngine{output: taggedAudio(textFrame("TIT2", "Blend"))}
	store := newFakeStore()
	store.objects["audio/a.mp3"] = []byte("aaa")
	store.objects["audio/b.mp3"] = []byte("bbb")
	o := newTestOrchestrator(t, engine, store)

	params := audio.MixParams{FadeIn: 2}
	params.ApplyDefaults()
	res, err := o.Mix(context.Background(), MixRequest{
		Sources: []string{"audio/a.mp3", "audio/b.mp3"},
		Params:  params,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, engine.graphRuns)
	require.Len(t, engine.lastInputs, 2)
	require.NotNil(t, engine.lastGraph)
	assert.Equal(t, "gain_out", engine.lastGraph.Terminal())
	assert.Contains(t, engine.lastGraph.FilterSpec(), "amix=inputs=2")
	assert.Equal(t, "Blend", res.Meta.Title)
	assertStagingEmpty(t, o)
}

func TestMixRejectsSingleSource(t *testing.T) {
	engine := &fakeEngine{}
	o := newTestOrchestrator(t, engine, newFakeStore())

	_, err := o.Mix(context.Background(), MixRequest{Sources: []string{"audio/a.mp3"}})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, 0, engine.graphRuns)
}

func TestMixMissingSource(t *testing.T) {
	engine := &fakeEngine{}
	store := newFakeStore()
	store.objects["audio/a.mp3"] = []byte("aaa")
	o := newTestOrchestrator(t, engine, store)

	_, err := o.Mix(context.Background(), MixRequest{Sources: []string{"audio/a.mp3", "audio/gone.mp3"}})
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assertStagingEmpty(t, o)
}

func TestTrimRejectsStartBeyondDuration(t *testing.T) {
	engine := &fakeEngine{probeInfo: audio.ProbeInfo{Duration: 10}}
	store := newFakeStore()
	store.objects["audio/a.mp3"] = []byte("aaa")
	o := newTestOrchestrator(t, engine, store)

	_, err := o.Trim(context.Background(), TrimRequest{Source: "audio/a.mp3", Start: 12, Span: 3})
	require.Error(t, err)
	assert.Equal(t, KindRange, KindOf(err))
	assert.Equal(t, 0, engine.graphRuns, "the engine must not run for an out-of-range request")
	assertStagingEmpty(t, o)
}

func TestTrimClampsSpanToSourceDuration(t *testing.T) {
	engine := &fakeEngine{
		probeInfo: audio.ProbeInfo{Duration: 10},
		output:    taggedAudio(textFrame("TIT2", "Cut")),
	}
	store := newFakeStore()
	store.objects["audio/a.mp3"] = []byte("aaa")
	o := newTestOrchestrator(t, engine, store)

	_, err := o.Trim(context.Background(), TrimRequest{Source: "audio/a.mp3", Start: 8, Span: 5})
	require.NoError(t, err)

	require.NotNil(t, engine.lastGraph)
	assert.Equal(t, "[0:a]atrim=start=8:duration=2[trim_out]", engine.lastGraph.FilterSpec())
}

func TestTrimRejectsNegativeBounds(t *testing.T) {
	engine := &fakeEngine{}
	o := newTestOrchestrator(t, engine, newFakeStore())

	_, err := o.Trim(context.Background(), TrimRequest{Source: "audio/a.mp3", Start: -1, Span: 3})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestTrimSurvivesProbeFailure(t *testing.T) {
	engine := &fakeEngine{
		probeErr: errors.New("probe broke"),
		output:   taggedAudio(textFrame("TIT2", "Cut")),
	}
	store := newFakeStore()
	store.objects["audio/a.mp3"] = []byte("aaa")
	o := newTestOrchestrator(t, engine, store)

	_, err := o.Trim(context.Background(), TrimRequest{Source: "audio/a.mp3", Start: 1, Span: 2})
	require.NoError(t, err, "an unprobeable source still gets trimmed with the requested bounds")
	assert.Equal(t, 1, engine.graphRuns)
}

func TestUntaggedGraphOutputYieldsEmptyMetadata(t *testing.T) {
	engine := &fakeEngine{
		probeInfo: audio.ProbeInfo{Duration: 10},
		output:    bytes.Repeat([]byte{0xFF}, 64),
	}
	store := newFakeStore()
	store.objects["audio/a.mp3"] = []byte("aaa")
	o := newTestOrchestrator(t, engine, store)

	res, err := o.Trim(context.Background(), TrimRequest{Source: "audio/a.mp3", Start: 0, Span: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Meta.Artist)
	assert.Empty(t, res.Meta.Title)
}
