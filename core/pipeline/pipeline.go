package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iyedlimem/Flenci-server-side/core/audio"
	"github.com/iyedlimem/Flenci-server-side/core/id3"
	"github.com/iyedlimem/Flenci-server-side/logger"
	"github.com/iyedlimem/Flenci-server-side/storage"

	"github.com/google/uuid"
)

// AssetStore is the persistence surface the pipeline writes its outputs to.
// *storage.MinioStore implements it; tests substitute a local fake.
type AssetStore interface {
	PutFile(ctx context.Context, objectName, filePath, contentType string) error
	PutBytes(ctx context.Context, objectName string, data []byte, contentType string) error
	FetchToFile(ctx context.Context, objectName, destPath string) error
	PublicURL(objectName string) string
}

// Config carries the orchestrator's tunables.
type Config struct {
	StagingDir      string
	CanonicalFormat string // e.g. "mp3"
	AudioBitrate    string
	EngineTimeout   time.Duration
}

// StagedUpload is an upload persisted to temporary storage. It is owned by
// the job that created it and deleted when the job terminates.
type StagedUpload struct {
	Path           string // Location in the staging directory
	OriginalName   string
	DeclaredFormat string // Container declared by the filename extension, lowercased
	Size           int64
}

// MixRequest asks for a composition of source assets through the fixed mix
// filter chain. All parameters are scalars.
type MixRequest struct {
	Sources []string // Asset references of already-normalized stored tracks
	Params  audio.MixParams
}

// TrimRequest asks for a sub-range extraction from one source asset.
type TrimRequest struct {
	Source string
	Start  float64 // Seconds from the beginning of the source
	Span   float64 // Length of the extracted range in seconds
}

// Result is the outcome of a successful pipeline run: the stored output asset
// plus the metadata re-extracted from it. Never partially populated.
type Result struct {
	JobID    string
	File     string // Object reference of the stored output
	MP3URL   string // Resolved public URL of the canonical-format audio
	CoverURL string // Resolved derived-asset URL, "" when no cover was emitted
	CoverErr error  // Non-fatal cover emit failure, surfaced for telemetry
	Meta     *id3.Metadata
}

// Orchestrator sequences the pipeline stages per request. Many jobs run
// concurrently; each suspends on the engine's invocation channel while
// waiting, so a slow encode never stalls other jobs.
type Orchestrator struct {
	engine audio.Engine
	store  AssetStore
	cfg    Config
}

// NewOrchestrator creates a pipeline orchestrator.
func NewOrchestrator(engine audio.Engine, store AssetStore, cfg Config) *Orchestrator {
	return &Orchestrator{engine: engine, store: store, cfg: cfg}
}

// ProcessUpload runs the ingestion pipeline over an uploaded audio stream:
// stage to temporary storage, normalize the container, extract metadata, emit
// the embedded cover (when present), and persist the canonical output.
func (o *Orchestrator) ProcessUpload(ctx context.Context, r io.Reader, originalName string) (*Result, error) {
	job := newJob("upload")
	defer job.release()

	staged, err := o.stage(ctx, job, r, originalName)
	if err != nil {
		job.fail(ctx, err)
		return nil, err
	}

	normalizedPath, err := o.normalize(ctx, job, staged)
	if err != nil {
		job.fail(ctx, err)
		return nil, err
	}

	data, err := os.ReadFile(normalizedPath)
	if err != nil {
		err = wrap(KindIO, "metadata", err)
		job.fail(ctx, err)
		return nil, err
	}

	meta, err := id3.Parse(data)
	if err != nil {
		err = wrap(KindMalformedInput, "metadata", err)
		job.fail(ctx, err)
		return nil, err
	}
	job.to(ctx, StateMetadataExtracted)

	var coverURL string
	var coverErr error
	if meta.Image != nil {
		coverURL, coverErr = o.emitCover(ctx, meta.Image)
		if coverErr != nil {
			// Non-fatal by policy: the response falls back to the default
			// cover, but the failure stays observable.
			job.warn(ctx, coverErr.Error())
			coverURL = ""
		}
	}

	objectName, err := o.storeAudio(ctx, normalizedPath)
	if err != nil {
		job.fail(ctx, err)
		return nil, err
	}

	job.complete(ctx)
	return &Result{
		JobID:    job.ID,
		File:     objectName,
		MP3URL:   o.store.PublicURL(objectName),
		CoverURL: coverURL,
		CoverErr: coverErr,
		Meta:     meta,
	}, nil
}

// Mix composes the source assets through the fixed mix filter chain and
// returns the stored output with its re-extracted metadata.
func (o *Orchestrator) Mix(ctx context.Context, req MixRequest) (*Result, error) {
	job := newJob("mix")
	defer job.release()

	if len(req.Sources) < 2 {
		err := errf(KindValidation, "graph", "mix requires at least two source assets, got %d", len(req.Sources))
		job.fail(ctx, err)
		return nil, err
	}

	inputs, err := o.fetchSources(ctx, job, req.Sources)
	if err != nil {
		job.fail(ctx, err)
		return nil, err
	}
	job.to(ctx, StateStaged)

	graph, gerr := audio.NewMixGraph(len(inputs), req.Params)
	if gerr != nil {
		err := wrap(KindValidation, "graph", gerr)
		job.fail(ctx, err)
		return nil, err
	}

	return o.runGraph(ctx, job, graph, inputs)
}

// Trim extracts [start, start+span) from the source asset. The range is
// checked against the source's probed duration before the engine is invoked;
// a start at or past the end fails fast with a RangeError.
func (o *Orchestrator) Trim(ctx context.Context, req TrimRequest) (*Result, error) {
	job := newJob("trim")
	defer job.release()

	if req.Start < 0 || req.Span < 0 {
		err := errf(KindValidation, "graph", "trim bounds must be non-negative")
		job.fail(ctx, err)
		return nil, err
	}

	inputs, err := o.fetchSources(ctx, job, []string{req.Source})
	if err != nil {
		job.fail(ctx, err)
		return nil, err
	}
	job.to(ctx, StateStaged)

	span := req.Span
	info, perr := o.engine.Probe(ctx, inputs[0])
	if perr != nil {
		logger.Warn("probe failed, trimming without duration check",
			logger.String("jobId", job.ID),
			logger.ErrorField(perr))
	} else if info.Duration > 0 {
		if req.Start >= info.Duration {
			err := errf(KindRange, "graph", "start %.3fs is beyond the source duration %.3fs", req.Start, info.Duration)
			job.fail(ctx, err)
			return nil, err
		}
		if req.Start+span > info.Duration {
			span = info.Duration - req.Start
		}
	}

	graph, gerr := audio.NewTrimGraph(req.Start, span)
	if gerr != nil {
		err := wrap(KindValidation, "graph", gerr)
		job.fail(ctx, err)
		return nil, err
	}

	return o.runGraph(ctx, job, graph, inputs)
}

// stage persists the upload to temporary storage. Received -> Staged.
func (o *Orchestrator) stage(ctx context.Context, job *Job, r io.Reader, originalName string) (*StagedUpload, error) {
	if err := os.MkdirAll(o.cfg.StagingDir, 0755); err != nil {
		return nil, wrap(KindIO, "stage", err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	path := filepath.Join(o.cfg.StagingDir, uuid.NewString()+ext)

	out, err := os.Create(path)
	if err != nil {
		return nil, wrap(KindIO, "stage", err)
	}
	job.track(path)

	size, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, wrap(KindIO, "stage", err)
	}

	job.to(ctx, StateStaged)
	return &StagedUpload{
		Path:           path,
		OriginalName:   originalName,
		DeclaredFormat: strings.TrimPrefix(ext, "."),
		Size:           size,
	}, nil
}

// normalize brings a staged upload into the canonical container format.
// Uploads already in the canonical format pass through untouched; anything
// else goes through the external transcode engine. Staged -> Normalizing ->
// Normalized.
func (o *Orchestrator) normalize(ctx context.Context, job *Job, up *StagedUpload) (string, error) {
	if up.DeclaredFormat == o.cfg.CanonicalFormat {
		job.to(ctx, StateNormalized)
		return up.Path, nil
	}

	job.to(ctx, StateNormalizing)
	outputPath := filepath.Join(o.cfg.StagingDir, uuid.NewString()+"."+o.cfg.CanonicalFormat)
	job.track(outputPath)

	inv := o.engine.Transcode(ctx, up.Path, outputPath, o.cfg.CanonicalFormat, o.cfg.AudioBitrate)
	if err := o.await(ctx, inv, KindTranscode, "normalize"); err != nil {
		return "", err
	}

	job.to(ctx, StateNormalized)
	return outputPath, nil
}

// runGraph materializes a filter graph, re-extracts metadata from the output,
// and persists it. Shared by the mix and trim flows.
func (o *Orchestrator) runGraph(ctx context.Context, job *Job, graph *audio.Graph, inputs []string) (*Result, error) {
	job.to(ctx, StateNormalizing)
	outputPath := filepath.Join(o.cfg.StagingDir, uuid.NewString()+"."+o.cfg.CanonicalFormat)
	job.track(outputPath)

	inv := o.engine.RunGraph(ctx, graph, inputs, outputPath, o.cfg.CanonicalFormat)
	if err := o.await(ctx, inv, KindFilterGraph, graph.Describe()); err != nil {
		job.fail(ctx, err)
		return nil, err
	}
	job.to(ctx, StateNormalized)

	data, err := os.ReadFile(outputPath)
	if err != nil {
		err = wrap(KindIO, "metadata", err)
		job.fail(ctx, err)
		return nil, err
	}

	// The engine output may carry no tag at all; that is fine. Only an
	// unreadable buffer is an error.
	meta, perr := id3.Parse(data)
	if perr != nil {
		err := wrap(KindMalformedInput, "metadata", perr)
		job.fail(ctx, err)
		return nil, err
	}
	job.to(ctx, StateMetadataExtracted)

	objectName, err := o.storeAudio(ctx, outputPath)
	if err != nil {
		job.fail(ctx, err)
		return nil, err
	}

	job.complete(ctx)
	return &Result{
		JobID:  job.ID,
		File:   objectName,
		MP3URL: o.store.PublicURL(objectName),
		Meta:   meta,
	}, nil
}

// fetchSources materializes stored assets into the staging directory so the
// engine can read them.
func (o *Orchestrator) fetchSources(ctx context.Context, job *Job, refs []string) ([]string, error) {
	if err := os.MkdirAll(o.cfg.StagingDir, 0755); err != nil {
		return nil, wrap(KindIO, "stage", err)
	}

	paths := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref == "" {
			return nil, errf(KindValidation, "stage", "empty source asset reference")
		}
		dest := filepath.Join(o.cfg.StagingDir, uuid.NewString()+"."+o.cfg.CanonicalFormat)
		job.track(dest)
		if err := o.store.FetchToFile(ctx, ref, dest); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, wrap(KindNotFound, "stage", err)
			}
			return nil, wrap(KindIO, "stage", err)
		}
		paths = append(paths, dest)
	}
	return paths, nil
}

// storeAudio uploads the canonical output under a fresh collision-free
// object name and returns the asset reference.
func (o *Orchestrator) storeAudio(ctx context.Context, path string) (string, error) {
	objectName := "audio/" + uuid.NewString() + "." + o.cfg.CanonicalFormat
	if err := o.store.PutFile(ctx, objectName, path, "audio/mpeg"); err != nil {
		return "", wrap(KindAssetWrite, "persist", err)
	}
	return objectName, nil
}

// emitCover persists extracted cover-image bytes as a standalone derived
// asset and returns its resolved URL. The image bytes come from the tag
// parser unvalidated; the magic bytes are checked here, before anything is
// written.
func (o *Orchestrator) emitCover(ctx context.Context, image []byte) (string, error) {
	ext, contentType := detectImageType(image)
	if ext == "" {
		return "", wrap(KindAssetWrite, "cover", fmt.Errorf("embedded image has unrecognized format"))
	}

	objectName := "covers/" + uuid.NewString() + ext
	if err := o.store.PutBytes(ctx, objectName, image, contentType); err != nil {
		return "", wrap(KindAssetWrite, "cover", err)
	}
	return o.store.PublicURL(objectName), nil
}

// await suspends the job until the engine invocation finishes, the configured
// timeout elapses, or the request context is cancelled. On any failure the
// partial output is discarded before the error is returned.
func (o *Orchestrator) await(ctx context.Context, inv *audio.Invocation, failKind Kind, stage string) error {
	timer := time.NewTimer(o.cfg.EngineTimeout)
	defer timer.Stop()

	select {
	case err := <-inv.Err:
		if err != nil {
			o.discard(inv.OutputPath)
			return wrap(failKind, stage, err)
		}
		return nil
	case <-timer.C:
		inv.Cancel()
		o.discard(inv.OutputPath)
		return errf(KindTimeout, stage, "engine invocation exceeded %s", o.cfg.EngineTimeout)
	case <-ctx.Done():
		inv.Cancel()
		o.discard(inv.OutputPath)
		return wrap(KindTimeout, stage, ctx.Err())
	}
}

func (o *Orchestrator) discard(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to discard partial output",
			logger.String("path", path),
			logger.ErrorField(err))
	}
}

// detectImageType identifies a cover image format from its magic bytes.
func detectImageType(data []byte) (ext, contentType string) {
	if len(data) < 4 {
		return "", ""
	}
	switch {
	case data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return ".jpg", "image/jpeg"
	case data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47:
		return ".png", "image/png"
	case data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46:
		return ".gif", "image/gif"
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return ".webp", "image/webp"
	}
	return "", ""
}
