package audio

import "context"

// ProbeInfo describes an audio file as reported by the external engine.
type ProbeInfo struct {
	Codec    string  // e.g. "mp3", "opus"
	Format   string  // container format name, e.g. "mp3", "matroska,webm"
	Duration float64 // Seconds, 0 when the engine could not determine it
}

// Invocation is one in-flight run of the external engine. The caller suspends
// on Err, which receives exactly one value when the run finishes, and may
// abort the run through Cancel. OutputPath names the file the run writes so
// the caller can discard partial output on failure.
type Invocation struct {
	Err        <-chan error
	Cancel     context.CancelFunc
	OutputPath string
}

// Engine abstracts the external audio-processing engine. Implementations run
// work asynchronously; pipeline jobs wait on the returned Invocation rather
// than blocking inside the engine. Tests substitute a fake.
type Engine interface {
	// Probe inspects a file and reports codec, container and duration.
	Probe(ctx context.Context, path string) (*ProbeInfo, error)

	// Transcode rewrites inputPath into the given container format at
	// outputPath.
	Transcode(ctx context.Context, inputPath, outputPath, format, bitrate string) *Invocation

	// RunGraph materializes a filter graph over the input files into
	// outputPath, encoded in the given format.
	RunGraph(ctx context.Context, graph *Graph, inputPaths []string, outputPath, format string) *Invocation
}
