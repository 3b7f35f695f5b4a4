package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/iyedlimem/Flenci-server-side/logger"
)

// FFmpegEngine implements the Engine interface using ffmpeg/ffprobe.
type FFmpegEngine struct {
	ffmpegPath string
}

// NewFFmpegEngine creates a new FFmpegEngine.
func NewFFmpegEngine(ffmpegPath string) *FFmpegEngine {
	return &FFmpegEngine{ffmpegPath: ffmpegPath}
}

func (e *FFmpegEngine) ffprobePath() string {
	return strings.Replace(e.ffmpegPath, "ffmpeg", "ffprobe", 1)
}

// ffprobeOutput defines the structure of the ffprobe JSON output.
type ffprobeOutput struct {
	Streams []struct {
		CodecName string `json:"codec_name"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// Probe uses ffprobe to read codec, container format and duration.
func (e *FFmpegEngine) Probe(ctx context.Context, path string) (*ProbeInfo, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name",
		"-show_entries", "format=format_name,duration",
		"-of", "json",
		path,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath(), args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", path, err, stderr.String())
	}

	var probeData ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ffprobe output for %s: %w", path, err)
	}

	if len(probeData.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found in %s", path)
	}

	info := &ProbeInfo{
		Codec:  probeData.Streams[0].CodecName,
		Format: probeData.Format.FormatName,
	}
	if probeData.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probeData.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}
	return info, nil
}

// Transcode rewrites the input into the target container format.
func (e *FFmpegEngine) Transcode(ctx context.Context, inputPath, outputPath, format, bitrate string) *Invocation {
	args := []string{
		"-y",
		"-i", inputPath,
		"-b:a", bitrate,
		"-f", format,
		outputPath,
	}
	return e.start(ctx, args, outputPath)
}

// RunGraph submits the whole filter graph as one execution unit.
func (e *FFmpegEngine) RunGraph(ctx context.Context, graph *Graph, inputPaths []string, outputPath, format string) *Invocation {
	args := []string{"-y"}
	for _, in := range inputPaths {
		args = append(args, "-i", in)
	}
	args = append(args,
		"-filter_complex", graph.FilterSpec(),
		"-map", "["+graph.Terminal()+"]",
		"-f", format,
		outputPath,
	)
	return e.start(ctx, args, outputPath)
}

// start launches ffmpeg in the background and hands back an Invocation the
// caller can wait on or cancel.
func (e *FFmpegEngine) start(ctx context.Context, args []string, outputPath string) *Invocation {
	runCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)

	go func() {
		cmd := exec.CommandContext(runCtx, e.ffmpegPath, args...)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		logger.Debug("executing ffmpeg",
			logger.String("ffmpeg", e.ffmpegPath),
			logger.String("args", strings.Join(args, " ")))

		if err := cmd.Run(); err != nil {
			errCh <- fmt.Errorf("ffmpeg execution failed: %w\nFFmpeg Error: %s", err, stderr.String())
			return
		}
		errCh <- nil
	}()

	return &Invocation{Err: errCh, Cancel: cancel, OutputPath: outputPath}
}
