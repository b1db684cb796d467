// Package loudness measures the playback loudness of downloaded audio
// files.
//
// The measure is an RMS proxy: the file's first audio stream is decoded to
// linear PCM, sample amplitudes are normalized to [-1, 1], and the result is
// 20*log10(rms) in dB. This is not a perceptual-loudness standard; values
// will not line up with real-world LUFS figures and are only meant to be
// compared against each other and the normalization target.
package loudness

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Analyzer decodes audio via ffmpeg/ffprobe subprocesses and computes an
// RMS loudness estimate.
type Analyzer struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
	logger      *log.Logger
}

// AnalyzerOpts configures an Analyzer.
type AnalyzerOpts struct {
	FFmpegPath  string // defaults to "ffmpeg" on PATH
	FFprobePath string // defaults to "ffprobe" on PATH
	Timeout     time.Duration
	Logger      *log.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts AnalyzerOpts) *Analyzer {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Analyzer{
		ffmpegPath:  opts.FFmpegPath,
		ffprobePath: opts.FFprobePath,
		timeout:     opts.Timeout,
		logger:      opts.Logger,
	}
}

// Measure returns the RMS loudness of the file in dB. The boolean is false
// when no measurement is possible: missing file, no decodable audio stream,
// zero samples, or a decode error. Absence is a terminal outcome for the
// caller, never retried automatically.
func (a *Analyzer) Measure(ctx context.Context, path string) (float64, bool) {
	if _, err := os.Stat(path); err != nil {
		return 0, false
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if !a.hasAudioStream(ctx, path) {
		a.logger.Debug("no audio stream found", "path", path)
		return 0, false
	}

	sumSquares, count, err := a.decodeSamples(ctx, path)
	if err != nil {
		a.logger.Debug("decode failed", "path", path, "err", err)
		return 0, false
	}

	return rmsDb(sumSquares, count)
}

// hasAudioStream probes the container for at least one audio-typed stream.
func (a *Analyzer) hasAudioStream(ctx context.Context, path string) bool {
	cmd := exec.CommandContext(ctx, a.ffprobePath,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=index,codec_type",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return false
	}

	var probe struct {
		Streams []struct {
			Index     int    `json:"index"`
			CodecType string `json:"codec_type"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return false
	}

	return len(probe.Streams) > 0
}

// decodeSamples decodes the first audio stream to 64-bit float PCM on
// stdout and accumulates the sum of squares. Interleaved channel samples
// are treated uniformly; channel count is never special-cased.
func (a *Analyzer) decodeSamples(ctx context.Context, path string) (float64, int64, error) {
	cmd := exec.CommandContext(ctx, a.ffmpegPath,
		"-i", path,
		"-map", "0:a:0",
		"-f", "f64le",
		"-acodec", "pcm_f64le",
		"-v", "error",
		"-",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return 0, 0, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	sumSquares, count, readErr := accumulateSamples(bufio.NewReaderSize(stdout, 64*1024))

	if err := cmd.Wait(); err != nil {
		return 0, 0, fmt.Errorf("ffmpeg decode failed: %w", err)
	}
	if readErr != nil {
		return 0, 0, readErr
	}

	return sumSquares, count, nil
}

// accumulateSamples reads little-endian float64 samples until EOF.
func accumulateSamples(r io.Reader) (float64, int64, error) {
	var (
		sumSquares float64
		count      int64
		frame      [8]byte
	)

	for {
		_, err := io.ReadFull(r, frame[:])
		if err == io.EOF {
			return sumSquares, count, nil
		}
		if err == io.ErrUnexpectedEOF {
			// Trailing partial frame; drop it.
			return sumSquares, count, nil
		}
		if err != nil {
			return 0, 0, err
		}

		sample := math.Float64frombits(binary.LittleEndian.Uint64(frame[:]))
		// Clamp: decoders can overshoot full scale slightly.
		if sample > 1 {
			sample = 1
		} else if sample < -1 {
			sample = -1
		}
		sumSquares += sample * sample
		count++
	}
}

// rmsDb converts an accumulated sum of squares into a dB figure. Returns
// false for zero samples or a non-positive RMS (digital silence).
func rmsDb(sumSquares float64, count int64) (float64, bool) {
	if count == 0 {
		return 0, false
	}

	rms := math.Sqrt(sumSquares / float64(count))
	if rms <= 0 {
		return 0, false
	}

	return 20 * math.Log10(rms), true
}
