package mediatool

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

const (
	defaultVideoCodec = "libx264"
	defaultPreset     = "medium"
	defaultCRF        = 23
	stderrTailLimit   = 1024
)

// ProgressUpdate captures ffmpeg progress events. Percent is -1 when
// the TranscodeSpec carries no total duration to compute it from.
type ProgressUpdate struct {
	Percent float64
	OutTime time.Duration
	Speed   float64
	FPS     float64
}

// TranscodeSpec describes one ffmpeg pass.
type TranscodeSpec struct {
	InputPath   string
	OutputPath  string
	VideoFilter string

	// Encoder settings; zero values fall back to libx264/medium/crf 23.
	VideoCodec string
	Preset     string
	CRF        int

	// TotalDuration drives percent computation; zero leaves Percent at -1.
	TotalDuration time.Duration
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the ffmpeg command line tool.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Transcode runs one ffmpeg pass described by spec, forwarding parsed
// progress blocks to the callback as they arrive.
func (c *CLI) Transcode(ctx context.Context, spec TranscodeSpec, progress func(ProgressUpdate)) error {
	if strings.TrimSpace(spec.InputPath) == "" {
		return errors.New("input path required")
	}
	if strings.TrimSpace(spec.OutputPath) == "" {
		return errors.New("output path required")
	}

	args := buildArgs(spec)
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	parser := newProgressParser(spec.TotalDuration)
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if update, ok := parser.feed(scanner.Text()); ok && progress != nil {
			progress(update)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return fmt.Errorf("read ffmpeg output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		if tail := stderrTail(stderr.Bytes()); tail != "" {
			return fmt.Errorf("ffmpeg transcode: %w: %s", err, tail)
		}
		return fmt.Errorf("ffmpeg transcode: %w", err)
	}
	return nil
}

func buildArgs(spec TranscodeSpec) []string {
	codec := spec.VideoCodec
	if codec == "" {
		codec = defaultVideoCodec
	}
	preset := spec.Preset
	if preset == "" {
		preset = defaultPreset
	}
	crf := spec.CRF
	if crf <= 0 {
		crf = defaultCRF
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-y", "-i", spec.InputPath}
	if spec.VideoFilter != "" {
		args = append(args, "-vf", spec.VideoFilter)
	}
	args = append(args, "-c:v", codec)
	if codec != "copy" {
		args = append(args,
			"-preset", preset,
			"-crf", strconv.Itoa(crf),
		)
	}
	args = append(args,
		"-c:a", "copy",
		"-progress", "pipe:1",
		"-nostats",
		spec.OutputPath,
	)
	return args
}

// progressParser accumulates one key=value block of ffmpeg progress
// output and emits an update when the closing progress= line arrives.
type progressParser struct {
	total   time.Duration
	outTime time.Duration
	speed   float64
	fps     float64
}

func newProgressParser(total time.Duration) *progressParser {
	return &progressParser{total: total}
}

func (p *progressParser) feed(line string) (ProgressUpdate, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return ProgressUpdate{}, false
	}
	value = strings.TrimSpace(value)

	switch key {
	case "out_time_us", "out_time_ms":
		// out_time_ms is microseconds despite the name.
		if us, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.outTime = time.Duration(us) * time.Microsecond
		}
	case "speed":
		if parsed, err := strconv.ParseFloat(strings.TrimSuffix(value, "x"), 64); err == nil {
			p.speed = parsed
		}
	case "fps":
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			p.fps = parsed
		}
	case "progress":
		update := ProgressUpdate{
			Percent: p.percent(value),
			OutTime: p.outTime,
			Speed:   p.speed,
			FPS:     p.fps,
		}
		return update, true
	}
	return ProgressUpdate{}, false
}

func (p *progressParser) percent(state string) float64 {
	if p.total <= 0 {
		return -1
	}
	if state == "end" {
		return 100
	}
	percent := float64(p.outTime) / float64(p.total) * 100
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

func stderrTail(output []byte) string {
	trimmed := strings.TrimSpace(string(output))
	if len(trimmed) <= stderrTailLimit {
		return trimmed
	}
	return trimmed[len(trimmed)-stderrTailLimit:]
}
