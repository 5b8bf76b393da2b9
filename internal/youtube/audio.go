package youtube

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
)

// AudioSource downloads a video's audio track to a local file
type AudioSource interface {
	// Extract returns the audio file path and a cleanup func. A positive
	// segment limits the download to that much of a live stream.
	Extract(ctx context.Context, videoURL string, segment time.Duration) (string, func(), error)
}

// AudioExtractor runs yt-dlp to produce mp3 files
type AudioExtractor struct {
	ytDlp   string
	tempDir string
	run     CommandRunner
}

// NewAudioExtractor creates an extractor writing under cfg.TempDir (os temp dir when empty)
func NewAudioExtractor(cfg model.YouTubeConfig, run CommandRunner) *AudioExtractor {
	if run == nil {
		run = ExecRunner
	}
	ytDlp := cfg.YtDlpPath
	if ytDlp == "" {
		ytDlp = "yt-dlp"
	}
	return &AudioExtractor{ytDlp: ytDlp, tempDir: cfg.TempDir, run: run}
}

func (a *AudioExtractor) Extract(ctx context.Context, videoURL string, segment time.Duration) (string, func(), error) {
	dir, err := os.MkdirTemp(a.tempDir, "truthseeker-audio-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	args := audioArgs(filepath.Join(dir, "audio.%(ext)s"), videoURL, segment)
	if _, err := a.run(ctx, a.ytDlp, args...); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("extract audio: %w", err)
	}

	path := filepath.Join(dir, "audio.mp3")
	if _, err := os.Stat(path); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("extract audio: no output file: %w", err)
	}
	return path, cleanup, nil
}

func audioArgs(output, videoURL string, segment time.Duration) []string {
	args := []string{
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--no-warnings",
		"--quiet",
		"--output", output,
	}
	if segment > 0 {
		seconds := strconv.Itoa(int(segment.Seconds()))
		args = append(args,
			"--external-downloader", "ffmpeg",
			"--external-downloader-args", "-t "+seconds)
	}
	return append(args, videoURL)
}
