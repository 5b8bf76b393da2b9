package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/util"
)

// MetadataFetcher looks up video metadata
type MetadataFetcher interface {
	Info(ctx context.Context, videoURL string) model.VideoInfo
}

// MetadataSource asks yt-dlp first, then the oEmbed endpoint, and finally
// settles for model.UnknownVideo
type MetadataSource struct {
	ytDlp     string
	oEmbedURL string
	fetcher   *util.Fetcher
	timeout   time.Duration
	run       CommandRunner
	logger    *zap.Logger
}

// NewMetadataSource creates a metadata source. fetcher may be nil to skip oEmbed.
func NewMetadataSource(cfg model.YouTubeConfig, fetcher *util.Fetcher, run CommandRunner, logger *zap.Logger) *MetadataSource {
	if run == nil {
		run = ExecRunner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ytDlp := cfg.YtDlpPath
	if ytDlp == "" {
		ytDlp = "yt-dlp"
	}
	timeout := cfg.MetadataTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MetadataSource{
		ytDlp:     ytDlp,
		oEmbedURL: cfg.OEmbedURL,
		fetcher:   fetcher,
		timeout:   timeout,
		run:       run,
		logger:    logger,
	}
}

// ytDlpInfo is the subset of `yt-dlp --dump-json` we read
type ytDlpInfo struct {
	Title       string  `json:"title"`
	Duration    float64 `json:"duration"`
	IsLive      bool    `json:"is_live"`
	Uploader    string  `json:"uploader"`
	Description string  `json:"description"`
	ViewCount   int64   `json:"view_count"`
	UploadDate  string  `json:"upload_date"`
}

type oEmbedInfo struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// Info never fails; the last resort is an "Unknown Video" placeholder
func (m *MetadataSource) Info(ctx context.Context, videoURL string) model.VideoInfo {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	info, err := m.fromYtDlp(ctx, videoURL)
	if err == nil {
		return info
	}
	m.logger.Warn("yt-dlp metadata lookup failed", zap.String("url", videoURL), zap.Error(err))

	if m.fetcher != nil && m.oEmbedURL != "" {
		info, err = m.fromOEmbed(ctx, videoURL)
		if err == nil {
			return info
		}
		m.logger.Warn("oEmbed metadata lookup failed", zap.String("url", videoURL), zap.Error(err))
	}

	return model.UnknownVideo()
}

func (m *MetadataSource) fromYtDlp(ctx context.Context, videoURL string) (model.VideoInfo, error) {
	out, err := m.run(ctx, m.ytDlp, "--dump-json", "--skip-download", "--no-warnings", "--quiet", videoURL)
	if err != nil {
		return model.VideoInfo{}, err
	}

	var raw ytDlpInfo
	if err := json.Unmarshal(out, &raw); err != nil {
		return model.VideoInfo{}, fmt.Errorf("parse yt-dlp output: %w", err)
	}

	title := raw.Title
	if title == "" {
		title = model.UnknownVideo().Title
	}
	return model.VideoInfo{
		Title:       title,
		Duration:    int(raw.Duration),
		IsLive:      raw.IsLive,
		Uploader:    raw.Uploader,
		Description: raw.Description,
		ViewCount:   raw.ViewCount,
		UploadDate:  raw.UploadDate,
	}, nil
}

func (m *MetadataSource) fromOEmbed(ctx context.Context, videoURL string) (model.VideoInfo, error) {
	endpoint := m.oEmbedURL + "?format=json&url=" + url.QueryEscape(videoURL)

	result, err := m.fetcher.FetchWithRetry(ctx, endpoint, "application/json")
	if err != nil {
		return model.VideoInfo{}, err
	}

	var raw oEmbedInfo
	if err := json.Unmarshal(result.Body, &raw); err != nil {
		return model.VideoInfo{}, fmt.Errorf("parse oEmbed response: %w", err)
	}
	if raw.Title == "" {
		return model.VideoInfo{}, fmt.Errorf("oEmbed response has no title")
	}
	return model.VideoInfo{Title: raw.Title, Uploader: raw.AuthorName}, nil
}
