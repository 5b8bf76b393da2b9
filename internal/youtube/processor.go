package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/extract"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/store"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/transcription"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/ws"
)

var (
	// ErrNoVideo is returned when an operation needs a selected video
	ErrNoVideo = errors.New("no video selected")
	// ErrVideoChanged is returned to a run whose video is no longer selected
	ErrVideoChanged = errors.New("selected video changed")
)

// Checker fact-checks one statement
type Checker interface {
	Check(ctx context.Context, statement, extraContext string) (*model.FactCheckResult, error)
}

// Publisher delivers a typed message to every socket of a group
type Publisher interface {
	Publish(group, msgType string, data any)
}

// Options wires a Processor
type Options struct {
	Store       store.Store
	Checker     Checker
	Transcriber transcription.Transcriber
	Metadata    MetadataFetcher
	Audio       AudioSource
	Publisher   Publisher
	Config      model.YouTubeConfig
	Logger      *zap.Logger
}

// Processor owns the selected video and its background transcription work
type Processor struct {
	store       store.Store
	checker     Checker
	transcriber transcription.Transcriber
	metadata    MetadataFetcher
	audio       AudioSource
	publisher   Publisher
	cfg         model.YouTubeConfig
	logger      *zap.Logger

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	mu          sync.Mutex
	videoID     string
	videoURL    string
	info        model.VideoInfo
	nextSegment int
	processed   int
	processing  bool
	switching   int
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewProcessor creates an idle processor with no video selected
func NewProcessor(opts Options) *Processor {
	p := &Processor{
		store:       opts.Store,
		checker:     opts.Checker,
		transcriber: opts.Transcriber,
		metadata:    opts.Metadata,
		audio:       opts.Audio,
		publisher:   opts.Publisher,
		cfg:         opts.Config,
		logger:      opts.Logger,
		sleep:       sleepContext,
		now:         time.Now,
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.cfg.SegmentDuration <= 0 {
		p.cfg.SegmentDuration = 30 * time.Second
	}
	if p.cfg.RetryDelay <= 0 {
		p.cfg.RetryDelay = 10 * time.Second
	}
	return p
}

// SetVideo selects a new video: any running processing is stopped, previous
// sessions are deactivated and a fresh active session is stored.
// StartProcessing is refused until the switch completes.
func (p *Processor) SetVideo(ctx context.Context, videoURL, adminUser string) (*model.SetVideoResult, error) {
	videoID, err := ExtractVideoID(videoURL)
	if err != nil {
		return &model.SetVideoResult{Success: false, Error: err.Error()}, err
	}

	p.mu.Lock()
	p.switching++
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.switching--
		p.mu.Unlock()
	}()

	p.StopProcessing()

	info := model.UnknownVideo()
	if p.metadata != nil {
		info = p.metadata.Info(ctx, videoURL)
	}

	session := &model.VideoSession{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		VideoURL:  videoURL,
		Title:     info.Title,
		Duration:  info.Duration,
		IsLive:    info.IsLive,
		AdminUser: adminUser,
		CreatedAt: p.now().UTC(),
		Status:    model.SessionActive,
	}
	if err := p.store.ActivateVideoSession(ctx, session); err != nil {
		err = fmt.Errorf("store session: %w", err)
		return &model.SetVideoResult{Success: false, Error: err.Error()}, err
	}

	p.mu.Lock()
	p.videoID = videoID
	p.videoURL = videoURL
	p.info = info
	p.nextSegment = 0
	p.processed = 0
	p.mu.Unlock()

	p.publish(ws.TypeVideoChanged, session)
	p.logger.Info("video selected",
		zap.String("video_id", videoID),
		zap.String("title", info.Title),
		zap.Bool("is_live", info.IsLive))

	return &model.SetVideoResult{
		Success:  true,
		VideoID:  videoID,
		Title:    info.Title,
		Duration: info.Duration,
		IsLive:   info.IsLive,
	}, nil
}

// StartProcessing launches background transcription of the selected video.
// It reports false when no video is selected, processing already runs or
// SetVideo is switching videos.
func (p *Processor) StartProcessing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.videoID == "" || p.processing || p.switching > 0 {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.processing = true
	p.cancel = cancel
	p.done = done

	videoID := p.videoID
	live := p.info.IsLive
	p.logger.Info("starting processing", zap.String("video_id", videoID), zap.Bool("is_live", live))

	go func() {
		defer close(done)
		defer p.finish(done)

		if live {
			p.processLive(ctx, videoID)
		} else {
			p.processStatic(ctx, videoID)
		}
	}()
	return true
}

// StopProcessing cancels background work and waits for it to exit
func (p *Processor) StopProcessing() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info("stopped video processing")
}

// Close stops any background work
func (p *Processor) Close() {
	p.StopProcessing()
}

// finish clears the processing state if it still belongs to run done
func (p *Processor) finish(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != done {
		return
	}
	p.processing = false
	p.cancel()
	p.cancel = nil
	p.done = nil
}

// Wait blocks until the current background run, if any, has exited
func (p *Processor) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *Processor) processLive(ctx context.Context, videoID string) {
	for ctx.Err() == nil {
		delay := p.cfg.SegmentDuration
		if err := p.processLiveSegment(ctx, videoID); err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrVideoChanged) {
				return
			}
			p.logger.Error("error processing live segment", zap.Error(err))
			delay = p.cfg.RetryDelay
		}
		if p.sleep(ctx, delay) != nil {
			return
		}
	}
}

func (p *Processor) processLiveSegment(ctx context.Context, videoID string) error {
	path, cleanup, err := p.audio.Extract(ctx, WatchURL(videoID), p.cfg.SegmentDuration)
	if err != nil {
		return err
	}
	defer cleanup()

	text, err := p.transcriber.Transcribe(ctx, path)
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	_, err = p.processSegment(ctx, videoID, text)
	return err
}

func (p *Processor) processStatic(ctx context.Context, videoID string) {
	path, cleanup, err := p.audio.Extract(ctx, WatchURL(videoID), 0)
	if err != nil {
		p.logger.Error("error processing static video", zap.Error(err))
		return
	}
	defer cleanup()

	text, err := p.transcriber.Transcribe(ctx, path)
	if err != nil {
		p.logger.Error("error transcribing video", zap.Error(err))
		return
	}

	sentences := extract.CheckableSentences(text, model.MinCheckableLength)
	for i, sentence := range sentences {
		if _, err := p.processSegment(ctx, videoID, sentence); err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrVideoChanged) {
				return
			}
			p.logger.Error("error processing transcript segment", zap.Error(err))
		}
		if i < len(sentences)-1 && p.sleep(ctx, p.cfg.SentenceThrottle) != nil {
			return
		}
	}
	p.logger.Info("static video processed", zap.Int("sentences", len(sentences)))
}

// ProcessTranscriptSegment stores a transcript segment of the selected video,
// fact-checks it, appends both to the active session and broadcasts them
func (p *Processor) ProcessTranscriptSegment(ctx context.Context, transcript string) (*model.VideoFactCheck, error) {
	p.mu.Lock()
	videoID := p.videoID
	p.mu.Unlock()

	if videoID == "" {
		return nil, ErrNoVideo
	}
	return p.processSegment(ctx, videoID, transcript)
}

// processSegment handles a transcript of videoID, failing with
// ErrVideoChanged once another video has been selected
func (p *Processor) processSegment(ctx context.Context, videoID, transcript string) (*model.VideoFactCheck, error) {
	transcript = strings.TrimSpace(transcript)

	p.mu.Lock()
	if p.videoID != videoID || p.switching > 0 {
		p.mu.Unlock()
		return nil, ErrVideoChanged
	}
	n := p.nextSegment
	p.nextSegment++
	p.mu.Unlock()

	// 1. Store the segment
	segment := model.TranscriptSegment{
		ID:         fmt.Sprintf("%s_%d", videoID, n),
		VideoID:    videoID,
		Transcript: transcript,
		Timestamp:  p.now().UTC(),
	}
	if err := p.store.SaveTranscriptSegment(ctx, &segment); err != nil {
		return nil, fmt.Errorf("store segment: %w", err)
	}
	p.publish(ws.TypeNewTranscript, segment)

	// 2. Fact-check it
	result, err := p.checker.Check(ctx, transcript, "")
	if err != nil {
		return nil, fmt.Errorf("fact-check segment: %w", err)
	}

	// 3. Store the fact-check and attach both to the session
	factCheck := model.VideoFactCheck{
		FactCheckResult: *result,
		ID:              uuid.NewString(),
		SegmentID:       segment.ID,
		VideoID:         videoID,
		CreatedAt:       p.now().UTC(),
	}
	if err := p.store.SaveVideoFactCheck(ctx, &factCheck); err != nil {
		return nil, fmt.Errorf("store fact check: %w", err)
	}
	if err := p.store.MarkSegmentProcessed(ctx, segment.ID); err != nil {
		return nil, fmt.Errorf("mark segment: %w", err)
	}
	segment.Processed = true

	if err := p.store.AppendToVideoSession(ctx, videoID, segment, factCheck); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("update session: %w", err)
		}
		p.logger.Warn("session no longer active", zap.String("video_id", videoID))
	}

	p.mu.Lock()
	if p.videoID == videoID {
		p.processed++
	}
	p.mu.Unlock()

	// 4. Broadcast
	p.publish(ws.TypeNewFactCheck, factCheck)
	p.logger.Info("processed segment",
		zap.String("segment_id", segment.ID),
		zap.String("verdict", string(result.Verdict)),
		zap.String("transcript", truncate(transcript, 50)))

	return &factCheck, nil
}

// CurrentSession returns the active video session, nil when none
func (p *Processor) CurrentSession(ctx context.Context) (*model.VideoSession, error) {
	return p.store.CurrentVideoSession(ctx)
}

// SessionFactChecks lists a video's fact-checks, oldest first
func (p *Processor) SessionFactChecks(ctx context.Context, videoID string) ([]model.VideoFactCheck, error) {
	return p.store.VideoFactChecks(ctx, videoID, store.VideoFactCheckLimit)
}

// Status is a snapshot of the selected video and background work
func (p *Processor) Status() model.ProcessorStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := model.ProcessorStatus{
		VideoID:           p.videoID,
		IsLive:            p.info.IsLive,
		IsProcessing:      p.processing,
		ProcessedSegments: p.processed,
	}
	if p.videoID != "" {
		status.Title = p.info.Title
	}
	return status
}

func (p *Processor) publish(msgType string, data any) {
	if p.publisher != nil {
		p.publisher.Publish(ws.YouTubeGroup, msgType, data)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
