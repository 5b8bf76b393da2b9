package youtube

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/store"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/ws"
)

type fakeMetadata struct{ info model.VideoInfo }

func (f fakeMetadata) Info(context.Context, string) model.VideoInfo { return f.info }

type fakeAudio struct {
	mu       sync.Mutex
	segments []time.Duration
	err      error
	failures int
}

func (f *fakeAudio) Extract(_ context.Context, _ string, segment time.Duration) (string, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.segments = append(f.segments, segment)
	if f.failures > 0 {
		f.failures--
		return "", nil, errors.New("yt-dlp failed")
	}
	if f.err != nil {
		return "", nil, f.err
	}
	return "/tmp/audio.mp3", func() {}, nil
}

type fakeTranscriber struct{ text string }

func (f fakeTranscriber) Transcribe(context.Context, string) (string, error) { return f.text, nil }

type fakeChecker struct{}

func (fakeChecker) Check(_ context.Context, statement, _ string) (*model.FactCheckResult, error) {
	return &model.FactCheckResult{
		Statement:       statement,
		Verdict:         model.VerdictTrue,
		ConfidenceScore: 0.9,
		Sources:         []model.SourceCitation{},
		Timestamp:       time.Now().UTC(),
	}, nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (r *recordingPublisher) Publish(group, msgType string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if group == ws.YouTubeGroup {
		r.types = append(r.types, msgType)
	}
}

func (r *recordingPublisher) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	limit  int
}

// sleep returns immediately until limit calls, then blocks until cancelled
func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	n := len(s.delays)
	s.mu.Unlock()

	if s.limit > 0 && n >= s.limit {
		<-ctx.Done()
		return ctx.Err()
	}
	return ctx.Err()
}

func (s *sleepRecorder) snapshot() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type fixture struct {
	processor *Processor
	store     *store.MemoryStore
	audio     *fakeAudio
	publisher *recordingPublisher
	sleeper   *sleepRecorder
}

func newFixture(t *testing.T, info model.VideoInfo, transcript string) *fixture {
	t.Helper()
	f := &fixture{
		store:     store.NewMemoryStore(),
		audio:     &fakeAudio{},
		publisher: &recordingPublisher{},
		sleeper:   &sleepRecorder{},
	}
	f.processor = NewProcessor(Options{
		Store:       f.store,
		Checker:     fakeChecker{},
		Transcriber: fakeTranscriber{text: transcript},
		Metadata:    fakeMetadata{info: info},
		Audio:       f.audio,
		Publisher:   f.publisher,
		Config: model.YouTubeConfig{
			SegmentDuration:  30 * time.Second,
			RetryDelay:       10 * time.Second,
			SentenceThrottle: 2 * time.Second,
		},
		Logger: zaptest.NewLogger(t),
	})
	f.processor.sleep = f.sleeper.sleep
	t.Cleanup(f.processor.Close)
	return f
}

func TestSetVideo_InvalidURL(t *testing.T) {
	f := newFixture(t, model.VideoInfo{Title: "x"}, "")

	result, err := f.processor.SetVideo(context.Background(), "https://vimeo.com/1", "admin")
	assert.ErrorIs(t, err, ErrInvalidURL)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, "invalid YouTube URL", result.Error)

	session, err := f.processor.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSetVideo(t *testing.T) {
	f := newFixture(t, model.VideoInfo{Title: "Apollo 11", Duration: 600}, "")
	ctx := context.Background()

	result, err := f.processor.SetVideo(ctx, "https://www.youtube.com/watch?v=aaaaaaaaaaa", "admin")
	require.NoError(t, err)
	assert.Equal(t, &model.SetVideoResult{Success: true, VideoID: "aaaaaaaaaaa", Title: "Apollo 11", Duration: 600}, result)

	_, err = f.processor.ProcessTranscriptSegment(ctx, "The moon landing occurred on July 20, 1969.")
	require.NoError(t, err)

	_, err = f.processor.SetVideo(ctx, "https://youtu.be/bbbbbbbbbbb", "admin")
	require.NoError(t, err)

	session, err := f.processor.CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "bbbbbbbbbbb", session.VideoID)
	assert.Equal(t, "admin", session.AdminUser)
	assert.Equal(t, model.SessionActive, session.Status)

	// The segment counter restarts for the new video
	fc, err := f.processor.ProcessTranscriptSegment(ctx, "Water boils at one hundred degrees.")
	require.NoError(t, err)
	assert.Equal(t, "bbbbbbbbbbb_0", fc.SegmentID)

	status := f.processor.Status()
	assert.Equal(t, "bbbbbbbbbbb", status.VideoID)
	assert.Equal(t, 1, status.ProcessedSegments)

	assert.Contains(t, f.publisher.snapshot(), ws.TypeVideoChanged)
}

func TestProcessTranscriptSegment(t *testing.T) {
	f := newFixture(t, model.VideoInfo{Title: "Demo"}, "")
	ctx := context.Background()

	_, err := f.processor.ProcessTranscriptSegment(ctx, "No video yet.")
	assert.ErrorIs(t, err, ErrNoVideo)

	_, err = f.processor.SetVideo(ctx, "https://youtu.be/vvvvvvvvvvv", "")
	require.NoError(t, err)

	for i, text := range []string{"First claim about the Earth.", "Second claim about the Sun."} {
		fc, err := f.processor.ProcessTranscriptSegment(ctx, "  "+text+"  ")
		require.NoError(t, err)
		assert.Equal(t, text, fc.Statement)
		assert.Equal(t, "vvvvvvvvvvv", fc.VideoID)
		assert.Equal(t, []string{"vvvvvvvvvvv_0", "vvvvvvvvvvv_1"}[i], fc.SegmentID)
		assert.NotEmpty(t, fc.ID)
	}

	checks, err := f.processor.SessionFactChecks(ctx, "vvvvvvvvvvv")
	require.NoError(t, err)
	assert.Len(t, checks, 2)

	session, err := f.processor.CurrentSession(ctx)
	require.NoError(t, err)
	require.Len(t, session.TranscriptSegments, 2)
	require.Len(t, session.FactChecks, 2)
	assert.True(t, session.TranscriptSegments[0].Processed)

	for _, seg := range f.store.Segments() {
		assert.True(t, seg.Processed, "segment %s not marked processed", seg.ID)
	}

	assert.Equal(t, []string{
		ws.TypeVideoChanged,
		ws.TypeNewTranscript, ws.TypeNewFactCheck,
		ws.TypeNewTranscript, ws.TypeNewFactCheck,
	}, f.publisher.snapshot())

	empty, err := f.processor.SessionFactChecks(ctx, "unknown")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestStartProcessing_NoVideo(t *testing.T) {
	f := newFixture(t, model.VideoInfo{}, "")
	assert.False(t, f.processor.StartProcessing())
	assert.False(t, f.processor.Status().IsProcessing)
}

func TestStartProcessing_StaticVideo(t *testing.T) {
	defer goleak.VerifyNone(t)

	transcript := "Climate change is affecting weather patterns globally. Short. " +
		"The Earth's temperature has risen by 1.1 degrees Celsius since pre-industrial times. " +
		"Climate change is affecting weather patterns globally."
	f := newFixture(t, model.VideoInfo{Title: "Lecture", IsLive: false}, transcript)
	ctx := context.Background()

	_, err := f.processor.SetVideo(ctx, "https://youtu.be/sssssssssss", "")
	require.NoError(t, err)

	require.True(t, f.processor.StartProcessing())
	f.processor.Wait()

	checks, err := f.processor.SessionFactChecks(ctx, "sssssssssss")
	require.NoError(t, err)
	require.Len(t, checks, 3)
	assert.Equal(t, "Climate change is affecting weather patterns globally.", checks[0].Statement)
	assert.Equal(t, "The Earth's temperature has risen by 1.1 degrees Celsius since pre-industrial times.", checks[1].Statement)
	assert.Equal(t, checks[0].Statement, checks[2].Statement, "repeated claims are checked again")

	assert.Equal(t, []time.Duration{0}, f.audio.segments, "static videos are extracted whole")
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, f.sleeper.snapshot())

	status := f.processor.Status()
	assert.False(t, status.IsProcessing)
	assert.Equal(t, 3, status.ProcessedSegments)
}

func TestStartProcessing_LiveVideo(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, model.VideoInfo{Title: "Live", IsLive: true}, "The sky is blue on a clear day.")
	f.sleeper.limit = 3
	f.audio.failures = 1
	ctx := context.Background()

	_, err := f.processor.SetVideo(ctx, "https://www.youtube.com/live/lllllllllll", "")
	require.NoError(t, err)

	require.True(t, f.processor.StartProcessing())
	assert.False(t, f.processor.StartProcessing(), "second start must be a no-op")

	require.Eventually(t, func() bool { return len(f.sleeper.snapshot()) == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, f.processor.Status().IsProcessing)

	f.processor.StopProcessing()
	assert.False(t, f.processor.Status().IsProcessing)

	// First extraction fails and waits the retry delay; later segments wait a full segment
	assert.Equal(t, []time.Duration{10 * time.Second, 30 * time.Second, 30 * time.Second}, f.sleeper.snapshot())
	for _, seg := range f.audio.segments {
		assert.Equal(t, 30*time.Second, seg)
	}

	checks, err := f.processor.SessionFactChecks(ctx, "lllllllllll")
	require.NoError(t, err)
	assert.Len(t, checks, 2)
}

func TestSetVideo_StopsProcessing(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t, model.VideoInfo{Title: "Live", IsLive: true}, "The sky is blue on a clear day.")
	f.sleeper.limit = 1
	ctx := context.Background()

	_, err := f.processor.SetVideo(ctx, "https://youtu.be/aaaaaaaaaaa", "")
	require.NoError(t, err)
	require.True(t, f.processor.StartProcessing())
	require.Eventually(t, func() bool { return len(f.sleeper.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err = f.processor.SetVideo(ctx, "https://youtu.be/bbbbbbbbbbb", "")
	require.NoError(t, err)
	assert.False(t, f.processor.Status().IsProcessing)
}

type blockingMetadata struct {
	entered chan struct{}
	release chan struct{}
}

func (b blockingMetadata) Info(ctx context.Context, _ string) model.VideoInfo {
	close(b.entered)
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return model.VideoInfo{Title: "Second"}
}

func TestSetVideo_RefusesStartWhileSwitching(t *testing.T) {
	f := newFixture(t, model.VideoInfo{Title: "First"}, "The sky is blue on a clear day.")
	ctx := context.Background()

	_, err := f.processor.SetVideo(ctx, "https://youtu.be/aaaaaaaaaaa", "")
	require.NoError(t, err)

	meta := blockingMetadata{entered: make(chan struct{}), release: make(chan struct{})}
	f.processor.metadata = meta

	errc := make(chan error, 1)
	go func() {
		_, err := f.processor.SetVideo(ctx, "https://youtu.be/bbbbbbbbbbb", "")
		errc <- err
	}()

	<-meta.entered
	assert.False(t, f.processor.StartProcessing(), "old video must not restart mid-switch")
	_, err = f.processor.ProcessTranscriptSegment(ctx, "A statement about the first video.")
	assert.ErrorIs(t, err, ErrVideoChanged)

	close(meta.release)
	require.NoError(t, <-errc)

	status := f.processor.Status()
	assert.Equal(t, "bbbbbbbbbbb", status.VideoID)
	assert.Equal(t, "Second", status.Title)
	assert.True(t, f.processor.StartProcessing())
	f.processor.Wait()

	old, err := f.store.VideoFactChecks(ctx, "aaaaaaaaaaa", 0)
	require.NoError(t, err)
	assert.Empty(t, old)
}

func TestProcessSegment_StaleVideoDropped(t *testing.T) {
	f := newFixture(t, model.VideoInfo{Title: "Video"}, "")
	ctx := context.Background()

	_, err := f.processor.SetVideo(ctx, "https://youtu.be/bbbbbbbbbbb", "")
	require.NoError(t, err)

	_, err = f.processor.processSegment(ctx, "aaaaaaaaaaa", "Text transcribed from the previous video.")
	assert.ErrorIs(t, err, ErrVideoChanged)

	for _, id := range []string{"aaaaaaaaaaa", "bbbbbbbbbbb"} {
		checks, err := f.store.VideoFactChecks(ctx, id, 0)
		require.NoError(t, err)
		assert.Empty(t, checks, id)
	}
	assert.Zero(t, f.processor.Status().ProcessedSegments)
}
