package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
)

var base = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func factCheck(statement string, at time.Time) model.FactCheckResult {
	return model.FactCheckResult{
		Statement:       statement,
		Verdict:         model.VerdictTrue,
		ConfidenceScore: 0.9,
		Explanation:     "ok",
		Timestamp:       at,
		Provider:        "mock",
	}
}

// runStoreTests exercises the behaviour every Store implementation shares
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("session fact checks newest first", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			rec := &model.FactCheckRecord{
				FactCheckResult: factCheck(fmt.Sprintf("statement %d", i), base.Add(time.Duration(i)*time.Minute)),
				ID:              uuid.NewString(),
				SessionID:       "session-a",
			}
			require.NoError(t, s.SaveFactCheck(ctx, rec))
		}
		require.NoError(t, s.SaveFactCheck(ctx, &model.FactCheckRecord{
			FactCheckResult: factCheck("other", base),
			ID:              uuid.NewString(),
			SessionID:       "session-b",
		}))

		records, err := s.SessionFactChecks(ctx, "session-a", 3)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "statement 4", records[0].Statement)
		assert.Equal(t, "statement 3", records[1].Statement)
		assert.Equal(t, "statement 2", records[2].Statement)
		assert.NotNil(t, records[0].Sources)

		empty, err := s.SessionFactChecks(ctx, "unknown", SessionFactCheckLimit)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("transcriptions", func(t *testing.T) {
		s := newStore(t)
		err := s.SaveTranscription(context.Background(), &model.TranscriptionRecord{
			TranscriptionUpdate: model.TranscriptionUpdate{Text: "hello", SessionID: "s", Timestamp: base},
			ID:                  uuid.NewString(),
		})
		require.NoError(t, err)
	})

	t.Run("video session lifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		current, err := s.CurrentVideoSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, current)

		first := &model.VideoSession{ID: uuid.NewString(), VideoID: "aaaaaaaaaaa", Title: "First", CreatedAt: base, Status: model.SessionActive}
		require.NoError(t, s.ActivateVideoSession(ctx, first))

		second := &model.VideoSession{ID: uuid.NewString(), VideoID: "bbbbbbbbbbb", Title: "Second", CreatedAt: base.Add(time.Minute), Status: model.SessionActive}
		require.NoError(t, s.ActivateVideoSession(ctx, second))

		current, err = s.CurrentVideoSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, "bbbbbbbbbbb", current.VideoID)
		assert.NotNil(t, current.TranscriptSegments)
		assert.NotNil(t, current.FactChecks)

		// The first session was deactivated, so pushing into it fails
		seg := model.TranscriptSegment{ID: "aaaaaaaaaaa_0", VideoID: "aaaaaaaaaaa", Transcript: "x", Timestamp: base}
		fc := model.VideoFactCheck{FactCheckResult: factCheck("x", base), ID: uuid.NewString(), SegmentID: seg.ID, VideoID: "aaaaaaaaaaa", CreatedAt: base}
		err = s.AppendToVideoSession(ctx, "aaaaaaaaaaa", seg, fc)
		assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

		seg = model.TranscriptSegment{ID: "bbbbbbbbbbb_0", VideoID: "bbbbbbbbbbb", Transcript: "The sky is blue.", Timestamp: base}
		require.NoError(t, s.SaveTranscriptSegment(ctx, &seg))
		fc = model.VideoFactCheck{FactCheckResult: factCheck(seg.Transcript, base), ID: uuid.NewString(), SegmentID: seg.ID, VideoID: "bbbbbbbbbbb", CreatedAt: base}
		require.NoError(t, s.SaveVideoFactCheck(ctx, &fc))
		require.NoError(t, s.MarkSegmentProcessed(ctx, seg.ID))
		seg.Processed = true
		require.NoError(t, s.AppendToVideoSession(ctx, "bbbbbbbbbbb", seg, fc))

		current, err = s.CurrentVideoSession(ctx)
		require.NoError(t, err)
		require.Len(t, current.TranscriptSegments, 1)
		require.Len(t, current.FactChecks, 1)
		assert.Equal(t, "bbbbbbbbbbb_0", current.FactChecks[0].SegmentID)
		assert.Equal(t, "The sky is blue.", current.FactChecks[0].Statement)

		assert.True(t, errors.Is(s.MarkSegmentProcessed(ctx, "missing"), ErrNotFound))
	})

	t.Run("video fact checks oldest first", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i := 2; i >= 0; i-- {
			fc := &model.VideoFactCheck{
				FactCheckResult: factCheck(fmt.Sprintf("check %d", i), base),
				ID:              uuid.NewString(),
				SegmentID:       fmt.Sprintf("vid_%d", i),
				VideoID:         "vid",
				CreatedAt:       base.Add(time.Duration(i) * time.Second),
			}
			require.NoError(t, s.SaveVideoFactCheck(ctx, fc))
		}

		checks, err := s.VideoFactChecks(ctx, "vid", VideoFactCheckLimit)
		require.NoError(t, err)
		require.Len(t, checks, 3)
		assert.Equal(t, "check 0", checks[0].Statement)
		assert.Equal(t, "check 2", checks[2].Statement)

		none, err := s.VideoFactChecks(ctx, "nope", VideoFactCheckLimit)
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(context.Background()))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.ActivateVideoSession(ctx, &model.VideoSession{ID: "1", VideoID: "v", Status: model.SessionActive, CreatedAt: base}))

	current, err := s.CurrentVideoSession(ctx)
	require.NoError(t, err)
	current.Title = "mutated"
	current.TranscriptSegments = append(current.TranscriptSegments, model.TranscriptSegment{ID: "x"})

	again, err := s.CurrentVideoSession(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Title)
	assert.Empty(t, again.TranscriptSegments)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("TRUTHSEEKER_TEST_MONGO_URL")
	if uri == "" {
		t.Skip("TRUTHSEEKER_TEST_MONGO_URL not set")
	}

	runStoreTests(t, func(t *testing.T) Store {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s, err := NewMongoStore(ctx, uri, "truthseeker_test_"+uuid.NewString()[:8])
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.Drop(context.Background())
			_ = s.Close(context.Background())
		})
		return s
	})
}

func TestNew_Memory(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Server.Store = "memory"

	s, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	cfg.Server.Store = "postgres"
	_, err = New(context.Background(), cfg, nil)
	assert.Error(t, err)
}
