// Package store persists fact-checks, transcriptions and YouTube sessions.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
)

// ErrNotFound is returned when an update targets a document that does not exist
var ErrNotFound = errors.New("not found")

// Default list sizes
const (
	SessionFactCheckLimit = 100
	VideoFactCheckLimit   = 1000
)

// Store is the document store used by the pipeline and the YouTube processor
type Store interface {
	SaveFactCheck(ctx context.Context, rec *model.FactCheckRecord) error
	SaveTranscription(ctx context.Context, rec *model.TranscriptionRecord) error

	// SessionFactChecks lists a session's fact-checks, newest first
	SessionFactChecks(ctx context.Context, sessionID string, limit int) ([]model.FactCheckRecord, error)

	// ActivateVideoSession marks every active session inactive, then inserts
	// session as the active one
	ActivateVideoSession(ctx context.Context, session *model.VideoSession) error

	// CurrentVideoSession returns the newest active session, nil when none
	CurrentVideoSession(ctx context.Context) (*model.VideoSession, error)

	SaveTranscriptSegment(ctx context.Context, seg *model.TranscriptSegment) error
	MarkSegmentProcessed(ctx context.Context, segmentID string) error
	SaveVideoFactCheck(ctx context.Context, fc *model.VideoFactCheck) error

	// AppendToVideoSession pushes a segment and its fact-check into the
	// active session for videoID
	AppendToVideoSession(ctx context.Context, videoID string, seg model.TranscriptSegment, fc model.VideoFactCheck) error

	// VideoFactChecks lists a video's fact-checks, oldest first
	VideoFactChecks(ctx context.Context, videoID string, limit int) ([]model.VideoFactCheck, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// New opens the configured backend: "mongo" (default) or "memory"
func New(ctx context.Context, cfg *model.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(cfg.Server.Store) {
	case "memory":
		logger.Info("using in-memory store")
		return NewMemoryStore(), nil
	case "mongo", "":
		timeout := cfg.Mongo.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		connectCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		s, err := NewMongoStore(connectCtx, cfg.Mongo.URL, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to mongo", zap.String("database", cfg.Mongo.Database))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store: %s (supported: mongo, memory)", cfg.Server.Store)
	}
}

// normalizeResult keeps list fields non-nil so they encode as [] rather than null
func normalizeResult(r *model.FactCheckResult) {
	if r.Sources == nil {
		r.Sources = []model.SourceCitation{}
	}
}

func normalizeSession(s *model.VideoSession) {
	if s.TranscriptSegments == nil {
		s.TranscriptSegments = []model.TranscriptSegment{}
	}
	if s.FactChecks == nil {
		s.FactChecks = []model.VideoFactCheck{}
	}
	for i := range s.FactChecks {
		normalizeResult(&s.FactChecks[i].FactCheckResult)
	}
}
