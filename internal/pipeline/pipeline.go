package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/store"
)

// Checker fact-checks one statement
type Checker interface {
	Check(ctx context.Context, statement, extraContext string) (*model.FactCheckResult, error)
}

// Publisher delivers a typed message to every socket of a group
type Publisher interface {
	Publish(group, msgType string, data any)
}

// MessageFactCheckResult is the message type pushed to session sockets
const MessageFactCheckResult = "fact_check_result"

// Pipeline turns statements and transcription updates into stored,
// broadcast fact-checks
type Pipeline struct {
	checker   Checker
	store     store.Store
	publisher Publisher
	logger    *zap.Logger

	now func() time.Time
}

// NewPipeline creates a pipeline. publisher may be nil when nothing listens.
func NewPipeline(checker Checker, st store.Store, publisher Publisher, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		checker:   checker,
		store:     st,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// CheckStatement fact-checks a statement and records the result under the
// request's session
func (p *Pipeline) CheckStatement(ctx context.Context, req model.FactCheckRequest) (*model.FactCheckResult, error) {
	result, err := p.checker.Check(ctx, req.Statement, req.Context)
	if err != nil {
		return nil, err
	}

	if err := p.save(ctx, req.SessionID, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ProcessTranscription stores a transcription update. Final updates longer
// than model.MinCheckableLength characters are fact-checked, stored, and published to
// the session.
func (p *Pipeline) ProcessTranscription(ctx context.Context, update model.TranscriptionUpdate) (*model.TranscriptionResponse, error) {
	// 1. Persist the raw transcription
	if update.Timestamp.IsZero() {
		update.Timestamp = p.now().UTC()
	}
	rec := &model.TranscriptionRecord{TranscriptionUpdate: update, ID: uuid.NewString()}
	if err := p.store.SaveTranscription(ctx, rec); err != nil {
		return nil, fmt.Errorf("store transcription: %w", err)
	}

	// 2. Interim or short updates stop here
	text := strings.TrimSpace(update.Text)
	if !update.IsFinal || utf8.RuneCountInString(text) <= model.MinCheckableLength {
		return &model.TranscriptionResponse{Status: model.TranscriptionReceived}, nil
	}

	// 3. Fact-check and store
	result, err := p.checker.Check(ctx, text, "")
	if err != nil {
		return nil, fmt.Errorf("fact-check transcription: %w", err)
	}
	if err := p.save(ctx, update.SessionID, result); err != nil {
		return nil, err
	}

	// 4. Push to every socket of the session
	if p.publisher != nil && update.SessionID != "" {
		p.publisher.Publish(update.SessionID, MessageFactCheckResult, result)
	}

	p.logger.Debug("transcription processed",
		zap.String("session_id", update.SessionID),
		zap.String("verdict", string(result.Verdict)))

	return &model.TranscriptionResponse{Status: model.TranscriptionProcessed, FactCheck: result}, nil
}

// SessionFactChecks returns a session's fact-checks, newest first
func (p *Pipeline) SessionFactChecks(ctx context.Context, sessionID string) ([]model.FactCheckRecord, error) {
	records, err := p.store.SessionFactChecks(ctx, sessionID, store.SessionFactCheckLimit)
	if err != nil {
		return nil, fmt.Errorf("load fact checks: %w", err)
	}
	return records, nil
}

func (p *Pipeline) save(ctx context.Context, sessionID string, result *model.FactCheckResult) error {
	rec := &model.FactCheckRecord{
		FactCheckResult: *result,
		ID:              uuid.NewString(),
		SessionID:       sessionID,
	}
	if err := p.store.SaveFactCheck(ctx, rec); err != nil {
		return fmt.Errorf("store fact check: %w", err)
	}
	return nil
}
