package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
)

// MemoryStore keeps everything in process memory
type MemoryStore struct {
	mu sync.RWMutex

	factChecks      []model.FactCheckRecord
	transcriptions  []model.TranscriptionRecord
	sessions        []model.VideoSession
	segments        []model.TranscriptSegment
	videoFactChecks []model.VideoFactCheck
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveFactCheck(_ context.Context, rec *model.FactCheckRecord) error {
	normalizeResult(&rec.FactCheckResult)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.factChecks = append(s.factChecks, cloneRecord(*rec))
	return nil
}

func (s *MemoryStore) SaveTranscription(_ context.Context, rec *model.TranscriptionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcriptions = append(s.transcriptions, *rec)
	return nil
}

// Transcriptions returns every stored transcription in insertion order
func (s *MemoryStore) Transcriptions() []model.TranscriptionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.TranscriptionRecord(nil), s.transcriptions...)
}

func (s *MemoryStore) SessionFactChecks(_ context.Context, sessionID string, limit int) ([]model.FactCheckRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := []model.FactCheckRecord{}
	for _, rec := range s.factChecks {
		if rec.SessionID == sessionID {
			records = append(records, cloneRecord(rec))
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *MemoryStore) ActivateVideoSession(_ context.Context, session *model.VideoSession) error {
	normalizeSession(session)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sessions {
		if s.sessions[i].Status == model.SessionActive {
			s.sessions[i].Status = model.SessionInactive
		}
	}
	s.sessions = append(s.sessions, cloneSession(*session))
	return nil
}

func (s *MemoryStore) CurrentVideoSession(_ context.Context) (*model.VideoSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var current *model.VideoSession
	for i := range s.sessions {
		sess := &s.sessions[i]
		if sess.Status != model.SessionActive {
			continue
		}
		if current == nil || sess.CreatedAt.After(current.CreatedAt) {
			current = sess
		}
	}
	if current == nil {
		return nil, nil
	}
	out := cloneSession(*current)
	return &out, nil
}

func (s *MemoryStore) SaveTranscriptSegment(_ context.Context, seg *model.TranscriptSegment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = append(s.segments, *seg)
	return nil
}

func (s *MemoryStore) MarkSegmentProcessed(_ context.Context, segmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.segments {
		if s.segments[i].ID == segmentID {
			s.segments[i].Processed = true
			return nil
		}
	}
	return fmt.Errorf("segment %s: %w", segmentID, ErrNotFound)
}

// Segments returns every stored transcript segment in insertion order
func (s *MemoryStore) Segments() []model.TranscriptSegment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.TranscriptSegment(nil), s.segments...)
}

func (s *MemoryStore) SaveVideoFactCheck(_ context.Context, fc *model.VideoFactCheck) error {
	normalizeResult(&fc.FactCheckResult)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.videoFactChecks = append(s.videoFactChecks, cloneVideoFactCheck(*fc))
	return nil
}

func (s *MemoryStore) AppendToVideoSession(_ context.Context, videoID string, seg model.TranscriptSegment, fc model.VideoFactCheck) error {
	normalizeResult(&fc.FactCheckResult)

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := false
	for i := range s.sessions {
		sess := &s.sessions[i]
		if sess.VideoID != videoID || sess.Status != model.SessionActive {
			continue
		}
		sess.TranscriptSegments = append(sess.TranscriptSegments, seg)
		sess.FactChecks = append(sess.FactChecks, cloneVideoFactCheck(fc))
		matched = true
		break
	}
	if !matched {
		return fmt.Errorf("active session for %s: %w", videoID, ErrNotFound)
	}
	return nil
}

func (s *MemoryStore) VideoFactChecks(_ context.Context, videoID string, limit int) ([]model.VideoFactCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	checks := []model.VideoFactCheck{}
	for _, fc := range s.videoFactChecks {
		if fc.VideoID == videoID {
			checks = append(checks, cloneVideoFactCheck(fc))
		}
	}
	sort.SliceStable(checks, func(i, j int) bool {
		return checks[i].CreatedAt.Before(checks[j].CreatedAt)
	})
	if limit > 0 && len(checks) > limit {
		checks = checks[:limit]
	}
	return checks, nil
}

func (s *MemoryStore) Ping(context.Context) error  { return nil }
func (s *MemoryStore) Close(context.Context) error { return nil }

func cloneRecord(r model.FactCheckRecord) model.FactCheckRecord {
	r.Sources = append([]model.SourceCitation{}, r.Sources...)
	return r
}

func cloneVideoFactCheck(fc model.VideoFactCheck) model.VideoFactCheck {
	fc.Sources = append([]model.SourceCitation{}, fc.Sources...)
	return fc
}

func cloneSession(s model.VideoSession) model.VideoSession {
	s.TranscriptSegments = append([]model.TranscriptSegment{}, s.TranscriptSegments...)
	checks := make([]model.VideoFactCheck, len(s.FactChecks))
	for i, fc := range s.FactChecks {
		checks[i] = cloneVideoFactCheck(fc)
	}
	s.FactChecks = checks
	return s
}
