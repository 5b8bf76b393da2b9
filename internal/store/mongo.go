package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
)

// Collection names
const (
	FactChecksCollection         = "fact_checks"
	TranscriptionsCollection     = "transcriptions"
	VideoSessionsCollection      = "youtube_sessions"
	TranscriptSegmentsCollection = "transcript_segments"
	VideoFactChecksCollection    = "youtube_fact_checks"
)

// MongoStore persists documents in MongoDB
type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database

	factChecks      *mongo.Collection
	transcriptions  *mongo.Collection
	sessions        *mongo.Collection
	segments        *mongo.Collection
	videoFactChecks *mongo.Collection
}

// NewMongoStore connects to uri and verifies the connection with a ping
func NewMongoStore(ctx context.Context, uri, databaseName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(databaseName)
	return &MongoStore{
		client:          client,
		database:        db,
		factChecks:      db.Collection(FactChecksCollection),
		transcriptions:  db.Collection(TranscriptionsCollection),
		sessions:        db.Collection(VideoSessionsCollection),
		segments:        db.Collection(TranscriptSegmentsCollection),
		videoFactChecks: db.Collection(VideoFactChecksCollection),
	}, nil
}

func (s *MongoStore) SaveFactCheck(ctx context.Context, rec *model.FactCheckRecord) error {
	normalizeResult(&rec.FactCheckResult)
	if _, err := s.factChecks.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert fact check: %w", err)
	}
	return nil
}

func (s *MongoStore) SaveTranscription(ctx context.Context, rec *model.TranscriptionRecord) error {
	if _, err := s.transcriptions.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert transcription: %w", err)
	}
	return nil
}

func (s *MongoStore) SessionFactChecks(ctx context.Context, sessionID string, limit int) ([]model.FactCheckRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.factChecks.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query fact checks: %w", err)
	}

	records := []model.FactCheckRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode fact checks: %w", err)
	}
	for i := range records {
		normalizeResult(&records[i].FactCheckResult)
	}
	return records, nil
}

func (s *MongoStore) ActivateVideoSession(ctx context.Context, session *model.VideoSession) error {
	normalizeSession(session)

	_, err := s.sessions.UpdateMany(ctx,
		bson.M{"status": model.SessionActive},
		bson.M{"$set": bson.M{"status": model.SessionInactive}})
	if err != nil {
		return fmt.Errorf("deactivate sessions: %w", err)
	}

	if _, err := s.sessions.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *MongoStore) CurrentVideoSession(ctx context.Context) (*model.VideoSession, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var session model.VideoSession
	err := s.sessions.FindOne(ctx, bson.M{"status": model.SessionActive}, opts).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find current session: %w", err)
	}
	normalizeSession(&session)
	return &session, nil
}

func (s *MongoStore) SaveTranscriptSegment(ctx context.Context, seg *model.TranscriptSegment) error {
	if _, err := s.segments.InsertOne(ctx, seg); err != nil {
		return fmt.Errorf("insert transcript segment: %w", err)
	}
	return nil
}

func (s *MongoStore) MarkSegmentProcessed(ctx context.Context, segmentID string) error {
	res, err := s.segments.UpdateOne(ctx,
		bson.M{"id": segmentID},
		bson.M{"$set": bson.M{"processed": true}})
	if err != nil {
		return fmt.Errorf("mark segment processed: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("segment %s: %w", segmentID, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) SaveVideoFactCheck(ctx context.Context, fc *model.VideoFactCheck) error {
	normalizeResult(&fc.FactCheckResult)
	if _, err := s.videoFactChecks.InsertOne(ctx, fc); err != nil {
		return fmt.Errorf("insert video fact check: %w", err)
	}
	return nil
}

func (s *MongoStore) AppendToVideoSession(ctx context.Context, videoID string, seg model.TranscriptSegment, fc model.VideoFactCheck) error {
	normalizeResult(&fc.FactCheckResult)

	res, err := s.sessions.UpdateOne(ctx,
		bson.M{"video_id": videoID, "status": model.SessionActive},
		bson.M{"$push": bson.M{
			"transcript_segments": seg,
			"fact_checks":         fc,
		}})
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("active session for %s: %w", videoID, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) VideoFactChecks(ctx context.Context, videoID string, limit int) ([]model.VideoFactCheck, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.videoFactChecks.Find(ctx, bson.M{"video_id": videoID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query video fact checks: %w", err)
	}

	checks := []model.VideoFactCheck{}
	if err := cursor.All(ctx, &checks); err != nil {
		return nil, fmt.Errorf("decode video fact checks: %w", err)
	}
	for i := range checks {
		normalizeResult(&checks[i].FactCheckResult)
	}
	return checks, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Drop removes the whole database. Used by integration tests.
func (s *MongoStore) Drop(ctx context.Context) error {
	return s.database.Drop(ctx)
}
