package model

import "time"

// TranscriptionUpdate is a piece of speech-recognition output sent by a client
type TranscriptionUpdate struct {
	Text      string    `json:"text" bson:"text"`
	IsFinal   bool      `json:"is_final" bson:"is_final"`
	SessionID string    `json:"session_id" bson:"session_id"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// TranscriptionRecord is a persisted TranscriptionUpdate
type TranscriptionRecord struct {
	TranscriptionUpdate `bson:",inline"`
	ID                  string `json:"id" bson:"id"`
}

// TranscriptionResponse is the pipeline outcome for one update
type TranscriptionResponse struct {
	Status    string           `json:"status"` // "received" or "processed"
	FactCheck *FactCheckResult `json:"fact_check,omitempty"`
}

const (
	TranscriptionReceived  = "received"
	TranscriptionProcessed = "processed"
)

// MinCheckableLength is the trimmed length a transcript must exceed before it is fact-checked
const MinCheckableLength = 10

// TranscriptSegment is one chunk of transcribed YouTube audio
type TranscriptSegment struct {
	ID         string    `json:"id" bson:"id"` // <video_id>_<n>
	VideoID    string    `json:"video_id" bson:"video_id"`
	Transcript string    `json:"transcript" bson:"transcript"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
	Processed  bool      `json:"processed" bson:"processed"`
}
