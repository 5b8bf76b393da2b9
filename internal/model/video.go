package model

import "time"

// Video session status values
const (
	SessionActive   = "active"
	SessionInactive = "inactive"
)

// VideoInfo is the metadata we keep about a YouTube video
type VideoInfo struct {
	Title       string `json:"title"`
	Duration    int    `json:"duration"` // seconds, 0 for live or unknown
	IsLive      bool   `json:"is_live"`
	Uploader    string `json:"uploader,omitempty"`
	Description string `json:"description,omitempty"`
	ViewCount   int64  `json:"view_count,omitempty"`
	UploadDate  string `json:"upload_date,omitempty"`
}

// UnknownVideo is the metadata used when nothing could be looked up
func UnknownVideo() VideoInfo {
	return VideoInfo{Title: "Unknown Video"}
}

// VideoSession groups everything produced while one video is selected
type VideoSession struct {
	ID                 string              `json:"id" bson:"id"`
	VideoID            string              `json:"video_id" bson:"video_id"`
	VideoURL           string              `json:"video_url" bson:"video_url"`
	Title              string              `json:"title" bson:"title"`
	Duration           int                 `json:"duration" bson:"duration"`
	IsLive             bool                `json:"is_live" bson:"is_live"`
	AdminUser          string              `json:"admin_user" bson:"admin_user"`
	CreatedAt          time.Time           `json:"created_at" bson:"created_at"`
	Status             string              `json:"status" bson:"status"`
	TranscriptSegments []TranscriptSegment `json:"transcript_segments" bson:"transcript_segments"`
	FactChecks         []VideoFactCheck    `json:"fact_checks" bson:"fact_checks"`
}

// VideoFactCheck is a fact-check produced from a transcript segment
type VideoFactCheck struct {
	FactCheckResult `bson:",inline"`
	ID              string    `json:"id" bson:"id"`
	SegmentID       string    `json:"segment_id" bson:"segment_id"`
	VideoID         string    `json:"video_id" bson:"video_id"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
}

// SetVideoRequest is the body of POST /api/youtube/set-video
type SetVideoRequest struct {
	VideoURL  string `json:"video_url"`
	AdminUser string `json:"admin_user,omitempty"`
}

// SetVideoResult reports the outcome of selecting a video
type SetVideoResult struct {
	Success  bool   `json:"success"`
	VideoID  string `json:"video_id,omitempty"`
	Title    string `json:"title,omitempty"`
	Duration int    `json:"duration,omitempty"`
	IsLive   bool   `json:"is_live"`
	Error    string `json:"error,omitempty"`
}

// ProcessorStatus is a snapshot of the YouTube processor
type ProcessorStatus struct {
	VideoID           string `json:"video_id,omitempty"`
	Title             string `json:"title,omitempty"`
	IsLive            bool   `json:"is_live"`
	IsProcessing      bool   `json:"is_processing"`
	ProcessedSegments int    `json:"processed_segments"`
}
