package model

import "time"

// Verdict is the outcome assigned to a statement
type Verdict string

const (
	VerdictTrue          Verdict = "True"
	VerdictFalse         Verdict = "False"
	VerdictPartiallyTrue Verdict = "Partially True"
	VerdictUnverified    Verdict = "Unverified"
)

// Valid reports whether v is one of the four known verdicts
func (v Verdict) Valid() bool {
	switch v {
	case VerdictTrue, VerdictFalse, VerdictPartiallyTrue, VerdictUnverified:
		return true
	}
	return false
}

// FactCheckRequest is the body of POST /api/fact-check
type FactCheckRequest struct {
	Statement string `json:"statement"`
	Context   string `json:"context,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// SourceCitation is a source backing a verdict
type SourceCitation struct {
	Title       string        `json:"title" bson:"title"`
	URL         string        `json:"url" bson:"url"`
	PublishDate string        `json:"publish_date,omitempty" bson:"publish_date,omitempty"`
	Domain      string        `json:"domain" bson:"domain"`
	Authority   AuthorityTier `json:"authority" bson:"authority"`
	Accessible  *bool         `json:"accessible,omitempty" bson:"accessible,omitempty"`
}

// FactCheckResult is a verdict for a single statement
type FactCheckResult struct {
	Statement        string           `json:"statement" bson:"statement"`
	Verdict          Verdict          `json:"verdict" bson:"verdict"`
	ConfidenceScore  float64          `json:"confidence_score" bson:"confidence_score"` // 0.0 - 1.0
	Explanation      string           `json:"explanation" bson:"explanation"`
	Sources          []SourceCitation `json:"sources" bson:"sources"`
	ProcessingTimeMS int64            `json:"processing_time_ms" bson:"processing_time_ms"`
	Timestamp        time.Time        `json:"timestamp" bson:"timestamp"`
	Provider         string           `json:"provider,omitempty" bson:"provider,omitempty"`
	Cached           bool             `json:"cached,omitempty" bson:"-"`
}

// FactCheckRecord is a FactCheckResult persisted under a session
type FactCheckRecord struct {
	FactCheckResult `bson:",inline"`
	ID              string `json:"id" bson:"id"`
	SessionID       string `json:"session_id,omitempty" bson:"session_id,omitempty"`
}

// AuthorityTier classifies how authoritative a source is
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Government, academic, official documents
	TierSecondary AuthorityTier = 2 // Encyclopedias, major publishers, reputable media
	TierTertiary  AuthorityTier = 3 // Blogs, personal websites, everything else
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// MarshalText renders the tier by name so JSON and YAML stay readable
func (t AuthorityTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText
func (t *AuthorityTier) UnmarshalText(b []byte) error {
	switch string(b) {
	case "primary":
		*t = TierPrimary
	case "secondary":
		*t = TierSecondary
	case "tertiary":
		*t = TierTertiary
	default:
		*t = TierUnknown
	}
	return nil
}
