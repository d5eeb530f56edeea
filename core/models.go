package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for content-addressed entities.
// Cache and expansion entries derive their ID from the query text so that
// identical queries map to the same stored record.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// RecordKind classifies stored records so similarity queries can be
// restricted to one population.
type RecordKind string

const (
	// KindSearchQuery marks semantic cache entries.
	KindSearchQuery RecordKind = "search_query"
	// KindExpansion marks cached query expansions.
	KindExpansion RecordKind = "expansion"
	// KindKnowledge marks knowledge base passages.
	KindKnowledge RecordKind = "knowledge"
	// KindFeedback marks user feedback records.
	KindFeedback RecordKind = "feedback"
	// KindResponse marks recorded answers.
	KindResponse RecordKind = "response"
	// KindCorrection marks correction records linking an original and a
	// corrected value.
	KindCorrection RecordKind = "correction"
)

// CacheEntry is a semantic cache record. Entries are immutable after
// creation except for UsageCount, which is incremented on cache hits.
type CacheEntry struct {
	Query      string
	Response   string
	UsageCount int
	CreatedAt  time.Time
}

// ExpansionRecord stores the alternative phrasings generated for a query.
// Read-only after creation.
type ExpansionRecord struct {
	Query     string
	Variants  []string
	CreatedAt time.Time
}

// Candidate is a retrieved passage under consideration for an answer.
// Candidates are ephemeral: they exist only within one retrieval call.
type Candidate struct {
	Text      string
	Vector    []float32
	UserScore float64 // 0 when no user score is attached
}

// Evaluation is an automatic quality assessment of a response.
// Each score is in [1,5]. A failed evaluation degrades to {1,1,1,comment}.
type Evaluation struct {
	Accuracy     int    `json:"accuracy"`
	Completeness int    `json:"completeness"`
	Cohesion     int    `json:"cohesion"`
	Comment      string `json:"comment"`
}

// FeedbackRecord is an append-only record of one answered query, optionally
// enriched with a user score. Corrections are stored as new records of kind
// KindCorrection, never as in-place edits.
type FeedbackRecord struct {
	Id            string     `json:"id"`
	Kind          RecordKind `json:"kind"`
	Query         string     `json:"query"`
	Response      string     `json:"response"`
	UserScore     int        `json:"user_score,omitempty"` // 1-5, 0 = absent
	FeedbackText  string     `json:"feedback_text,omitempty"`
	AutoEval      Evaluation `json:"auto_eval"`
	UsedTools     []string   `json:"used_tools,omitempty"`
	WasSuccessful bool       `json:"was_successful"`
	Timestamp     time.Time  `json:"timestamp"`
}

// AgentStep records one iteration of the reasoning loop.
type AgentStep struct {
	Thought     string    `json:"thought,omitempty"`
	Action      string    `json:"action,omitempty"`
	ActionInput string    `json:"action_input,omitempty"`
	Observation string    `json:"observation,omitempty"`
	FinalAnswer string    `json:"final_answer,omitempty"`
	At          time.Time `json:"at"`
}

// SessionLog is the ordered, append-only record of one reasoning session.
// It is the unit of durable state used by the agent's fallback strategy.
type SessionLog struct {
	Id        string      `json:"id"`
	Query     string      `json:"query"`
	Steps     []AgentStep `json:"steps"`
	Result    string      `json:"result,omitempty"`
	Succeeded bool        `json:"succeeded"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   time.Time   `json:"ended_at,omitempty"`
}

// CacheStats summarizes semantic cache usage.
type CacheStats struct {
	TotalEntries int
	TotalUsage   int
	AverageUsage float64
}

// FeedbackStats summarizes stored user feedback.
type FeedbackStats struct {
	AverageScore  float64
	TotalFeedback int
}
