package core

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// OutlierTopic is the topic id assigned to items that fit no topic.
const OutlierTopic = -1

// digestSize is the BLAKE2b digest length used for derived identifiers.
const digestSize = 20

// HashHex returns a deterministic hex digest of the given parts using BLAKE2b.
// Parts are separated by a unit separator so ("ab", "c") and ("a", "bc")
// produce different digests.
func HashHex(parts ...string) string {
	h, _ := blake2b.New(digestSize, nil)
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0x1f})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Item is a single feed entry held in the rolling window.
// Items are immutable once created and shared by pointer.
type Item struct {
	ID        string    // GUID from the feed, or a hash of the link
	Published time.Time // Never zero; falls back to ingestion time
	Title     string
	URL       string
	Summary   string
	Source    string
	Embedding []float32 // nil when embedding failed or there was no text
}

// HasEmbedding reports whether the item carries a usable vector.
func (i *Item) HasEmbedding() bool {
	return i != nil && len(i.Embedding) > 0
}

// Text returns the text used for embeddings and topic modeling.
func (i *Item) Text() string {
	return EmbedText(i.Title, i.Summary)
}

// EmbedText joins the non-empty fields with a single space.
func EmbedText(title, summary string) string {
	title = strings.TrimSpace(title)
	summary = strings.TrimSpace(summary)
	switch {
	case title == "":
		return summary
	case summary == "":
		return title
	}
	return title + " " + summary
}

// Confidence labels how strong a semantic match is.
type Confidence string

const (
	ConfidenceVeryStrong Confidence = "very-strong"
	ConfidenceStrong     Confidence = "strong"
	ConfidencePossible   Confidence = "possible"
	ConfidenceWeak       Confidence = "weak"
)

// ConfidenceFor maps a combined score to its tier.
func ConfidenceFor(score float64) Confidence {
	switch {
	case score >= 0.85:
		return ConfidenceVeryStrong
	case score >= 0.70:
		return ConfidenceStrong
	case score >= 0.60:
		return ConfidencePossible
	default:
		return ConfidenceWeak
	}
}

// Label returns the human-readable form of the tier.
func (c Confidence) Label() string {
	switch c {
	case ConfidenceVeryStrong:
		return "Very Strong Match"
	case ConfidenceStrong:
		return "Strong Match"
	case ConfidencePossible:
		return "Possible Match"
	default:
		return "Weak Match"
	}
}

// SemanticResult is a scored item returned by a semantic query.
type SemanticResult struct {
	Item       *Item
	Score      float64
	Confidence Confidence
}

// Keyword is a representative word for a topic with its weight.
type Keyword struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// TopicSummary lists a topic's members and, for real topics, its keywords.
type TopicSummary struct {
	ItemIDs  []string  `json:"news_ids"`
	Keywords []Keyword `json:"keywords,omitempty"`
}

// TopicInfo describes a single topic.
type TopicInfo struct {
	TopicID   int       `json:"topic_id"`
	ItemCount int       `json:"news_count"`
	ItemIDs   []string  `json:"news_ids"`
	Keywords  []Keyword `json:"keywords"`
}
