package store

import (
	"strings"
	"time"
)

// Status represents an item's position in the enrichment state machine.
type Status string

const (
	StatusPending          Status = "pending"
	StatusProcessed        Status = "processed"
	StatusURLFetchFailed   Status = "url_fetch_failed"
	StatusProcessingFailed Status = "processing_failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessed,
	StatusURLFetchFailed,
	StatusProcessingFailed,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// IsRetryable reports whether a status leaves the item eligible for
// re-selection by the failure resampler.
func (s Status) IsRetryable() bool {
	return s == StatusURLFetchFailed || s == StatusProcessingFailed
}

func retryableStatuses() []Status {
	var retryable []Status
	for _, status := range allStatuses {
		if status.IsRetryable() {
			retryable = append(retryable, status)
		}
	}
	return retryable
}

// Category classifies enriched content.
type Category string

const (
	CategoryNews       Category = "news"
	CategoryDiscussion Category = "discussion"
	CategoryTutorial   Category = "tutorial"
	CategoryQuestion   Category = "question"
	CategoryTool       Category = "tool"
	CategoryResearch   Category = "research"
	CategoryShowcase   Category = "showcase"
	CategoryOther      Category = "other"
)

var allCategories = []Category{
	CategoryNews,
	CategoryDiscussion,
	CategoryTutorial,
	CategoryQuestion,
	CategoryTool,
	CategoryResearch,
	CategoryShowcase,
	CategoryOther,
}

var categorySet = func() map[Category]struct{} {
	set := make(map[Category]struct{}, len(allCategories))
	for _, category := range allCategories {
		set[category] = struct{}{}
	}
	return set
}()

// categoryAliases maps common generation variants onto known categories.
var categoryAliases = map[string]Category{
	"announcement": CategoryNews,
	"update":       CategoryNews,
	"guide":        CategoryTutorial,
	"howto":        CategoryTutorial,
	"help":         CategoryQuestion,
	"demo":         CategoryShowcase,
	"project":      CategoryShowcase,
	"paper":        CategoryResearch,
	"study":        CategoryResearch,
}

// AllCategories returns the ordered list of known categories.
func AllCategories() []Category {
	cp := make([]Category, len(allCategories))
	copy(cp, allCategories)
	return cp
}

// NormalizeCategory maps free-form category text onto the known enum, falling
// back to CategoryOther for anything unrecognized.
func NormalizeCategory(value string) Category {
	normalized := Category(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := categorySet[normalized]; ok {
		return normalized
	}
	if mapped, ok := categoryAliases[string(normalized)]; ok {
		return mapped
	}
	return CategoryOther
}

// Item represents one ingested submission and its derived enrichment and
// delivery state, persisted in SQLite.
//
// Summary, Category, and Keywords are set together, and only when Status is
// StatusProcessed.
type Item struct {
	ID               int64
	ExternalID       string
	Community        string
	Title            string
	Body             string
	URL              string
	Permalink        string
	Thumbnail        string
	Author           string
	Pinned           bool
	Sensitive        bool
	SelfPost         bool
	Score            int64
	CommentCount     int64
	UpvoteRatio      float64
	Summary          string
	Category         Category
	Keywords         []string
	Status           Status
	URLFetchAttempts int
	ProcessedAt      *time.Time
	Pushed           bool
	PushedAt         *time.Time
	CreatedAt        time.Time
	InsertedAt       time.Time
	UpdatedAt        time.Time
}

// HasExternalLink reports whether the item points at content outside the
// source platform that enrichment should fetch.
func (i *Item) HasExternalLink() bool {
	if i.SelfPost {
		return false
	}
	return strings.TrimSpace(i.URL) != ""
}

// Enrichment carries the validated output of the generation capability.
type Enrichment struct {
	Summary  string
	Category Category
	Keywords []string
}

// RecipientStatus tracks a delivery recipient's standing.
type RecipientStatus string

const (
	RecipientActive  RecipientStatus = "active"
	RecipientBlocked RecipientStatus = "blocked"
	RecipientDeleted RecipientStatus = "deleted"
)

// Recipient is an addressable consumer of broadcast output. The ID is the
// transport's chat identifier.
type Recipient struct {
	ID                int64
	DisplayName       string
	Status            RecipientStatus
	InteractionCount  int64
	LastInteractionAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one entry in a recipient's bounded conversation history.
type ConversationTurn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// DigestStatus tracks a digest record through composition and delivery.
type DigestStatus string

const (
	DigestPending   DigestStatus = "pending"
	DigestCompleted DigestStatus = "completed"
	DigestFailed    DigestStatus = "failed"
)

// DigestRecord is one composed digest, deduplicated per target date.
type DigestRecord struct {
	ID         string
	DigestDate string
	ItemCount  int
	Status     DigestStatus
	CreatedAt  time.Time
}

// StatusCounts aggregates item counts per lifecycle state.
type StatusCounts struct {
	Total            int
	Pending          int
	Processed        int
	URLFetchFailed   int
	ProcessingFailed int
}

// Count returns the tally for one status.
func (c StatusCounts) Count(status Status) int {
	switch status {
	case StatusPending:
		return c.Pending
	case StatusProcessed:
		return c.Processed
	case StatusURLFetchFailed:
		return c.URLFetchFailed
	case StatusProcessingFailed:
		return c.ProcessingFailed
	default:
		return 0
	}
}
