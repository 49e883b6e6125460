package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReviewStatus tracks where a word sits in the learning lifecycle
type ReviewStatus int

const (
	// StatusNew means the word has never been reviewed
	StatusNew ReviewStatus = 0
	// StatusLearning means the last review failed and the word restarts the ladder
	StatusLearning ReviewStatus = 1
	// StatusReviewing means the word is in the regular review cycle
	StatusReviewing ReviewStatus = 2
	// StatusMastered means the word passed the mastery policy
	StatusMastered ReviewStatus = 3
)

// String returns a human-readable status name
func (s ReviewStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusLearning:
		return "learning"
	case StatusReviewing:
		return "reviewing"
	case StatusMastered:
		return "mastered"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// DefaultEaseFactor is the ease factor assigned to a word on first exposure
const DefaultEaseFactor = 2.5

// ReviewLogEntry is one append-only history record of a single review.
// The persisted shape must round-trip exactly.
type ReviewLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Quality    int       `json:"quality"`
	Interval   int       `json:"interval"`
	EaseFactor float64   `json:"ease_factor"`
}

// ReviewHistory is the ordered, append-only review log stored as a JSON column
type ReviewHistory []ReviewLogEntry

// Value implements driver.Valuer so sqlx can write the history as JSON
func (h ReviewHistory) Value() (driver.Value, error) {
	if h == nil {
		h = ReviewHistory{}
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal review history: %v", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner so sqlx can read the history JSON column
func (h *ReviewHistory) Scan(src interface{}) error {
	if src == nil {
		*h = ReviewHistory{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported review history source type %T", src)
	}
	if len(data) == 0 {
		*h = ReviewHistory{}
		return nil
	}
	return json.Unmarshal(data, h)
}

// UserProgress tracks one user's learning state for a specific word.
// One row per (user, word); mutated only through the spaced repetition engine.
type UserProgress struct {
	ID           int64         `json:"id" db:"id"`
	UserID       int64         `json:"user_id" db:"user_id"`
	WordID       int64         `json:"word_id" db:"word_id"`
	Status       ReviewStatus  `json:"status" db:"status"`
	EaseFactor   float64       `json:"ease_factor" db:"ease_factor"`     // SM-2 ease factor, floor 1.3
	Interval     int           `json:"interval" db:"interval"`           // Current interval in days
	Repetitions  int           `json:"repetitions" db:"repetitions"`     // Consecutive non-failing reviews
	NextReviewAt time.Time     `json:"next_review_at" db:"next_review_at"`
	LastReviewAt *time.Time    `json:"last_review_at" db:"last_review_at"` // nil until first review
	TotalReviews int           `json:"total_reviews" db:"total_reviews"`
	CorrectCount int           `json:"correct_count" db:"correct_count"`
	History      ReviewHistory `json:"history" db:"history"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// NewUserProgress returns the default state for a word the user has never reviewed
func NewUserProgress(userID, wordID int64) UserProgress {
	return UserProgress{
		UserID:     userID,
		WordID:     wordID,
		Status:     StatusNew,
		EaseFactor: DefaultEaseFactor,
		Interval:   0,
		History:    ReviewHistory{},
	}
}
