package models

import "time"

// SessionWord pairs a catalog word with the user's progress for one session slot.
// For new words Progress is a synthesized placeholder that has not been persisted.
type SessionWord struct {
	Word     Word         `json:"word"`
	Progress UserProgress `json:"progress"`
}

// SessionStats summarises one assembled study session
type SessionStats struct {
	TotalDue    int `json:"total_due"`    // all due words, not just the ones included
	ReviewCount int `json:"review_count"` // due words included in this session
	NewCount    int `json:"new_count"`    // new words included in this session
}

// StudySession is one ordered batch of words presented to a user:
// review words first, then new words.
type StudySession struct {
	SessionID string        `json:"session_id"`
	Words     []SessionWord `json:"words"`
	Stats     SessionStats  `json:"stats"`
}

// SubmitResult is returned to the client after a review submission
type SubmitResult struct {
	NextReviewAt time.Time    `json:"next_review_at"`
	Interval     int          `json:"interval"`
	EaseFactor   float64      `json:"ease_factor"`
	Status       ReviewStatus `json:"status"`
}
