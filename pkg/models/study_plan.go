package models

import "time"

// StudyPlan configures how many words a user studies per day from one book.
// A user has at most one active plan at a time; daily_new = 0 still allows
// review-only sessions.
type StudyPlan struct {
	ID          int64      `json:"id" db:"id"`
	UserID      int64      `json:"user_id" db:"user_id"`
	BookID      int64      `json:"book_id" db:"book_id"`
	Name        string     `json:"name" db:"name"`
	DailyNew    int        `json:"daily_new" db:"daily_new"`
	DailyReview int        `json:"daily_review" db:"daily_review"`
	StartDate   time.Time  `json:"start_date" db:"start_date"`
	TargetDate  *time.Time `json:"target_date" db:"target_date"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}
