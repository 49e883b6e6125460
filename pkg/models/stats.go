package models

// StudyStats aggregates a user's overall learning progress
type StudyStats struct {
	TotalWords   int     `json:"total_words" db:"total_words"`
	NewCount     int     `json:"new" db:"new_count"`
	Learning     int     `json:"learning" db:"learning"` // learning + reviewing
	Mastered     int     `json:"mastered" db:"mastered"`
	DueCount     int     `json:"due" db:"due_count"`
	AccuracyRate float64 `json:"accuracy_rate" db:"accuracy_rate"` // correct / total reviews over all words
}
