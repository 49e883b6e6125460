package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/lexibot/pkg/models"
)

// UserProgressRepository handles database operations for learning records
type UserProgressRepository struct{}

// NewUserProgressRepository creates a new repository instance
func NewUserProgressRepository() *UserProgressRepository {
	return &UserProgressRepository{}
}

// GetByUserAndWord returns the learning record for a specific user and word
func (r *UserProgressRepository) GetByUserAndWord(ctx context.Context, userID, wordID int64) (*models.UserProgress, error) {
	var progress models.UserProgress
	query := DB.Rebind("SELECT * FROM user_progress WHERE user_id = ? AND word_id = ?")
	err := DB.GetContext(ctx, &progress, query, userID, wordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user progress: %v", err)
	}
	return &progress, nil
}

// GetAllForUser returns every learning record of a user
func (r *UserProgressRepository) GetAllForUser(ctx context.Context, userID int64) ([]models.UserProgress, error) {
	var progress []models.UserProgress
	query := DB.Rebind("SELECT * FROM user_progress WHERE user_id = ? ORDER BY id")
	if err := DB.SelectContext(ctx, &progress, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user progress records: %v", err)
	}
	return progress, nil
}

// CountDue returns how many non-mastered records are due at the given time
func (r *UserProgressRepository) CountDue(ctx context.Context, userID int64, now time.Time) (int, error) {
	var count int
	query := DB.Rebind(`
		SELECT COUNT(*) FROM user_progress
		WHERE user_id = ? AND status < ? AND next_review_at <= ?
	`)
	if err := DB.GetContext(ctx, &count, query, userID, models.StatusMastered, now); err != nil {
		return 0, fmt.Errorf("failed to count due words: %v", err)
	}
	return count, nil
}

// Submit upserts the outcome of one review. The read-modify-write cycle for a
// (user, word) record is serialized: postgres takes a row lock, sqlite is a
// single-writer database, so two concurrent submissions can never
// double-apply one review.
func (r *UserProgressRepository) Submit(ctx context.Context, progress *models.UserProgress) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	lookup := "SELECT id FROM user_progress WHERE user_id = ? AND word_id = ?"
	if DB.DriverName() == "postgres" {
		lookup += " FOR UPDATE"
	}

	var id int64
	err = tx.GetContext(ctx, &id, tx.Rebind(lookup), progress.UserID, progress.WordID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		insert := tx.Rebind(`
			INSERT INTO user_progress (
				user_id, word_id, status, ease_factor, interval, repetitions,
				next_review_at, last_review_at, total_reviews, correct_count, history
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if DB.DriverName() == "postgres" {
			err = tx.GetContext(ctx, &progress.ID, insert+" RETURNING id",
				progress.UserID, progress.WordID, progress.Status, progress.EaseFactor,
				progress.Interval, progress.Repetitions, progress.NextReviewAt,
				progress.LastReviewAt, progress.TotalReviews, progress.CorrectCount, progress.History,
			)
			if err != nil {
				return fmt.Errorf("failed to insert user progress: %v", err)
			}
		} else {
			result, execErr := tx.ExecContext(ctx, insert,
				progress.UserID, progress.WordID, progress.Status, progress.EaseFactor,
				progress.Interval, progress.Repetitions, progress.NextReviewAt,
				progress.LastReviewAt, progress.TotalReviews, progress.CorrectCount, progress.History,
			)
			if execErr != nil {
				return fmt.Errorf("failed to insert user progress: %v", execErr)
			}
			progress.ID, err = result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get inserted progress id: %v", err)
			}
		}

	case err != nil:
		return fmt.Errorf("failed to look up user progress: %v", err)

	default:
		progress.ID = id
		update := tx.Rebind(`
			UPDATE user_progress SET
				status = ?, ease_factor = ?, interval = ?, repetitions = ?,
				next_review_at = ?, last_review_at = ?, total_reviews = ?,
				correct_count = ?, history = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`)
		if _, err := tx.ExecContext(ctx, update,
			progress.Status, progress.EaseFactor, progress.Interval, progress.Repetitions,
			progress.NextReviewAt, progress.LastReviewAt, progress.TotalReviews,
			progress.CorrectCount, progress.History, progress.ID,
		); err != nil {
			return fmt.Errorf("failed to update user progress: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user progress: %v", err)
	}
	return nil
}

// GetStudyStats aggregates the user's progress: counts per status, the due
// backlog and the lifetime accuracy rate
func (r *UserProgressRepository) GetStudyStats(ctx context.Context, userID int64, now time.Time) (*models.StudyStats, error) {
	stats := &models.StudyStats{}

	type row struct {
		Status models.ReviewStatus `db:"status"`
		Count  int                 `db:"count"`
	}
	var rows []row
	query := DB.Rebind("SELECT status, COUNT(*) AS count FROM user_progress WHERE user_id = ? GROUP BY status")
	if err := DB.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get status counts: %v", err)
	}
	for _, r := range rows {
		stats.TotalWords += r.Count
		switch r.Status {
		case models.StatusNew:
			stats.NewCount += r.Count
		case models.StatusMastered:
			stats.Mastered += r.Count
		default:
			stats.Learning += r.Count
		}
	}

	due, err := r.CountDue(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	stats.DueCount = due

	var totals struct {
		Correct int `db:"correct"`
		Reviews int `db:"reviews"`
	}
	query = DB.Rebind(`
		SELECT COALESCE(SUM(correct_count), 0) AS correct, COALESCE(SUM(total_reviews), 0) AS reviews
		FROM user_progress WHERE user_id = ?
	`)
	if err := DB.GetContext(ctx, &totals, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get review totals: %v", err)
	}
	if totals.Reviews > 0 {
		stats.AccuracyRate = float64(totals.Correct) / float64(totals.Reviews)
	}
	return stats, nil
}
