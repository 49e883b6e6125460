package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/lexibot/pkg/models"
)

// StudyPlanRepository handles database operations for study plans
type StudyPlanRepository struct{}

// NewStudyPlanRepository creates a new repository instance
func NewStudyPlanRepository() *StudyPlanRepository {
	return &StudyPlanRepository{}
}

// GetActivePlan returns the user's active study plan, or
// models.ErrNoActivePlan when there is none
func (r *StudyPlanRepository) GetActivePlan(ctx context.Context, userID int64) (*models.StudyPlan, error) {
	var plan models.StudyPlan
	query := DB.Rebind("SELECT * FROM study_plans WHERE user_id = ? AND is_active = ? ORDER BY id DESC LIMIT 1")
	err := DB.GetContext(ctx, &plan, query, userID, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNoActivePlan
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active study plan: %v", err)
	}
	return &plan, nil
}

// ListByUser returns all plans of a user, newest first
func (r *StudyPlanRepository) ListByUser(ctx context.Context, userID int64) ([]models.StudyPlan, error) {
	var plans []models.StudyPlan
	query := DB.Rebind("SELECT * FROM study_plans WHERE user_id = ? ORDER BY id DESC")
	if err := DB.SelectContext(ctx, &plans, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list study plans: %v", err)
	}
	return plans, nil
}

// Create inserts a new plan and makes it the user's only active one
func (r *StudyPlanRepository) Create(ctx context.Context, plan *models.StudyPlan) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	deactivate := tx.Rebind("UPDATE study_plans SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ? AND is_active = ?")
	if _, err := tx.ExecContext(ctx, deactivate, false, plan.UserID, true); err != nil {
		return fmt.Errorf("failed to deactivate previous plans: %v", err)
	}

	plan.IsActive = true
	insert := tx.Rebind(`
		INSERT INTO study_plans (user_id, book_id, name, daily_new, daily_review, start_date, target_date, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if DB.DriverName() == "postgres" {
		err = tx.GetContext(ctx, &plan.ID, insert+" RETURNING id",
			plan.UserID, plan.BookID, plan.Name, plan.DailyNew, plan.DailyReview,
			plan.StartDate, plan.TargetDate, plan.IsActive,
		)
		if err != nil {
			return fmt.Errorf("failed to create study plan: %v", err)
		}
	} else {
		result, execErr := tx.ExecContext(ctx, insert,
			plan.UserID, plan.BookID, plan.Name, plan.DailyNew, plan.DailyReview,
			plan.StartDate, plan.TargetDate, plan.IsActive,
		)
		if execErr != nil {
			return fmt.Errorf("failed to create study plan: %v", execErr)
		}
		plan.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get inserted plan id: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit study plan: %v", err)
	}
	return nil
}

// Deactivate pauses the user's active plan
func (r *StudyPlanRepository) Deactivate(ctx context.Context, userID int64) error {
	query := DB.Rebind("UPDATE study_plans SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE user_id = ? AND is_active = ?")
	if _, err := DB.ExecContext(ctx, query, false, userID, true); err != nil {
		return fmt.Errorf("failed to deactivate study plan: %v", err)
	}
	return nil
}
