package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/lexibot/pkg/models"
)

// UserRepository handles database operations for users
type UserRepository struct{}

// NewUserRepository creates a new repository instance
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// GetByTelegramID returns a user by their Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	query := DB.Rebind("SELECT * FROM users WHERE telegram_id = ?")
	err := DB.GetContext(ctx, &user, query, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by telegram ID: %v", err)
	}
	return &user, nil
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := DB.Rebind(`
		INSERT INTO users (telegram_id, username, first_name, last_name, is_admin, notification_enabled, notification_hour)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if DB.DriverName() == "postgres" {
		return DB.GetContext(ctx, &user.ID, query+" RETURNING id",
			user.TelegramID, user.Username, user.FirstName, user.LastName,
			user.IsAdmin, user.NotificationEnabled, user.NotificationHour,
		)
	}
	result, err := DB.ExecContext(ctx, query,
		user.TelegramID, user.Username, user.FirstName, user.LastName,
		user.IsAdmin, user.NotificationEnabled, user.NotificationHour,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %v", err)
	}
	user.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted user id: %v", err)
	}
	return nil
}

// UpdateNotificationSettings stores the user's reminder preferences
func (r *UserRepository) UpdateNotificationSettings(ctx context.Context, userID int64, enabled bool, hour int) error {
	query := DB.Rebind(`
		UPDATE users SET notification_enabled = ?, notification_hour = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`)
	if _, err := DB.ExecContext(ctx, query, enabled, hour, userID); err != nil {
		return fmt.Errorf("failed to update notification settings: %v", err)
	}
	return nil
}

// GetUsersForNotification returns users who want a reminder at the given hour
func (r *UserRepository) GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	var users []models.User
	query := DB.Rebind("SELECT * FROM users WHERE notification_enabled = ? AND notification_hour = ?")
	if err := DB.SelectContext(ctx, &users, query, true, hour); err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %v", err)
	}
	return users, nil
}
