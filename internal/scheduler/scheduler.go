package scheduler

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/example/lexibot/internal/database"
	"github.com/go-co-op/gocron"
)

// Default window during which reminders may be sent
const (
	DefaultNotificationStartHour = 7
	DefaultNotificationEndHour   = 22
)

// Notifier delivers a due-review reminder to a Telegram user
type Notifier interface {
	SendReminders(telegramID int64, count int) error
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
}

// New creates a new scheduler instance
func New(notifier Notifier) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		notifier:  notifier,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() {
	// Hourly check for users whose reminder hour has arrived
	s.scheduler.Every(1).Hour().Do(s.checkAndSendReminders)
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// checkAndSendReminders notifies every user whose preferred hour matches the
// current one and who has reviews waiting
func (s *Scheduler) checkAndSendReminders() {
	now := time.Now()
	currentHour := now.Hour()

	startHour := envHourOrDefault("NOTIFICATION_START_HOUR", DefaultNotificationStartHour)
	endHour := envHourOrDefault("NOTIFICATION_END_HOUR", DefaultNotificationEndHour)
	if currentHour < startHour || currentHour > endHour {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	userRepo := database.NewUserRepository()
	progressRepo := database.NewUserProgressRepository()

	users, err := userRepo.GetUsersForNotification(ctx, currentHour)
	if err != nil {
		log.Printf("Error getting users for notification: %v", err)
		return
	}

	for _, user := range users {
		count, err := progressRepo.CountDue(ctx, user.ID, now)
		if err != nil {
			log.Printf("Error counting due words for user %d: %v", user.ID, err)
			continue
		}
		if count == 0 {
			continue
		}
		if err := s.notifier.SendReminders(user.TelegramID, count); err != nil {
			log.Printf("Error sending reminder to user %d: %v", user.ID, err)
		}
	}
}

// RunManualCheck forces a reminder check for a specific user
func (s *Scheduler) RunManualCheck(ctx context.Context, userID, telegramID int64) error {
	count, err := database.NewUserProgressRepository().CountDue(ctx, userID, time.Now())
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	return s.notifier.SendReminders(telegramID, count)
}

func envHourOrDefault(name string, def int) int {
	if raw := os.Getenv(name); raw != "" {
		if h, err := strconv.Atoi(raw); err == nil && h >= 0 && h <= 23 {
			return h
		}
	}
	return def
}
