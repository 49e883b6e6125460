package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/example/lexibot/internal/database"
	"github.com/example/lexibot/internal/study"
	"github.com/example/lexibot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// activeSession tracks a user's progress through one assembled study session
type activeSession struct {
	Session    *models.StudySession
	CurrentIdx int
	Completed  int
	Failed     int
}

// Bot represents the Telegram bot application
type Bot struct {
	api          *tgbotapi.BotAPI
	service      *study.Service
	userRepo     *database.UserRepository
	bookRepo     *database.BookRepository
	planRepo     *database.StudyPlanRepository
	progressRepo *database.UserProgressRepository
	config       *BotConfig

	mu           sync.Mutex
	sessions     map[int64]*activeSession
	adminUserIDs map[int64]bool
}

// New creates a new bot instance
func New(token string) (*Bot, error) {
	if database.DB == nil {
		return nil, fmt.Errorf("database connection is not established")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %v", err)
	}

	progressRepo := database.NewUserProgressRepository()
	bot := &Bot{
		api:          api,
		service:      study.New(progressRepo, database.NewWordRepository(), database.NewStudyPlanRepository()),
		userRepo:     database.NewUserRepository(),
		bookRepo:     database.NewBookRepository(),
		planRepo:     database.NewStudyPlanRepository(),
		progressRepo: progressRepo,
		config:       DefaultConfig(),
		sessions:     make(map[int64]*activeSession),
		adminUserIDs: make(map[int64]bool),
	}

	adminIDs := os.Getenv("ADMIN_USER_IDS")
	if adminIDs != "" {
		for _, idStr := range strings.Split(adminIDs, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
			if err != nil {
				log.Printf("Warning: Invalid admin user ID: %s", idStr)
				continue
			}
			bot.adminUserIDs[id] = true
		}
	}

	return bot, nil
}

// Start begins polling for updates until the context is cancelled
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	log.Printf("Authorized on account %s", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

// Stop terminates the update loop
func (b *Bot) Stop(ctx context.Context) error {
	b.api.StopReceivingUpdates()
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.IsCommand():
		err = b.HandleCommand(ctx, update.Message)
	case update.Message != nil && update.Message.Document != nil:
		err = b.handleDocument(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = b.HandleCallback(ctx, update.CallbackQuery)
	}
	if err != nil {
		log.Printf("Error handling update: %v", err)
	}
}

// ensureUser loads the Telegram user, creating the account on first contact
func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*models.User, error) {
	user, err := b.userRepo.GetByTelegramID(ctx, from.ID)
	if err == nil {
		return user, nil
	}

	newUser := &models.User{
		TelegramID:          from.ID,
		Username:            from.UserName,
		FirstName:           from.FirstName,
		LastName:            from.LastName,
		IsAdmin:             b.adminUserIDs[from.ID],
		NotificationEnabled: true,
		NotificationHour:    9,
	}
	if err := b.userRepo.Create(ctx, newUser); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return newUser, nil
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %v", err)
	}
	return nil
}

// SendReminders notifies a user about their due review backlog. Implements
// the scheduler's Notifier interface.
func (b *Bot) SendReminders(telegramID int64, count int) error {
	text := fmt.Sprintf("⏰ You have %d words waiting for review.\nSend /study to start today's session.", count)
	return b.sendMessage(tgbotapi.NewMessage(telegramID, text))
}

func (b *Bot) session(userID int64) *activeSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[userID]
}

func (b *Bot) setSession(userID int64, s *activeSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s == nil {
		delete(b.sessions, userID)
		return
	}
	b.sessions[userID] = s
}
