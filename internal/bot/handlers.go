package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/example/lexibot/internal/excel"
	"github.com/example/lexibot/internal/spaced_repetition"
	"github.com/example/lexibot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data prefixes
const (
	callbackReveal   = "reveal"
	callbackQuality  = "quality"
	callbackPlanBook = "plan_book"
	callbackMainMenu = "main_menu"
)

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	if message.From == nil || message.Chat == nil {
		return fmt.Errorf("invalid message: required fields are missing")
	}

	var err error
	switch message.Command() {
	case "start":
		err = b.handleStart(ctx, message)
	case "help":
		err = b.handleHelp(message)
	case "study":
		err = b.handleStudy(ctx, message)
	case "stats":
		err = b.handleStats(ctx, message)
	case "plan":
		err = b.handlePlan(ctx, message)
	case "notify":
		err = b.handleNotify(ctx, message)
	case "time":
		err = b.handleTime(ctx, message)
	case "import":
		err = b.handleImport(ctx, message)
	default:
		err = b.handleUnknownCommand(message)
	}
	return err
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, message.From); err != nil {
		return err
	}

	text := "👋 Welcome to Lexibot!\n\n" +
		"I help you learn vocabulary with spaced repetition.\n\n" +
		"🔹 How it works:\n" +
		"1. Pick a word book with /plan\n" +
		"2. Study due and new words with /study\n" +
		"3. Grade your recall after each word\n" +
		"4. I schedule the next review for you"

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "📖 Study now", CallbackData: "start_study"}},
		{{Text: "📊 My stats", CallbackData: "show_stats"}},
	})
	return b.sendMessage(msg)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) error {
	text := "📖 Commands\n\n" +
		"/study - Start today's study session\n" +
		"/stats - Show your learning progress\n" +
		"/plan - Choose a word book and daily targets\n" +
		"/notify on|off - Toggle review reminders\n" +
		"/time <hour> - Set the reminder hour (0-23)\n\n" +
		"Grades during a session:\n" +
		"❌ Again - no recall, the word restarts\n" +
		"😓 Hard - vague memory\n" +
		"🙂 Good - recalled with hesitation\n" +
		"😎 Easy - instant recall"

	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, text))
}

func (b *Bot) handleStudy(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}

	sess, err := b.service.GetSession(ctx, user.ID, b.config.SessionLimit)
	if err != nil {
		return fmt.Errorf("failed to assemble session: %w", err)
	}

	if len(sess.Words) == 0 {
		text := "🎉 Nothing to study right now!\n\n" +
			"No words are due for review. Add a study plan with /plan to learn new words."
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, text))
	}

	b.setSession(user.ID, &activeSession{Session: sess})

	intro := fmt.Sprintf("📚 Session ready: %d to review, %d new (due backlog: %d).",
		sess.Stats.ReviewCount, sess.Stats.NewCount, sess.Stats.TotalDue)
	if err := b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, intro)); err != nil {
		return err
	}
	return b.sendCurrentWord(message.Chat.ID, user.ID)
}

// sendCurrentWord presents the front side of the current session card
func (b *Bot) sendCurrentWord(chatID, userID int64) error {
	s := b.session(userID)
	if s == nil || s.CurrentIdx >= len(s.Session.Words) {
		return nil
	}

	entry := s.Session.Words[s.CurrentIdx]
	badge := "🔁"
	if entry.Progress.Status == models.StatusNew {
		badge = "🆕"
	}

	text := fmt.Sprintf("%s Word %d/%d\n\n*%s*", badge, s.CurrentIdx+1, len(s.Session.Words), entry.Word.Spelling)
	if entry.Word.Phonetic != "" {
		text += fmt.Sprintf("\n/%s/", entry.Word.Phonetic)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = createKeyboard([][]MenuButton{
		{{Text: "💡 Show answer", CallbackData: fmt.Sprintf("%s:%d", callbackReveal, entry.Word.ID)}},
	})
	return b.sendMessage(msg)
}

// HandleCallback handles inline keyboard presses
func (b *Bot) HandleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	// Acknowledge first so the client stops the spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		return fmt.Errorf("failed to answer callback: %v", err)
	}

	user, err := b.ensureUser(ctx, query.From)
	if err != nil {
		return err
	}
	chatID := query.Message.Chat.ID

	parts := strings.Split(query.Data, ":")
	switch parts[0] {
	case "start_study":
		return b.handleStudy(ctx, &tgbotapi.Message{From: query.From, Chat: query.Message.Chat})
	case "show_stats":
		return b.sendStats(ctx, chatID, user.ID)
	case callbackMainMenu:
		return b.handleStart(ctx, &tgbotapi.Message{From: query.From, Chat: query.Message.Chat})
	case callbackReveal:
		return b.revealAnswer(chatID, query.Message.MessageID, user.ID)
	case callbackQuality:
		if len(parts) != 3 {
			return fmt.Errorf("malformed quality callback: %q", query.Data)
		}
		wordID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return fmt.Errorf("malformed word id in callback: %q", query.Data)
		}
		grade, err := strconv.Atoi(parts[2])
		if err != nil {
			return fmt.Errorf("malformed grade in callback: %q", query.Data)
		}
		return b.submitGrade(ctx, chatID, user.ID, wordID, spaced_repetition.Quality(grade))
	case callbackPlanBook:
		if len(parts) != 2 {
			return fmt.Errorf("malformed plan callback: %q", query.Data)
		}
		bookID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return fmt.Errorf("malformed book id in callback: %q", query.Data)
		}
		return b.activatePlan(ctx, chatID, user.ID, bookID)
	}
	return nil
}

// revealAnswer flips the current card and offers the quality grades
func (b *Bot) revealAnswer(chatID int64, messageID int, userID int64) error {
	s := b.session(userID)
	if s == nil || s.CurrentIdx >= len(s.Session.Words) {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "No active session. Send /study to start one."))
	}
	entry := s.Session.Words[s.CurrentIdx]

	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*", entry.Word.Spelling)
	if entry.Word.Phonetic != "" {
		fmt.Fprintf(&sb, "  /%s/", entry.Word.Phonetic)
	}
	sb.WriteString("\n\n")
	for _, def := range decodeJSONList(entry.Word.Definitions) {
		fmt.Fprintf(&sb, "• %s\n", def)
	}
	if sentences := decodeJSONList(entry.Word.Sentences); len(sentences) > 0 {
		fmt.Fprintf(&sb, "\n_%s_\n", sentences[0])
	}
	if entry.Word.Mnemonic != "" {
		fmt.Fprintf(&sb, "\n💡 %s\n", entry.Word.Mnemonic)
	}
	sb.WriteString("\nHow well did you recall it?")

	keyboard := createKeyboard([][]MenuButton{
		{
			{Text: "❌ Again", CallbackData: gradeCallback(entry.Word.ID, spaced_repetition.QualityAgain)},
			{Text: "😓 Hard", CallbackData: gradeCallback(entry.Word.ID, spaced_repetition.QualityHard)},
		},
		{
			{Text: "🙂 Good", CallbackData: gradeCallback(entry.Word.ID, spaced_repetition.QualityGood)},
			{Text: "😎 Easy", CallbackData: gradeCallback(entry.Word.ID, spaced_repetition.QualityEasy)},
		},
	})
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, sb.String(), keyboard)
	edit.ParseMode = tgbotapi.ModeMarkdown
	return b.sendMessage(edit)
}

func gradeCallback(wordID int64, q spaced_repetition.Quality) string {
	return fmt.Sprintf("%s:%d:%d", callbackQuality, wordID, int(q))
}

// submitGrade records one review and moves the session forward
func (b *Bot) submitGrade(ctx context.Context, chatID, userID, wordID int64, quality spaced_repetition.Quality) error {
	s := b.session(userID)
	if s == nil || s.CurrentIdx >= len(s.Session.Words) {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "No active session. Send /study to start one."))
	}
	if s.Session.Words[s.CurrentIdx].Word.ID != wordID {
		// Stale button from an earlier card; ignore
		return nil
	}

	result, err := b.service.SubmitReview(ctx, userID, wordID, quality)
	if err != nil {
		return fmt.Errorf("failed to submit review: %w", err)
	}

	s.Completed++
	if quality == spaced_repetition.QualityAgain {
		s.Failed++
	}
	s.CurrentIdx++

	feedback := fmt.Sprintf("Next review in %d day(s) — %s.", result.Interval, result.Status)
	if quality == spaced_repetition.QualityAgain {
		feedback = "Tomorrow again — the word restarts its ladder."
	}
	if err := b.sendMessage(tgbotapi.NewMessage(chatID, feedback)); err != nil {
		return err
	}

	if s.CurrentIdx >= len(s.Session.Words) {
		b.setSession(userID, nil)
		summary := fmt.Sprintf("✅ Session finished: %d words, %d failed.\nCome back when the next reviews are due!",
			s.Completed, s.Failed)
		msg := tgbotapi.NewMessage(chatID, summary)
		msg.ReplyMarkup = createKeyboard([][]MenuButton{
			{{Text: "📊 My stats", CallbackData: "show_stats"}, {Text: "🏠 Menu", CallbackData: callbackMainMenu}},
		})
		return b.sendMessage(msg)
	}
	return b.sendCurrentWord(chatID, userID)
}

func (b *Bot) handleStats(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}
	return b.sendStats(ctx, message.Chat.ID, user.ID)
}

func (b *Bot) sendStats(ctx context.Context, chatID, userID int64) error {
	stats, err := b.service.GetStats(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	text := fmt.Sprintf("📊 Your progress\n\n"+
		"Words tracked: %d\n"+
		"🔁 In learning: %d\n"+
		"🏆 Mastered: %d\n"+
		"⏰ Due now: %d\n"+
		"🎯 Accuracy: %.0f%%",
		stats.TotalWords, stats.Learning, stats.Mastered, stats.DueCount, stats.AccuracyRate*100)
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) handlePlan(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}

	if plan, err := b.planRepo.GetActivePlan(ctx, user.ID); err == nil {
		text := fmt.Sprintf("📋 Active plan: %s\nNew words per day: %d\nReviews per day: %d\n\nPick another book to switch plans:",
			plan.Name, plan.DailyNew, plan.DailyReview)
		return b.sendBookChoice(ctx, message.Chat.ID, text)
	}
	return b.sendBookChoice(ctx, message.Chat.ID, "📋 No active plan. Pick a word book to start:")
}

func (b *Bot) sendBookChoice(ctx context.Context, chatID int64, text string) error {
	books, err := b.bookRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list books: %w", err)
	}
	if len(books) == 0 {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "No word books available yet. An admin can add one with /import."))
	}

	var rows [][]MenuButton
	for _, book := range books {
		if book.Status != models.BookStatusReady {
			continue
		}
		label := fmt.Sprintf("%s (%d words)", book.Title, book.TotalWords)
		rows = append(rows, []MenuButton{{Text: label, CallbackData: fmt.Sprintf("%s:%d", callbackPlanBook, book.ID)}})
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = createKeyboard(rows)
	return b.sendMessage(msg)
}

func (b *Bot) activatePlan(ctx context.Context, chatID, userID, bookID int64) error {
	book, err := b.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		return fmt.Errorf("failed to get book: %w", err)
	}

	plan := &models.StudyPlan{
		UserID:      userID,
		BookID:      book.ID,
		Name:        book.Title,
		DailyNew:    b.config.DefaultDailyNew,
		DailyReview: b.config.DefaultDailyReview,
		StartDate:   time.Now(),
	}
	if err := b.planRepo.Create(ctx, plan); err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}

	text := fmt.Sprintf("✅ Plan started: %s\nNew words per day: %d, reviews per day: %d.\n\nSend /study to begin!",
		plan.Name, plan.DailyNew, plan.DailyReview)
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) handleNotify(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}

	arg := strings.TrimSpace(message.CommandArguments())
	var enabled bool
	switch arg {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "Usage: /notify on|off"))
	}

	if err := b.userRepo.UpdateNotificationSettings(ctx, user.ID, enabled, user.NotificationHour); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "🔔 Reminders "+state+"."))
}

func (b *Bot) handleTime(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}

	hour, err := strconv.Atoi(strings.TrimSpace(message.CommandArguments()))
	if err != nil || hour < 0 || hour > 23 {
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "Usage: /time <hour between 0 and 23>"))
	}

	if err := b.userRepo.UpdateNotificationSettings(ctx, user.ID, user.NotificationEnabled, hour); err != nil {
		return err
	}
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf("⏰ Reminder hour set to %02d:00.", hour)))
}

func (b *Bot) handleImport(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}
	if !user.IsAdmin && !b.adminUserIDs[user.TelegramID] {
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "Importing word books requires admin rights."))
	}

	text := "📥 Send me an .xlsx or .csv file with the book's words.\n" +
		"Set the caption to the book title.\n\n" +
		"Expected columns: spelling, phonetic, definitions, example sentence, mnemonic, difficulty, frequency rank."
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, text))
}

// handleDocument imports an uploaded word book file (admins only)
func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, message.From)
	if err != nil {
		return err
	}
	if !user.IsAdmin && !b.adminUserIDs[user.TelegramID] {
		return nil
	}

	doc := message.Document
	title := strings.TrimSpace(message.Caption)
	if title == "" {
		title = strings.TrimSuffix(doc.FileName, filepath.Ext(doc.FileName))
	}

	path, err := b.downloadDocument(doc)
	if err != nil {
		return fmt.Errorf("failed to download document: %w", err)
	}
	defer os.Remove(path)

	config := excel.DefaultImportConfig()
	config.FilePath = path
	config.BookTitle = title

	result, err := excel.ImportBook(ctx, config)
	if err != nil {
		return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "Import failed: "+err.Error()))
	}

	text := fmt.Sprintf("📦 Imported %q: %d created, %d updated, %d skipped (of %d rows).",
		title, result.Created, result.Updated, result.Skipped, result.TotalProcessed)
	if len(result.Errors) > 0 {
		text += fmt.Sprintf("\n⚠️ %d rows had errors, first: %s", len(result.Errors), result.Errors[0])
	}
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, text))
}

func (b *Bot) downloadDocument(doc *tgbotapi.Document) (string, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: doc.FileID})
	if err != nil {
		return "", fmt.Errorf("failed to get file info: %v", err)
	}

	resp, err := http.Get(file.Link(b.api.Token))
	if err != nil {
		return "", fmt.Errorf("failed to fetch file: %v", err)
	}
	defer resp.Body.Close()

	out, err := os.CreateTemp("", "import-*"+filepath.Ext(doc.FileName))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %v", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to save file: %v", err)
	}
	return out.Name(), nil
}

func (b *Bot) handleUnknownCommand(message *tgbotapi.Message) error {
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, "Unknown command. Send /help for the command list."))
}

// decodeJSONList renders a JSON string array stored in the catalog; a plain
// string that isn't valid JSON is returned as a single entry
func decodeJSONList(raw string) []string {
	if raw == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []string{raw}
	}
	return items
}
