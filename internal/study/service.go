package study

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/lexibot/internal/session"
	"github.com/example/lexibot/internal/spaced_repetition"
	"github.com/example/lexibot/pkg/models"
	"github.com/google/uuid"
)

// ProgressStore is the record store for (user, word) learning state.
// Submit must serialize concurrent writes per record so two submissions can
// never double-apply one review.
type ProgressStore interface {
	GetByUserAndWord(ctx context.Context, userID, wordID int64) (*models.UserProgress, error)
	GetAllForUser(ctx context.Context, userID int64) ([]models.UserProgress, error)
	Submit(ctx context.Context, progress *models.UserProgress) error
	GetStudyStats(ctx context.Context, userID int64, now time.Time) (*models.StudyStats, error)
}

// WordCatalog exposes the shared word bank
type WordCatalog interface {
	GetByID(ctx context.Context, id int64) (*models.Word, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.Word, error)
	GetNewCandidates(ctx context.Context, bookID int64, excludeWordIDs []int64, limit int) ([]models.Word, error)
}

// PlanStore resolves a user's active study plan.
// GetActivePlan returns models.ErrNoActivePlan when the user has none.
type PlanStore interface {
	GetActivePlan(ctx context.Context, userID int64) (*models.StudyPlan, error)
}

// Service implements the study session API: assembling today's session and
// accepting quality submissions.
type Service struct {
	progress ProgressStore
	words    WordCatalog
	plans    PlanStore
	engine   *spaced_repetition.SM2
	clock    func() time.Time
}

// New wires the stores with the default engine and the real clock
func New(progress ProgressStore, words WordCatalog, plans PlanStore) *Service {
	return &Service{
		progress: progress,
		words:    words,
		plans:    plans,
		engine:   spaced_repetition.New(),
		clock:    time.Now,
	}
}

// GetSession assembles today's study session for a user: due reviews first,
// then new words from the active plan's book. A user without an active plan
// gets a review-only session; no due words and no plan yields an empty
// session, which the caller surfaces as "nothing to study".
func (s *Service) GetSession(ctx context.Context, userID int64, limit int) (*models.StudySession, error) {
	now := s.clock()

	records, err := s.progress.GetAllForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress records: %w", err)
	}

	plan, err := s.plans.GetActivePlan(ctx, userID)
	if err != nil {
		if !errors.Is(err, models.ErrNoActivePlan) {
			return nil, fmt.Errorf("failed to load study plan: %w", err)
		}
		plan = nil
	}

	var candidates []models.Word
	if plan != nil && plan.DailyNew > 0 && limit > 0 {
		exclude := make([]int64, 0, len(records))
		for _, r := range records {
			exclude = append(exclude, r.WordID)
		}
		fetch := plan.DailyNew
		if limit < fetch {
			fetch = limit
		}
		candidates, err = s.words.GetNewCandidates(ctx, plan.BookID, exclude, fetch)
		if err != nil {
			return nil, fmt.Errorf("failed to load new word candidates: %w", err)
		}
	}

	result := session.Assemble(records, candidates, plan, limit, now)

	words, err := s.resolveWords(ctx, result.Items, candidates)
	if err != nil {
		return nil, err
	}

	out := &models.StudySession{
		SessionID: uuid.NewString(),
		Words:     make([]models.SessionWord, 0, len(result.Items)),
		Stats:     result.Stats,
	}
	for _, item := range result.Items {
		w, ok := words[item.WordID]
		if !ok {
			// Word was deleted from the catalog after the snapshot; drop the slot
			continue
		}
		out.Words = append(out.Words, models.SessionWord{Word: w, Progress: item.Progress})
	}
	return out, nil
}

// SubmitReview applies one quality score to a word and persists the result.
// The first-ever review of a word starts from the default NEW state; the
// engine itself always receives an existing record value.
func (s *Service) SubmitReview(ctx context.Context, userID, wordID int64, quality spaced_repetition.Quality) (*models.SubmitResult, error) {
	// Validated again at the engine; rejecting here keeps storage untouched
	if !quality.Valid() {
		return nil, spaced_repetition.ErrInvalidQuality
	}

	if _, err := s.words.GetByID(ctx, wordID); err != nil {
		return nil, fmt.Errorf("failed to resolve word %d: %w", wordID, err)
	}

	current := models.NewUserProgress(userID, wordID)
	stored, err := s.progress.GetByUserAndWord(ctx, userID, wordID)
	if err != nil && !errors.Is(err, models.ErrProgressNotFound) {
		return nil, fmt.Errorf("failed to load progress record: %w", err)
	}
	if stored != nil {
		current = *stored
	}

	updated, err := s.engine.Review(current, quality, s.clock())
	if err != nil {
		return nil, err
	}

	if err := s.progress.Submit(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to persist review: %w", err)
	}

	return &models.SubmitResult{
		NextReviewAt: updated.NextReviewAt,
		Interval:     updated.Interval,
		EaseFactor:   updated.EaseFactor,
		Status:       updated.Status,
	}, nil
}

// GetStats reports the user's aggregate progress
func (s *Service) GetStats(ctx context.Context, userID int64) (*models.StudyStats, error) {
	stats, err := s.progress.GetStudyStats(ctx, userID, s.clock())
	if err != nil {
		return nil, fmt.Errorf("failed to load study stats: %w", err)
	}
	return stats, nil
}

// resolveWords fetches catalog entries for every session item, reusing the
// candidate structs already in hand
func (s *Service) resolveWords(ctx context.Context, items []session.Item, candidates []models.Word) (map[int64]models.Word, error) {
	words := make(map[int64]models.Word, len(items))
	for _, c := range candidates {
		words[c.ID] = c
	}

	var missing []int64
	for _, item := range items {
		if _, ok := words[item.WordID]; !ok {
			missing = append(missing, item.WordID)
		}
	}
	if len(missing) == 0 {
		return words, nil
	}

	fetched, err := s.words.GetByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("failed to load session words: %w", err)
	}
	for _, w := range fetched {
		words[w.ID] = w
	}
	return words, nil
}
