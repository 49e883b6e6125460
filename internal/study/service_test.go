package study

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/example/lexibot/internal/spaced_repetition"
	"github.com/example/lexibot/pkg/models"
)

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeProgressStore struct {
	mu      sync.RWMutex
	seq     int64
	items   map[string]*models.UserProgress
	submits int
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{items: make(map[string]*models.UserProgress)}
}

func progressKey(userID, wordID int64) string {
	return fmt.Sprintf("%d:%d", userID, wordID)
}

func (f *fakeProgressStore) put(p models.UserProgress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	p.ID = f.seq
	f.items[progressKey(p.UserID, p.WordID)] = &p
}

func (f *fakeProgressStore) GetByUserAndWord(ctx context.Context, userID, wordID int64) (*models.UserProgress, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.items[progressKey(userID, wordID)]
	if !ok {
		return nil, models.ErrProgressNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProgressStore) GetAllForUser(ctx context.Context, userID int64) ([]models.UserProgress, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []models.UserProgress
	for _, p := range f.items {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProgressStore) Submit(ctx context.Context, progress *models.UserProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	key := progressKey(progress.UserID, progress.WordID)
	if existing, ok := f.items[key]; ok {
		progress.ID = existing.ID
	} else {
		f.seq++
		progress.ID = f.seq
	}
	cp := *progress
	f.items[key] = &cp
	return nil
}

func (f *fakeProgressStore) GetStudyStats(ctx context.Context, userID int64, now time.Time) (*models.StudyStats, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	stats := &models.StudyStats{}
	var correct, total int
	for _, p := range f.items {
		if p.UserID != userID {
			continue
		}
		stats.TotalWords++
		switch p.Status {
		case models.StatusMastered:
			stats.Mastered++
		case models.StatusNew:
			stats.NewCount++
		default:
			stats.Learning++
		}
		if p.Status != models.StatusMastered && !p.NextReviewAt.After(now) {
			stats.DueCount++
		}
		correct += p.CorrectCount
		total += p.TotalReviews
	}
	if total > 0 {
		stats.AccuracyRate = float64(correct) / float64(total)
	}
	return stats, nil
}

type fakeWordCatalog struct {
	words map[int64]models.Word
}

func newFakeWordCatalog(words ...models.Word) *fakeWordCatalog {
	f := &fakeWordCatalog{words: make(map[int64]models.Word)}
	for _, w := range words {
		f.words[w.ID] = w
	}
	return f
}

func (f *fakeWordCatalog) GetByID(ctx context.Context, id int64) (*models.Word, error) {
	w, ok := f.words[id]
	if !ok {
		return nil, models.ErrWordNotFound
	}
	return &w, nil
}

func (f *fakeWordCatalog) GetByIDs(ctx context.Context, ids []int64) ([]models.Word, error) {
	var out []models.Word
	for _, id := range ids {
		if w, ok := f.words[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWordCatalog) GetNewCandidates(ctx context.Context, bookID int64, excludeWordIDs []int64, limit int) ([]models.Word, error) {
	excluded := make(map[int64]bool, len(excludeWordIDs))
	for _, id := range excludeWordIDs {
		excluded[id] = true
	}
	var out []models.Word
	for _, w := range f.words {
		if w.BookID == bookID && !excluded[w.ID] {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FrequencyRank < out[j].FrequencyRank })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakePlanStore struct {
	plan *models.StudyPlan
}

func (f *fakePlanStore) GetActivePlan(ctx context.Context, userID int64) (*models.StudyPlan, error) {
	if f.plan == nil || f.plan.UserID != userID {
		return nil, models.ErrNoActivePlan
	}
	cp := *f.plan
	return &cp, nil
}

func newTestService(progress *fakeProgressStore, words *fakeWordCatalog, plans *fakePlanStore) *Service {
	svc := New(progress, words, plans)
	svc.clock = func() time.Time { return testNow }
	return svc
}

func catalogWord(id, bookID int64, spelling string, rank int) models.Word {
	return models.Word{ID: id, BookID: bookID, Spelling: spelling, FrequencyRank: rank}
}

func TestGetSessionMixesReviewAndNew(t *testing.T) {
	progress := newFakeProgressStore()
	due := models.UserProgress{
		UserID: 1, WordID: 11, Status: models.StatusReviewing,
		EaseFactor: 2.5, Interval: 6,
		NextReviewAt: testNow.AddDate(0, 0, -2),
	}
	progress.put(due)

	words := newFakeWordCatalog(
		catalogWord(11, 10, "abandon", 50),
		catalogWord(12, 10, "ability", 10),
		catalogWord(13, 10, "able", 20),
	)
	plans := &fakePlanStore{plan: &models.StudyPlan{ID: 1, UserID: 1, BookID: 10, DailyNew: 5, DailyReview: 100, IsActive: true}}

	svc := newTestService(progress, words, plans)
	got, err := svc.GetSession(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.SessionID == "" {
		t.Error("session id is empty")
	}
	wantOrder := []string{"abandon", "ability", "able"}
	if len(got.Words) != len(wantOrder) {
		t.Fatalf("got %d words, want %d", len(got.Words), len(wantOrder))
	}
	for i, spelling := range wantOrder {
		if got.Words[i].Word.Spelling != spelling {
			t.Errorf("word %d = %q, want %q", i, got.Words[i].Word.Spelling, spelling)
		}
	}
	if got.Stats.TotalDue != 1 || got.Stats.ReviewCount != 1 || got.Stats.NewCount != 2 {
		t.Errorf("stats = %+v, want total_due=1 review=1 new=2", got.Stats)
	}
	if got.Words[1].Progress.Status != models.StatusNew || got.Words[1].Progress.ID != 0 {
		t.Errorf("new word carries stored progress: %+v", got.Words[1].Progress)
	}
	// assembling a session never writes
	if progress.submits != 0 {
		t.Errorf("session assembly persisted %d records", progress.submits)
	}
}

func TestGetSessionWithoutPlanIsReviewOnly(t *testing.T) {
	progress := newFakeProgressStore()
	progress.put(models.UserProgress{
		UserID: 1, WordID: 11, Status: models.StatusLearning,
		EaseFactor: 2.5, Interval: 1,
		NextReviewAt: testNow.AddDate(0, 0, -1),
	})
	words := newFakeWordCatalog(catalogWord(11, 10, "abandon", 50), catalogWord(12, 10, "ability", 10))

	svc := newTestService(progress, words, &fakePlanStore{})
	got, err := svc.GetSession(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("no active plan must degrade, not error: %v", err)
	}
	if len(got.Words) != 1 || got.Words[0].Word.ID != 11 {
		t.Fatalf("words = %+v, want only the due review", got.Words)
	}
	if got.Stats.NewCount != 0 {
		t.Errorf("new count = %d, want 0 without a plan", got.Stats.NewCount)
	}
}

func TestGetSessionEmpty(t *testing.T) {
	svc := newTestService(newFakeProgressStore(), newFakeWordCatalog(), &fakePlanStore{})
	got, err := svc.GetSession(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Words) != 0 {
		t.Errorf("got %d words, want 0", len(got.Words))
	}
	if got.Stats != (models.SessionStats{}) {
		t.Errorf("stats = %+v, want all zero", got.Stats)
	}
}

func TestSubmitReviewFirstTimeStartsFromDefaults(t *testing.T) {
	progress := newFakeProgressStore()
	words := newFakeWordCatalog(catalogWord(11, 10, "abandon", 50))

	svc := newTestService(progress, words, &fakePlanStore{})
	res, err := svc.SubmitReview(context.Background(), 1, 11, spaced_repetition.QualityGood)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Interval != 1 || res.Status != models.StatusReviewing {
		t.Errorf("result = %+v, want interval 1, status reviewing", res)
	}
	if !res.NextReviewAt.Equal(testNow.AddDate(0, 0, 1)) {
		t.Errorf("next review at = %v, want %v", res.NextReviewAt, testNow.AddDate(0, 0, 1))
	}

	stored, err := progress.GetByUserAndWord(context.Background(), 1, 11)
	if err != nil {
		t.Fatalf("record was not persisted: %v", err)
	}
	if stored.TotalReviews != 1 || stored.Repetitions != 1 || len(stored.History) != 1 {
		t.Errorf("stored = %+v, want one completed review", stored)
	}
}

func TestSubmitReviewAdvancesExistingRecord(t *testing.T) {
	progress := newFakeProgressStore()
	reviewedAt := testNow.AddDate(0, 0, -1)
	progress.put(models.UserProgress{
		UserID: 1, WordID: 11, Status: models.StatusReviewing,
		EaseFactor: 2.5, Interval: 1, Repetitions: 1,
		NextReviewAt: testNow, LastReviewAt: &reviewedAt,
		TotalReviews: 1, CorrectCount: 1,
		History: models.ReviewHistory{{Timestamp: reviewedAt, Quality: 4, Interval: 1, EaseFactor: 2.5}},
	})
	words := newFakeWordCatalog(catalogWord(11, 10, "abandon", 50))

	svc := newTestService(progress, words, &fakePlanStore{})
	res, err := svc.SubmitReview(context.Background(), 1, 11, spaced_repetition.QualityEasy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Interval != 6 {
		t.Errorf("interval = %d, want 6", res.Interval)
	}
	stored, _ := progress.GetByUserAndWord(context.Background(), 1, 11)
	if stored.Repetitions != 2 || stored.TotalReviews != 2 || len(stored.History) != 2 {
		t.Errorf("stored = %+v, want advanced record with 2 history entries", stored)
	}
}

func TestSubmitReviewRejectsInvalidQuality(t *testing.T) {
	progress := newFakeProgressStore()
	words := newFakeWordCatalog(catalogWord(11, 10, "abandon", 50))

	svc := newTestService(progress, words, &fakePlanStore{})
	_, err := svc.SubmitReview(context.Background(), 1, 11, spaced_repetition.Quality(2))
	if !errors.Is(err, spaced_repetition.ErrInvalidQuality) {
		t.Fatalf("got err %v, want ErrInvalidQuality", err)
	}
	if progress.submits != 0 {
		t.Errorf("invalid submission reached storage")
	}
}

func TestSubmitReviewUnknownWord(t *testing.T) {
	svc := newTestService(newFakeProgressStore(), newFakeWordCatalog(), &fakePlanStore{})
	_, err := svc.SubmitReview(context.Background(), 1, 999, spaced_repetition.QualityGood)
	if !errors.Is(err, models.ErrWordNotFound) {
		t.Fatalf("got err %v, want ErrWordNotFound", err)
	}
}

func TestGetStats(t *testing.T) {
	progress := newFakeProgressStore()
	progress.put(models.UserProgress{
		UserID: 1, WordID: 11, Status: models.StatusMastered,
		NextReviewAt: testNow.AddDate(0, 0, 30), TotalReviews: 4, CorrectCount: 4,
	})
	progress.put(models.UserProgress{
		UserID: 1, WordID: 12, Status: models.StatusLearning,
		NextReviewAt: testNow.AddDate(0, 0, -1), TotalReviews: 2, CorrectCount: 1,
	})
	progress.put(models.UserProgress{
		UserID: 2, WordID: 11, Status: models.StatusLearning,
		NextReviewAt: testNow, TotalReviews: 1, CorrectCount: 0,
	})

	svc := newTestService(progress, newFakeWordCatalog(), &fakePlanStore{})
	stats, err := svc.GetStats(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalWords != 2 || stats.Mastered != 1 || stats.Learning != 1 || stats.DueCount != 1 {
		t.Errorf("stats = %+v, want total=2 mastered=1 learning=1 due=1", stats)
	}
	if want := 5.0 / 6.0; stats.AccuracyRate < want-1e-9 || stats.AccuracyRate > want+1e-9 {
		t.Errorf("accuracy = %v, want %v", stats.AccuracyRate, want)
	}
}
