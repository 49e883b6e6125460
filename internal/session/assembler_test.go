package session

import (
	"testing"
	"time"

	"github.com/example/lexibot/pkg/models"
)

var now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func record(id, wordID int64, status models.ReviewStatus, dueAt time.Time) models.UserProgress {
	return models.UserProgress{
		ID:           id,
		UserID:       1,
		WordID:       wordID,
		Status:       status,
		EaseFactor:   2.5,
		Interval:     1,
		NextReviewAt: dueAt,
	}
}

func word(id int64, rank int) models.Word {
	return models.Word{ID: id, BookID: 10, Spelling: "w", FrequencyRank: rank}
}

func plan(dailyNew, dailyReview int) *models.StudyPlan {
	return &models.StudyPlan{ID: 5, UserID: 1, BookID: 10, DailyNew: dailyNew, DailyReview: dailyReview, IsActive: true}
}

func TestAssembleOrdersDueByOverdueness(t *testing.T) {
	records := []models.UserProgress{
		record(1, 101, models.StatusReviewing, now.Add(-1*time.Hour)),
		record(2, 102, models.StatusReviewing, now.AddDate(0, 0, -3)),
		record(3, 103, models.StatusLearning, now.AddDate(0, 0, -1)),
		record(4, 104, models.StatusReviewing, now.Add(2*time.Hour)), // not due
	}

	res := Assemble(records, nil, plan(5, 10), 20, now)

	wantOrder := []int64{102, 103, 101}
	if len(res.Items) != len(wantOrder) {
		t.Fatalf("got %d items, want %d", len(res.Items), len(wantOrder))
	}
	for i, wordID := range wantOrder {
		if res.Items[i].WordID != wordID {
			t.Errorf("item %d: word %d, want %d", i, res.Items[i].WordID, wordID)
		}
	}
	if res.Stats.TotalDue != 3 || res.Stats.ReviewCount != 3 || res.Stats.NewCount != 0 {
		t.Errorf("stats = %+v, want total_due=3 review=3 new=0", res.Stats)
	}
}

func TestAssembleTieBreaksOnRecordID(t *testing.T) {
	dueAt := now.AddDate(0, 0, -1)
	records := []models.UserProgress{
		record(9, 109, models.StatusReviewing, dueAt),
		record(3, 103, models.StatusReviewing, dueAt),
		record(6, 106, models.StatusReviewing, dueAt),
	}

	res := Assemble(records, nil, plan(0, 10), 10, now)

	wantOrder := []int64{103, 106, 109}
	for i, wordID := range wantOrder {
		if res.Items[i].WordID != wordID {
			t.Errorf("item %d: word %d, want %d", i, res.Items[i].WordID, wordID)
		}
	}
}

func TestAssembleSkipsMasteredEvenWhenOverdue(t *testing.T) {
	records := []models.UserProgress{
		record(1, 101, models.StatusMastered, now.AddDate(0, 0, -30)),
		record(2, 102, models.StatusReviewing, now.AddDate(0, 0, -1)),
	}

	res := Assemble(records, nil, plan(0, 10), 10, now)

	if len(res.Items) != 1 || res.Items[0].WordID != 102 {
		t.Fatalf("items = %+v, want only word 102", res.Items)
	}
	if res.Stats.TotalDue != 1 {
		t.Errorf("total due = %d, want 1", res.Stats.TotalDue)
	}
}

func TestAssembleRespectsDailyReviewCap(t *testing.T) {
	var records []models.UserProgress
	for i := int64(1); i <= 8; i++ {
		records = append(records, record(i, 100+i, models.StatusReviewing, now.AddDate(0, 0, -int(i))))
	}

	res := Assemble(records, nil, plan(0, 3), 20, now)

	if res.Stats.ReviewCount != 3 || len(res.Items) != 3 {
		t.Fatalf("review count = %d (%d items), want 3", res.Stats.ReviewCount, len(res.Items))
	}
	// TotalDue still reports the full backlog
	if res.Stats.TotalDue != 8 {
		t.Errorf("total due = %d, want 8", res.Stats.TotalDue)
	}
	// most overdue first
	if res.Items[0].WordID != 108 {
		t.Errorf("first item = word %d, want 108", res.Items[0].WordID)
	}
}

func TestAssembleNeverPadsReviewSlots(t *testing.T) {
	records := []models.UserProgress{
		record(1, 101, models.StatusReviewing, now.AddDate(0, 0, -1)),
		record(2, 102, models.StatusReviewing, now.AddDate(0, 0, 5)), // not due
	}

	res := Assemble(records, nil, plan(0, 10), 10, now)

	if len(res.Items) != 1 {
		t.Fatalf("got %d items, want 1: non-due words must not fill review slots", len(res.Items))
	}
}

func TestAssembleFillsRemainderWithNewWords(t *testing.T) {
	records := []models.UserProgress{
		record(1, 101, models.StatusReviewing, now.AddDate(0, 0, -1)),
	}
	candidates := []models.Word{word(201, 300), word(202, 100), word(203, 200)}

	res := Assemble(records, candidates, plan(5, 10), 3, now)

	if res.Stats.ReviewCount != 1 || res.Stats.NewCount != 2 {
		t.Fatalf("stats = %+v, want review=1 new=2", res.Stats)
	}
	// review first, then new words by ascending frequency rank
	wantOrder := []int64{101, 202, 203}
	for i, wordID := range wantOrder {
		if res.Items[i].WordID != wordID {
			t.Errorf("item %d: word %d, want %d", i, res.Items[i].WordID, wordID)
		}
	}

	placeholder := res.Items[1].Progress
	if placeholder.Status != models.StatusNew || placeholder.Interval != 0 {
		t.Errorf("placeholder = %+v, want status new, interval 0", placeholder)
	}
	if placeholder.EaseFactor != models.DefaultEaseFactor {
		t.Errorf("placeholder ease factor = %v, want %v", placeholder.EaseFactor, models.DefaultEaseFactor)
	}
	if placeholder.ID != 0 {
		t.Errorf("placeholder has id %d: it must not come from storage", placeholder.ID)
	}
}

func TestAssembleNewWordCaps(t *testing.T) {
	candidates := []models.Word{word(201, 1), word(202, 2), word(203, 3), word(204, 4)}

	t.Run("daily_new caps the batch", func(t *testing.T) {
		res := Assemble(nil, candidates, plan(2, 10), 10, now)
		if res.Stats.NewCount != 2 || len(res.Items) != 2 {
			t.Errorf("new count = %d, want 2", res.Stats.NewCount)
		}
	})

	t.Run("limit minus reviews caps the batch", func(t *testing.T) {
		records := []models.UserProgress{
			record(1, 101, models.StatusReviewing, now.AddDate(0, 0, -1)),
			record(2, 102, models.StatusReviewing, now.AddDate(0, 0, -2)),
		}
		res := Assemble(records, candidates, plan(10, 10), 3, now)
		if res.Stats.ReviewCount != 2 || res.Stats.NewCount != 1 {
			t.Errorf("stats = %+v, want review=2 new=1", res.Stats)
		}
	})

	t.Run("daily_new zero means review only", func(t *testing.T) {
		res := Assemble(nil, candidates, plan(0, 10), 10, now)
		if len(res.Items) != 0 {
			t.Errorf("got %d items, want 0", len(res.Items))
		}
	})

	t.Run("no plan yields no new words", func(t *testing.T) {
		res := Assemble(nil, candidates, nil, 10, now)
		if len(res.Items) != 0 || res.Stats.NewCount != 0 {
			t.Errorf("new words surfaced without an active plan: %+v", res.Stats)
		}
	})
}

func TestAssembleSkipsCandidatesAlreadyTracked(t *testing.T) {
	records := []models.UserProgress{
		record(1, 201, models.StatusLearning, now.AddDate(0, 0, 2)), // tracked, not due
	}
	candidates := []models.Word{word(201, 1), word(202, 2)}

	res := Assemble(records, candidates, plan(5, 10), 10, now)

	if len(res.Items) != 1 || res.Items[0].WordID != 202 {
		t.Fatalf("items = %+v, want only word 202", res.Items)
	}
}

func TestAssembleEmptyAndZeroLimit(t *testing.T) {
	t.Run("nothing to study", func(t *testing.T) {
		res := Assemble(nil, nil, nil, 20, now)
		if len(res.Items) != 0 {
			t.Errorf("got %d items, want 0", len(res.Items))
		}
		if res.Stats != (models.SessionStats{}) {
			t.Errorf("stats = %+v, want all zero", res.Stats)
		}
	})

	t.Run("zero limit dry run", func(t *testing.T) {
		records := []models.UserProgress{
			record(1, 101, models.StatusReviewing, now.AddDate(0, 0, -1)),
		}
		res := Assemble(records, []models.Word{word(201, 1)}, plan(5, 10), 0, now)
		if len(res.Items) != 0 {
			t.Errorf("got %d items, want 0", len(res.Items))
		}
		// the dry run still reports the due backlog
		if res.Stats.TotalDue != 1 {
			t.Errorf("total due = %d, want 1", res.Stats.TotalDue)
		}
	})
}

func TestAssembleDoesNotMutateInputs(t *testing.T) {
	candidates := []models.Word{word(203, 3), word(201, 1), word(202, 2)}
	records := []models.UserProgress{
		record(2, 102, models.StatusReviewing, now.AddDate(0, 0, -1)),
		record(1, 101, models.StatusReviewing, now.AddDate(0, 0, -2)),
	}

	Assemble(records, candidates, plan(5, 10), 10, now)

	if records[0].ID != 2 || records[1].ID != 1 {
		t.Errorf("records slice was reordered: %+v", records)
	}
	if candidates[0].ID != 203 {
		t.Errorf("candidates slice was reordered: %+v", candidates)
	}
}
