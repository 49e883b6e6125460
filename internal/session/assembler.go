package session

import (
	"sort"
	"time"

	"github.com/example/lexibot/pkg/models"
)

// Item is one slot of an assembled session: a word reference plus the
// progress state the client should display. For new words Progress is a
// synthesized placeholder that must not be persisted until the first review.
type Item struct {
	WordID   int64
	Progress models.UserProgress
}

// Result is an ordered session: review items first, then new items
type Result struct {
	Items []Item
	Stats models.SessionStats
}

// Assemble selects and orders the words for one study session. It is a pure
// read over its inputs: records and candidates are never mutated and no
// storage write happens here.
//
// Due words are the user's non-mastered records with next_review_at <= now,
// ordered by ascending next_review_at (most overdue first) with record id as
// the tie-breaker. At most plan.daily_review of them are taken, never padded
// with non-due records. Remaining capacity up to limit is filled with new
// words from the active plan's book in ascending frequency-rank order, capped
// at plan.daily_new. Without an active plan the session is review-only.
func Assemble(records []models.UserProgress, candidates []models.Word, plan *models.StudyPlan, limit int, now time.Time) Result {
	if limit < 0 {
		limit = 0
	}

	due := make([]models.UserProgress, 0, len(records))
	seen := make(map[int64]bool, len(records))
	for _, r := range records {
		seen[r.WordID] = true
		if r.Status != models.StatusMastered && !r.NextReviewAt.After(now) {
			due = append(due, r)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].NextReviewAt.Equal(due[j].NextReviewAt) {
			return due[i].NextReviewAt.Before(due[j].NextReviewAt)
		}
		return due[i].ID < due[j].ID
	})

	reviewTake := len(due)
	if plan != nil && plan.DailyReview < reviewTake {
		reviewTake = plan.DailyReview
	}
	if limit < reviewTake {
		reviewTake = limit
	}
	if reviewTake < 0 {
		reviewTake = 0
	}

	items := make([]Item, 0, limit)
	for _, r := range due[:reviewTake] {
		items = append(items, Item{WordID: r.WordID, Progress: r})
	}

	newCount := 0
	if plan != nil && len(items) < limit {
		budget := plan.DailyNew
		if remaining := limit - len(items); remaining < budget {
			budget = remaining
		}

		ordered := make([]models.Word, len(candidates))
		copy(ordered, candidates)
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].FrequencyRank != ordered[j].FrequencyRank {
				return ordered[i].FrequencyRank < ordered[j].FrequencyRank
			}
			return ordered[i].ID < ordered[j].ID
		})

		for _, w := range ordered {
			if newCount >= budget {
				break
			}
			// A word the user already has a record for is never "new"
			if seen[w.ID] {
				continue
			}
			items = append(items, Item{WordID: w.ID, Progress: models.NewUserProgress(plan.UserID, w.ID)})
			newCount++
		}
	}

	return Result{
		Items: items,
		Stats: models.SessionStats{
			TotalDue:    len(due),
			ReviewCount: reviewTake,
			NewCount:    newCount,
		},
	}
}
