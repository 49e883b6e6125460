package spaced_repetition

import (
	"errors"
	"time"

	"github.com/example/lexibot/pkg/models"
)

// Quality represents the user's self-reported recall confidence for one review.
// The app uses a sparse four-grade scale, not the full 0-5 SM-2 range.
type Quality int

const (
	// QualityAgain means a complete failure to recall
	QualityAgain Quality = 0
	// QualityHard means the word was recalled with significant effort
	QualityHard Quality = 3
	// QualityGood means the word was recalled with some hesitation
	QualityGood Quality = 4
	// QualityEasy means instant recall
	QualityEasy Quality = 5
)

// ErrInvalidQuality is returned when a quality score outside {0,3,4,5} reaches
// the engine. Invalid scores are rejected, never clamped.
var ErrInvalidQuality = errors.New("invalid quality score")

// MinEaseFactor is the hard lower bound for the ease factor
const MinEaseFactor = 1.3

// Valid reports whether q is one of the accepted grades
func (q Quality) Valid() bool {
	switch q {
	case QualityAgain, QualityHard, QualityGood, QualityEasy:
		return true
	}
	return false
}

// Passing reports whether q counts as a successful recall
func (q Quality) Passing() bool {
	return q >= QualityHard
}

// MasteryPolicy decides when a word in the review cycle is promoted to
// mastered. The thresholds are configuration, not part of the algorithm.
type MasteryPolicy struct {
	// MinQuality is the lowest grade that can promote an already-reviewing word
	MinQuality Quality
	// MinRepetitions additionally requires this many consecutive passes (0 = no requirement)
	MinRepetitions int
	// MinIntervalDays additionally requires the new interval to reach this length (0 = no requirement)
	MinIntervalDays int
}

// DefaultMasteryPolicy promotes a reviewing word on any review graded good or
// better, with no repetition or interval requirement.
func DefaultMasteryPolicy() MasteryPolicy {
	return MasteryPolicy{MinQuality: QualityGood}
}

// SM2 implements the SuperMemo-2 variant used to schedule word reviews
type SM2 struct {
	Mastery MasteryPolicy
}

// New creates an engine with the default mastery policy
func New() *SM2 {
	return &SM2{Mastery: DefaultMasteryPolicy()}
}

// Review computes the record state after one review at the given time.
// It is pure: the input record is not mutated and identical inputs always
// produce identical outputs. Persistence is the caller's concern.
//
// On failure (quality 0) the interval restarts at 1 day, the consecutive
// repetition count resets and the word demotes to learning; the ease factor is
// left untouched. On a pass the ease factor moves by the SM-2 delta (floored
// at 1.3) and the interval follows the ladder 0 -> 1 -> 6 -> truncate(interval * ef),
// keyed on the prior interval.
func (s *SM2) Review(progress models.UserProgress, quality Quality, now time.Time) (models.UserProgress, error) {
	if !quality.Valid() {
		return models.UserProgress{}, ErrInvalidQuality
	}

	next := progress
	if quality.Passing() {
		next.EaseFactor = nextEaseFactor(progress.EaseFactor, quality)
		switch progress.Interval {
		case 0:
			next.Interval = 1
		case 1:
			next.Interval = 6
		default:
			// Integer truncation, not rounding: stored data from the original
			// scheduler grew intervals this way.
			next.Interval = int(float64(progress.Interval) * next.EaseFactor)
		}
		next.Repetitions = progress.Repetitions + 1
		next.Status = s.nextStatus(progress.Status, quality, next)
		next.CorrectCount = progress.CorrectCount + 1
	} else {
		next.Interval = 1
		next.Repetitions = 0
		next.Status = models.StatusLearning
	}

	next.NextReviewAt = now.AddDate(0, 0, next.Interval)
	reviewedAt := now
	next.LastReviewAt = &reviewedAt
	next.TotalReviews = progress.TotalReviews + 1

	// Append to a fresh slice so the caller's history is never aliased
	history := make(models.ReviewHistory, len(progress.History), len(progress.History)+1)
	copy(history, progress.History)
	next.History = append(history, models.ReviewLogEntry{
		Timestamp:  now,
		Quality:    int(quality),
		Interval:   next.Interval,
		EaseFactor: next.EaseFactor,
	})

	return next, nil
}

// nextEaseFactor applies the SM-2 delta for a passing grade and enforces the floor
func nextEaseFactor(prior float64, quality Quality) float64 {
	miss := float64(5 - int(quality))
	ef := prior + (0.1 - miss*(0.08+miss*0.02))
	if ef < MinEaseFactor {
		ef = MinEaseFactor
	}
	return ef
}

// nextStatus resolves the pass-side state transition. Failures always land in
// learning before this is consulted; mastery is not sticky.
func (s *SM2) nextStatus(prev models.ReviewStatus, quality Quality, next models.UserProgress) models.ReviewStatus {
	if prev >= models.StatusReviewing && s.masteryReached(quality, next) {
		return models.StatusMastered
	}
	return models.StatusReviewing
}

func (s *SM2) masteryReached(quality Quality, next models.UserProgress) bool {
	return quality >= s.Mastery.MinQuality &&
		next.Repetitions >= s.Mastery.MinRepetitions &&
		next.Interval >= s.Mastery.MinIntervalDays
}
