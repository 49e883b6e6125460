package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/lexibot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// WordRepository handles database operations for the word catalog
type WordRepository struct{}

// NewWordRepository creates a new repository instance
func NewWordRepository() *WordRepository {
	return &WordRepository{}
}

// GetByID returns a word by ID
func (r *WordRepository) GetByID(ctx context.Context, id int64) (*models.Word, error) {
	var word models.Word
	query := DB.Rebind("SELECT * FROM words WHERE id = ?")
	err := DB.GetContext(ctx, &word, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrWordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word by ID: %v", err)
	}
	return &word, nil
}

// GetByIDs returns the catalog entries for a set of word IDs
func (r *WordRepository) GetByIDs(ctx context.Context, ids []int64) ([]models.Word, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT * FROM words WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build word query: %v", err)
	}
	var words []models.Word
	if err := DB.SelectContext(ctx, &words, DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get words: %v", err)
	}
	return words, nil
}

// GetNewCandidates returns words of a book the user has no learning record
// for, most common words first
func (r *WordRepository) GetNewCandidates(ctx context.Context, bookID int64, excludeWordIDs []int64, limit int) ([]models.Word, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := "SELECT * FROM words WHERE book_id = ? ORDER BY frequency_rank, id LIMIT ?"
	args := []interface{}{bookID, limit}
	if len(excludeWordIDs) > 0 {
		var err error
		query, args, err = sqlx.In(
			"SELECT * FROM words WHERE book_id = ? AND id NOT IN (?) ORDER BY frequency_rank, id LIMIT ?",
			bookID, excludeWordIDs, limit,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build candidate query: %v", err)
		}
	}

	var words []models.Word
	if err := DB.SelectContext(ctx, &words, DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get new candidates: %v", err)
	}
	return words, nil
}

// GetBySpelling returns a word of a book by its spelling
func (r *WordRepository) GetBySpelling(ctx context.Context, bookID int64, spelling string) (*models.Word, error) {
	var word models.Word
	query := DB.Rebind("SELECT * FROM words WHERE book_id = ? AND spelling = ?")
	err := DB.GetContext(ctx, &word, query, bookID, spelling)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrWordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word by spelling: %v", err)
	}
	return &word, nil
}

// Create inserts a new word
func (r *WordRepository) Create(ctx context.Context, word *models.Word) error {
	query := DB.Rebind(`
		INSERT INTO words (book_id, spelling, phonetic, definitions, sentences, mnemonic, difficulty, frequency_rank, audio_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if DB.DriverName() == "postgres" {
		return DB.GetContext(ctx, &word.ID, query+" RETURNING id",
			word.BookID, word.Spelling, word.Phonetic, word.Definitions, word.Sentences,
			word.Mnemonic, word.Difficulty, word.FrequencyRank, word.AudioURL,
		)
	}
	result, err := DB.ExecContext(ctx, query,
		word.BookID, word.Spelling, word.Phonetic, word.Definitions, word.Sentences,
		word.Mnemonic, word.Difficulty, word.FrequencyRank, word.AudioURL,
	)
	if err != nil {
		return fmt.Errorf("failed to create word: %v", err)
	}
	word.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted word id: %v", err)
	}
	return nil
}

// Update modifies an existing word
func (r *WordRepository) Update(ctx context.Context, word *models.Word) error {
	query := DB.Rebind(`
		UPDATE words SET
			phonetic = ?, definitions = ?, sentences = ?, mnemonic = ?,
			difficulty = ?, frequency_rank = ?, audio_url = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`)
	_, err := DB.ExecContext(ctx, query,
		word.Phonetic, word.Definitions, word.Sentences, word.Mnemonic,
		word.Difficulty, word.FrequencyRank, word.AudioURL, word.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update word: %v", err)
	}
	return nil
}

// CountByBook returns how many words a book holds
func (r *WordRepository) CountByBook(ctx context.Context, bookID int64) (int, error) {
	var count int
	query := DB.Rebind("SELECT COUNT(*) FROM words WHERE book_id = ?")
	if err := DB.GetContext(ctx, &count, query, bookID); err != nil {
		return 0, fmt.Errorf("failed to count words: %v", err)
	}
	return count, nil
}
