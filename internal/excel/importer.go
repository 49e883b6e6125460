package excel

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/lexibot/internal/database"
	"github.com/example/lexibot/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath            string // Path to the Excel or CSV file
	BookTitle           string // Title of the book the words go into
	SpellingColumn      string // Column with the word spelling
	PhoneticColumn      string // Column with the phonetic transcription
	DefinitionsColumn   string // Column with the definitions (";"-separated)
	SentencesColumn     string // Column with example sentences (";"-separated)
	MnemonicColumn      string // Column with the mnemonic hint
	DifficultyColumn    string // Column with the difficulty (1-5)
	FrequencyRankColumn string // Column with the frequency rank
	SheetName           string // Name of the sheet to import
	StartRow            int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SpellingColumn:      "A",
		PhoneticColumn:      "B",
		DefinitionsColumn:   "C",
		SentencesColumn:     "D",
		MnemonicColumn:      "E",
		DifficultyColumn:    "F",
		FrequencyRankColumn: "G",
		SheetName:           "Sheet1",
		StartRow:            2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Skipped        int
	Errors         []string
}

// ImportBook imports words from an Excel or CSV file into the named book.
// The book is created when it does not exist yet; its word total and status
// are refreshed after the rows are processed.
func ImportBook(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	if config.BookTitle == "" {
		return nil, fmt.Errorf("book title is required")
	}

	bookRepo := database.NewBookRepository()
	book, err := getOrCreateBook(ctx, bookRepo, config.BookTitle)
	if err != nil {
		return nil, err
	}

	var result *ImportResult
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		result, err = importFromCSV(ctx, config, book.ID)
	} else {
		result, err = importFromExcel(ctx, config, book.ID)
	}
	if err != nil {
		if updateErr := bookRepo.UpdateTotals(ctx, book.ID, book.TotalWords, models.BookStatusFailed); updateErr != nil {
			return nil, fmt.Errorf("import failed (%v) and book status update failed: %v", err, updateErr)
		}
		return nil, err
	}

	total, err := database.NewWordRepository().CountByBook(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count imported words: %v", err)
	}
	if err := bookRepo.UpdateTotals(ctx, book.ID, total, models.BookStatusReady); err != nil {
		return nil, fmt.Errorf("failed to update book totals: %v", err)
	}
	return result, nil
}

// importFromExcel imports words from an Excel file
func importFromExcel(ctx context.Context, config ImportConfig, bookID int64) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %v", err)
	}

	wordRepo := database.NewWordRepository()
	result := &ImportResult{Errors: make([]string, 0)}

	for i, row := range rows {
		if i < config.StartRow-1 {
			continue
		}
		result.TotalProcessed++

		entry := entryFromRow(row, config)
		if err := upsertWord(ctx, wordRepo, bookID, entry, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}
	return result, nil
}

// importFromCSV imports words from a CSV file with the same column order as
// the Excel layout: spelling, phonetic, definitions, sentences, mnemonic,
// difficulty, frequency rank
func importFromCSV(ctx context.Context, config ImportConfig, bookID int64) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	wordRepo := database.NewWordRepository()
	result := &ImportResult{Errors: make([]string, 0)}

	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %v", err)
		}

		rowNum++
		if rowNum < config.StartRow {
			continue
		}
		result.TotalProcessed++

		entry := wordEntry{}
		if len(row) > 0 {
			entry.Spelling = strings.TrimSpace(row[0])
		}
		if len(row) > 1 {
			entry.Phonetic = strings.Trim(strings.TrimSpace(row[1]), "[]/")
		}
		if len(row) > 2 {
			entry.Definitions = row[2]
		}
		if len(row) > 3 {
			entry.Sentences = row[3]
		}
		if len(row) > 4 {
			entry.Mnemonic = strings.TrimSpace(row[4])
		}
		if len(row) > 5 {
			entry.Difficulty = row[5]
		}
		if len(row) > 6 {
			entry.FrequencyRank = row[6]
		}

		if err := upsertWord(ctx, wordRepo, bookID, entry, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		}
	}
	return result, nil
}

// wordEntry holds the raw cell values of one imported row
type wordEntry struct {
	Spelling      string
	Phonetic      string
	Definitions   string
	Sentences     string
	Mnemonic      string
	Difficulty    string
	FrequencyRank string
}

func entryFromRow(row []string, config ImportConfig) wordEntry {
	cell := func(column string) string {
		if column == "" {
			return ""
		}
		if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
			return row[idx]
		}
		return ""
	}
	return wordEntry{
		Spelling:      strings.TrimSpace(cell(config.SpellingColumn)),
		Phonetic:      strings.Trim(strings.TrimSpace(cell(config.PhoneticColumn)), "[]/"),
		Definitions:   cell(config.DefinitionsColumn),
		Sentences:     cell(config.SentencesColumn),
		Mnemonic:      strings.TrimSpace(cell(config.MnemonicColumn)),
		Difficulty:    cell(config.DifficultyColumn),
		FrequencyRank: cell(config.FrequencyRankColumn),
	}
}

// upsertWord creates the word or updates the existing one with the same
// spelling inside the book
func upsertWord(ctx context.Context, wordRepo *database.WordRepository, bookID int64, entry wordEntry, result *ImportResult) error {
	if entry.Spelling == "" {
		result.Skipped++
		return nil
	}
	if strings.TrimSpace(entry.Definitions) == "" {
		result.Skipped++
		return fmt.Errorf("word %q has no definitions", entry.Spelling)
	}

	word := models.Word{
		BookID:        bookID,
		Spelling:      entry.Spelling,
		Phonetic:      entry.Phonetic,
		Definitions:   encodeJSONList(entry.Definitions),
		Sentences:     encodeJSONList(entry.Sentences),
		Mnemonic:      entry.Mnemonic,
		Difficulty:    parseIntOrDefault(entry.Difficulty, 1, 5, 3),
		FrequencyRank: parseIntOrDefault(entry.FrequencyRank, 1, 1<<30, 1<<30),
	}

	existing, err := wordRepo.GetBySpelling(ctx, bookID, entry.Spelling)
	if err == nil {
		word.ID = existing.ID
		if err := wordRepo.Update(ctx, &word); err != nil {
			return fmt.Errorf("failed to update word: %v", err)
		}
		result.Updated++
		return nil
	}
	if !errors.Is(err, models.ErrWordNotFound) {
		return fmt.Errorf("failed to look up word: %v", err)
	}

	if err := wordRepo.Create(ctx, &word); err != nil {
		return fmt.Errorf("failed to create word: %v", err)
	}
	result.Created++
	return nil
}

func getOrCreateBook(ctx context.Context, bookRepo *database.BookRepository, title string) (*models.Book, error) {
	book, err := bookRepo.GetByTitle(ctx, title)
	if err == nil {
		return book, nil
	}
	if !errors.Is(err, models.ErrBookNotFound) {
		return nil, fmt.Errorf("failed to look up book: %v", err)
	}

	newBook := &models.Book{
		Title:  title,
		Status: models.BookStatusProcessing,
	}
	if err := bookRepo.Create(ctx, newBook); err != nil {
		return nil, fmt.Errorf("failed to create book: %v", err)
	}
	return newBook, nil
}

// encodeJSONList turns a ";"-separated cell into the JSON array form the
// catalog stores. Cells that already hold a JSON array pass through as-is.
func encodeJSONList(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "[]"
	}
	if strings.HasPrefix(raw, "[") {
		var check []string
		if err := json.Unmarshal([]byte(raw), &check); err == nil {
			return raw
		}
	}

	var items []string
	for _, part := range strings.Split(raw, ";") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}

// Helper function to parse integer within a range
func parseIntInRange(s string, min, max int) (int, error) {
	var val int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &val); err != nil {
		return min, err
	}
	if val < min {
		return min, nil
	}
	if val > max {
		return max, nil
	}
	return val, nil
}

// Helper function to parse integer with default value
func parseIntOrDefault(s string, min, max, defaultVal int) int {
	if val, err := parseIntInRange(s, min, max); err == nil {
		return val
	}
	return defaultVal
}
