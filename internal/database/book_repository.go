package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/lexibot/pkg/models"
)

// BookRepository handles database operations for vocabulary books
type BookRepository struct{}

// NewBookRepository creates a new repository instance
func NewBookRepository() *BookRepository {
	return &BookRepository{}
}

// GetAll returns all books
func (r *BookRepository) GetAll(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := DB.SelectContext(ctx, &books, "SELECT * FROM books ORDER BY title"); err != nil {
		return nil, fmt.Errorf("failed to get books: %v", err)
	}
	return books, nil
}

// GetByID returns a book by ID
func (r *BookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	var book models.Book
	query := DB.Rebind("SELECT * FROM books WHERE id = ?")
	err := DB.GetContext(ctx, &book, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book by ID: %v", err)
	}
	return &book, nil
}

// GetByTitle returns a book by its title
func (r *BookRepository) GetByTitle(ctx context.Context, title string) (*models.Book, error) {
	var book models.Book
	query := DB.Rebind("SELECT * FROM books WHERE title = ?")
	err := DB.GetContext(ctx, &book, query, title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book by title: %v", err)
	}
	return &book, nil
}

// Create inserts a new book
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	if book.Status == "" {
		book.Status = models.BookStatusReady
	}
	query := DB.Rebind("INSERT INTO books (title, description, total_words, status) VALUES (?, ?, ?, ?)")
	if DB.DriverName() == "postgres" {
		return DB.GetContext(ctx, &book.ID, query+" RETURNING id",
			book.Title, book.Description, book.TotalWords, book.Status)
	}
	result, err := DB.ExecContext(ctx, query, book.Title, book.Description, book.TotalWords, book.Status)
	if err != nil {
		return fmt.Errorf("failed to create book: %v", err)
	}
	book.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted book id: %v", err)
	}
	return nil
}

// UpdateTotals refreshes the word count and status of a book
func (r *BookRepository) UpdateTotals(ctx context.Context, bookID int64, totalWords int, status string) error {
	query := DB.Rebind("UPDATE books SET total_words = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?")
	if _, err := DB.ExecContext(ctx, query, totalWords, status, bookID); err != nil {
		return fmt.Errorf("failed to update book totals: %v", err)
	}
	return nil
}
