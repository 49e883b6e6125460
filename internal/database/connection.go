package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// Connect establishes a connection to the database. DB_TYPE selects the
// driver: "postgres" (DATABASE_URL required) or "sqlite" (the default, stored
// under ./data).
func Connect() error {
	dbType := os.Getenv("DB_TYPE")
	if dbType == "" {
		dbType = "sqlite"
	}

	switch dbType {
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return fmt.Errorf("DATABASE_URL environment variable is not set")
		}
		db, err := sqlx.Connect("postgres", dsn)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %v", err)
		}
		DB = db

	case "sqlite":
		dataDir := "data"
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %v", err)
		}
		db, err := sqlx.Connect("sqlite3", filepath.Join(dataDir, "lexibot.db"))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %v", err)
		}
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %v", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		DB = db

	default:
		return fmt.Errorf("unsupported DB_TYPE %q", dbType)
	}

	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema() error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if DB.DriverName() == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS users (
			id %s,
			telegram_id BIGINT UNIQUE NOT NULL,
			username TEXT,
			first_name TEXT,
			last_name TEXT,
			is_admin BOOLEAN DEFAULT false,
			notification_enabled BOOLEAN DEFAULT true,
			notification_hour INTEGER DEFAULT 9,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, serial),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS books (
			id %s,
			title TEXT NOT NULL UNIQUE,
			description TEXT DEFAULT '',
			total_words INTEGER DEFAULT 0,
			status TEXT DEFAULT 'ready',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, serial),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS words (
			id %s,
			book_id BIGINT NOT NULL,
			spelling TEXT NOT NULL,
			phonetic TEXT DEFAULT '',
			definitions TEXT DEFAULT '[]',
			sentences TEXT DEFAULT '[]',
			mnemonic TEXT DEFAULT '',
			difficulty INTEGER DEFAULT 3,
			frequency_rank INTEGER DEFAULT 0,
			audio_url TEXT DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (book_id) REFERENCES books(id),
			UNIQUE(book_id, spelling)
		)`, serial),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS study_plans (
			id %s,
			user_id BIGINT NOT NULL,
			book_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			daily_new INTEGER DEFAULT 20,
			daily_review INTEGER DEFAULT 100,
			start_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			target_date TIMESTAMP,
			is_active BOOLEAN DEFAULT true,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (book_id) REFERENCES books(id)
		)`, serial),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS user_progress (
			id %s,
			user_id BIGINT NOT NULL,
			word_id BIGINT NOT NULL,
			status INTEGER DEFAULT 0,
			ease_factor REAL DEFAULT 2.5,
			interval INTEGER DEFAULT 0,
			repetitions INTEGER DEFAULT 0,
			next_review_at TIMESTAMP NOT NULL,
			last_review_at TIMESTAMP,
			total_reviews INTEGER DEFAULT 0,
			correct_count INTEGER DEFAULT 0,
			history TEXT DEFAULT '[]',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (word_id) REFERENCES words(id),
			UNIQUE(user_id, word_id)
		)`, serial),
		`CREATE INDEX IF NOT EXISTS idx_user_next_review ON user_progress(user_id, next_review_at)`,
		`CREATE INDEX IF NOT EXISTS idx_user_status ON user_progress(user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_words_book_rank ON words(book_id, frequency_rank)`,
	}

	for _, stmt := range statements {
		if _, err := DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %v", err)
		}
	}
	return nil
}
