package models

import "time"

// Word represents one entry of a vocabulary book in the shared catalog
type Word struct {
	ID            int64     `json:"id" db:"id"`
	BookID        int64     `json:"book_id" db:"book_id"`
	Spelling      string    `json:"spelling" db:"spelling"`
	Phonetic      string    `json:"phonetic" db:"phonetic"`
	Definitions   string    `json:"definitions" db:"definitions"` // JSON array of sense strings
	Sentences     string    `json:"sentences" db:"sentences"`     // JSON array of example sentences
	Mnemonic      string    `json:"mnemonic" db:"mnemonic"`
	Difficulty    int       `json:"difficulty" db:"difficulty"`         // 1-5 scale of difficulty
	FrequencyRank int       `json:"frequency_rank" db:"frequency_rank"` // lower = more common
	AudioURL      string    `json:"audio_url" db:"audio_url"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
