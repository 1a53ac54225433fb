package entities

import (
	"time"
)

type ImportStatus string

const (
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusFailed    ImportStatus = "failed"
)

// ImportSession records one import run for later inspection.
type ImportSession struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Source      string       `gorm:"index;size:32" json:"source"`
	Status      ImportStatus `gorm:"size:16" json:"status"`
	Parsed      int          `json:"parsed"`
	Imported    int          `json:"imported"`
	ErrorCount  int          `json:"error_count"`
	LogCount    int          `json:"log_count"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// Bookmark stores the per-chat reading position: at most one item per chat.
type Bookmark struct {
	ChatID    string    `gorm:"primaryKey;size:64" json:"chat_id"`
	ItemID    string    `gorm:"size:36" json:"item_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HiddenItem marks one feed item as hidden within a chat.
type HiddenItem struct {
	ChatID    string    `gorm:"primaryKey;size:64" json:"chat_id"`
	ItemID    string    `gorm:"primaryKey;size:36" json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Setting is a generic key/value row for small persistent state.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:128" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ImportSession) TableName() string {
	return "import_sessions"
}

func (Bookmark) TableName() string {
	return "bookmarks"
}

func (HiddenItem) TableName() string {
	return "hidden_items"
}

func (Setting) TableName() string {
	return "settings"
}
