package entities

import (
	"time"
)

type AttachmentType string

const (
	AttachmentTypeImage    AttachmentType = "image"
	AttachmentTypeVideo    AttachmentType = "video"
	AttachmentTypeAudio    AttachmentType = "audio"
	AttachmentTypeDocument AttachmentType = "document"
)

type MessageStatus string

const (
	// Imported history is always fully read.
	MessageStatusRead MessageStatus = "read"
)

// Message is one normalized chat message, regardless of which export
// format produced it.
type Message struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	ChatID   string `gorm:"index;size:64" json:"chat_id"`
	SenderID string `gorm:"size:256" json:"sender_id"`
	Content  string `gorm:"type:text" json:"content"`

	Timestamp time.Time     `gorm:"index" json:"timestamp"`
	Status    MessageStatus `gorm:"size:16;default:'read'" json:"status"`

	QuotedText   string `gorm:"type:text" json:"quoted_text,omitempty"`
	QuotedSender string `gorm:"size:256" json:"quoted_sender,omitempty"`

	// Source names the importer that produced the message. Display only,
	// never part of deduplication.
	Source string `gorm:"size:32" json:"source"`

	// ExternalID is the deduplication key: equal values across import runs
	// mean "same logical message". Empty for legacy formats without any
	// stable identity.
	ExternalID string `gorm:"index;size:512" json:"external_id,omitempty"`

	Attachments []Attachment `gorm:"foreignKey:MessageID" json:"attachments,omitempty"`
	Reactions   []Reaction   `gorm:"foreignKey:MessageID" json:"reactions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attachment is a reference to one binary media file. The raw bytes are
// only present during import (Data) and live in the blob table afterwards,
// keyed by the attachment ID.
type Attachment struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	MessageID string         `gorm:"index;size:36" json:"-"`
	Type      AttachmentType `gorm:"size:16" json:"type"`
	FileName  string         `gorm:"size:512" json:"file_name"`
	MimeType  string         `gorm:"size:128" json:"mime_type"`
	Size      int64          `json:"size"`

	// ContentHash, when set, is the authoritative identity of the binary
	// content across imports.
	ContentHash string `gorm:"size:64" json:"content_hash,omitempty"`

	// Data holds the raw payload during import only. Stripped before the
	// metadata row is persisted.
	Data []byte `gorm:"-" json:"-"`

	// SourceURI is the archive-relative path the attachment was read from.
	// Used as an identity fallback when no bytes are available.
	SourceURI string `gorm:"-" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Reaction is an aggregated emoji reaction on a message.
type Reaction struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	MessageID string `gorm:"index;size:36" json:"-"`
	Emoji     string `gorm:"size:32" json:"emoji"`
	Count     int    `json:"count"`
}

// Blob holds raw attachment bytes, keyed by the owning attachment or post
// media ID. Kept in the same database file so a single transaction can
// cover both the metadata row and its binaries.
type Blob struct {
	ID   string `gorm:"primaryKey;size:36"`
	Data []byte `gorm:"type:blob"`
}

func (Message) TableName() string {
	return "messages"
}

func (Attachment) TableName() string {
	return "attachments"
}

func (Reaction) TableName() string {
	return "reactions"
}

func (Blob) TableName() string {
	return "blobs"
}
