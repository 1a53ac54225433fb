package entities

import (
	"time"
)

// Post is one normalized Facebook post. Posts have no source-native
// identifier, so ExternalID is a composite derived from the fields below.
type Post struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	Author   string `gorm:"size:256" json:"author"`
	Text     string `gorm:"type:text" json:"text,omitempty"`
	Activity string `gorm:"size:512" json:"activity,omitempty"`
	LinkURL  string `gorm:"size:2048" json:"link_url,omitempty"`

	Timestamp time.Time `gorm:"index" json:"timestamp"`
	Source    string    `gorm:"size:32" json:"source"`

	ExternalID string `gorm:"index;size:1024" json:"external_id"`

	Media []PostMedia `gorm:"foreignKey:PostID" json:"media,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostMedia mirrors Attachment for posts. SourceURI is persisted here: the
// posts archive has no stable ids, so the archive-relative path takes part
// in identity even when the binary never arrives.
type PostMedia struct {
	ID       string         `gorm:"primaryKey;size:36" json:"id"`
	PostID   string         `gorm:"index;size:36" json:"-"`
	Type     AttachmentType `gorm:"size:16" json:"type"`
	FileName string         `gorm:"size:512" json:"file_name"`
	MimeType string         `gorm:"size:128" json:"mime_type"`
	Size     int64          `json:"size"`

	ContentHash string `gorm:"size:64" json:"content_hash,omitempty"`
	SourceURI   string `gorm:"size:1024" json:"source_uri,omitempty"`

	Data []byte `gorm:"-" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (Post) TableName() string {
	return "posts"
}

func (PostMedia) TableName() string {
	return "post_media"
}
