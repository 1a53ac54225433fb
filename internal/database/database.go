package database

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lerio/luciko/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.Message{},
		&entities.Attachment{},
		&entities.Reaction{},
		&entities.Post{},
		&entities.PostMedia{},
		&entities.Blob{},
		&entities.ImportSession{},
		&entities.Bookmark{},
		&entities.HiddenItem{},
		&entities.Setting{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized at %s", dbPath)

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn against a Database bound to one transaction. All
// writes inside commit together or not at all.
func (d *Database) Transaction(fn func(tx *Database) error) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		return fn(&Database{DB: tx})
	})
}

func (d *Database) CountMessages(chatID string) (int64, error) {
	var n int64
	err := d.DB.Model(&entities.Message{}).Where("chat_id = ?", chatID).Count(&n).Error
	return n, err
}

// MessagesPage returns one page of the merged timeline, timestamp
// ascending. Ties keep insertion order via the secondary created_at sort.
func (d *Database) MessagesPage(chatID string, offset, limit int) ([]entities.Message, error) {
	var messages []entities.Message
	query := d.DB.Preload("Attachments").Preload("Reactions", func(db *gorm.DB) *gorm.DB {
		return db.Order("emoji ASC")
	}).Where("chat_id = ?", chatID).Order("timestamp ASC, created_at ASC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&messages).Error
	return messages, err
}

func (d *Database) FindMessageByExternalID(externalID string) (*entities.Message, error) {
	var msg entities.Message
	err := d.DB.Preload("Attachments").Preload("Reactions").
		Where("external_id = ?", externalID).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (d *Database) CreateMessage(msg *entities.Message) error {
	return d.DB.Create(msg).Error
}

func (d *Database) SaveMessage(msg *entities.Message) error {
	return d.DB.Session(&gorm.Session{FullSaveAssociations: true}).Save(msg).Error
}

// ReplaceReactions swaps a message's reaction rows for the given set.
func (d *Database) ReplaceReactions(messageID string, reactions []entities.Reaction) error {
	if err := d.DB.Where("message_id = ?", messageID).Delete(&entities.Reaction{}).Error; err != nil {
		return err
	}
	for i := range reactions {
		reactions[i].ID = 0
		reactions[i].MessageID = messageID
	}
	if len(reactions) == 0 {
		return nil
	}
	return d.DB.Create(&reactions).Error
}

func (d *Database) CountPosts() (int64, error) {
	var n int64
	err := d.DB.Model(&entities.Post{}).Count(&n).Error
	return n, err
}

func (d *Database) PostsPage(offset, limit int) ([]entities.Post, error) {
	var posts []entities.Post
	query := d.DB.Preload("Media").Order("timestamp ASC, created_at ASC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&posts).Error
	return posts, err
}

func (d *Database) FindPostByExternalID(externalID string) (*entities.Post, error) {
	var post entities.Post
	err := d.DB.Preload("Media").Where("external_id = ?", externalID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (d *Database) CreatePost(post *entities.Post) error {
	return d.DB.Create(post).Error
}

func (d *Database) SavePost(post *entities.Post) error {
	return d.DB.Session(&gorm.Session{FullSaveAssociations: true}).Save(post).Error
}

func (d *Database) CreateImportSession(session *entities.ImportSession) error {
	return d.DB.Create(session).Error
}

func (d *Database) GetImportSessions(limit int) ([]entities.ImportSession, error) {
	var sessions []entities.ImportSession
	query := d.DB.Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&sessions).Error
	return sessions, err
}
