package database

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lerio/luciko/internal/entities"
)

// GetBookmark returns the bookmarked item id for a chat, or "" when none
// is set.
func (d *Database) GetBookmark(chatID string) (string, error) {
	var b entities.Bookmark
	err := d.DB.First(&b, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return b.ItemID, nil
}

func (d *Database) SetBookmark(chatID, itemID string) error {
	b := entities.Bookmark{ChatID: chatID, ItemID: itemID}
	return d.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"item_id", "updated_at"}),
	}).Create(&b).Error
}

func (d *Database) ClearBookmark(chatID string) error {
	return d.DB.Delete(&entities.Bookmark{}, "chat_id = ?", chatID).Error
}

func (d *Database) HideItem(chatID, itemID string) error {
	h := entities.HiddenItem{ChatID: chatID, ItemID: itemID}
	return d.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&h).Error
}

func (d *Database) UnhideItem(chatID, itemID string) error {
	return d.DB.Delete(&entities.HiddenItem{}, "chat_id = ? AND item_id = ?", chatID, itemID).Error
}

func (d *Database) HiddenItems(chatID string) ([]string, error) {
	var ids []string
	err := d.DB.Model(&entities.HiddenItem{}).Where("chat_id = ?", chatID).Pluck("item_id", &ids).Error
	return ids, err
}

func (d *Database) GetSetting(key string) (string, error) {
	var s entities.Setting
	err := d.DB.First(&s, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s.Value, nil
}

func (d *Database) SetSetting(key, value string) error {
	s := entities.Setting{Key: key, Value: value}
	return d.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&s).Error
}
