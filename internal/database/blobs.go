package database

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lerio/luciko/internal/entities"
)

// PutBlob stores or overwrites raw attachment bytes under the given id.
// Overwriting is deliberate: a later import can supply the binary for an
// attachment that was previously stored metadata-only.
func (d *Database) PutBlob(id string, data []byte) error {
	blob := entities.Blob{ID: id, Data: data}
	return d.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data"}),
	}).Create(&blob).Error
}

// GetBlob returns the stored bytes for an attachment id, or nil when no
// blob was ever received for it.
func (d *Database) GetBlob(id string) ([]byte, error) {
	var blob entities.Blob
	err := d.DB.First(&blob, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return blob.Data, nil
}

// AttachmentChecksums lists attachment rows carrying a content hash, for
// the blob verification task.
func (d *Database) AttachmentChecksums() ([]entities.Attachment, error) {
	var atts []entities.Attachment
	err := d.DB.Select("id", "file_name", "content_hash").
		Where("content_hash <> ''").Find(&atts).Error
	return atts, err
}

// PostMediaChecksums is AttachmentChecksums for post media rows.
func (d *Database) PostMediaChecksums() ([]entities.PostMedia, error) {
	var media []entities.PostMedia
	err := d.DB.Select("id", "file_name", "content_hash").
		Where("content_hash <> ''").Find(&media).Error
	return media, err
}

// OrphanBlobIDs lists blob ids no attachment or post media row references.
// Orphans appear when a record's transaction commits blobs that a later
// schema repair removed, or after manual row deletion; the cleanup job
// prunes them.
func (d *Database) OrphanBlobIDs() ([]string, error) {
	var ids []string
	err := d.DB.Model(&entities.Blob{}).
		Where("id NOT IN (?)", d.DB.Model(&entities.Attachment{}).Select("id")).
		Where("id NOT IN (?)", d.DB.Model(&entities.PostMedia{}).Select("id")).
		Pluck("id", &ids).Error
	return ids, err
}

func (d *Database) DeleteBlobs(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return d.DB.Delete(&entities.Blob{}, "id IN ?", ids).Error
}
