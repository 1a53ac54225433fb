package tasks

import (
	"context"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/lerio/luciko/internal/database"
	"github.com/lerio/luciko/internal/identity"
)

// VerifyBlobsTask re-hashes stored blobs against the content hashes on
// their attachment rows. Advisory only: mismatches and missing binaries
// are logged, never repaired.
type VerifyBlobsTask struct {
	Source string `json:"source"`
}

// Config returns the queue configuration for blob verification tasks.
func (t VerifyBlobsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "verify_blobs",
		MaxAttempts: 2,
		Backoff:     time.Minute,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// VerifyBlobsProcessor creates a processor function for VerifyBlobsTask.
func VerifyBlobsProcessor(db *database.Database) backlite.QueueProcessor[VerifyBlobsTask] {
	return func(ctx context.Context, task VerifyBlobsTask) error {
		checked, mismatched, missing := 0, 0, 0

		verify := func(id, fileName, wantHash string) error {
			data, err := db.GetBlob(id)
			if err != nil {
				return err
			}
			checked++
			if data == nil {
				missing++
				log.Printf("[TASK] verify_blobs: no blob stored for %s (%s)", id, fileName)
				return nil
			}
			if identity.HashBytes(data) != wantHash {
				mismatched++
				log.Printf("[TASK] verify_blobs: hash mismatch for %s (%s)", id, fileName)
			}
			return nil
		}

		atts, err := db.AttachmentChecksums()
		if err != nil {
			return err
		}
		for _, a := range atts {
			if err := verify(a.ID, a.FileName, a.ContentHash); err != nil {
				return err
			}
		}

		media, err := db.PostMediaChecksums()
		if err != nil {
			return err
		}
		for _, m := range media {
			if err := verify(m.ID, m.FileName, m.ContentHash); err != nil {
				return err
			}
		}

		log.Printf("[TASK] verify_blobs (after %s import): %d checked, %d mismatched, %d missing",
			task.Source, checked, mismatched, missing)
		return nil
	}
}

// NewVerifyBlobsQueue creates a backlite queue for blob verification tasks.
func NewVerifyBlobsQueue(db *database.Database) backlite.Queue {
	return backlite.NewQueue(VerifyBlobsProcessor(db))
}
