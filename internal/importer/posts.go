package importer

import (
	"github.com/lerio/luciko/internal/database"
	"github.com/lerio/luciko/internal/entities"
	"github.com/lerio/luciko/internal/identity"
)

// MergePosts merges parsed posts the same way MergeMessages merges
// messages: one transaction per record, dedup on the external id, and
// append-only enrichment for duplicates.
func (m *Merger) MergePosts(posts []entities.Post) *Stats {
	stats := &Stats{Total: len(posts)}
	cache := identity.HashCache{}

	for i := range posts {
		post := &posts[i]
		var outcome mergeOutcome
		err := m.db.Transaction(func(tx *database.Database) error {
			var err error
			outcome, err = m.mergePost(tx, post, cache, stats)
			return err
		})
		if err != nil {
			stats.errorf("merge failed for post %s: %v", post.ExternalID, err)
			continue
		}
		stats.count(outcome)
	}
	return stats
}

func (m *Merger) mergePost(tx *database.Database, post *entities.Post, cache identity.HashCache, stats *Stats) (mergeOutcome, error) {
	if post.ExternalID == "" {
		return outcomeCreated, createPost(tx, post, cache)
	}

	existing, err := tx.FindPostByExternalID(post.ExternalID)
	if err != nil {
		return outcomeUnchanged, err
	}
	if existing == nil {
		return outcomeCreated, createPost(tx, post, cache)
	}

	changed, err := enrichPost(tx, existing, post, cache, stats)
	if err != nil {
		return outcomeUnchanged, err
	}
	if changed {
		return outcomeUpdated, nil
	}
	return outcomeUnchanged, nil
}

func createPost(tx *database.Database, post *entities.Post, cache identity.HashCache) error {
	for i := range post.Media {
		media := &post.Media[i]
		if len(media.Data) == 0 {
			continue
		}
		identity.MediaContentKey(media, cache)
		if media.ContentHash == "" {
			media.ContentHash = cache[media.ID]
		}
		if err := tx.PutBlob(media.ID, media.Data); err != nil {
			return err
		}
		media.Data = nil
	}
	return tx.CreatePost(post)
}

// enrichPost backfills fields an earlier import left empty and reconciles
// media. Stored text is never overwritten, only filled in.
func enrichPost(tx *database.Database, existing, incoming *entities.Post, cache identity.HashCache, stats *Stats) (bool, error) {
	changed := false

	if existing.Text == "" && incoming.Text != "" {
		existing.Text = incoming.Text
		changed = true
	}
	if existing.Activity == "" && incoming.Activity != "" {
		existing.Activity = incoming.Activity
		changed = true
	}
	if existing.LinkURL == "" && incoming.LinkURL != "" {
		existing.LinkURL = incoming.LinkURL
		changed = true
	}

	grown := make([]entities.PostMedia, len(existing.Media),
		len(existing.Media)+len(incoming.Media))
	copy(grown, existing.Media)
	existing.Media = grown

	byKey := make(map[string]*entities.PostMedia)
	index := func(m *entities.PostMedia) {
		for _, key := range identity.MediaContentKeys(m, cache) {
			if _, taken := byKey[key]; !taken {
				byKey[key] = m
			}
		}
	}
	for i := range existing.Media {
		index(&existing.Media[i])
	}

	for _, inc := range incoming.Media {
		var ex *entities.PostMedia
		for _, key := range identity.MediaContentKeys(&inc, cache) {
			if match, ok := byKey[key]; ok {
				ex = match
				break
			}
		}
		if ex == nil {
			if len(inc.Data) > 0 {
				if inc.ContentHash == "" {
					inc.ContentHash = cache[inc.ID]
				}
				if err := tx.PutBlob(inc.ID, inc.Data); err != nil {
					return changed, err
				}
				inc.Data = nil
			}
			inc.PostID = existing.ID
			existing.Media = append(existing.Media, inc)
			index(&existing.Media[len(existing.Media)-1])
			changed = true
			continue
		}

		if len(inc.Data) > 0 {
			stored, err := tx.GetBlob(ex.ID)
			if err != nil {
				return changed, err
			}
			if len(stored) == 0 {
				if err := tx.PutBlob(ex.ID, inc.Data); err != nil {
					return changed, err
				}
				ex.ContentHash = identity.HashBytes(inc.Data)
				ex.Size = int64(len(inc.Data))
				stats.logf("received binary for post media %s (%s)", ex.ID, ex.FileName)
				changed = true
			}
		}
	}

	if changed {
		return true, tx.SavePost(existing)
	}
	return false, nil
}
