// Package importer merges parsed records into the store. Re-importing the
// same export is a no-op; overlapping exports of the same conversation
// enrich existing records instead of duplicating them.
package importer

import (
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/lerio/luciko/internal/database"
	"github.com/lerio/luciko/internal/entities"
	"github.com/lerio/luciko/internal/identity"
)

// Stats summarizes one merge run.
type Stats struct {
	Total     int      `json:"total"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Unchanged int      `json:"unchanged"`
	Errors    []string `json:"errors,omitempty"`
	Logs      []string `json:"logs,omitempty"`
}

func (s *Stats) errorf(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

func (s *Stats) logf(format string, args ...any) {
	s.Logs = append(s.Logs, fmt.Sprintf(format, args...))
}

type Merger struct {
	db *database.Database
}

func NewMerger(db *database.Database) *Merger {
	return &Merger{db: db}
}

// mergeOutcome tells the merge loop how a record landed, so the counters
// only move after the record's transaction commits.
type mergeOutcome int

const (
	outcomeCreated mergeOutcome = iota
	outcomeUpdated
	outcomeUnchanged
)

func (s *Stats) count(outcome mergeOutcome) {
	switch outcome {
	case outcomeCreated:
		s.Created++
	case outcomeUpdated:
		s.Updated++
	default:
		s.Unchanged++
	}
}

// MergeMessages merges parsed messages into the store. Each record gets
// its own transaction: the metadata row and its blobs commit together,
// and a failure on one record never rolls back records merged before it.
func (m *Merger) MergeMessages(messages []entities.Message) *Stats {
	stats := &Stats{Total: len(messages)}
	cache := identity.HashCache{}

	for i := range messages {
		msg := &messages[i]
		var outcome mergeOutcome
		err := m.db.Transaction(func(tx *database.Database) error {
			var err error
			outcome, err = m.mergeMessage(tx, msg, cache, stats)
			return err
		})
		if err != nil {
			stats.errorf("merge failed for message %s: %v", msg.ExternalID, err)
			continue
		}
		stats.count(outcome)
	}
	return stats
}

func (m *Merger) mergeMessage(tx *database.Database, msg *entities.Message, cache identity.HashCache, stats *Stats) (mergeOutcome, error) {
	// No external id means no basis for deduplication; the record is
	// always imported as new.
	if msg.ExternalID == "" {
		return outcomeCreated, createMessage(tx, msg, cache)
	}

	existing, err := tx.FindMessageByExternalID(msg.ExternalID)
	if err != nil {
		return outcomeUnchanged, err
	}
	if existing == nil {
		return outcomeCreated, createMessage(tx, msg, cache)
	}

	changed, err := enrichMessage(tx, existing, msg, cache, stats)
	if err != nil {
		return outcomeUnchanged, err
	}
	if changed {
		return outcomeUpdated, nil
	}
	return outcomeUnchanged, nil
}

func createMessage(tx *database.Database, msg *entities.Message, cache identity.HashCache) error {
	msg.Attachments = dedupeSiblings(msg.Attachments, cache)
	for i := range msg.Attachments {
		att := &msg.Attachments[i]
		if len(att.Data) == 0 {
			continue
		}
		identity.ContentKey(att, cache)
		if att.ContentHash == "" {
			att.ContentHash = cache[att.ID]
		}
		if err := tx.PutBlob(att.ID, att.Data); err != nil {
			return err
		}
		att.Data = nil
	}
	return tx.CreateMessage(msg)
}

// dedupeSiblings drops attachments whose content key repeats within one
// message. HTML exports reference the same file from several elements.
func dedupeSiblings(atts []entities.Attachment, cache identity.HashCache) []entities.Attachment {
	if len(atts) < 2 {
		return atts
	}
	seen := make(map[string]bool, len(atts))
	kept := atts[:0]
	for i := range atts {
		key := identity.ContentKey(&atts[i], cache)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, atts[i])
	}
	return kept
}

// enrichMessage folds an incoming duplicate into its stored counterpart.
// Enrichment is append-only: attachments are added or completed, never
// removed, and text is only replaced when the incoming export demonstrably
// carries more than the stored one.
func enrichMessage(tx *database.Database, existing, incoming *entities.Message, cache identity.HashCache, stats *Stats) (bool, error) {
	changed := false

	// The index holds pointers into existing.Attachments; reserve room up
	// front so appends never reallocate under them.
	grown := make([]entities.Attachment, len(existing.Attachments),
		len(existing.Attachments)+len(incoming.Attachments))
	copy(grown, existing.Attachments)
	existing.Attachments = grown

	// Each stored attachment is indexed under every identity it answers
	// to, so an incoming binary still finds the metadata-only row an
	// earlier media-less export created.
	byKey := make(map[string]*entities.Attachment)
	index := func(a *entities.Attachment) {
		for _, key := range identity.ContentKeys(a, cache) {
			if _, taken := byKey[key]; !taken {
				byKey[key] = a
			}
		}
	}
	for i := range existing.Attachments {
		index(&existing.Attachments[i])
	}

	attachmentsChanged := false
	for _, inc := range dedupeSiblings(incoming.Attachments, cache) {
		var ex *entities.Attachment
		for _, key := range identity.ContentKeys(&inc, cache) {
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
			inc.MessageID = existing.ID
			existing.Attachments = append(existing.Attachments, inc)
			index(&existing.Attachments[len(existing.Attachments)-1])
			attachmentsChanged = true
			changed = true
			continue
		}

		// Same content, and this export carries the bytes: fill in the
		// blob a metadata-only import left behind.
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
				stats.logf("received binary for attachment %s (%s)", ex.ID, ex.FileName)
				attachmentsChanged = true
				changed = true
			}
		}
	}

	// A media-bearing export strips the placeholder lines a media-less
	// export kept in the text, so the content is refreshed alongside any
	// attachment change.
	if attachmentsChanged && incoming.Content != "" && incoming.Content != existing.Content {
		stats.logf("content refreshed for %s (%s)", existing.ExternalID, diffSummary(existing.Content, incoming.Content))
		existing.Content = incoming.Content
	}

	if existing.QuotedText == "" && incoming.QuotedText != "" {
		existing.QuotedText = incoming.QuotedText
		existing.QuotedSender = incoming.QuotedSender
		changed = true
	}

	replaceReactions := len(incoming.Reactions) > 0 &&
		!sameReactions(existing.Reactions, incoming.Reactions)

	if changed {
		// Reactions are handled separately below; keep Save away from the
		// stale preloaded rows.
		existing.Reactions = nil
		if err := tx.SaveMessage(existing); err != nil {
			return changed, err
		}
	}
	if replaceReactions {
		if err := tx.ReplaceReactions(existing.ID, incoming.Reactions); err != nil {
			return changed, err
		}
		changed = true
	}
	return changed, nil
}

// sameReactions compares two reaction sets as multisets of (emoji, count).
func sameReactions(a, b []entities.Reaction) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, r := range a {
		counts[r.Emoji] += r.Count
	}
	for _, r := range b {
		counts[r.Emoji] -= r.Count
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}

// diffSummary condenses a content change into added/removed char counts
// for the merge log.
func diffSummary(before, after string) string {
	dmp := diffmatchpatch.New()
	var added, removed int
	for _, d := range dmp.DiffMain(before, after, false) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += len(d.Text)
		case diffmatchpatch.DiffDelete:
			removed += len(d.Text)
		}
	}
	return fmt.Sprintf("+%d/-%d chars", added, removed)
}
