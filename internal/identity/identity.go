// Package identity derives the two identity kinds the merge pipeline
// depends on: the external id that makes re-imports of the same logical
// message idempotent, and the content key that makes attachment binaries
// land in the blob store at most once.
package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/lerio/luciko/internal/config"
)

// Directory resolves source-native identities (phone numbers, emails,
// export display names) into one of the two canonical participant names.
// Unknown identities pass through unresolved rather than failing: a
// stranger in a group export still gets displayed under their raw name.
type Directory struct {
	selfName  string
	otherName string
	aliases   map[string]string
}

func NewDirectory(p config.Participants) *Directory {
	d := &Directory{
		selfName:  p.SelfName,
		otherName: p.OtherName,
		aliases:   make(map[string]string),
	}
	for _, a := range p.SelfAliases {
		d.aliases[normalizeAlias(a)] = p.SelfName
	}
	for _, a := range p.OtherAliases {
		d.aliases[normalizeAlias(a)] = p.OtherName
	}
	// The canonical names resolve to themselves.
	if p.SelfName != "" {
		d.aliases[normalizeAlias(p.SelfName)] = p.SelfName
	}
	if p.OtherName != "" {
		d.aliases[normalizeAlias(p.OtherName)] = p.OtherName
	}
	return d
}

// Resolve maps a raw identity to a canonical participant name, or returns
// the input unchanged when it is not in the mapping.
func (d *Directory) Resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if name, ok := d.aliases[normalizeAlias(raw)]; ok && name != "" {
		return name
	}
	return raw
}

// ResolveMe maps an "is this me" flag, as used by iMessage exports, to a
// participant name.
func (d *Directory) ResolveMe(isMe bool) string {
	if isMe {
		return d.selfName
	}
	return d.otherName
}

// Self returns the canonical name of the importing account owner.
func (d *Directory) Self() string {
	return d.selfName
}

// Other returns the canonical name of the second participant.
func (d *Directory) Other() string {
	return d.otherName
}

func normalizeAlias(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	// Phone numbers arrive with varying punctuation between exports.
	if looksLikePhone(raw) {
		var b strings.Builder
		for _, r := range raw {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		return b.String()
	}
	return raw
}

func looksLikePhone(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits >= 6
}

// FallbackExternalID builds a deterministic identity for records whose
// source format carries no stable identifier. It deliberately embeds the
// content: a later export that corrects the text of the same underlying
// message produces a different id and is imported as a new message. That
// duplicate drift is accepted, not silently reconciled.
func FallbackExternalID(source string, ts time.Time, sender, content string, attachmentNames []string) string {
	return fmt.Sprintf("%s|%d|%s|%s|%s",
		source, ts.UnixMilli(), sender, content, strings.Join(attachmentNames, ","))
}

// NativeExternalID wraps a source-native identifier so ids from different
// sources can never collide in the store.
func NativeExternalID(source, nativeID string) string {
	return source + "|" + nativeID
}

// PostExternalID is the post counterpart of FallbackExternalID. Media
// archive paths take part in the id: a photo-only post has no text to
// distinguish it from its neighbors.
func PostExternalID(source string, ts time.Time, author, text, activity, linkURL string, mediaURIs []string) string {
	return fmt.Sprintf("%s|%d|%s|%s|%s|%s|%s",
		source, ts.UnixMilli(), author, text, activity, linkURL, strings.Join(mediaURIs, ","))
}
