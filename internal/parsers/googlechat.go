package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lerio/luciko/internal/entities"
	"github.com/lerio/luciko/internal/identity"
)

const googleChatPrefix = "Google Chat/"

// gcMessage mirrors the Takeout messages.json schema. Field presence is
// inconsistent between export generations, so everything is optional and
// checked at use.
type gcMessage struct {
	Creator struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"creator"`
	CreatedDate string `json:"created_date"`
	Text        string `json:"text"`
	MessageID   string `json:"message_id"`
	AttachedFiles []struct {
		OriginalName string `json:"original_name"`
		ExportName   string `json:"export_name"`
	} `json:"attached_files"`
	Reactions []struct {
		Emoji struct {
			Unicode string `json:"unicode"`
		} `json:"emoji"`
		ReactorEmails []string `json:"reactor_emails"`
	} `json:"reactions"`
}

type gcFile struct {
	Messages []gcMessage `json:"messages"`
}

func detectGoogleChat(in *Input) bool {
	if in.IsZip() {
		arc, err := in.Archive()
		if err != nil {
			return false
		}
		if arc.HasPrefix(googleChatPrefix) {
			return true
		}
		if arc.HasPrefix(instagramPrefix) {
			return false
		}
		// Other exports also ship a messages.json (iMessage among them),
		// so a loosely laid out archive is only claimed when the content
		// matches the Takeout schema.
		for _, p := range arc.FindSuffix("messages.json") {
			if data, err := arc.Read(p); err == nil && looksLikeGoogleChat(data) {
				return true
			}
		}
		return false
	}
	if !strings.HasSuffix(strings.ToLower(in.FileName), ".json") {
		return false
	}
	return looksLikeGoogleChat(in.Data)
}

func looksLikeGoogleChat(data []byte) bool {
	return bytes.Contains(firstKB(data), []byte(`"messages"`)) &&
		bytes.Contains(data, []byte(`"creator"`))
}

// ParseGoogleChat reads a Takeout Google Chat export: one or more
// messages.json files with media files exported alongside them.
func ParseGoogleChat(in *Input, opts Options) (*Result, error) {
	var files [][]byte
	if in.IsZip() {
		arc, err := in.Archive()
		if err != nil {
			return nil, err
		}
		paths := arc.FindSuffix("messages.json")
		if len(paths) == 0 {
			return nil, fmt.Errorf("google chat archive has no messages.json")
		}
		for _, p := range paths {
			data, err := arc.Read(p)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", p, err)
			}
			files = append(files, data)
		}
	} else {
		files = [][]byte{in.Data}
	}

	result := &Result{}
	for _, data := range files {
		var f gcFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("invalid google chat messages.json: %w", err)
		}
		for _, raw := range f.Messages {
			parseGoogleChatMessage(in, raw, opts, result)
		}
	}

	result.sortByTimestamp()
	return result, nil
}

func parseGoogleChatMessage(in *Input, raw gcMessage, opts Options, result *Result) {
	ts, err := parseTimestamp(raw.CreatedDate)
	if err != nil {
		result.errorf("googlechat: skipping message from %q: %v", raw.Creator.Name, err)
		return
	}

	msg := newMessage(opts, SourceGoogleChat)
	msg.Timestamp = ts

	// Email is the stable identity; the display name is a fallback.
	if raw.Creator.Email != "" {
		msg.SenderID = opts.People.Resolve(raw.Creator.Email)
	}
	if msg.SenderID == "" || msg.SenderID == raw.Creator.Email {
		if resolved := opts.People.Resolve(raw.Creator.Name); resolved != "" {
			msg.SenderID = resolved
		}
	}

	msg.Content = strings.TrimSpace(raw.Text)

	for _, f := range raw.AttachedFiles {
		name := f.ExportName
		if name == "" {
			name = f.OriginalName
		}
		if name == "" {
			continue
		}
		att := entities.Attachment{
			ID:        uuid.NewString(),
			FileName:  name,
			Type:      identity.ClassifyAttachment(name),
			MimeType:  identity.GuessMimeType(name),
			SourceURI: name,
		}
		if in.IsZip() {
			if arc, err := in.Archive(); err == nil {
				if data, err := arc.Read(name); err == nil {
					att.Data = data
					att.Size = int64(len(data))
				} else {
					result.logf("googlechat: attachment %q referenced but missing from archive", name)
				}
			}
		}
		msg.Attachments = append(msg.Attachments, att)
	}

	var emojis []string
	for _, r := range raw.Reactions {
		n := len(r.ReactorEmails)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			emojis = append(emojis, r.Emoji.Unicode)
		}
	}
	msg.Reactions = aggregateReactions(emojis)

	if !keepMessage(&msg) {
		return
	}

	if raw.MessageID != "" {
		msg.ExternalID = identity.NativeExternalID(SourceGoogleChat, raw.MessageID)
	} else {
		msg.ExternalID = identity.FallbackExternalID(
			SourceGoogleChat, msg.Timestamp, msg.SenderID, msg.Content, attachmentNames(msg.Attachments))
	}
	result.Messages = append(result.Messages, msg)
}

func firstKB(data []byte) []byte {
	if len(data) > 1024 {
		return data[:1024]
	}
	return data
}
