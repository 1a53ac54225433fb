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

// imessageRow mirrors the JSON rows an iMessage database export produces:
// one object per message table row, with the message GUID as the stable
// identity and quotes referencing either the GUID or the numeric row id
// of the quoted message.
type imessageRow struct {
	GUID     string `json:"guid"`
	RowID    int64  `json:"message_id"`
	Text     string `json:"text"`
	Date     string `json:"date"`
	IsFromMe bool   `json:"is_from_me"`
	Handle   string `json:"handle"`
	ItemType int    `json:"item_type"`

	Attachments []struct {
		FileName     string `json:"file_name"`
		TransferName string `json:"transfer_name"`
		MimeType     string `json:"mime_type"`
	} `json:"attachments"`

	AssociatedGUID string `json:"associated_guid"`
	ReplyToID      int64  `json:"reply_to_id"`

	Reactions []string `json:"reactions"`
}

func detectIMessage(in *Input) bool {
	data := in.Data
	if in.IsZip() {
		arc, err := in.Archive()
		if err != nil {
			return false
		}
		paths := arc.FindSuffix("messages.json")
		if len(paths) == 0 || arc.HasPrefix(googleChatPrefix) {
			return false
		}
		head, err := arc.Read(paths[0])
		if err != nil {
			return false
		}
		data = head
	} else if !strings.HasSuffix(strings.ToLower(in.FileName), ".json") {
		return false
	}
	head := firstKB(data)
	return bytes.Contains(head, []byte(`"guid"`)) && bytes.Contains(head, []byte(`"is_from_me"`))
}

// ParseIMessage reads an iMessage JSON export (bare file, or zipped with
// an attachments directory).
func ParseIMessage(in *Input, opts Options) (*Result, error) {
	data := in.Data
	if in.IsZip() {
		arc, err := in.Archive()
		if err != nil {
			return nil, err
		}
		paths := arc.FindSuffix("messages.json")
		if len(paths) == 0 {
			return nil, fmt.Errorf("imessage archive has no messages.json")
		}
		data, err = arc.Read(paths[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", paths[0], err)
		}
	}

	var rows []imessageRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("invalid imessage export: %w", err)
	}

	// Quotes can reference rows that appear later in file order, so both
	// lookup indices are built over the full row set before any quote is
	// resolved.
	byGUID := make(map[string]*imessageRow, len(rows))
	byRowID := make(map[int64]*imessageRow, len(rows))
	for i := range rows {
		if rows[i].GUID != "" {
			byGUID[rows[i].GUID] = &rows[i]
		}
		if rows[i].RowID != 0 {
			byRowID[rows[i].RowID] = &rows[i]
		}
	}

	result := &Result{}
	for _, row := range rows {
		if row.ItemType != 0 {
			// Calls, group renames and other protocol events.
			continue
		}

		ts, err := parseTimestamp(row.Date)
		if err != nil {
			result.errorf("imessage: skipping row %s: %v", row.GUID, err)
			continue
		}

		msg := newMessage(opts, SourceIMessage)
		msg.Timestamp = ts
		if row.IsFromMe {
			msg.SenderID = opts.People.ResolveMe(true)
		} else if row.Handle != "" {
			msg.SenderID = opts.People.Resolve(row.Handle)
		} else {
			msg.SenderID = opts.People.ResolveMe(false)
		}

		msg.Content = strings.TrimSpace(row.Text)

		for _, a := range row.Attachments {
			name := a.FileName
			if name == "" {
				name = a.TransferName
			}
			if name == "" {
				continue
			}
			mimeType := a.MimeType
			if mimeType == "" {
				mimeType = identity.GuessMimeType(name)
			}
			att := entities.Attachment{
				ID:        uuid.NewString(),
				FileName:  baseName(name),
				Type:      identity.ClassifyAttachment(name),
				MimeType:  mimeType,
				SourceURI: name,
			}
			if in.IsZip() {
				if arc, err := in.Archive(); err == nil {
					if data, err := arc.Read(name); err == nil {
						att.Data = data
						att.Size = int64(len(data))
					} else {
						result.logf("imessage: attachment %q referenced but missing from archive", name)
					}
				}
			}
			msg.Attachments = append(msg.Attachments, att)
		}

		// Contact cards arrive as vCard attachments with no message text;
		// the contact's name stands in for the body.
		if msg.Content == "" {
			msg.Content = vcardName(msg.Attachments)
		}

		msg.Reactions = aggregateReactions(row.Reactions)

		if quoted := resolveQuote(row, byGUID, byRowID); quoted != nil {
			msg.QuotedText = strings.TrimSpace(quoted.Text)
			if quoted.IsFromMe {
				msg.QuotedSender = opts.People.ResolveMe(true)
			} else {
				msg.QuotedSender = opts.People.Resolve(quoted.Handle)
			}
		}

		if !keepMessage(&msg) {
			continue
		}

		if row.GUID != "" {
			msg.ExternalID = identity.NativeExternalID(SourceIMessage, row.GUID)
		} else {
			msg.ExternalID = identity.FallbackExternalID(
				SourceIMessage, msg.Timestamp, msg.SenderID, msg.Content, attachmentNames(msg.Attachments))
		}
		result.Messages = append(result.Messages, msg)
	}

	result.sortByTimestamp()
	return result, nil
}

func resolveQuote(row imessageRow, byGUID map[string]*imessageRow, byRowID map[int64]*imessageRow) *imessageRow {
	if row.AssociatedGUID != "" {
		if q, ok := byGUID[row.AssociatedGUID]; ok {
			return q
		}
	}
	if row.ReplyToID != 0 {
		if q, ok := byRowID[row.ReplyToID]; ok {
			return q
		}
	}
	return nil
}

// vcardName extracts the formatted name from the first vCard attachment
// whose bytes are available.
func vcardName(atts []entities.Attachment) string {
	for _, a := range atts {
		if !strings.HasSuffix(strings.ToLower(a.FileName), ".vcf") || len(a.Data) == 0 {
			continue
		}
		for _, line := range strings.Split(string(a.Data), "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(strings.ToUpper(line), "FN:") {
				return strings.TrimSpace(line[3:])
			}
		}
	}
	return ""
}

func baseName(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return p[strings.LastIndex(p, "/")+1:]
}
