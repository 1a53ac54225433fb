package parsers

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/lerio/luciko/internal/entities"
	"github.com/lerio/luciko/internal/identity"
)

const whatsappChatFile = "_chat.txt"

var (
	// "[31/12/23, 22:15:42] Ada: body" — iOS export style. The timestamp
	// may embed narrow no-break spaces before AM/PM; those survive into
	// the capture and are handled by the timestamp parser.
	waBracketLine = regexp.MustCompile(`^\[([^\]]+)\] ([^:]+): (.*)$`)
	// "[31/12/23, 22:15:42] Messages and calls are end-to-end encrypted..."
	waBracketSystem = regexp.MustCompile(`^\[([^\]]+)\] ([^:]*)$`)

	// "31/12/23, 22:15 - Ada: body" — Android export style.
	waDashLine   = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4}, \d{1,2}:\d{2}(?::\d{2})?(?:[  ]?[AaPp]\.? ?[Mm]\.?)?) - ([^:]+): (.*)$`)
	waDashSystem = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4}, \d{1,2}:\d{2}(?::\d{2})?(?:[  ]?[AaPp]\.? ?[Mm]\.?)?) - ([^:]*)$`)

	waAttached = regexp.MustCompile(`<attached: ([^>]+)>`)

	// Rows that are protocol events, not user content. Call markers are
	// matched against the whole body so a real message mentioning a call
	// is not swallowed.
	waSystemContains = []string{
		"end-to-end encrypted",
		"security code changed",
	}
	waSystemExact = []string{
		"missed voice call", "missed video call",
		"voice call", "video call",
	}

	// Placeholders the no-media export writes where a file would be.
	waOmittedMarkers = []string{
		"image omitted", "video omitted", "audio omitted",
		"sticker omitted", "gif omitted", "document omitted",
		"contact card omitted", "media omitted",
	}
)

func detectWhatsApp(in *Input) bool {
	if in.IsZip() {
		arc, err := in.Archive()
		return err == nil && arc.Has(whatsappChatFile)
	}
	if !strings.HasSuffix(strings.ToLower(in.FileName), ".txt") {
		return false
	}
	head := in.Data
	if len(head) > 4096 {
		head = head[:4096]
	}
	for _, line := range strings.Split(string(head), "\n") {
		line = stripMarks(line)
		if waBracketLine.MatchString(line) || waDashLine.MatchString(line) {
			return true
		}
	}
	return false
}

// ParseWhatsApp reads a WhatsApp chat export: either the zip with
// "_chat.txt" plus media files, or a bare chat text file.
func ParseWhatsApp(in *Input, opts Options) (*Result, error) {
	chatText := in.Data
	if in.IsZip() {
		arc, err := in.Archive()
		if err != nil {
			return nil, err
		}
		chatText, err = arc.Read(whatsappChatFile)
		if err != nil {
			return nil, fmt.Errorf("whatsapp archive has no %s: %w", whatsappChatFile, err)
		}
	}
	if len(chatText) == 0 {
		return nil, fmt.Errorf("whatsapp chat file is empty")
	}

	result := &Result{}

	type rawMessage struct {
		timestamp string
		sender    string
		lines     []string
	}

	// First pass: split the log into per-message line groups. A line that
	// matches no header pattern continues the previous message.
	var raws []rawMessage
	scanner := bufio.NewScanner(strings.NewReader(string(chatText)))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := stripMarks(scanner.Text())

		if m := waBracketLine.FindStringSubmatch(line); m != nil {
			raws = append(raws, rawMessage{timestamp: m[1], sender: m[2], lines: []string{m[3]}})
			continue
		}
		if m := waDashLine.FindStringSubmatch(line); m != nil {
			raws = append(raws, rawMessage{timestamp: m[1], sender: m[2], lines: []string{m[3]}})
			continue
		}
		if waBracketSystem.MatchString(line) || waDashSystem.MatchString(line) {
			// Dated row without a "sender:" prefix: a system event.
			continue
		}
		if len(raws) > 0 {
			raws[len(raws)-1].lines = append(raws[len(raws)-1].lines, line)
		}
	}

	for _, raw := range raws {
		ts, err := parseTimestamp(raw.timestamp)
		if err != nil {
			result.errorf("whatsapp: skipping message from %q: %v", raw.sender, err)
			continue
		}
		body := strings.Join(raw.lines, "\n")
		if isWhatsAppSystemRow(body) {
			continue
		}

		msg := newMessage(opts, SourceWhatsApp)
		msg.Timestamp = ts
		msg.SenderID = opts.People.Resolve(raw.sender)

		body = extractWhatsAppAttachments(in, &msg, body, result)
		msg.Content = strings.TrimSpace(body)

		if !keepMessage(&msg) {
			continue
		}
		msg.ExternalID = identity.FallbackExternalID(
			SourceWhatsApp, msg.Timestamp, msg.SenderID, msg.Content, attachmentNames(msg.Attachments))
		result.Messages = append(result.Messages, msg)
	}

	result.sortByTimestamp()
	return result, nil
}

// extractWhatsAppAttachments pulls "<attached: …>" references out of the
// body, reads each file from the archive, and returns the body with the
// references and omitted-media placeholders removed.
func extractWhatsAppAttachments(in *Input, msg *entities.Message, body string, result *Result) string {
	for _, m := range waAttached.FindAllStringSubmatch(body, -1) {
		fileName := strings.TrimSpace(m[1])
		att := entities.Attachment{
			ID:        uuid.NewString(),
			FileName:  fileName,
			Type:      identity.ClassifyAttachment(fileName),
			MimeType:  identity.GuessMimeType(fileName),
			SourceURI: fileName,
		}
		if in.IsZip() {
			if arc, err := in.Archive(); err == nil {
				if data, err := arc.Read(fileName); err == nil {
					att.Data = data
					att.Size = int64(len(data))
				} else {
					result.logf("whatsapp: attachment %q referenced but missing from archive", fileName)
				}
			}
		} else {
			result.logf("whatsapp: attachment %q referenced but no archive was provided", fileName)
		}
		msg.Attachments = append(msg.Attachments, att)
	}
	body = waAttached.ReplaceAllString(body, "")

	var kept []string
	for _, line := range strings.Split(body, "\n") {
		if isOmittedMediaLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isWhatsAppSystemRow(body string) bool {
	lower := strings.ToLower(strings.TrimSpace(body))
	if lower == "null" {
		return true
	}
	for _, marker := range waSystemContains {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	for _, marker := range waSystemExact {
		if lower == marker {
			return true
		}
	}
	return false
}

func isOmittedMediaLine(line string) bool {
	lower := strings.ToLower(strings.TrimSpace(line))
	// Android wraps the placeholder in angle brackets, iOS does not.
	lower = strings.TrimSuffix(strings.TrimPrefix(lower, "<"), ">")
	for _, marker := range waOmittedMarkers {
		if lower == marker {
			return true
		}
	}
	return false
}

// stripMarks removes the directionality control characters WhatsApp
// embeds around timestamps and names, plus a stray byte-order mark.
func stripMarks(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200e', '\u200f', '\u202a', '\u202c', '\ufeff':
			return -1
		}
		return r
	}, s)
}
