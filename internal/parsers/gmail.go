package parsers

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/lerio/luciko/internal/entities"
	"github.com/lerio/luciko/internal/identity"
)

var mboxSeparator = []byte("From ")

func detectGmail(in *Input) bool {
	if in.IsZip() {
		return false
	}
	if strings.HasSuffix(strings.ToLower(in.FileName), ".mbox") {
		return true
	}
	return bytes.HasPrefix(in.Data, mboxSeparator)
}

// ParseGmail reads a Gmail Takeout mbox file: RFC 5322 messages
// concatenated with "From " separator lines.
func ParseGmail(in *Input, opts Options) (*Result, error) {
	rawMessages := splitMbox(in.Data)
	if len(rawMessages) == 0 {
		return nil, fmt.Errorf("mbox file contains no messages")
	}

	result := &Result{}
	for i, raw := range rawMessages {
		if err := parseGmailMessage(raw, opts, result); err != nil {
			result.errorf("gmail: skipping message %d: %v", i+1, err)
		}
	}

	result.sortByTimestamp()
	return result, nil
}

// splitMbox cuts the file at "From " separator lines. Body lines starting
// with "From " are ">From "-escaped by the format, so an unescaped one at
// column zero is always a message boundary.
func splitMbox(data []byte) [][]byte {
	var messages [][]byte
	var current bytes.Buffer

	flush := func() {
		if current.Len() > 0 {
			msg := make([]byte, current.Len())
			copy(msg, current.Bytes())
			messages = append(messages, msg)
			current.Reset()
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if bytes.HasPrefix(line, mboxSeparator) {
			flush()
			continue
		}
		if bytes.HasPrefix(line, []byte(">From ")) {
			line = line[1:]
		}
		current.Write(line)
		current.WriteByte('\n')
	}
	flush()
	return messages
}

func parseGmailMessage(raw []byte, opts Options, result *Result) error {
	m, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	ts, err := m.Header.Date()
	if err != nil {
		return fmt.Errorf("unparseable Date header: %w", err)
	}

	msg := newMessage(opts, SourceGmail)
	msg.Timestamp = ts
	msg.SenderID = opts.People.Resolve(fromAddress(m.Header.Get("From")))

	body, atts, err := readMailBody(m.Header.Get("Content-Type"),
		m.Header.Get("Content-Transfer-Encoding"), m.Body)
	if err != nil {
		return err
	}
	msg.Content = strings.TrimSpace(body)
	msg.Attachments = atts

	// Notification mails often carry everything in the subject line.
	if msg.Content == "" {
		msg.Content = strings.TrimSpace(decodeHeader(m.Header.Get("Subject")))
	}

	if !keepMessage(&msg) {
		return nil
	}

	if id := strings.Trim(m.Header.Get("Message-ID"), " <>"); id != "" {
		msg.ExternalID = identity.NativeExternalID(SourceGmail, id)
	} else {
		msg.ExternalID = identity.FallbackExternalID(
			SourceGmail, msg.Timestamp, msg.SenderID, msg.Content, attachmentNames(msg.Attachments))
	}
	result.Messages = append(result.Messages, msg)
	return nil
}

// readMailBody walks a message body, recursing into multipart containers.
// text/plain is preferred; an HTML-only message falls back to its stripped
// text. Parts with a file name become attachments.
func readMailBody(contentType, transferEncoding string, body io.Reader) (string, []entities.Attachment, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Plain ASCII mails frequently omit the header entirely.
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return "", nil, fmt.Errorf("multipart message without boundary")
		}
		return readMultipart(body, boundary)
	}

	data, err := decodeTransfer(transferEncoding, body)
	if err != nil {
		return "", nil, err
	}

	switch {
	case mediaType == "text/plain":
		return string(data), nil, nil
	case mediaType == "text/html":
		return htmlToText(data), nil, nil
	default:
		return "", nil, nil
	}
}

func readMultipart(body io.Reader, boundary string) (string, []entities.Attachment, error) {
	var plain, htmlText string
	var atts []entities.Attachment

	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, err
		}

		if name := partFileName(part); name != "" {
			data, err := decodeTransfer(part.Header.Get("Content-Transfer-Encoding"), part)
			if err != nil {
				return "", nil, err
			}
			mimeType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
			if mimeType == "" {
				mimeType = identity.GuessMimeType(name)
			}
			atts = append(atts, entities.Attachment{
				ID:       uuid.NewString(),
				FileName: name,
				Type:     identity.ClassifyAttachment(name),
				MimeType: mimeType,
				Size:     int64(len(data)),
				Data:     data,
			})
			continue
		}

		text, nested, err := readMailBody(part.Header.Get("Content-Type"),
			part.Header.Get("Content-Transfer-Encoding"), part)
		if err != nil {
			return "", nil, err
		}
		atts = append(atts, nested...)

		partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		switch {
		case partType == "text/html":
			if htmlText == "" {
				htmlText = text
			}
		default:
			if plain == "" {
				plain = text
			}
		}
	}

	if plain != "" {
		return plain, atts, nil
	}
	return htmlText, atts, nil
}

func decodeTransfer(encoding string, r io.Reader) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, newLineStripper(r))
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	return io.ReadAll(r)
}

func partFileName(part *multipart.Part) string {
	if name := part.FileName(); name != "" {
		return decodeHeader(name)
	}
	// Inline images declare the name on Content-Type only.
	if _, params, err := mime.ParseMediaType(part.Header.Get("Content-Type")); err == nil {
		if name := params["name"]; name != "" {
			disp, _, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
			if disp == "attachment" || disp == "inline" || disp == "" {
				return decodeHeader(name)
			}
		}
	}
	return ""
}

// htmlToText strips an HTML body down to its visible text, reusing the
// same extraction the Meta parsers run on message blocks.
func htmlToText(data []byte) string {
	doc, err := parseHTML(data)
	if err != nil {
		return ""
	}
	return nodeText(doc)
}

func fromAddress(header string) string {
	addr, err := mail.ParseAddress(header)
	if err != nil {
		return strings.TrimSpace(header)
	}
	if addr.Name != "" {
		return addr.Name
	}
	return addr.Address
}

func decodeHeader(s string) string {
	dec := new(mime.WordDecoder)
	if decoded, err := dec.DecodeHeader(s); err == nil {
		return decoded
	}
	return s
}

// newLineStripper drops CR/LF so the base64 decoder sees one unbroken
// stream.
func newLineStripper(r io.Reader) io.Reader {
	return &lineStripper{r: bufio.NewReader(r)}
}

type lineStripper struct {
	r *bufio.Reader
}

func (ls *lineStripper) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		b, err := ls.r.ReadByte()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}
		if b == '\r' || b == '\n' {
			continue
		}
		p[n] = b
		n++
	}
	return n, nil
}
