// Package parsers converts heterogeneous chat/post export archives into
// normalized records. One parser per export format; all share the same
// contract: a single malformed row is logged and skipped, only a broken
// archive fails the whole parse.
package parsers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/lerio/luciko/internal/archive"
	"github.com/lerio/luciko/internal/entities"
	"github.com/lerio/luciko/internal/identity"
)

// Input is one uploaded export file, with the archive opened at most once
// across detection and parsing.
type Input struct {
	FileName string
	Data     []byte

	arc    *archive.Archive
	arcErr error
	opened bool
}

func NewInput(fileName string, data []byte) *Input {
	return &Input{FileName: fileName, Data: data}
}

// Archive opens the input as a zip, caching the result so the detector
// and the parser share one decompression pass.
func (in *Input) Archive() (*archive.Archive, error) {
	if !in.opened {
		in.opened = true
		if !archive.IsZip(in.Data) {
			in.arcErr = fmt.Errorf("%s is not a zip archive", in.FileName)
		} else {
			in.arc, in.arcErr = archive.Open(in.Data)
		}
	}
	return in.arc, in.arcErr
}

func (in *Input) IsZip() bool {
	return archive.IsZip(in.Data)
}

// Options carries the per-import context every parser needs.
type Options struct {
	ChatID string
	People *identity.Directory
}

// Result is the uniform parser output. Messages or Posts is populated,
// never both. Errors hold skipped records, Logs hold advisory notes
// (missing media, weakened identity); neither aborts a parse.
type Result struct {
	Messages []entities.Message
	Posts    []entities.Post
	Errors   []string
	Logs     []string
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) logf(format string, args ...any) {
	r.Logs = append(r.Logs, fmt.Sprintf(format, args...))
}

// sortByTimestamp orders output ascending by timestamp. Source ordering is
// not trusted: table dumps and merged feeds arrive out of order.
func (r *Result) sortByTimestamp() {
	sort.SliceStable(r.Messages, func(i, j int) bool {
		return r.Messages[i].Timestamp.Before(r.Messages[j].Timestamp)
	})
	sort.SliceStable(r.Posts, func(i, j int) bool {
		return r.Posts[i].Timestamp.Before(r.Posts[j].Timestamp)
	})
}

// Format couples a detection predicate with a parse function.
type Format struct {
	Name   string
	Detect func(in *Input) bool
	Parse  func(in *Input, opts Options) (*Result, error)
}

// Detection order matters: the HTML-based Meta formats share markup, so
// the archive-layout checks that tell them apart run before the generic
// ones.
var registry = []Format{
	{Name: SourceWhatsApp, Detect: detectWhatsApp, Parse: ParseWhatsApp},
	{Name: SourceInstagram, Detect: detectInstagram, Parse: ParseInstagram},
	{Name: SourceFacebookPosts, Detect: detectFacebookPosts, Parse: ParseFacebookPosts},
	{Name: SourceMessenger, Detect: detectMessenger, Parse: ParseMessenger},
	{Name: SourceGoogleChat, Detect: detectGoogleChat, Parse: ParseGoogleChat},
	{Name: SourceGoogleChatCSV, Detect: detectGoogleChatCSV, Parse: ParseGoogleChatCSV},
	{Name: SourceIMessage, Detect: detectIMessage, Parse: ParseIMessage},
	{Name: SourceGmail, Detect: detectGmail, Parse: ParseGmail},
}

// Source tags, stored on every record for display.
const (
	SourceWhatsApp      = "whatsapp"
	SourceMessenger     = "messenger"
	SourceInstagram     = "instagram"
	SourceGoogleChat    = "googlechat"
	SourceGoogleChatCSV = "googlechat_csv"
	SourceIMessage      = "imessage"
	SourceGmail         = "gmail"
	SourceFacebookPosts = "facebook_posts"
)

// Formats exposes the registry, mainly for listing supported sources.
func Formats() []Format {
	return registry
}

// DetectFormat sniffs the input and returns the matching format.
func DetectFormat(in *Input) (*Format, error) {
	for i := range registry {
		if registry[i].Detect(in) {
			return &registry[i], nil
		}
	}
	return nil, fmt.Errorf("unrecognized export format: %s", in.FileName)
}

// newMessage builds the message skeleton every parser starts from.
func newMessage(opts Options, source string) entities.Message {
	return entities.Message{
		ID:     uuid.NewString(),
		ChatID: opts.ChatID,
		Status: entities.MessageStatusRead,
		Source: source,
	}
}

// keepMessage decides whether a parsed row is worth emitting: rows with no
// text, no attachments and no reactions are dropped silently, they carry
// nothing a timeline could show.
func keepMessage(m *entities.Message) bool {
	return strings.TrimSpace(m.Content) != "" || len(m.Attachments) > 0 || len(m.Reactions) > 0
}

// attachmentNames joins the file names that feed the fallback external id.
func attachmentNames(atts []entities.Attachment) []string {
	names := make([]string, 0, len(atts))
	for _, a := range atts {
		names = append(names, a.FileName)
	}
	return names
}

// aggregateReactions turns one emoji per reactor into the stored
// {emoji, count} form, deduplicated and alphabetically ordered.
func aggregateReactions(emojis []string) []entities.Reaction {
	if len(emojis) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, e := range emojis {
		e = strings.TrimSpace(e)
		if e != "" {
			counts[e]++
		}
	}
	keys := make([]string, 0, len(counts))
	for e := range counts {
		keys = append(keys, e)
	}
	sort.Strings(keys)
	reactions := make([]entities.Reaction, 0, len(keys))
	for _, e := range keys {
		reactions = append(reactions, entities.Reaction{Emoji: e, Count: counts[e]})
	}
	return reactions
}
