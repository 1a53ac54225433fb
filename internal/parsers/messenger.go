package parsers

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/lerio/luciko/internal/archive"
	"github.com/lerio/luciko/internal/entities"
	"github.com/lerio/luciko/internal/identity"
)

// Messenger and Instagram exports share Meta's HTML markup; only the
// archive layout differs. Both route through parseMetaHTML.

const (
	messengerPrefixNew = "your_facebook_activity/messages"
	messengerPrefixOld = "messages/inbox"
	instagramPrefix    = "your_instagram_activity/messages"
)

func detectMessenger(in *Input) bool {
	arc, err := in.Archive()
	if err != nil {
		return false
	}
	return (arc.HasPrefix(messengerPrefixNew) || arc.HasPrefix(messengerPrefixOld)) &&
		!arc.HasPrefix(instagramPrefix)
}

func detectInstagram(in *Input) bool {
	arc, err := in.Archive()
	if err != nil {
		return false
	}
	return arc.HasPrefix(instagramPrefix)
}

func ParseMessenger(in *Input, opts Options) (*Result, error) {
	return parseMetaHTML(in, opts, SourceMessenger)
}

func ParseInstagram(in *Input, opts Options) (*Result, error) {
	return parseMetaHTML(in, opts, SourceInstagram)
}

func parseMetaHTML(in *Input, opts Options, source string) (*Result, error) {
	arc, err := in.Archive()
	if err != nil {
		return nil, err
	}

	pages := messagePages(arc)
	if len(pages) == 0 {
		return nil, fmt.Errorf("%s archive contains no message pages", source)
	}

	result := &Result{}
	for _, page := range pages {
		if err := parseMetaPage(arc, page, opts, source, result); err != nil {
			return nil, err
		}
	}

	result.sortByTimestamp()
	return result, nil
}

// messagePages lists the conversation HTML files, ordered so page numbers
// sort naturally within one thread.
func messagePages(arc *archive.Archive) []string {
	var pages []string
	for _, p := range arc.FindSuffix(".html") {
		base := p[strings.LastIndex(p, "/")+1:]
		if strings.HasPrefix(base, "message_") {
			pages = append(pages, p)
		}
	}
	sort.Strings(pages)
	return pages
}

func parseMetaPage(arc *archive.Archive, page string, opts Options, source string, result *Result) error {
	data, err := arc.Read(page)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", page, err)
	}
	doc, err := parseHTML(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", page, err)
	}

	for _, block := range findByClass(doc, metaClassBlock) {
		senderNode := firstByClass(block, metaClassSender)
		tsNode := firstByClass(block, metaClassTimestamp)
		contentNode := firstByClass(block, metaClassContent)
		if tsNode == nil {
			result.errorf("%s: %s: message block without a timestamp", source, page)
			continue
		}

		ts, err := parseTimestamp(nodeText(tsNode))
		if err != nil {
			result.errorf("%s: %s: %v", source, page, err)
			continue
		}

		msg := newMessage(opts, source)
		msg.Timestamp = ts
		if senderNode != nil {
			msg.SenderID = opts.People.Resolve(fixMojibake(nodeText(senderNode)))
		}
		if contentNode != nil {
			msg.Content = fixMojibake(nodeText(contentNode))
			readMetaMedia(arc, contentNode, &msg, source, result)
			msg.Reactions = metaReactions(block)
		}

		if !keepMessage(&msg) {
			continue
		}
		msg.ExternalID = identity.FallbackExternalID(
			source, msg.Timestamp, msg.SenderID, msg.Content, attachmentNames(msg.Attachments))
		result.Messages = append(result.Messages, msg)
	}
	return nil
}

// readMetaMedia turns the media elements under a content node into
// attachments, reading each referenced file from the archive. A missing
// file is advisory: the message is still imported without it.
func readMetaMedia(arc *archive.Archive, contentNode *html.Node, msg *entities.Message, source string, result *Result) {
	for _, src := range mediaSources(contentNode) {
		if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
			// CDN references in older exports; nothing to read locally.
			result.logf("%s: skipping remote media %s", source, src)
			continue
		}
		fileName := src[strings.LastIndex(src, "/")+1:]
		att := entities.Attachment{
			ID:        uuid.NewString(),
			FileName:  fileName,
			Type:      identity.ClassifyAttachment(fileName),
			MimeType:  identity.GuessMimeType(fileName),
			SourceURI: src,
		}
		if data, err := arc.Read(src); err == nil {
			att.Data = data
			att.Size = int64(len(data))
		} else {
			result.logf("%s: media %s referenced but missing from archive", source, src)
		}
		msg.Attachments = append(msg.Attachments, att)
	}
}

// metaReactions reads the reaction list Meta renders under a message
// block: one <li> per reactor, emoji first, reactor name after.
func metaReactions(block *html.Node) []entities.Reaction {
	var emojis []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "li" {
			if e := leadingEmoji(fixMojibake(nodeText(n))); e != "" {
				emojis = append(emojis, e)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(block)
	return aggregateReactions(emojis)
}

// leadingEmoji splits a reaction list item ("❤️Ada") into its emoji part.
func leadingEmoji(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}
