package identity

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/lerio/luciko/internal/entities"
)

// HashCache memoizes computed content digests for one merge run, keyed by
// attachment id. It is never persisted; hashes are recomputed on the next
// import.
type HashCache map[string]string

// HashBytes returns the hex digest used as attachment content identity.
func HashBytes(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ContentKey derives the identity of one attachment's binary content.
// Resolution order: a hash already on the record, a digest computed from
// the payload (memoized in cache), the archive source URI, and finally a
// metadata tuple. Each weaker scheme is only consulted when the stronger
// one has nothing to offer.
func ContentKey(a *entities.Attachment, cache HashCache) string {
	if a.ContentHash != "" {
		return "hash:" + a.ContentHash
	}
	if len(a.Data) > 0 {
		h, ok := cache[a.ID]
		if !ok {
			h = HashBytes(a.Data)
			cache[a.ID] = h
		}
		return "hash:" + h
	}
	if a.SourceURI != "" {
		return "uri:" + a.SourceURI
	}
	return metadataKey(a.FileName, a.MimeType, a.Size)
}

// MediaContentKey is ContentKey for post media, which persists its source
// URI because the posts archive has no other stable identity.
func MediaContentKey(m *entities.PostMedia, cache HashCache) string {
	if m.ContentHash != "" {
		return "hash:" + m.ContentHash
	}
	if len(m.Data) > 0 {
		h, ok := cache[m.ID]
		if !ok {
			h = HashBytes(m.Data)
			cache[m.ID] = h
		}
		return "hash:" + h
	}
	if m.SourceURI != "" {
		return "uri:" + m.SourceURI
	}
	return metadataKey(m.FileName, m.MimeType, m.Size)
}

// ContentKeys lists every identity an attachment answers to, strongest
// first. The merge step matches an incoming attachment against stored ones
// on any shared key: a metadata-only row keys as the metadata tuple, and
// the later import that carries the bytes must still find it.
func ContentKeys(a *entities.Attachment, cache HashCache) []string {
	var keys []string
	if strongest := ContentKey(a, cache); strings.HasPrefix(strongest, "hash:") {
		keys = append(keys, strongest)
	}
	if a.SourceURI != "" {
		keys = append(keys, "uri:"+a.SourceURI)
	}
	keys = append(keys, metadataKey(a.FileName, a.MimeType, a.Size))
	// The weakest key ignores size: a metadata-only row recorded size 0,
	// and the export that finally carries the file must still reach it.
	if a.FileName != "" {
		keys = append(keys, "name:"+a.FileName)
	}
	return keys
}

// MediaContentKeys is ContentKeys for post media.
func MediaContentKeys(m *entities.PostMedia, cache HashCache) []string {
	var keys []string
	if strongest := MediaContentKey(m, cache); strings.HasPrefix(strongest, "hash:") {
		keys = append(keys, strongest)
	}
	if m.SourceURI != "" {
		keys = append(keys, "uri:"+m.SourceURI)
	}
	keys = append(keys, metadataKey(m.FileName, m.MimeType, m.Size))
	if m.FileName != "" {
		keys = append(keys, "name:"+m.FileName)
	}
	return keys
}

func metadataKey(fileName, mimeType string, size int64) string {
	if fileName == "" {
		return fmt.Sprintf("meta:%s|%d", mimeType, size)
	}
	return fmt.Sprintf("meta:%s|%s|%d", fileName, mimeType, size)
}

var extensionTypes = map[string]entities.AttachmentType{
	".jpg":  entities.AttachmentTypeImage,
	".jpeg": entities.AttachmentTypeImage,
	".png":  entities.AttachmentTypeImage,
	".gif":  entities.AttachmentTypeImage,
	".webp": entities.AttachmentTypeImage,
	".heic": entities.AttachmentTypeImage,
	".bmp":  entities.AttachmentTypeImage,
	".tiff": entities.AttachmentTypeImage,
	".mp4":  entities.AttachmentTypeVideo,
	".mov":  entities.AttachmentTypeVideo,
	".avi":  entities.AttachmentTypeVideo,
	".webm": entities.AttachmentTypeVideo,
	".3gp":  entities.AttachmentTypeVideo,
	".mkv":  entities.AttachmentTypeVideo,
	".mp3":  entities.AttachmentTypeAudio,
	".m4a":  entities.AttachmentTypeAudio,
	".aac":  entities.AttachmentTypeAudio,
	".ogg":  entities.AttachmentTypeAudio,
	".opus": entities.AttachmentTypeAudio,
	".wav":  entities.AttachmentTypeAudio,
}

// ClassifyAttachment derives the attachment type from a file name's
// extension. Anything unrecognized is a document.
func ClassifyAttachment(fileName string) entities.AttachmentType {
	ext := strings.ToLower(filepath.Ext(fileName))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return entities.AttachmentTypeDocument
}

var extensionMimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".3gp":  "video/3gpp",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".opus": "audio/ogg",
	".wav":  "audio/wav",
	".pdf":  "application/pdf",
	".vcf":  "text/vcard",
	".txt":  "text/plain",
}

// GuessMimeType maps a file name's extension to a MIME type, falling back
// to application/octet-stream.
func GuessMimeType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if m, ok := extensionMimeTypes[ext]; ok {
		return m
	}
	return "application/octet-stream"
}
