package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lerio/luciko/internal/entities"
)

func TestContentKeyResolutionOrder(t *testing.T) {
	cache := make(HashCache)

	withHash := &entities.Attachment{ID: "a1", ContentHash: "deadbeef", Data: []byte("x")}
	assert.Equal(t, "hash:deadbeef", ContentKey(withHash, cache), "a recorded hash wins over everything")

	withData := &entities.Attachment{ID: "a2", Data: []byte("payload")}
	key := ContentKey(withData, cache)
	assert.Equal(t, "hash:"+HashBytes([]byte("payload")), key)
	assert.Equal(t, key, ContentKey(withData, cache), "digest is memoized per attachment id")

	withURI := &entities.Attachment{ID: "a3", SourceURI: "media/photo.jpg"}
	assert.Equal(t, "uri:media/photo.jpg", ContentKey(withURI, cache))

	metaOnly := &entities.Attachment{ID: "a4", FileName: "doc.pdf", MimeType: "application/pdf", Size: 123}
	assert.Equal(t, "meta:doc.pdf|application/pdf|123", ContentKey(metaOnly, cache))

	nameless := &entities.Attachment{ID: "a5", MimeType: "image/jpeg", Size: 9}
	assert.Equal(t, "meta:image/jpeg|9", ContentKey(nameless, cache))
}

func TestContentKeysReachMetadataOnlyRows(t *testing.T) {
	cache := make(HashCache)

	// A stored metadata-only row: no hash, no bytes, no persisted URI,
	// size unknown.
	stored := &entities.Attachment{ID: "s1", FileName: "photo.jpg", MimeType: "image/jpeg"}
	storedKeys := ContentKeys(stored, cache)
	assert.Contains(t, storedKeys, "name:photo.jpg")

	// A later import carrying the bytes must share a key with it.
	incoming := &entities.Attachment{
		ID: "i1", FileName: "photo.jpg", MimeType: "image/jpeg",
		Data: []byte("jpeg"), Size: 4, SourceURI: "media/photo.jpg",
	}
	incomingKeys := ContentKeys(incoming, cache)
	require.NotEmpty(t, incomingKeys)
	assert.Equal(t, "hash:"+HashBytes([]byte("jpeg")), incomingKeys[0], "strongest key first")

	shared := false
	for _, k := range incomingKeys {
		for _, s := range storedKeys {
			if k == s {
				shared = true
			}
		}
	}
	assert.True(t, shared, "binary-bearing import must reconcile with the metadata-only row")
}

func TestMediaContentKey(t *testing.T) {
	cache := make(HashCache)

	m := &entities.PostMedia{ID: "m1", FileName: "beach.jpg", SourceURI: "posts/media/beach.jpg"}
	assert.Equal(t, "uri:posts/media/beach.jpg", MediaContentKey(m, cache))
	assert.Contains(t, MediaContentKeys(m, cache), "name:beach.jpg")
}

func TestClassifyAttachment(t *testing.T) {
	assert.Equal(t, entities.AttachmentTypeImage, ClassifyAttachment("IMG_0001.HEIC"))
	assert.Equal(t, entities.AttachmentTypeVideo, ClassifyAttachment("clip.mp4"))
	assert.Equal(t, entities.AttachmentTypeAudio, ClassifyAttachment("voice.opus"))
	assert.Equal(t, entities.AttachmentTypeDocument, ClassifyAttachment("notes.pdf"))
	assert.Equal(t, entities.AttachmentTypeDocument, ClassifyAttachment("no-extension"))
}

func TestGuessMimeType(t *testing.T) {
	assert.Equal(t, "image/jpeg", GuessMimeType("photo.JPG"))
	assert.Equal(t, "text/vcard", GuessMimeType("contact.vcf"))
	assert.Equal(t, "application/octet-stream", GuessMimeType("mystery.bin"))
}
