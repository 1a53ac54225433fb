package archive

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestOpenAndRead(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"chat/messages.json":    []byte(`{}`),
		"chat/media/photo.jpg":  []byte("jpeg"),
		"chat/media/Na%C3%AFve": []byte("accents"),
	})

	arc, err := Open(data)
	require.NoError(t, err)
	assert.Len(t, arc.Names(), 3)

	got, err := arc.Read("chat/media/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), got)

	// Backslash separators and leading ./ normalize away.
	got, err = arc.Read(".\\chat\\media\\photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), got)

	// Absolute device paths fall back to the base name.
	got, err = arc.Read("/var/mobile/Library/SMS/photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), got)

	_, err = arc.Read("chat/media/missing.jpg")
	assert.Error(t, err)
}

func TestReadPercentDecoded(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"media/caffè latte.jpg": []byte("photo"),
	})

	arc, err := Open(data)
	require.NoError(t, err)

	// The export references the entry percent-encoded.
	got, err := arc.Read("media/caff%C3%A8%20latte.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("photo"), got)
}

func TestHasPrefixAndFindSuffix(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"your_facebook_activity/posts/your_posts_1.json": []byte("[]"),
		"your_facebook_activity/posts/media/a.jpg":       []byte("x"),
	})

	arc, err := Open(data)
	require.NoError(t, err)

	assert.True(t, arc.HasPrefix("your_facebook_activity/posts"))
	assert.False(t, arc.HasPrefix("messages"))

	paths := arc.FindSuffix(".JSON")
	require.Len(t, paths, 1)
	assert.Equal(t, "your_facebook_activity/posts/your_posts_1.json", paths[0])

	assert.True(t, arc.Has("a.jpg"), "base-name lookup counts")
	assert.False(t, arc.Has("b.jpg"))
}

func TestIsZip(t *testing.T) {
	assert.True(t, IsZip([]byte("PK\x03\x04rest")))
	assert.False(t, IsZip([]byte("PK")))
	assert.False(t, IsZip([]byte("plain text")))
}

func TestOpenRejectsGarbage(t *testing.T) {
	_, err := Open([]byte("not a zip"))
	assert.Error(t, err)
}
