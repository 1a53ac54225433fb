package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lerio/luciko/internal/entities"
)

// mojibakeHeart is "❤️" (U+2764 U+FE0F) with its UTF-8 bytes read back as
// latin-1 code points, the double encoding Meta exports exhibit. Two of
// the six code points are invisible C1 controls, hence the escapes.
const mojibakeHeart = "\u00e2\u009d\u00a4\u00ef\u00b8\u008f"

var messengerPageSample = `<html><body>
<div class="_a6-g">
  <div class="_a6-h">Ada Rossi</div>
  <div class="_a6-p"><div>CaffÃ¨ domani?</div></div>
  <div class="_a6-o">Dec 31, 2023 10:15:42 PM</div>
</div>
<div class="_a6-g">
  <div class="_a6-h">Leo</div>
  <div class="_a6-p">
    <div>here you go</div>
    <img src="your_facebook_activity/messages/inbox/ada_123/photos/p1.jpg"/>
  </div>
  <ul><li>` + mojibakeHeart + `Ada Rossi</li><li>` + mojibakeHeart + `Leo</li></ul>
  <div class="_a6-o">Dec 31, 2023 10:16:00 PM</div>
</div>
<div class="_a6-g">
  <div class="_a6-p"><div></div></div>
  <div class="_a6-o">Dec 31, 2023 10:17:00 PM</div>
</div>
</body></html>`

func TestParseMessenger(t *testing.T) {
	data := makeZip(t, map[string][]byte{
		"your_facebook_activity/messages/inbox/ada_123/message_1.html":  []byte(messengerPageSample),
		"your_facebook_activity/messages/inbox/ada_123/photos/p1.jpg":  []byte("pixels"),
	})

	result, err := ParseMessenger(NewInput("facebook.zip", data), testOptions())
	require.NoError(t, err)
	require.Empty(t, result.Errors)

	// The empty third block carries nothing and is dropped.
	require.Len(t, result.Messages, 2)

	first := result.Messages[0]
	assert.Equal(t, "Ada", first.SenderID)
	assert.Equal(t, "Caffè domani?", first.Content, "mojibake repaired")
	assert.Equal(t, SourceMessenger, first.Source)

	second := result.Messages[1]
	assert.Equal(t, "Leo", second.SenderID)
	assert.Equal(t, "here you go", second.Content, "media tags never leak into the text")
	require.Len(t, second.Attachments, 1)
	assert.Equal(t, "p1.jpg", second.Attachments[0].FileName)
	assert.Equal(t, entities.AttachmentTypeImage, second.Attachments[0].Type)
	assert.Equal(t, []byte("pixels"), second.Attachments[0].Data)
	require.Len(t, second.Reactions, 1)
	assert.Equal(t, "❤️", second.Reactions[0].Emoji)
	assert.Equal(t, 2, second.Reactions[0].Count)
}

func TestParseInstagramRemoteMediaSkipped(t *testing.T) {
	page := `<html><body>
<div class="_a6-g">
  <div class="_a6-h">Ada Rossi</div>
  <div class="_a6-p"><div>old cdn photo</div>
    <img src="https://cdn.example.com/p2.jpg"/>
  </div>
  <div class="_a6-o">Dec 31, 2023 10:15:42 PM</div>
</div>
</body></html>`
	data := makeZip(t, map[string][]byte{
		"your_instagram_activity/messages/inbox/ada/message_1.html": []byte(page),
	})

	result, err := ParseInstagram(NewInput("instagram.zip", data), testOptions())
	require.NoError(t, err)

	require.Len(t, result.Messages, 1)
	assert.Empty(t, result.Messages[0].Attachments)
	require.Len(t, result.Logs, 1)
	assert.Contains(t, result.Logs[0], "remote media")
	assert.Equal(t, SourceInstagram, result.Messages[0].Source)
}

func TestFixMojibake(t *testing.T) {
	assert.Equal(t, "Caffè", fixMojibake("CaffÃ¨"))
	assert.Equal(t, "❤️", fixMojibake(mojibakeHeart))
	// Clean strings pass through untouched.
	assert.Equal(t, "già fatto ❤️", fixMojibake("già fatto ❤️"))
	assert.Equal(t, "plain ascii", fixMojibake("plain ascii"))
}
