package parsers

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lerio/luciko/internal/config"
	"github.com/lerio/luciko/internal/identity"
)

func makeZip(t *testing.T, files map[string][]byte) []byte {
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

func testOptions() Options {
	return Options{
		ChatID: "main",
		People: identity.NewDirectory(config.Participants{
			SelfName:     "Leo",
			OtherName:    "Ada",
			SelfAliases:  []string{"+39 333 123 4567", "leo@example.com"},
			OtherAliases: []string{"ada@example.com", "Ada Rossi"},
		}),
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		data     func(t *testing.T) []byte
		want     string
	}{
		{
			name:     "whatsapp zip",
			fileName: "export.zip",
			data: func(t *testing.T) []byte {
				return makeZip(t, map[string][]byte{
					"_chat.txt": []byte("[31/12/23, 22:15:42] Ada: hi\n"),
				})
			},
			want: SourceWhatsApp,
		},
		{
			name:     "whatsapp bare txt",
			fileName: "chat.txt",
			data: func(t *testing.T) []byte {
				return []byte("31/12/23, 22:15 - Ada: hi\n")
			},
			want: SourceWhatsApp,
		},
		{
			name:     "messenger zip",
			fileName: "facebook.zip",
			data: func(t *testing.T) []byte {
				return makeZip(t, map[string][]byte{
					"your_facebook_activity/messages/inbox/ada/message_1.html": []byte("<html></html>"),
				})
			},
			want: SourceMessenger,
		},
		{
			name:     "instagram zip",
			fileName: "instagram.zip",
			data: func(t *testing.T) []byte {
				return makeZip(t, map[string][]byte{
					"your_instagram_activity/messages/inbox/ada/message_1.html": []byte("<html></html>"),
				})
			},
			want: SourceInstagram,
		},
		{
			name:     "google chat zip",
			fileName: "takeout.zip",
			data: func(t *testing.T) []byte {
				return makeZip(t, map[string][]byte{
					"Google Chat/Groups/DM 1234/messages.json": []byte(`{"messages":[]}`),
				})
			},
			want: SourceGoogleChat,
		},
		{
			name:     "google chat legacy csv",
			fileName: "hangouts.csv",
			data: func(t *testing.T) []byte {
				return []byte("timestamp,sender,text\n2021-06-01 12:00:00,ada@example.com,hi\n")
			},
			want: SourceGoogleChatCSV,
		},
		{
			name:     "imessage json",
			fileName: "messages.json",
			data: func(t *testing.T) []byte {
				return []byte(`[{"guid":"A1","is_from_me":true,"text":"hi","date":"2021-06-01 12:00:00"}]`)
			},
			want: SourceIMessage,
		},
		{
			name:     "gmail mbox",
			fileName: "All mail.mbox",
			data: func(t *testing.T) []byte {
				return []byte("From 123@xxx Mon Jun 01 12:00:00 2021\nSubject: hi\n\nbody\n")
			},
			want: SourceGmail,
		},
		{
			name:     "facebook posts zip",
			fileName: "facebook.zip",
			data: func(t *testing.T) []byte {
				return makeZip(t, map[string][]byte{
					"your_facebook_activity/posts/your_posts_1.json": []byte(`[]`),
				})
			},
			want: SourceFacebookPosts,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, err := DetectFormat(NewInput(tt.fileName, tt.data(t)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, format.Name)
		})
	}
}

func TestDetectFormatUnknown(t *testing.T) {
	_, err := DetectFormat(NewInput("notes.txt", []byte("just some notes")))
	assert.Error(t, err)
}

func TestAggregateReactions(t *testing.T) {
	reactions := aggregateReactions([]string{"👍", "❤️", "👍", " ", "❤️", "❤️"})
	require.Len(t, reactions, 2)
	assert.Equal(t, "❤️", reactions[0].Emoji)
	assert.Equal(t, 3, reactions[0].Count)
	assert.Equal(t, "👍", reactions[1].Emoji)
	assert.Equal(t, 2, reactions[1].Count)
}
