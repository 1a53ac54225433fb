package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lerio/luciko/internal/entities"
)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newMessage(chatID, content string, ts time.Time) *entities.Message {
	return &entities.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		SenderID:  "Leo",
		Content:   content,
		Timestamp: ts,
		Source:    "whatsapp",
	}
}

func TestMessagesPageOrdering(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2023, 12, 31, 22, 0, 0, 0, time.UTC)

	require.NoError(t, db.CreateMessage(newMessage("main", "third", base.Add(2*time.Minute))))
	require.NoError(t, db.CreateMessage(newMessage("main", "first", base)))
	require.NoError(t, db.CreateMessage(newMessage("main", "second", base.Add(time.Minute))))
	require.NoError(t, db.CreateMessage(newMessage("work", "elsewhere", base)))

	n, err := db.CountMessages("main")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	page, err := db.MessagesPage("main", 0, 0)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "first", page[0].Content)
	assert.Equal(t, "second", page[1].Content)
	assert.Equal(t, "third", page[2].Content)

	page, err = db.MessagesPage("main", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "second", page[0].Content)
}

func TestFindMessageByExternalID(t *testing.T) {
	db := newTestDB(t)
	msg := newMessage("main", "hello", time.Now().UTC())
	msg.ExternalID = "whatsapp|1|Leo|hello|"
	require.NoError(t, db.CreateMessage(msg))

	found, err := db.FindMessageByExternalID("whatsapp|1|Leo|hello|")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, msg.ID, found.ID)

	found, err = db.FindMessageByExternalID("no-such-id")
	require.NoError(t, err)
	assert.Nil(t, found, "not-found is nil, not an error")
}

func TestReplaceReactions(t *testing.T) {
	db := newTestDB(t)
	msg := newMessage("main", "hello", time.Now().UTC())
	msg.Reactions = []entities.Reaction{{Emoji: "👍", Count: 1}}
	require.NoError(t, db.CreateMessage(msg))

	err := db.ReplaceReactions(msg.ID, []entities.Reaction{
		{Emoji: "❤️", Count: 2},
		{Emoji: "😂", Count: 1},
	})
	require.NoError(t, err)

	page, err := db.MessagesPage("main", 0, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Len(t, page[0].Reactions, 2)
	assert.Equal(t, "❤️", page[0].Reactions[0].Emoji)
	assert.Equal(t, 2, page[0].Reactions[0].Count)

	// Replacing with nothing clears the rows.
	require.NoError(t, db.ReplaceReactions(msg.ID, nil))
	page, err = db.MessagesPage("main", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, page[0].Reactions)
}

func TestBlobRoundTrip(t *testing.T) {
	db := newTestDB(t)
	id := uuid.NewString()

	got, err := db.GetBlob(id)
	require.NoError(t, err)
	assert.Nil(t, got, "missing blob is nil, not an error")

	require.NoError(t, db.PutBlob(id, []byte("v1")))
	got, err = db.GetBlob(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// Overwrite is allowed: the binary can arrive after the metadata row.
	require.NoError(t, db.PutBlob(id, []byte("v2-longer")))
	got, err = db.GetBlob(id)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2-longer"), got)
}

func TestOrphanBlobIDs(t *testing.T) {
	db := newTestDB(t)

	msg := newMessage("main", "with attachment", time.Now().UTC())
	att := entities.Attachment{ID: uuid.NewString(), FileName: "a.jpg"}
	msg.Attachments = []entities.Attachment{att}
	require.NoError(t, db.CreateMessage(msg))
	require.NoError(t, db.PutBlob(att.ID, []byte("kept")))

	orphanID := uuid.NewString()
	require.NoError(t, db.PutBlob(orphanID, []byte("orphan")))

	ids, err := db.OrphanBlobIDs()
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, orphanID, ids[0])

	require.NoError(t, db.DeleteBlobs(ids))
	ids, err = db.OrphanBlobIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)

	got, err := db.GetBlob(att.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("kept"), got, "referenced blob survives cleanup")
}

func TestBookmark(t *testing.T) {
	db := newTestDB(t)

	got, err := db.GetBookmark("main")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, db.SetBookmark("main", "item-1"))
	require.NoError(t, db.SetBookmark("main", "item-2"))

	got, err = db.GetBookmark("main")
	require.NoError(t, err)
	assert.Equal(t, "item-2", got, "setting again moves the bookmark")

	require.NoError(t, db.ClearBookmark("main"))
	got, err = db.GetBookmark("main")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHiddenItems(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.HideItem("main", "item-1"))
	require.NoError(t, db.HideItem("main", "item-1"), "hiding twice is a no-op")
	require.NoError(t, db.HideItem("main", "item-2"))
	require.NoError(t, db.HideItem("work", "item-3"))

	ids, err := db.HiddenItems("main")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"item-1", "item-2"}, ids)

	require.NoError(t, db.UnhideItem("main", "item-1"))
	ids, err = db.HiddenItems("main")
	require.NoError(t, err)
	assert.Equal(t, []string{"item-2"}, ids)
}

func TestImportSessions(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	for i, src := range []string{"whatsapp", "gmail", "imessage"} {
		started := now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, db.CreateImportSession(&entities.ImportSession{
			Source:    src,
			Status:    entities.ImportStatusCompleted,
			Parsed:    10,
			StartedAt: started,
		}))
	}

	sessions, err := db.GetImportSessions(2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "imessage", sessions[0].Source, "newest first")
	assert.Equal(t, "gmail", sessions[1].Source)
}
