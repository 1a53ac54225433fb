package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gmailMboxSample = `From 1000000001@xxx Sun Dec 31 21:15:42 +0000 2023
From: Ada Rossi <ada@example.com>
To: leo@example.com
Subject: ignored when the body has text
Message-ID: <abc123@mail.example.com>
Date: Sun, 31 Dec 2023 22:15:42 +0100

Ciao!
>From here on everything is fine.

From 1000000002@xxx Sun Dec 31 21:20:00 +0000 2023
From: leo@example.com
Date: Sun, 31 Dec 2023 22:20:00 +0100
Message-ID: <def456@mail.example.com>
Content-Type: multipart/mixed; boundary="BOUNDARY42"

--BOUNDARY42
Content-Type: text/plain; charset=UTF-8

see attachment
--BOUNDARY42
Content-Type: application/pdf; name="doc.pdf"
Content-Disposition: attachment; filename="doc.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQ=
--BOUNDARY42--

From 1000000003@xxx Sun Dec 31 21:25:00 +0000 2023
From: Ada Rossi <ada@example.com>
Date: Sun, 31 Dec 2023 22:25:00 +0100
Message-ID: <ghi789@mail.example.com>
Content-Type: text/html; charset=UTF-8

<html><body><p>Hello <b>world</b></p></body></html>

From 1000000004@xxx Sun Dec 31 21:30:00 +0000 2023
From: Ada Rossi <ada@example.com>
Date: Sun, 31 Dec 2023 22:30:00 +0100
Message-ID: <jkl012@mail.example.com>
Subject: =?UTF-8?Q?Promemoria_caff=C3=A8?=

`

func TestParseGmail(t *testing.T) {
	result, err := ParseGmail(NewInput("All mail.mbox", []byte(gmailMboxSample)), testOptions())
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.Len(t, result.Messages, 4)

	first := result.Messages[0]
	assert.Equal(t, "Ada", first.SenderID, "From address resolves through the mapping")
	assert.Equal(t, "Ciao!\nFrom here on everything is fine.", first.Content, "mbox From-escaping undone")
	assert.Equal(t, "gmail|abc123@mail.example.com", first.ExternalID)
	want := time.Date(2023, 12, 31, 21, 15, 42, 0, time.UTC)
	assert.True(t, want.Equal(first.Timestamp), "want %v, got %v", want, first.Timestamp)

	second := result.Messages[1]
	assert.Equal(t, "Leo", second.SenderID)
	assert.Equal(t, "see attachment", second.Content, "text/plain part preferred")
	require.Len(t, second.Attachments, 1)
	assert.Equal(t, "doc.pdf", second.Attachments[0].FileName)
	assert.Equal(t, "application/pdf", second.Attachments[0].MimeType)
	assert.Equal(t, []byte("%PDF-1.4"), second.Attachments[0].Data, "base64 decoded")

	third := result.Messages[2]
	assert.Equal(t, "Hello world", third.Content, "html-only body stripped to text")

	fourth := result.Messages[3]
	assert.Equal(t, "Promemoria caffè", fourth.Content, "subject stands in for an empty body")
}

func TestParseGmailEmptyFile(t *testing.T) {
	_, err := ParseGmail(NewInput("empty.mbox", []byte("")), testOptions())
	assert.Error(t, err)
}
