package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lerio/luciko/internal/config"
	"github.com/lerio/luciko/internal/database"
	"github.com/lerio/luciko/internal/identity"
	"github.com/lerio/luciko/internal/tasks"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	people := identity.NewDirectory(config.Participants{
		SelfName:     "Leo",
		OtherName:    "Ada",
		SelfAliases:  []string{"+39 333 123 4567"},
		OtherAliases: []string{"Ada Rossi"},
	})

	return NewRouter(RouterConfig{
		Database:      db,
		People:        people,
		DefaultChatID: "main",
		Version:       "test",
	})
}

func doRequest(router *gin.Engine, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func importChatFile(t *testing.T, router *gin.Engine, fileName, content string) ImportResult {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("export_file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := doRequest(router, http.MethodPost, "/api/import", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result ImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

const testChat = "31/12/23, 22:15 - Ada Rossi: hello\n31/12/23, 22:16 - Leo: hi there\n"

func TestHealthAndPing(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status"`)

	w = doRequest(router, http.MethodGet, "/ping", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

func TestImportEndToEnd(t *testing.T) {
	router := newTestRouter(t)

	result := importChatFile(t, router, "chat.txt", testChat)
	assert.True(t, result.Success)
	assert.Equal(t, "whatsapp", result.Format)
	assert.Equal(t, 2, result.Parsed)
	assert.Equal(t, 2, result.Created)

	// Importing the same file again changes nothing.
	result = importChatFile(t, router, "chat.txt", testChat)
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 2, result.Unchanged)

	// Both runs were recorded.
	w := doRequest(router, http.MethodGet, "/api/import/sessions", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var sessions struct {
		Sessions []struct {
			Source string `json:"source"`
			Parsed int    `json:"parsed"`
		} `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sessions))
	require.Len(t, sessions.Sessions, 2)
	assert.Equal(t, "whatsapp", sessions.Sessions[0].Source)

	// The merged timeline is served back.
	w = doRequest(router, http.MethodGet, "/api/messages", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var feed struct {
		Messages []struct {
			SenderID string `json:"sender_id"`
			Content  string `json:"content"`
		} `json:"messages"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &feed))
	assert.Equal(t, 2, feed.Total)
	require.Len(t, feed.Messages, 2)
	assert.Equal(t, "Ada", feed.Messages[0].SenderID)
	assert.Equal(t, "hello", feed.Messages[0].Content)
}

func TestImportEnqueuesBlobVerification(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	taskClient, err := tasks.NewClient(filepath.Join(t.TempDir(), "vault.db"), tasks.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { taskClient.Close() })
	taskClient.Register(tasks.NewVerifyBlobsQueue(db))

	people := identity.NewDirectory(config.Participants{
		SelfName:     "Leo",
		OtherName:    "Ada",
		OtherAliases: []string{"Ada Rossi"},
	})
	router := NewRouter(RouterConfig{
		Database:      db,
		People:        people,
		DefaultChatID: "main",
		TaskClient:    taskClient,
		Version:       "test",
	})

	result := importChatFile(t, router, "chat.txt", testChat)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Created)
}

func TestImportMissingFile(t *testing.T) {
	router := newTestRouter(t)
	w := doRequest(router, http.MethodPost, "/api/import", nil, "multipart/form-data")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Export file not provided")
}

func TestImportUnknownFormatOverride(t *testing.T) {
	router := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("export_file", "chat.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte(testChat))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("format", "carrier-pigeon"))
	require.NoError(t, mw.Close())

	w := doRequest(router, http.MethodPost, "/api/import", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown format")
}

func TestListFormats(t *testing.T) {
	router := newTestRouter(t)
	w := doRequest(router, http.MethodGet, "/api/import/formats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	for _, name := range []string{"whatsapp", "messenger", "gmail", "facebook_posts"} {
		assert.Contains(t, w.Body.String(), name)
	}
}

func TestAttachmentDataNotFound(t *testing.T) {
	router := newTestRouter(t)
	w := doRequest(router, http.MethodGet, "/api/attachments/no-such-id/data", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookmarkLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/bookmark", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"item_id":""`)

	body := bytes.NewBufferString(`{"item_id":"msg-42"}`)
	w = doRequest(router, http.MethodPut, "/api/bookmark", body, "application/json")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/bookmark", nil, "")
	assert.Contains(t, w.Body.String(), "msg-42")

	// A missing item_id is rejected.
	w = doRequest(router, http.MethodPut, "/api/bookmark", bytes.NewBufferString(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodDelete, "/api/bookmark", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(router, http.MethodGet, "/api/bookmark", nil, "")
	assert.Contains(t, w.Body.String(), `"item_id":""`)
}

func TestHiddenItems(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/hidden", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"item_ids":[]`)

	w = doRequest(router, http.MethodPost, "/api/hidden/msg-1", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doRequest(router, http.MethodPost, "/api/hidden/msg-2", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(router, http.MethodGet, "/api/hidden", nil, "")
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "msg-1") && strings.Contains(body, "msg-2"))

	w = doRequest(router, http.MethodDelete, "/api/hidden/msg-1", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(router, http.MethodGet, "/api/hidden", nil, "")
	assert.NotContains(t, w.Body.String(), "msg-1")
	assert.Contains(t, w.Body.String(), "msg-2")
}
