package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lerio/luciko/internal/database"
)

const defaultPageSize = 100

type FeedController struct {
	db            *database.Database
	defaultChatID string
}

func NewFeedController(db *database.Database, defaultChatID string) *FeedController {
	return &FeedController{
		db:            db,
		defaultChatID: defaultChatID,
	}
}

// GetMessages returns one page of the merged timeline, timestamp ascending.
func (c *FeedController) GetMessages(ctx *gin.Context) {
	chatID := ctx.DefaultQuery("chat_id", c.defaultChatID)
	offset, limit := pagination(ctx)

	total, err := c.db.CountMessages(chatID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	messages, err := c.db.MessagesPage(chatID, offset, limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"total":    total,
		"offset":   offset,
		"limit":    limit,
	})
}

func (c *FeedController) GetPosts(ctx *gin.Context) {
	offset, limit := pagination(ctx)

	total, err := c.db.CountPosts()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	posts, err := c.db.PostsPage(offset, limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"posts":  posts,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// GetAttachmentData streams the stored binary for an attachment or post
// media id. 404 covers both an unknown id and a metadata-only attachment
// whose bytes never arrived in any export.
func (c *FeedController) GetAttachmentData(ctx *gin.Context) {
	id := ctx.Param("id")

	data, err := c.db.GetBlob(id)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if data == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no binary stored for this attachment"})
		return
	}

	mimeType := ctx.DefaultQuery("mime_type", "application/octet-stream")
	ctx.Data(http.StatusOK, mimeType, data)
}

func pagination(ctx *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 1000 {
		limit = defaultPageSize
	}
	return offset, limit
}
