package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lerio/luciko/internal/database"
)

// StateController serves the small per-chat reading state: the single
// bookmark slot and the hidden-item set.
type StateController struct {
	db            *database.Database
	defaultChatID string
}

func NewStateController(db *database.Database, defaultChatID string) *StateController {
	return &StateController{
		db:            db,
		defaultChatID: defaultChatID,
	}
}

func (c *StateController) chatID(ctx *gin.Context) string {
	return ctx.DefaultQuery("chat_id", c.defaultChatID)
}

func (c *StateController) GetBookmark(ctx *gin.Context) {
	itemID, err := c.db.GetBookmark(c.chatID(ctx))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"item_id": itemID})
}

type bookmarkRequest struct {
	ItemID string `json:"item_id" binding:"required"`
}

// SetBookmark replaces the bookmark: one slot per chat, setting a new one
// discards the previous.
func (c *StateController) SetBookmark(ctx *gin.Context) {
	var req bookmarkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "item_id is required"})
		return
	}
	if err := c.db.SetBookmark(c.chatID(ctx), req.ItemID); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"item_id": req.ItemID})
}

func (c *StateController) ClearBookmark(ctx *gin.Context) {
	if err := c.db.ClearBookmark(c.chatID(ctx)); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *StateController) ListHidden(ctx *gin.Context) {
	ids, err := c.db.HiddenItems(c.chatID(ctx))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ids == nil {
		ids = []string{}
	}
	ctx.JSON(http.StatusOK, gin.H{"item_ids": ids})
}

func (c *StateController) HideItem(ctx *gin.Context) {
	if err := c.db.HideItem(c.chatID(ctx), ctx.Param("itemId")); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *StateController) UnhideItem(ctx *gin.Context) {
	if err := c.db.UnhideItem(c.chatID(ctx), ctx.Param("itemId")); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.Status(http.StatusNoContent)
}
