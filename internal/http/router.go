package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	importController := NewImportController(cfg.Database, cfg.People, cfg.DefaultChatID, cfg.TaskClient)
	feed := NewFeedController(cfg.Database, cfg.DefaultChatID)
	state := NewStateController(cfg.Database, cfg.DefaultChatID)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Import endpoints
	router.POST("/api/import", importController.Import)
	router.GET("/api/import/formats", importController.ListFormats)
	router.GET("/api/import/sessions", importController.ListSessions)

	// Feed endpoints
	router.GET("/api/messages", feed.GetMessages)
	router.GET("/api/posts", feed.GetPosts)
	router.GET("/api/attachments/:id/data", feed.GetAttachmentData)

	// Bookmark and hidden-item state
	router.GET("/api/bookmark", state.GetBookmark)
	router.PUT("/api/bookmark", state.SetBookmark)
	router.DELETE("/api/bookmark", state.ClearBookmark)
	router.GET("/api/hidden", state.ListHidden)
	router.POST("/api/hidden/:itemId", state.HideItem)
	router.DELETE("/api/hidden/:itemId", state.UnhideItem)

	return router
}
