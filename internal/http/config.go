package http

import (
	"github.com/lerio/luciko/internal/database"
	"github.com/lerio/luciko/internal/identity"
	"github.com/lerio/luciko/internal/tasks"
)

// RouterConfig bundles the router's dependencies. TaskClient may be nil
// when the queue is disabled; import still works, only the post-import
// blob verification is skipped.
type RouterConfig struct {
	Database      *database.Database
	People        *identity.Directory
	DefaultChatID string
	TaskClient    *tasks.Client
	Version       string
}
