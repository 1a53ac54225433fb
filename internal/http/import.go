package http

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lerio/luciko/internal/database"
	"github.com/lerio/luciko/internal/entities"
	"github.com/lerio/luciko/internal/identity"
	"github.com/lerio/luciko/internal/importer"
	"github.com/lerio/luciko/internal/parsers"
	"github.com/lerio/luciko/internal/tasks"
)

const (
	maxImportFileSize = 1024 * 1024 * 1024 // 1 GB
)

type ImportController struct {
	db            *database.Database
	people        *identity.Directory
	defaultChatID string
	taskClient    *tasks.Client
}

func NewImportController(db *database.Database, people *identity.Directory, defaultChatID string, taskClient *tasks.Client) *ImportController {
	return &ImportController{
		db:            db,
		people:        people,
		defaultChatID: defaultChatID,
		taskClient:    taskClient,
	}
}

type ImportResult struct {
	Success   bool     `json:"success"`
	Error     string   `json:"error,omitempty"`
	Format    string   `json:"format,omitempty"`
	Parsed    int      `json:"parsed"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Unchanged int      `json:"unchanged"`
	Errors    []string `json:"errors,omitempty"`
	Logs      []string `json:"logs,omitempty"`
}

// Import receives one export file, detects its format, parses it, and
// merges the result into the store.
func (c *ImportController) Import(ctx *gin.Context) {
	file, header, err := ctx.Request.FormFile("export_file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, &ImportResult{
			Success: false,
			Error:   "Export file not provided",
		})
		return
	}
	defer file.Close()

	if header.Size > maxImportFileSize {
		ctx.JSON(http.StatusBadRequest, &ImportResult{
			Success: false,
			Error:   fmt.Sprintf("File too large (max %d MB)", maxImportFileSize/(1024*1024)),
		})
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxImportFileSize+1))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, &ImportResult{
			Success: false,
			Error:   fmt.Sprintf("Failed to read file: %v", err),
		})
		return
	}

	input := parsers.NewInput(header.Filename, data)
	format, err := c.resolveFormat(ctx.PostForm("format"), input)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, &ImportResult{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	chatID := ctx.PostForm("chat_id")
	if chatID == "" {
		chatID = c.defaultChatID
	}

	startedAt := time.Now()
	parsed, err := format.Parse(input, parsers.Options{ChatID: chatID, People: c.people})
	if err != nil {
		ctx.JSON(http.StatusBadRequest, &ImportResult{
			Success: false,
			Format:  format.Name,
			Error:   fmt.Sprintf("Failed to parse %s export: %v", format.Name, err),
		})
		return
	}

	merger := importer.NewMerger(c.db)
	messageStats := merger.MergeMessages(parsed.Messages)
	postStats := merger.MergePosts(parsed.Posts)

	result := &ImportResult{
		Success:   true,
		Format:    format.Name,
		Parsed:    messageStats.Total + postStats.Total,
		Created:   messageStats.Created + postStats.Created,
		Updated:   messageStats.Updated + postStats.Updated,
		Unchanged: messageStats.Unchanged + postStats.Unchanged,
	}
	result.Errors = append(result.Errors, parsed.Errors...)
	result.Errors = append(result.Errors, messageStats.Errors...)
	result.Errors = append(result.Errors, postStats.Errors...)
	result.Logs = append(result.Logs, parsed.Logs...)
	result.Logs = append(result.Logs, messageStats.Logs...)
	result.Logs = append(result.Logs, postStats.Logs...)

	c.recordSession(format.Name, result, startedAt)

	if c.taskClient != nil && result.Created+result.Updated > 0 {
		task := tasks.VerifyBlobsTask{Source: format.Name}
		if _, err := c.taskClient.Add(task).Save(); err != nil {
			log.Printf("WARNING: failed to enqueue blob verification: %v", err)
		}
	}

	log.Printf("Imported %s export %q: %d parsed, %d created, %d updated, %d errors",
		format.Name, header.Filename, result.Parsed, result.Created, result.Updated, len(result.Errors))

	ctx.JSON(http.StatusOK, result)
}

// resolveFormat honors an explicit format override and falls back to
// detection.
func (c *ImportController) resolveFormat(name string, input *parsers.Input) (*parsers.Format, error) {
	if name == "" {
		return parsers.DetectFormat(input)
	}
	for _, f := range parsers.Formats() {
		if f.Name == name {
			return &f, nil
		}
	}
	return nil, fmt.Errorf("unknown format: %s", name)
}

func (c *ImportController) recordSession(source string, result *ImportResult, startedAt time.Time) {
	completedAt := time.Now()
	session := &entities.ImportSession{
		Source:      source,
		Status:      entities.ImportStatusCompleted,
		Parsed:      result.Parsed,
		Imported:    result.Created + result.Updated,
		ErrorCount:  len(result.Errors),
		LogCount:    len(result.Logs),
		StartedAt:   startedAt,
		CompletedAt: &completedAt,
	}
	if err := c.db.CreateImportSession(session); err != nil {
		log.Printf("WARNING: failed to record import session: %v", err)
	}
}

type FormatInfo struct {
	Name string `json:"name"`
}

func (c *ImportController) ListFormats(ctx *gin.Context) {
	formats := make([]FormatInfo, 0, len(parsers.Formats()))
	for _, f := range parsers.Formats() {
		formats = append(formats, FormatInfo{Name: f.Name})
	}
	ctx.JSON(http.StatusOK, gin.H{"formats": formats})
}

func (c *ImportController) ListSessions(ctx *gin.Context) {
	sessions, err := c.db.GetImportSessions(50)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"sessions": sessions})
}
