package entrypoint

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lerio/luciko/internal/config"
	"github.com/lerio/luciko/internal/database"
	"github.com/lerio/luciko/internal/identity"
	"github.com/lerio/luciko/internal/importer"
	"github.com/lerio/luciko/internal/parsers"
)

// RunImport is the one-shot import command: parse one export file and
// merge it into the configured database, without starting the server.
func RunImport(cfg *config.Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	input := parsers.NewInput(filepath.Base(filePath), data)
	format, err := parsers.DetectFormat(input)
	if err != nil {
		return err
	}
	fmt.Printf("Detected format: %s\n", format.Name)

	result, err := format.Parse(input, parsers.Options{
		ChatID: config.DefaultChatID,
		People: identity.NewDirectory(cfg.Participants),
	})
	if err != nil {
		return fmt.Errorf("failed to parse %s export: %w", format.Name, err)
	}

	merger := importer.NewMerger(db)
	messageStats := merger.MergeMessages(result.Messages)
	postStats := merger.MergePosts(result.Posts)

	fmt.Printf("Parsed %d records: %d created, %d updated, %d unchanged\n",
		messageStats.Total+postStats.Total,
		messageStats.Created+postStats.Created,
		messageStats.Updated+postStats.Updated,
		messageStats.Unchanged+postStats.Unchanged)

	for _, line := range append(result.Logs, append(messageStats.Logs, postStats.Logs...)...) {
		fmt.Printf("  log: %s\n", line)
	}
	for _, line := range append(result.Errors, append(messageStats.Errors, postStats.Errors...)...) {
		fmt.Printf("  error: %s\n", line)
	}
	return nil
}
