package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Participants
		Tasks
		Cleanup
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path string
	}

	// Participants maps source-native identities onto the two canonical
	// display names of the conversation. Identities are configuration,
	// never code: the parsers receive this mapping at import time.
	Participants struct {
		SelfName  string
		OtherName string

		// Comma-separated raw identities (phone numbers, emails, export
		// display names) belonging to each side.
		SelfAliases  []string
		OtherAliases []string
	}

	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}

	Cleanup struct {
		Enabled  bool
		Schedule string // Cron format: "30 3 * * *" = daily at 03:30
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8177)
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	v.SetDefault("participant_self_name", "")
	v.SetDefault("participant_other_name", "")
	v.SetDefault("participant_self_aliases", "")
	v.SetDefault("participant_other_aliases", "")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Orphan blob cleanup defaults
	v.SetDefault("cleanup_enabled", true)
	v.SetDefault("cleanup_schedule", "30 3 * * *")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Participants: Participants{
			SelfName:     v.GetString("PARTICIPANT_SELF_NAME"),
			OtherName:    v.GetString("PARTICIPANT_OTHER_NAME"),
			SelfAliases:  splitAliases(v.GetString("PARTICIPANT_SELF_ALIASES")),
			OtherAliases: splitAliases(v.GetString("PARTICIPANT_OTHER_ALIASES")),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Cleanup: Cleanup{
			Enabled:  v.GetBool("CLEANUP_ENABLED"),
			Schedule: v.GetString("CLEANUP_SCHEDULE"),
		},
	}
}

func splitAliases(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	aliases := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			aliases = append(aliases, p)
		}
	}
	return aliases
}
