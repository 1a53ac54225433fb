package config

const (
	// DefaultDatabasePath is where the message vault lives unless
	// DATABASE_PATH overrides it.
	DefaultDatabasePath = "./luciko.db"

	// DefaultChatID names the single conversation collection. The data
	// model keeps chat ids per record for generality, but a deployment
	// holds one conversation.
	DefaultChatID = "main"
)
