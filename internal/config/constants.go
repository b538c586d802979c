package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Generation topics must fall within these bounds; anything outside is
// rejected before a credit is touched.
const (
	TopicMinLength = 5
	TopicMaxLength = 500
)

// Question generation can take tens of seconds against the LLM.
const GenerationTimeout = 90 * time.Second

// New chat-surface accounts start with one free credit.
const SignupFreeCredits = 1
