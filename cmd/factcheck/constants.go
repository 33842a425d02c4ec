package main

import "time"

// Default limits for CLI commands.
const (
	DefaultListLimit     = 50
	DefaultTrendingLimit = 20
	DefaultInboxLimit    = 50
	DefaultRiskThreshold = 85
)

// Background task intervals for serve.
const (
	sessionSweepInterval = time.Minute
	queueDepthInterval   = 15 * time.Second
	lockCleanupInterval  = time.Minute
	shutdownTimeout      = 10 * time.Second
)
