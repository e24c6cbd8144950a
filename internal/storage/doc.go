package storage

// Package storage provides a minimal persistence layer used by the bot.
//
// It currently supports:
//   - The FINDEMY session (token + user profile), reused across restarts
//   - An append-only delivery log of fired reminder notifications
//
// Scheduled reminder jobs themselves are never persisted; a restart
// relies on the startup resync to re-arm them.
