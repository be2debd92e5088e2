// Package logging configures structured slog output for doctext.
// Logs go to stderr by default; with --debug they are also written to a
// size-rotated JSON file under ~/.doctext/logs/. In MCP stdio mode nothing
// may touch stdout or stderr, so logs go to the file only.
package logging
