// Package ui renders plans, progress events and stack outputs for the
// terminal, and asks for confirmation before destructive operations.
package ui
