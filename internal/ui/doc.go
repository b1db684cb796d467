// Package ui implements the interactive download view.
//
// The view is a bubbletea program that consumes the orchestrator's progress
// channel and renders per-track status lines as the run advances, followed
// by the run summary.
package ui
