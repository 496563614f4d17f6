package ui

import (
	"github.com/desertthunder/termsync/internal/tasks"
)

// diffCompleteMsg carries the comparison the engine produced on startup or recompare.
type diffCompleteMsg struct {
	diff *tasks.DiffResult
	err  error
}

// progressUpdateMsg carries one engine progress event into the Update loop.
type progressUpdateMsg tasks.ProgressUpdate

// syncCompleteMsg carries the final result once the engine run returns.
type syncCompleteMsg struct {
	result *tasks.RunResult
	err    error
}
