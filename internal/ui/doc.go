// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for payment term reconciliation:
//  1. [BucketListView] : Browse the comparison buckets (missing, mismatched, registry-only, matching)
//  2. [TermListView] : Inspect the terms inside one bucket
//  3. [ConfirmView] : Confirm creating the missing terms
//  4. [SyncView] : Monitor real-time progress updates
//  5. [ResultView] : Display the sync ending and any per-term failures
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the sync engine, providing non-blocking status reporting during a run.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, s, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
