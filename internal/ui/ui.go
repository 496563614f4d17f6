package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/termsync/internal/formatter"
	"github.com/desertthunder/termsync/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	BucketListView ViewState = iota
	TermListView
	ConfirmView
	SyncView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       tasks.SyncEngine
	registryName string
	sourcePath   string
	width        int
	height       int
	bucketList   list.Model
	termList     list.Model
	diff         *tasks.DiffResult
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *tasks.RunResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine tasks.SyncEngine, registryName, sourcePath string) *Model {
	return &Model{
		ctx:          ctx,
		view:         BucketListView,
		engine:       engine,
		registryName: registryName,
		sourcePath:   sourcePath,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init initializes the TUI by comparing the source workbook against the registry.
func (m *Model) Init() tea.Cmd {
	return m.runDiff()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.bucketList.Width() == 0 {
			m.bucketList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.termList.Width() == 0 {
			m.termList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case BucketListView:
			return m.handleBucketListKeys(msg)
		case TermListView:
			return m.handleTermListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case diffCompleteMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.diff = msg.diff
		c := msg.diff.Comparison
		items := []list.Item{
			bucketItem{kind: bucketOnlyInSource, count: len(c.OnlyInSource)},
			bucketItem{kind: bucketMismatched, count: len(c.Mismatched)},
			bucketItem{kind: bucketOnlyInRegistry, count: len(c.OnlyInRegistry)},
			bucketItem{kind: bucketMatching, count: c.Matching},
		}
		m.bucketList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.bucketList.Title = fmt.Sprintf("Payment Terms vs %s", m.registryName)
		m.bucketList.SetSize(m.width-4, m.height-8)
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case syncCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case BucketListView:
		return m.renderBucketList()
	case TermListView:
		return m.renderTermList()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleBucketListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter":
		if m.diff == nil {
			return m, nil
		}
		selected := m.bucketList.SelectedItem()
		if selected != nil {
			if b, ok := selected.(bucketItem); ok && b.kind != bucketMatching && b.count > 0 {
				m.openBucket(b.kind)
			}
		}
		return m, nil
	case "s":
		if m.diff == nil {
			return m, nil
		}
		m.view = ConfirmView
		return m, nil
	}

	return m.updateLists(msg)
}

func (m *Model) handleTermListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = BucketListView
		return m, nil
	case "s":
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.termList, cmd = m.termList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n":
		m.view = BucketListView
		return m, nil
	case "y":
		m.view = SyncView
		return m, m.startSync()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = BucketListView
		m.diff = nil
		m.result = nil
		m.err = nil
		return m, m.runDiff()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.diff == nil {
		return m, nil
	}

	var cmd tea.Cmd
	switch m.view {
	case BucketListView:
		m.bucketList, cmd = m.bucketList.Update(msg)
	case TermListView:
		m.termList, cmd = m.termList.Update(msg)
	}
	return m, cmd
}

// openBucket switches to the term list view showing one bucket's entries.
func (m *Model) openBucket(kind bucketKind) {
	c := m.diff.Comparison

	var items []list.Item
	switch kind {
	case bucketOnlyInSource:
		items = make([]list.Item, len(c.OnlyInSource))
		for i, t := range c.OnlyInSource {
			items[i] = termItem{term: t}
		}
	case bucketMismatched:
		items = make([]list.Item, len(c.Mismatched))
		for i, mm := range c.Mismatched {
			items[i] = mismatchItem{mismatch: mm}
		}
	case bucketOnlyInRegistry:
		items = make([]list.Item, len(c.OnlyInRegistry))
		for i, t := range c.OnlyInRegistry {
			items[i] = termItem{term: t}
		}
	}

	m.termList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.termList.Title = kind.title()
	m.termList.SetSize(m.width-4, m.height-8)
	m.view = TermListView
}

func (m *Model) runDiff() tea.Cmd {
	return func() tea.Msg {
		diff, err := m.engine.Diff(m.ctx, m.sourcePath, nil)
		return diffCompleteMsg{diff: diff, err: err}
	}
}

func (m *Model) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	go func() {
		result, err := m.engine.Run(m.ctx, m.sourcePath, tasks.RunOpts{}, m.progressChan)
		m.result = result
		m.err = err
		close(m.progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return syncCompleteMsg{result: m.result, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return syncCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderBucketList() string {
	if m.diff == nil {
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
		return fmt.Sprintf("Comparing source against registry...\n\n%s", helpView)
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.sync, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.bucketList.View(), helpView)
}

func (m *Model) renderTermList() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.sync, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.termList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	c := m.diff.Comparison
	toCreate := len(c.OnlyInSource)

	var title string
	if toCreate == 0 {
		title = styles.title.Render(fmt.Sprintf("%s already holds every source term", m.registryName))
	} else {
		title = styles.title.Render(fmt.Sprintf("Create %d missing terms in %s?", toCreate, m.registryName))
	}

	info := fmt.Sprintf("\nSource terms: %d\nRegistry terms: %d\nTo create: %d\n", m.diff.SourceCount, m.diff.RegistryCount, toCreate)

	var note string
	if len(c.Mismatched) > 0 {
		note = styles.help.Render(fmt.Sprintf("%d name mismatches are reported only; registry names are never overwritten.", len(c.Mismatched)))
		note += "\n\n"
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s%s", title, info, note, helpView)
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing Payment Terms")

	var phase string
	switch m.progress.Phase {
	case tasks.ReadSource:
		phase = "Reading the source workbook..."
	case tasks.FetchRegistry:
		phase = "Fetching registry terms..."
	case tasks.CompareTerms:
		phase = "Comparing source against registry..."
	case tasks.CreateMissing:
		phase = "Creating missing terms..."
	case tasks.SaveRun:
		phase = "Recording run history..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v\n\nPress r to recompare, q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to recompare, q to quit")
	}

	report := m.result.Report
	summary := formatter.Summary(report)

	title := styles.ok.Render("✓ " + summary)
	if report != nil && !report.AllSucceeded() {
		title = styles.warn.Render("⚠ " + summary)
	}

	info := fmt.Sprintf("\nSource terms: %d\nRegistry terms: %d", m.result.SourceCount, m.result.RegistryCount)
	if m.result.RunID != "" {
		info += fmt.Sprintf("\nRun recorded as %s", m.result.RunID)
	}

	var failed string
	if report != nil && len(report.Failed) > 0 {
		failed = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("Failed to create %d terms:", len(report.Failed))))
		for _, f := range report.Failed {
			failed += fmt.Sprintf("\n  • %s: %s", f.Term.Label(), f.Reason)
		}
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s%s%s\n\n%s", title, info, failed, helpView)
}
