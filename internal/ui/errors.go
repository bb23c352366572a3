package ui

import (
	"fmt"
	"strings"

	"envrun/internal/domain"
	"envrun/internal/logging"
	"envrun/internal/storage"

	"github.com/fatih/color"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// maxStackLines caps the stack frames shown for one failure
const maxStackLines = 10

// ErrorViewer displays test failures in an interactive TUI
type ErrorViewer struct {
	storage storage.Storage
	log     *logging.Logger
}

var _ Viewer = (*ErrorViewer)(nil)

// NewErrorViewer creates a new ErrorViewer; resolved marks are written back through st
func NewErrorViewer(st storage.Storage, log *logging.Logger) *ErrorViewer {
	if log == nil {
		log = logging.NopLogger()
	}
	return &ErrorViewer{
		storage: st,
		log:     log,
	}
}

// View opens the viewer and blocks until the user quits.
//
// Keys: ↑↓ navigate, → or Enter focus the details, ← or Esc go back,
// R toggles the resolved mark, E cycles the environment filter, Ctrl+C quits.
func (ev *ErrorViewer) View(results *domain.TestResultsOutput) error {
	if len(results.Details) == 0 {
		color.Green("✓ No test failures found!")
		return nil
	}

	b := newFailureBrowser(ev, results)
	if err := b.app.SetRoot(b.layout(), true).SetFocus(b.list).Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// failureBrowser holds the widgets and the selection state of one View call
type failureBrowser struct {
	viewer  *ErrorViewer
	results *domain.TestResultsOutput

	envs    []string // environments with failures, first-seen order
	envPos  int      // 0 shows every environment, i shows envs[i-1]
	visible []int    // indexes into results.Details shown in the list

	app     *tview.Application
	list    *tview.List
	header  *tview.TextView
	stats   *tview.TextView
	details *tview.TextView
}

func newFailureBrowser(ev *ErrorViewer, results *domain.TestResultsOutput) *failureBrowser {
	b := &failureBrowser{
		viewer:  ev,
		results: results,
		envs:    environmentsOf(results.Details),
		app:     tview.NewApplication(),
		list: tview.NewList().
			ShowSecondaryText(false).
			SetHighlightFullLine(true),
		header: tview.NewTextView().
			SetTextAlign(tview.AlignCenter).
			SetDynamicColors(true),
		stats: tview.NewTextView().
			SetDynamicColors(true).
			SetWrap(false),
		details: tview.NewTextView().
			SetDynamicColors(true).
			SetWrap(true).
			SetWordWrap(true),
	}

	b.list.SetMainTextColor(tview.Styles.PrimaryTextColor).
		SetSelectedTextColor(tcell.ColorWhite).
		SetSelectedBackgroundColor(tcell.ColorDarkCyan)
	b.list.SetChangedFunc(func(int, string, string, rune) { b.showSelected() })
	b.list.SetInputCapture(b.listKeys)
	b.details.SetInputCapture(b.detailsKeys)

	b.fill()
	return b
}

func (b *failureBrowser) layout() tview.Primitive {
	// Details get a two-column right margin
	details := tview.NewFlex().
		AddItem(b.details, 0, 1, false).
		AddItem(tview.NewBox(), 2, 0, false)

	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(b.stats, 3, 0, false).
		AddItem(details, 0, 1, false)

	body := tview.NewFlex().
		AddItem(b.list, 0, 1, true).
		AddItem(right, 0, 2, false)

	return tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(b.header, 1, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(body, 0, 1, true)
}

// currentEnv returns the environment filter, "" for all
func (b *failureBrowser) currentEnv() string {
	if b.envPos == 0 {
		return ""
	}
	return b.envs[b.envPos-1]
}

// fill rebuilds the list for the current environment filter
func (b *failureBrowser) fill() {
	b.visible = visibleFailures(b.results.Details, b.currentEnv())
	b.list.Clear()
	for _, i := range b.visible {
		f := b.results.Details[i]
		b.list.AddItem(listItemText(f, i, f.Resolved), "", 0, nil)
	}
	b.refreshHeader()
	b.showSelected()
}

func (b *failureBrowser) selected() (int, bool) {
	pos := b.list.GetCurrentItem()
	if pos < 0 || pos >= len(b.visible) {
		return 0, false
	}
	return b.visible[pos], true
}

func (b *failureBrowser) showSelected() {
	i, ok := b.selected()
	if !ok {
		b.stats.SetText("")
		b.details.SetText("")
		return
	}
	f := b.results.Details[i]
	b.stats.SetText(formatFailureStats(f, i+1))
	b.details.SetText(formatFailureDetails(f))
}

func (b *failureBrowser) refreshHeader() {
	unresolved := 0
	for _, f := range b.results.Details {
		if !f.Resolved {
			unresolved++
		}
	}
	scope := "all environments"
	if env := b.currentEnv(); env != "" {
		scope = env
	}
	b.header.SetText(fmt.Sprintf(
		" Test Failures (%d total, %d unresolved, showing %s) | ↑↓ navigate, [yellow]R[white] resolve, [yellow]E[white] environment, → details, ← back, Ctrl+C exit ",
		len(b.results.Details), unresolved, scope,
	))
}

// toggleResolved flips the selected failure's mark and persists the report
func (b *failureBrowser) toggleResolved() {
	i, ok := b.selected()
	if !ok {
		return
	}
	f := &b.results.Details[i]
	f.Resolved = !f.Resolved
	b.list.SetItemText(b.list.GetCurrentItem(), listItemText(*f, i, f.Resolved), "")
	b.refreshHeader()

	if err := b.viewer.storage.SaveOutput(b.results); err != nil {
		b.viewer.log.Warn("save resolved status", "error", err)
	}
}

func (b *failureBrowser) cycleEnvironment() {
	if len(b.envs) < 2 {
		return
	}
	b.envPos = (b.envPos + 1) % (len(b.envs) + 1)
	b.fill()
}

func (b *failureBrowser) listKeys(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEnter, tcell.KeyRight:
		b.app.SetFocus(b.details)
		return nil
	case tcell.KeyCtrlC:
		b.app.Stop()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'r', 'R':
			b.toggleResolved()
			return nil
		case 'e', 'E':
			b.cycleEnvironment()
			return nil
		}
	}
	return event
}

func (b *failureBrowser) detailsKeys(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyLeft, tcell.KeyEsc:
		b.app.SetFocus(b.list)
		return nil
	case tcell.KeyCtrlC:
		b.app.Stop()
		return nil
	}
	return event
}

// environmentsOf lists the environments of failures in first-seen order
func environmentsOf(failures []domain.TestFailure) []string {
	var envs []string
	seen := map[string]bool{}
	for _, f := range failures {
		if f.Environment == "" || seen[f.Environment] {
			continue
		}
		seen[f.Environment] = true
		envs = append(envs, f.Environment)
	}
	return envs
}

// visibleFailures returns the indexes of failures in env, or all for ""
func visibleFailures(failures []domain.TestFailure, env string) []int {
	idx := make([]int, 0, len(failures))
	for i, f := range failures {
		if env == "" || f.Environment == env {
			idx = append(idx, i)
		}
	}
	return idx
}

func displayName(f domain.TestFailure, number int) string {
	if f.TestName != "" {
		return f.TestName
	}
	return fmt.Sprintf("Test %d", number)
}

func listItemText(f domain.TestFailure, index int, resolved bool) string {
	env := ""
	if f.Environment != "" {
		env = fmt.Sprintf(" [gray](%s)", f.Environment)
	}
	if resolved {
		return fmt.Sprintf("[gray]✓ [yellow]%d.[gray] %s%s[white]", index+1, displayName(f, index+1), env)
	}
	return fmt.Sprintf("[yellow]%d.[white] %s%s[white]", index+1, displayName(f, index+1), env)
}

// formatFailureDetails renders a failure with tview color tags
func formatFailureDetails(f domain.TestFailure) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[red]✗ Test: %s[white]\n\n", f.TestName)
	fmt.Fprintf(&sb, "[cyan]File: %s[white]\n", f.FilePath)
	if f.Environment != "" {
		fmt.Fprintf(&sb, "[cyan]Environment: %s[white]\n", f.Environment)
	}
	if f.File != "" && f.Line > 0 {
		fmt.Fprintf(&sb, "[yellow]Location: %s:%d[white]\n", f.File, f.Line)
	}
	sb.WriteString("\n")

	if f.Message != "" {
		fmt.Fprintf(&sb, "[yellow]Message:[white]\n%s\n\n", tview.Escape(f.Message))
	}
	if f.ErrorDetails != "" {
		fmt.Fprintf(&sb, "[yellow]Output:[white]\n%s\n\n", tview.Escape(f.ErrorDetails))
	}

	if len(f.StackTrace) > 0 {
		sb.WriteString("[yellow]Stack Trace:[white]\n")
		for _, frame := range f.StackTrace[:min(len(f.StackTrace), maxStackLines)] {
			fmt.Fprintf(&sb, "  %s\n", tview.Escape(frame))
		}
		if extra := len(f.StackTrace) - maxStackLines; extra > 0 {
			fmt.Fprintf(&sb, "  [gray]... and %d more lines[white]\n", extra)
		}
	}
	return sb.String()
}

// formatFailureStats renders the one-line header above the details
func formatFailureStats(f domain.TestFailure, number int) string {
	path := f.FilePath
	if path == "" {
		path = "Unknown path"
	}

	line := fmt.Sprintf("[cyan]path:[white] [yellow]%s[white]::[yellow]%s[white]", path, displayName(f, number))
	if f.Environment != "" {
		line += fmt.Sprintf("  [cyan]env:[white] [yellow]%s[white]", f.Environment)
	}
	return line + "\n"
}
