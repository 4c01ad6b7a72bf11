// Package tui is the terminal host of the sync status dashboard.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"biosync/internal/dashboard"
)

// NoticeTTL is how long a notification stays in the status bar.
const NoticeTTL = 4 * time.Second

const title = "Biometric Device Sync Status"

var columnWidths = []int{16, 16, 20, 20}

// tableWidth includes the one-cell padding on each side of every column.
func tableWidth() int {
	w := 0
	for _, c := range columnWidths {
		w += c + 2
	}
	return w
}

// App is the dashboard TUI following the Elm architecture.
type App struct {
	ctx    context.Context
	dash   *dashboard.Dashboard
	styles *Styles
	keys   *KeyMap
	table  table.Model
	rows   []dashboard.Row

	notice    *dashboard.Notification
	noticeSeq int

	width  int
	height int
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the TUI over d. d must deliver its notifications and
// replaced snapshots to the program, normally through a Bridge.
func NewApp(ctx context.Context, d *dashboard.Dashboard) *App {
	if ctx == nil {
		ctx = context.Background()
	}
	s := DefaultStyles()

	cols := make([]table.Column, len(dashboard.Columns))
	for i, c := range dashboard.Columns {
		cols[i] = table.Column{Title: c, Width: columnWidths[i]}
	}
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithWidth(tableWidth()),
	)
	t.SetStyles(s.Table)

	return &App{
		ctx:    ctx,
		dash:   d,
		styles: s,
		keys:   DefaultKeyMap(),
		table:  t,
		width:  80,
	}
}

// Init loads the snapshot once on open.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("biosync"),
		a.refreshCmd(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if h := msg.Height - 8; h > 3 {
			a.table.SetHeight(h)
		}
		return a, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.Refresh):
			return a, a.refreshCmd()
		case key.Matches(msg, a.keys.Sync):
			return a, a.triggerCmd()
		}
		var cmd tea.Cmd
		a.table, cmd = a.table.Update(msg)
		return a, cmd

	case SnapshotMsg:
		// Render what the dashboard holds now, so an older response that is
		// delivered late cannot overwrite a newer one.
		a.setTable(a.dash.Table())
		return a, nil

	case NotificationMsg:
		n := msg.Notification
		a.notice = &n
		a.noticeSeq++
		seq := a.noticeSeq
		return a, tea.Tick(NoticeTTL, func(time.Time) tea.Msg {
			return clearNoticeMsg{seq: seq}
		})

	case clearNoticeMsg:
		if msg.seq == a.noticeSeq {
			a.notice = nil
		}
		return a, nil

	case actionDoneMsg:
		return a, nil
	}

	return a, nil
}

func (a *App) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		a.dash.Refresh(a.ctx)
		return actionDoneMsg{}
	}
}

func (a *App) triggerCmd() tea.Cmd {
	return func() tea.Msg {
		a.dash.TriggerSyncNow(a.ctx)
		return actionDoneMsg{}
	}
}

func (a *App) setTable(t dashboard.Table) {
	a.rows = t.Rows
	rows := make([]table.Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		rows = append(rows, table.Row(r.Cells()))
	}
	a.table.SetRows(rows)
	if c := a.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		a.table.SetCursor(len(rows) - 1)
	}
}

// SelectedRow returns the highlighted row, if any.
func (a *App) SelectedRow() (dashboard.Row, bool) {
	c := a.table.Cursor()
	if c < 0 || c >= len(a.rows) {
		return dashboard.Row{}, false
	}
	return a.rows[c], true
}

// Notice returns the notification currently shown, if any.
func (a *App) Notice() (dashboard.Notification, bool) {
	if a.notice == nil {
		return dashboard.Notification{}, false
	}
	return *a.notice, true
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render(title))
	b.WriteString("\n\n")

	_, loaded := a.dash.Snapshot()
	switch {
	case !loaded:
		b.WriteString(a.styles.Muted.Render("Loading sync status..."))
	case len(a.rows) == 0:
		b.WriteString(a.styles.Muted.Render("No biometric devices registered."))
	default:
		b.WriteString(a.styles.Border.Render(a.table.View()))
	}
	b.WriteString("\n")
	b.WriteString(a.detailView())
	b.WriteString("\n\n")
	b.WriteString(a.statusBar())
	return b.String()
}

// detailView shows the error message behind the selected Last Error cell.
func (a *App) detailView() string {
	row, ok := a.SelectedRow()
	if !ok {
		return ""
	}
	if row.LastError.Text == "" {
		return a.styles.Muted.Render(fmt.Sprintf("%s: no sync errors recorded", row.DeviceID))
	}
	return a.styles.Error.Render(fmt.Sprintf("%s @ %s: %s", row.DeviceID, row.LastError.Text, row.LastError.Detail))
}

func (a *App) statusBar() string {
	left := a.renderLeft()

	hints := make([]string, 0, 4)
	for _, kb := range a.keys.ShortHelp() {
		h := kb.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	right := a.styles.Muted.Render(strings.Join(hints, " | "))

	padding := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return a.styles.StatusBar.Render(left + strings.Repeat(" ", padding) + right)
}

func (a *App) renderLeft() string {
	if a.notice != nil {
		if a.notice.Level == dashboard.LevelError {
			return a.styles.Error.Render(a.notice.Message)
		}
		return a.styles.Success.Render(a.notice.Message)
	}
	switch a.dash.State() {
	case dashboard.StateRefreshing:
		return a.styles.Muted.Render("Refreshing...")
	case dashboard.StateTriggering:
		return a.styles.Muted.Render("Starting sync...")
	default:
		return a.styles.Muted.Render("Ready")
	}
}

// Run opens the dashboard TUI over backend and blocks until the operator
// quits or ctx is canceled.
func Run(ctx context.Context, backend dashboard.Backend, localize dashboard.Localizer, opts ...tea.ProgramOption) error {
	bridge := &Bridge{}
	d := dashboard.New(backend, dashboard.Options{
		Notifier:    bridge,
		Localizer:   localize,
		OnReplace:   bridge.OnReplace,
		BaseContext: ctx,
	})
	app := NewApp(ctx, d)

	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	p := tea.NewProgram(app, opts...)
	bridge.Attach(p.Send)

	_, err := p.Run()
	return err
}
