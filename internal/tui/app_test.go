package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biosync/internal/dashboard"
	"biosync/internal/syncstatus"
)

type stubBackend struct {
	mu         sync.Mutex
	snapshot   syncstatus.Snapshot
	statusErr  error
	triggerErr error
	triggers   int
}

func (b *stubBackend) GetLastSyncStatus(context.Context) (syncstatus.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.statusErr != nil {
		return nil, b.statusErr
	}
	return b.snapshot.Clone(), nil
}

func (b *stubBackend) TriggerSync(context.Context) (syncstatus.Acknowledgment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.triggers++
	if b.triggerErr != nil {
		return syncstatus.Acknowledgment{}, b.triggerErr
	}
	return syncstatus.Acknowledgment{Status: syncstatus.StatusAccepted}, nil
}

type deferred struct {
	mu    sync.Mutex
	delay []time.Duration
	fns   []func()
}

func (d *deferred) AfterFunc(delay time.Duration, f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = append(d.delay, delay)
	d.fns = append(d.fns, f)
}

type harness struct {
	app     *App
	backend *stubBackend
	sched   *deferred
	msgs    []tea.Msg
}

// newHarness wires an App the way Run does, with a recording message sink
// and a scheduler the test fires by hand.
func newHarness(t *testing.T, snap syncstatus.Snapshot) *harness {
	t.Helper()
	h := &harness{backend: &stubBackend{snapshot: snap}, sched: &deferred{}}
	bridge := &Bridge{}
	d := dashboard.New(h.backend, dashboard.Options{
		Notifier:  bridge,
		Scheduler: h.sched,
		Localizer: dashboard.NewLocalizer(time.UTC, time.RFC3339),
		OnReplace: bridge.OnReplace,
	})
	h.app = NewApp(context.Background(), d)
	bridge.Attach(func(m tea.Msg) { h.msgs = append(h.msgs, m) })
	return h
}

// run executes cmd and feeds every produced message back into the app.
func (h *harness) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	h.deliver()
	if msg != nil {
		h.app.Update(msg)
	}
}

func (h *harness) deliver() {
	pending := h.msgs
	h.msgs = nil
	for _, m := range pending {
		h.app.Update(m)
	}
}

func (h *harness) press(k string) tea.Cmd {
	_, cmd := h.app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	return cmd
}

func sampleSnapshot() syncstatus.Snapshot {
	synced := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	return syncstatus.Snapshot{
		{DeviceID: "D1", IPAddress: "10.0.0.5", LastSync: &synced},
		{DeviceID: "D2", LastError: &syncstatus.SyncError{OccurredAt: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), Message: "timeout"}},
	}
}

func TestApp_ShowsLoadingBeforeFirstRefresh(t *testing.T) {
	h := newHarness(t, sampleSnapshot())

	assert.Contains(t, h.app.View(), "Loading sync status")
	assert.NotNil(t, h.app.Init())
}

func TestApp_RefreshKeyRendersTable(t *testing.T) {
	h := newHarness(t, sampleSnapshot())

	h.run(h.press("r"))

	view := h.app.View()
	assert.Contains(t, view, "Device ID")
	assert.Contains(t, view, "D1")
	assert.Contains(t, view, "10.0.0.5")
	assert.Contains(t, view, "2024-01-01T10:00:00Z")
	assert.Contains(t, view, dashboard.NeverSynced)
}

func TestApp_SelectedRowShowsErrorDetail(t *testing.T) {
	h := newHarness(t, sampleSnapshot())
	h.run(h.press("r"))

	row, ok := h.app.SelectedRow()
	require.True(t, ok)
	assert.Equal(t, "D1", row.DeviceID)
	assert.Contains(t, h.app.View(), "D1: no sync errors recorded")

	h.app.Update(tea.KeyMsg{Type: tea.KeyDown})

	row, ok = h.app.SelectedRow()
	require.True(t, ok)
	assert.Equal(t, "D2", row.DeviceID)
	assert.Contains(t, h.app.View(), "D2 @ 2024-01-02T09:00:00Z: timeout")
}

func TestApp_EmptySnapshot(t *testing.T) {
	h := newHarness(t, syncstatus.Snapshot{})

	h.run(h.press("r"))

	assert.Contains(t, h.app.View(), "No biometric devices registered.")
	_, ok := h.app.SelectedRow()
	assert.False(t, ok)
}

func TestApp_RefreshFailureKeepsTableAndShowsError(t *testing.T) {
	h := newHarness(t, sampleSnapshot())
	h.run(h.press("r"))

	h.backend.mu.Lock()
	h.backend.statusErr = errors.New("connection refused")
	h.backend.mu.Unlock()
	h.run(h.press("r"))

	n, ok := h.app.Notice()
	require.True(t, ok)
	assert.Equal(t, dashboard.LevelError, n.Level)
	view := h.app.View()
	assert.Contains(t, view, "Failed to load sync status: connection refused")
	assert.Contains(t, view, "D1")
}

func TestApp_SyncKeyNotifiesAndSchedulesOneRefresh(t *testing.T) {
	h := newHarness(t, syncstatus.Snapshot{})
	h.run(h.press("r"))

	h.run(h.press("s"))

	n, ok := h.app.Notice()
	require.True(t, ok)
	assert.Equal(t, dashboard.SyncInitiatedMessage, n.Message)
	require.Len(t, h.sched.fns, 1)
	assert.Equal(t, dashboard.DeferredRefreshDelay, h.sched.delay[0])

	h.backend.mu.Lock()
	h.backend.snapshot = sampleSnapshot()
	h.backend.mu.Unlock()
	h.sched.fns[0]()
	h.deliver()

	assert.Contains(t, h.app.View(), "D2")
}

func TestApp_SyncFailureSchedulesNothing(t *testing.T) {
	h := newHarness(t, sampleSnapshot())
	h.backend.triggerErr = errors.New("503")

	h.run(h.press("s"))

	n, ok := h.app.Notice()
	require.True(t, ok)
	assert.Equal(t, dashboard.LevelError, n.Level)
	assert.Empty(t, h.sched.fns)
}

func TestApp_NoticeExpires(t *testing.T) {
	h := newHarness(t, nil)
	_, cmd := h.app.Update(NotificationMsg{Notification: dashboard.Notification{Message: "first"}})
	require.NotNil(t, cmd)
	h.app.Update(NotificationMsg{Notification: dashboard.Notification{Message: "second"}})

	h.app.Update(clearNoticeMsg{seq: 1})
	n, ok := h.app.Notice()
	require.True(t, ok, "stale expiry must not clear a newer notice")
	assert.Equal(t, "second", n.Message)

	h.app.Update(clearNoticeMsg{seq: 2})
	_, ok = h.app.Notice()
	assert.False(t, ok)
}

func TestApp_QuitKey(t *testing.T) {
	h := newHarness(t, nil)

	cmd := h.press("q")

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestApp_WindowSize(t *testing.T) {
	h := newHarness(t, nil)

	h.app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, 120, h.app.width)
	assert.Equal(t, 40, h.app.height)
}

func TestBridge_QueuesUntilAttached(t *testing.T) {
	b := &Bridge{}
	b.Notify(dashboard.Notification{Message: "early"})
	b.OnReplace(syncstatus.Snapshot{})

	var got []tea.Msg
	b.Attach(func(m tea.Msg) { got = append(got, m) })
	b.Notify(dashboard.Notification{Message: "late"})

	require.Len(t, got, 3)
	assert.IsType(t, NotificationMsg{}, got[0])
	assert.IsType(t, SnapshotMsg{}, got[1])
	assert.Equal(t, "late", got[2].(NotificationMsg).Notification.Message)
}

func TestKeyMap_ShortHelp(t *testing.T) {
	km := DefaultKeyMap()

	keys := make([]string, 0)
	for _, b := range km.ShortHelp() {
		keys = append(keys, b.Help().Key)
	}

	assert.Equal(t, []string{"r", "s", "↑/k", "q"}, keys)
}
