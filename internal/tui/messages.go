package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"biosync/internal/dashboard"
	"biosync/internal/syncstatus"
)

// SnapshotMsg is sent when the dashboard replaced its displayed snapshot.
type SnapshotMsg struct {
	Snapshot syncstatus.Snapshot
}

// NotificationMsg carries a transient dashboard notification.
type NotificationMsg struct {
	Notification dashboard.Notification
}

// actionDoneMsg is returned when a refresh or trigger call returns.
type actionDoneMsg struct{}

// clearNoticeMsg expires the notice with the same sequence number.
type clearNoticeMsg struct {
	seq int
}

// Bridge turns dashboard callbacks, which arrive on arbitrary goroutines,
// into program messages. Messages posted before Attach are queued.
type Bridge struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	pending []tea.Msg
}

// Attach sets the message sink (usually tea.Program.Send) and flushes
// anything queued so far.
func (b *Bridge) Attach(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, msg := range pending {
		send(msg)
	}
}

// Notify implements dashboard.Notifier.
func (b *Bridge) Notify(n dashboard.Notification) {
	b.post(NotificationMsg{Notification: n})
}

// OnReplace is meant for dashboard.Options.OnReplace.
func (b *Bridge) OnReplace(snap syncstatus.Snapshot) {
	b.post(SnapshotMsg{Snapshot: snap})
}

func (b *Bridge) post(msg tea.Msg) {
	b.mu.Lock()
	send := b.send
	if send == nil {
		b.pending = append(b.pending, msg)
	}
	b.mu.Unlock()

	if send != nil {
		send(msg)
	}
}
