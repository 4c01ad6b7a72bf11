// Package dashboard keeps an operator-facing view of per-device sync state
// fresh using two remote operations: a status query and a sync trigger.
//
// A Dashboard owns exactly one displayed snapshot. Refresh replaces it
// wholesale on success and leaves it untouched on failure. TriggerSyncNow asks
// the backend to start a sync run and, once the request is acknowledged,
// schedules a single deferred Refresh after DeferredRefreshDelay. The delay is
// a guess at how long a run takes, not a completion signal: a slow run still
// shows stale values until the operator refreshes again.
//
// Failures of either remote call are never returned to the host. They are
// converted into notifications and the displayed snapshot stays as it was.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"biosync/internal/syncstatus"
)

// DeferredRefreshDelay is how long after an acknowledged trigger the
// dashboard re-queries the backend.
const DeferredRefreshDelay = 5 * time.Second

// SyncInitiatedMessage is the notification shown once a trigger is accepted.
const SyncInitiatedMessage = "Sync initiated"

var (
	// ErrQueryFailed wraps a failed status query.
	ErrQueryFailed = errors.New("sync status query failed")
	// ErrTriggerFailed wraps a trigger request the backend did not accept.
	ErrTriggerFailed = errors.New("sync trigger failed")
)

// Backend is the pair of remote operations the dashboard consumes.
type Backend interface {
	GetLastSyncStatus(ctx context.Context) (syncstatus.Snapshot, error)
	TriggerSync(ctx context.Context) (syncstatus.Acknowledgment, error)
}

// Level classifies a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a transient message for the operator.
type Notification struct {
	Level   Level
	Message string
	// Err is set for LevelError and wraps ErrQueryFailed or ErrTriggerFailed.
	Err error
}

// Notifier delivers transient notifications to the host.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Scheduler runs f once after d. There is no way to cancel a scheduled call.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(d time.Duration, f func())

func (f SchedulerFunc) AfterFunc(d time.Duration, fn func()) { f(d, fn) }

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// State is the dashboard-level activity.
type State int

const (
	StateIdle State = iota
	StateRefreshing
	StateTriggering
)

func (s State) String() string {
	switch s {
	case StateRefreshing:
		return "refreshing"
	case StateTriggering:
		return "triggering"
	default:
		return "idle"
	}
}

// Options configures a Dashboard. Zero values fall back to defaults.
type Options struct {
	Notifier  Notifier
	Scheduler Scheduler
	Localizer Localizer
	// OnReplace is called with a copy of every snapshot that replaced the
	// displayed one.
	OnReplace func(syncstatus.Snapshot)
	// BaseContext is used by deferred refreshes, which outlive the call that
	// scheduled them.
	BaseContext context.Context
}

// Dashboard is the StatusDashboard: a single owner of the displayed snapshot.
type Dashboard struct {
	backend   Backend
	notifier  Notifier
	scheduler Scheduler
	localizer Localizer
	onReplace func(syncstatus.Snapshot)
	baseCtx   context.Context

	mu         sync.Mutex
	snapshot   syncstatus.Snapshot
	loaded     bool
	refreshing int
	triggering int
}

// New creates a Dashboard over backend.
func New(backend Backend, opts Options) *Dashboard {
	n := opts.Notifier
	if n == nil {
		n = NotifierFunc(func(Notification) {})
	}
	s := opts.Scheduler
	if s == nil {
		s = timeScheduler{}
	}
	l := opts.Localizer
	if l == nil {
		l = DefaultLocalizer()
	}
	ctx := opts.BaseContext
	if ctx == nil {
		ctx = context.Background()
	}
	return &Dashboard{
		backend:   backend,
		notifier:  n,
		scheduler: s,
		localizer: l,
		onReplace: opts.OnReplace,
		baseCtx:   ctx,
	}
}

// Refresh queries the backend and replaces the displayed snapshot with the
// response. On failure the previous snapshot is kept and an error
// notification is emitted. Overlapping refreshes race; whichever response
// arrives last is displayed.
func (d *Dashboard) Refresh(ctx context.Context) {
	d.mu.Lock()
	d.refreshing++
	d.mu.Unlock()

	snap, err := d.backend.GetLastSyncStatus(ctx)

	d.mu.Lock()
	d.refreshing--
	if err != nil {
		d.mu.Unlock()
		d.notifier.Notify(Notification{
			Level:   LevelError,
			Message: "Failed to load sync status: " + err.Error(),
			Err:     fmt.Errorf("%w: %w", ErrQueryFailed, err),
		})
		return
	}
	if snap == nil {
		snap = syncstatus.Snapshot{}
	}
	d.snapshot = snap.Clone()
	d.loaded = true
	replaced := d.snapshot.Clone()
	d.mu.Unlock()

	if d.onReplace != nil {
		d.onReplace(replaced)
	}
}

// TriggerSyncNow asks the backend to start a sync run. It returns once the
// request is acknowledged, not when the sync finishes. An acknowledged
// trigger emits SyncInitiatedMessage and schedules one Refresh after
// DeferredRefreshDelay; a rejected one emits an error and schedules nothing.
func (d *Dashboard) TriggerSyncNow(ctx context.Context) {
	d.mu.Lock()
	d.triggering++
	d.mu.Unlock()

	_, err := d.backend.TriggerSync(ctx)

	d.mu.Lock()
	d.triggering--
	d.mu.Unlock()

	if err != nil {
		d.notifier.Notify(Notification{
			Level:   LevelError,
			Message: "Failed to initiate sync: " + err.Error(),
			Err:     fmt.Errorf("%w: %w", ErrTriggerFailed, err),
		})
		return
	}

	d.notifier.Notify(Notification{Level: LevelInfo, Message: SyncInitiatedMessage})
	d.scheduler.AfterFunc(DeferredRefreshDelay, func() {
		d.Refresh(d.baseCtx)
	})
}

// State reports what the dashboard is waiting on. A pending refresh wins over
// a pending trigger.
func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.refreshing > 0:
		return StateRefreshing
	case d.triggering > 0:
		return StateTriggering
	default:
		return StateIdle
	}
}

// Snapshot returns a copy of the displayed snapshot and whether any query
// has succeeded yet.
func (d *Dashboard) Snapshot() (syncstatus.Snapshot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot.Clone(), d.loaded
}

// Table renders the displayed snapshot.
func (d *Dashboard) Table() Table {
	snap, _ := d.Snapshot()
	return RenderSnapshot(snap, d.localizer)
}
