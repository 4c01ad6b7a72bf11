package syncworker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"biosync/internal/metrics"
	"biosync/internal/sqlcgen"
	"biosync/internal/syncevents"
)

// Queries is the minimal DB interface the sync worker needs.
//
// *sqlcgen.Queries satisfies this.
type Queries interface {
	ClaimNextSyncRun(ctx context.Context) (sqlcgen.SyncRun, error)
	UpdateSyncRun(ctx context.Context, arg sqlcgen.UpdateSyncRunParams) (sqlcgen.SyncRun, error)
	InsertSyncRunLog(ctx context.Context, arg sqlcgen.InsertSyncRunLogParams) error
	ListBiometricDevices(ctx context.Context) ([]sqlcgen.BiometricDevice, error)
	MarkDeviceSynced(ctx context.Context, arg sqlcgen.MarkDeviceSyncedParams) error
	InsertSyncError(ctx context.Context, arg sqlcgen.InsertSyncErrorParams) error
}

type Worker struct {
	log           zerolog.Logger
	q             Queries
	puller        Puller
	events        syncevents.Producer
	metrics       *metrics.Metrics
	enabled       bool
	pollInterval  time.Duration
	maxRuntime    time.Duration
	deviceTimeout time.Duration
	workers       int
	now           func() time.Time
}

type Options struct {
	// Enabled=false completes every run without contacting devices.
	Enabled       bool
	PollInterval  time.Duration
	MaxRuntime    time.Duration
	DeviceTimeout time.Duration
	Workers       int
	Puller        Puller
	Events        syncevents.Producer
}

func New(log zerolog.Logger, q Queries, opts Options, m *metrics.Metrics) *Worker {
	pi := opts.PollInterval
	if pi <= 0 {
		pi = time.Second
	}
	mr := opts.MaxRuntime
	if mr <= 0 {
		mr = 10 * time.Minute
	}
	dt := opts.DeviceTimeout
	if dt <= 0 {
		dt = 30 * time.Second
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	p := opts.Puller
	if p == nil {
		p = TCPProbe{}
	}
	ev := opts.Events
	if ev == nil {
		ev = syncevents.Nop{}
	}

	return &Worker{
		log:           log,
		q:             q,
		puller:        p,
		events:        ev,
		metrics:       m,
		enabled:       opts.Enabled,
		pollInterval:  pi,
		maxRuntime:    mr,
		deviceTimeout: dt,
		workers:       workers,
		now:           time.Now,
	}
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.q == nil {
		return
	}

	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()

	var consecutiveFailures int
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		for {
			processed, err := w.runOnce(ctx)
			if err != nil {
				consecutiveFailures++
				break
			}
			consecutiveFailures = 0
			if !processed {
				break
			}
		}

		timer.Reset(backoffDuration(w.pollInterval, consecutiveFailures))
	}
}

func backoffDuration(base time.Duration, failures int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if failures <= 0 {
		return base
	}

	if failures > 6 {
		failures = 6
	}
	d := base * time.Duration(1<<failures)
	if d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}

type runResult struct {
	Devices   int
	Succeeded int
	Failed    int
	Canceled  bool
}

func (w *Worker) runOnce(ctx context.Context) (bool, error) {
	run, err := w.q.ClaimNextSyncRun(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		w.log.Error().Err(err).Msg("sync worker failed to claim next run")
		return false, err
	}

	w.metrics.IncSyncRun(run.Trigger)
	start := time.Now()
	defer func() {
		w.metrics.ObserveSyncRunDuration(time.Since(start))
	}()

	w.log.Info().Str("run_id", run.ID).Str("trigger", run.Trigger).Msg("sync run claimed")

	execCtx, cancel := context.WithTimeout(ctx, w.maxRuntime)
	defer cancel()

	w.runLog(execCtx, run.ID, "info", "sync run started")

	stats := map[string]any{
		"trigger":           run.Trigger,
		"runtime_budget_ms": int(w.maxRuntime.Milliseconds()),
	}

	if !w.enabled {
		stats["skipped"] = true
		w.runLog(execCtx, run.ID, "info", "attendance sync disabled; no devices contacted")
		return true, w.completeRun(execCtx, run.ID, stats)
	}

	rows, err := w.q.ListBiometricDevices(execCtx)
	if err != nil {
		_ = w.failRun(execCtx, run.ID, "list devices: "+err.Error(), stats)
		return true, err
	}

	devices := make([]Device, 0, len(rows))
	for _, r := range rows {
		d := Device{
			DeviceID:               r.DeviceID,
			Port:                   int(r.Port),
			PunchDirection:         r.PunchDirection,
			ClearFromDeviceOnFetch: r.ClearFromDeviceOnFetch,
		}
		if r.IPAddress != nil {
			d.IPAddress = *r.IPAddress
		}
		devices = append(devices, d)
	}

	result := w.syncDevices(execCtx, run.ID, devices)
	w.runLog(execCtx, run.ID, "info", fmt.Sprintf("devices: total=%d succeeded=%d failed=%d", result.Devices, result.Succeeded, result.Failed))

	stats["devices"] = result.Devices
	stats["succeeded"] = result.Succeeded
	stats["failed"] = result.Failed
	stats["workers"] = w.workers
	stats["device_timeout_ms"] = int(w.deviceTimeout.Milliseconds())
	if result.Canceled {
		stats["canceled"] = true
		_ = w.failRun(execCtx, run.ID, execCtx.Err().Error(), stats)
		return true, execCtx.Err()
	}

	return true, w.completeRun(execCtx, run.ID, stats)
}

func (w *Worker) completeRun(ctx context.Context, runID string, stats map[string]any) error {
	completedAt := w.now()
	stats["stage"] = "completed"
	if _, err := w.q.UpdateSyncRun(ctx, sqlcgen.UpdateSyncRunParams{
		ID:          runID,
		Status:      "succeeded",
		Stats:       stats,
		CompletedAt: &completedAt,
		LastError:   nil,
	}); err != nil {
		w.log.Error().Err(err).Str("run_id", runID).Msg("failed to mark sync run succeeded")
		_ = w.failRun(ctx, runID, err.Error(), stats)
		return err
	}

	w.runLog(ctx, runID, "info", "sync run completed")
	return nil
}

func (w *Worker) failRun(ctx context.Context, runID string, errMsg string, stats map[string]any) error {
	if stats == nil {
		stats = map[string]any{}
	}
	stats["stage"] = "failed"

	// A canceled run still has to leave the running state.
	if ctx == nil || ctx.Err() != nil {
		bg, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ctx = bg
	}

	completedAt := w.now()
	lastErr := errMsg
	_, err := w.q.UpdateSyncRun(ctx, sqlcgen.UpdateSyncRunParams{
		ID:          runID,
		Status:      "failed",
		Stats:       stats,
		CompletedAt: &completedAt,
		LastError:   &lastErr,
	})
	if err != nil {
		w.log.Error().Err(err).Str("run_id", runID).Msg("failed to mark sync run failed")
		return err
	}

	w.runLog(ctx, runID, "error", "sync run failed: "+errMsg)
	return nil
}

func (w *Worker) runLog(ctx context.Context, runID, level, msg string) {
	if err := w.q.InsertSyncRunLog(ctx, sqlcgen.InsertSyncRunLogParams{
		RunID:   runID,
		Level:   level,
		Message: msg,
	}); err != nil {
		w.log.Warn().Err(err).Str("run_id", runID).Msg("failed to write sync run log")
	}
}

// syncDevices pulls every device through a bounded pool. One device failing
// never stops the others.
func (w *Worker) syncDevices(ctx context.Context, runID string, devices []Device) runResult {
	result := runResult{Devices: len(devices)}
	if len(devices) == 0 {
		return result
	}

	var succeeded int32
	var failed int32

	jobs := make(chan Device, w.workers*2)
	wg := sync.WaitGroup{}

	worker := func() {
		defer wg.Done()
		for dev := range jobs {
			if ctx.Err() != nil {
				continue
			}
			if w.syncDevice(ctx, runID, dev) {
				atomic.AddInt32(&succeeded, 1)
			} else {
				atomic.AddInt32(&failed, 1)
			}
		}
	}

	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go worker()
	}

	for _, dev := range devices {
		select {
		case <-ctx.Done():
			result.Canceled = true
		case jobs <- dev:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()

	if ctx.Err() != nil {
		result.Canceled = true
	}
	result.Succeeded = int(succeeded)
	result.Failed = int(failed)
	return result
}

func (w *Worker) syncDevice(ctx context.Context, runID string, dev Device) bool {
	pullCtx, cancel := context.WithTimeout(ctx, w.deviceTimeout)
	err := w.puller.Pull(pullCtx, dev)
	cancel()

	at := w.now()
	if err == nil {
		if err := w.q.MarkDeviceSynced(ctx, sqlcgen.MarkDeviceSyncedParams{DeviceID: dev.DeviceID, SyncedAt: at}); err != nil {
			w.log.Error().Err(err).Str("device_id", dev.DeviceID).Msg("failed to record device sync")
			return false
		}
		w.metrics.IncDeviceSync("success")
		w.emit(ctx, syncevents.NewEvent(runID, dev.DeviceID, dev.IPAddress, at, "", false))
		return true
	}

	msg := fmt.Sprintf("Error syncing attendance for device %s: %v", dev.DeviceID, err)
	w.log.Warn().Err(err).Str("run_id", runID).Str("device_id", dev.DeviceID).Msg("device sync failed")
	w.metrics.IncDeviceSync("failure")

	id := runID
	if err := w.q.InsertSyncError(ctx, sqlcgen.InsertSyncErrorParams{
		DeviceID:   dev.DeviceID,
		RunID:      &id,
		OccurredAt: at,
		Message:    msg,
	}); err != nil {
		w.log.Error().Err(err).Str("device_id", dev.DeviceID).Msg("failed to record device sync error")
	}
	w.emit(ctx, syncevents.NewEvent(runID, dev.DeviceID, dev.IPAddress, at, msg, true))
	return false
}

func (w *Worker) emit(ctx context.Context, ev syncevents.Event) {
	if err := w.events.Emit(ctx, ev); err != nil {
		w.log.Debug().Err(err).Str("device_id", ev.DeviceID).Msg("sync event dropped")
	}
}
