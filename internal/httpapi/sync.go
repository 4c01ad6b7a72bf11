package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"

	"biosync/internal/sqlcgen"
	"biosync/internal/syncstatus"
	"biosync/internal/syncworker"
)

type syncRun struct {
	ID          string         `json:"id"`
	Status      string         `json:"status"`
	Trigger     string         `json:"trigger"`
	Stats       map[string]any `json:"stats,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	LastError   *string        `json:"last_error,omitempty"`
}

func toSyncRun(r sqlcgen.SyncRun) syncRun {
	return syncRun{
		ID:          r.ID,
		Status:      r.Status,
		Trigger:     r.Trigger,
		Stats:       r.Stats,
		CreatedAt:   r.CreatedAt,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		LastError:   r.LastError,
	}
}

func toSnapshot(rows []sqlcgen.DeviceSyncStatus) syncstatus.Snapshot {
	snap := make(syncstatus.Snapshot, 0, len(rows))
	for _, row := range rows {
		rec := syncstatus.DeviceSyncRecord{
			DeviceID: row.DeviceID,
			LastSync: row.LastSyncAt,
		}
		if row.IPAddress != nil {
			rec.IPAddress = *row.IPAddress
		}
		if row.LastErrorAt != nil {
			rec.LastError = &syncstatus.SyncError{OccurredAt: *row.LastErrorAt}
			if row.LastErrorMessage != nil {
				rec.LastError.Message = *row.LastErrorMessage
			}
		}
		snap = append(snap, rec)
	}
	return snap
}

func (h *Handler) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if !h.ensureSync(w) {
		return
	}

	rows, err := h.sync.ListDeviceSyncStatus(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list sync status failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to load sync status", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, toSnapshot(rows))
}

func (h *Handler) handleSyncTrigger(w http.ResponseWriter, r *http.Request) {
	if !h.ensureSync(w) {
		return
	}

	run, err := h.sync.InsertSyncRun(r.Context(), syncworker.TriggerManual)
	if err != nil {
		h.log.Error().Err(err).Msg("enqueue sync run failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to enqueue sync run", nil)
		return
	}

	h.log.Info().Str("run_id", run.ID).Msg("manual sync run queued")
	h.writeJSON(w, http.StatusAccepted, syncstatus.Acknowledgment{
		Status: syncstatus.StatusAccepted,
		RunID:  run.ID,
	})
}

func (h *Handler) handleLatestSyncRun(w http.ResponseWriter, r *http.Request) {
	if !h.ensureSync(w) {
		return
	}

	run, err := h.sync.GetLatestSyncRun(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			h.writeError(w, http.StatusNotFound, "not_found", "no sync runs yet", nil)
			return
		}
		h.log.Error().Err(err).Msg("get latest sync run failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to fetch latest sync run", nil)
		return
	}

	h.writeJSON(w, http.StatusOK, toSyncRun(run))
}
