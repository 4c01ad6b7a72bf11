package sqlcgen

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const biometricDeviceColumns = `id::text, device_id, ip_address, port, punch_direction, clear_from_device_on_fetch, created_at, updated_at`

func scanBiometricDevice(row pgx.Row) (BiometricDevice, error) {
	var i BiometricDevice
	err := row.Scan(
		&i.ID,
		&i.DeviceID,
		&i.IPAddress,
		&i.Port,
		&i.PunchDirection,
		&i.ClearFromDeviceOnFetch,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createBiometricDevice = `-- name: CreateBiometricDevice :one
INSERT INTO biometric_devices (device_id, ip_address, port, punch_direction, clear_from_device_on_fetch)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + biometricDeviceColumns

type CreateBiometricDeviceParams struct {
	DeviceID               string
	IPAddress              *string
	Port                   int32
	PunchDirection         string
	ClearFromDeviceOnFetch bool
}

func (q *Queries) CreateBiometricDevice(ctx context.Context, arg CreateBiometricDeviceParams) (BiometricDevice, error) {
	row := q.db.QueryRow(ctx, createBiometricDevice, arg.DeviceID, arg.IPAddress, arg.Port, arg.PunchDirection, arg.ClearFromDeviceOnFetch)
	return scanBiometricDevice(row)
}

const listBiometricDevices = `-- name: ListBiometricDevices :many
SELECT ` + biometricDeviceColumns + `
FROM biometric_devices
ORDER BY device_id ASC
`

func (q *Queries) ListBiometricDevices(ctx context.Context) ([]BiometricDevice, error) {
	rows, err := q.db.Query(ctx, listBiometricDevices)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BiometricDevice
	for rows.Next() {
		i, err := scanBiometricDevice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listDeviceSyncStatus = `-- name: ListDeviceSyncStatus :many
SELECT d.device_id,
       d.ip_address,
       s.last_sync_at,
       e.occurred_at,
       e.message
FROM biometric_devices d
LEFT JOIN device_sync_state s ON s.device_id = d.device_id
LEFT JOIN LATERAL (
  SELECT l.occurred_at, l.message
  FROM sync_error_logs l
  WHERE l.device_id = d.device_id
  ORDER BY l.occurred_at DESC, l.id DESC
  LIMIT 1
) e ON true
ORDER BY d.device_id ASC
`

// ListDeviceSyncStatus returns one row per registered device with its last
// successful sync and its most recent error, read in a single statement.
func (q *Queries) ListDeviceSyncStatus(ctx context.Context) ([]DeviceSyncStatus, error) {
	rows, err := q.db.Query(ctx, listDeviceSyncStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DeviceSyncStatus
	for rows.Next() {
		var i DeviceSyncStatus
		if err := rows.Scan(&i.DeviceID, &i.IPAddress, &i.LastSyncAt, &i.LastErrorAt, &i.LastErrorMessage); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markDeviceSynced = `-- name: MarkDeviceSynced :exec
INSERT INTO device_sync_state (device_id, last_sync_at)
VALUES ($1, $2)
ON CONFLICT (device_id) DO UPDATE
SET last_sync_at = GREATEST(device_sync_state.last_sync_at, EXCLUDED.last_sync_at)
`

type MarkDeviceSyncedParams struct {
	DeviceID string
	SyncedAt time.Time
}

func (q *Queries) MarkDeviceSynced(ctx context.Context, arg MarkDeviceSyncedParams) error {
	_, err := q.db.Exec(ctx, markDeviceSynced, arg.DeviceID, arg.SyncedAt)
	return err
}

const insertSyncError = `-- name: InsertSyncError :exec
INSERT INTO sync_error_logs (device_id, run_id, occurred_at, message)
VALUES ($1, $2::uuid, $3, $4)
`

type InsertSyncErrorParams struct {
	DeviceID   string
	RunID      *string
	OccurredAt time.Time
	Message    string
}

func (q *Queries) InsertSyncError(ctx context.Context, arg InsertSyncErrorParams) error {
	_, err := q.db.Exec(ctx, insertSyncError, arg.DeviceID, arg.RunID, arg.OccurredAt, arg.Message)
	return err
}

const syncRunColumns = `id::text, status, trigger, stats, created_at, started_at, completed_at, last_error`

func scanSyncRun(row pgx.Row) (SyncRun, error) {
	var i SyncRun
	err := row.Scan(
		&i.ID,
		&i.Status,
		&i.Trigger,
		&i.Stats,
		&i.CreatedAt,
		&i.StartedAt,
		&i.CompletedAt,
		&i.LastError,
	)
	return i, err
}

const insertSyncRun = `-- name: InsertSyncRun :one
INSERT INTO sync_runs (status, trigger)
VALUES ('queued', $1)
RETURNING ` + syncRunColumns

func (q *Queries) InsertSyncRun(ctx context.Context, trigger string) (SyncRun, error) {
	return scanSyncRun(q.db.QueryRow(ctx, insertSyncRun, trigger))
}

const claimNextSyncRun = `-- name: ClaimNextSyncRun :one
WITH next AS (
  SELECT id
  FROM sync_runs
  WHERE status = 'queued'
  ORDER BY created_at ASC
  LIMIT 1
  FOR UPDATE SKIP LOCKED
)
UPDATE sync_runs sr
SET status = 'running',
    started_at = now(),
    completed_at = NULL,
    last_error = NULL
FROM next
WHERE sr.id = next.id
RETURNING sr.id::text, sr.status, sr.trigger, sr.stats, sr.created_at, sr.started_at, sr.completed_at, sr.last_error
`

func (q *Queries) ClaimNextSyncRun(ctx context.Context) (SyncRun, error) {
	return scanSyncRun(q.db.QueryRow(ctx, claimNextSyncRun))
}

const updateSyncRun = `-- name: UpdateSyncRun :one
UPDATE sync_runs
SET status = $2,
    stats = COALESCE($3, stats),
    completed_at = $4,
    last_error = $5
WHERE id = $1::uuid
RETURNING ` + syncRunColumns

type UpdateSyncRunParams struct {
	ID          string
	Status      string
	Stats       map[string]any
	CompletedAt *time.Time
	LastError   *string
}

func (q *Queries) UpdateSyncRun(ctx context.Context, arg UpdateSyncRunParams) (SyncRun, error) {
	row := q.db.QueryRow(ctx, updateSyncRun, arg.ID, arg.Status, arg.Stats, arg.CompletedAt, arg.LastError)
	return scanSyncRun(row)
}

const getLatestSyncRun = `-- name: GetLatestSyncRun :one
SELECT ` + syncRunColumns + `
FROM sync_runs
ORDER BY created_at DESC
LIMIT 1
`

func (q *Queries) GetLatestSyncRun(ctx context.Context) (SyncRun, error) {
	return scanSyncRun(q.db.QueryRow(ctx, getLatestSyncRun))
}

const hasActiveSyncRun = `-- name: HasActiveSyncRun :one
SELECT EXISTS (
  SELECT 1 FROM sync_runs WHERE status IN ('queued', 'running')
)
`

func (q *Queries) HasActiveSyncRun(ctx context.Context) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, hasActiveSyncRun).Scan(&exists)
	return exists, err
}

const insertSyncRunLog = `-- name: InsertSyncRunLog :exec
INSERT INTO sync_run_logs (run_id, level, message)
VALUES ($1::uuid, $2, $3)
`

type InsertSyncRunLogParams struct {
	RunID   string
	Level   string
	Message string
}

func (q *Queries) InsertSyncRunLog(ctx context.Context, arg InsertSyncRunLogParams) error {
	_, err := q.db.Exec(ctx, insertSyncRunLog, arg.RunID, arg.Level, arg.Message)
	return err
}
