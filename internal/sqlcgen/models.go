package sqlcgen

import "time"

type BiometricDevice struct {
	ID                     string
	DeviceID               string
	IPAddress              *string
	Port                   int32
	PunchDirection         string
	ClearFromDeviceOnFetch bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

type DeviceSyncStatus struct {
	DeviceID         string
	IPAddress        *string
	LastSyncAt       *time.Time
	LastErrorAt      *time.Time
	LastErrorMessage *string
}

type SyncRun struct {
	ID          string
	Status      string
	Trigger     string
	Stats       map[string]any
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	LastError   *string
}

type SyncRunLog struct {
	RunID   string
	Level   string
	Message string
}
