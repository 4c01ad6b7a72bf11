// Package syncstatus holds the per-device sync state exchanged between the
// sync backend and its operator consoles.
package syncstatus

import "time"

// SyncError is the most recent failed sync attempt of a device.
type SyncError struct {
	OccurredAt time.Time `json:"occurred_at"`
	Message    string    `json:"message"`
}

// DeviceSyncRecord is one registered biometric device as seen by the sync job.
//
// LastSync and LastError are independent: a success does not clear an older
// error and an error does not clear an older success.
type DeviceSyncRecord struct {
	DeviceID  string     `json:"device_id"`
	IPAddress string     `json:"ip_address"`
	LastSync  *time.Time `json:"last_sync"`
	LastError *SyncError `json:"last_error"`
}

// Snapshot is the full set of records returned by one status query, in the
// order the backend produced them.
type Snapshot []DeviceSyncRecord

// Clone returns a deep copy so callers never share state with the owner.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for i, r := range s {
		out[i] = r.clone()
	}
	return out
}

func (r DeviceSyncRecord) clone() DeviceSyncRecord {
	c := DeviceSyncRecord{DeviceID: r.DeviceID, IPAddress: r.IPAddress}
	if r.LastSync != nil {
		t := *r.LastSync
		c.LastSync = &t
	}
	if r.LastError != nil {
		e := *r.LastError
		c.LastError = &e
	}
	return c
}

// Acknowledgment is returned when the backend accepted a sync trigger. It
// says nothing about the outcome of the sync itself.
type Acknowledgment struct {
	Status string `json:"status"`
	RunID  string `json:"run_id,omitempty"`
}

const StatusAccepted = "accepted"
