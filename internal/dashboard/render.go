package dashboard

import (
	"time"

	"biosync/internal/syncstatus"
)

// NeverSynced is shown in the sync-time cell of a device that never synced.
const NeverSynced = "Never"

// DefaultTimeLayout matches the dd-mm-yyyy operator date format.
const DefaultTimeLayout = "02-01-2006 15:04:05"

// Columns are the header cells of a rendered table.
var Columns = []string{"Device ID", "IP Address", "Last Sync", "Last Error"}

// Localizer formats a timestamp for the operator.
type Localizer func(t time.Time) string

// NewLocalizer formats timestamps in loc using layout.
func NewLocalizer(loc *time.Location, layout string) Localizer {
	if loc == nil {
		loc = time.Local
	}
	if layout == "" {
		layout = DefaultTimeLayout
	}
	return func(t time.Time) string {
		return t.In(loc).Format(layout)
	}
}

// DefaultLocalizer formats in the local time zone with DefaultTimeLayout.
func DefaultLocalizer() Localizer {
	return NewLocalizer(time.Local, DefaultTimeLayout)
}

// ErrorCell is the Last Error column: the failure time as visible text and
// the failure message as supplementary detail. Both are empty when the
// device has no recorded error.
type ErrorCell struct {
	Text   string
	Detail string
}

// Row is one rendered device.
type Row struct {
	DeviceID  string
	IPAddress string
	LastSync  string
	LastError ErrorCell
}

// Cells returns the visible text of the row in column order.
func (r Row) Cells() []string {
	return []string{r.DeviceID, r.IPAddress, r.LastSync, r.LastError.Text}
}

// Table is the tabular projection of a snapshot.
type Table struct {
	Header []string
	Rows   []Row
}

// RenderSnapshot projects snap into a Table with one row per record, in the
// order received. It does not modify snap.
func RenderSnapshot(snap syncstatus.Snapshot, localize Localizer) Table {
	if localize == nil {
		localize = DefaultLocalizer()
	}
	header := make([]string, len(Columns))
	copy(header, Columns)

	rows := make([]Row, 0, len(snap))
	for _, rec := range snap {
		row := Row{
			DeviceID:  rec.DeviceID,
			IPAddress: rec.IPAddress,
			LastSync:  NeverSynced,
		}
		if rec.LastSync != nil {
			row.LastSync = localize(*rec.LastSync)
		}
		if rec.LastError != nil {
			row.LastError = ErrorCell{
				Text:   localize(rec.LastError.OccurredAt),
				Detail: rec.LastError.Message,
			}
		}
		rows = append(rows, row)
	}
	return Table{Header: header, Rows: rows}
}
