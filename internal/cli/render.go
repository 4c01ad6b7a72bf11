package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"biosync/internal/dashboard"
)

// printTable writes t as a bordered table. With details, the error message
// of every failing device follows the table.
func printTable(w io.Writer, t dashboard.Table, details bool) {
	if len(t.Rows) == 0 {
		fmt.Fprintln(w, "No biometric devices registered.")
		return
	}

	rows := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		rows = append(rows, r.Cells())
	}
	out := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Header...).
		Rows(rows...)
	fmt.Fprintln(w, out.String())

	if !details {
		return
	}
	for _, r := range t.Rows {
		if r.LastError.Text == "" {
			continue
		}
		fmt.Fprintf(w, "%s @ %s: %s\n", r.DeviceID, r.LastError.Text, r.LastError.Detail)
	}
}
