// Package cliout renders connection status as a table on the terminal,
// the way fixcli status prints what the admin REST surface's GET
// /status endpoint would otherwise only return as JSON.
package cliout

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/fix44engine/fix44/session"
)

func newBareTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator(":")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

// PrintSnapshot writes snap as a key/value table.
func PrintSnapshot(w io.Writer, snap session.Snapshot) error {
	table := newBareTable(w)
	rows := [][2]string{
		{"state", snap.State.String()},
		{"next send", strconv.Itoa(snap.NextSend)},
		{"next expect", strconv.Itoa(snap.NextExpect)},
	}
	if snap.TestReqID != "" {
		rows = append(rows, [2]string{"pending test request", snap.TestReqID})
	}
	if !snap.LastSendAt.IsZero() {
		rows = append(rows, [2]string{"last sent", snap.LastSendAt.Format("15:04:05.000")})
	}
	if !snap.LastRecvAt.IsZero() {
		rows = append(rows, [2]string{"last received", snap.LastRecvAt.Format("15:04:05.000")})
	}
	for _, row := range rows {
		table.Append(row[:])
	}
	table.Render()
	return nil
}

// ConnectionRow is one row of PrintConnections, naming a connection by
// its SenderCompID/TargetCompID pair alongside its current snapshot.
type ConnectionRow struct {
	Name     string
	Snapshot session.Snapshot
}

// PrintConnections writes a header table listing every row, for a
// future multi-connection fixcli status invocation.
func PrintConnections(w io.Writer, rows []ConnectionRow) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"connection", "state", "next send", "next expect"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, row := range rows {
		table.Append([]string{
			row.Name,
			row.Snapshot.State.String(),
			strconv.Itoa(row.Snapshot.NextSend),
			strconv.Itoa(row.Snapshot.NextExpect),
		})
	}
	table.Render()
	return nil
}
