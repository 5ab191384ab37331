package cliout

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fix44engine/fix44/session"
)

func TestPrintSnapshotIncludesStateAndSeqNums(t *testing.T) {
	var buf bytes.Buffer
	snap := session.Snapshot{State: session.LoggedIn, NextSend: 12, NextExpect: 9}
	if err := PrintSnapshot(&buf, snap); err != nil {
		t.Fatalf("PrintSnapshot: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "logged-in") {
		t.Errorf("output missing state: %q", out)
	}
	if !strings.Contains(out, "12") || !strings.Contains(out, "9") {
		t.Errorf("output missing sequence numbers: %q", out)
	}
}

func TestPrintConnectionsListsEachRow(t *testing.T) {
	var buf bytes.Buffer
	rows := []ConnectionRow{
		{Name: "CLIENT-SERVER", Snapshot: session.Snapshot{State: session.LoggedIn, NextSend: 2, NextExpect: 2}},
		{Name: "CLIENT-MARKET", Snapshot: session.Snapshot{State: session.Disconnected}},
	}
	if err := PrintConnections(&buf, rows); err != nil {
		t.Fatalf("PrintConnections: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "CLIENT-SERVER") || !strings.Contains(out, "CLIENT-MARKET") {
		t.Errorf("output missing connection names: %q", out)
	}
}
