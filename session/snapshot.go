package session

import (
	"context"
	"errors"
	"time"
)

// Snapshot is a point-in-time view of a session's sequencing and liveness
// state (SPEC_FULL.md §4 "Session status snapshot"), served by the admin
// /status endpoint that the CLI status command reads, and read by fixcli
// connect to track the sequence numbers it persists.
type Snapshot struct {
	State      State
	NextSend   int
	NextExpect int

	// TestReqID is non-empty while a TestRequest answer is outstanding.
	TestReqID string

	LastSendAt time.Time
	LastRecvAt time.Time
}

// ErrSnapshotUnavailable signals the run loop exited before it could
// answer a Snapshot request.
var ErrSnapshotUnavailable = errors.New("session: snapshot unavailable, session exited")

// Snapshot blocks until the engine's run loop answers with its current
// Snapshot, or ctx is done, or the session has exited.
func (c *Connection) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case c.snapshotReq <- reply:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-c.snapshotDone:
		return Snapshot{}, ErrSnapshotUnavailable
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-c.snapshotDone:
		return Snapshot{}, ErrSnapshotUnavailable
	}
}
