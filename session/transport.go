// Package session implements the FIX 4.4 session layer: logon/logout,
// heartbeats, gap detection and resend, layered over a Wire Codec message
// stream.
package session

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/fix44engine/fix44/fix"
)

var (
	// ErrConnLost signals the underlying connection failed or was closed
	// by the peer while an Outbound was still pending.
	ErrConnLost = errors.New("session: connection lost")

	// ErrNoConn signals an Outbound submitted after the session has
	// already exited.
	ErrNoConn = errors.New("session: no connection")
)

// Trace activates wire-level logging of every decoded and encoded message.
var Trace = false

// Connection is an established FIX session, handed back once the engine's
// run loop has started.
type Connection struct {
	Transport

	Addr net.Addr

	// State propagates every transition; it must be read continuously or
	// the engine's run loop blocks.
	State <-chan State

	// Target requests a transition: LoggedIn sends a Logon when
	// Disconnected, Disconnected ends the run loop at once, and any other
	// State sends a Logout when logged in. Closing it sends a Logout when
	// logged in and then ends the run loop.
	Target chan<- State

	snapshotReq  chan<- chan Snapshot
	snapshotDone <-chan struct{}
}

// Transport is the application-facing message stream. App carries complete,
// application-level (non-administrative) messages; the session layer
// answers Logon/Logout/Heartbeat/TestRequest/ResendRequest/SequenceReset on
// its own. Both must be read continuously or the run loop may block.
type Transport struct {
	// App captures inbound application messages in order of arrival.
	App <-chan *fix.Message

	// Out submits an application message for sending. It blocks until
	// accepted and sealed with a sequence number.
	Out chan<- *Outbound

	// Err captures protocol failures not tied to a specific Outbound.
	Err <-chan error
}

// Outbound is a single-use send request.
type Outbound struct {
	Msg *fix.Message

	// Done receives exactly one error on failure; it is safe to wait for
	// it to close once the submission has been accepted.
	Done <-chan error

	err chan<- error
}

// NewOutbound returns an Outbound ready to submit once.
func NewOutbound(msg *fix.Message) *Outbound {
	ch := make(chan error, 1)
	return &Outbound{Msg: msg, Done: ch, err: ch}
}

// GoString satisfies fmt.GoStringer for logging.
func (s State) GoString() string {
	return fmt.Sprintf("session.%s", s.String())
}

var errPipeTimeout = errors.New("session: pipe exchange timeout")

// Pipe creates a synchronous in-memory full-duplex message exchange for
// tests: an Outbound submitted on one end arrives on the other's App
// channel with no wire encoding involved. Timeout bounds each handoff.
func Pipe(timeout time.Duration) (*Transport, *Transport) {
	aQuit := make(chan struct{})
	bQuit := make(chan struct{})

	aOut := make(chan *Outbound)
	bOut := make(chan *Outbound)

	aApp := make(chan *fix.Message)
	bApp := make(chan *fix.Message)
	aErr := make(chan error)
	bErr := make(chan error)

	go func() {
		defer close(aQuit)
		feedPipe(bApp, timeout, aOut, bQuit)
	}()
	go func() {
		defer close(bQuit)
		feedPipe(aApp, timeout, bOut, aQuit)
	}()

	return &Transport{App: aApp, Out: aOut, Err: aErr},
		&Transport{App: bApp, Out: bOut, Err: bErr}
}

func feedPipe(deliver chan *fix.Message, timeout time.Duration, out chan *Outbound, remoteQuit chan struct{}) {
	defer func() {
		go func() {
			for o := range out {
				o.err <- ErrNoConn
				close(o.err)
			}
		}()
	}()

	expire := time.NewTimer(time.Minute)
	expire.Stop()

	for {
		select {
		case <-remoteQuit:
			return
		case o, ok := <-out:
			if !ok {
				return
			}
			if expire.Reset(timeout) {
				panic("pending expiry timer")
			}
			select {
			case deliver <- o.Msg:
				if !expire.Stop() {
					<-expire.C
				}
				close(o.err)
			case <-remoteQuit:
				if !expire.Stop() {
					<-expire.C
				}
				o.err <- ErrConnLost
				close(o.err)
				return
			case <-expire.C:
				o.err <- errPipeTimeout
				close(o.err)
			}
		}
	}
}
