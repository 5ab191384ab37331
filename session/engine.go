package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"

	"github.com/fix44engine/fix44/fix"
)

// timeoutResolution bounds how often the run loop re-checks the heartbeat
// and TestRequest deadlines. FIX has no formal equivalent to IEC's t₃
// resolution clause, but the same reasoning applies: finer than the
// heartbeat interval itself, coarse enough not to busy-loop.
const timeoutResolution = 250 * time.Millisecond

// retryTicker paces retry attempts after a temporary I/O error.
var retryTicker = time.NewTicker(200 * time.Millisecond)

// Fatal session errors, surfaced on Connection.Err right after the run
// loop sends a Logout (where one has not already been sent), just before
// it tears the session down.
var (
	ErrSeqTooLow     = errors.New("session: fatal incoming sequence number below expectation without PossDupFlag")
	ErrLogonExpected = errors.New("session: fatal first message from counterparty was not a Logon")
	ErrTestReqExpire = errors.New("session: fatal TestRequest answer timeout")
	ErrLogonExpire   = errors.New("session: fatal Logon reply timeout")
	ErrLogoutExpire  = errors.New("session: fatal Logout reply timeout")
)

type outMsg struct {
	seqNum int
	raw    []byte
	done   chan<- error
}

// inMsg pairs a decoded inbound message with the exact raw bytes it was
// decoded from, so the run loop can persist the wire form verbatim
// rather than re-encoding a possibly-mutated Message.
type inMsg struct {
	msg *fix.Message
	raw []byte
}

type engine struct {
	Config    // read only
	conn      net.Conn
	dict      *fix.GroupDict
	sentStore MessageStore
	recvStore MessageStore // may be nil: received messages then go unpersisted

	// Transport counterparts
	app    chan<- *fix.Message
	out    <-chan *Outbound
	errOut chan<- error
	// Connection counterparts
	state  chan<- State
	target <-chan State

	recv chan inMsg  // for recvLoop
	send chan outMsg // for sendLoop
	// closed when send is no longer read
	sendQuit chan struct{}

	snapshotReq  chan chan Snapshot
	snapshotDone chan struct{}

	nextSend   int // sequence number of the next outbound message
	nextExpect int // sequence number expected on the next inbound message

	// buffered while Resending: messages received out of order, keyed by
	// their sequence number, replayed to app once the gap closes.
	outOfOrder map[int]*fix.Message

	testReqID     string // non-empty while a TestRequest is outstanding
	testReqSentAt time.Time
	logonSentAt   time.Time
	logoutSentAt  time.Time
	lastSendAt    time.Time
	lastRecvAt    time.Time
}

// Engine starts a session over conn and returns a Connection with status
// Disconnected; send State LoggedIn on Target to log on. recvStore may
// be nil, in which case inbound messages are not persisted.
func Engine(config Config, conn net.Conn, dict *fix.GroupDict, sentStore, recvStore MessageStore, seqs SeqNums) *Connection {
	config.check()

	outChan := make(chan *Outbound)
	appChan := make(chan *fix.Message)
	errChan := make(chan error, 8)
	targetChan := make(chan State)
	stateChan := make(chan State)

	e := &engine{
		Config:    config,
		conn:      conn,
		dict:      dict,
		sentStore: sentStore,
		recvStore: recvStore,

		state:  stateChan,
		target: targetChan,

		app:    appChan,
		out:    outChan,
		errOut: errChan,

		recv:     make(chan inMsg, 64),
		send:     make(chan outMsg, 64),
		sendQuit: make(chan struct{}),

		snapshotReq:  make(chan chan Snapshot),
		snapshotDone: make(chan struct{}),

		nextSend:   seqs.NextSend,
		nextExpect: seqs.NextExpect,
		outOfOrder: make(map[int]*fix.Message),
		lastRecvAt: time.Now(),
	}

	go e.recvLoop()
	go e.sendLoop()
	go e.run()

	return &Connection{
		Transport: Transport{
			App: appChan, Out: outChan, Err: errChan,
		},
		Addr:   conn.RemoteAddr(),
		State:  stateChan,
		Target: targetChan,

		snapshotReq:  e.snapshotReq,
		snapshotDone: e.snapshotDone,
	}
}

// recvLoop decodes messages from conn and feeds e.recv, resynchronizing
// after a malformed frame by scanning forward to the next "8=" marker.
func (e *engine) recvLoop() {
	defer close(e.recv)

	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		for {
			msg, consumed, err := fix.Decode(buf, e.dict)
			switch {
			case err == nil:
				raw := append([]byte(nil), buf[:consumed]...)
				buf = buf[consumed:]
				e.recv <- inMsg{msg: msg, raw: raw}
				continue
			case err == fix.ErrIncomplete:
				// need more bytes
			default:
				e.errOut <- err
				if skip := bytes.Index(buf[1:], []byte("8=")); skip >= 0 {
					buf = buf[skip+1:]
					continue
				}
				buf = buf[:0]
			}
			break
		}

		n, err := e.conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		if err != nil {
			if err != io.EOF && !strings.Contains(err.Error(), "use of closed network connection") {
				e.errOut <- err
			}
			return
		}
	}
}

// sendLoop drains e.send, retrying a short write until the full frame
// has been written or a non-recoverable error occurs.
func (e *engine) sendLoop() {
	defer close(e.sendQuit)

	for o := range e.send {
		skip := 0
		for {
			n, err := e.conn.Write(o.raw[skip:])
			skip += n
			if err == nil || skip >= len(o.raw) {
				break
			}
			if ne, ok := err.(net.Error); !ok || !ne.Temporary() {
				o.done <- err
				close(o.done)
				e.errOut <- err
				return
			}
			<-retryTicker.C
		}
		close(o.done)
		if Trace {
			log.Printf("%s: sent seq=%d %d bytes", e.conn.RemoteAddr(), o.seqNum, len(o.raw))
		}
	}
}

// run is the session state machine.
func (e *engine) run() {
	st := Disconnected
	e.state <- st

	checkTicker := time.NewTicker(timeoutResolution)
	defer checkTicker.Stop()

	defer func() {
		close(e.send)
		<-e.sendQuit
		e.conn.Close()
		for range e.recv {
			// discard
		}
		close(e.state)
		close(e.app)
		close(e.errOut)
		close(e.snapshotDone)
		go func() {
			for o := range e.out {
				o.err <- ErrNoConn
			}
		}()
		go func() {
			for range e.target {
				// the session has ended; later requests have no effect
			}
		}()
	}()

	e.lastSendAt = time.Now()

	for {
		select {
		case l, ok := <-e.target:
			if !ok {
				if st == LoggedIn || st == Resending {
					e.sendAdmin(fix.NewLogout(""))
				}
				return
			}
			switch l {
			case Disconnected:
				return
			case LoggedIn:
				if st == Disconnected {
					if e.ResetOnLogon {
						e.nextSend = 1
						e.nextExpect = 1
					}
					e.sendAdmin(fix.NewLogon(e.HeartBtInt, e.ResetOnLogon, e.Username, e.Password))
					e.logonSentAt = time.Now()
					st = LogonSent
					e.state <- st
				}
			default: // LogoutSent or any other explicit request
				if st == LoggedIn || st == Resending {
					e.sendAdmin(fix.NewLogout(""))
					e.logoutSentAt = time.Now()
					st = LogoutSent
					e.state <- st
				}
			}

		case in, ok := <-e.recv:
			if !ok {
				return
			}
			e.lastRecvAt = time.Now()
			if e.recvStore != nil {
				if seq, ok := in.msg.SeqNum(); ok {
					e.recvStore.Store(seq, in.raw)
				}
			}
			var err error
			st, err = e.handleInbound(st, in.msg)
			if err != nil {
				if errors.Is(err, ErrSeqTooLow) || errors.Is(err, ErrLogonExpected) {
					e.sendAdmin(fix.NewLogout(""))
				} else if st == Disconnected {
					return // Logout exchange completed: a normal end
				}
				e.errOut <- err
				return
			}

		case o, ok := <-e.out:
			if !ok {
				return
			}
			if st != LoggedIn {
				o.err <- ErrNoConn
				continue
			}
			e.submit(o)

		case reply := <-e.snapshotReq:
			reply <- Snapshot{
				State:      st,
				NextSend:   e.nextSend,
				NextExpect: e.nextExpect,
				TestReqID:  e.testReqID,
				LastSendAt: e.lastSendAt,
				LastRecvAt: e.lastRecvAt,
			}

		case now := <-checkTicker.C:
			if st == LogonSent && !e.logonSentAt.IsZero() && now.Sub(e.logonSentAt) >= e.ConnectTimeout {
				e.sendAdmin(fix.NewLogout(""))
				e.errOut <- ErrLogonExpire
				return
			}
			if st == LogoutSent && now.Sub(e.logoutSentAt) >= e.LogoutTimeout {
				// already sent the Logout that went unanswered; nothing
				// more to send before tearing the session down.
				e.errOut <- ErrLogoutExpire
				return
			}
			if e.testReqID != "" && now.Sub(e.testReqSentAt) >= time.Duration(e.HeartBtInt)*time.Second+e.HeartbeatGrace {
				e.sendAdmin(fix.NewLogout(""))
				e.errOut <- ErrTestReqExpire
				return
			}
			if st == LoggedIn || st == Resending {
				idle := now.Sub(e.lastRecvAt)
				if e.testReqID == "" && idle >= time.Duration(e.HeartBtInt)*time.Second+e.HeartbeatGrace {
					id := fmt.Sprintf("TEST%d", now.UnixNano())
					e.sendAdmin(fix.NewTestRequest(id))
					e.testReqID = id
					e.testReqSentAt = now
				}
				if now.Sub(e.lastSendAt) >= time.Duration(e.HeartBtInt)*time.Second {
					e.sendAdmin(fix.NewHeartbeat(""))
				}
			}
		}
	}
}

// handleInbound dispatches one received message per its MsgType and
// returns the resulting state.
func (e *engine) handleInbound(st State, msg *fix.Message) (State, error) {
	seq, hasSeq := msg.SeqNum()
	msgType, _ := msg.MsgType()

	if st == Disconnected || st == Connecting {
		if msgType != fix.MsgTypeLogon {
			return st, ErrLogonExpected
		}
	}

	if hasSeq && seq > e.nextExpect {
		e.outOfOrder[seq] = msg
		if st != Resending {
			e.sendAdmin(fix.NewResendRequest(e.nextExpect, seq-1))
			st = Resending
			e.state <- st
		}
		return st, nil
	}
	if hasSeq && seq < e.nextExpect {
		if !msg.PossDupFlag() {
			return st, ErrSeqTooLow
		}
		return st, nil // already-seen replay, ignore
	}

	st, err := e.process(st, msg)
	if err != nil {
		return st, err
	}
	if hasSeq {
		e.nextExpect++
	}

	// drain any buffered messages the newly advanced window now covers
	for {
		next, buffered := e.outOfOrder[e.nextExpect]
		if !buffered {
			break
		}
		delete(e.outOfOrder, e.nextExpect)
		st, err = e.process(st, next)
		if err != nil {
			return st, err
		}
		e.nextExpect++
	}
	if st == Resending && len(e.outOfOrder) == 0 {
		st = LoggedIn
		e.state <- st
	}
	return st, nil
}

// process applies the semantics of one in-order message and returns the
// resulting state; it does not touch e.nextExpect.
func (e *engine) process(st State, msg *fix.Message) (State, error) {
	msgType, _ := msg.MsgType()
	switch msgType {
	case fix.MsgTypeLogon:
		if st == Disconnected || st == Connecting {
			// Acceptor role: reply in kind before advancing.
			e.sendAdmin(fix.NewLogon(e.HeartBtInt, false, e.Username, e.Password))
		}
		st = LoggedIn
		e.state <- st
		e.logonSentAt = time.Time{}

	case fix.MsgTypeLogout:
		if st == LogoutSent {
			return Disconnected, errors.New("session: peer confirmed logout")
		}
		e.sendAdmin(fix.NewLogout(""))
		return Disconnected, errors.New("session: peer initiated logout")

	case fix.MsgTypeHeartbeat:
		if f, ok := msg.Get(fix.TagTestReqID); ok {
			if txt, _ := f.Text(); txt == e.testReqID {
				e.testReqID = ""
			}
		}

	case fix.MsgTypeTestRequest:
		id, _ := msg.Get(fix.TagTestReqID)
		t, _ := id.Text()
		e.sendAdmin(fix.NewHeartbeat(t))

	case fix.MsgTypeResendRequest:
		begin, _ := msg.Get(fix.TagBeginSeqNo)
		end, _ := msg.Get(fix.TagEndSeqNo)
		b, _ := begin.Int()
		en, _ := end.Int()
		e.answerResend(int(b), int(en))

	case fix.MsgTypeSequenceReset:
		// Both GapFill and hard reset simply set the expectation; the
		// -1 accounts for handleInbound's own nextExpect increment once
		// process returns.
		newSeq, _ := msg.Get(fix.TagNewSeqNo)
		n, _ := newSeq.Int()
		e.nextExpect = int(n) - 1

	case fix.MsgTypeReject:
		// logged by the caller via Err; no state change.

	default:
		e.app <- msg
	}
	return st, nil
}

// answerResend replays stored raw messages for [begin, end]; any sequence
// number the store cannot produce verbatim is bridged with a single
// SequenceReset gap fill instead of failing the whole request. When end
// is 0 (or less than begin) it resolves to one less than the next
// outbound sequence number, even when that yields an empty range.
func (e *engine) answerResend(begin, end int) {
	if end == 0 || end < begin {
		end = e.nextSend - 1
	}
	n := begin
	for n <= end {
		raw, err := e.sentStore.Range(n, n)
		if err != nil {
			gapEnd := n + 1
			for gapEnd <= end {
				if _, err := e.sentStore.Range(gapEnd, gapEnd); err == nil {
					break
				}
				gapEnd++
			}
			e.sendAdmin(fix.NewSequenceReset(true, gapEnd))
			n = gapEnd
			continue
		}
		done := make(chan error, 1)
		e.send <- outMsg{seqNum: n, raw: raw[0], done: done}
		n++
	}
}

// submit assigns the next sequence number, persists the encoded message,
// and hands it to sendLoop.
func (e *engine) submit(o *Outbound) {
	seq := e.nextSend
	o.Msg.SetSeqNum(seq)
	o.Msg.Set(fix.TagSenderCompID, e.SenderCompID)
	o.Msg.Set(fix.TagTargetCompID, e.TargetCompID)
	o.Msg.SetField(fix.NewTimeField(fix.TagSendingTime, time.Now().UTC()))

	raw, err := fix.Encode(o.Msg)
	if err != nil {
		o.err <- err
		return
	}
	if err := e.sentStore.Store(seq, raw); err != nil {
		o.err <- err
		return
	}
	e.nextSend = seq + 1
	e.lastSendAt = time.Now()
	e.send <- outMsg{seqNum: seq, raw: raw, done: o.err}
}

// sendAdmin encodes and submits an administrative message, best effort:
// failures surface on Err rather than blocking the run loop.
func (e *engine) sendAdmin(msg *fix.Message) {
	seq := e.nextSend
	msg.SetSeqNum(seq)
	msg.Set(fix.TagSenderCompID, e.SenderCompID)
	msg.Set(fix.TagTargetCompID, e.TargetCompID)
	msg.SetField(fix.NewTimeField(fix.TagSendingTime, time.Now().UTC()))

	raw, err := fix.Encode(msg)
	if err != nil {
		e.errOut <- err
		return
	}
	if err := e.sentStore.Store(seq, raw); err != nil {
		e.errOut <- err
		return
	}
	e.nextSend = seq + 1
	e.lastSendAt = time.Now()
	done := make(chan error, 1)
	e.send <- outMsg{seqNum: seq, raw: raw, done: done}
}
