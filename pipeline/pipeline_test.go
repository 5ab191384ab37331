package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fix44engine/fix44/fix"
	"github.com/fix44engine/fix44/pipeline"
	"github.com/fix44engine/fix44/session"
)

func newTestConn(t *session.Transport) *session.Connection {
	return &session.Connection{
		Transport: *t,
		State:     make(chan session.State),
		Target:    make(chan session.State, 1),
	}
}

// recordingProcessor counts traversals and optionally tags each message
// so a test can assert ordering across several stages.
type recordingProcessor struct {
	pipeline.Base
	name  string
	trace *[]string
	halt  bool // if true, OnReceive/OnSend return nil to stop propagation
}

func (p *recordingProcessor) OnReceive(msg *fix.Message) (*fix.Message, error) {
	*p.trace = append(*p.trace, p.name+":recv")
	if p.halt {
		return nil, nil
	}
	return msg, nil
}

func (p *recordingProcessor) OnSend(msg *fix.Message) (*fix.Message, error) {
	*p.trace = append(*p.trace, p.name+":send")
	if p.halt {
		return nil, nil
	}
	return msg, nil
}

func newAppMessage(t *testing.T, tag fix.Tag, value string) *fix.Message {
	t.Helper()
	msg, err := fix.NewMessage([]fix.TagValue{{Tag: fix.TagMsgType, Value: "D"}, {Tag: tag, Value: value}}, fix.NewGroupDict())
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	return msg
}

func TestPipelineInboundOrderBottomUp(t *testing.T) {
	a, b := session.Pipe(time.Second)
	conn := newTestConn(a)

	var trace []string
	top := &recordingProcessor{name: "P0", trace: &trace}
	bottom := &recordingProcessor{name: "P1", trace: &trace}

	var delivered *fix.Message
	pl := pipeline.New(conn, []pipeline.Processor{top, bottom}, func(m *fix.Message) { delivered = m })
	if err := pl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	msg := newAppMessage(t, 5001, "hello")
	o := session.NewOutbound(msg)
	b.Out <- o
	if err := <-o.Done; err != nil {
		t.Fatalf("Outbound.Done: %v", err)
	}

	deadline := time.After(time.Second)
	for delivered == nil {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for sink delivery")
		case <-time.After(time.Millisecond):
		}
	}

	want := []string{"P1:recv", "P0:recv"}
	if len(trace) != len(want) || trace[0] != want[0] || trace[1] != want[1] {
		t.Fatalf("traversal order = %v, want %v", trace, want)
	}
}

func TestPipelineInboundHaltStopsPropagation(t *testing.T) {
	a, b := session.Pipe(time.Second)
	conn := newTestConn(a)

	var trace []string
	top := &recordingProcessor{name: "P0", trace: &trace}
	bottom := &recordingProcessor{name: "P1", trace: &trace, halt: true}

	var delivered *fix.Message
	pl := pipeline.New(conn, []pipeline.Processor{top, bottom}, func(m *fix.Message) { delivered = m })
	if err := pl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	o := session.NewOutbound(newAppMessage(t, 5001, "x"))
	b.Out <- o
	if err := <-o.Done; err != nil {
		t.Fatalf("Outbound.Done: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if len(trace) != 1 || trace[0] != "P1:recv" {
		t.Fatalf("trace = %v, want exactly [P1:recv]", trace)
	}
	if delivered != nil {
		t.Fatal("sink received a message the bottom processor halted")
	}
}

type erroringProcessor struct {
	pipeline.Base
	err    error
	stopCh chan struct{}
}

func (p *erroringProcessor) OnReceive(msg *fix.Message) (*fix.Message, error) {
	return nil, p.err
}

func (p *erroringProcessor) Stop() error {
	close(p.stopCh)
	return nil
}

func TestPipelineInboundErrorStopsAllProcessors(t *testing.T) {
	a, b := session.Pipe(time.Second)
	conn := newTestConn(a)

	failing := &erroringProcessor{err: errors.New("boom"), stopCh: make(chan struct{})}
	sibling := &erroringProcessor{stopCh: make(chan struct{})}

	pl := pipeline.New(conn, []pipeline.Processor{sibling, failing}, nil)
	if err := pl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	o := session.NewOutbound(newAppMessage(t, 5001, "x"))
	b.Out <- o
	<-o.Done

	select {
	case <-failing.stopCh:
	case <-time.After(time.Second):
		t.Fatal("failing processor never stopped")
	}
	select {
	case <-sibling.stopCh:
	case <-time.After(time.Second):
		t.Fatal("sibling processor never stopped despite the other's error")
	}

	if pl.Cause() == nil {
		t.Fatal("Cause() is nil after a processor error")
	}
}

func TestPipelineSendTopDown(t *testing.T) {
	a, b := session.Pipe(time.Second)
	conn := newTestConn(a)

	var trace []string
	top := &recordingProcessor{name: "P0", trace: &trace}
	bottom := &recordingProcessor{name: "P1", trace: &trace}

	pl := pipeline.New(conn, []pipeline.Processor{top, bottom}, nil)
	if err := pl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	recvd := make(chan *fix.Message, 1)
	go func() { recvd <- <-b.App }()

	errc := make(chan error, 1)
	go func() { errc <- pl.Send(newAppMessage(t, 5001, "x")) }()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send never returned")
	}

	select {
	case <-recvd:
	case <-time.After(time.Second):
		t.Fatal("counterpart never received the sent message")
	}

	want := []string{"P0:send", "P1:send"}
	if len(trace) != len(want) || trace[0] != want[0] || trace[1] != want[1] {
		t.Fatalf("traversal order = %v, want %v", trace, want)
	}
}
