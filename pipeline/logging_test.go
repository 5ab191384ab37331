package pipeline

import (
	"context"
	"testing"

	"github.com/fix44engine/fix44/fix"
)

func TestLoggingProcessorPassesMessagesThroughUnchanged(t *testing.T) {
	p := NewLoggingProcessor("test")
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	msg, err := fix.NewMessage([]fix.TagValue{
		{Tag: fix.TagMsgType, Value: "D"},
		{Tag: 5001, Value: "1"},
	}, fix.NewGroupDict())
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	out, err := p.OnReceive(msg)
	if err != nil {
		t.Fatalf("OnReceive: %v", err)
	}
	if out != msg {
		t.Error("OnReceive should pass the message through unchanged")
	}

	out, err = p.OnSend(msg)
	if err != nil {
		t.Fatalf("OnSend: %v", err)
	}
	if out != msg {
		t.Error("OnSend should pass the message through unchanged")
	}
}
