package pipeline

import (
	"github.com/fix44engine/fix44/fix"
	"github.com/fix44engine/fix44/internal/logging"
)

// LoggingProcessor logs every message that passes through it, in both
// directions, without altering it. It is the simplest possible
// Processor and the one fixcli installs when its pipeline_apps config
// key names "logging".
type LoggingProcessor struct {
	Base
	Name string
}

// NewLoggingProcessor returns a LoggingProcessor identifying itself as
// name in its log lines.
func NewLoggingProcessor(name string) *LoggingProcessor {
	p := &LoggingProcessor{Name: name}
	p.Base = NewBase(p.logRecv, p.logSend)
	return p
}

func (p *LoggingProcessor) logRecv(msg *fix.Message) (*fix.Message, error) {
	mt, _ := msg.MsgType()
	logging.Debugf("%s: received %s", p.Name, mt)
	return msg, nil
}

func (p *LoggingProcessor) logSend(msg *fix.Message) (*fix.Message, error) {
	mt, _ := msg.MsgType()
	logging.Debugf("%s: sending %s", p.Name, mt)
	return msg, nil
}
