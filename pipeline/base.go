package pipeline

import "context"

// Base gives a Processor no-op Start/Stop and Dispatcher-backed
// OnReceive/OnSend, so a concrete processor need only embed it and
// register the MsgType handlers it cares about.
type Base struct {
	*Dispatcher
}

// NewBase returns a Base with the given pass-through defaults.
func NewBase(defaultRecv, defaultSend Handler) Base {
	return Base{Dispatcher: NewDispatcher(defaultRecv, defaultSend)}
}

// Start implements Processor as a no-op beyond freezing the handler
// table, when one was supplied via NewBase.
func (b Base) Start(ctx context.Context) error {
	if b.Dispatcher != nil {
		b.Dispatcher.Freeze()
	}
	return nil
}

// Stop implements Processor as a no-op.
func (b Base) Stop() error { return nil }
