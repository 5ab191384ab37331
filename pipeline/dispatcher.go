package pipeline

import "github.com/fix44engine/fix44/fix"

// Handler processes a message of one MsgType and returns the (possibly
// replaced) message to keep propagating, or nil to halt.
type Handler func(msg *fix.Message) (*fix.Message, error)

// Dispatcher routes a message to the Handler registered for its MsgType,
// falling back to a default handler when no per-type entry matches. A
// Processor that wants per-type handling embeds a Dispatcher and
// forwards its own OnReceive/OnSend to it.
type Dispatcher struct {
	recv map[string]Handler
	send map[string]Handler

	defaultRecv Handler
	defaultSend Handler

	frozen bool
}

// NewDispatcher returns a Dispatcher. defaultRecv and defaultSend run for
// any MsgType with no registered handler; either may be nil, in which
// case an unmatched message propagates unchanged.
func NewDispatcher(defaultRecv, defaultSend Handler) *Dispatcher {
	return &Dispatcher{
		recv:        make(map[string]Handler),
		send:        make(map[string]Handler),
		defaultRecv: defaultRecv,
		defaultSend: defaultSend,
	}
}

// On registers recv and send handlers for msgType; either may be nil to
// leave that direction on the default. On panics once Freeze has been
// called: registration is static, declared at construction, with no
// runtime mutation of the handler table once started.
func (d *Dispatcher) On(msgType string, recv, send Handler) *Dispatcher {
	if d.frozen {
		panic("pipeline: Dispatcher.On called after Freeze")
	}
	if recv != nil {
		d.recv[msgType] = recv
	}
	if send != nil {
		d.send[msgType] = send
	}
	return d
}

// Freeze locks the handler table against further registration. A
// Processor embedding a Dispatcher calls Freeze from its own Start.
func (d *Dispatcher) Freeze() {
	d.frozen = true
}

// OnReceive looks up msg's MsgType in the inbound table and calls the
// matching handler, or the default when none matches.
func (d *Dispatcher) OnReceive(msg *fix.Message) (*fix.Message, error) {
	return dispatch(d.recv, d.defaultRecv, msg)
}

// OnSend is the outbound counterpart of OnReceive.
func (d *Dispatcher) OnSend(msg *fix.Message) (*fix.Message, error) {
	return dispatch(d.send, d.defaultSend, msg)
}

func dispatch(table map[string]Handler, def Handler, msg *fix.Message) (*fix.Message, error) {
	msgType, _ := msg.MsgType()
	if h, ok := table[msgType]; ok {
		return h(msg)
	}
	if def != nil {
		return def(msg)
	}
	return msg, nil
}
