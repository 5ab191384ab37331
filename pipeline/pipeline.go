// Package pipeline implements the bidirectional processor chain that
// every inbound and outbound application message flows through between
// the session layer and user-written strategy code.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/fix44engine/fix44/fix"
	"github.com/fix44engine/fix44/session"
)

// Processor is one stage of the pipeline. OnReceive runs
// during inbound traversal (wire toward the application); OnSend runs
// during outbound traversal (application toward the wire). Returning a
// nil message with a nil error halts propagation for that message without
// failing the pipeline; a non-nil error is fatal to the whole pipeline.
type Processor interface {
	Start(ctx context.Context) error
	Stop() error
	OnReceive(msg *fix.Message) (*fix.Message, error)
	OnSend(msg *fix.Message) (*fix.Message, error)
}

// Pipeline is the ordered processor chain. Procs[0] is P0, the top stage
// closest to the application; Procs[len-1] is Pn-1, the bottom stage
// closest to the wire.
type Pipeline struct {
	conn  *session.Connection
	procs []Processor
	sink  func(*fix.Message)

	mu    sync.Mutex
	cause error

	stopOnce sync.Once
}

// New returns a Pipeline stacked on conn with the given processors, P0
// first. sink receives every inbound message that survives traversal
// through all processors; it runs on the pipeline's single inbound
// goroutine and must not block.
func New(conn *session.Connection, procs []Processor, sink func(*fix.Message)) *Pipeline {
	return &Pipeline{conn: conn, procs: procs, sink: sink}
}

// Start starts every processor bottom-up (Pn-1 first), then launches the
// inbound traversal loop. On a start failure, processors already
// started are stopped top-down before the error is returned.
func (p *Pipeline) Start(ctx context.Context) error {
	for i := len(p.procs) - 1; i >= 0; i-- {
		if err := p.procs[i].Start(ctx); err != nil {
			for j := i + 1; j < len(p.procs); j++ {
				p.procs[j].Stop()
			}
			return fmt.Errorf("pipeline: processor %d start: %w", i, err)
		}
	}
	go p.recvLoop()
	return nil
}

// recvLoop serializes inbound delivery: message N+1 does not begin
// traversal until message N has exited the last processor.
func (p *Pipeline) recvLoop() {
	for msg := range p.conn.App {
		if err := p.deliver(msg); err != nil {
			p.fail(err)
			return
		}
	}
}

// deliver traverses msg from Pn-1 up to P0.
func (p *Pipeline) deliver(msg *fix.Message) error {
	for i := len(p.procs) - 1; i >= 0; i-- {
		var err error
		msg, err = p.procs[i].OnReceive(msg)
		if err != nil {
			return fmt.Errorf("pipeline: processor %d OnReceive: %w", i, err)
		}
		if msg == nil {
			return nil
		}
	}
	if p.sink != nil {
		p.sink(msg)
	}
	return nil
}

// Send traverses msg from P0 down to Pn-1 and, if it survives every
// processor, submits it to the session layer for sequencing and
// transmission. A processor returning nil halts the send without error;
// the message is simply not transmitted. A processor error is fatal to
// the pipeline and the message is not transmitted either way.
func (p *Pipeline) Send(msg *fix.Message) error {
	for i := 0; i < len(p.procs); i++ {
		var err error
		msg, err = p.procs[i].OnSend(msg)
		if err != nil {
			err = fmt.Errorf("pipeline: processor %d OnSend: %w", i, err)
			p.fail(err)
			return err
		}
		if msg == nil {
			return nil
		}
	}
	o := session.NewOutbound(msg)
	p.conn.Out <- o
	return <-o.Done
}

// fail records the first fatal cause and tears the pipeline down.
func (p *Pipeline) fail(err error) {
	p.mu.Lock()
	if p.cause == nil {
		p.cause = err
	}
	p.mu.Unlock()
	p.Stop()
}

// Cause returns the error that halted the pipeline, if any.
func (p *Pipeline) Cause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cause
}

// Stop requests the session to log out (closing Target) and stops every
// processor concurrently, waiting for all of them to return before
// reporting. A processor whose Stop panics or errors does not prevent
// the others from stopping; every error is collected. Stop is
// idempotent.
func (p *Pipeline) Stop() error {
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	p.stopOnce.Do(func() {
		close(p.conn.Target)
		wg.Add(len(p.procs))
		for i := range p.procs {
			proc := p.procs[i]
			go func(idx int) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						mu.Lock()
						errs = append(errs, fmt.Errorf("processor %d stop panic: %v", idx, r))
						mu.Unlock()
					}
				}()
				if err := proc.Stop(); err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("processor %d stop: %w", idx, err))
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()
	})
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("pipeline: %d processor(s) failed to stop: %v", len(errs), errs)
}
