package dialog

import (
	"context"
	"sync"
)

// Pending is the caller's handle on an admitted dialog. It settles exactly
// once, when the dialog is resolved, cancelled, or the manager closes.
type Pending struct {
	id   int64
	once sync.Once
	done chan struct{}

	result any
	err    error
}

func newPending(id int64) *Pending {
	return &Pending{id: id, done: make(chan struct{})}
}

func (p *Pending) settle(result any, err error) {
	p.once.Do(func() {
		p.result = result
		p.err = err
		close(p.done)
	})
}

// ID returns the dialog id, or 0 if the dialog was never admitted.
func (p *Pending) ID() int64 {
	return p.id
}

// Done is closed once the dialog settles.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Settled reports whether the dialog has settled. Wait returns without
// blocking once it has.
func (p *Pending) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the dialog settles or ctx is done.
func (p *Pending) Wait(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.result, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Confirmed waits and reports whether the dialog resolved with true.
func (p *Pending) Confirmed(ctx context.Context) (bool, error) {
	v, err := p.Wait(ctx)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

// Text waits for a prompt result. ok is false when the prompt was
// cancelled or resolved with a non-string value.
func (p *Pending) Text(ctx context.Context) (text string, ok bool, err error) {
	v, err := p.Wait(ctx)
	if err != nil {
		return "", false, err
	}
	text, ok = v.(string)
	return text, ok, nil
}
