package health

import (
	"context"
	"sync/atomic"

	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

// Probe is evaluated at request time. nil means OK.
type Probe interface{ Check(context.Context) error }

// CheckFunc adapts a function into a Probe.
type CheckFunc func(context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Fixed returns a probe that always passes or always fails with reason.
func Fixed(ok bool, reason string) CheckFunc {
	if ok {
		return func(context.Context) error { return nil }
	}
	if reason == "" {
		reason = "unhealthy"
	}
	return func(context.Context) error { return xerrors.New(reason) }
}

// All passes only if every non-nil probe passes and returns the first failure.
func All(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// ShutdownGate flips readiness to false during drain/shutdown.
type ShutdownGate struct {
	draining atomic.Bool
	reason   atomic.Value
}

func (g *ShutdownGate) Set(reason string) {
	g.reason.Store(reason)
	g.draining.Store(true)
}

func (g *ShutdownGate) Clear() {
	g.draining.Store(false)
	g.reason.Store("")
}

func (g *ShutdownGate) Probe() CheckFunc {
	return func(context.Context) error {
		if !g.draining.Load() {
			return nil
		}
		r, _ := g.reason.Load().(string)
		if r == "" {
			r = "draining"
		}
		return xerrors.New(r)
	}
}

// Latch fails with its pending reason until Open is called, then passes
// forever.
type Latch struct {
	open    atomic.Bool
	pending string
}

func NewLatch(pending string) *Latch {
	if pending == "" {
		pending = "starting"
	}
	return &Latch{pending: pending}
}

func (l *Latch) Open()        { l.open.Store(true) }
func (l *Latch) IsOpen() bool { return l.open.Load() }

func (l *Latch) Probe() CheckFunc {
	return func(context.Context) error {
		if l.open.Load() {
			return nil
		}
		return xerrors.New(l.pending)
	}
}
