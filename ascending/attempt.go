// Package ascending implements C5, the ascending bootstrap attempt: a
// long-running driver that picks accounts via the selection set, leases
// a connection from transport, issues a bulk_pull, and feeds the decoded
// stream into the block processor, watching outcomes to re-weight
// selection.
package ascending

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tolelom/latticenode/block"
	"github.com/tolelom/latticenode/processor"
	"github.com/tolelom/latticenode/selection"
	"github.com/tolelom/latticenode/store"
	"github.com/tolelom/latticenode/transport"
)

// emptyPoolBackoff throttles the main loop when the selection set has
// nothing to offer, or a dial attempt failed, so an otherwise-idle
// attempt doesn't spin a CPU core.
const emptyPoolBackoff = 10 * time.Millisecond

// Attempt is one bootstrap driver. Create with NewAttempt, start with
// Run (blocks until stopped and every in-flight request has drained),
// and Stop from any goroutine.
//
// In-flight admission is a golang.org/x/sync/semaphore.Weighted rather
// than a hand-rolled condition variable: spec.md §5's "wait until
// in_flight < MAX_IN_FLIGHT or stopped" is exactly an Acquire(ctx, 1)
// against a weighted semaphore whose ctx is cancelled by Stop. Read
// pipelines run under a golang.org/x/sync/errgroup.Group so Run can join
// every spawned goroutine with one Wait instead of tracking completions
// by hand.
type Attempt struct {
	store     store.Store
	transport transport.Transport
	proc      processor.Processor
	sel       *selection.Set
	opts      Options

	sem *semaphore.Weighted

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool

	requests  int64
	forwarded int64
}

// NewAttempt wires proc's processed observer to the attempt's inspection
// hook (spec.md §4.5.3) and returns a ready-to-run Attempt.
func NewAttempt(st store.Store, tp transport.Transport, proc processor.Processor, sel *selection.Set, opts Options) *Attempt {
	a := &Attempt{
		store:     st,
		transport: tp,
		proc:      proc,
		sel:       sel,
		opts:      opts,
		sem:       semaphore.NewWeighted(int64(opts.MaxInFlight)),
	}
	proc.OnProcessed(a.onProcessed)
	return a
}

// Stop requests the main loop exit. Idempotent and safe from any
// goroutine (spec.md §4.5.6): it cancels the context every blocked
// semaphore Acquire in this attempt is waiting on, so a stop is observed
// promptly regardless of how full in-flight currently is.
func (a *Attempt) Stop() {
	a.mu.Lock()
	a.stopped = true
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (a *Attempt) isStopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

// Run executes the main loop (spec.md §4.5.1) until Stop is called or
// ctx is cancelled, then blocks until every spawned read pipeline has
// returned before returning itself (spec.md §4.5.6: "In-flight tags
// drain to zero before run() returns").
func (a *Attempt) Run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	defer cancel()

	g, _ := errgroup.WithContext(context.Background())
	a.mainLoop(ctx, g)
	_ = g.Wait()
}

func (a *Attempt) mainLoop(ctx context.Context, g *errgroup.Group) {
	for {
		if err := a.sem.Acquire(ctx, 1); err != nil {
			return
		}
		if a.isStopped() {
			a.sem.Release(1)
			return
		}
		if !a.step(ctx, g) {
			return
		}
	}
}

// step runs one iteration of the main loop. The caller has already
// acquired one semaphore unit on step's behalf; step releases it itself
// on every early-return path, or hands that responsibility to the
// goroutine it spawns for a successful request. Returns false if the
// attempt should stop outright (no peer configured at all).
func (a *Attempt) step(ctx context.Context, g *errgroup.Group) bool {
	account, ok := a.sel.Next()
	if !ok {
		a.sem.Release(1)
		time.Sleep(emptyPoolBackoff)
		return true
	}

	start := block.Hash(account)
	if snap, err := a.store.NewSnapshot(); err == nil {
		if info, found, err := snap.AccountInfo(account); err == nil && found && !info.Head.IsZero() {
			start = info.Head
		}
	}

	conn, ok := a.transport.Idle()
	if !ok {
		c, err := a.transport.Dial(ctx)
		if err != nil {
			a.sem.Release(1)
			if errors.Is(err, transport.ErrNoPeer) {
				a.Stop()
				return false
			}
			time.Sleep(emptyPoolBackoff)
			return true
		}
		conn = c
	}

	if err := conn.Request(block.BulkPullRequest{Start: start, Count: a.opts.MaxBlocksPerRequest}); err != nil {
		conn.Close()
		a.sem.Release(1)
		return true
	}

	a.bumpRequests()
	requestID := uuid.NewString()
	g.Go(func() error {
		defer a.sem.Release(1)
		a.readPipeline(conn, requestID)
		return nil
	})
	return true
}

// readPipeline implements spec.md §4.5.2.
func (a *Attempt) readPipeline(conn transport.Conn, requestID string) {
	blocks := 0
	for {
		b, err := conn.ReadBlock()
		if err != nil {
			conn.Close()
			return
		}
		if b == nil {
			a.transport.Release(conn)
			logrus.WithFields(logrus.Fields{"request": requestID, "blocks": blocks}).Debug("ascending: request complete")
			return
		}
		a.proc.Add(b)
		blocks++
	}
}

// onProcessed is spec.md §4.5.3's inspection hook.
func (a *Attempt) onProcessed(account block.Account, result block.ProcessResult, b *block.Block, sb *block.Sideband) {
	switch result {
	case block.ResultProgress:
		a.sel.Unblock(account)
		a.sel.Forward(account)
		a.bumpForwarded()
		if sb.Details.IsSend && a.opts.ForwardSendDestination {
			if dest, ok := sendDestination(b); ok {
				a.sel.Forward(dest)
				a.bumpForwarded()
			}
		}
	case block.ResultGapSource:
		a.sel.Block(account)
	}
}

// sendDestination reports the account a send block paid: link.as_account
// for a state-block send, the destination field for a legacy send.
func sendDestination(b *block.Block) (block.Account, bool) {
	switch b.Type {
	case block.TypeState:
		return block.Account(b.Link), true
	case block.TypeSend:
		return b.Destination, true
	default:
		return block.Account{}, false
	}
}

// Stats is a point-in-time snapshot of one Attempt's progress counters,
// exposed for statusd and metrics to read without reaching into the
// attempt's internals.
type Stats struct {
	Requests  int64
	Forwarded int64
	PoolSize  int
}

// Stats returns a snapshot of the attempt's current counters.
func (a *Attempt) Stats() Stats {
	a.mu.Lock()
	requests, forwarded := a.requests, a.forwarded
	a.mu.Unlock()
	return Stats{Requests: requests, Forwarded: forwarded, PoolSize: a.sel.Size()}
}

func (a *Attempt) bumpRequests() {
	a.mu.Lock()
	a.requests++
	n := a.requests
	a.mu.Unlock()
	if a.opts.StatsInterval > 0 && n%int64(a.opts.StatsInterval) == 0 {
		a.dumpStats()
	}
}

func (a *Attempt) bumpForwarded() {
	a.mu.Lock()
	a.forwarded++
	a.mu.Unlock()
}

// dumpStats logs request/forward totals and the current candidate pool
// size. Observability only — spec.md §4.5.1: "has no control effect".
func (a *Attempt) dumpStats() {
	s := a.Stats()
	logrus.WithFields(logrus.Fields{
		"requests":  s.Requests,
		"forwarded": s.Forwarded,
		"pool_size": s.PoolSize,
	}).Info("ascending: bootstrap progress")
}
