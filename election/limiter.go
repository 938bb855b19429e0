// Package election implements C3, the election admission limiter: a
// facade in front of a Pool that bounds how many elections one scheduler
// lane may have in flight at a time.
package election

import (
	"sync"

	"github.com/tolelom/latticenode/block"
)

// Result mirrors the reference node's election_insertion_result: either
// Inserted is false (no election started — either the limit was full, or
// the pool already had one live for this root), or it names the
// election that now exists.
type Result struct {
	Election Election
	Inserted bool
}

// Limiter bounds the number of elections a scheduler lane may start.
type Limiter struct {
	pool  Pool
	limit int

	mu   sync.Mutex
	live map[block.QualifiedRoot]struct{}
	self *weakRef
}

// NewLimiter builds a Limiter delegating insertion to pool, admitting at
// most limit concurrently live elections.
func NewLimiter(pool Pool, limit int) *Limiter {
	l := &Limiter{
		pool:  pool,
		limit: limit,
		live:  make(map[block.QualifiedRoot]struct{}),
	}
	l.self = &weakRef{target: l}
	return l
}

// Limit returns the constant configured admission ceiling.
func (l *Limiter) Limit() int { return l.limit }

// Available reports whether another election could be started right now.
// This is advisory: Activate re-checks after delegating to the pool, and
// a transient under-count is possible (see Activate).
func (l *Limiter) Available() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.live) < l.limit
}

// Elections returns the set of qualified roots this limiter currently
// considers live.
func (l *Limiter) Elections() []block.QualifiedRoot {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]block.QualifiedRoot, 0, len(l.live))
	for r := range l.live {
		out = append(out, r)
	}
	return out
}

// Activate checks Available, then delegates insertion to the pool
// outside the lock — matching the reference node's ordering, which
// avoids taking the limiter's lock while the pool may itself be
// acquiring others. If the pool inserted a new election, Activate
// re-enters the lock to register it and attaches a destruction observer
// that decrements live exactly once when the election concludes.
//
// The pool insertion happening outside the lock means |live| can
// transiently under-count an in-progress insert from a concurrent
// Activate call; Available is advisory, and over-admission is bounded by
// the number of concurrent callers racing this window.
func (l *Limiter) Activate(candidate *block.Block) (Result, error) {
	if !l.Available() {
		return Result{}, nil
	}
	el, inserted, err := l.pool.Insert(candidate)
	if err != nil {
		return Result{}, err
	}
	if !inserted {
		return Result{Election: el, Inserted: false}, nil
	}

	root := el.Root()
	l.mu.Lock()
	l.live[root] = struct{}{}
	l.mu.Unlock()

	ref := l.self
	el.OnDestroy(func(r block.QualifiedRoot) {
		if lim := ref.get(); lim != nil {
			lim.electionDestroyed(r)
		}
	})

	return Result{Election: el, Inserted: true}, nil
}

// electionDestroyed removes root from live, returning 1 if it was
// present or 0 if it was not (already removed, or never registered).
// Safe to call after the limiter itself has been closed — the weakRef
// indirection in Activate's callback turns that case into a no-op before
// this method is ever reached.
func (l *Limiter) electionDestroyed(root block.QualifiedRoot) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.live[root]; ok {
		delete(l.live, root)
		return 1
	}
	return 0
}

// Close detaches this limiter from any destruction callbacks still
// pending on elections it started. Call it when the limiter itself is
// being torn down, before any Pool it was given might outlive it.
func (l *Limiter) Close() {
	l.self.clear()
}
