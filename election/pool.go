package election

import (
	"sync"

	"github.com/tolelom/latticenode/block"
)

// Election is the capability Limiter needs from whatever is actually
// running consensus on an admitted block: a stable identity, and the
// ability to be told "call me back exactly once, when this election
// ends" — the reference node's destructor_observers.
type Election interface {
	Root() block.QualifiedRoot
	OnDestroy(func(block.QualifiedRoot))
}

// Pool is the election-insertion collaborator Limiter.Activate delegates
// to, analogous to the reference node's active_transactions. Whether a
// root is already contending is Pool's call, not Limiter's: Limiter only
// ever bounds how many *new* elections this scheduler lane may start.
type Pool interface {
	Insert(candidate *block.Block) (el Election, inserted bool, err error)
}

// SimplePool is a minimal in-process Pool: one election per qualified
// root, torn down explicitly via Destroy. It stands in for the full
// active-elections container, which consensus execution — out of scope
// here — would otherwise own.
type SimplePool struct {
	mu     sync.Mutex
	byRoot map[block.QualifiedRoot]*simpleElection
}

// NewSimplePool returns an empty SimplePool.
func NewSimplePool() *SimplePool {
	return &SimplePool{byRoot: make(map[block.QualifiedRoot]*simpleElection)}
}

func (p *SimplePool) Insert(candidate *block.Block) (Election, bool, error) {
	root := block.QualifiedRoot{Account: candidate.Account, PreviousOfHead: candidate.Previous}
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.byRoot[root]; ok {
		return el, false, nil
	}
	el := &simpleElection{root: root}
	p.byRoot[root] = el
	return el, true, nil
}

// Destroy ends the election for root, firing every registered
// destruction observer exactly once.
func (p *SimplePool) Destroy(root block.QualifiedRoot) {
	p.mu.Lock()
	el, ok := p.byRoot[root]
	if ok {
		delete(p.byRoot, root)
	}
	p.mu.Unlock()
	if ok {
		el.destroy()
	}
}

type simpleElection struct {
	root block.QualifiedRoot

	mu        sync.Mutex
	observers []func(block.QualifiedRoot)
	destroyed bool
}

func (e *simpleElection) Root() block.QualifiedRoot { return e.root }

func (e *simpleElection) OnDestroy(fn func(block.QualifiedRoot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		fn(e.root)
		return
	}
	e.observers = append(e.observers, fn)
}

func (e *simpleElection) destroy() {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.destroyed = true
	observers := e.observers
	e.mu.Unlock()
	for _, fn := range observers {
		fn(e.root)
	}
}
