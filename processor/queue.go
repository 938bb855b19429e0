package processor

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tolelom/latticenode/block"
	"github.com/tolelom/latticenode/check"
	"github.com/tolelom/latticenode/store"
)

// Queue is the reference Processor: one writer goroutine draining a
// buffered channel, running check.Context.Check inside one store.WriteTxn
// per block and applying its sideband before committing. No exception
// crosses the writer goroutine boundary (spec.md §7): every I/O failure
// is logged and the block is dropped, matching the "affected connection
// is dropped, driver proceeds" policy for this layer's analogous failure
// mode.
type Queue struct {
	st      store.Store
	checker *check.Context

	in     chan *block.Block
	doneCh chan struct{}

	mu                 sync.Mutex
	pending            int
	drained            chan struct{}
	processedObservers []ProcessedFunc
	insertedObservers  []InsertedFunc
}

// NewQueue returns a Queue that checks blocks with checker and commits
// accepted ones to st. bufferSize bounds the admission channel; HalfFull
// and Full read its current occupancy against that bound.
func NewQueue(st store.Store, checker *check.Context, bufferSize int) *Queue {
	q := &Queue{
		st:      st,
		checker: checker,
		in:      make(chan *block.Block, bufferSize),
		doneCh:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) Add(b *block.Block) {
	q.mu.Lock()
	if q.pending == 0 {
		q.drained = make(chan struct{})
	}
	q.pending++
	q.mu.Unlock()
	q.in <- b
}

func (q *Queue) Flush() {
	q.mu.Lock()
	ch := q.drained
	pending := q.pending
	q.mu.Unlock()
	if pending == 0 || ch == nil {
		return
	}
	<-ch
}

func (q *Queue) HalfFull() bool { return len(q.in) >= cap(q.in)/2 }
func (q *Queue) Full() bool     { return len(q.in) >= cap(q.in) }

func (q *Queue) OnProcessed(fn ProcessedFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processedObservers = append(q.processedObservers, fn)
}

func (q *Queue) OnInserted(fn InsertedFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.insertedObservers = append(q.insertedObservers, fn)
}

// Close stops accepting work and waits for the writer goroutine to drain
// and exit. Callers must not call Add concurrently with or after Close.
func (q *Queue) Close() {
	close(q.in)
	<-q.doneCh
}

func (q *Queue) run() {
	defer close(q.doneCh)
	for b := range q.in {
		q.process(b)
	}
}

func (q *Queue) process(b *block.Block) {
	defer q.markDone()

	txn, err := q.st.Begin()
	if err != nil {
		logrus.WithError(err).Error("processor: begin write transaction")
		return
	}

	account, _ := deriveAccountForObserver(txn, b)

	result, sb, err := q.checker.Check(txn, b)
	if err != nil {
		txn.Discard()
		logrus.WithError(err).Error("processor: check")
		return
	}
	if result != block.ResultProgress {
		txn.Discard()
		q.fireProcessed(account, result, b, nil)
		return
	}

	prevInfo, _, err := txn.AccountInfo(sb.Account)
	if err != nil {
		txn.Discard()
		logrus.WithError(err).Error("processor: load account info")
		return
	}
	if err := apply(txn, b, sb, prevInfo); err != nil {
		txn.Discard()
		logrus.WithError(err).Error("processor: apply sideband")
		return
	}
	if err := txn.Commit(); err != nil {
		logrus.WithError(err).Error("processor: commit")
		return
	}
	q.checker.Note(b.ContentHash())

	q.fireInserted(sb.Account, b, sb)
	q.fireProcessed(sb.Account, result, b, sb)
}

func (q *Queue) markDone() {
	q.mu.Lock()
	q.pending--
	if q.pending == 0 && q.drained != nil {
		close(q.drained)
	}
	q.mu.Unlock()
}

func (q *Queue) fireProcessed(account block.Account, result block.ProcessResult, b *block.Block, sb *block.Sideband) {
	q.mu.Lock()
	observers := append([]ProcessedFunc(nil), q.processedObservers...)
	q.mu.Unlock()
	for _, fn := range observers {
		fn(account, result, b, sb)
	}
}

func (q *Queue) fireInserted(account block.Account, b *block.Block, sb *block.Sideband) {
	q.mu.Lock()
	observers := append([]InsertedFunc(nil), q.insertedObservers...)
	q.mu.Unlock()
	for _, fn := range observers {
		fn(account, b, sb)
	}
}
