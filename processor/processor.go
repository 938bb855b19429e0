// Package processor implements C6: the single-writer block processor
// ascending.Attempt feeds decoded blocks into. The Processor interface
// is the contract spec.md §4.6 names; Queue is this repository's
// reference implementation of it.
package processor

import "github.com/tolelom/latticenode/block"

// ProcessedFunc observes the outcome of checking one block, whatever
// that outcome was. account is derived even on failure (spec.md §4.5.3's
// inspection hook needs it for gap_source/gap_previous bookkeeping); sb
// is nil unless result is block.ResultProgress.
type ProcessedFunc func(account block.Account, result block.ProcessResult, b *block.Block, sb *block.Sideband)

// InsertedFunc observes a block that was committed to the store. Queue
// calls it on its writer goroutine after the block's write transaction
// has committed, not inside that transaction, immediately before
// ProcessedFunc for the same block, so observers see blocks in commit
// order.
type InsertedFunc func(account block.Account, b *block.Block, sb *block.Sideband)

// Processor is the four operations C5 depends on (spec.md §4.6):
// admission, a way to wait for the current queue to drain, and two
// backpressure signals.
type Processor interface {
	// Add enqueues b for validation. An implementation may coalesce a
	// block already queued with the same hash. Queue.Add does not
	// coalesce, and it blocks while Queue's buffer is full.
	Add(b *block.Block)

	// Flush blocks until every block enqueued before this call returns.
	Flush()

	// HalfFull and Full are backpressure signals a caller can use to
	// throttle how fast it enqueues more work.
	HalfFull() bool
	Full() bool

	// OnProcessed and OnInserted register observers. Registering after
	// processing has started may miss earlier events; callers register
	// before producing.
	OnProcessed(fn ProcessedFunc)
	OnInserted(fn InsertedFunc)
}
