// Package check implements C2, the block check context: a pure,
// deterministic classifier from (read-only store snapshot, candidate
// block) to a closed ProcessResult and, on success, a Sideband. Context
// never mutates the store it is handed; committing an accepted block is
// processor's job.
package check

import (
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tolelom/latticenode/block"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/store"
)

type blockOp int

const (
	opSend blockOp = iota
	opReceive
	opNoop
	opEpoch
)

// ErrStoreUnreachable wraps an I/O failure from the snapshot passed to
// Check. It is never returned for a classification outcome — those are
// always a ProcessResult with a nil error.
var ErrStoreUnreachable = errors.New("check: store unreachable")

// Context holds the chain-wide constants Check needs (the epoch seed and
// work difficulty table) plus a bounded duplicate-detection cache. It
// carries no store state itself, so Check remains a pure function of its
// two arguments modulo the cache, which only ever short-circuits to the
// same answer the store would have given.
type Context struct {
	chainSeed      []byte
	workThresholds WorkThresholds
	dupCache       *lru.Cache[block.Hash, struct{}]
	now            func() int64
}

// NewContext builds a Context. dupCacheSize bounds the ADDED fast-path
// duplicate cache (SPEC_FULL.md §4.2); 0 disables it and every duplicate
// check falls through to the snapshot.
func NewContext(chainSeed []byte, thresholds WorkThresholds, dupCacheSize int) (*Context, error) {
	if thresholds == nil {
		thresholds = DefaultWorkThresholds()
	}
	c := &Context{
		chainSeed:      chainSeed,
		workThresholds: thresholds,
		now:            func() int64 { return time.Now().Unix() },
	}
	if dupCacheSize > 0 {
		cache, err := lru.New[block.Hash, struct{}](dupCacheSize)
		if err != nil {
			return nil, fmt.Errorf("check: new duplicate cache: %w", err)
		}
		c.dupCache = cache
	}
	return c, nil
}

// Check implements the derivation order of spec.md §4.2.
func (c *Context) Check(snapshot store.Snapshot, candidate *block.Block) (block.ProcessResult, *block.Sideband, error) {
	hash := candidate.ContentHash()

	// 1. Duplicate.
	if c.dupCache != nil {
		if _, ok := c.dupCache.Get(hash); ok {
			return block.ResultOld, nil, nil
		}
	}
	if pruned, err := snapshot.IsPruned(hash); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	} else if pruned {
		return block.ResultOld, nil, nil
	}
	if _, _, ok, err := snapshot.Block(hash); err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	} else if ok {
		return block.ResultOld, nil, nil
	}

	// 2. Load previous.
	var prevBlock *block.Block
	var prevSideband block.Sideband
	if !candidate.Previous.IsZero() {
		b, sb, ok, err := snapshot.Block(candidate.Previous)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
		}
		if !ok {
			return block.ResultGapPrevious, nil, nil
		}
		prevBlock, prevSideband = b, sb
	}

	// 3. Load state.
	account, ok := deriveAccount(candidate, prevSideband)
	if !ok {
		return block.ResultGapPrevious, nil, nil
	}
	info, found, err := snapshot.AccountInfo(account)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	if !found {
		info = block.AccountInfo{}
	}

	// 4. Classify operation.
	operation := classify(candidate, info, c.chainSeed)

	// 5. Structural rules, in order.
	if !sufficientWork(candidate.Work, workRoot(candidate), c.workThresholds.threshold(info.Epoch)) {
		return block.ResultInsufficientWork, nil, nil
	}
	if (candidate.Type == block.TypeOpen || candidate.Type == block.TypeState) && account.IsZero() {
		return block.ResultOpenedBurnAccount, nil, nil
	}
	if prevBlock != nil && prevBlock.Type == block.TypeState && isLegacy(candidate.Type) {
		return block.ResultBlockPosition, nil, nil
	}
	var sourceHash block.Hash
	if operation == opReceive {
		// state_block_source_position: this only judges a pending entry
		// that already exists: "does it exist" is rule 6's gap_source /
		// unreceivable check, which runs after block_signed/metastable.
		sourceHash = sourceOf(candidate)
		if pending, pendOK, err := snapshot.Pending(account, sourceHash); err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
		} else if pendOK && pending.SourceEpoch > block.Epoch0 && candidate.Type != block.TypeState {
			return block.ResultUnreceivable, nil, nil
		}
	}
	signer, recognized := c.signer(candidate, account, operation)
	if !recognized {
		return block.ResultBadSignature, nil, nil
	}
	if !crypto.VerifyHash(signer, hash, candidate.Signature) {
		return block.ResultBadSignature, nil, nil
	}
	if candidate.Previous != info.Head {
		return block.ResultFork, nil, nil
	}

	// 6. Per-op rules.
	newEpoch := info.Epoch
	var newBalance block.Amount
	switch operation {
	case opReceive:
		if _, _, srcOK, err := snapshot.Block(sourceHash); err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
		} else if !srcOK {
			return block.ResultGapSource, nil, nil
		}
		pending, pendOK, err := snapshot.Pending(account, sourceHash)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
		}
		if !pendOK {
			return block.ResultUnreceivable, nil, nil
		}
		expected := info.Balance.Add(pending.Amount)
		if candidate.Type == block.TypeState {
			if candidate.Balance.Cmp(expected) != 0 {
				return block.ResultBalanceMismatch, nil, nil
			}
		}
		newBalance = expected
	case opSend:
		if candidate.Balance.Cmp(info.Balance) > 0 {
			return block.ResultNegativeSpend, nil, nil
		}
		newBalance = candidate.Balance
	case opNoop:
		if candidate.Type == block.TypeState {
			if candidate.Balance.Cmp(info.Balance) != 0 {
				return block.ResultBalanceMismatch, nil, nil
			}
		}
		newBalance = info.Balance
	case opEpoch:
		if candidate.Balance.Cmp(info.Balance) != 0 {
			return block.ResultBalanceMismatch, nil, nil
		}
		if candidate.Representative != info.Representative {
			return block.ResultRepresentativeMismatch, nil, nil
		}
		upgraded, _ := recognizedEpoch(candidate.Link, c.chainSeed)
		if upgraded != info.Epoch+1 {
			return block.ResultBlockPosition, nil, nil
		}
		if candidate.Previous.IsZero() {
			has, err := snapshot.HasAnyPending(account)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
			}
			if !has {
				return block.ResultGapEpochOpenPending, nil, nil
			}
		}
		newEpoch = upgraded
		newBalance = info.Balance
	}

	// 7. Sideband.
	height := uint64(1)
	if prevBlock != nil {
		height = prevSideband.Height + 1
	}
	sideband := &block.Sideband{
		Account:   account,
		Balance:   newBalance,
		Height:    height,
		Timestamp: c.now(),
		Details: block.Details{
			Epoch:     newEpoch,
			IsSend:    operation == opSend,
			IsReceive: operation == opReceive,
			IsEpoch:   operation == opEpoch,
		},
		SourceEpoch: newEpoch,
	}
	return block.ResultProgress, sideband, nil
}

// Note records hash in the duplicate cache once the caller has committed
// it, so a retransmitted copy short-circuits on the fast path next time.
func (c *Context) Note(hash block.Hash) {
	if c.dupCache != nil {
		c.dupCache.Add(hash, struct{}{})
	}
}

func classify(candidate *block.Block, info block.AccountInfo, chainSeed []byte) blockOp {
	switch candidate.Type {
	case block.TypeState:
		if candidate.Balance.Cmp(info.Balance) < 0 {
			return opSend
		}
		if candidate.Link.IsZero() {
			return opNoop
		}
		if _, ok := recognizedEpoch(candidate.Link, chainSeed); ok {
			return opEpoch
		}
		return opReceive
	case block.TypeSend:
		return opSend
	case block.TypeOpen, block.TypeReceive:
		return opReceive
	default: // TypeChange
		return opNoop
	}
}

func isLegacy(t block.Type) bool {
	return t == block.TypeSend || t == block.TypeReceive || t == block.TypeChange
}

func sourceOf(candidate *block.Block) block.Hash {
	if candidate.Type == block.TypeState {
		return candidate.Link
	}
	return candidate.Source
}

// deriveAccount implements step 3's account derivation: an open block
// (or a state block, which always carries its account explicitly) names
// its own account; every legacy successor inherits the account recorded
// in its previous block's sideband.
func deriveAccount(candidate *block.Block, prevSideband block.Sideband) (block.Account, bool) {
	switch candidate.Type {
	case block.TypeOpen, block.TypeState:
		return candidate.Account, true
	case block.TypeSend, block.TypeReceive, block.TypeChange:
		if prevSideband.Account.IsZero() {
			return block.Account{}, false
		}
		return prevSideband.Account, true
	default:
		return block.Account{}, false
	}
}

// signer implements the signer rule: legacy variants and receiving/noop
// state blocks are signed by the account; a state block whose link names
// an epoch sentinel and whose operation is not a send is signed by the
// designated epoch-upgrade key instead.
func (c *Context) signer(candidate *block.Block, account block.Account, operation blockOp) (block.Account, bool) {
	if candidate.Type == block.TypeState && operation == opEpoch {
		epoch, ok := recognizedEpoch(candidate.Link, c.chainSeed)
		if !ok {
			return block.Account{}, false
		}
		return EpochSigningAccount(epoch, c.chainSeed), true
	}
	return account, true
}
