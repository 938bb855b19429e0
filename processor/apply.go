package processor

import (
	"github.com/tolelom/latticenode/block"
	"github.com/tolelom/latticenode/store"
)

// apply persists the effects of a block check.Context already classified
// as block.ResultProgress: the block itself, its account's new head
// summary, and the pending-entry side effect of a send or receive.
func apply(txn store.WriteTxn, b *block.Block, sb *block.Sideband, prevInfo block.AccountInfo) error {
	hash := b.ContentHash()
	if err := txn.PutBlock(b, *sb); err != nil {
		return err
	}

	info := block.AccountInfo{
		Head:           hash,
		Representative: representativeFor(b, prevInfo),
		Balance:        sb.Balance,
		BlockCount:     sb.Height,
		Modified:       sb.Timestamp,
		Epoch:          sb.Details.Epoch,
	}
	if err := txn.PutAccountInfo(sb.Account, info); err != nil {
		return err
	}

	if sb.Details.IsSend {
		if dest, ok := destinationOf(b); ok {
			amount, ok := prevInfo.Balance.Sub(sb.Balance)
			if !ok {
				amount = block.ZeroAmount
			}
			if err := txn.PutPending(dest, hash, block.PendingInfo{
				Sender:      sb.Account,
				Amount:      amount,
				SourceEpoch: sb.Details.Epoch,
			}); err != nil {
				return err
			}
		}
	}
	if sb.Details.IsReceive {
		if err := txn.DeletePending(sb.Account, sourceHashOf(b)); err != nil {
			return err
		}
	}
	return nil
}

// representativeFor reports the representative a newly-applied block
// leaves an account with: open/change/state blocks always carry a
// representative field (state blocks carry it on every operation, not
// only change-equivalents); legacy send/receive blocks don't, so the
// account's existing representative carries forward unchanged.
func representativeFor(b *block.Block, prevInfo block.AccountInfo) block.Account {
	switch b.Type {
	case block.TypeOpen, block.TypeChange, block.TypeState:
		return b.Representative
	default:
		return prevInfo.Representative
	}
}

// destinationOf reports the account a send block paid, if b is a send.
// Callers only call this once sb.Details.IsSend is true.
func destinationOf(b *block.Block) (block.Account, bool) {
	switch b.Type {
	case block.TypeState:
		return block.Account(b.Link), true
	case block.TypeSend:
		return b.Destination, true
	default:
		return block.Account{}, false
	}
}

// sourceHashOf returns the source block hash a receive block acknowledges.
func sourceHashOf(b *block.Block) block.Hash {
	if b.Type == block.TypeState {
		return b.Link
	}
	return b.Source
}

// deriveAccountForObserver derives the best-effort account a candidate
// block belongs to, even when check.Context rejected it before a
// sideband could be produced (spec.md §4.5.3's inspection hook needs the
// account for gap_source/gap_previous bookkeeping regardless of outcome).
// Mirrors check's own (unexported) account derivation, but check never
// reports an account on failure since Context is not in the business of
// producing partial results — this is processor's side of that contract.
func deriveAccountForObserver(snap store.Snapshot, b *block.Block) (block.Account, bool) {
	if b.Type == block.TypeOpen || b.Type == block.TypeState {
		return b.Account, true
	}
	if b.Previous.IsZero() {
		return block.Account{}, false
	}
	_, sb, ok, err := snap.Block(b.Previous)
	if err != nil || !ok {
		return block.Account{}, false
	}
	return sb.Account, true
}
