package transport

import (
	"io"

	"github.com/tolelom/latticenode/block"
	"github.com/tolelom/latticenode/store"
)

// ServeBulkPull answers req against snap: spec §4.5.5's "ascending-height
// slice of the account chain starting at start ... up to count blocks".
// req.Start is interpreted as an account (serve from that account's
// opening block) if it names a known account, else as a resume block
// hash (serve starting at, and including, that block). Returns (nil, nil)
// if neither interpretation resolves to anything servable.
func ServeBulkPull(snap store.Snapshot, req block.BulkPullRequest) ([]*block.Block, error) {
	acct := block.Account(req.Start)
	if info, ok, err := snap.AccountInfo(acct); err != nil {
		return nil, err
	} else if ok {
		return walkChain(snap, info.Head, block.Hash{}, req.Count)
	}

	_, sb, found, err := snap.Block(req.Start)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	info, ok, err := snap.AccountInfo(sb.Account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return walkChain(snap, info.Head, req.Start, req.Count)
}

// walkChain collects blocks from head backward through Previous links
// until stopAt is reached inclusively (or the chain's opening block, when
// stopAt is the zero hash), then reverses the result into ascending
// (oldest-first) order and truncates to count.
func walkChain(snap store.Snapshot, head, stopAt block.Hash, count uint32) ([]*block.Block, error) {
	var chain []*block.Block
	for cur := head; !cur.IsZero(); {
		b, _, found, err := snap.Block(cur)
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}
		chain = append(chain, b)
		if cur == stopAt {
			break
		}
		cur = b.Previous
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	if count > 0 && uint32(len(chain)) > count {
		chain = chain[:count]
	}
	return chain, nil
}

// WriteBulkPullResponse writes the full framed response for req: each
// matching block via block.WriteBlock, terminated by the not_a_block
// sentinel, matching spec §6's response frame exactly.
func WriteBulkPullResponse(w io.Writer, snap store.Snapshot, req block.BulkPullRequest) error {
	chain, err := ServeBulkPull(snap, req)
	if err != nil {
		return err
	}
	for _, b := range chain {
		if err := block.WriteBlock(w, b); err != nil {
			return err
		}
	}
	return block.WriteNotABlock(w)
}
