package check

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/tolelom/latticenode/block"
)

// WorkThresholds maps an epoch to the minimum proof-of-work difficulty a
// block's Work nonce must meet. Tuning, not an invariant (spec.md §9).
type WorkThresholds map[block.Epoch]uint64

// DefaultWorkThresholds returns a permissive difficulty suitable for
// tests and for chains that have not tuned their own.
func DefaultWorkThresholds() WorkThresholds {
	return WorkThresholds{
		block.Epoch0: 1,
		block.Epoch1: 1,
		block.Epoch2: 1,
	}
}

func (t WorkThresholds) threshold(e block.Epoch) uint64 {
	if v, ok := t[e]; ok {
		return v
	}
	return 1
}

// sufficientWork reports whether work meets threshold when bound to root
// (the block's previous hash, or its own account for an opening block).
// Expressed with sha256 rather than the reference node's blake2b PoW
// function, since this wire format is our own (Non-goals exclude
// byte-for-byte protocol compatibility with the reference node).
func sufficientWork(work block.Work, root [32]byte, threshold uint64) bool {
	h := sha256.Sum256(append(work[:], root[:]...))
	return binary.LittleEndian.Uint64(h[:8]) >= threshold
}

// workRoot returns the frontier a block's Work nonce is bound to.
func workRoot(b *block.Block) [32]byte {
	if !b.Previous.IsZero() {
		return [32]byte(b.Previous)
	}
	return [32]byte(b.Account)
}
