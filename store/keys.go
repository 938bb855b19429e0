package store

import (
	"encoding/hex"
	"strings"

	"github.com/tolelom/latticenode/block"
)

// Key layout. Not the reference node's on-disk format (Non-goals exclude
// replicating that); chosen to keep lookups single-key and prefix scans
// cheap for the two enumerations bootpeer needs at startup.
const (
	prefixAccount = "acct:"
	prefixBlock   = "block:"
	prefixPending = "pending:"
	prefixPruned  = "pruned:"
)

func acctKey(a block.Account) []byte {
	return []byte(prefixAccount + hex.EncodeToString(a[:]))
}

func accountFromKey(key []byte) (block.Account, bool) {
	s := strings.TrimPrefix(string(key), prefixAccount)
	if len(s) != 64 {
		return block.Account{}, false
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return block.Account{}, false
	}
	var a block.Account
	copy(a[:], raw)
	return a, true
}

func blockKey(h block.Hash) []byte {
	return []byte(prefixBlock + hex.EncodeToString(h[:]))
}

func prunedKey(h block.Hash) []byte {
	return []byte(prefixPruned + hex.EncodeToString(h[:]))
}

func pendingDestPrefix(dest block.Account) []byte {
	return []byte(prefixPending + hex.EncodeToString(dest[:]) + ":")
}

func pendingKey(dest block.Account, source block.Hash) []byte {
	return []byte(prefixPending + hex.EncodeToString(dest[:]) + ":" + hex.EncodeToString(source[:]))
}

// destFromPendingPrefixScan extracts the destination account encoded at
// the front of any key under prefixPending.
func destFromPendingPrefixScan(key []byte) (block.Account, bool) {
	s := strings.TrimPrefix(string(key), prefixPending)
	i := strings.IndexByte(s, ':')
	if i != 64 {
		return block.Account{}, false
	}
	raw, err := hex.DecodeString(s[:i])
	if err != nil {
		return block.Account{}, false
	}
	var a block.Account
	copy(a[:], raw)
	return a, true
}
