// Package block defines the wire-level data model of the block lattice:
// accounts, hashes, amounts, the five block variants, and the metadata a
// validator derives about a block after accepting it (the sideband).
package block

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
)

// Account is a 256-bit ed25519 public key.
type Account [32]byte

func (a Account) String() string { return hex.EncodeToString(a[:]) }

// IsZero reports whether a is the all-zero "burn" account.
func (a Account) IsZero() bool { return a == Account{} }

// Hash is a 256-bit digest, used both for block hashes and source hashes.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// IsZero reports whether h is the all-zero hash (used as "previous" on an
// opening block, and as the sentinel "end" field of a bulk_pull request).
func (h Hash) IsZero() bool { return h == Hash{} }

// Signature is a 64-byte ed25519 signature.
type Signature [64]byte

// Work is an 8-byte little-endian proof-of-work nonce.
type Work [8]byte

// Epoch is a small monotone ordinal stamped on each block. Epoch upgrades
// only ever increase an account's epoch, by exactly one at a time.
type Epoch uint8

const (
	Epoch0 Epoch = iota
	Epoch1
	Epoch2
	epochCount
)

// EpochCount is the number of known epoch ordinals, exported so callers
// outside this package (check's epoch-sentinel recognition) can iterate
// them without reaching into an unexported constant.
const EpochCount = epochCount

func (e Epoch) String() string {
	if e < epochCount {
		return fmt.Sprintf("epoch_%d", uint8(e))
	}
	return fmt.Sprintf("epoch_unknown_%d", uint8(e))
}

// maxAmountBits bounds Amount to the 128-bit balance width the data model
// specifies, even though the backing uint256.Int has 256 bits of headroom.
// See DESIGN.md "Amount as a 128-bit value stored in a 256-bit type".
const maxAmountBits = 128

// Amount is a 128-bit unsigned balance, backed by a 256-bit fixed-width
// integer so that arithmetic (used by check.Context's balance-mismatch and
// negative-spend rules) is overflow-checked rather than hand-rolled.
type Amount struct {
	v uint256.Int
}

// ZeroAmount is the zero balance.
var ZeroAmount = Amount{}

// NewAmount constructs an Amount from a big-endian 16-byte encoding.
func NewAmount(big16 [16]byte) Amount {
	var a Amount
	a.v.SetBytes(big16[:])
	return a
}

// AmountFromUint64 constructs a small Amount directly from a uint64.
func AmountFromUint64(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// Bytes16 returns the big-endian 16-byte encoding used on the wire.
func (a Amount) Bytes16() [16]byte {
	var out [16]byte
	b := a.v.Bytes()
	copy(out[16-len(b):], b)
	return out
}

// Cmp compares two amounts: -1, 0, or 1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// Add returns a+b. Panics if the result would exceed 128 bits, which would
// indicate a ledger invariant violation upstream (sums of valid balances
// never approach the 128-bit ceiling in practice).
func (a Amount) Add(b Amount) Amount {
	var out Amount
	out.v.Add(&a.v, &b.v)
	if out.v.BitLen() > maxAmountBits {
		panic("block: amount overflow")
	}
	return out
}

// Sub returns a-b, and ok=false if b > a (negative result is not
// representable — callers use this to detect negative-spend conditions).
func (a Amount) Sub(b Amount) (out Amount, ok bool) {
	if a.Cmp(b) < 0 {
		return Amount{}, false
	}
	out.v.Sub(&a.v, &b.v)
	return out, true
}

func (a Amount) String() string { return a.v.Dec() }

// MarshalJSON encodes the amount as a decimal string, since v's internal
// limbs are unexported and json would otherwise see an empty struct.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.v.Dec() + `"`), nil
}

// UnmarshalJSON parses the decimal string produced by MarshalJSON.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" {
		s = "0"
	}
	if err := a.v.SetFromDecimal(s); err != nil {
		return fmt.Errorf("block: invalid amount %q: %w", s, err)
	}
	return nil
}

// Type identifies one of the five block variants.
type Type uint8

const (
	// TypeInvalid is the zero value; never a valid wire byte.
	TypeInvalid Type = iota
	// TypeNotABlock is the wire sentinel terminating a bulk_pull response
	// stream (spec §6: 0x01 in the block-type enum's "sentinel" slot).
	TypeNotABlock
	TypeSend
	TypeReceive
	TypeOpen
	TypeChange
	TypeState
)

func (t Type) String() string {
	switch t {
	case TypeSend:
		return "send"
	case TypeReceive:
		return "receive"
	case TypeOpen:
		return "open"
	case TypeChange:
		return "change"
	case TypeState:
		return "state"
	case TypeNotABlock:
		return "not_a_block"
	default:
		return "invalid"
	}
}

// BodySize returns the frozen wire body size in bytes for t, matching the
// reference node's existing binary framing (spec §6).
func BodySize(t Type) (int, bool) {
	switch t {
	case TypeSend:
		return 152, true
	case TypeReceive:
		return 136, true
	case TypeChange:
		return 136, true
	case TypeOpen:
		return 168, true
	case TypeState:
		return 216, true
	default:
		return 0, false
	}
}

// Block is the tagged union of the five wire variants. Only the fields
// relevant to Type are meaningful; Block never carries a derived field
// (height, balance delta, epoch) — those live in Sideband, produced by
// check.Context after validation.
type Block struct {
	Type      Type
	Previous  Hash    // zero for an account's opening block
	Signature Signature
	Work      Work

	// Legacy send
	Destination Account
	Balance     Amount // send and state blocks only: account balance after the op

	// Legacy receive/open
	Source Hash

	// Legacy open
	Account       Account
	Representative Account

	// Legacy change
	// (Representative field above is reused)

	// State block
	Link Hash // interpreted per op: destination, 0 (noop), epoch sentinel, or source hash
}

// ContentHash hashes exactly the typed fields relevant to Type, excluding
// Signature and Work, matching the reference node's block-hash semantics:
// the hash commits to content, the signature and PoW commit to the hash.
func (b *Block) ContentHash() Hash {
	h := sha256.New()
	write := func(p []byte) { h.Write(p) }
	write([]byte{byte(b.Type)})
	write(b.Previous[:])
	switch b.Type {
	case TypeSend:
		write(b.Destination[:])
		bb := b.Balance.Bytes16()
		write(bb[:])
	case TypeReceive:
		write(b.Source[:])
	case TypeOpen:
		write(b.Source[:])
		write(b.Representative[:])
		write(b.Account[:])
	case TypeChange:
		write(b.Representative[:])
	case TypeState:
		write(b.Account[:])
		write(b.Representative[:])
		bb := b.Balance.Bytes16()
		write(bb[:])
		write(b.Link[:])
	}
	var out Hash
	sum := h.Sum(nil)
	copy(out[:], sum)
	return out
}

// Details records the derived classification of a block, persisted as part
// of its sideband.
type Details struct {
	Epoch     Epoch
	IsSend    bool
	IsReceive bool
	IsEpoch   bool
}

// Sideband is validator-derived metadata attached to a block after it has
// been checked and accepted. It is never sent on the wire.
type Sideband struct {
	Account     Account
	Balance     Amount
	Height      uint64
	Timestamp   int64
	Details     Details
	SourceEpoch Epoch
}

// AccountInfo is the head-of-chain summary for one account.
type AccountInfo struct {
	Head           Hash
	Representative Account
	Balance        Amount
	BlockCount     uint64
	Modified       int64
	Epoch          Epoch
}

// IsZero reports whether this AccountInfo represents an account with no
// blocks (the synthesized zero-info entry check.Context uses when an
// account has never been opened).
func (ai AccountInfo) IsZero() bool { return ai.Head.IsZero() && ai.BlockCount == 0 }

// PendingInfo represents one unreceived send: keyed by (destination,
// source block hash) in the store.
type PendingInfo struct {
	Sender      Account
	Amount      Amount
	SourceEpoch Epoch
}

// QualifiedRoot uniquely identifies an election independent of which forked
// block is currently in contention for an account.
type QualifiedRoot struct {
	Account        Account
	PreviousOfHead Hash
}

func (q QualifiedRoot) String() string {
	return q.Account.String() + ":" + q.PreviousOfHead.String()
}
