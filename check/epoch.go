package check

import (
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/tolelom/latticenode/block"
	"github.com/tolelom/latticenode/crypto"
)

// EpochLink derives the state-block Link value that signals an epoch
// upgrade to epoch, scoped to chainSeed. Not the reference node's actual
// epoch-link constants (SPEC_FULL.md Non-goals exclude replicating the
// reference store's on-disk byte layout); the algorithm only needs the
// sentinel to be unforgeable and specific to one chain, which a seeded
// hash gives for free.
func EpochLink(epoch block.Epoch, chainSeed []byte) block.Hash {
	h := sha256.New()
	h.Write([]byte("epoch_link:"))
	h.Write([]byte{byte(epoch)})
	h.Write(chainSeed)
	var out block.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// epochSigningSeed derives the 32-byte ed25519 seed behind epoch's
// designated signing key, scoped to chainSeed.
func epochSigningSeed(epoch block.Epoch, chainSeed []byte) []byte {
	h := sha256.New()
	h.Write([]byte("epoch_signer:"))
	h.Write([]byte{byte(epoch)})
	h.Write(chainSeed)
	return h.Sum(nil)
}

// EpochSigningAccount derives the designated epoch-upgrade signing
// account for epoch, scoped to chainSeed. The signer rule (spec.md §4.2)
// requires every epoch-upgrade block be signed by this account rather
// than by the account it upgrades. Derived via ed25519.NewKeyFromSeed
// rather than a bare hash so EpochSigningKey can actually produce
// verifiable signatures against it.
func EpochSigningAccount(epoch block.Epoch, chainSeed []byte) block.Account {
	priv := ed25519.NewKeyFromSeed(epochSigningSeed(epoch, chainSeed))
	var out block.Account
	copy(out[:], priv.Public().(ed25519.PublicKey))
	return out
}

// EpochSigningKey returns the private key whose public half is
// EpochSigningAccount(epoch, chainSeed), for whoever is authorized to
// countersign that chain's epoch-upgrade blocks.
func EpochSigningKey(epoch block.Epoch, chainSeed []byte) crypto.PrivateKey {
	return crypto.PrivateKey(ed25519.NewKeyFromSeed(epochSigningSeed(epoch, chainSeed)))
}

// recognizedEpoch reports whether link is the sentinel for some known
// epoch, and which one.
func recognizedEpoch(link block.Hash, chainSeed []byte) (block.Epoch, bool) {
	for e := block.Epoch(0); e < block.EpochCount; e++ {
		if EpochLink(e, chainSeed) == link {
			return e, true
		}
	}
	return 0, false
}
