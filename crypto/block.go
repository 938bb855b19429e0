package crypto

import (
	"crypto/ed25519"

	"github.com/tolelom/latticenode/block"
)

// AccountOf returns the block.Account identifying pub.
func AccountOf(pub PublicKey) block.Account {
	var a block.Account
	copy(a[:], pub)
	return a
}

// SignHash signs a content hash and returns a block.Signature.
func SignHash(priv PrivateKey, h block.Hash) block.Signature {
	sig := ed25519.Sign(ed25519.PrivateKey(priv), h[:])
	var out block.Signature
	copy(out[:], sig)
	return out
}

// VerifyHash verifies a content hash against a signer account.
func VerifyHash(signer block.Account, h block.Hash, sig block.Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(signer[:]), h[:], sig[:])
}
