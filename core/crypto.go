package core

// crypto.go wires the "pure cryptographic oracle" boundary from spec.md §1:
// secp256k1 sign/recover/verify are never reimplemented here, only called
// through github.com/ethereum/go-ethereum/crypto, exactly as the teacher's
// core/virtual_machine.go already does for Keccak256/common.Address. The
// hash family (sha1/sha256/sha512/ripemd160) backs the WASM crypto host
// functions of spec.md §4.F. This file replaces the teacher's
// core/security.go, which reached for BLS12-381 (herumi) and Dilithium
// (cloudflare/circl) aggregate-signature schemes that spec.md's single-key
// weighted Authority model has no use for — see DESIGN.md.

import (
	"crypto/ecdsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/ripemd160"
)

// Sha1Sum, Sha256Sum, Sha512Sum and Ripemd160Sum back the like-named WASM
// host functions (spec.md §4.F).
func Sha1Sum(data []byte) [20]byte {
	return sha1.Sum(data)
}

func Sha256Sum(data []byte) [32]byte {
	return sha256.Sum256(data)
}

func Sha512Sum(data []byte) [64]byte {
	return sha512.Sum512(data)
}

func Ripemd160Sum(data []byte) [20]byte {
	h := ripemd160.New()
	h.Write(data)
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// SigningDigest computes the transaction signing digest of spec.md §6:
// sha256(chain_id || packed_transaction_bytes || sha256(packed_context_free_data or 32 zero bytes)).
func SigningDigest(chainID Id, packedTx []byte, packedContextFreeData []byte) Id {
	var cfHash [32]byte
	if len(packedContextFreeData) == 0 {
		cfHash = [32]byte{} // 32 zero bytes, per spec.md §6
	} else {
		cfHash = sha256.Sum256(packedContextFreeData)
	}
	buf := make([]byte, 0, 32+len(packedTx)+32)
	buf = append(buf, chainID[:]...)
	buf = append(buf, packedTx...)
	buf = append(buf, cfHash[:]...)
	return sha256.Sum256(buf)
}

// RecoverKey recovers the compressed secp256k1 public key that produced sig
// over digest, via the go-ethereum crypto oracle (spec.md §4.F, §6).
// Signature.Data is the 65-byte compact recoverable form (r||s||v); go-ethereum
// expects the same layout for Ecrecover/SigToPub.
func RecoverKey(digest Id, sig Signature) (PublicKey, error) {
	pub, err := crypto.SigToPub(digest[:], sig.Data[:])
	if err != nil {
		return PublicKey{}, wrapChainError(ErrAuthorization, err, "recover signer key")
	}
	return compressPubKey(pub), nil
}

// Sign produces a compact recoverable signature over digest using priv,
// mirroring the oracle boundary RecoverKey uses to undo it. It exists for
// test fixtures and the CLI's local-signing convenience commands, not for
// any consensus-critical path.
func Sign(digest Id, priv *ecdsa.PrivateKey) (Signature, error) {
	raw, err := crypto.Sign(digest[:], priv)
	if err != nil {
		return Signature{}, wrapChainError(ErrAuthorization, err, "sign digest")
	}
	var sig Signature
	sig.Type = 0
	copy(sig.Data[:], raw)
	return sig, nil
}

func compressPubKey(pub *ecdsa.PublicKey) PublicKey {
	var out PublicKey
	compressed := crypto.CompressPubkey(pub)
	copy(out.Data[:], compressed)
	return out
}

// PublicKeyFromPrivate derives the compressed public key used as a
// KeyWeight.Key entry from an ECDSA private key, for genesis/test fixtures.
func PublicKeyFromPrivate(priv *ecdsa.PrivateKey) PublicKey {
	return compressPubKey(&priv.PublicKey)
}

// DeriveDeploymentID derives a non-consensus audit identifier for one
// setcode call, the way virtual_machine.go's CreateContract derives a
// CREATE-style contract address from caller||nonce via Keccak256 (sha256
// there covers the actual content-addressed code hash; Keccak256 covers the
// deployment-event identity). Logged alongside setcode's CodeHash, never
// used as a table key or consensus-visible value.
func DeriveDeploymentID(account Name, codeSequence uint64) Id {
	buf := account.Bytes()
	buf = append(buf, byte(codeSequence), byte(codeSequence>>8), byte(codeSequence>>16), byte(codeSequence>>24))
	return Id(crypto.Keccak256Hash(buf))
}
