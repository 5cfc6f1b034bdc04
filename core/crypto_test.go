package core

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestSignAndRecoverKeyRoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	digest := Sha256Sum([]byte("a transaction body"))

	sig, err := Sign(Id(digest), priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	got, err := RecoverKey(Id(digest), sig)
	if err != nil {
		t.Fatalf("RecoverKey: %v", err)
	}
	want := PublicKeyFromPrivate(priv)
	if got != want {
		t.Fatalf("RecoverKey = %+v, want %+v", got, want)
	}
}

func TestRecoverKeyDifferentDigestDifferentKey(t *testing.T) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	d1 := Sha256Sum([]byte("one"))
	d2 := Sha256Sum([]byte("two"))

	sig, err := Sign(Id(d1), priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	// Recovering with a mismatched digest must not silently yield the same
	// key as the correctly matched digest; Ecrecover is still well-defined
	// for a wrong digest (it returns *some* key), so assert it is wrong.
	gotWrong, err := RecoverKey(Id(d2), sig)
	if err != nil {
		t.Fatalf("RecoverKey(wrong digest): %v", err)
	}
	want := PublicKeyFromPrivate(priv)
	if gotWrong == want {
		t.Fatalf("RecoverKey recovered the correct key from a mismatched digest")
	}
}

func TestSigningDigestDeterministicAndSensitiveToInputs(t *testing.T) {
	chainID := Id{1, 2, 3}
	tx := []byte("packed-tx-bytes")

	d1 := SigningDigest(chainID, tx, nil)
	d2 := SigningDigest(chainID, tx, nil)
	if d1 != d2 {
		t.Fatalf("SigningDigest is not deterministic: %x != %x", d1, d2)
	}

	otherChain := Id{9, 9, 9}
	d3 := SigningDigest(otherChain, tx, nil)
	if d1 == d3 {
		t.Fatalf("SigningDigest ignored chain id")
	}

	d4 := SigningDigest(chainID, tx, []byte("context free data"))
	if d1 == d4 {
		t.Fatalf("SigningDigest ignored context-free data")
	}
}

func TestDeriveDeploymentIDDistinctPerSequence(t *testing.T) {
	account := MustParseName("alice")
	id1 := DeriveDeploymentID(account, 1)
	id2 := DeriveDeploymentID(account, 2)
	if id1 == id2 {
		t.Fatalf("DeriveDeploymentID did not vary with code sequence")
	}
	if id1 != DeriveDeploymentID(account, 1) {
		t.Fatalf("DeriveDeploymentID is not deterministic")
	}
}
