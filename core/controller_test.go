package core

import (
	"crypto/ecdsa"
	"encoding/hex"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// testGenesis builds an in-memory Genesis signed by a freshly generated key,
// bypassing LoadGenesis's file I/O so controller tests can exercise
// Initialize/PushTransaction without a sandbox fixture.
func testGenesis(t *testing.T) (Genesis, *ecdsa.PrivateKey) {
	t.Helper()
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	key := PublicKeyFromPrivate(priv)
	g := Genesis{
		InitialTimestamp:     "2024-01-01T00:00:00Z",
		InitialKey:           hex.EncodeToString(key.Data[:]),
		InitialConfiguration: DefaultChainConfig(),
	}
	return g, priv
}

func newTestController(t *testing.T) (*Controller, *ecdsa.PrivateKey, Genesis) {
	t.Helper()
	g, priv := testGenesis(t)
	ctrl := NewController(nil)
	if err := ctrl.Initialize(g); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return ctrl, priv, g
}

// packNewAccountTx builds and signs a single-action "pulse::newaccount"
// transaction creating `name` with a single-key owner/active authority under
// key, authorized by the system account's owner permission.
func packNewAccountTx(t *testing.T, ctrl *Controller, priv *ecdsa.PrivateKey, name Name, key PublicKey) []byte {
	t.Helper()

	dataW := NewWriter()
	dataW.WriteName(SystemAccountName)
	dataW.WriteName(name)
	owner := Authority{Threshold: 1, Keys: []KeyWeight{{Key: key, Weight: 1}}}
	PackAuthority(dataW, owner)
	PackAuthority(dataW, owner)

	tx := Transaction{
		Expiration:   time.Now().UTC().Add(time.Hour),
		BlockchainID: ctrl.ChainID(),
		Actions: []Action{
			{
				Account: SystemAccountName,
				Name:    actionNewAccount,
				Data:    dataW.Bytes(),
				Authorization: []PermissionLevel{
					{Actor: SystemAccountName, Permission: OwnerPermission},
				},
			},
		},
	}

	digest := SigningDigest(ctrl.ChainID(), PackTransactionForSigning(tx), nil)
	sig, err := Sign(digest, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	tx.Signatures = []Signature{sig}

	w := NewWriter()
	PackTransaction(w, tx)
	return w.Bytes()
}

func TestPushTransactionCreatesAccount(t *testing.T) {
	ctrl, priv, _ := newTestController(t)
	newKey := PublicKeyFromPrivate(priv)
	alice := MustParseName("alice")

	packed := packNewAccountTx(t, ctrl, priv, alice, newKey)
	trace := ctrl.PushTransaction(packed)
	if trace.Except != nil {
		t.Fatalf("PushTransaction failed: %v", trace.Except)
	}
	if len(trace.ActionTraces) != 1 {
		t.Fatalf("expected 1 action trace, got %d", len(trace.ActionTraces))
	}
	if trace.ActionTraces[0].Receipt == nil {
		t.Fatalf("expected a receipt on the newaccount action trace")
	}

	if _, _, ok := ctrl.GetAccount(alice); !ok {
		t.Fatalf("expected account %s to exist after newaccount", alice)
	}
}

func TestPushTransactionWrongChainIDRejected(t *testing.T) {
	ctrl, priv, _ := newTestController(t)
	newKey := PublicKeyFromPrivate(priv)
	alice := MustParseName("alice")

	packed := packNewAccountTx(t, ctrl, priv, alice, newKey)
	tx, err := UnpackTransaction(NewReader(packed))
	if err != nil {
		t.Fatalf("UnpackTransaction: %v", err)
	}
	tx.BlockchainID = Id{0xff}
	w := NewWriter()
	PackTransaction(w, tx)

	trace := ctrl.PushTransaction(w.Bytes())
	if trace.Except == nil {
		t.Fatalf("expected wrong chain id to be rejected")
	}
}

func TestPushTransactionDuplicateAccountFailsAndRollsBack(t *testing.T) {
	ctrl, priv, _ := newTestController(t)
	newKey := PublicKeyFromPrivate(priv)
	alice := MustParseName("alice")

	first := packNewAccountTx(t, ctrl, priv, alice, newKey)
	if trace := ctrl.PushTransaction(first); trace.Except != nil {
		t.Fatalf("first PushTransaction: %v", trace.Except)
	}

	before, _, _ := ctrl.GetAccount(alice)

	second := packNewAccountTx(t, ctrl, priv, alice, newKey)
	trace := ctrl.PushTransaction(second)
	if trace.Except == nil {
		t.Fatalf("expected duplicate newaccount to fail")
	}

	after, _, _ := ctrl.GetAccount(alice)
	if before.CreationDate != after.CreationDate {
		t.Fatalf("failed transaction must not have mutated the existing account")
	}
}

// TestPushTransactionSecondActionFailureRollsBackFirstActionState covers the
// case TestPushTransactionDuplicateAccountFailsAndRollsBack cannot: both
// actions run in the *same* transaction, so the first action's newaccount
// (account/permission/resource-limit/RAM state) must be undone even though
// it committed to its maps successfully before the second action failed.
func TestPushTransactionSecondActionFailureRollsBackFirstActionState(t *testing.T) {
	ctrl, priv, _ := newTestController(t)
	newKey := PublicKeyFromPrivate(priv)
	bob := MustParseName("bob")

	action := func() Action {
		dataW := NewWriter()
		dataW.WriteName(SystemAccountName)
		dataW.WriteName(bob)
		owner := Authority{Threshold: 1, Keys: []KeyWeight{{Key: newKey, Weight: 1}}}
		PackAuthority(dataW, owner)
		PackAuthority(dataW, owner)
		return Action{
			Account: SystemAccountName,
			Name:    actionNewAccount,
			Data:    dataW.Bytes(),
			Authorization: []PermissionLevel{
				{Actor: SystemAccountName, Permission: OwnerPermission},
			},
		}
	}

	ramBefore := ctrl.resources.RAMUsage(SystemAccountName)

	tx := Transaction{
		Expiration:   time.Now().UTC().Add(time.Hour),
		BlockchainID: ctrl.ChainID(),
		// The second newaccount("bob") fails with "already exists" since the
		// first one in this same transaction just created it.
		Actions: []Action{action(), action()},
	}
	digest := SigningDigest(ctrl.ChainID(), PackTransactionForSigning(tx), nil)
	sig, err := Sign(digest, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	tx.Signatures = []Signature{sig}
	w := NewWriter()
	PackTransaction(w, tx)

	trace := ctrl.PushTransaction(w.Bytes())
	if trace.Except == nil {
		t.Fatalf("expected the second newaccount(bob) to fail")
	}

	if _, _, ok := ctrl.GetAccount(bob); ok {
		t.Fatalf("account %s must not exist after the enclosing transaction was rolled back", bob)
	}
	if _, ok := ctrl.authority.GetPermission(bob, OwnerPermission); ok {
		t.Fatalf("owner permission for %s must not survive rollback", bob)
	}
	if _, ok := ctrl.authority.GetPermission(bob, DefaultPermission); ok {
		t.Fatalf("active permission for %s must not survive rollback", bob)
	}
	if _, ok := ctrl.resources.limits[bob]; ok {
		t.Fatalf("resource limits entry for %s must not survive rollback", bob)
	}
	if after := ctrl.resources.RAMUsage(SystemAccountName); after != ramBefore {
		t.Fatalf("RAM billed to the creator for the first action's newaccount must be rolled back: before=%d after=%d", ramBefore, after)
	}
}

func TestPushTransactionMissingAuthorityRejected(t *testing.T) {
	ctrl, priv, _ := newTestController(t)
	newKey := PublicKeyFromPrivate(priv)
	alice := MustParseName("alice")

	dataW := NewWriter()
	dataW.WriteName(SystemAccountName)
	dataW.WriteName(alice)
	owner := Authority{Threshold: 1, Keys: []KeyWeight{{Key: newKey, Weight: 1}}}
	PackAuthority(dataW, owner)
	PackAuthority(dataW, owner)

	tx := Transaction{
		Expiration:   time.Now().UTC().Add(time.Hour),
		BlockchainID: ctrl.ChainID(),
		Actions: []Action{
			{
				Account:       SystemAccountName,
				Name:          actionNewAccount,
				Data:          dataW.Bytes(),
				Authorization: nil, // no declared authority at all
			},
		},
	}
	w := NewWriter()
	PackTransaction(w, tx)

	trace := ctrl.PushTransaction(w.Bytes())
	if trace.Except == nil {
		t.Fatalf("expected a transaction with no declared authority to be rejected")
	}
}

func TestPushTransactionExpiredRejected(t *testing.T) {
	ctrl, priv, _ := newTestController(t)
	newKey := PublicKeyFromPrivate(priv)
	alice := MustParseName("alice")

	dataW := NewWriter()
	dataW.WriteName(SystemAccountName)
	dataW.WriteName(alice)
	owner := Authority{Threshold: 1, Keys: []KeyWeight{{Key: newKey, Weight: 1}}}
	PackAuthority(dataW, owner)
	PackAuthority(dataW, owner)

	tx := Transaction{
		Expiration:   time.Now().UTC().Add(-time.Hour),
		BlockchainID: ctrl.ChainID(),
		Actions: []Action{
			{
				Account: SystemAccountName,
				Name:    actionNewAccount,
				Data:    dataW.Bytes(),
				Authorization: []PermissionLevel{
					{Actor: SystemAccountName, Permission: OwnerPermission},
				},
			},
		},
	}
	digest := SigningDigest(ctrl.ChainID(), PackTransactionForSigning(tx), nil)
	sig, err := Sign(digest, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	tx.Signatures = []Signature{sig}
	w := NewWriter()
	PackTransaction(w, tx)

	trace := ctrl.PushTransaction(w.Bytes())
	if trace.Except == nil {
		t.Fatalf("expected an expired transaction to be rejected")
	}
}
