package core

import (
	"crypto/ecdsa"
	"testing"
	"time"
)

// pushSystemAction packs, signs (as the system account's owner permission),
// and pushes a single system action, returning its trace.
func pushSystemAction(t *testing.T, ctrl *Controller, priv *ecdsa.PrivateKey, actionName Name, data []byte, authLevel PermissionLevel) *TransactionTrace {
	t.Helper()
	tx := Transaction{
		Expiration:    time.Now().UTC().Add(time.Hour),
		BlockchainID:  ctrl.ChainID(),
		Actions:       []Action{{Account: SystemAccountName, Name: actionName, Data: data, Authorization: []PermissionLevel{authLevel}}},
	}
	digest := SigningDigest(ctrl.ChainID(), PackTransactionForSigning(tx), nil)
	sig, err := Sign(digest, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	tx.Signatures = []Signature{sig}
	w := NewWriter()
	PackTransaction(w, tx)
	return ctrl.PushTransaction(w.Bytes())
}

func TestSystemSetCodeAndSetABI(t *testing.T) {
	ctrl, priv, _ := newTestController(t)
	ownerLevel := PermissionLevel{Actor: SystemAccountName, Permission: OwnerPermission}

	code := []byte{0x00, 0x61, 0x73, 0x6d} // wasm magic bytes, never executed in this test
	dataW := NewWriter()
	dataW.WriteName(SystemAccountName)
	dataW.WriteUint8(0)
	dataW.WriteUint8(0)
	dataW.WriteBytes(code)

	trace := pushSystemAction(t, ctrl, priv, actionSetCode, dataW.Bytes(), ownerLevel)
	if trace.Except != nil {
		t.Fatalf("setcode failed: %v", trace.Except)
	}
	_, meta, _ := ctrl.GetAccount(SystemAccountName)
	if meta.CodeSequence != 1 {
		t.Fatalf("expected code_sequence 1 after setcode, got %d", meta.CodeSequence)
	}

	abiW := NewWriter()
	abiW.WriteName(SystemAccountName)
	abiW.WriteBytes([]byte(`{"version":"eosio::abi/1.0"}`))
	trace = pushSystemAction(t, ctrl, priv, actionSetABI, abiW.Bytes(), ownerLevel)
	if trace.Except != nil {
		t.Fatalf("setabi failed: %v", trace.Except)
	}
	_, meta, _ = ctrl.GetAccount(SystemAccountName)
	if meta.ABISequence != 1 {
		t.Fatalf("expected abi_sequence 1 after setabi, got %d", meta.ABISequence)
	}
}

func TestSystemUpdateAuthCreatesCustomPermission(t *testing.T) {
	ctrl, priv, _ := newTestController(t)
	ownerLevel := PermissionLevel{Actor: SystemAccountName, Permission: OwnerPermission}
	custom := MustParseName("custom")

	customKey := testKey(7)
	auth := Authority{Threshold: 1, Keys: []KeyWeight{{Key: customKey, Weight: 1}}}

	w := NewWriter()
	w.WriteName(SystemAccountName)
	w.WriteName(custom)
	w.WriteName(OwnerPermission)
	PackAuthority(w, auth)

	trace := pushSystemAction(t, ctrl, priv, actionUpdateAuth, w.Bytes(), ownerLevel)
	if trace.Except != nil {
		t.Fatalf("updateauth failed: %v", trace.Except)
	}
	if !ctrl.authority.IsPermissionAncestor(SystemAccountName, OwnerPermission, custom) {
		t.Fatalf("expected owner to cover the newly created custom permission")
	}
}

func TestSystemLinkAuthAndUnlinkAuth(t *testing.T) {
	ctrl, priv, _ := newTestController(t)
	ownerLevel := PermissionLevel{Actor: SystemAccountName, Permission: OwnerPermission}
	code := MustParseName("sometoken")
	msgType := MustParseName("transfer")

	linkW := NewWriter()
	linkW.WriteName(SystemAccountName)
	linkW.WriteName(code)
	linkW.WriteName(msgType)
	linkW.WriteName(OwnerPermission)
	trace := pushSystemAction(t, ctrl, priv, actionLinkAuth, linkW.Bytes(), ownerLevel)
	if trace.Except != nil {
		t.Fatalf("linkauth failed: %v", trace.Except)
	}
	if got := ctrl.authority.RequiredPermission(SystemAccountName, code, msgType); got != OwnerPermission {
		t.Fatalf("RequiredPermission after linkauth = %s, want %s", got, OwnerPermission)
	}

	unlinkW := NewWriter()
	unlinkW.WriteName(SystemAccountName)
	unlinkW.WriteName(code)
	unlinkW.WriteName(msgType)
	trace = pushSystemAction(t, ctrl, priv, actionUnlinkAuth, unlinkW.Bytes(), ownerLevel)
	if trace.Except != nil {
		t.Fatalf("unlinkauth failed: %v", trace.Except)
	}
	if got := ctrl.authority.RequiredPermission(SystemAccountName, code, msgType); got != DefaultPermission {
		t.Fatalf("RequiredPermission after unlinkauth = %s, want default %s", got, DefaultPermission)
	}
}

func TestSystemDeleteAuthFailsWithDependentChild(t *testing.T) {
	ctrl, priv, _ := newTestController(t)
	ownerLevel := PermissionLevel{Actor: SystemAccountName, Permission: OwnerPermission}

	if trace := pushSystemAction(t, ctrl, priv, actionDeleteAuth, func() []byte {
		w := NewWriter()
		w.WriteName(SystemAccountName)
		w.WriteName(OwnerPermission)
		return w.Bytes()
	}(), ownerLevel); trace.Except == nil {
		t.Fatalf("expected deleteauth on owner to fail while active still depends on it")
	}
}
