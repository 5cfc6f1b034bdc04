package core

import (
	"testing"
	"time"
)

func testKey(b byte) PublicKey {
	var pk PublicKey
	pk.Type = 0
	pk.Data[0] = b
	return pk
}

func TestCheckAuthorizationSingleKeySatisfied(t *testing.T) {
	am := NewAuthorityManager()
	alice := MustParseName("alice")
	key := testKey(1)

	_, err := am.CreatePermission(alice, OwnerPermission, 0, Authority{
		Threshold: 1,
		Keys:      []KeyWeight{{Key: key, Weight: 1}},
	})
	if err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}

	if err := am.CheckAuthorization(alice, OwnerPermission, []PublicKey{key}, nil, 0); err != nil {
		t.Fatalf("CheckAuthorization: %v", err)
	}
}

func TestCheckAuthorizationMissingKeyFails(t *testing.T) {
	am := NewAuthorityManager()
	alice := MustParseName("alice")
	key := testKey(1)
	other := testKey(2)

	if _, err := am.CreatePermission(alice, OwnerPermission, 0, Authority{
		Threshold: 1,
		Keys:      []KeyWeight{{Key: key, Weight: 1}},
	}); err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}

	if err := am.CheckAuthorization(alice, OwnerPermission, []PublicKey{other}, nil, 0); err == nil {
		t.Fatalf("expected CheckAuthorization to fail without the required key")
	}
}

func TestCheckAuthorizationWeightedThreshold(t *testing.T) {
	am := NewAuthorityManager()
	alice := MustParseName("alice")
	k1, k2, k3 := testKey(1), testKey(2), testKey(3)

	if _, err := am.CreatePermission(alice, OwnerPermission, 0, Authority{
		Threshold: 3,
		Keys: []KeyWeight{
			{Key: k1, Weight: 1},
			{Key: k2, Weight: 1},
			{Key: k3, Weight: 3},
		},
	}); err != nil {
		t.Fatalf("CreatePermission: %v", err)
	}

	// k1+k2 only sum to weight 2, below threshold 3.
	if err := am.CheckAuthorization(alice, OwnerPermission, []PublicKey{k1, k2}, nil, 0); err == nil {
		t.Fatalf("expected insufficient weight to fail")
	}
	// k3 alone meets the threshold.
	if err := am.CheckAuthorization(alice, OwnerPermission, []PublicKey{k3}, nil, 0); err != nil {
		t.Fatalf("CheckAuthorization with sufficient weight: %v", err)
	}
}

func TestCheckAuthorizationDelegatedPermission(t *testing.T) {
	am := NewAuthorityManager()
	alice := MustParseName("alice")
	bob := MustParseName("bob")
	key := testKey(1)

	if _, err := am.CreatePermission(bob, OwnerPermission, 0, Authority{
		Threshold: 1,
		Keys:      []KeyWeight{{Key: key, Weight: 1}},
	}); err != nil {
		t.Fatalf("CreatePermission(bob): %v", err)
	}
	if _, err := am.CreatePermission(alice, OwnerPermission, 0, Authority{
		Threshold: 1,
		Accounts: []PermissionLevelWeight{
			{Level: PermissionLevel{Actor: bob, Permission: OwnerPermission}, Weight: 1},
		},
	}); err != nil {
		t.Fatalf("CreatePermission(alice): %v", err)
	}

	if err := am.CheckAuthorization(alice, OwnerPermission, []PublicKey{key}, nil, 0); err != nil {
		t.Fatalf("CheckAuthorization via delegated permission: %v", err)
	}
}

func TestCheckAuthorizationCyclicPermissionsDoNotHang(t *testing.T) {
	am := NewAuthorityManager()
	a := MustParseName("accounta")
	b := MustParseName("accountb")

	if _, err := am.CreatePermission(a, OwnerPermission, 0, Authority{
		Threshold: 1,
		Accounts: []PermissionLevelWeight{
			{Level: PermissionLevel{Actor: b, Permission: OwnerPermission}, Weight: 1},
		},
	}); err != nil {
		t.Fatalf("CreatePermission(a): %v", err)
	}
	if _, err := am.CreatePermission(b, OwnerPermission, 0, Authority{
		Threshold: 1,
		Accounts: []PermissionLevelWeight{
			{Level: PermissionLevel{Actor: a, Permission: OwnerPermission}, Weight: 1},
		},
	}); err != nil {
		t.Fatalf("CreatePermission(b): %v", err)
	}

	// Neither permission has any key weight anywhere in the cycle, so this
	// must terminate (not hang) and report unsatisfied.
	done := make(chan error, 1)
	go func() {
		done <- am.CheckAuthorization(a, OwnerPermission, nil, nil, 0)
	}()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected cyclic authority with no keys to be unsatisfied")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("CheckAuthorization did not terminate on a cyclic permission graph")
	}
}

func TestIsPermissionAncestorReflexiveAndTransitive(t *testing.T) {
	am := NewAuthorityManager()
	alice := MustParseName("alice")
	active := MustParseName("active")
	trading := MustParseName("trading")

	if _, err := am.CreatePermission(alice, OwnerPermission, 0, Authority{Threshold: 1, Keys: []KeyWeight{{Key: testKey(9), Weight: 1}}}); err != nil {
		t.Fatalf("CreatePermission(owner): %v", err)
	}
	if _, err := am.CreatePermission(alice, active, OwnerPermission, Authority{Threshold: 1, Keys: []KeyWeight{{Key: testKey(9), Weight: 1}}}); err != nil {
		t.Fatalf("CreatePermission(active): %v", err)
	}
	if _, err := am.CreatePermission(alice, trading, active, Authority{Threshold: 1, Keys: []KeyWeight{{Key: testKey(9), Weight: 1}}}); err != nil {
		t.Fatalf("CreatePermission(trading): %v", err)
	}

	if !am.IsPermissionAncestor(alice, trading, trading) {
		t.Fatalf("a permission must be its own ancestor (reflexivity)")
	}
	if !am.IsPermissionAncestor(alice, OwnerPermission, trading) {
		t.Fatalf("owner must cover trading transitively through active")
	}
	if am.IsPermissionAncestor(alice, trading, OwnerPermission) {
		t.Fatalf("a child permission must never cover its ancestor")
	}
}

func TestDeletePermissionFailsWithDependents(t *testing.T) {
	am := NewAuthorityManager()
	alice := MustParseName("alice")
	active := MustParseName("active")

	if _, err := am.CreatePermission(alice, OwnerPermission, 0, Authority{Threshold: 1, Keys: []KeyWeight{{Key: testKey(9), Weight: 1}}}); err != nil {
		t.Fatalf("CreatePermission(owner): %v", err)
	}
	if _, err := am.CreatePermission(alice, active, OwnerPermission, Authority{Threshold: 1, Keys: []KeyWeight{{Key: testKey(9), Weight: 1}}}); err != nil {
		t.Fatalf("CreatePermission(active): %v", err)
	}

	if err := am.DeletePermission(alice, OwnerPermission); err == nil {
		t.Fatalf("expected delete of a permission with a dependent child to fail")
	}
	if err := am.DeletePermission(alice, active); err != nil {
		t.Fatalf("DeletePermission(active): %v", err)
	}
	if err := am.DeletePermission(alice, OwnerPermission); err != nil {
		t.Fatalf("DeletePermission(owner) after child removed: %v", err)
	}
}
