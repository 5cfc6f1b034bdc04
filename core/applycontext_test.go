package core

import (
	"testing"
	"time"
)

func TestRequireRecipientDeduplicates(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	ac := newTestApplyContext(t, ctrl)

	bob := MustParseName("bob")
	ac.RequireRecipient(bob)
	ac.RequireRecipient(bob)

	count := 0
	for _, n := range ac.notified {
		if n.Receiver == bob {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("RequireRecipient(bob) called twice enqueued %d entries, want 1", count)
	}
}

func TestRequireAuthAndHasAuth(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	ac := newTestApplyContext(t, ctrl)

	if !ac.HasAuth(SystemAccountName) {
		t.Fatalf("HasAuth(system account) = false, want true per the test fixture's declared authorization")
	}
	if err := ac.RequireAuth(SystemAccountName); err != nil {
		t.Fatalf("RequireAuth(system account): %v", err)
	}

	other := MustParseName("nobody")
	if ac.HasAuth(other) {
		t.Fatalf("HasAuth(nobody) = true, want false")
	}
	if err := ac.RequireAuth(other); err == nil {
		t.Fatalf("expected RequireAuth(nobody) to fail")
	}
}

func TestSendInlineRejectsOversizedAction(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	ac := newTestApplyContext(t, ctrl)

	oversized := make([]byte, ctrl.config.MaxInlineActionSize+1)
	if err := ac.SendInline(oversized); err == nil {
		t.Fatalf("expected SendInline to reject a buffer larger than MaxInlineActionSize")
	}
}

func TestSendInlineSchedulesAndExecRecursesUpToDepthLimit(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	ac := newTestApplyContext(t, ctrl)
	ac.depth = ac.tc.config.MaxInlineActionDepth

	inline := Action{Account: SystemAccountName, Name: MustParseName("noop")}
	w := NewWriter()
	PackAction(w, inline)
	if err := ac.SendInline(w.Bytes()); err != nil {
		t.Fatalf("SendInline: %v", err)
	}

	err := ac.exec()
	if err == nil {
		t.Fatalf("expected exec() to refuse scheduling an inline action at the configured recursion depth")
	}
}

func TestSetActionReturnValueBoundsSize(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	ac := newTestApplyContext(t, ctrl)

	if err := ac.SetActionReturnValue([]byte("small")); err != nil {
		t.Fatalf("SetActionReturnValue: %v", err)
	}
	oversized := make([]byte, ctrl.config.MaxActionReturnValueSize+1)
	if err := ac.SetActionReturnValue(oversized); err == nil {
		t.Fatalf("expected SetActionReturnValue to reject data exceeding MaxActionReturnValueSize")
	}
}

func TestTransactionContextExecuteActionRespectsDeadline(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	tx := Transaction{
		Expiration:   time.Now().UTC().Add(time.Hour),
		BlockchainID: ctrl.ChainID(),
		Actions: []Action{
			{Account: SystemAccountName, Name: MustParseName("noop")},
		},
	}
	tc := newTransactionContext(ctrl, tx, 0)
	tc.deadline = time.Now().Add(-time.Second) // already expired

	if err := tc.executeAction(0, 0); err == nil {
		t.Fatalf("expected executeAction to fail once the transaction deadline has passed")
	}
}
