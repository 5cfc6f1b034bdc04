package core

import "testing"

func TestResourceAccountantBillCPUWithoutLimitsFails(t *testing.T) {
	ra := NewResourceAccountant(nil)
	alice := MustParseName("alice")
	if err := ra.BillCPU(alice, 100); err == nil {
		t.Fatalf("expected BillCPU to fail for an account with no resource limits")
	}
}

func TestResourceAccountantBillCPUAccumulates(t *testing.T) {
	ra := NewResourceAccountant(nil)
	alice := MustParseName("alice")
	ra.SetLimits(ResourceLimits{Owner: alice, CPUWeight: 10, NetWeight: 10, RAMBytes: 1000})

	if err := ra.BillCPU(alice, 100); err != nil {
		t.Fatalf("BillCPU: %v", err)
	}
	if err := ra.BillCPU(alice, 50); err != nil {
		t.Fatalf("BillCPU: %v", err)
	}
	ra.mu.Lock()
	used := ra.cpuWindows[alice].used
	ra.mu.Unlock()
	if used != 150 {
		t.Fatalf("cpu window used = %d, want 150", used)
	}
}

func TestResourceAccountantBillRAMQuotaEnforced(t *testing.T) {
	ra := NewResourceAccountant(nil)
	alice := MustParseName("alice")
	ra.SetLimits(ResourceLimits{Owner: alice, CPUWeight: 10, NetWeight: 10, RAMBytes: 100})

	if err := ra.BillRAM(alice, 60); err != nil {
		t.Fatalf("BillRAM: %v", err)
	}
	if err := ra.BillRAM(alice, 60); err == nil {
		t.Fatalf("expected BillRAM to reject exceeding the RAM quota (60+60 > 100)")
	}
	if got := ra.RAMUsage(alice); got != 60 {
		t.Fatalf("RAMUsage = %d, want 60 (the rejected delta must not apply)", got)
	}
}

func TestResourceAccountantBillRAMNegativeDeltaFreesSpace(t *testing.T) {
	ra := NewResourceAccountant(nil)
	alice := MustParseName("alice")
	ra.SetLimits(ResourceLimits{Owner: alice, CPUWeight: 10, NetWeight: 10, RAMBytes: 100})

	if err := ra.BillRAM(alice, 80); err != nil {
		t.Fatalf("BillRAM: %v", err)
	}
	if err := ra.BillRAM(alice, -50); err != nil {
		t.Fatalf("BillRAM(negative): %v", err)
	}
	if got := ra.RAMUsage(alice); got != 30 {
		t.Fatalf("RAMUsage = %d, want 30", got)
	}
}

func TestResourceAccountantAccountLimitProportionalToStake(t *testing.T) {
	ra := NewResourceAccountant(nil)
	alice := MustParseName("alice")
	bob := MustParseName("bob")
	ra.SetLimits(ResourceLimits{Owner: alice, CPUWeight: 1, NetWeight: 1, RAMBytes: 100})
	ra.SetLimits(ResourceLimits{Owner: bob, CPUWeight: 3, NetWeight: 3, RAMBytes: 100})

	aliceCPU, _ := ra.AccountLimit(alice)
	bobCPU, _ := ra.AccountLimit(bob)
	if bobCPU <= aliceCPU {
		t.Fatalf("expected bob's 3x stake weight to yield a larger CPU limit: alice=%d bob=%d", aliceCPU, bobCPU)
	}
}

func TestElasticLimitParametersExpandsAndContracts(t *testing.T) {
	p := DefaultCPULimitParameters()

	below := p.virtualLimit(p.Target, 0)
	if below <= p.Target {
		t.Fatalf("virtualLimit should expand above target when usage is below target: got %d, target %d", below, p.Target)
	}

	above := p.virtualLimit(p.Target*2, p.Target*3)
	if above >= p.Target*2 {
		t.Fatalf("virtualLimit should contract when usage exceeds target: got %d, started at %d", above, p.Target*2)
	}
	if above < p.Target {
		t.Fatalf("virtualLimit must never contract below Target: got %d", above)
	}
}

func TestResourceAccountantStartBlockUpdatesVirtualLimits(t *testing.T) {
	ra := NewResourceAccountant(nil)
	before := ra.cpuVirtualLimit
	ra.StartBlock(0, 0)
	after := ra.cpuVirtualLimit
	if after <= before {
		t.Fatalf("StartBlock with zero usage should expand the virtual limit: before=%d after=%d", before, after)
	}
}
