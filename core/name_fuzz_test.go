package core

import "testing"

// FuzzNameRoundTrip exercises ParseName/String the way
// internal/testutil's FuzzSandboxReadWrite exercises Sandbox: random valid
// inputs must survive an encode/decode cycle unchanged.
func FuzzNameRoundTrip(f *testing.F) {
	seeds := []string{"", "a", "eosio", "alice", "bob.edu", "1234567890123", "tester123"}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		n, err := ParseName(s)
		if err != nil {
			t.Skip()
		}
		if got, err := ParseName(n.String()); err != nil || got != n {
			t.Fatalf("round trip mismatch for %q: got %v, err %v, want %v", s, got, err, n)
		}
	})
}

// FuzzNameBytesRoundTrip ensures the big-endian sort-key encoding used as
// primary-key bytes throughout the state store is a bijection.
func FuzzNameBytesRoundTrip(f *testing.F) {
	f.Add(uint64(0))
	f.Add(uint64(1))
	f.Add(^uint64(0))
	f.Fuzz(func(t *testing.T, v uint64) {
		n := Name(v)
		got, err := NameFromBytes(n.Bytes())
		if err != nil {
			t.Fatalf("NameFromBytes failed: %v", err)
		}
		if got != n {
			t.Fatalf("bytes round trip mismatch: got %d want %d", got, n)
		}
	})
}
