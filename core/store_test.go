package core

import "testing"

func mustParseNames(t *testing.T, names ...string) []Name {
	t.Helper()
	out := make([]Name, len(names))
	for i, n := range names {
		name, err := ParseName(n)
		if err != nil {
			t.Fatalf("ParseName(%q): %v", n, err)
		}
		out[i] = name
	}
	return out
}

func TestStoreInsertGetRowCount(t *testing.T) {
	s := NewMultiIndexStore()
	names := mustParseNames(t, "eosio", "alice", "accounts")
	code, scope, table := names[0], names[1], names[2]

	session := s.BeginSession()
	tbl, err := s.CreateTable(code, scope, table, names[1])
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := s.Insert(tbl.ID, 1, names[1], []byte("hello")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	session.Commit()

	if got := s.RowCount(tbl.ID); got != 1 {
		t.Fatalf("RowCount = %d, want 1", got)
	}
	kv, ok := s.Get(tbl.ID, 1)
	if !ok {
		t.Fatalf("Get did not find row")
	}
	if string(kv.Value) != "hello" {
		t.Fatalf("Get value = %q, want %q", kv.Value, "hello")
	}
}

func TestStoreUndoDiscardsInsert(t *testing.T) {
	s := NewMultiIndexStore()
	names := mustParseNames(t, "eosio", "alice", "accounts")
	code, scope, table := names[0], names[1], names[2]

	setup := s.BeginSession()
	tbl, err := s.CreateTable(code, scope, table, names[1])
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	setup.Commit()

	session := s.BeginSession()
	if err := s.Insert(tbl.ID, 1, names[1], []byte("hello")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	session.Undo()

	if got := s.RowCount(tbl.ID); got != 0 {
		t.Fatalf("RowCount after undo = %d, want 0", got)
	}
	if _, ok := s.Get(tbl.ID, 1); ok {
		t.Fatalf("Get found row after undo, want none")
	}
}

func TestStoreNestedSessionUndoesOnlyInnerChanges(t *testing.T) {
	s := NewMultiIndexStore()
	names := mustParseNames(t, "eosio", "alice", "accounts")
	code, scope, table := names[0], names[1], names[2]

	outer := s.BeginSession()
	tbl, err := s.CreateTable(code, scope, table, names[1])
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := s.Insert(tbl.ID, 1, names[1], []byte("outer")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	inner := s.BeginSession()
	if err := s.Insert(tbl.ID, 2, names[1], []byte("inner")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	inner.Undo()

	outer.Commit()

	if got := s.RowCount(tbl.ID); got != 1 {
		t.Fatalf("RowCount = %d, want 1 (outer row survives, inner row undone)", got)
	}
	if _, ok := s.Get(tbl.ID, 1); !ok {
		t.Fatalf("outer row missing after commit")
	}
	if _, ok := s.Get(tbl.ID, 2); ok {
		t.Fatalf("inner row present after its session was undone")
	}
}

func TestStoreInsertDuplicateKeyFails(t *testing.T) {
	s := NewMultiIndexStore()
	names := mustParseNames(t, "eosio", "alice", "accounts")
	session := s.BeginSession()
	tbl, err := s.CreateTable(names[0], names[1], names[2], names[1])
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := s.Insert(tbl.ID, 1, names[1], []byte("a")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(tbl.ID, 1, names[1], []byte("b")); err == nil {
		t.Fatalf("expected duplicate-key insert to fail")
	}
	session.Commit()
}

func TestStoreRowsAscendingOrder(t *testing.T) {
	s := NewMultiIndexStore()
	names := mustParseNames(t, "eosio", "alice", "accounts")
	session := s.BeginSession()
	tbl, err := s.CreateTable(names[0], names[1], names[2], names[1])
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	for _, k := range []uint64{5, 1, 3} {
		if err := s.Insert(tbl.ID, k, names[1], []byte{byte(k)}); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}
	session.Commit()

	rows := s.Rows(tbl.ID)
	want := []uint64{1, 3, 5}
	if len(rows) != len(want) {
		t.Fatalf("Rows returned %d rows, want %d", len(rows), len(want))
	}
	for i, w := range want {
		if rows[i].PrimaryKey != w {
			t.Fatalf("Rows[%d].PrimaryKey = %d, want %d", i, rows[i].PrimaryKey, w)
		}
	}
}
