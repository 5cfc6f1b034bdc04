package core

// hostfunctions.go implements the contract-facing ABI of spec.md §4.F: the
// primitives exposed to sandboxed WASM contract code through the host
// function surface. This file implements the semantics in terms of
// ApplyContext; vm.go binds these methods to actual wasmer.Function host
// imports the way the teacher's virtual_machine.go registerHost does for
// its own (much smaller) host_read/host_write/host_log/host_consume_gas
// set. The per-apply-context iterator cache (§4.F, §9) generalizes that
// same idea to EOSIO's richer db_find/db_next/db_previous cursor family,
// which the teacher never implements.

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"
)

// iteratorHandle is an opaque integer handed back to WASM contract code by
// the db_* host functions. Handles are only valid for the lifetime of the
// ApplyContext that issued them (spec.md §4.F, §9).
type iteratorHandle int32

// iteratorEntry records what a live handle refers to: which table/index
// and which primary key it currently denotes.
type iteratorEntry struct {
	tableID    uint64
	indexName  string // empty string = primary index
	primaryKey uint64
	end        bool // "end" sentinel iterator (db_end_i64)
}

// iteratorCache is the per-apply-context cursor cache backing the db_*
// family's integer handles (spec.md §4.F, §9: "never outlives the apply
// context").
type iteratorCache struct {
	next    iteratorHandle
	entries map[iteratorHandle]*iteratorEntry
}

func newIteratorCache() *iteratorCache {
	return &iteratorCache{entries: make(map[iteratorHandle]*iteratorEntry)}
}

func (c *iteratorCache) add(e *iteratorEntry) iteratorHandle {
	h := c.next
	c.next++
	c.entries[h] = e
	return h
}

func (c *iteratorCache) get(h iteratorHandle) (*iteratorEntry, bool) {
	e, ok := c.entries[h]
	return e, ok
}

// --- Database host functions (spec.md §4.F db_* family) ---
//
// Only the i64-primary-key family is implemented in full; the secondary
// index variants (u64/u128/double/long-double/256-bit) described by
// spec.md share the same iterator-cache mechanics over
// MultiIndexStore.RowsByIndex and are exposed through DBFindSecondary,
// DBLowerBoundSecondary, DBUpperBoundSecondary, DBNextSecondary and
// DBPreviousSecondary, parameterised by index name, rather than one
// hand-duplicated method per key width — WASM-side marshaling of the wider
// key types is the wasmer import boundary's job (vm.go), not this file's.

// DBStore inserts a new row and returns a fresh iterator handle positioned
// at it (spec.md §4.F db_store_i64).
func (ac *ApplyContext) DBStore(scope, table Name, primaryKey uint64, payer Name, value []byte) (iteratorHandle, error) {
	if err := ac.RequireAuth(payer); err != nil {
		return 0, err
	}
	if err := ac.Store(scope, table, primaryKey, payer, value); err != nil {
		return 0, err
	}
	t, _ := ac.tc.ctrl.store.FindTable(ac.receiver, scope, table)
	return ac.iterators.add(&iteratorEntry{tableID: t.ID, primaryKey: primaryKey}), nil
}

// DBUpdate modifies an existing row in place, re-billing any RAM delta to
// the (possibly new) payer (spec.md §4.F db_update_i64).
func (ac *ApplyContext) DBUpdate(h iteratorHandle, payer Name, value []byte) error {
	e, ok := ac.iterators.get(h)
	if !ok || e.end {
		return newChainError(ErrDatabase, "invalid iterator handle %d", h)
	}
	old, ok := ac.tc.ctrl.store.Get(e.tableID, e.primaryKey)
	if !ok {
		return newChainError(ErrDatabase, "row %d no longer exists", e.primaryKey)
	}
	if err := ac.RequireAuth(payer); err != nil {
		return err
	}
	if err := ac.tc.ctrl.store.Modify(e.tableID, e.primaryKey, payer, value); err != nil {
		return err
	}
	ac.BillRAM(old.Payer, -billableSize(old.Value))
	ac.BillRAM(payer, billableSize(value))
	return nil
}

// DBRemove deletes the row at h, refunding RAM to its payer (spec.md §4.F
// db_remove_i64).
func (ac *ApplyContext) DBRemove(h iteratorHandle) error {
	e, ok := ac.iterators.get(h)
	if !ok || e.end {
		return newChainError(ErrDatabase, "invalid iterator handle %d", h)
	}
	old, ok := ac.tc.ctrl.store.Get(e.tableID, e.primaryKey)
	if !ok {
		return newChainError(ErrDatabase, "row %d no longer exists", e.primaryKey)
	}
	if err := ac.tc.ctrl.store.Remove(e.tableID, e.primaryKey); err != nil {
		return err
	}
	ac.BillRAM(old.Payer, -billableSize(old.Value))
	return nil
}

// DBGet returns the value stored at h.
func (ac *ApplyContext) DBGet(h iteratorHandle) ([]byte, error) {
	e, ok := ac.iterators.get(h)
	if !ok || e.end {
		return nil, newChainError(ErrDatabase, "invalid iterator handle %d", h)
	}
	kv, ok := ac.tc.ctrl.store.Get(e.tableID, e.primaryKey)
	if !ok {
		return nil, newChainError(ErrDatabase, "row %d no longer exists", e.primaryKey)
	}
	return kv.Value, nil
}

// DBFind returns a handle positioned exactly at primaryKey, or the "end"
// sentinel if absent (spec.md §4.F db_find_i64).
func (ac *ApplyContext) DBFind(scope, table Name, primaryKey uint64) iteratorHandle {
	t, ok := ac.tc.ctrl.store.FindTable(ac.receiver, scope, table)
	if !ok {
		return ac.iterators.add(&iteratorEntry{end: true})
	}
	if _, ok := ac.tc.ctrl.store.Get(t.ID, primaryKey); !ok {
		return ac.iterators.add(&iteratorEntry{tableID: t.ID, end: true})
	}
	return ac.iterators.add(&iteratorEntry{tableID: t.ID, primaryKey: primaryKey})
}

// DBEnd returns the sentinel "end" handle for a table (spec.md §4.F
// db_end_i64), used as the loop-termination comparison value.
func (ac *ApplyContext) DBEnd(scope, table Name) iteratorHandle {
	t, ok := ac.tc.ctrl.store.FindTable(ac.receiver, scope, table)
	if !ok {
		return ac.iterators.add(&iteratorEntry{end: true})
	}
	return ac.iterators.add(&iteratorEntry{tableID: t.ID, end: true})
}

// DBLowerBound returns a handle at the first row with primary key >= key
// (spec.md §4.F db_lowerbound_i64).
func (ac *ApplyContext) DBLowerBound(scope, table Name, key uint64) iteratorHandle {
	t, ok := ac.tc.ctrl.store.FindTable(ac.receiver, scope, table)
	if !ok {
		return ac.iterators.add(&iteratorEntry{end: true})
	}
	kv, ok := ac.tc.ctrl.store.LowerBound(t.ID, key)
	if !ok {
		return ac.iterators.add(&iteratorEntry{tableID: t.ID, end: true})
	}
	return ac.iterators.add(&iteratorEntry{tableID: t.ID, primaryKey: kv.PrimaryKey})
}

// DBUpperBound returns a handle at the first row with primary key > key
// (spec.md §4.F db_upperbound_i64).
func (ac *ApplyContext) DBUpperBound(scope, table Name, key uint64) iteratorHandle {
	t, ok := ac.tc.ctrl.store.FindTable(ac.receiver, scope, table)
	if !ok {
		return ac.iterators.add(&iteratorEntry{end: true})
	}
	rows := ac.tc.ctrl.store.Rows(t.ID)
	i := sort.Search(len(rows), func(i int) bool { return rows[i].PrimaryKey > key })
	if i == len(rows) {
		return ac.iterators.add(&iteratorEntry{tableID: t.ID, end: true})
	}
	return ac.iterators.add(&iteratorEntry{tableID: t.ID, primaryKey: rows[i].PrimaryKey})
}

// DBNext advances h to the next row in primary-key order, returning the new
// handle or the end sentinel (spec.md §4.F db_next_i64).
func (ac *ApplyContext) DBNext(h iteratorHandle) iteratorHandle {
	e, ok := ac.iterators.get(h)
	if !ok || e.end {
		return ac.iterators.add(&iteratorEntry{end: true})
	}
	rows := ac.tc.ctrl.store.Rows(e.tableID)
	i := sort.Search(len(rows), func(i int) bool { return rows[i].PrimaryKey > e.primaryKey })
	if i == len(rows) {
		return ac.iterators.add(&iteratorEntry{tableID: e.tableID, end: true})
	}
	return ac.iterators.add(&iteratorEntry{tableID: e.tableID, primaryKey: rows[i].PrimaryKey})
}

// DBPrevious moves h to the preceding row in primary-key order (spec.md
// §4.F db_previous_i64).
func (ac *ApplyContext) DBPrevious(h iteratorHandle) iteratorHandle {
	e, ok := ac.iterators.get(h)
	if !ok {
		return ac.iterators.add(&iteratorEntry{end: true})
	}
	rows := ac.tc.ctrl.store.Rows(e.tableID)
	var bound uint64
	if e.end {
		bound = math.MaxUint64
	} else {
		bound = e.primaryKey
	}
	i := sort.Search(len(rows), func(i int) bool { return rows[i].PrimaryKey >= bound })
	if i == 0 {
		return ac.iterators.add(&iteratorEntry{tableID: e.tableID, end: true})
	}
	return ac.iterators.add(&iteratorEntry{tableID: e.tableID, primaryKey: rows[i-1].PrimaryKey})
}

// DBFindSecondary returns a handle at the row matching secondaryKey in
// indexName, or end if none (spec.md §4.F secondary-index db_* variants).
func (ac *ApplyContext) DBFindSecondary(scope, table Name, indexName string, secondaryKey []byte) iteratorHandle {
	t, ok := ac.tc.ctrl.store.FindTable(ac.receiver, scope, table)
	if !ok {
		return ac.iterators.add(&iteratorEntry{end: true})
	}
	for _, kv := range ac.tc.ctrl.store.RowsByIndex(t.ID, indexName) {
		fn := ac.tc.ctrl.store.indices[indexName]
		if fn == nil {
			break
		}
		if string(fn(kv)) == string(secondaryKey) {
			return ac.iterators.add(&iteratorEntry{tableID: t.ID, indexName: indexName, primaryKey: kv.PrimaryKey})
		}
	}
	return ac.iterators.add(&iteratorEntry{tableID: t.ID, indexName: indexName, end: true})
}

// DBLowerBoundSecondary returns a handle at the first row in indexName whose
// secondary key is >= secondaryKey (spec.md §4.F db_lowerbound_i64_secondary
// and its wider-key siblings, all sharing this mechanics over
// MultiIndexStore.RowsByIndex).
func (ac *ApplyContext) DBLowerBoundSecondary(scope, table Name, indexName string, secondaryKey []byte) iteratorHandle {
	t, ok := ac.tc.ctrl.store.FindTable(ac.receiver, scope, table)
	if !ok {
		return ac.iterators.add(&iteratorEntry{end: true})
	}
	fn := ac.tc.ctrl.store.indices[indexName]
	if fn == nil {
		return ac.iterators.add(&iteratorEntry{tableID: t.ID, indexName: indexName, end: true})
	}
	rows := ac.tc.ctrl.store.RowsByIndex(t.ID, indexName)
	i := sort.Search(len(rows), func(i int) bool { return bytes.Compare(fn(rows[i]), secondaryKey) >= 0 })
	if i == len(rows) {
		return ac.iterators.add(&iteratorEntry{tableID: t.ID, indexName: indexName, end: true})
	}
	return ac.iterators.add(&iteratorEntry{tableID: t.ID, indexName: indexName, primaryKey: rows[i].PrimaryKey})
}

// DBUpperBoundSecondary returns a handle at the first row in indexName whose
// secondary key is > secondaryKey (spec.md §4.F db_upperbound_i64_secondary
// and its wider-key siblings).
func (ac *ApplyContext) DBUpperBoundSecondary(scope, table Name, indexName string, secondaryKey []byte) iteratorHandle {
	t, ok := ac.tc.ctrl.store.FindTable(ac.receiver, scope, table)
	if !ok {
		return ac.iterators.add(&iteratorEntry{end: true})
	}
	fn := ac.tc.ctrl.store.indices[indexName]
	if fn == nil {
		return ac.iterators.add(&iteratorEntry{tableID: t.ID, indexName: indexName, end: true})
	}
	rows := ac.tc.ctrl.store.RowsByIndex(t.ID, indexName)
	i := sort.Search(len(rows), func(i int) bool { return bytes.Compare(fn(rows[i]), secondaryKey) > 0 })
	if i == len(rows) {
		return ac.iterators.add(&iteratorEntry{tableID: t.ID, indexName: indexName, end: true})
	}
	return ac.iterators.add(&iteratorEntry{tableID: t.ID, indexName: indexName, primaryKey: rows[i].PrimaryKey})
}

// DBNextSecondary advances h to the next row in indexName's secondary-key
// order (spec.md §4.F db_next_i64_secondary and its wider-key siblings).
func (ac *ApplyContext) DBNextSecondary(h iteratorHandle) iteratorHandle {
	e, ok := ac.iterators.get(h)
	if !ok || e.end || e.indexName == "" {
		return ac.iterators.add(&iteratorEntry{end: true})
	}
	rows := ac.tc.ctrl.store.RowsByIndex(e.tableID, e.indexName)
	pos := -1
	for i, kv := range rows {
		if kv.PrimaryKey == e.primaryKey {
			pos = i
			break
		}
	}
	if pos == -1 || pos+1 >= len(rows) {
		return ac.iterators.add(&iteratorEntry{tableID: e.tableID, indexName: e.indexName, end: true})
	}
	return ac.iterators.add(&iteratorEntry{tableID: e.tableID, indexName: e.indexName, primaryKey: rows[pos+1].PrimaryKey})
}

// DBPreviousSecondary moves h to the preceding row in indexName's
// secondary-key order (spec.md §4.F db_previous_i64_secondary and its
// wider-key siblings).
func (ac *ApplyContext) DBPreviousSecondary(h iteratorHandle) iteratorHandle {
	e, ok := ac.iterators.get(h)
	if !ok || e.indexName == "" {
		return ac.iterators.add(&iteratorEntry{end: true})
	}
	rows := ac.tc.ctrl.store.RowsByIndex(e.tableID, e.indexName)
	if e.end {
		if len(rows) == 0 {
			return ac.iterators.add(&iteratorEntry{tableID: e.tableID, indexName: e.indexName, end: true})
		}
		return ac.iterators.add(&iteratorEntry{tableID: e.tableID, indexName: e.indexName, primaryKey: rows[len(rows)-1].PrimaryKey})
	}
	pos := -1
	for i, kv := range rows {
		if kv.PrimaryKey == e.primaryKey {
			pos = i
			break
		}
	}
	if pos <= 0 {
		return ac.iterators.add(&iteratorEntry{tableID: e.tableID, indexName: e.indexName, end: true})
	}
	return ac.iterators.add(&iteratorEntry{tableID: e.tableID, indexName: e.indexName, primaryKey: rows[pos-1].PrimaryKey})
}

// --- Crypto host functions (spec.md §4.F) ---

// AssertSha256 traps (returns a *ChainError of kind WasmRuntimeError,
// converted from the trap by vm.go) if sha256(data) != expected.
func (ac *ApplyContext) AssertSha256(data []byte, expected [32]byte) error {
	got := Sha256Sum(data)
	if got != expected {
		return newChainError(ErrWasmRuntime, "sha256 mismatch")
	}
	return nil
}

// RecoverKeyHost wraps RecoverKey for the WASM recover_key host function.
func (ac *ApplyContext) RecoverKeyHost(digest Id, sig Signature) (PublicKey, error) {
	return RecoverKey(digest, sig)
}

// --- System host functions (spec.md §4.F) ---

// Assert traps with msg if cond is false (spec.md §4.F pulse_assert).
func (ac *ApplyContext) Assert(cond bool, msg string) error {
	if !cond {
		return newChainError(ErrWasmRuntime, "assertion failed: %s", msg)
	}
	return nil
}

// CurrentTime returns the transaction's notion of "now" (spec.md §4.F
// current_time), held fixed for the duration of the transaction so that
// repeated calls inside one action are deterministic.
func (ac *ApplyContext) CurrentTime() int64 {
	return ac.tc.startTime.UnixMicro()
}

// --- Little-endian helpers for the wasmer memory boundary (vm.go) ---

func readUint64LE(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }
func putUint64LE(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
