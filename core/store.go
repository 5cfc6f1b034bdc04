package core

// store.go implements the versioned multi-index key-value state store of
// spec.md §4.A: typed tables, primary + secondary indices sorted by their
// canonical big-endian byte key, and nested undo sessions. It generalises
// two teacher patterns at once: the manual byte-slice key-building of
// core/access_control.go's key() helper (no fmt.Sprintf on the hot insert
// path) and the deep-copy-then-restore rollback of core/virtual_machine.go's
// memState.Snapshot. Unlike memState, which snapshots the whole store for a
// single call, UndoSession nests to arbitrary depth and only ever swaps the
// reader-visible "committed" pointer once the outermost session closes,
// matching the "single writer, many readers of the last committed snapshot"
// rule of spec.md §5.

import (
	"bytes"
	"sort"
	"sync"
)

type row struct {
	kv        KeyValue
	secondary map[string][]byte // index name -> secondary sort key
}

// tableState is the per-table slice of the store: its descriptor plus all
// rows currently populated for it.
type tableState struct {
	desc Table
	rows map[uint64]*row // primary key -> row
}

func cloneTableState(t *tableState) *tableState {
	nt := &tableState{desc: t.desc, rows: make(map[uint64]*row, len(t.rows))}
	for k, r := range t.rows {
		nr := &row{kv: r.kv, secondary: make(map[string][]byte, len(r.secondary))}
		nr.kv.Value = append([]byte(nil), r.kv.Value...)
		for idx, sk := range r.secondary {
			nr.secondary[idx] = append([]byte(nil), sk...)
		}
		nt.rows[k] = nr
	}
	return nt
}

type tableKey struct {
	Code, Scope, Table Name
}

// snapshot is the full mutable body of the store at one point in time.
type snapshot struct {
	nextTableID uint64
	tables      map[uint64]*tableState
	byKey       map[tableKey]uint64
}

func newSnapshot() *snapshot {
	return &snapshot{tables: make(map[uint64]*tableState), byKey: make(map[tableKey]uint64)}
}

func cloneSnapshot(s *snapshot) *snapshot {
	ns := &snapshot{
		nextTableID: s.nextTableID,
		tables:      make(map[uint64]*tableState, len(s.tables)),
		byKey:       make(map[tableKey]uint64, len(s.byKey)),
	}
	for id, t := range s.tables {
		ns.tables[id] = cloneTableState(t)
	}
	for k, v := range s.byKey {
		ns.byKey[k] = v
	}
	return ns
}

// SecondaryIndexFunc derives a secondary sort key from a row's value,
// analogous to EOSIO's secondary-index table types (spec.md §4.A). A nil
// return means "no entry for this row in this index" (sparse index).
type SecondaryIndexFunc func(kv KeyValue) []byte

// MultiIndexStore is the versioned, multi-index key-value state store.
// A single instance is shared by the whole controller.
type MultiIndexStore struct {
	writeMu sync.Mutex // serializes the single writer / session tree

	commitMu  sync.RWMutex // guards committed, for concurrent readers
	committed *snapshot

	working *snapshot   // non-nil while a session tree is open
	undos   []*snapshot // rollback point per nesting depth, shares pointer identity with BeginSession's push

	indices map[string]SecondaryIndexFunc
}

// NewMultiIndexStore returns an empty store.
func NewMultiIndexStore() *MultiIndexStore {
	return &MultiIndexStore{
		committed: newSnapshot(),
		indices:   make(map[string]SecondaryIndexFunc),
	}
}

// RegisterSecondaryIndex installs a named secondary index derivation,
// applied to every row of every table going forward. Contracts that never
// declare a secondary index (the common case) pay nothing for this.
func (s *MultiIndexStore) RegisterSecondaryIndex(name string, fn SecondaryIndexFunc) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	s.indices[name] = fn
}

func (s *MultiIndexStore) deriveSecondary(kv KeyValue) map[string][]byte {
	out := make(map[string][]byte, len(s.indices))
	for name, fn := range s.indices {
		if sk := fn(kv); sk != nil {
			out[name] = sk
		}
	}
	return out
}

// snap returns the snapshot mutations/reads should target: the in-flight
// working copy if a session is open, otherwise the last committed state.
func (s *MultiIndexStore) snap() *snapshot {
	if s.working != nil {
		return s.working
	}
	s.commitMu.RLock()
	defer s.commitMu.RUnlock()
	return s.committed
}

// --- Table management ---

// CreateTable registers a new (code, scope, table) triple and returns its
// freshly allocated Table descriptor. Must be called inside an open
// UndoSession. Returns ErrDatabase if it already exists.
func (s *MultiIndexStore) CreateTable(code, scope, table, payer Name) (Table, error) {
	if s.working == nil {
		return Table{}, wrapChainError(ErrDatabase, newStoreError(storeInternal, "no open session"), "create table %s/%s/%s", code, scope, table)
	}
	cur := s.working
	key := tableKey{code, scope, table}
	if _, ok := cur.byKey[key]; ok {
		return Table{}, wrapChainError(ErrDatabase, newStoreError(storeAlreadyExists, "table exists"), "create table %s/%s/%s", code, scope, table)
	}
	cur.nextTableID++
	id := cur.nextTableID
	desc := Table{ID: id, Code: code, Scope: scope, Table: table, Payer: payer, Count: 0}
	cur.tables[id] = &tableState{desc: desc, rows: make(map[uint64]*row)}
	cur.byKey[key] = id
	return desc, nil
}

// FindTable looks up a table descriptor by its (code, scope, table) key.
func (s *MultiIndexStore) FindTable(code, scope, table Name) (Table, bool) {
	cur := s.snap()
	id, ok := cur.byKey[tableKey{code, scope, table}]
	if !ok {
		return Table{}, false
	}
	return cur.tables[id].desc, true
}

// GetOrCreateTable returns the existing table or creates it with the given
// payer, the "find or make the table" convenience the database host
// functions need (spec.md §4.F db_* family).
func (s *MultiIndexStore) GetOrCreateTable(code, scope, table, payer Name) (Table, error) {
	if t, ok := s.FindTable(code, scope, table); ok {
		return t, nil
	}
	return s.CreateTable(code, scope, table, payer)
}

// --- Row operations ---

// Insert adds a new row under tableID at primaryKey. Must be called inside
// an open UndoSession. Returns ErrDatabase if the key already exists.
func (s *MultiIndexStore) Insert(tableID uint64, primaryKey uint64, payer Name, value []byte) error {
	if s.working == nil {
		return wrapChainError(ErrDatabase, newStoreError(storeInternal, "no open session"), "insert into table %d", tableID)
	}
	t, ok := s.working.tables[tableID]
	if !ok {
		return wrapChainError(ErrDatabase, newStoreError(storeNotFound, "no such table"), "insert into table %d", tableID)
	}
	if _, exists := t.rows[primaryKey]; exists {
		return wrapChainError(ErrDatabase, newStoreError(storeAlreadyExists, "primary key exists"), "insert key %d into table %d", primaryKey, tableID)
	}
	kv := KeyValue{TableID: tableID, PrimaryKey: primaryKey, Payer: payer, Value: append([]byte(nil), value...)}
	t.rows[primaryKey] = &row{kv: kv, secondary: s.deriveSecondary(kv)}
	t.desc.Count++
	return nil
}

// Get returns the row at primaryKey in tableID.
func (s *MultiIndexStore) Get(tableID uint64, primaryKey uint64) (KeyValue, bool) {
	cur := s.snap()
	t, ok := cur.tables[tableID]
	if !ok {
		return KeyValue{}, false
	}
	r, ok := t.rows[primaryKey]
	if !ok {
		return KeyValue{}, false
	}
	return r.kv, true
}

// Modify replaces the value and payer of an existing row, recomputing its
// secondary-index keys. Must be called inside an open UndoSession.
func (s *MultiIndexStore) Modify(tableID uint64, primaryKey uint64, newPayer Name, newValue []byte) error {
	if s.working == nil {
		return wrapChainError(ErrDatabase, newStoreError(storeInternal, "no open session"), "modify table %d", tableID)
	}
	t, ok := s.working.tables[tableID]
	if !ok {
		return wrapChainError(ErrDatabase, newStoreError(storeNotFound, "no such table"), "modify table %d", tableID)
	}
	r, ok := t.rows[primaryKey]
	if !ok {
		return wrapChainError(ErrDatabase, newStoreError(storeNotFound, "no such row"), "modify key %d in table %d", primaryKey, tableID)
	}
	r.kv.Payer = newPayer
	r.kv.Value = append([]byte(nil), newValue...)
	r.secondary = s.deriveSecondary(r.kv)
	return nil
}

// Remove deletes a row from its table. Must be called inside an open
// UndoSession.
func (s *MultiIndexStore) Remove(tableID uint64, primaryKey uint64) error {
	if s.working == nil {
		return wrapChainError(ErrDatabase, newStoreError(storeInternal, "no open session"), "remove from table %d", tableID)
	}
	t, ok := s.working.tables[tableID]
	if !ok {
		return wrapChainError(ErrDatabase, newStoreError(storeNotFound, "no such table"), "remove from table %d", tableID)
	}
	if _, ok := t.rows[primaryKey]; !ok {
		return wrapChainError(ErrDatabase, newStoreError(storeNotFound, "no such row"), "remove key %d from table %d", primaryKey, tableID)
	}
	delete(t.rows, primaryKey)
	t.desc.Count--
	return nil
}

// --- Iteration ---

// RowCount reports how many rows tableID currently holds: the soundness
// invariant spec.md §8 calls "table row-count soundness" — Count always
// equals the number of live primary keys.
func (s *MultiIndexStore) RowCount(tableID uint64) uint32 {
	cur := s.snap()
	t, ok := cur.tables[tableID]
	if !ok {
		return 0
	}
	return t.desc.Count
}

// Rows returns every row of tableID in ascending primary-key order
// (spec.md §4.A: deterministic iteration over the primary index, whose sort
// key is the 8-byte big-endian primary key, the same convention
// Name.Bytes() uses for account/permission names used as primary keys).
func (s *MultiIndexStore) Rows(tableID uint64) []KeyValue {
	cur := s.snap()
	t, ok := cur.tables[tableID]
	if !ok {
		return nil
	}
	keys := make([]uint64, 0, len(t.rows))
	for k := range t.rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]KeyValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, t.rows[k].kv)
	}
	return out
}

// RowsByIndex returns every row of tableID that has an entry in the named
// secondary index, ordered by that index's sort key ascending.
func (s *MultiIndexStore) RowsByIndex(tableID uint64, indexName string) []KeyValue {
	cur := s.snap()
	t, ok := cur.tables[tableID]
	if !ok {
		return nil
	}
	type entry struct {
		key []byte
		kv  KeyValue
	}
	entries := make([]entry, 0, len(t.rows))
	for _, r := range t.rows {
		if sk, ok := r.secondary[indexName]; ok {
			entries = append(entries, entry{key: sk, kv: r.kv})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return bytes.Compare(entries[i].key, entries[j].key) < 0 })
	out := make([]KeyValue, len(entries))
	for i, e := range entries {
		out[i] = e.kv
	}
	return out
}

// LowerBound returns the first row of tableID whose primary key is >= key,
// and whether one was found (spec.md §4.A find/lower_bound cursor family).
func (s *MultiIndexStore) LowerBound(tableID uint64, key uint64) (KeyValue, bool) {
	rows := s.Rows(tableID)
	i := sort.Search(len(rows), func(i int) bool { return rows[i].PrimaryKey >= key })
	if i == len(rows) {
		return KeyValue{}, false
	}
	return rows[i], true
}

// --- Undo sessions ---

// UndoSession is a single nested transactional boundary over the store.
// Exactly one of Commit or Undo must be called; once either has run, further
// Commit or Undo calls on the same session return without effect.
// Obtain one via MultiIndexStore.BeginSession, never construct directly.
type UndoSession struct {
	store  *MultiIndexStore
	pre    *snapshot // the state to restore to on Undo
	closed bool
}

// BeginSession opens a new undo session, nested inside any already-open
// session. The outermost BeginSession acquires the store's write lock,
// which is held until the outermost session's Commit or Undo returns.
func (s *MultiIndexStore) BeginSession() *UndoSession {
	if s.working == nil {
		s.writeMu.Lock()
		s.commitMu.RLock()
		s.working = cloneSnapshot(s.committed)
		s.commitMu.RUnlock()
	}
	pre := cloneSnapshot(s.working)
	s.undos = append(s.undos, pre)
	return &UndoSession{store: s, pre: pre}
}

// Commit keeps the session's modifications in the working copy. If this
// was the outermost session, the working copy becomes the new
// reader-visible committed snapshot and the write lock is released.
func (u *UndoSession) Commit() {
	if u.closed {
		return
	}
	u.closed = true
	s := u.store
	if n := len(s.undos); n > 0 && s.undos[n-1] == u.pre {
		s.undos = s.undos[:n-1]
	}
	if len(s.undos) == 0 {
		s.commitMu.Lock()
		s.committed = s.working
		s.commitMu.Unlock()
		s.working = nil
		s.writeMu.Unlock()
	}
}

// Undo discards every modification made since BeginSession, restoring the
// working copy to its pre-session state. If this was the outermost
// session, the working copy (and all its changes) is discarded entirely.
func (u *UndoSession) Undo() {
	if u.closed {
		return
	}
	u.closed = true
	s := u.store
	if n := len(s.undos); n > 0 && s.undos[n-1] == u.pre {
		s.undos = s.undos[:n-1]
	}
	s.working = u.pre
	if len(s.undos) == 0 {
		s.working = nil
		s.writeMu.Unlock()
	}
}
