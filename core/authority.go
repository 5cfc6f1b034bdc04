package core

// authority.go implements the permission forest and weighted multi-sig
// satisfaction algorithm of spec.md §4.C. The per-account permission cache
// and manual composite-key bookkeeping follow core/access_control.go's
// AccessController (role cache keyed by address, "access:<addr>:<role>"
// ledger keys); here the cache is keyed by account Name and the "role" is a
// permission Name, with an actual weighted Authority attached rather than a
// bare grant/revoke flag.

import (
	"sync"
	"time"
)

// linkKey identifies one linkauth entry: (code, message_type). A zero
// MessageType is the account-wide default link for that code, per EOSIO
// convention and spec.md §3's PermissionLink.
type linkKey struct {
	Code        Name
	MessageType Name
}

// DefaultPermission is the permission name assumed for an (account, code,
// action) triple with no linkauth entry on file (spec.md §4.C).
var DefaultPermission = MustParseName("active")

// OwnerPermission is the root permission every account is created with; it
// has no parent and is never itself linked to an action (spec.md §3).
var OwnerPermission = MustParseName("owner")

// AuthorityManager owns the permission forest (one tree per account, rooted
// at "owner") and the linkauth table mapping actions to their minimum
// required permission.
type AuthorityManager struct {
	mu sync.RWMutex

	nextID  uint64
	byID    map[uint64]*Permission
	byOwner map[Name]map[Name]uint64 // account -> permission name -> id

	links map[Name]map[linkKey]Name // account -> (code,msgType) -> required permission

	// MaxAuthorityDepth bounds permission-graph recursion (spec.md §4.C,
	// §9); default 6, matching the Design Notes' discussion of the
	// source's authority_checker.
	MaxAuthorityDepth uint32
}

// NewAuthorityManager returns an empty manager with the default recursion
// bound.
func NewAuthorityManager() *AuthorityManager {
	return &AuthorityManager{
		byID:              make(map[uint64]*Permission),
		byOwner:           make(map[Name]map[Name]uint64),
		links:             make(map[Name]map[linkKey]Name),
		MaxAuthorityDepth: 6,
	}
}

// CreatePermission installs a new named permission under owner, parented to
// parent (pass the zero Name for a root permission — normally "owner").
// Returns ErrActionValidation if authority is malformed, ErrDatabase if the
// permission already exists, and ErrPermissionNotFound if the named parent
// does not.
func (am *AuthorityManager) CreatePermission(owner, name, parent Name, authority Authority) (*Permission, error) {
	if err := authority.Validate(); err != nil {
		return nil, err
	}
	am.mu.Lock()
	defer am.mu.Unlock()

	if perms, ok := am.byOwner[owner]; ok {
		if _, exists := perms[name]; exists {
			return nil, newChainError(ErrDatabase, "permission %s/%s already exists", owner, name)
		}
	}
	var parentID uint64
	if parent != 0 {
		pid, ok := am.lookupLocked(owner, parent)
		if !ok {
			return nil, newChainError(ErrPermissionNotFound, "parent permission %s/%s not found", owner, parent)
		}
		parentID = pid
	}
	am.nextID++
	p := &Permission{ID: am.nextID, ParentID: parentID, Owner: owner, Name: name, Authority: authority}
	am.byID[p.ID] = p
	if am.byOwner[owner] == nil {
		am.byOwner[owner] = make(map[Name]uint64)
	}
	am.byOwner[owner][name] = p.ID
	return p, nil
}

func (am *AuthorityManager) lookupLocked(owner, name Name) (uint64, bool) {
	perms, ok := am.byOwner[owner]
	if !ok {
		return 0, false
	}
	id, ok := perms[name]
	return id, ok
}

// GetPermission returns the named permission of owner.
func (am *AuthorityManager) GetPermission(owner, name Name) (*Permission, bool) {
	am.mu.RLock()
	defer am.mu.RUnlock()
	id, ok := am.lookupLocked(owner, name)
	if !ok {
		return nil, false
	}
	p := *am.byID[id]
	return &p, true
}

// UpdatePermission replaces the Authority attached to an existing named
// permission (the updateauth system action).
func (am *AuthorityManager) UpdatePermission(owner, name Name, authority Authority) error {
	if err := authority.Validate(); err != nil {
		return err
	}
	am.mu.Lock()
	defer am.mu.Unlock()
	id, ok := am.lookupLocked(owner, name)
	if !ok {
		return newChainError(ErrPermissionNotFound, "permission %s/%s not found", owner, name)
	}
	p := *am.byID[id]
	p.Authority = authority
	am.byID[id] = &p
	return nil
}

// DeletePermission removes a named permission (the deleteauth system
// action). Fails if any other permission is parented to it, or any
// linkauth entry still requires it.
func (am *AuthorityManager) DeletePermission(owner, name Name) error {
	am.mu.Lock()
	defer am.mu.Unlock()
	id, ok := am.lookupLocked(owner, name)
	if !ok {
		return newChainError(ErrPermissionNotFound, "permission %s/%s not found", owner, name)
	}
	for _, p := range am.byID {
		if p.Owner == owner && p.ParentID == id {
			return newChainError(ErrActionValidation, "cannot delete permission %s/%s: %s depends on it", owner, name, p.Name)
		}
	}
	for _, link := range am.links[owner] {
		if link == name {
			return newChainError(ErrActionValidation, "cannot delete permission %s/%s: still linked", owner, name)
		}
	}
	delete(am.byID, id)
	delete(am.byOwner[owner], name)
	return nil
}

// LinkAuth installs a linkauth entry. A zero MessageType links every action
// of Code not otherwise explicitly linked (spec.md §3).
func (am *AuthorityManager) LinkAuth(link PermissionLink) error {
	am.mu.Lock()
	defer am.mu.Unlock()
	if _, ok := am.lookupLocked(link.Account, link.RequiredPermission); !ok {
		return newChainError(ErrPermissionNotFound, "permission %s/%s not found", link.Account, link.RequiredPermission)
	}
	if am.links[link.Account] == nil {
		am.links[link.Account] = make(map[linkKey]Name)
	}
	am.links[link.Account][linkKey{Code: link.Code, MessageType: link.MessageType}] = link.RequiredPermission
	return nil
}

// UnlinkAuth removes a previously installed linkauth entry.
func (am *AuthorityManager) UnlinkAuth(account, code, messageType Name) error {
	am.mu.Lock()
	defer am.mu.Unlock()
	k := linkKey{Code: code, MessageType: messageType}
	links, ok := am.links[account]
	if !ok {
		return newChainError(ErrActionValidation, "no linkauth entries for %s", account)
	}
	if _, ok := links[k]; !ok {
		return newChainError(ErrActionValidation, "no linkauth entry for %s/%s/%s", account, code, messageType)
	}
	delete(links, k)
	return nil
}

// authoritySnapshot is a deep copy of every map AuthorityManager owns,
// following the same copy-then-restore idiom core/store.go's snapshot/
// cloneSnapshot pair uses for table state — here generalized to the
// permission forest and linkauth table so a transaction that fails after
// mutating permissions (updateauth, linkauth, ...) can be rolled back
// alongside the MultiIndexStore's own undo session.
type authoritySnapshot struct {
	nextID  uint64
	byID    map[uint64]*Permission
	byOwner map[Name]map[Name]uint64
	links   map[Name]map[linkKey]Name
}

// snapshot captures the current permission forest and linkauth table.
func (am *AuthorityManager) snapshot() authoritySnapshot {
	am.mu.RLock()
	defer am.mu.RUnlock()

	byID := make(map[uint64]*Permission, len(am.byID))
	for id, p := range am.byID {
		cp := *p
		byID[id] = &cp
	}
	byOwner := make(map[Name]map[Name]uint64, len(am.byOwner))
	for owner, perms := range am.byOwner {
		m := make(map[Name]uint64, len(perms))
		for name, id := range perms {
			m[name] = id
		}
		byOwner[owner] = m
	}
	links := make(map[Name]map[linkKey]Name, len(am.links))
	for owner, ls := range am.links {
		m := make(map[linkKey]Name, len(ls))
		for k, v := range ls {
			m[k] = v
		}
		links[owner] = m
	}
	return authoritySnapshot{nextID: am.nextID, byID: byID, byOwner: byOwner, links: links}
}

// restore replaces the manager's state with a previously captured snapshot,
// discarding every CreatePermission/UpdatePermission/DeletePermission/
// LinkAuth/UnlinkAuth call made since it was taken.
func (am *AuthorityManager) restore(s authoritySnapshot) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.nextID = s.nextID
	am.byID = s.byID
	am.byOwner = s.byOwner
	am.links = s.links
}

// RequiredPermission resolves the minimum permission needed to authorize
// action (code, messageType) on behalf of account: an exact (code,
// messageType) link, falling back to the account-wide default link for
// code, falling back to DefaultPermission ("active").
func (am *AuthorityManager) RequiredPermission(account, code, messageType Name) Name {
	am.mu.RLock()
	defer am.mu.RUnlock()
	links, ok := am.links[account]
	if ok {
		if p, ok := links[linkKey{Code: code, MessageType: messageType}]; ok {
			return p
		}
		if p, ok := links[linkKey{Code: code, MessageType: 0}]; ok {
			return p
		}
	}
	return DefaultPermission
}

// satisfyState carries the per-check inputs through the recursive
// permission walk, held constant across calls.
type satisfyState struct {
	providedKeys  map[PublicKey]bool
	providedPerms map[PermissionLevel]bool
	delay         time.Duration
	maxDepth      uint32
	visiting      map[uint64]bool // cycle guard: permission IDs currently on the recursion stack
}

// CheckAuthorization verifies that the supplied keys, explicitly-provided
// permission levels, and accumulated delay together satisfy account's named
// permission, per the recursive weighted-threshold algorithm of spec.md
// §4.C. Returns ErrMissingAuth if the weights fall short, ErrPermissionNotFound
// if the named permission does not exist.
func (am *AuthorityManager) CheckAuthorization(account, permission Name, providedKeys []PublicKey, providedPerms []PermissionLevel, delay time.Duration) error {
	am.mu.RLock()
	defer am.mu.RUnlock()

	id, ok := am.lookupLocked(account, permission)
	if !ok {
		return newChainError(ErrPermissionNotFound, "permission %s/%s not found", account, permission)
	}

	st := &satisfyState{
		providedKeys:  make(map[PublicKey]bool, len(providedKeys)),
		providedPerms: make(map[PermissionLevel]bool, len(providedPerms)),
		delay:         delay,
		maxDepth:      am.MaxAuthorityDepth,
		visiting:      make(map[uint64]bool),
	}
	for _, k := range providedKeys {
		st.providedKeys[k] = true
	}
	for _, p := range providedPerms {
		st.providedPerms[p] = true
	}

	satisfied, err := am.satisfies(id, st, 0)
	if err != nil {
		return err
	}
	if !satisfied {
		return newChainError(ErrMissingAuth, "authority %s/%s not satisfied by provided keys/permissions", account, permission)
	}
	return nil
}

// satisfies reports whether the named permission's weighted threshold is
// met, recursing into sub-permission references. Cycle safety: a
// permission ID already on the recursion stack ("currently visiting")
// never contributes weight a second time, which is strictly stronger than
// relying on the depth bound alone — a cycle among permissions each with
// spare depth budget would otherwise recurse until it ran one out, wasting
// work and risking stack exhaustion on pathological inputs (spec.md §9).
func (am *AuthorityManager) satisfies(id uint64, st *satisfyState, depth uint32) (bool, error) {
	if depth > st.maxDepth {
		return false, newChainError(ErrAuthorization, "permission recursion exceeded max depth %d", st.maxDepth)
	}
	if st.visiting[id] {
		return false, nil
	}
	st.visiting[id] = true
	defer delete(st.visiting, id)

	p := am.byID[id]
	var weight uint64
	for _, kw := range p.Authority.Keys {
		if st.providedKeys[kw.Key] {
			weight += uint64(kw.Weight)
		}
	}
	for _, pw := range p.Authority.Accounts {
		if st.providedPerms[pw.Level] {
			weight += uint64(pw.Weight)
			continue
		}
		subID, ok := am.lookupLocked(pw.Level.Actor, pw.Level.Permission)
		if !ok {
			continue
		}
		ok, err := am.satisfies(subID, st, depth+1)
		if err != nil {
			return false, err
		}
		if ok {
			weight += uint64(pw.Weight)
		}
	}
	for _, ww := range p.Authority.Waits {
		if st.delay >= time.Duration(ww.WaitSec)*time.Second {
			weight += uint64(ww.Weight)
		}
	}
	if weight > 0xFFFFFFFF {
		weight = 0xFFFFFFFF
	}
	return uint32(weight) >= p.Authority.Threshold, nil
}

// IsPermissionAncestor reports whether ancestor is permission or one of its
// ancestors in the permission forest — the "permission cover" relation used
// by spec.md §8's reflexivity/transitivity testable property: satisfying a
// child permission never satisfies a stricter ancestor, but satisfying
// "owner" covers every permission beneath it.
func (am *AuthorityManager) IsPermissionAncestor(owner, ancestor, permission Name) bool {
	am.mu.RLock()
	defer am.mu.RUnlock()
	id, ok := am.lookupLocked(owner, permission)
	if !ok {
		return false
	}
	ancestorID, ok := am.lookupLocked(owner, ancestor)
	if !ok {
		return false
	}
	for {
		if id == ancestorID {
			return true
		}
		p, ok := am.byID[id]
		if !ok || p.ParentID == 0 {
			return id == ancestorID
		}
		id = p.ParentID
	}
}
