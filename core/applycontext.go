package core

// applycontext.go implements the per-action execution frame of spec.md
// §4.E, grounded directly on
// original_source/crates/pulsevm/src/chain/apply_context.rs's ApplyContext:
// same fields (action, receiver, recurse_depth, first_receiver_action_ordinal,
// action_ordinal, notified, inline_actions), same exec()/exec_one() split.
// Two corrections per spec.md §9's redesign notes: exec() loops
// `1..len(notified)` (the source's `1..notified.len()-1` silently skips the
// last notified account) and the inline-recursion bound comes from
// ChainConfig.MaxInlineActionDepth, not a hardcoded 1024. The source's
// exec_one is an empty stub ("Ok(())", the repo is "partway through a
// rewrite" per spec.md §2); this file gives it the full native/WASM
// dispatch spec.md §4.E and §4.H call for.
//
// The "mutable cross-reference to transaction context" (spec.md §9) is
// expressed as a plain pointer field rather than a borrow: ApplyContext
// never outlives the TransactionContext that constructs it, and every
// state mutation funnels through the transaction context's API exactly as
// Rust's ownership would enforce at compile time.

import (
	"fmt"

	"github.com/google/uuid"
)

// notifiedEntry is one (receiver, action_ordinal) pair in the notified
// queue (spec.md §4.E).
type notifiedEntry struct {
	Receiver Name
	Ordinal  int
}

// ApplyContext is the execution frame for one (action, receiver) invocation.
type ApplyContext struct {
	action     Action
	receiver   Name
	depth      uint32
	actionOrd  int
	firstRecvOrd int

	notified      []notifiedEntry
	notifiedSet   map[Name]bool // dedup guard for require_recipient
	inlineActions []int

	authorized map[PermissionLevel]bool // deduplicated require_auth cache for this action

	tc *TransactionContext

	// iterators is the per-apply-context cursor cache for the WASM
	// database host functions (spec.md §4.F, §9): handles are only ever
	// valid for the lifetime of this ApplyContext.
	iterators *iteratorCache

	// ramDeltas accumulates RAM billed to each payer for the duration of
	// this action, charged at action end (spec.md §4.D).
	ramDeltas map[Name]int64

	returnValue []byte

	// debugID is a process-local UUID identifying this frame in logs and
	// error messages; it has no consensus meaning and is never persisted.
	debugID string
}

// newApplyContext constructs the frame for actionOrdinal at the given
// recursion depth, reading the action/receiver from the owning transaction
// context's trace tree (mirrors ApplyContext::new's
// `transaction_context.get_action_trace(action_ordinal)` lookup).
func newApplyContext(tc *TransactionContext, actionOrdinal int, depth uint32) (*ApplyContext, error) {
	trace := tc.actionTrace(actionOrdinal)
	if trace == nil {
		return nil, newChainError(ErrInternal, "no action trace for ordinal %d", actionOrdinal)
	}
	ac := &ApplyContext{
		action:       trace.Action,
		receiver:     trace.Receiver,
		depth:        depth,
		actionOrd:    actionOrdinal,
		firstRecvOrd: actionOrdinal,
		notifiedSet:  make(map[Name]bool),
		authorized:   make(map[PermissionLevel]bool),
		tc:           tc,
		iterators:    newIteratorCache(),
		ramDeltas:    make(map[Name]int64),
		debugID:      uuid.NewString(),
	}
	return ac, nil
}

// exec runs the full notify-then-inline protocol of spec.md §4.E.
func (ac *ApplyContext) exec() error {
	ac.notified = append(ac.notified, notifiedEntry{Receiver: ac.receiver, Ordinal: ac.actionOrd})
	ac.notifiedSet[ac.receiver] = true

	if err := ac.execOne(); err != nil {
		return err
	}

	// Corrected per spec.md §9: iterate the full notified queue, not
	// `1..len-1`, so the last notified receiver is never silently skipped.
	for i := 1; i < len(ac.notified); i++ {
		entry := ac.notified[i]
		ac.receiver = entry.Receiver
		ac.actionOrd = entry.Ordinal
		if err := ac.execOne(); err != nil {
			return err
		}
	}

	if len(ac.inlineActions) > 0 && ac.depth >= ac.tc.config.MaxInlineActionDepth {
		return newChainError(ErrTransaction, "RecurseDepthExceeded: inline action depth %d >= max %d", ac.depth, ac.tc.config.MaxInlineActionDepth)
	}
	for _, ordinal := range ac.inlineActions {
		if err := ac.tc.executeAction(ordinal, ac.depth+1); err != nil {
			return err
		}
	}
	return nil
}

// execOne looks up the current receiver's code and invokes it, or
// dispatches to a native system-action handler, or no-ops if the receiver
// has no installed code (spec.md §4.E).
func (ac *ApplyContext) execOne() error {
	meta, ok := ac.tc.ctrl.accounts[ac.receiver]
	if !ok {
		return newChainError(ErrActionValidation, "receiver account %s does not exist", ac.receiver)
	}

	if ac.receiver == SystemAccountName && isSystemAction(ac.action.Name) {
		if err := dispatchSystemAction(ac.tc.ctrl, ac); err != nil {
			return err
		}
	} else if !meta.CodeHash.IsZero() {
		code, ok := ac.tc.ctrl.code[meta.CodeHash]
		if !ok {
			return newChainError(ErrInternal, "code object %s missing for account %s", meta.CodeHash, ac.receiver)
		}
		if err := ac.tc.ctrl.vm.Execute(ac, code); err != nil {
			return wrapChainError(ErrWasmRuntime, err, "action %s::%s on %s", ac.action.Account, ac.action.Name, ac.receiver)
		}
	}
	// No code installed: the notification still advances sequence
	// numbers via recordReceipt below, per spec.md §4.E.
	ac.tc.recordReceipt(ac)
	return nil
}

// RequireRecipient appends receiver to the notified queue if not already
// present, deduplicated (spec.md §4.F require_recipient).
func (ac *ApplyContext) RequireRecipient(receiver Name) {
	if ac.notifiedSet[receiver] {
		return
	}
	ac.notifiedSet[receiver] = true
	ac.notified = append(ac.notified, notifiedEntry{Receiver: receiver, Ordinal: ac.actionOrd})
}

// RequireAuth verifies that `actor` appears in this action's declared
// authorization under any permission level, and caches the result for this
// action
// (spec.md §4.F require_auth/has_auth).
func (ac *ApplyContext) RequireAuth(actor Name) error {
	for _, lvl := range ac.action.Authorization {
		if lvl.Actor == actor {
			ac.authorized[lvl] = true
			return nil
		}
	}
	return newChainError(ErrMissingAuth, "missing authority of %s", actor)
}

// RequireAuth2 verifies the exact (actor, permission) level was declared.
func (ac *ApplyContext) RequireAuth2(actor, permission Name) error {
	lvl := PermissionLevel{Actor: actor, Permission: permission}
	for _, decl := range ac.action.Authorization {
		if decl == lvl {
			ac.authorized[lvl] = true
			return nil
		}
	}
	return newChainError(ErrMissingAuth, "missing authority of %s/%s", actor, permission)
}

// HasAuth reports whether actor authorized this action, without failing.
func (ac *ApplyContext) HasAuth(actor Name) bool {
	for _, lvl := range ac.action.Authorization {
		if lvl.Actor == actor {
			return true
		}
	}
	return false
}

// IsAccount reports whether name refers to an existing account.
func (ac *ApplyContext) IsAccount(name Name) bool {
	_, ok := ac.tc.ctrl.accounts[name]
	return ok
}

// IsPrivileged reports whether name's AccountMetadata.Privileged is set,
// gating access to the privileged host-function category (spec.md §4.F).
func (ac *ApplyContext) IsPrivileged(name Name) bool {
	meta, ok := ac.tc.ctrl.accounts[name]
	return ok && meta.Privileged
}

// SetPrivileged flips target's AccountMetadata.Privileged flag, restricted
// to callers whose own receiver is already privileged (spec.md §4.F
// is_privileged/set_privileged).
func (ac *ApplyContext) SetPrivileged(target Name, privileged bool) error {
	if !ac.IsPrivileged(ac.receiver) {
		return newChainError(ErrActionValidation, "unprivileged account %s may not call set_privileged", ac.receiver)
	}
	meta, ok := ac.tc.ctrl.accounts[target]
	if !ok {
		return newChainError(ErrActionValidation, "account %s does not exist", target)
	}
	meta.Privileged = privileged
	ac.tc.ctrl.accounts[target] = meta
	return nil
}

// SetResourceLimits installs account's CPU/NET stake weights and RAM quota,
// restricted to privileged callers (spec.md §4.F privileged "set resource
// limits" category).
func (ac *ApplyContext) SetResourceLimits(account Name, ramBytes, cpuWeight, netWeight int64) error {
	if !ac.IsPrivileged(ac.receiver) {
		return newChainError(ErrActionValidation, "unprivileged account %s may not set resource limits", ac.receiver)
	}
	ac.tc.ctrl.resources.SetLimits(ResourceLimits{Owner: account, CPUWeight: cpuWeight, NetWeight: netWeight, RAMBytes: ramBytes})
	return nil
}

// SetCPULimitParameters replaces the block-wide elastic CPU parameters,
// restricted to privileged callers (spec.md §4.F privileged "set
// elastic-limit parameters" category).
func (ac *ApplyContext) SetCPULimitParameters(p ElasticLimitParameters) error {
	if !ac.IsPrivileged(ac.receiver) {
		return newChainError(ErrActionValidation, "unprivileged account %s may not set cpu limit parameters", ac.receiver)
	}
	ac.tc.ctrl.resources.SetCPULimitParameters(p)
	return nil
}

// SetNetLimitParameters replaces the block-wide elastic NET parameters,
// restricted to privileged callers (spec.md §4.F privileged "set
// elastic-limit parameters" category).
func (ac *ApplyContext) SetNetLimitParameters(p ElasticLimitParameters) error {
	if !ac.IsPrivileged(ac.receiver) {
		return newChainError(ErrActionValidation, "unprivileged account %s may not set net limit parameters", ac.receiver)
	}
	ac.tc.ctrl.resources.SetNetLimitParameters(p)
	return nil
}

// Abort unconditionally traps the current action (spec.md §4.F abort).
func (ac *ApplyContext) Abort() error {
	return newChainError(ErrWasmRuntime, "contract called abort")
}

// PublicationTime returns the time the enclosing transaction is considered
// published at (spec.md §4.F publication_time). This execution core has no
// block-production pipeline (spec.md §1 Non-goals: consensus), so it is held
// equal to current_time for the duration of one push_transaction.
func (ac *ApplyContext) PublicationTime() int64 {
	return ac.tc.startTime.UnixMicro()
}

// SendContextFreeInline schedules buf as a context-free action: recorded on
// the TransactionContext (it takes no part in the signing digest) but never
// dispatched to a contract or native handler, since context-free actions
// carry no authorization and may not touch chain state (spec.md §4.F
// send_context_free_inline).
func (ac *ApplyContext) SendContextFreeInline(buf []byte) error {
	if uint32(len(buf)) > ac.tc.config.MaxInlineActionSize {
		return newChainError(ErrActionValidation, "context-free inline action size %d exceeds max %d", len(buf), ac.tc.config.MaxInlineActionSize)
	}
	act, err := UnpackAction(NewReader(buf))
	if err != nil {
		return wrapChainError(ErrSerialization, err, "unpack context-free inline action")
	}
	if len(act.Authorization) != 0 {
		return newChainError(ErrActionValidation, "context-free actions may not declare authorization")
	}
	ac.tc.contextFreeActions = append(ac.tc.contextFreeActions, act)
	return nil
}

// SendDeferred schedules packed transaction buf to execute delaySec after
// this transaction, attributed to the current receiver (spec.md §4.F
// send_deferred). Driving a deferred transaction to execution requires a
// block-production clock, which is out of this module's scope (spec.md §1
// Non-goals: consensus); Controller.PendingDeferredTransactions exposes the
// queue for a caller that does drive one.
func (ac *ApplyContext) SendDeferred(senderID uint64, buf []byte, delaySec uint32) error {
	if _, err := UnpackTransaction(NewReader(buf)); err != nil {
		return wrapChainError(ErrSerialization, err, "unpack deferred transaction")
	}
	ac.tc.deferred = append(ac.tc.deferred, DeferredTransaction{
		SenderID: senderID,
		Sender:   ac.receiver,
		DelaySec: delaySec,
		Packed:   append([]byte(nil), buf...),
	})
	return nil
}

// CurrentReceiver returns the account currently executing (spec.md §4.F
// current_receiver).
func (ac *ApplyContext) CurrentReceiver() Name { return ac.receiver }

// ActionData returns the raw action payload bytes (spec.md §4.F
// action_data_size/read_action_data).
func (ac *ApplyContext) ActionData() []byte { return ac.action.Data }

// SetActionReturnValue stores the action's return payload, bounded by
// ChainConfig.MaxActionReturnValueSize (spec.md §4.F).
func (ac *ApplyContext) SetActionReturnValue(data []byte) error {
	if uint32(len(data)) > ac.tc.config.MaxActionReturnValueSize {
		return newChainError(ErrActionValidation, "action return value %d exceeds max %d", len(data), ac.tc.config.MaxActionReturnValueSize)
	}
	ac.returnValue = append([]byte(nil), data...)
	return nil
}

// SendInline parses an Action from buf, bounds-checks it against
// ChainConfig.MaxInlineActionSize, and schedules it to run after all of the
// current action's notifications complete (spec.md §4.F send_inline).
func (ac *ApplyContext) SendInline(buf []byte) error {
	if uint32(len(buf)) > ac.tc.config.MaxInlineActionSize {
		return newChainError(ErrActionValidation, "inline action size %d exceeds max %d", len(buf), ac.tc.config.MaxInlineActionSize)
	}
	act, err := UnpackAction(NewReader(buf))
	if err != nil {
		return wrapChainError(ErrSerialization, err, "unpack inline action")
	}
	ordinal, err := ac.tc.scheduleAction(act, ac.actionOrd)
	if err != nil {
		return err
	}
	ac.inlineActions = append(ac.inlineActions, ordinal)
	return nil
}

// BillRAM accumulates a RAM delta against payer for the duration of this
// action; the transaction context charges it at action end (spec.md §4.D).
func (ac *ApplyContext) BillRAM(payer Name, delta int64) {
	ac.ramDeltas[payer] += delta
}

// Store delegates to the state store's GetOrCreateTable + Insert under the
// current (code=receiver, scope, table), billing RAM to payer (spec.md
// §4.F db_store_i64 family).
func (ac *ApplyContext) Store(scope, table Name, primaryKey uint64, payer Name, value []byte) error {
	t, err := ac.tc.ctrl.store.GetOrCreateTable(ac.receiver, scope, table, payer)
	if err != nil {
		return err
	}
	if err := ac.tc.ctrl.store.Insert(t.ID, primaryKey, payer, value); err != nil {
		return err
	}
	ac.BillRAM(payer, billableSize(value))
	return nil
}

// billableSize is the RAM charge attributed to a stored row: its value
// bytes plus a fixed per-row overhead, distinct from its wire-serialized
// size (spec.md GLOSSARY "Billable size").
func billableSize(value []byte) int64 {
	const rowOverhead = 112
	return int64(len(value)) + rowOverhead
}

func (ac *ApplyContext) String() string {
	return fmt.Sprintf("ApplyContext{id=%s receiver=%s action=%s::%s depth=%d}", ac.debugID, ac.receiver, ac.action.Account, ac.action.Name, ac.depth)
}
