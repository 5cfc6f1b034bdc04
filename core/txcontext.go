package core

// txcontext.go implements the per-transaction execution frame of spec.md
// §4.G, grounded on
// original_source/crates/pulsevm/src/chain/transaction_context.rs's
// TransactionContext (owns the undo session and the action trace tree) and
// on apply_context.rs's `self.transaction_context.execute_action(*ordinal,
// depth+1)` call that ApplyContext.exec uses to recurse into inline
// actions. The global action sequence is modeled as spec.md §9 prescribes:
// a single counter read-modify-written once per successful action, owned
// by the Controller's dynamic global properties rather than any
// process-wide mutable state.

import (
	"time"
)

// TransactionContext owns a transaction's undo session, its flat action
// trace vector, and its billed resource counters (spec.md §4.G).
type TransactionContext struct {
	ctrl    *Controller
	session *UndoSession
	config  ChainConfig

	// accountsSnap/authoritySnap/resourcesSnap are taken at session-open time
	// so abort() can roll back the account/code tables, the permission
	// forest, and resource billing state alongside the MultiIndexStore's own
	// undo session — none of which UndoSession.Undo itself reaches.
	accountsSnap  accountsSnapshot
	authoritySnap authoritySnapshot
	resourcesSnap resourceSnapshot

	traces   []ActionTrace
	pending  []Action // not written by any method; scheduleAction appends inline actions straight to traces
	receipts []ActionReceipt

	// contextFreeActions and deferred accumulate send_context_free_inline and
	// send_deferred calls made by any action in this transaction. Neither is
	// ever dispatched within PushTransaction itself: context-free actions
	// carry no authorization and must not touch chain state, and deferred
	// transactions require a block-production clock this module does not
	// have (spec.md §1 Non-goals: consensus). deferred is merged into
	// Controller.deferred only once the enclosing transaction commits.
	contextFreeActions []Action
	deferred           []DeferredTransaction

	billedCPUus   uint64
	billedNetByte uint64

	startTime time.Time
	deadline  time.Time
}

// newTransactionContext opens an undo session and constructs a context
// ready to execute tx's actions (spec.md §4.G, §4.H step 3).
func newTransactionContext(ctrl *Controller, tx Transaction, packedSize int) *TransactionContext {
	now := time.Now().UTC()
	cpuBudget := time.Duration(tx.MaxCPUUsageMS) * time.Millisecond
	if tx.MaxCPUUsageMS == 0 || time.Duration(ctrl.config.MaxCPUUsageMS)*time.Millisecond < cpuBudget {
		cpuBudget = time.Duration(ctrl.config.MaxCPUUsageMS) * time.Millisecond
	}
	blockDeadline := time.Duration(ctrl.config.BlockDeadlineMS) * time.Millisecond
	if blockDeadline < cpuBudget {
		cpuBudget = blockDeadline
	}
	tc := &TransactionContext{
		ctrl:          ctrl,
		session:       ctrl.store.BeginSession(),
		config:        ctrl.config,
		accountsSnap:  ctrl.snapshotAccounts(),
		authoritySnap: ctrl.authority.snapshot(),
		resourcesSnap: ctrl.resources.snapshot(),
		billedNetByte: uint64(packedSize),
		startTime:     now,
		deadline:      now.Add(cpuBudget),
	}
	for i, act := range tx.Actions {
		tc.traces = append(tc.traces, ActionTrace{ActionOrdinal: i, CreatorActionOrdinal: -1, Receiver: act.Account, Action: act})
	}
	return tc
}

// abort discards the transaction entirely: the MultiIndexStore's own undo
// session is dropped and the account/code tables, permission forest, and
// resource billing state are restored to how they stood before the first
// action ran (spec.md §7 "no partial-commit paths"). Every failure branch of
// Controller.PushTransaction must call abort instead of session.Undo alone,
// since those three map families live outside the store and are otherwise
// left mutated by whichever actions ran before the one that failed.
func (tc *TransactionContext) abort() {
	tc.session.Undo()
	tc.ctrl.restoreAccounts(tc.accountsSnap)
	tc.ctrl.authority.restore(tc.authoritySnap)
	tc.ctrl.resources.restore(tc.resourcesSnap)
}

// actionTrace returns a pointer to the live trace for ordinal, or nil.
func (tc *TransactionContext) actionTrace(ordinal int) *ActionTrace {
	if ordinal < 0 || ordinal >= len(tc.traces) {
		return nil
	}
	return &tc.traces[ordinal]
}

// scheduleAction appends a new inline action to the trace vector, recording
// its creator ordinal, and returns its assigned ordinal (spec.md §4.F
// send_inline, §4.G "traces form a tree via creator_action_ordinal").
func (tc *TransactionContext) scheduleAction(act Action, creatorOrdinal int) (int, error) {
	ordinal := len(tc.traces)
	tc.traces = append(tc.traces, ActionTrace{
		ActionOrdinal:        ordinal,
		CreatorActionOrdinal: creatorOrdinal,
		Receiver:             act.Account,
		Action:               act,
	})
	return ordinal, nil
}

// checkDeadline fails the transaction once its wall-clock CPU budget is
// exhausted. It is called only at the start of executeAction, that is before
// each top-level and inline action; host function calls do not check the
// deadline.
func (tc *TransactionContext) checkDeadline() error {
	if time.Now().After(tc.deadline) {
		return newChainError(ErrTransaction, "transaction deadline exceeded")
	}
	return nil
}

// executeAction runs the action at ordinal through a fresh ApplyContext at
// the given recursion depth, recording elapsed time and, on failure,
// setting the trace's Except field before re-raising (spec.md §4.G).
func (tc *TransactionContext) executeAction(ordinal int, depth uint32) error {
	if err := tc.checkDeadline(); err != nil {
		return err
	}
	trace := tc.actionTrace(ordinal)
	if trace == nil {
		return newChainError(ErrInternal, "no such action ordinal %d", ordinal)
	}

	start := time.Now()
	ac, err := newApplyContext(tc, ordinal, depth)
	if err != nil {
		trace.Except = err
		return err
	}
	if err := ac.exec(); err != nil {
		trace.Elapsed = time.Since(start)
		trace.Except = err
		return err
	}
	trace.Elapsed = time.Since(start)

	for payer, delta := range ac.ramDeltas {
		if delta == 0 {
			continue
		}
		if err := tc.ctrl.resources.BillRAM(payer, delta); err != nil {
			trace.Except = err
			return err
		}
	}
	return nil
}

// recordReceipt assigns an ActionReceipt to the action currently bound to
// ac, bumping the global action sequence, the receiver's recv_sequence, and
// the auth_sequence of every authorizing actor (spec.md §4.G).
func (tc *TransactionContext) recordReceipt(ac *ApplyContext) {
	meta := tc.ctrl.accounts[ac.receiver]
	tc.ctrl.dgpo.GlobalActionSequence++
	meta.RecvSequence++
	tc.ctrl.accounts[ac.receiver] = meta

	authSeq := make(map[Name]uint64, len(ac.action.Authorization))
	for _, lvl := range ac.action.Authorization {
		am := tc.ctrl.accounts[lvl.Actor]
		am.AuthSequence++
		tc.ctrl.accounts[lvl.Actor] = am
		authSeq[lvl.Actor] = am.AuthSequence
	}

	w := NewWriter()
	PackAction(w, ac.action)
	digest := Sha256Sum(w.Bytes())

	receipt := ActionReceipt{
		Receiver:        ac.receiver,
		ActDigest:       digest,
		GlobalSequence:  tc.ctrl.dgpo.GlobalActionSequence,
		RecvSequence:    meta.RecvSequence,
		AuthSequenceMap: authSeq,
		CodeSequence:    meta.CodeSequence,
		ABISequence:     meta.ABISequence,
	}
	tc.receipts = append(tc.receipts, receipt)

	if trace := tc.actionTrace(ac.actionOrd); trace != nil {
		r := receipt
		trace.Receipt = &r
	}
}

// finalize bills the transaction's own CPU/NET usage to the first
// authorizing actor of the first action (the conventional fee payer)
// through BillCPU/BillNet (spec.md §4.D, §4.H step 6). Those fail only for a
// payer with no resource limits or a zero weight; the billed amounts are not
// checked against the payer's remaining capacity.
func (tc *TransactionContext) finalize(tx Transaction) (uint64, uint64, error) {
	tc.billedCPUus = uint64(time.Since(tc.startTime).Microseconds())

	if len(tx.Actions) == 0 || len(tx.Actions[0].Authorization) == 0 {
		return tc.billedCPUus, tc.billedNetByte, nil
	}
	payer := tx.Actions[0].Authorization[0].Actor
	if err := tc.ctrl.resources.BillCPU(payer, tc.billedCPUus); err != nil {
		return 0, 0, err
	}
	if err := tc.ctrl.resources.BillNet(payer, tc.billedNetByte); err != nil {
		return 0, 0, err
	}
	return tc.billedCPUus, tc.billedNetByte, nil
}
