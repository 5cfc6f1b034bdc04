package core

// controller.go implements the top-level coordinator of spec.md §4.H:
// push_transaction, genesis initialization, and the read-only get_account /
// get_table_rows queries the HTTP adapter (out of core scope, §1) maps to
// JSON-RPC. The push_transaction pipeline follows spec.md §4.H's seven
// numbered steps verbatim; the "undo session opened, authorization checked,
// actions executed, session committed or dropped" shape generalizes the
// teacher's core/ledger.go transaction-application pattern (deserialize,
// validate, mutate state under a lock, commit) to the richer multi-step
// pipeline a WASM-executing chain requires.

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// DGPO is the dynamic global properties object: the single row holding the
// monotonic global action sequence (spec.md §4.G, §9 "Global mutable
// state... stored as a singleton row... read-modify-written exactly once
// per successful action").
type DGPO struct {
	GlobalActionSequence uint64
	HeadBlockNum         uint64
	HeadBlockTime        time.Time
}

// Controller is the top-level execution-core coordinator: one instance per
// chain, holding the state store and every in-memory index the other
// components consult (spec.md §2 component H).
type Controller struct {
	chainID Id
	config  ChainConfig

	store     *MultiIndexStore
	authority *AuthorityManager
	resources *ResourceAccountant
	vm        *ContractVM
	mempool   *Mempool

	accounts       map[Name]AccountMetadata
	accountRecords map[Name]Account
	code           map[Id]CodeObject

	deferred []DeferredTransaction

	dgpo *DGPO

	logger *log.Logger
}

// NewController constructs an uninitialized controller; call Initialize
// with a parsed Genesis before pushing any transaction.
func NewController(logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Controller{
		store:          NewMultiIndexStore(),
		authority:      NewAuthorityManager(),
		resources:      NewResourceAccountant(logger),
		vm:             NewContractVM(),
		mempool:        NewMempool(),
		accounts:       make(map[Name]AccountMetadata),
		accountRecords: make(map[Name]Account),
		code:           make(map[Id]CodeObject),
		dgpo:           &DGPO{},
		logger:         logger,
	}
}

// Initialize seeds the chain from a genesis document: sets the chain id,
// chain configuration, and installs the privileged system account with a
// single-key owner/active authority under the genesis initial_key (spec.md
// §6, §4.H).
func (c *Controller) Initialize(g Genesis) error {
	if err := g.Validate(); err != nil {
		return err
	}
	c.chainID = g.ChainID()
	c.config = g.InitialConfiguration
	c.authority.MaxAuthorityDepth = c.config.MaxAuthorityDepth

	ts, err := g.ParsedInitialTimestamp()
	if err != nil {
		return err
	}
	c.dgpo.HeadBlockTime = ts

	key, err := g.ParsedInitialKey()
	if err != nil {
		return err
	}
	auth := Authority{Threshold: 1, Keys: []KeyWeight{{Key: key, Weight: 1}}}

	c.accounts[SystemAccountName] = AccountMetadata{Name: SystemAccountName, Privileged: true}
	c.accountRecords[SystemAccountName] = Account{Name: SystemAccountName, CreationDate: ts}
	c.resources.SetLimits(ResourceLimits{Owner: SystemAccountName, CPUWeight: 1, NetWeight: 1, RAMBytes: 1 << 30})

	ownerPerm, err := c.authority.CreatePermission(SystemAccountName, OwnerPermission, 0, auth)
	if err != nil {
		return err
	}
	if _, err := c.authority.CreatePermission(SystemAccountName, DefaultPermission, ownerPerm.Name, auth); err != nil {
		return err
	}

	c.logger.WithFields(log.Fields{"chain_id": c.chainID.String()}).Info("chain initialized")
	return nil
}

// PushTransaction runs the full pipeline of spec.md §4.H: deserialize,
// verify expiration/chain id, recover signer keys, open an undo session,
// authorize, execute every action in order, bill resources, and commit or
// drop the session.
func (c *Controller) PushTransaction(packedTx []byte) *TransactionTrace {
	trace := &TransactionTrace{}

	tx, err := UnpackTransaction(NewReader(packedTx))
	if err != nil {
		trace.Except = wrapChainError(ErrSerialization, err, "unpack transaction")
		return trace
	}

	txIDBytes := Sha256Sum(packedTx)
	trace.ID = Id(txIDBytes)

	if !tx.Expiration.After(time.Now().UTC()) {
		trace.Except = newChainError(ErrTransaction, "transaction expired at %s", tx.Expiration)
		return trace
	}
	if tx.BlockchainID != c.chainID {
		trace.Except = newChainError(ErrTransaction, "wrong chain id")
		return trace
	}

	signingDigest := SigningDigest(c.chainID, PackTransactionForSigning(tx), nil)
	signerKeys := make([]PublicKey, 0, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		key, err := RecoverKey(signingDigest, sig)
		if err != nil {
			trace.Except = err
			return trace
		}
		signerKeys = append(signerKeys, key)
	}

	if err := c.authorizeTransaction(tx, signerKeys); err != nil {
		trace.Except = err
		return trace
	}

	tc := newTransactionContext(c, tx, len(packedTx))
	for i := range tx.Actions {
		if err := tc.executeAction(i, 0); err != nil {
			tc.abort()
			trace.ActionTraces = tc.traces
			trace.Except = err
			return trace
		}
	}

	cpuUS, netBytes, err := tc.finalize(tx)
	if err != nil {
		tc.abort()
		trace.ActionTraces = tc.traces
		trace.Except = err
		return trace
	}

	tc.session.Commit()
	c.deferred = append(c.deferred, tc.deferred...)
	trace.ActionTraces = tc.traces
	trace.CPUUsageUS = cpuUS
	trace.NetUsage = netBytes
	c.logger.WithFields(log.Fields{"tx_id": trace.ID.String(), "actions": len(tx.Actions)}).Info("transaction applied")
	return trace
}

// authorizeTransaction implements spec.md §4.C's top-level check: for every
// action, resolve the minimum required permission via the authority
// graph's linkauth table, verify some declared level on that action covers
// it, and verify every declared level transaction-wide is satisfied by the
// recovered signer keys.
func (c *Controller) authorizeTransaction(tx Transaction, signerKeys []PublicKey) error {
	declared := make(map[PermissionLevel]bool)
	for _, act := range tx.Actions {
		minPerm := c.authority.RequiredPermission(act.Account, act.Account, act.Name)
		satisfiedCover := false
		for _, lvl := range act.Authorization {
			declared[lvl] = true
			if lvl.Actor != act.Account {
				continue
			}
			if c.authority.IsPermissionAncestor(act.Account, lvl.Permission, minPerm) {
				satisfiedCover = true
			}
		}
		if !satisfiedCover {
			return newChainError(ErrMissingAuth, "transaction is missing authority for action %s::%s", act.Account, act.Name)
		}
	}

	for lvl := range declared {
		if err := c.authority.CheckAuthorization(lvl.Actor, lvl.Permission, signerKeys, permissionLevelSlice(declared), 0); err != nil {
			return wrapChainError(ErrAuthorization, err, "transaction declares authority %s@%s but does not have sufficient signatures", lvl.Actor, lvl.Permission)
		}
	}
	return nil
}

func permissionLevelSlice(m map[PermissionLevel]bool) []PermissionLevel {
	out := make([]PermissionLevel, 0, len(m))
	for lvl := range m {
		out = append(out, lvl)
	}
	return out
}

// accountsSnapshot is a deep copy of the account/code tables the controller
// owns directly, plus the global action sequence they are bumped alongside,
// following the same copy-then-restore idiom core/store.go's snapshot/
// cloneSnapshot pair uses for table state — generalized here so newaccount/
// setcode/setabi mutations made by an action that is later followed by a
// failing action in the same transaction can be rolled back alongside the
// MultiIndexStore's own undo session.
type accountsSnapshot struct {
	accounts             map[Name]AccountMetadata
	accountRecords       map[Name]Account
	code                 map[Id]CodeObject
	globalActionSequence uint64
}

// snapshotAccounts captures the controller's account/code tables.
func (c *Controller) snapshotAccounts() accountsSnapshot {
	accounts := make(map[Name]AccountMetadata, len(c.accounts))
	for n, m := range c.accounts {
		accounts[n] = m
	}
	accountRecords := make(map[Name]Account, len(c.accountRecords))
	for n, a := range c.accountRecords {
		cp := a
		cp.ABI = append([]byte(nil), a.ABI...)
		accountRecords[n] = cp
	}
	code := make(map[Id]CodeObject, len(c.code))
	for id, co := range c.code {
		cp := co
		cp.Code = append([]byte(nil), co.Code...)
		code[id] = cp
	}
	return accountsSnapshot{
		accounts:             accounts,
		accountRecords:       accountRecords,
		code:                 code,
		globalActionSequence: c.dgpo.GlobalActionSequence,
	}
}

// restoreAccounts replaces the controller's account/code tables with a
// previously captured snapshot, discarding every newaccount/setcode/setabi/
// recordReceipt mutation made since it was taken.
func (c *Controller) restoreAccounts(s accountsSnapshot) {
	c.accounts = s.accounts
	c.accountRecords = s.accountRecords
	c.code = s.code
	c.dgpo.GlobalActionSequence = s.globalActionSequence
}

// GetAccount returns the Account and AccountMetadata records for name
// (spec.md §6 in-process API: get_account).
func (c *Controller) GetAccount(name Name) (Account, AccountMetadata, bool) {
	meta, ok := c.accounts[name]
	if !ok {
		return Account{}, AccountMetadata{}, false
	}
	return c.accountRecords[name], meta, true
}

// GetTableRows returns every row of (code, scope, table), in primary-key
// order (spec.md §6 in-process API: get_table_rows).
func (c *Controller) GetTableRows(code, scope, table Name) ([]KeyValue, bool) {
	t, ok := c.store.FindTable(code, scope, table)
	if !ok {
		return nil, false
	}
	return c.store.Rows(t.ID), true
}

// GetBlock is a stub over the consensus/block-production Non-goal (spec.md
// §1): the execution core tracks only the head block number/time via DGPO,
// never full block bodies.
func (c *Controller) GetBlock(num uint64) (uint64, time.Time, bool) {
	if num != c.dgpo.HeadBlockNum {
		return 0, time.Time{}, false
	}
	return c.dgpo.HeadBlockNum, c.dgpo.HeadBlockTime, true
}

// ChainID returns the chain id derived at Initialize.
func (c *Controller) ChainID() Id { return c.chainID }

// PendingDeferredTransactions returns every transaction queued by
// send_deferred across every successful PushTransaction so far (spec.md
// §4.F). The execution core has no block-production clock of its own
// (spec.md §1 Non-goals: consensus), so it never drains this queue. The
// returned slice is a copy; no Controller method removes entries from the
// queue.
func (c *Controller) PendingDeferredTransactions() []DeferredTransaction {
	out := make([]DeferredTransaction, len(c.deferred))
	copy(out, c.deferred)
	return out
}
