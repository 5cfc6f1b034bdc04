package core

import "time"

// types.go centralises the chain data model (spec.md §3), the way the
// teacher's common_structs.go "declares only data structures... to avoid
// cyclic imports" for the whole core package. Unlike common_structs.go this
// file is scoped to the execution core's own model rather than the
// teacher's sprawling token/DeFi/node catalogue.

// KeyWeight pairs a public key with its weight inside an Authority.
type KeyWeight struct {
	Key    PublicKey
	Weight uint32
}

// PublicKey is {key_type: u8} || {33-byte compressed} per spec.md §6.
type PublicKey struct {
	Type uint8
	Data [33]byte
}

// Signature is {sig_type: u8} || {65-byte compact recoverable} per spec.md §6.
type Signature struct {
	Type uint8
	Data [65]byte
}

// PermissionLevel identifies a (actor, permission) pair declared by an
// Action's authorization list.
type PermissionLevel struct {
	Actor      Name
	Permission Name
}

// PermissionLevelWeight is a sub-permission reference inside an Authority.
type PermissionLevelWeight struct {
	Level  PermissionLevel
	Weight uint32
}

// WaitWeight contributes its weight once the transaction's effective delay
// reaches WaitSec.
type WaitWeight struct {
	WaitSec uint32
	Weight  uint32
}

// Authority is a weighted-threshold signature policy (spec.md §3).
type Authority struct {
	Threshold uint32
	Keys      []KeyWeight
	Accounts  []PermissionLevelWeight
	Waits     []WaitWeight
}

// Validate enforces the Authority invariants from spec.md §3: threshold
// must be positive, the key+account count must fit the 16-bit slot budget,
// and the sum of all weights (each cast to u32, overflow included) must
// cover the threshold.
func (a Authority) Validate() error {
	if a.Threshold == 0 {
		return newChainError(ErrActionValidation, "authority threshold must be > 0")
	}
	if len(a.Keys)+len(a.Accounts) > (1 << 16) {
		return newChainError(ErrActionValidation, "authority has too many keys+accounts")
	}
	var sum uint64
	for _, k := range a.Keys {
		sum += uint64(k.Weight)
	}
	for _, p := range a.Accounts {
		sum += uint64(p.Weight)
	}
	for _, w := range a.Waits {
		sum += uint64(w.Weight)
	}
	if sum > 0xFFFFFFFF {
		sum = 0xFFFFFFFF
	}
	if uint32(sum) < a.Threshold {
		return newChainError(ErrActionValidation, "authority weights (%d) do not cover threshold (%d)", sum, a.Threshold)
	}
	return nil
}

// Permission is a named authority stored under an account, forming a forest
// per account (spec.md §3, §4.C).
type Permission struct {
	ID        uint64
	ParentID  uint64 // 0 means root
	Owner     Name
	Name      Name
	Authority Authority
}

// PermissionLink maps (account, code, message_type) to the permission name
// required to authorize that action (spec.md §3, §4.C).
type PermissionLink struct {
	Account            Name
	Code               Name
	MessageType         Name // empty Name (0) means "default for all actions on Code"
	RequiredPermission Name
}

// Account is the on-chain account record (spec.md §3).
type Account struct {
	Name         Name
	CreationDate time.Time
	ABI          []byte
}

// AccountMetadata tracks the monotonic per-account sequence counters and
// privilege flag (spec.md §3).
type AccountMetadata struct {
	Name           Name
	RecvSequence   uint64
	AuthSequence   uint64
	CodeSequence   uint64
	ABISequence    uint64
	CodeHash       Id
	LastCodeUpdate time.Time
	Privileged     bool
	VMType         uint8
	VMVersion      uint8
}

// CodeObject is a reference-counted WASM code blob, shared across accounts
// that install identical bytecode (spec.md §3).
type CodeObject struct {
	CodeHash       Id
	Code           []byte
	RefCount       uint32
	FirstBlockUsed uint64
	VMType         uint8
	VMVersion      uint8
}

// Table is contract-visible storage, identified by (code, scope, table)
// (spec.md §3).
type Table struct {
	ID    uint64
	Code  Name
	Scope Name
	Table Name
	Payer Name
	Count uint32
}

// KeyValue is a single contract-visible row owned by a Table (spec.md §3).
type KeyValue struct {
	TableID    uint64
	PrimaryKey uint64
	Payer      Name
	Value      []byte
}

// ResourceLimits are the per-account CPU/NET stake weights and RAM quota
// (spec.md §3, §4.D).
type ResourceLimits struct {
	Owner     Name
	CPUWeight int64
	NetWeight int64
	RAMBytes  int64
}

// ResourceUsage is the accumulated CPU/NET usage EMA window for an account
// (spec.md §3, §4.D).
type ResourceUsage struct {
	Owner        Name
	NetUsed      uint64
	NetUsedEWMA  float64
	CPUUsed      uint64
	CPUUsedEWMA  float64
	RAMUsage     int64
	LastUpdated  time.Time
}

// Action is a single contract invocation with its authorization list
// (spec.md §3).
type Action struct {
	Account       Name
	Name          Name
	Data          []byte
	Authorization []PermissionLevel
}

// Transaction is the signed, packed unit of work submitted to the
// controller (spec.md §3).
type Transaction struct {
	Expiration            time.Time
	MaxNetUsageWords      uint32
	MaxCPUUsageMS         uint8
	BlockchainID          Id
	Actions               []Action
	ContextFreeActions    []Action
	ContextFreeData       [][]byte
	TransactionExtensions []byte
	Signatures            []Signature
}

// DeferredTransaction is a transaction scheduled by send_deferred to run
// after a delay (spec.md §4.F). Actually executing one requires a block
// production clock to drive it, which is out of this module's scope
// (spec.md §1 Non-goals: consensus); Controller.PendingDeferredTransactions
// exposes the queue for a caller that does drive one.
type DeferredTransaction struct {
	SenderID uint64
	Sender   Name
	DelaySec uint32
	Packed   []byte
}

// ActionReceipt records the per-successful-action sequence bookkeeping
// (spec.md §4.G).
type ActionReceipt struct {
	Receiver        Name
	ActDigest       Id
	GlobalSequence  uint64
	RecvSequence    uint64
	AuthSequenceMap map[Name]uint64
	CodeSequence    uint64
	ABISequence     uint64
}

// ActionTrace records the execution outcome of a single action (spec.md §4.G).
type ActionTrace struct {
	ActionOrdinal        int
	CreatorActionOrdinal int
	Receiver             Name
	Action               Action
	Receipt              *ActionReceipt
	Elapsed              time.Duration
	Except               error
}

// TransactionTrace is the result returned by Controller.PushTransaction
// (spec.md §4.H, §7).
type TransactionTrace struct {
	ID           Id
	ActionTraces []ActionTrace
	Elapsed      time.Duration
	NetUsage     uint64
	CPUUsageUS   uint64
	Except       error
}
