package core

// systemactions.go implements the native system-action handlers of spec.md
// §4.H: newaccount, setcode, setabi, updateauth, deleteauth, linkauth,
// unlinkauth. These dispatch natively rather than through the WASM engine
// because they mutate structures (the permission forest, the code/account
// tables) the sandboxed contract ABI has no primitive for — exactly the
// "System actions... on the privileged system account are dispatched to
// native handlers instead of WASM" rule of spec.md §4.E.

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// SystemAccountName is the privileged account system actions are declared
// against ("pulse" in the conventional EOSIO-derived naming; any short,
// valid Name works since it is never a user-created account).
var SystemAccountName = MustParseName("pulse")

var (
	actionNewAccount = MustParseName("newaccount")
	actionSetCode    = MustParseName("setcode")
	actionSetABI     = MustParseName("setabi")
	actionUpdateAuth = MustParseName("updateauth")
	actionDeleteAuth = MustParseName("deleteauth")
	actionLinkAuth   = MustParseName("linkauth")
	actionUnlinkAuth = MustParseName("unlinkauth")
)

func isSystemAction(name Name) bool {
	switch name {
	case actionNewAccount, actionSetCode, actionSetABI, actionUpdateAuth, actionDeleteAuth, actionLinkAuth, actionUnlinkAuth:
		return true
	default:
		return false
	}
}

// dispatchSystemAction routes the action currently bound to ac to its
// native handler.
func dispatchSystemAction(ctrl *Controller, ac *ApplyContext) error {
	r := NewReader(ac.action.Data)
	switch ac.action.Name {
	case actionNewAccount:
		return handleNewAccount(ctrl, ac, r)
	case actionSetCode:
		return handleSetCode(ctrl, ac, r)
	case actionSetABI:
		return handleSetABI(ctrl, ac, r)
	case actionUpdateAuth:
		return handleUpdateAuth(ctrl, ac, r)
	case actionDeleteAuth:
		return handleDeleteAuth(ctrl, ac, r)
	case actionLinkAuth:
		return handleLinkAuth(ctrl, ac, r)
	case actionUnlinkAuth:
		return handleUnlinkAuth(ctrl, ac, r)
	default:
		return newChainError(ErrActionValidation, "unknown system action %s", ac.action.Name)
	}
}

// handleNewAccount creates Account, AccountMetadata, a zero-weight
// ResourceLimits entry, and the initial owner/active permission pair (owner
// has no parent, active is parented to owner), billing RAM to creator
// (spec.md §4.H). No ResourceUsage record is stored; the accountant creates
// an account's CPU/NET usage windows on its first bill.
func handleNewAccount(ctrl *Controller, ac *ApplyContext, r *Reader) error {
	creator, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "newaccount: creator")
	}
	name, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "newaccount: name")
	}
	owner, err := UnpackAuthority(r)
	if err != nil {
		return wrapChainError(ErrSerialization, err, "newaccount: owner authority")
	}
	active, err := UnpackAuthority(r)
	if err != nil {
		return wrapChainError(ErrSerialization, err, "newaccount: active authority")
	}
	if err := ac.RequireAuth(creator); err != nil {
		return err
	}
	if _, exists := ctrl.accounts[name]; exists {
		return newChainError(ErrActionValidation, "account %s already exists", name)
	}

	ctrl.accounts[name] = AccountMetadata{Name: name, VMType: 0, VMVersion: 0}
	ctrl.accountRecords[name] = Account{Name: name, CreationDate: time.Now().UTC()}
	ctrl.resources.SetLimits(ResourceLimits{Owner: name})

	ownerPerm, err := ctrl.authority.CreatePermission(name, OwnerPermission, 0, owner)
	if err != nil {
		return err
	}
	if _, err := ctrl.authority.CreatePermission(name, DefaultPermission, ownerPerm.Name, active); err != nil {
		return err
	}
	ac.BillRAM(creator, 2048)
	return nil
}

// handleSetCode creates or refcounts a CodeObject and updates the target
// account's AccountMetadata, bumping code_sequence (spec.md §4.H).
func handleSetCode(ctrl *Controller, ac *ApplyContext, r *Reader) error {
	account, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "setcode: account")
	}
	vmType, err := r.ReadUint8()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "setcode: vm_type")
	}
	vmVersion, err := r.ReadUint8()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "setcode: vm_version")
	}
	code, err := r.ReadBytes()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "setcode: code")
	}
	if err := ac.RequireAuth(account); err != nil {
		return err
	}
	meta, ok := ctrl.accounts[account]
	if !ok {
		return newChainError(ErrActionValidation, "account %s does not exist", account)
	}

	hash := Id(Sha256Sum(code))
	if old, ok := ctrl.code[meta.CodeHash]; ok && !meta.CodeHash.IsZero() {
		old.RefCount--
		if old.RefCount == 0 {
			delete(ctrl.code, meta.CodeHash)
		} else {
			ctrl.code[meta.CodeHash] = old
		}
	}
	obj, ok := ctrl.code[hash]
	if ok {
		obj.RefCount++
	} else {
		obj = CodeObject{CodeHash: hash, Code: code, RefCount: 1, VMType: vmType, VMVersion: vmVersion}
	}
	ctrl.code[hash] = obj

	meta.CodeHash = hash
	meta.CodeSequence++
	meta.LastCodeUpdate = time.Now().UTC()
	meta.VMType, meta.VMVersion = vmType, vmVersion
	ctrl.accounts[account] = meta

	deploymentID := DeriveDeploymentID(account, meta.CodeSequence)
	ctrl.logger.WithFields(log.Fields{
		"account":       account.String(),
		"code_hash":     hash.String(),
		"deployment_id": deploymentID.String(),
		"code_sequence": meta.CodeSequence,
	}).Info("contract code deployed")

	ac.BillRAM(account, int64(len(code)))
	return nil
}

// handleSetABI stores the account's ABI bytes and bumps abi_sequence.
func handleSetABI(ctrl *Controller, ac *ApplyContext, r *Reader) error {
	account, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "setabi: account")
	}
	abi, err := r.ReadBytes()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "setabi: abi")
	}
	if err := ac.RequireAuth(account); err != nil {
		return err
	}
	meta, ok := ctrl.accounts[account]
	if !ok {
		return newChainError(ErrActionValidation, "account %s does not exist", account)
	}
	rec := ctrl.accountRecords[account]
	rec.ABI = abi
	ctrl.accountRecords[account] = rec
	meta.ABISequence++
	ctrl.accounts[account] = meta
	ac.BillRAM(account, int64(len(abi)))
	return nil
}

// handleUpdateAuth upserts a Permission, validating the new Authority and
// rejecting a parent chain that would not terminate (spec.md §4.H,
// §7 ActionValidationError).
func handleUpdateAuth(ctrl *Controller, ac *ApplyContext, r *Reader) error {
	account, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "updateauth: account")
	}
	permission, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "updateauth: permission")
	}
	parent, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "updateauth: parent")
	}
	auth, err := UnpackAuthority(r)
	if err != nil {
		return wrapChainError(ErrSerialization, err, "updateauth: authority")
	}
	if err := ac.RequireAuth(account); err != nil {
		return err
	}
	if permission == OwnerPermission && parent != 0 {
		return newChainError(ErrActionValidation, "owner permission must have no parent")
	}
	if _, exists := ctrl.authority.GetPermission(account, permission); exists {
		if err := ctrl.authority.UpdatePermission(account, permission, auth); err != nil {
			return err
		}
		return nil
	}
	if _, err := ctrl.authority.CreatePermission(account, permission, parent, auth); err != nil {
		return err
	}
	return nil
}

// handleDeleteAuth removes a Permission, failing if any PermissionLink or
// child permission still references it (spec.md §4.H).
func handleDeleteAuth(ctrl *Controller, ac *ApplyContext, r *Reader) error {
	account, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "deleteauth: account")
	}
	permission, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "deleteauth: permission")
	}
	if err := ac.RequireAuth(account); err != nil {
		return err
	}
	return ctrl.authority.DeletePermission(account, permission)
}

// handleLinkAuth installs a PermissionLink (spec.md §4.H).
func handleLinkAuth(ctrl *Controller, ac *ApplyContext, r *Reader) error {
	account, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "linkauth: account")
	}
	code, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "linkauth: code")
	}
	messageType, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "linkauth: message_type")
	}
	requiredPermission, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "linkauth: required_permission")
	}
	if err := ac.RequireAuth(account); err != nil {
		return err
	}
	return ctrl.authority.LinkAuth(PermissionLink{Account: account, Code: code, MessageType: messageType, RequiredPermission: requiredPermission})
}

// handleUnlinkAuth removes a PermissionLink (spec.md §4.H).
func handleUnlinkAuth(ctrl *Controller, ac *ApplyContext, r *Reader) error {
	account, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "unlinkauth: account")
	}
	code, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "unlinkauth: code")
	}
	messageType, err := r.ReadName()
	if err != nil {
		return wrapChainError(ErrSerialization, err, "unlinkauth: message_type")
	}
	if err := ac.RequireAuth(account); err != nil {
		return err
	}
	return ctrl.authority.UnlinkAuth(account, code, messageType)
}
