package core

// codec.go implements the deterministic binary codec of spec.md §4.B: every
// chain type packs to, and unpacks from, a canonical little-endian byte
// stream. Wire encoding is distinct from the Name/Id big-endian sort keys
// used inside the state store (name.go's Name.Bytes()): these Pack/Unpack
// functions are the transaction-wire and code-hash-content format, following
// the varuint-prefixed, LE-integer convention the teacher's ethereum/rlp
// dependency exists to provide for an entirely different wire shape — this
// codec is purpose-built for spec.md's own layout instead of reusing rlp.

import (
	"encoding/binary"
	"io"
	"math"
	"time"
)

// Writer accumulates a packed byte stream.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) WriteUint8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) WriteUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

// WriteVaruint32 writes v as a base-128 LEB varint, matching the
// length-prefix convention spec.md §4.B calls for on every variable-length
// field.
func (w *Writer) WriteVaruint32(v uint32) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.buf = append(w.buf, b)
		if v == 0 {
			break
		}
	}
}

func (w *Writer) WriteBytes(v []byte) {
	w.WriteVaruint32(uint32(len(v)))
	w.buf = append(w.buf, v...)
}

func (w *Writer) WriteString(v string) { w.WriteBytes([]byte(v)) }

func (w *Writer) WriteName(n Name) { w.WriteUint64(uint64(n)) }

func (w *Writer) WriteID(id Id) { w.buf = append(w.buf, id[:]...) }

func (w *Writer) WriteBool(b bool) {
	if b {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

func (w *Writer) WritePublicKey(k PublicKey) {
	w.WriteUint8(k.Type)
	w.buf = append(w.buf, k.Data[:]...)
}

func (w *Writer) WriteSignature(s Signature) {
	w.WriteUint8(s.Type)
	w.buf = append(w.buf, s.Data[:]...)
}

// Reader consumes a packed byte stream, returning *ChainError(ErrSerialization)
// on any short read or malformed varint.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return newChainError(ErrSerialization, "unexpected end of stream: need %d, have %d", n, r.Remaining())
	}
	return nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadVaruint32() (uint32, error) {
	var result uint32
	var shift uint
	for {
		if shift >= 35 {
			return 0, newChainError(ErrSerialization, "varuint32 overflow")
		}
		b, err := r.ReadUint8()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return result, nil
}

func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadVaruint32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) ReadName() (Name, error) {
	v, err := r.ReadUint64()
	return Name(v), err
}

func (r *Reader) ReadID() (Id, error) {
	if err := r.need(32); err != nil {
		return Id{}, err
	}
	var id Id
	copy(id[:], r.buf[r.pos:r.pos+32])
	r.pos += 32
	return id, nil
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	return v != 0, err
}

func (r *Reader) ReadPublicKey() (PublicKey, error) {
	t, err := r.ReadUint8()
	if err != nil {
		return PublicKey{}, err
	}
	if err := r.need(33); err != nil {
		return PublicKey{}, err
	}
	var k PublicKey
	k.Type = t
	copy(k.Data[:], r.buf[r.pos:r.pos+33])
	r.pos += 33
	return k, nil
}

func (r *Reader) ReadSignature() (Signature, error) {
	t, err := r.ReadUint8()
	if err != nil {
		return Signature{}, err
	}
	if err := r.need(65); err != nil {
		return Signature{}, err
	}
	var s Signature
	s.Type = t
	copy(s.Data[:], r.buf[r.pos:r.pos+65])
	r.pos += 65
	return s, nil
}

// Blank reference that keeps the io import in use.
var _ = io.EOF

// --- Pack/Unpack for chain types (spec.md §3/§4.B) ---

func PackKeyWeight(w *Writer, k KeyWeight) {
	w.WritePublicKey(k.Key)
	w.WriteUint32(k.Weight)
}

func UnpackKeyWeight(r *Reader) (KeyWeight, error) {
	var k KeyWeight
	var err error
	if k.Key, err = r.ReadPublicKey(); err != nil {
		return k, err
	}
	if k.Weight, err = r.ReadUint32(); err != nil {
		return k, err
	}
	return k, nil
}

func PackPermissionLevel(w *Writer, p PermissionLevel) {
	w.WriteName(p.Actor)
	w.WriteName(p.Permission)
}

func UnpackPermissionLevel(r *Reader) (PermissionLevel, error) {
	var p PermissionLevel
	var err error
	if p.Actor, err = r.ReadName(); err != nil {
		return p, err
	}
	if p.Permission, err = r.ReadName(); err != nil {
		return p, err
	}
	return p, nil
}

func PackPermissionLevelWeight(w *Writer, p PermissionLevelWeight) {
	PackPermissionLevel(w, p.Level)
	w.WriteUint32(p.Weight)
}

func UnpackPermissionLevelWeight(r *Reader) (PermissionLevelWeight, error) {
	var p PermissionLevelWeight
	var err error
	if p.Level, err = UnpackPermissionLevel(r); err != nil {
		return p, err
	}
	if p.Weight, err = r.ReadUint32(); err != nil {
		return p, err
	}
	return p, nil
}

func PackWaitWeight(w *Writer, ww WaitWeight) {
	w.WriteUint32(ww.WaitSec)
	w.WriteUint32(ww.Weight)
}

func UnpackWaitWeight(r *Reader) (WaitWeight, error) {
	var ww WaitWeight
	var err error
	if ww.WaitSec, err = r.ReadUint32(); err != nil {
		return ww, err
	}
	if ww.Weight, err = r.ReadUint32(); err != nil {
		return ww, err
	}
	return ww, nil
}

func PackAuthority(w *Writer, a Authority) {
	w.WriteUint32(a.Threshold)
	w.WriteVaruint32(uint32(len(a.Keys)))
	for _, k := range a.Keys {
		PackKeyWeight(w, k)
	}
	w.WriteVaruint32(uint32(len(a.Accounts)))
	for _, p := range a.Accounts {
		PackPermissionLevelWeight(w, p)
	}
	w.WriteVaruint32(uint32(len(a.Waits)))
	for _, ww := range a.Waits {
		PackWaitWeight(w, ww)
	}
}

func UnpackAuthority(r *Reader) (Authority, error) {
	var a Authority
	var err error
	if a.Threshold, err = r.ReadUint32(); err != nil {
		return a, err
	}
	nk, err := r.ReadVaruint32()
	if err != nil {
		return a, err
	}
	a.Keys = make([]KeyWeight, nk)
	for i := range a.Keys {
		if a.Keys[i], err = UnpackKeyWeight(r); err != nil {
			return a, err
		}
	}
	na, err := r.ReadVaruint32()
	if err != nil {
		return a, err
	}
	a.Accounts = make([]PermissionLevelWeight, na)
	for i := range a.Accounts {
		if a.Accounts[i], err = UnpackPermissionLevelWeight(r); err != nil {
			return a, err
		}
	}
	nw, err := r.ReadVaruint32()
	if err != nil {
		return a, err
	}
	a.Waits = make([]WaitWeight, nw)
	for i := range a.Waits {
		if a.Waits[i], err = UnpackWaitWeight(r); err != nil {
			return a, err
		}
	}
	return a, nil
}

func PackPermission(w *Writer, p Permission) {
	w.WriteUint64(p.ID)
	w.WriteUint64(p.ParentID)
	w.WriteName(p.Owner)
	w.WriteName(p.Name)
	PackAuthority(w, p.Authority)
}

func UnpackPermission(r *Reader) (Permission, error) {
	var p Permission
	var err error
	if p.ID, err = r.ReadUint64(); err != nil {
		return p, err
	}
	if p.ParentID, err = r.ReadUint64(); err != nil {
		return p, err
	}
	if p.Owner, err = r.ReadName(); err != nil {
		return p, err
	}
	if p.Name, err = r.ReadName(); err != nil {
		return p, err
	}
	if p.Authority, err = UnpackAuthority(r); err != nil {
		return p, err
	}
	return p, nil
}

func PackPermissionLink(w *Writer, l PermissionLink) {
	w.WriteName(l.Account)
	w.WriteName(l.Code)
	w.WriteName(l.MessageType)
	w.WriteName(l.RequiredPermission)
}

func UnpackPermissionLink(r *Reader) (PermissionLink, error) {
	var l PermissionLink
	var err error
	if l.Account, err = r.ReadName(); err != nil {
		return l, err
	}
	if l.Code, err = r.ReadName(); err != nil {
		return l, err
	}
	if l.MessageType, err = r.ReadName(); err != nil {
		return l, err
	}
	if l.RequiredPermission, err = r.ReadName(); err != nil {
		return l, err
	}
	return l, nil
}

func PackAccount(w *Writer, a Account) {
	w.WriteName(a.Name)
	w.WriteInt64(a.CreationDate.Unix())
	w.WriteBytes(a.ABI)
}

func UnpackAccount(r *Reader) (Account, error) {
	var a Account
	var err error
	if a.Name, err = r.ReadName(); err != nil {
		return a, err
	}
	ts, err := r.ReadInt64()
	if err != nil {
		return a, err
	}
	a.CreationDate = unixTime(ts)
	if a.ABI, err = r.ReadBytes(); err != nil {
		return a, err
	}
	return a, nil
}

func PackAccountMetadata(w *Writer, m AccountMetadata) {
	w.WriteName(m.Name)
	w.WriteUint64(m.RecvSequence)
	w.WriteUint64(m.AuthSequence)
	w.WriteUint64(m.CodeSequence)
	w.WriteUint64(m.ABISequence)
	w.WriteID(m.CodeHash)
	w.WriteInt64(m.LastCodeUpdate.Unix())
	w.WriteBool(m.Privileged)
	w.WriteUint8(m.VMType)
	w.WriteUint8(m.VMVersion)
}

func UnpackAccountMetadata(r *Reader) (AccountMetadata, error) {
	var m AccountMetadata
	var err error
	if m.Name, err = r.ReadName(); err != nil {
		return m, err
	}
	if m.RecvSequence, err = r.ReadUint64(); err != nil {
		return m, err
	}
	if m.AuthSequence, err = r.ReadUint64(); err != nil {
		return m, err
	}
	if m.CodeSequence, err = r.ReadUint64(); err != nil {
		return m, err
	}
	if m.ABISequence, err = r.ReadUint64(); err != nil {
		return m, err
	}
	if m.CodeHash, err = r.ReadID(); err != nil {
		return m, err
	}
	ts, err := r.ReadInt64()
	if err != nil {
		return m, err
	}
	m.LastCodeUpdate = unixTime(ts)
	if m.Privileged, err = r.ReadBool(); err != nil {
		return m, err
	}
	if m.VMType, err = r.ReadUint8(); err != nil {
		return m, err
	}
	if m.VMVersion, err = r.ReadUint8(); err != nil {
		return m, err
	}
	return m, nil
}

func PackCodeObject(w *Writer, c CodeObject) {
	w.WriteID(c.CodeHash)
	w.WriteBytes(c.Code)
	w.WriteUint32(c.RefCount)
	w.WriteUint64(c.FirstBlockUsed)
	w.WriteUint8(c.VMType)
	w.WriteUint8(c.VMVersion)
}

func UnpackCodeObject(r *Reader) (CodeObject, error) {
	var c CodeObject
	var err error
	if c.CodeHash, err = r.ReadID(); err != nil {
		return c, err
	}
	if c.Code, err = r.ReadBytes(); err != nil {
		return c, err
	}
	if c.RefCount, err = r.ReadUint32(); err != nil {
		return c, err
	}
	if c.FirstBlockUsed, err = r.ReadUint64(); err != nil {
		return c, err
	}
	if c.VMType, err = r.ReadUint8(); err != nil {
		return c, err
	}
	if c.VMVersion, err = r.ReadUint8(); err != nil {
		return c, err
	}
	return c, nil
}

func PackTable(w *Writer, t Table) {
	w.WriteUint64(t.ID)
	w.WriteName(t.Code)
	w.WriteName(t.Scope)
	w.WriteName(t.Table)
	w.WriteName(t.Payer)
	w.WriteUint32(t.Count)
}

func UnpackTable(r *Reader) (Table, error) {
	var t Table
	var err error
	if t.ID, err = r.ReadUint64(); err != nil {
		return t, err
	}
	if t.Code, err = r.ReadName(); err != nil {
		return t, err
	}
	if t.Scope, err = r.ReadName(); err != nil {
		return t, err
	}
	if t.Table, err = r.ReadName(); err != nil {
		return t, err
	}
	if t.Payer, err = r.ReadName(); err != nil {
		return t, err
	}
	if t.Count, err = r.ReadUint32(); err != nil {
		return t, err
	}
	return t, nil
}

func PackKeyValue(w *Writer, kv KeyValue) {
	w.WriteUint64(kv.TableID)
	w.WriteUint64(kv.PrimaryKey)
	w.WriteName(kv.Payer)
	w.WriteBytes(kv.Value)
}

func UnpackKeyValue(r *Reader) (KeyValue, error) {
	var kv KeyValue
	var err error
	if kv.TableID, err = r.ReadUint64(); err != nil {
		return kv, err
	}
	if kv.PrimaryKey, err = r.ReadUint64(); err != nil {
		return kv, err
	}
	if kv.Payer, err = r.ReadName(); err != nil {
		return kv, err
	}
	if kv.Value, err = r.ReadBytes(); err != nil {
		return kv, err
	}
	return kv, nil
}

func PackResourceLimits(w *Writer, rl ResourceLimits) {
	w.WriteName(rl.Owner)
	w.WriteInt64(rl.CPUWeight)
	w.WriteInt64(rl.NetWeight)
	w.WriteInt64(rl.RAMBytes)
}

func UnpackResourceLimits(r *Reader) (ResourceLimits, error) {
	var rl ResourceLimits
	var err error
	if rl.Owner, err = r.ReadName(); err != nil {
		return rl, err
	}
	if rl.CPUWeight, err = r.ReadInt64(); err != nil {
		return rl, err
	}
	if rl.NetWeight, err = r.ReadInt64(); err != nil {
		return rl, err
	}
	if rl.RAMBytes, err = r.ReadInt64(); err != nil {
		return rl, err
	}
	return rl, nil
}

func PackResourceUsage(w *Writer, ru ResourceUsage) {
	w.WriteName(ru.Owner)
	w.WriteUint64(ru.NetUsed)
	w.WriteUint64(floatBits(ru.NetUsedEWMA))
	w.WriteUint64(ru.CPUUsed)
	w.WriteUint64(floatBits(ru.CPUUsedEWMA))
	w.WriteInt64(ru.RAMUsage)
	w.WriteInt64(ru.LastUpdated.Unix())
}

func UnpackResourceUsage(r *Reader) (ResourceUsage, error) {
	var ru ResourceUsage
	var err error
	if ru.Owner, err = r.ReadName(); err != nil {
		return ru, err
	}
	if ru.NetUsed, err = r.ReadUint64(); err != nil {
		return ru, err
	}
	bits, err := r.ReadUint64()
	if err != nil {
		return ru, err
	}
	ru.NetUsedEWMA = bitsFloat(bits)
	if ru.CPUUsed, err = r.ReadUint64(); err != nil {
		return ru, err
	}
	if bits, err = r.ReadUint64(); err != nil {
		return ru, err
	}
	ru.CPUUsedEWMA = bitsFloat(bits)
	if ru.RAMUsage, err = r.ReadInt64(); err != nil {
		return ru, err
	}
	ts, err := r.ReadInt64()
	if err != nil {
		return ru, err
	}
	ru.LastUpdated = unixTime(ts)
	return ru, nil
}

func PackAction(w *Writer, a Action) {
	w.WriteName(a.Account)
	w.WriteName(a.Name)
	w.WriteBytes(a.Data)
	w.WriteVaruint32(uint32(len(a.Authorization)))
	for _, pl := range a.Authorization {
		PackPermissionLevel(w, pl)
	}
}

func UnpackAction(r *Reader) (Action, error) {
	var a Action
	var err error
	if a.Account, err = r.ReadName(); err != nil {
		return a, err
	}
	if a.Name, err = r.ReadName(); err != nil {
		return a, err
	}
	if a.Data, err = r.ReadBytes(); err != nil {
		return a, err
	}
	n, err := r.ReadVaruint32()
	if err != nil {
		return a, err
	}
	a.Authorization = make([]PermissionLevel, n)
	for i := range a.Authorization {
		if a.Authorization[i], err = UnpackPermissionLevel(r); err != nil {
			return a, err
		}
	}
	return a, nil
}

func PackTransaction(w *Writer, t Transaction) {
	w.WriteInt64(t.Expiration.Unix())
	w.WriteUint32(t.MaxNetUsageWords)
	w.WriteUint8(t.MaxCPUUsageMS)
	w.WriteID(t.BlockchainID)
	w.WriteVaruint32(uint32(len(t.Actions)))
	for _, a := range t.Actions {
		PackAction(w, a)
	}
	w.WriteVaruint32(uint32(len(t.ContextFreeActions)))
	for _, a := range t.ContextFreeActions {
		PackAction(w, a)
	}
	w.WriteVaruint32(uint32(len(t.ContextFreeData)))
	for _, d := range t.ContextFreeData {
		w.WriteBytes(d)
	}
	w.WriteBytes(t.TransactionExtensions)
	w.WriteVaruint32(uint32(len(t.Signatures)))
	for _, s := range t.Signatures {
		w.WriteSignature(s)
	}
}

func UnpackTransaction(r *Reader) (Transaction, error) {
	var t Transaction
	ts, err := r.ReadInt64()
	if err != nil {
		return t, err
	}
	t.Expiration = unixTime(ts)
	if t.MaxNetUsageWords, err = r.ReadUint32(); err != nil {
		return t, err
	}
	if t.MaxCPUUsageMS, err = r.ReadUint8(); err != nil {
		return t, err
	}
	if t.BlockchainID, err = r.ReadID(); err != nil {
		return t, err
	}
	n, err := r.ReadVaruint32()
	if err != nil {
		return t, err
	}
	t.Actions = make([]Action, n)
	for i := range t.Actions {
		if t.Actions[i], err = UnpackAction(r); err != nil {
			return t, err
		}
	}
	n, err = r.ReadVaruint32()
	if err != nil {
		return t, err
	}
	t.ContextFreeActions = make([]Action, n)
	for i := range t.ContextFreeActions {
		if t.ContextFreeActions[i], err = UnpackAction(r); err != nil {
			return t, err
		}
	}
	n, err = r.ReadVaruint32()
	if err != nil {
		return t, err
	}
	t.ContextFreeData = make([][]byte, n)
	for i := range t.ContextFreeData {
		if t.ContextFreeData[i], err = r.ReadBytes(); err != nil {
			return t, err
		}
	}
	if t.TransactionExtensions, err = r.ReadBytes(); err != nil {
		return t, err
	}
	n, err = r.ReadVaruint32()
	if err != nil {
		return t, err
	}
	t.Signatures = make([]Signature, n)
	for i := range t.Signatures {
		if t.Signatures[i], err = r.ReadSignature(); err != nil {
			return t, err
		}
	}
	return t, nil
}

func unixTime(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func floatBits(f float64) uint64 { return math.Float64bits(f) }

func bitsFloat(b uint64) float64 { return math.Float64frombits(b) }

// PackTransactionForSigning packs the portion of a Transaction that is
// covered by signatures: everything except the Signatures field itself,
// per spec.md §6's signing digest definition.
func PackTransactionForSigning(t Transaction) []byte {
	unsigned := t
	unsigned.Signatures = nil
	w := NewWriter()
	PackTransaction(w, unsigned)
	return w.Bytes()
}
