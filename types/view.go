package types

import (
	"slices"

	"golang.org/x/crypto/blake2b"
)

// TransactionView is a read-only view of a transaction. Slices returned by
// the accessors are shared with the view and must not be modified.
type TransactionView interface {
	// Hash commits to every field except witnesses.
	Hash() Hash

	// WitnessHash commits to the full serialized transaction.
	WitnessHash() Hash

	Version() Version
	CellDeps() []CellDep
	HeaderDeps() []Hash
	Inputs() []CellInput
	Outputs() []CellOutput
	OutputsData() [][]byte
	Witnesses() [][]byte

	// SerializedSize is the length of Serialize's output in bytes.
	SerializedSize() uint64

	// IsCellbase reports whether the transaction issues a block reward.
	IsCellbase() bool
}

// View is the default TransactionView. It owns a private copy of the
// transaction so later changes to the source do not leak into verification.
type View struct {
	tx          Transaction
	hash        Hash
	witnessHash Hash
	size        uint64
}

// Compile-time interface check.
var _ TransactionView = (*View)(nil)

// NewTransactionView snapshots tx and precomputes its hashes and size.
func NewTransactionView(tx *Transaction) *View {
	if tx == nil {
		tx = &Transaction{}
	}
	v := &View{tx: cloneTransaction(tx)}

	raw := serializeRaw(&v.tx)
	full := appendBytesList(slices.Clone(raw), v.tx.Witnesses)
	v.hash = blake2b.Sum256(raw)
	v.witnessHash = blake2b.Sum256(full)
	v.size = uint64(len(full))
	return v
}

func (v *View) Hash() Hash             { return v.hash }
func (v *View) WitnessHash() Hash      { return v.witnessHash }
func (v *View) Version() Version       { return v.tx.Version }
func (v *View) CellDeps() []CellDep    { return v.tx.CellDeps }
func (v *View) HeaderDeps() []Hash     { return v.tx.HeaderDeps }
func (v *View) Inputs() []CellInput    { return v.tx.Inputs }
func (v *View) Outputs() []CellOutput  { return v.tx.Outputs }
func (v *View) OutputsData() [][]byte  { return v.tx.OutputsData }
func (v *View) Witnesses() [][]byte    { return v.tx.Witnesses }
func (v *View) SerializedSize() uint64 { return v.size }

// IsCellbase reports whether the only input spends the null out point.
func (v *View) IsCellbase() bool {
	return len(v.tx.Inputs) == 1 && v.tx.Inputs[0].PreviousOutput.IsNull()
}

// Transaction returns a copy of the underlying transaction.
func (v *View) Transaction() *Transaction {
	tx := cloneTransaction(&v.tx)
	return &tx
}

// SumOutputsCapacity totals the capacity of every output in tx.
func SumOutputsCapacity(tx TransactionView) (Capacity, error) {
	if tx == nil {
		return 0, ErrNilParam
	}
	var total Capacity
	for _, out := range tx.Outputs() {
		next, err := total.SafeAdd(out.Capacity)
		if err != nil {
			return 0, err
		}
		total = next
	}
	return total, nil
}

func cloneTransaction(tx *Transaction) Transaction {
	return Transaction{
		Version:     tx.Version,
		CellDeps:    slices.Clone(tx.CellDeps),
		HeaderDeps:  slices.Clone(tx.HeaderDeps),
		Inputs:      slices.Clone(tx.Inputs),
		Outputs:     slices.Clone(tx.Outputs),
		OutputsData: cloneByteLists(tx.OutputsData),
		Witnesses:   cloneByteLists(tx.Witnesses),
	}
}

func cloneByteLists(list [][]byte) [][]byte {
	if list == nil {
		return nil
	}
	out := make([][]byte, len(list))
	for i, b := range list {
		out[i] = slices.Clone(b)
	}
	return out
}
