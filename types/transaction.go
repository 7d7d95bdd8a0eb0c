package types

import (
	"encoding/hex"
	"fmt"
	"math"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
)

// HashSize is the size of a transaction or header hash in bytes.
const HashSize = 32

// Hash identifies a transaction or a block header.
type Hash = chainhash.Hash

// HashString renders h in byte order with a 0x prefix. chainhash's own
// String reverses the bytes; logs, error messages and the CLI use this form.
func HashString(h Hash) string {
	return "0x" + hex.EncodeToString(h[:])
}

// OutPoint references an output of a previous transaction.
type OutPoint struct {
	TxHash Hash
	Index  uint32
}

// NullOutPoint is the previous output referenced by a cellbase input.
var NullOutPoint = OutPoint{Index: math.MaxUint32}

// IsNull reports whether o is the cellbase null out point.
func (o OutPoint) IsNull() bool {
	return o == NullOutPoint
}

// String renders the out point as <tx hash>:<index>.
func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", HashString(o.TxHash), o.Index)
}

// DepType tells how a cell dep is resolved.
type DepType uint8

const (
	// DepTypeCode uses the referenced cell's data directly.
	DepTypeCode DepType = iota
	// DepTypeDepGroup expands the referenced cell's data into more out points.
	DepTypeDepGroup
)

// String returns the JSON name of the dep type.
func (d DepType) String() string {
	switch d {
	case DepTypeCode:
		return "code"
	case DepTypeDepGroup:
		return "dep_group"
	default:
		return fmt.Sprintf("DepType(%d)", uint8(d))
	}
}

// ParseDepType parses "code" or "dep_group".
func ParseDepType(s string) (DepType, error) {
	switch s {
	case "code":
		return DepTypeCode, nil
	case "dep_group":
		return DepTypeDepGroup, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidDepType, s)
	}
}

// CellDep references a cell whose data the transaction's scripts may load.
type CellDep struct {
	OutPoint OutPoint
	DepType  DepType
}

// CellInput consumes a live cell.
type CellInput struct {
	PreviousOutput OutPoint
	Since          uint64 // encoded earliest-spend constraint
}

// CellOutput creates a new cell.
type CellOutput struct {
	Capacity Capacity
	Lock     *script.Script
	Type     *script.Script // optional
}

// OccupiedCapacity returns the capacity the output needs to store itself and data.
// The capacity field itself accounts for 8 bytes.
func (o CellOutput) OccupiedCapacity(data []byte) (Capacity, error) {
	size := uint64(8 + scriptLen(o.Lock) + scriptLen(o.Type))
	size += uint64(len(data))
	return Bytes(size)
}

func scriptLen(s *script.Script) int {
	if s == nil {
		return 0
	}
	return len(*s)
}

// Transaction is the mutable, wire-level form of a transaction. Wrap it in a
// View before handing it to verifiers.
type Transaction struct {
	Version     Version
	CellDeps    []CellDep
	HeaderDeps  []Hash
	Inputs      []CellInput
	Outputs     []CellOutput
	OutputsData [][]byte
	Witnesses   [][]byte
}
