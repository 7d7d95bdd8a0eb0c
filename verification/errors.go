package verification

import (
	"fmt"

	"github.com/bitfsorg/libtxverify-go/types"
)

// ErrorSource names the transaction field list a violation belongs to.
type ErrorSource uint8

const (
	SourceCellDeps ErrorSource = iota
	SourceHeaderDeps
	SourceInputs
	SourceOutputs
	SourceOutputsData
	SourceWitnesses
)

var sourceNames = [...]string{
	SourceCellDeps:    "CellDeps",
	SourceHeaderDeps:  "HeaderDeps",
	SourceInputs:      "Inputs",
	SourceOutputs:     "Outputs",
	SourceOutputsData: "OutputsData",
	SourceWitnesses:   "Witnesses",
}

// String returns the list name, e.g. "Inputs".
func (s ErrorSource) String() string {
	if int(s) < len(sourceNames) {
		return sourceNames[s]
	}
	return fmt.Sprintf("ErrorSource(%d)", uint8(s))
}

// Kind identifies a TransactionError variant.
type Kind uint8

const (
	KindInsufficientCellCapacity Kind = iota
	KindOutputsSumOverflow
	KindEmpty
	KindDuplicateCellDeps
	KindDuplicateHeaderDeps
	KindOutputsDataLengthMismatch
	KindInvalidSince
	KindImmature
	KindCellbaseImmaturity
	KindMismatchedVersion
	KindExceededMaximumBlockBytes

	numKinds
)

var kindNames = [numKinds]string{
	KindInsufficientCellCapacity:  "InsufficientCellCapacity",
	KindOutputsSumOverflow:        "OutputsSumOverflow",
	KindEmpty:                     "Empty",
	KindDuplicateCellDeps:         "DuplicateCellDeps",
	KindDuplicateHeaderDeps:       "DuplicateHeaderDeps",
	KindOutputsDataLengthMismatch: "OutputsDataLengthMismatch",
	KindInvalidSince:              "InvalidSince",
	KindImmature:                  "Immature",
	KindCellbaseImmaturity:        "CellbaseImmaturity",
	KindMismatchedVersion:         "MismatchedVersion",
	KindExceededMaximumBlockBytes: "ExceededMaximumBlockBytes",
}

// String returns the kind's name, e.g. "Immature".
func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Kinds returns every TransactionError kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, numKinds)
	for i := range kinds {
		kinds[i] = Kind(i)
	}
	return kinds
}

// TransactionError is a structural transaction violation. The set of
// implementations is closed; all of them are comparable values, so two
// errors are equal under == iff they have the same kind and payload.
type TransactionError interface {
	error
	Kind() Kind
	transactionError()
}

// InsufficientCellCapacityError reports a cell whose occupied capacity exceeds
// its capacity.
type InsufficientCellCapacityError struct {
	Source           ErrorSource
	Index            int
	OccupiedCapacity types.Capacity
	Capacity         types.Capacity
}

// OutputsSumOverflowError reports outputs holding more capacity than the
// inputs provide.
type OutputsSumOverflowError struct {
	InputsSum  types.Capacity
	OutputsSum types.Capacity
}

// EmptyError reports an empty inputs or outputs list.
type EmptyError struct {
	Source ErrorSource
}

// DuplicateCellDepsError reports a cell dep referenced more than once.
type DuplicateCellDepsError struct {
	OutPoint types.OutPoint
}

// DuplicateHeaderDepsError reports a header dep referenced more than once.
type DuplicateHeaderDepsError struct {
	Hash types.Hash
}

// OutputsDataLengthMismatchError reports outputs and outputs data lists of
// different lengths.
type OutputsDataLengthMismatchError struct {
	OutputsLen     int
	OutputsDataLen int
}

// InvalidSinceError reports an input whose since field is malformed.
type InvalidSinceError struct {
	Index int
}

// ImmatureError reports an input whose since requirement is not yet met.
type ImmatureError struct {
	Index int
}

// CellbaseImmaturityError reports a cellbase output spent or referenced
// before it matures.
type CellbaseImmaturityError struct {
	Source ErrorSource
	Index  int
}

// MismatchedVersionError reports a transaction version other than the one the
// node accepts.
type MismatchedVersionError struct {
	Expected types.Version
	Actual   types.Version
}

// ExceededMaximumBlockBytesError reports a serialized transaction too large to
// fit in a block.
type ExceededMaximumBlockBytesError struct {
	Limit  uint64
	Actual uint64
}

// Error renders the InsufficientCellCapacity diagnostic.
func (e InsufficientCellCapacityError) Error() string {
	return fmt.Sprintf("InsufficientCellCapacity(%s[%d]): expected occupied capacity (%s) <= capacity (%s)",
		e.Source, e.Index, e.OccupiedCapacity, e.Capacity)
}

// Error renders the OutputsSumOverflow diagnostic.
func (e OutputsSumOverflowError) Error() string {
	return fmt.Sprintf("OutputsSumOverflow: expected outputs capacity (%s) <= inputs capacity (%s)",
		e.OutputsSum, e.InputsSum)
}

// Error renders the Empty diagnostic.
func (e EmptyError) Error() string {
	return fmt.Sprintf("Empty(%s)", e.Source)
}

// Error renders the DuplicateCellDeps diagnostic.
func (e DuplicateCellDepsError) Error() string {
	return fmt.Sprintf("DuplicateCellDeps(%s)", e.OutPoint)
}

// Error renders the DuplicateHeaderDeps diagnostic.
func (e DuplicateHeaderDepsError) Error() string {
	return fmt.Sprintf("DuplicateHeaderDeps(%s)", types.HashString(e.Hash))
}

// Error renders the OutputsDataLengthMismatch diagnostic.
func (e OutputsDataLengthMismatchError) Error() string {
	return fmt.Sprintf("OutputsDataLengthMismatch: expected outputs data length (%d) = outputs length (%d)",
		e.OutputsDataLen, e.OutputsLen)
}

// Error renders the InvalidSince diagnostic.
func (e InvalidSinceError) Error() string {
	return fmt.Sprintf("InvalidSince(Inputs[%d]): the field since is invalid", e.Index)
}

// Error renders the Immature diagnostic.
func (e ImmatureError) Error() string {
	return fmt.Sprintf("Immature(Inputs[%d]): the transaction is immature because of the since requirement", e.Index)
}

// Error renders the CellbaseImmaturity diagnostic.
func (e CellbaseImmaturityError) Error() string {
	return fmt.Sprintf("CellbaseImmaturity(%s[%d])", e.Source, e.Index)
}

// Error renders the MismatchedVersion diagnostic.
func (e MismatchedVersionError) Error() string {
	return fmt.Sprintf("MismatchedVersion: expected %d, got %d", e.Expected, e.Actual)
}

// Error renders the ExceededMaximumBlockBytes diagnostic.
func (e ExceededMaximumBlockBytesError) Error() string {
	return fmt.Sprintf("ExceededMaximumBlockBytes: expected transaction serialized size (%#x) < block size limit (%#x)",
		e.Actual, e.Limit)
}

// Kind identifies the variant of each TransactionError implementation.

func (InsufficientCellCapacityError) Kind() Kind  { return KindInsufficientCellCapacity }
func (OutputsSumOverflowError) Kind() Kind        { return KindOutputsSumOverflow }
func (EmptyError) Kind() Kind                     { return KindEmpty }
func (DuplicateCellDepsError) Kind() Kind         { return KindDuplicateCellDeps }
func (DuplicateHeaderDepsError) Kind() Kind       { return KindDuplicateHeaderDeps }
func (OutputsDataLengthMismatchError) Kind() Kind { return KindOutputsDataLengthMismatch }
func (InvalidSinceError) Kind() Kind              { return KindInvalidSince }
func (ImmatureError) Kind() Kind                  { return KindImmature }
func (CellbaseImmaturityError) Kind() Kind        { return KindCellbaseImmaturity }
func (MismatchedVersionError) Kind() Kind         { return KindMismatchedVersion }
func (ExceededMaximumBlockBytesError) Kind() Kind { return KindExceededMaximumBlockBytes }

func (InsufficientCellCapacityError) transactionError()  {}
func (OutputsSumOverflowError) transactionError()        {}
func (EmptyError) transactionError()                     {}
func (DuplicateCellDepsError) transactionError()         {}
func (DuplicateHeaderDepsError) transactionError()       {}
func (OutputsDataLengthMismatchError) transactionError() {}
func (InvalidSinceError) transactionError()              {}
func (ImmatureError) transactionError()                  {}
func (CellbaseImmaturityError) transactionError()        {}
func (MismatchedVersionError) transactionError()         {}
func (ExceededMaximumBlockBytesError) transactionError() {}

// NewInsufficientCellCapacity returns an InsufficientCellCapacityError for the
// cell at source[index].
func NewInsufficientCellCapacity(source ErrorSource, index int, occupied, capacity types.Capacity) TransactionError {
	return InsufficientCellCapacityError{Source: source, Index: index, OccupiedCapacity: occupied, Capacity: capacity}
}

// NewOutputsSumOverflow returns an OutputsSumOverflowError.
func NewOutputsSumOverflow(inputsSum, outputsSum types.Capacity) TransactionError {
	return OutputsSumOverflowError{InputsSum: inputsSum, OutputsSum: outputsSum}
}

// NewEmpty returns an EmptyError for the empty list source.
func NewEmpty(source ErrorSource) TransactionError {
	return EmptyError{Source: source}
}

// NewDuplicateCellDeps returns a DuplicateCellDepsError for the repeated out point.
func NewDuplicateCellDeps(outPoint types.OutPoint) TransactionError {
	return DuplicateCellDepsError{OutPoint: outPoint}
}

// NewDuplicateHeaderDeps returns a DuplicateHeaderDepsError for the repeated hash.
func NewDuplicateHeaderDeps(hash types.Hash) TransactionError {
	return DuplicateHeaderDepsError{Hash: hash}
}

// NewOutputsDataLengthMismatch returns an OutputsDataLengthMismatchError.
func NewOutputsDataLengthMismatch(outputsLen, outputsDataLen int) TransactionError {
	return OutputsDataLengthMismatchError{OutputsLen: outputsLen, OutputsDataLen: outputsDataLen}
}

// NewInvalidSince returns an InvalidSinceError for input index.
func NewInvalidSince(index int) TransactionError {
	return InvalidSinceError{Index: index}
}

// NewImmature returns an ImmatureError for input index.
func NewImmature(index int) TransactionError {
	return ImmatureError{Index: index}
}

// NewCellbaseImmaturity returns a CellbaseImmaturityError for source[index].
func NewCellbaseImmaturity(source ErrorSource, index int) TransactionError {
	return CellbaseImmaturityError{Source: source, Index: index}
}

// NewMismatchedVersion returns a MismatchedVersionError.
func NewMismatchedVersion(expected, actual types.Version) TransactionError {
	return MismatchedVersionError{Expected: expected, Actual: actual}
}

// NewExceededMaximumBlockBytes returns an ExceededMaximumBlockBytesError for a
// transaction of actual bytes against limit.
func NewExceededMaximumBlockBytes(limit, actual uint64) TransactionError {
	return ExceededMaximumBlockBytesError{Limit: limit, Actual: actual}
}
