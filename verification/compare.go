package verification

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/bitfsorg/libtxverify-go/types"
)

// Compare orders transaction errors by kind, then by payload fields in
// declaration order. It returns 0 exactly when a == b.
func Compare(a, b TransactionError) int {
	if c := cmp.Compare(a.Kind(), b.Kind()); c != 0 {
		return c
	}

	switch x := a.(type) {
	case InsufficientCellCapacityError:
		y := b.(InsufficientCellCapacityError)
		return cmpChain(
			cmp.Compare(x.Source, y.Source),
			cmp.Compare(x.Index, y.Index),
			cmp.Compare(x.OccupiedCapacity, y.OccupiedCapacity),
			cmp.Compare(x.Capacity, y.Capacity),
		)
	case OutputsSumOverflowError:
		y := b.(OutputsSumOverflowError)
		return cmpChain(cmp.Compare(x.InputsSum, y.InputsSum), cmp.Compare(x.OutputsSum, y.OutputsSum))
	case EmptyError:
		return cmp.Compare(x.Source, b.(EmptyError).Source)
	case DuplicateCellDepsError:
		return compareOutPoint(x.OutPoint, b.(DuplicateCellDepsError).OutPoint)
	case DuplicateHeaderDepsError:
		y := b.(DuplicateHeaderDepsError)
		return bytes.Compare(x.Hash[:], y.Hash[:])
	case OutputsDataLengthMismatchError:
		y := b.(OutputsDataLengthMismatchError)
		return cmpChain(cmp.Compare(x.OutputsLen, y.OutputsLen), cmp.Compare(x.OutputsDataLen, y.OutputsDataLen))
	case InvalidSinceError:
		return cmp.Compare(x.Index, b.(InvalidSinceError).Index)
	case ImmatureError:
		return cmp.Compare(x.Index, b.(ImmatureError).Index)
	case CellbaseImmaturityError:
		y := b.(CellbaseImmaturityError)
		return cmpChain(cmp.Compare(x.Source, y.Source), cmp.Compare(x.Index, y.Index))
	case MismatchedVersionError:
		y := b.(MismatchedVersionError)
		return cmpChain(cmp.Compare(x.Expected, y.Expected), cmp.Compare(x.Actual, y.Actual))
	case ExceededMaximumBlockBytesError:
		y := b.(ExceededMaximumBlockBytesError)
		return cmpChain(cmp.Compare(x.Limit, y.Limit), cmp.Compare(x.Actual, y.Actual))
	default:
		panic(fmt.Sprintf("verification: unknown transaction error %T", a))
	}
}

// Dedup returns errs sorted by Compare with duplicates removed.
func Dedup(errs []TransactionError) []TransactionError {
	out := slices.Clone(errs)
	slices.SortFunc(out, Compare)
	return slices.CompactFunc(out, func(a, b TransactionError) bool { return a == b })
}

func compareOutPoint(a, b types.OutPoint) int {
	if c := bytes.Compare(a.TxHash[:], b.TxHash[:]); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

func cmpChain(results ...int) int {
	for _, c := range results {
		if c != 0 {
			return c
		}
	}
	return 0
}
