package verification

import (
	"errors"
	"fmt"
)

// IsMalformed reports whether violations of kind k are objective defects of
// the transaction bytes. Malformed transactions can be rejected for good and
// their sender penalized. The other kinds depend on chain state or local
// configuration and may become valid later.
//
// It panics on a kind outside the closed set.
func (k Kind) IsMalformed() bool {
	switch k {
	case KindOutputsSumOverflow,
		KindDuplicateCellDeps,
		KindDuplicateHeaderDeps,
		KindEmpty,
		KindInsufficientCellCapacity,
		KindInvalidSince,
		KindExceededMaximumBlockBytes,
		KindOutputsDataLengthMismatch:
		return true
	case KindImmature,
		KindCellbaseImmaturity,
		KindMismatchedVersion:
		return false
	default:
		panic(fmt.Sprintf("verification: unclassified error kind %d", uint8(k)))
	}
}

// IsMalformedTx reports whether err proves the transaction malformed. The
// answer depends on err's kind only, never on its payload.
func IsMalformedTx(err TransactionError) bool {
	return err.Kind().IsMalformed()
}

// Category groups verification failures by how callers should react.
type Category uint8

const (
	// CategoryUnknown covers errors that are not transaction violations.
	CategoryUnknown Category = iota
	// CategoryMalformed: reject permanently and penalize the sender.
	CategoryMalformed
	// CategoryContextual: defer or reject locally, never penalize.
	CategoryContextual
)

// String returns the lower-case category name.
func (c Category) String() string {
	switch c {
	case CategoryMalformed:
		return "malformed"
	case CategoryContextual:
		return "contextual"
	default:
		return "unknown"
	}
}

// Classify finds the TransactionError in err's chain and returns its
// category along with it.
func Classify(err error) (Category, TransactionError) {
	var txErr TransactionError
	if !errors.As(err, &txErr) {
		return CategoryUnknown, nil
	}
	if IsMalformedTx(txErr) {
		return CategoryMalformed, txErr
	}
	return CategoryContextual, txErr
}
