package verification

import (
	"github.com/bitfsorg/libtxverify-go/nodeerr"
	"github.com/bitfsorg/libtxverify-go/types"
)

// Verifier checks one rule against the transaction it was built for.
type Verifier interface {
	Verify() error
}

// Rule builds a Verifier for a transaction.
type Rule func(tx types.TransactionView) Verifier

// Run applies rules to tx in order and returns the first failure.
func Run(tx types.TransactionView, rules ...Rule) error {
	for _, rule := range rules {
		if err := rule(tx).Verify(); err != nil {
			return err
		}
	}
	return nil
}

// OutputsDataRule adapts NewOutputsDataVerifier to a Rule.
func OutputsDataRule(tx types.TransactionView) Verifier {
	return NewOutputsDataVerifier(tx)
}

// EmptyRule adapts NewEmptyVerifier to a Rule.
func EmptyRule(tx types.TransactionView) Verifier {
	return NewEmptyVerifier(tx)
}

// SizeRule returns a Rule enforcing the given block size ceiling.
func SizeRule(limit uint64) Rule {
	return func(tx types.TransactionView) Verifier {
		return NewSizeVerifier(tx, limit)
	}
}

// NonContextualRules returns the structural checks that need nothing but the
// transaction itself.
func NonContextualRules(maxBlockBytes uint64) []Rule {
	return []Rule{
		SizeRule(maxBlockBytes),
		EmptyRule,
		OutputsDataRule,
	}
}

// EmptyVerifier rejects transactions without inputs or without outputs.
type EmptyVerifier struct {
	transaction types.TransactionView
}

// NewEmptyVerifier binds the verifier to tx.
func NewEmptyVerifier(tx types.TransactionView) *EmptyVerifier {
	return &EmptyVerifier{transaction: tx}
}

// Verify returns EmptyError for the first empty list, inputs before outputs.
func (v *EmptyVerifier) Verify() error {
	if len(v.transaction.Inputs()) == 0 {
		return NewEmpty(SourceInputs)
	}
	if len(v.transaction.Outputs()) == 0 {
		return NewEmpty(SourceOutputs)
	}
	return nil
}

// SizeVerifier rejects transactions whose serialized size exceeds the block
// size ceiling.
type SizeVerifier struct {
	transaction types.TransactionView
	limit       uint64
}

// NewSizeVerifier binds the verifier to tx and limit.
func NewSizeVerifier(tx types.TransactionView, limit uint64) *SizeVerifier {
	return &SizeVerifier{transaction: tx, limit: limit}
}

// Verify returns ExceededMaximumBlockBytesError when the serialized size is
// greater than the limit.
func (v *SizeVerifier) Verify() error {
	size := v.transaction.SerializedSize()
	if size > v.limit {
		return NewExceededMaximumBlockBytes(v.limit, size)
	}
	return nil
}

// ToNodeError tags err with nodeerr.KindTransaction. A nil err yields a nil
// error.
func ToNodeError(err TransactionError) error {
	if err == nil {
		return nil
	}
	return nodeerr.New(nodeerr.KindTransaction, err)
}
