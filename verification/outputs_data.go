package verification

import "github.com/bitfsorg/libtxverify-go/types"

// OutputsDataVerifier checks that every output has exactly one outputs data entry.
type OutputsDataVerifier struct {
	transaction types.TransactionView
}

// NewOutputsDataVerifier binds the verifier to tx.
func NewOutputsDataVerifier(tx types.TransactionView) *OutputsDataVerifier {
	return &OutputsDataVerifier{transaction: tx}
}

// Verify returns OutputsDataLengthMismatchError when the outputs and outputs
// data lists differ in length.
func (v *OutputsDataVerifier) Verify() error {
	outputsLen := len(v.transaction.Outputs())
	outputsDataLen := len(v.transaction.OutputsData())

	if outputsLen != outputsDataLen {
		return NewOutputsDataLengthMismatch(outputsLen, outputsDataLen)
	}
	return nil
}
