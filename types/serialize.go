package types

import (
	"encoding/binary"

	"github.com/bsv-blockchain/go-sdk/script"
)

// Serialize encodes tx in wire format.
//
// Layout: version(4) | cell_deps | header_deps | inputs | outputs | outputs_data | witnesses
//
// Every list carries a 4-byte little-endian count and every byte string a
// 4-byte little-endian length.
func Serialize(tx *Transaction) []byte {
	if tx == nil {
		return nil
	}
	buf := serializeRaw(tx)
	buf = appendBytesList(buf, tx.Witnesses)
	return buf
}

// serializeRaw encodes everything except witnesses; the transaction hash
// commits to this form.
func serializeRaw(tx *Transaction) []byte {
	buf := make([]byte, 0, 256)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(tx.Version))

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.CellDeps)))
	for _, dep := range tx.CellDeps {
		buf = appendOutPoint(buf, dep.OutPoint)
		buf = append(buf, byte(dep.DepType))
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.HeaderDeps)))
	for _, h := range tx.HeaderDeps {
		buf = append(buf, h[:]...)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = binary.LittleEndian.AppendUint64(buf, in.Since)
		buf = appendOutPoint(buf, in.PreviousOutput)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(out.Capacity))
		buf = appendScript(buf, out.Lock)
		if out.Type == nil {
			buf = append(buf, 0)
		} else {
			buf = append(buf, 1)
			buf = appendScript(buf, out.Type)
		}
	}

	return appendBytesList(buf, tx.OutputsData)
}

func appendOutPoint(buf []byte, o OutPoint) []byte {
	buf = append(buf, o.TxHash[:]...)
	return binary.LittleEndian.AppendUint32(buf, o.Index)
}

func appendScript(buf []byte, s *script.Script) []byte {
	if s == nil {
		return appendBytes(buf, nil)
	}
	return appendBytes(buf, *s)
}

func appendBytes(buf, b []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func appendBytesList(buf []byte, list [][]byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(list)))
	for _, b := range list {
		buf = appendBytes(buf, b)
	}
	return buf
}
