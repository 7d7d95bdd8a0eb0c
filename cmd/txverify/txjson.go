package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/bitfsorg/libtxverify-go/types"
)

// jsonTransaction is the file format accepted by the verify command. Byte
// strings are hex with an optional 0x prefix; capacities are in shannons.
type jsonTransaction struct {
	Version     uint32        `json:"version"`
	CellDeps    []jsonCellDep `json:"cell_deps"`
	HeaderDeps  []string      `json:"header_deps"`
	Inputs      []jsonInput   `json:"inputs"`
	Outputs     []jsonOutput  `json:"outputs"`
	OutputsData []string      `json:"outputs_data"`
	Witnesses   []string      `json:"witnesses"`
}

type jsonCellDep struct {
	TxHash  string `json:"tx_hash"`
	Index   uint32 `json:"index"`
	DepType string `json:"dep_type"`
}

type jsonInput struct {
	TxHash string `json:"tx_hash"`
	Index  uint32 `json:"index"`
	Since  uint64 `json:"since"`
}

type jsonOutput struct {
	Capacity uint64  `json:"capacity"`
	Lock     string  `json:"lock"`
	Type     *string `json:"type"`
}

// readTransaction decodes the transaction stored at path.
func readTransaction(path string) (*types.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	tx, err := decodeTransaction(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return tx, nil
}

func decodeTransaction(data []byte) (*types.Transaction, error) {
	var jt jsonTransaction
	if err := json.Unmarshal(data, &jt); err != nil {
		return nil, err
	}

	tx := &types.Transaction{Version: types.Version(jt.Version)}

	for i, d := range jt.CellDeps {
		hash, err := decodeHash(d.TxHash)
		if err != nil {
			return nil, fmt.Errorf("cell_deps[%d].tx_hash: %w", i, err)
		}
		depType, err := types.ParseDepType(d.DepType)
		if err != nil {
			return nil, fmt.Errorf("cell_deps[%d].dep_type: %w", i, err)
		}
		tx.CellDeps = append(tx.CellDeps, types.CellDep{
			OutPoint: types.OutPoint{TxHash: hash, Index: d.Index},
			DepType:  depType,
		})
	}

	for i, h := range jt.HeaderDeps {
		hash, err := decodeHash(h)
		if err != nil {
			return nil, fmt.Errorf("header_deps[%d]: %w", i, err)
		}
		tx.HeaderDeps = append(tx.HeaderDeps, hash)
	}

	for i, in := range jt.Inputs {
		hash, err := decodeHash(in.TxHash)
		if err != nil {
			return nil, fmt.Errorf("inputs[%d].tx_hash: %w", i, err)
		}
		tx.Inputs = append(tx.Inputs, types.CellInput{
			PreviousOutput: types.OutPoint{TxHash: hash, Index: in.Index},
			Since:          in.Since,
		})
	}

	for i, out := range jt.Outputs {
		lock, err := decodeHex(out.Lock)
		if err != nil {
			return nil, fmt.Errorf("outputs[%d].lock: %w", i, err)
		}
		output := types.CellOutput{
			Capacity: types.Capacity(out.Capacity),
			Lock:     script.NewFromBytes(lock),
		}
		if out.Type != nil {
			typ, err := decodeHex(*out.Type)
			if err != nil {
				return nil, fmt.Errorf("outputs[%d].type: %w", i, err)
			}
			output.Type = script.NewFromBytes(typ)
		}
		tx.Outputs = append(tx.Outputs, output)
	}

	for i, d := range jt.OutputsData {
		b, err := decodeHex(d)
		if err != nil {
			return nil, fmt.Errorf("outputs_data[%d]: %w", i, err)
		}
		tx.OutputsData = append(tx.OutputsData, b)
	}

	for i, w := range jt.Witnesses {
		b, err := decodeHex(w)
		if err != nil {
			return nil, fmt.Errorf("witnesses[%d]: %w", i, err)
		}
		tx.Witnesses = append(tx.Witnesses, b)
	}

	return tx, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}

// decodeHash reads a hash in byte order, the inverse of types.HashString.
func decodeHash(s string) (types.Hash, error) {
	b, err := decodeHex(s)
	if err != nil {
		return types.Hash{}, err
	}
	h, err := chainhash.NewHash(b)
	if err != nil {
		return types.Hash{}, err
	}
	return *h, nil
}
