package types

import (
	"fmt"
	"math"
	"math/bits"
)

// ShannonsPerByte is the capacity one byte of cell storage occupies.
const ShannonsPerByte = 100_000_000

// Capacity is an amount of cell storage value measured in shannons.
type Capacity uint64

// Version is a transaction protocol version.
type Version uint32

// Shannons returns a capacity of n shannons.
func Shannons(n uint64) Capacity {
	return Capacity(n)
}

// Bytes returns the capacity needed to store n bytes.
func Bytes(n uint64) (Capacity, error) {
	hi, lo := bits.Mul64(n, ShannonsPerByte)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d bytes", ErrCapacityOverflow, n)
	}
	return Capacity(lo), nil
}

// SafeAdd returns c + other, or ErrCapacityOverflow.
func (c Capacity) SafeAdd(other Capacity) (Capacity, error) {
	sum, carry := bits.Add64(uint64(c), uint64(other), 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %s + %s", ErrCapacityOverflow, c, other)
	}
	return Capacity(sum), nil
}

// SafeSub returns c - other, or ErrCapacityOverflow when other exceeds c.
func (c Capacity) SafeSub(other Capacity) (Capacity, error) {
	diff, borrow := bits.Sub64(uint64(c), uint64(other), 0)
	if borrow != 0 {
		return 0, fmt.Errorf("%w: %s - %s", ErrCapacityOverflow, c, other)
	}
	return Capacity(diff), nil
}

// SafeMul returns c * n, or ErrCapacityOverflow.
func (c Capacity) SafeMul(n uint64) (Capacity, error) {
	if n != 0 && uint64(c) > math.MaxUint64/n {
		return 0, fmt.Errorf("%w: %s * %d", ErrCapacityOverflow, c, n)
	}
	return Capacity(uint64(c) * n), nil
}

// Uint64 returns the amount in shannons.
func (c Capacity) Uint64() uint64 {
	return uint64(c)
}

// String renders the capacity in hexadecimal, e.g. 0x2540be400.
func (c Capacity) String() string {
	return fmt.Sprintf("%#x", uint64(c))
}
