// Package mathx holds small generic helpers for register and range maths.
package mathx

import "golang.org/x/exp/constraints"

// Between reports lo <= v && v <= hi.
func Between[T constraints.Ordered](v, lo, hi T) bool {
	return v >= lo && v <= hi
}

// FieldMask returns the mask of bits hi..lo of a byte. hi must be <= 7 and
// lo <= hi.
func FieldMask(hi, lo uint8) uint8 {
	return (uint8(0xFF) << lo) & (uint8(0xFF) >> (7 - hi))
}
