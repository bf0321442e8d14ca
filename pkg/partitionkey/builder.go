package partitionkey

import (
	"fmt"

	"pkrouting/pkg/dberrors"
)

// BuildRanges returns the effective-key ranges addressed by key under scheme.
//
// A full key yields a single point range. Under MultiHash a strict prefix of
// K components yields [E(prefix), E(prefix ++ Infinity...)), which contains
// every full key starting with that prefix and no other.
func BuildRanges(key Key, scheme Scheme) ([]Range, error) {
	if key.hasInfinity() {
		return nil, fmt.Errorf("%w: infinity is not a selectable value", dberrors.ErrInvalidKeyShape)
	}

	lower, err := Encode(key, scheme)
	if err != nil {
		return nil, err
	}
	if len(key) == scheme.Arity() {
		return []Range{PointRange(lower)}, nil
	}

	upper, err := Encode(UpperBoundKey(key, scheme), scheme)
	if err != nil {
		return nil, err
	}
	r := NewRange(lower, upper)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return []Range{r}, nil
}

// UpperBoundKey pads key with Infinity up to the scheme arity.
func UpperBoundKey(key Key, scheme Scheme) Key {
	padded := make(Key, 0, scheme.Arity())
	padded = append(padded, key...)
	for len(padded) < scheme.Arity() {
		padded = append(padded, Infinity())
	}
	return padded
}
