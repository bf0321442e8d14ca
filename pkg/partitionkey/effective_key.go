package partitionkey

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"pkrouting/pkg/dberrors"
)

// EffectiveKey is a position in the ordered, hashed key space that physical
// partition boundaries are expressed in.
type EffectiveKey []byte

var (
	// MinEffectiveKey is the inclusive lower bound of the key space.
	MinEffectiveKey = EffectiveKey{}
	// MaxEffectiveKey is the exclusive upper bound of the key space. Every
	// concrete encoding sorts strictly below it.
	MaxEffectiveKey = EffectiveKey{0xFF}
)

func (k EffectiveKey) Compare(o EffectiveKey) int {
	return bytes.Compare(k, o)
}

func (k EffectiveKey) Equal(o EffectiveKey) bool {
	return bytes.Equal(k, o)
}

// String renders upper-case hex; the empty key renders as "".
func (k EffectiveKey) String() string {
	return strings.ToUpper(hex.EncodeToString(k))
}

func (k EffectiveKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EffectiveKey) UnmarshalText(text []byte) error {
	parsed, err := ParseEffectiveKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func ParseEffectiveKey(s string) (EffectiveKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: effective key %q: %v", dberrors.ErrInvalidArgument, s, err)
	}
	return EffectiveKey(b), nil
}

func (k EffectiveKey) clone() EffectiveKey {
	return append(EffectiveKey{}, k...)
}
