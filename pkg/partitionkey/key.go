package partitionkey

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"strings"

	"pkrouting/pkg/dberrors"
)

// Key is an ordered sequence of components. A key shorter than its scheme's
// arity is a prefix selector.
type Key []Component

func NewKey(components ...Component) Key {
	return append(Key(nil), components...)
}

func (k Key) Equal(o Key) bool {
	if len(k) != len(o) {
		return false
	}
	for i := range k {
		if !k[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Compare orders keys component by component; a strict prefix sorts first.
func (k Key) Compare(o Key) int {
	for i := 0; i < len(k) && i < len(o); i++ {
		if c := k[i].Compare(o[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(k), len(o))
}

func (k Key) hasInfinity() bool {
	for _, c := range k {
		if c.IsInfinity() {
			return true
		}
	}
	return false
}

// ValidateForStorage rejects keys that cannot be attached to a stored document.
func (k Key) ValidateForStorage() error {
	if len(k) == 0 {
		return fmt.Errorf("%w: empty key", dberrors.ErrInvalidKeyShape)
	}
	if k.hasInfinity() {
		return fmt.Errorf("%w: infinity component in stored key", dberrors.ErrInvalidKeyShape)
	}
	for i, c := range k {
		if err := c.validate(); err != nil {
			return fmt.Errorf("%w: component %d: %v", dberrors.ErrInvalidArgument, i, err)
		}
	}
	return nil
}

// MarshalJSON renders the key as a JSON array; undefined is written as {}.
func (k Key) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, c := range k {
		if i > 0 {
			buf.WriteByte(',')
		}
		var (
			raw []byte
			err error
		)
		switch c.kind {
		case KindString:
			if err = c.validate(); err != nil {
				err = fmt.Errorf("%w: component %d: %v", dberrors.ErrInvalidArgument, i, err)
			} else {
				raw, err = json.Marshal(c.str)
			}
		case KindNumber:
			if err = c.validate(); err == nil {
				raw, err = json.Marshal(c.num)
			}
		case KindTrue, KindFalse, KindNull, KindUndefined:
			raw = []byte(c.String())
		default:
			err = fmt.Errorf("%w: %s component is not serializable", dberrors.ErrInvalidKeyShape, c.kind)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (k *Key) UnmarshalJSON(data []byte) error {
	parsed, err := ParseKeyJSON(data)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k Key) String() string {
	parts := make([]string, len(k))
	for i, c := range k {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// ParseKeyJSON is the inverse of MarshalJSON.
func ParseKeyJSON(data []byte) (Key, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: partition key json: %v", dberrors.ErrInvalidArgument, err)
	}

	key := make(Key, 0, len(raw))
	for i, v := range raw {
		switch val := v.(type) {
		case string:
			key = append(key, String(val))
		case json.Number:
			f, err := val.Float64()
			if err != nil {
				return nil, fmt.Errorf("%w: component %d: %v", dberrors.ErrInvalidArgument, i, err)
			}
			key = append(key, Number(f))
		case bool:
			key = append(key, Bool(val))
		case nil:
			key = append(key, Null())
		case map[string]any:
			if len(val) != 0 {
				return nil, fmt.Errorf("%w: component %d: only {} (undefined) objects are allowed", dberrors.ErrInvalidArgument, i)
			}
			key = append(key, Undefined())
		default:
			return nil, fmt.Errorf("%w: component %d: unsupported json type %T", dberrors.ErrInvalidArgument, i, v)
		}
	}
	return key, nil
}
