package partitionkey

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spaolacci/murmur3"

	"pkrouting/pkg/dberrors"
)

const (
	// hashWidth is the byte length of one hashed segment.
	hashWidth = 16

	stringTerminator = 0x01
	stringEscape     = 0xFF
)

// Encode maps components to their effective key under scheme. It is pure and
// safe for concurrent use. Infinity components are accepted here so that
// upper bounds can be built; selectors never carry them.
func Encode(components []Component, scheme Scheme) (EffectiveKey, error) {
	if err := scheme.Validate(); err != nil {
		return nil, err
	}
	if err := scheme.checkShape(len(components)); err != nil {
		return nil, err
	}
	for i, c := range components {
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("%w: component %d: %v", dberrors.ErrInvalidArgument, i, err)
		}
	}

	switch scheme.Kind {
	case SchemeHash:
		return encodeHash(components), nil
	case SchemeMultiHash:
		return encodeMultiHash(components), nil
	case SchemeRange:
		return encodeOrdered(components), nil
	default:
		return nil, fmt.Errorf("%w: %s", dberrors.ErrUnsupportedSchemeKind, scheme.Kind)
	}
}

// encodeHash digests the whole tuple at once. With no prefix structure the
// only bound consistent with an infinity component is the key-space maximum.
func encodeHash(components []Component) EffectiveKey {
	if Key(components).hasInfinity() {
		return MaxEffectiveKey.clone()
	}
	var buf []byte
	for _, c := range components {
		buf = appendHashInput(buf, c)
	}
	return EffectiveKey(appendDigest(nil, buf))
}

// encodeMultiHash digests every component on its own so that a K-component
// prefix reproduces the first K segments of any key extending it.
func encodeMultiHash(components []Component) EffectiveKey {
	out := make([]byte, 0, len(components)*hashWidth)
	for _, c := range components {
		if c.IsInfinity() {
			out = append(out, byte(KindInfinity))
			continue
		}
		out = appendDigest(out, appendHashInput(nil, c))
	}
	return EffectiveKey(out)
}

// encodeOrdered writes a self-delimiting, order-preserving encoding of each
// component.
func encodeOrdered(components []Component) EffectiveKey {
	var out []byte
	for _, c := range components {
		out = append(out, byte(c.kind))
		switch c.kind {
		case KindNumber:
			out = binary.BigEndian.AppendUint64(out, orderedFloatBits(c.num))
		case KindString:
			for i := 0; i < len(c.str); i++ {
				b := c.str[i]
				out = append(out, b)
				if b == 0x00 {
					out = append(out, stringEscape)
				}
			}
			out = append(out, 0x00, stringTerminator)
		}
	}
	return EffectiveKey(out)
}

// appendHashInput writes the unambiguous binary form of c that is fed to the
// hash function.
func appendHashInput(buf []byte, c Component) []byte {
	buf = append(buf, byte(c.kind))
	switch c.kind {
	case KindNumber:
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(c.num))
	case KindString:
		buf = binary.AppendUvarint(buf, uint64(len(c.str)))
		buf = append(buf, c.str...)
	}
	return buf
}

// appendDigest appends the 128-bit murmur3 digest of data, big-endian, with
// the two top bits cleared so the result stays below MaxEffectiveKey.
func appendDigest(out, data []byte) []byte {
	h1, h2 := murmur3.Sum128(data)
	start := len(out)
	out = binary.BigEndian.AppendUint64(out, h1)
	out = binary.BigEndian.AppendUint64(out, h2)
	out[start] &= 0x3F
	return out
}

func orderedFloatBits(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) == 0 {
		return bits | 1<<63
	}
	return ^bits
}
