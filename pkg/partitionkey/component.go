package partitionkey

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ComponentKind is the type tag of a key component. The numeric value is the
// tag byte written by the encoders and also the cross-type sort rank.
type ComponentKind byte

const (
	KindUndefined ComponentKind = 0x00
	KindNull      ComponentKind = 0x01
	KindFalse     ComponentKind = 0x02
	KindTrue      ComponentKind = 0x03
	KindNumber    ComponentKind = 0x05
	KindString    ComponentKind = 0x08
	KindInfinity  ComponentKind = 0xFF
)

func (k ComponentKind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindFalse, KindTrue:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindInfinity:
		return "infinity"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Component is one immutable, typed value of a logical partition key.
type Component struct {
	kind ComponentKind
	str  string
	num  float64
}

func String(s string) Component {
	return Component{kind: KindString, str: s}
}

func Number(n float64) Component {
	if n == 0 {
		// fold -0 into +0 so both encode identically
		n = 0
	}
	return Component{kind: KindNumber, num: n}
}

func Bool(b bool) Component {
	if b {
		return Component{kind: KindTrue}
	}
	return Component{kind: KindFalse}
}

func Null() Component {
	return Component{kind: KindNull}
}

func Undefined() Component {
	return Component{kind: KindUndefined}
}

// Infinity sorts above every concrete component. It is only meaningful as an
// exclusive upper bound and never belongs to a stored key.
func Infinity() Component {
	return Component{kind: KindInfinity}
}

func (c Component) Kind() ComponentKind { return c.kind }

func (c Component) IsInfinity() bool { return c.kind == KindInfinity }

// StringValue returns the payload of a string component.
func (c Component) StringValue() (string, bool) {
	return c.str, c.kind == KindString
}

// NumberValue returns the payload of a number component.
func (c Component) NumberValue() (float64, bool) {
	return c.num, c.kind == KindNumber
}

// BoolValue returns the payload of a boolean component.
func (c Component) BoolValue() (bool, bool) {
	switch c.kind {
	case KindTrue:
		return true, true
	case KindFalse:
		return false, true
	default:
		return false, false
	}
}

// Equal is typed equality: Number(1) and String("1") differ.
func (c Component) Equal(o Component) bool {
	return c.Compare(o) == 0
}

// Compare orders components naturally: undefined < null < false < true <
// numbers < strings < infinity, then by value within a kind.
func (c Component) Compare(o Component) int {
	if c.kind != o.kind {
		return cmp.Compare(c.kind, o.kind)
	}
	switch c.kind {
	case KindNumber:
		return cmp.Compare(c.num, o.num)
	case KindString:
		return strings.Compare(c.str, o.str)
	default:
		return 0
	}
}

// validate rejects values that have no exact JSON form: non-finite numbers
// and strings that are not valid UTF-8.
func (c Component) validate() error {
	switch c.kind {
	case KindNumber:
		if math.IsNaN(c.num) || math.IsInf(c.num, 0) {
			return fmt.Errorf("number component %v is not finite", c.num)
		}
	case KindString:
		if !utf8.ValidString(c.str) {
			return fmt.Errorf("string component %q is not valid UTF-8", c.str)
		}
	}
	return nil
}

func (c Component) String() string {
	switch c.kind {
	case KindString:
		return strconv.Quote(c.str)
	case KindNumber:
		return strconv.FormatFloat(c.num, 'g', -1, 64)
	case KindTrue:
		return "true"
	case KindFalse:
		return "false"
	case KindNull:
		return "null"
	case KindUndefined:
		return "{}"
	case KindInfinity:
		return "Infinity"
	default:
		return c.kind.String()
	}
}
