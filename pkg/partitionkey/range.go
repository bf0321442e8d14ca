package partitionkey

import (
	"fmt"

	"pkrouting/pkg/dberrors"
)

// Range is an interval of effective keys. The zero flags describe the usual
// half-open [Min, Max); a point lookup sets both flags with Min == Max.
type Range struct {
	Min            EffectiveKey `json:"min"`
	Max            EffectiveKey `json:"max"`
	IsMinInclusive bool         `json:"isMinInclusive"`
	IsMaxInclusive bool         `json:"isMaxInclusive"`
}

// NewRange returns the half-open interval [min, max).
func NewRange(lo, hi EffectiveKey) Range {
	return Range{Min: lo, Max: hi, IsMinInclusive: true}
}

// PointRange returns the single-key range [key, key].
func PointRange(key EffectiveKey) Range {
	return Range{Min: key, Max: key, IsMinInclusive: true, IsMaxInclusive: true}
}

// FullRange covers the whole key space.
func FullRange() Range {
	return NewRange(MinEffectiveKey.clone(), MaxEffectiveKey.clone())
}

func (r Range) IsPoint() bool {
	return r.IsMinInclusive && r.IsMaxInclusive && r.Min.Equal(r.Max)
}

// Validate enforces that a range is never empty.
func (r Range) Validate() error {
	switch c := r.Min.Compare(r.Max); {
	case c < 0:
		return nil
	case c == 0 && r.IsMinInclusive && r.IsMaxInclusive:
		return nil
	default:
		return fmt.Errorf("%w: empty range %s", dberrors.ErrInvalidArgument, r)
	}
}

func (r Range) Contains(key EffectiveKey) bool {
	lo := key.Compare(r.Min)
	if lo < 0 || (lo == 0 && !r.IsMinInclusive) {
		return false
	}
	hi := key.Compare(r.Max)
	return hi < 0 || (hi == 0 && r.IsMaxInclusive)
}

// Overlaps reports whether r intersects the partition boundary [lo, hi).
func (r Range) Overlaps(lo, hi EffectiveKey) bool {
	if r.Min.Compare(hi) >= 0 {
		return false
	}
	c := lo.Compare(r.Max)
	return c < 0 || (c == 0 && r.IsMaxInclusive)
}

// Within reports whether r lies inside [lo, hi).
func (r Range) Within(lo, hi EffectiveKey) bool {
	if r.Min.Compare(lo) < 0 {
		return false
	}
	c := r.Max.Compare(hi)
	return c < 0 || (c == 0 && !r.IsMaxInclusive)
}

func (r Range) Equal(o Range) bool {
	return r.Min.Equal(o.Min) && r.Max.Equal(o.Max) &&
		r.IsMinInclusive == o.IsMinInclusive && r.IsMaxInclusive == o.IsMaxInclusive
}

func (r Range) String() string {
	lb, rb := "(", ")"
	if r.IsMinInclusive {
		lb = "["
	}
	if r.IsMaxInclusive {
		rb = "]"
	}
	return fmt.Sprintf("%s%s,%s%s", lb, r.Min, r.Max, rb)
}
