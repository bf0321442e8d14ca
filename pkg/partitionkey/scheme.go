package partitionkey

import (
	"fmt"
	"strings"

	"pkrouting/pkg/dberrors"
	"pkrouting/pkg/types"
)

type SchemeKind uint8

const (
	SchemeHash SchemeKind = iota + 1
	SchemeMultiHash
	SchemeRange
)

func (k SchemeKind) String() string {
	switch k {
	case SchemeHash:
		return "Hash"
	case SchemeMultiHash:
		return "MultiHash"
	case SchemeRange:
		return "Range"
	default:
		return fmt.Sprintf("SchemeKind(%d)", uint8(k))
	}
}

// ParseSchemeKind accepts the names produced by SchemeKind.String, case-insensitively.
func ParseSchemeKind(s string) (SchemeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hash":
		return SchemeHash, nil
	case "multihash":
		return SchemeMultiHash, nil
	case "range":
		return SchemeRange, nil
	default:
		return 0, fmt.Errorf("%w: %q", dberrors.ErrUnsupportedSchemeKind, s)
	}
}

// Scheme is the partitioning declaration of a container.
type Scheme struct {
	Paths []types.PathName
	Kind  SchemeKind
}

func NewScheme(kind SchemeKind, paths ...types.PathName) Scheme {
	return Scheme{Paths: append([]types.PathName(nil), paths...), Kind: kind}
}

func (s Scheme) Arity() int { return len(s.Paths) }

func (s Scheme) Validate() error {
	switch s.Kind {
	case SchemeHash, SchemeMultiHash, SchemeRange:
	default:
		return fmt.Errorf("%w: %s", dberrors.ErrUnsupportedSchemeKind, s.Kind)
	}
	if len(s.Paths) == 0 {
		return fmt.Errorf("%w: scheme declares no paths", dberrors.ErrInvalidArgument)
	}
	return nil
}

// checkShape enforces the arity rules for a key of the given length.
func (s Scheme) checkShape(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: no components supplied", dberrors.ErrInvalidKeyShape)
	}
	if n > len(s.Paths) {
		return fmt.Errorf("%w: %d components for %d paths", dberrors.ErrInvalidKeyShape, n, len(s.Paths))
	}
	if n < len(s.Paths) && s.Kind != SchemeMultiHash {
		return fmt.Errorf("%w: %s scheme needs all %d components, got %d", dberrors.ErrInvalidKeyShape, s.Kind, len(s.Paths), n)
	}
	return nil
}

func (s Scheme) String() string {
	return s.Kind.String() + "(" + strings.Join(s.Paths, ",") + ")"
}
