package partitionkey

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pkrouting/pkg/dberrors"
)

func mustBuild(t *testing.T, key Key, scheme Scheme) []Range {
	t.Helper()
	ranges, err := BuildRanges(key, scheme)
	if err != nil {
		t.Fatalf("BuildRanges(%s, %s) error: %v", key, scheme, err)
	}
	return ranges
}

func TestBuildRanges_PrefixSelector(t *testing.T) {
	scheme := NewScheme(SchemeMultiHash, "/tenantId", "/orderId")

	ranges := mustBuild(t, Key{String("Account1")}, scheme)
	if len(ranges) != 1 {
		t.Fatalf("got %d ranges, want 1", len(ranges))
	}
	r := ranges[0]

	want := NewRange(
		mustEncode(t, scheme, String("Account1")),
		mustEncode(t, scheme, String("Account1"), Infinity()),
	)
	if !r.Equal(want) {
		t.Fatalf("range = %s, want %s", r, want)
	}
	if !r.IsMinInclusive || r.IsMaxInclusive {
		t.Fatalf("range %s must be min-inclusive and max-exclusive", r)
	}

	for _, order := range []string{"SalesOrder1", "SalesOrder2"} {
		full := mustEncode(t, scheme, String("Account1"), String(order))
		if !r.Contains(full) {
			t.Fatalf("[Account1,%s]=%s outside %s", order, full, r)
		}
	}
	outside := mustEncode(t, scheme, String("Account2"), String("X"))
	if r.Contains(outside) {
		t.Fatalf("[Account2,X]=%s inside %s", outside, r)
	}
}

func TestBuildRanges_PrefixContainment(t *testing.T) {
	scheme := NewScheme(SchemeMultiHash, "/a", "/b", "/c")

	for i := 0; i < 20; i++ {
		prefix := Key{String(fmt.Sprintf("tenant-%d", i))}
		r := mustBuild(t, prefix, scheme)[0]
		two := mustBuild(t, Key{prefix[0], Number(float64(i))}, scheme)[0]
		if !two.Within(r.Min, r.Max) {
			t.Fatalf("two-level prefix %s not within %s", two, r)
		}

		for j := 0; j < 20; j++ {
			own := mustEncode(t, scheme, prefix[0], Number(float64(j)), String("x"))
			if !r.Contains(own) {
				t.Fatalf("full key %s under prefix %s falls outside %s", own, prefix, r)
			}
			other := mustEncode(t, scheme, String(fmt.Sprintf("tenant-%d", i+100)), Number(float64(j)), String("x"))
			if r.Contains(other) {
				t.Fatalf("foreign key %s falls inside %s", other, r)
			}
		}
	}
}

func TestBuildRanges_PointRanges(t *testing.T) {
	hash := NewScheme(SchemeHash, "/pk")
	ranges := mustBuild(t, Key{String("Account1")}, hash)
	if len(ranges) != 1 || !ranges[0].IsPoint() {
		t.Fatalf("hash point range = %v", ranges)
	}

	rng := NewScheme(SchemeRange, "/a", "/b")
	ranges = mustBuild(t, Key{String("A"), String("1")}, rng)
	if len(ranges) != 1 || !ranges[0].IsPoint() {
		t.Fatalf("range-scheme point range = %v", ranges)
	}
}

func TestBuildRanges_MultiHashFullKeyDegenerates(t *testing.T) {
	multi := NewScheme(SchemeMultiHash, "/a", "/b")
	key := Key{String("Account1"), String("SalesOrder1")}
	ranges := mustBuild(t, key, multi)
	want := []Range{PointRange(mustEncode(t, multi, key...))}
	if diff := cmp.Diff(want, ranges); diff != "" {
		t.Fatalf("full multihash key ranges mismatch (-want +got):\n%s", diff)
	}

	single := mustBuild(t, Key{String("Account1")}, NewScheme(SchemeMultiHash, "/a"))
	hashed := mustBuild(t, Key{String("Account1")}, NewScheme(SchemeHash, "/a"))
	if diff := cmp.Diff(hashed, single); diff != "" {
		t.Fatalf("single path multihash differs from hash (-hash +multihash):\n%s", diff)
	}
}

func TestBuildRanges_Idempotent(t *testing.T) {
	scheme := NewScheme(SchemeMultiHash, "/a", "/b")
	key := Key{String("Account1")}
	if diff := cmp.Diff(mustBuild(t, key, scheme), mustBuild(t, key, scheme)); diff != "" {
		t.Fatalf("repeated BuildRanges differ:\n%s", diff)
	}
}

func TestBuildRanges_Errors(t *testing.T) {
	two := NewScheme(SchemeMultiHash, "/a", "/b")
	if _, err := BuildRanges(Key{String("a"), String("b"), String("c")}, two); !errors.Is(err, dberrors.ErrInvalidKeyShape) {
		t.Fatalf("3 components on 2 paths: err = %v", err)
	}
	if _, err := BuildRanges(nil, two); !errors.Is(err, dberrors.ErrInvalidKeyShape) {
		t.Fatalf("empty key: err = %v", err)
	}
	if _, err := BuildRanges(Key{String("a"), Infinity()}, two); !errors.Is(err, dberrors.ErrInvalidKeyShape) {
		t.Fatalf("infinity in selector: err = %v", err)
	}
}
