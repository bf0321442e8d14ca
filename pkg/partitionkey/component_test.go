package partitionkey

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pkrouting/pkg/dberrors"
)

func TestComponent_TypedEquality(t *testing.T) {
	if String("1").Equal(Number(1)) {
		t.Fatal("string and number with same text must differ")
	}
	if !Number(2.5).Equal(Number(2.5)) {
		t.Fatal("equal numbers compare unequal")
	}
	if Bool(true).Equal(Bool(false)) {
		t.Fatal("true equals false")
	}
	if Null().Equal(Undefined()) {
		t.Fatal("null equals undefined")
	}
	if !(Key{String("a"), Null()}).Equal(Key{String("a"), Null()}) {
		t.Fatal("equal keys compare unequal")
	}
	if (Key{String("a")}).Equal(Key{String("a"), Null()}) {
		t.Fatal("keys of different length compare equal")
	}
}

func TestComponent_InfinitySortsLast(t *testing.T) {
	for _, c := range []Component{Undefined(), Null(), Bool(false), Bool(true), Number(1e308), String("\xff")} {
		if c.Compare(Infinity()) >= 0 {
			t.Fatalf("%s not below Infinity", c)
		}
	}
}

func TestKey_JSONRoundTrip(t *testing.T) {
	key := Key{String("Account1"), Number(-12.75), Bool(true), Bool(false), Null(), Undefined(), String("quote\"d")}

	raw, err := key.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON error: %v", err)
	}
	want := `["Account1",-12.75,true,false,null,{},"quote\"d"]`
	if string(raw) != want {
		t.Fatalf("json = %s, want %s", raw, want)
	}

	parsed, err := ParseKeyJSON(raw)
	if err != nil {
		t.Fatalf("ParseKeyJSON error: %v", err)
	}
	if !parsed.Equal(key) {
		t.Fatalf("round trip = %s, want %s", parsed, key)
	}
}

func TestKey_JSONRejects(t *testing.T) {
	if _, err := (Key{Infinity()}).MarshalJSON(); !errors.Is(err, dberrors.ErrInvalidKeyShape) {
		t.Fatalf("marshal infinity: err = %v", err)
	}
	if _, err := (Key{String("ok"), String("\xff\xfe")}).MarshalJSON(); !errors.Is(err, dberrors.ErrInvalidArgument) {
		t.Fatalf("marshal invalid utf8: err = %v", err)
	}
	for _, in := range []string{`{"a":1}`, `[{"a":1}]`, `[[1]]`, `not json`} {
		if _, err := ParseKeyJSON([]byte(in)); !errors.Is(err, dberrors.ErrInvalidArgument) {
			t.Fatalf("ParseKeyJSON(%s): err = %v", in, err)
		}
	}
}

func TestKey_ValidateForStorage(t *testing.T) {
	if err := (Key{String("a"), Infinity()}).ValidateForStorage(); !errors.Is(err, dberrors.ErrInvalidKeyShape) {
		t.Fatalf("infinity accepted for storage: %v", err)
	}
	if err := (Key{}).ValidateForStorage(); !errors.Is(err, dberrors.ErrInvalidKeyShape) {
		t.Fatalf("empty key accepted for storage: %v", err)
	}
	if err := (Key{String("a"), Number(3)}).ValidateForStorage(); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
}

func TestEffectiveKey_TextRoundTrip(t *testing.T) {
	for _, epk := range []EffectiveKey{MinEffectiveKey, MaxEffectiveKey, {0x01, 0xab, 0x00}} {
		text, _ := epk.MarshalText()
		var back EffectiveKey
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s) error: %v", text, err)
		}
		if !back.Equal(epk) {
			t.Fatalf("round trip %s -> %s", epk, back)
		}
	}
	if MaxEffectiveKey.String() != "FF" {
		t.Fatalf("max renders as %q", MaxEffectiveKey.String())
	}
	if _, err := ParseEffectiveKey("zz"); !errors.Is(err, dberrors.ErrInvalidArgument) {
		t.Fatalf("bad hex accepted: %v", err)
	}
}

func TestParseSchemeKind(t *testing.T) {
	got := []SchemeKind{}
	for _, s := range []string{"Hash", "multihash", " RANGE "} {
		k, err := ParseSchemeKind(s)
		if err != nil {
			t.Fatalf("ParseSchemeKind(%q) error: %v", s, err)
		}
		got = append(got, k)
	}
	if diff := cmp.Diff([]SchemeKind{SchemeHash, SchemeMultiHash, SchemeRange}, got); diff != "" {
		t.Fatalf("kinds mismatch:\n%s", diff)
	}
	if _, err := ParseSchemeKind("Spatial"); !errors.Is(err, dberrors.ErrUnsupportedSchemeKind) {
		t.Fatalf("unknown kind accepted: %v", err)
	}
}
