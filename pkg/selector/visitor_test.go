package selector

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pkrouting/pkg/partitionkey"
	"pkrouting/pkg/routing"
)

// feedPlanner stands in for a change-feed reader choosing where to start.
type feedPlanner struct {
	visited []string
	starts  []partitionkey.EffectiveKey
}

func (f *feedPlanner) VisitExactKey(s *ExactKey) error {
	f.visited = append(f.visited, "pk")
	ranges, err := s.EffectiveRanges(tenantOrder)
	if err != nil {
		return err
	}
	f.starts = append(f.starts, ranges[0].Min)
	return nil
}

func (f *feedPlanner) VisitPhysicalRange(s *PhysicalRange) error {
	f.visited = append(f.visited, "pkrange")
	f.starts = append(f.starts, s.Partition().Min)
	return nil
}

func (f *feedPlanner) VisitResolvedInterval(s *ResolvedInterval) error {
	f.visited = append(f.visited, "interval")
	f.starts = append(f.starts, s.Range().Min)
	return nil
}

func TestVisitor_DispatchesPerVariant(t *testing.T) {
	exact := mustExact(t, tenantOrder, partitionkey.String("Account1"))
	phys, _ := NewPhysicalRange(routing.Partition{ID: "2", Min: ek(t, "20"), Max: ek(t, "30")})
	interval, _ := NewResolvedInterval(ek(t, "05"), ek(t, "06"))

	var f feedPlanner
	for _, s := range []Selector{interval, exact, phys} {
		if err := s.Accept(&f); err != nil {
			t.Fatalf("Accept error: %v", err)
		}
	}
	if diff := cmp.Diff([]string{"interval", "pk", "pkrange"}, f.visited); diff != "" {
		t.Fatalf("dispatch order mismatch:\n%s", diff)
	}
	if !f.starts[0].Equal(ek(t, "05")) || !f.starts[2].Equal(ek(t, "20")) {
		t.Fatalf("starts = %v", f.starts)
	}
}

type failingVisitor struct{ feedPlanner }

var errStop = errors.New("stop")

func (failingVisitor) VisitExactKey(*ExactKey) error { return errStop }

func TestVisitor_ErrorPropagates(t *testing.T) {
	exact := mustExact(t, tenantOrder, partitionkey.String("Account1"))
	if err := exact.Accept(&failingVisitor{}); !errors.Is(err, errStop) {
		t.Fatalf("err = %v", err)
	}
	if _, err := Render(&ResolvedInterval{rng: partitionkey.FullRange()}); err != nil {
		t.Fatalf("Render error: %v", err)
	}
}
