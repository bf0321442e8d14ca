package selector

// Equal reports whether a and b are the same variant with the same target.
func Equal(a, b Selector) bool {
	switch x := a.(type) {
	case *ExactKey:
		y, ok := b.(*ExactKey)
		return ok && x.key.Equal(y.key)
	case *PhysicalRange:
		y, ok := b.(*PhysicalRange)
		if !ok || x.partition.ID != y.partition.ID || !x.partition.Range().Equal(y.partition.Range()) {
			return false
		}
		xs, xok := x.SubRange()
		ys, yok := y.SubRange()
		return xok == yok && xs.Equal(ys)
	case *ResolvedInterval:
		y, ok := b.(*ResolvedInterval)
		return ok && x.rng.Equal(y.rng)
	default:
		return false
	}
}
