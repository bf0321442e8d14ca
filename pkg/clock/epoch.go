package clock

import "sync/atomic"

// Epoch numbers routing topology versions. Each observed change takes the
// next value; zero means nothing has been loaded yet.
type Epoch struct {
	v atomic.Uint64
}

func NewEpoch(init uint64) *Epoch {
	var e Epoch
	e.v.Store(init)
	return &e
}

func (e *Epoch) Val() uint64 {
	return e.v.Load()
}

func (e *Epoch) Next() uint64 {
	return e.v.Add(1)
}
