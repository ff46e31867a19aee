package dynamics

// Extinctions records which species have gone extinct and when. The
// simulation driver is the only writer; derivative evaluators only read it,
// pinning extinct biomasses to zero. Marks are permanent.
type Extinctions struct {
	time map[int]float64
}

func NewExtinctions() *Extinctions {
	return &Extinctions{time: make(map[int]float64)}
}

// Mark records species i as extinct at time t. Idempotent: the first mark
// wins, so re-marking during overlapping solver steps is safe.
func (e *Extinctions) Mark(i int, t float64) {
	if _, ok := e.time[i]; !ok {
		e.time[i] = t
	}
}

func (e *Extinctions) Extinct(i int) bool {
	_, ok := e.time[i]
	return ok
}

func (e *Extinctions) Count() int { return len(e.time) }

// Times returns a copy of the extinction record.
func (e *Extinctions) Times() map[int]float64 {
	out := make(map[int]float64, len(e.time))
	for i, t := range e.time {
		out[i] = t
	}
	return out
}
