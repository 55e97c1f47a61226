package bridge

import "time"

// Time is the simulation clock resource. The driver advances it before every update with
// the delta the host passed to the callback.
type Time struct {
	// Delta is the host-provided delta of the running update, in seconds.
	Delta float64
	// Elapsed sums the deltas of every update of either kind.
	Elapsed float64
	Frame   FrameKind

	VisualDelta   float64
	PhysicsDelta  float64
	VisualFrames  uint64
	PhysicsFrames uint64
}

func (t *Time) advance(kind FrameKind, delta float64) {
	t.Delta = delta
	t.Elapsed += delta
	t.Frame = kind
	switch kind {
	case FrameVisual:
		t.VisualDelta = delta
		t.VisualFrames++
	case FramePhysics:
		t.PhysicsDelta = delta
		t.PhysicsFrames++
	}
}

// SystemDeltaTimer measures wall-clock time between successive runs of the system that
// owns it.
type SystemDeltaTimer struct {
	// Now overrides the clock; nil means time.Now.
	Now  func() time.Time
	last time.Time
}

// Delta returns the time since the previous call, or zero on the first call.
func (t *SystemDeltaTimer) Delta() time.Duration {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	current := now()
	if t.last.IsZero() {
		t.last = current
		return 0
	}
	delta := current.Sub(t.last)
	t.last = current
	return delta
}

// DeltaSeconds is Delta in seconds.
func (t *SystemDeltaTimer) DeltaSeconds() float64 {
	return t.Delta().Seconds()
}
