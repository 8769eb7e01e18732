package clock

import (
	"sync"
	"time"
)

// Virtual is a manually advanced Clock. Callbacks fire synchronously on the
// goroutine calling Advance, in deadline order; ties fire in arming order.
type Virtual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	events map[uint64]*event
}

type event struct {
	id     uint64
	order  uint64 // breaks deadline ties, refreshed on every re-arm
	at     time.Time
	period time.Duration // zero for one-shot timers
	f      func()
}

// NewVirtual returns a virtual clock reading start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{
		now:    start,
		events: make(map[uint64]*event),
	}
}

func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *Virtual) AfterFunc(d time.Duration, f func()) Timer {
	return v.schedule(d, 0, f)
}

func (v *Virtual) Every(d time.Duration, f func()) Timer {
	if d <= 0 {
		panic("clock: non-positive interval for Every")
	}
	return v.schedule(d, d, f)
}

func (v *Virtual) schedule(d, period time.Duration, f func()) Timer {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	v.events[v.seq] = &event{id: v.seq, order: v.seq, at: v.now.Add(d), period: period, f: f}
	return &virtualTimer{clock: v, id: v.seq}
}

// Advance moves the clock forward by d, firing every callback that falls due.
// Callbacks may arm or stop timers; newly armed timers that fall due within
// the same window fire too.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	target := v.now.Add(d)
	for {
		next := v.nextDue(target)
		if next == nil {
			break
		}
		v.now = next.at
		f := next.f
		if next.period > 0 {
			v.seq++
			next.order = v.seq
			next.at = next.at.Add(next.period)
		} else {
			delete(v.events, next.id)
		}
		v.mu.Unlock()
		f()
		v.mu.Lock()
	}
	v.now = target
	v.mu.Unlock()
}

// nextDue returns the earliest event due at or before target. Caller holds mu.
func (v *Virtual) nextDue(target time.Time) *event {
	var next *event
	for _, e := range v.events {
		if e.at.After(target) {
			continue
		}
		if next == nil || e.at.Before(next.at) || (e.at.Equal(next.at) && e.order < next.order) {
			next = e
		}
	}
	return next
}

// Pending returns the number of armed timers.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.events)
}

type virtualTimer struct {
	clock *Virtual
	id    uint64
}

func (t *virtualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if _, ok := t.clock.events[t.id]; !ok {
		return false
	}
	delete(t.clock.events, t.id)
	return true
}
