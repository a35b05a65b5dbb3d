package usecase

import "github.com/andrepadez/ostt/internal/domain"

// levelRing is a bounded queue of amplitude samples. The capture loop is
// the only writer; when full, the oldest sample is dropped so the newest
// always fits. The render loop drains without ever blocking.
type levelRing struct {
	ch chan domain.AmplitudeSample
}

func newLevelRing(capacity int) *levelRing {
	if capacity <= 0 {
		capacity = 256
	}
	return &levelRing{ch: make(chan domain.AmplitudeSample, capacity)}
}

// push inserts a sample, evicting the oldest one when the ring is full.
// Must only be called from the single capture loop.
func (r *levelRing) push(s domain.AmplitudeSample) {
	for {
		select {
		case r.ch <- s:
			return
		default:
		}
		select {
		case <-r.ch:
		default:
		}
	}
}

// pop returns the next sample in arrival order, or false if none pending.
func (r *levelRing) pop() (domain.AmplitudeSample, bool) {
	select {
	case s := <-r.ch:
		return s, true
	default:
		return 0, false
	}
}

func (r *levelRing) len() int {
	return len(r.ch)
}
