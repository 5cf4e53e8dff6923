package bridge

import (
	"sync"

	"github.com/eapache/queue"
)

// relay is an unbounded FIFO from socketLoop to channelLoop. Its producer
// side (push) never blocks regardless of how far channelLoop falls behind;
// its consumer side is a plain Go channel (out) so channelLoop can include
// it as one case of its dynamic reflect.Select alongside every bundle's
// channels. The two sides are bridged by a background forwarder goroutine
// that drains the backing queue and feeds out one envelope at a time,
// blocking only itself, never the producer.
type relay struct {
	mu     sync.Mutex
	q      *queue.Queue
	signal chan struct{}
	closed bool

	out chan controlEnvelope
}

// newRelay starts the forwarder goroutine and returns the relay. capacity
// sizes out only, which is a pacing buffer for the forwarder, not a bound
// on how much push can accept; the backing queue grows without limit.
func newRelay(capacity int) *relay {
	r := &relay{
		q:      queue.New(),
		signal: make(chan struct{}, 1),
		out:    make(chan controlEnvelope, capacity),
	}
	go r.forward()
	return r
}

// push enqueues an envelope and returns immediately, reporting whether the
// envelope was accepted. Called from socketLoop's OS thread, so it must
// never block on channelLoop. Returns false once close has run; callers
// that need to surface that to an application (Register does) check it,
// callers internal to the two loops (socketLoop's own forwarding) don't,
// since a relay closed mid-shutdown is expected there.
func (r *relay) push(e controlEnvelope) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.q.Add(e)
	r.mu.Unlock()
	r.wake()
	return true
}

// close stops accepting new envelopes. Already-queued envelopes still
// drain through out before it closes, so an envelope pushed just before
// close is guaranteed to be delivered before channelLoop observes out
// closing and tears everything down.
func (r *relay) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wake()
}

func (r *relay) wake() {
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

func (r *relay) forward() {
	defer close(r.out)
	for {
		r.mu.Lock()
		for r.q.Length() == 0 && !r.closed {
			r.mu.Unlock()
			<-r.signal
			r.mu.Lock()
		}
		if r.q.Length() == 0 {
			r.mu.Unlock()
			return
		}
		e := r.q.Remove().(controlEnvelope)
		r.mu.Unlock()
		r.out <- e
	}
}
