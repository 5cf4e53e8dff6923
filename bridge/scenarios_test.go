package bridge

import (
	"testing"
	"time"

	"github.com/pebbe/zmq4"
)

// TestDropOnFullOutKeepsOtherBundleLive covers scenario 4: a bundle whose
// out channel is too small to keep up must drop and log rather than wedge
// channelLoop, and an unrelated bundle must keep making progress.
func TestDropOnFullOutKeepsOtherBundleLive(t *testing.T) {
	ctx := newTestContext(t)

	slowAddr := uniqueEndpoint(t)
	slowOut := make(chan [][]byte, 1)
	slowOpts := RegisterOptions{Context: ctx, Bundle: Bundle{Out: slowOut}}.WithSocketType(Pull)
	slowOpts.Configurator = func(sock *zmq4.Socket) error { return sock.Bind(slowAddr) }
	if err := Register(slowOpts); err != nil {
		t.Fatalf("register slow pull: %v", err)
	}
	slowPushIn := make(chan [][]byte, 16)
	slowPushOpts := RegisterOptions{Context: ctx, Bundle: Bundle{In: slowPushIn}}.WithSocketType(Push)
	slowPushOpts.Configurator = func(sock *zmq4.Socket) error { return sock.Connect(slowAddr) }
	if err := Register(slowPushOpts); err != nil {
		t.Fatalf("register slow push: %v", err)
	}

	fastAddr := uniqueEndpoint(t)
	fastOut := make(chan [][]byte, 4)
	fastOpts := RegisterOptions{Context: ctx, Bundle: Bundle{Out: fastOut}}.WithSocketType(Pull)
	fastOpts.Configurator = func(sock *zmq4.Socket) error { return sock.Bind(fastAddr) }
	if err := Register(fastOpts); err != nil {
		t.Fatalf("register fast pull: %v", err)
	}
	fastPushIn := make(chan [][]byte, 4)
	fastPushOpts := RegisterOptions{Context: ctx, Bundle: Bundle{In: fastPushIn}}.WithSocketType(Push)
	fastPushOpts.Configurator = func(sock *zmq4.Socket) error { return sock.Connect(fastAddr) }
	if err := Register(fastPushOpts); err != nil {
		t.Fatalf("register fast push: %v", err)
	}

	for i := 0; i < 8; i++ {
		slowPushIn <- [][]byte{[]byte("flood")}
	}
	time.Sleep(100 * time.Millisecond) // let several deliveries overrun slowOut's capacity of 1

	fastPushIn <- [][]byte{[]byte("still-alive")}
	got := recvOrTimeout(t, fastOut, 2*time.Second)
	if len(got) != 1 || string(got[0]) != "still-alive" {
		t.Fatalf("fast bundle stalled behind slow bundle's drops: got %q", got)
	}

	stats := ctx.Control().Stats()
	dropped, _ := stats["bridge.out.dropped"].(int64)
	if dropped == 0 {
		t.Fatalf("expected bridge.out.dropped to have counted at least one drop, stats=%v", stats)
	}
}

// TestBackpressureBlocksProducerOnFullQueue covers P7: once the bounded
// command queue between channelLoop and socketLoop is saturated,
// channelLoop's submit blocks inside its own select loop, which in turn
// blocks a producer trying to hand it a new :ctl-in value, until
// socketLoop drains a slot. channelLoop has no concurrency of its own, so
// this necessarily stalls every registered bundle, not just the busy
// one — that propagation is the backpressure the bounded queue exists to
// apply.
func TestBackpressureBlocksProducerOnFullQueue(t *testing.T) {
	ctx := newTestContext(t)

	addr := uniqueEndpoint(t)
	busyCtlIn := make(chan CommandFunc)
	opts := RegisterOptions{
		Context: ctx,
		Bundle:  Bundle{CtlIn: busyCtlIn, Out: make(chan [][]byte, 1)},
	}.WithSocketType(Pair)
	opts.Configurator = func(sock *zmq4.Socket) error { return sock.Bind(addr) }
	if err := Register(opts); err != nil {
		t.Fatalf("register: %v", err)
	}

	released := make(chan struct{})
	slowFn := func(sock *zmq4.Socket) (any, error) {
		<-released
		return nil, nil
	}

	// The first invoke wakes socketLoop, which dequeues it and blocks
	// inside slowFn; the next controlQueueCapacity invokes pile up in the
	// bounded queue without socketLoop draining any of them, filling it
	// exactly to capacity. One more invoke is still received by
	// channelLoop, whose submit of it then blocks on the full queue.
	for i := 0; i < controlQueueCapacity+2; i++ {
		busyCtlIn <- slowFn
	}

	producerDone := make(chan struct{})
	go func() {
		busyCtlIn <- slowFn // channelLoop is stuck in submit; this send blocks
		close(producerDone)
	}()

	select {
	case <-producerDone:
		t.Fatal("producer did not block on a saturated command queue")
	case <-time.After(200 * time.Millisecond):
	}

	close(released)

	select {
	case <-producerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("producer stayed blocked after socketLoop drained the queue")
	}
}

// TestPollerFairnessNoStarvation covers scenario 6's safety property:
// with several sockets fed in lockstep, every one of them must eventually
// get serviced even when more than one has POLLIN set at once, which only
// holds if the tie-break is randomized rather than fixed-priority.
func TestPollerFairnessNoStarvation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping fairness sweep in -short mode")
	}
	ctx := newTestContext(t)

	const sockets = 3
	const rounds = 3000

	outs := make([]chan [][]byte, sockets)
	ins := make([]chan [][]byte, sockets)
	for i := 0; i < sockets; i++ {
		addr := uniqueEndpoint(t)
		outs[i] = make(chan [][]byte, rounds)
		pullOpts := RegisterOptions{Context: ctx, Bundle: Bundle{Out: outs[i]}}.WithSocketType(Pull)
		pullOpts.Configurator = func(sock *zmq4.Socket) error { return sock.Bind(addr) }
		if err := Register(pullOpts); err != nil {
			t.Fatalf("register pull %d: %v", i, err)
		}
		ins[i] = make(chan [][]byte, rounds)
		pushOpts := RegisterOptions{Context: ctx, Bundle: Bundle{In: ins[i]}}.WithSocketType(Push)
		pushOpts.Configurator = func(sock *zmq4.Socket) error { return sock.Connect(addr) }
		if err := Register(pushOpts); err != nil {
			t.Fatalf("register push %d: %v", i, err)
		}
	}
	time.Sleep(50 * time.Millisecond)

	for r := 0; r < rounds; r++ {
		for i := 0; i < sockets; i++ {
			ins[i] <- [][]byte{[]byte("x")}
		}
	}

	counts := make([]int, sockets)
	deadline := time.After(10 * time.Second)
	for total := 0; total < sockets*rounds; {
		select {
		case <-outs[0]:
			counts[0]++
			total++
		case <-outs[1]:
			counts[1]++
			total++
		case <-outs[2]:
			counts[2]++
			total++
		case <-deadline:
			t.Fatalf("timed out collecting deliveries, got %v so far", counts)
		}
	}

	for i, c := range counts {
		if c != rounds {
			t.Fatalf("socket %d delivered %d of %d expected messages", i, c, rounds)
		}
	}
}
