package bridge

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/momentics/zmqbridge/adapters"
	"github.com/momentics/zmqbridge/api"
	"github.com/pebbe/zmq4"
)

// relayCapacity sizes the control relay's output channel. It is a pacing
// buffer only: relay.push never blocks regardless of this number, since
// the backing queue it drains from has no size limit.
const relayCapacity = 16

var contextSeq int64

// Context is a process-scoped holder of one native messaging context, its
// control transport, and the two worker loops built on top of them. A
// Context is created once and torn down once; there is no restart, a
// fresh Context must be built in its place.
type Context struct {
	zctx *zmq4.Context
	ctl  *controlTransport
	relay *relay

	metrics *adapters.ControlAdapter

	sidCounter        int64
	registeredSockets int64
	sentinelsReceived int64

	pinSocketCPU  int
	pinChannelCPU int

	initOnce sync.Once
	wg       sync.WaitGroup
}

// CreateContext builds a native messaging context, the control transport,
// and the async control relay, but starts neither worker thread; call
// Initialize to start them. name, if non-empty, is folded into the
// control transport's inproc address so multiple contexts in one process
// don't collide; an empty name gets a process-unique counter instead.
func CreateContext(name string) (*Context, error) {
	zctx, err := zmq4.NewContext()
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = strconv.FormatInt(atomic.AddInt64(&contextSeq, 1), 10)
	}
	// newControlTransport binds the server PAIR before connecting the
	// client PAIR; inproc:// requires the bind to exist first.
	ctl, err := newControlTransport(zctx, "inproc://zmqbridge-ctl-"+name)
	if err != nil {
		zctx.Term()
		return nil, err
	}

	c := &Context{
		zctx:          zctx,
		ctl:           ctl,
		relay:         newRelay(relayCapacity),
		metrics:       adapters.NewControlAdapter(),
		pinSocketCPU:  -1,
		pinChannelCPU: -1,
	}
	c.registerDebugProbes()
	return c, nil
}

// registerDebugProbes exposes the counters socketLoop and channelLoop
// maintain as named probes on the context's control adapter, so anything
// holding a Control() can inspect queue depth, registration-table size,
// and the sentinel-wake handshake without reaching into bridge internals.
func (c *Context) registerDebugProbes() {
	c.metrics.RegisterDebugProbe("bridge.queue_depth", func() any {
		return len(c.ctl.queue)
	})
	c.metrics.RegisterDebugProbe("bridge.registered_sockets", func() any {
		return atomic.LoadInt64(&c.registeredSockets)
	})
	c.metrics.RegisterDebugProbe("bridge.sentinels_sent", func() any {
		return atomic.LoadInt64(&c.ctl.sentinelsSent)
	})
	c.metrics.RegisterDebugProbe("bridge.sentinels_received", func() any {
		return atomic.LoadInt64(&c.sentinelsReceived)
	})
}

// Control exposes the context's metrics, config, and debug-probe surface.
func (c *Context) Control() api.Control {
	return c.metrics
}

// PinSocketLoop requests that socketLoop's OS thread be pinned to the
// given logical CPU once it starts. Must be called before Initialize;
// has no effect afterward. A negative cpu leaves the thread unpinned.
func (c *Context) PinSocketLoop(cpu int) {
	c.pinSocketCPU = cpu
}

// PinChannelLoop is PinSocketLoop's counterpart for channelLoop's thread.
func (c *Context) PinChannelLoop(cpu int) {
	c.pinChannelCPU = cpu
}

// Initialize starts socketLoop and channelLoop. The control transport's
// server side was already bound, and its client side connected, by
// CreateContext. Safe to call more than once; only the first call has any
// effect.
func (c *Context) Initialize() {
	c.initOnce.Do(func() {
		c.wg.Add(2)
		go c.socketLoop()
		go c.channelLoop()
		go func() {
			c.wg.Wait()
			c.ctl.closeClient()
			c.zctx.Term()
		}()
	})
}

// Shutdown closes the async control channel, which is channelLoop's
// signal to tear down every registered socket, wake socketLoop with the
// shutdown tag, and exit; socketLoop then exits once it has closed every
// socket including its own control endpoint. Shutdown returns as soon as
// the signal is given; call Wait to block until both loops have actually
// exited.
func (c *Context) Shutdown() {
	c.relay.close()
}

// Wait blocks until both socketLoop and channelLoop have exited.
func (c *Context) Wait() {
	c.wg.Wait()
}
