package bridge

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/momentics/zmqbridge/api"
	"github.com/pebbe/zmq4"
)

// wakeSentinel and wakeShutdown are the only two byte strings ever sent
// over a controlTransport's PAIR socket. The socket itself carries no
// command payload, only a cross-thread wake-up; the command value travels
// on the sibling Go channel.
var (
	wakeSentinel = []byte("sentinel")
	wakeShutdown = []byte("shutdown")
)

// controlTransport lets channelLoop hand commands to socketLoop across the
// OS-thread boundary. zmq4 sockets are not safe for concurrent use, and a
// *zmq4.Socket can only be touched from the thread that created it, so the
// command value itself cannot ride the PAIR socket: it travels on queue, a
// plain Go channel, while the PAIR socket supplies the one thing a Go
// channel can't, a wake-up socketLoop's poller can block on alongside its
// data sockets.
//
// The channel is bounded at a small, fixed capacity deliberately: commands
// originate from a single producer (channelLoop) driving application
// calls to Register/Close/Invoke/Send, and applying backpressure there
// when socketLoop falls behind is acceptable, unlike the socketLoop ->
// channelLoop direction, which uses the unbounded relay because blocking
// socketLoop on a slow application consumer would stall every registered
// socket.
type controlTransport struct {
	server *zmq4.Socket // PAIR, bound; polled by socketLoop
	client *zmq4.Socket // PAIR, connected; written by channelLoop
	queue  chan command

	mu     sync.Mutex
	closed bool

	sentinelsSent int64
}

const controlQueueCapacity = 8

func newControlTransport(zctx *zmq4.Context, endpoint string) (*controlTransport, error) {
	server, err := zctx.NewSocket(zmq4.PAIR)
	if err != nil {
		return nil, err
	}
	if err := server.Bind(endpoint); err != nil {
		server.Close()
		return nil, err
	}
	client, err := zctx.NewSocket(zmq4.PAIR)
	if err != nil {
		server.Close()
		return nil, err
	}
	if err := client.Connect(endpoint); err != nil {
		server.Close()
		client.Close()
		return nil, err
	}
	return &controlTransport{
		server: server,
		client: client,
		queue:  make(chan command, controlQueueCapacity),
	}, nil
}

// submit hands cmd to socketLoop: enqueue, then wake the poller. Enqueuing
// blocks if socketLoop has fallen more than controlQueueCapacity commands
// behind, which is the intended backpressure. Returns api.ErrQueueClosed
// once closeClient has run, instead of sending on a client socket that is
// about to disappear.
//
// The wake-up send is blocking, not DONTWAIT. A non-blocking send on a
// PAIR socket whose outgoing buffer happened to be full would drop the
// wake silently while the command it describes sat in queue forever; the
// bounded queue's own capacity of 8 keeps that buffer nowhere near full
// in practice, but a dropped wake is a stuck context, so the send is not
// given the chance to fail that way.
func (ct *controlTransport) submit(cmd command) error {
	ct.mu.Lock()
	closed := ct.closed
	ct.mu.Unlock()
	if closed {
		return api.ErrQueueClosed
	}

	ct.queue <- cmd
	if _, err := ct.client.SendBytes(wakeSentinel, 0); err != nil {
		log.Printf("zmqbridge: control wake send failed: %v", err)
		return err
	}
	atomic.AddInt64(&ct.sentinelsSent, 1)
	return nil
}

// submitShutdown wakes socketLoop with the shutdown tag instead of
// enqueueing a command, so socketLoop can tell "drain and stop" apart from
// "a command is waiting" without first touching the queue.
func (ct *controlTransport) submitShutdown() {
	if _, err := ct.client.SendBytes(wakeShutdown, 0); err != nil {
		log.Printf("zmqbridge: control shutdown wake send failed: %v", err)
	}
}

// closeClient closes the client end only, after marking the transport
// closed so any late submit sees api.ErrQueueClosed instead of sending on
// a socket that's about to go away. The server end is closed by socketLoop
// itself as the last step of its own shutdown tag handling, since that
// socket is thread-confined to socketLoop for its whole life just like any
// registered data socket.
func (ct *controlTransport) closeClient() {
	ct.mu.Lock()
	ct.closed = true
	ct.mu.Unlock()
	if err := ct.client.Close(); err != nil {
		log.Printf("zmqbridge: closing control client socket: %v", err)
	}
}
