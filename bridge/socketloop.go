package bridge

import (
	"fmt"
	"log"
	"math/rand"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/momentics/zmqbridge/affinity"
	"github.com/pebbe/zmq4"
)

// socketTable is the state socketLoop owns exclusively: the live sockets
// by id, and the reverse lookup a polled *zmq4.Socket needs resolved back
// to an id before it can be dispatched or forwarded.
type socketTable struct {
	byID     map[string]*zmq4.Socket
	byServer map[*zmq4.Socket]string
}

func newSocketTable() *socketTable {
	return &socketTable{
		byID:     map[string]*zmq4.Socket{},
		byServer: map[*zmq4.Socket]string{},
	}
}

func (t *socketTable) put(sid string, sock *zmq4.Socket) {
	t.byID[sid] = sock
	t.byServer[sock] = sid
}

func (t *socketTable) delete(sid string) (*zmq4.Socket, bool) {
	sock, ok := t.byID[sid]
	if !ok {
		return nil, false
	}
	delete(t.byID, sid)
	delete(t.byServer, sock)
	return sock, true
}

// socketLoop is thread B. It owns every registered *zmq4.Socket for the
// lifetime of the context, confined to one OS thread for the whole run so
// that "every live socket handle is touched only by thread B" is an actual
// runtime guarantee and not just a coding discipline.
func (c *Context) socketLoop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer c.wg.Done()

	if c.pinSocketCPU >= 0 {
		if err := affinity.SetAffinity(c.pinSocketCPU); err != nil {
			log.Printf("zmqbridge: pinning socket loop to CPU %d failed: %v", c.pinSocketCPU, err)
		}
	}

	table := newSocketTable()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		poller := zmq4.NewPoller()
		poller.Add(c.ctl.server, zmq4.POLLIN)
		for _, sock := range table.byID {
			poller.Add(sock, zmq4.POLLIN)
		}

		polled, err := poller.Poll(-1)
		if err != nil {
			log.Printf("zmqbridge: poll error: %v", err)
			continue
		}
		if len(polled) == 0 {
			continue
		}

		chosen := polled[rng.Intn(len(polled))].Socket
		payload, err := chosen.RecvMessageBytes(0)

		if chosen == c.ctl.server {
			if err != nil {
				log.Printf("zmqbridge: recv on control socket failed: %v", err)
				continue
			}
			if !c.dispatchControl(payload, table) {
				return
			}
			continue
		}

		sid := table.byServer[chosen]
		if err != nil {
			log.Printf("zmqbridge: recv on %s failed: %v", sid, err)
			continue
		}
		c.relay.push(controlEnvelope{kind: controlInbound, sid: sid, payload: payload})
	}
}

// dispatchControl handles one ready event on the control PAIR socket. It
// returns false when the caller should stop socketLoop entirely.
func (c *Context) dispatchControl(payload [][]byte, table *socketTable) bool {
	if len(payload) != 1 {
		panic(fmt.Sprintf("zmqbridge: control socket received %d parts, want exactly 1", len(payload)))
	}
	switch string(payload[0]) {
	case string(wakeSentinel):
		atomic.AddInt64(&c.sentinelsReceived, 1)
		cmd := <-c.ctl.queue
		c.execCommand(cmd, table)
		return true
	case string(wakeShutdown):
		for sid, sock := range table.byID {
			if err := sock.Close(); err != nil {
				log.Printf("zmqbridge: closing socket %s during shutdown: %v", sid, err)
			}
		}
		if err := c.ctl.server.Close(); err != nil {
			log.Printf("zmqbridge: closing control socket during shutdown: %v", err)
		}
		return false
	default:
		panic(fmt.Sprintf("zmqbridge: unknown control tag %q", payload[0]))
	}
}

func (c *Context) execCommand(cmd command, table *socketTable) {
	switch cmd.kind {
	case commandRegister:
		table.put(cmd.sid, cmd.sock)

	case commandClose:
		sock, ok := table.delete(cmd.sid)
		if !ok {
			return
		}
		if err := sock.Close(); err != nil {
			log.Printf("zmqbridge: closing socket %s: %v", cmd.sid, err)
		}

	case commandInvoke:
		sock, ok := table.byID[cmd.sid]
		if !ok {
			log.Printf("zmqbridge: command for unknown socket %s dropped", cmd.sid)
			return
		}
		result, err := safeInvoke(cmd.fn, sock)
		if err != nil {
			log.Printf("zmqbridge: command on socket %s failed: %v", cmd.sid, err)
			return
		}
		if result != nil {
			c.relay.push(controlEnvelope{kind: controlCommandResult, sid: cmd.sid, result: result})
		}

	case commandOutgoing:
		sock, ok := table.byID[cmd.sid]
		if !ok {
			log.Printf("zmqbridge: outgoing payload for unknown socket %s dropped", cmd.sid)
			return
		}
		sendPayload(sock, cmd.payload)

	default:
		panic(fmt.Sprintf("zmqbridge: unknown command kind %d", cmd.kind))
	}
}

// safeInvoke runs fn and converts a panic into an error, mirroring the
// "user command exception... caught and logged" policy for arbitrary
// application-supplied closures running on B's thread.
func safeInvoke(fn CommandFunc, sock *zmq4.Socket) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(sock)
}

// sendPayload transmits a single- or multipart payload non-blocking. A
// would-block on any part drops that part and every part after it; the
// caller has no equivalent of backpressure on the outgoing direction, so
// liveness is preferred over delivery.
func sendPayload(sock *zmq4.Socket, payload [][]byte) {
	for i, part := range payload {
		flags := zmq4.DONTWAIT
		if i < len(payload)-1 {
			flags |= zmq4.SNDMORE
		}
		if _, err := sock.SendBytes(part, flags); err != nil {
			log.Printf("zmqbridge: send part %d/%d dropped: %v", i+1, len(payload), err)
			return
		}
	}
}
