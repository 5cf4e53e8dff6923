package bridge

import "github.com/momentics/zmqbridge/api"

// Bundle is the per-socket set of channels tied to one registered socket
// by its socket-id in the registration table: up to four independently
// optional channels.
//
// In and CtlIn are read by channelLoop and written by the application.
// Out and CtlOut are written by channelLoop (non-blocking) and read by the
// application. At least one of In and Out must be non-nil; CtlIn and
// CtlOut are independent of each other and of In/Out.
type Bundle struct {
	In     chan [][]byte   // application -> system, payloads to transmit
	Out    chan [][]byte   // system -> application, inbound payloads
	CtlIn  chan CommandFunc // application -> system, to run on the socket loop
	CtlOut chan any         // system -> application, command results
}

// validate rejects a bundle with neither a transmit nor a receive channel,
// since such a bundle could never do anything useful once registered.
// CtlIn/CtlOut have no such constraint.
func (b Bundle) validate() error {
	if b.In == nil && b.Out == nil {
		return api.NewError(api.ErrCodeInvalidArgument,
			"register: bundle needs at least one of in or out").
			WithContext("component", "bridge.Bundle")
	}
	return nil
}

// closeAll closes every non-nil channel in the bundle, both the sides the
// channel loop owns (Out, CtlOut) and the sides the application owns (In,
// CtlIn). In and CtlIn may already have been closed by the application
// itself (its way of signaling "done sending"), which is what triggered
// this teardown in the first place, so each close is guarded against the
// resulting double-close panic.
func (b Bundle) closeAll() {
	safeClose(b.In)
	safeClose(b.Out)
	safeClose(b.CtlIn)
	safeClose(b.CtlOut)
}

// safeClose closes a channel, swallowing the panic from a channel already
// closed by its other owner. Go channels have no "close if not closed"
// primitive; the bundle's In/CtlIn sides are closable by both the
// application and the channel loop, so this ambiguity is structural, not
// a bug to fix.
func safeClose[T any](ch chan T) {
	if ch == nil {
		return
	}
	defer func() { recover() }()
	close(ch)
}
