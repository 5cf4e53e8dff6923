package bridge

import "github.com/pebbe/zmq4"

// SocketType names the ZeroMQ socket kinds Register accepts. String names
// are lower-case and matched case-insensitively by socketTypeByName.
type SocketType int

const (
	Pair SocketType = iota
	Pub
	Sub
	Req
	Rep
	XReq
	XRep
	Dealer
	Router
	XPub
	XSub
	Pull
	Push
)

func (t SocketType) String() string {
	switch t {
	case Pair:
		return "pair"
	case Pub:
		return "pub"
	case Sub:
		return "sub"
	case Req:
		return "req"
	case Rep:
		return "rep"
	case XReq:
		return "xreq"
	case XRep:
		return "xrep"
	case Dealer:
		return "dealer"
	case Router:
		return "router"
	case XPub:
		return "xpub"
	case XSub:
		return "xsub"
	case Pull:
		return "pull"
	case Push:
		return "push"
	default:
		return "unknown"
	}
}

// CommandFunc is a unit of work sent over :ctl-in to run on the socket
// loop's own OS thread, with direct access to the live *zmq4.Socket. A nil
// result delivers nothing on CtlOut; a non-nil result delivers exactly one
// command-result envelope tagged with the socket-id. An error is logged
// and also delivers nothing: a failed command is discarded, not retried.
type CommandFunc func(sock *zmq4.Socket) (result any, err error)

// commandKind discriminates the tagged union flowing from the channel
// loop to the socket loop over the bounded command queue.
type commandKind int

const (
	commandRegister commandKind = iota
	commandClose
	commandInvoke
	commandOutgoing
)

// command is the closed tagged union carried on Context.queue. Exactly one
// of the payload fields is meaningful, selected by kind.
type command struct {
	kind commandKind
	sid  string

	// commandRegister
	sock *zmq4.Socket

	// commandInvoke
	fn CommandFunc

	// commandOutgoing
	payload [][]byte
}

// controlKind discriminates the envelopes fed through the async control
// relay into channelLoop's inbox.
type controlKind int

const (
	controlRegisterRequest controlKind = iota
	controlCommandResult
	controlInbound
)

// controlEnvelope is the closed tagged union read out of the relay by
// channelLoop. The control channel itself being closed is modeled by the
// relay's output channel closing, not by a dedicated envelope kind — see
// channelLoop's endpointControl/!ok case.
type controlEnvelope struct {
	kind controlKind
	sid  string

	// controlRegisterRequest
	sock   *zmq4.Socket
	bundle Bundle

	// controlCommandResult
	result any

	// controlInbound
	payload [][]byte
}
