package bridge

import (
	"strings"

	"github.com/momentics/zmqbridge/api"
	"github.com/pebbe/zmq4"
)

// zmqType maps a SocketType to the underlying zmq4.Type used to construct
// the real socket.
func (t SocketType) zmqType() zmq4.Type {
	switch t {
	case Pair:
		return zmq4.PAIR
	case Pub:
		return zmq4.PUB
	case Sub:
		return zmq4.SUB
	case Req:
		return zmq4.REQ
	case Rep:
		return zmq4.REP
	case XReq:
		return zmq4.XREQ
	case XRep:
		return zmq4.XREP
	case Dealer:
		return zmq4.DEALER
	case Router:
		return zmq4.ROUTER
	case XPub:
		return zmq4.XPUB
	case XSub:
		return zmq4.XSUB
	case Pull:
		return zmq4.PULL
	case Push:
		return zmq4.PUSH
	default:
		return zmq4.PAIR
	}
}

// WithSocketTypeName is WithSocketType's by-name counterpart, for callers
// that take the socket type as a configuration string (a CLI flag, a
// config file value) rather than the SocketType enum directly.
func (o RegisterOptions) WithSocketTypeName(name string) (RegisterOptions, error) {
	t, ok := socketTypeByName(name)
	if !ok {
		return o, api.NewError(api.ErrCodeInvalidArgument, "register: unknown socket type name").
			WithContext("name", name)
	}
	return o.WithSocketType(t), nil
}

// socketTypeByName resolves a case-insensitive socket type name to a
// SocketType, reporting ok=false for anything it doesn't recognize.
func socketTypeByName(name string) (t SocketType, ok bool) {
	switch strings.ToLower(name) {
	case "pair":
		return Pair, true
	case "pub":
		return Pub, true
	case "sub":
		return Sub, true
	case "req":
		return Req, true
	case "rep":
		return Rep, true
	case "xreq":
		return XReq, true
	case "xrep":
		return XRep, true
	case "dealer":
		return Dealer, true
	case "router":
		return Router, true
	case "xpub":
		return XPub, true
	case "xsub":
		return XSub, true
	case "pull":
		return Pull, true
	case "push":
		return Push, true
	default:
		return 0, false
	}
}
