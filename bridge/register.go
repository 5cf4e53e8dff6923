package bridge

import (
	"github.com/momentics/zmqbridge/api"
	"github.com/pebbe/zmq4"
)

// Configurator binds or connects a freshly created socket. Called once,
// synchronously, before the socket is handed off to socketLoop.
type Configurator func(sock *zmq4.Socket) error

// RegisterOptions describes one socket registration. Exactly one of
// Socket or (SocketType set via WithSocketType + Configurator) must be
// supplied; Bundle must carry at least one of In or Out.
type RegisterOptions struct {
	Context *Context

	Bundle Bundle

	Socket *zmq4.Socket

	socketType    SocketType
	hasSocketType bool
	Configurator  Configurator
}

// WithSocketType records the socket type to create, distinguishing "type
// explicitly set to Pair" (zero value) from "type not set at all".
func (o RegisterOptions) WithSocketType(t SocketType) RegisterOptions {
	o.socketType = t
	o.hasSocketType = true
	return o
}

func (o RegisterOptions) validate() error {
	if err := o.Bundle.validate(); err != nil {
		return err
	}
	hasSocket := o.Socket != nil
	hasTypeAndConfigurator := o.hasSocketType && o.Configurator != nil
	hasPartialTypeConfig := (o.hasSocketType || o.Configurator != nil) && !hasTypeAndConfigurator

	switch {
	case hasSocket && (o.hasSocketType || o.Configurator != nil):
		return api.NewError(api.ErrCodeInvalidArgument,
			"register: give either a pre-built socket, or socket-type and configurator, never both").
			WithContext("component", "bridge.Register")
	case hasPartialTypeConfig:
		return api.NewError(api.ErrCodeInvalidArgument,
			"register: socket-type and configurator must be given together").
			WithContext("component", "bridge.Register")
	case !hasSocket && !hasTypeAndConfigurator:
		return api.NewError(api.ErrCodeInvalidArgument,
			"register: give either a pre-built socket, or socket-type and configurator").
			WithContext("component", "bridge.Register")
	}
	return nil
}

// Register is the only way to introduce a socket into a context. It
// validates its arguments synchronously, builds and configures the
// socket if the caller didn't supply one, and hands the (socket, bundle)
// pair to channelLoop over the async control relay; channelLoop assigns
// the socket-id and forwards the socket itself to socketLoop. The caller
// already holds the bundle's channels, so Register reports only a
// synchronous validation or construction error, never a socket-id.
func Register(opts RegisterOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}

	ctx := opts.Context
	if ctx == nil {
		ctx = Global()
	}
	ctx.Initialize()

	// After Shutdown the native context may already be terminated, so the
	// closed relay is checked before any socket is created on it.
	ctx.relay.mu.Lock()
	closed := ctx.relay.closed
	ctx.relay.mu.Unlock()
	if closed {
		return api.ErrContextClosed
	}

	sock := opts.Socket
	if sock == nil {
		var err error
		sock, err = ctx.zctx.NewSocket(opts.socketType.zmqType())
		if err != nil {
			return api.NewError(api.ErrCodeInternal, "register: creating socket failed").
				WithContext("cause", err.Error())
		}
		if err := opts.Configurator(sock); err != nil {
			sock.Close()
			return api.NewError(api.ErrCodeInternal, "register: configurator failed").
				WithContext("cause", err.Error())
		}
	}

	if !ctx.relay.push(controlEnvelope{kind: controlRegisterRequest, sock: sock, bundle: opts.Bundle}) {
		if opts.Socket == nil {
			sock.Close()
		}
		return api.ErrContextClosed
	}
	return nil
}
