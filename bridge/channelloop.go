package bridge

import (
	"fmt"
	"log"
	"reflect"
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/momentics/zmqbridge/affinity"
)

// endpointKind tags what a reflect.Select case feeds into channelLoop's
// dispatch: either the shared control relay, or one bundle endpoint that
// channelLoop reads (a bundle's write-side endpoints, Out and CtlOut, are
// never selected on; channelLoop only ever sends on those).
type endpointKind int

const (
	endpointControl endpointKind = iota
	endpointIn
	endpointCtlIn
)

type selectMeta struct {
	kind endpointKind
	sid  string
}

// channelLoop is thread C. It owns the registration table for the whole
// run, confined to one OS thread so every bundle endpoint is touched only
// here, mirroring socketLoop's confinement of the native sockets.
func (c *Context) channelLoop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer c.wg.Done()

	if c.pinChannelCPU >= 0 {
		if err := affinity.SetAffinity(c.pinChannelCPU); err != nil {
			log.Printf("zmqbridge: pinning channel loop to CPU %d failed: %v", c.pinChannelCPU, err)
		}
	}

	table := map[string]Bundle{}

	for {
		cases, metas := buildSelectCases(c.relay.out, table)
		chosen, value, ok := reflect.Select(cases)
		meta := metas[chosen]

		switch meta.kind {
		case endpointControl:
			if !ok {
				c.teardownAll(table)
				return
			}
			env := value.Interface().(controlEnvelope)
			if !c.dispatchControlEnvelope(env, table) {
				return
			}

		case endpointIn:
			bundle := table[meta.sid]
			if !ok {
				c.shutdownPairing(meta.sid, bundle)
				delete(table, meta.sid)
				continue
			}
			payload := value.Interface().([][]byte)
			if err := c.ctl.submit(command{kind: commandOutgoing, sid: meta.sid, payload: payload}); err != nil {
				log.Printf("zmqbridge: submitting outgoing payload for %s: %v", meta.sid, err)
			}

		case endpointCtlIn:
			bundle := table[meta.sid]
			if !ok {
				c.shutdownPairing(meta.sid, bundle)
				delete(table, meta.sid)
				continue
			}
			fn := value.Interface().(CommandFunc)
			if err := c.ctl.submit(command{kind: commandInvoke, sid: meta.sid, fn: fn}); err != nil {
				log.Printf("zmqbridge: submitting command for %s: %v", meta.sid, err)
			}

		default:
			panic(fmt.Sprintf("zmqbridge: unknown select endpoint kind %d", meta.kind))
		}
	}
}

func buildSelectCases(control chan controlEnvelope, table map[string]Bundle) ([]reflect.SelectCase, []selectMeta) {
	cases := make([]reflect.SelectCase, 0, len(table)*2+1)
	metas := make([]selectMeta, 0, cap(cases))

	cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(control)})
	metas = append(metas, selectMeta{kind: endpointControl})

	for sid, bundle := range table {
		if bundle.In != nil {
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(bundle.In)})
			metas = append(metas, selectMeta{kind: endpointIn, sid: sid})
		}
		if bundle.CtlIn != nil {
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(bundle.CtlIn)})
			metas = append(metas, selectMeta{kind: endpointCtlIn, sid: sid})
		}
	}
	return cases, metas
}

// dispatchControlEnvelope handles one envelope read off the shared relay.
// It returns false when the caller should stop channelLoop entirely.
func (c *Context) dispatchControlEnvelope(env controlEnvelope, table map[string]Bundle) bool {
	switch env.kind {
	case controlRegisterRequest:
		sid := c.nextSID()
		table[sid] = env.bundle
		atomic.AddInt64(&c.registeredSockets, 1)
		if err := c.ctl.submit(command{kind: commandRegister, sid: sid, sock: env.sock}); err != nil {
			log.Printf("zmqbridge: submitting registration for %s: %v", sid, err)
		}

	case controlCommandResult:
		bundle, ok := table[env.sid]
		if !ok || bundle.CtlOut == nil {
			return true
		}
		select {
		case bundle.CtlOut <- env.result:
			c.metrics.IncrMetric("bridge.delivered", 1)
		default:
			c.metrics.IncrMetric("bridge.ctlout.dropped", 1)
			log.Printf("zmqbridge: dropped command result for %s, ctl-out full", env.sid)
		}

	case controlInbound:
		bundle, ok := table[env.sid]
		if !ok || bundle.Out == nil {
			panic(fmt.Sprintf("zmqbridge: inbound message for %s with no out channel", env.sid))
		}
		select {
		case bundle.Out <- env.payload:
			c.metrics.IncrMetric("bridge.delivered", 1)
		default:
			c.metrics.IncrMetric("bridge.out.dropped", 1)
			log.Printf("zmqbridge: dropped inbound message for %s, out full", env.sid)
		}

	default:
		panic(fmt.Sprintf("zmqbridge: unknown control envelope kind %d", env.kind))
	}
	return true
}

// shutdownPairing tears down one registered socket: tell socketLoop to
// close it, then close every bundle channel channelLoop has a hand in.
func (c *Context) shutdownPairing(sid string, bundle Bundle) {
	if err := c.ctl.submit(command{kind: commandClose, sid: sid}); err != nil {
		log.Printf("zmqbridge: submitting close for %s: %v", sid, err)
	}
	atomic.AddInt64(&c.registeredSockets, -1)
	bundle.closeAll()
}

func (c *Context) teardownAll(table map[string]Bundle) {
	for sid, bundle := range table {
		c.shutdownPairing(sid, bundle)
		delete(table, sid)
	}
	c.ctl.submitShutdown()
}

func (c *Context) nextSID() string {
	n := atomic.AddInt64(&c.sidCounter, 1)
	return "zmq-" + strconv.FormatInt(n, 10)
}
