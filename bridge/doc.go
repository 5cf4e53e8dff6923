// Package bridge implements the two-thread bridge between ZeroMQ sockets
// (github.com/pebbe/zmq4, thread-unsafe, touched from exactly one OS thread)
// and Go channels.
//
// A Context owns two long-lived goroutines, each confined to its own OS
// thread for its entire lifetime:
//
//   - socketLoop ("B") owns every registered *zmq4.Socket, blocks in a
//     zmq4.Poller, and performs every send/receive/close.
//   - channelLoop ("C") owns the registration table (socket-id -> Bundle),
//     blocks in a dynamic reflect.Select over every bundle's :in/:ctl-in
//     channel plus the control relay, and performs every channel read/write.
//
// The two loops talk over a dedicated PAIR socket used only to send a
// "sentinel" or "shutdown" wake-up byte string, plus a bounded Go channel
// that carries the actual command payload. The PAIR socket lets B's poller
// block on a single native primitive that covers both data sockets and
// cross-thread wake-ups; the bounded channel exists because turning rich
// command values into ZeroMQ frames would mean serializing function values,
// which Go has no idiomatic way to do.
package bridge
