// Command zmqbridge-echo runs a REP socket that echoes every message it
// receives back to the sender through bridge channels: the only direct
// call into the underlying socket library is the Bind in its configurator.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/momentics/zmqbridge/bridge"
	"github.com/pebbe/zmq4"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var addr string
	var pin int
	var help bool

	flagSet := pflag.NewFlagSet("zmqbridge-echo", pflag.ContinueOnError)
	flagSet.StringVar(&addr, "addr", "tcp://127.0.0.1:5555", "address to bind the REP socket to")
	flagSet.IntVar(&pin, "pin-cpu", -1, "pin the socket and channel loops to this CPU (-1: no pinning)")
	flagSet.BoolVarP(&help, "help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help {
		printHelp(flagSet)
		return nil
	}

	ctx, err := bridge.CreateContext("echo")
	if err != nil {
		return fmt.Errorf("creating context: %w", err)
	}
	if pin >= 0 {
		ctx.PinSocketLoop(pin)
		ctx.PinChannelLoop(pin)
	}
	ctx.Initialize()

	in := make(chan [][]byte, 8)
	out := make(chan [][]byte, 8)
	opts := bridge.RegisterOptions{
		Context: ctx,
		Bundle:  bridge.Bundle{In: in, Out: out},
	}.WithSocketType(bridge.Rep)
	opts.Configurator = func(sock *zmq4.Socket) error { return sock.Bind(addr) }
	if err := bridge.Register(opts); err != nil {
		return fmt.Errorf("registering echo socket: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Shutdown can close both channels out from under this loop once
		// the context starts tearing the socket down; a send on the
		// closed in channel at that point is expected, not a bug, so
		// it's swallowed rather than left to crash the process.
		defer func() { recover() }()
		for payload := range out {
			log.Printf("zmqbridge-echo: echoing %d part(s)", len(payload))
			in <- payload
		}
	}()

	log.Printf("zmqbridge-echo: REP socket bound to %s", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("zmqbridge-echo: shutdown signal received")

	ctx.Shutdown()
	ctx.Wait()
	<-done

	log.Println("zmqbridge-echo: shutdown complete")
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `zmqbridge-echo — a REP socket that echoes every message back to its sender.

Usage:
  zmqbridge-echo [flags]

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
