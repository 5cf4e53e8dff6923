package bridge

import (
	"log"
	"sync"
)

var (
	globalOnce sync.Once
	globalCtx  *Context
)

// Global returns the lazily-initialized process-wide context used by
// Register calls that omit an explicit Context. It is created on first
// use and initialized (both loops started) immediately, so a caller never
// observes a Global() that isn't ready to accept registrations.
func Global() *Context {
	globalOnce.Do(func() {
		ctx, err := CreateContext("")
		if err != nil {
			log.Panicf("zmqbridge: creating global context failed: %v", err)
		}
		ctx.Initialize()
		globalCtx = ctx
	})
	return globalCtx
}
