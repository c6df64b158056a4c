// Package engine implements the layered resolution runtime.
//
// A Layer pairs a Component with arguments and a store chained to its
// parent's store. Resolving a layer runs the component's render function,
// which reads and writes the store, registers watchers and constructs child
// layers, and returns an unwind.Result.
//
// ARCHITECTURE:
//
// Single-Writer Runtime:
// All layer state is touched by one goroutine. Deferred values may settle
// anywhere; their continuations are queued with Runtime.Dispatch and run by
// the goroutine calling Run, Drain or Await.
//
// Resolve Cycle:
//  1. Push the layer on the runtime stack.
//  2. Flush pending changes to listeners.
//  3. Render until an attempt completes (see below).
//  4. Flush again, then re-render if the cycle was re-queued meanwhile.
//  5. Snapshot children into the pool, clear changes, pop.
//
// Render Attempts:
// A setter called during a render never unwinds the stack. It records a
// signal on the affected layer and returns ErrInterrupted or ErrCancelled.
// When the render function returns, the attempt reports completed,
// interrupted (the layer wrote its own store: retry) or cancelled (an
// ancestor's data changed: the ancestor will regenerate it).
//
// Child Pooling:
// Children are keyed by (component, key). A child reused from the previous
// cycle keeps its store, listeners and own children.
//
// Attempts per Resolve are bounded by WithMaxAttempts; exceeding the bound
// is an ATTEMPT_LIMIT RuntimeError.
package engine
