// Package unwind normalizes component return values into one eventual value.
//
// A component returns a Result: Value for plain data, Defer for a Future that
// settles later, or Sequence for a Resumable that yields intermediate results.
// Normalize steps sequences, awaits deferred yields and re-normalizes final
// values, producing a Future.
//
// Synchronous paths settle before Normalize returns. Anything that waits on a
// deferred value continues on a later turn of the supplied Dispatcher, which
// is how the engine keeps every continuation on its single runtime goroutine.
package unwind
