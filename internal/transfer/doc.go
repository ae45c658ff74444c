// Package transfer relays a claimed resource from its upstream source to
// a client sink.
//
// Each transfer is a Task running in its own goroutine. Progress is
// published on a buffered channel that never blocks the relay, and the
// task is cancelled through its context: cancellation closes the source
// body, which unblocks any in-flight read, and the loop checks the
// context before every read and every write.
package transfer
