// Package audit relays security-relevant account events to pluggable sinks.
//
// # Components
//
//   - [Sink] is implemented by NoOpSink, ChannelSink, JSONWriterSink,
//     LoggerSink and MultiSink.
//   - [Dispatcher] is a buffered async relay with drop-if-full or
//     block-if-full semantics. It assigns event ids and timestamps.
//   - [Event] records type, subject handle, acting handle, IP, outcome and
//     metadata.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. It does NOT decide which
// events to emit; that belongs to the Engine and the flow functions.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goAccount or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
