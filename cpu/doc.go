// Package cpu implements the Intcode processor.
//
// A processor (Cpu) owns a sparse Memory of signed 64-bit words, an
// instruction pointer (Ip) and a relative base. Each instruction word is
// decoded into an Opcode and up to three parameter Modes (position,
// immediate, relative). The processor talks to the outside world only
// through its Input and Output ports, which block: Input suspends the
// processor until a value arrives, and a closed Input stops it cleanly.
//
// An optional Control port receives a channel.Token ahead of every Input
// and Output so that a peer can tell read requests from write events.
package cpu
