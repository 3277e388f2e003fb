// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package streamparser provides incremental, push-driven byte-stream
// parsers: protocol decoders whose input arrives in arbitrary chunk
// boundaries from a socket, a pipe, or a file.
//
// A parser is written as if the full input were already available — read N
// bytes, read until a delimiter, parse a header then a body — but the
// runtime suspends it whenever the buffer falls short of what the current
// primitive demands, and resumes it when the caller pushes more bytes. Two
// primitives are exposed: Reader.Read(size) and Reader.ReadUntil(sep, ...).
// Parser functions compose by ordinary Go function calls: one ParserFunc
// may call another, to arbitrary depth, and the Harness driving them is
// oblivious to that depth.
//
// Semantics and design:
//   - Transport-agnostic: the caller owns the I/O loop and pushes chunks via
//     Harness.Push; the library has no socket, file, or timer of its own.
//   - Push(nil) and Push of a zero-length slice both mean "no more bytes are
//     coming" (end of input); a Harness that has reached a terminal state
//     fails any further Push with ErrAlreadyEOF.
//   - End-of-input is either a clean close (the parser had consumed
//     everything and simply stops) or IncompleteDataError (a primitive still
//     needed bytes that will never arrive); ReadUntil's eof flag lets a
//     parser opt a single call into treating EOF as its own terminator
//     instead.
//   - Suspension is implemented as a goroutine per parser instance,
//     synchronized with its Harness over an unbuffered channel pair — the
//     idiomatic Go analogue of a stackful coroutine, chosen so parser code
//     reads like ordinary blocking code rather than a hand-written state
//     machine.
//
// Collector is the recommended integration shape for tests and small
// programs: it binds a Factory (a function from an event sink to a started
// Harness) to an accumulating event list, and returns exactly the events
// emitted during each push.
package streamparser
