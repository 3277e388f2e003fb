// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamparser

import "bytes"

// Reader owns the receive buffer for one parser instance and exposes the two
// suspendable primitives parser code is written against: Read and ReadUntil.
//
// A Reader is created once per Harness and driven exclusively by the
// goroutine running that Harness's ParserFunc. It is not safe to call a
// Reader method from any other goroutine, and it is not safe to retain a
// Reader past the lifetime of its Harness.
//
// Buffer semantics and invariants:
//   - buf[0:pos] is consumed and subject to reclamation; buf[pos:len(buf)] is
//     the unconsumed residual available to the next primitive.
//   - Compaction (buf <- buf[pos:], pos <- 0) happens at primitive entry when
//     pos exceeds truncateThreshold. No operation shrinks buf mid-primitive.
//   - Once eofSeen is true, no further bytes will ever be appended.
type Reader struct {
	buf     []byte
	pos     int
	eofSeen bool

	truncateThreshold int
	metrics           *Metrics

	// Rendezvous channels with the owning Harness. suspendedCh is sent on
	// (never received from, by Reader) each time a primitive needs more
	// bytes than the buffer currently holds; resumeCh is then received from
	// to learn what happened next. Exactly one of these is in flight at a
	// time — see harness.go for the other side of the handshake.
	suspendedCh chan struct{}
	resumeCh    chan resumeMsg
}

func newReader(c config) *Reader {
	threshold := c.truncateThreshold
	if threshold <= 0 {
		threshold = 0
	}
	return &Reader{
		truncateThreshold: threshold,
		metrics:           c.metrics,
		suspendedCh:       make(chan struct{}),
		resumeCh:          make(chan resumeMsg),
	}
}

// Len reports the current buffer length (consumed + residual). It does not
// mutate state and is intended for tests and diagnostics.
func (r *Reader) Len() int { return len(r.buf) }

// Pos reports the current read cursor. It does not mutate state and is
// intended for tests and diagnostics.
func (r *Reader) Pos() int { return r.pos }

// resumeMsg is what the Harness sends across resumeCh to wake a suspended
// primitive back up.
type resumeMsg struct {
	data []byte // appended to buf when eof is false
	eof  bool   // true means "no further bytes are coming"
	kill bool   // true means "unwind immediately, discard any result"
}

// abortSignal is panicked by suspend when the Harness sends a kill message,
// to unwind the parser goroutine's stack out from under an arbitrarily deep
// composition of parser calls. It is always recovered in harness.run.
type abortSignal struct{}

// suspend hands control back to the Harness and blocks until it is resumed.
// This is the one and only suspension point in the library: it is called
// from inside Read and ReadUntil, and nowhere else.
func (r *Reader) suspend() resumeMsg {
	r.suspendedCh <- struct{}{}
	msg := <-r.resumeCh
	if msg.kill {
		panic(abortSignal{})
	}
	return msg
}

func (r *Reader) compactIfNeeded() {
	if r.truncateThreshold > 0 && r.pos > r.truncateThreshold {
		n := copy(r.buf, r.buf[r.pos:])
		r.buf = r.buf[:n]
		r.pos = 0
		if r.metrics != nil {
			r.metrics.observeCompaction()
		}
	}
}

// Read returns exactly size bytes from the stream in order, removing them
// from the residual. size == 0 returns an empty slice without suspending.
func (r *Reader) Read(size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrInvalidArgument
	}
	if size == 0 {
		return []byte{}, nil
	}
	if r.eofSeen {
		// Called again after a prior call already observed end-of-input —
		// following an EOF-tolerant ReadUntil that returned instead of
		// stopping the parser, say. No further bytes will ever arrive, and
		// the leftover residual already belongs to that prior call, so this
		// suspends exactly as if more data were needed; the Harness
		// resolves it the same way it resolves any other post-EOF
		// suspension.
		r.suspend()
	}
	r.compactIfNeeded()

	wpos := r.pos + size
	for len(r.buf) < wpos {
		msg := r.suspend()
		if msg.eof {
			// eof is never meaningful for a fixed-size read: handleEOF
			// always terminates here, never returns a usable value.
			_, err := r.handleEOF(false)
			return nil, err
		}
		r.buf = append(r.buf, msg.data...)
	}

	out := make([]byte, size)
	copy(out, r.buf[r.pos:wpos])
	r.pos = wpos
	return out, nil
}

// ReadUntil returns the bytes from the cursor up to (and, if include is
// true, including) the first occurrence of sep at or after the cursor,
// removing them and the delimiter from the residual.
//
// If eof is true, reaching end-of-input with a non-empty residual and no
// match is not an error: the whole residual is returned as if sep had been
// found just past it (plus sep itself, if include). The cursor is
// deliberately not advanced past that residual in this case, so a parser
// that loops and calls another primitive afterward never gets to read it
// again — the parser is expected to stop looping once an EOF-tolerant
// ReadUntil returns.
//
// sep must be non-empty; an empty sep is a programmer error (ErrInvalidArgument).
func (r *Reader) ReadUntil(sep []byte, include, eof bool) ([]byte, error) {
	if len(sep) == 0 {
		return nil, ErrInvalidArgument
	}
	if r.eofSeen {
		// See the matching branch in Read: no further bytes are coming, and
		// any residual left over belongs to whichever prior call already
		// observed end-of-input.
		r.suspend()
	}
	r.compactIfNeeded()

	start := r.pos
	for {
		idx := bytes.Index(r.buf[start:], sep)
		if idx >= 0 {
			idx += start
			npos := idx + len(sep)
			end := idx
			if include {
				end = npos
			}
			out := append([]byte(nil), r.buf[r.pos:end]...)
			r.pos = npos
			return out, nil
		}

		start = len(r.buf) - len(sep) + 1
		if start < r.pos {
			start = r.pos
		}

		msg := r.suspend()
		if msg.eof {
			residual, err := r.handleEOF(eof)
			if err != nil {
				return nil, err
			}
			out := append([]byte(nil), residual...)
			if include {
				out = append(out, sep...)
			}
			return out, nil
		}
		r.buf = append(r.buf, msg.data...)
	}
}

// handleEOF resolves a primitive that suspended and woke to find end-of-input.
// It is only ever called immediately after suspend() reports msg.eof.
func (r *Reader) handleEOF(eofTolerant bool) ([]byte, error) {
	residual := r.buf[r.pos:]
	if len(residual) > 0 {
		r.eofSeen = true
		if eofTolerant {
			return residual, nil
		}
		partial := append([]byte(nil), residual...)
		return nil, &IncompleteDataError{Partial: partial}
	}

	// Residual empty: this is a clean close at a message boundary. Mark it
	// and suspend once more — the Harness reads that second suspension as
	// "terminal, no error" and will never resume this goroutine with real
	// data again. Any resume from here on is a protocol violation.
	r.eofSeen = true
	r.suspend()
	return nil, ErrAlreadyEOF
}
