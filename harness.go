// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamparser

import (
	"fmt"

	"github.com/google/uuid"
)

// ParserFunc is user-written parser code: it reads primitives off r as if
// the whole stream were already available, and returns nil on a clean
// logical end, or a domain error if the decoded data is invalid. It may call
// other functions with the same signature to compose parsers; the Harness is
// oblivious to how deep that call stack gets.
type ParserFunc func(r *Reader) error

// doneResult is what the parser goroutine sends on Harness.done when it
// stops running, for any reason.
type doneResult struct {
	err error
}

// errAborted is the internal doneResult payload used when the goroutine was
// unwound via abortSignal rather than returning on its own. It never
// escapes the Harness.
var errAborted = fmt.Errorf("streamparser: parser goroutine aborted")

// Harness drives a ParserFunc as a resumable computation: it owns the
// goroutine running the parser and the Reader that goroutine reads from,
// and mediates every suspend/resume over a pair of unbuffered channels.
//
// A Harness is not safe for concurrent use: it must be owned and driven by
// one goroutine, exactly like the parser goroutine it wraps is owned by the
// Harness: a single-threaded cooperative model, no internal locking.
type Harness struct {
	reader *Reader
	done   chan doneResult

	terminal bool

	id  uuid.UUID
	cfg config
}

// NewHarness constructs a Reader, starts fn running against it in its own
// goroutine, and primes it: it advances the parser until its first
// suspension, or returns immediately if fn completes without ever
// suspending — returning without reading anything is legal.
func NewHarness(fn ParserFunc, opts ...Option) (*Harness, error) {
	cfg := defaultConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Harness{
		reader: newReader(cfg),
		done:   make(chan doneResult, 1),
		id:     uuid.New(),
		cfg:    cfg,
	}

	go h.run(fn)

	terminal, err := h.awaitSuspendOrDone()
	if terminal {
		h.terminal = true
		h.observeTerminal("start")
	} else {
		h.cfg.log.Trace().Stringer("parser_id", h.id).Msg("streamparser: parser primed")
	}
	return h, err
}

// ID returns the correlation id assigned to this harness instance, for use
// in logs and metric labels.
func (h *Harness) ID() uuid.UUID { return h.id }

func (h *Harness) run(fn ParserFunc) {
	defer func() {
		if rec := recover(); rec != nil {
			if _, ok := rec.(abortSignal); ok {
				h.done <- doneResult{err: errAborted}
				return
			}
			h.done <- doneResult{err: fmt.Errorf("streamparser: parser panicked: %v", rec)}
			return
		}
	}()
	err := fn(h.reader)
	h.done <- doneResult{err: err}
}

// awaitSuspendOrDone blocks until the parser goroutine either suspends
// again (reached a primitive that needs more bytes: terminal=false) or
// stops running altogether (terminal=true, err is whatever it returned).
func (h *Harness) awaitSuspendOrDone() (terminal bool, err error) {
	select {
	case <-h.reader.suspendedCh:
		if h.cfg.metrics != nil {
			h.cfg.metrics.observeSuspend()
		}
		return false, nil
	case res := <-h.done:
		return true, res.err
	}
}

// Push delivers a chunk to the parser. A non-empty chunk is handed to the
// suspended primitive, which appends it to the buffer as it resumes. An
// empty chunk (len(chunk) == 0, including nil — both are accepted as the
// end-of-input convention) signals end-of-input.
//
// Push on an already-terminal Harness fails with ErrAlreadyEOF.
func (h *Harness) Push(chunk []byte) error {
	if h.terminal {
		return ErrAlreadyEOF
	}
	if h.cfg.metrics != nil {
		h.cfg.metrics.observePush(len(chunk))
	}
	if len(chunk) == 0 {
		return h.pushEOF()
	}

	// The suspended primitive's own resume loop (see Read/ReadUntil in
	// reader.go) is what appends chunk into the buffer; Push only hands it
	// across the rendezvous channel.
	h.reader.resumeCh <- resumeMsg{data: chunk}

	terminal, err := h.awaitSuspendOrDone()
	if terminal {
		h.terminal = true
		h.observeTerminal("push")
	}
	return err
}

func (h *Harness) pushEOF() error {
	h.reader.resumeCh <- resumeMsg{eof: true}

	terminal, err := h.awaitSuspendOrDone()
	if terminal {
		h.terminal = true
		h.observeTerminal("eof")
		return err
	}

	// The parser suspended again instead of stopping: that happens when the
	// residual was empty (Reader.handleEOF's clean close at a message
	// boundary), or when the parser called another primitive after an
	// EOF-tolerant ReadUntil returned the residual (the eofSeen check at the
	// top of Read/ReadUntil). Treat it as terminal and reap the
	// now-permanently blocked goroutine.
	h.terminal = true
	h.reapBlockedParser()
	h.observeTerminal("eof-clean")
	return nil
}

// reapBlockedParser unblocks a parser goroutine known to be parked in
// Reader.suspend (the second suspension inside handleEOF's empty-residual
// branch, or the eofSeen suspension at the top of Read/ReadUntil) and waits for it to actually exit, so that Harness never leaks a
// goroutine on the common "pushed to completion" path.
func (h *Harness) reapBlockedParser() {
	h.reader.resumeCh <- resumeMsg{kill: true}
	<-h.done
}

func (h *Harness) observeTerminal(kind string) {
	if h.cfg.metrics != nil {
		h.cfg.metrics.observeTerminal(kind)
	}
	h.cfg.log.Debug().Stringer("parser_id", h.id).Str("kind", kind).Msg("streamparser: parser reached terminal state")
}

// Close abandons the Harness, reclaiming its goroutine if one is still
// blocked waiting for input. It is idempotent and safe to call on a
// harness that already reached a terminal state on its own.
//
// A Harness does not need Close to avoid leaking resources along the
// normal "push until EOF or error" path — see pushEOF — but a caller that
// drops a Harness mid-stream (abandoning a connection, say) should call it
// to reclaim the blocked goroutine deterministically rather than relying on
// process exit.
func (h *Harness) Close() error {
	if h.terminal {
		return nil
	}
	h.terminal = true
	h.reader.resumeCh <- resumeMsg{kill: true}
	<-h.done
	if h.cfg.metrics != nil {
		h.cfg.metrics.observeTerminal("close")
	}
	return nil
}
