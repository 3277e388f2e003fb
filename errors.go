// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamparser

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a malformed primitive argument, such as a
	// zero-length read_until separator.
	ErrInvalidArgument = errors.New("streamparser: invalid argument")

	// ErrAlreadyEOF reports that a push (or primitive read) happened after
	// the harness already reached a terminal state: a prior push closed
	// the stream cleanly, failed with incomplete data, or the parser
	// itself returned.
	ErrAlreadyEOF = errors.New("streamparser: already at end of stream")
)

// IncompleteDataError reports that end-of-input arrived while a primitive
// still needed bytes and was not EOF-tolerant. Partial holds the residual
// bytes the Reader had buffered at the moment EOF was observed; it is a
// copy, safe to retain after the error is handled.
type IncompleteDataError struct {
	Partial []byte
}

func (e *IncompleteDataError) Error() string {
	return fmt.Sprintf("streamparser: incomplete data: %d residual byte(s)", len(e.Partial))
}

// AsIncomplete reports whether err is (or wraps) an *IncompleteDataError and
// returns it.
func AsIncomplete(err error) (*IncompleteDataError, bool) {
	var e *IncompleteDataError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
