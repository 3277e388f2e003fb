// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamparser_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybscloud/streamparser"
)

func TestHarness_PushAfterTerminal_AlreadyEOF(t *testing.T) {
	proto := func(r *streamparser.Reader) error {
		for {
			if _, err := r.Read(1); err != nil {
				return err
			}
		}
	}
	h, err := streamparser.NewHarness(proto)
	require.NoError(t, err)

	require.NoError(t, h.Push([]byte("x")))
	require.NoError(t, h.Push(nil))

	err = h.Push([]byte("y"))
	assert.ErrorIs(t, err, streamparser.ErrAlreadyEOF)
	err = h.Push(nil)
	assert.ErrorIs(t, err, streamparser.ErrAlreadyEOF)
}

var errBadFrame = errors.New("bad frame")

func TestHarness_ParserDomainErrorPropagatesVerbatim(t *testing.T) {
	proto := func(r *streamparser.Reader) error {
		hdr, err := r.Read(1)
		if err != nil {
			return err
		}
		if hdr[0] != 'A' {
			return errBadFrame
		}
		return nil
	}
	h, err := streamparser.NewHarness(proto)
	require.NoError(t, err)

	err = h.Push([]byte("B"))
	assert.ErrorIs(t, err, errBadFrame)

	// The harness is terminal after a parser-domain error.
	err = h.Push([]byte("C"))
	assert.ErrorIs(t, err, streamparser.ErrAlreadyEOF)
}

func TestHarness_ImmediateReturnIsLegalAndTerminal(t *testing.T) {
	proto := func(r *streamparser.Reader) error {
		return nil
	}
	h, err := streamparser.NewHarness(proto)
	require.NoError(t, err)

	err = h.Push([]byte("anything"))
	assert.ErrorIs(t, err, streamparser.ErrAlreadyEOF)
}

func TestHarness_CloseAbandonsBlockedParser(t *testing.T) {
	proto := func(r *streamparser.Reader) error {
		_, err := r.Read(100)
		return err
	}
	h, err := streamparser.NewHarness(proto)
	require.NoError(t, err)

	require.NoError(t, h.Push([]byte("partial")))
	require.NoError(t, h.Close())
	require.NoError(t, h.Close()) // idempotent

	err = h.Push([]byte("more"))
	assert.ErrorIs(t, err, streamparser.ErrAlreadyEOF)
}

func TestHarness_CloseAfterNaturalTerminationIsNoop(t *testing.T) {
	proto := func(r *streamparser.Reader) error {
		return nil
	}
	h, err := streamparser.NewHarness(proto)
	require.NoError(t, err)
	require.NoError(t, h.Close())
}

func TestHarness_Determinism(t *testing.T) {
	run := func() []string {
		var got []string
		proto := func(r *streamparser.Reader) error {
			for {
				line, err := r.ReadUntil([]byte("\n"), false, false)
				if err != nil {
					return err
				}
				got = append(got, string(line))
			}
		}
		h, err := streamparser.NewHarness(proto)
		require.NoError(t, err)
		chunks := []string{"hel", "lo\nwor", "ld\nfoo\n", ""}
		for _, c := range chunks {
			_ = h.Push([]byte(c))
		}
		return got
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"hello", "world", "foo"}, first)
}

func TestReader_BufferAccounting(t *testing.T) {
	proto := func(r *streamparser.Reader) error {
		before := r.Pos()
		_, err := r.Read(4)
		if err != nil {
			return err
		}
		if got := r.Pos() - before; got != 4 {
			t.Fatalf("Read(4) advanced pos by %d, want 4", got)
		}

		before = r.Pos()
		data, err := r.ReadUntil([]byte("|"), false, false)
		if err != nil {
			return err
		}
		if got := r.Pos() - before; got != len(data)+1 {
			t.Fatalf("ReadUntil advanced pos by %d, want %d", got, len(data)+1)
		}
		return nil
	}
	h, err := streamparser.NewHarness(proto)
	require.NoError(t, err)
	require.NoError(t, h.Push([]byte("abcdxy|")))
}

func TestReader_CleanEOFLeavesNoResidual(t *testing.T) {
	var posBeforeEOF, lenBeforeEOF int
	proto := func(r *streamparser.Reader) error {
		for {
			_, err := r.Read(3)
			if err != nil {
				return err
			}
			posBeforeEOF, lenBeforeEOF = r.Pos(), r.Len()
		}
	}
	h, err := streamparser.NewHarness(proto)
	require.NoError(t, err)
	require.NoError(t, h.Push([]byte("abcdef")))

	// Exactly consumed: no residual remains, so the terminating push must
	// be a clean close rather than IncompleteDataError.
	assert.Equal(t, lenBeforeEOF, posBeforeEOF)
	err = h.Push(nil)
	require.NoError(t, err)

	var incomplete *streamparser.IncompleteDataError
	assert.False(t, errors.As(err, &incomplete))
}

// TestReadUntil_NoReadAfterEOFTolerantReturn guards against a parser that
// keeps going after an EOF-tolerant ReadUntil already consumed the whole
// residual: the leftover bytes must not be served again to whatever
// primitive call comes next, and that next call must not silently succeed.
func TestReadUntil_NoReadAfterEOFTolerantReturn(t *testing.T) {
	var second []byte
	var secondErr error
	proto := func(r *streamparser.Reader) error {
		_, err := r.ReadUntil([]byte(":"), false, true)
		if err != nil {
			return err
		}
		second, secondErr = r.Read(1)
		return secondErr
	}
	h, err := streamparser.NewHarness(proto)
	require.NoError(t, err)
	require.NoError(t, h.Push([]byte("ab")))

	err = h.Push(nil)
	require.NoError(t, err, "a parser that loops past EOF-tolerant data resolves as a clean close")
	assert.Nil(t, second, "the already-returned residual must not be re-served")

	err = h.Push([]byte("more"))
	assert.ErrorIs(t, err, streamparser.ErrAlreadyEOF)
}
