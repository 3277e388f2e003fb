// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamparser

// Factory builds and starts a Harness whose ParserFunc calls emit for every
// event it decodes: a function that closes over an event sink and hands
// back a driveable parser.
type Factory[T any] func(emit func(T)) (*Harness, error)

// Collector is a test-friendly façade that binds a Factory to an event
// list and returns per-push event batches. It is also the recommended
// integration pattern for real callers: wrap a transport's read loop around
// Collector.Send instead of driving a Harness directly.
//
// Collector is not safe for concurrent use, for the same reason Harness
// isn't: one owning goroutine per instance.
type Collector[T any] struct {
	events  []T
	harness *Harness
}

// NewCollector builds the underlying Harness via factory, wiring its emit
// callback to append to the Collector's internal event list.
func NewCollector[T any](factory Factory[T]) (*Collector[T], error) {
	c := &Collector[T]{}
	h, err := factory(func(ev T) { c.events = append(c.events, ev) })
	c.harness = h
	return c, err
}

// Send pushes chunk and returns exactly the events emitted during that
// push, in emission order. A push that emits nothing returns an empty
// (possibly nil) slice. If the push ends the stream — cleanly, with
// IncompleteDataError, with ErrAlreadyEOF, or with a parser-domain error —
// any events emitted before that happened are still returned alongside the
// error, since they were emitted strictly before the parser observed EOF.
func (c *Collector[T]) Send(chunk []byte) ([]T, error) {
	err := c.harness.Push(chunk)
	var out []T
	if len(c.events) > 0 {
		out = c.events
		c.events = nil
	}
	return out, err
}

// Harness exposes the underlying Harness, e.g. to call Close on abandonment.
func (c *Collector[T]) Harness() *Harness { return c.harness }
