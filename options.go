// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package streamparser

import (
	"github.com/rs/zerolog"
)

// defaultTruncateThreshold is the default value of config.truncateThreshold:
// once the consumed prefix of the buffer exceeds this many bytes, the next
// primitive call compacts it away. See Reader's buffer discipline.
const defaultTruncateThreshold = 1 << 16 // 65536

// config holds the knobs a Harness is built with. There is no exported
// Options struct because nothing downstream of the Harness ever needs
// to read it back; options only ever flow one way, into the unexported
// config.
type config struct {
	truncateThreshold int
	log               zerolog.Logger
	metrics           *Metrics
}

var defaultConfig = config{
	truncateThreshold: defaultTruncateThreshold,
	log:               zerolog.Nop(),
}

// Option configures a Harness (and, transitively, the Reader it owns).
type Option func(*config)

// WithTruncateThreshold overrides the buffer-compaction threshold. A
// non-positive value disables compaction (not recommended for long-running
// streams: the consumed prefix would grow without bound).
func WithTruncateThreshold(n int) Option {
	return func(c *config) { c.truncateThreshold = n }
}

// WithLogger attaches a zerolog.Logger. The harness logs its priming (the
// parser's first suspension) at Trace level and each terminal transition at
// Debug level; later suspensions and resumes are not logged. The default is
// zerolog.Nop(), so a harness built without this option logs nothing.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) { c.log = log }
}

// WithMetrics attaches a Metrics instance; the harness records pushes, bytes
// pushed, suspensions, buffer compactions, and terminal outcomes against it. Nil detaches
// instrumentation (the default).
func WithMetrics(m *Metrics) Option {
	return func(c *config) { c.metrics = m }
}
