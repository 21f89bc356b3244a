package track

import "sync/atomic"

// Counters holds ingestion observability counters. All methods are
// safe for concurrent use.
type Counters struct {
	accepted   uint64
	malformed  uint64
	outOfRange uint64
	stale      uint64
}

func (c *Counters) IncAccepted()   { atomic.AddUint64(&c.accepted, 1) }
func (c *Counters) IncMalformed()  { atomic.AddUint64(&c.malformed, 1) }
func (c *Counters) IncOutOfRange() { atomic.AddUint64(&c.outOfRange, 1) }
func (c *Counters) IncStale()      { atomic.AddUint64(&c.stale, 1) }

func (c *Counters) Accepted() uint64   { return atomic.LoadUint64(&c.accepted) }
func (c *Counters) Malformed() uint64  { return atomic.LoadUint64(&c.malformed) }
func (c *Counters) OutOfRange() uint64 { return atomic.LoadUint64(&c.outOfRange) }
func (c *Counters) Stale() uint64      { return atomic.LoadUint64(&c.stale) }

// Snapshot returns the current counter values for the health endpoint.
func (c *Counters) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"accepted":     c.Accepted(),
		"malformed":    c.Malformed(),
		"out_of_range": c.OutOfRange(),
		"stale":        c.Stale(),
	}
}
