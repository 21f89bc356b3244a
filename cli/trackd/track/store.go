package track

import (
	"sort"
	"sync"
	"time"
)

// DefaultTrailCap bounds the per-device trail when the config does not
// say otherwise.
const DefaultTrailCap = 500

// UpsertResult is the outcome of a store write.
type UpsertResult int

const (
	Accepted UpsertResult = iota
	RejectedStale
	RejectedOutOfRange
)

func (r UpsertResult) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectedStale:
		return "stale_timestamp"
	case RejectedOutOfRange:
		return "out_of_range"
	}
	return "unknown"
}

type Options struct {
	// TrailCap is the maximum number of points kept per device.
	TrailCap int
	// TrailMaxAge drops trail points older than this on sweep. Zero
	// disables age eviction.
	TrailMaxAge time.Duration
	// ReorderWindow accepts out-of-order fixes no older than this
	// relative to the current latest, inserting them into trail
	// position. Zero rejects every late arrival as stale.
	ReorderWindow time.Duration
}

// deviceState is all mutable state for one device. Its mutex serializes
// writes and snapshot reads for that device only.
type deviceState struct {
	mu     sync.Mutex
	hasFix bool
	latest Fix
	trail  []Fix
}

// Store keeps the latest fix and a bounded trail per device. It is the
// only shared mutable state in the daemon; the listener writes, the API
// reads, and both may do so concurrently.
type Store struct {
	Counters Counters

	opts    Options
	mu      sync.RWMutex
	devices map[string]*deviceState
}

func NewStore(opts Options) *Store {
	if opts.TrailCap <= 0 {
		opts.TrailCap = DefaultTrailCap
	}
	return &Store{
		opts:    opts,
		devices: make(map[string]*deviceState),
	}
}

// Upsert merges an incoming fix into the per-device state. The latest
// pointer follows the greatest timestamp seen, not arrival order. Fixes
// older than the latest are inserted into the trail when they fall
// inside the reorder window and rejected as stale otherwise.
func (s *Store) Upsert(f Fix) UpsertResult {
	res := s.apply(f)
	switch res {
	case Accepted:
		s.Counters.IncAccepted()
	case RejectedStale:
		s.Counters.IncStale()
	case RejectedOutOfRange:
		s.Counters.IncOutOfRange()
	}
	return res
}

func (s *Store) apply(f Fix) UpsertResult {
	if err := f.Validate(); err != nil {
		return RejectedOutOfRange
	}
	if f.DeviceID == "" {
		f.DeviceID = DefaultDeviceID
	}

	ds := s.device(f.DeviceID)
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if !ds.hasFix {
		ds.hasFix = true
		ds.latest = f
		ds.trail = append(ds.trail, f)
		return Accepted
	}

	switch {
	case f.Timestamp > ds.latest.Timestamp:
		ds.latest = f
		ds.appendPoint(f, s.opts.TrailCap)
		return Accepted
	case f.Timestamp == ds.latest.Timestamp:
		// Duplicate delivery over the unreliable transport.
		return RejectedStale
	default:
		if s.opts.ReorderWindow <= 0 ||
			ds.latest.Timestamp-f.Timestamp > s.opts.ReorderWindow.Milliseconds() {
			return RejectedStale
		}
		if !ds.insertPoint(f, s.opts.TrailCap) {
			return RejectedStale
		}
		return Accepted
	}
}

// Latest returns the accepted fix with the greatest timestamp for the
// device, if any.
func (s *Store) Latest(deviceID string) (Fix, bool) {
	ds := s.lookup(deviceID)
	if ds == nil {
		return Fix{}, false
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if !ds.hasFix {
		return Fix{}, false
	}
	return ds.latest, true
}

// Trail returns a copy of the trail, oldest first. A positive max
// limits the result to the most recent points.
func (s *Store) Trail(deviceID string, max int) []Fix {
	ds := s.lookup(deviceID)
	if ds == nil {
		return nil
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	points := ds.trail
	if max > 0 && len(points) > max {
		points = points[len(points)-max:]
	}
	out := make([]Fix, len(points))
	copy(out, points)
	return out
}

// Devices lists known device identifiers, sorted.
func (s *Store) Devices() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.devices))
	for id := range s.devices {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// SweepAge evicts trail points older than TrailMaxAge and reports how
// many were dropped. The latest pointer is kept outside the trail and
// is never evicted.
func (s *Store) SweepAge(now time.Time) int {
	if s.opts.TrailMaxAge <= 0 {
		return 0
	}
	cutoff := now.Add(-s.opts.TrailMaxAge).UnixMilli()

	evicted := 0
	for _, id := range s.Devices() {
		ds := s.lookup(id)
		if ds == nil {
			continue
		}
		ds.mu.Lock()
		i := sort.Search(len(ds.trail), func(i int) bool {
			return ds.trail[i].Timestamp >= cutoff
		})
		if i > 0 {
			evicted += i
			ds.trail = append(ds.trail[:0:0], ds.trail[i:]...)
		}
		ds.mu.Unlock()
	}
	return evicted
}

// Restore replays persisted per-device trails (oldest first) through
// the normal merge logic without touching the ingestion counters.
func (s *Store) Restore(state map[string][]Fix) {
	for deviceID, fixes := range state {
		for _, f := range fixes {
			if f.DeviceID == "" {
				f.DeviceID = deviceID
			}
			s.apply(f)
		}
	}
}

func (s *Store) lookup(deviceID string) *deviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.devices[deviceID]
}

func (s *Store) device(deviceID string) *deviceState {
	s.mu.RLock()
	ds, ok := s.devices[deviceID]
	s.mu.RUnlock()
	if ok {
		return ds
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ds, ok = s.devices[deviceID]; ok {
		return ds
	}
	ds = &deviceState{}
	s.devices[deviceID] = ds
	return ds
}

// appendPoint adds a newest point, collapsing consecutive duplicate
// coordinates.
func (d *deviceState) appendPoint(f Fix, limit int) {
	if n := len(d.trail); n > 0 && d.trail[n-1].SameCoordinates(f) {
		return
	}
	d.trail = append(d.trail, f)
	d.evict(limit)
}

// insertPoint places a late fix into timestamp order. Returns false
// when a point with the same timestamp is already present.
func (d *deviceState) insertPoint(f Fix, limit int) bool {
	i := sort.Search(len(d.trail), func(i int) bool {
		return d.trail[i].Timestamp >= f.Timestamp
	})
	if i < len(d.trail) && d.trail[i].Timestamp == f.Timestamp {
		return false
	}
	if i > 0 && d.trail[i-1].SameCoordinates(f) {
		// Collapses into its predecessor, trail unchanged.
		return true
	}
	d.trail = append(d.trail, Fix{})
	copy(d.trail[i+1:], d.trail[i:])
	d.trail[i] = f
	d.evict(limit)
	return true
}

func (d *deviceState) evict(limit int) {
	if over := len(d.trail) - limit; over > 0 {
		d.trail = append(d.trail[:0:0], d.trail[over:]...)
	}
}
