package records

import "time"

// IDGenerator issues integer ids shaped like a millisecond timestamp followed
// by three digits. Ids are strictly increasing for the life of the generator,
// so bursts within one millisecond never collide.
type IDGenerator struct {
	last int64
	now  func() time.Time
}

// NewIDGenerator returns a generator driven by now (time.Now when nil).
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next returns a fresh id.
func (g *IDGenerator) Next() int64 {
	id := g.now().UnixMilli() * 1000
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Observe records an id that already exists so later ids sort after it.
func (g *IDGenerator) Observe(id int64) {
	if id > g.last {
		g.last = id
	}
}
