package models

import (
	"sync/atomic"
	"time"
)

// IDSource hands out unique, strictly increasing int64 ids based on the
// current time in milliseconds. When multiple ids are requested within the
// same millisecond it advances past the last issued value instead of
// colliding, so a project and its first transactions created in one instant
// still get distinct ids.
type IDSource struct {
	last atomic.Int64
	now  func() time.Time
}

// NewIDSource returns an id source backed by the wall clock.
func NewIDSource() *IDSource {
	return &IDSource{now: time.Now}
}

// NewIDSourceAt returns an id source using the given clock. Used in tests
// to pin id values.
func NewIDSourceAt(now func() time.Time) *IDSource {
	return &IDSource{now: now}
}

// Next returns the next id: the current millisecond timestamp, or one past
// the previously issued id if the clock has not advanced.
func (s *IDSource) Next() int64 {
	for {
		now := s.now().UnixMilli()
		last := s.last.Load()
		if now <= last {
			now = last + 1
		}
		if s.last.CompareAndSwap(last, now) {
			return now
		}
	}
}
