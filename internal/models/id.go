package models

import (
	"strconv"
	"sync/atomic"
	"time"
)

var lastID atomic.Int64

// NewID returns an opaque unique identifier derived from creation time.
// Identifiers issued within the same nanosecond are bumped forward, so
// concurrent callers never observe a duplicate.
func NewID() string {
	for {
		now := time.Now().UnixNano()
		prev := lastID.Load()
		if now <= prev {
			now = prev + 1
		}
		if lastID.CompareAndSwap(prev, now) {
			return strconv.FormatInt(now, 10)
		}
	}
}
