package provider

import "time"

// BufferStart widens a cursor backwards by the overlap window. Provider APIs
// that only accept coarse (date or minute) ranges are queried from this
// instant; results are then filtered against it exactly.
func BufferStart(since time.Time, overlap time.Duration) time.Time {
	return since.Add(-overlap)
}

// WithinWindow reports whether a published instant survives the exact
// post-fetch filter: strictly after the buffer start, so an item stamped at
// the raw window boundary is dropped while the watermark instant itself
// survives. A zero bufferStart disables filtering (first run).
func WithinWindow(published, bufferStart time.Time) bool {
	if bufferStart.IsZero() {
		return true
	}
	return published.After(bufferStart)
}
