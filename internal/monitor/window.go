package monitor

import (
	"sort"
	"time"
)

// window is an ordered run of timestamps trailing "now". Entries are evicted
// from the head; the backing slice is compacted once half of it is dead.
type window struct {
	times []time.Time
	head  int
}

func (w *window) len() int {
	return len(w.times) - w.head
}

// prune drops every entry whose age at now is span or more.
func (w *window) prune(now time.Time, span time.Duration) {
	for w.head < len(w.times) && now.Sub(w.times[w.head]) >= span {
		w.head++
	}
	if w.head == len(w.times) {
		w.times = w.times[:0]
		w.head = 0
		return
	}
	if w.head > 0 && w.head*2 >= len(w.times) {
		w.times = append(w.times[:0], w.times[w.head:]...)
		w.head = 0
	}
}

// insert keeps the window sorted. Late arrivals are placed after any equal
// timestamps.
func (w *window) insert(at time.Time) {
	n := len(w.times)
	if n == w.head || !at.Before(w.times[n-1]) {
		w.times = append(w.times, at)
		return
	}
	live := w.times[w.head:]
	i := w.head + sort.Search(len(live), func(i int) bool { return live[i].After(at) })
	w.times = append(w.times, time.Time{})
	copy(w.times[i+1:], w.times[i:])
	w.times[i] = at
}

// at returns the i-th live entry, oldest first.
func (w *window) at(i int) time.Time {
	return w.times[w.head+i]
}

// expiresIn reports how long until the i-th live entry ages out.
func (w *window) expiresIn(i int, now time.Time, span time.Duration) time.Duration {
	d := w.at(i).Add(span).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
