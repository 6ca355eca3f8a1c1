package enrich

import "sync"

// ProgressFunc receives the number of processed events and the run total.
type ProgressFunc func(done, total int)

// Progress is the shared completion counter for one run.
type Progress struct {
	mu    sync.Mutex
	done  int
	total int
	fn    ProgressFunc
}

// NewProgress creates a counter for total events. fn may be nil.
func NewProgress(total int, fn ProgressFunc) *Progress {
	return &Progress{total: total, fn: fn}
}

// Step records one processed event. The callback runs under the lock so
// reports arrive in increasing order; it must not block.
func (p *Progress) Step() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if p.fn != nil {
		p.fn(p.done, p.total)
	}
	return p.done
}

// Done returns the number of processed events.
func (p *Progress) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}
