package pipeline

import "time"

// SetClockForTests overrides the pipeline clock during tests.
func (p *Pipeline) SetClockForTests(now func() time.Time) func() {
	previous := p.now
	p.now = now
	return func() {
		p.now = previous
	}
}
