package validate

import (
	"sync"
	"time"
)

// rttSmoothing is the weight of a new sample in the moving average.
const rttSmoothing = 0.125

// RTTTracker smooths round-trip samples into a LatencySource.
type RTTTracker struct {
	mu      sync.Mutex
	rtt     time.Duration
	samples int
}

// Observe folds one round-trip sample into the estimate. Negative samples are
// ignored.
func (t *RTTTracker) Observe(sample time.Duration) {
	if sample < 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.samples == 0 {
		t.rtt = sample
	} else {
		t.rtt += time.Duration(float64(sample-t.rtt) * rttSmoothing)
	}
	t.samples++
}

// RTT implements LatencySource. ok is false until the first sample.
func (t *RTTTracker) RTT() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rtt, t.samples > 0
}
