package timex

import "time"

var boot = time.Now()

// UptimeMs returns milliseconds since process start.
func UptimeMs() uint32 { return uint32(time.Since(boot).Milliseconds()) }

// PeriodFromHz returns the period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) time.Duration {
	if freqHz == 0 {
		freqHz = 1
	}
	return time.Second / time.Duration(freqHz)
}

// Sleep waits for d or until done is closed. It reports false when cancelled.
func Sleep(done <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return false
	case <-t.C:
		return true
	}
}
