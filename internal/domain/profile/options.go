package profile

import "time"

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithDecayFactor sets the per-evaluation multiplier applied to every severity.
// Values outside (0, 1] are ignored.
func WithDecayFactor(f float64) Option {
	return func(t *Tracker) {
		if f > 0 && f <= 1 {
			t.decay = f
		}
	}
}

// WithReinforcementMultiplier sets how much one severity point adds to a leak.
func WithReinforcementMultiplier(m float64) Option {
	return func(t *Tracker) {
		if m > 0 {
			t.multiplier = m
		}
	}
}

// WithAccuracyWindow sets how many recent decisions drive difficulty.
func WithAccuracyWindow(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.window = n
		}
	}
}

// WithThresholds sets the advance and regress accuracy bounds.
// Ignored unless 0 <= regress < advance <= 1.
func WithThresholds(advance, regress float64) Option {
	return func(t *Tracker) {
		if regress >= 0 && regress < advance && advance <= 1 {
			t.advanceAt = advance
			t.regressAt = regress
		}
	}
}

// WithFocusTopN sets the default size of the focus list.
func WithFocusTopN(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.topN = n
		}
	}
}

// WithTrendLimit caps the stored outcome and EV history.
func WithTrendLimit(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.trendLimit = n
		}
	}
}

// WithSessionGap sets the idle time after which a decision opens a new session.
func WithSessionGap(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.sessionGap = d
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}
