package dedupe

// Option configures the Deduper returned by New.
type Option func(*ring)

// WithMaxSize bounds the number of claims kept. Zero or less keeps every claim.
func WithMaxSize(n int) Option {
	return func(r *ring) {
		r.max = n
	}
}
