package engine

// DefaultMaxAttempts bounds the render attempts of a single Resolve call.
const DefaultMaxAttempts = 100

// AttemptQuota counts render attempts within one Resolve call.
//
// Interrupts and queued re-renders loop until a render finishes cleanly. A
// component that writes a new value to its own store on every render would
// loop forever; the quota turns that into an ATTEMPT_LIMIT RuntimeError.
type AttemptQuota struct {
	max     int
	current int
}

// NewAttemptQuota creates a quota allowing maxAttempts renders. Values below 1
// fall back to DefaultMaxAttempts.
func NewAttemptQuota(maxAttempts int) *AttemptQuota {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &AttemptQuota{max: maxAttempts}
}

// Check increments the attempt counter and validates it against the limit.
func (q *AttemptQuota) Check(l *Layer) error {
	q.current++
	if q.current > q.max {
		return NewAttemptLimitError(l.ID(), l.component.Name(), q.current, q.max)
	}
	return nil
}

// Current returns the number of attempts started so far.
func (q *AttemptQuota) Current() int {
	return q.current
}

// Max returns the attempt limit.
func (q *AttemptQuota) Max() int {
	return q.max
}
