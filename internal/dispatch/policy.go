package dispatch

// RetryPolicy controls how the queue retries failed deliveries. Retries are
// paced by the flush schedule alone, there is no per-attempt backoff: an
// item that fails simply waits for the next flush pass. Swapping this for a
// backoff policy must not touch the queue mechanics.
type RetryPolicy struct {
	// MaxAttempts is the number of delivery attempts before an item is
	// dropped and logged
	MaxAttempts int
	// FlushSchedule is the cron expression (with seconds) for the
	// unconditional backstop flush
	FlushSchedule string
}

// DefaultRetryPolicy retries five times, paced by a one-minute timer
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   5,
		FlushSchedule: "0 * * * * *",
	}
}
