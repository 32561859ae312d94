package interval

// Option applies a configuration option to a reconstruction pass.
type Option func(*reconstructor)

// WithParallelism sets how many goroutines reduce partitions concurrently.
// Values below 1 are ignored.
func WithParallelism(n int) Option {
	return func(r *reconstructor) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithMinPartitionsPerWorker sets how many partitions each goroutine should
// receive at least before another goroutine is started.
func WithMinPartitionsPerWorker(n int) Option {
	return func(r *reconstructor) {
		if n > 0 {
			r.minPerWorker = n
		}
	}
}
