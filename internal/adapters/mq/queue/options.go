// Package queue defines the contract for enqueuing and consuming commands.
package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*settings)

type settings struct {
	capacity   int
	bufferSize int
}

// WithCapacity sets the maximum capacity of the queue.
func WithCapacity(capacity int) Option {
	return func(s *settings) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

// WithBufferSize sets the buffer size of the underlying channel. A buffer
// smaller than the capacity caps the effective capacity.
func WithBufferSize(size int) Option {
	return func(s *settings) {
		if size > 0 {
			s.bufferSize = size
		}
	}
}
