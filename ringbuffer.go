package bridge

import "sync"

// RingBuffer is a fixed-capacity byte FIFO over caller supplied memory.
//
// Every mutation and query runs inside the Locker handed to NewRingBuffer,
// so a reader never observes a partially applied write. The whole capacity
// of the backing memory is usable.
type RingBuffer struct {
	mem  []byte
	lock sync.Locker
	head uint64 // total bytes ever written
	tail uint64 // total bytes ever read
}

// NewRingBuffer binds mem to a ring buffer guarded by lock. A nil lock
// falls back to a private mutex.
func NewRingBuffer(mem []byte, lock sync.Locker) (*RingBuffer, error) {
	if len(mem) == 0 {
		return nil, ErrInvalidRingCapacity
	}
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &RingBuffer{mem: mem, lock: lock}, nil
}

// Cap returns the total capacity of the buffer in bytes.
func (rb *RingBuffer) Cap() int { return len(rb.mem) }

// Len returns how many bytes are queued.
func (rb *RingBuffer) Len() int {
	rb.lock.Lock()
	defer rb.lock.Unlock()
	return rb.used()
}

// Free returns how many bytes can be written before the buffer is full.
func (rb *RingBuffer) Free() int {
	rb.lock.Lock()
	defer rb.lock.Unlock()
	return len(rb.mem) - rb.used()
}

// Write appends as much of p as fits and returns the number of bytes stored.
func (rb *RingBuffer) Write(p []byte) int {
	rb.lock.Lock()
	defer rb.lock.Unlock()

	n := len(rb.mem) - rb.used()
	if len(p) < n {
		n = len(p)
	}
	if n == 0 {
		return 0
	}

	off := int(rb.head % uint64(len(rb.mem)))
	c := copy(rb.mem[off:], p[:n])
	if c < n {
		copy(rb.mem, p[c:n])
	}
	rb.head += uint64(n)
	return n
}

// Read pops up to len(p) bytes into p and returns the number of bytes copied.
func (rb *RingBuffer) Read(p []byte) int {
	rb.lock.Lock()
	defer rb.lock.Unlock()

	n := rb.used()
	if len(p) < n {
		n = len(p)
	}
	if n == 0 {
		return 0
	}

	off := int(rb.tail % uint64(len(rb.mem)))
	c := copy(p[:n], rb.mem[off:])
	if c < n {
		copy(p[c:n], rb.mem)
	}
	rb.tail += uint64(n)
	return n
}

// Reset zeroes the backing memory and rewinds both cursors.
func (rb *RingBuffer) Reset() {
	rb.lock.Lock()
	defer rb.lock.Unlock()
	clear(rb.mem)
	rb.head, rb.tail = 0, 0
}

func (rb *RingBuffer) used() int { return int(rb.head - rb.tail) }
