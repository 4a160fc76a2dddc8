// USB to UART bridging
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bridge

// QueueSize is the capacity of the transmit queue.
const QueueSize = 256

// Queue is a single-producer single-consumer byte queue handing out
// contiguous regions, so the UART DMA can stream directly out of its
// storage. Producer and consumer must run at the same interrupt priority,
// the queue itself takes no locks.
//
// The layout is a bip-buffer: when the free space at the end of the
// storage runs out a write grant wraps to the front and a watermark marks
// where valid data at the end stops.
type Queue struct {
	buf [QueueSize]byte

	read      int
	write     int
	watermark int

	// pending write grant sits at the front of the storage
	wrapped bool
}

// WriteGrant returns a writable region of at most max contiguous bytes, it
// is empty when the queue is full. CommitWrite must follow before the next
// grant.
func (q *Queue) WriteGrant(max int) []byte {
	if q.write >= q.read {
		avail := QueueSize - q.write

		if q.read == 0 {
			// keep one slot so a full queue stays distinguishable
			// from an empty one
			avail--
		}

		if avail <= 0 && q.read > 1 {
			// wrap to the front
			q.wrapped = true

			n := q.read - 1
			if n > max {
				n = max
			}

			return q.buf[0:n]
		}

		if avail < 0 {
			avail = 0
		}

		if avail > max {
			avail = max
		}

		return q.buf[q.write : q.write+avail]
	}

	avail := q.read - q.write - 1

	if avail > max {
		avail = max
	}

	return q.buf[q.write : q.write+avail]
}

// CommitWrite publishes n bytes of the last write grant.
func (q *Queue) CommitWrite(n int) {
	if q.wrapped {
		q.wrapped = false

		if n > 0 {
			q.watermark = q.write
			q.write = n
		}

		return
	}

	q.write += n
}

// ReadGrant returns the contiguous readable region at the head of the
// queue, it is empty when the queue is drained.
func (q *Queue) ReadGrant() []byte {
	if q.write >= q.read {
		return q.buf[q.read:q.write]
	}

	return q.buf[q.read:q.watermark]
}

// ReleaseRead consumes n bytes of the last read grant.
func (q *Queue) ReleaseRead(n int) {
	q.read += n

	if q.write < q.read && q.read == q.watermark {
		// wrapped data continues at the front
		q.read = 0
	}

	if q.read == q.write {
		q.read = 0
		q.write = 0
	}
}

// Len returns the number of queued bytes.
func (q *Queue) Len() int {
	if q.write >= q.read {
		return q.write - q.read
	}

	return (q.watermark - q.read) + q.write
}
