// USB to UART bridging
// https://github.com/craigjb/gameslab-smc
//
// Copyright (c) craigjb.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func push(q *Queue, data []byte) int {
	n := 0

	for n < len(data) {
		grant := q.WriteGrant(len(data) - n)

		if len(grant) == 0 {
			q.CommitWrite(0)
			break
		}

		copy(grant, data[n:n+len(grant)])
		q.CommitWrite(len(grant))
		n += len(grant)
	}

	return n
}

func pop(q *Queue, max int) []byte {
	grant := q.ReadGrant()

	if len(grant) > max {
		grant = grant[:max]
	}

	out := append([]byte(nil), grant...)
	q.ReleaseRead(len(out))

	return out
}

func TestQueueEmpty(t *testing.T) {
	q := &Queue{}

	assert.Zero(t, q.Len())
	assert.Empty(t, q.ReadGrant())
}

func TestQueueFIFO(t *testing.T) {
	q := &Queue{}

	data := []byte("the quick brown fox jumps over the lazy dog")
	require.Equal(t, len(data), push(q, data))
	require.Equal(t, len(data), q.Len())

	var out []byte

	for q.Len() > 0 {
		out = append(out, pop(q, 7)...)
	}

	assert.Equal(t, data, out)
}

func TestQueueFull(t *testing.T) {
	q := &Queue{}

	data := make([]byte, QueueSize)

	for i := range data {
		data[i] = byte(i)
	}

	// one slot stays free to distinguish full from empty
	n := push(q, data)
	assert.Equal(t, QueueSize-1, n)

	assert.Empty(t, q.WriteGrant(1))
	q.CommitWrite(0)

	assert.Equal(t, data[:n], pop(q, QueueSize))
	assert.Zero(t, q.Len())
}

func TestQueueWrap(t *testing.T) {
	q := &Queue{}

	// park the read cursor mid-buffer with data still pending
	prefix := make([]byte, 200)
	for i := range prefix {
		prefix[i] = 0xaa
	}

	require.Equal(t, 200, push(q, prefix))
	assert.Equal(t, prefix[:150], pop(q, 150))

	// this write exhausts the space at the end of storage and wraps to
	// the front
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i)
	}

	require.Equal(t, 100, push(q, data))
	require.Equal(t, 150, q.Len())

	// grants stay contiguous, so the data arrives across several reads
	var out []byte

	for q.Len() > 0 {
		chunk := pop(q, QueueSize)
		require.NotEmpty(t, chunk)
		out = append(out, chunk...)
	}

	want := append(append([]byte(nil), prefix[150:]...), data...)
	assert.Equal(t, want, out)
}

func TestQueueInterleaved(t *testing.T) {
	q := &Queue{}

	var in, out []byte
	seq := byte(0)

	// steady mismatched producer/consumer chunk sizes force every wrap
	// path over time
	for i := 0; i < 500; i++ {
		chunk := make([]byte, 13)

		for j := range chunk {
			chunk[j] = seq
			seq++
		}

		in = append(in, chunk[:push(q, chunk)]...)
		out = append(out, pop(q, 11)...)
	}

	for q.Len() > 0 {
		out = append(out, pop(q, QueueSize)...)
	}

	assert.Equal(t, in, out)
}
