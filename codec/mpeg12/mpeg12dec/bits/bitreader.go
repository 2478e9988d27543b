/*
DESCRIPTION
  bitreader.go provides a bit reader over a FIFO of timestamped elementary
  stream chunks, with start-code resynchronisation.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


// Package bits provides a bit reader for MPEG-1/2 video elementary streams.
// The reader consumes a bounded FIFO of chunks, each carrying the timestamp
// metadata recovered from the PES layer, and exposes the show/get/remove
// primitives used by the syntax parsers, along with byte realignment and
// start-code search.
package bits

import (
	"time"

	"github.com/pkg/errors"
)

// ErrDied is the sticky error recorded when Die interrupts the reader.
// Callers poll Err at syntactic boundaries rather than per read.
var ErrDied = errors.New("bit reader: die requested")

// ErrUnderflow is the sticky error recorded when the chunk FIFO is closed
// and the remaining bits have been consumed.
var ErrUnderflow = errors.New("bit reader: stream exhausted")

// Chunk is one slab of elementary stream data, usually one PES payload.
// The zero time.Time means the timestamp is absent.
type Chunk struct {
	Data          []byte
	PTS           time.Time
	DTS           time.Time
	Rate          int
	Discontinuity bool
}

// Reader is a bit reader over a FIFO of Chunks. All read methods are
// non-failing; the first error encountered is recorded and every
// subsequent read returns zero bits. Use Err to observe the state.
//
// Reader is not safe for concurrent use; the FIFO side (Submit, Close,
// Die) may be driven from another goroutine.
type Reader struct {
	fifo    chan Chunk
	die     chan struct{}
	onChunk func(Chunk)

	cur  []byte // unread remainder of the current chunk
	n    uint64 // bit cache, most recently read byte in the low bits
	bits int    // number of valid bits in n
	err  error
}

// NewReader returns a Reader whose FIFO holds up to capacity chunks.
// onChunk, if non-nil, is invoked for every chunk entering the reader,
// before any of its bits are consumed.
func NewReader(capacity int, onChunk func(Chunk)) *Reader {
	return &Reader{
		fifo:    make(chan Chunk, capacity),
		die:     make(chan struct{}),
		onChunk: onChunk,
	}
}

// Submit queues a chunk for reading. It blocks while the FIFO is full,
// returning ErrDied if Die is called in the meantime.
func (r *Reader) Submit(c Chunk) error {
	select {
	case r.fifo <- c:
		return nil
	case <-r.die:
		return ErrDied
	}
}

// Close marks the end of the stream. Reads beyond the remaining buffered
// bits will record ErrUnderflow.
func (r *Reader) Close() { close(r.fifo) }

// Die interrupts the reader; any blocked refill or Submit returns and the
// reader becomes sticky with ErrDied.
func (r *Reader) Die() {
	select {
	case <-r.die:
	default:
		close(r.die)
	}
}

// Done returns a channel closed when Die is called.
func (r *Reader) Done() <-chan struct{} { return r.die }

// Died reports whether Die has been called.
func (r *Reader) Died() bool {
	select {
	case <-r.die:
		return true
	default:
		return false
	}
}

// Err returns the sticky error state: nil, ErrDied or ErrUnderflow.
func (r *Reader) Err() error { return r.err }

// byteIn pulls the next stream byte into the bit cache, blocking on the
// FIFO if required. On failure the sticky error is recorded and a zero
// byte is inserted so that parsing code can keep running to its next
// error check.
func (r *Reader) byteIn() {
	for len(r.cur) == 0 {
		if r.err != nil {
			break
		}
		select {
		case c, ok := <-r.fifo:
			if !ok {
				r.err = ErrUnderflow
				break
			}
			if r.onChunk != nil {
				r.onChunk(c)
			}
			r.cur = c.Data
		case <-r.die:
			r.err = ErrDied
		}
	}
	var b byte
	if len(r.cur) != 0 {
		b = r.cur[0]
		r.cur = r.cur[1:]
	}
	r.n = r.n<<8 | uint64(b)
	r.bits += 8
}

// Show returns the next n bits, 0 < n <= 32, without advancing.
func (r *Reader) Show(n int) uint32 {
	for r.bits < n {
		r.byteIn()
	}
	return uint32(r.n >> uint(r.bits-n) & (1<<uint(n) - 1))
}

// Get returns the next n bits, 0 < n <= 32, and advances past them.
func (r *Reader) Get(n int) uint32 {
	v := r.Show(n)
	r.bits -= n
	return v
}

// GetSigned returns the next n bits sign-extended from bit n-1, and
// advances past them.
func (r *Reader) GetSigned(n int) int32 {
	v := int32(r.Get(n))
	return v << uint(32-n) >> uint(32-n)
}

// Remove advances past the next n bits, 0 < n <= 32.
func (r *Reader) Remove(n int) {
	for r.bits < n {
		r.byteIn()
	}
	r.bits -= n
}

// Realign advances to the next byte boundary. It is a no-op on an
// already aligned reader.
func (r *Reader) Realign() {
	r.bits -= r.bits & 7
}

// NextStartCode realigns the reader and advances until the next 24 bits
// are the start-code prefix 0x000001. On exit the reader is positioned
// on the prefix, i.e. Show(32) yields the full start code. The search
// terminates early if the reader dies or underflows.
func (r *Reader) NextStartCode() {
	r.Realign()
	for r.Show(24) != 0x000001 && r.err == nil {
		r.Remove(8)
	}
}
