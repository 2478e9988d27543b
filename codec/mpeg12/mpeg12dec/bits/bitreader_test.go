/*
DESCRIPTION
  bitreader_test.go provides testing for the chunk-fed bit reader.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package bits

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newLoadedReader(t *testing.T, data ...[]byte) *Reader {
	t.Helper()
	r := NewReader(len(data)+1, nil)
	for _, d := range data {
		if err := r.Submit(Chunk{Data: d}); err != nil {
			t.Fatalf("could not submit chunk: %v", err)
		}
	}
	r.Close()
	return r
}

func TestShowGetRemove(t *testing.T) {
	// 1000 1111 1110 0011.
	r := newLoadedReader(t, []byte{0x8f, 0xe3})

	if got := r.Show(4); got != 0x8 {
		t.Errorf("unexpected Show(4) result: got %#x, want 0x8", got)
	}
	// Show must not advance.
	if got := r.Show(4); got != 0x8 {
		t.Errorf("unexpected repeated Show(4) result: got %#x, want 0x8", got)
	}
	if got := r.Get(4); got != 0x8 {
		t.Errorf("unexpected Get(4) result: got %#x, want 0x8", got)
	}
	if got := r.Get(2); got != 0x3 {
		t.Errorf("unexpected Get(2) result: got %#x, want 0x3", got)
	}
	r.Remove(4)
	if got := r.Get(6); got != 0x23 {
		t.Errorf("unexpected Get(6) result: got %#x, want 0x23", got)
	}
	if err := r.Err(); err != nil {
		t.Errorf("unexpected error state: %v", err)
	}
}

func TestGetSigned(t *testing.T) {
	tests := []struct {
		data []byte
		n    int
		want int32
	}{
		{[]byte{0xf0}, 4, -1},
		{[]byte{0x70}, 4, 7},
		{[]byte{0x80}, 4, -8},
		{[]byte{0x80, 0x00}, 12, -2048},
	}
	for i, test := range tests {
		r := newLoadedReader(t, test.data)
		if got := r.GetSigned(test.n); got != test.want {
			t.Errorf("did not get expected result for test %d: got %d, want %d", i, got, test.want)
		}
	}
}

func TestRealign(t *testing.T) {
	r := newLoadedReader(t, []byte{0xff, 0x42})
	r.Remove(3)
	r.Realign()
	if got := r.Get(8); got != 0x42 {
		t.Errorf("unexpected byte after realign: got %#x, want 0x42", got)
	}
}

func TestNextStartCode(t *testing.T) {
	r := newLoadedReader(t, []byte{0xde, 0xad, 0x00, 0x00, 0x01, 0xb3, 0x12})
	r.NextStartCode()
	if got := r.Get(32); got != 0x000001b3 {
		t.Errorf("unexpected start code: got %#x, want 0x000001b3", got)
	}
}

func TestCrossChunkReads(t *testing.T) {
	r := newLoadedReader(t, []byte{0x12}, []byte{0x34, 0x56})
	if got := r.Get(24); got != 0x123456 {
		t.Errorf("unexpected cross-chunk read: got %#x, want 0x123456", got)
	}
}

func TestChunkCallback(t *testing.T) {
	var got []time.Time
	r := NewReader(4, func(c Chunk) { got = append(got, c.PTS) })

	t0 := time.Unix(100, 0)
	t1 := time.Unix(200, 0)
	r.Submit(Chunk{Data: []byte{0xaa}, PTS: t0})
	r.Submit(Chunk{Data: []byte{0xbb}, PTS: t1})
	r.Close()

	r.Remove(16)
	want := []time.Time{t0, t1}
	if !cmp.Equal(got, want) {
		t.Errorf("unexpected callback times: %v", cmp.Diff(got, want))
	}
}

func TestUnderflow(t *testing.T) {
	r := newLoadedReader(t, []byte{0xff})
	if got := r.Get(8); got != 0xff {
		t.Fatalf("unexpected read: got %#x, want 0xff", got)
	}
	if got := r.Get(8); got != 0 {
		t.Errorf("expected zero fill after underflow, got %#x", got)
	}
	if err := r.Err(); err != ErrUnderflow {
		t.Errorf("unexpected error state: got %v, want %v", err, ErrUnderflow)
	}
}

func TestDieUnblocksSubmit(t *testing.T) {
	r := NewReader(1, nil)
	r.Submit(Chunk{Data: []byte{0x00}})

	done := make(chan error)
	go func() { done <- r.Submit(Chunk{Data: []byte{0x01}}) }()
	r.Die()

	select {
	case err := <-done:
		if err != ErrDied {
			t.Errorf("unexpected submit error: got %v, want %v", err, ErrDied)
		}
	case <-time.After(time.Second):
		t.Error("submit did not unblock on die")
	}
}

func TestDieUnblocksRead(t *testing.T) {
	r := NewReader(1, nil)
	done := make(chan uint32)
	go func() { done <- r.Get(8) }()
	time.Sleep(10 * time.Millisecond)
	r.Die()

	select {
	case <-done:
		if err := r.Err(); err != ErrDied {
			t.Errorf("unexpected error state: got %v, want %v", err, ErrDied)
		}
	case <-time.After(time.Second):
		t.Error("read did not unblock on die")
	}
}
