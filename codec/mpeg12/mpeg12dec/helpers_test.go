/*
DESCRIPTION
  helpers_test.go provides shared test utilities: a bitstream writer for
  building synthetic MPEG streams and a renderer capturing decoded
  pictures.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package mpeg12dec

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ausocean/mpegvideo/codec/mpeg12/mpeg12dec/bits"
	"github.com/ausocean/utils/logging"
)

// bitWriter accumulates a bitstream most-significant bit first.
type bitWriter struct {
	buf  []byte
	cur  byte
	bits int
}

func (w *bitWriter) writeBits(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		w.cur = w.cur<<1 | byte(v>>uint(i)&1)
		w.bits++
		if w.bits == 8 {
			w.buf = append(w.buf, w.cur)
			w.cur, w.bits = 0, 0
		}
	}
}

// writeCode writes a binary code given as a string of '0' and '1' runes;
// spaces are ignored.
func (w *bitWriter) writeCode(code string) {
	for _, c := range code {
		switch c {
		case '0':
			w.writeBits(0, 1)
		case '1':
			w.writeBits(1, 1)
		}
	}
}

func (w *bitWriter) align() {
	for w.bits != 0 {
		w.writeBits(0, 1)
	}
}

func (w *bitWriter) startCode(code uint32) {
	w.align()
	w.writeBits(code, 32)
}

func (w *bitWriter) bytes() []byte {
	w.align()
	return w.buf
}

// frame is one output frame captured by the test renderer.
type frame struct {
	y, u, v []byte
	pts     time.Time
}

// testRenderer captures dated and displayed pictures, emitting frames in
// the order their presentation time becomes known.
type testRenderer struct {
	mu        sync.Mutex
	allocated int
	destroyed int
	frames    []frame
	displayed map[*Picture]bool
	dated     map[*Picture]bool
}

func newTestRenderer() *testRenderer {
	return &testRenderer{
		displayed: map[*Picture]bool{},
		dated:     map[*Picture]bool{},
	}
}

func (r *testRenderer) NewPicture(chroma ChromaFormat, w, h int) (*Picture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cw, ch := w>>1, h>>1
	p := &Picture{
		Y:     make([]byte, w*h),
		U:     make([]byte, cw*ch),
		V:     make([]byte, cw*ch),
		Width: w, Height: h,
		ChromaWidth: cw, ChromaHeight: ch,
	}
	r.allocated++
	return p, nil
}

func (r *testRenderer) DatePicture(p *Picture, pts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.PTS = pts
	r.dated[p] = true
	r.maybeEmit(p)
}

func (r *testRenderer) DisplayPicture(p *Picture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.displayed[p] = true
	r.maybeEmit(p)
}

func (r *testRenderer) DestroyPicture(p *Picture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed++
}

func (r *testRenderer) maybeEmit(p *Picture) {
	if !r.dated[p] || !r.displayed[p] {
		return
	}
	delete(r.dated, p)
	y := make([]byte, len(p.Y))
	copy(y, p.Y)
	u := make([]byte, len(p.U))
	copy(u, p.U)
	v := make([]byte, len(p.V))
	copy(v, p.V)
	r.frames = append(r.frames, frame{y: y, u: u, v: v, pts: p.PTS})
}

func (r *testRenderer) frameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func testLogger() logging.Logger {
	return logging.New(logging.Error, io.Discard, true)
}

// runDecode feeds the given chunks through a fresh decoder and returns
// the renderer after the decode loop finishes.
func runDecode(t *testing.T, cfg Config, chunks ...[]byte) *testRenderer {
	t.Helper()
	r := newTestRenderer()
	cfg.Logger = testLogger()
	cfg.Renderer = r
	d, err := New(cfg)
	if err != nil {
		t.Fatalf("could not create decoder: %v", err)
	}
	go func() {
		for _, c := range chunks {
			d.Submit(bits.Chunk{Data: c})
		}
		d.CloseInput()
	}()
	if err := d.Decode(); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return r
}
