/*
NAME
  y4m.go

DESCRIPTION
  y4m.go provides a YUV4MPEG2 stream writer implementing the decoder's
  renderer interface; decoded pictures are written as uncompressed frames
  in presentation order.

AUTHOR
  Trek Hopton <trek@ausocean.org>
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


// Package y4m provides writing of YUV4MPEG2 streams from decoded
// pictures.
package y4m

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ausocean/mpegvideo/codec/mpeg12/mpeg12dec"
)

// Number of pictures the renderer hands out before allocation fails and
// the decoder backs off. Three covers the decoder's in-flight picture
// plus both references; the rest covers display queueing.
const defaultHeapSize = 5

var errHeapExhausted = fmt.Errorf("y4m: picture heap exhausted")

// state tracks a picture through the display protocol: a frame is
// written once it has been both displayed and dated.
type state struct {
	displayed bool
	dated     bool
	written   bool
}

// Renderer writes decoded pictures to dst as a YUV4MPEG2 stream. It
// implements mpeg12dec.Renderer. Renderer methods may be called from
// multiple goroutines.
type Renderer struct {
	dst io.Writer

	mu          sync.Mutex
	headerDone  bool
	frameRate   int // fps*1001 units
	outstanding int
	states      map[*mpeg12dec.Picture]*state
	err         error
}

// NewRenderer returns a Renderer writing frames to dst. frameRate is in
// fps*1001 units (for example 30000 for 29.97 fps) and is only used for
// the stream header.
func NewRenderer(dst io.Writer, frameRate int) *Renderer {
	return &Renderer{
		dst:       dst,
		frameRate: frameRate,
		states:    map[*mpeg12dec.Picture]*state{},
	}
}

// Err returns the first write error encountered.
func (r *Renderer) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// NewPicture allocates a picture, failing transiently when too many
// pictures are outstanding.
func (r *Renderer) NewPicture(chroma mpeg12dec.ChromaFormat, w, h int) (*mpeg12dec.Picture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.outstanding >= defaultHeapSize {
		return nil, errHeapExhausted
	}
	cw, ch := w, h
	switch chroma {
	case mpeg12dec.Chroma420:
		cw, ch = w>>1, h>>1
	case mpeg12dec.Chroma422:
		cw = w >> 1
	}
	p := &mpeg12dec.Picture{
		Y:     make([]byte, w*h),
		U:     make([]byte, cw*ch),
		V:     make([]byte, cw*ch),
		Width: w, Height: h,
		ChromaWidth: cw, ChromaHeight: ch,
	}
	r.outstanding++
	r.states[p] = &state{}
	return p, nil
}

// DatePicture records the presentation time of a picture.
func (r *Renderer) DatePicture(p *mpeg12dec.Picture, pts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.PTS = pts
	s := r.states[p]
	if s == nil {
		return
	}
	s.dated = true
	r.maybeWrite(p, s)
}

// DisplayPicture queues a picture for display; it is written once its
// presentation time is known.
func (r *Renderer) DisplayPicture(p *mpeg12dec.Picture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.states[p]
	if s == nil {
		return
	}
	s.displayed = true
	r.maybeWrite(p, s)
}

// DestroyPicture returns a picture to the heap.
func (r *Renderer) DestroyPicture(p *mpeg12dec.Picture) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.states[p] != nil {
		delete(r.states, p)
		r.outstanding--
	}
}

// maybeWrite writes the frame once displayed and dated. Writes happen in
// dating order, which is presentation order.
func (r *Renderer) maybeWrite(p *mpeg12dec.Picture, s *state) {
	if !s.displayed || !s.dated || s.written || r.err != nil {
		return
	}
	s.written = true

	if !r.headerDone {
		r.headerDone = true
		num, den := 25, 1
		if r.frameRate != 0 {
			num, den = r.frameRate, 1001
		}
		_, r.err = fmt.Fprintf(r.dst, "YUV4MPEG2 W%d H%d F%d:%d Ip A0:0 C420mpeg2\n",
			p.Width, p.Height, num, den)
		if r.err != nil {
			return
		}
	}

	if _, r.err = io.WriteString(r.dst, "FRAME\n"); r.err != nil {
		return
	}
	for _, plane := range [][]byte{p.Y, p.U, p.V} {
		if _, r.err = r.dst.Write(plane); r.err != nil {
			return
		}
	}
}
