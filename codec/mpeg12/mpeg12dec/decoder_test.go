/*
DESCRIPTION
  decoder_test.go provides end-to-end decoder testing over synthetic
  MPEG-1 bitstreams.

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
	"bytes"
	"testing"
	"time"

	"github.com/ausocean/mpegvideo/codec/mpeg12/mpeg12dec/bits"
)

// writeSequenceHeader writes a 16x16 MPEG-1 sequence header with default
// quantisation matrices and a 25fps frame rate.
func writeSequenceHeader(w *bitWriter) {
	w.startCode(0x000001b3)
	w.writeBits(16, 12)      // horizontal_size
	w.writeBits(16, 12)      // vertical_size
	w.writeBits(1, 4)        // aspect_ratio (square)
	w.writeBits(3, 4)        // frame_rate_code (25fps)
	w.writeBits(0x3ffff, 18) // bit_rate
	w.writeBits(1, 1)        // marker_bit
	w.writeBits(0, 10)       // vbv_buffer_size
	w.writeBits(0, 1)        // constrained_parameters_flag
	w.writeBits(0, 1)        // load_intra_quantizer_matrix
	w.writeBits(0, 1)        // load_non_intra_quantizer_matrix
}

// writePictureHeader writes an MPEG-1 picture header; f_codes of 1 are
// used for P and B pictures.
func writePictureHeader(w *bitWriter, codingType int) {
	w.startCode(0x00000100)
	w.writeBits(0, 10) // temporal_reference
	w.writeBits(uint32(codingType), 3)
	w.writeBits(0, 16) // vbv_delay
	if codingType == codingP || codingType == codingB {
		w.writeBits(0, 1) // full_pel_forward_vector
		w.writeBits(1, 3) // forward_f_code
	}
	if codingType == codingB {
		w.writeBits(0, 1) // full_pel_backward_vector
		w.writeBits(1, 3) // backward_f_code
	}
	w.writeBits(0, 1) // extra_bit_picture
}

// writeSliceStart opens slice 1 with quantiser scale 8.
func writeSliceStart(w *bitWriter) {
	w.startCode(0x00000101)
	w.writeBits(8, 5) // quantiser_scale_code
	w.writeBits(0, 1) // extra_bit_slice
}

// writeIntraMB writes one all-DC intra macroblock: six blocks carrying a
// zero DC differential and an immediate end of block.
func writeIntraMB(w *bitWriter) {
	w.writeCode("1") // macroblock_address_increment 1
	w.writeCode("1") // macroblock_type: intra
	for b := 0; b < 4; b++ {
		w.writeCode("100") // dct_dc_size_luminance 0
		w.writeCode("10")  // EOB
	}
	for b := 0; b < 2; b++ {
		w.writeCode("00") // dct_dc_size_chrominance 0
		w.writeCode("10") // EOB
	}
}

// writeForwardZeroMB writes one forward-predicted macroblock with a zero
// motion vector and no coded blocks.
func writeForwardZeroMB(w *bitWriter) {
	w.writeCode("1")   // macroblock_address_increment 1
	w.writeCode("001") // macroblock_type: motion forward
	w.writeCode("1")   // horizontal motion_code 0
	w.writeCode("1")   // vertical motion_code 0
}

// writeBackwardZeroMB writes one backward-predicted macroblock with a
// zero motion vector and no coded blocks.
func writeBackwardZeroMB(w *bitWriter) {
	w.writeCode("1")   // macroblock_address_increment 1
	w.writeCode("010") // macroblock_type: motion backward
	w.writeCode("1")   // horizontal motion_code 0
	w.writeCode("1")   // vertical motion_code 0
}

func writeIPicture(w *bitWriter) {
	writePictureHeader(w, codingI)
	writeSliceStart(w)
	writeIntraMB(w)
}

func allEqual(t *testing.T, plane []byte, want byte, what string) {
	t.Helper()
	for i, v := range plane {
		if v != want {
			t.Fatalf("%s differs at %d: got %d, want %d", what, i, v, want)
			return
		}
	}
}

func TestDecodeSingleIFrame(t *testing.T) {
	var w bitWriter
	writeSequenceHeader(&w)
	writeIPicture(&w)
	w.startCode(0x000001b7)

	r := runDecode(t, Config{Synchro: SynchroIPB}, w.bytes())

	if got := r.frameCount(); got != 1 {
		t.Fatalf("unexpected frame count: got %d, want 1", got)
	}
	f := r.frames[0]
	// All-zero DC differentials leave every plane at the mid value.
	allEqual(t, f.y, 128, "luma")
	allEqual(t, f.u, 128, "chroma U")
	allEqual(t, f.v, 128, "chroma V")
	if r.allocated != r.destroyed {
		t.Errorf("picture leak: allocated %d, destroyed %d", r.allocated, r.destroyed)
	}
}

func TestDecodeIPPair(t *testing.T) {
	var w bitWriter
	writeSequenceHeader(&w)
	writeIPicture(&w)
	writePictureHeader(&w, codingP)
	writeSliceStart(&w)
	writeForwardZeroMB(&w)
	w.startCode(0x000001b7)

	rend := newTestRenderer()
	d, err := New(Config{Logger: testLogger(), Renderer: rend, Synchro: SynchroIPB})
	if err != nil {
		t.Fatalf("could not create decoder: %v", err)
	}
	go func() {
		d.Submit(bits.Chunk{Data: w.bytes()})
		d.CloseInput()
	}()
	if err := d.Decode(); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if got := rend.frameCount(); got != 2 {
		t.Fatalf("unexpected frame count: got %d, want 2", got)
	}
	// A zero-vector forward prediction with no residual replicates the
	// reference exactly.
	if !bytes.Equal(rend.frames[0].y, rend.frames[1].y) {
		t.Error("P picture luma differs from its reference")
	}
	if !bytes.Equal(rend.frames[0].u, rend.frames[1].u) {
		t.Error("P picture chroma differs from its reference")
	}
	if d.synchro.meaningful[codingP] == 0 {
		t.Error("decode latency of the P picture was not recorded")
	}
	if rend.allocated != rend.destroyed {
		t.Errorf("picture leak: allocated %d, destroyed %d", rend.allocated, rend.destroyed)
	}
}

func TestDecodePresentationOrder(t *testing.T) {
	// Stream order I P B I; expected display order I B P with
	// ascending presentation times.
	base := time.Now().Add(defaultPTSDelay)
	t0 := base.Add(40 * time.Millisecond)

	var ichunk, pchunk, bchunk, i2chunk bitWriter
	writeSequenceHeader(&ichunk)
	writeIPicture(&ichunk)

	writePictureHeader(&pchunk, codingP)
	writeSliceStart(&pchunk)
	writeForwardZeroMB(&pchunk)

	writePictureHeader(&bchunk, codingB)
	writeSliceStart(&bchunk)
	writeBackwardZeroMB(&bchunk)

	writeIPicture(&i2chunk)
	i2chunk.startCode(0x000001b7)

	rend := newTestRenderer()
	d, err := New(Config{Logger: testLogger(), Renderer: rend, Synchro: SynchroIPB})
	if err != nil {
		t.Fatalf("could not create decoder: %v", err)
	}
	go func() {
		d.Submit(bits.Chunk{Data: ichunk.bytes(), PTS: t0})
		d.Submit(bits.Chunk{Data: pchunk.bytes(), PTS: t0.Add(80 * time.Millisecond)})
		d.Submit(bits.Chunk{Data: bchunk.bytes(), PTS: t0.Add(40 * time.Millisecond)})
		d.Submit(bits.Chunk{Data: i2chunk.bytes(), PTS: t0.Add(120 * time.Millisecond)})
		d.CloseInput()
	}()
	if err := d.Decode(); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if got := rend.frameCount(); got < 3 {
		t.Fatalf("unexpected frame count: got %d, want at least 3", got)
	}
	want := []time.Time{t0, t0.Add(40 * time.Millisecond), t0.Add(80 * time.Millisecond)}
	for i, wantPTS := range want {
		if !rend.frames[i].pts.Equal(wantPTS) {
			t.Errorf("frame %d has PTS %v, want %v", i, rend.frames[i].pts, wantPTS)
		}
	}
}

func TestForcedSynchroSkipsB(t *testing.T) {
	var w bitWriter
	writeSequenceHeader(&w)
	writeIPicture(&w)
	writePictureHeader(&w, codingP)
	writeSliceStart(&w)
	writeForwardZeroMB(&w)
	writePictureHeader(&w, codingB)
	writeSliceStart(&w)
	writeBackwardZeroMB(&w)
	w.startCode(0x000001b7)

	rend := newTestRenderer()
	d, err := New(Config{Logger: testLogger(), Renderer: rend, Synchro: SynchroIP})
	if err != nil {
		t.Fatalf("could not create decoder: %v", err)
	}
	go func() {
		d.Submit(bits.Chunk{Data: w.bytes()})
		d.CloseInput()
	}()
	if err := d.Decode(); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if got := rend.frameCount(); got != 2 {
		t.Errorf("unexpected frame count: got %d, want 2", got)
	}
	if d.stats.trashed != 1 {
		t.Errorf("unexpected trashed count: got %d, want 1", d.stats.trashed)
	}
	if got := d.stats.decoded[codingB]; got != 0 {
		t.Errorf("B pictures were decoded under IP synchro: %d", got)
	}
}

func TestDiscontinuityFlushesReferences(t *testing.T) {
	var chunk1, chunk2 bitWriter
	writeSequenceHeader(&chunk1)
	writeIPicture(&chunk1)
	writePictureHeader(&chunk1, codingP)
	writeSliceStart(&chunk1)
	writeForwardZeroMB(&chunk1)

	writeIPicture(&chunk2)
	chunk2.startCode(0x000001b7)

	rend := newTestRenderer()
	d, err := New(Config{Logger: testLogger(), Renderer: rend, Synchro: SynchroIPB})
	if err != nil {
		t.Fatalf("could not create decoder: %v", err)
	}
	go func() {
		d.Submit(bits.Chunk{Data: chunk1.bytes()})
		d.Submit(bits.Chunk{Data: chunk2.bytes(), Discontinuity: true})
		d.CloseInput()
	}()
	if err := d.Decode(); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if d.seq.forward != nil || d.seq.backward != nil {
		t.Error("references were not released at end of stream")
	}
	// The I picture after the discontinuity must have decoded.
	if got := d.stats.decoded[codingI]; got != 2 {
		t.Errorf("unexpected decoded I count: got %d, want 2", got)
	}
	if rend.allocated != rend.destroyed {
		t.Errorf("picture leak: allocated %d, destroyed %d", rend.allocated, rend.destroyed)
	}
}

func TestDecodeWithWorkerPool(t *testing.T) {
	var w bitWriter
	writeSequenceHeader(&w)
	writeIPicture(&w)
	writePictureHeader(&w, codingP)
	writeSliceStart(&w)
	writeForwardZeroMB(&w)
	w.startCode(0x000001b7)

	r := runDecode(t, Config{Synchro: SynchroIPB, Workers: 2}, w.bytes())
	if got := r.frameCount(); got != 2 {
		t.Fatalf("unexpected frame count with workers: got %d, want 2", got)
	}
	for _, f := range r.frames {
		allEqual(t, f.y, 128, "luma")
	}
}

func TestSkippedMacroblocks(t *testing.T) {
	// A 48x16 sequence: the I picture codes three intra macroblocks;
	// the P picture codes the first and last with zero vectors, leaving
	// the middle macroblock skipped. Skipped P macroblocks replicate
	// the reference with a zero vector, so the output must match the
	// reference everywhere.
	var w bitWriter
	w.startCode(0x000001b3)
	w.writeBits(48, 12)
	w.writeBits(16, 12)
	w.writeBits(1, 4)
	w.writeBits(3, 4)
	w.writeBits(0x3ffff, 18)
	w.writeBits(1, 1)
	w.writeBits(0, 10)
	w.writeBits(0, 1)
	w.writeBits(0, 1)
	w.writeBits(0, 1)

	writePictureHeader(&w, codingI)
	writeSliceStart(&w)
	writeIntraMB(&w)
	writeIntraMB(&w)
	writeIntraMB(&w)

	writePictureHeader(&w, codingP)
	writeSliceStart(&w)
	writeForwardZeroMB(&w)
	w.writeCode("011") // macroblock_address_increment 2: one skipped
	w.writeCode("001") // macroblock_type: motion forward
	w.writeCode("1")   // horizontal motion_code 0
	w.writeCode("1")   // vertical motion_code 0
	w.startCode(0x000001b7)

	rend := newTestRenderer()
	d, err := New(Config{Logger: testLogger(), Renderer: rend, Synchro: SynchroIPB})
	if err != nil {
		t.Fatalf("could not create decoder: %v", err)
	}
	go func() {
		d.Submit(bits.Chunk{Data: w.bytes()})
		d.CloseInput()
	}()
	if err := d.Decode(); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if got := rend.frameCount(); got != 2 {
		t.Fatalf("unexpected frame count: got %d, want 2", got)
	}
	if !bytes.Equal(rend.frames[0].y, rend.frames[1].y) {
		t.Error("P picture with a skipped macroblock differs from its reference")
	}
	if !bytes.Equal(rend.frames[0].u, rend.frames[1].u) ||
		!bytes.Equal(rend.frames[0].v, rend.frames[1].v) {
		t.Error("skipped macroblock chroma differs from the reference")
	}
}

func TestGrayscaleSkipsChroma(t *testing.T) {
	var w bitWriter
	writeSequenceHeader(&w)
	writeIPicture(&w)
	w.startCode(0x000001b7)

	r := runDecode(t, Config{Synchro: SynchroIPB, Grayscale: true}, w.bytes())
	if got := r.frameCount(); got != 1 {
		t.Fatalf("unexpected frame count: got %d, want 1", got)
	}
	allEqual(t, r.frames[0].y, 128, "luma")
	// Chroma planes stay untouched.
	allEqual(t, r.frames[0].u, 0, "chroma U")
	allEqual(t, r.frames[0].v, 0, "chroma V")
}

func TestStopInterruptsDecode(t *testing.T) {
	rend := newTestRenderer()
	d, err := New(Config{Logger: testLogger(), Renderer: rend})
	if err != nil {
		t.Fatalf("could not create decoder: %v", err)
	}
	done := make(chan error)
	go func() { done <- d.Decode() }()
	time.Sleep(10 * time.Millisecond)
	d.Stop()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected an error from an interrupted decode")
		}
	case <-time.After(time.Second):
		t.Fatal("decode did not return after stop")
	}
}
