/*
DESCRIPTION
  block_test.go provides testing for DCT coefficient decoding: DC
  prediction, escape handling, mismatch control and IDCT variant
  selection.

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
	"testing"

	"github.com/ausocean/mpegvideo/codec/mpeg12/mpeg12dec/bits"
)

// newBlockTestDecoder returns a decoder primed for direct block decoding
// with flat quantisation matrices and the given coefficient bits.
func newBlockTestDecoder(t *testing.T, mpeg2 bool, data []byte) *Decoder {
	t.Helper()
	d, err := New(Config{Logger: testLogger(), Renderer: newTestRenderer()})
	if err != nil {
		t.Fatalf("could not create decoder: %v", err)
	}
	d.seq.mpeg2 = mpeg2
	d.seq.intraQuant.borrow(&defaultNonIntraQuant)
	d.seq.nonIntraQuant.borrow(&defaultNonIntraQuant)
	d.mb.qScale = 2
	d.resetDCPredictors()
	d.br.Submit(bits.Chunk{Data: data})
	d.br.Close()
	return d
}

func TestIntraDCPrediction(t *testing.T) {
	// Two successive luma blocks: the first carries dct_dc_size 4 with
	// differential +8, the second size 0. Both end immediately with EOB.
	var w bitWriter
	w.writeCode("110") // dct_dc_size_luminance = 4
	w.writeBits(8, 4)  // differential +8
	w.writeCode("10")  // EOB
	w.writeCode("100") // dct_dc_size_luminance = 0
	w.writeCode("10")  // EOB
	d := newBlockTestDecoder(t, false, w.bytes())

	var mb macroblock
	d.decodeMPEG1Intra(&mb, 0, 0, 0)
	if d.pic.err {
		t.Fatal("unexpected picture error")
	}
	// Predictor starts at 128; coefficient (0,0) is predictor << 3.
	if got, want := mb.blocks[0][0], int32((128+8)<<3); got != want {
		t.Errorf("unexpected first DC: got %d, want %d", got, want)
	}
	d.decodeMPEG1Intra(&mb, 1, 0, 0)
	if got, want := mb.blocks[1][0], int32((128+8)<<3); got != want {
		t.Errorf("unexpected second DC: got %d, want %d", got, want)
	}
	if mb.idct[0] != idctSparseKind || mb.sparsePos[0] != 0 {
		t.Error("DC-only block did not select the sparse DC path")
	}
}

func TestMPEG2MismatchControl(t *testing.T) {
	// A single non-DC coefficient at position 62 via an escape code
	// with an even quantised value: coefficient 63 must be toggled on
	// and the sparse path selected at position 62.
	var w bitWriter
	w.writeCode("100")    // dct_dc_size = 0
	w.writeCode("000001") // escape
	w.writeBits(61, 6)    // run 61: parse index 1+61 = 62
	w.writeBits(8, 12)    // level 8
	w.writeCode("10")     // EOB (table B.14)
	d := newBlockTestDecoder(t, true, w.bytes())
	d.mb.dcPred[0] = 0 // DC of zero keeps the block single-coefficient

	var mb macroblock
	d.decodeMPEG2Intra(&mb, 0, 0, 0)
	if d.pic.err {
		t.Fatal("unexpected picture error")
	}

	// level * qScale * quant >> 4 = 8*2*16>>4 = 16, an even value.
	if got := mb.blocks[0][62]; got != 16 {
		t.Errorf("unexpected coefficient 62: got %d, want 16", got)
	}
	if got := mb.blocks[0][63]; got != 1 {
		t.Errorf("mismatch control did not set coefficient 63: got %d", got)
	}
	if mb.idct[0] != idctSparseKind || mb.sparsePos[0] != 62 {
		t.Errorf("unexpected IDCT selection: kind %v pos %d", mb.idct[0], mb.sparsePos[0])
	}

	// XOR of all coefficients must have LSB 1 after mismatch control.
	var xor int32
	for _, v := range mb.blocks[0] {
		xor ^= v
	}
	if xor&1 != 1 {
		t.Error("mismatch control property violated")
	}

	// The sparse result must track the full transform within one level
	// per pel.
	full := mb.blocks[0]
	sparse := mb.blocks[0]
	idctFull(&full)
	idctSparse(&sparse, 62)
	for i := range full {
		diff := full[i] - sparse[i]
		if diff < -1 || diff > 1 {
			t.Fatalf("sparse result differs at %d: full %d, sparse %d", i, full[i], sparse[i])
		}
	}
}

func TestMPEG1Oddification(t *testing.T) {
	// Non-intra coefficient: first-coefficient code 1x carries run 0
	// level 1; with qScale 2 and flat matrices the inverse quantised
	// value (2*1+1)*2*16>>4 = 6 is oddified to 5.
	var w bitWriter
	w.writeCode("1")  // run 0 level 1 (first coefficient)
	w.writeCode("0")  // positive sign
	w.writeCode("10") // EOB
	// Trailing start code, so the 16-bit coefficient lookahead stays
	// inside the stream.
	w.startCode(0x000001b7)
	d := newBlockTestDecoder(t, false, w.bytes())

	var mb macroblock
	d.decodeMPEG1NonIntra(&mb, 0)
	if d.pic.err {
		t.Fatal("unexpected picture error")
	}
	if got := mb.blocks[0][0]; got != 5 {
		t.Errorf("unexpected oddified coefficient: got %d, want 5", got)
	}
}

func TestCoefficientOutOfBoundsAbortsSlice(t *testing.T) {
	// An escape with a run pushing the coefficient index past 63 must
	// set the picture error and stop the block.
	var w bitWriter
	w.writeCode("1")      // run 0 level 1
	w.writeCode("0")      // sign
	w.writeCode("000001") // escape
	w.writeBits(63, 6)    // run 63: out of bounds
	w.writeBits(8, 12)
	w.writeCode("10")
	d := newBlockTestDecoder(t, true, w.bytes())

	var mb macroblock
	d.decodeMPEG2NonIntra(&mb, 0)
	if !d.pic.err {
		t.Error("out of bounds coefficient did not set the picture error")
	}
}

func TestDecodeMotionVectorBounds(t *testing.T) {
	// Folded vectors stay within [-16<<r, 16<<r - 1] for any code and
	// residual in range.
	for rSize := 0; rSize < 4; rSize++ {
		limit := 16 << uint(rSize)
		for code := -16; code <= 16; code++ {
			for residual := 0; residual < 1<<uint(rSize); residual++ {
				for _, pred := range []int{0, limit - 1, -limit, 7} {
					p := pred
					decodeMotionVector(&p, rSize, code, residual, 0)
					if p < -limit || p >= limit {
						t.Fatalf("vector out of range: rSize %d code %d residual %d pred %d: got %d",
							rSize, code, residual, pred, p)
					}
				}
			}
		}
	}
}
