/*
DESCRIPTION
  macroblock.go provides the parsed macroblock record passed from the
  slice parser to the reconstruction stage, and the add/copy output of
  IDCT results into the destination planes.

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

// motionKind tags the motion compensation form of a macroblock; the
// reconstruction stage switches on it rather than carrying a function
// pointer per record.
type motionKind uint8

const (
	motionNone motionKind = iota
	motionFrameFrame
	motionFrameField
	motionFrameDMV
	motionFieldField
	motionField16x8
	motionFieldDMV
)

// motionKinds maps [frame structure][motion type] to the motion form, the
// way the per-variant routine would be picked from the dispatch matrix.
var motionKinds = [2][4]motionKind{
	{motionNone, motionFieldField, motionField16x8, motionFieldDMV},
	{motionNone, motionFrameField, motionFrameFrame, motionFrameDMV},
}

// maxBlocks is the block count of a 4:2:0 macroblock; the only chroma
// format of MP@ML streams.
const maxBlocks = 6

// macroblock is the record produced by the slice parser and consumed by
// the reconstruction stage. Records are pooled and must not be retained
// after decode.
type macroblock struct {
	pic      *Picture
	forward  *Picture
	backward *Picture

	// Upper-left coordinates in luma and chroma, and the motion base
	// line (one less than the pel line for bottom-field predictions).
	lX, cX             int
	motionLY, motionCY int
	motionField        bool
	pSecond            bool

	lStride, cStride int

	mbType int
	motion motionKind
	cbp    int

	chromaNBBlocks int

	mvs         [2][2][2]int
	fieldSelect [2][2]int
	dmv         [2][2]int

	blocks    [maxBlocks][64]int32
	idct      [maxBlocks]idctKind
	sparsePos [maxBlocks]int

	// Destination of each 8x8 block: plane, starting offset, and the
	// per-line jump (doubled for field-coded DCT in frame pictures).
	destPlane  [maxBlocks][]byte
	destOff    [maxBlocks]int
	destStride [maxBlocks]int
	intra      [maxBlocks]bool
}

// reset clears the parts of a pooled record that are not rewritten
// unconditionally by the parser.
func (mb *macroblock) reset() {
	mb.pic, mb.forward, mb.backward = nil, nil, nil
	mb.cbp = 0
	mb.motion = motionNone
	for i := range mb.destPlane {
		mb.destPlane[i] = nil
	}
}

// Per-block pel offsets within the macroblock; x for all blocks, y for
// frame-coded and field-coded DCT.
var blockX = [12]int{0, 8, 0, 8, 0, 0, 0, 0, 8, 8, 8, 8}
var blockY = [2][12]int{
	{0, 0, 8, 8, 0, 0, 8, 8, 0, 0, 8, 8},
	{0, 0, 1, 1, 0, 0, 1, 1, 0, 0, 1, 1},
}

func clip(v int32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// copyBlock writes a reconstructed intra block into its destination
// rectangle with saturation.
func copyBlock(block *[64]int32, dst []byte, off, stride int) {
	for y := 0; y < 8; y++ {
		row := block[y*8 : y*8+8 : y*8+8]
		d := dst[off : off+8 : off+8]
		for x := 0; x < 8; x++ {
			d[x] = clip(row[x])
		}
		off += stride
	}
}

// addBlock adds a reconstructed residual block to the prediction already
// present in the destination rectangle, with saturation.
func addBlock(block *[64]int32, dst []byte, off, stride int) {
	for y := 0; y < 8; y++ {
		row := block[y*8 : y*8+8 : y*8+8]
		d := dst[off : off+8 : off+8]
		for x := 0; x < 8; x++ {
			d[x] = clip(int32(d[x]) + row[x])
		}
		off += stride
	}
}

// decode runs the reconstruction stage of a parsed macroblock:
// motion compensation, then the inverse transform of each coded block and
// its addition (or copy, for intra) into the destination planes.
func (mb *macroblock) decode() {
	if mb.motion != motionNone {
		mb.compensate()
	}
	mask := 1 << uint(3+mb.chromaNBBlocks)
	for b := 0; b < 4+mb.chromaNBBlocks; b++ {
		if mb.cbp&mask == 0 {
			mask >>= 1
			continue
		}
		mask >>= 1
		switch mb.idct[b] {
		case idctSparseKind:
			idctSparse(&mb.blocks[b], mb.sparsePos[b])
		default:
			idctFull(&mb.blocks[b])
		}
		if mb.intra[b] {
			copyBlock(&mb.blocks[b], mb.destPlane[b], mb.destOff[b], mb.destStride[b])
		} else {
			addBlock(&mb.blocks[b], mb.destPlane[b], mb.destOff[b], mb.destStride[b])
		}
	}
}
