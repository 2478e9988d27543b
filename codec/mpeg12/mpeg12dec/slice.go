/*
DESCRIPTION
  slice.go provides slice and macroblock parsing: macroblock addressing,
  macroblock modes, quantiser scale, motion vector decoding including
  dual-prime arithmetic, coded block pattern resolution, and skipped
  macroblock synthesis.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package mpeg12dec

// loadQuantizerScale reads the 5-bit quantiser_scale_code and maps it
// through the appropriate scale table (ISO/IEC 13818-2 7.4.2.2).
func (d *Decoder) loadQuantizerScale() {
	row := 2
	if d.seq.mpeg2 {
		row = 0
		if d.pic.qScaleType {
			row = 1
		}
	}
	d.mb.qScale = int(quantizerScaleTable[row][d.br.Get(5)])
}

// macroblockAddressIncrement decodes macroblock_address_increment,
// accumulating escapes and skipping stuffing (table B.1). A negative
// return indicates an invalid code.
func (d *Decoder) macroblockAddressIncrement() int {
	inc := 0
	for d.br.Err() == nil {
		e := mbAddrIncTable[d.br.Show(11)]
		switch e.val {
		case mbAddrIncEscape:
			d.br.Remove(11)
			inc += 33
		case mbAddrIncStuffing:
			d.br.Remove(11)
		case mbError:
			return -1
		default:
			d.br.Remove(int(e.len))
			return inc + int(e.val)
		}
	}
	return -1
}

// macroblockType decodes macroblock_type for the current coding type
// (tables B.2-B.4, plus the 1-bit D-picture form).
func (d *Decoder) macroblockType() int {
	switch d.pic.codingType {
	case codingI:
		t := d.br.Show(2)
		if t == 0 {
			return mbError
		}
		if t == 1 {
			d.br.Remove(2)
			return mbQuant | mbIntra
		}
		d.br.Remove(1)
		return mbIntra
	case codingP:
		e := mbTypeTable[0][d.br.Show(6)]
		d.br.Remove(int(e.len))
		return int(e.val)
	case codingB:
		e := mbTypeTable[1][d.br.Show(6)]
		d.br.Remove(int(e.len))
		return int(e.val)
	default: // D
		if d.br.Get(1) == 1 {
			return mbIntra
		}
		return mbError
	}
}

// codedBlockPattern decodes coded_block_pattern, with the extension bits
// of the 4:2:2 and 4:4:4 formats (table B.9).
func (d *Decoder) codedBlockPattern() int {
	e := codedPatternTable[d.br.Show(9)]
	d.br.Remove(int(e.len))
	cbp := int(e.val)
	if cbp < 0 {
		d.pic.err = true
		return 0
	}
	switch d.seq.chromaFormat {
	case Chroma422:
		cbp |= int(d.br.Get(2)) << 6
	case Chroma444:
		cbp |= int(d.br.Get(6)) << 6
	}
	return cbp
}

// motionCode decodes a motion_code VLC (table B.10), returning the signed
// value.
func (d *Decoder) motionCode() int {
	// Table B.10, motion_code, codes 01x ... 0011x.
	var mvTab0 = [8]lookup{
		{-1, 0}, {3, 3}, {2, 2}, {2, 2}, {1, 1}, {1, 1}, {1, 1}, {1, 1},
	}
	// Table B.10, motion_code, codes 0000011 ... 000011x.
	var mvTab1 = [8]lookup{
		{-1, 0}, {-1, 0}, {-1, 0}, {7, 6}, {6, 6}, {5, 6}, {4, 5}, {4, 5},
	}
	// Table B.10, motion_code, codes 0000001100 ... 000001011x.
	var mvTab2 = [12]lookup{
		{16, 9}, {15, 9}, {14, 9}, {13, 9},
		{12, 9}, {11, 9}, {10, 8}, {10, 8},
		{9, 8}, {9, 8}, {8, 8}, {8, 8},
	}

	if d.br.Get(1) == 1 {
		return 0
	}
	code := int(d.br.Show(9))
	if code >= 64 {
		code >>= 6
		d.br.Remove(int(mvTab0[code].len))
		if d.br.Get(1) == 1 {
			return -int(mvTab0[code].val)
		}
		return int(mvTab0[code].val)
	}
	if code >= 24 {
		code >>= 3
		d.br.Remove(int(mvTab1[code].len))
		if d.br.Get(1) == 1 {
			return -int(mvTab1[code].val)
		}
		return int(mvTab1[code].val)
	}
	code -= 12
	if code < 0 {
		d.pic.err = true
		d.log.Warning("invalid motion_code")
		return 0
	}
	d.br.Remove(int(mvTab2[code].len))
	if d.br.Get(1) == 1 {
		return -int(mvTab2[code].val)
	}
	return int(mvTab2[code].val)
}

// decodeMotionVector folds a motion_code and residual into the running
// prediction, bounding to the f_code range (ISO/IEC 13818-2 7.6.3.1).
func decodeMotionVector(pred *int, rSize, code, residual, fullPel int) {
	limit := 16 << uint(rSize)
	vector := *pred >> uint(fullPel)

	if code > 0 {
		vector += (code-1)<<uint(rSize) + residual + 1
		if vector >= limit {
			vector -= limit + limit
		}
	} else if code < 0 {
		vector -= (-code-1)<<uint(rSize) + residual + 1
		if vector < -limit {
			vector += limit + limit
		}
	}
	*pred = vector << uint(fullPel)
}

// motionVector parses one motion_vector field: horizontal and vertical
// components and, for dual-prime, the differential pair with the derived
// vectors (ISO/IEC 13818-2 7.6.3.6).
func (d *Decoder) motionVector(mb *macroblock, r, s, fullPel, structure, hRSize, vRSize int) {
	var dmVector [2]int

	code := d.motionCode()
	residual := 0
	if hRSize != 0 && code != 0 {
		residual = int(d.br.Get(hRSize))
	}
	decodeMotionVector(&d.mb.pmv[r][s][0], hRSize, code, residual, fullPel)
	mb.mvs[r][s][0] = d.mb.pmv[r][s][0]

	if d.mb.dmv {
		if d.br.Get(1) == 1 {
			dmVector[0] = 1
			if d.br.Get(1) == 1 {
				dmVector[0] = -1
			}
		}
	}

	code = d.motionCode()
	residual = 0
	if vRSize != 0 && code != 0 {
		residual = int(d.br.Get(vRSize))
	}

	fieldInFrame := d.mb.mvFormat == motionField && structure == frameStructure
	if fieldInFrame {
		d.mb.pmv[r][s][1] >>= 1
	}
	decodeMotionVector(&d.mb.pmv[r][s][1], vRSize, code, residual, fullPel)
	if fieldInFrame {
		d.mb.pmv[r][s][1] <<= 1
	}
	mb.mvs[r][s][1] = d.mb.pmv[r][s][1]

	if !d.mb.dmv {
		return
	}
	if d.br.Get(1) == 1 {
		dmVector[1] = 1
		if d.br.Get(1) == 1 {
			dmVector[1] = -1
		}
	}

	// Dual-prime arithmetic.
	mvX := mb.mvs[0][0][0]
	if structure == frameStructure {
		mvY := mb.mvs[0][0][1] << 1
		sameOdd := func(v int) int {
			if v > 0 {
				return 1
			}
			return 0
		}
		if d.pic.topFieldFirst {
			// Vector for prediction of top field from bottom field.
			mb.dmv[0][0] = (mvX+sameOdd(mvX))>>1 + dmVector[0]
			mb.dmv[0][1] = (mvY+sameOdd(mvY))>>1 + dmVector[1] - 1
			// Vector for prediction of bottom field from top field.
			mb.dmv[1][0] = (3*mvX+sameOdd(mvX))>>1 + dmVector[0]
			mb.dmv[1][1] = (3*mvY+sameOdd(mvY))>>1 + dmVector[1] + 1
		} else {
			mb.dmv[0][0] = (3*mvX+sameOdd(mvX))>>1 + dmVector[0]
			mb.dmv[0][1] = (3*mvY+sameOdd(mvY))>>1 + dmVector[1] - 1
			mb.dmv[1][0] = (mvX+sameOdd(mvX))>>1 + dmVector[0]
			mb.dmv[1][1] = (mvY+sameOdd(mvY))>>1 + dmVector[1] + 1
		}
	} else {
		mvY := mb.mvs[0][0][1]
		pos := func(v int) int {
			if v > 0 {
				return 1
			}
			return 0
		}
		// Vector for prediction from the field of opposite parity.
		mb.dmv[0][0] = (mvX+pos(mvX))>>1 + dmVector[0]
		mb.dmv[0][1] = (mvY+pos(mvY))>>1 + dmVector[1]
		// Correct for the vertical field shift.
		if structure == topField {
			mb.dmv[0][1]--
		} else {
			mb.dmv[0][1]++
		}
	}
}

// decodeMVMPEG1 parses MPEG-1 motion vectors for direction s.
func (d *Decoder) decodeMVMPEG1(mb *macroblock, s int) {
	rSize := d.pic.fCode[s][0] - 1
	fullPel := 0
	if d.pic.fullPelVector[s] {
		fullPel = 1
	}
	d.motionVector(mb, 0, s, fullPel, frameStructure, rSize, rSize)
}

// decodeMVMPEG2 parses an MPEG-2 motion_vectors structure for direction
// s, duplicating the vector when a single vector covers both fields.
func (d *Decoder) decodeMVMPEG2(mb *macroblock, s, structure int) {
	hRSize := d.pic.fCode[s][0] - 1
	vRSize := d.pic.fCode[s][1] - 1

	if d.mb.mvCount == 1 {
		if d.mb.mvFormat == motionField && !d.mb.dmv {
			sel := int(d.br.Get(1))
			mb.fieldSelect[0][s] = sel
			mb.fieldSelect[1][s] = sel
		}
		d.motionVector(mb, 0, s, 0, structure, hRSize, vRSize)
		d.mb.pmv[1][s][0] = d.mb.pmv[0][s][0]
		d.mb.pmv[1][s][1] = d.mb.pmv[0][s][1]
		mb.mvs[1][s][0] = d.mb.pmv[0][s][0]
		mb.mvs[1][s][1] = d.mb.pmv[0][s][1]
		return
	}
	mb.fieldSelect[0][s] = int(d.br.Get(1))
	d.motionVector(mb, 0, s, 0, structure, hRSize, vRSize)
	mb.fieldSelect[1][s] = int(d.br.Get(1))
	d.motionVector(mb, 1, s, 0, structure, hRSize, vRSize)
}

// initMacroblock fills the positional fields of a record from the current
// parsing context.
func (d *Decoder) initMacroblock(mb *macroblock, structure int) {
	mb.chromaNBBlocks = 1 << uint(d.seq.chromaFormat)
	if mb.chromaNBBlocks > 2 {
		// MP@ML: only 4:2:0 data reaches reconstruction.
		mb.chromaNBBlocks = 2
	}
	mb.pic = d.pic.pic

	mb.backward = nil
	mb.forward = nil
	if d.pic.codingType == codingB {
		mb.backward = d.seq.backward
	}
	if d.pic.codingType == codingP || d.pic.codingType == codingB {
		mb.forward = d.seq.forward
	}

	mb.lX = d.mb.lX
	mb.cX = d.mb.cX
	mb.motionLY = d.mb.lY
	mb.motionCY = d.mb.cY
	mb.motionField = structure == bottomField
	if mb.motionField {
		mb.motionLY--
		mb.motionCY--
	}
	mb.lStride = d.pic.lStride
	mb.cStride = d.pic.cStride
	mb.pSecond = structure != d.pic.currentStructure && d.pic.codingType == codingP
}

// updateContext advances the macroblock coordinates, wrapping to the next
// macroblock row at the picture edge.
func (d *Decoder) updateContext(structure int) {
	rowStep := 2
	if structure == frameStructure {
		rowStep = 1
	}
	d.mb.lX += 16
	d.mb.lY += d.mb.lX / d.seq.width * rowStep * 16
	d.mb.lX %= d.seq.width

	d.mb.cX += d.seq.chromaMBWidth
	d.mb.cY += d.mb.cX / d.seq.chromaWidth * rowStep * d.seq.chromaMBHeight
	d.mb.cX %= d.seq.chromaWidth
}

// skippedMacroblock synthesises a skipped macroblock: a forward copy with
// zero vectors in P pictures, a replica of the previous prediction in B
// pictures (ISO/IEC 13818-2 7.6.6). Skipped macroblocks are illegal in I
// pictures.
func (d *Decoder) skippedMacroblock(structure int) {
	if d.pic.codingType == codingI {
		d.log.Error("skipped macroblock in I picture")
		d.pic.err = true
		return
	}

	mb := d.newMacroblock()
	if mb == nil {
		return
	}
	d.initMacroblock(mb, structure)

	// Motion form follows the picture structure.
	if structure == frameStructure {
		mb.motion = motionFrameFrame
	} else {
		mb.motion = motionFieldField
	}
	mb.cbp = 0

	if d.pic.codingType == codingB {
		mb.mbType = d.mb.motionDir
		mb.mvs = [2][2][2]int{}
		for r := 0; r < 2; r++ {
			for s := 0; s < 2; s++ {
				mb.mvs[r][s][0] = d.mb.pmv[r][s][0]
				mb.mvs[r][s][1] = d.mb.pmv[r][s][1]
			}
		}
	} else {
		mb.mbType = mbMotionForward
		mb.mvs = [2][2][2]int{}
	}

	sel := 0
	if structure == bottomField {
		sel = 1
	}
	mb.fieldSelect[0][0] = sel
	mb.fieldSelect[0][1] = sel

	d.updateContext(structure)
	d.dispatchMacroblock(mb)
}

// macroblockModes parses the macroblock_modes structure, setting the
// motion and DCT typing context (ISO/IEC 13818-2 6.3.17.1).
func (d *Decoder) macroblockModes(mb *macroblock, structure int) {
	// Indexed [frame structure][motion type].
	var mvCounts = [2][4]int{{0, 1, 2, 1}, {0, 2, 1, 1}}
	var mvFormats = [2][4]int{{0, 1, 1, 1}, {0, 1, 2, 1}}

	mb.mbType = d.macroblockType()
	if mb.mbType == mbError {
		d.pic.err = true
		return
	}

	if d.pic.codingType == codingB {
		// Remember the motion direction of the last macroblock before
		// a skipped macroblock (ISO/IEC 13818-2 7.6.6).
		d.mb.motionDir = mb.mbType & (mbMotionForward | mbMotionBackward)
	}

	frame := 0
	if structure == frameStructure {
		frame = 1
	}

	if (d.pic.codingType == codingP || d.pic.codingType == codingB) &&
		mb.mbType&(mbMotionForward|mbMotionBackward) != 0 {
		if structure == frameStructure && d.pic.framePredFrameDCT {
			d.mb.motionType = motionFrame
		} else {
			d.mb.motionType = int(d.br.Get(2))
		}
		d.mb.mvCount = mvCounts[frame][d.mb.motionType]
		d.mb.mvFormat = mvFormats[frame][d.mb.motionType]
		d.mb.dmv = d.mb.motionType == motionDMV
	}

	d.mb.dctType = false
	if structure == frameStructure && !d.pic.framePredFrameDCT &&
		mb.mbType&(mbPattern|mbIntra) != 0 {
		d.mb.dctType = d.br.Get(1) == 1
	}
}

// parseMacroblock parses one macroblock and any skipped run preceding it,
// then hands the record(s) to reconstruction. mbAddress tracks the
// current macroblock address within the picture (or field).
func (d *Decoder) parseMacroblock(mbAddress *int, mbPrevious, structure int) {
	inc := d.macroblockAddressIncrement()
	if inc < 0 {
		d.log.Error("bad macroblock address increment")
		d.pic.err = true
		return
	}
	*mbAddress += inc

	if *mbAddress-mbPrevious-1 > 0 {
		// Skipped macroblocks (ISO/IEC 13818-2 7.6.6).
		d.resetDCPredictors()
		if d.pic.codingType == codingP {
			d.resetMVPredictors()
		}
		for i := mbPrevious + 1; i < *mbAddress; i++ {
			d.skippedMacroblock(structure)
			if d.pic.err {
				return
			}
		}
	}

	mb := d.newMacroblock()
	if mb == nil {
		return
	}
	d.initMacroblock(mb, structure)
	d.macroblockModes(mb, structure)
	if d.pic.err {
		*mbAddress--
		d.destroyMacroblock(mb)
		return
	}

	if mb.mbType&mbQuant != 0 {
		d.loadQuantizerScale()
	}

	if (d.pic.codingType == codingP || d.pic.codingType == codingB) &&
		mb.mbType&mbMotionForward != 0 {
		if d.seq.mpeg2 {
			d.decodeMVMPEG2(mb, 0, structure)
		} else {
			d.decodeMVMPEG1(mb, 0)
		}
		if d.pic.err {
			*mbAddress--
			d.destroyMacroblock(mb)
			return
		}
	}

	if d.pic.codingType == codingB && mb.mbType&mbMotionBackward != 0 {
		if d.seq.mpeg2 {
			d.decodeMVMPEG2(mb, 1, structure)
		} else {
			d.decodeMVMPEG1(mb, 1)
		}
		if d.pic.err {
			*mbAddress--
			d.destroyMacroblock(mb)
			return
		}
	}

	if d.pic.codingType == codingP && mb.mbType&(mbMotionForward|mbIntra) == 0 {
		// No-MC macroblock in P pictures (ISO/IEC 13818-2 7.6.3.5).
		mb.mbType |= mbMotionForward
		d.resetMVPredictors()
		mb.mvs = [2][2][2]int{}
		if structure == frameStructure {
			d.mb.motionType = motionFrame
		} else {
			d.mb.motionType = motionField
		}
		sel := 0
		if structure == bottomField {
			sel = 1
		}
		mb.fieldSelect[0][0] = sel
	}

	if d.pic.codingType != codingI && mb.mbType&mbIntra == 0 {
		d.resetDCPredictors()

		frame := 0
		if structure == frameStructure {
			frame = 1
		}
		mb.motion = motionKinds[frame][d.mb.motionType]

		if mb.mbType&mbPattern != 0 {
			mb.cbp = d.codedBlockPattern()
		} else {
			mb.cbp = 0
		}
		if !d.pic.err {
			d.decodeBlockData(mb, false)
		}
	} else {
		if !d.pic.concealmentMV {
			d.resetMVPredictors()
		} else {
			// Concealment vector plus marker bit.
			if d.seq.mpeg2 {
				d.decodeMVMPEG2(mb, 0, structure)
			} else {
				d.decodeMVMPEG1(mb, 0)
			}
			d.br.Remove(1)
		}

		if mb.mbType&mbPattern != 0 {
			mb.cbp = d.codedBlockPattern()
		} else {
			mb.cbp = 1<<uint(4+mb.chromaNBBlocks) - 1
		}
		if !d.pic.err {
			d.decodeBlockData(mb, true)
		}
	}

	if d.pic.err {
		// Mark this block as skipped (better than uninitialised
		// blocks) and go to the next slice.
		*mbAddress--
		d.destroyMacroblock(mb)
		return
	}
	d.updateContext(structure)
	d.dispatchMacroblock(mb)
}

// sliceHeader parses a slice header and its macroblock run. vertCode is
// the low byte of the slice start code.
func (d *Decoder) sliceHeader(mbAddress *int, vertCode, structure int) {
	saved := *mbAddress
	d.pic.err = false

	d.loadQuantizerScale()

	if d.br.Get(1) == 1 {
		// intra_slice and slice_id.
		d.br.Remove(8)
		// extra_information_slice.
		for d.br.Get(1) == 1 && d.br.Err() == nil {
			d.br.Remove(8)
		}
	}

	*mbAddress = (vertCode - 1) * d.seq.mbWidth
	if *mbAddress < saved {
		d.log.Error("slices do not follow, maybe a PES has been trashed")
		d.pic.err = true
		return
	}

	d.resetDCPredictors()
	d.resetMVPredictors()

	prev := saved
	for {
		d.parseMacroblock(mbAddress, prev, structure)
		prev = *mbAddress
		if d.pic.err || d.br.Err() != nil {
			return
		}
		if d.br.Show(23) == 0 {
			break
		}
	}
	d.br.NextStartCode()
}

// pictureData parses all slices of the current picture or field
// (ISO/IEC 13818-2 6.2.3.7), recovering missed macroblocks as skipped
// when more than half of a P or B picture decoded.
func (d *Decoder) pictureData() {
	structure := d.pic.structure
	mbAddress := 0

	fieldShift := uint(1)
	if structure == frameStructure {
		fieldShift = 0
	}

	d.br.NextStartCode()
	for d.br.Err() == nil {
		if (d.pic.codingType == codingI || d.pic.codingType == codingD) && d.pic.err {
			break
		}
		if mbAddress >= d.seq.mbSize>>fieldShift {
			break
		}
		code := int(d.br.Show(32))
		if code < sliceStartCodeMin || code > sliceStartCodeMax {
			d.log.Error("premature end of picture")
			d.pic.err = true
			break
		}
		d.br.Remove(32)
		d.sliceHeader(&mbAddress, code&255, structure)
	}

	// If we missed less than half the macroblocks of the picture, mark
	// the remainder as skipped.
	if (d.pic.codingType == codingP || d.pic.codingType == codingB) && d.pic.err {
		decoded := mbAddress
		enough := decoded > d.seq.mbSize>>1 ||
			(structure != frameStructure && decoded > d.seq.mbSize>>2)
		if enough {
			d.pic.err = false
			// The errored macroblock was already accounted against
			// the picture, so one fewer is synthesised here.
			for i := mbAddress + 1; i < d.seq.mbSize>>fieldShift; i++ {
				d.skippedMacroblock(structure)
				if d.pic.err {
					break
				}
			}
		}
	}
}
