/*
DESCRIPTION
  block.go provides DCT coefficient decoding: run/level VLC expansion for
  the MPEG-1 and MPEG-2 intra and non-intra pathways, inverse scan,
  inverse quantisation with mismatch control, and selection of the IDCT
  variant per block.

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

func saturate(v int32) int32 {
	if v > 2047 {
		return 2047
	}
	if v < -2048 {
		return -2048
	}
	return v
}

// dcSize decodes a dct_dc_size VLC (tables B.12, B.13). chroma selects
// the chrominance table.
func (d *Decoder) dcSize(chroma int) int {
	code := int(d.br.Show(5))
	var e lookup
	if code < 31 {
		e = dctDCSizeShortTable[chroma][code]
	} else {
		code = int(d.br.Show(9+chroma)) - 0x1f0*(chroma+1)
		if code < 0 || code > 31 {
			d.pic.err = true
			return 0
		}
		e = dctDCSizeLongTable[chroma][code]
	}
	if e.val == mbError {
		d.pic.err = true
		return 0
	}
	d.br.Remove(int(e.len))
	return int(e.val)
}

// dcDifferential reads and sign-adjusts a DC differential of the given
// size.
func (d *Decoder) dcDifferential(size int) int32 {
	if size == 0 {
		return 0
	}
	diff := int32(d.br.Get(size))
	if diff&(1<<uint(size-1)) == 0 {
		diff -= 1<<uint(size) - 1
	}
	return diff
}

// escapeLevelMPEG1 reads an MPEG-1 escape level: 8 bits, with a second
// byte when the first is 0 or 128 (ISO/IEC 11172-2 2.4.3.7).
func (d *Decoder) escapeLevelMPEG1() int32 {
	level := int32(d.br.Get(8))
	switch {
	case level == 0:
		level = int32(d.br.Get(8))
	case level == 128:
		level = int32(d.br.Get(8)) - 256
	case level > 128:
		level -= 256
	}
	return level
}

// decodeMPEG1NonIntra expands the coefficients of an MPEG-1 non-intra
// block into mb.blocks[b] and selects the IDCT variant.
func (d *Decoder) decodeMPEG1NonIntra(mb *macroblock, b int) {
	quant := d.seq.nonIntraQuant.m
	nc := 0
	coeff := 0
	var sign bool

	for parse := 0; d.br.Err() == nil; parse++ {
		code := d.br.Show(16)
		var e dctLookup
		if code >= 16384 {
			if parse == 0 {
				e = dctTabDC[(code>>12)-4]
			} else {
				e = dctTabAC[(code>>12)-4]
			}
		} else {
			e = dctCoeffTables[0][code]
		}
		run, level := int(e.run), int32(e.level)
		d.br.Remove(int(e.len))

		switch run {
		case dctEscape:
			run = int(d.br.Get(6))
			level = d.escapeLevelMPEG1()
			if sign = level < 0; sign {
				level = -level
			}
		case dctEOB:
			if nc <= 1 {
				mb.idct[b] = idctSparseKind
				mb.sparsePos[b] = coeff
			} else {
				mb.idct[b] = idctFullKind
			}
			return
		default:
			sign = d.br.Get(1) != 0
		}
		parse += run
		nc++

		if parse >= 64 {
			break
		}

		pos := int(d.scan[parse])
		coeff = pos
		level = (level<<1 + 1) * int32(d.mb.qScale) * int32(quant[pos]) >> 4
		// Oddification (ISO/IEC 11172-2 2.4.4.2).
		level = (level - 1) | 1
		if sign {
			level = -level
		}
		mb.blocks[b][pos] = saturate(level)
	}

	d.log.Error("DCT coefficient out of bounds (MPEG-1 non-intra)")
	d.pic.err = true
}

// decodeMPEG1Intra expands the coefficients of an MPEG-1 intra block,
// including the differential DC coefficient. cc is the colour component
// of the DC predictor; chroma selects the DC size table.
func (d *Decoder) decodeMPEG1Intra(mb *macroblock, b, chroma, cc int) {
	quant := d.seq.intraQuant.m

	size := d.dcSize(chroma)
	if d.pic.err {
		return
	}
	d.mb.dcPred[cc] += d.dcDifferential(size)
	mb.blocks[b][0] = d.mb.dcPred[cc] << 3

	nc := 0
	if d.mb.dcPred[cc] != 0 {
		nc = 1
	}

	if d.pic.codingType == codingD {
		// end_of_macroblock; D pictures have no AC coefficients
		// (ISO/IEC 11172-2 2.4.2.7, 2.4.3.6).
		d.br.Remove(1)
		mb.idct[b] = idctSparseKind
		mb.sparsePos[b] = 0
		return
	}

	coeff := 0
	var sign bool
	for parse := 1; d.br.Err() == nil; parse++ {
		code := d.br.Show(16)
		var e dctLookup
		if code >= 16384 {
			e = dctTabAC[(code>>12)-4]
		} else {
			e = dctCoeffTables[0][code]
		}
		run, level := int(e.run), int32(e.level)
		d.br.Remove(int(e.len))

		switch run {
		case dctEscape:
			run = int(d.br.Get(6))
			level = d.escapeLevelMPEG1()
			if sign = level < 0; sign {
				level = -level
			}
		case dctEOB:
			if nc <= 1 {
				mb.idct[b] = idctSparseKind
				mb.sparsePos[b] = coeff
			} else {
				mb.idct[b] = idctFullKind
			}
			return
		default:
			sign = d.br.Get(1) != 0
		}
		parse += run
		nc++

		if parse >= 64 {
			break
		}

		pos := int(d.scan[parse])
		coeff = pos
		level = level * int32(d.mb.qScale) * int32(quant[pos]) >> 3
		level = (level - 1) | 1
		if sign {
			level = -level
		}
		mb.blocks[b][pos] = saturate(level)
	}

	d.log.Error("DCT coefficient out of bounds (MPEG-1 intra)")
	d.pic.err = true
}

// decodeMPEG2NonIntra expands the coefficients of an MPEG-2 non-intra
// block, applying mismatch control on EOB.
func (d *Decoder) decodeMPEG2NonIntra(mb *macroblock, b int) {
	quant := d.seq.nonIntraQuant.m
	nc := 0
	coeff := 0
	mismatch := int32(1)
	var sign bool

	for parse := 0; d.br.Err() == nil; parse++ {
		code := d.br.Show(16)
		var e dctLookup
		if code >= 16384 {
			if parse == 0 {
				e = dctTabDC[(code>>12)-4]
			} else {
				e = dctTabAC[(code>>12)-4]
			}
		} else {
			e = dctCoeffTables[0][code]
		}
		run, level := int(e.run), int32(e.level)
		d.br.Remove(int(e.len))

		switch run {
		case dctEscape:
			run = int(d.br.Get(6))
			level = int32(d.br.Get(12))
			if sign = level > 2047; sign {
				level = 4096 - level
			}
		case dctEOB:
			if nc <= 1 {
				mb.idct[b] = idctSparseKind
				mb.sparsePos[b] = coeff
			} else {
				mb.idct[b] = idctFullKind
			}
			mb.blocks[b][63] ^= mismatch & 1
			return
		default:
			sign = d.br.Get(1) != 0
		}
		parse += run
		nc++

		if parse >= 64 {
			break
		}

		pos := int(d.scan[parse])
		coeff = pos
		level = (level<<1 + 1) * int32(d.mb.qScale) * int32(quant[pos]) >> 5
		if sign {
			level = -level
		}
		level = saturate(level)
		mb.blocks[b][pos] = level
		mismatch ^= level
	}

	d.log.Error("DCT coefficient out of bounds (MPEG-2 non-intra)")
	d.pic.err = true
}

// decodeMPEG2Intra expands the coefficients of an MPEG-2 intra block:
// differential DC scaled by the intra DC precision, then run/level pairs
// from table B.14 or B.15 per intra_vlc_format, with mismatch control.
func (d *Decoder) decodeMPEG2Intra(mb *macroblock, b, chroma, cc int) {
	quant := d.seq.intraQuant.m

	size := d.dcSize(chroma)
	if d.pic.err {
		return
	}
	d.mb.dcPred[cc] += d.dcDifferential(size)
	mb.blocks[b][0] = d.mb.dcPred[cc] << uint(3-d.pic.intraDCPrecision)

	nc := 0
	if d.mb.dcPred[cc] != 0 {
		nc = 1
	}
	mismatch := int32(1)

	vlcIntra := 0
	if d.pic.intraVLCFormat {
		vlcIntra = 1
	}

	coeff := 0
	var sign bool
	for parse := 1; d.br.Err() == nil; parse++ {
		code := d.br.Show(16)
		var e dctLookup
		if code >= 16384 {
			if vlcIntra == 1 {
				e = dctTab0a[(code>>8)-4]
			} else {
				e = dctTabAC[(code>>12)-4]
			}
		} else {
			e = dctCoeffTables[vlcIntra][code]
		}
		run, level := int(e.run), int32(e.level)
		d.br.Remove(int(e.len))

		switch run {
		case dctEscape:
			run = int(d.br.Get(6))
			level = int32(d.br.Get(12))
			if sign = level > 2047; sign {
				level = 4096 - level
			}
		case dctEOB:
			if nc <= 1 {
				mb.idct[b] = idctSparseKind
				mb.sparsePos[b] = coeff
			} else {
				mb.idct[b] = idctFullKind
			}
			mb.blocks[b][63] ^= mismatch & 1
			return
		default:
			sign = d.br.Get(1) != 0
		}
		parse += run
		nc++

		if parse >= 64 {
			break
		}

		pos := int(d.scan[parse])
		coeff = pos
		level = level * int32(d.mb.qScale) * int32(quant[pos]) >> 4
		if sign {
			level = -level
		}
		level = saturate(level)
		mb.blocks[b][pos] = level
		mismatch ^= level
	}

	d.log.Error("DCT coefficient out of bounds (MPEG-2 intra)")
	d.pic.err = true
}

// decodeBlockData parses the coded blocks of a macroblock, computing each
// block's destination in the output planes. intra selects the coefficient
// pathway and copy-vs-add output.
func (d *Decoder) decodeBlockData(mb *macroblock, intra bool) {
	dctType := 0
	lumaStride := mb.lStride
	if d.mb.dctType {
		dctType = 1
		lumaStride <<= 1
	}

	lumaBase := mb.lX + d.mb.lY*d.seq.width
	chromaBase := mb.cX + d.mb.cY*d.seq.chromaWidth

	mask := 1 << uint(3+mb.chromaNBBlocks)
	for b := 0; b < 4; b, mask = b+1, mask>>1 {
		if mb.cbp&mask == 0 {
			continue
		}
		mb.blocks[b] = [64]int32{}
		if intra {
			if d.seq.mpeg2 {
				d.decodeMPEG2Intra(mb, b, 0, 0)
			} else {
				d.decodeMPEG1Intra(mb, b, 0, 0)
			}
		} else {
			if d.seq.mpeg2 {
				d.decodeMPEG2NonIntra(mb, b)
			} else {
				d.decodeMPEG1NonIntra(mb, b)
			}
		}
		if d.pic.err {
			return
		}
		mb.destPlane[b] = d.pic.pic.Y
		mb.destOff[b] = lumaBase + blockY[dctType][b]*d.pic.lStride + blockX[b]
		mb.destStride[b] = lumaStride
		mb.intra[b] = intra
	}

	if d.grayscale {
		// Chroma coefficients still occupy the bitstream; parse and
		// discard them.
		for b := 4; b < 4+mb.chromaNBBlocks; b, mask = b+1, mask>>1 {
			if mb.cbp&mask == 0 {
				continue
			}
			mb.blocks[b] = [64]int32{}
			cc := 1 + (b-4)&1
			if intra {
				if d.seq.mpeg2 {
					d.decodeMPEG2Intra(mb, b, 1, cc)
				} else {
					d.decodeMPEG1Intra(mb, b, 1, cc)
				}
			} else {
				if d.seq.mpeg2 {
					d.decodeMPEG2NonIntra(mb, b)
				} else {
					d.decodeMPEG1NonIntra(mb, b)
				}
			}
			if d.pic.err {
				return
			}
			mb.destPlane[b] = nil
			mb.cbp &^= mask
		}
		return
	}

	for b := 4; b < 4+mb.chromaNBBlocks; b, mask = b+1, mask>>1 {
		if mb.cbp&mask == 0 {
			continue
		}
		mb.blocks[b] = [64]int32{}
		cc := 1 + (b-4)&1
		if intra {
			if d.seq.mpeg2 {
				d.decodeMPEG2Intra(mb, b, 1, cc)
			} else {
				d.decodeMPEG1Intra(mb, b, 1, cc)
			}
		} else {
			if d.seq.mpeg2 {
				d.decodeMPEG2NonIntra(mb, b)
			} else {
				d.decodeMPEG1NonIntra(mb, b)
			}
		}
		if d.pic.err {
			return
		}
		plane := d.pic.pic.U
		if (b-4)&1 == 1 {
			plane = d.pic.pic.V
		}
		mb.destPlane[b] = plane
		// With 4:2:0 chroma the DCT is necessarily frame coded.
		mb.destOff[b] = chromaBase + blockY[0][b]*d.pic.cStride + blockX[b]
		mb.destStride[b] = mb.cStride
		mb.intra[b] = intra
	}
}
