/*
DESCRIPTION
  motion.go provides motion compensation: the half-pel interpolation
  kernels and the frame/field/16x8/dual-prime prediction forms for 4:2:0
  macroblocks.

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

// motionComponent predicts one rectangle of width x height pels from src
// into dst. stride is the per-line jump of both rectangles; step the jump
// to the next line of the source field, used by the vertical half-pel
// taps. hx and hy are the half-pel flags, and avg averages the prediction
// with the data already present (the second direction of a bidirectional
// prediction).
func motionComponent(src []byte, so int, dst []byte, do int,
	width, height, stride, step int, hx, hy bool, avg bool) {
	switch {
	case !hx && !hy:
		if avg {
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					dst[do+x] = byte((uint(dst[do+x]) + uint(src[so+x]) + 1) >> 1)
				}
				so += stride
				do += stride
			}
			return
		}
		for y := 0; y < height; y++ {
			copy(dst[do:do+width], src[so:so+width])
			so += stride
			do += stride
		}

	case hx && !hy:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				p := (uint(src[so+x]) + uint(src[so+x+1]) + 1) >> 1
				if avg {
					p = (uint(dst[do+x]) + p + 1) >> 1
				}
				dst[do+x] = byte(p)
			}
			so += stride
			do += stride
		}

	case !hx && hy:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				p := (uint(src[so+x]) + uint(src[so+x+step]) + 1) >> 1
				if avg {
					p = (uint(dst[do+x]) + p + 1) >> 1
				}
				dst[do+x] = byte(p)
			}
			so += stride
			do += stride
		}

	default: // hx && hy
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				p := (uint(src[so+x]) + uint(src[so+x+1]) +
					uint(src[so+x+step]) + uint(src[so+x+step+1]) + 2) >> 2
				if avg {
					p = (uint(dst[do+x]) + p + 1) >> 1
				}
				dst[do+x] = byte(p)
			}
			so += stride
			do += stride
		}
	}
}

// motion420 predicts one 16-wide luma rectangle and the co-sited 8-wide
// chroma rectangles of a 4:2:0 macroblock from source. srcField and
// dstField select the source and destination fields when predicting
// field lines within a frame; height is the luma prediction height;
// offset the first predicted luma line. Chroma vectors derive from the
// luma vector by arithmetic halving, keeping the half-pel flags.
func (mb *macroblock) motion420(source *Picture, srcField, dstField int,
	mvX, mvY int, lStride, cStride, height, offset int, avg bool) {
	picW := mb.pic.Width
	picCW := mb.pic.ChromaWidth

	hx, hy := mvX&1 != 0, mvY&1 != 0
	so := mb.lX + (mvX >> 1) +
		(mb.motionLY+offset+srcField)*picW +
		(mvY>>1)*mb.lStride
	if !predictionInRange(so, 16, height, lStride, mb.lStride, hx, hy, len(source.Y)) {
		// Out of range vector; drop the prediction rather than read
		// outside the reference plane.
		return
	}
	do := mb.lX + (mb.motionLY+dstField)*picW
	motionComponent(source.Y, so, mb.pic.Y, do, 16, height, lStride,
		mb.lStride, hx, hy, avg)

	if mb.pic.U == nil {
		return
	}
	cmvX, cmvY := mvX/2, mvY/2
	chx, chy := cmvX&1 != 0, cmvY&1 != 0
	so = mb.cX + (cmvX >> 1) +
		(mb.motionCY+(offset>>1)+srcField)*picCW +
		(cmvY>>1)*mb.cStride
	if !predictionInRange(so, 8, height>>1, cStride, mb.cStride, chx, chy, len(source.U)) {
		return
	}
	do = mb.cX + (mb.motionCY+dstField)*picCW
	motionComponent(source.U, so, mb.pic.U, do, 8, height>>1, cStride,
		mb.cStride, chx, chy, avg)
	motionComponent(source.V, so, mb.pic.V, do, 8, height>>1, cStride,
		mb.cStride, chx, chy, avg)
}

// predictionInRange reports whether the whole source rectangle of a
// prediction, including its half-pel taps, lies within a plane of the
// given length.
func predictionInRange(so, width, height, stride, step int, hx, hy bool, planeLen int) bool {
	if so < 0 {
		return false
	}
	last := so + (height-1)*stride + width - 1
	if hx {
		last++
	}
	if hy {
		last += step
	}
	return last < planeLen
}

// forwardSource returns the source picture of a forward field prediction,
// accounting for the second field of a P frame predicting from the first
// field of the same picture.
func (mb *macroblock) forwardSource(r int) *Picture {
	if mb.pSecond && boolToInt(mb.motionField) != mb.fieldSelect[r][0] {
		return mb.pic
	}
	return mb.forward
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// compensate performs the motion compensation of the macroblock per its
// recorded motion form.
func (mb *macroblock) compensate() {
	field := boolToInt(mb.motionField)

	switch mb.motion {
	case motionFrameFrame:
		if mb.mbType&mbMotionForward != 0 {
			mb.motion420(mb.forward, 0, 0, mb.mvs[0][0][0], mb.mvs[0][0][1],
				mb.lStride, mb.cStride, 16, 0, false)
			if mb.mbType&mbMotionBackward != 0 {
				mb.motion420(mb.backward, 0, 0, mb.mvs[0][1][0], mb.mvs[0][1][1],
					mb.lStride, mb.cStride, 16, 0, true)
			}
		} else {
			mb.motion420(mb.backward, 0, 0, mb.mvs[0][1][0], mb.mvs[0][1][1],
				mb.lStride, mb.cStride, 16, 0, false)
		}

	case motionFrameField:
		lStride := mb.lStride << 1
		cStride := mb.cStride << 1
		if mb.mbType&mbMotionForward != 0 {
			mb.motion420(mb.forward, mb.fieldSelect[0][0], 0,
				mb.mvs[0][0][0], mb.mvs[0][0][1], lStride, cStride, 8, 0, false)
			mb.motion420(mb.forward, mb.fieldSelect[1][0], 1,
				mb.mvs[1][0][0], mb.mvs[1][0][1], lStride, cStride, 8, 0, false)
			if mb.mbType&mbMotionBackward != 0 {
				mb.motion420(mb.backward, mb.fieldSelect[0][1], 0,
					mb.mvs[0][1][0], mb.mvs[0][1][1], lStride, cStride, 8, 0, true)
				mb.motion420(mb.backward, mb.fieldSelect[1][1], 1,
					mb.mvs[1][1][0], mb.mvs[1][1][1], lStride, cStride, 8, 0, true)
			}
		} else {
			mb.motion420(mb.backward, mb.fieldSelect[0][1], 0,
				mb.mvs[0][1][0], mb.mvs[0][1][1], lStride, cStride, 8, 0, false)
			mb.motion420(mb.backward, mb.fieldSelect[1][1], 1,
				mb.mvs[1][1][0], mb.mvs[1][1][1], lStride, cStride, 8, 0, false)
		}

	case motionFrameDMV:
		// Forward only, P pictures. Same-parity predictions per field,
		// averaged with the opposite-parity dual-prime predictions.
		lStride := mb.lStride << 1
		cStride := mb.cStride << 1
		mb.motion420(mb.forward, 0, 0, mb.mvs[0][0][0], mb.mvs[0][0][1],
			lStride, cStride, 8, 0, false)
		mb.motion420(mb.forward, 1, 0, mb.dmv[0][0], mb.dmv[0][1],
			lStride, cStride, 8, 0, true)
		mb.motion420(mb.forward, 1, 1, mb.mvs[0][0][0], mb.mvs[0][0][1],
			lStride, cStride, 8, 0, false)
		mb.motion420(mb.forward, 0, 1, mb.dmv[1][0], mb.dmv[1][1],
			lStride, cStride, 8, 0, true)

	case motionFieldField:
		if mb.mbType&mbMotionForward != 0 {
			mb.motion420(mb.forwardSource(0), mb.fieldSelect[0][0], field,
				mb.mvs[0][0][0], mb.mvs[0][0][1],
				mb.lStride, mb.cStride, 16, 0, false)
			if mb.mbType&mbMotionBackward != 0 {
				mb.motion420(mb.backward, mb.fieldSelect[0][1], field,
					mb.mvs[0][1][0], mb.mvs[0][1][1],
					mb.lStride, mb.cStride, 16, 0, true)
			}
		} else {
			mb.motion420(mb.backward, mb.fieldSelect[0][1], field,
				mb.mvs[0][1][0], mb.mvs[0][1][1],
				mb.lStride, mb.cStride, 16, 0, false)
		}

	case motionField16x8:
		if mb.mbType&mbMotionForward != 0 {
			mb.motion420(mb.forwardSource(0), mb.fieldSelect[0][0], field,
				mb.mvs[0][0][0], mb.mvs[0][0][1],
				mb.lStride, mb.cStride, 8, 0, false)
			mb.motion420(mb.forwardSource(1), mb.fieldSelect[1][0], field,
				mb.mvs[1][0][0], mb.mvs[1][0][1],
				mb.lStride, mb.cStride, 8, 8, false)
			if mb.mbType&mbMotionBackward != 0 {
				mb.motion420(mb.backward, mb.fieldSelect[0][1], field,
					mb.mvs[0][1][0], mb.mvs[0][1][1],
					mb.lStride, mb.cStride, 8, 0, true)
				mb.motion420(mb.backward, mb.fieldSelect[1][1], field,
					mb.mvs[1][1][0], mb.mvs[1][1][1],
					mb.lStride, mb.cStride, 8, 8, true)
			}
		} else {
			mb.motion420(mb.backward, mb.fieldSelect[0][1], field,
				mb.mvs[0][1][0], mb.mvs[0][1][1],
				mb.lStride, mb.cStride, 8, 0, false)
			mb.motion420(mb.backward, mb.fieldSelect[1][1], field,
				mb.mvs[1][1][0], mb.mvs[1][1][1],
				mb.lStride, mb.cStride, 8, 8, false)
		}

	case motionFieldDMV:
		// Forward only, P pictures: same parity, then opposite parity
		// with the derived vector, averaged.
		mb.motion420(mb.forward, field, field,
			mb.mvs[0][0][0], mb.mvs[0][0][1],
			mb.lStride, mb.cStride, 16, 0, false)
		src := mb.forward
		if mb.pSecond {
			src = mb.pic
		}
		mb.motion420(src, 1-field, field, mb.dmv[0][0], mb.dmv[0][1],
			mb.lStride, mb.cStride, 16, 0, true)
	}
}
