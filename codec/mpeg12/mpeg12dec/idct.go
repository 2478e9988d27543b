/*
DESCRIPTION
  idct.go provides the inverse discrete cosine transform used by the block
  engine: a full two-pass integer 8x8 IDCT and a sparse variant for blocks
  with at most one non-zero coefficient.

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

// Fixed-point parameters of the integer IDCT. Intermediate products use
// constBits fractional bits; pass 1 leaves results scaled by pass1Bits to
// preserve precision into the column pass.
const (
	dctSize           = 8
	constBits         = 13
	pass1Bits         = 2
	sparseScaleFactor = 13
)

// idctKind selects the transform variant chosen at coefficient-decode
// time; sparse requires the recorded single non-zero position.
type idctKind uint8

const (
	idctFullKind idctKind = iota
	idctSparseKind
)

// Multiplier constants: FIX(x) = round(x * 2^constBits).
const (
	fix0_298631336 = 2446
	fix0_390180644 = 3196
	fix0_541196100 = 4433
	fix0_765366865 = 6270
	fix0_899976223 = 7373
	fix1_175875602 = 9633
	fix1_501321110 = 12299
	fix1_847759065 = 15137
	fix1_961570560 = 16069
	fix2_053119869 = 16819
	fix2_562915447 = 20995
	fix3_072711026 = 25172
)

func descale(x int32, n uint) int32 {
	return (x + 1<<(n-1)) >> n
}

// idctFull performs the in-place inverse DCT of an 8x8 block in natural
// order. Rows or columns whose AC terms are all zero take the constant
// fill fast path.
func idctFull(block *[64]int32) {
	// Pass 1: rows. Results are scaled up by sqrt(8) relative to a true
	// IDCT, and additionally by 2^pass1Bits.
	for row := 0; row < dctSize; row++ {
		d := block[row*dctSize : row*dctSize+8 : row*dctSize+8]
		if d[1]|d[2]|d[3]|d[4]|d[5]|d[6]|d[7] == 0 {
			dc := d[0] << pass1Bits
			d[0], d[1], d[2], d[3] = dc, dc, dc, dc
			d[4], d[5], d[6], d[7] = dc, dc, dc, dc
			continue
		}

		// Even part. The rotator is sqrt(2)*c(-6).
		z2, z3 := d[2], d[6]
		z1 := (z2 + z3) * fix0_541196100
		tmp2 := z1 - z3*fix1_847759065
		tmp3 := z1 + z2*fix0_765366865

		tmp0 := (d[0] + d[4]) << constBits
		tmp1 := (d[0] - d[4]) << constBits

		tmp10 := tmp0 + tmp3
		tmp13 := tmp0 - tmp3
		tmp11 := tmp1 + tmp2
		tmp12 := tmp1 - tmp2

		// Odd part. i0..i3 are y7,y5,y3,y1 respectively.
		tmp0, tmp1, tmp2, tmp3 = d[7], d[5], d[3], d[1]

		z1 = tmp0 + tmp3
		z2 = tmp1 + tmp2
		z3 = tmp0 + tmp2
		z4 := tmp1 + tmp3
		z5 := (z3 + z4) * fix1_175875602

		tmp0 *= fix0_298631336
		tmp1 *= fix2_053119869
		tmp2 *= fix3_072711026
		tmp3 *= fix1_501321110
		z1 *= -fix0_899976223
		z2 *= -fix2_562915447
		z3 = -z3*fix1_961570560 + z5
		z4 = -z4*fix0_390180644 + z5

		tmp0 += z1 + z3
		tmp1 += z2 + z4
		tmp2 += z2 + z3
		tmp3 += z1 + z4

		d[0] = descale(tmp10+tmp3, constBits-pass1Bits)
		d[7] = descale(tmp10-tmp3, constBits-pass1Bits)
		d[1] = descale(tmp11+tmp2, constBits-pass1Bits)
		d[6] = descale(tmp11-tmp2, constBits-pass1Bits)
		d[2] = descale(tmp12+tmp1, constBits-pass1Bits)
		d[5] = descale(tmp12-tmp1, constBits-pass1Bits)
		d[3] = descale(tmp13+tmp0, constBits-pass1Bits)
		d[4] = descale(tmp13-tmp0, constBits-pass1Bits)
	}

	// Pass 2: columns. Descale by 8 and undo the pass 1 scaling.
	for col := 0; col < dctSize; col++ {
		d := block[col:]
		if d[dctSize*1]|d[dctSize*2]|d[dctSize*3]|d[dctSize*4]|
			d[dctSize*5]|d[dctSize*6]|d[dctSize*7] == 0 {
			dc := descale(d[0], pass1Bits+3)
			for i := 0; i < dctSize; i++ {
				d[dctSize*i] = dc
			}
			continue
		}

		z2, z3 := d[dctSize*2], d[dctSize*6]
		z1 := (z2 + z3) * fix0_541196100
		tmp2 := z1 - z3*fix1_847759065
		tmp3 := z1 + z2*fix0_765366865

		tmp0 := (d[0] + d[dctSize*4]) << constBits
		tmp1 := (d[0] - d[dctSize*4]) << constBits

		tmp10 := tmp0 + tmp3
		tmp13 := tmp0 - tmp3
		tmp11 := tmp1 + tmp2
		tmp12 := tmp1 - tmp2

		tmp0 = d[dctSize*7]
		tmp1 = d[dctSize*5]
		tmp2 = d[dctSize*3]
		tmp3 = d[dctSize*1]

		z1 = tmp0 + tmp3
		z2 = tmp1 + tmp2
		z3 = tmp0 + tmp2
		z4 := tmp1 + tmp3
		z5 := (z3 + z4) * fix1_175875602

		tmp0 *= fix0_298631336
		tmp1 *= fix2_053119869
		tmp2 *= fix3_072711026
		tmp3 *= fix1_501321110
		z1 *= -fix0_899976223
		z2 *= -fix2_562915447
		z3 = -z3*fix1_961570560 + z5
		z4 = -z4*fix0_390180644 + z5

		tmp0 += z1 + z3
		tmp1 += z2 + z4
		tmp2 += z2 + z3
		tmp3 += z1 + z4

		d[dctSize*0] = descale(tmp10+tmp3, constBits+pass1Bits+3)
		d[dctSize*7] = descale(tmp10-tmp3, constBits+pass1Bits+3)
		d[dctSize*1] = descale(tmp11+tmp2, constBits+pass1Bits+3)
		d[dctSize*6] = descale(tmp11-tmp2, constBits+pass1Bits+3)
		d[dctSize*2] = descale(tmp12+tmp1, constBits+pass1Bits+3)
		d[dctSize*5] = descale(tmp12-tmp1, constBits+pass1Bits+3)
		d[dctSize*3] = descale(tmp13+tmp0, constBits+pass1Bits+3)
		d[dctSize*4] = descale(tmp13-tmp0, constBits+pass1Bits+3)
	}
}

// sparseBasis[p] is the inverse transform of the unit vector at position
// p, scaled by 2^sparseScaleFactor. Built once at start-up by running the
// full IDCT over scaled unit vectors.
var sparseBasis [64][64]int32

func init() {
	for p := 0; p < 64; p++ {
		var block [64]int32
		block[p] = 1 << sparseScaleFactor
		idctFull(&block)
		sparseBasis[p] = block
	}
}

// idctSparse performs the inverse DCT of a block known to hold a single
// non-zero coefficient at natural position pos. The DC-only case is a
// constant fill of (dc+4)>>3; otherwise the precomputed basis function of
// pos is scaled by the coefficient.
func idctSparse(block *[64]int32, pos int) {
	if pos == 0 {
		v := (block[0] + 4) >> 3
		for i := range block {
			block[i] = v
		}
		return
	}
	coeff := block[pos]
	basis := &sparseBasis[pos]
	for i := range block {
		block[i] = basis[i] * coeff >> sparseScaleFactor
	}
}
