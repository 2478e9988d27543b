/*
DESCRIPTION
  vlctab.go provides the variable-length code lookup tables of ISO/IEC
  11172-2 and ISO/IEC 13818-2 annex B, and their initialisation.

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

// lookup is an entry of a fixed-width lookup table: the decoded value and
// the true length in bits of the code.
type lookup struct {
	val int16
	len int8
}

// dctLookup is a lookup entry for DCT coefficient codes. run holds dctEOB
// or dctEscape for the sentinel codes.
type dctLookup struct {
	run   int8
	level int8
	len   int8
}

const (
	// Sentinels for dctLookup.run.
	dctEOB    = 64
	dctEscape = 65

	// Error value for lookup.val.
	mbError = -1

	// Special macroblock_address_increment values.
	mbAddrIncEscape   = 34
	mbAddrIncStuffing = 35
)

// Macroblock type flags (ISO/IEC 13818-2 table B.2-B.4 semantics).
const (
	mbQuant = 1 << iota
	mbMotionForward
	mbMotionBackward
	mbPattern
	mbIntra
)

// Motion types (ISO/IEC 13818-2 6.3.17.1).
const (
	motionField = 1
	motionFrame = 2
	motion16x8  = 2
	motionDMV   = 3
)

// defaultIntraQuant is the default intra quantisation matrix in natural
// (raster) order, ISO/IEC 13818-2 6.3.11.
var defaultIntraQuant = [64]uint8{
	8, 16, 19, 22, 26, 27, 29, 34,
	16, 16, 22, 24, 27, 29, 34, 37,
	19, 22, 26, 27, 29, 34, 34, 38,
	22, 22, 26, 27, 29, 34, 37, 40,
	22, 26, 27, 29, 32, 35, 40, 48,
	26, 27, 29, 32, 35, 40, 48, 58,
	26, 27, 29, 34, 38, 46, 56, 69,
	27, 29, 35, 38, 46, 56, 69, 83,
}

// defaultNonIntraQuant is the default non-intra quantisation matrix, all 16.
var defaultNonIntraQuant = [64]uint8{
	16, 16, 16, 16, 16, 16, 16, 16,
	16, 16, 16, 16, 16, 16, 16, 16,
	16, 16, 16, 16, 16, 16, 16, 16,
	16, 16, 16, 16, 16, 16, 16, 16,
	16, 16, 16, 16, 16, 16, 16, 16,
	16, 16, 16, 16, 16, 16, 16, 16,
	16, 16, 16, 16, 16, 16, 16, 16,
	16, 16, 16, 16, 16, 16, 16, 16,
}

// Scan pattern indices.
const (
	scanZigzag = 0
	scanAlt    = 1
)

// scanTables maps coefficient parse order to natural 8x8 position for the
// zig-zag and alternate scan patterns (ISO/IEC 13818-2 figure 7-2/7-3).
var scanTables = [2][64]uint8{
	{ // Zig-zag pattern.
		0, 1, 8, 16, 9, 2, 3, 10, 17, 24, 32, 25, 18, 11, 4, 5,
		12, 19, 26, 33, 40, 48, 41, 34, 27, 20, 13, 6, 7, 14, 21, 28,
		35, 42, 49, 56, 57, 50, 43, 36, 29, 22, 15, 23, 30, 37, 44, 51,
		58, 59, 52, 45, 38, 31, 39, 46, 53, 60, 61, 54, 47, 55, 62, 63,
	},
	{ // Alternate scan pattern.
		0, 8, 16, 24, 1, 9, 2, 10, 17, 25, 32, 40, 48, 56, 57, 49,
		41, 33, 26, 18, 3, 11, 4, 12, 19, 27, 34, 42, 50, 58, 35, 43,
		51, 59, 20, 28, 5, 13, 6, 14, 21, 29, 36, 44, 52, 60, 37, 45,
		53, 61, 22, 30, 7, 15, 23, 31, 38, 46, 54, 62, 39, 47, 55, 63,
	},
}

// quantizerScaleTable maps the 5-bit quantiser_scale_code to the scale
// factor; indexed [MPEG-2 linear, MPEG-2 non-linear, MPEG-1].
var quantizerScaleTable = [3][32]uint8{
	{
		0, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22, 24, 26, 28, 30,
		32, 34, 36, 38, 40, 42, 44, 46, 48, 50, 52, 54, 56, 58, 60, 62,
	},
	{
		0, 1, 2, 3, 4, 5, 6, 7, 8, 10, 12, 14, 16, 18, 20, 22,
		24, 28, 32, 36, 40, 44, 48, 52, 56, 64, 72, 80, 88, 96, 104, 112,
	},
	{
		0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15,
		16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31,
	},
}

// codedPatternCodes is table B.9 in (value, code, length) form; the 512
// entry lookup indexed by a 9-bit show is built from it at start-up.
var codedPatternCodes = []struct {
	cbp  int16
	code uint16
	len  int8
}{
	{60, 0x7, 3},
	{32, 0xa, 4}, {16, 0xb, 4}, {8, 0xc, 4}, {4, 0xd, 4},
	{62, 0x8, 5}, {2, 0x9, 5}, {61, 0xa, 5}, {1, 0xb, 5},
	{56, 0xc, 5}, {52, 0xd, 5}, {44, 0xe, 5}, {28, 0xf, 5},
	{40, 0x10, 5}, {20, 0x11, 5}, {48, 0x12, 5}, {12, 0x13, 5},
	{63, 0xc, 6}, {3, 0xd, 6}, {36, 0xe, 6}, {24, 0xf, 6},
	{34, 0x10, 7}, {18, 0x11, 7}, {10, 0x12, 7}, {6, 0x13, 7},
	{33, 0x14, 7}, {17, 0x15, 7}, {9, 0x16, 7}, {5, 0x17, 7},
	{58, 0x4, 8}, {54, 0x5, 8}, {46, 0x6, 8}, {30, 0x7, 8},
	{57, 0x8, 8}, {53, 0x9, 8}, {45, 0xa, 8}, {29, 0xb, 8},
	{38, 0xc, 8}, {26, 0xd, 8}, {37, 0xe, 8}, {25, 0xf, 8},
	{43, 0x10, 8}, {23, 0x11, 8}, {51, 0x12, 8}, {15, 0x13, 8},
	{42, 0x14, 8}, {22, 0x15, 8}, {50, 0x16, 8}, {14, 0x17, 8},
	{41, 0x18, 8}, {21, 0x19, 8}, {49, 0x1a, 8}, {13, 0x1b, 8},
	{35, 0x1c, 8}, {19, 0x1d, 8}, {11, 0x1e, 8}, {7, 0x1f, 8},
	{0, 0x1, 9}, {39, 0x2, 9}, {27, 0x3, 9}, {59, 0x4, 9},
	{55, 0x5, 9}, {47, 0x6, 9}, {31, 0x7, 9},
}

// codedPatternTable resolves coded_block_pattern from a 9-bit show.
var codedPatternTable [512]lookup

// mbAddrIncTable resolves macroblock_address_increment from an 11-bit show.
var mbAddrIncTable [2048]lookup

// mbTypeTable resolves macroblock_type from a 6-bit show; indexed
// [0] for P pictures and [1] for B pictures (tables B.3 and B.4).
var mbTypeTable [2][64]lookup

// Table B.12, dct_dc_size_luminance / B.13 dct_dc_size_chrominance, split
// in two to reduce table sizes: short codes from a 5-bit show, long codes
// from a 9-bit (luma) or 10-bit (chroma) show with the leading ones
// stripped. Indexed [luma=0, chroma=1].
var dctDCSizeShortTable = [2][32]lookup{
	{
		{1, 2}, {1, 2}, {1, 2}, {1, 2}, {1, 2}, {1, 2}, {1, 2}, {1, 2},
		{2, 2}, {2, 2}, {2, 2}, {2, 2}, {2, 2}, {2, 2}, {2, 2}, {2, 2},
		{0, 3}, {0, 3}, {0, 3}, {0, 3}, {3, 3}, {3, 3}, {3, 3}, {3, 3},
		{4, 3}, {4, 3}, {4, 3}, {4, 3}, {5, 4}, {5, 4}, {6, 5}, {mbError, 0},
	},
	{
		{0, 2}, {0, 2}, {0, 2}, {0, 2}, {0, 2}, {0, 2}, {0, 2}, {0, 2},
		{1, 2}, {1, 2}, {1, 2}, {1, 2}, {1, 2}, {1, 2}, {1, 2}, {1, 2},
		{2, 2}, {2, 2}, {2, 2}, {2, 2}, {2, 2}, {2, 2}, {2, 2}, {2, 2},
		{3, 3}, {3, 3}, {3, 3}, {3, 3}, {4, 4}, {4, 4}, {5, 5}, {mbError, 0},
	},
}

var dctDCSizeLongTable = [2][32]lookup{
	{
		{7, 6}, {7, 6}, {7, 6}, {7, 6}, {7, 6}, {7, 6}, {7, 6}, {7, 6},
		{8, 7}, {8, 7}, {8, 7}, {8, 7}, {9, 8}, {9, 8}, {10, 9}, {11, 9},
		{mbError, 0}, {mbError, 0}, {mbError, 0}, {mbError, 0},
		{mbError, 0}, {mbError, 0}, {mbError, 0}, {mbError, 0},
		{mbError, 0}, {mbError, 0}, {mbError, 0}, {mbError, 0},
		{mbError, 0}, {mbError, 0}, {mbError, 0}, {mbError, 0},
	},
	{
		{6, 6}, {6, 6}, {6, 6}, {6, 6}, {6, 6}, {6, 6}, {6, 6}, {6, 6},
		{6, 6}, {6, 6}, {6, 6}, {6, 6}, {6, 6}, {6, 6}, {6, 6}, {6, 6},
		{7, 7}, {7, 7}, {7, 7}, {7, 7}, {7, 7}, {7, 7}, {7, 7}, {7, 7},
		{8, 8}, {8, 8}, {8, 8}, {8, 8}, {9, 9}, {9, 9}, {10, 10}, {11, 10},
	},
}

// Table B.14, DCT coefficients table zero, codes 0100...1xxx, variant used
// for the first coefficient of non-intra blocks where code 1x means
// run 0 level 1 rather than EOB.
var dctTabDC = [12]dctLookup{
	{0, 2, 4}, {2, 1, 4}, {1, 1, 3}, {1, 1, 3},
	{0, 1, 1}, {0, 1, 1}, {0, 1, 1}, {0, 1, 1},
	{0, 1, 1}, {0, 1, 1}, {0, 1, 1}, {0, 1, 1},
}

// Table B.14, DCT coefficients table zero, codes 0100...1xxx, used for all
// other coefficients.
var dctTabAC = [12]dctLookup{
	{0, 2, 4}, {2, 1, 4}, {1, 1, 3}, {1, 1, 3},
	{dctEOB, 0, 2}, {dctEOB, 0, 2}, {dctEOB, 0, 2}, {dctEOB, 0, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
}

// Table B.14, DCT coefficients table zero, codes 000001xx...00111xxx.
var dctTab0 = [60]dctLookup{
	{dctEscape, 0, 6}, {dctEscape, 0, 6}, {dctEscape, 0, 6}, {dctEscape, 0, 6},
	{2, 2, 7}, {2, 2, 7}, {9, 1, 7}, {9, 1, 7},
	{0, 4, 7}, {0, 4, 7}, {8, 1, 7}, {8, 1, 7},
	{7, 1, 6}, {7, 1, 6}, {7, 1, 6}, {7, 1, 6},
	{6, 1, 6}, {6, 1, 6}, {6, 1, 6}, {6, 1, 6},
	{1, 2, 6}, {1, 2, 6}, {1, 2, 6}, {1, 2, 6},
	{5, 1, 6}, {5, 1, 6}, {5, 1, 6}, {5, 1, 6},
	{13, 1, 8}, {0, 6, 8}, {12, 1, 8}, {11, 1, 8},
	{3, 2, 8}, {1, 3, 8}, {0, 5, 8}, {10, 1, 8},
	{0, 3, 5}, {0, 3, 5}, {0, 3, 5}, {0, 3, 5},
	{0, 3, 5}, {0, 3, 5}, {0, 3, 5}, {0, 3, 5},
	{4, 1, 5}, {4, 1, 5}, {4, 1, 5}, {4, 1, 5},
	{4, 1, 5}, {4, 1, 5}, {4, 1, 5}, {4, 1, 5},
	{3, 1, 5}, {3, 1, 5}, {3, 1, 5}, {3, 1, 5},
	{3, 1, 5}, {3, 1, 5}, {3, 1, 5}, {3, 1, 5},
}

// Table B.15, DCT coefficients table one, codes 000001xx...11111111.
var dctTab0a = [252]dctLookup{
	{dctEscape, 0, 6}, {dctEscape, 0, 6}, {dctEscape, 0, 6}, {dctEscape, 0, 6},
	{7, 1, 7}, {7, 1, 7}, {8, 1, 7}, {8, 1, 7},
	{6, 1, 7}, {6, 1, 7}, {2, 2, 7}, {2, 2, 7},
	{0, 7, 6}, {0, 7, 6}, {0, 7, 6}, {0, 7, 6},
	{0, 6, 6}, {0, 6, 6}, {0, 6, 6}, {0, 6, 6},
	{4, 1, 6}, {4, 1, 6}, {4, 1, 6}, {4, 1, 6},
	{5, 1, 6}, {5, 1, 6}, {5, 1, 6}, {5, 1, 6},
	{1, 5, 8}, {11, 1, 8}, {0, 11, 8}, {0, 10, 8},
	{13, 1, 8}, {12, 1, 8}, {3, 2, 8}, {1, 4, 8},
	{2, 1, 5}, {2, 1, 5}, {2, 1, 5}, {2, 1, 5},
	{2, 1, 5}, {2, 1, 5}, {2, 1, 5}, {2, 1, 5},
	{1, 2, 5}, {1, 2, 5}, {1, 2, 5}, {1, 2, 5},
	{1, 2, 5}, {1, 2, 5}, {1, 2, 5}, {1, 2, 5},
	{3, 1, 5}, {3, 1, 5}, {3, 1, 5}, {3, 1, 5},
	{3, 1, 5}, {3, 1, 5}, {3, 1, 5}, {3, 1, 5},
	{1, 1, 3}, {1, 1, 3}, {1, 1, 3}, {1, 1, 3},
	{1, 1, 3}, {1, 1, 3}, {1, 1, 3}, {1, 1, 3},
	{1, 1, 3}, {1, 1, 3}, {1, 1, 3}, {1, 1, 3},
	{1, 1, 3}, {1, 1, 3}, {1, 1, 3}, {1, 1, 3},
	{1, 1, 3}, {1, 1, 3}, {1, 1, 3}, {1, 1, 3},
	{1, 1, 3}, {1, 1, 3}, {1, 1, 3}, {1, 1, 3},
	{1, 1, 3}, {1, 1, 3}, {1, 1, 3}, {1, 1, 3},
	{1, 1, 3}, {1, 1, 3}, {1, 1, 3}, {1, 1, 3},
	{dctEOB, 0, 4}, {dctEOB, 0, 4}, {dctEOB, 0, 4}, {dctEOB, 0, 4},
	{dctEOB, 0, 4}, {dctEOB, 0, 4}, {dctEOB, 0, 4}, {dctEOB, 0, 4},
	{dctEOB, 0, 4}, {dctEOB, 0, 4}, {dctEOB, 0, 4}, {dctEOB, 0, 4},
	{dctEOB, 0, 4}, {dctEOB, 0, 4}, {dctEOB, 0, 4}, {dctEOB, 0, 4},
	{0, 3, 4}, {0, 3, 4}, {0, 3, 4}, {0, 3, 4},
	{0, 3, 4}, {0, 3, 4}, {0, 3, 4}, {0, 3, 4},
	{0, 3, 4}, {0, 3, 4}, {0, 3, 4}, {0, 3, 4},
	{0, 3, 4}, {0, 3, 4}, {0, 3, 4}, {0, 3, 4},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 1, 2}, {0, 1, 2}, {0, 1, 2}, {0, 1, 2},
	{0, 2, 3}, {0, 2, 3}, {0, 2, 3}, {0, 2, 3},
	{0, 2, 3}, {0, 2, 3}, {0, 2, 3}, {0, 2, 3},
	{0, 2, 3}, {0, 2, 3}, {0, 2, 3}, {0, 2, 3},
	{0, 2, 3}, {0, 2, 3}, {0, 2, 3}, {0, 2, 3},
	{0, 2, 3}, {0, 2, 3}, {0, 2, 3}, {0, 2, 3},
	{0, 2, 3}, {0, 2, 3}, {0, 2, 3}, {0, 2, 3},
	{0, 2, 3}, {0, 2, 3}, {0, 2, 3}, {0, 2, 3},
	{0, 2, 3}, {0, 2, 3}, {0, 2, 3}, {0, 2, 3},
	{0, 4, 5}, {0, 4, 5}, {0, 4, 5}, {0, 4, 5},
	{0, 4, 5}, {0, 4, 5}, {0, 4, 5}, {0, 4, 5},
	{0, 5, 5}, {0, 5, 5}, {0, 5, 5}, {0, 5, 5},
	{0, 5, 5}, {0, 5, 5}, {0, 5, 5}, {0, 5, 5},
	{9, 1, 7}, {9, 1, 7}, {1, 3, 7}, {1, 3, 7},
	{10, 1, 7}, {10, 1, 7}, {0, 8, 7}, {0, 8, 7},
	{0, 9, 7}, {0, 9, 7}, {0, 12, 8}, {0, 13, 8},
	{2, 3, 8}, {4, 2, 8}, {0, 14, 8}, {0, 15, 8},
}

// Table B.14, DCT coefficients table zero, codes 0000001000...0000001111.
var dctTab1 = [8]dctLookup{
	{16, 1, 10}, {5, 2, 10}, {0, 7, 10}, {2, 3, 10},
	{1, 4, 10}, {15, 1, 10}, {14, 1, 10}, {4, 2, 10},
}

// Table B.15, DCT coefficients table one, codes 000000100x...000000111x.
var dctTab1a = [8]dctLookup{
	{5, 2, 9}, {5, 2, 9}, {14, 1, 9}, {14, 1, 9},
	{2, 4, 10}, {16, 1, 10}, {15, 1, 9}, {15, 1, 9},
}

// Table B.14/15, codes 000000010000...000000011111.
var dctTab2 = [16]dctLookup{
	{0, 11, 12}, {8, 2, 12}, {4, 3, 12}, {0, 10, 12},
	{2, 4, 12}, {7, 2, 12}, {21, 1, 12}, {20, 1, 12},
	{0, 9, 12}, {19, 1, 12}, {18, 1, 12}, {1, 5, 12},
	{3, 3, 12}, {0, 8, 12}, {6, 2, 12}, {17, 1, 12},
}

// Table B.14/15, codes 0000000010000...0000000011111.
var dctTab3 = [16]dctLookup{
	{10, 2, 13}, {9, 2, 13}, {5, 3, 13}, {3, 4, 13},
	{2, 5, 13}, {1, 7, 13}, {1, 6, 13}, {0, 15, 13},
	{0, 14, 13}, {0, 13, 13}, {0, 12, 13}, {26, 1, 13},
	{25, 1, 13}, {24, 1, 13}, {23, 1, 13}, {22, 1, 13},
}

// Table B.14/15, codes 00000000010000...00000000011111.
var dctTab4 = [16]dctLookup{
	{0, 31, 14}, {0, 30, 14}, {0, 29, 14}, {0, 28, 14},
	{0, 27, 14}, {0, 26, 14}, {0, 25, 14}, {0, 24, 14},
	{0, 23, 14}, {0, 22, 14}, {0, 21, 14}, {0, 20, 14},
	{0, 19, 14}, {0, 18, 14}, {0, 17, 14}, {0, 16, 14},
}

// Table B.14/15, codes 000000000010000...000000000011111.
var dctTab5 = [16]dctLookup{
	{0, 40, 15}, {0, 39, 15}, {0, 38, 15}, {0, 37, 15},
	{0, 36, 15}, {0, 35, 15}, {0, 34, 15}, {0, 33, 15},
	{0, 32, 15}, {1, 14, 15}, {1, 13, 15}, {1, 12, 15},
	{1, 11, 15}, {1, 10, 15}, {1, 9, 15}, {1, 8, 15},
}

// Table B.14/15, codes 0000000000010000...0000000000011111.
var dctTab6 = [16]dctLookup{
	{1, 18, 16}, {1, 17, 16}, {1, 16, 16}, {1, 15, 16},
	{6, 3, 16}, {16, 2, 16}, {15, 2, 16}, {14, 2, 16},
	{13, 2, 16}, {12, 2, 16}, {11, 2, 16}, {31, 1, 16},
	{30, 1, 16}, {29, 1, 16}, {28, 1, 16}, {27, 1, 16},
}

// dctCoeffTables resolves run/level for codes below 0x4000 from a 16-bit
// show; indexed [0] for table B.14 and [1] for table B.15. Codes at or
// above 0x4000 are resolved through dctTabDC/dctTabAC/dctTab0a directly.
var dctCoeffTables [2][16384]dctLookup

// fillDCTTable expands a sub-table into the full 16-bit lookup; each
// source entry i covers step consecutive indices starting at
// (i+offset)*step, mirroring the code-length structure of annex B.
func fillDCTTable(dst *[16384]dctLookup, src []dctLookup, step, offset int) {
	for i, e := range src {
		for j := 0; j < step; j++ {
			dst[(i+offset)*step+j] = e
		}
	}
}

// fillMbAddrIncRun loads a run of macroblock_address_increment codes of
// equal length, counting down from *val.
func fillMbAddrIncRun(start, end, step int, val *int16, length int8) {
	for pos := start; pos < end; pos += step {
		for off := 0; off < step; off++ {
			mbAddrIncTable[pos+off] = lookup{*val, length}
		}
		*val--
	}
}

// fillMBTypeRun loads a run of macroblock_type codes of equal length.
func fillMBTypeRun(tab int, start, end int, val int16, length int8) {
	for i := start; i < end; i++ {
		mbTypeTable[tab][i] = lookup{val, length}
	}
}

func init() {
	// Table B.1, macroblock_address_increment, from an 11-bit show.
	for i := 0; i < 8; i++ {
		mbAddrIncTable[i] = lookup{mbError, 0}
	}
	mbAddrIncTable[8] = lookup{mbAddrIncEscape, 11}
	for i := 9; i < 15; i++ {
		mbAddrIncTable[i] = lookup{mbError, 0}
	}
	mbAddrIncTable[15] = lookup{mbAddrIncStuffing, 11}
	for i := 16; i < 24; i++ {
		mbAddrIncTable[i] = lookup{mbError, 0}
	}
	val := int16(33)
	fillMbAddrIncRun(24, 36, 1, &val, 11)
	fillMbAddrIncRun(36, 48, 2, &val, 10)
	fillMbAddrIncRun(48, 96, 8, &val, 8)
	fillMbAddrIncRun(96, 128, 16, &val, 7)
	fillMbAddrIncRun(128, 256, 64, &val, 5)
	fillMbAddrIncRun(256, 512, 128, &val, 4)
	fillMbAddrIncRun(512, 1024, 256, &val, 3)
	fillMbAddrIncRun(1024, 2048, 1024, &val, 1)

	// Table B.3, macroblock_type in P pictures, from a 6-bit show.
	fillMBTypeRun(0, 32, 64, mbMotionForward|mbPattern, 1)
	fillMBTypeRun(0, 16, 32, mbPattern, 2)
	fillMBTypeRun(0, 8, 16, mbMotionForward, 3)
	fillMBTypeRun(0, 6, 8, mbIntra, 5)
	fillMBTypeRun(0, 4, 6, mbQuant|mbMotionForward|mbPattern, 5)
	fillMBTypeRun(0, 2, 4, mbQuant|mbPattern, 5)
	mbTypeTable[0][1] = lookup{mbQuant | mbIntra, 6}
	mbTypeTable[0][0] = lookup{mbError, 0}

	// Table B.4, macroblock_type in B pictures, from a 6-bit show.
	fillMBTypeRun(1, 48, 64, mbMotionForward|mbMotionBackward|mbPattern, 2)
	fillMBTypeRun(1, 32, 48, mbMotionForward|mbMotionBackward, 2)
	fillMBTypeRun(1, 24, 32, mbMotionBackward|mbPattern, 3)
	fillMBTypeRun(1, 16, 24, mbMotionBackward, 3)
	fillMBTypeRun(1, 12, 16, mbMotionForward|mbPattern, 4)
	fillMBTypeRun(1, 8, 12, mbMotionForward, 4)
	fillMBTypeRun(1, 6, 8, mbIntra, 5)
	fillMBTypeRun(1, 4, 6, mbQuant|mbMotionForward|mbMotionBackward|mbPattern, 5)
	mbTypeTable[1][3] = lookup{mbQuant | mbMotionForward | mbPattern, 6}
	mbTypeTable[1][2] = lookup{mbQuant | mbMotionBackward | mbPattern, 6}
	mbTypeTable[1][1] = lookup{mbQuant | mbIntra, 6}
	mbTypeTable[1][0] = lookup{mbError, 0}

	// Table B.9, coded_block_pattern, from a 9-bit show.
	codedPatternTable[0] = lookup{mbError, 0}
	for _, e := range codedPatternCodes {
		shift := uint(9 - e.len)
		base := int(e.code) << shift
		for i := 0; i < 1<<shift; i++ {
			codedPatternTable[base+i] = lookup{e.cbp, e.len}
		}
	}

	// Tables B.14 and B.15 for codes below 0x4000.
	fillDCTTable(&dctCoeffTables[0], dctTab0[:], 256, 4)
	fillDCTTable(&dctCoeffTables[0], dctTab1[:], 64, 8)
	fillDCTTable(&dctCoeffTables[0], dctTab2[:], 16, 16)
	fillDCTTable(&dctCoeffTables[0], dctTab3[:], 8, 16)
	fillDCTTable(&dctCoeffTables[0], dctTab4[:], 4, 16)
	fillDCTTable(&dctCoeffTables[0], dctTab5[:], 2, 16)
	fillDCTTable(&dctCoeffTables[0], dctTab6[:], 1, 16)

	// Only the first 60 entries of table B.15 describe codes below
	// 0x4000; the rest are reached directly from a 16-bit show.
	fillDCTTable(&dctCoeffTables[1], dctTab0a[:60], 256, 4)
	fillDCTTable(&dctCoeffTables[1], dctTab1a[:], 64, 8)
	fillDCTTable(&dctCoeffTables[1], dctTab2[:], 16, 16)
	fillDCTTable(&dctCoeffTables[1], dctTab3[:], 8, 16)
	fillDCTTable(&dctCoeffTables[1], dctTab4[:], 4, 16)
	fillDCTTable(&dctCoeffTables[1], dctTab5[:], 2, 16)
	fillDCTTable(&dctCoeffTables[1], dctTab6[:], 1, 16)
}
