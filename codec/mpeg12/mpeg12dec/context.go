/*
DESCRIPTION
  context.go provides the sequence and picture parsing contexts, the
  reference-picture lifecycle, and the quantisation matrix representation.

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

import (
	"sync/atomic"
	"time"
)

// ChromaFormat is the chroma subsampling of a sequence.
type ChromaFormat int

const (
	Chroma420 ChromaFormat = 1
	Chroma422 ChromaFormat = 2
	Chroma444 ChromaFormat = 3
)

// Picture coding types (ISO/IEC 13818-2 6.3.9; D applies to MPEG-1 only).
const (
	codingI = 1
	codingP = 2
	codingB = 3
	codingD = 4
)

// Picture structures (ISO/IEC 13818-2 6.3.10).
const (
	topField       = 1
	bottomField    = 2
	frameStructure = 3
)

// Start codes.
const (
	pictureStartCode   = 0x100
	sliceStartCodeMin  = 0x101
	sliceStartCodeMax  = 0x1af
	userDataStartCode  = 0x1b2
	sequenceHeaderCode = 0x1b3
	extensionStartCode = 0x1b5
	sequenceEndCode    = 0x1b7
	groupStartCode     = 0x1b8
)

// Extension start code identifiers.
const (
	sequenceExtensionID                = 1
	sequenceDisplayExtensionID         = 2
	quantMatrixExtensionID             = 3
	copyrightExtensionID               = 4
	sequenceScalableExtensionID        = 5
	pictureDisplayExtensionID          = 7
	pictureCodingExtensionID           = 8
	pictureSpatialScalableExtensionID  = 9
	pictureTemporalScalableExtensionID = 10
)

// Scalability modes (sequence_scalable_extension).
const (
	scalableNone = 0
	scalableDP   = 1
	scalableSpat = 2
	scalableSNR  = 3
	scalableTemp = 4
)

// Picture is one decoded frame, allocated by the Renderer. The decoder
// writes the planes during reconstruction; refs counts outstanding users
// (decoder references plus the renderer queue) and deccount the
// macroblocks still to be reconstructed before publication.
type Picture struct {
	Y, U, V      []byte
	Width        int
	Height       int
	ChromaWidth  int
	ChromaHeight int

	AspectRatio        int
	MatrixCoefficients int

	// Presentation metadata, set through DatePicture.
	PTS          time.Time
	RepeatPeriod time.Duration

	refs     int32
	deccount int32
}

// link takes an additional reference on the picture.
func (p *Picture) link() { atomic.AddInt32(&p.refs, 1) }

// unlink drops a reference, reporting whether it was the last.
func (p *Picture) unlink() bool { return atomic.AddInt32(&p.refs, -1) == 0 }

// Renderer is the external picture sink. NewPicture may fail transiently
// when the heap is exhausted; the decoder retries with a short backoff.
// DatePicture announces the presentation time of a picture whose display
// order position has become known, DisplayPicture queues it for display,
// and DestroyPicture returns an unwanted picture to the heap.
type Renderer interface {
	NewPicture(chroma ChromaFormat, width, height int) (*Picture, error)
	DatePicture(p *Picture, pts time.Time)
	DisplayPicture(p *Picture)
	DestroyPicture(p *Picture)
}

// RenderTimer is optionally implemented by Renderers that can estimate
// their per-picture rendering cost; the estimate feeds the skip decision.
type RenderTimer interface {
	RenderTime() time.Duration
}

// quantMatrix is a quantisation matrix that is either owned (loaded from
// the bitstream) or borrowed (aliasing a default table or another
// matrix). Mutation through a borrow is forbidden: loading into a borrowed
// matrix allocates new storage first.
type quantMatrix struct {
	m     *[64]uint8
	owned bool
}

// borrow aliases the matrix to shared storage.
func (q *quantMatrix) borrow(m *[64]uint8) {
	q.m = m
	q.owned = false
}

// loadMatrix reads a 64-entry matrix from the bitstream through the
// zig-zag scan into storage owned by q.
func (d *Decoder) loadMatrix(q *quantMatrix) {
	if !q.owned {
		q.m = new([64]uint8)
		q.owned = true
	}
	for i := 0; i < 64; i++ {
		q.m[scanTables[scanZigzag][i]] = uint8(d.br.Get(8))
	}
}

// sequence is the sequence context, created on the first sequence header
// and mutated by sequence headers and quantisation matrix extensions.
type sequence struct {
	width, height             int // luma, padded to macroblock multiples
	size                      int
	mbWidth, mbHeight, mbSize int
	aspectRatio               int
	matrixCoefficients        int
	frameRate                 int // theoretical frame rate in fps*1001
	mpeg2                     bool
	progressive               bool
	scalableMode              int

	chromaFormat                  ChromaFormat
	chromaNBBlocks                int
	chromaWidth                   int
	chromaMBWidth, chromaMBHeight int

	intraQuant, nonIntraQuant             quantMatrix
	chromaIntraQuant, chromaNonIntraQuant quantMatrix

	// References, rotated at each non-B picture header.
	forward, backward *Picture

	// PES hand-off, stored by the chunk-boundary callback.
	nextPTS, nextDTS    time.Time
	currentRate         int
	expectDiscontinuity bool

	// Copyright extension.
	copyrightFlag   bool
	copyrightID     int
	original        bool
	copyrightNumber uint64
}

// period returns the nominal picture period T = 1001/frameRate seconds.
func (s *sequence) period() time.Duration {
	if s.frameRate == 0 {
		return 0
	}
	return time.Duration(1001*1000000/s.frameRate) * time.Microsecond
}

// picture is the picture parsing context, valid from a picture header to
// the completion of the matching frame.
type picture struct {
	// MPEG-1 compatibility.
	fullPelVector [2]bool

	fCode             [2][2]int
	intraDCPrecision  int
	framePredFrameDCT bool
	qScaleType        bool
	intraVLCFormat    bool
	alternateScan     bool
	progressiveFrame  bool
	topFieldFirst     bool
	concealmentMV     bool
	repeatFirstField  bool

	codingType     int
	structure      int
	frameStructure bool // structure == frameStructure

	pic              *Picture
	currentStructure int
	err              bool
	repeatPeriod     time.Duration

	lStride, cStride int
}

// mbContext carries the macroblock-level predictors and addressing state
// threaded through a slice.
type mbContext struct {
	qScale    int
	dcPred    [3]int32
	pmv       [2][2][2]int
	motionDir int

	motionType, mvCount, mvFormat int
	dmv, dctType                  bool

	lX, lY, cX, cY int
}

// resetDCPredictors resets the DC coefficient predictors to the mid value
// for the current intra DC precision (ISO/IEC 13818-2 7.2.1).
func (d *Decoder) resetDCPredictors() {
	v := int32(1) << uint(7+d.pic.intraDCPrecision)
	d.mb.dcPred[0] = v
	d.mb.dcPred[1] = v
	d.mb.dcPred[2] = v
}

// resetMVPredictors zeroes the motion vector predictors (7.6.3.4).
func (d *Decoder) resetMVPredictors() {
	d.mb.pmv = [2][2][2]int{}
}
