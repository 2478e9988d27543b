/*
DESCRIPTION
  headers.go provides start-code dispatch and the parsing of sequence,
  group and picture headers and their extensions, along with the
  reference-picture rotation protocol.

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
	"time"
)

// frameRateTable maps the frame_rate_code to the frame rate in fps*1001
// units; zero entries are forbidden or reserved codes.
var frameRateTable = [16]int{
	0,
	24 * 1000, // 23.976
	24 * 1001,
	25 * 1001,
	30 * 1000, // 29.97
	30 * 1001,
	50 * 1001,
	60 * 1000, // 59.94
	60 * 1001,
	0, 0, 0, 0, 0, 0, 0,
}

// How long to wait between retries when the renderer is out of pictures.
const outMemSleep = 20 * time.Millisecond

// unlinkPicture drops one decoder reference, destroying the picture on
// the last.
func (d *Decoder) unlinkPicture(p *Picture) {
	if p.unlink() {
		d.cfg.Renderer.DestroyPicture(p)
	}
}

// referenceUpdate rotates the reference pictures for a new picture of the
// given coding type; newref may be nil when the picture is skipped. For B
// pictures the date is put immediately, since B pictures display in
// coding order.
func (d *Decoder) referenceUpdate(codingType int, newref *Picture) {
	if codingType != codingB {
		if d.seq.forward != nil {
			d.unlinkPicture(d.seq.forward)
		}
		if d.seq.backward != nil {
			d.cfg.Renderer.DatePicture(d.seq.backward, d.synchroDate())
		}
		d.seq.forward = d.seq.backward
		d.seq.backward = newref
		if newref != nil {
			newref.link()
		}
	} else if newref != nil {
		d.cfg.Renderer.DatePicture(newref, d.synchroDate())
	}
}

// referenceReplace replaces the backward reference when the picture that
// would have become it is destroyed.
func (d *Decoder) referenceReplace(codingType int, newref *Picture) {
	if codingType == codingB {
		return
	}
	if d.seq.backward != nil {
		d.unlinkPicture(d.seq.backward)
	}
	d.seq.backward = newref
	if newref != nil {
		newref.link()
	}
}

// nextSequenceHeader advances to the next sequence header. It returns
// false if the stream died or ended first.
func (d *Decoder) nextSequenceHeader() bool {
	for d.br.Err() == nil {
		d.br.NextStartCode()
		if d.br.Show(32) == sequenceHeaderCode {
			return true
		}
		d.br.Remove(8)
	}
	return false
}

// parseHeader dispatches on the next start code. It returns false at a
// sequence end code.
func (d *Decoder) parseHeader() bool {
	for d.br.Err() == nil {
		d.br.NextStartCode()
		switch d.br.Get(32) {
		case sequenceHeaderCode:
			d.stats.sequences++
			d.sequenceHeader()
			return true
		case groupStartCode:
			d.groupHeader()
			return true
		case pictureStartCode:
			d.pictureHeader()
			return true
		case sequenceEndCode:
			d.log.Debug("sequence end code received")
			return false
		}
	}
	return true
}

// sequenceHeader parses a sequence header, its sequence extension when
// present, and recomputes the derived dimensions.
func (d *Decoder) sequenceHeader() {
	d.seq.width = int(d.br.Get(12))
	d.seq.height = int(d.br.Get(12))
	d.seq.aspectRatio = int(d.br.Get(4))
	d.seq.frameRate = frameRateTable[d.br.Get(4)]

	// bit_rate_value, marker_bit, vbv_buffer_size and
	// constrained_parameters_flag.
	d.br.Remove(30)

	if d.br.Get(1) == 1 { // load_intra_quantizer_matrix
		d.loadMatrix(&d.seq.intraQuant)
	} else {
		d.seq.intraQuant.borrow(&defaultIntraQuant)
	}
	if d.br.Get(1) == 1 { // load_non_intra_quantizer_matrix
		d.loadMatrix(&d.seq.nonIntraQuant)
	} else {
		d.seq.nonIntraQuant.borrow(&defaultNonIntraQuant)
	}

	// Unless overridden by a quant matrix extension, chrominance aliases
	// the luminance matrices.
	d.seq.chromaIntraQuant.borrow(d.seq.intraQuant.m)
	d.seq.chromaNonIntraQuant.borrow(d.seq.nonIntraQuant.m)

	d.br.NextStartCode()
	if d.br.Show(32) == extensionStartCode {
		// A sequence extension promotes the stream to MPEG-2.
		d.seq.mpeg2 = true
		d.br.Remove(32)
		// extension_start_code_identifier and
		// profile_and_level_indication.
		d.br.Remove(12)
		d.seq.progressive = d.br.Get(1) == 1
		d.seq.chromaFormat = ChromaFormat(d.br.Get(2))
		d.seq.width |= int(d.br.Get(2)) << 12
		d.seq.height |= int(d.br.Get(2)) << 12
		// bit_rate_extension, marker_bit, vbv_buffer_size_extension
		// and low_delay.
		d.br.Remove(22)
		n := int(d.br.Get(2))  // frame_rate_extension_n
		dd := int(d.br.Get(5)) // frame_rate_extension_d
		d.seq.frameRate = d.seq.frameRate * (n + 1) / (dd + 1)
	} else {
		// MPEG-1 stream; put adequate parameters.
		d.seq.mpeg2 = false
		d.seq.progressive = true
		d.seq.chromaFormat = Chroma420
	}

	d.seq.mbWidth = (d.seq.width + 15) / 16
	if d.seq.progressive {
		d.seq.mbHeight = (d.seq.height + 15) / 16
	} else {
		d.seq.mbHeight = 2 * ((d.seq.height + 31) / 32)
	}
	d.seq.mbSize = d.seq.mbWidth * d.seq.mbHeight
	d.seq.width = d.seq.mbWidth * 16
	d.seq.height = d.seq.mbHeight * 16
	d.seq.size = d.seq.width * d.seq.height

	switch d.seq.chromaFormat {
	case Chroma420:
		d.seq.chromaNBBlocks = 2
		d.seq.chromaWidth = d.seq.width >> 1
		d.seq.chromaMBWidth = 8
		d.seq.chromaMBHeight = 8
	case Chroma422:
		d.seq.chromaNBBlocks = 4
		d.seq.chromaWidth = d.seq.width >> 1
		d.seq.chromaMBWidth = 8
		d.seq.chromaMBHeight = 16
	case Chroma444:
		d.seq.chromaNBBlocks = 8
		d.seq.chromaWidth = d.seq.width
		d.seq.chromaMBWidth = 16
		d.seq.chromaMBHeight = 16
	}

	d.seq.scalableMode = scalableNone

	d.extensionAndUserData()
}

// groupHeader skips a group of pictures header; the time code is not used
// by the decoder.
func (d *Decoder) groupHeader() {
	d.br.Remove(27)
	d.extensionAndUserData()
}

// repeatFieldCount returns the number of half periods the upcoming frame
// will occupy on display, from the progressive and repeat flags.
func (d *Decoder) repeatFieldCount() int {
	if d.seq.progressive {
		n := 1
		if d.pic.repeatFirstField {
			n++
		}
		if d.pic.topFieldFirst {
			n++
		}
		return n * 2
	}
	if d.pic.progressiveFrame {
		n := 2
		if d.pic.repeatFirstField {
			n++
		}
		return n
	}
	return 2
}

// pictureHeader parses a picture header and its coding extension, decides
// through the synchro controller whether the picture will be decoded, and
// runs the picture data when it is.
func (d *Decoder) pictureHeader() {
	// Recover in case of stream discontinuity.
	if d.seq.expectDiscontinuity {
		d.referenceUpdate(codingI, nil)
		d.referenceUpdate(codingI, nil)
		if d.pic.pic != nil {
			d.trashInFlight()
		}
		d.seq.expectDiscontinuity = false
	}

	d.br.Remove(10) // temporal_reference
	d.pic.codingType = int(d.br.Get(3))
	d.br.Remove(16) // vbv_delay

	if d.pic.codingType == codingP || d.pic.codingType == codingB {
		d.pic.fullPelVector[0] = d.br.Get(1) == 1
		d.pic.fCode[0][0] = int(d.br.Get(3))
		d.pic.fCode[0][1] = d.pic.fCode[0][0]
	}
	if d.pic.codingType == codingB {
		d.pic.fullPelVector[1] = d.br.Get(1) == 1
		d.pic.fCode[1][0] = int(d.br.Get(3))
		d.pic.fCode[1][1] = d.pic.fCode[1][0]
	}

	// extra_information_picture.
	for d.br.Get(1) == 1 && d.br.Err() == nil {
		d.br.Remove(8)
	}

	structure := frameStructure
	d.br.NextStartCode()
	if d.br.Show(32) == extensionStartCode {
		// picture_coding_extension.
		d.br.Remove(32)
		d.br.Remove(4) // extension_start_code_identifier

		d.pic.fCode[0][0] = int(d.br.Get(4))
		d.pic.fCode[0][1] = int(d.br.Get(4))
		d.pic.fCode[1][0] = int(d.br.Get(4))
		d.pic.fCode[1][1] = int(d.br.Get(4))
		d.pic.intraDCPrecision = int(d.br.Get(2))
		structure = int(d.br.Get(2))
		d.pic.topFieldFirst = d.br.Get(1) == 1
		d.pic.framePredFrameDCT = d.br.Get(1) == 1
		d.pic.concealmentMV = d.br.Get(1) == 1
		d.pic.qScaleType = d.br.Get(1) == 1
		d.pic.intraVLCFormat = d.br.Get(1) == 1
		d.pic.alternateScan = d.br.Get(1) == 1
		d.pic.repeatFirstField = d.br.Get(1) == 1
		d.br.Remove(1) // chroma_420_type (obsolete)
		d.pic.progressiveFrame = d.br.Get(1) == 1

		if d.br.Get(1) == 1 { // composite_display_flag
			// v_axis, field_sequence, sub_carrier, burst_amplitude
			// and sub_carrier_phase.
			d.br.Remove(20)
		}
	} else {
		// MPEG-1 compatibility flags.
		d.pic.intraDCPrecision = 0 // 8 bits
		structure = frameStructure
		d.pic.topFieldFirst = false
		d.pic.framePredFrameDCT = true
		d.pic.concealmentMV = false
		d.pic.qScaleType = false
		d.pic.intraVLCFormat = false
		d.pic.alternateScan = false
		d.pic.repeatFirstField = false
		d.pic.progressiveFrame = true
	}

	if d.pic.alternateScan {
		d.scan = scanTables[scanAlt]
	} else {
		d.scan = scanTables[scanZigzag]
	}

	d.stats.pictures[d.pic.codingType]++

	if d.pic.currentStructure != 0 &&
		(structure == frameStructure || structure == d.pic.currentStructure) {
		// We do not have the second field of the buffered frame.
		if d.pic.pic != nil {
			d.referenceReplace(d.pic.codingType, nil)
			d.trashInFlight()
		}
		d.pic.currentStructure = 0
		d.log.Warning("odd number of field pictures")
	}

	// Do we have the reference pictures?
	parsable := !((d.pic.codingType == codingP && d.seq.backward == nil) ||
		// backward becomes forward at the rotation below.
		(d.pic.codingType == codingB &&
			(d.seq.forward == nil || d.seq.backward == nil)))

	if d.pic.currentStructure != 0 {
		// Second field of a frame: decode it if and only if the first
		// field was decoded.
		if parsable {
			parsable = d.pic.pic != nil
		}
	} else {
		repeatField := d.repeatFieldCount()
		d.pic.repeatPeriod = time.Duration(repeatField) * (d.seq.period() / 2)
		d.synchroNewPicture(d.pic.codingType, repeatField)
		if parsable {
			parsable = d.synchroChoose(d.pic.codingType)
		}
	}

	if !parsable {
		d.referenceUpdate(d.pic.codingType, nil)
		if structure != frameStructure {
			if d.pic.currentStructure|structure == frameStructure {
				d.pic.currentStructure = 0
			} else {
				d.pic.currentStructure = structure
				d.synchroTrash(d.pic.codingType)
			}
		} else {
			d.synchroTrash(d.pic.codingType)
		}
		d.pic.pic = nil
		return
	}

	d.stats.decoded[d.pic.codingType]++
	d.pic.err = false
	d.pic.frameStructure = structure == frameStructure

	if d.pic.currentStructure == 0 {
		// A new frame; get a picture from the renderer, backing off
		// while the heap is exhausted.
		var pic *Picture
		for {
			var err error
			pic, err = d.cfg.Renderer.NewPicture(d.seq.chromaFormat,
				d.seq.width, d.seq.height)
			if err == nil {
				break
			}
			d.log.Debug("picture allocation delayed", "error", err.Error())
			if d.br.Died() {
				return
			}
			time.Sleep(outMemSleep)
		}
		pic.refs = 1
		pic.deccount = int32(d.seq.mbSize)
		d.pic.pic = pic

		d.synchroDecode(d.pic.codingType)
		pic.AspectRatio = d.seq.aspectRatio
		pic.MatrixCoefficients = d.seq.matrixCoefficients
		pic.RepeatPeriod = d.pic.repeatPeriod
		if d.pic.frameStructure {
			d.pic.lStride = d.seq.width
			d.pic.cStride = d.seq.chromaWidth
		} else {
			d.pic.lStride = d.seq.width << 1
			d.pic.cStride = d.seq.chromaWidth << 1
		}

		d.referenceUpdate(d.pic.codingType, pic)
	}
	d.pic.currentStructure |= structure
	d.pic.structure = structure

	if structure == bottomField {
		d.mb.lY, d.mb.cY = 1, 1
	} else {
		d.mb.lY, d.mb.cY = 0, 0
	}
	d.mb.lX, d.mb.cX = 0, 0

	d.extensionAndUserData()

	if d.pic.codingType != codingI {
		// Predicted pictures read their references; wait for any
		// outstanding reference macroblocks before reconstruction
		// starts.
		d.poolSync()
	}

	// This is an MP@ML decoder: 4:2:0 chroma, no pictures over 2800
	// lines, no data partitioning.
	d.pictureData()

	if d.br.Err() != nil {
		return
	}

	if d.pic.err {
		// Queued macroblocks may still reference the picture.
		d.poolSync()
		d.stats.malformed[d.pic.codingType]++
		if d.pic.pic.deccount != 0 {
			d.synchroEnd(true)
			d.unlinkPicture(d.pic.pic)
		}
		d.referenceReplace(d.pic.codingType, nil)
		d.pic.pic = nil
		if d.pic.currentStructure == frameStructure {
			d.pic.currentStructure = 0
		}
	} else if d.pic.currentStructure == frameStructure {
		// Frame completely parsed.
		d.pic.pic = nil
		d.pic.currentStructure = 0
	}
}

// trashInFlight destroys the picture being reconstructed, e.g. at a
// discontinuity or an odd field sequence.
func (d *Decoder) trashInFlight() {
	if d.pic.pic == nil {
		return
	}
	d.poolSync()
	if d.pic.pic.deccount != 0 {
		d.synchroEnd(true)
		d.unlinkPicture(d.pic.pic)
	}
	d.pic.pic = nil
}

// extensionAndUserData parses extension_and_user_data, dispatching the
// recognised extension identifiers and skipping user data.
func (d *Decoder) extensionAndUserData() {
	for d.br.Err() == nil {
		d.br.NextStartCode()
		switch d.br.Show(32) {
		case extensionStartCode:
			d.br.Remove(32)
			switch d.br.Get(4) {
			case sequenceDisplayExtensionID:
				d.sequenceDisplayExtension()
			case quantMatrixExtensionID:
				d.quantMatrixExtension()
			case sequenceScalableExtensionID:
				d.sequenceScalableExtension()
			case pictureDisplayExtensionID:
				d.pictureDisplayExtension()
			case pictureSpatialScalableExtensionID:
				// Scalable; trashed.
				d.br.Remove(32)
				d.br.Remove(16)
			case pictureTemporalScalableExtensionID:
				d.br.Remove(23)
			case copyrightExtensionID:
				d.copyrightExtension()
			}
		case userDataStartCode:
			d.br.Remove(32)
			// Wait for the next start code.
		default:
			return
		}
	}
}

// sequenceDisplayExtension records the matrix coefficients; the rest of
// the display information is not used.
func (d *Decoder) sequenceDisplayExtension() {
	d.br.Remove(3) // video_format
	if d.br.Get(1) == 1 {
		// colour_primaries and transfer_characteristics.
		d.br.Remove(16)
		d.seq.matrixCoefficients = int(d.br.Get(8))
	}
	// display_horizontal_size, marker_bit and display_vertical_size.
	d.br.Remove(29)
}

// quantMatrixExtension loads up to four quantisation matrices.
func (d *Decoder) quantMatrixExtension() {
	if d.br.Get(1) == 1 {
		d.loadMatrix(&d.seq.intraQuant)
	} else {
		d.seq.intraQuant.borrow(&defaultIntraQuant)
	}
	if d.br.Get(1) == 1 {
		d.loadMatrix(&d.seq.nonIntraQuant)
	} else {
		d.seq.nonIntraQuant.borrow(&defaultNonIntraQuant)
	}
	if d.br.Get(1) == 1 {
		d.loadMatrix(&d.seq.chromaIntraQuant)
	} else {
		d.seq.chromaIntraQuant.borrow(d.seq.intraQuant.m)
	}
	if d.br.Get(1) == 1 {
		d.loadMatrix(&d.seq.chromaNonIntraQuant)
	} else {
		d.seq.chromaNonIntraQuant.borrow(d.seq.nonIntraQuant.m)
	}
}

// sequenceScalableExtension records the scalable mode; the length of the
// remaining structure depends on it.
func (d *Decoder) sequenceScalableExtension() {
	d.seq.scalableMode = int(d.br.Get(2))
	switch d.seq.scalableMode {
	case scalableDP:
		d.br.Remove(32)
		d.br.Remove(21)
	case scalableSpat:
		d.br.Remove(12)
	default:
		d.br.Remove(4)
	}
}

// pictureDisplayExtension skips the frame centre offsets.
func (d *Decoder) pictureDisplayExtension() {
	var n int
	if d.seq.progressive {
		n = 1
		if d.pic.repeatFirstField {
			n++
		}
		if d.pic.topFieldFirst {
			n++
		}
	} else {
		n = 1
		if d.pic.frameStructure {
			n++
		}
		if d.pic.repeatFirstField {
			n++
		}
	}
	for i := 0; i < n; i++ {
		d.br.Remove(17)
		d.br.Remove(17)
	}
}

// copyrightExtension records the legal information of the sequence.
func (d *Decoder) copyrightExtension() {
	d.seq.copyrightFlag = d.br.Get(1) == 1
	d.seq.copyrightID = int(d.br.Get(8))
	d.seq.original = d.br.Get(1) == 1
	d.br.Remove(8) // reserved
	// The copyright number is split in three parts.
	n1 := uint64(d.br.Get(20))
	d.br.Remove(1)
	n2 := uint64(d.br.Get(22))
	d.br.Remove(1)
	n3 := uint64(d.br.Get(22))
	d.seq.copyrightNumber = n1<<44 | n2<<22 | n3
}
