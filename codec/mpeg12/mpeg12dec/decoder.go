/*
DESCRIPTION
  decoder.go provides the top-level MPEG-1/2 video decoder: configuration,
  the chunk feeding interface, and the start-code driven decode loop.

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


// Package mpeg12dec provides a decoder for MPEG-1 and MPEG-2 video
// elementary streams (ISO/IEC 11172-2 and ISO/IEC 13818-2, Main
// Profile@Main Level). The decoder consumes timestamped chunks of
// elementary stream data and hands decoded pictures to a Renderer in
// presentation order, skipping pictures adaptively when decoding cannot
// keep real-time pace.
package mpeg12dec

import (
	"time"

	"github.com/ausocean/mpegvideo/codec/mpeg12/mpeg12dec/bits"
	"github.com/ausocean/utils/logging"
	"github.com/pkg/errors"
)

// Number of chunks buffered between the feeder and the parser.
const defaultChunkFIFOLen = 16

// Config holds the decoder configuration.
type Config struct {
	// Logger is used for all decoder diagnostics. Required.
	Logger logging.Logger

	// Renderer receives the decoded pictures. Required. Its methods
	// may be invoked from worker goroutines when Workers is non-zero.
	Renderer Renderer

	// Workers is the size of the reconstruction worker pool; zero
	// decodes inline on the parsing goroutine.
	Workers int

	// Grayscale skips chroma reconstruction; output pictures carry
	// luma only.
	Grayscale bool

	// Synchro forces a picture selection policy; SynchroAuto selects
	// per picture from measured decode latencies.
	Synchro SynchroMode

	// ChunkFIFOLen bounds the input chunk FIFO. Defaults to 16.
	ChunkFIFOLen int

	// Now overrides the clock, for testing. Defaults to time.Now.
	Now func() time.Time
}

// stats counts parsing outcomes per coding type, reported when the
// decoder finishes.
type stats struct {
	sequences int
	loops     int
	pictures  [5]int
	decoded   [5]int
	malformed [5]int
	trashed   int
}

// Decoder is an MPEG-1/2 video decoder. Feed it with Submit from one
// goroutine and run Decode on another; Stop interrupts both.
type Decoder struct {
	cfg Config
	log logging.Logger

	br *bits.Reader

	seq     sequence
	pic     picture
	mb      mbContext
	synchro synchro
	pool    decoderPool

	// Scan table in use for the current picture.
	scan [64]uint8

	grayscale bool
	stats     stats
}

// New returns a Decoder using the provided config.
func New(cfg Config) (*Decoder, error) {
	if cfg.Logger == nil {
		return nil, errors.New("no logger provided")
	}
	if cfg.Renderer == nil {
		return nil, errors.New("no renderer provided")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ChunkFIFOLen <= 0 {
		cfg.ChunkFIFOLen = defaultChunkFIFOLen
	}

	d := &Decoder{
		cfg:       cfg,
		log:       cfg.Logger,
		grayscale: cfg.Grayscale,
		scan:      scanTables[scanZigzag],
	}
	d.br = bits.NewReader(cfg.ChunkFIFOLen, d.onChunk)
	d.synchro.init(cfg.Synchro, cfg.Now)
	d.initPool(cfg.Workers)
	return d, nil
}

// Submit queues a chunk of elementary stream data, blocking while the
// input FIFO is full.
func (d *Decoder) Submit(c bits.Chunk) error {
	return d.br.Submit(c)
}

// CloseInput marks the end of the input stream. Decode returns once the
// buffered data has been consumed.
func (d *Decoder) CloseInput() { d.br.Close() }

// Stop interrupts decoding; the decode loop releases its resources and
// returns.
func (d *Decoder) Stop() { d.br.Die() }

func (d *Decoder) dieCh() <-chan struct{} { return d.br.Done() }

// onChunk imports the parameters of each new input chunk. A marked
// discontinuity aborts the current slice and schedules a reference flush
// at the next picture header.
func (d *Decoder) onChunk(c bits.Chunk) {
	d.seq.nextPTS = c.PTS
	d.seq.nextDTS = c.DTS
	d.seq.currentRate = c.Rate
	if c.Discontinuity {
		d.seq.expectDiscontinuity = true
		d.pic.err = true
	}
}

// Decode runs the decode loop until the stream ends or Stop is called.
// A nil return means the input was consumed to its end.
func (d *Decoder) Decode() error {
	defer d.finish()

	for d.br.Err() == nil {
		if !d.nextSequenceHeader() {
			break
		}
		for d.br.Err() == nil {
			d.stats.loops++
			if !d.parseHeader() {
				// End of sequence; look for the next one.
				break
			}
			d.spawnPool()
		}
	}

	if err := d.br.Err(); errors.Cause(err) == bits.ErrDied {
		return err
	}
	return nil
}

// finish releases the decoder's pictures, drains the worker pool and
// reports the run statistics.
func (d *Decoder) finish() {
	d.stopPool()

	if d.seq.forward != nil {
		d.unlinkPicture(d.seq.forward)
		d.seq.forward = nil
	}
	if d.seq.backward != nil {
		d.cfg.Renderer.DatePicture(d.seq.backward, d.synchroDate())
		d.unlinkPicture(d.seq.backward)
		d.seq.backward = nil
	}
	d.trashInFlight()

	variant := "MPEG-1"
	if d.seq.mpeg2 {
		variant = "MPEG-2"
	}
	d.log.Info("decoder finished", "variant", variant,
		"width", d.seq.width, "height", d.seq.height,
		"sequences", d.stats.sequences,
		"read", d.stats.pictures[codingI]+d.stats.pictures[codingP]+d.stats.pictures[codingB],
		"decoded", d.stats.decoded[codingI]+d.stats.decoded[codingP]+d.stats.decoded[codingB],
		"malformed", d.stats.malformed[codingI]+d.stats.malformed[codingP]+d.stats.malformed[codingB],
		"trashed", d.stats.trashed)
}
