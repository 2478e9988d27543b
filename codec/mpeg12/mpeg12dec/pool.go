/*
DESCRIPTION
  pool.go provides the reconstruction worker pool: a bounded FIFO of
  parsed macroblock records drained by a fixed set of workers, with a
  free list for records and an idle barrier for resizing.

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
	"sync"
	"sync/atomic"
)

// Size of the macroblock FIFO between the parser and the workers, and of
// the record free list. Power of two.
const vfifoSize = 256

// decoderPool runs reconstruction. With zero workers the parser executes
// each macroblock inline; otherwise parsed records flow through the work
// FIFO to the workers.
type decoderPool struct {
	workers int
	want    int

	work     chan *macroblock
	free     chan *macroblock
	wg       sync.WaitGroup
	inflight sync.WaitGroup
}

func (d *Decoder) initPool(workers int) {
	d.pool.free = make(chan *macroblock, vfifoSize)
	d.pool.want = workers
	d.spawnPool()
}

// spawnPool creates or cancels workers to match the wanted count. All
// workers must be idle, which is the case at the end of a picture header;
// the in-flight barrier enforces it.
func (d *Decoder) spawnPool() {
	p := &d.pool
	if p.workers == p.want {
		return
	}
	d.poolSync()
	if p.work != nil {
		close(p.work)
		p.wg.Wait()
		p.work = nil
	}
	p.workers = p.want
	if p.workers == 0 {
		return
	}
	p.work = make(chan *macroblock, vfifoSize)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for mb := range p.work {
				mb.decode()
				d.releaseMacroblock(mb)
				p.inflight.Done()
			}
		}()
	}
}

// SetWorkers requests a new worker pool size. The change takes effect
// between pictures.
func (d *Decoder) SetWorkers(n int) {
	if n < 0 {
		n = 0
	}
	d.pool.want = n
}

// poolSync waits for all queued macroblocks to be reconstructed.
func (d *Decoder) poolSync() {
	d.pool.inflight.Wait()
}

// stopPool drains and terminates the workers.
func (d *Decoder) stopPool() {
	p := &d.pool
	if p.work != nil {
		p.inflight.Wait()
		close(p.work)
		p.wg.Wait()
		p.work = nil
		p.workers = 0
	}
}

// newMacroblock takes a record from the free list, growing it when empty.
// Returns nil when the decoder has died.
func (d *Decoder) newMacroblock() *macroblock {
	if d.br.Died() {
		return nil
	}
	var mb *macroblock
	select {
	case mb = <-d.pool.free:
	default:
		mb = new(macroblock)
	}
	mb.reset()
	return mb
}

// freeMacroblock returns a record to the free list.
func (d *Decoder) freeMacroblock(mb *macroblock) {
	select {
	case d.pool.free <- mb:
	default:
	}
}

// dispatchMacroblock hands a parsed record to reconstruction: inline in
// the single-threaded topology, through the FIFO otherwise.
func (d *Decoder) dispatchMacroblock(mb *macroblock) {
	if d.pool.workers == 0 {
		mb.decode()
		d.releaseMacroblock(mb)
		return
	}
	d.pool.inflight.Add(1)
	p := mb.pic
	select {
	case d.pool.work <- mb:
	case <-d.dieCh():
		d.pool.inflight.Done()
		d.countDown(p, true)
		d.freeMacroblock(mb)
	}
}

// releaseMacroblock accounts for a reconstructed macroblock, publishing
// the picture when it was the last.
func (d *Decoder) releaseMacroblock(mb *macroblock) {
	d.countDown(mb.pic, false)
	d.freeMacroblock(mb)
}

// destroyMacroblock accounts for a macroblock abandoned on error.
func (d *Decoder) destroyMacroblock(mb *macroblock) {
	d.countDown(mb.pic, true)
	d.freeMacroblock(mb)
}

// countDown decrements a picture's remaining macroblock count; on zero
// the picture is published, or destroyed when garbage.
func (d *Decoder) countDown(p *Picture, garbage bool) {
	if p == nil {
		return
	}
	if atomic.AddInt32(&p.deccount, -1) != 0 {
		return
	}
	if garbage {
		d.synchroEnd(true)
	} else {
		d.cfg.Renderer.DisplayPicture(p)
		d.synchroEnd(false)
	}
	d.unlinkPicture(p)
}
