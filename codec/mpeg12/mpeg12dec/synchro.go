/*
DESCRIPTION
  synchro.go provides the frame-dropping controller: per-type decode
  latency averaging, the decode-or-skip decision taken at each picture
  header, and presentation timestamp reordering.

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

// The decode-or-skip decision below is statistical rather than enslaved
// to lateness. With tau[T] the mean decode time of a type-T picture,
// tau'(T) = tau[T] + tau[T]/2 + tauYUV covers the mean, its typical
// deviation and the render cost. A picture is decoded when its
// presentation time is far enough away to absorb tau' plus an error
// margin. Two machine-speed tests relax or gate this:
//
//	(1 + nP*(nB+1))*T > tau[I]   all I pictures fit: I is always decoded;
//	                             when false, P is never decoded
//	(nB+1)*T > tau[P]            all P pictures fit: P is decoded whenever
//	                             its date is still ahead; when false, B is
//	                             never decoded
//
// Otherwise P pictures additionally require budget for the forthcoming I
// so that a P never starves the next anchor. tau[B] enters only through
// tau'(B).

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// SynchroMode forces a picture-selection policy on the decoder.
type SynchroMode int

const (
	SynchroAuto   SynchroMode = iota // decide per picture from timing
	SynchroI                         // I pictures only
	SynchroIPlus                     // I plus one P per group
	SynchroIP                        // I and P pictures
	SynchroIPPlus                    // I, P and every second B
	SynchroIPB                       // everything
)

// ParseSynchroMode parses a synchro mode name: auto, I, I+, IP, IP+ or
// IPB (case-insensitive).
func ParseSynchroMode(s string) (SynchroMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return SynchroAuto, nil
	case "i":
		return SynchroI, nil
	case "i+":
		return SynchroIPlus, nil
	case "ip":
		return SynchroIP, nil
	case "ip+":
		return SynchroIPPlus, nil
	case "ipb":
		return SynchroIPB, nil
	}
	return SynchroAuto, fmt.Errorf("unknown synchro mode: %q", s)
}

const (
	// Error margin of the skip decision.
	synchroDelta = 40 * time.Millisecond

	// Decode-date FIFO bound and per-type averaging depth.
	maxDecodingPic = 16
	maxPicAverage  = 8

	// Assumed stream pattern before one is observed.
	defaultNP = 5
	defaultNB = 1

	// Presentation lead given to the first picture when no PTS has
	// been seen yet.
	defaultPTSDelay = 500 * time.Millisecond
)

// synchro tracks decode latencies and presentation dates. The FIFO is
// pushed when a picture's decode starts and popped when its last
// macroblock completes, which may happen on a worker.
type synchro struct {
	mode SynchroMode

	mu          sync.Mutex
	dateFifo    [maxDecodingPic]time.Time
	codingTypes [maxDecodingPic]int
	start, end  int

	// Observed stream pattern: P pictures per group, B pictures
	// between anchors, with the running eta counters.
	nP, nB     int
	etaP, etaB int

	tau        [5]time.Duration
	meaningful [5]int

	droppedLast bool
	currentPTS  time.Time
	backwardPTS time.Time
	nextPeriod  time.Duration

	now func() time.Time
}

func (s *synchro) init(mode SynchroMode, now func() time.Time) {
	s.mode = mode
	s.now = now
	s.nP, s.etaP = defaultNP, defaultNP
	s.nB, s.etaB = defaultNB, defaultNB
	s.currentPTS = now().Add(defaultPTSDelay)
}

func tauPrime(tau, tauYUV time.Duration) time.Duration {
	return tau + tau/2 + tauYUV
}

// synchroChoose decides whether the upcoming picture will be decoded.
func (d *Decoder) synchroChoose(codingType int) bool {
	s := &d.synchro

	if s.mode != SynchroAuto {
		switch codingType {
		case codingI:
			if s.mode == SynchroIPlus {
				s.droppedLast = true
			}
			return true
		case codingP:
			switch s.mode {
			case SynchroI:
				return false
			case SynchroIPlus:
				if s.droppedLast {
					s.droppedLast = false
					return true
				}
				return false
			}
			return true
		case codingB:
			switch {
			case s.mode <= SynchroIP:
				return false
			case s.mode == SynchroIPB:
				return true
			}
			s.droppedLast = !s.droppedLast
			return !s.droppedLast
		}
		return false
	}

	now := s.now()
	period := d.seq.period()
	var tauYUV time.Duration
	if rt, ok := d.cfg.Renderer.(RenderTimer); ok {
		tauYUV = rt.RenderTime()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var pts time.Time
	decode := false

	switch codingType {
	case codingI:
		if !s.backwardPTS.IsZero() {
			pts = s.backwardPTS
		} else {
			// Display order: B B P B B I; the current PTS sits nB+2
			// periods before this picture's.
			pts = s.currentPTS.Add(period * time.Duration(s.nB+2))
		}
		if time.Duration(1+s.nP*(s.nB+1))*period > s.tau[codingI] {
			decode = true
		} else {
			decode = pts.Sub(now) > tauPrime(s.tau[codingI], tauYUV)+synchroDelta
		}
		if !decode {
			d.log.Warning("synchro trashing I picture")
		}

	case codingP:
		if !s.backwardPTS.IsZero() {
			pts = s.backwardPTS
		} else {
			pts = s.currentPTS.Add(period * time.Duration(s.nB+1))
		}
		if time.Duration(1+s.nP*(s.nB+1))*period > s.tau[codingI] {
			if time.Duration(s.nB+1)*period > s.tau[codingP] {
				// Security in case we are really late.
				decode = pts.After(now)
			} else {
				decode = pts.Sub(now) > tauPrime(s.tau[codingP], tauYUV)+synchroDelta
				// Budget for the next I.
				decode = decode && pts.Sub(now)+
					period*time.Duration((s.nP-s.etaP)*(1+s.nB)-1) >
					tauPrime(s.tau[codingP], tauYUV)+
						tauPrime(s.tau[codingI], tauYUV)+synchroDelta
			}
		}

	case codingB:
		pts = s.currentPTS
		if time.Duration(s.nB+1)*period > s.tau[codingP] {
			decode = pts.Sub(now) > tauPrime(s.tau[codingB], tauYUV)+synchroDelta
		}
	}

	return decode
}

// synchroTrash accounts for a picture that will not be decoded.
func (d *Decoder) synchroTrash(codingType int) {
	d.stats.trashed++
}

// synchroDecode pushes the decode start time of a picture.
func (d *Decoder) synchroDecode(codingType int) {
	s := &d.synchro
	s.mu.Lock()
	defer s.mu.Unlock()

	if (s.end+1-s.start)%maxDecodingPic == 0 {
		d.log.Error("synchro fifo full, estimations will be biased")
		return
	}
	s.dateFifo[s.end] = s.now()
	s.codingTypes[s.end] = codingType
	s.end = (s.end + 1) % maxDecodingPic
}

// synchroEnd pops the decode FIFO when a picture finishes; garbage marks
// an abandoned picture whose latency must not pollute the average.
func (d *Decoder) synchroEnd(garbage bool) {
	s := &d.synchro
	s.mu.Lock()
	defer s.mu.Unlock()

	if !garbage {
		tau := s.now().Sub(s.dateFifo[s.start])
		ct := s.codingTypes[s.start]

		// Mean with the average tau to ensure stability.
		n := s.meaningful[ct]
		s.tau[ct] = (time.Duration(n)*s.tau[ct] + tau) / time.Duration(n+1)
		if s.meaningful[ct] < maxPicAverage {
			s.meaningful[ct]++
		}
	}
	s.start = (s.start + 1) % maxDecodingPic
}

// synchroDate returns the presentation date of the picture being dated.
func (d *Decoder) synchroDate() time.Time {
	// PTS state is only touched by the parsing goroutine.
	return d.synchro.currentPTS
}

// synchroNewPicture updates the stream pattern counters and presentation
// dates for a new picture. repeatField is the number of half periods the
// picture will occupy on display.
func (d *Decoder) synchroNewPicture(codingType, repeatField int) {
	s := &d.synchro
	period := d.seq.period()

	switch codingType {
	case codingI:
		if s.etaP != 0 && s.etaP != s.nP {
			d.log.Warning("stream periodicity changed", "from", s.nP, "to", s.etaP)
			s.nP = s.etaP
		}
		s.etaP, s.etaB = 0, 0
	case codingP:
		s.etaP++
		if s.etaB != 0 && s.etaB != s.nB {
			d.log.Warning("stream periodicity changed", "from", s.nB, "to", s.etaB)
			s.nB = s.etaB
		}
		s.etaB = 0
	case codingB:
		s.etaB++
	}

	s.currentPTS = s.currentPTS.Add(s.nextPeriod)
	// A frame can occupy two, three or four half periods according to
	// repeat_first_field, top_field_first and the progressive flags.
	s.nextPeriod = time.Duration(repeatField) * (period / 2)

	threshold := period / 4
	offBy := func(a, b time.Time) bool {
		diff := a.Sub(b)
		return diff > threshold || diff < -threshold
	}

	if codingType == codingB {
		if !d.seq.nextPTS.IsZero() {
			if offBy(d.seq.nextPTS, s.currentPTS) {
				d.log.Warning("synchro: pts != current date",
					"difference", s.currentPTS.Sub(d.seq.nextPTS).String())
			}
			s.currentPTS = d.seq.nextPTS
			d.seq.nextPTS = time.Time{}
		}
		return
	}

	if !s.backwardPTS.IsZero() {
		if !d.seq.nextDTS.IsZero() && offBy(d.seq.nextDTS, s.backwardPTS) {
			d.log.Warning("synchro: backward pts != dts",
				"difference", s.backwardPTS.Sub(d.seq.nextDTS).String())
		}
		if offBy(s.backwardPTS, s.currentPTS) {
			d.log.Warning("synchro: backward pts != current pts",
				"difference", s.currentPTS.Sub(s.backwardPTS).String())
		}
		s.currentPTS = s.backwardPTS
		s.backwardPTS = time.Time{}
	} else if !d.seq.nextDTS.IsZero() {
		if offBy(d.seq.nextDTS, s.currentPTS) {
			d.log.Warning("synchro: dts != current pts",
				"difference", s.currentPTS.Sub(d.seq.nextDTS).String())
		}
		// By definition of a DTS.
		s.currentPTS = d.seq.nextDTS
		d.seq.nextDTS = time.Time{}
	}

	if !d.seq.nextPTS.IsZero() {
		// Store the PTS for the next time a non-B picture is dated.
		s.backwardPTS = d.seq.nextPTS
		d.seq.nextPTS = time.Time{}
	}
}
