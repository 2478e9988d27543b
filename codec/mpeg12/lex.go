/*
NAME
  lex.go

DESCRIPTION
  lex.go provides a lexer to lex an MPEG-1/2 video elementary stream into
  access units.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


// Package mpeg12 provides an MPEG-1/2 video bytestream lexer. The decoder
// itself lives in the mpeg12dec sub-package.
package mpeg12

import (
	"io"
	"time"

	"github.com/ausocean/mpegvideo/codec/codecutil"
)

var noDelay = make(chan time.Time)

func init() {
	close(noDelay)
}

// Start codes that terminate an access unit: a picture, sequence or group
// start following picture data belongs to the next unit.
func boundaryCode(b byte) bool {
	return b == 0x00 /* picture */ || b == 0xb3 /* sequence */ || b == 0xb8 /* group */
}

// Lex lexes MPEG-1/2 video access units read from src into separate
// writes to dst, with successive writes being performed not earlier than
// the specified delay. A write carries one picture along with any
// sequence and group headers preceding it.
func Lex(dst io.Writer, src io.Reader, delay time.Duration) error {
	var tick <-chan time.Time
	if delay == 0 {
		tick = noDelay
	} else {
		ticker := time.NewTicker(delay)
		defer ticker.Stop()
		tick = ticker.C
	}

	const bufSize = 8 << 10

	c := codecutil.NewByteScanner(src, make([]byte, 4<<10)) // Standard file buffer size.

	buf := make([]byte, 0, bufSize)
	sawPicture := false

	outputBuffer := func() error {
		if len(buf) == 0 {
			return nil
		}
		<-tick
		_, err := dst.Write(buf)
		buf = buf[:0]
		sawPicture = false
		return err
	}

	for {
		var b byte
		var err error
		buf, b, err = c.ScanUntil(buf, 0x00)
		if err != nil {
			if err != io.EOF {
				return err
			}
			if werr := outputBuffer(); werr != nil {
				return werr
			}
			return io.EOF
		}

		// A start code is 00 00 01 xx; count the zero run.
		zeros := 1
		for b == 0x00 {
			b, err = c.ReadByte()
			if err != nil {
				if err != io.EOF {
					return err
				}
				if werr := outputBuffer(); werr != nil {
					return werr
				}
				return io.EOF
			}
			buf = append(buf, b)
			zeros++
		}
		if b != 0x01 || zeros < 3 {
			continue
		}

		b, err = c.ReadByte()
		if err != nil {
			if err != io.EOF {
				return err
			}
			if werr := outputBuffer(); werr != nil {
				return werr
			}
			return io.EOF
		}

		if sawPicture && boundaryCode(b) {
			// The buffered unit ends before this start code.
			n := len(buf)
			cut := n - zeros // strip 00.. 01 of the next unit
			unit := buf[:cut]
			if len(unit) > 0 {
				<-tick
				if _, err := dst.Write(unit); err != nil {
					return err
				}
			}
			// Restart the buffer with the start code prefix.
			rest := make([]byte, n-cut, bufSize)
			copy(rest, buf[cut:])
			buf = append(rest, b)
			sawPicture = false
		} else {
			buf = append(buf, b)
		}
		if b == 0x00 {
			sawPicture = true
		}
	}
}
