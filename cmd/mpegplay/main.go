/*
NAME
  mpegplay - decodes an MPEG-1/2 video elementary stream or MPEG-TS file
  to a YUV4MPEG2 file.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/


package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Comcast/gots/v2/packet"
	"github.com/Comcast/gots/v2/pes"
	"github.com/ausocean/utils/logging"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/mpegvideo/codec/mpeg12"
	"github.com/ausocean/mpegvideo/codec/mpeg12/mpeg12dec"
	"github.com/ausocean/mpegvideo/codec/mpeg12/mpeg12dec/bits"
	"github.com/ausocean/mpegvideo/container/y4m"
)

// Logging configuration.
const (
	logPath      = "/var/log/mpegplay/mpegplay.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
)

const (
	// 90 kHz PES clock.
	ptsClockHz = 90000

	// Presentation lead of the first timestamped picture.
	playbackDelay = 500 * time.Millisecond
)

var (
	inPath    string
	outPath   string
	pid       int
	workers   int
	grayscale bool
	synchro   string
	verbosity string
	frameRate int
)

var rootCmd = &cobra.Command{
	Use:           "mpegplay --input <file> --output <file.y4m>",
	Short:         "Decode an MPEG-1/2 video elementary stream or MPEG-TS file to YUV4MPEG2.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&inPath, "input", "", "input file (.m1v/.m2v elementary stream, or .ts)")
	rootCmd.Flags().StringVar(&outPath, "output", "out.y4m", "output YUV4MPEG2 file")
	rootCmd.Flags().IntVar(&pid, "pid", 0, "video PID for TS input; 0 autodetects")
	rootCmd.Flags().IntVar(&workers, "workers", 0, "decoder worker pool size; 0 decodes inline")
	rootCmd.Flags().BoolVar(&grayscale, "grayscale", false, "decode luma only")
	rootCmd.Flags().StringVar(&synchro, "synchro", "ipb", "picture selection: auto, I, I+, IP, IP+ or IPB")
	rootCmd.Flags().StringVar(&verbosity, "verbosity", "info", "logging verbosity: debug, info, warning or error")
	rootCmd.Flags().IntVar(&frameRate, "framerate", 0, "frame rate of the y4m header in fps*1001 units; 0 uses 25fps")
	rootCmd.MarkFlagRequired("input")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mpegplay:", err)
		os.Exit(1)
	}
}

func logVerbosity() int8 {
	switch strings.ToLower(verbosity) {
	case "debug":
		return logging.Debug
	case "warning":
		return logging.Warning
	case "error":
		return logging.Error
	}
	return logging.Info
}

func run(cmd *cobra.Command, args []string) error {
	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity(), io.MultiWriter(fileLog, os.Stderr), false)

	mode, err := mpeg12dec.ParseSynchroMode(synchro)
	if err != nil {
		return err
	}

	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("could not open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("could not create output: %w", err)
	}
	defer out.Close()

	renderer := y4m.NewRenderer(out, frameRate)

	dec, err := mpeg12dec.New(mpeg12dec.Config{
		Logger:    log,
		Renderer:  renderer,
		Workers:   workers,
		Grayscale: grayscale,
		Synchro:   mode,
	})
	if err != nil {
		return fmt.Errorf("could not initialise decoder: %w", err)
	}

	log.Info("starting decode", "input", inPath, "output", outPath)

	errc := make(chan error, 1)
	go func() { errc <- dec.Decode() }()

	if strings.HasSuffix(strings.ToLower(inPath), ".ts") {
		err = feedTS(dec, in, log)
	} else {
		err = feedES(dec, in)
	}
	dec.CloseInput()
	decErr := <-errc

	if err != nil && err != io.EOF {
		return fmt.Errorf("input error: %w", err)
	}
	if decErr != nil {
		return fmt.Errorf("decode error: %w", decErr)
	}
	if err := renderer.Err(); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	log.Info("decode finished")
	return nil
}

// chunkSubmitter adapts the decoder's chunk input to the lexer's writer.
type chunkSubmitter struct {
	dec *mpeg12dec.Decoder
}

func (s chunkSubmitter) Write(p []byte) (int, error) {
	b := make([]byte, len(p))
	copy(b, p)
	if err := s.dec.Submit(bits.Chunk{Data: b}); err != nil {
		return 0, err
	}
	return len(p), nil
}

// feedES lexes a bare elementary stream into per-picture chunks with no
// timestamp metadata; the decoder free-runs on accumulated periods.
func feedES(dec *mpeg12dec.Decoder, in io.Reader) error {
	err := mpeg12.Lex(chunkSubmitter{dec: dec}, in, 0)
	if err == io.EOF {
		return nil
	}
	return err
}

// ptsMapper maps the 90 kHz PES clock to wall-clock presentation dates,
// anchored on the first timestamp seen.
type ptsMapper struct {
	base     time.Time
	firstPTS uint64
	anchored bool
}

func (m *ptsMapper) time(pts uint64) time.Time {
	if !m.anchored {
		m.anchored = true
		m.base = time.Now().Add(playbackDelay)
		m.firstPTS = pts
	}
	// Differences wrap at 2^33 ticks per the PES clock.
	diff := (int64(pts) - int64(m.firstPTS)) & (1<<33 - 1)
	if diff >= 1<<32 {
		diff -= 1 << 33
	}
	return m.base.Add(time.Duration(diff) * time.Second / ptsClockHz)
}

// feedTS demuxes the video PES of an MPEG-TS file and submits each PES
// payload as one timestamped chunk.
func feedTS(dec *mpeg12dec.Decoder, in io.Reader, log logging.Logger) error {
	var (
		pkt     packet.Packet
		pesBuf  []byte
		started bool
		mapper  ptsMapper
	)

	submit := func() error {
		if len(pesBuf) == 0 {
			return nil
		}
		h, err := pes.NewPESHeader(pesBuf)
		pesBuf = nil
		if err != nil {
			log.Warning("skipping bad PES packet", "error", err.Error())
			return nil
		}
		c := bits.Chunk{Data: h.Data()}
		if h.HasPTS() {
			c.PTS = mapper.time(h.PTS())
		}
		if h.HasDTS() {
			c.DTS = mapper.time(h.DTS())
		}
		return dec.Submit(c)
	}

	for {
		if _, err := io.ReadFull(in, pkt[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return submit()
			}
			return err
		}

		if pid == 0 && pkt.PayloadUnitStartIndicator() {
			// Autodetect: first PID carrying a video stream id.
			payload, err := pkt.Payload()
			if err == nil && len(payload) > 3 &&
				payload[0] == 0 && payload[1] == 0 && payload[2] == 1 &&
				payload[3]&0xf0 == 0xe0 {
				pid = pkt.PID()
				log.Info("autodetected video PID", "pid", pid)
			}
		}
		if pkt.PID() != pid {
			continue
		}

		if pkt.PayloadUnitStartIndicator() {
			if started {
				if err := submit(); err != nil {
					return err
				}
			}
			started = true
		}
		if !started {
			continue
		}
		payload, err := pkt.Payload()
		if err != nil {
			log.Warning("unreadable TS payload", "error", err.Error())
			continue
		}
		pesBuf = append(pesBuf, payload...)
	}
}
