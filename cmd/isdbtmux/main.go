// Command isdbtmux is a small demo/benchmark harness around the mux: it
// feeds a synthetic H.264+AAC program through a Muxer and writes the
// resulting transport stream to a file, optionally under a CPU profile.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/BEforlin/isdbtmux"
	"github.com/pkg/profile"
)

func main() {
	out := flag.String("o", "out.ts", "output transport stream path")
	seconds := flag.Int("seconds", 5, "duration of synthetic content to generate")
	muxRate := flag.Int("mux-rate", 4000000, "CBR mux rate in bits/s (1 selects VBR)")
	cpuProfile := flag.Bool("cpuprofile", false, "capture a CPU profile alongside the run")
	flag.Parse()

	if *cpuProfile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	if err := run(*out, *seconds, *muxRate); err != nil {
		log.Fatal(err)
	}
}

func run(outPath string, seconds, muxRate int) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	mux := isdbtmux.NewMuxer(f, isdbtmux.MuxerOptionLogger(isdbtmux.NewStdLogger()))

	cfg := isdbtmux.NewConfiguration()
	cfg.OutputName = outPath
	cfg.MuxRate = muxRate

	videoExtradata := []byte{0x00, 0x00, 0x00, 0x01, 0x67} // stand-in SPS NAL
	audioExtradata := []byte{0x12, 0x10}                   // AAC-LC, 44.1kHz, stereo

	streams := []isdbtmux.StreamConfig{
		{Codec: isdbtmux.CodecH264, ID: 0, Timebase: isdbtmux.Timebase{Num: 1, Den: 90000}, Extradata: videoExtradata},
		{Codec: isdbtmux.CodecAAC, ID: 1, Timebase: isdbtmux.Timebase{Num: 1, Den: 90000}, Extradata: audioExtradata, Language: "por"},
	}
	if err := mux.Init(cfg, streams); err != nil {
		return err
	}

	const fps = 30
	frame := make([]byte, 4096)
	for i := range frame {
		frame[i] = byte(i)
	}

	for n := 0; n < seconds*fps; n++ {
		pts := int64(n) * (90000 / fps)
		flags := isdbtmux.FrameFlags(0)
		if n%fps == 0 {
			flags = isdbtmux.FrameKeyFrame
		}
		videoFrame := append([]byte{0x00, 0x00, 0x00, 0x01, 0x65}, frame...)
		if err := mux.WritePacket(&isdbtmux.Frame{StreamIndex: 0, Data: videoFrame, PTS: pts, DTS: pts, Flags: flags}); err != nil {
			return err
		}
		audioFrame := frame[:188]
		if err := mux.WritePacket(&isdbtmux.Frame{StreamIndex: 1, Data: audioFrame, PTS: pts, DTS: pts}); err != nil {
			return err
		}
	}

	if err := mux.WriteTrailer(); err != nil {
		return err
	}
	return mux.Deinit()
}
