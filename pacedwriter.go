package isdbtmux

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// pacedWriter throttles writes to match a CBR mux_rate (bits per second),
// for live sinks (network sockets, FIFOs feeding a real-time player) that
// must not receive bursts faster than the nominal transport rate. The core
// mux loop itself never blocks on wall-clock time (spec §5); this is a
// decorator applied only when the caller opts in via
// MuxerOptionPacedWriter.
type pacedWriter struct {
	w       io.Writer
	limiter *rate.Limiter
}

// newPacedWriter builds a pacedWriter admitting muxRate/8 bytes per second,
// with a burst equal to one M2TS-sized packet (192 bytes).
func newPacedWriter(w io.Writer, muxRate int) *pacedWriter {
	bytesPerSecond := muxRate / 8
	if bytesPerSecond <= 0 {
		bytesPerSecond = MpegTsPacketSize * 1000 // degenerate VBR fallback: don't throttle meaningfully
	}
	return &pacedWriter{
		w:       w,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), M2TsPacketSize),
	}
}

func (p *pacedWriter) Write(b []byte) (int, error) {
	if err := p.limiter.WaitN(context.Background(), len(b)); err != nil {
		return 0, err
	}
	return p.w.Write(b)
}
