// Package isdbtmux writes ISDB-Tb/DVB-style MPEG-2 transport streams: PES
// packetisation, PAT/PMT/SDT/NIT/TOT/EIT table emission, per-service PID
// bookkeeping, and the H.264/HEVC/AAC/Opus framing adapters a broadcast mux
// needs ahead of the transport-stream layer itself.
//
// The public surface is the Muxer type: construct one with NewMuxer, call
// Init once with a Configuration and the stream list, then WritePacket per
// access unit and Flush/WriteTrailer/Deinit to close out. The mux keeps no
// internal timers or goroutines (see Configuration and MuxerOptionPacedWriter
// for the one opt-in exception): every table re-emission, PCR placement, and
// CBR filler packet is driven entirely by the caller's own WritePacket calls.
package isdbtmux
