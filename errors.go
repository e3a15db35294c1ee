package isdbtmux

import (
	"errors"
	"fmt"
)

// Error kinds, per spec §7. Call sites wrap these with fmt.Errorf("%w: ...")
// so errors.Is still matches the kind while the message carries detail.
var (
	// ErrInvalidData marks malformed input bitstream or missing mandatory
	// per-packet metadata (e.g. no PTS on the first packet of a stream, an
	// Opus packet shorter than its TOC byte demands).
	ErrInvalidData = errors.New("isdbtmux: invalid data")

	// ErrInvalidConfig marks configuration or registration errors: duplicate
	// PIDs, a stream id that doesn't fit in 13 bits, a PMT that can't fit a
	// single section.
	ErrInvalidConfig = errors.New("isdbtmux: invalid configuration")

	// ErrOutOfMemory marks a buffer allocation failure. It exists for API
	// completeness: Go's allocator turns real cases into a panic, and no
	// call site in this package returns it.
	ErrOutOfMemory = errors.New("isdbtmux: out of memory")

	// ErrNotSupported marks an input the mux recognises but cannot encode,
	// e.g. an Opus channel mapping outside RFC 7845 families 0/1.
	ErrNotSupported = errors.New("isdbtmux: not supported")
)

// Sentinel errors kept for direct compatibility with the teacher's own
// naming, still classified under the kinds above via errors.Is.
var (
	MuxerErrorPIDNotFound      = fmt.Errorf("%w: PID not found", ErrInvalidConfig)
	MuxerErrorPIDAlreadyExists = fmt.Errorf("%w: PID already exists", ErrInvalidConfig)
	MuxerErrorPCRPIDInvalid    = fmt.Errorf("%w: PCR PID invalid", ErrInvalidConfig)
)
