package isdbtmux

import "encoding/binary"

// ClockReferenceScale is the number of base ticks per extension tick used by
// the 27MHz system clock (PCR = base*300 + ext).
const ClockReferenceScale = 300

// PCRHz is the frequency, in Hz, of the full-resolution program clock
// reference used in adaptation-field PCR fields.
const PCRHz = 27000000

// PTSHz is the frequency, in Hz, of the 90kHz presentation/decode timestamp
// domain used throughout PES headers.
const PTSHz = 90000

// ClockReference represents a 27MHz system clock split into a 33-bit base
// (90kHz domain) and a 9-bit extension (27MHz sub-tick).
type ClockReference struct {
	Base uint64 // 33 bits, 90kHz resolution
	Ext  uint64 // 9 bits, 27MHz resolution
}

func newClockReference(base, ext uint64) ClockReference {
	return ClockReference{
		Base: base & 0x1ffffffff,
		Ext:  ext & 0x1ff,
	}
}

// newClockReferenceFromPCR splits a raw 27MHz tick count into base+ext.
func newClockReferenceFromPCR(pcr uint64) ClockReference {
	return newClockReference(pcr/ClockReferenceScale, pcr%ClockReferenceScale)
}

// newClockReferenceFrom90kHz builds a ClockReference whose base equals pts
// (already in 90kHz ticks) and whose extension is zero, matching how PTS/DTS
// values (which have no sub-90kHz resolution) are represented.
func newClockReferenceFrom90kHz(pts uint64) ClockReference {
	return newClockReference(pts, 0)
}

// PCR returns the full-resolution (27MHz) tick count.
func (cr ClockReference) PCR() uint64 {
	return cr.Base*ClockReferenceScale + cr.Ext
}

// Duration90kHz returns cr.Base, the 90kHz-domain portion, which is what PTS
// and DTS fields carry.
func (cr ClockReference) Duration90kHz() uint64 {
	return cr.Base
}

// writePCR writes the 6-byte adaptation-field PCR encoding: 33-bit base,
// 6 reserved bits (all one), 9-bit extension, as a single 48-bit big-endian
// field.
func (cr ClockReference) writePCR(bb *[8]byte) []byte {
	v := cr.Ext | cr.Base<<15 | 0x7e<<8
	binary.BigEndian.PutUint64(bb[:], v)
	return bb[2:8]
}

// parsePCR decodes the 6-byte adaptation-field PCR encoding produced above;
// kept for round-trip tests and for demuxer-side verification tooling.
func parsePCR(bs []byte) ClockReference {
	_ = bs[5]
	raw := uint64(binary.BigEndian.Uint32(bs[:4]))<<16 | uint64(binary.BigEndian.Uint32(bs[2:6]))
	return newClockReference(raw>>15, raw&0x1ff)
}

// ptsOrDTSBytes encodes a 33-bit base as the classic 5-byte PTS/DTS layout
// with the given 4-bit indicator prefix ('0010' for PTS-only, '0011' for
// PTS-with-DTS, '0001' for DTS), each of the three marker bits forced to 1.
func ptsOrDTSBytes(flag uint8, base uint64) [5]byte {
	var out [5]byte
	b := base & 0x1ffffffff
	out[0] = (flag&0xf)<<4 | uint8((b>>30)&0x7)<<1 | 1
	v1 := uint16((b>>15)&0x7fff)<<1 | 1
	out[1] = byte(v1 >> 8)
	out[2] = byte(v1)
	v2 := uint16(b&0x7fff)<<1 | 1
	out[3] = byte(v2 >> 8)
	out[4] = byte(v2)
	return out
}

// wrappingCounter is a modular counter used for continuity counters and
// table version numbers, which both wrap at a power-of-two minus one.
type wrappingCounter struct {
	mask uint8
	v    uint8
}

func newWrappingCounter(mask uint8) wrappingCounter {
	return wrappingCounter{mask: mask}
}

// get returns the current value and advances the counter.
func (c *wrappingCounter) get() uint8 {
	v := c.v
	c.v = (c.v + 1) & c.mask
	return v
}

// peek returns the current value without advancing it.
func (c *wrappingCounter) peek() uint8 {
	return c.v
}

// set forces the counter to an explicit value (masked).
func (c *wrappingCounter) set(v uint8) {
	c.v = v & c.mask
}
