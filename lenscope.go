package isdbtmux

import (
	"bytes"
	"encoding/binary"
)

// scopeBuf is the "length-prefix scope" helper described in the design
// notes: PMT/NIT/EIT/SDT all nest two or three levels of
// reserved-bits+length fields whose value depends on children written after
// the field itself. Rather than precomputing lengths by hand, callers
// reserve a slot, write children straight into the same buffer, then patch
// the slot once the true length is known.
type scopeBuf struct {
	bytes.Buffer
}

// reserve12 reserves a 12-bit length field (prefixed by a 4-bit reserved
// nibble) and returns the byte offset of the reserved 2 bytes.
func (b *scopeBuf) reserve12() int {
	pos := b.Len()
	b.Write([]byte{0, 0})
	return pos
}

// patch12 fills in a 12-bit length field reserved via reserve12: the number
// of bytes written since pos+2, with reservedNibble in the top 4 bits.
func (b *scopeBuf) patch12(pos int, reservedNibble byte) {
	data := b.Bytes()
	length := len(data) - pos - 2
	v := uint16(reservedNibble&0xf)<<12 | uint16(length&0x0fff)
	binary.BigEndian.PutUint16(data[pos:pos+2], v)
}

// reserve8 reserves an 8-bit length field and returns its offset.
func (b *scopeBuf) reserve8() int {
	pos := b.Len()
	b.WriteByte(0)
	return pos
}

// patch8 fills in an 8-bit length field reserved via reserve8.
func (b *scopeBuf) patch8(pos int) {
	data := b.Bytes()
	data[pos] = byte(len(data) - pos - 1)
}

// writeDescriptor writes a tag, an 8-bit length and an already-built
// descriptor body. Most descriptors are small enough that building then
// measuring is simpler than a reserved scope.
func writeDescriptor(b *scopeBuf, tag byte, body []byte) {
	b.WriteByte(tag)
	b.WriteByte(byte(len(body)))
	b.Write(body)
}
