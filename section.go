package isdbtmux

import (
	"bytes"
	"fmt"

	"github.com/asticode/go-astikit"
)

// Reserved-bits prefixes for the section_length field's containing 16-bit
// word: section_syntax_indicator(1) | reserved/private(1) | reserved(2).
// Every table in this mux sets section_syntax_indicator=1; SDT additionally
// sets the following reserved bit to one (see spec §9 open question #2 for
// the SDT-specific one-seg detection quirk this interacts with).
const (
	sectionReservedPrefix    byte = 0xb
	sdtSectionReservedPrefix byte = 0xf
)

// maxSectionLength is the largest legal section_length value (12 bits, with
// the top 2 bits reserved to zero): ISO/IEC 13818-1 caps it at 1021 so a
// section plus its 3-byte prefix never exceeds 1024 bytes.
const maxSectionLength = 1021

// ErrSectionTooLarge is returned when a section's payload would push
// section_length past maxSectionLength.
var ErrSectionTooLarge = fmt.Errorf("%w: section exceeds maximum section_length", ErrInvalidConfig)

// buildSection serialises a complete long-form PSI section: table_id,
// section_syntax_indicator=1, section_length, table_id_extension, version,
// current_next_indicator=1, section_number, last_section_number, payload,
// CRC-32/MPEG-2. reservedPrefix selects the nibble written ahead of
// section_length (0xB normally, 0xF for SDT).
func buildSection(reservedPrefix byte, tableID uint8, tableIDExtension uint16, version uint8, sectionNumber, lastSectionNumber uint8, payload []byte) ([]byte, error) {
	sectionLength := len(payload) + 9
	if sectionLength > maxSectionLength {
		return nil, fmt.Errorf("%w: payload %d bytes -> section_length %d > %d", ErrSectionTooLarge, len(payload), sectionLength, maxSectionLength)
	}

	var buf bytes.Buffer
	buf.WriteByte(tableID)
	buf.WriteByte(byte(reservedPrefix)<<4 | byte(sectionLength>>8)&0x0f)
	buf.WriteByte(byte(sectionLength))
	buf.WriteByte(byte(tableIDExtension >> 8))
	buf.WriteByte(byte(tableIDExtension))
	buf.WriteByte(0xc0 | (version&0x1f)<<1 | 1) // reserved=11, version, current_next=1
	buf.WriteByte(sectionNumber)
	buf.WriteByte(lastSectionNumber)
	buf.Write(payload)

	crc := crc32MPEG2(buf.Bytes())
	buf.WriteByte(byte(crc >> 24))
	buf.WriteByte(byte(crc >> 16))
	buf.WriteByte(byte(crc >> 8))
	buf.WriteByte(byte(crc))

	return buf.Bytes(), nil
}

// buildPrivateSection serialises a short-form (private) section, used only
// by TOT: no section_number/last_section_number, no current_next_indicator.
// Layout: table_id, section_syntax_indicator=0, section_length,
// table_id_extension-less payload, CRC-32/MPEG-2.
func buildPrivateSection(tableID uint8, payload []byte) ([]byte, error) {
	sectionLength := len(payload) + 4 // + CRC
	if sectionLength > maxSectionLength {
		return nil, fmt.Errorf("%w: payload %d bytes -> section_length %d > %d", ErrSectionTooLarge, len(payload), sectionLength, maxSectionLength)
	}

	var buf bytes.Buffer
	buf.WriteByte(tableID)
	buf.WriteByte(byte(sectionLength>>8) & 0x0f) // SSI=0, reserved bits 0
	buf.WriteByte(byte(sectionLength))
	buf.Write(payload)

	crc := crc32MPEG2(buf.Bytes())
	buf.WriteByte(byte(crc >> 24))
	buf.WriteByte(byte(crc >> 16))
	buf.WriteByte(byte(crc >> 8))
	buf.WriteByte(byte(crc))

	return buf.Bytes(), nil
}

// writeSectionPackets chunks a fully-built section into 188-byte TS packets
// on pid, advancing cc by one per packet. The first packet carries
// payload_unit_start_indicator=1 and a 1-byte pointer_field of 0; the last
// packet is right-padded with 0xFF. When m2ts is set, every packet is
// preceded by a 4-byte TP_extra_header carrying pcr90kHz (spec §4.7).
func writeSectionPackets(w *astikit.BitsWriter, bb *[8]byte, pid uint16, cc *wrappingCounter, m2ts bool, pcr90kHz uint64, section []byte) (int, error) {
	capacity := MpegTsPacketSize - mpegTsPacketHeaderSize
	written := 0

	// pointer_field(1) + section bytes, chunked across as many packets as
	// needed.
	remaining := append([]byte{0x00}, section...)
	first := true
	for len(remaining) > 0 {
		n := len(remaining)
		if n > capacity {
			n = capacity
		}
		payload := remaining[:n]
		remaining = remaining[n:]

		pkt := Packet{
			Header: PacketHeader{
				PID:                       pid,
				HasPayload:                true,
				PayloadUnitStartIndicator: first,
				ContinuityCounter:         cc.get(),
			},
			Payload: payload,
		}
		if m2ts {
			if err := writeM2TSHeader(w, pcr90kHz); err != nil {
				return written, err
			}
			written += 4
		}
		nw, err := pkt.write(w, bb, MpegTsPacketSize)
		if err != nil {
			return written, err
		}
		written += nw
		first = false
	}

	return written, nil
}
