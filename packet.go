package isdbtmux

import (
	"encoding/binary"
	"fmt"

	"github.com/asticode/go-astikit"
)

// Fixed PIDs, per the standard and the ISDB-Tb/DVB profile this mux targets.
const (
	PIDPAT  uint16 = 0x0000
	PIDNIT  uint16 = 0x0010
	PIDSDT  uint16 = 0x0011
	PIDEIT  uint16 = 0x0012
	PIDTOT  uint16 = 0x0014
	PIDNull uint16 = 0x1fff
)

const (
	syncByte = 0x47

	// MpegTsPacketSize is the length, in bytes, of a bare TS packet.
	MpegTsPacketSize = 188
	// M2TsPacketSize is MpegTsPacketSize plus the 4-byte TP_extra_header
	// used by Blu-ray-style M2TS framing.
	M2TsPacketSize = 192

	mpegTsPacketHeaderSize = 4
	pcrBytesSize           = 6
)

// Scrambling controls, as carried in the TS packet header.
const (
	ScramblingControlNotScrambled = 0
	ScramblingControlReserved     = 1
	ScramblingControlEvenKey      = 2
	ScramblingControlOddKey       = 3
)

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func b2u8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Packet is one 188-byte transport-stream unit in the process of being
// serialised: header, optional adaptation field, and payload bytes.
type Packet struct {
	Header          PacketHeader
	AdaptationField *PacketAdaptationField
	Payload         []byte
}

// PacketHeader is the fixed 4-byte TS packet header.
type PacketHeader struct {
	ContinuityCounter          uint8
	HasAdaptationField         bool
	HasPayload                 bool
	PayloadUnitStartIndicator  bool
	PID                        uint16
	TransportErrorIndicator    bool
	TransportPriority          bool
	TransportScramblingControl uint8
}

// PacketAdaptationField is the optional adaptation field following the TS
// header; StuffingLength is the number of 0xFF stuffing bytes written at its
// end.
type PacketAdaptationField struct {
	PCR                               ClockReference
	OPCR                              ClockReference
	HasPCR                            bool
	HasOPCR                           bool
	DiscontinuityIndicator            bool
	RandomAccessIndicator             bool
	ElementaryStreamPriorityIndicator bool
	HasSplicingCountdown              bool
	SpliceCountdown                   uint8
	TransportPrivateData              []byte
	HasTransportPrivateData           bool
	StuffingLength                    uint8
	IsOneByteStuffing                 bool
}

// newStuffingAdaptationField builds an adaptation field whose only purpose
// is to consume bytesToStuff bytes of packet space via padding.
func newStuffingAdaptationField(bytesToStuff int) *PacketAdaptationField {
	if bytesToStuff == 1 {
		return &PacketAdaptationField{IsOneByteStuffing: true}
	}
	return &PacketAdaptationField{StuffingLength: uint8(bytesToStuff - 2)}
}

// calcLength returns the adaptation_field_length value: everything after the
// length byte itself.
func (af *PacketAdaptationField) calcLength() uint8 {
	length := uint8(1) // flags byte
	if af.HasPCR {
		length += pcrBytesSize
	}
	if af.HasOPCR {
		length += pcrBytesSize
	}
	if af.HasSplicingCountdown {
		length++
	}
	if af.HasTransportPrivateData {
		length += 1 + uint8(len(af.TransportPrivateData))
	}
	length += af.StuffingLength
	return length
}

func (af *PacketAdaptationField) write(w *astikit.BitsWriter, bb *[8]byte) (int, error) {
	if af.IsOneByteStuffing {
		bb[0] = 0
		return 1, w.Write(bb[:1])
	}

	length := af.calcLength()
	bb[0] = length
	bb[1] = b2u8(af.DiscontinuityIndicator) << 7
	bb[1] |= b2u8(af.RandomAccessIndicator) << 6
	bb[1] |= b2u8(af.ElementaryStreamPriorityIndicator) << 5
	bb[1] |= b2u8(af.HasPCR) << 4
	bb[1] |= b2u8(af.HasOPCR) << 3
	bb[1] |= b2u8(af.HasSplicingCountdown) << 2
	bb[1] |= b2u8(af.HasTransportPrivateData) << 1
	// no adaptation extension field emitted by this mux
	if err := w.Write(bb[:2]); err != nil {
		return 0, err
	}
	written := 2

	if af.HasPCR {
		pcr := af.PCR.writePCR(bb)
		if err := w.Write(pcr); err != nil {
			return 0, err
		}
		written += pcrBytesSize
	}
	if af.HasOPCR {
		opcr := af.OPCR.writePCR(bb)
		if err := w.Write(opcr); err != nil {
			return 0, err
		}
		written += pcrBytesSize
	}
	if af.HasSplicingCountdown {
		bb[0] = af.SpliceCountdown
		if err := w.Write(bb[:1]); err != nil {
			return 0, err
		}
		written++
	}
	if af.HasTransportPrivateData {
		bb[0] = uint8(len(af.TransportPrivateData))
		if err := w.Write(bb[:1]); err != nil {
			return 0, err
		}
		written++
		if len(af.TransportPrivateData) > 0 {
			if err := w.Write(af.TransportPrivateData); err != nil {
				return 0, err
			}
			written += len(af.TransportPrivateData)
		}
	}
	if af.StuffingLength > 0 {
		if err := writeStuffing(w, int(af.StuffingLength)); err != nil {
			return 0, err
		}
		written += int(af.StuffingLength)
	}
	return written, nil
}

func writeStuffing(w *astikit.BitsWriter, n int) error {
	if n <= 0 {
		return nil
	}
	var ff [8]byte
	binary.LittleEndian.PutUint64(ff[:], ^uint64(0))
	for n >= 8 {
		if err := w.Write(ff[:]); err != nil {
			return err
		}
		n -= 8
	}
	if n > 0 {
		if err := w.Write(ff[:n]); err != nil {
			return err
		}
	}
	return nil
}

func (ph *PacketHeader) write(w *astikit.BitsWriter, bb *[8]byte) (int, error) {
	var val uint32
	val |= uint32(syncByte) << 24
	val |= b2u(ph.TransportErrorIndicator) << 23
	val |= b2u(ph.PayloadUnitStartIndicator) << 22
	val |= b2u(ph.TransportPriority) << 21
	val |= uint32(ph.PID&0x1fff) << 8
	val |= uint32(ph.TransportScramblingControl&0x3) << 6
	val |= b2u(ph.HasAdaptationField) << 5
	val |= b2u(ph.HasPayload) << 4
	val |= uint32(ph.ContinuityCounter & 0xf)
	binary.BigEndian.PutUint32(bb[:], val)
	return mpegTsPacketHeaderSize, w.Write(bb[:4])
}

// write serialises the packet to exactly targetPacketSize bytes, padding the
// remainder of the packet with 0xFF when header+adaptation-field+payload
// falls short (this is how the last packet of a PSI/SI section is padded;
// PES and filler packets are sized to fill the packet exactly via
// adaptation-field stuffing).
func (p *Packet) write(w *astikit.BitsWriter, bb *[8]byte, targetPacketSize int) (int, error) {
	written, err := p.Header.write(w, bb)
	if err != nil {
		return written, err
	}

	if p.Header.HasAdaptationField {
		n, err := p.AdaptationField.write(w, bb)
		if err != nil {
			return written, err
		}
		written += n
	}

	if targetPacketSize-written < len(p.Payload) {
		return 0, fmt.Errorf("isdbtmux: packet payload of %d bytes does not fit in %d remaining bytes",
			len(p.Payload), targetPacketSize-written)
	}

	if p.Header.HasPayload && len(p.Payload) > 0 {
		if err := w.Write(p.Payload); err != nil {
			return written, err
		}
		written += len(p.Payload)
	}

	if written < targetPacketSize {
		if err := writeStuffing(w, targetPacketSize-written); err != nil {
			return written, err
		}
		written = targetPacketSize
	}

	return written, nil
}

// writeM2TSHeader prefixes a 4-byte TP_extra_header carrying the PCR (in
// 90kHz units, modulo 2^30) at the byte offset the packet is being written
// at, per the Blu-ray M2TS convention.
func writeM2TSHeader(w *astikit.BitsWriter, pcr90kHz uint64) error {
	var bb [4]byte
	binary.BigEndian.PutUint32(bb[:], uint32(pcr90kHz%(1<<30)))
	return w.Write(bb[:])
}
