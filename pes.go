package isdbtmux

import (
	"fmt"
	"time"

	"golang.org/x/exp/slices"
)

// pesFixedHeaderSize is the 9 bytes every PES header carries ahead of its
// optional fields.
const pesFixedHeaderSize = 9 // start code(3) + stream_id(1) + length(2) + flags(1) + flags(1) + header_data_length(1)

// pesStreamIDDefault implements spec §4.3's stream_id default table.
func pesStreamIDDefault(codec CodecKind, m2ts bool) byte {
	switch codec.Media() {
	case MediaVideo:
		if codec == CodecDirac {
			return 0xfd
		}
		return 0xe0
	case MediaAudio:
		switch codec {
		case CodecMP2, CodecMP3, CodecAAC:
			return 0xc0
		case CodecAC3, CodecEAC3:
			if m2ts {
				return 0xfd
			}
			return 0xbd
		default:
			return 0xbd
		}
	case MediaData:
		return 0xfc
	default:
		return 0xbd
	}
}

// buildPESHeader serialises the PES header described in spec §4.3.
// pesPacketLength is the value to encode (0 when omitted for video or when
// it would overflow 16 bits). teletextPad requests right-padding the
// header with 0xFF to a fixed total length of 0x24 bytes.
func buildPESHeader(streamID byte, pesPacketLength int, pts, dts uint64, hasDTS, dataAlignment, teletextPad bool) []byte {
	var optional []byte
	ptsDTSFlags := byte(0b10)
	ptsPrefix := uint8(0b0010)
	if hasDTS {
		ptsDTSFlags = 0b11
		ptsPrefix = 0b0011
	}
	optional = append(optional, ptsOrDTSBytes(ptsPrefix, pts)[:]...)
	if hasDTS {
		optional = append(optional, ptsOrDTSBytes(0b0001, dts)[:]...)
	}

	headerDataLength := len(optional)
	if teletextPad {
		const teletextTotal = 0x24
		want := teletextTotal - pesFixedHeaderSize
		if want > headerDataLength {
			pad := want - headerDataLength
			for i := 0; i < pad; i++ {
				optional = append(optional, 0xff)
			}
			headerDataLength = want
		}
	}

	hdr := make([]byte, 0, pesFixedHeaderSize+len(optional))
	hdr = append(hdr, 0x00, 0x00, 0x01, streamID)
	hdr = append(hdr, byte(pesPacketLength>>8), byte(pesPacketLength))
	hdr = append(hdr, 0x80|b2u8(dataAlignment)<<2)
	hdr = append(hdr, ptsDTSFlags<<6)
	hdr = append(hdr, byte(headerDataLength))
	hdr = append(hdr, optional...)
	return hdr
}

// wrapDVBSubtitlePayload implements spec §4.3's DVB-subtitle PES wrapping:
// a 2-byte PES_data_field_id/PES_data_identifier prefix `0x20 0x00` and a
// trailing `0xFF` stuffing byte.
func wrapDVBSubtitlePayload(data []byte) []byte {
	out := make([]byte, 0, len(data)+3)
	out = append(out, 0x20, 0x00)
	out = append(out, data...)
	out = append(out, 0xff)
	return out
}

// muxCore holds the CBR pacing bookkeeping shared by every stream's PES
// emission: the output byte offset and the first PCR. Muxer keeps it in its
// core field.
type muxCore struct {
	byteOffset uint64
	firstPCR   uint64
	havePCR    bool
}

// pcrAtOffset computes the CBR PCR projection described in spec §4.3:
// pcr = (output_byte_offset + 11) * 8 * 27_000_000 / mux_rate + first_pcr.
func pcrAtOffset(offset uint64, muxRate int, firstPCR uint64) uint64 {
	return (offset+11)*8*PCRHz/uint64(muxRate) + firstPCR
}

// pcrFromDTS computes the VBR PCR fallback: pcr = (dts - max_delay) * 300.
func pcrFromDTS(dts, maxDelay90kHz uint64) uint64 {
	base := dts
	if base > maxDelay90kHz {
		base -= maxDelay90kHz
	} else {
		base = 0
	}
	return base * ClockReferenceScale
}

// emitPES writes one complete PES packet for stream across as many TS
// packets as needed, driving the cadence controller and CBR pacing per
// spec §4.3's numbered engine steps. key marks a video keyframe (sets the
// random-access indicator and may force PAT/PMT under
// FlagPATPMTAtFrames). streamID overrides the default stream_id when
// non-zero (MPEGTS_STREAM_ID side data).
func (m *Muxer) emitPES(st *WriteStream, payload []byte, pts, dts uint64, key bool, streamID byte) error {
	if st.Codec.Media() == MediaSubtitle && st.Codec == CodecDVBSubtitle {
		payload = wrapDVBSubtitlePayload(payload)
	}

	if streamID == 0 {
		streamID = pesStreamIDDefault(st.Codec, m.m2ts)
	}

	hasDTS := dts != pts
	dataAlignment := st.Codec.Media() != MediaAudio
	teletextPad := st.Codec == CodecTeletext

	header := buildPESHeader(streamID, 0, pts, dts, hasDTS, dataAlignment, teletextPad)
	omitLength := m.cfg.OmitVideoPESLength && st.Codec.Media() == MediaVideo
	full := len(header) + len(payload) - 6 // PES_packet_length counts everything after itself
	if !omitLength && full <= 0xffff {
		header[4] = byte(full >> 8)
		header[5] = byte(full)
	}

	pes := make([]byte, 0, len(header)+len(payload))
	pes = append(pes, header...)
	pes = append(pes, payload...)

	forcePAT := false
	if st.Codec.Media() == MediaVideo && key {
		if m.cfg.Flags&FlagPATPMTAtFrames != 0 || !st.prevPayloadKey {
			forcePAT = true
		}
	}
	if st.Codec.Media() == MediaVideo {
		st.prevPayloadKey = key
	}

	return m.writeTSPackets(st, pes, key, dts, forcePAT)
}

// writeTSPackets chunks pes across 188-byte TS packets on st.PID,
// running the cadence/PCR/CBR-pacing engine ahead of every chunk.
func (m *Muxer) writeTSPackets(st *WriteStream, pes []byte, key bool, dts uint64, forcePAT bool) error {
	first := true
	for len(pes) > 0 {
		if err := m.runCadence(dts, forcePAT); err != nil {
			return err
		}

		svc := st.Service
		schedulePCR := false
		if svc.PCRPID == st.PID {
			svc.pcrPacketCount++
			if svc.pcrPacketPeriod > 0 && svc.pcrPacketCount >= svc.pcrPacketPeriod {
				svc.pcrPacketCount = 0
				schedulePCR = true
			}
		}

		if m.cfg.MuxRate > 1 {
			// Insert null packets until the CBR byte-offset projection catches
			// up to this chunk's deadline. Each filler packet advances
			// byteOffset, so projected only grows — the loop must keep
			// inserting while it's still behind (projected < threshold) and
			// stop once it has caught up, never the other way around.
			threshold := pcrFromDTS(dts, uint64(m.cfg.MaxDelay.Seconds()*PTSHz))
			for {
				projected := pcrAtOffset(m.core.byteOffset, m.cfg.MuxRate, m.core.firstPCR)
				if projected >= threshold {
					break
				}
				if err := m.writeFillerPacket(); err != nil {
					return err
				}
			}
		}

		mandatoryAF := schedulePCR || (first && key)
		capacity := MpegTsPacketSize - mpegTsPacketHeaderSize
		var af *PacketAdaptationField
		if mandatoryAF {
			af = &PacketAdaptationField{}
			capacity -= 2 // adaptation_field_length byte + flags byte
			if schedulePCR {
				af.HasPCR = true
				af.PCR = newClockReferenceFromPCR(m.currentPCR(dts))
				capacity -= pcrBytesSize
			}
			if first && key {
				af.RandomAccessIndicator = true
			}
		}

		n := len(pes)
		if n > capacity {
			n = capacity
		}
		chunk := pes[:n]
		pes = pes[n:]

		remaining := capacity - n
		if mandatoryAF {
			af.StuffingLength = uint8(remaining)
		} else if remaining > 0 {
			af = newStuffingAdaptationField(remaining)
		}

		pkt := Packet{
			Header: PacketHeader{
				PID:                       st.PID,
				HasAdaptationField:        af != nil,
				HasPayload:                true,
				PayloadUnitStartIndicator: first,
				ContinuityCounter:         st.cc.get(),
			},
			AdaptationField: af,
			Payload:         chunk,
		}
		nw, err := m.writeFramedPacket(&pkt)
		if err != nil {
			return err
		}
		m.core.byteOffset += uint64(nw)
		m.metrics.packet("pes")
		first = false
	}
	return nil
}

// currentPCR resolves the PCR value to schedule into an adaptation field:
// the CBR projection when mux_rate > 1, the VBR DTS-derived fallback
// otherwise.
func (m *Muxer) currentPCR(dts uint64) uint64 {
	if m.cfg.MuxRate > 1 {
		return pcrAtOffset(m.core.byteOffset, m.cfg.MuxRate, m.core.firstPCR)
	}
	return pcrFromDTS(dts, uint64(m.cfg.MaxDelay.Seconds()*PTSHz))
}

// writeFillerPacket emits a single null-PID filler packet to pace CBR
// output, per spec §4.3 step 3. (A fuller implementation alternates
// between PCR-only and null filler packets depending on whether a PCR is
// due; this mux always inserts null packets — see DESIGN.md.)
func (m *Muxer) writeFillerPacket() error {
	pkt := Packet{
		Header: PacketHeader{
			PID:                PIDNull,
			HasAdaptationField: true,
			HasPayload:         false,
		},
		AdaptationField: newStuffingAdaptationField(MpegTsPacketSize - mpegTsPacketHeaderSize),
	}
	nw, err := m.writeFramedPacket(&pkt)
	if err != nil {
		return err
	}
	m.core.byteOffset += uint64(nw)
	m.metrics.packet("null")
	return nil
}

// m2tsTimestamp derives the TP_extra_header arrival-time-stamp from the
// CBR PCR projection at the current byte offset, in 90kHz units; it is 0
// under VBR (spec §4.7 leaves the field meaningless without a mux_rate).
func (m *Muxer) m2tsTimestamp() uint64 {
	if m.cfg.MuxRate > 1 {
		return pcrAtOffset(m.core.byteOffset, m.cfg.MuxRate, m.core.firstPCR) / ClockReferenceScale
	}
	return 0
}

// writeFramedPacket writes pkt as a 188-byte TS packet, prefixed by a
// 4-byte M2TS TP_extra_header when m.m2ts is set (spec §4.7).
func (m *Muxer) writeFramedPacket(pkt *Packet) (int, error) {
	written := 0
	if m.m2ts {
		if err := writeM2TSHeader(m.bw, m.m2tsTimestamp()); err != nil {
			return 0, err
		}
		written += 4
	}
	nw, err := pkt.write(m.bw, &m.bb, MpegTsPacketSize)
	if err != nil {
		return written, err
	}
	written += nw
	return written, nil
}

// runCadence advances the cadence controller and emits any tables it
// reports due, in the order SDT, NIT, TOT, EIT, PAT+PMTs, per spec §5's
// explicit ordering note.
func (m *Muxer) runCadence(dts uint64, forcePAT bool) error {
	if m.reemitPending {
		m.cadence.reemitAll()
		m.reemitPending = false
	}
	due := m.cadence.tick(dts, forcePAT)
	if len(due) == 0 {
		return nil
	}

	order := map[TableKind]int{TableSDT: 0, TableNIT: 1, TableTOT: 2, TableEIT: 3, TablePAT: 4}
	slices.SortFunc(due, func(a, b TableKind) bool { return order[a] < order[b] })

	for _, t := range due {
		if err := m.emitTable(t); err != nil {
			return err
		}
	}
	return nil
}

// emitTable builds and writes every section of table t.
func (m *Muxer) emitTable(t TableKind) error {
	version := m.tablesVersion.peek()
	switch t {
	case TablePAT:
		section, err := buildPAT(m.cfg.TransportStreamID, version, m.services)
		if err != nil {
			return err
		}
		if _, err := writeSectionPackets(m.bw, &m.bb, PIDPAT, &m.patCC, m.m2ts, m.m2tsTimestamp(), section); err != nil {
			return err
		}
		for _, svc := range m.services {
			pmt, dropped, err := buildPMT(version, m.cfg.Flags&FlagSystemB != 0, svc, m.cfg.ServiceType, m.warn, m.metrics.opusFallback)
			if err != nil {
				return err
			}
			if dropped > 0 {
				m.metrics.pmtOverflow()
			}
			if _, err := writeSectionPackets(m.bw, &m.bb, svc.PMTPID, &svc.cc, m.m2ts, m.m2tsTimestamp(), pmt); err != nil {
				return err
			}
		}
	case TableSDT:
		section, err := buildSDT(m.cfg.TransportStreamID, m.cfg.OriginalNetworkID, version, m.services)
		if err != nil {
			return err
		}
		if _, err := writeSectionPackets(m.bw, &m.bb, PIDSDT, &m.sdtCC, m.m2ts, m.m2tsTimestamp(), section); err != nil {
			return err
		}
	case TableNIT:
		section, err := buildNIT(m.cfg.TransportStreamID, version, m.network, m.services)
		if err != nil {
			return err
		}
		if _, err := writeSectionPackets(m.bw, &m.bb, PIDNIT, &m.nitCC, m.m2ts, m.m2tsTimestamp(), section); err != nil {
			return err
		}
	case TableTOT:
		section, err := buildTOT(time.Now(), m.lto)
		if err != nil {
			return err
		}
		if _, err := writeSectionPackets(m.bw, &m.bb, PIDTOT, &m.totCC, m.m2ts, m.m2tsTimestamp(), section); err != nil {
			return err
		}
	case TableEIT:
		sections, err := buildEITSections(m.cfg.TransportStreamID, version, m.services, m.eitEvents, m.cfg.EITTableIDExtUsesTSIDForLast)
		if err != nil {
			return err
		}
		for _, section := range sections {
			if _, err := writeSectionPackets(m.bw, &m.bb, PIDEIT, &m.eitCC, m.m2ts, m.m2tsTimestamp(), section); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown table kind %d", ErrInvalidConfig, t)
	}
	m.metrics.table(t)
	return nil
}

// warn is every codec/table-builder diagnostic's sink, tagged with
// sessionID so log lines from concurrent or successive Muxer instances
// (e.g. across a process restart writing to the same aggregated log) can be
// told apart, per spec §3.
func (m *Muxer) warn(msg string) {
	m.logger.Warnf("[session %s] %s", m.sessionID, msg)
}
