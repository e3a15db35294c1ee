package isdbtmux

import "fmt"

const tableIDPMT = 0x02

// pmtOverflowMargin is how far below maxSectionLength a PMT must stay
// before the next stream entry is appended; once the next entry would push
// the section past this margin, the mux stops adding streams to the PMT
// (spec §4.2/§7: a one-section PMT is a hard requirement, but truncating
// its stream list is a documented quality-of-service degradation, not a
// fatal error).
const pmtOverflowMargin = 32

// streamTypeFor implements spec §4.2 Table 1: the stream_type byte written
// into the PMT for a given codec, under the System-A/System-B and AAC-LATM
// flags.
func streamTypeFor(codec CodecKind, systemB, aacLATM bool) byte {
	switch codec {
	case CodecMPEG1Video, CodecMPEG2Video:
		return 0x02
	case CodecMPEG4Video:
		return 0x10
	case CodecH264:
		return 0x1b
	case CodecHEVC:
		return 0x24
	case CodecAVS:
		return 0x42
	case CodecDirac:
		return 0xd1
	case CodecVC1:
		return 0xea
	case CodecMP2, CodecMP3:
		return 0x03
	case CodecAAC:
		if aacLATM {
			return 0x11
		}
		return 0x0f
	case CodecAC3:
		if systemB {
			return 0x06
		}
		return 0x81
	case CodecEAC3:
		if systemB {
			return 0x06
		}
		return 0x87
	case CodecDTS:
		return 0x8a
	case CodecTrueHD:
		return 0x83
	default:
		return 0x06 // Opus, S302M, subtitles, teletext, KLV, and anything else
	}
}

// buildProgramDescriptors writes the PMT's program-level descriptor loop:
// always a parental-rating descriptor for "BRA" (spec §4.2).
func buildProgramDescriptors(b *scopeBuf, rating byte) {
	appendParentalRatingDescriptor(b, rating)
}

// buildStreamDescriptors writes one elementary stream's descriptor loop,
// dispatching on codec per spec §4.2. warn and onOpusFallback may be nil;
// onOpusFallback is called (in addition to warn) when an Opus stream's
// channel mapping can't be encoded and the descriptor falls back to 0xFF.
func buildStreamDescriptors(b *scopeBuf, st *WriteStream, systemB bool, lang string, warn func(string), onOpusFallback func()) error {
	switch st.Codec {
	case CodecAAC, CodecMP2, CodecMP3:
		appendLanguageDescriptor(b, lang, 0)
	case CodecAC3:
		appendLanguageDescriptor(b, lang, 0)
		if systemB {
			appendAC3Descriptor(b, false)
		}
	case CodecEAC3:
		appendLanguageDescriptor(b, lang, 0)
		if systemB {
			appendAC3Descriptor(b, true)
		}
	case CodecDTS, CodecTrueHD:
		appendLanguageDescriptor(b, lang, 0)
	case CodecS302M:
		appendLanguageDescriptor(b, lang, 0)
		appendRegistrationDescriptor(b, "BSSD")
	case CodecOpus:
		appendLanguageDescriptor(b, lang, 0)
		appendRegistrationDescriptor(b, "Opus")
		code, err := opusChannelConfigCode(channelsFromExtradata(st.Extradata))
		if err != nil {
			// Unsupported mapping writes 0xFF, reports it through warn
			// (which the Muxer logs at WARN level, not ERROR) and
			// onOpusFallback; data continues.
			code = 0xff
			if warn != nil {
				warn(fmt.Sprintf("pmt: opus stream pid 0x%x has an unsupported channel mapping, writing 0xff: %v", st.PID, err))
			}
			if onOpusFallback != nil {
				onOpusFallback()
			}
		}
		appendOpusExtensionDescriptor(b, code)
	case CodecDVBSubtitle:
		compID, ancID := subtitlePageIDs(st.Extradata)
		appendSubtitlingDescriptor(b, lang, subtitlingTypeFrom(st.Extradata), compID, ancID)
	case CodecTeletext:
		appendTeletextDescriptor(b, []TeletextEntry{{Language: lang}})
	case CodecDirac:
		appendRegistrationDescriptor(b, "drac")
	case CodecVC1:
		appendRegistrationDescriptor(b, "VC-1")
	case CodecKLV:
		appendRegistrationDescriptor(b, "KLVA")
	}
	return nil
}

// channelsFromExtradata reads the channel count out of an Opus
// OpusHead-style extradata blob (byte 9, per RFC 7845 §5.1); it defaults to
// stereo when extradata is absent or too short.
func channelsFromExtradata(extradata []byte) int {
	if len(extradata) > 9 {
		return int(extradata[9])
	}
	return 2
}

// subtitlePageIDs derives DVB subtitle composition/ancillary page ids from
// extradata, defaulting to 0x10/0x20 based on a hearing-impaired
// disposition byte (extradata[0] bit 0), per spec §4.2.
func subtitlePageIDs(extradata []byte) (uint16, uint16) {
	if len(extradata) >= 4 {
		return uint16(extradata[0])<<8 | uint16(extradata[1]), uint16(extradata[2])<<8 | uint16(extradata[3])
	}
	if len(extradata) >= 1 && extradata[0]&0x1 != 0 {
		return 0x20, 0x10
	}
	return 0x10, 0x20
}

func subtitlingTypeFrom(extradata []byte) byte {
	if len(extradata) >= 1 {
		return extradata[0]
	}
	return 0x10 // DVB subtitles (normal), no AR criticality
}

// buildPMT serialises a service's Program Map Table. It returns the number
// of streams dropped for overflow (see pmtOverflowMargin); warn, if
// non-nil, is called once on overflow naming the index of the first dropped
// stream, and once per
// Opus stream whose channel mapping falls back to 0xFF. onOpusFallback, if
// non-nil, is called once per such Opus fallback for metrics.
func buildPMT(tablesVersion uint8, systemB bool, svc *Service, rating byte, warn func(string), onOpusFallback func()) ([]byte, int, error) {
	if svc.PCRPID == PIDNull {
		return nil, 0, fmt.Errorf("%w: service 0x%x has no PCR PID", MuxerErrorPCRPIDInvalid, svc.SID)
	}

	var payload scopeBuf
	payload.WriteByte(0xe0 | byte(svc.PCRPID>>8)&0x1f)
	payload.WriteByte(byte(svc.PCRPID))

	progInfoPos := payload.reserve12()
	buildProgramDescriptors(&payload, rating)
	payload.patch12(progInfoPos, 0xf)

	dropped := 0
	for i, st := range svc.Streams {
		// Snapshot current length to decide whether this entry fits.
		var entry scopeBuf
		entry.WriteByte(streamTypeFor(st.Codec, systemB, st.aacUseLATM))
		entry.WriteByte(0xe0 | byte(st.PID>>8)&0x1f)
		entry.WriteByte(byte(st.PID))
		esInfoPos := entry.reserve12()
		if err := buildStreamDescriptors(&entry, st, systemB, "por", warn, onOpusFallback); err != nil {
			return nil, dropped, err
		}
		entry.patch12(esInfoPos, 0xf)

		if payload.Len()+entry.Len()+9 > maxSectionLength-pmtOverflowMargin {
			if warn != nil {
				warn(fmt.Sprintf("pmt: section overflow, dropping stream index %d (pid 0x%x) from service 0x%x", i, st.PID, svc.SID))
			}
			dropped = len(svc.Streams) - i
			break
		}
		payload.Write(entry.Bytes())
	}

	section, err := buildSection(sectionReservedPrefix, tableIDPMT, svc.SID, tablesVersion, 0, 0, payload.Bytes())
	return section, dropped, err
}
