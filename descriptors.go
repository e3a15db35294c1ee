package isdbtmux

// Descriptor tags used across PMT/SDT/NIT/TOT/EIT, per spec §4.2.
const (
	descTagRegistration           = 0x05
	descTagLanguage               = 0x0a
	descTagTeletext               = 0x56
	descTagSubtitling             = 0x59
	descTagParentalRating         = 0x55
	descTagShortEvent             = 0x4d
	descTagComponent              = 0x50
	descTagContent                = 0x54
	descTagServiceDescriptor      = 0x48
	descTagNetworkName            = 0x40
	descTagServiceList            = 0x41
	descTagLocalTimeOffset        = 0x58
	descTagSystemManagement       = 0xfe
	descTagAudioComponent         = 0xc4
	descTagTSInformation          = 0xcd
	descTagPartialReception       = 0xfb
	descTagTerrestrialDelivery    = 0xfa
	descTagAC3                    = 0x6a
	descTagEAC3                   = 0x7a
	descTagExtension              = 0x7f
	extDescTagOpusChannelMapping  = 0x80
)

// appendParentalRatingDescriptor writes a single-entry parental_rating_descriptor
// (tag 0x55) for country "BRA" with a 1-byte rating.
func appendParentalRatingDescriptor(b *scopeBuf, rating byte) {
	body := []byte("BRA")
	body = append(body, rating)
	writeDescriptor(b, descTagParentalRating, body)
}

// appendLanguageDescriptor writes an ISO_639_language_descriptor (tag 0x0A)
// for a single audio stream. audioType 0 means "undefined".
func appendLanguageDescriptor(b *scopeBuf, lang string, audioType byte) {
	body := []byte(pad3(lang))
	body = append(body, audioType)
	writeDescriptor(b, descTagLanguage, body)
}

// appendRegistrationDescriptor writes a registration_descriptor (tag 0x05)
// carrying a 4-byte ASCII format identifier (e.g. "BSSD", "drac", "VC-1",
// "KLVA", "Opus").
func appendRegistrationDescriptor(b *scopeBuf, formatID string) {
	writeDescriptor(b, descTagRegistration, []byte(pad4(formatID)))
}

// appendAC3Descriptor writes a minimal AC3_descriptor (tag 0x6A) or
// enhanced_AC3_descriptor (tag 0x7A) with every optional field absent: a
// single flags byte of zero.
func appendAC3Descriptor(b *scopeBuf, isEAC3 bool) {
	tag := byte(descTagAC3)
	if isEAC3 {
		tag = descTagEAC3
	}
	writeDescriptor(b, tag, []byte{0x00})
}

// appendOpusExtensionDescriptor writes the DVB extension_descriptor (tag
// 0x7F) wrapping the user-defined Opus channel-mapping extension (extension
// tag 0x80), per spec §4.2: body = extension_tag(1) + channel_config_code(1).
func appendOpusExtensionDescriptor(b *scopeBuf, channelConfigCode byte) {
	writeDescriptor(b, descTagExtension, []byte{extDescTagOpusChannelMapping, channelConfigCode})
}

// appendSubtitlingDescriptor writes a DVB subtitling_descriptor (tag 0x59)
// for a single subtitle stream.
func appendSubtitlingDescriptor(b *scopeBuf, lang string, subtitlingType byte, compositionPageID, ancillaryPageID uint16) {
	body := []byte(pad3(lang))
	body = append(body, subtitlingType, byte(compositionPageID>>8), byte(compositionPageID), byte(ancillaryPageID>>8), byte(ancillaryPageID))
	writeDescriptor(b, descTagSubtitling, body)
}

// TeletextEntry is one language record of a teletext_descriptor.
type TeletextEntry struct {
	Language    string
	Type        uint8 // 5 bits
	Magazine    uint8 // 3 bits
	PageNumber  uint8 // high nibble of teletext_page_number
	PageSection uint8 // low nibble of teletext_page_number
}

// appendTeletextDescriptor writes a teletext_descriptor (tag 0x56): one
// 3+2-byte record per language. An entry whose Type, Magazine, PageNumber
// and PageSection are all zero is written as the record bytes 0x08 0x00
// (initial teletext page, magazine 0, page 00).
func appendTeletextDescriptor(b *scopeBuf, entries []TeletextEntry) {
	var body []byte
	for _, e := range entries {
		typeMagazine := (e.Type&0x1f)<<3 | (e.Magazine & 0x7)
		page := e.PageNumber<<4 | e.PageSection&0xf
		if typeMagazine == 0 && page == 0 {
			typeMagazine, page = 0x08, 0x00
		}
		body = append(body, pad3(e.Language)...)
		body = append(body, typeMagazine, page)
	}
	writeDescriptor(b, descTagTeletext, body)
}

// appendServiceDescriptor writes a DVB service_descriptor (tag 0x48).
// serviceType is 0xC0 ("one-seg") when the service's sid marks it as a
// partial-reception service, 0x01 ("digital television service") otherwise.
func appendServiceDescriptor(b *scopeBuf, serviceType byte, providerName, serviceName string) {
	var body []byte
	body = append(body, serviceType)
	body = append(body, byte(len(providerName)))
	body = append(body, providerName...)
	body = append(body, byte(len(serviceName)))
	body = append(body, serviceName...)
	writeDescriptor(b, descTagServiceDescriptor, body)
}

// appendNetworkNameDescriptor writes a network_name_descriptor (tag 0x40).
func appendNetworkNameDescriptor(b *scopeBuf, name string) {
	writeDescriptor(b, descTagNetworkName, []byte(name))
}

// appendSystemManagementDescriptor writes the fixed ARIB
// system_management_descriptor (tag 0xFE) content used by terrestrial
// broadcast: broadcasting_flag=digital terrestrial, broadcaster_id=1.
func appendSystemManagementDescriptor(b *scopeBuf) {
	writeDescriptor(b, descTagSystemManagement, []byte{0x03, 0x01})
}

// TSInfoTransmissionType is one per-service transmission-type record of the
// ts_information_descriptor.
type TSInfoTransmissionType struct {
	OneSeg bool
	SID    uint16
}

// appendTSInformationDescriptor writes the ARIB ts_information_descriptor
// (tag 0xCD): remote_control_key_id, ts_name, then one transmission_type
// record per service, each with num_of_service=1 carrying that service's
// sid, per spec §4.2.
func appendTSInformationDescriptor(b *scopeBuf, remoteControlKeyID byte, tsName string, types []TSInfoTransmissionType) {
	var body []byte
	body = append(body, remoteControlKeyID)
	body = append(body, byte(len(tsName)&0x3f)<<2|byte(len(types)&0x3))
	body = append(body, tsName...)
	for _, t := range types {
		info := byte(0x0f)
		if t.OneSeg {
			info = 0xaf
		}
		body = append(body, info, 0x01, byte(t.SID>>8), byte(t.SID))
	}
	writeDescriptor(b, descTagTSInformation, body)
}

// appendServiceListDescriptor writes a service_list_descriptor (tag 0x41):
// one sid + service_type(0x01) pair per service.
func appendServiceListDescriptor(b *scopeBuf, sids []uint16) {
	var body []byte
	for _, sid := range sids {
		body = append(body, byte(sid>>8), byte(sid), 0x01)
	}
	writeDescriptor(b, descTagServiceList, body)
}

// appendPartialReceptionDescriptor writes a partial_reception_descriptor
// (tag 0xFB) listing every one-seg service's sid.
func appendPartialReceptionDescriptor(b *scopeBuf, sids []uint16) {
	var body []byte
	for _, sid := range sids {
		body = append(body, byte(sid>>8), byte(sid))
	}
	writeDescriptor(b, descTagPartialReception, body)
}

// isdbFrequencyFormula selects which integer formula is used to encode the
// terrestrial_delivery_system_descriptor's frequency field; see spec §9
// open question #1. FormulaLiteralSource reproduces the source's literal
// (buggy) integer truncation; FormulaCorrected reproduces the documented
// standard intent.
type isdbFrequencyFormula int

const (
	FormulaLiteralSource isdbFrequencyFormula = iota
	FormulaCorrected
)

// isdbFrequency computes the terrestrial_delivery_system_descriptor
// frequency field (units of 1/7 MHz) for a given physical channel, per the
// formula argument (Configuration.FrequencyFormula, FormulaLiteralSource by
// default; see DESIGN.md's resolution of spec §9 open question #1).
func isdbFrequency(physicalChannel int, formula isdbFrequencyFormula) uint16 {
	switch formula {
	case FormulaCorrected:
		return uint16((473+6*(physicalChannel-14))*7 + 1)
	default:
		return uint16((473 + 6*(physicalChannel-14) + 1/7) * 7)
	}
}

// appendTerrestrialDeliverySystemDescriptor writes the ARIB
// terrestrial_delivery_system_descriptor (tag 0xFA).
func appendTerrestrialDeliverySystemDescriptor(b *scopeBuf, areaCode uint16, guardInterval, transmissionMode uint8, physicalChannel int, formula isdbFrequencyFormula) {
	var body []byte
	v := uint16(areaCode&0xfff)<<4 | uint16(guardInterval&0x3)<<2 | uint16(transmissionMode&0x3)
	body = append(body, byte(v>>8), byte(v))
	freq := isdbFrequency(physicalChannel, formula)
	body = append(body, byte(freq>>8), byte(freq))
	writeDescriptor(b, descTagTerrestrialDelivery, body)
}

// LocalTimeOffset describes a single local_time_offset_descriptor entry.
type LocalTimeOffset struct {
	CountryCode      string
	RegionID         uint8 // 6 bits
	Polarity         bool  // true = negative offset
	OffsetHHMM       uint16
	TimeOfChange     [5]byte
	NextOffsetHHMM   uint16
}

// appendLocalTimeOffsetDescriptor writes a local_time_offset_descriptor (tag
// 0x58) with a single entry, as used by TOT.
func appendLocalTimeOffsetDescriptor(b *scopeBuf, lto LocalTimeOffset) {
	var body []byte
	body = append(body, pad3(lto.CountryCode)...)
	body = append(body, lto.RegionID<<2|b2u8(lto.Polarity)<<1|1)
	body = append(body, bcd16(lto.OffsetHHMM)...)
	body = append(body, lto.TimeOfChange[:]...)
	body = append(body, bcd16(lto.NextOffsetHHMM)...)
	writeDescriptor(b, descTagLocalTimeOffset, body)
}

// appendShortEventDescriptor writes a short_event_descriptor (tag 0x4D).
func appendShortEventDescriptor(b *scopeBuf, lang, eventName, text string) {
	var body []byte
	body = append(body, pad3(lang)...)
	body = append(body, byte(len(eventName)))
	body = append(body, eventName...)
	body = append(body, byte(len(text)))
	body = append(body, text...)
	writeDescriptor(b, descTagShortEvent, body)
}

// appendComponentDescriptor writes a DVB/ARIB component_descriptor (tag
// 0x50) for a single video component.
func appendComponentDescriptor(b *scopeBuf, streamContent, componentType, componentTag byte, lang, text string) {
	var body []byte
	body = append(body, 0xf0|streamContent&0xf)
	body = append(body, componentType, componentTag)
	body = append(body, pad3(lang)...)
	body = append(body, text...)
	writeDescriptor(b, descTagComponent, body)
}

// appendAudioComponentDescriptor writes an audio_component_descriptor (tag
// 0xC4) for a single audio component.
func appendAudioComponentDescriptor(b *scopeBuf, componentType, componentTag, streamType byte, samplingRate byte, mainComponent bool, lang string) {
	var body []byte
	body = append(body, 0xf0|0x2) // reserved, stream_content=audio
	body = append(body, componentType, componentTag, streamType, 0x00)
	flags := byte(0)
	if mainComponent {
		flags |= 0x40
	}
	flags |= (samplingRate & 0x7) << 3
	flags |= 0x07
	body = append(body, flags)
	body = append(body, pad3(lang)...)
	writeDescriptor(b, descTagAudioComponent, body)
}

// appendContentDescriptor writes a content_descriptor (tag 0x54) with a
// single nibble-level/user-nibble pair.
func appendContentDescriptor(b *scopeBuf, level1, level2, userNibble1, userNibble2 byte) {
	body := []byte{level1<<4 | level2&0xf, userNibble1<<4 | userNibble2&0xf}
	writeDescriptor(b, descTagContent, body)
}

func pad3(s string) string {
	for len(s) < 3 {
		s += " "
	}
	return s[:3]
}

func pad4(s string) string {
	for len(s) < 4 {
		s += " "
	}
	return s[:4]
}

func bcd16(hhmm uint16) []byte {
	hh := hhmm / 100
	mm := hhmm % 100
	return []byte{toBCD(int(hh)), toBCD(int(mm))}
}
