package isdbtmux

import "fmt"

// opusFrameDurationSamples48kHz maps an Opus TOC config number (toc>>3) to
// the duration, in 48kHz samples, of a single frame coded with that config.
// Table 2 of RFC 6716.
var opusFrameDurationSamples48kHz = [32]int{
	480, 960, 1920, 2880, // SILK NB
	480, 960, 1920, 2880, // SILK MB
	480, 960, 1920, 2880, // SILK WB
	480, 960, // Hybrid SWB
	480, 960, // Hybrid FB
	120, 240, 480, 960, // CELT NB
	120, 240, 480, 960, // CELT WB
	120, 240, 480, 960, // CELT SWB
	120, 240, 480, 960, // CELT FB
}

// opusChannelMapping is a single RFC 7845 §5.1.1.2 Vorbis-style channel
// mapping family 1 entry.
type opusChannelMapping struct {
	streams  uint8
	coupled  uint8
	mapping  [8]uint8
}

// opusVorbisMappings holds the fixed family-1 channel mapping tables for
// channel counts 1..8 (index 0 == 1 channel).
var opusVorbisMappings = [8]opusChannelMapping{
	{streams: 1, coupled: 0, mapping: [8]uint8{0}},
	{streams: 1, coupled: 1, mapping: [8]uint8{0, 1}},
	{streams: 2, coupled: 1, mapping: [8]uint8{0, 2, 1}},
	{streams: 2, coupled: 2, mapping: [8]uint8{0, 1, 2, 3}},
	{streams: 3, coupled: 2, mapping: [8]uint8{0, 4, 1, 2, 3}},
	{streams: 4, coupled: 2, mapping: [8]uint8{0, 4, 1, 2, 3, 5}},
	{streams: 4, coupled: 3, mapping: [8]uint8{0, 4, 1, 2, 3, 5, 6}},
	{streams: 5, coupled: 3, mapping: [8]uint8{0, 6, 1, 2, 3, 4, 5, 7}},
}

// opusChannelConfigCode returns the channel_config_code byte carried by the
// DVB Opus extension descriptor (appendOpusExtensionDescriptor), or
// (0xff, ErrNotSupported) for a channel count this mux can't encode.
//
// Family 0 (mono/stereo) uses the channel count directly; family 1 (3..8
// channels) encodes (streams<<4 | coupled), which is sufficient for a
// decoder that already knows the mapping table from the channel count alone
// (RFC 7845's tables are a fixed function of channel count for family 1).
func opusChannelConfigCode(channels int) (byte, error) {
	if channels < 1 || channels > 8 {
		return 0xff, fmt.Errorf("%w: opus channel count %d outside RFC 7845 families 0/1", ErrNotSupported, channels)
	}
	if channels <= 2 {
		return byte(channels), nil
	}
	m := opusVorbisMappings[channels-1]
	return m.streams<<4 | m.coupled, nil
}

// opusPacketSamples computes the number of 48kHz samples encoded by an Opus
// packet from its TOC byte and frame-count encoding, per spec §4.6.
func opusPacketSamples(data []byte) (int, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("%w: opus packet too short for a TOC byte", ErrInvalidData)
	}
	toc := data[0]
	frameDuration := opusFrameDurationSamples48kHz[toc>>3]

	var numFrames int
	switch toc & 0x3 {
	case 0:
		numFrames = 1
	case 1, 2:
		numFrames = 2
	case 3:
		if len(data) < 2 {
			return 0, fmt.Errorf("%w: opus packet missing frame count byte", ErrInvalidData)
		}
		numFrames = int(data[1] & 0x3f)
	}

	return frameDuration * numFrames, nil
}

// buildOpusControlHeader writes the private control header this mux
// prepends to every Opus PES payload: 0x7F, a flags byte (0xE0 base, bit4 =
// trim_start present, bit3 = trim_end present), a 255-terminated encoding of
// pktSize, then the optional 16-bit trim_start/trim_end fields.
func buildOpusControlHeader(pktSize int, trimStart, trimEnd *uint16) []byte {
	flags := byte(0xe0)
	if trimStart != nil {
		flags |= 0x10
	}
	if trimEnd != nil {
		flags |= 0x08
	}

	out := []byte{0x7f, flags}
	for pktSize >= 255 {
		out = append(out, 255)
		pktSize -= 255
	}
	out = append(out, byte(pktSize))

	if trimStart != nil {
		out = append(out, byte(*trimStart>>8), byte(*trimStart))
	}
	if trimEnd != nil {
		out = append(out, byte(*trimEnd>>8), byte(*trimEnd))
	}
	return out
}

// opusPendingTrim tracks the per-stream trim bookkeeping described in spec
// §4.6/S5: trim_start is drawn down from upstream initial padding (already
// converted to 48kHz) and cleared once emitted; trim_end comes from
// per-packet skip-samples side-data and is not carried across packets.
type opusPendingTrim struct {
	trimStart uint32
}

// consume returns a *uint16 suitable for buildOpusControlHeader and zeroes
// the pending counter, per S5 ("After emission,
// opus_pending_trim_start == 0").
func (t *opusPendingTrim) consume() *uint16 {
	if t.trimStart == 0 {
		return nil
	}
	v := uint16(t.trimStart)
	if uint32(v) != t.trimStart {
		v = 0xffff
	}
	t.trimStart = 0
	return &v
}
