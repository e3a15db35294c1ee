package isdbtmux

// CodecKind identifies the elementary stream's codec, as supplied by the
// caller at Init time (codec identification is an upstream concern per spec
// §1 — this mux never sniffs the bitstream to determine it).
type CodecKind int

const (
	CodecMPEG1Video CodecKind = iota
	CodecMPEG2Video
	CodecMPEG4Video
	CodecH264
	CodecHEVC
	CodecAVS
	CodecDirac
	CodecVC1
	CodecMP2
	CodecMP3
	CodecAAC
	CodecAC3
	CodecEAC3
	CodecDTS
	CodecTrueHD
	CodecOpus
	CodecS302M
	CodecDVBSubtitle
	CodecTeletext
	CodecKLV
	CodecDataOther
)

// MediaKind is the coarse category a CodecKind belongs to, used to decide
// PES stream_id defaults, buffering policy, and which table-builder
// descriptors apply.
type MediaKind int

const (
	MediaVideo MediaKind = iota
	MediaAudio
	MediaSubtitle
	MediaData
)

// Media classifies c into its MediaKind.
func (c CodecKind) Media() MediaKind {
	switch c {
	case CodecMPEG1Video, CodecMPEG2Video, CodecMPEG4Video, CodecH264, CodecHEVC, CodecAVS, CodecDirac, CodecVC1:
		return MediaVideo
	case CodecMP2, CodecMP3, CodecAAC, CodecAC3, CodecEAC3, CodecDTS, CodecTrueHD, CodecOpus, CodecS302M:
		return MediaAudio
	case CodecDVBSubtitle, CodecTeletext:
		return MediaSubtitle
	default:
		return MediaData
	}
}

// FrameFlags is the per-packet flag bitset carried by WritePacket calls.
type FrameFlags uint8

const (
	FrameKeyFrame FrameFlags = 1 << iota
)

// Timebase is a caller-supplied stream timebase, rescaled to 90kHz by the
// mux (avpriv_set_pts_info(33,1,90000) in spec terms).
type Timebase struct {
	Num, Den int
}

// rescaleTo90kHz converts a timestamp expressed in tb ticks to 90kHz ticks.
func (tb Timebase) rescaleTo90kHz(ts int64) uint64 {
	if tb.Den == 0 {
		return uint64(ts)
	}
	return uint64(ts) * PTSHz * uint64(tb.Num) / uint64(tb.Den)
}

// WriteStream is the per-elementary-stream bookkeeping described in spec
// §3: one per caller-registered stream, weakly referencing the Service it
// was round-robin-assigned to.
type WriteStream struct {
	Service *Service
	PID     uint16
	Codec   CodecKind
	Extradata []byte

	cc wrappingCounter

	pesPayloadSize int
	payloadBuffer  []byte
	payloadPTS     uint64
	payloadDTS     uint64
	bufferStartDTS uint64
	payloadFlags   FrameFlags
	prevPayloadKey bool
	firstPTSCheck  bool
	userTimebase   Timebase
	nbFrames       int

	// Codec-adapter auxiliary state.
	opusTrim    opusPendingTrim
	opusQueued  int
	aacUseLATM  bool
}

// newWriteStream constructs a stream bound to svc at pid.
func newWriteStream(svc *Service, pid uint16, codec CodecKind, extradata []byte, pesPayloadSize int, tb Timebase) *WriteStream {
	return &WriteStream{
		Service:        svc,
		PID:            pid,
		Codec:          codec,
		Extradata:      extradata,
		cc:             newWrappingCounter(0b1111),
		pesPayloadSize: pesPayloadSize,
		userTimebase:   tb,
	}
}

// isBuffered reports whether this stream accumulates payload across calls
// (audio) or emits one PES per WritePacket call (video, subtitles), per
// spec §4.3.
func (s *WriteStream) isBuffered() bool {
	return s.Codec.Media() == MediaAudio
}

// needsFlush implements the buffering policy of spec §4.3: flush when the
// next chunk would overflow pesPayloadSize, when the buffered DTS range
// reaches maxDelay (90kHz ticks), or — for Opus — once 5760 samples
// (120ms at 48kHz) are queued.
func (s *WriteStream) needsFlush(nextChunkLen int, dts uint64, maxDelay uint64) bool {
	if len(s.payloadBuffer)+nextChunkLen > s.pesPayloadSize {
		return true
	}
	if len(s.payloadBuffer) > 0 && dts >= s.bufferStartDTS && dts-s.bufferStartDTS >= maxDelay {
		return true
	}
	if s.Codec == CodecOpus && s.opusQueued >= 5760 {
		return true
	}
	return false
}

// appendPayload buffers a chunk, recording the start DTS of the buffer if
// this is the first chunk accumulated.
func (s *WriteStream) appendPayload(data []byte, dts uint64) {
	if len(s.payloadBuffer) == 0 {
		s.bufferStartDTS = dts
		s.payloadPTS, s.payloadDTS = dts, dts
	}
	s.payloadBuffer = append(s.payloadBuffer, data...)
}

// resetBuffer clears the accumulated payload after a flush.
func (s *WriteStream) resetBuffer() {
	s.payloadBuffer = s.payloadBuffer[:0]
	s.opusQueued = 0
}
