package isdbtmux

import (
	"fmt"
	"io"

	"github.com/asticode/go-astikit"
	"github.com/google/uuid"
)

// Frame is one caller-supplied access unit, the facade's write_packet
// argument from spec §6. A nil Frame passed to WritePacket requests a
// flush of every buffered audio stream, matching the source's
// null-packet-means-flush convention.
type Frame struct {
	StreamIndex int
	Data        []byte
	PTS, DTS    int64
	Flags       FrameFlags

	// StreamID overrides the default PES stream_id (MPEGTS_STREAM_ID side
	// data) when non-zero.
	StreamID byte
	// SkipSamplesEnd carries Opus trim_end side-data, in 48kHz samples.
	SkipSamplesEnd int
}

// StreamConfig is the per-stream registration record passed to Init.
type StreamConfig struct {
	Codec     CodecKind
	ID        uint16 // caller-supplied id; resolved to a PID via streamPID
	Timebase  Timebase
	Extradata []byte
	Language  string
}

// Muxer is the public facade: init/write_packet/flush/write_trailer/deinit
// from spec §6, holding every piece of mux-wide state described in spec
// §5 (single-threaded, no internal concurrency, no timers).
type Muxer struct {
	cfg Configuration

	out io.Writer
	bw  *astikit.BitsWriter
	bb  [8]byte

	m2ts bool

	services []*Service
	streams  []*WriteStream

	cadence                           *cadenceController
	tablesVersion                     wrappingCounter
	patCC, sdtCC, nitCC, totCC, eitCC wrappingCounter

	network   NetworkConfig
	lto       LocalTimeOffset
	eitEvents map[uint16]EITEvent

	core          muxCore
	reemitPending bool

	logger  Logger
	metrics *Metrics

	wantPaced bool

	// Overrides captured by MuxerOption before Init has a Configuration to
	// hold them in; reasserted onto m.cfg at the top of Init.
	freqFormulaOverride *isdbFrequencyFormula
	eitBugOverride      *bool

	sessionID uuid.UUID
	closed    bool
}

// NewMuxer constructs an un-initialised Muxer writing to w, applying opts
// (the teacher's functional-options idiom). Call Init before writing any
// packet.
func NewMuxer(w io.Writer, opts ...MuxerOption) *Muxer {
	m := &Muxer{
		out:       w,
		cfg:       NewConfiguration(),
		logger:    noopLogger{},
		sessionID: uuid.New(),
		patCC:     newWrappingCounter(0b1111),
		sdtCC:     newWrappingCounter(0b1111),
		nitCC:     newWrappingCounter(0b1111),
		totCC:     newWrappingCounter(0b1111),
		eitCC:     newWrappingCounter(0b1111),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init validates cfg and streams, synthesises services, assigns PIDs, and
// prepares per-table cadence state. It writes no bytes, per spec §6.
func (m *Muxer) Init(cfg Configuration, streamCfgs []StreamConfig) error {
	m.cfg = cfg
	if m.freqFormulaOverride != nil {
		m.cfg.FrequencyFormula = *m.freqFormulaOverride
	}
	if m.eitBugOverride != nil {
		m.cfg.EITTableIDExtUsesTSIDForLast = *m.eitBugOverride
	}
	m.tablesVersion = newWrappingCounter(0b11111)
	m.tablesVersion.set(cfg.TablesVersion)
	m.m2ts = resolveM2TSMode(cfg.M2TSMode, cfg.OutputName)
	m.cadence = newCadenceController(cfg.MuxRate)
	if cfg.PATPeriod > 0 {
		m.cadence.setWallClockPeriod(TablePAT, cfg.PATPeriod.Seconds())
	}
	if cfg.SDTPeriod > 0 {
		m.cadence.setWallClockPeriod(TableSDT, cfg.SDTPeriod.Seconds())
	}
	m.eitEvents = map[uint16]EITEvent{}

	m.network = cfg.Network
	if m.network.NetworkID == 0 {
		m.network.NetworkID = cfg.OriginalNetworkID
	}
	if m.network.FrequencyFormula == 0 {
		m.network.FrequencyFormula = m.cfg.FrequencyFormula
	}
	if m.network.AreaCode == 0 {
		m.network.AreaCode = cfg.AreaCode
	}
	if m.network.GuardInterval == 0 {
		m.network.GuardInterval = cfg.GuardInterval
	}
	if m.network.TransmissionMode == 0 {
		m.network.TransmissionMode = cfg.TransmissionMode
	}
	if m.network.PhysicalChannel == 0 {
		m.network.PhysicalChannel = cfg.PhysicalChannel
	}
	if m.network.RemoteControlKeyID == 0 {
		m.network.RemoteControlKeyID = byte(cfg.VirtualChannel)
	}
	m.lto = cfg.LTO

	services, err := synthesizeServices(cfg.OriginalNetworkID, cfg.TransmissionProfile, cfg.ServiceID)
	if err != nil {
		return err
	}
	assignPMTPIDs(services, cfg.PMTStartPID)
	m.services = services

	finalNbServices := len(services)
	if cfg.TransmissionProfile == ProfileDefault && cfg.FinalNbServices > 1 {
		finalNbServices = cfg.FinalNbServices
	}

	m.streams = make([]*WriteStream, 0, len(streamCfgs))
	for i, sc := range streamCfgs {
		pid, err := streamPID(sc.ID, i, cfg.StartPID)
		if err != nil {
			return err
		}
		if err := checkPIDUnique(pid, m.streams, m.services); err != nil {
			return err
		}

		svcIdx := i % finalNbServices
		if svcIdx >= len(m.services) {
			svcIdx = svcIdx % len(m.services)
		}
		svc := m.services[svcIdx]

		st := newWriteStream(svc, pid, sc.Codec, sc.Extradata, cfg.PESPayloadSize, sc.Timebase)
		st.aacUseLATM = cfg.Flags&FlagAACLATM != 0
		svc.Streams = append(svc.Streams, st)
		m.streams = append(m.streams, st)

		if svc.PCRPID == PIDNull || (sc.Codec.Media() == MediaVideo && !hasVideoPID(svc)) {
			svc.PCRPID = pid
		}
	}

	for _, svc := range m.services {
		if svc.PCRPID == PIDNull && len(svc.Streams) > 0 {
			svc.PCRPID = svc.Streams[0].PID
		}
		svc.pcrPacketPeriod = int(float64(cfg.MuxRate) * cfg.PCRPeriod.Seconds() / (188 * 8))
		if svc.pcrPacketPeriod <= 0 {
			svc.pcrPacketPeriod = 1
		}
	}

	if m.wantPaced && cfg.MuxRate > 1 {
		m.out = newPacedWriter(m.out, cfg.MuxRate)
	}
	m.bw = astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: m.out})
	m.reemitPending = true // emit the full table set ahead of the very first packet
	return nil
}

// hasVideoPID reports whether svc's PCR pid already belongs to a video
// stream, so a later video stream never displaces it (spec §4.4: "the
// first video stream's PID is adopted ... if no video exists, the first
// stream wins").
func hasVideoPID(svc *Service) bool {
	for _, st := range svc.Streams {
		if st.PID == svc.PCRPID && st.Codec.Media() == MediaVideo {
			return true
		}
	}
	return false
}

// WritePacket implements spec §6's write_packet: a nil pkt flushes every
// buffered audio stream instead of encoding a new access unit.
func (m *Muxer) WritePacket(pkt *Frame) error {
	if pkt == nil {
		return m.Flush()
	}
	if pkt.StreamIndex < 0 || pkt.StreamIndex >= len(m.streams) {
		return fmt.Errorf("%w: stream index %d out of range", ErrInvalidConfig, pkt.StreamIndex)
	}
	st := m.streams[pkt.StreamIndex]

	if m.cfg.Flags&FlagResendHeaders != 0 {
		m.reemitPending = true
	}

	data, err := m.adaptCodec(st, pkt)
	if err != nil {
		return err
	}

	pts := st.userTimebase.rescaleTo90kHz(pkt.PTS)
	dts := st.userTimebase.rescaleTo90kHz(pkt.DTS)
	key := pkt.Flags&FrameKeyFrame != 0

	if !m.core.havePCR {
		m.core.firstPCR = dts * ClockReferenceScale
		m.core.havePCR = true
	}

	if !st.isBuffered() {
		st.nbFrames++
		return m.emitPES(st, data, pts, dts, key, pkt.StreamID)
	}

	if st.needsFlush(len(data), dts, uint64(m.cfg.MaxDelay.Seconds()*PTSHz)) {
		if err := m.flushStream(st); err != nil {
			return err
		}
	}
	st.appendPayload(data, dts)
	st.nbFrames++
	if st.Codec == CodecOpus {
		if n, err := opusPacketSamples(pkt.Data); err == nil {
			st.opusQueued += n
		}
	}
	return nil
}

// adaptCodec runs the per-codec framing adapters of spec §4.6.
func (m *Muxer) adaptCodec(st *WriteStream, pkt *Frame) ([]byte, error) {
	switch st.Codec {
	case CodecH264:
		return processH264Keyframe(pkt.Data, pkt.Flags&FrameKeyFrame != 0, st.nbFrames, st.Extradata, m.warn)
	case CodecHEVC:
		return processHEVC(pkt.Data, st.nbFrames, m.warn)
	case CodecAAC:
		out, err := aacEnsureFramed(pkt.Data, st.Extradata, st.aacUseLATM)
		if err != nil {
			return nil, err
		}
		return out, nil
	case CodecOpus:
		trimStart := st.opusTrim.consume()
		var trimEnd *uint16
		if pkt.SkipSamplesEnd > 0 {
			v := uint16(pkt.SkipSamplesEnd)
			trimEnd = &v
		}
		hdr := buildOpusControlHeader(len(pkt.Data), trimStart, trimEnd)
		return append(hdr, pkt.Data...), nil
	default:
		return pkt.Data, nil
	}
}

// flushStream emits the accumulated buffer of a buffered (audio) stream as
// one PES packet, per spec §4.3/§6.
func (m *Muxer) flushStream(st *WriteStream) error {
	if len(st.payloadBuffer) == 0 {
		return nil
	}
	if err := m.emitPES(st, st.payloadBuffer, st.payloadPTS, st.payloadDTS, false, 0); err != nil {
		return err
	}
	st.resetBuffer()
	return nil
}

// Flush drains every buffered audio stream by emitting a final PES packet
// for each, per spec §6.
func (m *Muxer) Flush() error {
	for _, st := range m.streams {
		if st.isBuffered() {
			if err := m.flushStream(st); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteTrailer flushes again, per spec §6 (the facade makes no further
// guarantee about what a trailer contains — this mux has none beyond the
// final buffered PES packets).
func (m *Muxer) WriteTrailer() error {
	return m.Flush()
}

// Deinit releases the mux's buffers and services. The Muxer is not usable
// afterwards.
func (m *Muxer) Deinit() error {
	m.services = nil
	m.streams = nil
	m.eitEvents = nil
	m.closed = true
	return nil
}

// SetEITEvent registers (or replaces) the present-event description for a
// service's EIT entries.
func (m *Muxer) SetEITEvent(sid uint16, ev EITEvent) {
	m.eitEvents[sid] = ev
}

// CheckBitstream advises whether pkt's codec needs an Annex-B conversion
// filter upstream (h264_mp4toannexb/hevc_mp4toannexb), per spec §6: this
// mux validates but never rewrites length-prefixed NALUs into Annex-B
// itself.
func (m *Muxer) CheckBitstream(codec CodecKind, data []byte) bool {
	switch codec {
	case CodecH264, CodecHEVC:
		return !h264HasStartCode(data)
	default:
		return false
	}
}
