package isdbtmux

import "time"

// MuxerFlags is the bitset carried by Configuration.Flags, mirroring
// mpegts_flags from spec §6.
type MuxerFlags uint8

const (
	// FlagResendHeaders forces PAT/every PMT/SDT/NIT/TOT/EIT to be
	// re-emitted ahead of the very next PES packet (spec §4.5,
	// REEMIT_PAT_PMT).
	FlagResendHeaders MuxerFlags = 1 << iota
	// FlagAACLATM selects LOAS/LATM framing for raw AAC input instead of
	// ADTS.
	FlagAACLATM
	// FlagPATPMTAtFrames forces PAT/PMT emission ahead of every video
	// keyframe, per spec §4.5 (without it, only a non-key→key transition
	// forces them).
	FlagPATPMTAtFrames
	// FlagSystemB selects the DVB/System-B stream_type and descriptor set
	// for AC-3/E-AC-3 instead of the ATSC/System-A one.
	FlagSystemB
)

// M2TSMode tri-states the 192-byte M2TS envelope: auto infers it from the
// output filename extension, per spec §4.7.
type M2TSMode int

const (
	M2TSAuto M2TSMode = iota
	M2TSOff
	M2TSOn
)

// Configuration collects every caller-facing option from spec §6, with the
// documented defaults applied by NewConfiguration.
type Configuration struct {
	TransportStreamID  uint16
	OriginalNetworkID  uint16
	ServiceID          uint16
	FinalNbServices    int
	AreaCode           uint16
	GuardInterval      uint8
	TransmissionMode   uint8
	PhysicalChannel    int
	VirtualChannel     int
	TransmissionProfile TransmissionProfile
	ServiceType        byte
	PMTStartPID        uint16
	StartPID           uint16
	M2TSMode           M2TSMode
	OutputName         string // consulted only when M2TSMode == M2TSAuto
	MuxRate            int    // bits/s; 1 means VBR
	PESPayloadSize     int
	Flags              MuxerFlags
	TablesVersion      uint8
	OmitVideoPESLength bool
	PCRPeriod          time.Duration
	PATPeriod          time.Duration // 0 = packet-counter cadence only
	SDTPeriod          time.Duration
	MaxDelay           time.Duration // buffering horizon, spec §4.3

	// FrequencyFormula resolves spec §9 open question #1; see DESIGN.md.
	FrequencyFormula isdbFrequencyFormula
	// EITTableIDExtUsesTSIDForLast resolves spec §9 open question #3.
	EITTableIDExtUsesTSIDForLast bool

	Network NetworkConfig
	LTO     LocalTimeOffset
}

// NewConfiguration returns a Configuration populated with every spec §6
// default.
func NewConfiguration() Configuration {
	return Configuration{
		TransportStreamID:  1,
		OriginalNetworkID:  1,
		ServiceID:          1,
		FinalNbServices:    1,
		AreaCode:           1,
		GuardInterval:      1,
		TransmissionMode:   1,
		PhysicalChannel:    20,
		VirtualChannel:     20,
		TransmissionProfile: ProfileDefault,
		ServiceType:        0x01,
		PMTStartPID:        0x1000,
		StartPID:           0x0100,
		M2TSMode:           M2TSAuto,
		MuxRate:            1,
		PESPayloadSize:     2930,
		TablesVersion:      0,
		OmitVideoPESLength: true,
		PCRPeriod:          20 * time.Millisecond,
		MaxDelay:           700 * time.Millisecond,
		FrequencyFormula:   FormulaLiteralSource,
	}
}

// MuxerOption mutates a Muxer at construction time, in the teacher's
// functional-options style.
type MuxerOption func(*Muxer)

// MuxerOptionLogger attaches a logger; nil keeps the default no-op logger.
func MuxerOptionLogger(l Logger) MuxerOption {
	return func(m *Muxer) {
		if l != nil {
			m.logger = l
		}
	}
}

// MuxerOptionMetrics wires a metrics recorder built by NewMetrics.
func MuxerOptionMetrics(r *Metrics) MuxerOption {
	return func(m *Muxer) { m.metrics = r }
}

// MuxerOptionPacedWriter wraps the output in a rate.Limiter-gated writer
// sized to cfg.MuxRate, for live CBR sinks that must not be fed faster than
// real time; see pacedwriter.go.
func MuxerOptionPacedWriter() MuxerOption {
	return func(m *Muxer) { m.wantPaced = true }
}

// MuxerOptionFrequencyFormula overrides the default spec §9 open-question-1
// resolution. Applied in NewMuxer, before the Configuration passed to Init
// even exists, so the choice is held on the Muxer and reasserted onto cfg at
// the top of Init rather than written straight into m.cfg (which Init
// replaces wholesale).
func MuxerOptionFrequencyFormula(f isdbFrequencyFormula) MuxerOption {
	return func(m *Muxer) { m.freqFormulaOverride = &f }
}

// MuxerOptionEITTableIDExtBug sets Configuration.EITTableIDExtUsesTSIDForLast
// (spec §9 open question 3): when enabled, the closing EIT section carries
// the TSID instead of the last service's sid. See MuxerOptionFrequencyFormula
// for why this is held separately from m.cfg until Init.
func MuxerOptionEITTableIDExtBug(enabled bool) MuxerOption {
	return func(m *Muxer) { m.eitBugOverride = &enabled }
}
