package isdbtmux

import "math"

// TableKind identifies one of the periodically re-emitted PSI/SI tables.
type TableKind int

const (
	TablePAT TableKind = iota
	TableSDT
	TableNIT
	TableTOT
	TableEIT
	tableKindCount
)

func (t TableKind) String() string {
	switch t {
	case TablePAT:
		return "PAT"
	case TableSDT:
		return "SDT"
	case TableNIT:
		return "NIT"
	case TableTOT:
		return "TOT"
	case TableEIT:
		return "EIT"
	default:
		return "unknown"
	}
}

// defaultPeriodMS holds the CBR default re-emission period, in
// milliseconds, per spec §4.5.
var defaultPeriodMS = map[TableKind]float64{
	TablePAT: 100,
	TableSDT: 500,
	TableNIT: 50,
	TableTOT: 100,
	TableEIT: 500,
}

// defaultVBRPeriodPackets holds the VBR fallback period, in packets, per
// spec §4.5.
var defaultVBRPeriodPackets = map[TableKind]uint64{
	TablePAT: 40,
	TableSDT: 200,
	TableNIT: 200,
	TableTOT: 200,
	TableEIT: 200,
}

// cadenceState is the per-table bookkeeping described in spec §4.5.
type cadenceState struct {
	packetCount  uint64
	packetPeriod uint64 // packets; math.MaxUint64 means "wall-clock only"
	lastTS       uint64
	hasLastTS    bool
	periodTicks  uint64 // periodSeconds * 90000, 0 means "no wall-clock criterion"
}

// cadenceController drives periodic SI emission for every TableKind, per
// spec §4.5.
type cadenceController struct {
	states [tableKindCount]cadenceState
}

// newCadenceController builds a controller seeded from CBR mux_rate (bits
// per second) when muxRate > 1, or the VBR fallback table otherwise.
func newCadenceController(muxRate int) *cadenceController {
	c := &cadenceController{}
	for k := TablePAT; k < tableKindCount; k++ {
		if muxRate > 1 {
			periodMS := defaultPeriodMS[k]
			periodPkts := uint64(float64(muxRate) * periodMS / (188 * 8 * 1000))
			if periodPkts == 0 {
				periodPkts = 1
			}
			c.states[k] = cadenceState{packetPeriod: periodPkts}
		} else {
			c.states[k] = cadenceState{packetPeriod: defaultVBRPeriodPackets[k]}
		}
	}
	return c
}

// setWallClockPeriod overrides a table's period in seconds: per spec §4.5,
// once a finite wall-clock period is configured the per-packet counter
// criterion is disabled (packetPeriod becomes infinite) and periodTicks
// alone governs emission.
func (c *cadenceController) setWallClockPeriod(t TableKind, seconds float64) {
	c.states[t].packetPeriod = math.MaxUint64
	c.states[t].periodTicks = uint64(seconds * PTSHz)
}

// tick advances every table's packet counter by one (one incoming PES
// packet was processed) and returns the set of tables due for emission at
// dts (90kHz ticks). forcePAT requests PAT (and, by convention, PMT)
// emission regardless of its counters — e.g. a keyframe under
// PAT_PMT_AT_FRAMES, or a non-key→key transition.
func (c *cadenceController) tick(dts uint64, forcePAT bool) []TableKind {
	var due []TableKind
	for k := TablePAT; k < tableKindCount; k++ {
		s := &c.states[k]
		s.packetCount++

		fire := s.packetCount >= s.packetPeriod
		if !s.hasLastTS {
			fire = true
		} else if s.periodTicks > 0 && dts >= s.lastTS && dts-s.lastTS >= s.periodTicks {
			fire = true
		}
		if k == TablePAT && forcePAT {
			fire = true
		}

		if fire {
			s.packetCount = 0
			if !s.hasLastTS || dts > s.lastTS {
				s.lastTS = dts
				s.hasLastTS = true
			}
			due = append(due, k)
		}
	}
	return due
}

// reemitAll implements the REEMIT_PAT_PMT one-shot flag: force every
// table's counter to period-1 so the very next tick fires all of them.
func (c *cadenceController) reemitAll() {
	for k := TablePAT; k < tableKindCount; k++ {
		s := &c.states[k]
		if s.packetPeriod == 0 || s.packetPeriod == math.MaxUint64 {
			s.hasLastTS = false
			continue
		}
		s.packetCount = s.packetPeriod - 1
	}
}
