package isdbtmux

import "fmt"

// TransmissionProfile selects how many services are synthesised and how
// their service ids are derived, per spec §4.4.
type TransmissionProfile int

const (
	// ProfileDefault creates a single service using the caller-configured
	// ServiceID verbatim.
	ProfileDefault TransmissionProfile = iota
	// ProfileOneFHDOneSeg creates one full-HD full-seg service and one
	// one-seg service.
	ProfileOneFHDOneSeg
	// ProfileFourSDOneSeg creates four SD full-seg services and one
	// one-seg service.
	ProfileFourSDOneSeg
	// ProfileTwoHDOneSeg creates two HD full-seg services and one one-seg
	// service.
	ProfileTwoHDOneSeg
)

// Service-type bits encoded in sid[4:3], per spec §3.
const (
	serviceTypeFullSeg uint16 = 0b00
	serviceTypeOneSeg  uint16 = 0b11
)

// Service is a single broadcast service: its PAT/PMT/SDT/NIT identity and
// its PCR pacing bookkeeping.
type Service struct {
	SID          uint16
	PMTPID       uint16
	PCRPID       uint16 // 0x1FFF sentinel = unset
	ProviderName string
	Name         string

	cc             wrappingCounter
	pcrPacketCount int
	pcrPacketPeriod int

	// Streams lists every WriteStream currently assigned to this service,
	// in PID-assignment order.
	Streams []*WriteStream
}

// IsOneSeg reports whether this service's sid marks it as an ISDB one-seg
// (partial reception) service, using the *corrected* bit extraction
// ((sid&0x18)>>3)==0x3. See spec §9 open question #2: the SDT loop
// deliberately preserves the source's buggy (sid&3) form instead (see
// sdtIsOneSegBuggy), while every other table uses this corrected form.
func (s *Service) IsOneSeg() bool {
	return (s.SID&0x18)>>3 == 0x3
}

// sdtIsOneSegBuggy reproduces the source's operator-precedence bug,
// `sid & 0x18 >> 3`, which C evaluates as `sid & (0x18>>3)` = `sid & 3`
// (Go would group the same text as `(sid & 0x18) >> 3`, so the C grouping
// is written out with explicit parentheses here). spec §9 open question #2 asks implementers to preserve
// whichever behaviour is observable and flag both; this mux flags both by
// keeping them as two distinctly-named, separately-tested functions, and
// SDT is the only table that calls this one.
func sdtIsOneSegBuggy(sid uint16) bool {
	return sid&(0x18>>3) != 0
}

// synthesizeServices builds the Service set for a given ONID and profile,
// per spec §4.4.
func synthesizeServices(onid uint16, profile TransmissionProfile, defaultServiceID uint16) ([]*Service, error) {
	base := onid & 0x7ff

	mk := func(subIndex uint16, fullSeg bool, name string) *Service {
		st := serviceTypeFullSeg
		if !fullSeg {
			st = serviceTypeOneSeg
		}
		sid := base<<5 | st<<3 | subIndex
		return &Service{SID: sid, PCRPID: PIDNull, Name: name, cc: newWrappingCounter(0b1111)}
	}

	switch profile {
	case ProfileOneFHDOneSeg:
		return []*Service{
			mk(0, true, "SVC HD Full Seg"),
			mk(1, false, "SVC LD 1-Seg"),
		}, nil
	case ProfileFourSDOneSeg:
		return []*Service{
			mk(0, true, "SVC SD1 Full Seg"),
			mk(1, true, "SVC SD2 Full Seg"),
			mk(2, true, "SVC SD3 Full Seg"),
			mk(3, true, "SVC SD4 Full Seg"),
			mk(4, false, "SVC LD 1-Seg"),
		}, nil
	case ProfileTwoHDOneSeg:
		return []*Service{
			mk(0, true, "SVC HD1 Full Seg"),
			mk(1, true, "SVC HD2 Full Seg"),
			mk(4, false, "SVC LD 1-Seg"),
		}, nil
	default:
		return []*Service{{
			SID:    defaultServiceID,
			PCRPID: PIDNull,
			Name:   fmt.Sprintf("Service%02d", defaultServiceID),
			cc:     newWrappingCounter(0b1111),
		}}, nil
	}
}

// assignPMTPIDs allocates contiguous PMT PIDs starting at pmtStartPID.
func assignPMTPIDs(services []*Service, pmtStartPID uint16) {
	for i, s := range services {
		s.PMTPID = pmtStartPID + uint16(i)
	}
}

// streamPID resolves the PID a caller-supplied stream index maps to, per
// spec §4.4: an id below 16 maps to startPID plus the stream's index, ids
// below 0x1FFF are used verbatim, anything else is a configuration error.
func streamPID(callerID uint16, index int, startPID uint16) (uint16, error) {
	if callerID < 16 {
		return startPID + uint16(index), nil
	}
	if callerID < 0x1fff {
		return callerID, nil
	}
	return 0, fmt.Errorf("%w: stream id 0x%x does not fit in 13 bits", ErrInvalidConfig, callerID)
}

// checkPIDUnique verifies pid collides with neither an existing stream PID
// nor any service's PMT PID.
func checkPIDUnique(pid uint16, streams []*WriteStream, services []*Service) error {
	for _, st := range streams {
		if st.PID == pid {
			return fmt.Errorf("%w: PID 0x%x already used by another stream", MuxerErrorPIDAlreadyExists, pid)
		}
	}
	for _, svc := range services {
		if svc.PMTPID == pid {
			return fmt.Errorf("%w: PID 0x%x collides with a PMT PID", MuxerErrorPIDAlreadyExists, pid)
		}
	}
	return nil
}

// assignServiceRoundRobin returns the service a given stream index belongs
// to: stream_index mod final_nb_services.
func assignServiceRoundRobin(services []*Service, streamIndex int) *Service {
	return services[streamIndex%len(services)]
}
