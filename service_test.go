package isdbtmux

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsOneSegVsBuggyDivergence(t *testing.T) {
	// sid = base<<5 | type<<3 | sub. type bits at [4:3].
	oneSeg := &Service{SID: 0b00000_11_000} // type=0b11 at bits 4:3
	require.True(t, oneSeg.IsOneSeg())

	// sdtIsOneSegBuggy masks with (0x18>>3)=3, i.e. just the low two bits,
	// so it disagrees with IsOneSeg whenever the sub-service index's low
	// bits are nonzero but the real type field is full-seg.
	fullSegOddSub := &Service{SID: 0b00000_00_001}
	require.False(t, fullSegOddSub.IsOneSeg())
	require.True(t, sdtIsOneSegBuggy(fullSegOddSub.SID))
}

func TestSynthesizeServicesProfiles(t *testing.T) {
	cases := []struct {
		profile TransmissionProfile
		count   int
	}{
		{ProfileDefault, 1},
		{ProfileOneFHDOneSeg, 2},
		{ProfileFourSDOneSeg, 5},
		{ProfileTwoHDOneSeg, 3},
	}
	for _, c := range cases {
		svcs, err := synthesizeServices(0x1234, c.profile, 1)
		require.NoError(t, err)
		require.Len(t, svcs, c.count)
		for _, s := range svcs {
			require.Equal(t, PIDNull, s.PCRPID)
		}
	}

	// Exactly one one-seg service in each of the multi-service profiles.
	for _, p := range []TransmissionProfile{ProfileOneFHDOneSeg, ProfileFourSDOneSeg, ProfileTwoHDOneSeg} {
		svcs, err := synthesizeServices(0x1, p, 1)
		require.NoError(t, err)
		oneSegCount := 0
		for _, s := range svcs {
			if s.IsOneSeg() {
				oneSegCount++
			}
		}
		require.Equal(t, 1, oneSegCount)
	}
}

func TestAssignPMTPIDs(t *testing.T) {
	svcs, err := synthesizeServices(0x1, ProfileFourSDOneSeg, 1)
	require.NoError(t, err)
	assignPMTPIDs(svcs, 0x1000)
	for i, s := range svcs {
		require.Equal(t, uint16(0x1000+i), s.PMTPID)
	}
}

func TestStreamPID(t *testing.T) {
	pid, err := streamPID(2, 0, 0x100)
	require.NoError(t, err)
	require.Equal(t, uint16(0x100), pid)

	pid, err = streamPID(0x200, 0, 0x100)
	require.NoError(t, err)
	require.Equal(t, uint16(0x200), pid)

	_, err = streamPID(0x1fff, 0, 0x100)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestCheckPIDUnique(t *testing.T) {
	streams := []*WriteStream{{PID: 0x100}}
	svcs := []*Service{{PMTPID: 0x200}}

	require.NoError(t, checkPIDUnique(0x101, streams, svcs))

	err := checkPIDUnique(0x100, streams, svcs)
	require.ErrorIs(t, err, MuxerErrorPIDAlreadyExists)

	err = checkPIDUnique(0x200, streams, svcs)
	require.ErrorIs(t, err, MuxerErrorPIDAlreadyExists)
}

func TestAssignServiceRoundRobin(t *testing.T) {
	svcs, err := synthesizeServices(0x1, ProfileTwoHDOneSeg, 1)
	require.NoError(t, err)
	require.Same(t, svcs[0], assignServiceRoundRobin(svcs, 0))
	require.Same(t, svcs[1], assignServiceRoundRobin(svcs, 1))
	require.Same(t, svcs[2], assignServiceRoundRobin(svcs, 2))
	require.Same(t, svcs[0], assignServiceRoundRobin(svcs, 3))
}
