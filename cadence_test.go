package isdbtmux

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCadenceFirstTickFiresEverything(t *testing.T) {
	c := newCadenceController(1) // VBR
	due := c.tick(0, false)
	require.Len(t, due, int(tableKindCount))
}

func TestCadenceFiresOnPacketPeriod(t *testing.T) {
	c := newCadenceController(1)
	c.tick(0, false) // primes hasLastTS for every table

	// defaultVBRPeriodPackets[TablePAT] == 40: it should stay silent for
	// the next 39 ticks and then fire on the 40th.
	var fired bool
	for i := 0; i < 39; i++ {
		due := c.tick(0, false)
		for _, k := range due {
			if k == TablePAT {
				fired = true
			}
		}
	}
	require.False(t, fired)

	due := c.tick(0, false)
	require.Contains(t, due, TablePAT)
}

func TestCadenceForcePATFiresRegardless(t *testing.T) {
	c := newCadenceController(1)
	c.tick(0, false)
	due := c.tick(0, true)
	require.Contains(t, due, TablePAT)
}

func TestCadenceWallClockPeriod(t *testing.T) {
	c := newCadenceController(1)
	c.setWallClockPeriod(TableEIT, 1.0) // 1 second == PTSHz ticks

	c.tick(0, false) // primes hasLastTS at dts=0

	due := c.tick(PTSHz/2, false)
	for _, k := range due {
		require.NotEqual(t, TableEIT, k)
	}

	due = c.tick(PTSHz, false)
	require.Contains(t, due, TableEIT)
}

func TestCadenceReemitAllForcesNextTick(t *testing.T) {
	c := newCadenceController(1)
	c.tick(0, false)
	c.tick(0, false) // well inside every table's period now

	c.reemitAll()
	due := c.tick(0, false)
	require.Len(t, due, int(tableKindCount))
}
