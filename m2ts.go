package isdbtmux

import "strings"

// resolveM2TSMode turns the tri-state M2TSMode into a concrete bool,
// inferring it from outputName's extension when mode is M2TSAuto, per spec
// §4.7.
func resolveM2TSMode(mode M2TSMode, outputName string) bool {
	switch mode {
	case M2TSOn:
		return true
	case M2TSOff:
		return false
	default:
		return strings.HasSuffix(strings.ToLower(outputName), ".m2ts")
	}
}

