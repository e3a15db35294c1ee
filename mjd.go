package isdbtmux

import "time"

// encodeMJDUTC encodes t as the 5-byte MJD + BCD(HHMMSS) timestamp used by
// both TOT and the local_time_offset_descriptor's time_of_change field.
func encodeMJDUTC(t time.Time) [5]byte {
	u := t.UTC()
	mjd := modifiedJulianDay(u.Year(), int(u.Month()), u.Day())

	var out [5]byte
	out[0] = byte(mjd >> 8)
	out[1] = byte(mjd)
	out[2] = toBCD(u.Hour())
	out[3] = toBCD(u.Minute())
	out[4] = toBCD(u.Second())
	return out
}

// modifiedJulianDay computes the Modified Julian Day for a UTC calendar
// date, per Annex C of ETSI EN 300 468.
func modifiedJulianDay(year, month, day int) int {
	l := 0
	if month == 1 || month == 2 {
		l = 1
	}
	yy := year - 1900 - l
	mm := month + 1 + 12*l
	mjd := 14956 + day + int(float64(yy)*365.25) + int(float64(mm)*30.6001)
	return mjd
}

func toBCD(v int) byte {
	return byte((v/10)<<4 | (v % 10))
}
