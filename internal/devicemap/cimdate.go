package devicemap

import (
	"strconv"
	"time"
)

// parseCIMDate reads the date part of a CIM datetime such as
// "20210315000000.******+000". Unparseable values are the zero time.
func parseCIMDate(s string) time.Time {
	if len(s) < 8 {
		return time.Time{}
	}
	y, err1 := strconv.Atoi(s[0:4])
	m, err2 := strconv.Atoi(s[4:6])
	d, err3 := strconv.Atoi(s[6:8])
	if err1 != nil || err2 != nil || err3 != nil || m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}
