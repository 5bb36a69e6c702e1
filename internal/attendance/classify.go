package attendance

import "time"

// LateWindowMinutes is the last minute after the start that still counts as late.
const LateWindowMinutes = 10

// DeltaMinutes is markedAt - start in whole minutes, truncated toward zero.
func DeltaMinutes(markedAt, start time.Time) int {
	return int(markedAt.Sub(start) / time.Minute)
}

// Classify maps the signed delay to a status: on time or early is present,
// up to and including LateWindowMinutes is late, anything later is absent.
func Classify(delta int) Status {
	switch {
	case delta <= 0:
		return StatusPresent
	case delta <= LateWindowMinutes:
		return StatusLate
	default:
		return StatusAbsent
	}
}
