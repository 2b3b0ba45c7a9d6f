package duration

import (
	"fmt"
	"time"
)

// Breakdown is an elapsed interval split into whole hours, minutes and seconds.
type Breakdown struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// Elapsed returns the time between start and end as a non-negative breakdown.
// When end reads earlier on the wall clock than start the session is assumed
// to have crossed local midnight once, so a single day is added before
// computing. Sessions never span more than one policy day, so this one-time
// correction is all that is needed.
func Elapsed(start, end time.Time) Breakdown {
	diff := end.Sub(start)
	if diff < 0 {
		diff += 24 * time.Hour
	}

	total := int(diff.Seconds())
	return Breakdown{
		Hours:   total / 3600,
		Minutes: (total % 3600) / 60,
		Seconds: total % 60,
	}
}

// Since is Elapsed against the current time.
func Since(start time.Time) Breakdown {
	return Elapsed(start, time.Now())
}

// Clock formats the breakdown as HH:MM:SS.
func (b Breakdown) Clock() string {
	return fmt.Sprintf("%02d:%02d:%02d", b.Hours, b.Minutes, b.Seconds)
}

// Short formats the breakdown as "Xh Ym".
func (b Breakdown) Short() string {
	return fmt.Sprintf("%dh %dm", b.Hours, b.Minutes)
}
