// Package clock provides the notion of "today" used by booking rules.
package clock

import (
	"time"

	"github.com/angelmondragon/adspace-backend/pkg/types"
)

// Clock reports the current instant and calendar day.
type Clock interface {
	Now() time.Time
	Today() types.Date
}

type systemClock struct {
	loc *time.Location
}

// New returns a wall clock whose Today is evaluated in loc (UTC when nil).
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c systemClock) Today() types.Date {
	return types.DateOf(c.Now())
}

// Fixed is a Clock pinned to a single instant.
type Fixed struct {
	At time.Time
}

// FixedDate returns a Fixed clock at midnight UTC of the given day.
func FixedDate(day types.Date) Fixed {
	return Fixed{At: day.Time()}
}

func (f Fixed) Now() time.Time {
	return f.At
}

func (f Fixed) Today() types.Date {
	return types.DateOf(f.At)
}
