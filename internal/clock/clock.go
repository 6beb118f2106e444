// Package clock converts instants into the zone-local keys the dispatcher
// matches on: the minute bucket ("HH:MM") and the calendar day.
package clock

import (
	"fmt"
	"time"

	"medreminder/internal/model"
)

// DayKeyLayout is the layout of model.Day.Key.
const DayKeyLayout = "2006-01-02"

// Resolver pins the zone schedules are authored in.
type Resolver struct {
	loc *time.Location
}

// NewResolver loads the IANA zone by name.
func NewResolver(zone string) (*Resolver, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", zone, err)
	}
	return &Resolver{loc: loc}, nil
}

// NewResolverIn uses an already loaded location.
func NewResolverIn(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc}
}

func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve returns the bucket and day for now.
func (r *Resolver) Resolve(now time.Time) model.TimeWindow {
	local := now.In(r.loc)
	return model.TimeWindow{
		Bucket: Bucket(local),
		Day:    DayOf(local),
	}
}

// Bucket formats t (already in the target zone) as a zero-padded "HH:MM".
func Bucket(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) model.Day {
	y, m, d := t.Date()
	loc := t.Location()
	return model.Day{
		Key:   t.Format(DayKeyLayout),
		Start: time.Date(y, m, d, 0, 0, 0, 0, loc),
		End:   time.Date(y, m, d+1, 0, 0, 0, 0, loc),
	}
}
