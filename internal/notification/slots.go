// Package notification decides which notifications are due for a user. It is
// a pure policy over an explicit scheduler state: callers load the state,
// evaluate a plan, deliver it and persist the recorded state.
package notification

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// TimeOfDay is a wall clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an HH:MM string.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	var t TimeOfDay
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return t, fmt.Errorf("invalid time of day %q", value)
	}
	var err error
	if t.Hour, err = strconv.Atoi(parts[0]); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q: %w", value, err)
	}
	if t.Minute, err = strconv.Atoi(parts[1]); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q: %w", value, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", value)
	}
	return t, nil
}

// MustParseTimeOfDay is ParseTimeOfDay for constants.
func MustParseTimeOfDay(value string) TimeOfDay {
	t, err := ParseTimeOfDay(value)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeOfDayOf returns the wall clock time of t in its own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

func fromMinutes(m int) TimeOfDay {
	return TimeOfDay{Hour: m / 60, Minute: m % 60}
}

// Minutes returns the number of minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Before reports whether t is strictly earlier than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.Minutes() < other.Minutes()
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ReachedBy reports whether the wall clock of now is at or after t.
func (t TimeOfDay) ReachedBy(now time.Time) bool {
	return !TimeOfDayOf(now).Before(t)
}

// Window is a half-open [Start, End) range of the day.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// DailyRandomSlot picks the motivation time for a user on a date. The result is
// uniform over the window and reproducible for the same (user, date, seed).
func DailyRandomSlot(userID, date, seed string, window Window) TimeOfDay {
	span := window.End.Minutes() - window.Start.Minutes()
	if span <= 0 {
		return window.Start
	}
	r := rand.New(rand.NewPCG(slotSeed(seed, userID, date)))
	offset := r.IntN(span)
	return fromMinutes((window.Start.Minutes() + offset) % minutesPerDay)
}

func slotSeed(parts ...string) (uint64, uint64) {
	a := fnv.New64a()
	b := fnv.New64()
	for _, p := range parts {
		a.Write([]byte(p))
		a.Write([]byte{0})
		b.Write([]byte(p))
		b.Write([]byte{0})
	}
	return a.Sum64(), b.Sum64()
}
