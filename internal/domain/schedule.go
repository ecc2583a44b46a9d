package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SlotDuration is the fixed granularity of a doctor's day.
const SlotDuration = 30 * time.Minute

// TimeOfDay counts minutes since local midnight.
type TimeOfDay int16

const minutesPerDay = 24 * 60

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS" with zero seconds.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	layout := "15:04"
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	if t.Second() != 0 {
		return 0, fmt.Errorf("invalid time of day %q: seconds are not supported", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= minutesPerDay
}

// On returns the instant of t on the calendar date of day, in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, loc)
}

type TimeRange struct {
	Start TimeOfDay
	End   TimeOfDay
}

func (r TimeRange) Validate() error {
	if !r.Start.Valid() || !r.End.Valid() {
		return errors.New("time out of range")
	}
	if r.End <= r.Start {
		return errors.New("end must be after start")
	}
	return nil
}

// SlotStarts enumerates slot starts from Start while the whole slot fits before End.
func (r TimeRange) SlotStarts() []TimeOfDay {
	step := TimeOfDay(SlotDuration / time.Minute)
	out := make([]TimeOfDay, 0, int(r.End-r.Start)/int(step))
	for t := r.Start; t+step <= r.End; t += step {
		out = append(out, t)
	}
	return out
}

// WeeklySchedule holds at most one open range per weekday.
type WeeklySchedule map[time.Weekday]TimeRange

func (w WeeklySchedule) Validate() error {
	for day, r := range w {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("invalid weekday %d", day)
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%s: %w", strings.ToUpper(day.String()), err)
		}
	}
	return nil
}

// Days returns the configured weekdays ordered Monday first.
func (w WeeklySchedule) Days() []time.Weekday {
	out := make([]time.Weekday, 0, len(w))
	for d := range w {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return ISOWeekday(out[i]) < ISOWeekday(out[j])
	})
	return out
}

// ISOWeekday maps Monday..Sunday to 1..7.
func ISOWeekday(d time.Weekday) int16 {
	if d == time.Sunday {
		return 7
	}
	return int16(d)
}

func WeekdayFromISO(n int16) (time.Weekday, error) {
	if n < 1 || n > 7 {
		return 0, fmt.Errorf("invalid weekday %d", n)
	}
	if n == 7 {
		return time.Sunday, nil
	}
	return time.Weekday(n), nil
}

// ParseWeekday accepts full or three-letter English names in any case.
func ParseWeekday(s string) (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

// Availability is the per-doctor aggregate of weekly hours and one-off blocks.
type Availability struct {
	DoctorID         uuid.UUID
	Weekly           WeeklySchedule
	UnavailableSlots []time.Time
}

func (a Availability) IsUnavailable(t time.Time) bool {
	for _, u := range a.UnavailableSlots {
		if u.Equal(t) {
			return true
		}
	}
	return false
}

// NormalizeSlots sorts instants in UTC and drops duplicates.
func NormalizeSlots(in []time.Time) []time.Time {
	out := make([]time.Time, 0, len(in))
	seen := make(map[int64]struct{}, len(in))
	for _, t := range in {
		t = t.UTC()
		key := t.UnixNano()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

type SlotState string

const (
	SlotStateAvailable SlotState = "AVAILABLE"
	SlotStateBooked    SlotState = "BOOKED"
)

type Slot struct {
	Start   TimeOfDay
	Instant time.Time
	State   SlotState
}

var localInstantLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"}

// ParseInstant accepts RFC 3339, or a zone-less local date-time interpreted in loc.
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localInstantLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid instant %q", s)
}
