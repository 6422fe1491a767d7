package scheduling

import (
	"fmt"
	"sort"
	"time"

	"pawsitter-api/res/store"
)

// VisitSlot is one concrete dated occurrence generated from a series,
// prior to becoming a booking. Slots are an expansion artifact and are
// never persisted on their own.
type VisitSlot struct {
	SeriesID      string
	VisitNumber   int // 1-based, gapless
	ScheduledDate time.Time
}

const (
	defaultPreferredTime = "09:00"

	// A visit day spans 8 service hours; simple weekly schedules with more
	// than one visit per day space the visits evenly across it.
	serviceDayMinutes = 8 * 60

	lastMinuteOfDay = 23*60 + 59
)

// clockTime is a wall-clock time of day, independent of date and zone.
type clockTime struct {
	minutes int // minutes since midnight
}

func parseClock(s string) (clockTime, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return clockTime{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return clockTime{}, fmt.Errorf("invalid time of day %q", s)
	}
	return clockTime{minutes: hour*60 + minute}, nil
}

func (c clockTime) onDay(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.minutes/60, c.minutes%60, 0, 0, loc)
}

// WeeklySchedule is the resolved weekly visit plan: for each weekday, the
// times a visit happens. It is built exactly once at validation time from
// whichever of the series' two weekly representations applies, so the
// expander never re-inspects optional-field presence.
type WeeklySchedule struct {
	times map[time.Weekday][]clockTime
}

func (ws *WeeklySchedule) empty() bool {
	for _, ts := range ws.times {
		if len(ts) > 0 {
			return false
		}
	}
	return true
}

// ResolveWeeklySchedule chooses the weekly variant: rich per-day schedules
// when present and non-empty, otherwise preferred days with evenly spaced
// visit times.
func ResolveWeeklySchedule(series *store.RecurringSeries) (*WeeklySchedule, error) {
	ws := &WeeklySchedule{times: make(map[time.Weekday][]clockTime)}

	if hasEnabledDaySchedule(series.DaySchedules) {
		for _, ds := range series.DaySchedules {
			if !ds.Enabled || len(ds.VisitTimes) == 0 {
				continue
			}
			times := make([]clockTime, 0, len(ds.VisitTimes))
			for _, raw := range ds.VisitTimes {
				c, err := parseClock(raw)
				if err != nil {
					return nil, &ValidationError{Field: "daySchedules", Reason: err.Error()}
				}
				times = append(times, c)
			}
			sort.Slice(times, func(i, j int) bool { return times[i].minutes < times[j].minutes })
			ws.times[ds.Weekday] = times
		}
		return ws, nil
	}

	if len(series.PreferredDays) == 0 {
		return nil, &ValidationError{Field: "preferredDays", Reason: "weekly series requires at least one enabled weekday"}
	}

	preferred := series.PreferredTime
	if preferred == "" {
		preferred = defaultPreferredTime
	}
	base, err := parseClock(preferred)
	if err != nil {
		return nil, &ValidationError{Field: "preferredTime", Reason: err.Error()}
	}

	visitsPerDay := series.VisitsPerDay
	if visitsPerDay < 1 {
		visitsPerDay = 1
	}

	times := spreadAcrossDay(base, visitsPerDay)
	for _, day := range series.PreferredDays {
		if day < time.Sunday || day > time.Saturday {
			return nil, &ValidationError{Field: "preferredDays", Reason: fmt.Sprintf("invalid weekday index %d", day)}
		}
		ws.times[day] = times
	}
	return ws, nil
}

func hasEnabledDaySchedule(schedules []store.DaySchedule) bool {
	for _, ds := range schedules {
		if ds.Enabled && len(ds.VisitTimes) > 0 {
			return true
		}
	}
	return false
}

// spreadAcrossDay spaces n visits evenly over the service day starting at
// base, clamped so no visit spills past midnight.
func spreadAcrossDay(base clockTime, n int) []clockTime {
	times := make([]clockTime, n)
	interval := serviceDayMinutes / n
	for i := 0; i < n; i++ {
		m := base.minutes + i*interval
		if m > lastMinuteOfDay {
			m = lastMinuteOfDay
		}
		times[i] = clockTime{minutes: m}
	}
	return times
}

// ValidateSeries checks a series definition at creation time. Expansion of
// a valid series never fails.
func ValidateSeries(series *store.RecurringSeries) error {
	if series.ClientID == "" {
		return &ValidationError{Field: "clientId", Reason: "required"}
	}
	if series.NumberOfVisits < 1 {
		return &ValidationError{Field: "numberOfVisits", Reason: "must be at least 1"}
	}
	if series.StartDate.IsZero() {
		return &ValidationError{Field: "startDate", Reason: "required"}
	}

	switch series.Frequency {
	case store.FrequencyWeekly:
		ws, err := ResolveWeeklySchedule(series)
		if err != nil {
			return err
		}
		if ws.empty() {
			return &ValidationError{Field: "daySchedules", Reason: "weekly series requires at least one enabled weekday"}
		}
	case store.FrequencyDaily, store.FrequencyMonthly:
		if series.PreferredTime != "" {
			if _, err := parseClock(series.PreferredTime); err != nil {
				return &ValidationError{Field: "preferredTime", Reason: err.Error()}
			}
		}
	default:
		return &ValidationError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", series.Frequency)}
	}

	if series.TimeZone != "" {
		if _, err := time.LoadLocation(series.TimeZone); err != nil {
			return &ValidationError{Field: "timeZone", Reason: fmt.Sprintf("unknown timezone %q", series.TimeZone)}
		}
	}
	return nil
}

// Expand turns a series definition into its ordered visit slots. The result
// is fully determined by the series: same input, same slots. All date
// arithmetic is calendar-based in the series' timezone so daylight-saving
// shifts cannot drift the visit times.
func Expand(series *store.RecurringSeries) ([]VisitSlot, error) {
	if err := ValidateSeries(series); err != nil {
		return nil, err
	}
	if series.Cancelled {
		return nil, &ValidationError{Field: "series", Reason: "series is cancelled"}
	}

	loc := time.UTC
	if series.TimeZone != "" {
		loc, _ = time.LoadLocation(series.TimeZone) // validated above
	}
	start := startOfDay(series.StartDate, loc)

	switch series.Frequency {
	case store.FrequencyWeekly:
		ws, err := ResolveWeeklySchedule(series)
		if err != nil {
			return nil, err
		}
		return expandWeekly(series, ws, start, loc), nil
	case store.FrequencyDaily:
		return expandByCalendarStep(series, start, loc, func(base time.Time, i int) time.Time {
			return base.AddDate(0, 0, i)
		}), nil
	case store.FrequencyMonthly:
		return expandByCalendarStep(series, start, loc, func(base time.Time, i int) time.Time {
			return base.AddDate(0, i, 0)
		}), nil
	}
	return nil, &ValidationError{Field: "frequency", Reason: fmt.Sprintf("unknown frequency %q", series.Frequency)}
}

func expandWeekly(series *store.RecurringSeries, ws *WeeklySchedule, start time.Time, loc *time.Location) []VisitSlot {
	slots := make([]VisitSlot, 0, series.NumberOfVisits)

	for day := start; len(slots) < series.NumberOfVisits; day = day.AddDate(0, 0, 1) {
		for _, c := range ws.times[day.Weekday()] {
			slots = append(slots, VisitSlot{
				SeriesID:      series.ID,
				VisitNumber:   len(slots) + 1,
				ScheduledDate: c.onDay(day, loc),
			})
			if len(slots) == series.NumberOfVisits {
				break
			}
		}
	}
	return slots
}

func expandByCalendarStep(series *store.RecurringSeries, start time.Time, loc *time.Location, step func(base time.Time, i int) time.Time) []VisitSlot {
	preferred := series.PreferredTime
	if preferred == "" {
		preferred = defaultPreferredTime
	}
	c, _ := parseClock(preferred) // validated

	slots := make([]VisitSlot, series.NumberOfVisits)
	for i := 0; i < series.NumberOfVisits; i++ {
		day := step(start, i)
		slots[i] = VisitSlot{
			SeriesID:      series.ID,
			VisitNumber:   i + 1,
			ScheduledDate: c.onDay(day, loc),
		}
	}
	return slots
}

// startOfDay re-anchors t's calendar date at midnight in loc. The date is
// taken as recorded, not converted, so a date-only value parsed in UTC
// stays on the same calendar day in the series' zone.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
