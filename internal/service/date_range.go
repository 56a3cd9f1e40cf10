package service

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Date range presets, resolved against the current day.
const (
	PresetLast7Days     = "last_7_days"
	PresetLast30Days    = "last_30_days"
	PresetLast90Days    = "last_90_days"
	PresetLast365Days   = "last_365_days"
	PresetCurrentMonth  = "current_month"
	PresetPreviousMonth = "previous_month"
	PresetCurrentYear   = "current_year"
	PresetPreviousYear  = "previous_year"
	PresetAll           = "all"

	// PresetCustom is reported when explicit dates were given.
	PresetCustom = "custom"

	DefaultPreset = PresetLast30Days
)

// DateRange is an inclusive selection-date window. A nil bound is open.
type DateRange struct {
	From   *civil.Date `json:"from"`
	To     *civil.Date `json:"to"`
	Preset string      `json:"preset"`
}

// ResolveDateRange picks the selection-date window for a query. Explicit
// from/to strings (YYYY-MM-DD) win over any preset and are rejected when
// malformed. Without them the preset applies, defaultPreset when blank.
func ResolveDateRange(from, to, preset, defaultPreset string, now time.Time) (DateRange, error) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)

	if from != "" || to != "" {
		r := DateRange{Preset: PresetCustom}
		if from != "" {
			d, err := parseFilterDate("from", from)
			if err != nil {
				return DateRange{}, err
			}
			r.From = d
		}
		if to != "" {
			d, err := parseFilterDate("to", to)
			if err != nil {
				return DateRange{}, err
			}
			r.To = d
		}
		if r.From != nil && r.To != nil && r.To.Before(*r.From) {
			return DateRange{}, invalidFilter("to", to, "must not be before from")
		}
		return r, nil
	}

	preset = strings.ToLower(strings.TrimSpace(preset))
	if preset == "" {
		preset = defaultPreset
	}
	if preset == "" {
		preset = DefaultPreset
	}

	r, ok := presetWindow(preset, civil.DateOf(now))
	if !ok {
		return DateRange{}, invalidFilter("preset", preset, "unknown preset")
	}
	return r, nil
}

func parseFilterDate(field, value string) (*civil.Date, error) {
	d, err := civil.ParseDate(value)
	if err != nil || !d.IsValid() {
		return nil, invalidFilter(field, value, "expected YYYY-MM-DD")
	}
	return &d, nil
}

func presetWindow(preset string, today civil.Date) (DateRange, bool) {
	lastDays := func(n int) DateRange {
		from := today.AddDays(-(n - 1))
		to := today
		return DateRange{From: &from, To: &to, Preset: preset}
	}
	between := func(from, to civil.Date) DateRange {
		return DateRange{From: &from, To: &to, Preset: preset}
	}
	firstOfMonth := civil.Date{Year: today.Year, Month: today.Month, Day: 1}

	switch preset {
	case PresetLast7Days:
		return lastDays(7), true
	case PresetLast30Days:
		return lastDays(30), true
	case PresetLast90Days:
		return lastDays(90), true
	case PresetLast365Days:
		return lastDays(365), true
	case PresetCurrentMonth:
		return between(firstOfMonth, today), true
	case PresetPreviousMonth:
		last := firstOfMonth.AddDays(-1)
		return between(civil.Date{Year: last.Year, Month: last.Month, Day: 1}, last), true
	case PresetCurrentYear:
		return between(civil.Date{Year: today.Year, Month: time.January, Day: 1}, today), true
	case PresetPreviousYear:
		return between(
			civil.Date{Year: today.Year - 1, Month: time.January, Day: 1},
			civil.Date{Year: today.Year - 1, Month: time.December, Day: 31},
		), true
	case PresetAll:
		return DateRange{Preset: preset}, true
	default:
		return DateRange{}, false
	}
}
